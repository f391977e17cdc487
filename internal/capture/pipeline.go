package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lexiqai/live-transcriber/internal/observability"
)

// Pipeline gates an AudioSource on the connection and forwards its chunks.
// The source acquired by Start is the one released by Stop.
type Pipeline struct {
	source  AudioSource
	link    Link
	logger  zerolog.Logger
	metrics *observability.Metrics
	onError func(error)

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMetrics attaches session metrics
func WithMetrics(metrics *observability.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = metrics }
}

// WithErrorHandler receives device failures that end a recording
func WithErrorHandler(fn func(error)) PipelineOption {
	return func(p *Pipeline) { p.onError = fn }
}

// NewPipeline creates an idle pipeline
func NewPipeline(source AudioSource, link Link, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		source: source,
		link:   link,
		logger: zerolog.Nop(),
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start acquires the microphone and begins streaming.
// It fails with ErrNotConnected before touching the microphone if the link is not Open,
// and with ErrPermissionDenied if the microphone cannot be acquired. Either way the
// pipeline stays Idle. Starting a recording pipeline is a no-op.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateRecording {
		return nil
	}
	if !p.link.Connected() {
		return ErrNotConnected
	}

	if err := p.source.Open(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("Microphone access failed")
		if p.metrics != nil {
			p.metrics.RecordError("permission", "capture")
		}
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}

	// The recording outlives the permission request's context
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.state = StateRecording

	if p.metrics != nil {
		p.metrics.RecordRecordingStart()
	}
	p.logger.Info().Str("encoding", string(p.source.Encoding())).Msg("Recording started")

	go p.run(runCtx, done)
	return nil
}

// Stop halts production and releases the microphone. Stopping an idle pipeline is a no-op.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

// State returns the current capture state
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) stopLocked() error {
	if p.state == StateIdle {
		return nil
	}

	p.cancel()
	<-p.done

	err := p.source.Close()
	p.state = StateIdle
	p.cancel = nil
	p.done = nil

	if p.metrics != nil {
		p.metrics.RecordRecordingEnd()
	}
	p.logger.Info().Msg("Recording stopped")

	if err != nil {
		return fmt.Errorf("release microphone: %w", err)
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, done chan struct{}) {
	err := p.source.Run(ctx, p.forward)
	close(done)

	if err == nil || ctx.Err() != nil {
		return
	}

	p.logger.Error().Err(err).Msg("Recording failed")
	if p.metrics != nil {
		p.metrics.RecordError("device", "capture")
	}

	// Force the pipeline back to Idle unless a newer recording already replaced this one
	p.mu.Lock()
	if p.done == done {
		p.stopLocked()
	}
	p.mu.Unlock()

	if p.onError != nil {
		p.onError(err)
	}
}

func (p *Pipeline) forward(chunk Chunk) {
	if len(chunk.Data) == 0 {
		return
	}

	sent := p.link.Send(chunk.Data)
	if p.metrics != nil {
		p.metrics.RecordChunk(string(chunk.Encoding), len(chunk.Data), sent)
	}
	if !sent {
		p.logger.Debug().Uint64("seq", chunk.Seq).Msg("Chunk dropped, connection not open")
	}
}
