package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lexiqai/live-transcriber/internal/capture"
	"github.com/lexiqai/live-transcriber/internal/config"
	"github.com/lexiqai/live-transcriber/internal/connection"
	"github.com/lexiqai/live-transcriber/internal/observability"
	"github.com/lexiqai/live-transcriber/internal/transcript"
)

// Session is one live-transcription screen: a connection, a capture pipeline and a transcript.
// All resources are created by New and released by Teardown.
type Session struct {
	id         string
	endpoint   string
	logger     zerolog.Logger
	notifier   Notifier
	metrics    *observability.Metrics
	conn       *connection.Manager
	pipeline   *capture.Pipeline
	transcript *transcript.Accumulator

	mu       sync.Mutex
	displays []func(string)

	teardownOnce sync.Once
	teardownErr  error
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the base logger; the session ID is added to it
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithNotifier sets where user-facing errors go
func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// NewAudioSource builds the capture variant named by kind
func NewAudioSource(kind string, mic capture.Microphone, sampleRate, chunkSize int) (capture.AudioSource, error) {
	switch kind {
	case config.SourceSamples:
		return capture.NewSampleSource(mic, chunkSize), nil
	case config.SourceRecorder:
		return capture.NewRecorderSource(mic, sampleRate, chunkSize), nil
	default:
		return nil, fmt.Errorf("unknown audio source %q", kind)
	}
}

// New builds a session. Nothing touches the network or the microphone until Mount and Toggle.
func New(cfg *config.Config, mic capture.Microphone, opts ...Option) (*Session, error) {
	s := &Session{
		id:         observability.NewSessionID(),
		endpoint:   cfg.Endpoint,
		logger:     zerolog.Nop(),
		notifier:   NotifierFunc(func(error) {}),
		transcript: transcript.NewAccumulator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = observability.WithSessionID(s.logger, s.id)
	s.metrics = observability.NewSessionMetrics()

	source, err := NewAudioSource(cfg.Source, mic, cfg.SampleRate, cfg.ChunkSize)
	if err != nil {
		return nil, err
	}

	s.conn = connection.NewManager(
		connection.WithLogger(s.logger.With().Str("component", "connection").Logger()),
		connection.WithMetrics(s.metrics),
		connection.WithErrorHandler(s.notifier.Notify),
	)
	s.conn.OnMessage(s.handleMessage)

	s.pipeline = capture.NewPipeline(source, s.conn,
		capture.WithLogger(s.logger.With().Str("component", "capture").Logger()),
		capture.WithMetrics(s.metrics),
		capture.WithErrorHandler(s.notifier.Notify),
	)

	return s, nil
}

// ID returns the session ID
func (s *Session) ID() string {
	return s.id
}

// Mount opens the connection. A failure has already been notified and leaves capture gated off.
func (s *Session) Mount(ctx context.Context) error {
	if err := s.conn.Connect(ctx, s.endpoint); err != nil {
		s.logger.Warn().Err(err).Msg("Session mounted without a connection")
		return err
	}
	return nil
}

// Toggle starts capture when idle and stops it when recording.
// Errors are notified and returned; the capture state is unchanged on error.
func (s *Session) Toggle(ctx context.Context) error {
	var err error
	if s.pipeline.State() == capture.StateRecording {
		err = s.pipeline.Stop()
	} else {
		err = s.pipeline.Start(ctx)
		if errors.Is(err, capture.ErrNotConnected) {
			s.metrics.RecordError("not_connected", "capture")
		}
	}

	if err != nil {
		s.notifier.Notify(err)
	}
	return err
}

// OnTranscript registers a display hook called with the full transcript after each message
func (s *Session) OnTranscript(fn func(text string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displays = append(s.displays, fn)
}

// Display returns the transcript, or the placeholder while nothing has arrived
func (s *Session) Display() string {
	return s.transcript.Display()
}

// Transcript returns the transcript verbatim
func (s *Session) Transcript() string {
	return s.transcript.Current()
}

// ConnectionState returns the connection state
func (s *Session) ConnectionState() connection.State {
	return s.conn.State()
}

// CaptureState returns the capture state
func (s *Session) CaptureState() capture.State {
	return s.pipeline.State()
}

// Connected reports whether the connection is Open
func (s *Session) Connected() bool {
	return s.conn.Connected()
}

// Teardown stops capture and closes the connection. It is idempotent.
func (s *Session) Teardown() error {
	s.teardownOnce.Do(func() {
		// Closing first unblocks a producer stuck writing to a stalled endpoint
		closeErr := s.conn.Close()
		stopErr := s.pipeline.Stop()
		s.teardownErr = errors.Join(stopErr, closeErr)
		s.logger.Info().Msg("Session torn down")
	})
	return s.teardownErr
}

func (s *Session) handleMessage(text string) {
	s.transcript.Append(text)
	s.logger.Debug().
		Str("text", text).
		Int("transcript_len", s.transcript.Len()).
		Msg("Transcript message received")

	current := s.transcript.Current()
	s.mu.Lock()
	displays := append(([]func(string))(nil), s.displays...)
	s.mu.Unlock()

	for _, fn := range displays {
		fn(current)
	}
}
