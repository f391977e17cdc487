package capture_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lexiqai/live-transcriber/internal/audio"
	"github.com/lexiqai/live-transcriber/internal/capture"
	"github.com/lexiqai/live-transcriber/internal/capture/capturetest"
)

// fakeLink records every Send attempt and keeps the ones made while connected
type fakeLink struct {
	mu        sync.Mutex
	connected bool
	sent      [][]byte
	attempts  chan []byte
}

func newFakeLink(connected bool) *fakeLink {
	return &fakeLink{connected: connected, attempts: make(chan []byte, 64)}
}

func (l *fakeLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *fakeLink) SetConnected(connected bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = connected
}

func (l *fakeLink) Send(data []byte) bool {
	l.mu.Lock()
	ok := l.connected
	if ok {
		l.sent = append(l.sent, data)
	}
	l.mu.Unlock()

	l.attempts <- data
	return ok
}

func (l *fakeLink) Sent() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]byte(nil), l.sent...)
}

func (l *fakeLink) waitAttempts(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-l.attempts:
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for send attempt %d of %d", i+1, n)
		}
	}
}

func TestPipeline_StartRequiresConnection(t *testing.T) {
	mic := capturetest.NewMicrophone()
	p := capture.NewPipeline(capture.NewSampleSource(mic, 4), newFakeLink(false))

	err := p.Start(context.Background())
	if !errors.Is(err, capture.ErrNotConnected) {
		t.Fatalf("Expected ErrNotConnected, got %v", err)
	}
	if mic.Opens() != 0 {
		t.Errorf("Expected microphone untouched, got %d opens", mic.Opens())
	}
	if p.State() != capture.StateIdle {
		t.Errorf("Expected idle, got %s", p.State())
	}
}

func TestPipeline_PermissionDenied(t *testing.T) {
	mic := capturetest.NewMicrophone()
	denied := errors.New("NotAllowedError: permission denied")
	mic.Deny(denied)

	p := capture.NewPipeline(capture.NewSampleSource(mic, 4), newFakeLink(true))

	err := p.Start(context.Background())
	if !errors.Is(err, capture.ErrPermissionDenied) {
		t.Fatalf("Expected ErrPermissionDenied, got %v", err)
	}
	if !errors.Is(err, denied) {
		t.Errorf("Expected device error to be wrapped, got %v", err)
	}
	if p.State() != capture.StateIdle {
		t.Errorf("Expected idle after denial, got %s", p.State())
	}
}

func TestPipeline_ForwardsChunksInOrder(t *testing.T) {
	mic := capturetest.NewMicrophone()
	link := newFakeLink(true)
	p := capture.NewPipeline(capture.NewSampleSource(mic, 4), link)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if p.State() != capture.StateRecording {
		t.Fatalf("Expected recording, got %s", p.State())
	}
	if !mic.Active() {
		t.Error("Expected microphone acquired while recording")
	}

	mic.Push(capturetest.Block(4, 0.1), capturetest.Block(4, 0.2), capturetest.Block(4, 0.3))
	link.waitAttempts(t, 3)

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	sent := link.Sent()
	if len(sent) != 3 {
		t.Fatalf("Expected 3 chunks sent, got %d", len(sent))
	}
	for i, want := range []float32{0.1, 0.2, 0.3} {
		samples, err := audio.DecodeFloat32LE(sent[i])
		if err != nil {
			t.Fatalf("Chunk %d: %v", i, err)
		}
		if len(samples) != 4 || samples[0] != want {
			t.Errorf("Chunk %d: expected 4 samples of %v, got %v", i, want, samples)
		}
	}
	if mic.Active() {
		t.Error("Expected microphone released after Stop")
	}
}

func TestPipeline_DropsChunksAfterDisconnect(t *testing.T) {
	mic := capturetest.NewMicrophone()
	link := newFakeLink(true)
	errs := make(chan error, 1)
	p := capture.NewPipeline(capture.NewSampleSource(mic, 4), link,
		capture.WithErrorHandler(func(err error) { errs <- err }))

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	mic.Push(capturetest.Block(4, 0.1), capturetest.Block(4, 0.2), capturetest.Block(4, 0.3))
	link.waitAttempts(t, 3)

	link.SetConnected(false)
	mic.Push(capturetest.Block(4, 0.4), capturetest.Block(4, 0.5))
	link.waitAttempts(t, 2)

	if p.State() != capture.StateRecording {
		t.Errorf("Expected still recording after disconnect, got %s", p.State())
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := len(link.Sent()); got != 3 {
		t.Errorf("Expected 3 chunks delivered, got %d", got)
	}
	select {
	case err := <-errs:
		t.Errorf("Expected no error for dropped chunks, got %v", err)
	default:
	}
}

func TestPipeline_StopIdempotent(t *testing.T) {
	mic := capturetest.NewMicrophone()
	p := capture.NewPipeline(capture.NewSampleSource(mic, 4), newFakeLink(true))

	if err := p.Stop(); err != nil {
		t.Errorf("Stop on idle pipeline failed: %v", err)
	}

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("First Stop failed: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Second Stop failed: %v", err)
	}

	if p.State() != capture.StateIdle {
		t.Errorf("Expected idle, got %s", p.State())
	}
	if mic.Closes() != 1 {
		t.Errorf("Expected exactly 1 release, got %d", mic.Closes())
	}
}

func TestPipeline_StartWhileRecording(t *testing.T) {
	mic := capturetest.NewMicrophone()
	p := capture.NewPipeline(capture.NewSampleSource(mic, 4), newFakeLink(true))
	defer p.Stop()

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}
	if mic.Opens() != 1 {
		t.Errorf("Expected 1 acquisition, got %d", mic.Opens())
	}
}

func TestPipeline_RestartAfterStop(t *testing.T) {
	mic := capturetest.NewMicrophone()
	link := newFakeLink(true)
	p := capture.NewPipeline(capture.NewSampleSource(mic, 4), link)

	for i := 0; i < 2; i++ {
		if err := p.Start(context.Background()); err != nil {
			t.Fatalf("Start %d failed: %v", i, err)
		}
		mic.Push(capturetest.Block(4, 0.5))
		link.waitAttempts(t, 1)
		if err := p.Stop(); err != nil {
			t.Fatalf("Stop %d failed: %v", i, err)
		}
	}

	if mic.Opens() != 2 || mic.Closes() != 2 {
		t.Errorf("Expected 2 opens and 2 closes, got %d and %d", mic.Opens(), mic.Closes())
	}
}

func TestPipeline_DeviceFailureStopsRecording(t *testing.T) {
	mic := capturetest.NewMicrophone()
	errs := make(chan error, 1)
	p := capture.NewPipeline(capture.NewSampleSource(mic, 4), newFakeLink(true),
		capture.WithErrorHandler(func(err error) { errs <- err }))

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deviceErr := errors.New("device unplugged")
	mic.Fail(deviceErr)

	select {
	case err := <-errs:
		if !errors.Is(err, deviceErr) {
			t.Errorf("Expected device error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for device error")
	}

	if p.State() != capture.StateIdle {
		t.Errorf("Expected idle after device failure, got %s", p.State())
	}
	if mic.Active() {
		t.Error("Expected microphone released after device failure")
	}
}

func TestPipeline_StartContextDoesNotBoundRecording(t *testing.T) {
	mic := capturetest.NewMicrophone()
	link := newFakeLink(true)
	p := capture.NewPipeline(capture.NewSampleSource(mic, 4), link)
	defer p.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()

	mic.Push(capturetest.Block(4, 0.1))
	link.waitAttempts(t, 1)

	if p.State() != capture.StateRecording {
		t.Errorf("Expected still recording, got %s", p.State())
	}
}

func TestState_String(t *testing.T) {
	if capture.StateIdle.String() != "idle" {
		t.Errorf("Expected 'idle', got %q", capture.StateIdle.String())
	}
	if capture.StateRecording.String() != "recording" {
		t.Errorf("Expected 'recording', got %q", capture.StateRecording.String())
	}
}
