// Package capturetest provides an in-memory microphone for capture tests.
package capturetest

import (
	"context"
	"sync"

	"github.com/lexiqai/live-transcriber/internal/capture"
)

type read struct {
	samples []float32
	err     error
}

// Microphone is a scripted capture.Microphone. Blocks pushed with Push are
// returned by the open stream's Read in order.
type Microphone struct {
	mu      sync.Mutex
	openErr error
	opens   int
	closes  int
	active  bool
	reads   chan read
}

// NewMicrophone creates a microphone that grants access
func NewMicrophone() *Microphone {
	return &Microphone{reads: make(chan read, 256)}
}

// Deny makes every Open fail with err
func (m *Microphone) Deny(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// Push queues blocks for Read
func (m *Microphone) Push(blocks ...[]float32) {
	for _, b := range blocks {
		m.reads <- read{samples: b}
	}
}

// Fail queues a read error
func (m *Microphone) Fail(err error) {
	m.reads <- read{err: err}
}

// Pending returns how many queued reads have not been consumed
func (m *Microphone) Pending() int {
	return len(m.reads)
}

// Opens returns how many times the device was acquired
func (m *Microphone) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// Closes returns how many times the device was released
func (m *Microphone) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Active reports whether the device is currently acquired
func (m *Microphone) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Open implements capture.Microphone
func (m *Microphone) Open(ctx context.Context) (capture.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openErr != nil {
		return nil, m.openErr
	}
	m.opens++
	m.active = true
	return &stream{mic: m}, nil
}

type stream struct {
	mic    *Microphone
	closed bool
}

func (s *stream) Read(ctx context.Context) ([]float32, error) {
	select {
	case r := <-s.mic.reads:
		return r.samples, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *stream) Close() error {
	s.mic.mu.Lock()
	defer s.mic.mu.Unlock()

	if !s.closed {
		s.closed = true
		s.mic.closes++
		s.mic.active = false
	}
	return nil
}

// Block returns n samples of value v
func Block(n int, v float32) []float32 {
	b := make([]float32, n)
	for i := range b {
		b[i] = v
	}
	return b
}
