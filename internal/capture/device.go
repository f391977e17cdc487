package capture

import (
	"context"
	"errors"
	"sync"
)

var errNotOpen = errors.New("capture: microphone not open")

// micHandle is the scoped microphone acquisition shared by both sources
type micHandle struct {
	mic    Microphone
	mu     sync.Mutex
	stream Stream
}

func (h *micHandle) open(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stream != nil {
		return nil
	}
	stream, err := h.mic.Open(ctx)
	if err != nil {
		return err
	}
	h.stream = stream
	return nil
}

func (h *micHandle) current() (Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stream == nil {
		return nil, errNotOpen
	}
	return h.stream, nil
}

func (h *micHandle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stream == nil {
		return nil
	}
	err := h.stream.Close()
	h.stream = nil
	return err
}
