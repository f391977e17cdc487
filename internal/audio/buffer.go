package audio

import (
	"sync"
)

// SampleRing is a thread-safe ring buffer of 16-bit PCM samples
type SampleRing struct {
	buffer []int16
	size   int
	read   int
	write  int
	mu     sync.RWMutex
}

// NewSampleRing creates a ring buffer that holds up to size-1 samples
func NewSampleRing(size int) *SampleRing {
	if size < 2 {
		size = 2
	}
	return &SampleRing{
		buffer: make([]int16, size),
		size:   size,
	}
}

// Write appends samples to the ring buffer
// Returns the number of samples written (may be less than len(samples) if the buffer is full)
func (rb *SampleRing) Write(samples []int16) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for _, s := range samples {
		if (rb.write+1)%rb.size == rb.read {
			break // Buffer full
		}

		rb.buffer[rb.write] = s
		rb.write = (rb.write + 1) % rb.size
		written++
	}

	return written
}

// Read drains up to len(dst) samples into dst and returns how many were copied
func (rb *SampleRing) Read(dst []int16) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	read := 0
	for read < len(dst) && rb.read != rb.write {
		dst[read] = rb.buffer[rb.read]
		rb.read = (rb.read + 1) % rb.size
		read++
	}

	return read
}

// Drain removes and returns every buffered sample
func (rb *SampleRing) Drain() []int16 {
	out := make([]int16, rb.Available())
	n := rb.Read(out)
	return out[:n]
}

// Available returns the number of samples available to read
func (rb *SampleRing) Available() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.available()
}

func (rb *SampleRing) available() int {
	if rb.write >= rb.read {
		return rb.write - rb.read
	}
	return rb.size - rb.read + rb.write
}

// Clear discards everything in the buffer
func (rb *SampleRing) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.read = 0
	rb.write = 0
}
