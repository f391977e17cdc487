package transcript

import (
	"strings"
	"sync"
)

// Placeholder is shown while nothing has been transcribed
const Placeholder = "Transcription will appear here..."

// Accumulator is an append-only transcript. Each message is added with a leading space.
type Accumulator struct {
	mu  sync.RWMutex
	buf strings.Builder
}

// NewAccumulator creates an empty transcript
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Append adds " " + text
func (a *Accumulator) Append(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.buf.WriteByte(' ')
	a.buf.WriteString(text)
}

// Current returns the transcript verbatim
func (a *Accumulator) Current() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.buf.String()
}

// Len returns the transcript length in bytes
func (a *Accumulator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.buf.Len()
}

// Display returns the transcript, or Placeholder when it is empty
func (a *Accumulator) Display() string {
	if text := a.Current(); text != "" {
		return text
	}
	return Placeholder
}
