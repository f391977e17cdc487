package capture

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected is returned by Start while the connection is not Open
	ErrNotConnected = errors.New("capture: connection is not open")

	// ErrPermissionDenied is returned by Start when the microphone cannot be acquired
	ErrPermissionDenied = errors.New("capture: microphone access denied")
)

// State is the capture state of a Pipeline
type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	if s == StateRecording {
		return "recording"
	}
	return "idle"
}

// Encoding identifies the wire shape of a chunk
type Encoding string

const (
	EncodingWAV       Encoding = "wav"   // self-contained WAV blob
	EncodingFloat32LE Encoding = "f32le" // raw little-endian float32 samples
)

// Chunk is one unit of outbound audio. Seq starts at 1 for each recording.
type Chunk struct {
	Seq      uint64
	Encoding Encoding
	Data     []byte
}

// Link is the outbound side of the connection as the pipeline sees it
type Link interface {
	// Connected reports whether the connection is Open
	Connected() bool

	// Send transmits data, silently dropping it unless the connection is Open
	Send(data []byte) bool
}

// Microphone acquires an input device
type Microphone interface {
	// Open acquires the device; failure means access was denied or no device exists
	Open(ctx context.Context) (Stream, error)
}

// Stream is an acquired microphone
type Stream interface {
	// Read blocks until the next block of normalized samples is available
	Read(ctx context.Context) ([]float32, error)

	// Close releases the device
	Close() error
}

// AudioSource turns microphone input into chunks
type AudioSource interface {
	// Open acquires the microphone
	Open(ctx context.Context) error

	// Run produces chunks until ctx is done or the device fails
	Run(ctx context.Context, emit func(Chunk)) error

	// Close releases the microphone; safe to call when not open
	Close() error

	// Encoding reports the shape of produced chunks
	Encoding() Encoding
}
