package capture

import (
	"context"
	"fmt"

	"github.com/lexiqai/live-transcriber/internal/audio"
)

// SampleSource emits fixed-size blocks of raw float32 samples, little-endian
type SampleSource struct {
	handle    micHandle
	blockSize int
	pending   []float32
	seq       uint64
}

// NewSampleSource creates a raw-sample source emitting blockSize samples per chunk
func NewSampleSource(mic Microphone, blockSize int) *SampleSource {
	if blockSize <= 0 {
		blockSize = audio.DefaultBlockSize
	}
	return &SampleSource{
		handle:    micHandle{mic: mic},
		blockSize: blockSize,
	}
}

// Open acquires the microphone and resets the sequence
func (s *SampleSource) Open(ctx context.Context) error {
	if err := s.handle.open(ctx); err != nil {
		return err
	}
	s.pending = s.pending[:0]
	s.seq = 0
	return nil
}

// Run emits one chunk per full block. A partial block left at stop is discarded.
func (s *SampleSource) Run(ctx context.Context, emit func(Chunk)) error {
	stream, err := s.handle.current()
	if err != nil {
		return err
	}

	for {
		samples, err := stream.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read microphone: %w", err)
		}

		s.pending = append(s.pending, samples...)
		for len(s.pending) >= s.blockSize {
			block := s.pending[:s.blockSize]
			s.seq++
			emit(Chunk{
				Seq:      s.seq,
				Encoding: EncodingFloat32LE,
				Data:     audio.EncodeFloat32LE(block),
			})
			s.pending = append(s.pending[:0], s.pending[s.blockSize:]...)
		}
	}
}

// Close releases the microphone
func (s *SampleSource) Close() error {
	return s.handle.close()
}

// Encoding returns EncodingFloat32LE
func (s *SampleSource) Encoding() Encoding {
	return EncodingFloat32LE
}
