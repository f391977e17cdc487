package capture

import (
	"context"
	"fmt"

	"github.com/lexiqai/live-transcriber/internal/audio"
)

// RecorderSource buffers 16-bit PCM and emits a WAV blob every timeslice.
// Whatever is buffered when the recording stops is emitted as a final, shorter blob.
type RecorderSource struct {
	handle     micHandle
	sampleRate int
	timeslice  int // samples per blob
	ring       *audio.SampleRing
	seq        uint64
}

// NewRecorderSource creates a recorder emitting one blob per timeslice samples
func NewRecorderSource(mic Microphone, sampleRate, timeslice int) *RecorderSource {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	if timeslice <= 0 {
		timeslice = audio.DefaultBlockSize
	}
	return &RecorderSource{
		handle:     micHandle{mic: mic},
		sampleRate: sampleRate,
		timeslice:  timeslice,
		// A full ring always holds at least one timeslice
		ring: audio.NewSampleRing(2*timeslice + 1),
	}
}

// Open acquires the microphone and resets the buffer
func (r *RecorderSource) Open(ctx context.Context) error {
	if err := r.handle.open(ctx); err != nil {
		return err
	}
	r.ring.Clear()
	r.seq = 0
	return nil
}

// Run records until ctx is done, then flushes the remainder
func (r *RecorderSource) Run(ctx context.Context, emit func(Chunk)) error {
	stream, err := r.handle.current()
	if err != nil {
		return err
	}

	for {
		samples, err := stream.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return r.sendBlob(emit, r.ring.Drain())
			}
			return fmt.Errorf("read microphone: %w", err)
		}

		pcm := audio.FloatToPCM16(samples)
		for len(pcm) > 0 {
			n := r.ring.Write(pcm)
			pcm = pcm[n:]
			for r.ring.Available() >= r.timeslice {
				samples := make([]int16, r.timeslice)
				if err := r.sendBlob(emit, samples[:r.ring.Read(samples)]); err != nil {
					return err
				}
			}
		}
	}
}

// sendBlob encodes samples as one WAV blob; nothing is emitted for an empty slice
func (r *RecorderSource) sendBlob(emit func(Chunk), samples []int16) error {
	if len(samples) == 0 {
		return nil
	}

	blob, err := audio.EncodeWAV(samples, r.sampleRate)
	if err != nil {
		return fmt.Errorf("encode recording: %w", err)
	}

	r.seq++
	emit(Chunk{
		Seq:      r.seq,
		Encoding: EncodingWAV,
		Data:     blob,
	})
	return nil
}

// Close releases the microphone
func (r *RecorderSource) Close() error {
	return r.handle.close()
}

// Encoding returns EncodingWAV
func (r *RecorderSource) Encoding() Encoding {
	return EncodingWAV
}
