package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/lexiqai/live-transcriber/internal/audio"
)

// PortAudioMicrophone opens the system default input device, mono
type PortAudioMicrophone struct {
	SampleRate      int
	FramesPerBuffer int
}

// NewPortAudioMicrophone creates a default-input microphone
func NewPortAudioMicrophone(sampleRate, framesPerBuffer int) *PortAudioMicrophone {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	if framesPerBuffer <= 0 {
		framesPerBuffer = audio.DefaultBlockSize
	}
	return &PortAudioMicrophone{
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}
}

// Open initializes PortAudio and starts the default input stream
func (m *PortAudioMicrophone) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	buf := make([]float32, m.FramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.SampleRate), len(buf), buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open default input: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}

	return &portAudioStream{stream: stream, buf: buf}, nil
}

type portAudioStream struct {
	stream    *portaudio.Stream
	buf       []float32
	closeOnce sync.Once
	closeErr  error
}

func (s *portAudioStream) Read(ctx context.Context) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.stream.Read(); err != nil {
		// An overflow still fills the buffer; samples were lost before it
		if !errors.Is(err, portaudio.InputOverflowed) {
			return nil, err
		}
	}

	out := make([]float32, len(s.buf))
	copy(out, s.buf)
	return out, nil
}

func (s *portAudioStream) Close() error {
	s.closeOnce.Do(func() {
		stopErr := s.stream.Stop()
		closeErr := s.stream.Close()
		termErr := portaudio.Terminate()
		s.closeErr = errors.Join(stopErr, closeErr, termErr)
	})
	return s.closeErr
}
