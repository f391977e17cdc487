package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

const (
	// DefaultSampleRate is the capture rate the transcription endpoint expects
	DefaultSampleRate = 16000

	// DefaultBlockSize is the number of samples in one raw block
	DefaultBlockSize = 1024
)

// Cadence returns the time covered by one block of blockSize samples at sampleRate.
// 1024 samples at 16kHz is 64ms.
func Cadence(sampleRate, blockSize int) time.Duration {
	if sampleRate <= 0 || blockSize <= 0 {
		return 0
	}
	return time.Duration(blockSize) * time.Second / time.Duration(sampleRate)
}

// FloatToPCM16 converts normalized float samples ([-1, 1]) to 16-bit signed PCM.
// Out-of-range input is clipped.
func FloatToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		// Clip
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}

		if s < 0 {
			out[i] = int16(s * 32768)
		} else {
			out[i] = int16(s * 32767)
		}
	}
	return out
}

// EncodeFloat32LE packs samples as consecutive little-endian IEEE-754 float32 values
func EncodeFloat32LE(samples []float32) []byte {
	data := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(s))
	}
	return data
}

// DecodeFloat32LE is the inverse of EncodeFloat32LE
func DecodeFloat32LE(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("float32 data length must be a multiple of 4, got %d", len(data))
	}

	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples, nil
}
