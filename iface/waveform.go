package iface

import "plumcore-go/types/ndarray"

// WaveformSource produces interleaved multi-channel samples at a native
// dtype and sample rate. Read fills buf with up to maxSamples interleaved
// sample frames (one frame = one sample per channel) and returns the number
// of frames actually read, which may be zero.
type WaveformSource interface {
	Start() error
	Stop() error
	Read(buf []byte, maxSamples int) (int, error)
	// Format returns the sample dtype and the channel count.
	Format() (ndarray.DType, int)
	SampleRate() (float32, error)
	SetSampleRate(hz float32) error
}
