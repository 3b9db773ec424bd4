// Package simwave is a synthetic waveform source: every channel carries a
// sine tone of configurable frequency and amplitude, sampled at the nominal
// rate in int16. It stands in for an acquisition front end on boards and
// hosts without one.
package simwave

import (
	"encoding/binary"
	"math"
	"sync"

	"plumcore-go/errcode"
	"plumcore-go/types/ndarray"
)

// Tone describes one channel of the generator.
type Tone struct {
	FreqHz    float64
	Amplitude float64 // in counts, <= 32767
}

// Source is the generator instance.
type Source struct {
	mu         sync.Mutex
	tones      []Tone
	sampleRate float32
	phase      uint64
	running    bool
}

// New creates a generator with one tone per channel.
func New(sampleRate float32, tones []Tone) (*Source, error) {
	if sampleRate <= 0 || len(tones) == 0 {
		return nil, errcode.BadArg
	}
	return &Source{tones: tones, sampleRate: sampleRate}, nil
}

func (s *Source) Start() error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

// Format reports int16 samples, one per configured tone.
func (s *Source) Format() (ndarray.DType, int) { return ndarray.I16, len(s.tones) }

func (s *Source) SampleRate() (float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleRate, nil
}

func (s *Source) SetSampleRate(hz float32) error {
	if hz <= 0 {
		return errcode.BadArg
	}
	s.mu.Lock()
	s.sampleRate = hz
	s.mu.Unlock()
	return nil
}

// Read synthesises maxSamples interleaved frames into buf.
func (s *Source) Read(buf []byte, maxSamples int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0, errcode.NotOpened
	}
	nchan := len(s.tones)
	if len(buf) < maxSamples*nchan*2 {
		return 0, errcode.BadArg
	}
	for i := 0; i < maxSamples; i++ {
		t := float64(s.phase) / float64(s.sampleRate)
		for c, tone := range s.tones {
			v := tone.Amplitude * math.Sin(2*math.Pi*tone.FreqHz*t)
			binary.LittleEndian.PutUint16(buf[(i*nchan+c)*2:], uint16(int16(v)))
		}
		s.phase++
	}
	return maxSamples, nil
}
