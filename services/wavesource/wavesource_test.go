package wavesource

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plumcore-go/services/plogrouter"
	"plumcore-go/types/ndarray"
)

// scriptedSource replays a fixed interleaved int16 recording.
type scriptedSource struct {
	channels int
	frames   [][]int16 // frames[i] holds one sample per channel
	pos      int
	started  bool
}

func (s *scriptedSource) Start() error { s.started = true; return nil }
func (s *scriptedSource) Stop() error  { s.started = false; return nil }

func (s *scriptedSource) Format() (ndarray.DType, int) { return ndarray.I16, s.channels }

func (s *scriptedSource) SampleRate() (float32, error) { return 25, nil }
func (s *scriptedSource) SetSampleRate(float32) error  { return nil }

func (s *scriptedSource) Read(buf []byte, maxSamples int) (int, error) {
	n := maxSamples
	if rem := len(s.frames) - s.pos; n > rem {
		n = rem
	}
	for i := 0; i < n; i++ {
		for c := 0; c < s.channels; c++ {
			binary.LittleEndian.PutUint16(buf[(i*s.channels+c)*2:], uint16(s.frames[s.pos+i][c]))
		}
	}
	s.pos += n
	return n, nil
}

func TestSplitterFansOutChannelZero(t *testing.T) {
	const (
		channels = 8
		total    = 640
		max      = 64
	)
	src := &scriptedSource{channels: channels}
	for i := 0; i < total; i++ {
		frame := make([]int16, channels)
		for c := range frame {
			frame[c] = int16(i*channels + c)
		}
		src.frames = append(src.frames, frame)
	}

	r := plogrouter.New()
	s, err := New(src, r)
	require.NoError(t, err)
	require.NoError(t, s.SetReadPeriod(time.Millisecond))
	require.NoError(t, s.AddChannel(0, "acc/x", max))

	sub, err := r.Open()
	require.NoError(t, err)
	require.NoError(t, sub.Subscribe("acc/x"))
	require.NoError(t, sub.SetTimeout(2*time.Second))

	type pub struct{ vals []int16 }
	got := make(chan pub, total/max+1)
	go func() {
		defer close(got)
		for i := 0; i < total/max; i++ {
			var rx ndarray.Array
			if rx.InitEmpty(ndarray.I16, max) != nil {
				return
			}
			topic, _, err := sub.Receive(&rx)
			if err != nil || topic != "acc/x" {
				return
			}
			got <- pub{vals: append([]int16(nil), rx.Int16s()...)}
		}
	}()

	require.NoError(t, s.Start())
	defer func() { require.NoError(t, s.Stop()) }()

	for k := 0; k < total/max; k++ {
		select {
		case p, ok := <-got:
			require.True(t, ok, "publication %d missing", k)
			require.Len(t, p.vals, max)
			for i, v := range p.vals {
				// Channel 0 of interleaved frame k*64+i.
				assert.Equal(t, int16((k*max+i)*channels), v,
					"publication %d sample %d", k, i)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for publication %d", k)
		}
	}

	// The source is exhausted: no further publications arrive.
	select {
	case p, ok := <-got:
		if ok {
			t.Fatalf("unexpected extra publication: %v", p.vals)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSplitterStartValidation(t *testing.T) {
	src := &scriptedSource{channels: 2}
	r := plogrouter.New()
	s, err := New(src, r)
	require.NoError(t, err)

	// No channels configured.
	assert.Error(t, s.Start())

	// Channel index beyond the source channel count.
	require.NoError(t, s.AddChannel(5, "t", 4))
	assert.Error(t, s.Start())
}
