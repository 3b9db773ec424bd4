package mqsensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plumcore-go/services/plogrouter"
	"plumcore-go/types/ndarray"
)

type fixedSensor struct{ v float32 }

func (f *fixedSensor) ValueF() (float32, error) { return f.v, nil }

type fixedClock struct{ t time.Time }

func (f *fixedClock) Get() (time.Time, error) { return f.t, nil }
func (f *fixedClock) Set(time.Time) error     { return nil }

func TestPeriodicPublication(t *testing.T) {
	r := plogrouter.New()
	clk := &fixedClock{t: time.Unix(1700000000, 0)}
	src, err := New(&fixedSensor{v: 21.5}, "env/temp", r, clk, 2*time.Millisecond)
	require.NoError(t, err)

	sub, err := r.Open()
	require.NoError(t, err)
	require.NoError(t, sub.Subscribe("env/temp"))
	require.NoError(t, sub.SetTimeout(2*time.Second))

	require.NoError(t, src.Start())
	defer func() { require.NoError(t, src.Stop()) }()

	var rx ndarray.Array
	require.NoError(t, rx.InitEmpty(ndarray.Float32, 1))
	topic, ts, err := sub.Receive(&rx)
	require.NoError(t, err)
	assert.Equal(t, "env/temp", topic)
	assert.Equal(t, clk.t, ts)
	require.Equal(t, 1, rx.Len())
	assert.InDelta(t, 21.5, float64(rx.Float32s()[0]), 1e-6)
}

func TestNewValidation(t *testing.T) {
	r := plogrouter.New()
	_, err := New(nil, "t", r, nil, time.Second)
	assert.Error(t, err)
	_, err = New(&fixedSensor{}, "", r, nil, time.Second)
	assert.Error(t, err)
	_, err = New(&fixedSensor{}, "t", r, nil, 0)
	assert.Error(t, err)
}
