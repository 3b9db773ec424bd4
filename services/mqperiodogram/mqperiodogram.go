// Package mqperiodogram estimates a power spectral density with the Welch
// method: arrays received on one topic slide through an N-sample FIFO, each
// update runs a windowed N-point real FFT, squared magnitudes accumulate
// over a configured number of passes, and the square-rooted accumulator is
// published as an N/2-bin vector.
package mqperiodogram

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/dsp/fourier"

	"plumcore-go/errcode"
	"plumcore-go/iface"
	"plumcore-go/types/ndarray"
	"plumcore-go/ulog"
	"plumcore-go/x/mathx"
)

const moduleName = "mq-periodogram"

// maxInputElems bounds one received array.
const maxInputElems = 256

// Window selects the FFT windowing function.
type Window int

const (
	WindowNone Window = iota
	WindowHamming
)

func (w Window) String() string {
	if w == WindowHamming {
		return "hamming"
	}
	return "none"
}

func windowCoef(i, n int, w Window) float64 {
	if w == WindowHamming {
		return 0.54 - 0.46*math.Cos(2.0*math.Pi*float64(i)/(float64(n)-1.0))
	}
	return 1.0
}

// Periodogram is the service instance.
type Periodogram struct {
	mq  iface.Mq
	mqc iface.MqClient

	pubTopic string
	window   Window
	period   uint32

	fifo        ndarray.Array
	rxbuf       ndarray.Array
	periodogram ndarray.Array
	passes      uint32

	fft  *fourier.FFT
	tmp  []float64
	coef []complex128

	canRun  atomic.Bool
	running atomic.Bool
	done    chan struct{}
}

// New binds a periodogram node to the broker.
func New(mq iface.Mq) (*Periodogram, error) {
	if mq == nil {
		return nil, errcode.Null
	}
	return &Periodogram{mq: mq, period: 1}, nil
}

// SetPeriod configures how many FFT passes accumulate into one publication.
// May be updated live.
func (p *Periodogram) SetPeriod(period uint32) error {
	if period == 0 {
		return errcode.BadArg
	}
	p.period = period
	return nil
}

// SetWindow selects the windowing function. Must be set before Start.
func (p *Periodogram) SetWindow(w Window) { p.window = w }

// toFloat converts one FIFO sample to float64.
func toFloat(a *ndarray.Array, i int) float64 {
	switch a.DType() {
	case ndarray.I16:
		return float64(a.Int16s()[i])
	case ndarray.Float32:
		return float64(a.Float32s()[i])
	}
	return 0
}

// update runs one windowed FFT over the FIFO and accumulates squared
// magnitudes into the periodogram.
func (p *Periodogram) update() {
	n := p.fifo.Len()
	for i := 0; i < n; i++ {
		p.tmp[i] = toFloat(&p.fifo, i) * windowCoef(i, n, p.window)
	}
	p.coef = p.fft.Coefficients(p.coef, p.tmp)

	acc := p.periodogram.Float32s()
	for i := range acc {
		re := real(p.coef[i])
		im := imag(p.coef[i])
		acc[i] += float32(re*re + im*im)
	}
	p.passes++
}

func (p *Periodogram) task() {
	defer close(p.done)
	p.running.Store(true)
	defer p.running.Store(false)

	for p.canRun.Load() {
		_, ts, err := p.mqc.Receive(&p.rxbuf)
		if err != nil {
			continue
		}
		if p.rxbuf.DType() != p.fifo.DType() {
			// Message with an array of the wrong type.
			continue
		}
		m := p.rxbuf.Len()
		if m > p.fifo.Len() {
			// Message is bigger than the FIFO itself.
			continue
		}
		// Shift the FIFO and append the new data.
		if err := p.fifo.Move(0, m, p.fifo.Len()-m); err != nil {
			continue
		}
		if err := p.fifo.CopyFrom(p.fifo.Len()-m, &p.rxbuf, 0, m); err != nil {
			continue
		}

		p.update()

		if p.passes >= p.period {
			if err := p.periodogram.Sqrt(); err == nil {
				if err := p.mqc.Publish(p.pubTopic, &p.periodogram, ts); err != nil {
					ulog.Warnf(moduleName, "publish '%s': %v", p.pubTopic, err)
				}
			}
			p.periodogram.Zero()
			p.passes = 0
		}
	}
}

// Start subscribes to subTopic and publishes asize/2-bin periodograms of
// asize-sample FFTs on pubTopic. asize must be a power of two.
func (p *Periodogram) Start(subTopic, pubTopic string, dtype ndarray.DType, asize int) error {
	if subTopic == "" || pubTopic == "" || asize <= 0 || !mathx.IsPow2(uint(asize)) {
		return errcode.BadArg
	}
	if dtype != ndarray.I16 && dtype != ndarray.Float32 {
		return errcode.BadArg
	}
	if p.running.Load() {
		return errcode.Failed
	}
	p.pubTopic = pubTopic

	mqc, err := p.mq.Open()
	if err != nil {
		return err
	}
	p.mqc = mqc
	if err := p.mqc.Subscribe(subTopic); err != nil {
		_ = p.mqc.Close()
		return err
	}

	// Working buffers, reused while the instance is running.
	if err := p.rxbuf.InitZero(dtype, mathx.Min(maxInputElems, asize)); err != nil {
		return err
	}
	if err := p.fifo.InitZero(dtype, asize); err != nil {
		return err
	}
	if err := p.periodogram.InitZero(ndarray.Float32, asize/2); err != nil {
		return err
	}
	p.fft = fourier.NewFFT(asize)
	p.tmp = make([]float64, asize)
	p.coef = make([]complex128, asize/2+1)
	p.passes = 0

	p.done = make(chan struct{})
	p.canRun.Store(true)
	go p.task()

	ulog.Infof(moduleName, "'%s' -> '%s', periodogram size = %d, window = %s, period = %d",
		subTopic, pubTopic, asize, p.window, p.period)
	return nil
}

// Stop cooperatively terminates the node and frees the working buffers.
func (p *Periodogram) Stop() error {
	if p.mqc == nil {
		return errcode.NotOpened
	}
	p.canRun.Store(false)
	<-p.done

	err := p.mqc.Close()
	p.mqc = nil
	p.rxbuf.Free()
	p.fifo.Free()
	p.periodogram.Free()
	return err
}
