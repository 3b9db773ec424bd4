// Package mqstats derives scalar statistics from arrays received on one
// topic and publishes each enabled statistic on a synthetic sub-topic
// (…/rms, …/mean, …/var, …/nrms, …/psd, …/snr, …/enob).
package mqstats

import (
	"math"
	"sync/atomic"
	"time"

	"plumcore-go/errcode"
	"plumcore-go/iface"
	"plumcore-go/types/ndarray"
	"plumcore-go/ulog"
)

const moduleName = "mq-stats"

// rxBufElems bounds one received array.
const rxBufElems = 1024

// Enable selects the computed statistics.
type Enable uint32

const (
	EnableRMS Enable = 1 << iota
	EnableMean
	EnableVar
	EnableNRMS
	EnablePSD
	EnableSNR
	EnableENOB
)

// Stats is the service instance.
type Stats struct {
	mq  iface.Mq
	mqc iface.MqClient

	topic     string
	enable    Enable
	fullScale float64
	bandwidth float64

	buf ndarray.Array

	canRun  atomic.Bool
	running atomic.Bool
	done    chan struct{}
}

// New binds a statistics node to the broker.
func New(mq iface.Mq) (*Stats, error) {
	if mq == nil {
		return nil, errcode.Null
	}
	return &Stats{mq: mq}, nil
}

// SetEnable selects the published statistics. May be changed live.
func (s *Stats) SetEnable(e Enable) { s.enable = e }

// SetFullScale configures the converter full scale used by SNR and ENOB.
func (s *Stats) SetFullScale(fs float64) { s.fullScale = fs }

// SetBandwidth configures the noise bandwidth used by PSD.
func (s *Stats) SetBandwidth(bw float64) { s.bandwidth = bw }

// samples widens the received array to float64 for the accumulators.
func samples(a *ndarray.Array) []float64 {
	switch a.DType() {
	case ndarray.I16:
		src := a.Int16s()
		out := make([]float64, len(src))
		for i, v := range src {
			out[i] = float64(v)
		}
		return out
	case ndarray.I32:
		src := a.Int32s()
		out := make([]float64, len(src))
		for i, v := range src {
			out[i] = float64(v)
		}
		return out
	case ndarray.Float32:
		src := a.Float32s()
		out := make([]float64, len(src))
		for i, v := range src {
			out[i] = float64(v)
		}
		return out
	}
	return nil
}

func mean(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

func rms(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func variance(x []float64) float64 {
	m := mean(x)
	sum := 0.0
	for _, v := range x {
		sum += (m - v) * (m - v)
	}
	return sum / float64(len(x))
}

func nrms(x []float64) float64 { return math.Sqrt(variance(x)) }

func psd(x []float64, bandwidth float64) float64 {
	return nrms(x) / math.Sqrt(bandwidth)
}

func snrDB(x []float64, fullScale float64) float64 {
	return 20.0 * math.Log10((fullScale/((fullScale/2.0)*math.Sqrt(fullScale/2.0)))/nrms(x))
}

func enob(x []float64, fullScale float64) float64 {
	return (snrDB(x, fullScale) - 1.76) / 6.02
}

func (s *Stats) publishFloat(topic string, v float64) {
	var a ndarray.Array
	if a.InitEmpty(ndarray.Float32, 1) != nil {
		return
	}
	a.AppendFloat32(float32(v))
	if err := s.mqc.Publish(topic, &a, time.Time{}); err != nil {
		ulog.Warnf(moduleName, "publish '%s': %v", topic, err)
	}
}

func (s *Stats) task() {
	defer close(s.done)
	s.running.Store(true)
	defer s.running.Store(false)

	for s.canRun.Load() {
		topic, _, err := s.mqc.Receive(&s.buf)
		if err != nil {
			continue
		}
		x := samples(&s.buf)
		if len(x) == 0 {
			continue
		}
		if s.enable&EnableRMS != 0 {
			s.publishFloat(topic+"/rms", rms(x))
		}
		if s.enable&EnableMean != 0 {
			s.publishFloat(topic+"/mean", mean(x))
		}
		if s.enable&EnableVar != 0 {
			s.publishFloat(topic+"/var", variance(x))
		}
		if s.enable&EnableNRMS != 0 {
			s.publishFloat(topic+"/nrms", nrms(x))
		}
		if s.enable&EnablePSD != 0 && s.bandwidth > 0 {
			s.publishFloat(topic+"/psd", psd(x, s.bandwidth))
		}
		if s.enable&EnableSNR != 0 && s.fullScale > 0 {
			s.publishFloat(topic+"/snr", snrDB(x, s.fullScale))
		}
		if s.enable&EnableENOB != 0 && s.fullScale > 0 {
			s.publishFloat(topic+"/enob", enob(x, s.fullScale))
		}
	}
}

// Start subscribes to topic and launches the node.
func (s *Stats) Start(topic string, dtype ndarray.DType, asize int) error {
	if topic == "" || asize <= 0 || asize > rxBufElems {
		return errcode.BadArg
	}
	if s.running.Load() {
		return errcode.Failed
	}
	s.topic = topic

	mqc, err := s.mq.Open()
	if err != nil {
		return err
	}
	s.mqc = mqc
	if err := s.mqc.Subscribe(topic); err != nil {
		_ = s.mqc.Close()
		return err
	}
	if err := s.buf.InitEmpty(dtype, asize); err != nil {
		_ = s.mqc.Close()
		return err
	}

	s.done = make(chan struct{})
	s.canRun.Store(true)
	go s.task()

	ulog.Infof(moduleName, "statistics on '%s'", topic)
	return nil
}

// Stop cooperatively terminates the node.
func (s *Stats) Stop() error {
	if s.mqc == nil {
		return errcode.NotOpened
	}
	s.canRun.Store(false)
	<-s.done
	err := s.mqc.Close()
	s.mqc = nil
	s.buf.Free()
	return err
}
