// Package wavesource bridges a waveform source producing interleaved
// multi-channel samples to a set of per-channel message queue topics. Each
// configured channel accumulates its de-interleaved samples in a bounded
// buffer; a full buffer is published as one ndarray and reset.
package wavesource

import (
	"sync/atomic"
	"time"

	"plumcore-go/errcode"
	"plumcore-go/iface"
	"plumcore-go/types/ndarray"
	"plumcore-go/ulog"
	"plumcore-go/x/mathx"
)

const moduleName = "mq-ws-source"

// rxBufSamples bounds the number of interleaved sample frames read from the
// source in one pass.
const rxBufSamples = 256

// DefaultReadPeriod is the task poll period when none is configured.
const DefaultReadPeriod = 10 * time.Millisecond

type channel struct {
	idx     int
	topic   string
	max     int
	buf     []byte
	samples int
}

// Splitter is the service instance.
type Splitter struct {
	source iface.WaveformSource
	mq     iface.Mq
	mqc    iface.MqClient
	clock  iface.Clock

	readPeriod time.Duration
	channels   []*channel

	dtype  ndarray.DType
	nchan  int
	dsize  int
	rxbuf  []byte

	canRun  atomic.Bool
	running atomic.Bool
	done    chan struct{}
}

// New binds a splitter to its waveform source and broker.
func New(source iface.WaveformSource, mq iface.Mq) (*Splitter, error) {
	if source == nil || mq == nil {
		return nil, errcode.Null
	}
	s := &Splitter{
		source:     source,
		mq:         mq,
		readPeriod: DefaultReadPeriod,
	}
	ulog.Infof(moduleName, "initialized")
	return s, nil
}

// SetClock installs an optional timestamp clock. Publications carry a zero
// timestamp without one.
func (s *Splitter) SetClock(c iface.Clock) { s.clock = c }

// SetReadPeriod adjusts the poll period. Must be called before Start.
func (s *Splitter) SetReadPeriod(d time.Duration) error {
	if d <= 0 {
		return errcode.BadArg
	}
	s.readPeriod = d
	return nil
}

// AddChannel routes one interleaved channel to a topic. maxSamples fixes the
// publication size. Must be called before Start.
func (s *Splitter) AddChannel(idx int, topic string, maxSamples int) error {
	if idx < 0 || topic == "" || maxSamples <= 0 {
		return errcode.BadArg
	}
	s.channels = append(s.channels, &channel{idx: idx, topic: topic, max: maxSamples})
	return nil
}

// mayReceive computes how many sample frames fit into every active channel
// buffer, capped by the receive buffer size.
func (s *Splitter) mayReceive() int {
	may := rxBufSamples
	for _, ch := range s.channels {
		may = mathx.Min(may, ch.max-ch.samples)
	}
	return may
}

func (s *Splitter) writeChannels(frames int) {
	for _, ch := range s.channels {
		for i := 0; i < frames; i++ {
			copy(
				ch.buf[(ch.samples+i)*s.dsize:(ch.samples+i+1)*s.dsize],
				s.rxbuf[(i*s.nchan+ch.idx)*s.dsize:],
			)
		}
		ch.samples += frames

		if ch.samples == ch.max {
			var array ndarray.Array
			if err := array.InitView(s.dtype, ch.samples, ch.buf); err != nil {
				ulog.Errorf(moduleName, "channel %d: %v", ch.idx, err)
				ch.samples = 0
				continue
			}
			var ts time.Time
			if s.clock != nil {
				if t, err := s.clock.Get(); err == nil {
					ts = t
				}
			}
			if err := s.mqc.Publish(ch.topic, &array, ts); err != nil {
				ulog.Warnf(moduleName, "publish '%s': %v", ch.topic, err)
			}
			ch.samples = 0
		}
	}
}

func (s *Splitter) task() {
	defer close(s.done)
	s.running.Store(true)
	defer s.running.Store(false)

	ticker := time.NewTicker(s.readPeriod)
	defer ticker.Stop()
	for s.canRun.Load() {
		<-ticker.C
		may := s.mayReceive()
		if may <= 0 {
			continue
		}
		frames, err := s.source.Read(s.rxbuf[:may*s.nchan*s.dsize], may)
		if err != nil || frames == 0 {
			continue
		}
		s.writeChannels(frames)
	}
}

// Start queries the source format, allocates channel buffers, starts the
// source and launches the splitter task.
func (s *Splitter) Start() error {
	if len(s.channels) == 0 {
		return errcode.BadArg
	}
	if s.running.Load() {
		return errcode.Failed
	}

	s.dtype, s.nchan = s.source.Format()
	s.dsize = s.dtype.Size()
	if s.dsize == 0 || s.nchan <= 0 {
		return errcode.Failed
	}
	for _, ch := range s.channels {
		if ch.idx >= s.nchan {
			return errcode.BadArg
		}
		ch.buf = make([]byte, ch.max*s.dsize)
		ch.samples = 0
	}
	s.rxbuf = make([]byte, rxBufSamples*s.nchan*s.dsize)

	mqc, err := s.mq.Open()
	if err != nil {
		return err
	}
	s.mqc = mqc

	if err := s.source.Start(); err != nil {
		_ = s.mqc.Close()
		return err
	}

	s.done = make(chan struct{})
	s.canRun.Store(true)
	go s.task()

	ulog.Infof(moduleName, "started, %d channel(s), dtype %s, period %v",
		len(s.channels), s.dtype, s.readPeriod)
	return nil
}

// Stop cooperatively terminates the task, stops the source and closes the
// broker client.
func (s *Splitter) Stop() error {
	if s.mqc == nil {
		return errcode.NotOpened
	}
	s.canRun.Store(false)
	<-s.done

	if err := s.source.Stop(); err != nil {
		ulog.Warnf(moduleName, "source stop: %v", err)
	}
	err := s.mqc.Close()
	s.mqc = nil
	s.rxbuf = nil
	ulog.Infof(moduleName, "stopped")
	return err
}
