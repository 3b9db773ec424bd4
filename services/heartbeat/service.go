// Package heartbeat publishes the system uptime in seconds on a well-known
// topic. Subscribers use it as a liveness beacon and as a cheap time base
// for dashboards.
package heartbeat

import (
	"sync/atomic"
	"time"

	"plumcore-go/errcode"
	"plumcore-go/iface"
	"plumcore-go/types/ndarray"
	"plumcore-go/ulog"
)

const moduleName = "heartbeat"

// DefaultTopic is used when none is configured.
const DefaultTopic = "sys/uptime"

// Service is the heartbeat instance.
type Service struct {
	mq     iface.Mq
	mqc    iface.MqClient
	topic  string
	period time.Duration
	start  time.Time

	canRun  atomic.Bool
	running atomic.Bool
	done    chan struct{}
}

// New binds the beacon to the broker.
func New(mq iface.Mq, topic string, period time.Duration) (*Service, error) {
	if mq == nil {
		return nil, errcode.Null
	}
	if topic == "" {
		topic = DefaultTopic
	}
	if period <= 0 {
		period = time.Second
	}
	return &Service{mq: mq, topic: topic, period: period}, nil
}

func (s *Service) task() {
	defer close(s.done)
	s.running.Store(true)
	defer s.running.Store(false)

	tick := time.NewTicker(s.period)
	defer tick.Stop()
	for s.canRun.Load() {
		<-tick.C
		var a ndarray.Array
		if a.InitEmpty(ndarray.U32, 1) != nil {
			continue
		}
		if err := a.SetLen(1); err != nil {
			continue
		}
		a.Uint32s()[0] = uint32(time.Since(s.start) / time.Second)
		if err := s.mqc.Publish(s.topic, &a, time.Time{}); err != nil {
			ulog.Warnf(moduleName, "publish '%s': %v", s.topic, err)
		}
	}
}

// Start launches the beacon task.
func (s *Service) Start() error {
	if s.running.Load() {
		return errcode.Failed
	}
	mqc, err := s.mq.Open()
	if err != nil {
		return err
	}
	s.mqc = mqc
	s.start = time.Now()
	s.done = make(chan struct{})
	s.canRun.Store(true)
	go s.task()
	ulog.Infof(moduleName, "beacon on '%s' every %v", s.topic, s.period)
	return nil
}

// Stop cooperatively terminates the beacon.
func (s *Service) Stop() error {
	if s.mqc == nil {
		return errcode.NotOpened
	}
	s.canRun.Store(false)
	<-s.done
	err := s.mqc.Close()
	s.mqc = nil
	return err
}
