// Package mqlogsink terminates a topic in the system log: every element of
// each received float array is formatted as a decimal with millifraction
// precision. A message of any other dtype logs one error and stops the node.
package mqlogsink

import (
	"sync/atomic"

	"plumcore-go/errcode"
	"plumcore-go/iface"
	"plumcore-go/types/ndarray"
	"plumcore-go/ulog"
)

const moduleName = "mq-log-sink"

// rxBufElems bounds one received array.
const rxBufElems = 64

// Sink is the service instance.
type Sink struct {
	mq    iface.Mq
	mqc   iface.MqClient
	topic string

	canRun  atomic.Bool
	running atomic.Bool
	done    chan struct{}
}

// New binds a sink to the broker.
func New(mq iface.Mq) (*Sink, error) {
	if mq == nil {
		return nil, errcode.Null
	}
	return &Sink{mq: mq}, nil
}

func (s *Sink) task() {
	defer close(s.done)
	s.running.Store(true)
	defer s.running.Store(false)

	var rx ndarray.Array
	if rx.InitEmpty(ndarray.Float32, rxBufElems) != nil {
		return
	}
	for s.canRun.Load() {
		topic, _, err := s.mqc.Receive(&rx)
		if err != nil {
			continue
		}
		if rx.DType() != ndarray.Float32 {
			ulog.Errorf(moduleName, "wrong data type on '%s', stopping", topic)
			return
		}
		for _, f := range rx.Float32s() {
			whole := int(f)
			milli := int(f*1000) - whole*1000
			if milli < 0 {
				milli = -milli
			}
			ulog.Infof(moduleName, "%s: %d.%03d", topic, whole, milli)
		}
	}
}

// Start subscribes and launches the sink task.
func (s *Sink) Start(topic string) error {
	if topic == "" {
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

	s.done = make(chan struct{})
	s.canRun.Store(true)
	go s.task()

	ulog.Infof(moduleName, "logging '%s'", topic)
	return nil
}

// Stop cooperatively terminates the task and closes the broker client.
func (s *Sink) Stop() error {
	if s.mqc == nil {
		return errcode.NotOpened
	}
	s.canRun.Store(false)
	<-s.done
	err := s.mqc.Close()
	s.mqc = nil
	return err
}
