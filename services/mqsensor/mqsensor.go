// Package mqsensor periodically polls a float-valued sensor and publishes
// each reading as a length-1 ndarray on a configured topic.
package mqsensor

import (
	"sync/atomic"
	"time"

	"plumcore-go/errcode"
	"plumcore-go/iface"
	"plumcore-go/types/ndarray"
	"plumcore-go/ulog"
)

const moduleName = "mq-sensor-source"

// Source is the service instance.
type Source struct {
	sensor iface.Sensor
	clock  iface.Clock
	mq     iface.Mq
	mqc    iface.MqClient
	topic  string
	period time.Duration

	canRun  atomic.Bool
	running atomic.Bool
	done    chan struct{}
}

// New binds the poller. clock may be nil; publications are then stamped
// zero.
func New(sensor iface.Sensor, topic string, mq iface.Mq, clock iface.Clock, period time.Duration) (*Source, error) {
	if sensor == nil || mq == nil || topic == "" || period <= 0 {
		return nil, errcode.BadArg
	}
	return &Source{sensor: sensor, clock: clock, mq: mq, topic: topic, period: period}, nil
}

func (s *Source) task() {
	defer close(s.done)
	s.running.Store(true)
	defer s.running.Store(false)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for s.canRun.Load() {
		<-ticker.C

		// Get the time first. A missing clock is fine; a failing one skips
		// the cycle.
		var ts time.Time
		if s.clock != nil {
			t, err := s.clock.Get()
			if err != nil {
				continue
			}
			ts = t
		}

		f, err := s.sensor.ValueF()
		if err != nil {
			continue
		}

		var d ndarray.Array
		if d.InitEmpty(ndarray.Float32, 1) != nil {
			continue
		}
		d.AppendFloat32(f)
		if err := s.mqc.Publish(s.topic, &d, ts); err != nil {
			ulog.Warnf(moduleName, "publish '%s': %v", s.topic, err)
		}
	}
}

// Start opens the broker client and launches the polling task.
func (s *Source) Start() error {
	if s.running.Load() {
		return errcode.Failed
	}
	mqc, err := s.mq.Open()
	if err != nil {
		return err
	}
	s.mqc = mqc

	s.done = make(chan struct{})
	s.canRun.Store(true)
	go s.task()

	ulog.Infof(moduleName, "publishing sensor value to '%s' every %v", s.topic, s.period)
	return nil
}

// Stop cooperatively terminates the task and closes the broker client.
func (s *Source) Stop() error {
	if s.mqc == nil {
		return errcode.NotOpened
	}
	s.canRun.Store(false)
	<-s.done
	err := s.mqc.Close()
	s.mqc = nil
	return err
}
