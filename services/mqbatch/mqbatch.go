// Package mqbatch accumulates small arrays received on one topic into a
// larger batch and republishes the batch when it is full. Batching reduces
// per-message overhead for downstream consumers (network upload, storage).
package mqbatch

import (
	"sync/atomic"

	"plumcore-go/errcode"
	"plumcore-go/iface"
	"plumcore-go/types/ndarray"
	"plumcore-go/ulog"
)

const moduleName = "mq-batch"

// MaxTopicLen mirrors the broker limit.
const MaxTopicLen = 64

// rxBufElems bounds one received array.
const rxBufElems = 32

// Batch is the service instance.
type Batch struct {
	mq  iface.Mq
	mqc iface.MqClient

	subTopic string
	pubTopic string

	batch ndarray.Array
	rxbuf ndarray.Array

	canRun  atomic.Bool
	running atomic.Bool
	done    chan struct{}
}

// New binds a batcher to the broker.
func New(mq iface.Mq) (*Batch, error) {
	if mq == nil {
		return nil, errcode.Null
	}
	return &Batch{mq: mq}, nil
}

func (b *Batch) task() {
	defer close(b.done)
	b.running.Store(true)
	defer b.running.Store(false)

	for b.canRun.Load() {
		_, ts, err := b.mqc.Receive(&b.rxbuf)
		if err != nil {
			// Timeouts just re-check the run flag.
			continue
		}
		if _, err := b.batch.Append(&b.rxbuf); err != nil {
			ulog.Warnf(moduleName, "append: %v", err)
			continue
		}
		if b.batch.Len() >= b.batch.Cap() {
			if err := b.mqc.Publish(b.pubTopic, &b.batch, ts); err != nil {
				ulog.Warnf(moduleName, "publish '%s': %v", b.pubTopic, err)
			}
			b.batch.Reset()
		}
	}
}

// Start subscribes to subTopic and begins batching asize elements of the
// given dtype into publications on pubTopic.
func (b *Batch) Start(dtype ndarray.DType, asize int, subTopic, pubTopic string) error {
	if asize <= 0 || subTopic == "" || pubTopic == "" ||
		len(subTopic) > MaxTopicLen || len(pubTopic) > MaxTopicLen {
		return errcode.BadArg
	}
	if b.running.Load() {
		return errcode.Failed
	}
	b.subTopic = subTopic
	b.pubTopic = pubTopic

	mqc, err := b.mq.Open()
	if err != nil {
		return err
	}
	b.mqc = mqc
	if err := b.mqc.Subscribe(subTopic); err != nil {
		_ = b.mqc.Close()
		return err
	}
	if err := b.batch.InitEmpty(dtype, asize); err != nil {
		_ = b.mqc.Close()
		return err
	}
	if err := b.rxbuf.InitEmpty(dtype, rxBufElems); err != nil {
		_ = b.mqc.Close()
		return err
	}

	b.done = make(chan struct{})
	b.canRun.Store(true)
	go b.task()

	ulog.Infof(moduleName, "'%s' -> '%s', batching %d values", subTopic, pubTopic, asize)
	return nil
}

// Stop cooperatively terminates the task and closes the broker client.
func (b *Batch) Stop() error {
	if b.mqc == nil {
		return errcode.NotOpened
	}
	b.canRun.Store(false)
	<-b.done

	err := b.mqc.Close()
	b.mqc = nil
	b.rxbuf.Free()
	b.batch.Free()
	ulog.Infof(moduleName, "stopped")
	return err
}
