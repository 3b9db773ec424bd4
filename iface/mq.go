package iface

import (
	"time"

	"plumcore-go/types/ndarray"
)

// Mq is a message queue broker endpoint. Clients created by Open are
// independent subscription/publication handles.
type Mq interface {
	Open() (MqClient, error)
}

// MqClient is a single broker client. A client holds one current topic
// filter; Subscribe overwrites it. Publish is synchronous: it returns after
// every matching client acknowledged the delivery or dropped it by timing
// out. Neither the broker nor a receiver retains the published array beyond
// the delivery call; a receiver that needs the data after Receive returns
// owns the copy made into its own array.
type MqClient interface {
	// Subscribe sets the client topic filter. MQTT-style wildcards: '+'
	// matches one level, a terminal '#' matches any remainder.
	Subscribe(filter string) error
	Unsubscribe(filter string) error
	Publish(topic string, a *ndarray.Array, ts time.Time) error
	// Receive blocks up to the configured timeout, then copies the message
	// metadata and data into a. On timeout it returns errcode.Timeout.
	Receive(a *ndarray.Array) (topic string, ts time.Time, err error)
	SetTimeout(d time.Duration) error
	Close() error
}
