// Package plogrouter implements the process-wide message queue broker. It
// switches typed ndarray payloads from publishers to subscribed clients
// using rendezvous delivery: a publisher blocks until every matching client
// has taken the message and acknowledged it, so the broker never buffers or
// copies payload data.
package plogrouter

import (
	"sync"
	"sync/atomic"
	"time"

	"plumcore-go/errcode"
	"plumcore-go/iface"
	"plumcore-go/types/ndarray"
	"plumcore-go/ulog"
)

const moduleName = "plog-router"

// MaxTopicLen bounds topic and filter strings.
const MaxTopicLen = 64

// DefaultRxTimeout applies to clients that never called SetTimeout.
const DefaultRxTimeout = 1000 * time.Millisecond

type delivery struct {
	topic string
	arr   *ndarray.Array
	ts    time.Time
}

// Router is the broker. A single instance is created at boot and registered
// with the service locator under the mq tag.
type Router struct {
	mu      sync.Mutex
	clients []*Client
	clock   iface.Clock

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// New creates an empty router.
func New() *Router {
	ulog.Infof(moduleName, "plog message router started")
	return &Router{}
}

// SetClock installs an optional clock used to stamp publications whose
// caller passed a zero timestamp.
func (r *Router) SetClock(c iface.Clock) {
	r.mu.Lock()
	r.clock = c
	r.mu.Unlock()
}

// Stats reports delivery counters since creation.
func (r *Router) Stats() (published, delivered, dropped uint64) {
	return r.published.Load(), r.delivered.Load(), r.dropped.Load()
}

// Open allocates a new client bound to this broker. The client is not
// subscribed to anything yet.
func (r *Router) Open() (iface.MqClient, error) {
	c := &Client{
		router:  r,
		lockC:   make(chan struct{}, 1),
		sendC:   make(chan delivery, 1),
		ackC:    make(chan struct{}, 1),
		timeout: DefaultRxTimeout,
	}
	r.mu.Lock()
	r.clients = append(r.clients, c)
	r.mu.Unlock()
	return c, nil
}

func (r *Router) snapshot() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Client, len(r.clients))
	copy(out, r.clients)
	return out
}

func (r *Router) remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cc := range r.clients {
		if cc == c {
			r.clients = append(r.clients[:i], r.clients[i+1:]...)
			return
		}
	}
}

// deliver performs one rendezvous delivery into a single receiver. The
// per-client delivery lock serialises concurrent publishers into the same
// receiver; acquisition is bounded by the publisher's own timeout and the
// publication to this receiver is dropped when it expires. The ack wait has
// no timeout.
func (r *Router) deliver(to *Client, d delivery, lockTimeout time.Duration) error {
	select {
	case to.lockC <- struct{}{}:
	case <-time.After(lockTimeout):
		r.dropped.Add(1)
		return errcode.Timeout
	}
	if to.closed.Load() {
		<-to.lockC
		r.dropped.Add(1)
		return errcode.NotOpened
	}
	// The mailbox is empty whenever the lock is free: every locked delivery
	// either gets its message taken and acknowledged, or drained by the
	// receiver's timeout path.
	to.sendC <- d
	<-to.ackC
	<-to.lockC
	r.delivered.Add(1)
	return nil
}

// Client is a single subscription/publication endpoint.
type Client struct {
	router *Router

	filterMu sync.Mutex
	filter   string

	lockC chan struct{}
	sendC chan delivery
	ackC  chan struct{}

	timeoutMu sync.Mutex
	timeout   time.Duration

	closed atomic.Bool
}

// Subscribe overwrites the client's single topic filter.
func (c *Client) Subscribe(filter string) error {
	if filter == "" || len(filter) > MaxTopicLen {
		return errcode.BadArg
	}
	c.filterMu.Lock()
	c.filter = filter
	c.filterMu.Unlock()
	return nil
}

// Unsubscribe clears the current filter.
func (c *Client) Unsubscribe(filter string) error {
	c.filterMu.Lock()
	c.filter = ""
	c.filterMu.Unlock()
	return nil
}

func (c *Client) currentFilter() string {
	c.filterMu.Lock()
	defer c.filterMu.Unlock()
	return c.filter
}

// SetTimeout configures the receive (and publish lock acquisition) timeout.
func (c *Client) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return errcode.BadArg
	}
	c.timeoutMu.Lock()
	c.timeout = d
	c.timeoutMu.Unlock()
	return nil
}

func (c *Client) currentTimeout() time.Duration {
	c.timeoutMu.Lock()
	defer c.timeoutMu.Unlock()
	return c.timeout
}

// Publish fans the message out to every matching client and returns after
// each of them acknowledged or dropped the delivery. The array is passed by
// reference for the duration of the rendezvous only.
func (c *Client) Publish(topic string, a *ndarray.Array, ts time.Time) error {
	if c.closed.Load() {
		return errcode.NotOpened
	}
	if topic == "" || len(topic) > MaxTopicLen {
		return errcode.BadArg
	}
	if a == nil {
		return errcode.Null
	}
	r := c.router
	if ts.IsZero() && r.clock != nil {
		if t, err := r.clock.Get(); err == nil {
			ts = t
		}
	}
	r.published.Add(1)

	d := delivery{topic: topic, arr: a, ts: ts}
	lockTimeout := c.currentTimeout()
	for _, to := range r.snapshot() {
		if to == c || to.closed.Load() {
			// A client never rendezvouses with itself; that would block
			// the publisher on its own mailbox.
			continue
		}
		if !MatchTopic(to.currentFilter(), topic) {
			continue
		}
		if err := r.deliver(to, d, lockTimeout); err != nil {
			ulog.Debugf(moduleName, "delivery dropped, topic '%s'", topic)
		}
	}
	return nil
}

// Receive blocks up to the configured timeout for a delivery, then copies
// the topic, timestamp and array content into the caller-provided storage
// and acknowledges the publisher. When the wait times out, a message posted
// in the meantime is drained and acknowledged but reported as a timeout:
// that publication is dropped, not retried.
func (c *Client) Receive(a *ndarray.Array) (string, time.Time, error) {
	if c.closed.Load() {
		return "", time.Time{}, errcode.NotOpened
	}
	if a == nil {
		return "", time.Time{}, errcode.Null
	}

	var d delivery
	select {
	case d = <-c.sendC:
	case <-time.After(c.currentTimeout()):
		select {
		case <-c.sendC:
			c.ackC <- struct{}{}
		default:
		}
		return "", time.Time{}, errcode.Timeout
	}

	topic := d.topic
	if len(topic) > MaxTopicLen {
		topic = topic[:MaxTopicLen]
	}
	// Adopt the metadata, then deep-copy the data: the reference is only
	// valid until the ack below.
	err := a.Retype(d.arr.DType())
	if err == nil {
		_, err = a.Append(d.arr)
	}
	c.ackC <- struct{}{}
	if err != nil {
		return "", time.Time{}, err
	}
	return topic, d.ts, nil
}

// Close unsubscribes the client and removes it from the broker. A publisher
// stuck on an unacknowledged delivery to this client is released.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return errcode.NotOpened
	}
	c.router.remove(c)
	c.Unsubscribe("")
	select {
	case <-c.sendC:
		c.ackC <- struct{}{}
	default:
	}
	return nil
}
