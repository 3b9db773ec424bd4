// Package locator implements the process-wide service registry. Drivers
// register their interfaces by name and type tag during boot; services query
// the registry instead of holding compile-time references to each other.
package locator

import (
	"sync"

	"plumcore-go/errcode"
)

// Type tags the capability kind of a registered interface. The set is
// closed; adding a kind means adding a constant here.
type Type int

const (
	TypeSensor Type = iota
	TypeStream
	TypeFlash
	TypeMq
	TypeClock
	TypeRtc
	TypeFs
	TypeUxbDevice
	TypeNetDev
	TypeCellular
	TypeTcpIp
	TypeAdc
	TypeRng
	TypePower
	TypeMux
	TypeWaveformSource
	TypeBlockDevice
	TypeI2CBus
	TypeSpiBus
)

type entry struct {
	name string
	tag  Type
	svc  any
}

// Locator is an append-only ordered registry. Entries are never removed;
// duplicate names are permitted — the first registered wins name lookup, all
// remain reachable by type iteration.
type Locator struct {
	mu      sync.RWMutex
	entries []entry
}

// New creates an empty locator. One instance is created during early boot,
// before any module registers, and passed explicitly to modules.
func New() *Locator {
	return &Locator{}
}

// Add appends an entry. Re-adding the same interface instance is forbidden.
func (l *Locator) Add(name string, tag Type, svc any) error {
	if name == "" || svc == nil {
		return errcode.BadArg
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{name: name, tag: tag, svc: svc})
	return nil
}

// QueryName returns the first entry with a matching name.
func (l *Locator) QueryName(name string) (any, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.name == name {
			return e.svc, nil
		}
	}
	return nil, errcode.Failed
}

// QueryTypeID returns the index-th entry with a matching tag, in insertion
// order.
func (l *Locator) QueryTypeID(tag Type, index int) (any, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id := 0
	for _, e := range l.entries {
		if e.tag == tag {
			if id == index {
				return e.svc, nil
			}
			id++
		}
	}
	return nil, errcode.Failed
}

// QueryNameType returns the first entry matching both name and tag.
func (l *Locator) QueryNameType(name string, tag Type) (any, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.name == name && e.tag == tag {
			return e.svc, nil
		}
	}
	return nil, errcode.Failed
}

// GetName reverse-looks-up the name a service was registered under.
func (l *Locator) GetName(svc any) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.svc == svc {
			return e.name, nil
		}
	}
	return "", errcode.Failed
}

// As performs a typed name lookup: the entry must exist and implement T.
func As[T any](l *Locator, name string) (T, error) {
	var zero T
	svc, err := l.QueryName(name)
	if err != nil {
		return zero, err
	}
	t, ok := svc.(T)
	if !ok {
		return zero, errcode.Failed
	}
	return t, nil
}

// EachType calls fn for every entry with the given tag, in insertion order,
// until fn returns false.
func (l *Locator) EachType(tag Type, fn func(name string, svc any) bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.tag == tag {
			if !fn(e.name, e.svc) {
				return
			}
		}
	}
}
