package iface

// UXB is a shared-bus peripheral interconnect. A bus carries frame-groups
// addressed to 8-byte device addresses; within a device, numbered slots are
// independent data endpoints. The wire engine lives in package uxb; these
// contracts are what the rest of the system consumes.

// UxbBus enumerates and drives devices on one physical bus.
type UxbBus interface {
	AddDevice(d UxbDevice) error
	// Probe reports whether any device asserted the ID line in the most
	// recent ID round.
	Probe() (bool, error)
}

// UxbDevice is one addressed endpoint on the bus.
type UxbDevice interface {
	Address() [8]byte
	SetAddress(addr [8]byte) error
	AddSlot(s UxbSlot) error
}

// UxbSlot is a numbered data endpoint within a device. Received payloads are
// placed into the slot buffer and reported through the callback.
type UxbSlot interface {
	SlotNumber() uint8
	SetBuffer(buf []byte) error
	SetReceiveCallback(fn func(payload []byte)) error
	Send(payload []byte) error
}
