package uxb

import (
	"bytes"
	"hash/crc32"
	"io"
	"time"

	"plumcore-go/errcode"
	"plumcore-go/iface"
	"plumcore-go/ulog"
)

const moduleName = "uxb"

// Slot is a numbered data endpoint within a device.
type Slot struct {
	number   uint8
	buffer   []byte
	received func(payload []byte)
	bus      *Bus
}

// NewSlot creates a slot. Slot number 0 is reserved for discovery.
func NewSlot(number uint8) (*Slot, error) {
	if number == 0 {
		return nil, errcode.BadArg
	}
	return &Slot{number: number}, nil
}

func (s *Slot) SlotNumber() uint8 { return s.number }

// SetBuffer installs the receive buffer. Without one the slot cannot
// receive.
func (s *Slot) SetBuffer(buf []byte) error {
	s.buffer = buf
	return nil
}

func (s *Slot) SetReceiveCallback(fn func(payload []byte)) error {
	s.received = fn
	return nil
}

// Buffer returns the receive buffer, for inspection after a receive.
func (s *Slot) Buffer() []byte { return s.buffer }

// Send transmits payload on this slot as a response frame-group on the
// bus's response writer.
func (s *Slot) Send(payload []byte) error {
	if s.bus == nil {
		return errcode.NotOpened
	}
	return s.bus.writeDataGroup(s.bus.response, s.number, payload)
}

// Device is one addressed endpoint living on the bus.
type Device struct {
	addr     [AddressLen]byte
	selected bool
	slots    []*Slot
	bus      *Bus
}

// NewDevice creates a device with the given address.
func NewDevice(addr [AddressLen]byte) *Device {
	return &Device{addr: addr}
}

func (d *Device) Address() [AddressLen]byte { return d.addr }

func (d *Device) SetAddress(addr [AddressLen]byte) error {
	d.addr = addr
	return nil
}

// AddSlot attaches a slot to the device.
func (d *Device) AddSlot(s iface.UxbSlot) error {
	sl, ok := s.(*Slot)
	if !ok || sl == nil {
		return errcode.BadArg
	}
	for _, have := range d.slots {
		if have.number == sl.number {
			return errcode.BadArg
		}
	}
	sl.bus = d.bus
	d.slots = append(d.slots, sl)
	return nil
}

func (d *Device) slot(number uint8) *Slot {
	for _, s := range d.slots {
		if s.number == number {
			return s
		}
	}
	return nil
}

// Bus drives the devices of one physical interconnect. The receive path is
// entered once per frame-group (the hardware frame signal delimits groups);
// transmission goes to the response writer.
type Bus struct {
	devices  []*Device
	prev     *Device
	response io.Writer

	// idAsserted reports whether the last ID round pulled the ID line.
	idAsserted bool
}

// NewBus creates an empty bus engine.
func NewBus() *Bus { return &Bus{} }

// SetResponseWriter installs the transmit side used by slot sends.
func (b *Bus) SetResponseWriter(w io.Writer) { b.response = w }

// AddDevice attaches a device to the bus.
func (b *Bus) AddDevice(d iface.UxbDevice) error {
	dd, ok := d.(*Device)
	if !ok || dd == nil {
		return errcode.BadArg
	}
	dd.bus = b
	for _, s := range dd.slots {
		s.bus = b
	}
	b.devices = append(b.devices, dd)
	return nil
}

// Probe reports whether the last processed frame-group asserted the ID
// line.
func (b *Bus) Probe() (bool, error) { return b.idAsserted, nil }

func (b *Bus) firstSelected() *Device {
	for _, d := range b.devices {
		if d.selected {
			return d
		}
	}
	return nil
}

// applySelection folds one selection predicate into the selected set using
// the frame's AND/OR combinator.
func (b *Bus) applySelection(frame []byte, match func(*Device) bool) {
	and := frameSelAnd(frame)
	for _, d := range b.devices {
		if and {
			d.selected = d.selected && match(d)
		} else {
			d.selected = d.selected || match(d)
		}
	}
}

// ProcessFrameGroup runs the slave state machine over one frame-group read
// from r: a sequence of control frames optionally followed by one data
// phase, terminated by a NOP. It is the frame-signal interrupt entry point;
// everything it calls must not block outside the reader.
func (b *Bus) ProcessFrameGroup(r io.Reader) error {
	for _, d := range b.devices {
		d.selected = false
	}
	b.idAsserted = false

	frame := make([]byte, ControlFrameLen)
	for {
		if _, err := io.ReadFull(r, frame); err != nil {
			return errcode.Timeout
		}
		t, ok := frameType(frame)
		if !ok {
			return errcode.UnknownFrameType
		}

		switch t {
		case FrameSelSingle:
			b.applySelection(frame, func(d *Device) bool {
				return bytes.Equal(frame[4:12], d.addr[:])
			})

		case FrameSelFrom:
			b.applySelection(frame, func(d *Device) bool {
				return bytes.Compare(d.addr[:], frame[4:12]) >= 0
			})

		case FrameSelTo:
			b.applySelection(frame, func(d *Device) bool {
				return bytes.Compare(d.addr[:], frame[4:12]) <= 0
			})

		case FrameSelPrev:
			if b.prev != nil {
				b.prev.selected = true
			}

		case FrameAssertID:
			if d := b.firstSelected(); d != nil {
				// Pull the open-drain ID line.
				b.idAsserted = true
				b.prev = d
			}

		case FrameNop:
			return nil

		case FrameData:
			d := b.firstSelected()
			if d == nil {
				return errcode.NoSelect
			}
			b.prev = d
			length := dataLen(frame)
			slot := d.slot(dataSlot(frame))
			if slot == nil {
				return errcode.UnknownSlot
			}
			if slot.buffer == nil || len(slot.buffer) < length {
				return errcode.InvalidBuffer
			}
			payload := slot.buffer[:length]
			if _, err := io.ReadFull(r, payload); err != nil {
				return errcode.Timeout
			}
			// A zero CRC field marks an unchecked transfer.
			if want := dataCRC(frame); want != 0 && crc32.ChecksumIEEE(payload) != want {
				ulog.Warnf(moduleName, "slot %d: CRC mismatch", slot.number)
				return errcode.Failed
			}
			if slot.received != nil {
				slot.received(payload)
			}
			// The data phase ends the group after the closing NOP.
			if _, err := io.ReadFull(r, frame); err != nil {
				return nil
			}
			return nil

		default:
			return errcode.UnknownFrameType
		}
	}
}

// writeDataGroup emits a master-side frame-group carrying one data phase.
func (b *Bus) writeDataGroup(w io.Writer, slot uint8, payload []byte) error {
	if w == nil {
		return errcode.NotOpened
	}
	ctl := buildDataFrame(len(payload), slot, crc32.ChecksumIEEE(payload))
	if _, err := w.Write(ctl[:]); err != nil {
		return errcode.Failed
	}
	time.Sleep(FrameToDataGap)
	if _, err := w.Write(payload); err != nil {
		return errcode.Failed
	}
	time.Sleep(InterFrameGap)
	nop := buildFrame(FrameNop, false)
	if _, err := w.Write(nop[:]); err != nil {
		return errcode.Failed
	}
	return nil
}

// SendTo runs a master transmission: select the addressed device, then send
// payload to one of its slots.
func (b *Bus) SendTo(w io.Writer, addr [AddressLen]byte, slot uint8, payload []byte) error {
	if w == nil {
		return errcode.NotOpened
	}
	sel := buildSelFrame(FrameSelSingle, false, addr)
	if _, err := w.Write(sel[:]); err != nil {
		return errcode.Failed
	}
	time.Sleep(InterFrameGap)
	return b.writeDataGroup(w, slot, payload)
}
