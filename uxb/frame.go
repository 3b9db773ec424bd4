// Package uxb implements the UXB interconnect engine: control-frame codec,
// the slave receive state machine and master-side frame-group transmission.
// The engine is transport-agnostic; the physical SPI port and frame signal
// are abstracted behind io.Reader/io.Writer pairs so ports and tests drive
// it the same way.
package uxb

import (
	"encoding/binary"
	"time"
)

// AddressLen is the device address length.
const AddressLen = 8

// ControlFrameLen is the fixed control frame size.
const ControlFrameLen = 12

// ControlFrameMagic starts every control frame, big-endian.
const ControlFrameMagic = 0x1234

// FrameType occupies the top three bits of byte 2; bit 4 is the AND/OR
// selection combinator.
type FrameType uint8

const (
	FrameNop       FrameType = 0x00 << 5
	FrameAssertID  FrameType = 0x01 << 5
	FrameSelSingle FrameType = 0x02 << 5
	FrameSelFrom   FrameType = 0x03 << 5
	FrameSelTo     FrameType = 0x04 << 5
	FrameSelPrev   FrameType = 0x05 << 5
	FrameData      FrameType = 0x06 << 5

	frameTypeMask = 0xe0
	selAndBit     = 0x10
)

// Inter-frame timing required on the wire.
const (
	InterFrameGap      = 100 * time.Microsecond
	FrameToDataGap     = 200 * time.Microsecond
	InterFrameGroupGap = 300 * time.Microsecond
)

func frameType(frame []byte) (FrameType, bool) {
	if binary.BigEndian.Uint16(frame) != ControlFrameMagic {
		return 0, false
	}
	return FrameType(frame[2] & frameTypeMask), true
}

func frameSelAnd(frame []byte) bool { return frame[2]&selAndBit != 0 }

func dataLen(frame []byte) int { return int(binary.BigEndian.Uint16(frame[4:])) }

func dataSlot(frame []byte) uint8 { return frame[6] }

func dataCRC(frame []byte) uint32 { return binary.BigEndian.Uint32(frame[8:]) }

func buildFrame(t FrameType, selAnd bool) [ControlFrameLen]byte {
	var f [ControlFrameLen]byte
	binary.BigEndian.PutUint16(f[:], ControlFrameMagic)
	f[2] = byte(t)
	if selAnd {
		f[2] |= selAndBit
	}
	return f
}

func buildSelFrame(t FrameType, selAnd bool, addr [AddressLen]byte) [ControlFrameLen]byte {
	f := buildFrame(t, selAnd)
	copy(f[4:], addr[:])
	return f
}

func buildDataFrame(length int, slot uint8, crc uint32) [ControlFrameLen]byte {
	f := buildFrame(FrameData, false)
	binary.BigEndian.PutUint16(f[4:], uint16(length))
	f[6] = slot
	binary.BigEndian.PutUint32(f[8:], crc)
	return f
}
