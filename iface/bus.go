package iface

// I2CBus performs a 7-bit addressed write-then-read transfer. Either w or r
// may be empty. The bus driver holds a per-bus lock around the whole
// transaction. The method set is deliberately identical to
// tinygo.org/x/drivers.I2C so every TinyGo bus driver satisfies it
// structurally.
type I2CBus interface {
	Tx(addr uint16, w, r []byte) error
}

// SpiBus owns the clock/data lines of one SPI peripheral. Devices on the bus
// are represented by SpiDev; selecting a device locks the bus until the
// matching Deselect.
type SpiBus interface {
	// NewDevice binds a chip-select identified by the driver-specific id.
	NewDevice(cs int) (SpiDev, error)
}

// SpiDev is one selectable device on an SPI bus.
type SpiDev interface {
	Select() error
	Deselect() error
	Send(buf []byte) error
	Receive(buf []byte) error
	Exchange(tx, rx []byte) error
}

// Mux drives an N-line analog or digital multiplexer.
type Mux interface {
	Enable(on bool) error
	// Select asserts the select lines to the given bitmask.
	Select(mask uint32) error
}

// Power controls one power rail. Voltage setting may be backed by a
// single-ended or differential DAC reference; measurement read-backs return
// errcode.NotImplemented when the rail has no sense circuitry.
type Power interface {
	Enable(on bool) error
	SetVoltage(v float32) error
	MeasureVoltage() (float32, error)
	MeasureCurrent() (float32, error)
}
