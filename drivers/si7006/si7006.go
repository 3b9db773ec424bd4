// Package si7006 drives the SI7006 digital temperature and humidity sensor
// over an I²C bus. The module exposes two independent Sensor interfaces,
// one per quantity, which are registered with the service locator
// separately.
package si7006

import (
	"sync"

	"tinygo.org/x/drivers"

	"plumcore-go/errcode"
	"plumcore-go/iface"
	"plumcore-go/ulog"
)

const moduleName = "si7006"

// Address is the fixed 7-bit device address.
const Address = 0x40

const (
	cmdMeasureTempHold = 0xe3
	cmdMeasureRHHold   = 0xe5
)

var cmdFirmwareRev = []byte{0x84, 0x88}

// Device is the driver module. It owns the bus transactions; the exported
// sensor handles borrow it.
type Device struct {
	mu   sync.Mutex
	bus  drivers.I2C
	addr uint16

	temperature tempSensor
	humidity    rhSensor
}

// New probes the sensor on the bus and constructs the module.
func New(bus drivers.I2C, addr uint16) (*Device, error) {
	if bus == nil {
		return nil, errcode.Null
	}
	if addr == 0 {
		addr = Address
	}
	d := &Device{bus: bus, addr: addr}
	d.temperature.dev = d
	d.humidity.dev = d

	var rev [1]byte
	if err := bus.Tx(addr, cmdFirmwareRev, rev[:]); err != nil {
		return nil, errcode.Failed
	}
	if rev[0] != 0x20 && rev[0] != 0xff {
		return nil, errcode.Failed
	}
	ulog.Infof(moduleName, "detected, firmware revision 0x%02x", rev[0])
	return d, nil
}

// Temperature returns the temperature sensor interface.
func (d *Device) Temperature() iface.Sensor { return &d.temperature }

// Humidity returns the relative humidity sensor interface.
func (d *Device) Humidity() iface.Sensor { return &d.humidity }

func (d *Device) measure(cmd byte) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var raw [2]byte
	if err := d.bus.Tx(d.addr, []byte{cmd}, raw[:]); err != nil {
		return 0, errcode.Failed
	}
	return uint16(raw[0])<<8 | uint16(raw[1]), nil
}

type tempSensor struct {
	dev *Device
}

func (s *tempSensor) ValueF() (float32, error) {
	code, err := s.dev.measure(cmdMeasureTempHold)
	if err != nil {
		return 0, err
	}
	return 175.72*float32(code)/65536 - 46.85, nil
}

func (s *tempSensor) SensorInfo() (iface.SensorInfo, error) {
	return iface.SensorInfo{Quantity: "temperature", Unit: "°C"}, nil
}

type rhSensor struct {
	dev *Device
}

func (s *rhSensor) ValueF() (float32, error) {
	code, err := s.dev.measure(cmdMeasureRHHold)
	if err != nil {
		return 0, err
	}
	rh := 125*float32(code)/65536 - 6
	if rh < 0 {
		rh = 0
	}
	if rh > 100 {
		rh = 100
	}
	return rh, nil
}

func (s *rhSensor) SensorInfo() (iface.SensorInfo, error) {
	return iface.SensorInfo{Quantity: "humidity", Unit: "%RH"}, nil
}
