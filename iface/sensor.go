package iface

// Sensor reads a single physical quantity as a float value.
type Sensor interface {
	ValueF() (float32, error)
}

// SensorInfo describes the measured quantity.
type SensorInfo struct {
	Quantity string // e.g. "temperature"
	Unit     string // e.g. "°C"
}

// SensorDescriber is an optional extension for sensors that can describe
// themselves.
type SensorDescriber interface {
	SensorInfo() (SensorInfo, error)
}

// Adc samples one channel of an analog-to-digital converter.
type Adc interface {
	Sample(channel int) (int32, error)
}

// Rng fills buf with random bytes.
type Rng interface {
	Fill(buf []byte) error
}
