package iface

import "time"

// Clock provides the system time used to timestamp published data.
type Clock interface {
	Get() (time.Time, error)
	Set(t time.Time) error
}

// ClockShifter is an optional extension applying a sub-second phase offset
// without stepping the clock.
type ClockShifter interface {
	Shift(offset time.Duration) error
}

// Rtc is a battery-backed calendar clock. It is distinct from Clock: an RTC
// holds broken-down wall time across power cycles and is typically read once
// at boot to seed a Clock.
type Rtc interface {
	Now() (time.Time, error)
	SetTime(t time.Time) error
}
