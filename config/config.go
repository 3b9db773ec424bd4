// Package config describes the boot-time system configuration: flash
// volume table, FIFO keys and the data-flow pipeline. The configuration is
// plain JSON decoded into these structs.
package config

import (
	"encoding/hex"
	"encoding/json"

	"plumcore-go/errcode"
)

// System is the top-level configuration document.
type System struct {
	Log      Log      `json:"log,omitempty"`
	Flash    Flash    `json:"flash,omitempty"`
	Pipeline Pipeline `json:"pipeline,omitempty"`
}

// Log configures the system logger.
type Log struct {
	Level string `json:"level,omitempty"` // debug, info, warn, error
}

// Flash configures the volume table and the FIFO log keys.
type Flash struct {
	Volumes []Volume `json:"volumes,omitempty"`
	Fifo    Fifo     `json:"fifo,omitempty"`
}

// Volume is one static flash volume.
type Volume struct {
	Name  string `json:"name"`
	Start int64  `json:"start"`
	Size  int64  `json:"size"`
}

// Fifo selects the volume holding the FIFO log and its keys. Keys are
// 16-byte hex strings with no defaults.
type Fifo struct {
	Volume       string `json:"volume,omitempty"`
	KeystreamKey string `json:"keystream_key,omitempty"`
	MacKey       string `json:"mac_key,omitempty"`
}

// Pipeline wires the data-flow services by topic.
type Pipeline struct {
	Channels     []Channel     `json:"channels,omitempty"`
	Batchers     []Batcher     `json:"batchers,omitempty"`
	Periodograms []Periodogram `json:"periodograms,omitempty"`
	Stats        []Stats       `json:"stats,omitempty"`
	Sensors      []Sensor      `json:"sensors,omitempty"`
	LogSinks     []string      `json:"log_sinks,omitempty"`
}

// Channel routes one waveform-source channel to a topic.
type Channel struct {
	Index      int    `json:"index"`
	Topic      string `json:"topic"`
	MaxSamples int    `json:"max_samples"`
}

// Batcher accumulates SubTopic arrays into Size-element batches.
type Batcher struct {
	SubTopic string `json:"sub_topic"`
	PubTopic string `json:"pub_topic"`
	Dtype    string `json:"dtype"`
	Size     int    `json:"size"`
}

// Periodogram configures one Welch node.
type Periodogram struct {
	SubTopic string `json:"sub_topic"`
	PubTopic string `json:"pub_topic"`
	Dtype    string `json:"dtype"`
	Size     int    `json:"size"`
	Window   string `json:"window,omitempty"` // none, hamming
	Period   uint32 `json:"period,omitempty"`
}

// Stats configures one statistics node.
type Stats struct {
	Topic     string   `json:"topic"`
	Dtype     string   `json:"dtype"`
	Size      int      `json:"size"`
	Enable    []string `json:"enable,omitempty"` // rms, mean, var, nrms, psd, snr, enob
	FullScale float64  `json:"full_scale,omitempty"`
	Bandwidth float64  `json:"bandwidth,omitempty"`
}

// Sensor configures one periodic sensor poller.
type Sensor struct {
	Name     string `json:"name"` // locator name of the sensor
	Topic    string `json:"topic"`
	PeriodMs uint32 `json:"period_ms"`
}

// Parse decodes a JSON configuration document.
func Parse(data []byte) (System, error) {
	var s System
	if err := json.Unmarshal(data, &s); err != nil {
		return System{}, &errcode.E{C: errcode.BadArg, Op: "config", Err: err}
	}
	return s, nil
}

// ParseKey decodes a 16-byte hex key.
func ParseKey(s string) ([16]byte, error) {
	var key [16]byte
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(key) {
		return key, errcode.BadArg
	}
	copy(key[:], raw)
	return key, nil
}
