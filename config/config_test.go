package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePipeline(t *testing.T) {
	doc := []byte(`{
		"log": {"level": "debug"},
		"flash": {
			"volumes": [{"name": "log", "start": 65536, "size": 1048576}],
			"fifo": {"volume": "log",
				"keystream_key": "000102030405060708090a0b0c0d0e0f",
				"mac_key": "f0e0d0c0b0a090807060504030201000"}
		},
		"pipeline": {
			"channels": [{"index": 0, "topic": "acc/x", "max_samples": 64}],
			"batchers": [{"sub_topic": "acc/x", "pub_topic": "acc/x/batch", "dtype": "int16", "size": 256}],
			"log_sinks": ["temp"]
		}
	}`)
	s, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "debug", s.Log.Level)
	require.Len(t, s.Flash.Volumes, 1)
	assert.Equal(t, int64(1048576), s.Flash.Volumes[0].Size)
	require.Len(t, s.Pipeline.Channels, 1)
	assert.Equal(t, "acc/x", s.Pipeline.Channels[0].Topic)
	assert.Equal(t, []string{"temp"}, s.Pipeline.LogSinks)

	key, err := ParseKey(s.Flash.Fifo.KeystreamKey)
	require.NoError(t, err)
	assert.Equal(t, byte(0x0f), key[15])
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("not json"))
	assert.Error(t, err)

	_, err = ParseKey("short")
	assert.Error(t, err)
}
