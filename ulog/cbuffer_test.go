package ulog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(c *CBuffer) []Record {
	var out []Record
	c.Each(func(r Record) { out = append(out, r) })
	return out
}

func TestCBufferAppendAndDecode(t *testing.T) {
	c, err := NewCBuffer(make([]byte, 1024))
	require.NoError(t, err)
	c.SetTimeFunc(func() uint32 { return 42 })

	c.Append(RecordWarn, "hello")
	recs := collect(c)
	require.Len(t, recs, 2)
	assert.Equal(t, "clog initialized", recs[0].Message)
	assert.Equal(t, RecordWarn, recs[1].Type)
	assert.Equal(t, uint32(42), recs[1].Time)
	assert.Equal(t, "hello", recs[1].Message)
}

func TestCBufferRecordLayout(t *testing.T) {
	data := make([]byte, 1024)
	c, err := NewCBuffer(data)
	require.NoError(t, err)
	c.SetTimeFunc(func() uint32 { return 0x01020304 })
	c.Append(RecordError, "ab")

	pos := c.next(0)
	require.Equal(t, RecordError, data[pos])
	assert.Equal(t, byte(0), data[pos+1])
	// len includes the NUL terminator, big-endian.
	assert.Equal(t, byte(0), data[pos+2])
	assert.Equal(t, byte(3), data[pos+3])
	assert.Equal(t, []byte{1, 2, 3, 4}, data[pos+4:pos+8])
	assert.Equal(t, []byte{'a', 'b', 0}, data[pos+8:pos+11])
}

func TestCBufferWrapsAndEvicts(t *testing.T) {
	c, err := NewCBuffer(make([]byte, 300))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		c.Append(RecordInfo, fmt.Sprintf("record number %02d with some padding", i))
	}
	recs := collect(c)
	require.NotEmpty(t, recs)
	// The newest record always survives; the oldest ones were evicted.
	assert.Equal(t, "record number 49 with some padding", recs[len(recs)-1].Message)
	assert.Less(t, len(recs), 50)
}

func TestCBufferTooSmall(t *testing.T) {
	_, err := NewCBuffer(make([]byte, 16))
	assert.Error(t, err)
}

func TestLoggerRingMirror(t *testing.T) {
	c, err := NewCBuffer(make([]byte, 2048))
	require.NoError(t, err)
	l := NewLogger(&Config{Level: LevelDebug, Output: discard{}})
	l.AttachRing(c)

	l.Infof("mod", "value %d", 5)
	recs := collect(c)
	require.Len(t, recs, 2)
	assert.Equal(t, "mod: value 5", recs[1].Message)
	assert.Equal(t, RecordInfo, recs[1].Type)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
