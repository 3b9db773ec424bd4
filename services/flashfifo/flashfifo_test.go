package flashfifo

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plumcore-go/drivers/memflash"
	"plumcore-go/errcode"
	"plumcore-go/iface"
	"plumcore-go/services/flashvol"
)

const (
	kib = 1024
	mib = 1024 * kib
)

func testConfig() Config {
	var cfg Config
	for i := 0; i < KeySize; i++ {
		cfg.KeystreamKey[i] = byte(0xA0 + i)
		cfg.MacKey[i] = byte(0x10 + i)
	}
	return cfg
}

// newVolume carves a 1 MiB volume with 4 KiB erase blocks and 256 B pages.
func newVolume(t *testing.T) iface.Flash {
	t.Helper()
	pv, err := memflash.New(2*mib, 4*kib, 4*kib, 256)
	require.NoError(t, err)
	vols, err := flashvol.New(pv)
	require.NoError(t, err)
	lv, err := vols.Create("log", 64*kib, mib)
	require.NoError(t, err)
	return lv
}

func pattern(n int) []byte {
	rng := rand.New(rand.NewSource(7))
	buf := make([]byte, n)
	rng.Read(buf)
	return buf
}

func writeAll(t *testing.T, f iface.File, data []byte, chunk int) int {
	t.Helper()
	total := 0
	for off := 0; off < len(data); off += chunk {
		end := off + chunk
		if end > len(data) {
			end = len(data)
		}
		n, err := f.Write(data[off:end])
		total += n
		if err != nil {
			require.Equal(t, errcode.Full, errcode.Of(err))
			return total
		}
	}
	return total
}

func readAll(t *testing.T, f iface.File) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, 16)
	for {
		n, err := f.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			require.Equal(t, errcode.Empty, errcode.Of(err))
			return out
		}
	}
}

func TestKeysAreMandatory(t *testing.T) {
	lv := newVolume(t)
	_, err := New(lv, Config{})
	assert.Equal(t, errcode.BadArg, errcode.Of(err))
}

func TestWriteReadRoundTrip(t *testing.T) {
	lv := newVolume(t)
	fifo, err := New(lv, testConfig())
	require.NoError(t, err)

	data := pattern(10000)
	wf, err := fifo.Open(QueueName, iface.ModeWriteOnly)
	require.NoError(t, err)
	require.Equal(t, len(data), writeAll(t, wf, data, 1000))
	require.NoError(t, wf.Close())

	rf, err := fifo.Open(QueueName, iface.ModeReadOnly)
	require.NoError(t, err)
	got := readAll(t, rf)
	require.NoError(t, rf.Close())
	assert.True(t, bytes.Equal(data, got), "read-back differs (%d vs %d bytes)", len(got), len(data))
}

func TestRecoveryAfterReboot(t *testing.T) {
	lv := newVolume(t)
	fifo, err := New(lv, testConfig())
	require.NoError(t, err)

	data := pattern(500000) // 10 x 50 kB chunks
	wf, err := fifo.Open(QueueName, iface.ModeWriteOnly)
	require.NoError(t, err)
	require.Equal(t, len(data), writeAll(t, wf, data, 50000))
	require.NoError(t, wf.Close())
	headBefore := fifo.head % fifo.blocks

	// Reboot: rebuild the cursors from storage alone.
	fifo2, err := New(lv, testConfig())
	require.NoError(t, err)
	assert.Equal(t, headBefore, fifo2.head%fifo2.blocks)

	rf, err := fifo2.Open(QueueName, iface.ModeReadOnly)
	require.NoError(t, err)
	got := readAll(t, rf)
	require.NoError(t, rf.Close())
	assert.True(t, bytes.Equal(data, got), "read-back differs after reboot")

	// Consuming the oldest block and collecting it reclaims space.
	info1, err := fifo2.Info()
	require.NoError(t, err)
	require.NoError(t, fifo2.Remove(QueueName))
	require.NoError(t, fifo2.GC())
	info2, err := fifo2.Info()
	require.NoError(t, err)
	assert.Less(t, info2.SizeUsed, info1.SizeUsed)
}

func TestWriteUntilFullThenDrain(t *testing.T) {
	lv := newVolume(t)
	fifo, err := New(lv, testConfig())
	require.NoError(t, err)

	data := pattern(130 * 50000) // far beyond the volume capacity
	wf, err := fifo.Open(QueueName, iface.ModeWriteOnly)
	require.NoError(t, err)
	written := writeAll(t, wf, data, 50000)
	require.NoError(t, wf.Close())
	require.Less(t, written, len(data))
	require.Greater(t, written, 900*kib)

	rf, err := fifo.Open(QueueName, iface.ModeReadOnly)
	require.NoError(t, err)
	got := readAll(t, rf)
	require.NoError(t, rf.Close())
	assert.Equal(t, written, len(got))
	assert.True(t, bytes.Equal(data[:written], got))
}

func TestRemoveAndGCAdvanceTail(t *testing.T) {
	lv := newVolume(t)
	fifo, err := New(lv, testConfig())
	require.NoError(t, err)

	wf, err := fifo.Open(QueueName, iface.ModeWriteOnly)
	require.NoError(t, err)
	require.Equal(t, 20000, writeAll(t, wf, pattern(20000), 5000))
	require.NoError(t, wf.Close())

	// Nothing is tail yet, GC has nothing to do.
	assert.Error(t, fifo.GC())

	require.NoError(t, fifo.Remove(QueueName))
	last := fifo.last
	assert.Equal(t, fifo.tail+1, last)
	require.NoError(t, fifo.GC())
	assert.Equal(t, last, fifo.tail)
}

func TestMacMismatchZeroisesBuffer(t *testing.T) {
	pv, err := memflash.New(mib, 4*kib, 4*kib, 256)
	require.NoError(t, err)
	fifo, err := New(pv, testConfig())
	require.NoError(t, err)

	data := pattern(8000) // spans more than one sealed block
	wf, err := fifo.Open(QueueName, iface.ModeWriteOnly)
	require.NoError(t, err)
	require.Equal(t, len(data), writeAll(t, wf, data, 8000))
	require.NoError(t, wf.Close())

	// Flip stored ciphertext bits inside the first sealed block.
	tamper := []byte{0x00}
	require.NoError(t, pv.Write(int64(256)+100, tamper))

	rf, err := fifo.Open(QueueName, iface.ModeReadOnly)
	require.NoError(t, err)
	buf := make([]byte, 64)
	_, err = rf.Read(buf)
	assert.Equal(t, errcode.Failed, errcode.Of(err))
}

func TestBitmapRoundTrip(t *testing.T) {
	var bm [bitmapWords]uint32
	g := int64(4)
	for _, off := range []int64{0, 1, 4, 80, 800, 3840} {
		offsetToBitmap(&bm, off, g)
		got := bitmapToOffset(bm, g)
		// Decoding rounds up to the granularity.
		want := ((off + g - 1) / g) * g
		assert.Equal(t, want, got, "offset %d", off)
	}
}
