package ndarray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDTypeSizes(t *testing.T) {
	assert.Equal(t, 1, U8.Size())
	assert.Equal(t, 1, I8.Size())
	assert.Equal(t, 2, U16.Size())
	assert.Equal(t, 2, I16.Size())
	assert.Equal(t, 4, U32.Size())
	assert.Equal(t, 4, I32.Size())
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 1, Bool.Size())
	assert.Equal(t, 0, DType(200).Size())
}

func TestAppendFillsToCapacity(t *testing.T) {
	for _, dtype := range []DType{U8, I8, U16, I16, U32, I32, Float32, Bool} {
		const n = 37
		var dst Array
		require.NoError(t, dst.InitEmpty(dtype, n))
		require.Equal(t, 0, dst.Len())
		require.Equal(t, n, dst.Cap())

		var one Array
		require.NoError(t, one.InitZero(dtype, 1))
		for i := 0; i < n; i++ {
			cnt, err := dst.Append(&one)
			require.NoError(t, err)
			require.Equal(t, 1, cnt)
		}
		assert.Equal(t, n, dst.Len(), "dtype %v", dtype)

		// Appending past capacity reports a short count and corrupts nothing.
		cnt, err := dst.Append(&one)
		require.NoError(t, err)
		assert.Equal(t, 0, cnt)
		assert.Equal(t, n, dst.Len())
	}
}

func TestAppendShortCount(t *testing.T) {
	var dst, src Array
	require.NoError(t, dst.InitEmpty(I16, 4))
	require.NoError(t, src.InitZero(I16, 10))
	for i := range src.Int16s() {
		src.Int16s()[i] = int16(i)
	}
	cnt, err := dst.Append(&src)
	require.NoError(t, err)
	assert.Equal(t, 4, cnt)
	assert.Equal(t, []int16{0, 1, 2, 3}, dst.Int16s())
}

func TestAppendDtypeMismatch(t *testing.T) {
	var dst, src Array
	require.NoError(t, dst.InitEmpty(I16, 4))
	require.NoError(t, src.InitZero(Float32, 4))
	_, err := dst.Append(&src)
	assert.Error(t, err)
}

func TestMoveOverlapping(t *testing.T) {
	var a Array
	require.NoError(t, a.InitZero(I16, 8))
	s := a.Int16s()
	for i := range s {
		s[i] = int16(i)
	}
	// Shift left by 3: destination precedes source, overlapping ranges.
	require.NoError(t, a.Move(0, 3, 5))
	assert.Equal(t, []int16{3, 4, 5, 6, 7, 5, 6, 7}, a.Int16s())
}

func TestCopyFromBounds(t *testing.T) {
	var dst, src Array
	require.NoError(t, dst.InitZero(U8, 8))
	require.NoError(t, src.InitZero(U8, 4))
	copy(src.Raw(), []byte{1, 2, 3, 4})

	require.NoError(t, dst.CopyFrom(2, &src, 1, 3))
	assert.Equal(t, []byte{0, 0, 2, 3, 4, 0, 0, 0}, dst.Bytes())

	assert.Error(t, dst.CopyFrom(6, &src, 0, 4))
	assert.Error(t, dst.CopyFrom(0, &src, 2, 3))
}

func TestViewDoesNotOwn(t *testing.T) {
	buf := []byte{1, 0, 2, 0}
	var v Array
	require.NoError(t, v.InitView(I16, 2, buf))
	assert.Equal(t, []int16{1, 2}, v.Int16s())
	v.Free()
	// The backing buffer survives a Free of the view.
	assert.Equal(t, []byte{1, 0, 2, 0}, buf)
}

func TestSqrt(t *testing.T) {
	var a Array
	require.NoError(t, a.InitZero(Float32, 3))
	f := a.Float32s()
	f[0], f[1], f[2] = 4, 9, 16
	require.NoError(t, a.Sqrt())
	assert.InDelta(t, 2, float64(f[0]), 1e-6)
	assert.InDelta(t, 3, float64(f[1]), 1e-6)
	assert.InDelta(t, 4, float64(f[2]), 1e-6)

	var i Array
	require.NoError(t, i.InitZero(I16, 1))
	assert.Error(t, i.Sqrt())
}
