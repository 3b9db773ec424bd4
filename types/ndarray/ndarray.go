// Package ndarray implements a dtype-tagged one-dimensional array used as the
// payload of all message queue traffic. The array carries enough metadata to
// be transported opaquely and reinterpreted by the receiver.
package ndarray

import (
	"math"

	"plumcore-go/errcode"
)

// DType enumerates the closed set of element types.
type DType uint8

const (
	U8 DType = iota
	I8
	U16
	I16
	U32
	I32
	Float32
	Bool
)

var dsizes = [...]int{U8: 1, I8: 1, U16: 2, I16: 2, U32: 4, I32: 4, Float32: 4, Bool: 1}

// Size returns the element size in bytes, 0 for an unknown dtype.
func (d DType) Size() int {
	if int(d) >= len(dsizes) {
		return 0
	}
	return dsizes[d]
}

func (d DType) String() string {
	switch d {
	case U8:
		return "uint8"
	case I8:
		return "int8"
	case U16:
		return "uint16"
	case I16:
		return "int16"
	case U32:
		return "uint32"
	case I32:
		return "int32"
	case Float32:
		return "float32"
	case Bool:
		return "bool"
	}
	return "unknown"
}

// Array is a sized buffer view with a constant dtype. The buffer is either
// owned (allocated by InitEmpty/InitZero) or borrowed (InitView). A view must
// not outlive its backing buffer.
type Array struct {
	dtype DType
	asize int
	buf   []byte
	view  bool
}

// InitEmpty binds an owned buffer with capacity for asize elements and zero
// used length.
func (a *Array) InitEmpty(dtype DType, asize int) error {
	ds := dtype.Size()
	if ds == 0 || asize < 0 {
		return errcode.BadArg
	}
	a.dtype = dtype
	a.asize = 0
	a.buf = make([]byte, asize*ds)
	a.view = false
	return nil
}

// InitZero allocates like InitEmpty but the array starts with asize zeroed
// elements.
func (a *Array) InitZero(dtype DType, asize int) error {
	if err := a.InitEmpty(dtype, asize); err != nil {
		return err
	}
	a.asize = asize
	return nil
}

// InitView binds an externally owned buffer. The buffer must hold at least
// asize elements; the array never grows past len(buf).
func (a *Array) InitView(dtype DType, asize int, buf []byte) error {
	ds := dtype.Size()
	if ds == 0 || asize < 0 || len(buf) < asize*ds {
		return errcode.BadArg
	}
	a.dtype = dtype
	a.asize = asize
	a.buf = buf
	a.view = true
	return nil
}

// DType returns the constant element type.
func (a *Array) DType() DType { return a.dtype }

// Len returns the number of used elements.
func (a *Array) Len() int { return a.asize }

// Cap returns the allocated capacity in elements.
func (a *Array) Cap() int {
	ds := a.dtype.Size()
	if ds == 0 {
		return 0
	}
	return len(a.buf) / ds
}

// Bytes returns the used portion of the raw buffer.
func (a *Array) Bytes() []byte { return a.buf[:a.asize*a.dtype.Size()] }

// Raw returns the whole backing buffer including unused capacity.
func (a *Array) Raw() []byte { return a.buf }

// SetLen adjusts the used length. n must not exceed the capacity.
func (a *Array) SetLen(n int) error {
	if n < 0 || n > a.Cap() {
		return errcode.BadArg
	}
	a.asize = n
	return nil
}

// Reset clears the used length, keeping the buffer.
func (a *Array) Reset() { a.asize = 0 }

// Retype rebinds the buffer to a new dtype with zero used length. The
// capacity is reinterpreted in elements of the new type. Used by message
// receivers that adopt the dtype of an incoming array.
func (a *Array) Retype(dtype DType) error {
	if dtype.Size() == 0 {
		return errcode.BadArg
	}
	a.dtype = dtype
	a.asize = 0
	return nil
}

// Append copies elements from src until either src is exhausted or the
// destination is full. It returns the number of elements actually appended.
// Both arrays must have the same dtype.
func (a *Array) Append(src *Array) (int, error) {
	if src == nil {
		return 0, errcode.Null
	}
	if a.dtype != src.dtype {
		return 0, errcode.BadArg
	}
	ds := a.dtype.Size()
	n := mincap(a.Cap()-a.asize, src.asize)
	copy(a.buf[a.asize*ds:], src.buf[:n*ds])
	a.asize += n
	return n, nil
}

// CopyFrom copies n elements from src starting at srcOff into the array at
// dstOff. All ranges are bounds-checked; the used length is not changed.
func (a *Array) CopyFrom(dstOff int, src *Array, srcOff, n int) error {
	if src == nil {
		return errcode.Null
	}
	if a.dtype != src.dtype || n < 0 || dstOff < 0 || srcOff < 0 ||
		dstOff+n > a.Cap() || srcOff+n > src.asize {
		return errcode.BadArg
	}
	ds := a.dtype.Size()
	copy(a.buf[dstOff*ds:(dstOff+n)*ds], src.buf[srcOff*ds:(srcOff+n)*ds])
	return nil
}

// Move copies n elements from srcOff to dstOff within the array. Overlapping
// ranges are safe (memmove semantics).
func (a *Array) Move(dstOff, srcOff, n int) error {
	if n < 0 || dstOff < 0 || srcOff < 0 || dstOff+n > a.Cap() || srcOff+n > a.Cap() {
		return errcode.BadArg
	}
	ds := a.dtype.Size()
	copy(a.buf[dstOff*ds:(dstOff+n)*ds], a.buf[srcOff*ds:(srcOff+n)*ds])
	return nil
}

// Zero clears the whole backing buffer.
func (a *Array) Zero() {
	for i := range a.buf {
		a.buf[i] = 0
	}
}

// Sqrt replaces every used element with its square root. Only float32 arrays
// are supported.
func (a *Array) Sqrt() error {
	if a.dtype != Float32 {
		return errcode.BadArg
	}
	f := a.Float32s()
	for i, v := range f {
		f[i] = float32(math.Sqrt(float64(v)))
	}
	return nil
}

// Free releases an owned buffer. Views keep their backing buffer untouched.
func (a *Array) Free() {
	if !a.view {
		a.buf = nil
	}
	a.asize = 0
}

func mincap(a, b int) int {
	if a < b {
		return a
	}
	return b
}
