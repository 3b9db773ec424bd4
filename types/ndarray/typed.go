package ndarray

import "unsafe"

// Typed accessors reinterpret the used portion of the buffer in place. The
// returned slice aliases the array storage; it is valid until the array is
// freed or reallocated. The backing buffer comes from make([]byte, ...) or a
// caller buffer and is always at least element-aligned on the supported
// targets.

// Float32s returns the used elements of a Float32 array. It returns nil when
// the dtype does not match.
func (a *Array) Float32s() []float32 {
	if a.dtype != Float32 || a.asize == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&a.buf[0])), a.asize)
}

// Int16s returns the used elements of an I16 array.
func (a *Array) Int16s() []int16 {
	if a.dtype != I16 || a.asize == 0 {
		return nil
	}
	return unsafe.Slice((*int16)(unsafe.Pointer(&a.buf[0])), a.asize)
}

// Int32s returns the used elements of an I32 array.
func (a *Array) Int32s() []int32 {
	if a.dtype != I32 || a.asize == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&a.buf[0])), a.asize)
}

// Uint16s returns the used elements of a U16 array.
func (a *Array) Uint16s() []uint16 {
	if a.dtype != U16 || a.asize == 0 {
		return nil
	}
	return unsafe.Slice((*uint16)(unsafe.Pointer(&a.buf[0])), a.asize)
}

// Uint32s returns the used elements of a U32 array.
func (a *Array) Uint32s() []uint32 {
	if a.dtype != U32 || a.asize == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&a.buf[0])), a.asize)
}

// AppendFloat32 appends a single float32 element, growing the used length.
// It returns Full via the count: 0 means no capacity left.
func (a *Array) AppendFloat32(v float32) int {
	if a.dtype != Float32 || a.asize >= a.Cap() {
		return 0
	}
	a.asize++
	a.Float32s()[a.asize-1] = v
	return 1
}

// AppendInt16 appends a single int16 element.
func (a *Array) AppendInt16(v int16) int {
	if a.dtype != I16 || a.asize >= a.Cap() {
		return 0
	}
	a.asize++
	a.Int16s()[a.asize-1] = v
	return 1
}
