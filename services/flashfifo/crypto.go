package flashfifo

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"hash"
	"math/bits"

	"golang.org/x/crypto/blake2s"

	"plumcore-go/errcode"
	"plumcore-go/iface"
	"plumcore-go/x/mathx"
)

// Header layout: magic u32 BE, bitmap words BE, IV, MAC.

func decodeHeader(buf []byte) header {
	var h header
	h.magic = binary.BigEndian.Uint32(buf)
	for i := 0; i < bitmapWords; i++ {
		h.bitmap[i] = binary.BigEndian.Uint32(buf[4+4*i:])
	}
	copy(h.iv[:], buf[4+bitmapWords*4:])
	copy(h.mac[:], buf[4+bitmapWords*4+ivSize:])
	return h
}

func encodeHeader(h header) []byte {
	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint32(buf, h.magic)
	for i := 0; i < bitmapWords; i++ {
		binary.BigEndian.PutUint32(buf[4+4*i:], h.bitmap[i])
	}
	copy(buf[4+bitmapWords*4:], h.iv[:])
	copy(buf[4+bitmapWords*4+ivSize:], h.mac[:])
	return buf
}

// bitmapToOffset decodes the high-water mark: the number of leading zero
// bits times the bitmap granularity. The rest of the bitmap is all ones.
func bitmapToOffset(bitmap [bitmapWords]uint32, granularity int64) int64 {
	z := 0
	for _, w := range bitmap {
		if w == 0 {
			z += 32
			continue
		}
		z += bits.LeadingZeros32(w)
		break
	}
	return granularity * int64(z)
}

// offsetToBitmap encodes the high-water mark, rounding the offset up to the
// granularity. Encoding only ever clears bits, matching NOR write
// semantics.
func offsetToBitmap(bitmap *[bitmapWords]uint32, offset, granularity int64) {
	nbits := int64(mathx.CeilDiv(uint64(offset), uint64(granularity)))
	for i := range bitmap {
		switch {
		case nbits >= 32:
			bitmap[i] = 0
			nbits -= 32
		case nbits > 0:
			bitmap[i] = ^uint32(0) >> nbits
			nbits = 0
		default:
			bitmap[i] = ^uint32(0)
		}
	}
}

// keystreamXOR XORs buf in place with the keystream of the block the IV
// belongs to, starting at the given byte offset into the data region. The
// keystream is BLAKE2s-128 of (IV || block counter BE) under the keystream
// key, 16 bytes per counter step.
func keystreamXOR(key, iv []byte, offset int64, buf []byte) {
	var block [blake2s.Size128]byte
	blockIdx := int64(-1)
	for i := range buf {
		j := offset + int64(i)
		if idx := j / blake2s.Size128; idx != blockIdx {
			blockIdx = idx
			block = ksBlock(key, iv, uint32(idx))
		}
		buf[i] ^= block[j%blake2s.Size128]
	}
}

func ksBlock(key, iv []byte, counter uint32) [blake2s.Size128]byte {
	h, err := blake2s.New128(key)
	if err != nil {
		// Key length is validated at construction.
		panic(err)
	}
	h.Write(iv)
	var ctr [4]byte
	binary.BigEndian.PutUint32(ctr[:], counter)
	h.Write(ctr[:])
	var out [blake2s.Size128]byte
	h.Sum(out[:0])
	return out
}

// runningMac accumulates the keyed MAC over a block's plaintext stream.
type runningMac struct {
	h     hash.Hash
	count int64
}

func newRunningMac(key []byte) *runningMac {
	h, err := blake2s.New128(key)
	if err != nil {
		panic(err)
	}
	return &runningMac{h: h}
}

func (m *runningMac) Write(p []byte) {
	m.h.Write(p)
	m.count += int64(len(p))
}

func (m *runningMac) Sum() []byte { return m.h.Sum(nil) }

// macOf computes the MAC of a complete plaintext region.
func macOf(key, plaintext []byte) [macSize]byte {
	m := newRunningMac(key)
	m.Write(plaintext)
	var out [macSize]byte
	copy(out[:], m.Sum())
	return out
}

func fillIV(iv []byte, rng iface.Rng) error {
	if rng != nil {
		return rng.Fill(iv)
	}
	if _, err := cryptorand.Read(iv); err != nil {
		return errcode.Failed
	}
	return nil
}
