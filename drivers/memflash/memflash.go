// Package memflash implements the Flash interface over a byte slice with
// NOR semantics: erase sets a whole erase block to 0xFF, writes can only
// clear bits (bitwise AND). It backs host-side tests and volatile staging
// volumes; the write behaviour matters for consumers that rewrite headers
// in place and rely on 1->0 transitions.
package memflash

import (
	"sync"

	"plumcore-go/errcode"
	"plumcore-go/iface"
)

type level struct {
	size int64
	ops  iface.BlockOps
}

// Flash is an in-memory NOR flash device.
type Flash struct {
	mu     sync.Mutex
	data   []byte
	levels []level
}

// New creates a device of the given geometry. Sizes must nest evenly:
// chip % block == 0, block % sector == 0, sector % page == 0.
func New(chipSize, blockSize, sectorSize, pageSize int64) (*Flash, error) {
	if chipSize <= 0 || blockSize <= 0 || sectorSize <= 0 || pageSize <= 0 ||
		chipSize%blockSize != 0 || blockSize%sectorSize != 0 || sectorSize%pageSize != 0 {
		return nil, errcode.BadArg
	}
	f := &Flash{
		data: make([]byte, chipSize),
		levels: []level{
			{chipSize, iface.BlockOpsErase},
			{blockSize, iface.BlockOpsErase},
			{sectorSize, iface.BlockOpsErase},
			{pageSize, iface.BlockOpsRead | iface.BlockOpsWrite},
		},
	}
	for i := range f.data {
		f.data[i] = 0xff
	}
	return f, nil
}

// GetSize reports one level of the block hierarchy.
func (f *Flash) GetSize(level int) (int64, iface.BlockOps, error) {
	if level < 0 || level >= len(f.levels) {
		return 0, 0, errcode.BadArg
	}
	return f.levels[level].size, f.levels[level].ops, nil
}

// Erase resets erase blocks to 0xFF. The range must be aligned to and sized
// in whole erase blocks.
func (f *Flash) Erase(addr, length int64) error {
	block := f.levels[1].size
	if addr < 0 || length <= 0 || addr+length > f.levels[0].size ||
		addr%block != 0 || length%block != 0 {
		return errcode.BadArg
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := addr; i < addr+length; i++ {
		f.data[i] = 0xff
	}
	return nil
}

// Write clears bits: the stored byte becomes old AND new, as NOR flash
// programs it.
func (f *Flash) Write(addr int64, buf []byte) error {
	if addr < 0 || addr+int64(len(buf)) > f.levels[0].size {
		return errcode.BadArg
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range buf {
		f.data[addr+int64(i)] &= b
	}
	return nil
}

// Read copies out of the device.
func (f *Flash) Read(addr int64, buf []byte) error {
	if addr < 0 || addr+int64(len(buf)) > f.levels[0].size {
		return errcode.BadArg
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(buf, f.data[addr:])
	return nil
}
