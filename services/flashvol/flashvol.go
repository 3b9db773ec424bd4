// Package flashvol carves a physical flash device into named, statically
// configured volumes. A volume implements the same Flash interface with
// translated addresses; its level-0 size is the volume size and a whole-
// volume erase runs as a loop of physical block erases inside the volume
// range.
package flashvol

import (
	"plumcore-go/errcode"
	"plumcore-go/iface"
	"plumcore-go/ulog"
)

const moduleName = "flash-vol-static"

// maxVolumes bounds the static volume table.
const maxVolumes = 8

// Volumes manages the volume table of one physical device.
type Volumes struct {
	pv  iface.Flash
	lvs []*Volume
}

// New binds the service to a physical flash device.
func New(pv iface.Flash) (*Volumes, error) {
	if pv == nil {
		return nil, errcode.Null
	}
	return &Volumes{pv: pv}, nil
}

// Create carves a volume at [start, start+size) of the physical device.
func (v *Volumes) Create(name string, start, size int64) (*Volume, error) {
	if name == "" || start < 0 || size <= 0 {
		return nil, errcode.BadArg
	}
	if len(v.lvs) >= maxVolumes {
		return nil, errcode.Full
	}
	pvSize, _, err := v.pv.GetSize(0)
	if err != nil {
		return nil, err
	}
	if start+size > pvSize {
		return nil, errcode.BadArg
	}
	ulog.Infof(moduleName, "creating LV '%s', start 0x%x, size %d K", name, start, size/1024)
	lv := &Volume{pv: v.pv, name: name, start: start, size: size}
	v.lvs = append(v.lvs, lv)
	return lv, nil
}

// Volume is one contiguous subrange exposed as an independent Flash device.
type Volume struct {
	pv    iface.Flash
	name  string
	start int64
	size  int64
}

// Name returns the configured volume name.
func (l *Volume) Name() string { return l.name }

// GetSize reports the volume size at level 0 and delegates higher levels to
// the physical device.
func (l *Volume) GetSize(level int) (int64, iface.BlockOps, error) {
	if level == 0 {
		return l.size, iface.BlockOpsErase, nil
	}
	return l.pv.GetSize(level)
}

// Erase erases inside the volume. A whole-volume erase is implemented with
// physical block erases inside the translated range.
func (l *Volume) Erase(addr, length int64) error {
	if addr < 0 || addr >= l.size || addr+length > l.size {
		return errcode.Failed
	}
	if addr == 0 && length == l.size {
		blockSize, _, err := l.pv.GetSize(1)
		if err != nil {
			return err
		}
		for i := int64(0); i < length/blockSize; i++ {
			if err := l.pv.Erase(l.start+i*blockSize, blockSize); err != nil {
				return err
			}
		}
		return nil
	}
	return l.pv.Erase(addr+l.start, length)
}

// Write translates the address and bound-checks against the volume size.
func (l *Volume) Write(addr int64, buf []byte) error {
	if addr < 0 || addr >= l.size || addr+int64(len(buf)) > l.size {
		return errcode.Failed
	}
	return l.pv.Write(addr+l.start, buf)
}

// Read translates the address and bound-checks against the volume size.
func (l *Volume) Read(addr int64, buf []byte) error {
	if addr < 0 || addr >= l.size || addr+int64(len(buf)) > l.size {
		return errcode.Failed
	}
	return l.pv.Read(addr+l.start, buf)
}
