package flashfifo

import (
	"plumcore-go/errcode"
	"plumcore-go/iface"
	"plumcore-go/ulog"
)

// The queue is exposed through the generic filesystem surface as a single
// file named "fifo". Opening it read-only rewinds to the oldest unconsumed
// block; remove consumes the oldest block; the rest of the surface is not
// meaningful for a queue.

// QueueName is the only path the facade serves.
const QueueName = "fifo"

// Open implements iface.Fs.
func (f *Fifo) Open(path string, mode iface.Mode) (iface.File, error) {
	if path != QueueName {
		return nil, errcode.Failed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch mode {
	case iface.ModeReadOnly:
		f.rd = reader{open: true, block: f.last}
		return &file{fifo: f, write: false}, nil
	case iface.ModeWriteOnly:
		f.rd = reader{open: true, wr: true}
		return &file{fifo: f, write: true}, nil
	}
	return nil, errcode.Failed
}

// Remove consumes the oldest stored block: it transitions from fifo to tail
// and becomes eligible for garbage collection.
func (f *Fifo) Remove(path string) error {
	if path != QueueName {
		return errcode.Failed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remove()
}

// Rename is not meaningful for the queue.
func (f *Fifo) Rename(oldPath, newPath string) error { return errcode.NotImplemented }

// Stat is not meaningful for the queue.
func (f *Fifo) Stat(path string) (iface.FsStat, error) {
	return iface.FsStat{}, errcode.NotImplemented
}

// Info reports capacity in data-region bytes.
func (f *Fifo) Info() (iface.FsInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return iface.FsInfo{
		SizeTotal: int64(f.blocks) * f.dataSize(),
		SizeUsed:  int64(f.head-f.tail) * f.dataSize(),
	}, nil
}

// OpenDir is not meaningful for the queue.
func (f *Fifo) OpenDir(path string) (iface.Dir, error) { return nil, errcode.NotImplemented }

type file struct {
	fifo  *Fifo
	write bool
}

func (fl *file) Read(buf []byte) (int, error) {
	if fl.write {
		return 0, errcode.Failed
	}
	fl.fifo.mu.Lock()
	defer fl.fifo.mu.Unlock()
	return fl.fifo.readLocked(buf)
}

func (fl *file) Write(buf []byte) (int, error) {
	if !fl.write {
		return 0, errcode.Failed
	}
	return fl.fifo.Write(buf)
}

func (fl *file) Seek(offset int64, whence iface.Whence) (int64, error) {
	return 0, errcode.NotImplemented
}

func (fl *file) Flush() error { return nil }

func (fl *file) Close() error {
	fl.fifo.mu.Lock()
	defer fl.fifo.mu.Unlock()
	fl.fifo.rd = reader{}
	return nil
}

// loadBlock decrypts the current read block into the reader cache and
// verifies sealed blocks against their MAC. On a MAC mismatch the decrypted
// buffer is zeroised before returning.
func (f *Fifo) loadBlock() error {
	h, err := f.readHeader(f.rd.block)
	if err != nil {
		return errcode.Failed
	}
	if h.magic != MagicFifo && h.magic != MagicHead {
		return errcode.Empty
	}
	hw := bitmapToOffset(h.bitmap, f.granularity())
	if hw > f.dataSize() {
		hw = f.dataSize()
	}
	buf := make([]byte, hw)
	if hw > 0 {
		if err := f.flash.Read(int64(f.rd.block%f.blocks)*f.blockSize+f.pageSize, buf); err != nil {
			return errcode.Failed
		}
		keystreamXOR(f.cfg.KeystreamKey[:], h.iv[:], 0, buf)
	}
	if h.magic == MagicFifo {
		if macOf(f.cfg.MacKey[:], buf) != h.mac {
			for i := range buf {
				buf[i] = 0
			}
			ulog.Errorf(moduleName, "block %d: MAC mismatch", f.rd.block%f.blocks)
			return errcode.Failed
		}
	}
	f.rd.buf = buf
	f.rd.hw = hw
	f.rd.off = 0
	return nil
}

// readLocked linearly drains decrypted blocks from the oldest unconsumed
// block through the head. It returns errcode.Empty when everything stored
// has been read.
func (f *Fifo) readLocked(buf []byte) (int, error) {
	if !f.rd.open || f.rd.wr {
		return 0, errcode.NotOpened
	}
	total := 0
	for len(buf) > 0 {
		if f.rd.buf == nil {
			if err := f.loadBlock(); err != nil {
				if total > 0 {
					return total, nil
				}
				return 0, err
			}
		}
		n := copy(buf, f.rd.buf[f.rd.off:f.rd.hw])
		if n == 0 {
			if f.rd.block == f.head {
				if total > 0 {
					return total, nil
				}
				return 0, errcode.Empty
			}
			f.rd.block++
			f.rd.buf = nil
			continue
		}
		f.rd.off += int64(n)
		total += n
		buf = buf[n:]
	}
	return total, nil
}
