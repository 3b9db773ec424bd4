package iface

// BlockDevice is storage addressed in fixed-size blocks (SD/MMC cards,
// eMMC). Buffers passed to ReadBlock/WriteBlock must be exactly one block
// long.
type BlockDevice interface {
	BlockSize() int
	NumBlocks() int64
	ReadBlock(index int64, buf []byte) error
	WriteBlock(index int64, buf []byte) error
}
