package iface

import "time"

// Stream is a blocking byte stream. Read and Write block until at least one
// byte is transferred or the stream signals end-of-stream with
// errcode.Disconnected.
type Stream interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
}

// StreamTimeout is implemented by streams supporting bounded waits. A zero
// timeout polls; on expiry the operation returns errcode.Timeout with the
// partial count.
type StreamTimeout interface {
	ReadTimeout(buf []byte, timeout time.Duration) (int, error)
	WriteTimeout(buf []byte, timeout time.Duration) (int, error)
}
