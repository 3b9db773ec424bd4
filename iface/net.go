package iface

// PacketInfo carries link-layer receive metadata.
type PacketInfo struct {
	RSSIdBm     float32
	FreqErrHz   float32
	Timestamped bool
}

// NetDev sends and receives link-layer frames.
type NetDev interface {
	SendFrame(frame []byte) error
	// ReceiveFrame blocks until a frame arrives and returns its length.
	ReceiveFrame(buf []byte) (int, PacketInfo, error)
}

// TcpIp creates sockets on one TCP/IP stack instance.
type TcpIp interface {
	NewSocket() (TcpIpSocket, error)
}

// TcpIpSocket is a single connection. Send may return a short count.
// Receive distinguishes no-data (errcode.Empty) from a closed peer
// (errcode.Disconnected).
type TcpIpSocket interface {
	Connect(host string, port uint16) error
	Disconnect() error
	Send(buf []byte) (int, error)
	Receive(buf []byte) (int, error)
}

// CellularStatus is the registration state of a modem.
type CellularStatus int

const (
	CellularNotRegistered CellularStatus = iota
	CellularSearching
	CellularRegisteredHome
	CellularRegisteredRoaming
	CellularDenied
)

// Cellular controls a cellular modem.
type Cellular interface {
	Start() error
	Stop() error
	IMEI() (string, error)
	Status() (CellularStatus, error)
	Operator() (string, error)
	RunUSSD(request string) (string, error)
}
