package modem

import "errors"

// ErrWouldBlock is returned by Socket/Listener operations when no
// data/connection is available right now (spec.md §6: "error values
// must distinguish would-block from fatal").
var ErrWouldBlock = errors.New("modem: would block")

// Socket is a non-blocking duplex byte stream (spec.md §6 "TCP socket
// operations (consumed by modem)").
type Socket interface {
	Send(data []byte) (int, error)
	Recv(buf []byte) (int, error)
	Close() error
}

// Listener accepts inbound connections non-blockingly.
type Listener interface {
	Accept() (Socket, error)
	Close() error
}

// SocketOps is the platform seam the modem dials and listens through.
type SocketOps interface {
	Dial(hostPort string) (Socket, error)
	Listen(port uint16) (Listener, error)
}
