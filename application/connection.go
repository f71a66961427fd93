package application

import "net"

// Dialer establishes the underlying transport connection a
// ClientConnection dials and redials over — the client's notion of an
// "endpoint" for both the initial connect and every later reconnect.
type Dialer[T net.Conn] interface {
	Establish() (T, error)
}
