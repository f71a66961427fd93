// Package portforward defines the value types a forwarded socket is
// described by: endpoint specs and the monotonically allocated id that
// ties a source-side fd to a destination-side fd across the session.
package portforward

import "fmt"

// SocketID identifies one forwarded stream for the lifetime of the
// session. Allocated by the destination side, monotonically, starting at 1.
type SocketID int32

// Network selects how an Endpoint is dialed or listened on.
type Network int

const (
	NetworkTCP Network = iota
	NetworkUnix
)

func (n Network) String() string {
	if n == NetworkUnix {
		return "unix"
	}
	return "tcp"
}

// Endpoint is one side of a forward: a TCP host:port or a filesystem path
// to a UNIX domain socket.
type Endpoint struct {
	Network Network
	Host    string // TCP only
	Port    int    // TCP only
	Path    string // Unix only
}

func (e Endpoint) String() string {
	if e.Network == NetworkUnix {
		return e.Path
	}
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// EnvVarSource describes a source spec bound to a freshly generated UNIX
// socket path rather than a fixed one, so the path can be exported as an
// environment variable on the destination side (ssh-agent forwarding is
// the canonical use).
type EnvVarSource struct {
	EnvVar string
	Dest   Endpoint
}

// ForwardSpec is a (source, destination) pair as given on the command
// line: the source side listens, the destination side dials.
type ForwardSpec struct {
	Source Endpoint
	Dest   Endpoint
}
