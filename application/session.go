package application

import (
	"context"

	"eternalterm/domain/packet"
)

// ConnectStatus is the status field of a ConnectResponse.
type ConnectStatus int

const (
	NewClient ConnectStatus = iota + 1
	ReturningClient
	InvalidKey
	MismatchedProtocol
)

func (s ConnectStatus) String() string {
	switch s {
	case NewClient:
		return "NEW_CLIENT"
	case ReturningClient:
		return "RETURNING_CLIENT"
	case InvalidKey:
		return "INVALID_KEY"
	case MismatchedProtocol:
		return "MISMATCHED_PROTOCOL"
	default:
		return "UNKNOWN"
	}
}

// ConnectRequest is the first plaintext message a client sends on a new
// socket, before any BackedReader/BackedWriter exists.
type ConnectRequest struct {
	Version  int32
	ClientID string
}

// ConnectResponse is the server's reply to ConnectRequest.
type ConnectResponse struct {
	Status ConnectStatus
	Error  string
}

// SequenceHeader is exchanged during the recovery handshake: the
// sequence number each side's reader last successfully delivered.
type SequenceHeader struct {
	SequenceNumber int64
}

// CatchupBuffer carries the ciphertexts a writer replays during recovery,
// in original order.
type CatchupBuffer struct {
	Buffer [][]byte
}

// ConnState is the client-side Connection state machine.
type ConnState int

const (
	StateInit ConnState = iota
	StateAlive
	StateDead
	StateRecovering
	StateShutdown
)

func (s ConnState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateAlive:
		return "ALIVE"
	case StateDead:
		return "DEAD"
	case StateRecovering:
		return "RECOVERING"
	case StateShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// Connection is the bidirectional session both ClientConnection and
// ServerClientConnection build on.
type Connection interface {
	// Write sends one Packet over the session's BackedWriter.
	Write(p packet.Packet) (WriteResult, error)
	// Read receives the next Packet delivered by the session's
	// BackedReader.
	Read() (packet.Packet, bool, error)
	// Shutdown idempotently tears the session down.
	Shutdown()
}

// ClientConnection is the client-side session: it owns the reconnect
// worker and transitions INIT -> ALIVE -> DEAD -> RECOVERING -> ALIVE
// (or SHUTDOWN on INVALID_KEY).
type ClientConnection interface {
	Connection
	State() ConnState
	Run(ctx context.Context) error
}
