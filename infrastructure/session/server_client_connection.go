package session

import (
	"eternalterm/application"
	"eternalterm/domain/packet"
	"eternalterm/infrastructure/cryptography"
	"eternalterm/infrastructure/transport"
)

// ServerClientConnection is the server-side per-client session: one
// baseConnection plus the client id it was registered under. Recover runs
// the recovery handshake against a freshly accepted socket when this
// client id reconnects.
type ServerClientConnection struct {
	baseConnection
	clientID string
	telem    application.Telemetry
}

// newServerClientConnection wires a brand new BackedReader/BackedWriter
// pair, directioned server->client for writes and client->server for
// reads, around conn.
func newServerClientConnection(conn application.ConnectionAdapterWithDeadline, clientID string, key [32]byte, telem application.Telemetry) *ServerClientConnection {
	reader := transport.NewBackedReader(conn, cryptography.New(key, cryptography.ClientToServer))
	writer := transport.NewBackedWriter(conn, cryptography.New(key, cryptography.ServerToClient))
	return &ServerClientConnection{
		baseConnection: newBaseConnection(reader, writer),
		clientID:       clientID,
		telem:          telem,
	}
}

func (c *ServerClientConnection) ClientID() string { return c.clientID }

// Write observes the payload size to telemetry on a successful write, in
// addition to the base connection's encrypt/frame/send.
func (c *ServerClientConnection) Write(p packet.Packet) (application.WriteResult, error) {
	res, err := c.baseConnection.Write(p)
	if err == nil && res == application.WriteSuccess {
		c.telem.ObserveReplayBytes(len(p.Payload))
	}
	return res, err
}

// Recover runs the recovery handshake against newConn, replacing the old
// socket the reader/writer were bound to.
func (c *ServerClientConnection) Recover(newConn application.ConnectionAdapterWithDeadline) error {
	return recoveryHandshake(newConn, c.reader, c.writer)
}

var _ application.ServerClientConnection = (*ServerClientConnection)(nil)
