package session

import (
	"eternalterm/application"
	"eternalterm/domain/packet"
	"eternalterm/infrastructure/wire"
)

// baseConnection is the shared plumbing behind ClientConnection and
// ServerClientConnection: it serializes a Packet, hands the bytes to a
// BackedWriter, and parses whatever a BackedReader decrypts back into a
// Packet.
type baseConnection struct {
	reader application.BackedReader
	writer application.BackedWriter
}

func newBaseConnection(reader application.BackedReader, writer application.BackedWriter) baseConnection {
	return baseConnection{reader: reader, writer: writer}
}

func (c *baseConnection) Write(p packet.Packet) (application.WriteResult, error) {
	return c.writer.Write(wire.Serialize(p))
}

func (c *baseConnection) Read() (packet.Packet, bool, error) {
	plaintext, ok, err := c.reader.Read()
	if err != nil || !ok {
		return packet.Packet{}, ok, err
	}
	p, perr := wire.Parse(plaintext)
	if perr != nil {
		return packet.Packet{}, false, perr
	}
	return p, true, nil
}

func (c *baseConnection) Shutdown() {
	c.reader.Invalidate()
	c.writer.Invalidate()
}
