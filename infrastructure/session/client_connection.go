package session

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"eternalterm/application"
	eterrors "eternalterm/domain/errors"
	"eternalterm/domain/packet"
	"eternalterm/infrastructure/cryptography"
	"eternalterm/infrastructure/transport"
)

// ProtocolVersion is the wire protocol version; a mismatch produces
// ConnectResponse.MismatchedProtocol.
const ProtocolVersion int32 = 6

// reconnectInterval is how often the reconnect worker retries.
const reconnectInterval = 1 * time.Second

// ClientConnection is the concrete client-side Connection: it owns the
// reconnect worker and the INIT -> ALIVE -> DEAD -> RECOVERING -> ALIVE
// state machine.
type ClientConnection struct {
	baseConnection

	dialer   application.Dialer[net.Conn]
	clientID string
	key      [32]byte
	log      application.Logger
	telem    application.Telemetry

	mu           sync.Mutex
	state        application.ConnState
	conn         net.Conn
	reconnecting bool
}

// NewClientConnection constructs a client connection that will dial via
// dialer using clientID/key once Run is called.
func NewClientConnection(dialer application.Dialer[net.Conn], clientID string, key [32]byte, log application.Logger, telem application.Telemetry) *ClientConnection {
	return &ClientConnection{
		dialer:   dialer,
		clientID: clientID,
		key:      key,
		log:      log,
		telem:    telem,
		state:    application.StateInit,
	}
}

func (c *ClientConnection) State() application.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *ClientConnection) setState(s application.ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run performs the initial connect and, on success, returns with the
// connection ALIVE. Reconnects after that happen transparently in the
// background; callers keep using Write/Read as usual and simply observe
// WriteSkipped while DEAD/RECOVERING.
func (c *ClientConnection) Run(ctx context.Context) error {
	conn, err := c.dialer.Establish()
	if err != nil {
		return eterrors.New(eterrors.KindSocketDead, "ClientConnection.Run", err)
	}

	if err := writeControl(conn, application.ConnectRequest{Version: ProtocolVersion, ClientID: c.clientID}); err != nil {
		_ = conn.Close()
		return err
	}
	var resp application.ConnectResponse
	if err := readControl(conn, &resp); err != nil {
		_ = conn.Close()
		return err
	}

	switch resp.Status {
	case application.NewClient:
		c.reader = transport.NewBackedReader(conn, cryptography.New(c.key, cryptography.ServerToClient))
		c.writer = transport.NewBackedWriter(conn, cryptography.New(c.key, cryptography.ClientToServer))
		c.conn = conn
		c.setState(application.StateAlive)
		c.telem.IncSessionsStarted()
		return nil
	case application.ReturningClient:
		if c.reader == nil || c.writer == nil {
			_ = conn.Close()
			return eterrors.New(eterrors.KindBadFrame, "ClientConnection.Run",
				fmt.Errorf("server reports ReturningClient but we have no prior session"))
		}
		if err := recoveryHandshake(conn, c.reader, c.writer); err != nil {
			_ = conn.Close()
			return err
		}
		c.conn = conn
		c.setState(application.StateAlive)
		return nil
	case application.InvalidKey:
		_ = conn.Close()
		c.setState(application.StateShutdown)
		return eterrors.New(eterrors.KindInvalidKey, "ClientConnection.Run", fmt.Errorf("%s", resp.Error))
	case application.MismatchedProtocol:
		_ = conn.Close()
		c.setState(application.StateShutdown)
		return eterrors.New(eterrors.KindProtocolMismatch, "ClientConnection.Run", fmt.Errorf("%s", resp.Error))
	default:
		_ = conn.Close()
		return eterrors.New(eterrors.KindBadFrame, "ClientConnection.Run", fmt.Errorf("unknown connect status %d", resp.Status))
	}
}

// Write delegates to the base connection and, on a write failure,
// transitions the session into DEAD and spawns the reconnect worker.
func (c *ClientConnection) Write(p packet.Packet) (application.WriteResult, error) {
	res, err := c.baseConnection.Write(p)
	if err != nil {
		return res, err
	}
	switch res {
	case application.WriteWithFailure:
		c.noteDead(context.Background())
	case application.WriteSuccess:
		c.telem.ObserveReplayBytes(len(p.Payload))
	}
	return res, nil
}

// Read delegates to the base connection and, when the socket is found
// invalidated, transitions the session into DEAD and spawns the
// reconnect worker.
func (c *ClientConnection) Read() (packet.Packet, bool, error) {
	p, ok, err := c.baseConnection.Read()
	if err != nil {
		if se, isSE := err.(*eterrors.SessionError); isSE && se.Fatal() {
			c.setState(application.StateShutdown)
		}
		return p, ok, err
	}
	if !ok {
		c.noteDead(context.Background())
	}
	return p, ok, nil
}

// noteDead transitions ALIVE -> DEAD and spawns the single reconnect
// worker for this transition, unless one is already running.
func (c *ClientConnection) noteDead(ctx context.Context) {
	c.mu.Lock()
	if c.state == application.StateShutdown || c.reconnecting {
		c.mu.Unlock()
		return
	}
	c.state = application.StateDead
	c.reconnecting = true
	c.mu.Unlock()

	go c.reconnectLoop(ctx)
}

// reconnectLoop is the single detached worker spawned on entering DEAD.
// It dials once per second until the recovery handshake succeeds, the
// server reports INVALID_KEY (terminal SHUTDOWN), or ctx is canceled.
func (c *ClientConnection) reconnectLoop(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	ticker := time.NewTicker(reconnectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if c.State() == application.StateShutdown {
			return
		}

		conn, err := c.dialer.Establish()
		if err != nil {
			c.log.Warnf("reconnect: dial failed: %v", err)
			continue
		}

		c.setState(application.StateRecovering)

		if err := writeControl(conn, application.ConnectRequest{Version: ProtocolVersion, ClientID: c.clientID}); err != nil {
			_ = conn.Close()
			c.setState(application.StateDead)
			continue
		}
		var resp application.ConnectResponse
		if err := readControl(conn, &resp); err != nil {
			_ = conn.Close()
			c.setState(application.StateDead)
			continue
		}

		switch resp.Status {
		case application.InvalidKey:
			_ = conn.Close()
			c.setState(application.StateShutdown)
			c.log.Errorf("reconnect: server rejected client id: %s", resp.Error)
			return
		case application.ReturningClient:
			if err := recoveryHandshake(conn, c.reader, c.writer); err != nil {
				_ = conn.Close()
				c.setState(application.StateDead)
				c.log.Warnf("reconnect: recovery handshake failed: %v", err)
				continue
			}
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			c.setState(application.StateAlive)
			c.telem.IncReconnects()
			c.log.Infof("reconnected")
			return
		default:
			_ = conn.Close()
			c.setState(application.StateDead)
			continue
		}
	}
}

// Shutdown idempotently tears the session down and prevents further
// reconnect attempts.
func (c *ClientConnection) Shutdown() {
	c.setState(application.StateShutdown)
	c.baseConnection.Shutdown()
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// ClientID implements clientid-aware plumbing used by callers that log or
// route by id (the router, the event loop).
func (c *ClientConnection) ClientID() string { return c.clientID }

var _ application.ClientConnection = (*ClientConnection)(nil)
