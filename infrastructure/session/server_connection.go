package session

import (
	"fmt"
	"net"

	"eternalterm/application"
	"eternalterm/domain/clientid"
)

// NewClientFunc is invoked once per fresh (never-before-seen) client id
// after the server has accepted it and sent the NEW_CLIENT response;
// returning an error vetoes registration and the connection is closed.
type NewClientFunc func(conn *ServerClientConnection) error

// ServerConnection runs the accept loop for one listening socket (TCP
// port and/or UNIX path): each accepted connection gets its own
// short-lived goroutine that reads the ConnectRequest, consults the
// registry, and either constructs a new ServerClientConnection or calls
// Recover on the existing one.
type ServerConnection struct {
	listener  net.Listener
	registry  *Registry
	log       application.Logger
	telem     application.Telemetry
	newClient NewClientFunc
}

// NewServerConnection wires a ServerConnection around an already-bound
// listener. newClient is called for every NEW_CLIENT connect and may
// return an error to veto registration.
func NewServerConnection(listener net.Listener, registry *Registry, log application.Logger, telem application.Telemetry, newClient NewClientFunc) *ServerConnection {
	return &ServerConnection{listener: listener, registry: registry, log: log, telem: telem, newClient: newClient}
}

// HandleTransport accepts connections until the listener is closed.
func (s *ServerConnection) HandleTransport() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *ServerConnection) handleConn(conn net.Conn) {
	var req application.ConnectRequest
	if err := readControl(conn, &req); err != nil {
		s.log.Warnf("connect: failed to read ConnectRequest: %v", err)
		_ = conn.Close()
		return
	}

	if req.Version != ProtocolVersion {
		s.respondAndClose(conn, application.ConnectResponse{
			Status: application.MismatchedProtocol,
			Error:  fmt.Sprintf("server protocol version %d, client sent %d", ProtocolVersion, req.Version),
		})
		return
	}
	if !clientid.Valid(req.ClientID) {
		s.respondAndClose(conn, application.ConnectResponse{Status: application.InvalidKey, Error: "malformed client id"})
		return
	}

	key, known := s.registry.Key(req.ClientID)
	if !known {
		s.respondAndClose(conn, application.ConnectResponse{Status: application.InvalidKey, Error: "unknown client id"})
		return
	}

	if existing, ok := s.registry.Get(req.ClientID); ok {
		s.recoverClient(conn, existing)
		return
	}

	s.registerNewClient(conn, req.ClientID, key)
}

func (s *ServerConnection) registerNewClient(conn net.Conn, clientID string, key [32]byte) {
	scc := newServerClientConnection(conn, clientID, key, s.telem)

	if err := writeControl(conn, application.ConnectResponse{Status: application.NewClient}); err != nil {
		s.log.Warnf("connect: failed to send NEW_CLIENT to %s: %v", clientID, err)
		_ = conn.Close()
		return
	}

	if s.newClient != nil {
		if err := s.newClient(scc); err != nil {
			s.log.Warnf("connect: newClient callback vetoed %s: %v", clientID, err)
			_ = conn.Close()
			return
		}
	}

	s.registry.Put(clientID, scc)
	s.telem.IncSessionsStarted()
}

func (s *ServerConnection) recoverClient(conn net.Conn, existing application.ServerClientConnection) {
	if err := writeControl(conn, application.ConnectResponse{Status: application.ReturningClient}); err != nil {
		s.log.Warnf("connect: failed to send RETURNING_CLIENT to %s: %v", existing.ClientID(), err)
		_ = conn.Close()
		return
	}

	if err := existing.Recover(conn); err != nil {
		s.log.Warnf("recovery handshake failed for %s: %v", existing.ClientID(), err)
		_ = conn.Close()
		return
	}
	s.telem.IncReconnects()
	s.log.Infof("client %s reconnected", existing.ClientID())
}

func (s *ServerConnection) respondAndClose(conn net.Conn, resp application.ConnectResponse) {
	if err := writeControl(conn, resp); err != nil {
		s.log.Warnf("connect: failed to send %s: %v", resp.Status, err)
	}
	_ = conn.Close()
}

var _ application.TransportHandler = (*ServerConnection)(nil)
