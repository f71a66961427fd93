package session

import (
	"context"
	"net"
	"testing"
	"time"

	"eternalterm/application"
	"eternalterm/domain/packet"
)

type testLogger struct{ t *testing.T }

func (l testLogger) Debugf(format string, v ...any) { l.t.Logf("DEBUG "+format, v...) }
func (l testLogger) Infof(format string, v ...any)  { l.t.Logf("INFO "+format, v...) }
func (l testLogger) Warnf(format string, v ...any)  { l.t.Logf("WARN "+format, v...) }
func (l testLogger) Errorf(format string, v ...any) { l.t.Logf("ERROR "+format, v...) }
func (l testLogger) WithField(key string, value any) application.Logger {
	return l
}

type testTelemetry struct{}

func (testTelemetry) IncSessionsStarted()    {}
func (testTelemetry) IncReconnects()         {}
func (testTelemetry) ObserveReplayBytes(int) {}

type tcpDialer struct{ addr string }

func (d tcpDialer) Establish() (net.Conn, error) { return net.Dial("tcp", d.addr) }

func startTestServer(t *testing.T) (addr string, registry *Registry, clients chan *ServerClientConnection) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	registry = NewRegistry()
	clients = make(chan *ServerClientConnection, 4)
	srv := NewServerConnection(ln, registry, testLogger{t}, testTelemetry{}, func(conn *ServerClientConnection) error {
		clients <- conn
		return nil
	})
	go func() { _ = srv.HandleTransport() }()

	return ln.Addr().String(), registry, clients
}

func TestClientConnectionInitialConnect(t *testing.T) {
	addr, registry, clients := startTestServer(t)

	var key [32]byte
	key[0] = 7
	const clientID = "aaaabbbbccccdddd"
	registry.RegisterKey(clientID, key)

	cc := NewClientConnection(tcpDialer{addr}, clientID, key, testLogger{t}, testTelemetry{})
	if err := cc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cc.State() != application.StateAlive {
		t.Fatalf("state = %v, want ALIVE", cc.State())
	}

	select {
	case scc := <-clients:
		if scc.ClientID() != clientID {
			t.Fatalf("server saw client id %q, want %q", scc.ClientID(), clientID)
		}
		registry.Put(clientID, scc)
	case <-time.After(2 * time.Second):
		t.Fatal("server never registered new client")
	}

	if _, err := cc.Write(packet.New(packet.HeaderKeepAlive, nil)); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestClientConnectionUnknownIDRejected(t *testing.T) {
	addr, _, _ := startTestServer(t)

	var key [32]byte
	cc := NewClientConnection(tcpDialer{addr}, "zzzzyyyyxxxxwwww", key, testLogger{t}, testTelemetry{})
	err := cc.Run(context.Background())
	if err == nil {
		t.Fatal("expected error for unregistered client id")
	}
	if cc.State() != application.StateShutdown {
		t.Fatalf("state = %v, want SHUTDOWN", cc.State())
	}
}

func TestClientConnectionReconnectAfterSocketDeath(t *testing.T) {
	addr, registry, clients := startTestServer(t)

	var key [32]byte
	key[1] = 9
	const clientID = "ccccddddeeeeffff"
	registry.RegisterKey(clientID, key)

	cc := NewClientConnection(tcpDialer{addr}, clientID, key, testLogger{t}, testTelemetry{})
	if err := cc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var scc *ServerClientConnection
	select {
	case scc = <-clients:
		registry.Put(clientID, scc)
	case <-time.After(2 * time.Second):
		t.Fatal("server never registered new client")
	}

	if _, err := cc.Write(packet.New(packet.HeaderKeepAlive, nil)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Drain it server-side so the write path stays unblocked.
	go func() {
		for {
			if _, ok, err := scc.Read(); err != nil || !ok {
				return
			}
		}
	}()

	// Kill the client's raw socket to force the next Write to fail and
	// the reconnect worker to spin up.
	cc.mu.Lock()
	_ = cc.conn.Close()
	cc.mu.Unlock()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := cc.Write(packet.New(packet.HeaderKeepAlive, nil)); err != nil {
			t.Fatalf("Write during reconnect: %v", err)
		}
		if cc.State() == application.StateAlive {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if cc.State() != application.StateAlive {
		t.Fatalf("state after reconnect window = %v, want ALIVE", cc.State())
	}
}
