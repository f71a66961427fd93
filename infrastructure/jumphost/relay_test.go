package jumphost

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"eternalterm/application"
)

type testLogger struct{ t *testing.T }

func (l testLogger) Debugf(format string, v ...any)                     { l.t.Logf("DEBUG: "+format, v...) }
func (l testLogger) Infof(format string, v ...any)                      { l.t.Logf("INFO: "+format, v...) }
func (l testLogger) Warnf(format string, v ...any)                      { l.t.Logf("WARN: "+format, v...) }
func (l testLogger) Errorf(format string, v ...any)                     { l.t.Logf("ERROR: "+format, v...) }
func (l testLogger) WithField(key string, value any) application.Logger { return l }

type fixedDialer struct{ conn net.Conn }

func (d fixedDialer) Establish() (net.Conn, error) { return d.conn, nil }

func TestRelayCopiesBytesBothDirections(t *testing.T) {
	clientSide, upstream := net.Pipe()
	downSide, downstream := net.Pipe()

	r := New("client1", upstream, fixedDialer{conn: downstream}, testLogger{t: t})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.RouteTraffic(ctx) }()

	go func() {
		buf := make([]byte, 5)
		if _, err := io.ReadFull(downSide, buf); err == nil {
			_, _ = downSide.Write(buf)
		}
	}()

	if _, err := clientSide.Write([]byte("hello")); err != nil {
		t.Fatalf("client write: %v", err)
	}

	reply := make([]byte, 5)
	_ = clientSide.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := io.ReadFull(clientSide, reply); err != nil {
		t.Fatalf("client read: %v", err)
	}
	if string(reply) != "hello" {
		t.Fatalf("reply = %q, want %q", reply, "hello")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("RouteTraffic never returned after cancel")
	}
}
