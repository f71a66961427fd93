package router

import (
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"eternalterm/application"
	"eternalterm/domain/packet"
	"eternalterm/infrastructure/wire"
)

type appLogger struct{ t *testing.T }

func (l appLogger) Debugf(format string, v ...any) { l.t.Logf("DEBUG: "+format, v...) }
func (l appLogger) Infof(format string, v ...any)  { l.t.Logf("INFO: "+format, v...) }
func (l appLogger) Warnf(format string, v ...any)  { l.t.Logf("WARN: "+format, v...) }
func (l appLogger) Errorf(format string, v ...any) { l.t.Logf("ERROR: "+format, v...) }
func (l appLogger) WithField(key string, value any) application.Logger { return l }

func sendHandoff(t *testing.T, path, clientID, passkey string, fd int) {
	t.Helper()
	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	p := packet.New(packet.HeaderIDPasskey, []byte(clientID+"/"+passkey))
	body := wire.Serialize(p)
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(body)))
	frame := append(lenBuf[:], body...)

	uc := conn.(*net.UnixConn)
	raw, err := uc.SyscallConn()
	if err != nil {
		t.Fatalf("SyscallConn: %v", err)
	}
	rights := unix.UnixRights(fd)
	var sendErr error
	ctrlErr := raw.Write(func(sysfd uintptr) bool {
		sendErr = unix.Sendmsg(int(sysfd), frame, rights, nil, 0)
		return true
	})
	if ctrlErr != nil {
		t.Fatalf("Write control: %v", ctrlErr)
	}
	if sendErr != nil {
		t.Fatalf("Sendmsg: %v", sendErr)
	}
}

func TestRouterRegistersPTYOwnerWithPassedFD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "etserver.idpasskey.fifo")

	r, err := Listen(path, appLogger{t: t})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer r.Close()

	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer pr.Close()
	defer pw.Close()

	const clientID = "abcd1234EFGH5678"
	const passkey = "0123456789abcdef0123456789abcdef0123456"
	want := passkey[:32]

	sendHandoff(t, path, clientID, want, int(pr.Fd()))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, ok := r.Lookup(clientID); ok {
			if got.PTYMasterFD < 0 {
				t.Fatalf("PTYMasterFD not set")
			}
			gotPasskey, ok := r.Passkey(clientID)
			if !ok || gotPasskey != want {
				t.Fatalf("Passkey = %q, ok=%v, want %q", gotPasskey, ok, want)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client id never registered")
}
