package userterm

import (
	"os/exec"
	"testing"
	"time"

	"eternalterm/application"
)

func TestPTYTerminalWriteEchoesThroughShell(t *testing.T) {
	cmd := exec.Command("cat")
	term, err := Start(cmd)
	if err != nil {
		t.Skipf("pty unavailable in this environment: %v", err)
	}
	defer term.Close()

	if _, err := term.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, 64)
	done := make(chan struct{})
	var n int
	var rerr error
	go func() {
		n, rerr = term.Read(buf)
		close(done)
	}()

	select {
	case <-done:
		if rerr != nil {
			t.Fatalf("Read: %v", rerr)
		}
		if string(buf[:n]) != "hello\r\n" && string(buf[:n]) != "hello\n" {
			t.Fatalf("Read = %q, want echoed hello", buf[:n])
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for echo")
	}
}

func TestPTYTerminalResize(t *testing.T) {
	cmd := exec.Command("cat")
	term, err := Start(cmd)
	if err != nil {
		t.Skipf("pty unavailable in this environment: %v", err)
	}
	defer term.Close()

	if err := term.Resize(application.TerminalSize{Rows: 40, Cols: 120}); err != nil {
		t.Fatalf("Resize: %v", err)
	}
}
