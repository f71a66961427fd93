// Package userterm provides a real PTY-backed application.UserTerminal
// for integration tests. Production PTY ownership (bootstrapping a login
// shell under the target uid/gid) is the external collaborator spec.md
// §1 names; this implementation is deliberately the test-double-grade
// version of that boundary, good enough to drive the event loop and
// router end to end.
package userterm

import (
	"os"
	"os/exec"

	"github.com/creack/pty"

	"eternalterm/application"
)

// PTYTerminal wraps a creack/pty master fd around a spawned command.
type PTYTerminal struct {
	master *os.File
	cmd    *exec.Cmd
}

// Start spawns cmd attached to a freshly allocated PTY and returns a
// UserTerminal backed by its master fd.
func Start(cmd *exec.Cmd) (*PTYTerminal, error) {
	master, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	return &PTYTerminal{master: master, cmd: cmd}, nil
}

func (p *PTYTerminal) Write(b []byte) (int, error) { return p.master.Write(b) }
func (p *PTYTerminal) Read(b []byte) (int, error)  { return p.master.Read(b) }

func (p *PTYTerminal) Resize(sz application.TerminalSize) error {
	return pty.Setsize(p.master, &pty.Winsize{
		Rows: sz.Rows,
		Cols: sz.Cols,
		X:    sz.XPixel,
		Y:    sz.YPixel,
	})
}

func (p *PTYTerminal) Close() error {
	_ = p.master.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	return nil
}

var _ application.UserTerminal = (*PTYTerminal)(nil)
