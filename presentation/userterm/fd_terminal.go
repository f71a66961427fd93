package userterm

import (
	"os"

	"github.com/creack/pty"

	"eternalterm/application"
)

// FDTerminal wraps an already-open pty_master_fd — the kind the router
// receives via SCM_RIGHTS from a PTY owner process — as an
// application.UserTerminal, without spawning anything itself.
type FDTerminal struct {
	f *os.File
}

// NewFDTerminal takes ownership of fd.
func NewFDTerminal(fd int) *FDTerminal {
	return &FDTerminal{f: os.NewFile(uintptr(fd), "pty-master")}
}

func (t *FDTerminal) Write(p []byte) (int, error) { return t.f.Write(p) }
func (t *FDTerminal) Read(p []byte) (int, error)  { return t.f.Read(p) }

func (t *FDTerminal) Resize(sz application.TerminalSize) error {
	return pty.Setsize(t.f, &pty.Winsize{Rows: sz.Rows, Cols: sz.Cols, X: sz.XPixel, Y: sz.YPixel})
}

func (t *FDTerminal) Close() error { return t.f.Close() }

var _ application.UserTerminal = (*FDTerminal)(nil)
