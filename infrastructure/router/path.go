// Package router implements the UserTerminalRouter IPC: a UNIX-domain
// socket listener that a PTY owner process registers with, handing off
// its pty_master_fd under a client id/passkey the server queries later.
package router

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// geteuid is a seam so tests can exercise both the root and non-root
// resolution branches without actually running as root.
var geteuid = os.Geteuid

const (
	rootSocketPath = "/var/run/etserver.idpasskey.fifo"
	socketFileName = "etserver.idpasskey.fifo"
)

// ResolvePath returns the router's UNIX socket path: override if
// non-empty, else /var/run/etserver.idpasskey.fifo for root, else
// $XDG_RUNTIME_DIR/etserver/etserver.idpasskey.fifo, falling back to
// $HOME/.local/share/etserver if XDG_RUNTIME_DIR is unset or relative.
func ResolvePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if geteuid() == 0 {
		return rootSocketPath, nil
	}

	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" && filepath.IsAbs(dir) {
		return filepath.Join(dir, "etserver", socketFileName), nil
	}

	home := os.Getenv("HOME")
	if home == "" {
		return "", fmt.Errorf("router: neither XDG_RUNTIME_DIR nor HOME is set")
	}
	return filepath.Join(home, ".local", "share", "etserver", socketFileName), nil
}

// ensureDir creates dir (and any parents) at mode 0700 and verifies that,
// if it already existed, it still has that mode and is owned by the
// current effective user.
func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0700)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("router: %s exists and is not a directory", dir)
	}
	if info.Mode().Perm()&0077 != 0 {
		return fmt.Errorf("router: %s has overly permissive mode %o, want 0700", dir, info.Mode().Perm())
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok && int(st.Uid) != geteuid() {
		return fmt.Errorf("router: %s is owned by uid %d, not the current effective user", dir, st.Uid)
	}
	return nil
}
