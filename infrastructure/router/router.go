package router

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"eternalterm/application"
	"eternalterm/domain/clientid"
	"eternalterm/domain/packet"
	"eternalterm/infrastructure/wire"
)

const passkeyLength = 32

const maxHandoffFrame = 4096

// Router is a UNIX-domain IPC listener implementing
// application.TerminalUserRouter. A PTY owner process connects, sends an
// IDPASSKEY packet naming the client id and passkey, and passes its
// pty_master_fd as SCM_RIGHTS ancillary data on the same message.
type Router struct {
	path     string
	listener *net.UnixListener
	log      application.Logger

	mu       sync.RWMutex
	entries  map[string]application.TerminalUserInfo
	passkeys map[string]string
}

// Listen binds a Router at path (created via ResolvePath), with the
// parent directory locked to mode 0700.
func Listen(path string, log application.Logger) (*Router, error) {
	if err := ensureDir(parentDir(path)); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("router: resolve %s: %w", path, err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("router: listen %s: %w", path, err)
	}

	r := &Router{
		path:     path,
		listener: ln,
		log:      log,
		entries:  make(map[string]application.TerminalUserInfo),
		passkeys: make(map[string]string),
	}
	go r.acceptLoop()
	return r, nil
}

func parentDir(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i <= 0 {
		return "/"
	}
	return path[:i]
}

func (r *Router) acceptLoop() {
	for {
		conn, err := r.listener.AcceptUnix()
		if err != nil {
			return
		}
		go r.handleConn(conn)
	}
}

func (r *Router) handleConn(conn *net.UnixConn) {
	defer conn.Close()

	body, fd, err := recvHandoff(conn)
	if err != nil {
		r.log.Warnf("router: handoff read failed: %v", err)
		return
	}

	p, parseErr := wire.Parse(body)
	if parseErr != nil || p.Header != packet.HeaderIDPasskey {
		r.log.Warnf("router: expected IDPASSKEY, got parse error %v", parseErr)
		return
	}

	clientID, passkey, ok := splitIDPasskey(string(p.Payload))
	if !ok {
		r.log.Warnf("router: malformed IDPASSKEY payload")
		return
	}

	uid, gid, err := peerCredentials(conn)
	if err != nil {
		r.log.Warnf("router: peer credentials: %v", err)
		return
	}

	r.mu.Lock()
	r.entries[clientID] = application.TerminalUserInfo{PTYMasterFD: fd, UID: uid, GID: gid}
	r.passkeys[clientID] = passkey
	r.mu.Unlock()

	r.log.WithField("client_id", clientID).Infof("router: registered PTY owner")
}

func splitIDPasskey(payload string) (clientID, passkey string, ok bool) {
	parts := strings.SplitN(payload, "/", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	clientID, passkey = parts[0], parts[1]
	if !clientid.Valid(clientID) || len(passkey) != passkeyLength {
		return "", "", false
	}
	return clientID, passkey, true
}

func (r *Router) Register(clientID string, info application.TerminalUserInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[clientID] = info
	return nil
}

func (r *Router) Lookup(clientID string) (application.TerminalUserInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.entries[clientID]
	return info, ok
}

// Passkey returns the passkey a PTY owner registered for clientID, for
// comparing against the one a reconnecting client presents.
func (r *Router) Passkey(clientID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.passkeys[clientID]
	return p, ok
}

func (r *Router) Close() error {
	return r.listener.Close()
}

var _ application.TerminalUserRouter = (*Router)(nil)

// recvHandoff reads one length-prefixed frame body from conn along with
// any SCM_RIGHTS fd attached to the same message.
func recvHandoff(conn *net.UnixConn) (body []byte, fd int, err error) {
	raw, rerr := conn.SyscallConn()
	if rerr != nil {
		return nil, -1, rerr
	}

	buf := make([]byte, maxHandoffFrame)
	oob := make([]byte, unix.CmsgSpace(4))
	var n, oobn int
	var recvErr error

	ctrlErr := raw.Read(func(sysfd uintptr) bool {
		n, oobn, _, _, recvErr = unix.Recvmsg(int(sysfd), buf, oob, 0)
		return true
	})
	if ctrlErr != nil {
		return nil, -1, ctrlErr
	}
	if recvErr != nil {
		return nil, -1, recvErr
	}
	if n < 8 {
		return nil, -1, fmt.Errorf("router: handoff frame too short: %d bytes", n)
	}

	length := binary.BigEndian.Uint64(buf[:8])
	if int(length) > n-8 {
		return nil, -1, fmt.Errorf("router: handoff frame length %d exceeds received %d", length, n-8)
	}
	body = make([]byte, length)
	copy(body, buf[8:8+int(length)])

	fd = -1
	if oobn > 0 {
		cmsgs, perr := unix.ParseSocketControlMessage(oob[:oobn])
		if perr == nil {
			for _, cmsg := range cmsgs {
				fds, ferr := unix.ParseUnixRights(&cmsg)
				if ferr == nil && len(fds) > 0 {
					fd = fds[0]
					break
				}
			}
		}
	}
	return body, fd, nil
}

func peerCredentials(conn *net.UnixConn) (uid, gid int, err error) {
	raw, rerr := conn.SyscallConn()
	if rerr != nil {
		return 0, 0, rerr
	}
	var ucred *unix.Ucred
	var credErr error
	ctrlErr := raw.Control(func(sysfd uintptr) {
		ucred, credErr = unix.GetsockoptUcred(int(sysfd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if ctrlErr != nil {
		return 0, 0, ctrlErr
	}
	if credErr != nil {
		return 0, 0, credErr
	}
	return int(ucred.Uid), int(ucred.Gid), nil
}
