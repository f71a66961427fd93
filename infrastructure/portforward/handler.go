// Package portforward implements application.PortForwardHandler: source
// listeners accept local connections and request a peer dial; destination
// dialers connect out and hand back a socket id; PORT_FORWARD_DATA then
// carries bytes in both directions keyed by that id.
package portforward

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"eternalterm/application"
	eterrors "eternalterm/domain/errors"
	"eternalterm/domain/portforward"
)

const sourceReadChunk = 1024

// sourceListener owns one listening socket and the fds accepted on it
// that have not yet been assigned a socket id.
type sourceListener struct {
	spec     portforward.ForwardSpec
	listener net.Listener

	mu         sync.Mutex
	unassigned []net.Conn
	assigned   map[portforward.SocketID]net.Conn
}

// Handler is the concrete PortForwardHandler.
type Handler struct {
	nextSocketID atomic.Int32

	mu        sync.Mutex
	sources   []*sourceListener
	destConns map[portforward.SocketID]net.Conn
	destSpecs map[portforward.SocketID]portforward.Endpoint

	pendingMu  sync.Mutex
	pendingReq []pendingRequest
}

type pendingRequest struct {
	listener *sourceListener
	dest     portforward.Endpoint
}

// New returns an empty Handler ready for CreateSource calls.
func New() *Handler {
	return &Handler{
		destConns: make(map[portforward.SocketID]net.Conn),
		destSpecs: make(map[portforward.SocketID]portforward.Endpoint),
	}
}

func dial(e portforward.Endpoint) (net.Conn, error) {
	if e.Network == portforward.NetworkUnix {
		return net.Dial("unix", e.Path)
	}
	return net.Dial("tcp", fmt.Sprintf("%s:%d", e.Host, e.Port))
}

func listen(e portforward.Endpoint) (net.Listener, error) {
	if e.Network == portforward.NetworkUnix {
		return net.Listen("unix", e.Path)
	}
	return net.Listen("tcp", fmt.Sprintf("%s:%d", e.Host, e.Port))
}

func (h *Handler) CreateSource(spec portforward.ForwardSpec) error {
	ln, err := listen(spec.Source)
	if err != nil {
		return eterrors.New(eterrors.KindPortForwardFailure, "PortForwardHandler.CreateSource", err)
	}
	sl := &sourceListener{spec: spec, listener: ln, assigned: make(map[portforward.SocketID]net.Conn)}

	h.mu.Lock()
	h.sources = append(h.sources, sl)
	h.mu.Unlock()

	go h.acceptLoop(sl)
	return nil
}

func (h *Handler) CreateEnvVarSource(src portforward.EnvVarSource) (string, error) {
	dir, err := os.MkdirTemp("", "etfwd-")
	if err != nil {
		return "", eterrors.New(eterrors.KindPortForwardFailure, "PortForwardHandler.CreateEnvVarSource", err)
	}
	path := filepath.Join(dir, src.EnvVar)

	spec := portforward.ForwardSpec{
		Source: portforward.Endpoint{Network: portforward.NetworkUnix, Path: path},
		Dest:   src.Dest,
	}
	if err := h.CreateSource(spec); err != nil {
		return "", err
	}
	return path, nil
}

// acceptLoop runs for the lifetime of one source listener, queueing every
// accepted connection as unassigned and recording a pending destination
// request for the next Update call.
func (h *Handler) acceptLoop(sl *sourceListener) {
	for {
		conn, err := sl.listener.Accept()
		if err != nil {
			return
		}
		sl.mu.Lock()
		sl.unassigned = append(sl.unassigned, conn)
		sl.mu.Unlock()

		h.pendingMu.Lock()
		h.pendingReq = append(h.pendingReq, pendingRequest{listener: sl, dest: sl.spec.Dest})
		h.pendingMu.Unlock()
	}
}

func (h *Handler) HandleDestinationRequest(req application.PortForwardDestinationRequest) application.PortForwardDestinationResponse {
	conn, err := dial(req.Dest)
	if err != nil {
		return application.PortForwardDestinationResponse{Error: err.Error()}
	}

	id := portforward.SocketID(h.nextSocketID.Add(1))
	h.mu.Lock()
	h.destConns[id] = conn
	h.destSpecs[id] = req.Dest
	h.mu.Unlock()

	return application.PortForwardDestinationResponse{SocketID: id}
}

func (h *Handler) HandleDestinationResponse(resp application.PortForwardDestinationResponse) {
	sl, conn := h.popUnassigned()
	if conn == nil {
		return
	}
	if resp.Error != "" {
		_ = conn.Close()
		return
	}
	sl.mu.Lock()
	sl.assigned[resp.SocketID] = conn
	sl.mu.Unlock()
}

// popUnassigned pops the oldest unassigned connection across every
// source listener, matching the order destination requests were sent in.
func (h *Handler) popUnassigned() (*sourceListener, net.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sl := range h.sources {
		sl.mu.Lock()
		if len(sl.unassigned) > 0 {
			conn := sl.unassigned[0]
			sl.unassigned = sl.unassigned[1:]
			sl.mu.Unlock()
			return sl, conn
		}
		sl.mu.Unlock()
	}
	return nil, nil
}

func (h *Handler) HandleData(data application.PortForwardData) {
	conn := h.lookupConn(data.SocketID, data.SourceToDestination)
	if conn == nil {
		return
	}
	if data.Closed || data.Error != "" {
		_ = conn.Close()
		h.dropSocket(data.SocketID)
		return
	}
	_, _ = conn.Write(data.Buffer)
}

// lookupConn returns the destination-side socket for data travelling
// source->destination, and the assigned source-side socket otherwise.
func (h *Handler) lookupConn(id portforward.SocketID, toDestination bool) net.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	if toDestination {
		if conn, ok := h.destConns[id]; ok {
			return conn
		}
		return nil
	}
	for _, sl := range h.sources {
		sl.mu.Lock()
		conn, ok := sl.assigned[id]
		sl.mu.Unlock()
		if ok {
			return conn
		}
	}
	return nil
}

func (h *Handler) dropSocket(id portforward.SocketID) {
	h.mu.Lock()
	delete(h.destConns, id)
	delete(h.destSpecs, id)
	for _, sl := range h.sources {
		sl.mu.Lock()
		delete(sl.assigned, id)
		sl.mu.Unlock()
	}
	h.mu.Unlock()
}

func (h *Handler) Update() application.PortForwardBatch {
	var batch application.PortForwardBatch

	h.pendingMu.Lock()
	reqs := h.pendingReq
	h.pendingReq = nil
	h.pendingMu.Unlock()
	for _, r := range reqs {
		batch.Requests = append(batch.Requests, application.PortForwardDestinationRequest{Dest: r.dest})
	}

	h.mu.Lock()
	destIDs := make([]portforward.SocketID, 0, len(h.destConns))
	for id := range h.destConns {
		destIDs = append(destIDs, id)
	}
	type assignedEntry struct {
		id   portforward.SocketID
		conn net.Conn
	}
	var assigned []assignedEntry
	for _, sl := range h.sources {
		sl.mu.Lock()
		for id, conn := range sl.assigned {
			assigned = append(assigned, assignedEntry{id, conn})
		}
		sl.mu.Unlock()
	}
	destConns := make(map[portforward.SocketID]net.Conn, len(destIDs))
	for _, id := range destIDs {
		destConns[id] = h.destConns[id]
	}
	h.mu.Unlock()

	buf := make([]byte, sourceReadChunk)
	for id, conn := range destConns {
		if pkt, ok := nonBlockingRead(conn, buf, id, false); ok {
			batch.Data = append(batch.Data, pkt)
			if pkt.Closed || pkt.Error != "" {
				h.dropSocket(id)
			}
		}
	}
	for _, e := range assigned {
		if pkt, ok := nonBlockingRead(e.conn, buf, e.id, true); ok {
			batch.Data = append(batch.Data, pkt)
			if pkt.Closed || pkt.Error != "" {
				h.dropSocket(e.id)
			}
		}
	}

	return batch
}

// nonBlockingRead issues a single read with a near-immediate deadline so
// Update never blocks the event loop on a quiet socket.
func nonBlockingRead(conn net.Conn, buf []byte, id portforward.SocketID, sourceToDest bool) (application.PortForwardData, bool) {
	if err := conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
		return application.PortForwardData{}, false
	}
	n, err := conn.Read(buf)
	if n > 0 {
		out := make([]byte, n)
		copy(out, buf[:n])
		return application.PortForwardData{SocketID: id, SourceToDestination: sourceToDest, Buffer: out}, true
	}
	if err == nil {
		return application.PortForwardData{}, false
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return application.PortForwardData{}, false
	}
	if errors.Is(err, io.EOF) {
		return application.PortForwardData{SocketID: id, SourceToDestination: sourceToDest, Closed: true}, true
	}
	return application.PortForwardData{SocketID: id, SourceToDestination: sourceToDest, Error: err.Error()}, true
}

func (sl *sourceListener) String() string { return sl.spec.Source.String() }

// Close tears down every source listener, its accepted-but-unassigned
// connections, and every assigned or destination-side socket.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var firstErr error
	for _, sl := range h.sources {
		if err := sl.listener.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		sl.mu.Lock()
		for _, conn := range sl.unassigned {
			_ = conn.Close()
		}
		for _, conn := range sl.assigned {
			_ = conn.Close()
		}
		sl.mu.Unlock()
	}
	h.sources = nil

	for id, conn := range h.destConns {
		_ = conn.Close()
		delete(h.destConns, id)
		delete(h.destSpecs, id)
	}
	return firstErr
}

var _ application.PortForwardHandler = (*Handler)(nil)
