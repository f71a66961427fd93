// Package session implements the Connection / ClientConnection /
// ServerConnection / ServerClientConnection state machines: reconnect on
// the client side, the client registry and recovery handshake on the
// server side.
package session

import (
	"sync"

	"eternalterm/application"
)

// Registry is the concrete ClientRegistry: a two-map, RWMutex-guarded
// store keyed by client id, one map for the long-lived shared key and one
// for the live connection (which may be absent between disconnect and
// reconnect).
type Registry struct {
	mu          sync.RWMutex
	keys        map[string][32]byte
	connections map[string]application.ServerClientConnection
}

// NewRegistry constructs an empty client registry.
func NewRegistry() *Registry {
	return &Registry{
		keys:        make(map[string][32]byte),
		connections: make(map[string]application.ServerClientConnection),
	}
}

func (r *Registry) RegisterKey(clientID string, key [32]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[clientID] = key
}

func (r *Registry) Key(clientID string) ([32]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[clientID]
	return k, ok
}

func (r *Registry) Put(clientID string, conn application.ServerClientConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[clientID] = conn
}

func (r *Registry) Get(clientID string) (application.ServerClientConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connections[clientID]
	return c, ok
}

func (r *Registry) Delete(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, clientID)
	delete(r.connections, clientID)
}
