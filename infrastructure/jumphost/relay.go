// Package jumphost implements the opaque relay mode: a server launched
// as a pure relay accepts a client's raw ciphertext-frame stream and
// forwards every byte downstream without ever touching a CryptoHandler.
// Because BackedWriter already frames each encrypted payload as
// [4-byte length][ciphertext] on the wire, relaying is a plain
// bidirectional byte copy one layer below the Connection/Packet split —
// the jumphost never decrypts, parses a Packet, or sees a clientid it
// isn't routing by.
package jumphost

import (
	"context"
	"io"
	"net"
	"sync"

	"eternalterm/application"
)

// Relay pipes raw bytes between an accepted client socket and a dialed
// downstream socket, keyed only by the client id used to pick the
// downstream endpoint. It implements application.TrafficRouter.
type Relay struct {
	clientID   string
	downstream application.Dialer[net.Conn]
	upstream   net.Conn
	log        application.Logger
}

// New returns a Relay that forwards the already-accepted upstream socket
// to wherever downstream dials, tagged with clientID for logging.
func New(clientID string, upstream net.Conn, downstream application.Dialer[net.Conn], log application.Logger) *Relay {
	return &Relay{clientID: clientID, downstream: downstream, upstream: upstream, log: log}
}

// RouteTraffic dials downstream and copies bytes in both directions
// until ctx is cancelled or either side closes.
func (r *Relay) RouteTraffic(ctx context.Context) error {
	down, err := r.downstream.Establish()
	if err != nil {
		return err
	}
	defer down.Close()

	go func() {
		<-ctx.Done()
		_ = r.upstream.Close()
		_ = down.Close()
	}()

	var wg sync.WaitGroup
	var copyErr error
	var once sync.Once
	recordErr := func(err error) {
		if err != nil && err != io.EOF {
			once.Do(func() { copyErr = err })
		}
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := io.Copy(down, r.upstream)
		recordErr(err)
		_ = down.Close()
	}()
	go func() {
		defer wg.Done()
		_, err := io.Copy(r.upstream, down)
		recordErr(err)
		_ = r.upstream.Close()
	}()
	wg.Wait()

	r.log.WithField("client_id", r.clientID).Infof("jumphost: relay finished")
	return copyErr
}

var _ application.TrafficRouter = (*Relay)(nil)
