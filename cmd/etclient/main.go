// Command etclient dials an etserver, presenting a client id and shared
// key that a real SSH bootstrap would have provisioned out of band.
// Absent that collaborator, this binary accepts them via ET_CLIENT_ID /
// ET_CLIENT_KEY (32 hex bytes) or mints a fresh id/key pair for a brand
// new session, purely so the wiring here is runnable standalone.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"eternalterm/domain/clientid"
	"eternalterm/infrastructure/config"
	"eternalterm/infrastructure/eventloop"
	"eternalterm/infrastructure/logging"
	"eternalterm/infrastructure/session"
	"eternalterm/infrastructure/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "etclient:", err)
		os.Exit(1)
	}
}

type tcpDialer struct{ addr string }

func (d tcpDialer) Establish() (net.Conn, error) { return net.Dial("tcp", d.addr) }

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: etclient <host> [flags]")
	}
	host := os.Args[1]

	settings, err := config.Resolve(os.Args[2:])
	if err != nil {
		return err
	}
	log := logging.New()

	id, key, err := credentials()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	addr := fmt.Sprintf("%s:%d", host, settings.Port)
	cc := session.NewClientConnection(tcpDialer{addr: addr}, id, key, log, telemetry.NoOp())

	if err := cc.Run(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	loop := eventloop.New(cc, nil, nil, log.WithField("client_id", id))
	return loop.Run(ctx)
}

func credentials() (string, [32]byte, error) {
	var key [32]byte

	id := os.Getenv("ET_CLIENT_ID")
	keyHex := os.Getenv("ET_CLIENT_KEY")
	if id != "" && keyHex != "" {
		if !clientid.Valid(id) {
			return "", key, fmt.Errorf("ET_CLIENT_ID is not a valid client id")
		}
		decoded, err := hex.DecodeString(keyHex)
		if err != nil || len(decoded) != 32 {
			return "", key, fmt.Errorf("ET_CLIENT_KEY must be 64 hex characters")
		}
		copy(key[:], decoded)
		return id, key, nil
	}

	newID, err := clientid.New()
	if err != nil {
		return "", key, err
	}
	if _, err := rand.Read(key[:]); err != nil {
		return "", key, err
	}
	return newID, key, nil
}
