// Command etserver runs the Eternal Terminal server core: it accepts
// client sockets, registers or recovers sessions in the client registry,
// and hands each one off to a per-client event loop. SSH bootstrap,
// daemonization, and CLI polish beyond the flags in infrastructure/config
// remain the external collaborators spec.md §1 names.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eternalterm/application"
	"eternalterm/infrastructure/config"
	"eternalterm/infrastructure/eventloop"
	"eternalterm/infrastructure/jumphost"
	"eternalterm/infrastructure/logging"
	"eternalterm/infrastructure/portforward"
	"eternalterm/infrastructure/router"
	"eternalterm/infrastructure/session"
	"eternalterm/infrastructure/telemetry"
	"eternalterm/infrastructure/telemetry/trafficstats"
	"eternalterm/presentation/userterm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "etserver:", err)
		os.Exit(1)
	}
}

type tcpDialer struct{ addr string }

func (d tcpDialer) Establish() (net.Conn, error) { return net.Dial("tcp", d.addr) }

func run() error {
	settings, err := config.Resolve(os.Args[1:])
	if err != nil {
		return err
	}
	log := logging.New()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	addr := fmt.Sprintf(":%d", settings.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	defer ln.Close()

	if settings.JumphostTarget != "" {
		return runJumphost(ctx, ln, settings.JumphostTarget, log)
	}
	return runServer(ctx, ln, settings, log)
}

func runJumphost(ctx context.Context, ln net.Listener, target string, log application.Logger) error {
	log.Infof("etserver: running as jumphost relay to %s", target)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go func() {
			r := jumphost.New("unknown", conn, tcpDialer{addr: target}, log)
			if err := r.RouteTraffic(ctx); err != nil {
				log.Warnf("jumphost: relay ended: %v", err)
			}
		}()
	}
}

func runServer(ctx context.Context, ln net.Listener, settings config.Settings, log application.Logger) error {
	routerPath, err := router.ResolvePath(settings.RouterPath)
	if err != nil {
		return err
	}
	rt, err := router.Listen(routerPath, log)
	if err != nil {
		return fmt.Errorf("router listen: %w", err)
	}
	defer rt.Close()

	registry := session.NewRegistry()
	collector := trafficstats.NewCollector(time.Second, 0)
	telem := telemetry.NewCollectorTelemetry(collector)

	newClient := func(scc *session.ServerClientConnection) error {
		info, ok := rt.Lookup(scc.ClientID())
		var term application.UserTerminal
		if ok {
			term = userterm.NewFDTerminal(info.PTYMasterFD)
		}
		forward := portforward.New()
		loop := eventloop.New(scc, term, forward, log.WithField("client_id", scc.ClientID()))
		go func() {
			if err := loop.Run(ctx); err != nil {
				log.Warnf("event loop for %s ended: %v", scc.ClientID(), err)
			}
			registry.Delete(scc.ClientID())
			_ = forward.Close()
		}()
		return nil
	}

	sc := session.NewServerConnection(ln, registry, log, telem, newClient)
	log.Infof("etserver: listening")

	errc := make(chan error, 1)
	go func() { errc <- sc.HandleTransport() }()

	select {
	case <-ctx.Done():
		return ln.Close()
	case err := <-errc:
		return err
	}
}
