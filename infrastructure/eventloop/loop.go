package eventloop

import (
	"context"
	"sync/atomic"
	"time"

	"eternalterm/application"
	"eternalterm/domain/packet"
)

const (
	// MaxNewlinesPerSecond caps the crude PTY->client backpressure.
	MaxNewlinesPerSecond = 1024
	// ServerIdleTimeout is how long the server waits without any
	// incoming packet before it unilaterally tears the session down.
	ServerIdleTimeout = 11 * time.Second

	forwardPollInterval = 20 * time.Millisecond
	ptyReadChunk         = 4096
)

// Loop is the per-client session event loop: it dispatches packets read
// from conn by header, pumps PTY output back as TERMINAL_BUFFER packets,
// and periodically drains the PortForwardHandler.
type Loop struct {
	conn    application.Connection
	term    application.UserTerminal
	forward application.PortForwardHandler
	log     application.Logger

	limiter      *newlineRateLimiter
	lastActivity atomic.Int64
}

// New builds a Loop. term and forward may be nil if this client has no
// PTY (jumphost relay) or no forwards configured respectively.
func New(conn application.Connection, term application.UserTerminal, forward application.PortForwardHandler, log application.Logger) *Loop {
	l := &Loop{
		conn:    conn,
		term:    term,
		forward: forward,
		log:     log,
		limiter: newNewlineRateLimiter(MaxNewlinesPerSecond),
	}
	l.lastActivity.Store(time.Now().UnixNano())
	return l
}

// Run blocks until ctx is cancelled, the connection fails fatally, or
// the server-side idle timeout elapses. It always returns after calling
// conn.Shutdown().
func (l *Loop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer l.conn.Shutdown()

	errc := make(chan error, 4)

	go func() { errc <- l.readLoop(ctx) }()
	if l.term != nil {
		go func() { errc <- l.ptyLoop(ctx) }()
	}
	if l.forward != nil {
		go func() { errc <- l.forwardLoop(ctx) }()
	}
	go func() { errc <- l.idleWatchdog(ctx) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errc:
		return err
	}
}

func (l *Loop) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		p, ok, err := l.conn.Read()
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		l.lastActivity.Store(time.Now().UnixNano())
		l.dispatch(p)
	}
}

func (l *Loop) dispatch(p packet.Packet) {
	switch p.Header {
	case packet.HeaderTerminalBuffer:
		if l.term != nil {
			if _, err := l.term.Write(p.Payload); err != nil {
				l.log.Warnf("eventloop: pty write: %v", err)
			}
		}
	case packet.HeaderTerminalInfo:
		if l.term == nil {
			return
		}
		sz, err := decodeTerminalInfo(p)
		if err != nil {
			l.log.Warnf("eventloop: %v", err)
			return
		}
		if err := l.term.Resize(sz); err != nil {
			l.log.Warnf("eventloop: pty resize: %v", err)
		}
	case packet.HeaderKeepAlive:
		if _, err := l.conn.Write(packet.New(packet.HeaderKeepAlive, nil)); err != nil {
			l.log.Warnf("eventloop: keep-alive echo: %v", err)
		}
	case packet.HeaderPortForwardData:
		if l.forward == nil {
			return
		}
		d, err := decodePortForwardData(p)
		if err != nil {
			l.log.Warnf("eventloop: %v", err)
			return
		}
		l.forward.HandleData(d)
	case packet.HeaderPortForwardDestinationRequest:
		if l.forward == nil {
			return
		}
		req, err := decodeDestinationRequest(p)
		if err != nil {
			l.log.Warnf("eventloop: %v", err)
			return
		}
		resp := l.forward.HandleDestinationRequest(req)
		out, encErr := encodeDestinationResponse(resp)
		if encErr != nil {
			l.log.Warnf("eventloop: %v", encErr)
			return
		}
		if _, err := l.conn.Write(out); err != nil {
			l.log.Warnf("eventloop: destination response write: %v", err)
		}
	case packet.HeaderPortForwardDestinationResponse:
		if l.forward == nil {
			return
		}
		resp, err := decodeDestinationResponse(p)
		if err != nil {
			l.log.Warnf("eventloop: %v", err)
			return
		}
		l.forward.HandleDestinationResponse(resp)
	default:
		l.log.Debugf("eventloop: unhandled header %s", p.Header)
	}
}

func (l *Loop) ptyLoop(ctx context.Context) error {
	buf := make([]byte, ptyReadChunk)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := l.term.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if !l.limiter.Allow(countNewlines(chunk)) {
				time.Sleep(time.Second)
			}
			if _, werr := l.conn.Write(packet.New(packet.HeaderTerminalBuffer, append([]byte(nil), chunk...))); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
	}
}

func countNewlines(b []byte) int {
	n := 0
	for _, c := range b {
		if c == '\n' {
			n++
		}
	}
	return n
}

func (l *Loop) forwardLoop(ctx context.Context) error {
	ticker := time.NewTicker(forwardPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			batch := l.forward.Update()
			for _, d := range batch.Data {
				p, err := encodePortForwardData(d)
				if err != nil {
					l.log.Warnf("eventloop: %v", err)
					continue
				}
				if _, err := l.conn.Write(p); err != nil {
					return err
				}
			}
			for _, r := range batch.Requests {
				p, err := encodeDestinationRequest(r)
				if err != nil {
					l.log.Warnf("eventloop: %v", err)
					continue
				}
				if _, err := l.conn.Write(p); err != nil {
					return err
				}
			}
		}
	}
}

func (l *Loop) idleWatchdog(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			last := time.Unix(0, l.lastActivity.Load())
			if time.Since(last) > ServerIdleTimeout {
				l.log.Infof("eventloop: idle timeout exceeded, tearing down session")
				return nil
			}
		}
	}
}
