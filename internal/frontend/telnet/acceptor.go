package telnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/config"
	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/outbound"
)

// GameEngine is the session boundary the acceptor drives. Connect returns
// the session's ordered outbound queue; the channel closes when the engine
// drops the session.
type GameEngine interface {
	Connect(sid ids.SessionID) (<-chan outbound.Event, error)
	Line(sid ids.SessionID, line string)
	Disconnect(sid ids.SessionID)
}

// Acceptor listens for Telnet connections on a TCP port, assigns each one a
// session ID, and shuttles lines and events between the socket and the
// engine. It implements server.Service.
type Acceptor struct {
	cfg    config.ServerConfig
	eng    GameEngine
	logger *zap.Logger

	listener net.Listener
	wg       sync.WaitGroup
	quit     chan struct{}
	mu       sync.Mutex
	running  bool
	sidSeq   atomic.Int64
}

// NewAcceptor creates a Telnet acceptor with the given configuration.
//
// Precondition: cfg must have a valid port; eng and logger must be non-nil.
// Postcondition: Returns an Acceptor ready to be started with Run.
func NewAcceptor(cfg config.ServerConfig, eng GameEngine, logger *zap.Logger) *Acceptor {
	return &Acceptor{
		cfg:    cfg,
		eng:    eng,
		logger: logger,
		quit:   make(chan struct{}),
	}
}

// Name implements server.Service.
func (a *Acceptor) Name() string { return "telnet" }

// Run starts the TCP listener and accepts connections until ctx is canceled
// or Shutdown is called.
//
// Precondition: The acceptor must not already be running.
// Postcondition: The listener is closed when this method returns.
func (a *Acceptor) Run(ctx context.Context) error {
	start := time.Now()

	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}

	a.mu.Lock()
	a.listener = listener
	a.running = true
	a.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			a.closeListener()
		case <-a.quit:
		}
	}()

	a.logger.Info("telnet acceptor listening",
		zap.String("addr", listener.Addr().String()),
		zap.Duration("startup", time.Since(start)),
	)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			a.logger.Error("accepting connection", zap.Error(err))
			continue
		}

		a.wg.Add(1)
		go a.handleConn(conn)
	}
}

// handleConn runs one session: a reader loop on this goroutine and a writer
// goroutine draining the engine's outbound queue. Either side failing tears
// both down.
func (a *Acceptor) handleConn(raw net.Conn) {
	defer a.wg.Done()
	start := time.Now()
	sid := ids.SessionID(a.sidSeq.Add(1))
	addr := raw.RemoteAddr().String()

	a.logger.Info("client connected",
		zap.Stringer("session", sid),
		zap.String("remote_addr", addr),
	)

	conn := NewConn(raw, a.cfg.ReadTimeout, a.cfg.WriteTimeout, a.cfg.MaxLineLen)

	if err := conn.Negotiate(); err != nil {
		a.logger.Debug("telnet negotiation failed",
			zap.Stringer("session", sid),
			zap.Error(err),
		)
		conn.Close()
		return
	}

	events, err := a.eng.Connect(sid)
	if err != nil {
		a.logger.Error("registering session",
			zap.Stringer("session", sid),
			zap.Error(err),
		)
		conn.Close()
		return
	}

	// The writer owns the socket's fate: it closes the connection when the
	// engine says goodbye or a write fails, which unblocks the read loop.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		a.writeEvents(sid, conn, events)
	}()

	// Acceptor shutdown closes the socket out from under both loops.
	go func() {
		select {
		case <-a.quit:
			conn.Close()
		case <-writerDone:
		}
	}()

	for {
		line, err := conn.ReadLine()
		if err != nil {
			break
		}
		a.eng.Line(sid, line)
	}

	// Engine removal closes the event channel, which ends the writer.
	a.eng.Disconnect(sid)
	<-writerDone

	a.logger.Info("client disconnected",
		zap.Stringer("session", sid),
		zap.String("remote_addr", addr),
		zap.Duration("duration", time.Since(start)),
	)
}

// writeEvents drains a session's outbound queue onto the socket. Returns on
// queue close, a close event, or the first write error.
func (a *Acceptor) writeEvents(sid ids.SessionID, conn *Conn, events <-chan outbound.Event) {
	for ev := range events {
		var err error
		switch ev.Kind {
		case outbound.KindText:
			err = conn.WriteLine(ev.Text)
		case outbound.KindInfo:
			err = conn.WriteLine(a.paint(BrightCyan, ev.Text))
		case outbound.KindError:
			err = conn.WriteLine(a.paint(BrightRed, ev.Text))
		case outbound.KindPrompt:
			err = conn.WritePrompt(ev.Text)
		case outbound.KindEchoOff:
			err = conn.EchoOff()
		case outbound.KindEchoOn:
			err = conn.EchoOn()
		case outbound.KindClose:
			return
		}
		if err != nil {
			a.logger.Debug("session write failed",
				zap.Stringer("session", sid),
				zap.Stringer("kind", ev.Kind),
				zap.Error(err),
			)
			return
		}
	}
}

// paint applies an ANSI color when the server has color enabled.
func (a *Acceptor) paint(color, text string) string {
	if !a.cfg.Ansi || text == "" {
		return text
	}
	return Colorize(color, text)
}

// Shutdown stops accepting, closes every live session socket, and waits for
// session goroutines to finish.
//
// Postcondition: All connections are closed and goroutines have exited, or
// ctx expired first.
func (a *Acceptor) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	close(a.quit)
	a.mu.Unlock()

	a.closeListener()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		a.logger.Info("telnet acceptor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Acceptor) closeListener() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		a.listener.Close()
	}
}

// Addr returns the actual listening address, or empty string if not yet listening.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return ""
}

// IsRunning returns whether the acceptor is currently accepting connections.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
