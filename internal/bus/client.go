package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second
	// pongWait is how long the peer may stay silent before the read fails.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = 54 * time.Second

	reconnectMin = 500 * time.Millisecond
	reconnectMax = 15 * time.Second
)

// ClientConfig configures a relay connection.
type ClientConfig struct {
	// EngineID identifies this engine on the bus.
	EngineID string
	// RelayURL is the websocket endpoint, e.g. "ws://localhost:9190/bus".
	RelayURL string
	// Buffer is the queue depth in each direction. <= 0 selects
	// DefaultBuffer.
	Buffer int
}

// Client connects an engine to the relay. Messages sent while disconnected
// queue up to the buffer size and flush after reconnect; beyond that they
// are dropped, keeping the at-most-once contract.
type Client struct {
	cfg ClientConfig
	log *zap.Logger

	outgoing chan []byte
	incoming chan Message

	stop     chan struct{}
	stopOnce sync.Once
	dropped  atomic.Int64
}

// NewClient creates a client. Run must be called to connect.
//
// Precondition: cfg.EngineID and cfg.RelayURL must be non-empty.
func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Client{
		cfg:      cfg,
		log:      log,
		outgoing: make(chan []byte, buffer),
		incoming: make(chan Message, buffer),
		stop:     make(chan struct{}),
	}
}

// Run dials the relay and serves the connection, reconnecting with capped
// backoff until ctx is canceled or Close is called. Incoming closes on
// return.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	defer close(c.incoming)

	backoff := reconnectMin
	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.RelayURL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("relay dial failed",
				zap.String("url", c.cfg.RelayURL),
				zap.Duration("retry_in", backoff),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > reconnectMax {
				backoff = reconnectMax
			}
			continue
		}
		backoff = reconnectMin
		c.log.Info("connected to relay",
			zap.String("url", c.cfg.RelayURL),
			zap.String("engine_id", c.cfg.EngineID))
		c.serve(ctx, conn)
	}
}

// SendTo queues a message for exactly one engine.
func (c *Client) SendTo(targetEngineID string, msg Message) error {
	if targetEngineID == "" {
		return fmt.Errorf("empty target engine ID")
	}
	data, err := encodeMessage(c.cfg.EngineID, targetEngineID, msg)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

// Broadcast queues a message for every engine.
func (c *Client) Broadcast(msg Message) error {
	data, err := encodeMessage(c.cfg.EngineID, "", msg)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

// Incoming yields messages from other engines.
func (c *Client) Incoming() <-chan Message {
	return c.incoming
}

// Close stops Run.
func (c *Client) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

// Dropped reports messages lost to full queues in either direction.
func (c *Client) Dropped() int64 {
	return c.dropped.Load()
}

func (c *Client) enqueue(data []byte) error {
	select {
	case c.outgoing <- data:
		return nil
	default:
		c.dropped.Add(1)
		return fmt.Errorf("bus send queue full")
	}
}

// serve runs one connection: hello, then the write loop inline with the
// read loop in a goroutine. Returns when either side fails or ctx ends.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	hello, err := helloFrame(c.cfg.EngineID)
	if err != nil {
		c.log.Error("building hello frame", zap.Error(err))
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		c.log.Warn("relay hello failed", zap.Error(err))
		return
	}

	readDone := make(chan struct{})
	go c.readLoop(conn, readDone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-readDone:
			return
		case data := <-c.outgoing:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Warn("relay write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("relay read failed", zap.Error(err))
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn("dropping malformed bus frame", zap.Error(err))
			continue
		}
		if env.Type == kindHello {
			continue
		}
		if env.SourceEngineID == c.cfg.EngineID {
			// Own broadcast echoed back by the relay.
			continue
		}
		msg, err := envelopeToMessage(env)
		if err != nil {
			c.log.Warn("dropping undecodable bus message",
				zap.String("type", env.Type), zap.Error(err))
			continue
		}
		select {
		case c.incoming <- msg:
		default:
			c.dropped.Add(1)
			c.log.Warn("incoming bus queue full, dropping message",
				zap.String("type", env.Type))
		}
	}
}
