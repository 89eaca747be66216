// Package relay implements the inter-engine message hub. Engines connect
// over websocket, identify themselves with a hello frame, and the hub
// routes every later frame by its header: targeted frames go to one engine,
// the rest fan out to all of them. Payloads pass through opaquely.
package relay

import (
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/bus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// helloWait bounds how long a fresh connection may stall before
	// identifying itself.
	helloWait = 10 * time.Second

	sendBuffer = 256
)

// Hub accepts engine connections and routes frames between them.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	engines map[string]*engineConn

	routed  atomic.Int64
	dropped atomic.Int64
}

// New creates an empty hub.
func New(log *zap.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		engines: make(map[string]*engineConn),
	}
}

// ServeHTTP upgrades the connection and serves it until it drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed",
			zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	engineID, ok := h.awaitHello(ws)
	if !ok {
		ws.Close()
		return
	}

	conn := &engineConn{
		id:   engineID,
		ws:   ws,
		send: make(chan []byte, sendBuffer),
	}
	h.register(conn)
	go conn.writePump()
	h.readLoop(conn)
	h.unregister(conn)
}

// Engines returns the connected engine IDs in lexical order.
func (h *Hub) Engines() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.engines))
	for id := range h.engines {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Routed reports frames delivered to at least one engine.
func (h *Hub) Routed() int64 {
	return h.routed.Load()
}

// Dropped reports frames lost to unknown targets or full queues.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close disconnects every engine.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*engineConn, 0, len(h.engines))
	for _, conn := range h.engines {
		conns = append(conns, conn)
	}
	h.engines = make(map[string]*engineConn)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
}

// awaitHello reads the identifying first frame.
func (h *Hub) awaitHello(ws *websocket.Conn) (string, bool) {
	ws.SetReadDeadline(time.Now().Add(helloWait))
	_, data, err := ws.ReadMessage()
	if err != nil {
		h.log.Warn("connection failed before hello", zap.Error(err))
		return "", false
	}
	hdr, err := bus.ParseFrameHeader(data)
	if err != nil || !hdr.IsHello() || hdr.SourceEngineID == "" {
		h.log.Warn("rejecting connection: first frame is not a valid hello")
		return "", false
	}
	return hdr.SourceEngineID, true
}

// register installs the connection, displacing any stale connection that
// still holds the same engine ID after a reconnect.
func (h *Hub) register(conn *engineConn) {
	h.mu.Lock()
	prior := h.engines[conn.id]
	h.engines[conn.id] = conn
	h.mu.Unlock()

	if prior != nil {
		h.log.Info("displacing stale engine connection", zap.String("engine_id", conn.id))
		prior.close()
	}
	h.log.Info("engine connected", zap.String("engine_id", conn.id))
}

// unregister removes the connection unless a newer one already took its
// slot.
func (h *Hub) unregister(conn *engineConn) {
	h.mu.Lock()
	if h.engines[conn.id] == conn {
		delete(h.engines, conn.id)
	}
	h.mu.Unlock()

	conn.close()
	h.log.Info("engine disconnected", zap.String("engine_id", conn.id))
}

func (h *Hub) readLoop(conn *engineConn) {
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("engine read failed",
					zap.String("engine_id", conn.id), zap.Error(err))
			}
			return
		}

		hdr, err := bus.ParseFrameHeader(data)
		if err != nil {
			h.log.Warn("dropping malformed frame",
				zap.String("engine_id", conn.id), zap.Error(err))
			h.dropped.Add(1)
			continue
		}
		if hdr.IsHello() {
			continue
		}
		h.route(hdr, data)
	}
}

// route delivers a frame. Broadcasts include the sender; the client drops
// its own messages on receipt.
func (h *Hub) route(hdr bus.FrameHeader, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if hdr.TargetEngineID != "" {
		target, ok := h.engines[hdr.TargetEngineID]
		if !ok {
			h.dropped.Add(1)
			h.log.Debug("dropping frame for unknown engine",
				zap.String("target", hdr.TargetEngineID),
				zap.String("type", hdr.Type))
			return
		}
		if target.push(data) {
			h.routed.Add(1)
		} else {
			h.dropped.Add(1)
		}
		return
	}

	delivered := false
	for _, conn := range h.engines {
		if conn.push(data) {
			delivered = true
		} else {
			h.dropped.Add(1)
		}
	}
	if delivered {
		h.routed.Add(1)
	}
}

// engineConn is one engine's connection with its buffered writer.
type engineConn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// push queues a frame, reporting false when the queue is full or closed.
func (c *engineConn) push(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close stops the write pump, which closes the socket.
func (c *engineConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *engineConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
