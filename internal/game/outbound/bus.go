package outbound

import (
	"fmt"
	"sync"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

// DefaultBufferSize is the per-session queue capacity when none is given.
const DefaultBufferSize = 64

// queue is one session's ordered event buffer. The engine goroutine pushes;
// exactly one writer goroutine drains.
type queue struct {
	mu      sync.Mutex
	events  chan Event
	closing bool
}

// Bus fans events out to per-session FIFO queues. Per-session delivery order
// is exactly push order; no ordering holds across sessions.
type Bus struct {
	mu         sync.RWMutex
	queues     map[ids.SessionID]*queue
	bufferSize int
	highWater  int
}

// NewBus creates a Bus with the given per-session buffer capacity.
//
// Postcondition: The pressure high-water mark is half the buffer capacity.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{
		queues:     make(map[ids.SessionID]*queue),
		bufferSize: bufferSize,
		highWater:  bufferSize / 2,
	}
}

// Open creates the queue for a newly connected session and returns its
// read side for the session's writer goroutine.
//
// Postcondition: Returns an error if the session already has a queue.
func (b *Bus) Open(sid ids.SessionID) (<-chan Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.queues[sid]; exists {
		return nil, fmt.Errorf("outbound queue for %s already open", sid)
	}
	q := &queue{events: make(chan Event, b.bufferSize)}
	b.queues[sid] = q
	return q.events, nil
}

// Push enqueues an event for its session without blocking.
//
// Postcondition: Returns an error if the session has no queue, the queue is
// closing (a Close was already pushed), or the buffer is full. A KindClose
// event marks the queue closing; it is still delivered after all pending
// events.
func (b *Bus) Push(ev Event) error {
	b.mu.RLock()
	q, ok := b.queues[ev.Session]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no outbound queue for %s", ev.Session)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closing {
		return fmt.Errorf("outbound queue for %s is closing", ev.Session)
	}
	select {
	case q.events <- ev:
		if ev.Kind == KindClose {
			q.closing = true
		}
		return nil
	default:
		return fmt.Errorf("outbound queue for %s is full", ev.Session)
	}
}

// Remove drops a session's queue and closes its channel. Called by the I/O
// layer after it drains a Close event, or when the socket dies.
func (b *Bus) Remove(sid ids.SessionID) {
	b.mu.Lock()
	q, ok := b.queues[sid]
	if ok {
		delete(b.queues, sid)
	}
	b.mu.Unlock()
	if !ok {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.closing = true
	close(q.events)
}

// Pressured reports whether a session's queue depth is at or above the
// high-water mark. Handlers consult this to degrade non-essential broadcasts.
func (b *Bus) Pressured(sid ids.SessionID) bool {
	b.mu.RLock()
	q, ok := b.queues[sid]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	return len(q.events) >= b.highWater
}

// Depth returns the number of buffered events for a session.
func (b *Bus) Depth(sid ids.SessionID) int {
	b.mu.RLock()
	q, ok := b.queues[sid]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	return len(q.events)
}

// Sessions returns the IDs of every open queue, in no particular order.
func (b *Bus) Sessions() []ids.SessionID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]ids.SessionID, 0, len(b.queues))
	for sid := range b.queues {
		out = append(out, sid)
	}
	return out
}
