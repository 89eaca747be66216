package bus

import (
	"fmt"
	"sync"
)

// DefaultBuffer is the incoming-queue depth for local bus members.
const DefaultBuffer = 256

// LocalExchange wires engines together in-process. It implements the same
// at-most-once contract as the relay transport: a member whose incoming
// queue is full loses the message.
type LocalExchange struct {
	mu      sync.RWMutex
	buffer  int
	members map[string]*LocalBus
}

// NewLocalExchange creates an exchange whose members queue up to buffer
// messages each. buffer <= 0 selects DefaultBuffer.
func NewLocalExchange(buffer int) *LocalExchange {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &LocalExchange{
		buffer:  buffer,
		members: make(map[string]*LocalBus),
	}
}

// Join registers an engine and returns its bus endpoint.
//
// Precondition: engineID must not already be joined.
func (x *LocalExchange) Join(engineID string) (*LocalBus, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, dup := x.members[engineID]; dup {
		return nil, fmt.Errorf("engine %q already joined", engineID)
	}
	b := &LocalBus{
		exchange: x,
		engineID: engineID,
		incoming: make(chan Message, x.buffer),
	}
	x.members[engineID] = b
	return b, nil
}

// deliver routes an encoded-equivalent message. Self-origin drop happens
// here rather than on receipt; the observable behavior matches the relay
// transport, where the receiving client discards its own messages.
func (x *LocalExchange) deliver(from, target string, msg Message) error {
	msg.SourceEngineID = from

	x.mu.RLock()
	defer x.mu.RUnlock()

	if target != "" {
		member, ok := x.members[target]
		if !ok {
			return fmt.Errorf("engine %q is not joined", target)
		}
		member.push(msg)
		return nil
	}

	for id, member := range x.members {
		if id == from {
			continue
		}
		member.push(msg)
	}
	return nil
}

func (x *LocalExchange) leave(engineID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if member, ok := x.members[engineID]; ok {
		delete(x.members, engineID)
		close(member.incoming)
	}
}

// LocalBus is one engine's endpoint on a LocalExchange.
type LocalBus struct {
	exchange *LocalExchange
	engineID string
	incoming chan Message

	mu      sync.Mutex
	closed  bool
	dropped int
}

// SendTo delivers to exactly one engine.
func (b *LocalBus) SendTo(targetEngineID string, msg Message) error {
	if targetEngineID == "" {
		return fmt.Errorf("empty target engine ID")
	}
	return b.exchange.deliver(b.engineID, targetEngineID, msg)
}

// Broadcast delivers to every other engine on the exchange.
func (b *LocalBus) Broadcast(msg Message) error {
	return b.exchange.deliver(b.engineID, "", msg)
}

// Incoming yields messages for this engine.
func (b *LocalBus) Incoming() <-chan Message {
	return b.incoming
}

// Close leaves the exchange and closes Incoming.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.exchange.leave(b.engineID)
	return nil
}

// Dropped reports how many messages this member lost to a full queue.
func (b *LocalBus) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *LocalBus) push(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.incoming <- msg:
	default:
		b.dropped++
	}
}
