// Package clock abstracts the engine's time source. Every subsystem that
// reads time does so through a Clock so tests can substitute a settable one.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current engine time in milliseconds. The zero point is
// implementation-defined; only differences and ordering are meaningful.
type Clock interface {
	// NowMs returns the current time in milliseconds. Values never decrease.
	NowMs() int64
}

// System reports Unix epoch milliseconds, advanced by the monotonic clock
// so a wall-clock step never makes time run backward.
type System struct {
	start   time.Time
	startMs int64
}

// NewSystem creates a System clock anchored at the current instant.
//
// Postcondition: NowMs() returns epoch milliseconds and advances
// monotonically.
func NewSystem() *System {
	now := time.Now()
	return &System{start: now, startMs: now.UnixMilli()}
}

// NowMs returns the current time as Unix epoch milliseconds.
func (s *System) NowMs() int64 {
	return s.startMs + time.Since(s.start).Milliseconds()
}

// Mutable is a test clock whose time only moves when told to.
// Safe for concurrent use.
type Mutable struct {
	mu  sync.Mutex
	now int64
}

// NewMutable creates a Mutable clock at time nowMs.
func NewMutable(nowMs int64) *Mutable {
	return &Mutable{now: nowMs}
}

// NowMs returns the clock's current time.
func (m *Mutable) NowMs() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to nowMs.
//
// Precondition: nowMs must not be earlier than the current time.
func (m *Mutable) Set(nowMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if nowMs > m.now {
		m.now = nowMs
	}
}

// Advance moves the clock forward by deltaMs.
//
// Precondition: deltaMs must be >= 0.
func (m *Mutable) Advance(deltaMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if deltaMs > 0 {
		m.now += deltaMs
	}
}
