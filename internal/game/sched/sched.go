// Package sched provides the engine's deterministic action scheduler: a
// min-heap of timed callbacks drained in bounded batches on each tick.
package sched

import (
	"container/heap"

	"github.com/driftwood-mud/engine/internal/game/clock"
)

// Action is a scheduled callback. Actions run on the engine goroutine and
// may schedule further actions.
type Action func()

// entry is a heap element. Ties on dueAtMs break by insertion sequence so
// same-millisecond actions run in the order they were scheduled.
type entry struct {
	dueAtMs int64
	seq     uint64
	run     Action
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].dueAtMs != h[j].dueAtMs {
		return h[i].dueAtMs < h[j].dueAtMs
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(*entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Scheduler orders actions by due time and runs them in bounded batches.
// It is owned by the engine goroutine and is not safe for concurrent use.
type Scheduler struct {
	clk     clock.Clock
	entries entryHeap
	nextSeq uint64
}

// New creates an empty Scheduler reading time from clk.
//
// Precondition: clk must be non-nil.
func New(clk clock.Clock) *Scheduler {
	return &Scheduler{clk: clk}
}

// ScheduleAt queues action to run once the clock reaches dueAtMs.
//
// Precondition: action must be non-nil.
func (s *Scheduler) ScheduleAt(dueAtMs int64, action Action) {
	e := &entry{dueAtMs: dueAtMs, seq: s.nextSeq, run: action}
	s.nextSeq++
	heap.Push(&s.entries, e)
}

// ScheduleIn queues action to run delayMs from now.
//
// Precondition: action must be non-nil. Negative delays schedule in the past
// and run on the next RunDue.
func (s *Scheduler) ScheduleIn(delayMs int64, action Action) {
	s.ScheduleAt(s.clk.NowMs()+delayMs, action)
}

// RunDue executes up to maxActions ready actions in (dueAtMs, insertion)
// order. An action is ready when its due time is at or before the clock
// reading taken on entry; actions scheduled during the call are eligible in
// the same call only if already due and the cap has slack.
//
// Postcondition: ran <= maxActions; deferred counts ready actions left in
// the queue (future-due actions are never counted); no future-due action was
// executed.
func (s *Scheduler) RunDue(maxActions int) (ran, deferred int) {
	now := s.clk.NowMs()
	for ran < maxActions && len(s.entries) > 0 && s.entries[0].dueAtMs <= now {
		e := heap.Pop(&s.entries).(*entry)
		e.run()
		ran++
	}
	for _, e := range s.entries {
		if e.dueAtMs <= now {
			deferred++
		}
	}
	return ran, deferred
}

// Len returns the number of queued actions, ready or not.
func (s *Scheduler) Len() int {
	return len(s.entries)
}
