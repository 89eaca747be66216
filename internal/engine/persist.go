package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/game/feature"
	"github.com/driftwood-mud/engine/internal/game/player"
)

const (
	persistQueueDepth = 256
	persistAttempts   = 3
	persistBackoff    = 250 * time.Millisecond
	persistTimeout    = 5 * time.Second
)

// FeatureStore persists fixture state overlays between runs.
type FeatureStore interface {
	SaveStates(ctx context.Context, states []feature.Persisted) error
}

// persistJob is one unit of write-behind work: a player record, a batch of
// fixture states, or both. onFail runs after the last attempt gives up so
// the engine can re-flag the state as dirty.
type persistJob struct {
	player   *player.Record
	features []feature.Persisted
	onFail   func()
}

// Persister drains snapshots to storage off the engine goroutine. The
// engine hands it immutable records; the persister owns retries and
// backoff so a slow or flapping database never stalls a tick.
type Persister struct {
	log      *zap.Logger
	players  player.Repository
	features FeatureStore
	jobs     chan persistJob
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewPersister builds a write-behind persister. featureStore may be nil
// when fixture state is not persisted.
func NewPersister(log *zap.Logger, players player.Repository, featureStore FeatureStore) *Persister {
	return &Persister{
		log:      log,
		players:  players,
		features: featureStore,
		jobs:     make(chan persistJob, persistQueueDepth),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Name implements server.Service.
func (p *Persister) Name() string { return "persister" }

// Run drains the job queue. Context cancellation alone does not end it:
// stopping services flush late, so Run keeps serving until Shutdown marks
// the producers finished, then clears the backlog and returns.
func (p *Persister) Run(ctx context.Context) error {
	defer close(p.done)
	for {
		select {
		case job := <-p.jobs:
			p.execute(job)
		case <-ctx.Done():
			return p.serveUntilStopped()
		case <-p.stop:
			return p.drain()
		}
	}
}

func (p *Persister) serveUntilStopped() error {
	for {
		select {
		case job := <-p.jobs:
			p.execute(job)
		case <-p.stop:
			return p.drain()
		}
	}
}

// drain finishes everything already buffered.
func (p *Persister) drain() error {
	for {
		select {
		case job := <-p.jobs:
			p.execute(job)
		default:
			return nil
		}
	}
}

// Shutdown implements server.Service: it declares the producers finished
// and waits for the backlog to drain.
func (p *Persister) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stop) })
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue accepts a job without blocking. A full queue fails the job
// immediately through its onFail hook.
func (p *Persister) Enqueue(job persistJob) {
	select {
	case p.jobs <- job:
	default:
		p.log.Warn("persist queue full, dropping job")
		if job.onFail != nil {
			job.onFail()
		}
	}
}

func (p *Persister) execute(job persistJob) {
	var err error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		if err = p.try(job); err == nil {
			return
		}
		p.log.Warn("persist attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < persistAttempts {
			time.Sleep(time.Duration(attempt) * persistBackoff)
		}
	}
	p.log.Error("persist job abandoned", zap.Error(err))
	if job.onFail != nil {
		job.onFail()
	}
}

func (p *Persister) try(job persistJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if job.player != nil {
		if err := p.players.Save(ctx, job.player); err != nil {
			return fmt.Errorf("saving player %s: %w", job.player.Name, err)
		}
	}
	if len(job.features) > 0 && p.features != nil {
		if err := p.features.SaveStates(ctx, job.features); err != nil {
			return fmt.Errorf("saving %d fixture states: %w", len(job.features), err)
		}
	}
	return nil
}

// enqueuePlayerSave ships a player record to the persister. A failed save
// re-flags the player so the next flush retries, if they are still online.
func (e *Engine) enqueuePlayerSave(rec *player.Record) {
	if e.persister == nil {
		return
	}
	name := rec.Name
	e.persister.Enqueue(persistJob{
		player: rec,
		onFail: func() {
			e.post(func() {
				if st, ok := e.players.ByName(name); ok {
					st.Dirty = true
				}
			})
		},
	})
}

// enqueueFeatureSave ships fixture states to the persister, re-flagging
// them on failure.
func (e *Engine) enqueueFeatureSave(states []feature.Persisted) {
	if e.persister == nil {
		return
	}
	e.persister.Enqueue(persistJob{
		features: states,
		onFail: func() {
			e.post(func() {
				for _, s := range states {
					e.features.MarkDirty(s.ID)
				}
			})
		},
	})
}

// flushTick snapshots every dirty player and changed fixture for the
// write-behind queue, then re-arms itself.
func (e *Engine) flushTick() {
	defer e.sched.ScheduleIn(e.cfg.FlushIntervalMs, e.flushTick)
	if e.persister == nil {
		return
	}
	flushed := 0
	for _, st := range e.players.All() {
		if !st.Dirty {
			continue
		}
		st.Dirty = false
		inv, eq := e.snapshotHoldings(st.Session)
		e.enqueuePlayerSave(st.ToRecord(inv, eq))
		flushed++
	}
	states := e.features.DirtyStates()
	if len(states) > 0 {
		e.features.ClearDirty()
		e.enqueueFeatureSave(states)
	}
	if flushed > 0 || len(states) > 0 {
		e.log.Debug("periodic flush",
			zap.Int("players", flushed),
			zap.Int("fixtures", len(states)),
		)
	}
}

// finalFlush enqueues every online player and changed fixture at shutdown.
// The persister is stopped after the engine, so it drains these before the
// process exits.
func (e *Engine) finalFlush() {
	if e.persister == nil {
		return
	}
	for _, st := range e.players.All() {
		st.Dirty = false
		inv, eq := e.snapshotHoldings(st.Session)
		e.enqueuePlayerSave(st.ToRecord(inv, eq))
	}
	if states := e.features.DirtyStates(); len(states) > 0 {
		e.features.ClearDirty()
		e.enqueueFeatureSave(states)
	}
	e.log.Info("final flush enqueued", zap.Int("players", e.players.Count()))
}
