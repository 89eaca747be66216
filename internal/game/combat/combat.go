// Package combat tracks who is fighting whom. Engagements pair a player
// session with a mob; the registry caches the player's equipment-derived
// defense, tracks per-mob threat so counter-swings pick the right victim,
// and leaves all scheduling to the caller.
package combat

import (
	"sort"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

// Config tunes the damage model.
type Config struct {
	// MinDamage and MaxDamage bound the uniform swing roll.
	MinDamage int
	MaxDamage int
	// SwingIntervalMs separates consecutive swings of one combatant.
	SwingIntervalMs int64
	// FleeChance is the probability a flee attempt succeeds.
	FleeChance float64
}

// DefaultConfig returns the stock damage model.
func DefaultConfig() Config {
	return Config{
		MinDamage:       1,
		MaxDamage:       4,
		SwingIntervalMs: 2000,
		FleeChance:      0.5,
	}
}

// State is one player's side of an engagement.
type State struct {
	// Target is the engaged mob.
	Target ids.MobID
	// NextSwingDueAtMs is when the player's next swing lands. It advances
	// by the configured interval after every swing regardless of outcome.
	NextSwingDueAtMs int64
	// Defense is the cached equipment armor sum, refreshed on any
	// equipment change.
	Defense int
}

// Registry owns every live engagement. It is accessed only from the engine
// goroutine, so it takes no locks.
type Registry struct {
	byPlayer map[ids.SessionID]*State
	threat   map[ids.MobID]map[ids.SessionID]int
}

// NewRegistry creates an empty combat Registry.
func NewRegistry() *Registry {
	return &Registry{
		byPlayer: make(map[ids.SessionID]*State),
		threat:   make(map[ids.MobID]map[ids.SessionID]int),
	}
}

// Engage opens an engagement and returns its state. An existing engagement
// is retargeted in place.
func (r *Registry) Engage(sid ids.SessionID, target ids.MobID, defense int, nowMs, intervalMs int64) *State {
	if st, ok := r.byPlayer[sid]; ok {
		if st.Target != target {
			r.dropThreat(st.Target, sid)
			st.Target = target
		}
		st.Defense = defense
		r.touchThreat(target, sid)
		return st
	}
	st := &State{
		Target:           target,
		NextSwingDueAtMs: nowMs + intervalMs,
		Defense:          defense,
	}
	r.byPlayer[sid] = st
	r.touchThreat(target, sid)
	return st
}

// Get returns a player's engagement.
func (r *Registry) Get(sid ids.SessionID) (*State, bool) {
	st, ok := r.byPlayer[sid]
	return st, ok
}

// InCombat reports whether a player is engaged.
func (r *Registry) InCombat(sid ids.SessionID) bool {
	_, ok := r.byPlayer[sid]
	return ok
}

// Disengage closes a player's engagement, returning the mob it targeted.
func (r *Registry) Disengage(sid ids.SessionID) (ids.MobID, bool) {
	st, ok := r.byPlayer[sid]
	if !ok {
		return 0, false
	}
	delete(r.byPlayer, sid)
	r.dropThreat(st.Target, sid)
	return st.Target, true
}

// DisengageMob closes every engagement targeting a mob, returning the
// players that were fighting it in session order.
func (r *Registry) DisengageMob(target ids.MobID) []ids.SessionID {
	set := r.threat[target]
	if len(set) == 0 {
		return nil
	}
	out := make([]ids.SessionID, 0, len(set))
	for sid := range set {
		out = append(out, sid)
		delete(r.byPlayer, sid)
	}
	delete(r.threat, target)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Attackers lists the players engaged with a mob in session order.
func (r *Registry) Attackers(target ids.MobID) []ids.SessionID {
	set := r.threat[target]
	if len(set) == 0 {
		return nil
	}
	out := make([]ids.SessionID, 0, len(set))
	for sid := range set {
		out = append(out, sid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AddThreat credits damage dealt toward the mob's target selection.
func (r *Registry) AddThreat(target ids.MobID, sid ids.SessionID, damage int) {
	if set, ok := r.threat[target]; ok {
		if _, engaged := set[sid]; engaged {
			set[sid] += damage
		}
	}
}

// TopAttacker picks the mob's counter-swing victim: highest accumulated
// threat, ties broken by lowest session id for determinism.
func (r *Registry) TopAttacker(target ids.MobID) (ids.SessionID, bool) {
	set := r.threat[target]
	if len(set) == 0 {
		return 0, false
	}
	var best ids.SessionID
	bestThreat := -1
	for sid, threat := range set {
		if threat > bestThreat || (threat == bestThreat && sid < best) {
			best = sid
			bestThreat = threat
		}
	}
	return best, true
}

// RefreshDefense updates the cached armor sum after an equipment change.
func (r *Registry) RefreshDefense(sid ids.SessionID, defense int) {
	if st, ok := r.byPlayer[sid]; ok {
		st.Defense = defense
	}
}

// AdvanceSwing pushes the player's next swing one interval out and returns
// the new due time.
func (r *Registry) AdvanceSwing(sid ids.SessionID, intervalMs int64) (int64, bool) {
	st, ok := r.byPlayer[sid]
	if !ok {
		return 0, false
	}
	st.NextSwingDueAtMs += intervalMs
	return st.NextSwingDueAtMs, true
}

// Rekey transfers an engagement to a new session id. Used when a login
// takes over a live connection.
func (r *Registry) Rekey(from, to ids.SessionID) {
	st, ok := r.byPlayer[from]
	if !ok {
		return
	}
	delete(r.byPlayer, from)
	r.byPlayer[to] = st
	if set, ok := r.threat[st.Target]; ok {
		if threat, engaged := set[from]; engaged {
			delete(set, from)
			set[to] = threat
		}
	}
}

func (r *Registry) touchThreat(target ids.MobID, sid ids.SessionID) {
	set, ok := r.threat[target]
	if !ok {
		set = make(map[ids.SessionID]int)
		r.threat[target] = set
	}
	if _, engaged := set[sid]; !engaged {
		set[sid] = 0
	}
}

func (r *Registry) dropThreat(target ids.MobID, sid ids.SessionID) {
	set, ok := r.threat[target]
	if !ok {
		return
	}
	delete(set, sid)
	if len(set) == 0 {
		delete(r.threat, target)
	}
}
