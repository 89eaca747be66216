package feature

import (
	"fmt"
	"strings"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

// Registry owns every installed fixture, indexed by room, and tracks which
// positions have unsaved changes. It is accessed only from the engine
// goroutine, so it takes no locks.
type Registry struct {
	features map[ids.FeatureID]*State
	byRoom   map[ids.RoomID][]*State
	dirty    map[ids.FeatureID]struct{}
}

// NewRegistry creates an empty feature Registry.
func NewRegistry() *Registry {
	return &Registry{
		features: make(map[ids.FeatureID]*State),
		byRoom:   make(map[ids.RoomID][]*State),
		dirty:    make(map[ids.FeatureID]struct{}),
	}
}

// Install places a fixture in a room at its definition's initial position.
//
// Postcondition: Returns an error if the room already has a fixture with
// the same local name.
func (r *Registry) Install(room ids.RoomID, def *Definition) (*State, error) {
	id := ids.MakeFeatureID(room, def.Local)
	if _, exists := r.features[id]; exists {
		return nil, fmt.Errorf("room %s already has feature %q", room, def.Local)
	}
	st := newState(id, def)
	r.features[id] = st
	r.byRoom[room] = append(r.byRoom[room], st)
	return st, nil
}

// Get returns a fixture by identity.
func (r *Registry) Get(id ids.FeatureID) (*State, bool) {
	st, ok := r.features[id]
	return st, ok
}

// InRoom lists a room's fixtures in install order.
func (r *Registry) InRoom(room ids.RoomID) []*State {
	return r.byRoom[room]
}

// Find returns the fixture in a room matching a local name,
// case-insensitively.
func (r *Registry) Find(room ids.RoomID, local string) (*State, bool) {
	local = strings.ToLower(local)
	for _, st := range r.byRoom[room] {
		if strings.ToLower(st.Def.Local) == local {
			return st, true
		}
	}
	return nil, false
}

// DoorAt returns the door guarding an exit direction, if any.
func (r *Registry) DoorAt(room ids.RoomID, dir ids.Direction) (*State, bool) {
	for _, st := range r.byRoom[room] {
		if st.Def.Kind == KindDoor && st.Def.Direction == dir {
			return st, true
		}
	}
	return nil, false
}

// OpenDoor transitions a door from CLOSED to OPEN.
func (r *Registry) OpenDoor(id ids.FeatureID) error {
	st, err := r.kindOf(id, KindDoor)
	if err != nil {
		return err
	}
	switch st.door {
	case ids.DoorLocked:
		return ErrLocked
	case ids.DoorOpen:
		return ErrAlreadyOpen
	}
	st.door = ids.DoorOpen
	r.markDirty(id)
	return nil
}

// CloseDoor transitions a door from OPEN to CLOSED.
func (r *Registry) CloseDoor(id ids.FeatureID) error {
	st, err := r.kindOf(id, KindDoor)
	if err != nil {
		return err
	}
	if st.door != ids.DoorOpen {
		return ErrAlreadyClosed
	}
	st.door = ids.DoorClosed
	r.markDirty(id)
	return nil
}

// UnlockDoor transitions a door from LOCKED to CLOSED. Key possession is
// the caller's check.
func (r *Registry) UnlockDoor(id ids.FeatureID) error {
	st, err := r.kindOf(id, KindDoor)
	if err != nil {
		return err
	}
	if st.door != ids.DoorLocked {
		return ErrNotLocked
	}
	st.door = ids.DoorClosed
	r.markDirty(id)
	return nil
}

// OpenContainer transitions a container from CLOSED to OPEN.
func (r *Registry) OpenContainer(id ids.FeatureID) error {
	st, err := r.kindOf(id, KindContainer)
	if err != nil {
		return err
	}
	if st.container == ids.ContainerOpen {
		return ErrAlreadyOpen
	}
	st.container = ids.ContainerOpen
	r.markDirty(id)
	return nil
}

// CloseContainer transitions a container from OPEN to CLOSED.
func (r *Registry) CloseContainer(id ids.FeatureID) error {
	st, err := r.kindOf(id, KindContainer)
	if err != nil {
		return err
	}
	if st.container == ids.ContainerClosed {
		return ErrAlreadyClosed
	}
	st.container = ids.ContainerClosed
	r.markDirty(id)
	return nil
}

// PullLever toggles a lever and returns its new position.
func (r *Registry) PullLever(id ids.FeatureID) (ids.LeverState, error) {
	st, err := r.kindOf(id, KindLever)
	if err != nil {
		return "", err
	}
	st.lever = st.lever.Toggled()
	r.markDirty(id)
	return st.lever, nil
}

// ApplyPersisted overlays stored positions onto installed fixtures.
// Positions for fixtures the world no longer defines are skipped.
func (r *Registry) ApplyPersisted(states map[ids.FeatureID]string) error {
	for id, raw := range states {
		st, ok := r.features[id]
		if !ok {
			continue
		}
		if err := st.setStateString(raw); err != nil {
			return err
		}
	}
	return nil
}

// DirtyStates returns positions changed since the last flush.
func (r *Registry) DirtyStates() []Persisted {
	if len(r.dirty) == 0 {
		return nil
	}
	out := make([]Persisted, 0, len(r.dirty))
	for id := range r.dirty {
		if st, ok := r.features[id]; ok {
			out = append(out, Persisted{ID: id, State: st.StateString()})
		}
	}
	return out
}

// ClearDirty forgets tracked changes after a successful flush.
func (r *Registry) ClearDirty() {
	r.dirty = make(map[ids.FeatureID]struct{})
}

func (r *Registry) kindOf(id ids.FeatureID, kind Kind) (*State, error) {
	st, ok := r.features[id]
	if !ok {
		return nil, fmt.Errorf("feature %s is not installed", id)
	}
	if st.Def.Kind != kind {
		return nil, fmt.Errorf("%w: %s is a %s", ErrWrongKind, id, st.Def.Kind)
	}
	return st, nil
}

// MarkDirty re-flags an installed fixture for the next persistence flush.
// Used when a write-behind save fails after its dirty flags were consumed.
func (r *Registry) MarkDirty(id ids.FeatureID) {
	if _, ok := r.features[id]; ok {
		r.dirty[id] = struct{}{}
	}
}

func (r *Registry) markDirty(id ids.FeatureID) {
	r.dirty[id] = struct{}{}
}
