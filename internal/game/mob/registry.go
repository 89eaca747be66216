package mob

import (
	"fmt"
	"sort"
	"strings"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

// Registry owns every live spawn and a room index over them. It is accessed
// only from the engine goroutine, so it takes no locks.
type Registry struct {
	mobs   map[ids.MobID]*State
	rooms  map[ids.RoomID]map[ids.MobID]struct{}
	nextID ids.MobID
}

// NewRegistry creates an empty mob Registry.
func NewRegistry() *Registry {
	return &Registry{
		mobs:  make(map[ids.MobID]*State),
		rooms: make(map[ids.RoomID]map[ids.MobID]struct{}),
	}
}

// Spawn mints a live mob from tmpl at room, which also becomes its home.
func (r *Registry) Spawn(tmpl *Template, room ids.RoomID) *State {
	r.nextID++
	st := &State{
		ID:       r.nextID,
		Tmpl:     tmpl,
		RoomID:   room,
		HomeRoom: room,
		Hp:       tmpl.MaxHp,
	}
	r.mobs[st.ID] = st
	r.indexRoom(room, st.ID)
	return st
}

// Get returns a live spawn by id.
func (r *Registry) Get(id ids.MobID) (*State, bool) {
	st, ok := r.mobs[id]
	return st, ok
}

// Remove deletes a spawn from the registry, returning its final state.
// Callers handle drops, rewards, and respawn scheduling.
func (r *Registry) Remove(id ids.MobID) (*State, bool) {
	st, ok := r.mobs[id]
	if !ok {
		return nil, false
	}
	delete(r.mobs, id)
	r.unindexRoom(st.RoomID, id)
	return st, true
}

// MoveTo relocates a spawn and returns the room it left.
func (r *Registry) MoveTo(id ids.MobID, to ids.RoomID) (ids.RoomID, error) {
	st, ok := r.mobs[id]
	if !ok {
		return "", fmt.Errorf("mob %d is not live", id)
	}
	from := st.RoomID
	r.unindexRoom(from, id)
	r.indexRoom(to, id)
	st.RoomID = to
	return from, nil
}

// MobsInRoom lists a room's spawns in spawn order.
func (r *Registry) MobsInRoom(room ids.RoomID) []*State {
	set := r.rooms[room]
	if len(set) == 0 {
		return nil
	}
	out := make([]*State, 0, len(set))
	for id := range set {
		out = append(out, r.mobs[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindInRoom returns the first spawn in a room whose keyword matches kw,
// case-insensitively, in spawn order.
func (r *Registry) FindInRoom(room ids.RoomID, kw string) (*State, bool) {
	kw = strings.ToLower(kw)
	for _, st := range r.MobsInRoom(room) {
		if strings.ToLower(st.Tmpl.Keyword) == kw {
			return st, true
		}
	}
	return nil, false
}

// Count returns the number of live spawns.
func (r *Registry) Count() int {
	return len(r.mobs)
}

func (r *Registry) indexRoom(room ids.RoomID, id ids.MobID) {
	set, ok := r.rooms[room]
	if !ok {
		set = make(map[ids.MobID]struct{})
		r.rooms[room] = set
	}
	set[id] = struct{}{}
}

func (r *Registry) unindexRoom(room ids.RoomID, id ids.MobID) {
	set, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(r.rooms, room)
	}
}
