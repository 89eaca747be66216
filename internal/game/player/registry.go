package player

import (
	"fmt"
	"sort"
	"strings"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

// LoginResult classifies a login attempt.
type LoginResult int

const (
	// LoginOk admits the session, creating the player if no record existed.
	LoginOk LoginResult = iota
	// LoginBadPassword rejects the attempt without touching any state.
	LoginBadPassword
	// LoginTakeover rebinds an online player to the new session.
	LoginTakeover
	// LoginNameInvalid rejects a name that fails validation.
	LoginNameInvalid
)

// LoginOutcome is the registry's answer to a login attempt.
type LoginOutcome struct {
	// Result classifies the attempt.
	Result LoginResult
	// State is the admitted player, set on LoginOk and LoginTakeover.
	State *State
	// Prior is the displaced session, set on LoginTakeover.
	Prior ids.SessionID
	// IsNew is set on LoginOk when the attempt created the player.
	IsNew bool
	// Reason carries the rule violated on LoginNameInvalid and
	// LoginBadPassword for a new account.
	Reason string
}

// Defaults configures new player creation.
type Defaults struct {
	// StartRoom is where new players appear.
	StartRoom ids.RoomID
	// StartGold is the new player purse.
	StartGold int
	// HashCost is the bcrypt cost for new accounts. Zero means the
	// bcrypt default.
	HashCost int
}

// Registry tracks every online player with name and room indices.
// It is accessed only from the engine goroutine, so it holds no locks.
type Registry struct {
	defaults Defaults
	players  map[ids.SessionID]*State
	byName   map[string]ids.SessionID
	rooms    map[ids.RoomID]map[ids.SessionID]struct{}
	loginSeq uint64
}

// NewRegistry builds an empty registry.
func NewRegistry(defaults Defaults) *Registry {
	return &Registry{
		defaults: defaults,
		players:  make(map[ids.SessionID]*State),
		byName:   make(map[string]ids.SessionID),
		rooms:    make(map[ids.RoomID]map[ids.SessionID]struct{}),
	}
}

// Login runs the admission state machine for a session that supplied a name
// and password. rec is the stored record for the name, or nil when none
// exists; the caller fetches it off the engine goroutine beforehand.
//
// Precondition: sid is not already bound to a player.
// Postcondition: on LoginOk and LoginTakeover the returned State is indexed
// under sid. Item holdings and the final Hp clamp are the caller's job; the
// returned State starts with MaxHp equal to its base.
func (r *Registry) Login(sid ids.SessionID, name, password string, rec *Record) LoginOutcome {
	if err := ValidateName(name); err != nil {
		return LoginOutcome{Result: LoginNameInvalid, Reason: err.Error()}
	}
	name = NormalizeName(name)
	key := strings.ToLower(name)

	if prior, online := r.byName[key]; online {
		st := r.players[prior]
		if !CheckPassword(st.PasswordHash, password) {
			return LoginOutcome{Result: LoginBadPassword}
		}
		r.rebind(st, prior, sid)
		return LoginOutcome{Result: LoginTakeover, State: st, Prior: prior}
	}

	if rec == nil {
		hash, err := hashPasswordCost(password, r.defaults.HashCost)
		if err != nil {
			return LoginOutcome{Result: LoginBadPassword, Reason: err.Error()}
		}
		base := BaseMaxHpForLevel(1)
		st := &State{
			Name:         name,
			Session:      sid,
			RoomID:       r.defaults.StartRoom,
			Hp:           base,
			MaxHp:        base,
			BaseMaxHp:    base,
			Level:        1,
			Gold:         r.defaults.StartGold,
			PasswordHash: hash,
			Dirty:        true,
		}
		r.admit(st, sid, key)
		return LoginOutcome{Result: LoginOk, State: st, IsNew: true}
	}

	if !CheckPassword(rec.PasswordHash, password) {
		return LoginOutcome{Result: LoginBadPassword}
	}
	st := materialize(rec, sid)
	if st.RoomID == "" {
		st.RoomID = r.defaults.StartRoom
	}
	r.admit(st, sid, key)
	return LoginOutcome{Result: LoginOk, State: st}
}

// materialize rebuilds live state from a record. MaxHp starts at the base;
// equipment restoration shifts it afterward.
func materialize(rec *Record, sid ids.SessionID) *State {
	base := rec.BaseMaxHp
	if base <= 0 {
		base = BaseMaxHpForLevel(rec.Level)
	}
	hp := rec.Hp
	if hp > base {
		hp = base
	}
	if hp < 1 {
		hp = 1
	}
	st := &State{
		Name:         rec.Name,
		Session:      sid,
		RoomID:       rec.RoomID,
		Hp:           hp,
		MaxHp:        base,
		BaseMaxHp:    base,
		Level:        rec.Level,
		XpTotal:      rec.XpTotal,
		Gold:         rec.Gold,
		IsStaff:      rec.IsStaff,
		GuildID:      rec.GuildID,
		GuildRank:    rec.GuildRank,
		RecallRoomID: rec.RecallRoomID,
		PasswordHash: rec.PasswordHash,
	}
	st.Inbox = append(st.Inbox, rec.Inbox...)
	return st
}

// admit indexes a freshly built state under its session.
func (r *Registry) admit(st *State, sid ids.SessionID, key string) {
	r.loginSeq++
	st.LoginSeq = r.loginSeq
	r.players[sid] = st
	r.byName[key] = sid
	r.indexRoom(st.RoomID, sid)
}

// rebind transfers a live state from one session to another during takeover.
func (r *Registry) rebind(st *State, from, to ids.SessionID) {
	delete(r.players, from)
	r.players[to] = st
	r.byName[strings.ToLower(st.Name)] = to
	r.unindexRoom(st.RoomID, from)
	r.indexRoom(st.RoomID, to)
	st.Session = to
}

// Logout removes the session's player from every index and returns the final
// state so the caller can snapshot it for persistence.
func (r *Registry) Logout(sid ids.SessionID) (*State, bool) {
	st, ok := r.players[sid]
	if !ok {
		return nil, false
	}
	delete(r.players, sid)
	delete(r.byName, strings.ToLower(st.Name))
	r.unindexRoom(st.RoomID, sid)
	return st, true
}

// Get returns the player bound to a session.
func (r *Registry) Get(sid ids.SessionID) (*State, bool) {
	st, ok := r.players[sid]
	return st, ok
}

// ByName returns an online player by case-insensitive name.
func (r *Registry) ByName(name string) (*State, bool) {
	sid, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return r.players[sid], true
}

// MoveTo relocates a player and returns the room it left.
func (r *Registry) MoveTo(sid ids.SessionID, to ids.RoomID) (ids.RoomID, error) {
	st, ok := r.players[sid]
	if !ok {
		return "", fmt.Errorf("session %d has no player", sid)
	}
	from := st.RoomID
	r.unindexRoom(from, sid)
	r.indexRoom(to, sid)
	st.RoomID = to
	st.Dirty = true
	return from, nil
}

// PlayersInRoom lists the room's occupants in login order.
func (r *Registry) PlayersInRoom(room ids.RoomID) []*State {
	set := r.rooms[room]
	if len(set) == 0 {
		return nil
	}
	out := make([]*State, 0, len(set))
	for sid := range set {
		out = append(out, r.players[sid])
	}
	sortByLogin(out)
	return out
}

// All lists every online player in login order.
func (r *Registry) All() []*State {
	out := make([]*State, 0, len(r.players))
	for _, st := range r.players {
		out = append(out, st)
	}
	sortByLogin(out)
	return out
}

// Count reports how many players are online.
func (r *Registry) Count() int {
	return len(r.players)
}

// GrantXp adds experience and applies any level-ups, shifting the hit point
// base. It returns how many levels were gained.
func (r *Registry) GrantXp(sid ids.SessionID, xp int) int {
	st, ok := r.players[sid]
	if !ok || xp <= 0 {
		return 0
	}
	st.XpTotal += xp
	st.Dirty = true
	return r.syncLevel(st)
}

// SetLevel forces a player to a level, snapping lifetime experience to that
// level's threshold.
func (r *Registry) SetLevel(sid ids.SessionID, level int) error {
	st, ok := r.players[sid]
	if !ok {
		return fmt.Errorf("session %d has no player", sid)
	}
	if level < 1 || level > MaxLevel {
		return fmt.Errorf("level must be in [1, %d]", MaxLevel)
	}
	st.XpTotal = TotalXpForLevel(level)
	st.Dirty = true
	r.syncLevel(st)
	return nil
}

// syncLevel moves Level to match XpTotal and shifts the hit point base by
// the difference, raising or lowering MaxHp and Hp together.
func (r *Registry) syncLevel(st *State) int {
	target := LevelForTotalXp(st.XpTotal)
	gained := target - st.Level
	if gained == 0 {
		return 0
	}
	oldBase := st.BaseMaxHp
	st.Level = target
	st.BaseMaxHp = BaseMaxHpForLevel(target)
	st.ApplyArmorDelta(st.BaseMaxHp - oldBase)
	return gained
}

func (r *Registry) indexRoom(room ids.RoomID, sid ids.SessionID) {
	set, ok := r.rooms[room]
	if !ok {
		set = make(map[ids.SessionID]struct{})
		r.rooms[room] = set
	}
	set[sid] = struct{}{}
}

func (r *Registry) unindexRoom(room ids.RoomID, sid ids.SessionID) {
	set, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(set, sid)
	if len(set) == 0 {
		delete(r.rooms, room)
	}
}

func sortByLogin(players []*State) {
	sort.Slice(players, func(i, j int) bool {
		return players[i].LoginSeq < players[j].LoginSeq
	})
}
