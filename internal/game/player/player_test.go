package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"pgregory.net/rapid"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

var testDefaults = Defaults{
	StartRoom: ids.RoomID("harbor:docks"),
	StartGold: 20,
	HashCost:  bcrypt.MinCost,
}

// quickHash avoids paying the default bcrypt cost for every fixture.
func quickHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestValidateName(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "ok", input: "Alice", wantErr: false},
		{name: "lowercase ok", input: "bob", wantErr: false},
		{name: "too short", input: "ab", wantErr: true},
		{name: "too long", input: "Abcdefghijklm", wantErr: true},
		{name: "digits", input: "Alice7", wantErr: true},
		{name: "symbols", input: "Al_ce", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateName(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Bob", NormalizeName("bob"))
	assert.Equal(t, "Bob", NormalizeName("BOB"))
	assert.Equal(t, "Bob", NormalizeName("bOb"))
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))

	_, err = HashPassword("abc")
	assert.Error(t, err, "short passwords must be rejected")
}

func TestRegistry_LoginCreatesNewPlayer(t *testing.T) {
	r := NewRegistry(testDefaults)

	out := r.Login(1, "alice", "hunter2", nil)
	require.Equal(t, LoginOk, out.Result)
	require.True(t, out.IsNew)
	require.NotNil(t, out.State)

	st := out.State
	assert.Equal(t, "Alice", st.Name)
	assert.Equal(t, testDefaults.StartRoom, st.RoomID)
	assert.Equal(t, 1, st.Level)
	assert.Equal(t, BaseMaxHpForLevel(1), st.MaxHp)
	assert.Equal(t, st.MaxHp, st.Hp)
	assert.Equal(t, testDefaults.StartGold, st.Gold)
	assert.True(t, st.Dirty, "new players need an initial save")

	byName, ok := r.ByName("ALICE")
	require.True(t, ok)
	assert.Same(t, st, byName)

	occupants := r.PlayersInRoom(testDefaults.StartRoom)
	require.Len(t, occupants, 1)
	assert.Same(t, st, occupants[0])
}

func TestRegistry_LoginExistingRecord(t *testing.T) {
	r := NewRegistry(testDefaults)
	rec := &Record{
		Name:         "Bob",
		PasswordHash: quickHash(t, "hunter2"),
		RoomID:       ids.RoomID("forest:clearing"),
		Hp:           7,
		BaseMaxHp:    15,
		Level:        2,
		XpTotal:      120,
		Gold:         300,
	}

	out := r.Login(5, "bob", "hunter2", rec)
	require.Equal(t, LoginOk, out.Result)
	assert.False(t, out.IsNew)

	st := out.State
	assert.Equal(t, ids.RoomID("forest:clearing"), st.RoomID)
	assert.Equal(t, 7, st.Hp)
	assert.Equal(t, 15, st.MaxHp)
	assert.Equal(t, 2, st.Level)
	assert.Equal(t, 300, st.Gold)
}

func TestRegistry_LoginClampsStoredHp(t *testing.T) {
	r := NewRegistry(testDefaults)
	rec := &Record{
		Name:         "Bob",
		PasswordHash: quickHash(t, "hunter2"),
		Hp:           99,
		BaseMaxHp:    10,
		Level:        1,
	}

	out := r.Login(5, "bob", "hunter2", rec)
	require.Equal(t, LoginOk, out.Result)
	assert.Equal(t, 10, out.State.Hp)
	assert.Equal(t, testDefaults.StartRoom, out.State.RoomID, "blank stored room falls back to the start room")
}

func TestRegistry_LoginBadPassword(t *testing.T) {
	r := NewRegistry(testDefaults)
	rec := &Record{Name: "Bob", PasswordHash: quickHash(t, "hunter2"), Level: 1, BaseMaxHp: 10, Hp: 10}

	out := r.Login(5, "bob", "wrong", rec)
	assert.Equal(t, LoginBadPassword, out.Result)
	assert.Nil(t, out.State)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_LoginNameInvalid(t *testing.T) {
	r := NewRegistry(testDefaults)

	out := r.Login(5, "x9!", "hunter2", nil)
	assert.Equal(t, LoginNameInvalid, out.Result)
	assert.NotEmpty(t, out.Reason)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_TakeoverRebindsSession(t *testing.T) {
	r := NewRegistry(testDefaults)
	first := r.Login(1, "alice", "hunter2", nil)
	require.Equal(t, LoginOk, first.Result)
	_, err := r.MoveTo(1, ids.RoomID("forest:clearing"))
	require.NoError(t, err)

	second := r.Login(2, "Alice", "hunter2", nil)
	require.Equal(t, LoginTakeover, second.Result)
	assert.Equal(t, ids.SessionID(1), second.Prior)
	require.Same(t, first.State, second.State, "takeover keeps the live state")
	assert.Equal(t, ids.SessionID(2), second.State.Session)

	_, stale := r.Get(1)
	assert.False(t, stale, "the displaced session must be unbound")
	got, ok := r.Get(2)
	require.True(t, ok)
	assert.Same(t, first.State, got)

	occupants := r.PlayersInRoom(ids.RoomID("forest:clearing"))
	require.Len(t, occupants, 1)
	assert.Equal(t, ids.SessionID(2), occupants[0].Session)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_TakeoverWrongPassword(t *testing.T) {
	r := NewRegistry(testDefaults)
	require.Equal(t, LoginOk, r.Login(1, "alice", "hunter2", nil).Result)

	out := r.Login(2, "alice", "wrong", nil)
	assert.Equal(t, LoginBadPassword, out.Result)
	got, ok := r.Get(1)
	require.True(t, ok, "the original session keeps the player")
	assert.Equal(t, ids.SessionID(1), got.Session)
}

func TestRegistry_MoveTo(t *testing.T) {
	r := NewRegistry(testDefaults)
	require.Equal(t, LoginOk, r.Login(1, "alice", "hunter2", nil).Result)

	from, err := r.MoveTo(1, ids.RoomID("harbor:market"))
	require.NoError(t, err)
	assert.Equal(t, testDefaults.StartRoom, from)
	assert.Empty(t, r.PlayersInRoom(testDefaults.StartRoom))
	require.Len(t, r.PlayersInRoom(ids.RoomID("harbor:market")), 1)

	_, err = r.MoveTo(99, ids.RoomID("harbor:market"))
	assert.Error(t, err)
}

func TestRegistry_LogoutClearsIndices(t *testing.T) {
	r := NewRegistry(testDefaults)
	require.Equal(t, LoginOk, r.Login(1, "alice", "hunter2", nil).Result)

	st, ok := r.Logout(1)
	require.True(t, ok)
	assert.Equal(t, "Alice", st.Name)
	assert.Equal(t, 0, r.Count())
	_, ok = r.ByName("alice")
	assert.False(t, ok)
	assert.Empty(t, r.PlayersInRoom(testDefaults.StartRoom))

	_, ok = r.Logout(1)
	assert.False(t, ok)
}

func TestRegistry_PlayersInRoomLoginOrder(t *testing.T) {
	r := NewRegistry(testDefaults)
	require.Equal(t, LoginOk, r.Login(3, "carol", "hunter2", nil).Result)
	require.Equal(t, LoginOk, r.Login(1, "alice", "hunter2", nil).Result)
	require.Equal(t, LoginOk, r.Login(2, "bob", "hunter2", nil).Result)

	names := make([]string, 0, 3)
	for _, st := range r.PlayersInRoom(testDefaults.StartRoom) {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{"Carol", "Alice", "Bob"}, names)
}

func TestProgressionTables(t *testing.T) {
	assert.Equal(t, 100, XpForLevel(1))
	assert.Equal(t, 200, XpForLevel(2))
	assert.Equal(t, 0, TotalXpForLevel(1))
	assert.Equal(t, 100, TotalXpForLevel(2))
	assert.Equal(t, 300, TotalXpForLevel(3))

	assert.Equal(t, 1, LevelForTotalXp(0))
	assert.Equal(t, 1, LevelForTotalXp(99))
	assert.Equal(t, 2, LevelForTotalXp(100))
	assert.Equal(t, 2, LevelForTotalXp(299))
	assert.Equal(t, 3, LevelForTotalXp(300))
}

func TestRegistry_GrantXpLevels(t *testing.T) {
	r := NewRegistry(testDefaults)
	require.Equal(t, LoginOk, r.Login(1, "alice", "hunter2", nil).Result)
	st, _ := r.Get(1)

	assert.Equal(t, 0, r.GrantXp(1, 50))
	assert.Equal(t, 1, st.Level)

	gained := r.GrantXp(1, 250)
	assert.Equal(t, 2, gained, "300 total crosses levels 2 and 3")
	assert.Equal(t, 3, st.Level)
	assert.Equal(t, BaseMaxHpForLevel(3), st.BaseMaxHp)
	assert.Equal(t, BaseMaxHpForLevel(3), st.MaxHp)
	assert.Equal(t, st.MaxHp, st.Hp, "level gains heal the new hit points")
}

func TestRegistry_SetLevel(t *testing.T) {
	r := NewRegistry(testDefaults)
	require.Equal(t, LoginOk, r.Login(1, "alice", "hunter2", nil).Result)
	st, _ := r.Get(1)

	require.NoError(t, r.SetLevel(1, 5))
	assert.Equal(t, 5, st.Level)
	assert.Equal(t, TotalXpForLevel(5), st.XpTotal)
	assert.Equal(t, BaseMaxHpForLevel(5), st.MaxHp)

	require.NoError(t, r.SetLevel(1, 2))
	assert.Equal(t, 2, st.Level)
	assert.Equal(t, TotalXpForLevel(2), st.XpTotal)

	assert.Error(t, r.SetLevel(1, 0))
	assert.Error(t, r.SetLevel(1, MaxLevel+1))
	assert.Error(t, r.SetLevel(99, 5))
}

func TestState_ApplyArmorDelta(t *testing.T) {
	st := &State{Hp: 10, MaxHp: 10, BaseMaxHp: 10}

	st.ApplyArmorDelta(1)
	assert.Equal(t, 11, st.MaxHp)
	assert.Equal(t, 11, st.Hp)

	st.ApplyArmorDelta(-1)
	assert.Equal(t, 10, st.MaxHp)
	assert.Equal(t, 10, st.Hp)

	st.Hp = 1
	st.ApplyArmorDelta(-5)
	assert.Equal(t, 5, st.MaxHp)
	assert.Equal(t, 1, st.Hp, "losing armor never kills the wearer")
}

// TestPropertyRoomIndexConsistency drives random logins, moves, and logouts
// and checks that the room index always mirrors player locations.
func TestPropertyRoomIndexConsistency(t *testing.T) {
	rooms := []ids.RoomID{"harbor:docks", "harbor:market", "forest:clearing"}
	names := []string{"Alice", "Bob", "Carol", "Dave", "Erin"}

	rapid.Check(t, func(t *rapid.T) {
		r := NewRegistry(testDefaults)
		active := make(map[ids.SessionID]struct{})
		nextSid := ids.SessionID(0)

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				nextSid++
				name := rapid.SampledFrom(names).Draw(t, "name")
				out := r.Login(nextSid, name, "hunter2", nil)
				switch out.Result {
				case LoginOk:
					active[nextSid] = struct{}{}
				case LoginTakeover:
					delete(active, out.Prior)
					active[nextSid] = struct{}{}
				}
			case 1:
				if len(active) == 0 {
					continue
				}
				for sid := range active {
					room := rapid.SampledFrom(rooms).Draw(t, "room")
					if _, err := r.MoveTo(sid, room); err != nil {
						t.Fatalf("move failed: %v", err)
					}
					break
				}
			case 2:
				if len(active) == 0 {
					continue
				}
				for sid := range active {
					if _, ok := r.Logout(sid); !ok {
						t.Fatalf("logout of active session %d failed", sid)
					}
					delete(active, sid)
					break
				}
			}
		}

		if r.Count() != len(active) {
			t.Fatalf("registry count %d, expected %d", r.Count(), len(active))
		}
		seen := 0
		for _, room := range rooms {
			for _, st := range r.PlayersInRoom(room) {
				seen++
				if st.RoomID != room {
					t.Fatalf("player %s indexed in %s but located in %s", st.Name, room, st.RoomID)
				}
				if _, ok := active[st.Session]; !ok {
					t.Fatalf("player %s indexed under inactive session %d", st.Name, st.Session)
				}
			}
		}
		if seen != len(active) {
			t.Fatalf("room indices cover %d players, expected %d", seen, len(active))
		}
	})
}
