package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseRoomID_Valid(t *testing.T) {
	id, err := ParseRoomID("harbor:docks")
	require.NoError(t, err)
	assert.Equal(t, "harbor", id.Zone())
	assert.Equal(t, "docks", id.Local())
}

func TestParseRoomID_MissingSeparator(t *testing.T) {
	_, err := ParseRoomID("harbordocks")
	assert.Error(t, err)
}

func TestParseRoomID_EmptyHalves(t *testing.T) {
	for _, s := range []string{":docks", "harbor:", ":", ""} {
		_, err := ParseRoomID(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestParseRoomID_RejectsBadCharacters(t *testing.T) {
	for _, s := range []string{"har bor:docks", "harbor:do cks", "harbor:docks!", "a:b:c"} {
		_, err := ParseRoomID(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestMakeRoomID_RoundTrip(t *testing.T) {
	id := MakeRoomID("forest", "clearing_2")
	assert.True(t, id.IsValid())
	assert.Equal(t, "forest", id.Zone())
	assert.Equal(t, "clearing_2", id.Local())
}

func TestParseRoomRef_Forms(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want RoomRef
	}{
		{"full", "harbor:docks", RoomRef{Zone: "harbor", Local: "docks"}},
		{"local only", "docks", RoomRef{Zone: "forest", Local: "docks"}},
		{"zone only", "harbor:", RoomRef{Zone: "harbor", AnyInZone: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseRoomRef(tt.spec, "forest")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref)
		})
	}
}

func TestParseRoomRef_Invalid(t *testing.T) {
	for _, s := range []string{"", "  ", "bad room", "zone:bad room", "!:x"} {
		_, err := ParseRoomRef(s, "forest")
		assert.Error(t, err, "input %q", s)
	}
}

func TestParseDirection_Abbreviations(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
	}{
		{"n", North}, {"N", North}, {"north", North},
		{"s", South}, {"e", East}, {"w", West},
		{"u", Up}, {"d", Down},
		{"ne", Northeast}, {"sw", Southwest},
		{" UP ", Up},
	}
	for _, tt := range tests {
		d, ok := ParseDirection(tt.in)
		require.True(t, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, d)
	}
}

func TestParseDirection_Unknown(t *testing.T) {
	_, ok := ParseDirection("sideways")
	assert.False(t, ok)
}

func TestDirectionOpposite_Involution(t *testing.T) {
	for _, d := range StandardDirections {
		assert.Equal(t, d, d.Opposite().Opposite(), "direction %q", d)
	}
}

func TestParseSlot(t *testing.T) {
	slot, ok := ParseSlot("HEAD")
	require.True(t, ok)
	assert.Equal(t, SlotHead, slot)

	_, ok = ParseSlot("tail")
	assert.False(t, ok)
}

func TestGuildRankOutranks(t *testing.T) {
	assert.True(t, RankLeader.Outranks(RankOfficer))
	assert.True(t, RankOfficer.Outranks(RankMember))
	assert.False(t, RankMember.Outranks(RankMember))
	assert.False(t, RankMember.Outranks(RankLeader))
}

func TestLeverToggled(t *testing.T) {
	assert.Equal(t, LeverDown, LeverUp.Toggled())
	assert.Equal(t, LeverUp, LeverDown.Toggled())
}

func TestFeatureID_Halves(t *testing.T) {
	f := MakeFeatureID("harbor:docks", "iron_door")
	assert.Equal(t, RoomID("harbor:docks"), f.Room())
	assert.Equal(t, "iron_door", f.Local())
}

func TestPropertyRoomIDParseRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		zone := rapid.StringMatching(`[a-zA-Z0-9_]{1,12}`).Draw(t, "zone")
		local := rapid.StringMatching(`[a-zA-Z0-9_]{1,12}`).Draw(t, "local")
		id := MakeRoomID(zone, local)
		parsed, err := ParseRoomID(string(id))
		if err != nil {
			t.Fatalf("round trip failed for %q: %v", id, err)
		}
		if parsed.Zone() != zone || parsed.Local() != local {
			t.Fatalf("halves mismatch: %q -> %q/%q", id, parsed.Zone(), parsed.Local())
		}
	})
}
