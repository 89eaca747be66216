package guild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "simple", input: "Harbor Watch", want: "harbor_watch"},
		{name: "collapses gaps", input: "  Harbor   Watch  ", want: "harbor_watch"},
		{name: "digits ok", input: "Crew 9", want: "crew_9"},
		{name: "hyphens become underscores", input: "Sea-Dogs", want: "sea_dogs"},
		{name: "punctuation rejected", input: "Harbor!", wantErr: true},
		{name: "empty", input: "   ", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Slugify(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidateName(t *testing.T) {
	slug, err := ValidateName("Harbor Watch")
	require.NoError(t, err)
	assert.Equal(t, "harbor_watch", slug)

	_, err = ValidateName("ab")
	assert.Error(t, err)
	_, err = ValidateName("this guild name is far too long for anyone")
	assert.Error(t, err)
}

func TestDeriveTag(t *testing.T) {
	assert.Equal(t, "HW", DeriveTag("Harbor Watch"))
	assert.Equal(t, "C9", DeriveTag("Crew 9"))
	assert.Equal(t, "TFGN", DeriveTag("The Five Great Northern Houses"), "caps at four letters")
	assert.Equal(t, "", DeriveTag(""))
}

func TestValidateMotd(t *testing.T) {
	assert.NoError(t, ValidateMotd("We sail at dawn."))
	assert.Error(t, ValidateMotd(string(make([]byte, 300))))
}

func TestRankPolicy(t *testing.T) {
	assert.True(t, CanInvite(ids.RankLeader))
	assert.True(t, CanInvite(ids.RankOfficer))
	assert.False(t, CanInvite(ids.RankMember))

	assert.True(t, CanKick(ids.RankLeader, ids.RankOfficer))
	assert.True(t, CanKick(ids.RankOfficer, ids.RankMember))
	assert.False(t, CanKick(ids.RankOfficer, ids.RankOfficer))
	assert.False(t, CanKick(ids.RankMember, ids.RankLeader))
	assert.False(t, CanKick(ids.RankOfficer, ids.RankLeader), "leaders are never kickable")
}

func TestPromoteDemote(t *testing.T) {
	rank, err := Promote(ids.RankMember)
	require.NoError(t, err)
	assert.Equal(t, ids.RankOfficer, rank)

	_, err = Promote(ids.RankOfficer)
	assert.Error(t, err, "leadership does not change hands by promotion")
	_, err = Promote(ids.RankLeader)
	assert.Error(t, err)

	rank, err = Demote(ids.RankOfficer)
	require.NoError(t, err)
	assert.Equal(t, ids.RankMember, rank)

	_, err = Demote(ids.RankMember)
	assert.Error(t, err)
}

func TestInvites_OfferTakeDrop(t *testing.T) {
	inv := NewInvites()
	inv.Offer(2, "harbor_watch", "Alice")

	got, ok := inv.Take(2)
	require.True(t, ok)
	assert.Equal(t, "harbor_watch", got.Slug)
	assert.Equal(t, "Alice", got.Inviter)

	_, ok = inv.Take(2)
	assert.False(t, ok, "taking consumes the invitation")

	inv.Offer(3, "harbor_watch", "Alice")
	inv.Offer(3, "sea_dogs", "Bob")
	got, _ = inv.Take(3)
	assert.Equal(t, "sea_dogs", got.Slug, "newer invitations replace older ones")

	inv.Offer(4, "harbor_watch", "Alice")
	inv.Drop(4)
	_, ok = inv.Take(4)
	assert.False(t, ok)
}

func TestInvites_Rekey(t *testing.T) {
	inv := NewInvites()
	inv.Offer(2, "harbor_watch", "Alice")
	inv.Rekey(2, 9)

	_, ok := inv.Take(2)
	assert.False(t, ok)
	got, ok := inv.Take(9)
	require.True(t, ok)
	assert.Equal(t, "harbor_watch", got.Slug)
}
