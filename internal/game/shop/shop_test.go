package shop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

func TestPrices(t *testing.T) {
	cases := []struct {
		name string
		base int
		buy  int
		sell int
	}{
		{name: "sword", base: 50, buy: 50, sell: 25},
		{name: "cap", base: 10, buy: 10, sell: 5},
		{name: "half rounds to even down", base: 25, buy: 25, sell: 12},
		{name: "half rounds to even up", base: 35, buy: 35, sell: 18},
		{name: "another half down", base: 45, buy: 45, sell: 22},
		{name: "worthless", base: 0, buy: 0, sell: 0},
		{name: "negative clamps", base: -5, buy: 0, sell: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.buy, BuyPrice(tc.base))
			assert.Equal(t, tc.sell, SellPrice(tc.base))
		})
	}
}

func TestDefinition_Sells(t *testing.T) {
	def := &Definition{
		RoomID: ids.RoomID("harbor:market"),
		Name:   "Salty Goods",
		Stock:  []string{"sword", "cap"},
	}
	assert.True(t, def.Sells("SWORD"))
	assert.True(t, def.Sells("cap"))
	assert.False(t, def.Sells("vial"))
}

func TestRegistry_InstallAndLookup(t *testing.T) {
	r := NewRegistry()
	def := &Definition{RoomID: ids.RoomID("harbor:market"), Name: "Salty Goods"}
	require.NoError(t, r.Install(def))

	got, ok := r.At(def.RoomID)
	require.True(t, ok)
	assert.Equal(t, def, got)

	_, ok = r.At(ids.RoomID("harbor:docks"))
	assert.False(t, ok)

	assert.Error(t, r.Install(&Definition{RoomID: def.RoomID}), "one vendor per room")
}
