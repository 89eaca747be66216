package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driftwood-mud/engine/internal/game/player"
)

func TestShopList_ShowsStockAndPrices(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("north")
	c.drainToPrompt()

	c.send("list")
	evs := c.drainToPrompt()
	text := textOf(evs)
	assert.Contains(t, text, "Sel the Chandler offers:")
	assert.Contains(t, text, "rusty cutlass")
	assert.Contains(t, text, "30 gold")
	assert.Contains(t, text, "shortsword")
	assert.Contains(t, text, "50 gold")
}

// TestBuySell_RoundTripPrices trades a sword through a full loop: the
// purchase charges base price, the sale pays half of it back, and the
// instance is minted on buy and destroyed on sell.
func TestBuySell_RoundTripPrices(t *testing.T) {
	h := newHarness(t)
	h.seed("Vex", "sesame", func(rec *player.Record) { rec.Gold = 100 })
	c := h.loginWith("Vex", "sesame")

	c.send("north")
	c.drainToPrompt()

	c.send("buy sword")
	c.expectText("You buy a shortsword for 50 gold.")
	c.drainToPrompt()

	h.inLoop(func(e *Engine) {
		st, _ := e.players.ByName("Vex")
		assert.Equal(t, 50, st.Gold)
		swords := 0
		for _, inst := range e.items.Inventory(st.Session) {
			if inst.Keyword() == "sword" {
				swords++
			}
		}
		assert.Equal(t, 1, swords)
	})

	c.send("sell sword")
	c.expectText("You sell the shortsword for 25 gold.")
	c.drainToPrompt()

	h.inLoop(func(e *Engine) {
		st, _ := e.players.ByName("Vex")
		assert.Equal(t, 75, st.Gold)
		assert.Empty(t, e.items.Inventory(st.Session))
	})

	c.send("balance")
	c.expectText("You have 75 gold.")
	c.drainToPrompt()
}

func TestShop_RequiresVendorInRoom(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("list")
	c.expectText("There is no shop here.")
	c.drainToPrompt()

	c.send("buy sword")
	c.expectText("There is no shop here.")
	c.drainToPrompt()
}

func TestBuy_Refusals(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("north")
	c.drainToPrompt()

	c.send("buy anchor")
	c.expectText("This shop doesn't sell that.")
	c.drainToPrompt()

	c.send("buy sword")
	c.drainToPrompt()
	c.send("buy tonic")
	c.expectError("You can't afford that.")
	c.drainToPrompt()
}

func TestSell_Refusals(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("east")
	c.drainToPrompt()
	c.send("open crate")
	c.drainToPrompt()
	c.send("get brasskey from crate")
	c.expectText("You take the brass key from the battered crate.")
	c.drainToPrompt()
	c.send("west")
	c.drainToPrompt()
	c.send("north")
	c.drainToPrompt()

	c.send("sell anchor")
	c.expectError("You aren't carrying that.")
	c.drainToPrompt()

	c.send("sell brasskey")
	c.expectText("The shopkeeper sniffs: worthless.")
	c.drainToPrompt()

	h.inLoop(func(e *Engine) {
		st, _ := e.players.ByName("Vex")
		assert.Equal(t, 50, st.Gold, "refused sales cost nothing")
		_, ok := e.items.FindInInventory(st.Session, "brasskey")
		assert.True(t, ok, "refused sales keep the item")
	})
}
