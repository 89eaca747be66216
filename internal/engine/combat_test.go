package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driftwood-mud/engine/internal/game/dice"
	"github.com/driftwood-mud/engine/internal/game/ids"
)

// TestKill_SwingsToTheDeath walks a full fight against the den rat on the
// frozen clock: swings land on their scheduled beats, the kill pays gold and
// experience, and the respawn timer re-seeds the den.
func TestKill_SwingsToTheDeath(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("west")
	c.expectInfo("A Rat Den")
	c.drainToPrompt()

	c.send("kill rat")
	c.expectText("You attack the wharf rat!")
	c.drainToPrompt()

	h.advance(1000)
	c.expectText("You hit the wharf rat for 4 damage.")

	h.advance(500)
	c.expectText("The wharf rat hits you for 5 damage.")

	h.advance(500)
	c.expectText("You hit the wharf rat for 4 damage.")
	c.expectText("You have slain the wharf rat!")
	c.expectText("You loot 2 gold.")
	c.expectText("You gain 10 experience.")

	h.inLoop(func(e *Engine) {
		st, _ := e.players.ByName("Vex")
		assert.Equal(t, 5, st.Hp)
		assert.Equal(t, 52, st.Gold)
		assert.Equal(t, 10, st.XpTotal)
		assert.False(t, e.fights.InCombat(st.Session))
		_, alive := e.mobs.FindInRoom("harbor:den", "rat")
		assert.False(t, alive, "slain mob leaves the room")
	})

	h.advance(60_000)
	c.expectText("A wharf rat arrives.")
	h.inLoop(func(e *Engine) {
		_, alive := e.mobs.FindInRoom("harbor:den", "rat")
		assert.True(t, alive, "respawn re-seeds the home room")
	})
}

func TestKill_Refusals(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("kill rat")
	c.expectError("You don't see that here.")
	c.drainToPrompt()

	c.send("west")
	c.drainToPrompt()
	c.send("kill rat")
	c.drainToPrompt()

	c.send("kill rat")
	c.expectInfo("You are already fighting it!")
	c.drainToPrompt()

	c.send("east")
	c.expectError("You are in combat.")
	c.drainToPrompt()
}

// TestAggro_DefeatSparesAtOneHp lets the alley thug beat an unarmed player
// down: defeat floors hp at 1 and yanks the player to the start room instead
// of killing them.
func TestAggro_DefeatSparesAtOneHp(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("north")
	c.drainToPrompt()
	c.send("east")
	c.expectText("The dockside thug attacks you!")
	c.drainToPrompt()

	h.advance(1500)
	c.expectText("The dockside thug hits you for 6 damage.")

	h.advance(1500)
	c.expectText("The dockside thug hits you for 6 damage.")
	c.expectText("The dockside thug strikes you down!")
	c.expectInfo("A divine force snatches you from death's door.")
	c.expectInfo("The Docks")
	c.drainToPrompt()

	h.inLoop(func(e *Engine) {
		st, _ := e.players.ByName("Vex")
		assert.Equal(t, 1, st.Hp)
		assert.Equal(t, ids.RoomID("harbor:docks"), st.RoomID)
		assert.False(t, e.fights.InCombat(st.Session))
	})
}

func TestFlee_EscapesThroughAnExit(t *testing.T) {
	h := newHarness(t)
	vex := h.login("Vex")
	mira := h.login("Mira")
	vex.expectText("Mira has arrived.")

	vex.send("flee")
	vex.expectError("You aren't fighting anything.")
	vex.drainToPrompt()

	vex.send("west")
	vex.drainToPrompt()
	mira.expectText("Vex leaves.")

	vex.send("kill rat")
	vex.drainToPrompt()

	vex.send("flee")
	vex.expectText("You flee east!")
	vex.expectInfo("The Docks")
	vex.drainToPrompt()
	mira.expectText("Vex arrives in a panic.")

	h.inLoop(func(e *Engine) {
		st, _ := e.players.ByName("Vex")
		assert.False(t, e.fights.InCombat(st.Session))
		assert.Equal(t, ids.RoomID("harbor:docks"), st.RoomID)
	})
}

func TestFlee_CanFail(t *testing.T) {
	// A source rolling past the flee threshold fails every escape attempt
	// while still maxing the damage roll.
	h := newHarnessWith(t, func(d *Deps) { d.Dice = dice.NewFixedSource(1_000_000) })
	c := h.login("Vex")

	c.send("west")
	c.drainToPrompt()
	c.send("kill rat")
	c.drainToPrompt()

	c.send("flee")
	c.expectText("You fail to flee.")
	c.drainToPrompt()

	h.inLoop(func(e *Engine) {
		st, _ := e.players.ByName("Vex")
		assert.True(t, e.fights.InCombat(st.Session), "a failed flee keeps the fight")
	})
}
