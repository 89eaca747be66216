package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpells_ListsSpellbook(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("spells")
	c.expectInfo("You know the following spells:")
	ev := c.expectText("heal")
	assert.Contains(t, ev.Text, "Mend 10 hit points")
	ev = c.expectText("bless")
	assert.Contains(t, ev.Text, "+2 damage for 60 seconds.")
	ev = c.expectText("shield")
	assert.Contains(t, ev.Text, "+2 armor for 60 seconds.")
	c.drainToPrompt()
}

func TestCastHeal_RestoresMissingHp(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("cast heal")
	c.expectText("You are already at full health.")
	c.drainToPrompt()

	c.send("west")
	c.drainToPrompt()
	c.send("kill rat")
	c.drainToPrompt()
	h.advance(1000)
	c.expectText("You hit the wharf rat for 4 damage.")
	h.advance(500)
	c.expectText("The wharf rat hits you for 5 damage.")
	h.advance(500)
	c.expectText("You have slain the wharf rat!")
	c.drainToPrompt()

	c.send("cast heal")
	c.expectText("Warmth spreads through you, healing 5 damage.")
	c.drainToPrompt()
	h.inLoop(func(e *Engine) {
		st, ok := e.players.ByName("Vex")
		if assert.True(t, ok) {
			assert.Equal(t, st.MaxHp, st.Hp)
		}
	})
}

func TestCast_TargetingAndRefusals(t *testing.T) {
	h := newHarness(t)
	alice := h.login("Alice")
	bob := h.login("Bob")

	alice.send("cast frost")
	alice.expectError("You don't know that spell.")
	alice.drainToPrompt()

	alice.send("cast heal Zed")
	alice.expectError("They aren't here.")
	alice.drainToPrompt()

	alice.send("cast bless Bob")
	alice.expectText("You cast bless on Bob.")
	alice.drainToPrompt()
	bob.expectInfo("Alice blesses you. A faint radiance settles over you.")

	alice.send("cast heal Bob")
	alice.expectText("Bob is already at full health.")
	alice.drainToPrompt()

	bob.send("west")
	bob.drainToPrompt()
	alice.send("cast shield Bob")
	alice.expectError("They aren't here.")
	alice.drainToPrompt()
}

func TestCastBless_BoostsSwingDamage(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("cast bless")
	c.expectText("A faint radiance settles over you.")
	c.drainToPrompt()

	c.send("west")
	c.drainToPrompt()
	c.send("kill rat")
	c.drainToPrompt()
	h.advance(1000)
	c.expectText("You hit the wharf rat for 6 damage.")
	c.expectText("You have slain the wharf rat!")
	c.drainToPrompt()
}

func TestCastShield_ReducesIncomingDamage(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("cast shield")
	c.expectText("A shimmering barrier surrounds you.")
	c.drainToPrompt()

	c.send("west")
	c.drainToPrompt()
	c.send("kill rat")
	c.drainToPrompt()
	h.advance(1000)
	c.expectText("You hit the wharf rat for 4 damage.")
	h.advance(500)
	c.expectText("The wharf rat hits you for 3 damage.")
	c.drainToPrompt()
	h.inLoop(func(e *Engine) {
		st, ok := e.players.ByName("Vex")
		if assert.True(t, ok) {
			assert.Equal(t, st.MaxHp-3, st.Hp)
		}
	})
	h.advance(500)
	c.expectText("You have slain the wharf rat!")
	c.drainToPrompt()
}

func TestEffects_RefreshExtendsExpiry(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("effects")
	c.expectText("You are not affected by anything.")
	c.drainToPrompt()

	c.send("cast bless")
	c.expectText("A faint radiance settles over you.")
	c.drainToPrompt()
	h.advance(30000)

	c.send("cast bless")
	c.expectText("A faint radiance settles over you.")
	c.drainToPrompt()

	// The original expiry comes due here; the refresh must have orphaned it.
	h.advance(30000)
	c.send("effects")
	c.expectInfo("Active effects:")
	ev := c.expectText("bless")
	assert.Contains(t, ev.Text, "30 seconds remaining")
	c.drainToPrompt()

	h.advance(30000)
	c.expectText("Your blessing fades.")

	c.send("effects")
	c.expectText("You are not affected by anything.")
	c.drainToPrompt()
}

func TestDispel_RemovesEffect(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("dispel bless")
	c.expectError("You are not affected by that.")
	c.drainToPrompt()

	c.send("cast shield")
	c.expectText("A shimmering barrier surrounds you.")
	c.drainToPrompt()

	c.send("dispel shield")
	c.expectText("You dispel the shield effect.")
	c.drainToPrompt()

	c.send("effects")
	c.expectText("You are not affected by anything.")
	c.drainToPrompt()
}
