package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driftwood-mud/engine/internal/game/outbound"
)

func TestSay_ReachesOnlyTheRoom(t *testing.T) {
	h := newHarness(t)
	vex := h.login("Vex")
	mira := h.login("Mira")
	far := h.login("Orrin")
	far.send("north")
	far.drainToPrompt()

	vex.send("say tide's coming in")
	vex.expectText("You say: tide's coming in")
	vex.drainToPrompt()
	mira.expectText("Vex says: tide's coming in")

	far.send("score")
	evs := far.drainToPrompt()
	assert.NotContains(t, textOf(evs), "tide's coming in")
}

func TestTell_ReachesAnyRoom(t *testing.T) {
	h := newHarness(t)
	vex := h.login("Vex")
	mira := h.login("Mira")
	mira.send("north")
	mira.drainToPrompt()

	vex.send("tell mira meet me at the docks")
	vex.expectText("You tell Mira: meet me at the docks")
	vex.drainToPrompt()
	mira.expectText("Vex tells you: meet me at the docks")
}

func TestTell_UnknownPlayerWithoutBus(t *testing.T) {
	h := newHarness(t)
	vex := h.login("Vex")

	vex.send("tell nobody hello")
	vex.expectError("No such player.")
	vex.drainToPrompt()
}

func TestWhisper_RequiresSameRoom(t *testing.T) {
	h := newHarness(t)
	vex := h.login("Vex")
	mira := h.login("Mira")

	vex.send("whisper mira the key is in the crate")
	vex.expectText("You whisper to Mira: the key is in the crate")
	vex.drainToPrompt()
	mira.expectText("Vex whispers: the key is in the crate")

	mira.send("north")
	mira.drainToPrompt()
	vex.send("whisper mira still there?")
	vex.expectError("They aren't here.")
	vex.drainToPrompt()
}

func TestGossip_CrossesRooms(t *testing.T) {
	h := newHarness(t)
	vex := h.login("Vex")
	far := h.login("Orrin")
	far.send("north")
	far.drainToPrompt()

	vex.send("gossip anyone selling a cutlass?")
	vex.drainToPrompt()
	far.expectText("[GOSSIP] Vex: anyone selling a cutlass?")
}

func TestShout_StaysInZone(t *testing.T) {
	h := newHarness(t)
	vex := h.login("Vex")
	far := h.login("Orrin")
	far.send("north")
	far.drainToPrompt()

	vex.send("shout land ho")
	vex.drainToPrompt()
	far.expectText("[SHOUT] Vex: land ho")
}

func TestPose_MustIncludeName(t *testing.T) {
	h := newHarness(t)
	vex := h.login("Vex")
	mira := h.login("Mira")

	vex.send("pose grins wolfishly")
	vex.expectError("Your pose must include your name.")
	vex.drainToPrompt()

	vex.send("pose Vex grins wolfishly")
	vex.drainToPrompt()
	mira.expectText("Vex grins wolfishly")
}

func TestPrompt_CustomFormat(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("prompt [%h/%Hhp %gg]")
	c.expectInfo("Prompt set.")
	ev := c.expectKind(outbound.KindPrompt)
	assert.Equal(t, "[10/10hp 50g] ", ev.Text)
}
