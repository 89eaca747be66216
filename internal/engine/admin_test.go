package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-mud/engine/internal/bus"
	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

func staffLogin(h *harness, name string) *client {
	h.t.Helper()
	h.seed(name, "sesame", func(rec *player.Record) { rec.IsStaff = true })
	return h.loginWith(name, "sesame")
}

func TestAdmin_RequiresStaff(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	for _, cmd := range []string{"goto market", "smite rat", "shutdown"} {
		c.send(cmd)
		c.expectError("You are not staff.")
		c.drainToPrompt()
	}
}

func TestGoto_TeleportsStaff(t *testing.T) {
	h := newHarness(t)
	mira := h.login("Mira")
	ivo := staffLogin(h, "Ivo")

	ivo.send("goto market")
	ivo.expectInfo("Harbor Market")
	ivo.drainToPrompt()
	mira.expectText("Ivo vanishes in a puff of smoke.")

	ivo.send("goto market")
	ivo.expectText("You are already there.")
	ivo.drainToPrompt()

	ivo.send("goto isle:shore")
	ivo.expectError("No such room.")
	ivo.drainToPrompt()
}

func TestTransfer_MovesLocalPlayer(t *testing.T) {
	h := newHarness(t)
	bob := h.login("Bob")
	mira := h.login("Mira")
	ivo := staffLogin(h, "Ivo")

	ivo.send("transfer Bob market")
	ivo.expectText("You transfer Bob.")
	ivo.drainToPrompt()
	bob.expectInfo("You are transferred by Ivo.")
	bob.expectInfo("Harbor Market")
	mira.expectText("Bob is whisked away.")

	h.inLoop(func(e *Engine) {
		st, ok := e.players.ByName("Bob")
		require.True(t, ok)
		assert.Equal(t, ids.RoomID("harbor:market"), st.RoomID)
	})

	ivo.send("transfer Zed market")
	ivo.expectError("No such player.")
	ivo.drainToPrompt()
}

func TestTransfer_RemoteRequest(t *testing.T) {
	mb := newMemBus()
	h := newHarnessWith(t, func(d *Deps) { d.Bus = mb })
	ivo := staffLogin(h, "Ivo")

	ivo.send("transfer Wren isle:")
	ivo.expectError("Use zone:room for remote transfers.")
	ivo.drainToPrompt()

	ivo.send("transfer Wren isle:shore")
	ivo.expectText("Transfer request sent.")
	ivo.drainToPrompt()

	sm := mb.waitFor(t, func(sm sentMessage) bool { return sm.msg.Transfer != nil })
	assert.Equal(t, "Ivo", sm.msg.Transfer.StaffName)
	assert.Equal(t, "Wren", sm.msg.Transfer.TargetPlayerName)
	assert.Equal(t, ids.RoomID("isle:shore"), sm.msg.Transfer.TargetRoomID)
}

func TestSpawn_MintsMobs(t *testing.T) {
	h := newHarness(t)
	ivo := staffLogin(h, "Ivo")

	ivo.send("spawn dragon")
	ivo.expectError("No such mob template.")
	ivo.drainToPrompt()

	ivo.send("spawn rat")
	ivo.expectText("A wharf rat appears in a flash of light!")
	ivo.drainToPrompt()

	ivo.send("spawn rat market")
	ivo.expectText("You spawn a wharf rat at harbor:market.")
	ivo.drainToPrompt()

	h.inLoop(func(e *Engine) {
		_, here := e.mobs.FindInRoom("harbor:docks", "rat")
		assert.True(t, here)
		_, there := e.mobs.FindInRoom("harbor:market", "rat")
		assert.True(t, there)
	})
}

func TestSmite_StrikesPlayersAndMobs(t *testing.T) {
	h := newHarness(t)
	bob := h.login("Bob")
	mira := h.login("Mira")
	ivo := staffLogin(h, "Ivo")

	ivo.send("smite Bob")
	ivo.expectText("You smite Bob.")
	ivo.drainToPrompt()
	bob.expectInfo("You are struck down by divine wrath!")
	bob.expectInfo("The Docks")
	mira.expectText("Bob is struck down by divine wrath!")
	mira.expectText("Bob arrives, smoldering.")

	h.inLoop(func(e *Engine) {
		st, ok := e.players.ByName("Bob")
		require.True(t, ok)
		assert.Equal(t, 1, st.Hp)
	})

	ivo.send("west")
	ivo.drainToPrompt()
	ivo.send("smite rat")
	ivo.expectText("The wharf rat is obliterated by divine wrath!")
	ivo.drainToPrompt()

	h.inLoop(func(e *Engine) {
		_, alive := e.mobs.FindInRoom("harbor:den", "rat")
		assert.False(t, alive)
	})

	ivo.send("smite ghost")
	ivo.expectError("No such target.")
	ivo.drainToPrompt()
}

func TestSetLevel_ClampsToLadder(t *testing.T) {
	h := newHarness(t)
	bob := h.login("Bob")
	ivo := staffLogin(h, "Ivo")

	ivo.send("setlevel Bob 5")
	ivo.expectText("Bob is now level 5.")
	ivo.drainToPrompt()
	bob.expectInfo("You are now level 5.")

	ivo.send("setlevel Bob 99")
	ivo.expectText("Bob is now level 50.")
	ivo.drainToPrompt()

	ivo.send("setlevel Bob 0")
	ivo.expectText("Bob is now level 1.")
	ivo.drainToPrompt()

	ivo.send("setlevel Zed 5")
	ivo.expectError("No such player.")
	ivo.drainToPrompt()

	h.inLoop(func(e *Engine) {
		st, ok := e.players.ByName("Bob")
		require.True(t, ok)
		assert.Equal(t, 1, st.Level)
		assert.Equal(t, player.TotalXpForLevel(1), st.XpTotal)
	})
}

func TestKickCommand_DisconnectsLocal(t *testing.T) {
	h := newHarness(t)
	bob := h.login("Bob")
	mira := h.login("Mira")
	ivo := staffLogin(h, "Ivo")

	ivo.send("kick Ivo")
	ivo.expectError("You cannot kick yourself.")
	ivo.drainToPrompt()

	ivo.send("kick Zed")
	ivo.expectError("No such player.")
	ivo.drainToPrompt()

	ivo.send("kick Bob")
	ivo.expectText("You kick Bob.")
	ivo.drainToPrompt()
	bob.expectInfo("You have been disconnected")
	bob.expectKind(outbound.KindClose)
	mira.expectText("Bob has left the world.")
}

func TestShutdown_NotifiesEveryoneAndCallsBack(t *testing.T) {
	mb := newMemBus()
	called := make(chan struct{})
	h := newHarnessWith(t, func(d *Deps) {
		d.Bus = mb
		d.OnShutdown = func() { close(called) }
	})
	mira := h.login("Mira")
	ivo := staffLogin(h, "Ivo")

	ivo.send("shutdown")
	ivo.expectText("[SYSTEM] The world is shutting down!")
	mira.expectText("[SYSTEM] The world is shutting down!")

	select {
	case <-called:
	case <-time.After(eventTimeout):
		t.Fatal("shutdown callback never ran")
	}

	sm := mb.waitFor(t, func(sm sentMessage) bool { return sm.msg.Broadcast != nil })
	assert.Equal(t, bus.BroadcastShutdown, sm.msg.Broadcast.Type)
	assert.Equal(t, "Ivo", sm.msg.Broadcast.SenderName)
}
