package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/driftwood-mud/engine/internal/game/mail"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

func TestLogin_CreatesNewPlayer(t *testing.T) {
	h := newHarness(t)
	c := h.connect()

	c.expectInfo("Welcome to Driftwood.")
	c.expect(outbound.KindPrompt, "By what name")
	c.send("Vex")
	c.expectKind(outbound.KindEchoOff)
	c.expect(outbound.KindPrompt, "Password")
	c.send("sesame")
	c.expectKind(outbound.KindEchoOn)
	c.expectInfo("Welcome to Driftwood, Vex!")
	c.expectInfo("The Docks")
	c.expectKind(outbound.KindPrompt)

	h.inLoop(func(e *Engine) {
		st, ok := e.players.ByName("Vex")
		require.True(t, ok)
		assert.Equal(t, 10, st.Hp)
		assert.Equal(t, 50, st.Gold)
		assert.Equal(t, 1, st.Level)
		assert.Equal(t, e.world.StartRoom, st.RoomID)
	})
}

func TestLogin_WelcomesBackExistingPlayer(t *testing.T) {
	h := newHarness(t)
	h.seed("Mira", "tide", func(rec *player.Record) {
		rec.Gold = 123
	})

	c := h.connect()
	c.expectKind(outbound.KindPrompt)
	c.send("mira")
	c.expect(outbound.KindPrompt, "Password")
	c.send("tide")
	c.expectInfo("Welcome back, Mira.")
	c.drainToPrompt()

	h.inLoop(func(e *Engine) {
		st, ok := e.players.ByName("Mira")
		require.True(t, ok)
		assert.Equal(t, 123, st.Gold)
	})
}

func TestLogin_AnnouncesUnreadMail(t *testing.T) {
	h := newHarness(t)
	h.seed("Mira", "tide", func(rec *player.Record) {
		rec.Inbox = []mail.Message{
			mail.NewMessage("Bosun", "the tide waits", 500),
			mail.NewMessage("Bosun", "still waiting", 600),
		}
	})

	c := h.connect()
	c.expectKind(outbound.KindPrompt)
	c.send("Mira")
	c.expect(outbound.KindPrompt, "Password")
	c.send("tide")
	c.expectInfo("You have 2 unread message(s).")
	c.drainToPrompt()
}

func TestLogin_RejectsInvalidName(t *testing.T) {
	h := newHarness(t)
	c := h.connect()

	c.expectKind(outbound.KindPrompt)
	c.send("x7")
	c.expectError("name must")
	c.expect(outbound.KindPrompt, "By what name")

	c.send("Vex")
	c.expect(outbound.KindPrompt, "Password")
	c.send("sesame")
	c.expectInfo("Welcome to Driftwood, Vex!")
	c.drainToPrompt()
}

func TestLogin_DisconnectsAfterRepeatedBadPasswords(t *testing.T) {
	h := newHarness(t)
	h.seed("Mira", "tide", nil)

	c := h.connect()
	c.expectKind(outbound.KindPrompt)
	c.send("Mira")
	c.expect(outbound.KindPrompt, "Password")

	c.send("wrong")
	c.expectError("Wrong password.")
	c.send("wronger")
	c.expectError("Wrong password.")
	c.send("wrongest")
	c.expectError("Too many failed attempts.")
	c.expectKind(outbound.KindClose)
}

func TestLogin_TakeoverMovesSessionState(t *testing.T) {
	h := newHarness(t)
	first := h.login("Vex")

	first.send("north")
	first.expectInfo("Harbor Market")
	first.drainToPrompt()

	second := h.connect()
	second.expectKind(outbound.KindPrompt)
	second.send("Vex")
	second.expect(outbound.KindPrompt, "Password")
	second.send("sesame")

	first.expectInfo("You have been disconnected")
	first.expectKind(outbound.KindClose)

	second.expectInfo("Welcome back, Vex.")
	second.expectInfo("Harbor Market")
	second.drainToPrompt()

	h.inLoop(func(e *Engine) {
		st, ok := e.players.ByName("Vex")
		require.True(t, ok)
		assert.Equal(t, second.sid, st.Session)
	})
}

func TestLogin_WrongPasswordCannotHijackOnlinePlayer(t *testing.T) {
	h := newHarness(t)
	keeper := h.login("Vex")

	thief := h.connect()
	thief.expectKind(outbound.KindPrompt)
	thief.send("Vex")
	thief.expect(outbound.KindPrompt, "Password")
	thief.send("notsesame")
	thief.expectError("Wrong password.")

	keeper.send("score")
	keeper.expectInfo("Vex")
	keeper.drainToPrompt()
}

func TestQuit_PersistsAndCloses(t *testing.T) {
	var persister *Persister
	h := newHarnessWith(t, func(d *Deps) {
		persister = NewPersister(zaptest.NewLogger(t), d.Players, nil)
		d.Persister = persister
	})
	pctx, pcancel := context.WithCancel(context.Background())
	pdone := make(chan struct{})
	go func() {
		defer close(pdone)
		_ = persister.Run(pctx)
	}()
	t.Cleanup(func() {
		pcancel()
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		assert.NoError(t, persister.Shutdown(sctx))
		<-pdone
	})

	c := h.login("Vex")
	c.send("quit")
	c.expectInfo("Farewell.")
	c.expectKind(outbound.KindClose)

	require.Eventually(t, func() bool {
		rec, ok := h.repo.get("Vex")
		return ok && rec.Name == "Vex"
	}, eventTimeout, time.Millisecond)

	h.inLoop(func(e *Engine) {
		_, ok := e.players.ByName("Vex")
		assert.False(t, ok)
	})
}

func TestDisconnect_LogsPlayerOut(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")
	other := h.login("Mira")

	c.disconnect()
	h.sync()

	h.inLoop(func(e *Engine) {
		_, ok := e.players.ByName("Vex")
		assert.False(t, ok)
	})

	other.send("who")
	evs := other.drainToPrompt()
	assert.Contains(t, textOf(evs), "1 online.")
}
