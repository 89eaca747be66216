package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/driftwood-mud/engine/internal/config"
	"github.com/driftwood-mud/engine/internal/frontend/telnet"
	"github.com/driftwood-mud/engine/internal/testutil"
)

// startTelnet fronts the harness engine with a real TCP acceptor, so these
// tests walk the whole player path: socket, line discipline, auth, command
// dispatch, and the writer pump.
func startTelnet(t *testing.T, h *harness) string {
	t.Helper()

	acc := telnet.NewAcceptor(config.ServerConfig{
		Host:       "127.0.0.1",
		Port:       0,
		MaxLineLen: 256,
	}, h.eng, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- acc.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for acc.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("acceptor never started listening")
		}
		time.Sleep(time.Millisecond)
	}

	t.Cleanup(func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		assert.NoError(t, acc.Shutdown(sctx))
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(eventTimeout):
			t.Error("acceptor did not stop")
		}
	})
	return acc.Addr()
}

func TestTelnetEndToEnd_NewPlayerJourney(t *testing.T) {
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
	addr := startTelnet(t, h)

	c := testutil.NewTelnetClient(t, addr)
	c.Login("Edda", "sesame")

	out := c.Cmd("look")
	assert.Contains(t, out, "The Docks")
	assert.Contains(t, out, "Exits:")

	out = c.Cmd("get pearl")
	assert.Contains(t, out, "You pick up the gray pearl.")

	c.Send("inventory")
	c.ReadExpecting("> ", 10*time.Second, "gray pearl")

	c.Send("quit")
	c.ReadUntil("Farewell.", 10*time.Second)

	// The looted pearl must reach the record a reconnect would load.
	require.Eventually(t, func() bool {
		rec, ok := h.repo.get("Edda")
		if !ok {
			return false
		}
		for _, snap := range rec.Inventory {
			if snap.Keyword == "pearl" {
				return true
			}
		}
		return false
	}, eventTimeout, time.Millisecond)
}

func TestTelnetEndToEnd_SayReachesRoom(t *testing.T) {
	h := newHarness(t)
	addr := startTelnet(t, h)

	edda := testutil.NewTelnetClient(t, addr)
	edda.Login("Edda", "sesame")
	brom := testutil.NewTelnetClient(t, addr)
	brom.Login("Brom", "sesame")

	out := edda.Cmd("say the tide is turning")
	assert.Contains(t, out, "You say: the tide is turning")

	brom.ReadUntil("Edda says: the tide is turning", 10*time.Second)
}

func TestTelnetEndToEnd_AbruptCloseLogsOut(t *testing.T) {
	h := newHarness(t)
	addr := startTelnet(t, h)

	edda := testutil.NewTelnetClient(t, addr)
	edda.Login("Edda", "sesame")
	brom := testutil.NewTelnetClient(t, addr)
	brom.Login("Brom", "sesame")

	// Dropping the socket without quit must still run the logout path.
	brom.Close()

	edda.ReadUntil("Brom has left the world.", 10*time.Second)
}
