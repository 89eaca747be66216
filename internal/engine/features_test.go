package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/scripting"
)

// newScriptedHarness starts a harness whose harbor zone runs the given Lua
// source, the way engined loads a zone's script file at boot.
func newScriptedHarness(t *testing.T, source string) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harbor.lua")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))

	scripts := scripting.NewManager(zaptest.NewLogger(t))
	t.Cleanup(scripts.Close)
	require.NoError(t, scripts.LoadZoneFile("harbor", path, 0))

	return newHarnessWith(t, func(d *Deps) { d.Scripts = scripts })
}

func TestUnlockOpen_DoorNeedsItsKey(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("east")
	c.drainToPrompt()

	c.send("open door")
	c.expectError("It is locked.")
	c.drainToPrompt()

	c.send("unlock door")
	c.expectError("You don't have the key.")
	c.drainToPrompt()

	c.send("open crate")
	c.expectText("You open the battered crate.")
	c.drainToPrompt()
	c.send("get brasskey from crate")
	c.drainToPrompt()

	c.send("unlock door")
	c.expectText("You unlock the iron door.")
	c.drainToPrompt()

	c.send("unlock door")
	c.expectError("It is not locked.")
	c.drainToPrompt()

	c.send("open door")
	c.expectText("You open the iron door.")
	c.drainToPrompt()

	c.send("open door")
	c.expectError("It is already open.")
	c.drainToPrompt()

	c.send("north")
	c.expectInfo("Harbormaster's Office")
	c.drainToPrompt()

	c.send("south")
	c.drainToPrompt()
	c.send("close door")
	c.expectText("You close the iron door.")
	c.drainToPrompt()

	h.inLoop(func(e *Engine) {
		f, ok := e.features.Find("harbor:warehouse", "door")
		require.True(t, ok)
		assert.Equal(t, ids.DoorClosed, f.Door())
	})
}

func TestSearchPut_ContainerRoundTrip(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("east")
	c.drainToPrompt()

	c.send("search crate")
	c.expectError("The battered crate is closed.")
	c.drainToPrompt()

	c.send("open crate")
	c.drainToPrompt()

	c.send("search crate")
	c.expectText("The battered crate contains:")
	c.expectText("a brass key")
	c.drainToPrompt()

	c.send("get brasskey from crate")
	c.expectText("You take the brass key from the battered crate.")
	c.drainToPrompt()

	c.send("search crate")
	c.expectText("The battered crate is empty.")
	c.drainToPrompt()

	c.send("put brasskey in crate")
	c.expectText("You put the brass key in the battered crate.")
	c.drainToPrompt()

	c.send("close crate")
	c.expectText("You close the battered crate.")
	c.drainToPrompt()

	c.send("get brasskey from crate")
	c.expectError("The battered crate is closed.")
	c.drainToPrompt()
}

func TestRead_Signs(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("east")
	c.drainToPrompt()

	c.send("read chart")
	c.expectInfo("The tide chart reads:")
	c.expectText("High tide at dusk.")
	c.drainToPrompt()

	c.send("read lever")
	c.expectError("There is nothing written on that.")
	c.drainToPrompt()
}

func TestFixtures_KindMismatchRefusals(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("east")
	c.drainToPrompt()

	c.send("open hatch")
	c.expectError("You don't see that here.")
	c.drainToPrompt()

	c.send("open lever")
	c.expectError("You can't open that.")
	c.drainToPrompt()

	c.send("close chart")
	c.expectError("You can't close that.")
	c.drainToPrompt()

	c.send("unlock crate")
	c.expectError("You can't unlock that.")
	c.drainToPrompt()

	c.send("search chart")
	c.expectError("You can't search that.")
	c.drainToPrompt()

	c.send("pull chart")
	c.expectError("You can't pull that.")
	c.drainToPrompt()
}

func TestPull_UnscriptedLeverDoesNothing(t *testing.T) {
	h := newHarness(t)
	c := h.login("Vex")

	c.send("east")
	c.drainToPrompt()

	c.send("pull lever")
	c.expectText("The rusted lever clunks into the down position.")
	c.expectError("Nothing happens.")
	c.drainToPrompt()

	c.send("pull lever")
	c.expectText("The rusted lever clunks into the up position.")
	c.drainToPrompt()
}

// TestPull_LeverRunsZoneScript pulls the warehouse lever with a zone script
// loaded: the hook messages the room, unbolts the iron door, and spawns a
// rat, all through the world.* bindings.
func TestPull_LeverRunsZoneScript(t *testing.T) {
	h := newScriptedHarness(t, `
function on_lever(room, feature)
  world.send_room("Chains rattle behind the wall.")
  if world.unlock_door("harbor:warehouse/door") then
    world.send_room("Something unbolts to the north.")
  end
  world.spawn_mob("rat", room)
end
`)
	c := h.login("Vex")
	c.send("east")
	c.drainToPrompt()

	c.send("pull lever")
	c.expectText("The rusted lever clunks into the down position.")
	c.expectInfo("Chains rattle behind the wall.")
	c.expectInfo("Something unbolts to the north.")
	c.expectText("A wharf rat appears!")
	c.drainToPrompt()

	h.inLoop(func(e *Engine) {
		f, ok := e.features.Find("harbor:warehouse", "door")
		require.True(t, ok)
		assert.Equal(t, ids.DoorClosed, f.Door(), "script unlock leaves the door closed, not open")
		_, lurking := e.mobs.FindInRoom("harbor:warehouse", "rat")
		assert.True(t, lurking)
	})

	c.send("open door")
	c.expectText("You open the iron door.")
	c.drainToPrompt()
	c.send("north")
	c.expectInfo("Harbormaster's Office")
	c.drainToPrompt()
}
