package engine

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/game/feature"
	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

// findFixture resolves a fixture by keyword in the player's room, emitting
// the standard miss message.
func (e *Engine) findFixture(st *player.State, kw string) (*feature.State, bool) {
	f, ok := e.features.Find(st.RoomID, kw)
	if !ok {
		e.push(outbound.Error(st.Session, "You don't see that here."))
		e.prompt(st.Session)
		return nil, false
	}
	return f, true
}

func (e *Engine) cmdOpen(st *player.State, kw string) {
	sid := st.Session
	f, ok := e.findFixture(st, kw)
	if !ok {
		return
	}
	var err error
	switch f.Def.Kind {
	case feature.KindDoor:
		err = e.features.OpenDoor(f.ID)
	case feature.KindContainer:
		err = e.features.OpenContainer(f.ID)
	default:
		e.push(outbound.Error(sid, "You can't open that."))
		e.prompt(sid)
		return
	}
	switch {
	case errors.Is(err, feature.ErrLocked):
		e.push(outbound.Error(sid, "It is locked."))
	case errors.Is(err, feature.ErrAlreadyOpen):
		e.push(outbound.Error(sid, "It is already open."))
	case err != nil:
		e.log.Error("opening fixture", zap.Stringer("feature", f.ID), zap.Error(err))
		e.push(outbound.Error(sid, "Internal error."))
	default:
		e.push(outbound.Text(sid, fmt.Sprintf("You open the %s.", f.Def.DisplayName)))
		e.broadcastRoom(st.RoomID, fmt.Sprintf("%s opens the %s.", st.Name, f.Def.DisplayName), sid)
	}
	e.prompt(sid)
}

func (e *Engine) cmdClose(st *player.State, kw string) {
	sid := st.Session
	f, ok := e.findFixture(st, kw)
	if !ok {
		return
	}
	var err error
	switch f.Def.Kind {
	case feature.KindDoor:
		err = e.features.CloseDoor(f.ID)
	case feature.KindContainer:
		err = e.features.CloseContainer(f.ID)
	default:
		e.push(outbound.Error(sid, "You can't close that."))
		e.prompt(sid)
		return
	}
	switch {
	case errors.Is(err, feature.ErrAlreadyClosed):
		e.push(outbound.Error(sid, "It is already closed."))
	case err != nil:
		e.log.Error("closing fixture", zap.Stringer("feature", f.ID), zap.Error(err))
		e.push(outbound.Error(sid, "Internal error."))
	default:
		e.push(outbound.Text(sid, fmt.Sprintf("You close the %s.", f.Def.DisplayName)))
		e.broadcastRoom(st.RoomID, fmt.Sprintf("%s closes the %s.", st.Name, f.Def.DisplayName), sid)
	}
	e.prompt(sid)
}

func (e *Engine) cmdUnlock(st *player.State, kw string) {
	sid := st.Session
	f, ok := e.findFixture(st, kw)
	if !ok {
		return
	}
	if f.Def.Kind != feature.KindDoor {
		e.push(outbound.Error(sid, "You can't unlock that."))
		e.prompt(sid)
		return
	}
	// A door with no key item can only be opened by the world itself.
	if f.Def.KeyItem == "" {
		if f.Door() == ids.DoorLocked {
			e.push(outbound.Error(sid, "It won't budge."))
			e.prompt(sid)
			return
		}
	} else if _, has := e.items.FindInInventory(sid, f.Def.KeyItem); !has {
		e.push(outbound.Error(sid, "You don't have the key."))
		e.prompt(sid)
		return
	}
	err := e.features.UnlockDoor(f.ID)
	switch {
	case errors.Is(err, feature.ErrNotLocked):
		e.push(outbound.Error(sid, "It is not locked."))
	case err != nil:
		e.log.Error("unlocking door", zap.Stringer("feature", f.ID), zap.Error(err))
		e.push(outbound.Error(sid, "Internal error."))
	default:
		e.push(outbound.Text(sid, fmt.Sprintf("You unlock the %s.", f.Def.DisplayName)))
		e.broadcastRoom(st.RoomID, fmt.Sprintf("%s unlocks the %s.", st.Name, f.Def.DisplayName), sid)
	}
	e.prompt(sid)
}

func (e *Engine) cmdSearch(st *player.State, kw string) {
	sid := st.Session
	f, ok := e.findFixture(st, kw)
	if !ok {
		return
	}
	if f.Def.Kind != feature.KindContainer {
		e.push(outbound.Error(sid, "You can't search that."))
		e.prompt(sid)
		return
	}
	if !f.Holds() {
		e.push(outbound.Error(sid, fmt.Sprintf("The %s is closed.", f.Def.DisplayName)))
		e.prompt(sid)
		return
	}
	contents := e.items.ContainerItems(f.ID)
	if len(contents) == 0 {
		e.push(outbound.Text(sid, fmt.Sprintf("The %s is empty.", f.Def.DisplayName)))
		e.prompt(sid)
		return
	}
	e.push(outbound.Text(sid, fmt.Sprintf("The %s contains:", f.Def.DisplayName)))
	for _, inst := range contents {
		e.push(outbound.Text(sid, "  "+indef(inst.DisplayName())))
	}
	e.prompt(sid)
}

func (e *Engine) cmdPut(st *player.State, kw, container string) {
	sid := st.Session
	f, ok := e.findFixture(st, container)
	if !ok {
		return
	}
	if f.Def.Kind != feature.KindContainer {
		e.push(outbound.Error(sid, "You can't put things in that."))
		e.prompt(sid)
		return
	}
	if !f.Holds() {
		e.push(outbound.Error(sid, fmt.Sprintf("The %s is closed.", f.Def.DisplayName)))
		e.prompt(sid)
		return
	}
	inst, ok := e.items.FindInInventory(sid, kw)
	if !ok {
		e.push(outbound.Error(sid, "You aren't carrying that."))
		e.prompt(sid)
		return
	}
	if err := e.items.MoveToContainer(inst, f.ID); err != nil {
		e.log.Error("stashing item", zap.String("item", string(inst.ID)), zap.Error(err))
		e.push(outbound.Error(sid, "Internal error."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Text(sid, fmt.Sprintf("You put the %s in the %s.", inst.DisplayName(), f.Def.DisplayName)))
	e.broadcastRoom(st.RoomID, fmt.Sprintf("%s puts %s in the %s.", st.Name, indef(inst.DisplayName()), f.Def.DisplayName), sid)
	e.prompt(sid)
}

func (e *Engine) cmdPull(st *player.State, kw string) {
	sid := st.Session
	f, ok := e.findFixture(st, kw)
	if !ok {
		return
	}
	if f.Def.Kind != feature.KindLever {
		e.push(outbound.Error(sid, "You can't pull that."))
		e.prompt(sid)
		return
	}
	pos, err := e.features.PullLever(f.ID)
	if err != nil {
		e.log.Error("pulling lever", zap.Stringer("feature", f.ID), zap.Error(err))
		e.push(outbound.Error(sid, "Internal error."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Text(sid, fmt.Sprintf("The %s clunks into the %s position.", f.Def.DisplayName, strings.ToLower(string(pos)))))
	e.broadcastRoom(st.RoomID, fmt.Sprintf("%s pulls the %s.", st.Name, f.Def.DisplayName), sid)

	if f.Def.Script != "" {
		ran := false
		if e.scripts != nil {
			ran = e.scripts.RunRoomHook(st.RoomID.Zone(), f.Def.Script, string(st.RoomID), string(f.ID))
		}
		if !ran {
			e.push(outbound.Error(sid, "Nothing happens."))
		}
	}
	e.prompt(sid)
}

func (e *Engine) cmdRead(st *player.State, kw string) {
	sid := st.Session
	f, ok := e.findFixture(st, kw)
	if !ok {
		return
	}
	if f.Def.Kind != feature.KindSign || f.Def.Text == "" {
		e.push(outbound.Error(sid, "There is nothing written on that."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Info(sid, fmt.Sprintf("The %s reads:", f.Def.DisplayName)))
	for _, line := range strings.Split(f.Def.Text, "\n") {
		e.push(outbound.Text(sid, "  "+line))
	}
	e.prompt(sid)
}
