package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

// relocate moves a player between rooms with leave/enter broadcasts, then
// shows the destination and re-arms aggressive mobs there. Empty broadcast
// texts are skipped.
func (e *Engine) relocate(st *player.State, to ids.RoomID, leaveText, enterText string) {
	sid := st.Session
	if leaveText != "" {
		e.broadcastRoom(st.RoomID, leaveText, sid)
	}
	if _, err := e.players.MoveTo(sid, to); err != nil {
		e.log.Error("relocating player", zap.String("name", st.Name), zap.Error(err))
		e.push(outbound.Error(sid, "Internal error."))
		e.prompt(sid)
		return
	}
	st.Dialogue = nil
	if enterText != "" {
		e.broadcastRoom(to, enterText, sid)
	}
	e.look(sid, st)
	e.prompt(sid)
	e.checkAggro(sid, st)
}

func (e *Engine) cmdMove(st *player.State, dir ids.Direction) {
	sid := st.Session
	if e.fights.InCombat(sid) {
		e.push(outbound.Error(sid, "You are in combat."))
		e.prompt(sid)
		return
	}
	room, ok := e.world.Room(st.RoomID)
	if !ok {
		e.push(outbound.Text(sid, "You can't go that way."))
		e.prompt(sid)
		return
	}
	target, ok := room.Exit(dir)
	if !ok {
		e.push(outbound.Text(sid, "You can't go that way."))
		e.prompt(sid)
		return
	}
	if door, present := e.features.DoorAt(room.ID, dir); present && !door.Passable() {
		if door.Door() == ids.DoorLocked {
			e.push(outbound.Error(sid, fmt.Sprintf("The %s is locked.", door.Def.DisplayName)))
		} else {
			e.push(outbound.Error(sid, fmt.Sprintf("The %s is closed.", door.Def.DisplayName)))
		}
		e.prompt(sid)
		return
	}

	if target.Zone() != st.RoomID.Zone() && !e.world.HasZone(target.Zone()) {
		if e.busConn == nil {
			e.push(outbound.Text(sid, "You can't go that way."))
			e.prompt(sid)
			return
		}
		engineID, _ := e.engineForZone(target.Zone())
		e.beginHandoff(st, target, engineID, fmt.Sprintf("%s leaves.", st.Name))
		return
	}

	e.relocate(st, target, fmt.Sprintf("%s leaves.", st.Name), fmt.Sprintf("%s enters.", st.Name))
}

func (e *Engine) cmdRecall(st *player.State) {
	sid := st.Session
	if e.fights.InCombat(sid) {
		e.push(outbound.Error(sid, "You are in combat."))
		e.prompt(sid)
		return
	}
	now := e.now()
	if st.RecallReadyAtMs > now {
		e.push(outbound.Text(sid, fmt.Sprintf("%d seconds remaining", ceilSeconds(st.RecallReadyAtMs-now))))
		e.prompt(sid)
		return
	}
	target := st.RecallRoomID
	if _, ok := e.world.Room(target); !ok {
		target = e.world.StartRoom
	}
	st.RecallReadyAtMs = now + e.cfg.RecallCooldownMs
	st.Dirty = true

	e.push(outbound.Info(sid, "You pray, and the world folds around you."))
	e.relocate(st, target,
		fmt.Sprintf("%s vanishes in a flash of light.", st.Name),
		fmt.Sprintf("%s appears in a flash of light.", st.Name),
	)
}
