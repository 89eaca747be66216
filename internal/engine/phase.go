package engine

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/bus"
	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

func (e *Engine) cmdPhase(st *player.State, target string) {
	sid := st.Session
	if target == "" {
		e.listInstances(st)
		return
	}
	if e.fights.InCombat(sid) {
		e.push(outbound.Text(sid, "You are in combat."))
		e.prompt(sid)
		return
	}
	var dest *Instance
	for i := range e.cfg.Instances {
		if strings.EqualFold(e.cfg.Instances[i].EngineID, target) {
			dest = &e.cfg.Instances[i]
			break
		}
	}
	if dest == nil {
		e.push(outbound.Error(sid, "No such instance."))
		e.prompt(sid)
		return
	}
	if dest.EngineID == e.cfg.EngineID {
		e.push(outbound.Info(sid, "You are already on that instance."))
		e.prompt(sid)
		return
	}
	if e.busConn == nil {
		e.push(outbound.Error(sid, "The way is closed for now."))
		e.prompt(sid)
		return
	}
	// Empty target room: the receiving engine materializes the player at
	// its own start room.
	e.beginHandoff(st, "", dest.EngineID, fmt.Sprintf("%s fades away.", st.Name))
}

func (e *Engine) listInstances(st *player.State) {
	sid := st.Session
	if len(e.cfg.Instances) == 0 {
		e.push(outbound.Text(sid, "This world runs on a single instance."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Info(sid, "Instances:"))
	for i := range e.cfg.Instances {
		inst := &e.cfg.Instances[i]
		marker := " "
		count := "?"
		if inst.EngineID == e.cfg.EngineID {
			marker = "*"
			count = strconv.Itoa(e.players.Count())
		}
		e.push(outbound.Text(sid, fmt.Sprintf("%s %-12s zone %-12s %s players", marker, inst.EngineID, inst.Zone, count)))
	}
	e.prompt(sid)
}

// beginHandoff snapshots the player, offers them to another engine, and on
// success tears the local side down. The receiving engine persists the
// snapshot; the sender must not save a competing copy. An empty targetRoom
// leaves the destination to the receiver.
func (e *Engine) beginHandoff(st *player.State, targetRoom ids.RoomID, engineID, leaveText string) {
	sid := st.Session
	inv, eq := e.snapshotHoldings(sid)
	rec := st.ToRecord(inv, eq)
	rec.RoomID = targetRoom

	msg := bus.Message{Handoff: &bus.ZoneHandoff{
		PlayerName:   st.Name,
		TargetRoomID: targetRoom,
		Snapshot:     *rec,
	}}
	var err error
	if engineID != "" {
		err = e.publishTo(engineID, msg)
	} else {
		err = e.publish(msg)
	}
	if err != nil {
		e.log.Error("publishing zone handoff",
			zap.String("player", st.Name),
			zap.String("engine", engineID),
			zap.Error(err))
		e.push(outbound.Error(sid, "The way is closed for now."))
		e.prompt(sid)
		return
	}

	e.broadcastRoom(st.RoomID, leaveText, sid)
	e.stopFighting(sid)
	delete(e.effects, sid)
	e.leaveGroupSilently(sid)
	e.invites.Drop(sid)
	e.items.RemoveSession(sid)
	e.players.Logout(sid)

	notice := "Reconnect to continue your journey."
	if addr := e.instanceAddress(engineID); addr != "" {
		notice = fmt.Sprintf("Reconnect to %s to continue your journey.", addr)
	}
	if s, ok := e.sessions[sid]; ok {
		s.phase = phaseGone
		s.goneNotice = notice
	}
	e.push(outbound.Info(sid, "The world shifts around you..."))
	e.push(outbound.Info(sid, notice))
	e.push(outbound.Close(sid))
	e.log.Info("player handed off",
		zap.String("player", rec.Name),
		zap.String("engine", engineID),
		zap.Stringer("room", targetRoom))
}

// instanceAddress looks up the advertised client address of a peer engine.
func (e *Engine) instanceAddress(engineID string) string {
	for i := range e.cfg.Instances {
		if e.cfg.Instances[i].EngineID == engineID {
			return e.cfg.Instances[i].Address
		}
	}
	return ""
}
