package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/bus"
	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

// resolveRoomSpec turns a staff-typed room reference into a room hosted by
// this engine, emitting the error messages itself.
func (e *Engine) resolveRoomSpec(st *player.State, spec string) (ids.RoomID, bool) {
	sid := st.Session
	ref, err := ids.ParseRoomRef(spec, st.RoomID.Zone())
	if err != nil {
		e.push(outbound.Error(sid, capitalize(err.Error())+"."))
		e.prompt(sid)
		return "", false
	}
	room, ok := e.world.ResolveRef(ref)
	if !ok {
		e.push(outbound.Error(sid, "No such room."))
		e.prompt(sid)
		return "", false
	}
	return room, true
}

func (e *Engine) cmdGoto(st *player.State, spec string) {
	sid := st.Session
	room, ok := e.resolveRoomSpec(st, spec)
	if !ok {
		return
	}
	if room == st.RoomID {
		e.push(outbound.Text(sid, "You are already there."))
		e.prompt(sid)
		return
	}
	e.stopFighting(sid)
	e.relocate(st, room,
		fmt.Sprintf("%s vanishes in a puff of smoke.", st.Name),
		fmt.Sprintf("%s appears in a puff of smoke.", st.Name),
	)
}

func (e *Engine) cmdTransfer(st *player.State, target, spec string) {
	sid := st.Session
	other, ok := e.players.ByName(target)
	if !ok {
		if e.busConn == nil {
			e.push(outbound.Error(sid, "No such player."))
			e.prompt(sid)
			return
		}
		e.remoteTransfer(st, target, spec)
		return
	}
	room, ok := e.resolveRoomSpec(st, spec)
	if !ok {
		return
	}
	e.stopFighting(other.Session)
	e.notify(other.Session, outbound.Info(other.Session, fmt.Sprintf("You are transferred by %s.", st.Name)))
	e.relocate(other, room,
		fmt.Sprintf("%s is whisked away.", other.Name),
		fmt.Sprintf("%s arrives in a flash.", other.Name),
	)
	e.push(outbound.Text(sid, fmt.Sprintf("You transfer %s.", other.Name)))
	e.prompt(sid)
}

// remoteTransfer broadcasts a transfer request for a player this engine does
// not host. Remote references must be fully qualified: the receiving engine
// cannot resolve a bare room name against the staff's zone.
func (e *Engine) remoteTransfer(st *player.State, target, spec string) {
	sid := st.Session
	ref, err := ids.ParseRoomRef(spec, st.RoomID.Zone())
	if err != nil {
		e.push(outbound.Error(sid, capitalize(err.Error())+"."))
		e.prompt(sid)
		return
	}
	if ref.AnyInZone {
		e.push(outbound.Error(sid, "Use zone:room for remote transfers."))
		e.prompt(sid)
		return
	}
	msg := bus.Message{Transfer: &bus.TransferRequest{
		StaffName:        st.Name,
		TargetPlayerName: target,
		TargetRoomID:     ids.MakeRoomID(ref.Zone, ref.Local),
	}}
	if err := e.publish(msg); err != nil {
		e.log.Error("publishing transfer request", zap.String("player", target), zap.Error(err))
		e.push(outbound.Error(sid, "Your message could not be delivered."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Text(sid, "Transfer request sent."))
	e.prompt(sid)
}

func (e *Engine) cmdSpawn(st *player.State, keyword, spec string) {
	sid := st.Session
	tmpl, ok := e.world.MobTemplate(keyword)
	if !ok {
		e.push(outbound.Error(sid, "No such mob template."))
		e.prompt(sid)
		return
	}
	room := st.RoomID
	if spec != "" {
		room, ok = e.resolveRoomSpec(st, spec)
		if !ok {
			return
		}
	}
	mobSt := e.spawnMob(tmpl, room)
	e.broadcastRoom(room, fmt.Sprintf("%s appears in a flash of light!", capitalize(indef(mobSt.Name()))))
	if room != st.RoomID {
		e.push(outbound.Text(sid, fmt.Sprintf("You spawn %s at %s.", indef(mobSt.Name()), room)))
	}
	if tmpl.Aggressive {
		e.aggroRoom(mobSt)
	}
	e.prompt(sid)
}

func (e *Engine) cmdShutdown(st *player.State) {
	e.log.Warn("shutdown requested", zap.String("staff", st.Name))
	e.broadcastAll("[SYSTEM] The world is shutting down!")
	if e.busConn != nil {
		msg := bus.Message{Broadcast: &bus.GlobalBroadcast{
			Type:       bus.BroadcastShutdown,
			SenderName: st.Name,
			Text:       "The world is shutting down!",
		}}
		if err := e.publish(msg); err != nil {
			e.log.Error("publishing shutdown broadcast", zap.Error(err))
		}
	}
	if e.onShutdown != nil {
		e.onShutdown()
	}
	e.prompt(st.Session)
}

func (e *Engine) cmdSmite(st *player.State, target string) {
	sid := st.Session
	if victim, ok := e.players.ByName(target); ok {
		e.stopFighting(victim.Session)
		victim.Hp = 1
		victim.Dirty = true
		e.notify(victim.Session, outbound.Info(victim.Session, "You are struck down by divine wrath!"))
		e.relocate(victim, e.world.StartRoom,
			fmt.Sprintf("%s is struck down by divine wrath!", victim.Name),
			fmt.Sprintf("%s arrives, smoldering.", victim.Name),
		)
		e.push(outbound.Text(sid, fmt.Sprintf("You smite %s.", victim.Name)))
		e.prompt(sid)
		return
	}

	if mobSt, ok := e.mobs.FindInRoom(st.RoomID, target); ok {
		name := mobSt.Name()
		tmpl := mobSt.Tmpl
		home := mobSt.HomeRoom
		e.broadcastRoom(st.RoomID, fmt.Sprintf("The %s is obliterated by divine wrath!", name))
		attackers := e.fights.DisengageMob(mobSt.ID)
		delete(e.mobChains, mobSt.ID)
		e.mobs.Remove(mobSt.ID)
		for _, a := range attackers {
			e.swingSeq[a]++
			e.prompt(a)
		}
		if tmpl.RespawnMs > 0 {
			e.scheduleRespawn(tmpl, home)
		}
		e.prompt(sid)
		return
	}

	e.push(outbound.Error(sid, "No such target."))
	e.prompt(sid)
}

func (e *Engine) cmdKickPlayer(st *player.State, target string) {
	sid := st.Session
	if other, ok := e.players.ByName(target); ok {
		if other.Session == sid {
			e.push(outbound.Error(sid, "You cannot kick yourself."))
			e.prompt(sid)
			return
		}
		e.disconnectPlayer(other.Session)
		e.push(outbound.Text(sid, fmt.Sprintf("You kick %s.", other.Name)))
		e.prompt(sid)
		return
	}
	if e.busConn != nil {
		msg := bus.Message{Kick: &bus.KickRequest{TargetPlayerName: target}}
		if err := e.publish(msg); err != nil {
			e.log.Error("publishing kick request", zap.String("player", target), zap.Error(err))
			e.push(outbound.Error(sid, "Your message could not be delivered."))
			e.prompt(sid)
			return
		}
		e.push(outbound.Text(sid, "Kick request sent."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Error(sid, "No such player."))
	e.prompt(sid)
}

// disconnectPlayer forcibly logs out and closes a playing session.
func (e *Engine) disconnectPlayer(sid ids.SessionID) {
	e.push(outbound.Info(sid, "You have been disconnected"))
	e.logoutSession(sid, true)
	e.push(outbound.Close(sid))
	if s, ok := e.sessions[sid]; ok {
		s.phase = phaseGone
		s.goneNotice = ""
	}
}

func (e *Engine) cmdSetLevel(st *player.State, target string, level int) {
	sid := st.Session
	other, ok := e.players.ByName(target)
	if !ok {
		e.push(outbound.Error(sid, "No such player."))
		e.prompt(sid)
		return
	}
	if level < 1 {
		level = 1
	}
	if level > player.MaxLevel {
		level = player.MaxLevel
	}
	if err := e.players.SetLevel(other.Session, level); err != nil {
		e.log.Error("setting level", zap.String("player", other.Name), zap.Error(err))
		e.push(outbound.Error(sid, "Internal error."))
		e.prompt(sid)
		return
	}
	e.notify(other.Session, outbound.Info(other.Session, fmt.Sprintf("You are now level %d.", level)))
	e.push(outbound.Text(sid, fmt.Sprintf("%s is now level %d.", other.Name, level)))
	e.prompt(sid)
}
