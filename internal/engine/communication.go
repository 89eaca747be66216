package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/bus"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

func (e *Engine) cmdSay(st *player.State, text string) {
	e.broadcastRoom(st.RoomID, fmt.Sprintf("%s says: %s", st.Name, text), st.Session)
	e.push(outbound.Text(st.Session, "You say: "+text))
	e.prompt(st.Session)
}

func (e *Engine) cmdTell(st *player.State, target, text string) {
	sid := st.Session
	name := player.NormalizeName(target)
	if name == st.Name {
		e.push(outbound.Text(sid, "You tell yourself: "+text))
		e.prompt(sid)
		return
	}

	if other, ok := e.players.ByName(name); ok {
		e.push(outbound.Text(sid, fmt.Sprintf("You tell %s: %s", other.Name, text)))
		e.notify(other.Session, outbound.Text(other.Session, fmt.Sprintf("%s tells you: %s", st.Name, text)))
		e.prompt(sid)
		return
	}

	if e.busConn == nil {
		e.push(outbound.Error(sid, "No such player."))
		e.prompt(sid)
		return
	}

	msg := bus.Message{Tell: &bus.TellMessage{FromName: st.Name, ToName: name, Text: text}}
	var err error
	if e.locations != nil {
		if engineID, ok := e.locations.LookupEngineID(strings.ToLower(name)); ok && engineID != e.cfg.EngineID {
			err = e.publishTo(engineID, msg)
		} else {
			err = e.publish(msg)
		}
	} else {
		err = e.publish(msg)
	}
	if err != nil {
		e.log.Warn("forwarding tell", zap.String("to", name), zap.Error(err))
		e.push(outbound.Error(sid, "Your message could not be delivered."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Text(sid, fmt.Sprintf("You tell %s: %s", name, text)))
	e.prompt(sid)
}

func (e *Engine) cmdGossip(st *player.State, text string) {
	e.broadcastAll(fmt.Sprintf("[GOSSIP] %s: %s", st.Name, text))
	if e.busConn != nil {
		msg := bus.Message{Broadcast: &bus.GlobalBroadcast{
			Type:       bus.BroadcastGossip,
			SenderName: st.Name,
			Text:       text,
		}}
		if err := e.publish(msg); err != nil {
			e.log.Warn("publishing gossip", zap.Error(err))
		}
	}
	e.prompt(st.Session)
}

func (e *Engine) cmdOoc(st *player.State, text string) {
	e.broadcastAll(fmt.Sprintf("[OOC] %s: %s", st.Name, text))
	if e.busConn != nil {
		msg := bus.Message{Broadcast: &bus.GlobalBroadcast{
			Type:       bus.BroadcastOOC,
			SenderName: st.Name,
			Text:       text,
		}}
		if err := e.publish(msg); err != nil {
			e.log.Warn("publishing ooc", zap.Error(err))
		}
	}
	e.prompt(st.Session)
}

func (e *Engine) cmdShout(st *player.State, text string) {
	e.broadcastZone(st.RoomID.Zone(), fmt.Sprintf("[SHOUT] %s: %s", st.Name, text))
	e.prompt(st.Session)
}

func (e *Engine) cmdWhisper(st *player.State, target, text string) {
	sid := st.Session
	name := player.NormalizeName(target)
	if name == st.Name {
		e.push(outbound.Info(sid, "You mutter to yourself."))
		e.prompt(sid)
		return
	}
	other, ok := e.players.ByName(name)
	if !ok || other.RoomID != st.RoomID {
		e.push(outbound.Error(sid, "They aren't here."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Text(sid, fmt.Sprintf("You whisper to %s: %s", other.Name, text)))
	e.notify(other.Session, outbound.Text(other.Session, fmt.Sprintf("%s whispers: %s", st.Name, text)))
	e.prompt(sid)
}

func (e *Engine) cmdPose(st *player.State, text string) {
	sid := st.Session
	if !strings.Contains(text, st.Name) {
		e.push(outbound.Error(sid, "Your pose must include your name."))
		e.prompt(sid)
		return
	}
	e.broadcastRoom(st.RoomID, text)
	e.prompt(sid)
}
