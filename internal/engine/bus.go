package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/bus"
	"github.com/driftwood-mud/engine/internal/game/outbound"
)

// publish broadcasts a message to every peer engine.
func (e *Engine) publish(msg bus.Message) error {
	if e.busConn == nil {
		return fmt.Errorf("no bus configured")
	}
	msg.SourceEngineID = e.cfg.EngineID
	return e.busConn.Broadcast(msg)
}

// publishTo sends a message to one peer engine.
func (e *Engine) publishTo(engineID string, msg bus.Message) error {
	if e.busConn == nil {
		return fmt.Errorf("no bus configured")
	}
	msg.SourceEngineID = e.cfg.EngineID
	return e.busConn.SendTo(engineID, msg)
}

// applyBusMessage reacts to one inter-engine message on the engine
// goroutine. Messages for players this engine does not host are dropped;
// every engine receives broadcasts and keeps only what applies to it.
func (e *Engine) applyBusMessage(msg bus.Message) {
	switch {
	case msg.Broadcast != nil:
		e.applyRemoteBroadcast(msg.Broadcast)
	case msg.Tell != nil:
		e.applyRemoteTell(msg.Tell)
	case msg.Kick != nil:
		e.applyRemoteKick(msg.Kick)
	case msg.Transfer != nil:
		e.applyRemoteTransfer(msg.Transfer)
	case msg.Handoff != nil:
		e.applyRemoteHandoff(msg.Handoff)
	default:
		e.log.Debug("bus message with no payload", zap.String("source", msg.SourceEngineID))
	}
}

func (e *Engine) applyRemoteBroadcast(b *bus.GlobalBroadcast) {
	switch b.Type {
	case bus.BroadcastGossip:
		e.broadcastAll(fmt.Sprintf("[GOSSIP] %s: %s", b.SenderName, b.Text))
	case bus.BroadcastOOC:
		e.broadcastAll(fmt.Sprintf("[OOC] %s: %s", b.SenderName, b.Text))
	case bus.BroadcastShutdown:
		e.broadcastAll("[SYSTEM] " + b.Text)
	default:
		e.log.Debug("broadcast of unknown type", zap.String("type", string(b.Type)))
	}
}

func (e *Engine) applyRemoteTell(t *bus.TellMessage) {
	other, ok := e.players.ByName(t.ToName)
	if !ok {
		return
	}
	e.notify(other.Session, outbound.Text(other.Session,
		fmt.Sprintf("%s tells you: %s", t.FromName, t.Text)))
}

func (e *Engine) applyRemoteKick(k *bus.KickRequest) {
	other, ok := e.players.ByName(k.TargetPlayerName)
	if !ok {
		return
	}
	e.log.Info("kicking player on remote request", zap.String("player", other.Name))
	e.disconnectPlayer(other.Session)
}

func (e *Engine) applyRemoteTransfer(t *bus.TransferRequest) {
	other, ok := e.players.ByName(t.TargetPlayerName)
	if !ok {
		return
	}
	if _, hosted := e.world.Room(t.TargetRoomID); !hosted {
		e.log.Warn("transfer request names a room this engine does not host",
			zap.String("player", other.Name),
			zap.Stringer("room", t.TargetRoomID))
		return
	}
	e.stopFighting(other.Session)
	e.notify(other.Session, outbound.Info(other.Session,
		fmt.Sprintf("You are transferred by %s.", t.StaffName)))
	e.relocate(other, t.TargetRoomID,
		fmt.Sprintf("%s is whisked away.", other.Name),
		fmt.Sprintf("%s arrives in a flash.", other.Name),
	)
}

// applyRemoteHandoff persists an inbound player snapshot so the player can
// reconnect to this engine. Their live session stays on the sending engine
// until they do.
func (e *Engine) applyRemoteHandoff(h *bus.ZoneHandoff) {
	if _, online := e.players.ByName(h.PlayerName); online {
		e.log.Warn("handoff for a player already online here", zap.String("player", h.PlayerName))
		return
	}
	rec := h.Snapshot
	if _, ok := e.world.Room(rec.RoomID); !ok {
		rec.RoomID = e.world.StartRoom
	}
	name := rec.Name
	e.offload(func(ctx context.Context) error {
		return e.repo.Save(ctx, &rec)
	}, func(err error) {
		if err != nil {
			e.log.Error("persisting handoff snapshot", zap.String("player", name), zap.Error(err))
			return
		}
		e.log.Info("handoff accepted", zap.String("player", name), zap.Stringer("room", rec.RoomID))
	})
}
