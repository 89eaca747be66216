package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/item"
	"github.com/driftwood-mud/engine/internal/game/mail"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

const (
	banner     = "Welcome to Driftwood."
	namePrompt = "By what name are you known? "
	passPrompt = "Password: "

	// maxAuthFailures disconnects a session after this many wrong
	// passwords.
	maxAuthFailures = 3
)

func (e *Engine) handleConnect(sid ids.SessionID) {
	if _, ok := e.sessions[sid]; ok {
		e.log.Warn("duplicate connect", zap.Stringer("session", sid))
		return
	}
	e.sessions[sid] = &session{sid: sid, phase: phaseNaming}
	e.log.Info("session connected", zap.Stringer("session", sid))
	e.push(outbound.Info(sid, banner))
	e.push(outbound.Prompt(sid, namePrompt))
}

func (e *Engine) handleLine(sid ids.SessionID, line string) {
	s, ok := e.sessions[sid]
	if !ok {
		e.log.Debug("line from unknown session", zap.Stringer("session", sid))
		return
	}
	switch s.phase {
	case phaseNaming:
		e.authName(s, line)
	case phasePassword:
		e.authPassword(s, line)
	case phasePlaying:
		e.playLine(s, line)
	case phaseGone:
		if s.goneNotice != "" {
			e.push(outbound.Info(sid, s.goneNotice))
		}
	}
}

func (e *Engine) handleDisconnect(sid ids.SessionID) {
	s, ok := e.sessions[sid]
	if !ok {
		return
	}
	if s.phase == phasePlaying {
		e.logoutSession(sid, true)
	}
	delete(e.sessions, sid)
	e.out.Remove(sid)
	e.log.Info("session disconnected", zap.Stringer("session", sid))
}

func (e *Engine) authName(s *session, line string) {
	name := strings.TrimSpace(line)
	if name == "" {
		e.push(outbound.Prompt(s.sid, namePrompt))
		return
	}
	if err := player.ValidateName(name); err != nil {
		e.push(outbound.Error(s.sid, err.Error()))
		e.push(outbound.Prompt(s.sid, namePrompt))
		return
	}
	s.name = player.NormalizeName(name)
	s.phase = phasePassword
	s.rec = nil
	s.recReady = false
	s.passQueued = false
	s.fetchSeq++

	e.push(outbound.EchoOff(s.sid))
	e.push(outbound.Prompt(s.sid, passPrompt))
	e.fetchRecord(s)
}

// fetchRecord pulls the stored record for the pending name off the loop.
// The password handler waits on recReady before finishing the login.
func (e *Engine) fetchRecord(s *session) {
	sid, name, seq := s.sid, s.name, s.fetchSeq
	var rec *player.Record
	e.offload(func(ctx context.Context) error {
		r, err := e.repo.FindByName(ctx, name)
		if err != nil {
			return err
		}
		rec = r
		return nil
	}, func(err error) {
		cur, ok := e.sessions[sid]
		if !ok || cur != s || s.fetchSeq != seq || s.phase != phasePassword {
			return
		}
		if err != nil && !errors.Is(err, player.ErrNotFound) {
			e.log.Error("loading player record", zap.String("name", name), zap.Error(err))
			e.push(outbound.EchoOn(sid))
			e.push(outbound.Error(sid, "Internal error."))
			e.push(outbound.Prompt(sid, namePrompt))
			s.phase = phaseNaming
			return
		}
		s.rec = rec
		s.recReady = true
		if s.passQueued {
			pass := s.queuedPass
			s.queuedPass = ""
			s.passQueued = false
			e.finishLogin(s, pass)
		}
	})
}

func (e *Engine) authPassword(s *session, line string) {
	pass := strings.TrimSpace(line)
	if pass == "" {
		e.push(outbound.Prompt(s.sid, passPrompt))
		return
	}
	if !s.recReady {
		s.queuedPass = pass
		s.passQueued = true
		return
	}
	e.finishLogin(s, pass)
}

func (e *Engine) finishLogin(s *session, pass string) {
	outcome := e.players.Login(s.sid, s.name, pass, s.rec)
	switch outcome.Result {
	case player.LoginNameInvalid:
		e.push(outbound.EchoOn(s.sid))
		e.push(outbound.Error(s.sid, outcome.Reason))
		e.push(outbound.Prompt(s.sid, namePrompt))
		s.phase = phaseNaming

	case player.LoginBadPassword:
		s.failures++
		reason := outcome.Reason
		if reason == "" {
			reason = "Wrong password."
		}
		if s.failures >= maxAuthFailures {
			e.log.Info("session rejected after repeated failures",
				zap.Stringer("session", s.sid),
				zap.String("name", s.name),
			)
			e.push(outbound.EchoOn(s.sid))
			e.push(outbound.Error(s.sid, "Too many failed attempts."))
			e.push(outbound.Close(s.sid))
			s.phase = phaseGone
			return
		}
		e.push(outbound.Error(s.sid, reason))
		e.push(outbound.Prompt(s.sid, passPrompt))

	case player.LoginTakeover:
		e.adoptTakeover(s, outcome)

	case player.LoginOk:
		e.push(outbound.EchoOn(s.sid))
		st := outcome.State
		if !outcome.IsNew && s.rec != nil {
			e.restoreHoldings(s.sid, s.rec)
		}
		e.enterWorld(s, st, outcome.IsNew, false)
	}
}

// adoptTakeover moves a player from their old session to the new one: the
// old socket is told and closed, every session-keyed registry is rekeyed,
// and any running swing chain is restarted under the new key.
func (e *Engine) adoptTakeover(s *session, outcome player.LoginOutcome) {
	prior := outcome.Prior
	st := outcome.State

	e.log.Info("session takeover",
		zap.String("name", st.Name),
		zap.Stringer("old_session", prior),
		zap.Stringer("new_session", s.sid),
	)

	e.push(outbound.Info(prior, "You have been disconnected"))
	e.push(outbound.Close(prior))
	if old, ok := e.sessions[prior]; ok {
		old.phase = phaseGone
		old.goneNotice = ""
	}

	e.items.RekeySession(prior, s.sid)
	e.fights.Rekey(prior, s.sid)
	e.groups.Rekey(prior, s.sid)
	e.invites.Rekey(prior, s.sid)
	e.rekeyEffects(prior, s.sid)
	delete(e.swingSeq, prior)
	if cs, ok := e.fights.Get(s.sid); ok {
		seq := e.nextSwingSeq(s.sid)
		e.sched.ScheduleAt(cs.NextSwingDueAtMs, func() { e.playerSwing(s.sid, seq) })
	}

	e.push(outbound.EchoOn(s.sid))
	e.enterWorld(s, st, false, true)
}

// enterWorld finishes admission: welcome text, mail and guild notices, room
// arrival, and the first look.
func (e *Engine) enterWorld(s *session, st *player.State, isNew, takeover bool) {
	s.phase = phasePlaying
	s.failures = 0
	s.rec = nil

	if _, ok := e.world.Room(st.RoomID); !ok {
		e.log.Warn("stored room no longer exists, moving to start",
			zap.String("name", st.Name),
			zap.Stringer("room", st.RoomID),
		)
		if _, err := e.players.MoveTo(s.sid, e.world.StartRoom); err != nil {
			e.log.Error("relocating player to start room", zap.Error(err))
		}
	}

	if isNew {
		e.push(outbound.Info(s.sid, fmt.Sprintf("Welcome to Driftwood, %s!", st.Name)))
	} else {
		e.push(outbound.Info(s.sid, fmt.Sprintf("Welcome back, %s.", st.Name)))
	}
	if n := mail.Unread(st.Inbox); n > 0 {
		e.push(outbound.Info(s.sid, fmt.Sprintf("You have %d unread message(s). Type 'mail list'.", n)))
	}
	if st.GuildID != "" {
		e.showGuildMotd(s.sid, st.GuildID)
	}

	e.log.Info("player entered world",
		zap.String("name", st.Name),
		zap.Stringer("session", s.sid),
		zap.Stringer("room", st.RoomID),
		zap.Bool("new", isNew),
		zap.Bool("takeover", takeover),
	)

	if !takeover {
		e.broadcastRoom(st.RoomID, fmt.Sprintf("%s has arrived.", st.Name), s.sid)
	}
	e.look(s.sid, st)
	e.prompt(s.sid)
	if !takeover {
		e.checkAggro(s.sid, st)
	}
}

// restoreHoldings rebuilds item instances from a stored record and equips
// what was equipped, shifting maxHp by the restored armor.
func (e *Engine) restoreHoldings(sid ids.SessionID, rec *player.Record) {
	adopt := func(snap item.Snapshot) *item.Instance {
		tmpl, ok := e.world.ItemTemplate(snap.Keyword)
		if !ok {
			e.log.Warn("stored item template no longer exists",
				zap.String("name", rec.Name),
				zap.String("keyword", snap.Keyword),
			)
			return nil
		}
		inst := item.Restore(snap, tmpl)
		if err := e.items.Adopt(inst, sid); err != nil {
			e.log.Warn("restoring stored item", zap.String("keyword", snap.Keyword), zap.Error(err))
			return nil
		}
		return inst
	}

	for _, snap := range rec.Inventory {
		adopt(snap)
	}
	for _, snap := range rec.Equipment {
		inst := adopt(snap)
		if inst == nil {
			continue
		}
		if _, err := e.items.Equip(sid, inst); err != nil {
			e.log.Warn("re-equipping stored item", zap.String("keyword", snap.Keyword), zap.Error(err))
		}
	}
	if st, ok := e.players.Get(sid); ok {
		if armor := e.items.ArmorSum(sid); armor != 0 {
			st.ApplyArmorDelta(armor)
		}
	}
}

// showGuildMotd fetches the player's guild off the loop and posts its
// message of the day.
func (e *Engine) showGuildMotd(sid ids.SessionID, slug string) {
	var motdLine string
	e.offload(func(ctx context.Context) error {
		g, err := e.guildRepo.FindBySlug(ctx, slug)
		if err != nil {
			return err
		}
		if g.Motd == "" {
			return nil
		}
		motdLine = fmt.Sprintf("[%s] %s: %s", g.Tag, g.Name, g.Motd)
		return nil
	}, func(err error) {
		if err != nil {
			e.log.Warn("loading guild for motd", zap.String("slug", slug), zap.Error(err))
			return
		}
		if motdLine == "" {
			return
		}
		if _, ok := e.players.Get(sid); !ok {
			return
		}
		e.notify(sid, outbound.Info(sid, motdLine))
	})
}

// logoutSession tears down a playing session: combat, effects, and group
// membership are released, holdings are snapshotted, and the record goes to
// the persister. The caller owns the outbound queue and session map entry.
func (e *Engine) logoutSession(sid ids.SessionID, announce bool) {
	st, ok := e.players.Get(sid)
	if !ok {
		return
	}
	room := st.RoomID
	name := st.Name

	e.stopFighting(sid)
	delete(e.effects, sid)
	e.leaveGroupSilently(sid)
	e.invites.Drop(sid)

	inv, eq := e.items.RemoveSession(sid)
	rec := st.ToRecord(inv, eq)
	e.players.Logout(sid)

	e.enqueuePlayerSave(rec)

	if announce {
		e.broadcastRoom(room, fmt.Sprintf("%s has left the world.", name), sid)
	}
	e.log.Info("player left world", zap.String("name", name), zap.Stringer("session", sid))
}

// leaveGroupSilently removes a departing session from its group, notifying
// the members who stay behind.
func (e *Engine) leaveGroupSilently(sid ids.SessionID) {
	name := "Someone"
	if st, ok := e.players.Get(sid); ok {
		name = st.Name
	}
	remaining, disbanded := e.groups.RemoveSession(sid)
	for _, member := range remaining {
		if disbanded {
			e.setGroupID(member, 0)
			e.notify(member, outbound.Info(member, "Your group disbands."))
			continue
		}
		e.notify(member, outbound.Info(member, fmt.Sprintf("%s leaves the group.", name)))
	}
}

func (e *Engine) setGroupID(sid ids.SessionID, id int64) {
	if st, ok := e.players.Get(sid); ok {
		st.GroupID = id
	}
}
