package engine

import (
	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/game/command"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

func (e *Engine) playLine(s *session, line string) {
	st, ok := e.players.Get(s.sid)
	if !ok {
		e.log.Error("playing session has no player state", zap.Stringer("session", s.sid))
		return
	}
	if st.Compose != nil {
		e.composeLine(st, line)
		return
	}
	e.routeCommand(s, st, e.parser.Parse(line))
}

// routeCommand dispatches one parsed command. A panicking handler is
// contained: the player sees a generic error and keeps their session.
func (e *Engine) routeCommand(s *session, st *player.State, cmd command.Command) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("command handler panicked",
				zap.Stringer("session", s.sid),
				zap.String("player", st.Name),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			e.push(outbound.Error(s.sid, "Internal error."))
			e.prompt(s.sid)
		}
	}()

	if staffOnly(cmd.Kind) && !st.IsStaff {
		e.push(outbound.Error(s.sid, "You are not staff."))
		e.prompt(s.sid)
		return
	}

	switch cmd.Kind {
	case command.KindNoop:
		e.prompt(s.sid)
	case command.KindUnknown:
		e.push(outbound.Text(s.sid, "Huh?"))
		e.prompt(s.sid)
	case command.KindInvalid:
		e.push(outbound.Error(s.sid, cmd.Hint))
		e.prompt(s.sid)

	case command.KindMove:
		e.cmdMove(st, cmd.Dir)
	case command.KindRecall:
		e.cmdRecall(st)
	case command.KindLook:
		e.cmdLook(st)
	case command.KindLookDir:
		e.cmdLookDir(st, cmd.Dir)
	case command.KindExits:
		e.cmdExits(st)
	case command.KindWho:
		e.cmdWho(st)
	case command.KindScore:
		e.cmdScore(st)
	case command.KindInventory:
		e.cmdInventory(st)
	case command.KindEquipment:
		e.cmdEquipment(st)
	case command.KindHelp:
		e.cmdHelp(st, cmd.Keyword)
	case command.KindQuit:
		e.cmdQuit(s, st)
	case command.KindPrompt:
		e.cmdPrompt(s, cmd.Text)

	case command.KindSay:
		e.cmdSay(st, cmd.Text)
	case command.KindTell:
		e.cmdTell(st, cmd.Target, cmd.Text)
	case command.KindGossip:
		e.cmdGossip(st, cmd.Text)
	case command.KindWhisper:
		e.cmdWhisper(st, cmd.Target, cmd.Text)
	case command.KindShout:
		e.cmdShout(st, cmd.Text)
	case command.KindOoc:
		e.cmdOoc(st, cmd.Text)
	case command.KindPose:
		e.cmdPose(st, cmd.Text)

	case command.KindGet:
		e.cmdGet(st, cmd.Keyword, cmd.Container)
	case command.KindDrop:
		e.cmdDrop(st, cmd.Keyword)
	case command.KindGive:
		e.cmdGive(st, cmd.Keyword, cmd.Target)
	case command.KindUse:
		e.cmdUse(st, cmd.Keyword)
	case command.KindWear:
		e.cmdWear(st, cmd.Keyword)
	case command.KindRemove:
		e.cmdRemoveWorn(st, cmd.Keyword)

	case command.KindList:
		e.cmdShopList(st)
	case command.KindBuy:
		e.cmdBuy(st, cmd.Keyword)
	case command.KindSell:
		e.cmdSell(st, cmd.Keyword)
	case command.KindBalance:
		e.cmdBalance(st)

	case command.KindTalk:
		e.cmdTalk(st, cmd.Keyword)
	case command.KindDialogueChoice:
		e.cmdDialogueChoice(st, cmd.N)

	case command.KindKill:
		e.cmdKill(st, cmd.Keyword)
	case command.KindFlee:
		e.cmdFlee(st)
	case command.KindCast:
		e.cmdCast(st, cmd.Keyword, cmd.Target)
	case command.KindSpells:
		e.cmdSpells(st)
	case command.KindEffects:
		e.cmdEffects(st)
	case command.KindDispel:
		e.cmdDispel(st, cmd.Keyword)

	case command.KindOpen:
		e.cmdOpen(st, cmd.Keyword)
	case command.KindClose:
		e.cmdClose(st, cmd.Keyword)
	case command.KindUnlock:
		e.cmdUnlock(st, cmd.Keyword)
	case command.KindSearch:
		e.cmdSearch(st, cmd.Keyword)
	case command.KindPut:
		e.cmdPut(st, cmd.Keyword, cmd.Container)
	case command.KindPull:
		e.cmdPull(st, cmd.Keyword)
	case command.KindRead:
		e.cmdRead(st, cmd.Keyword)

	case command.KindGroup:
		e.cmdGroup(st, cmd.Sub, cmd.Target)
	case command.KindGtell:
		e.cmdGtell(st, cmd.Text)
	case command.KindGuild:
		e.cmdGuild(st, cmd)
	case command.KindGchat:
		e.cmdGchat(st, cmd.Text)
	case command.KindMail:
		e.cmdMail(st, cmd)

	case command.KindGoto:
		e.cmdGoto(st, cmd.Room)
	case command.KindTransfer:
		e.cmdTransfer(st, cmd.Target, cmd.Room)
	case command.KindSpawn:
		e.cmdSpawn(st, cmd.Keyword, cmd.Room)
	case command.KindShutdown:
		e.cmdShutdown(st)
	case command.KindSmite:
		e.cmdSmite(st, cmd.Target)
	case command.KindKick:
		e.cmdKickPlayer(st, cmd.Target)
	case command.KindSetLevel:
		e.cmdSetLevel(st, cmd.Target, cmd.N)
	case command.KindPhase:
		e.cmdPhase(st, cmd.Target)

	default:
		e.push(outbound.Text(s.sid, "Huh?"))
		e.prompt(s.sid)
	}
}

func staffOnly(k command.Kind) bool {
	switch k {
	case command.KindGoto, command.KindTransfer, command.KindSpawn,
		command.KindShutdown, command.KindSmite, command.KindKick,
		command.KindSetLevel:
		return true
	default:
		return false
	}
}
