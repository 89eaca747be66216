package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/game/dialogue"
	"github.com/driftwood-mud/engine/internal/game/mob"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

func (e *Engine) cmdTalk(st *player.State, kw string) {
	sid := st.Session
	npc, ok := e.mobs.FindInRoom(st.RoomID, kw)
	if !ok {
		e.push(outbound.Error(sid, "They aren't here."))
		e.prompt(sid)
		return
	}
	if npc.Tmpl.DialogueID == "" {
		e.push(outbound.Text(sid, fmt.Sprintf("The %s has nothing to say.", npc.Name())))
		e.prompt(sid)
		return
	}
	tree, ok := e.world.Dialogue(npc.Tmpl.DialogueID)
	if !ok {
		e.log.Error("mob references missing dialogue",
			zap.String("mob", npc.Tmpl.Keyword),
			zap.String("dialogue", npc.Tmpl.DialogueID))
		e.push(outbound.Error(sid, "Internal error."))
		e.prompt(sid)
		return
	}
	st.Dialogue = dialogue.NewState(npc.ID, tree)
	e.renderDialogueNode(st, tree, npc)
	e.prompt(sid)
}

// renderDialogueNode prints the current node's prompt and numbered choices.
// A node with no choices ends the conversation.
func (e *Engine) renderDialogueNode(st *player.State, tree *dialogue.Tree, npc *mob.State) {
	sid := st.Session
	node, ok := tree.Nodes[st.Dialogue.NodeID]
	if !ok {
		e.log.Error("dialogue node vanished",
			zap.String("dialogue", tree.ID), zap.String("node", st.Dialogue.NodeID))
		st.Dialogue = nil
		e.push(outbound.Error(sid, "Internal error."))
		return
	}
	e.push(outbound.Info(sid, fmt.Sprintf("The %s says: %s", npc.Name(), node.Prompt)))
	if len(node.Choices) == 0 {
		st.Dialogue = nil
		e.push(outbound.Text(sid, "The conversation ends."))
		return
	}
	for i, c := range node.Choices {
		e.push(outbound.Text(sid, fmt.Sprintf("  %d) %s", i+1, c.Text)))
	}
}

func (e *Engine) cmdDialogueChoice(st *player.State, n int) {
	sid := st.Session
	if st.Dialogue == nil {
		e.push(outbound.Text(sid, "Huh?"))
		e.prompt(sid)
		return
	}
	npc, ok := e.mobs.Get(st.Dialogue.NpcMobID)
	if !ok || npc.RoomID != st.RoomID {
		st.Dialogue = nil
		e.push(outbound.Text(sid, "They are gone."))
		e.prompt(sid)
		return
	}
	tree, ok := e.world.Dialogue(st.Dialogue.TreeID)
	if !ok {
		e.log.Error("dialogue tree vanished", zap.String("dialogue", st.Dialogue.TreeID))
		st.Dialogue = nil
		e.push(outbound.Error(sid, "Internal error."))
		e.prompt(sid)
		return
	}
	choice, err := st.Dialogue.Pick(tree, n)
	if err != nil {
		e.push(outbound.Error(sid, "That isn't one of the choices."))
		e.prompt(sid)
		return
	}
	for i := range choice.Actions {
		e.applyDialogueAction(st, npc, &choice.Actions[i])
	}
	if !st.Dialogue.Advance(choice) {
		st.Dialogue = nil
		e.push(outbound.Text(sid, "The conversation ends."))
		e.prompt(sid)
		return
	}
	e.renderDialogueNode(st, tree, npc)
	e.prompt(sid)
}

func (e *Engine) applyDialogueAction(st *player.State, npc *mob.State, act *dialogue.Action) {
	sid := st.Session
	switch act.Kind {
	case dialogue.ActionGiveItem:
		tmpl, ok := e.world.ItemTemplate(act.Item)
		if !ok {
			e.log.Warn("dialogue grants unknown item",
				zap.String("dialogue", st.Dialogue.TreeID), zap.String("item", act.Item))
			return
		}
		e.items.MintToInventory(tmpl, sid)
		e.push(outbound.Text(sid, fmt.Sprintf("The %s gives you %s.", npc.Name(), indef(tmpl.DisplayName))))
	case dialogue.ActionGrantXp:
		if act.Xp > 0 {
			e.awardXp(sid, act.Xp)
		}
	case dialogue.ActionSetRecall:
		if _, ok := e.world.Room(act.Room); !ok {
			e.log.Warn("dialogue sets unknown recall room",
				zap.String("dialogue", st.Dialogue.TreeID), zap.Stringer("room", act.Room))
			return
		}
		st.RecallRoomID = act.Room
		st.Dirty = true
		e.push(outbound.Text(sid, "Your recall point shifts."))
	case dialogue.ActionRunScript:
		ran := false
		if e.scripts != nil {
			ran = e.scripts.RunRoomHook(st.RoomID.Zone(), act.Script, string(st.RoomID), "")
		}
		if !ran {
			e.push(outbound.Error(sid, "Nothing happens."))
		}
	default:
		e.log.Warn("dialogue action of unknown kind", zap.String("kind", string(act.Kind)))
	}
}
