package engine

import (
	"fmt"

	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

func (e *Engine) cmdGroup(st *player.State, sub, target string) {
	switch sub {
	case "invite":
		e.groupInvite(st, target)
	case "accept":
		e.groupAccept(st)
	case "leave":
		e.groupLeave(st)
	case "kick":
		e.groupKick(st, target)
	case "list":
		e.groupList(st)
	}
}

func (e *Engine) groupInvite(st *player.State, target string) {
	sid := st.Session
	other, ok := e.players.ByName(target)
	if !ok {
		e.push(outbound.Error(sid, "No such player."))
		e.prompt(sid)
		return
	}
	if other.Session == sid {
		e.push(outbound.Error(sid, "You can't invite yourself."))
		e.prompt(sid)
		return
	}
	if err := e.groups.Invite(sid, other.Session); err != nil {
		e.push(outbound.Error(sid, "You are already grouped together."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Text(sid, fmt.Sprintf("You invite %s to your group.", other.Name)))
	e.notify(other.Session, outbound.Info(other.Session,
		fmt.Sprintf("%s invites you to their group. Type 'group accept' to join.", st.Name)))
	e.prompt(sid)
}

func (e *Engine) groupAccept(st *player.State) {
	sid := st.Session
	inviter, ok := e.groups.Pending(sid)
	if !ok {
		e.push(outbound.Error(sid, "You have no pending group invitation."))
		e.prompt(sid)
		return
	}
	g, err := e.groups.Accept(sid)
	if err != nil {
		e.push(outbound.Error(sid, "Leave your current group first."))
		e.prompt(sid)
		return
	}
	for _, member := range g.Members {
		e.setGroupID(member, g.ID)
	}
	inviterName := "your new companion"
	if ist, ok := e.players.Get(inviter); ok {
		inviterName = ist.Name
	}
	for _, member := range g.Members {
		if member == sid {
			continue
		}
		e.notify(member, outbound.Info(member, fmt.Sprintf("%s joins the group.", st.Name)))
	}
	e.push(outbound.Text(sid, fmt.Sprintf("You join %s's group.", inviterName)))
	e.prompt(sid)
}

func (e *Engine) groupLeave(st *player.State) {
	sid := st.Session
	remaining, disbanded, err := e.groups.Leave(sid)
	if err != nil {
		e.push(outbound.Error(sid, "You are not in a group."))
		e.prompt(sid)
		return
	}
	st.GroupID = 0
	e.push(outbound.Text(sid, "You leave the group."))
	for _, member := range remaining {
		if disbanded {
			e.setGroupID(member, 0)
			e.notify(member, outbound.Info(member, "Your group disbands."))
			continue
		}
		e.notify(member, outbound.Info(member, fmt.Sprintf("%s leaves the group.", st.Name)))
	}
	e.prompt(sid)
}

func (e *Engine) groupKick(st *player.State, target string) {
	sid := st.Session
	g, ok := e.groups.GroupOf(sid)
	if !ok {
		e.push(outbound.Error(sid, "You are not in a group."))
		e.prompt(sid)
		return
	}
	if g.Members[0] != sid {
		e.push(outbound.Error(sid, "Only the group leader can kick."))
		e.prompt(sid)
		return
	}
	other, ok := e.players.ByName(target)
	if !ok {
		e.push(outbound.Error(sid, "No such player."))
		e.prompt(sid)
		return
	}
	if other.Session == sid {
		e.push(outbound.Error(sid, "Use 'group leave' to leave your own group."))
		e.prompt(sid)
		return
	}
	og, ok := e.groups.GroupOf(other.Session)
	if !ok || og.ID != g.ID {
		e.push(outbound.Error(sid, "They are not in your group."))
		e.prompt(sid)
		return
	}
	remaining, disbanded, err := e.groups.Leave(other.Session)
	if err != nil {
		e.push(outbound.Error(sid, "They are not in your group."))
		e.prompt(sid)
		return
	}
	other.GroupID = 0
	e.notify(other.Session, outbound.Info(other.Session, "You are kicked from the group."))
	e.push(outbound.Text(sid, fmt.Sprintf("You kick %s from the group.", other.Name)))
	for _, member := range remaining {
		if disbanded {
			e.setGroupID(member, 0)
			if member != sid {
				e.notify(member, outbound.Info(member, "Your group disbands."))
			}
			continue
		}
		if member != sid {
			e.notify(member, outbound.Info(member, fmt.Sprintf("%s is kicked from the group.", other.Name)))
		}
	}
	if disbanded {
		st.GroupID = 0
	}
	e.prompt(sid)
}

func (e *Engine) groupList(st *player.State) {
	sid := st.Session
	g, ok := e.groups.GroupOf(sid)
	if !ok {
		e.push(outbound.Text(sid, "You are not in a group."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Info(sid, "Your group:"))
	for i, member := range g.Members {
		name := "(linkdead)"
		if mst, ok := e.players.Get(member); ok {
			name = mst.Name
		}
		if i == 0 {
			name += " (leader)"
		}
		e.push(outbound.Text(sid, "  "+name))
	}
	e.prompt(sid)
}

func (e *Engine) cmdGtell(st *player.State, text string) {
	sid := st.Session
	g, ok := e.groups.GroupOf(sid)
	if !ok {
		e.push(outbound.Error(sid, "You are not in a group."))
		e.prompt(sid)
		return
	}
	line := fmt.Sprintf("[Group] %s: %s", st.Name, text)
	for _, member := range g.Members {
		if member == sid {
			e.push(outbound.Info(sid, line))
			continue
		}
		e.notify(member, outbound.Info(member, line))
	}
	e.prompt(sid)
}
