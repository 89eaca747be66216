package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/game/command"
	"github.com/driftwood-mud/engine/internal/game/guild"
	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

func (e *Engine) cmdGuild(st *player.State, cmd command.Command) {
	switch cmd.Sub {
	case "create":
		e.guildCreate(st, cmd.Text)
	case "invite":
		e.guildInvite(st, cmd.Target)
	case "accept":
		e.guildAccept(st)
	case "leave":
		e.guildLeave(st)
	case "kick":
		e.guildKick(st, cmd.Target)
	case "promote":
		e.guildRank(st, cmd.Target, guild.Promote)
	case "demote":
		e.guildRank(st, cmd.Target, guild.Demote)
	case "motd":
		e.guildMotd(st, cmd.Text)
	case "disband":
		e.guildDisband(st)
	case "roster":
		e.guildRoster(st)
	case "info":
		e.guildInfo(st)
	}
}

func (e *Engine) guildCreate(st *player.State, name string) {
	sid := st.Session
	if st.GuildID != "" {
		e.push(outbound.Error(sid, "You are already in a guild."))
		e.prompt(sid)
		return
	}
	name = strings.TrimSpace(name)
	slug, err := guild.ValidateName(name)
	if err != nil {
		e.push(outbound.Error(sid, capitalize(err.Error())+"."))
		e.prompt(sid)
		return
	}
	g := &guild.Guild{
		Slug:        slug,
		Name:        name,
		Tag:         guild.DeriveTag(name),
		CreatedAtMs: e.now(),
	}
	e.offload(func(ctx context.Context) error {
		return e.guildRepo.Create(ctx, g)
	}, func(err error) {
		cur, ok := e.players.Get(sid)
		if !ok || cur != st {
			return
		}
		switch {
		case errors.Is(err, guild.ErrDuplicate):
			e.push(outbound.Error(sid, "A guild by that name already exists."))
		case err != nil:
			e.log.Error("creating guild", zap.String("slug", slug), zap.Error(err))
			e.push(outbound.Error(sid, "Internal error."))
		case st.GuildID != "":
			// Joined another guild while the create was in flight.
			e.log.Warn("guild created by a player who joined another",
				zap.String("slug", slug), zap.String("player", st.Name))
			e.push(outbound.Error(sid, "You are already in a guild."))
		default:
			st.GuildID = slug
			st.GuildRank = ids.RankLeader
			st.Dirty = true
			e.push(outbound.Text(sid, fmt.Sprintf("You found %s [%s].", g.Name, g.Tag)))
		}
		e.prompt(sid)
	})
}

func (e *Engine) guildInvite(st *player.State, target string) {
	sid := st.Session
	if st.GuildID == "" {
		e.push(outbound.Error(sid, "You are not in a guild."))
		e.prompt(sid)
		return
	}
	if !guild.CanInvite(st.GuildRank) {
		e.push(outbound.Error(sid, "Only officers may invite."))
		e.prompt(sid)
		return
	}
	other, ok := e.players.ByName(target)
	if !ok {
		e.push(outbound.Error(sid, "No such player."))
		e.prompt(sid)
		return
	}
	if other.GuildID != "" {
		e.push(outbound.Error(sid, "They are already in a guild."))
		e.prompt(sid)
		return
	}
	e.invites.Offer(other.Session, st.GuildID, st.Name)
	e.push(outbound.Text(sid, fmt.Sprintf("You invite %s to your guild.", other.Name)))
	e.notify(other.Session, outbound.Info(other.Session,
		fmt.Sprintf("%s invites you to join their guild. Type 'guild accept' to join.", st.Name)))
	e.prompt(sid)
}

func (e *Engine) guildAccept(st *player.State) {
	sid := st.Session
	inv, ok := e.invites.Take(sid)
	if !ok {
		e.push(outbound.Error(sid, "You have no pending guild invitation."))
		e.prompt(sid)
		return
	}
	if st.GuildID != "" {
		e.push(outbound.Error(sid, "You are already in a guild."))
		e.prompt(sid)
		return
	}
	st.GuildID = inv.Slug
	st.GuildRank = ids.RankMember
	st.Dirty = true
	for _, other := range e.players.All() {
		if other.Session != sid && other.GuildID == inv.Slug {
			e.notify(other.Session, outbound.Info(other.Session,
				fmt.Sprintf("%s joins the guild.", st.Name)))
		}
	}
	var joined string
	e.offload(func(ctx context.Context) error {
		g, err := e.guildRepo.FindBySlug(ctx, inv.Slug)
		if err != nil {
			return err
		}
		joined = fmt.Sprintf("You join %s [%s].", g.Name, g.Tag)
		return nil
	}, func(err error) {
		if err != nil {
			e.log.Warn("loading joined guild", zap.String("slug", inv.Slug), zap.Error(err))
			joined = "You join the guild."
		}
		e.push(outbound.Text(sid, joined))
		e.prompt(sid)
	})
}

func (e *Engine) guildLeave(st *player.State) {
	sid := st.Session
	if st.GuildID == "" {
		e.push(outbound.Error(sid, "You are not in a guild."))
		e.prompt(sid)
		return
	}
	if st.GuildRank == ids.RankLeader {
		e.push(outbound.Error(sid, "Leaders must disband their guild."))
		e.prompt(sid)
		return
	}
	slug := st.GuildID
	st.GuildID = ""
	st.GuildRank = ""
	st.Dirty = true
	e.push(outbound.Text(sid, "You leave the guild."))
	for _, other := range e.players.All() {
		if other.Session != sid && other.GuildID == slug {
			e.notify(other.Session, outbound.Info(other.Session,
				fmt.Sprintf("%s leaves the guild.", st.Name)))
		}
	}
	e.prompt(sid)
}

func (e *Engine) guildKick(st *player.State, target string) {
	sid := st.Session
	if st.GuildID == "" {
		e.push(outbound.Error(sid, "You are not in a guild."))
		e.prompt(sid)
		return
	}
	other, ok := e.players.ByName(target)
	if !ok {
		e.push(outbound.Error(sid, "No such player."))
		e.prompt(sid)
		return
	}
	if other.GuildID != st.GuildID {
		e.push(outbound.Error(sid, "They are not in your guild."))
		e.prompt(sid)
		return
	}
	if !guild.CanKick(st.GuildRank, other.GuildRank) {
		e.push(outbound.Error(sid, "You cannot kick them."))
		e.prompt(sid)
		return
	}
	slug := st.GuildID
	other.GuildID = ""
	other.GuildRank = ""
	other.Dirty = true
	e.notify(other.Session, outbound.Info(other.Session, "You have been removed from the guild."))
	e.push(outbound.Text(sid, fmt.Sprintf("You remove %s from the guild.", other.Name)))
	for _, member := range e.players.All() {
		if member.Session != sid && member.GuildID == slug {
			e.notify(member.Session, outbound.Info(member.Session,
				fmt.Sprintf("%s was removed from the guild.", other.Name)))
		}
	}
	e.prompt(sid)
}

// guildRank applies a leader-only rank transition to an online guildmate.
func (e *Engine) guildRank(st *player.State, target string, shift func(ids.GuildRank) (ids.GuildRank, error)) {
	sid := st.Session
	if st.GuildID == "" {
		e.push(outbound.Error(sid, "You are not in a guild."))
		e.prompt(sid)
		return
	}
	if st.GuildRank != ids.RankLeader {
		e.push(outbound.Error(sid, "Only the guild leader may do that."))
		e.prompt(sid)
		return
	}
	other, ok := e.players.ByName(target)
	if !ok {
		e.push(outbound.Error(sid, "No such player."))
		e.prompt(sid)
		return
	}
	if other.GuildID != st.GuildID {
		e.push(outbound.Error(sid, "They are not in your guild."))
		e.prompt(sid)
		return
	}
	rank, err := shift(other.GuildRank)
	if err != nil {
		e.push(outbound.Error(sid, capitalize(err.Error())+"."))
		e.prompt(sid)
		return
	}
	other.GuildRank = rank
	other.Dirty = true
	e.notify(other.Session, outbound.Info(other.Session,
		fmt.Sprintf("You are now a guild %s.", rank)))
	e.push(outbound.Text(sid, fmt.Sprintf("%s is now a guild %s.", other.Name, rank)))
	e.prompt(sid)
}

func (e *Engine) guildMotd(st *player.State, text string) {
	sid := st.Session
	if st.GuildID == "" {
		e.push(outbound.Error(sid, "You are not in a guild."))
		e.prompt(sid)
		return
	}
	if strings.TrimSpace(text) == "" {
		e.showGuildMotd(sid, st.GuildID)
		e.prompt(sid)
		return
	}
	if !guild.CanInvite(st.GuildRank) {
		e.push(outbound.Error(sid, "Only officers may set the motd."))
		e.prompt(sid)
		return
	}
	if err := guild.ValidateMotd(text); err != nil {
		e.push(outbound.Error(sid, capitalize(err.Error())+"."))
		e.prompt(sid)
		return
	}
	slug := st.GuildID
	e.offload(func(ctx context.Context) error {
		g, err := e.guildRepo.FindBySlug(ctx, slug)
		if err != nil {
			return err
		}
		g.Motd = text
		return e.guildRepo.Save(ctx, g)
	}, func(err error) {
		if err != nil {
			e.log.Error("updating guild motd", zap.String("slug", slug), zap.Error(err))
			e.push(outbound.Error(sid, "Internal error."))
		} else {
			e.push(outbound.Text(sid, "Guild motd updated."))
		}
		e.prompt(sid)
	})
}

func (e *Engine) guildDisband(st *player.State) {
	sid := st.Session
	if st.GuildID == "" {
		e.push(outbound.Error(sid, "You are not in a guild."))
		e.prompt(sid)
		return
	}
	if st.GuildRank != ids.RankLeader {
		e.push(outbound.Error(sid, "Only the guild leader may disband."))
		e.prompt(sid)
		return
	}
	slug := st.GuildID
	e.offload(func(ctx context.Context) error {
		return e.guildRepo.Delete(ctx, slug)
	}, func(err error) {
		if err != nil {
			e.log.Error("disbanding guild", zap.String("slug", slug), zap.Error(err))
			e.push(outbound.Error(sid, "Internal error."))
			e.prompt(sid)
			return
		}
		for _, member := range e.players.All() {
			if member.GuildID != slug {
				continue
			}
			member.GuildID = ""
			member.GuildRank = ""
			member.Dirty = true
			if member.Session != sid {
				e.notify(member.Session, outbound.Info(member.Session,
					"Your guild has been disbanded."))
			}
		}
		e.push(outbound.Text(sid, "You disband the guild."))
		e.prompt(sid)
	})
}

func (e *Engine) guildRoster(st *player.State) {
	sid := st.Session
	if st.GuildID == "" {
		e.push(outbound.Error(sid, "You are not in a guild."))
		e.prompt(sid)
		return
	}
	slug := st.GuildID
	var (
		g       *guild.Guild
		members []guild.Member
	)
	e.offload(func(ctx context.Context) error {
		var err error
		if g, err = e.guildRepo.FindBySlug(ctx, slug); err != nil {
			return err
		}
		members, err = e.guildRepo.Roster(ctx, slug)
		return err
	}, func(err error) {
		if err != nil {
			e.log.Error("loading guild roster", zap.String("slug", slug), zap.Error(err))
			e.push(outbound.Error(sid, "Internal error."))
			e.prompt(sid)
			return
		}
		e.push(outbound.Info(sid, fmt.Sprintf("Members of %s [%s]:", g.Name, g.Tag)))
		for _, m := range members {
			e.push(outbound.Text(sid, fmt.Sprintf("  %-16s %s", m.Name, m.Rank)))
		}
		e.prompt(sid)
	})
}

func (e *Engine) guildInfo(st *player.State) {
	sid := st.Session
	if st.GuildID == "" {
		e.push(outbound.Error(sid, "You are not in a guild."))
		e.prompt(sid)
		return
	}
	slug := st.GuildID
	var (
		g     *guild.Guild
		count int
	)
	e.offload(func(ctx context.Context) error {
		var err error
		if g, err = e.guildRepo.FindBySlug(ctx, slug); err != nil {
			return err
		}
		members, err := e.guildRepo.Roster(ctx, slug)
		if err != nil {
			return err
		}
		count = len(members)
		return nil
	}, func(err error) {
		if err != nil {
			e.log.Error("loading guild info", zap.String("slug", slug), zap.Error(err))
			e.push(outbound.Error(sid, "Internal error."))
			e.prompt(sid)
			return
		}
		e.push(outbound.Info(sid, fmt.Sprintf("%s [%s]", g.Name, g.Tag)))
		e.push(outbound.Text(sid, fmt.Sprintf("  Founded: %s", time.UnixMilli(g.CreatedAtMs).UTC().Format("2006-01-02"))))
		e.push(outbound.Text(sid, fmt.Sprintf("  Members: %d", count)))
		if g.Motd != "" {
			e.push(outbound.Text(sid, "  Motd: "+g.Motd))
		}
		e.prompt(sid)
	})
}

func (e *Engine) cmdGchat(st *player.State, text string) {
	sid := st.Session
	if st.GuildID == "" {
		e.push(outbound.Error(sid, "You are not in a guild."))
		e.prompt(sid)
		return
	}
	line := fmt.Sprintf("[Guild] %s: %s", st.Name, text)
	for _, member := range e.players.All() {
		if member.GuildID != st.GuildID {
			continue
		}
		if member.Session == sid {
			e.push(outbound.Info(sid, line))
			continue
		}
		e.notify(member.Session, outbound.Info(member.Session, line))
	}
	e.prompt(sid)
}
