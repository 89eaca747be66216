package engine

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/driftwood-mud/engine/internal/game/command"
	"github.com/driftwood-mud/engine/internal/game/feature"
	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
	"github.com/driftwood-mud/engine/internal/game/world"
)

// helpCategories fixes the order of the help listing.
var helpCategories = []string{
	command.CategoryMovement,
	command.CategoryUI,
	command.CategoryCommunication,
	command.CategoryItems,
	command.CategoryShop,
	command.CategoryCombat,
	command.CategoryWorld,
	command.CategorySocial,
	command.CategoryMail,
	command.CategoryAdmin,
}

// renderPrompt expands a session's prompt format, or falls back to "> ".
func (e *Engine) renderPrompt(sid ids.SessionID) string {
	s, ok := e.sessions[sid]
	if !ok || s.promptFmt == "" {
		return "> "
	}
	st, ok := e.players.Get(sid)
	if !ok {
		return "> "
	}
	return expandPrompt(s.promptFmt, st) + " "
}

// expandPrompt substitutes %h hp, %H max hp, %g gold, %l level, %x total xp,
// and %% a literal percent sign.
func expandPrompt(format string, st *player.State) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 >= len(format) {
			b.WriteByte(format[i])
			continue
		}
		i++
		switch format[i] {
		case 'h':
			fmt.Fprintf(&b, "%d", st.Hp)
		case 'H':
			fmt.Fprintf(&b, "%d", st.MaxHp)
		case 'g':
			fmt.Fprintf(&b, "%d", st.Gold)
		case 'l':
			fmt.Fprintf(&b, "%d", st.Level)
		case 'x':
			fmt.Fprintf(&b, "%d", st.XpTotal)
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(format[i])
		}
	}
	return b.String()
}

// look renders the player's room: title, description, exits, fixtures,
// floor items, mobs, and other players.
func (e *Engine) look(sid ids.SessionID, st *player.State) {
	room, ok := e.world.Room(st.RoomID)
	if !ok {
		e.push(outbound.Error(sid, "You are adrift in the void."))
		return
	}
	e.push(outbound.Info(sid, room.Title))
	e.push(outbound.Text(sid, room.Description))
	e.push(outbound.Text(sid, exitsLine(room)))
	for _, f := range e.features.InRoom(room.ID) {
		e.push(outbound.Text(sid, fixtureLine(f)))
	}
	for _, inst := range e.items.RoomItems(room.ID) {
		e.push(outbound.Text(sid, capitalize(indef(inst.DisplayName()))+" lies here."))
	}
	for _, m := range e.mobs.MobsInRoom(room.ID) {
		e.push(outbound.Text(sid, capitalize(indef(m.Name()))+" is here."))
	}
	for _, other := range e.players.PlayersInRoom(room.ID) {
		if other.Session == sid {
			continue
		}
		e.push(outbound.Text(sid, other.Name+" is here."))
	}
}

func exitsLine(room *world.Room) string {
	dirs := room.ExitDirections()
	if len(dirs) == 0 {
		return "Exits: none."
	}
	names := make([]string, len(dirs))
	for i, d := range dirs {
		names[i] = string(d)
	}
	return "Exits: " + strings.Join(names, ", ") + "."
}

func fixtureLine(f *feature.State) string {
	name := f.Def.DisplayName
	switch f.Def.Kind {
	case feature.KindDoor:
		state := strings.ToLower(f.StateString())
		if f.Def.Direction != "" {
			return fmt.Sprintf("The %s to the %s is %s.", name, f.Def.Direction, state)
		}
		return fmt.Sprintf("The %s is %s.", name, state)
	case feature.KindContainer:
		return fmt.Sprintf("%s sits here (%s).", capitalize(indef(name)), strings.ToLower(f.StateString()))
	case feature.KindLever:
		return fmt.Sprintf("%s juts from the wall.", capitalize(indef(name)))
	default:
		return fmt.Sprintf("%s hangs here.", capitalize(indef(name)))
	}
}

func (e *Engine) cmdLook(st *player.State) {
	st.Dialogue = nil
	e.look(st.Session, st)
	e.prompt(st.Session)
}

func (e *Engine) cmdLookDir(st *player.State, dir ids.Direction) {
	sid := st.Session
	room, ok := e.world.Room(st.RoomID)
	if !ok {
		e.push(outbound.Error(sid, "There is nothing that way."))
		e.prompt(sid)
		return
	}
	target, ok := room.Exit(dir)
	if !ok {
		e.push(outbound.Error(sid, "There is nothing that way."))
		e.prompt(sid)
		return
	}
	if door, ok := e.features.DoorAt(room.ID, dir); ok && !door.Passable() {
		e.push(outbound.Text(sid, fmt.Sprintf("The %s blocks your view.", door.Def.DisplayName)))
		e.prompt(sid)
		return
	}
	troom, ok := e.world.Room(target)
	if !ok {
		e.push(outbound.Text(sid, "You can't make it out from here."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Text(sid, troom.Title))
	e.prompt(sid)
}

func (e *Engine) cmdExits(st *player.State) {
	if room, ok := e.world.Room(st.RoomID); ok {
		e.push(outbound.Text(st.Session, exitsLine(room)))
	}
	e.prompt(st.Session)
}

func (e *Engine) cmdWho(st *player.State) {
	sid := st.Session
	all := e.players.All()
	e.push(outbound.Info(sid, "Adventurers abroad:"))
	for _, p := range all {
		line := "  " + p.Name
		if _, ok := e.groups.GroupOf(p.Session); ok {
			line = "  [G] " + p.Name
		}
		e.push(outbound.Text(sid, line))
	}
	if e.remoteWho != nil {
		for _, line := range e.remoteWho() {
			e.push(outbound.Text(sid, "  "+line))
		}
	}
	e.push(outbound.Text(sid, fmt.Sprintf("%d online.", len(all))))
	e.prompt(sid)
}

func (e *Engine) cmdScore(st *player.State) {
	sid := st.Session
	name := st.Name
	if st.IsStaff {
		name += " (staff)"
	}
	e.push(outbound.Info(sid, name))
	if st.Level >= player.MaxLevel {
		e.push(outbound.Text(sid, fmt.Sprintf("Level: %d   XP: %d (max)", st.Level, st.XpTotal)))
	} else {
		next := player.TotalXpForLevel(st.Level + 1)
		e.push(outbound.Text(sid, fmt.Sprintf("Level: %d   XP: %d/%d", st.Level, st.XpTotal, next)))
	}
	e.push(outbound.Text(sid, fmt.Sprintf("HP: %d/%d   Gold: %d", st.Hp, st.MaxHp, st.Gold)))
	if room, ok := e.world.Room(st.RoomID); ok {
		e.push(outbound.Text(sid, "Room: "+room.Title))
	}
	if st.GuildID != "" {
		e.push(outbound.Text(sid, fmt.Sprintf("Guild: %s (%s)", st.GuildID, strings.ToLower(string(st.GuildRank)))))
	}
	if recall := st.RecallReadyAtMs - e.now(); recall > 0 {
		e.push(outbound.Text(sid, fmt.Sprintf("Recall ready in %d seconds.", ceilSeconds(recall))))
	}
	e.prompt(sid)
}

func (e *Engine) cmdInventory(st *player.State) {
	sid := st.Session
	insts := e.items.Inventory(sid)
	if len(insts) == 0 {
		e.push(outbound.Text(sid, "You are carrying nothing."))
	} else {
		e.push(outbound.Text(sid, "You are carrying:"))
		for _, inst := range insts {
			line := "  " + indef(inst.DisplayName())
			if inst.Tmpl.Consumable {
				line += fmt.Sprintf(" (%d charges)", inst.Charges)
			}
			e.push(outbound.Text(sid, line))
		}
	}
	e.push(outbound.Text(sid, fmt.Sprintf("You have %d gold.", st.Gold)))
	e.prompt(sid)
}

func (e *Engine) cmdEquipment(st *player.State) {
	sid := st.Session
	any := false
	for _, slot := range ids.Slots {
		inst, ok := e.items.EquippedAt(sid, slot)
		if !ok {
			continue
		}
		if !any {
			e.push(outbound.Text(sid, "You are wearing:"))
			any = true
		}
		e.push(outbound.Text(sid, fmt.Sprintf("  %-7s %s", string(slot)+":", indef(inst.DisplayName()))))
	}
	if !any {
		e.push(outbound.Text(sid, "You are wearing nothing."))
	}
	e.prompt(sid)
}

func (e *Engine) cmdHelp(st *player.State, kw string) {
	sid := st.Session
	if kw == "" {
		byCat := e.specs.ByCategory()
		for _, cat := range helpCategories {
			specs := byCat[cat]
			var names []string
			for _, spec := range specs {
				if spec.Staff && !st.IsStaff {
					continue
				}
				names = append(names, spec.Name)
			}
			if len(names) == 0 {
				continue
			}
			e.push(outbound.Text(sid, strings.ToUpper(cat)+": "+strings.Join(names, ", ")))
		}
		e.push(outbound.Text(sid, "Type 'help <command>' for details."))
		e.prompt(sid)
		return
	}

	spec, ok := e.specs.Resolve(kw)
	if !ok || (spec.Staff && !st.IsStaff) {
		e.push(outbound.Error(sid, "No help for that."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Text(sid, "Usage: "+spec.Usage))
	e.push(outbound.Text(sid, spec.Help))
	if len(spec.Aliases) > 0 {
		e.push(outbound.Text(sid, "Aliases: "+strings.Join(spec.Aliases, ", ")))
	}
	e.prompt(sid)
}

func (e *Engine) cmdPrompt(s *session, format string) {
	s.promptFmt = format
	e.push(outbound.Info(s.sid, "Prompt set."))
	e.prompt(s.sid)
}

func (e *Engine) cmdQuit(s *session, st *player.State) {
	e.logoutSession(s.sid, true)
	e.push(outbound.Info(s.sid, "Farewell."))
	e.push(outbound.Close(s.sid))
	s.phase = phaseGone
	s.goneNotice = ""
}

// capitalize upper-cases the first rune for sentence starts.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// indef prefixes a display name with an indefinite article.
func indef(name string) string {
	if name == "" {
		return name
	}
	switch name[0] {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return "an " + name
	}
	return "a " + name
}

// ceilSeconds converts a millisecond remainder to whole seconds, rounding
// up so "1 second remaining" never shows as zero.
func ceilSeconds(ms int64) int64 {
	return (ms + 999) / 1000
}
