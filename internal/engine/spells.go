package engine

import (
	"fmt"
	"strings"

	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

// activeEffect is one timed buff on a player. The seq field identifies the
// scheduled expiry that owns it; refreshes and rekeys bump the seq so stale
// expiries fall through harmlessly.
type activeEffect struct {
	name        string
	armorDelta  int
	damageDelta int
	expiresAtMs int64
	seq         uint64
}

// spellDef is one castable spell. Casting is mana-less; a spell either heals
// directly or applies a timed effect.
type spellDef struct {
	name       string
	summary    string
	heal       int
	armor      int
	damage     int
	durationMs int64
	applied    string
	received   string
	faded      string
}

var spellbook = []spellDef{
	{
		name:    "heal",
		summary: "Mend 10 hit points on yourself or an ally.",
		heal:    10,
	},
	{
		name:       "bless",
		summary:    "+2 damage for 60 seconds.",
		damage:     2,
		durationMs: 60000,
		applied:    "A faint radiance settles over you.",
		received:   "%s blesses you. A faint radiance settles over you.",
		faded:      "Your blessing fades.",
	},
	{
		name:       "shield",
		summary:    "+2 armor for 60 seconds.",
		armor:      2,
		durationMs: 60000,
		applied:    "A shimmering barrier surrounds you.",
		received:   "%s shields you. A shimmering barrier surrounds you.",
		faded:      "Your shield dissolves.",
	},
}

func findSpell(name string) (*spellDef, bool) {
	name = strings.ToLower(name)
	for i := range spellbook {
		if spellbook[i].name == name {
			return &spellbook[i], true
		}
	}
	return nil, false
}

func (e *Engine) cmdCast(st *player.State, keyword, target string) {
	sid := st.Session
	def, ok := findSpell(keyword)
	if !ok {
		e.push(outbound.Error(sid, "You don't know that spell."))
		e.prompt(sid)
		return
	}
	recipient := st
	if target != "" {
		other, ok := e.players.ByName(target)
		if !ok || other.RoomID != st.RoomID {
			e.push(outbound.Error(sid, "They aren't here."))
			e.prompt(sid)
			return
		}
		recipient = other
	}

	if def.heal > 0 {
		e.castHeal(st, recipient, def)
		return
	}
	e.applyEffect(recipient, def)
	if recipient == st {
		e.push(outbound.Text(sid, def.applied))
	} else {
		e.push(outbound.Text(sid, fmt.Sprintf("You cast %s on %s.", def.name, recipient.Name)))
		e.notify(recipient.Session, outbound.Info(recipient.Session, fmt.Sprintf(def.received, st.Name)))
	}
	e.prompt(sid)
}

func (e *Engine) castHeal(st, recipient *player.State, def *spellDef) {
	sid := st.Session
	healed := def.heal
	if room := recipient.MaxHp - recipient.Hp; healed > room {
		healed = room
	}
	if healed <= 0 {
		if recipient == st {
			e.push(outbound.Text(sid, "You are already at full health."))
		} else {
			e.push(outbound.Text(sid, fmt.Sprintf("%s is already at full health.", recipient.Name)))
		}
		e.prompt(sid)
		return
	}
	recipient.Hp += healed
	recipient.Dirty = true
	if recipient == st {
		e.push(outbound.Text(sid, fmt.Sprintf("Warmth spreads through you, healing %d damage.", healed)))
	} else {
		e.push(outbound.Text(sid, fmt.Sprintf("You heal %s for %d damage.", recipient.Name, healed)))
		e.notify(recipient.Session, outbound.Info(recipient.Session,
			fmt.Sprintf("%s heals you for %d damage.", st.Name, healed)))
	}
	e.prompt(sid)
}

// applyEffect adds or refreshes a timed effect and schedules its expiry.
func (e *Engine) applyEffect(recipient *player.State, def *spellDef) {
	sid := recipient.Session
	e.effectSeq++
	seq := e.effectSeq
	expires := e.now() + def.durationMs

	var eff *activeEffect
	for _, have := range e.effects[sid] {
		if have.name == def.name {
			eff = have
			break
		}
	}
	if eff == nil {
		eff = &activeEffect{name: def.name, armorDelta: def.armor, damageDelta: def.damage}
		e.effects[sid] = append(e.effects[sid], eff)
	}
	eff.expiresAtMs = expires
	eff.seq = seq

	name := def.name
	e.sched.ScheduleIn(def.durationMs, func() { e.expireEffect(sid, name, seq) })
	if eff.armorDelta != 0 {
		e.fights.RefreshDefense(sid, e.defense(sid))
	}
}

// expireEffect removes a timed effect when its owning expiry fires. A seq
// mismatch means the effect was refreshed or rekeyed since scheduling.
func (e *Engine) expireEffect(sid ids.SessionID, name string, seq uint64) {
	effs := e.effects[sid]
	idx := -1
	for i, eff := range effs {
		if eff.name == name && eff.seq == seq {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	eff := effs[idx]
	e.effects[sid] = append(effs[:idx], effs[idx+1:]...)
	if len(e.effects[sid]) == 0 {
		delete(e.effects, sid)
	}
	if _, online := e.players.Get(sid); online {
		if def, ok := findSpell(name); ok && def.faded != "" {
			e.notify(sid, outbound.Text(sid, def.faded))
		}
	}
	if eff.armorDelta != 0 {
		e.fights.RefreshDefense(sid, e.defense(sid))
	}
}

// effectArmor sums active armor bonuses for a session.
func (e *Engine) effectArmor(sid ids.SessionID) int {
	total := 0
	for _, eff := range e.effects[sid] {
		total += eff.armorDelta
	}
	return total
}

// effectDamage sums active damage bonuses for a session.
func (e *Engine) effectDamage(sid ids.SessionID) int {
	total := 0
	for _, eff := range e.effects[sid] {
		total += eff.damageDelta
	}
	return total
}

// rekeyEffects moves a player's effects to a new session after a takeover
// and reschedules their expiries under the new key.
func (e *Engine) rekeyEffects(from, to ids.SessionID) {
	effs := e.effects[from]
	delete(e.effects, from)
	if len(effs) == 0 {
		return
	}
	e.effects[to] = effs
	now := e.now()
	for _, eff := range effs {
		e.effectSeq++
		eff.seq = e.effectSeq
		remaining := eff.expiresAtMs - now
		if remaining < 0 {
			remaining = 0
		}
		seq := eff.seq
		name := eff.name
		e.sched.ScheduleIn(remaining, func() { e.expireEffect(to, name, seq) })
	}
}

func (e *Engine) cmdSpells(st *player.State) {
	sid := st.Session
	e.push(outbound.Info(sid, "You know the following spells:"))
	for i := range spellbook {
		e.push(outbound.Text(sid, fmt.Sprintf("  %-8s %s", spellbook[i].name, spellbook[i].summary)))
	}
	e.prompt(sid)
}

func (e *Engine) cmdEffects(st *player.State) {
	sid := st.Session
	effs := e.effects[sid]
	if len(effs) == 0 {
		e.push(outbound.Text(sid, "You are not affected by anything."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Info(sid, "Active effects:"))
	now := e.now()
	for _, eff := range effs {
		e.push(outbound.Text(sid, fmt.Sprintf("  %-8s %d seconds remaining",
			eff.name, ceilSeconds(eff.expiresAtMs-now))))
	}
	e.prompt(sid)
}

func (e *Engine) cmdDispel(st *player.State, name string) {
	sid := st.Session
	name = strings.ToLower(name)
	effs := e.effects[sid]
	idx := -1
	for i, eff := range effs {
		if eff.name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.push(outbound.Error(sid, "You are not affected by that."))
		e.prompt(sid)
		return
	}
	eff := effs[idx]
	e.effects[sid] = append(effs[:idx], effs[idx+1:]...)
	if len(e.effects[sid]) == 0 {
		delete(e.effects, sid)
	}
	e.push(outbound.Text(sid, fmt.Sprintf("You dispel the %s effect.", eff.name)))
	if eff.armorDelta != 0 {
		e.fights.RefreshDefense(sid, e.defense(sid))
	}
	e.prompt(sid)
}
