package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/game/combat"
	"github.com/driftwood-mud/engine/internal/game/group"
	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/mob"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

func (e *Engine) cmdKill(st *player.State, kw string) {
	sid := st.Session
	mobSt, ok := e.mobs.FindInRoom(st.RoomID, kw)
	if !ok {
		e.push(outbound.Error(sid, "You don't see that here."))
		e.prompt(sid)
		return
	}
	if cs, fighting := e.fights.Get(sid); fighting && cs.Target == mobSt.ID {
		e.push(outbound.Info(sid, "You are already fighting it!"))
		e.prompt(sid)
		return
	}
	e.engage(st, mobSt)
	e.push(outbound.Text(sid, fmt.Sprintf("You attack the %s!", mobSt.Name())))
	e.broadcastRoom(st.RoomID, fmt.Sprintf("%s attacks the %s!", st.Name, mobSt.Name()), sid)
	e.prompt(sid)
}

// engage binds a player to a target, starting their swing chain on a fresh
// engagement and the mob's counterattack chain if it is not already running.
// Retargeting mid-fight keeps the existing swing cadence.
func (e *Engine) engage(st *player.State, mobSt *mob.State) {
	sid := st.Session
	fresh := !e.fights.InCombat(sid)
	cs := e.fights.Engage(sid, mobSt.ID, e.defense(sid), e.now(), e.cfg.Combat.SwingIntervalMs)
	st.Dialogue = nil
	if fresh {
		seq := e.nextSwingSeq(sid)
		e.sched.ScheduleAt(cs.NextSwingDueAtMs, func() { e.playerSwing(sid, seq) })
	}
	e.ensureMobChain(mobSt.ID)
}

// nextSwingSeq invalidates any scheduled swing for sid and returns the seq
// a replacement chain must carry.
func (e *Engine) nextSwingSeq(sid ids.SessionID) uint64 {
	e.swingSeq[sid]++
	return e.swingSeq[sid]
}

// stopFighting disengages a player and invalidates their swing chain.
func (e *Engine) stopFighting(sid ids.SessionID) {
	if _, ok := e.fights.Disengage(sid); ok {
		e.swingSeq[sid]++
	}
}

// playerSwing is one beat of a player's attack chain. It validates the
// engagement, applies damage, and reschedules itself.
func (e *Engine) playerSwing(sid ids.SessionID, seq uint64) {
	if e.swingSeq[sid] != seq {
		return
	}
	st, ok := e.players.Get(sid)
	if !ok {
		return
	}
	cs, ok := e.fights.Get(sid)
	if !ok {
		return
	}
	mobSt, ok := e.mobs.Get(cs.Target)
	if !ok || mobSt.RoomID != st.RoomID {
		e.stopFighting(sid)
		e.notify(sid, outbound.Info(sid, "Your foe is gone."))
		return
	}

	dmg := combat.PlayerSwingDamage(e.dice, e.cfg.Combat, e.attackBonus(sid), mobSt.Tmpl.Armor)
	mobSt.Hp -= dmg
	e.fights.AddThreat(cs.Target, sid, dmg)
	e.push(outbound.Text(sid, fmt.Sprintf("You hit the %s for %d damage.", mobSt.Name(), dmg)))
	e.broadcastRoom(st.RoomID, fmt.Sprintf("%s hits the %s.", st.Name, mobSt.Name()), sid)

	if mobSt.Hp <= 0 {
		e.mobDie(mobSt, sid)
		return
	}

	if due, ok := e.fights.AdvanceSwing(sid, e.cfg.Combat.SwingIntervalMs); ok {
		e.sched.ScheduleAt(due, func() { e.playerSwing(sid, seq) })
	}
	e.prompt(sid)
}

// ensureMobChain starts a mob's counterattack chain unless one is running.
func (e *Engine) ensureMobChain(mid ids.MobID) {
	if _, running := e.mobChains[mid]; running {
		return
	}
	e.chainSeq++
	seq := e.chainSeq
	e.mobChains[mid] = seq
	e.sched.ScheduleIn(e.cfg.MobSwingIntervalMs, func() { e.mobSwing(mid, seq) })
}

// mobSwing is one beat of a mob's counterattack chain: it strikes the top
// threat attacker and reschedules. The chain retires itself when the mob
// dies or runs out of attackers.
func (e *Engine) mobSwing(mid ids.MobID, seq uint64) {
	if cur, ok := e.mobChains[mid]; !ok || cur != seq {
		return
	}
	mobSt, ok := e.mobs.Get(mid)
	if !ok {
		delete(e.mobChains, mid)
		return
	}
	sid, ok := e.fights.TopAttacker(mid)
	if !ok {
		delete(e.mobChains, mid)
		return
	}

	reschedule := func() {
		e.sched.ScheduleIn(e.cfg.MobSwingIntervalMs, func() { e.mobSwing(mid, seq) })
	}

	st, ok := e.players.Get(sid)
	if !ok || st.RoomID != mobSt.RoomID {
		// Stale engagement: the player slipped away without fleeing.
		e.stopFighting(sid)
		reschedule()
		return
	}
	cs, ok := e.fights.Get(sid)
	if !ok {
		reschedule()
		return
	}

	dmg := combat.MobSwingDamage(e.dice, e.cfg.Combat, mobSt.Tmpl.Damage, cs.Defense)
	st.Hp -= dmg
	st.Dirty = true
	e.deliver(outbound.Text(sid, fmt.Sprintf("The %s hits you for %d damage.", mobSt.Name(), dmg)))
	e.broadcastRoom(st.RoomID, fmt.Sprintf("The %s hits %s.", mobSt.Name(), st.Name), sid)

	if st.Hp <= 0 {
		e.playerDefeated(st, mobSt)
	} else {
		e.prompt(sid)
	}
	reschedule()
}

// playerDefeated handles a player dropping to zero: they are spared at 1 hp
// and yanked to their recall point.
func (e *Engine) playerDefeated(st *player.State, mobSt *mob.State) {
	sid := st.Session
	st.Hp = 1
	st.Dirty = true
	e.stopFighting(sid)

	e.log.Info("player defeated",
		zap.String("name", st.Name),
		zap.String("mob", mobSt.Name()),
		zap.Stringer("room", st.RoomID),
	)

	dest := st.RecallRoomID
	if _, ok := e.world.Room(dest); !ok {
		dest = e.world.StartRoom
	}
	e.deliver(outbound.Text(sid, fmt.Sprintf("The %s strikes you down!", mobSt.Name())))
	e.deliver(outbound.Info(sid, "A divine force snatches you from death's door."))
	e.relocate(st, dest,
		fmt.Sprintf("%s collapses and vanishes in a flash of light.", st.Name),
		fmt.Sprintf("%s appears in a flash of light.", st.Name),
	)
}

// mobDie pays out a kill: death broadcast, drops, gold, split XP, chain
// teardown, and a respawn timer if the template wants one.
func (e *Engine) mobDie(mobSt *mob.State, killer ids.SessionID) {
	room := mobSt.RoomID
	name := mobSt.Name()
	tmpl := mobSt.Tmpl

	e.push(outbound.Text(killer, fmt.Sprintf("You have slain the %s!", name)))
	e.broadcastRoom(room, fmt.Sprintf("The %s dies!", name), killer)

	for _, kw := range tmpl.Drops {
		dropTmpl, ok := e.world.ItemTemplate(kw)
		if !ok {
			e.log.Warn("mob drop references unknown item", zap.String("mob", tmpl.Keyword), zap.String("item", kw))
			continue
		}
		inst := e.items.MintToRoom(dropTmpl, room)
		e.broadcastRoom(room, fmt.Sprintf("The %s drops %s.", name, indef(inst.DisplayName())))
	}

	if killerSt, ok := e.players.Get(killer); ok && tmpl.GoldReward > 0 {
		killerSt.Gold += tmpl.GoldReward
		killerSt.Dirty = true
		e.push(outbound.Text(killer, fmt.Sprintf("You loot %d gold.", tmpl.GoldReward)))
	}

	e.splitKillXp(killer, tmpl.XpReward)

	attackers := e.fights.DisengageMob(mobSt.ID)
	delete(e.mobChains, mobSt.ID)
	e.mobs.Remove(mobSt.ID)
	for _, a := range attackers {
		e.swingSeq[a]++
		e.prompt(a)
	}

	if tmpl.RespawnMs > 0 {
		e.scheduleRespawn(tmpl, mobSt.HomeRoom)
	}
}

// splitKillXp divides a kill's XP across the killer's group members in the
// killer's zone; the killer collects the integer remainder.
func (e *Engine) splitKillXp(killer ids.SessionID, total int) {
	if total <= 0 {
		return
	}
	killerSt, ok := e.players.Get(killer)
	if !ok {
		return
	}
	zone := killerSt.RoomID.Zone()

	var eligible []ids.SessionID
	for _, member := range e.groups.Members(killer) {
		st, ok := e.players.Get(member)
		if !ok || st.RoomID.Zone() != zone {
			continue
		}
		eligible = append(eligible, member)
	}
	if len(eligible) == 0 {
		eligible = []ids.SessionID{killer}
	}

	share, remainder := group.SplitXp(total, len(eligible))
	for _, member := range eligible {
		amount := share
		if member == killer {
			amount += remainder
		}
		if amount <= 0 {
			continue
		}
		e.awardXp(member, amount)
	}
}

// awardXp grants experience and announces any level gained.
func (e *Engine) awardXp(sid ids.SessionID, amount int) {
	st, ok := e.players.Get(sid)
	if !ok {
		return
	}
	gained := e.players.GrantXp(sid, amount)
	e.deliver(outbound.Text(sid, fmt.Sprintf("You gain %d experience.", amount)))
	if gained > 0 {
		e.deliver(outbound.Info(sid, fmt.Sprintf("You are now level %d!", st.Level)))
	}
}

func (e *Engine) cmdFlee(st *player.State) {
	sid := st.Session
	if !e.fights.InCombat(sid) {
		e.push(outbound.Error(sid, "You aren't fighting anything."))
		e.prompt(sid)
		return
	}
	if !combat.FleeSucceeds(e.dice, e.cfg.Combat) {
		e.push(outbound.Text(sid, "You fail to flee."))
		e.prompt(sid)
		return
	}
	e.stopFighting(sid)

	room, ok := e.world.Room(st.RoomID)
	if !ok {
		e.push(outbound.Text(sid, "You flee, but there is nowhere to go!"))
		e.prompt(sid)
		return
	}
	type way struct {
		dir ids.Direction
		to  ids.RoomID
	}
	var ways []way
	for _, dir := range room.ExitDirections() {
		target, _ := room.Exit(dir)
		if _, served := e.world.Room(target); !served {
			continue
		}
		if door, present := e.features.DoorAt(room.ID, dir); present && !door.Passable() {
			continue
		}
		ways = append(ways, way{dir, target})
	}
	if len(ways) == 0 {
		e.push(outbound.Text(sid, "You flee, but there is nowhere to go!"))
		e.prompt(sid)
		return
	}
	pick := ways[e.dice.Intn(len(ways))]
	e.push(outbound.Text(sid, fmt.Sprintf("You flee %s!", pick.dir)))
	e.relocate(st, pick.to,
		fmt.Sprintf("%s flees %s!", st.Name, pick.dir),
		fmt.Sprintf("%s arrives in a panic.", st.Name),
	)
}
