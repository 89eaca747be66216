package engine

import (
	"fmt"

	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/mob"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

// spawnMob places a mob and arms its wander timer.
func (e *Engine) spawnMob(tmpl *mob.Template, room ids.RoomID) *mob.State {
	st := e.mobs.Spawn(tmpl, room)
	if tmpl.WanderMs > 0 {
		e.sched.ScheduleIn(tmpl.WanderMs, func() { e.wanderTick(st.ID) })
	}
	return st
}

// wanderTick moves a restless mob one room along a random exit. Wandering
// never crosses zone borders and never passes a closed door; a mob under
// attack stands its ground. The timer retires when the mob does.
func (e *Engine) wanderTick(mid ids.MobID) {
	mobSt, ok := e.mobs.Get(mid)
	if !ok {
		return
	}
	rearm := func() {
		e.sched.ScheduleIn(mobSt.Tmpl.WanderMs, func() { e.wanderTick(mid) })
	}

	if len(e.fights.Attackers(mid)) > 0 {
		rearm()
		return
	}
	room, ok := e.world.Room(mobSt.RoomID)
	if !ok {
		rearm()
		return
	}

	type way struct {
		dir ids.Direction
		to  ids.RoomID
	}
	var ways []way
	for _, dir := range room.ExitDirections() {
		target, _ := room.Exit(dir)
		if target.Zone() != mobSt.RoomID.Zone() {
			continue
		}
		if _, served := e.world.Room(target); !served {
			continue
		}
		if door, present := e.features.DoorAt(room.ID, dir); present && !door.Passable() {
			continue
		}
		ways = append(ways, way{dir, target})
	}
	if len(ways) == 0 {
		rearm()
		return
	}

	pick := ways[e.dice.Intn(len(ways))]
	from := mobSt.RoomID
	if _, err := e.mobs.MoveTo(mid, pick.to); err != nil {
		rearm()
		return
	}
	name := mobSt.Name()
	e.broadcastRoom(from, fmt.Sprintf("The %s wanders %s.", name, pick.dir))
	e.broadcastRoom(pick.to, capitalize(indef(name))+" wanders in.")

	if mobSt.Tmpl.Aggressive {
		e.aggroRoom(mobSt)
	}
	rearm()
}

// checkAggro lets an aggressive mob pounce on a player who just arrived.
// Only one mob engages; a player already fighting is left alone.
func (e *Engine) checkAggro(sid ids.SessionID, st *player.State) {
	if e.fights.InCombat(sid) {
		return
	}
	for _, m := range e.mobs.MobsInRoom(st.RoomID) {
		if !m.Tmpl.Aggressive {
			continue
		}
		e.mobAttack(m, st)
		return
	}
}

// aggroRoom lets an aggressive mob pick a fight with the first idle player
// in its room.
func (e *Engine) aggroRoom(mobSt *mob.State) {
	for _, p := range e.players.PlayersInRoom(mobSt.RoomID) {
		if e.fights.InCombat(p.Session) {
			continue
		}
		e.mobAttack(mobSt, p)
		return
	}
}

// mobAttack starts mutual combat between an aggressive mob and a player.
func (e *Engine) mobAttack(mobSt *mob.State, st *player.State) {
	e.engage(st, mobSt)
	e.deliver(outbound.Text(st.Session, fmt.Sprintf("The %s attacks you!", mobSt.Name())))
	e.broadcastRoom(st.RoomID, fmt.Sprintf("The %s attacks %s!", mobSt.Name(), st.Name), st.Session)
	e.prompt(st.Session)
}

// scheduleRespawn re-seeds a dead mob at its home room after its template's
// respawn delay.
func (e *Engine) scheduleRespawn(tmpl *mob.Template, home ids.RoomID) {
	e.sched.ScheduleIn(tmpl.RespawnMs, func() {
		if _, ok := e.world.Room(home); !ok {
			return
		}
		st := e.spawnMob(tmpl, home)
		e.broadcastRoom(home, capitalize(indef(st.Name()))+" arrives.")
		if tmpl.Aggressive {
			e.aggroRoom(st)
		}
	})
}
