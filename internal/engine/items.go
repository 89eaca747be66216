package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/game/feature"
	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/item"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

func (e *Engine) cmdGet(st *player.State, kw, container string) {
	if container != "" {
		e.getFromContainer(st, kw, container)
		return
	}
	sid := st.Session
	inst, ok := e.items.FindInRoom(st.RoomID, kw)
	if !ok {
		e.push(outbound.Error(sid, "You don't see that here."))
		e.prompt(sid)
		return
	}
	if err := e.items.MoveToInventory(inst, sid); err != nil {
		e.log.Error("moving item to inventory", zap.String("item", string(inst.ID)), zap.Error(err))
		e.push(outbound.Error(sid, "Internal error."))
		e.prompt(sid)
		return
	}
	name := inst.DisplayName()
	e.push(outbound.Text(sid, fmt.Sprintf("You pick up the %s.", name)))
	e.broadcastRoom(st.RoomID, fmt.Sprintf("%s picks up %s.", st.Name, indef(name)), sid)
	e.prompt(sid)
}

func (e *Engine) getFromContainer(st *player.State, kw, container string) {
	sid := st.Session
	f, ok := e.features.Find(st.RoomID, container)
	if !ok {
		e.push(outbound.Error(sid, "You don't see that here."))
		e.prompt(sid)
		return
	}
	if f.Def.Kind != feature.KindContainer {
		e.push(outbound.Error(sid, "You can't get things from that."))
		e.prompt(sid)
		return
	}
	if !f.Holds() {
		e.push(outbound.Error(sid, fmt.Sprintf("The %s is closed.", f.Def.DisplayName)))
		e.prompt(sid)
		return
	}
	inst, ok := e.items.FindInContainer(f.ID, kw)
	if !ok {
		e.push(outbound.Error(sid, fmt.Sprintf("There is no %s in the %s.", kw, f.Def.DisplayName)))
		e.prompt(sid)
		return
	}
	if err := e.items.MoveToInventory(inst, sid); err != nil {
		e.log.Error("moving item from container", zap.String("item", string(inst.ID)), zap.Error(err))
		e.push(outbound.Error(sid, "Internal error."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Text(sid, fmt.Sprintf("You take the %s from the %s.", inst.DisplayName(), f.Def.DisplayName)))
	e.broadcastRoom(st.RoomID, fmt.Sprintf("%s takes %s from the %s.", st.Name, indef(inst.DisplayName()), f.Def.DisplayName), sid)
	e.prompt(sid)
}

func (e *Engine) cmdDrop(st *player.State, kw string) {
	sid := st.Session
	inst, ok := e.items.FindInInventory(sid, kw)
	if !ok {
		e.push(outbound.Error(sid, "You aren't carrying that."))
		e.prompt(sid)
		return
	}
	if err := e.items.MoveToRoom(inst, st.RoomID); err != nil {
		e.log.Error("dropping item", zap.String("item", string(inst.ID)), zap.Error(err))
		e.push(outbound.Error(sid, "Internal error."))
		e.prompt(sid)
		return
	}
	name := inst.DisplayName()
	e.push(outbound.Text(sid, fmt.Sprintf("You drop the %s.", name)))
	e.broadcastRoom(st.RoomID, fmt.Sprintf("%s drops %s.", st.Name, indef(name)), sid)
	e.prompt(sid)
}

func (e *Engine) cmdGive(st *player.State, kw, target string) {
	sid := st.Session
	other, ok := e.players.ByName(player.NormalizeName(target))
	if !ok || other.RoomID != st.RoomID {
		e.push(outbound.Error(sid, "They aren't here."))
		e.prompt(sid)
		return
	}
	if other.Session == sid {
		e.push(outbound.Error(sid, "You already have it."))
		e.prompt(sid)
		return
	}

	inst, carried := e.items.FindInInventory(sid, kw)
	if !carried {
		worn, ok := e.items.FindEquipped(sid, kw)
		if !ok {
			e.push(outbound.Error(sid, "You aren't carrying that."))
			e.prompt(sid)
			return
		}
		inst = worn
		e.unequipWithStats(st, inst.Tmpl.Slot)
	}

	if err := e.items.MoveToInventory(inst, other.Session); err != nil {
		e.log.Error("giving item", zap.String("item", string(inst.ID)), zap.Error(err))
		e.push(outbound.Error(sid, "Internal error."))
		e.prompt(sid)
		return
	}
	name := inst.DisplayName()
	e.push(outbound.Text(sid, fmt.Sprintf("You give the %s to %s.", name, other.Name)))
	e.notify(other.Session, outbound.Text(other.Session, fmt.Sprintf("%s gives you %s.", st.Name, indef(name))))
	e.broadcastRoom(st.RoomID, fmt.Sprintf("%s gives %s to %s.", st.Name, indef(name), other.Name), sid, other.Session)
	e.prompt(sid)
}

func (e *Engine) cmdWear(st *player.State, kw string) {
	sid := st.Session
	inst, ok := e.items.FindWearable(sid, kw)
	if !ok {
		e.push(outbound.Error(sid, "You aren't carrying that."))
		e.prompt(sid)
		return
	}
	if !inst.Tmpl.Wearable() {
		e.push(outbound.Error(sid, "You can't wear that."))
		e.prompt(sid)
		return
	}
	displaced, err := e.items.Equip(sid, inst)
	if err != nil {
		e.push(outbound.Error(sid, "You can't wear that."))
		e.prompt(sid)
		return
	}

	delta := inst.Tmpl.Armor
	if displaced != nil {
		delta -= displaced.Tmpl.Armor
		e.push(outbound.Text(sid, fmt.Sprintf("You remove the %s first.", displaced.DisplayName())))
	}
	if delta != 0 {
		st.ApplyArmorDelta(delta)
	}
	e.fights.RefreshDefense(sid, e.defense(sid))

	if inst.Tmpl.Slot == ids.SlotWeapon {
		e.push(outbound.Text(sid, fmt.Sprintf("You wield the %s.", inst.DisplayName())))
	} else {
		e.push(outbound.Text(sid, fmt.Sprintf("You wear the %s.", inst.DisplayName())))
	}
	e.prompt(sid)
}

func (e *Engine) cmdRemoveWorn(st *player.State, slotName string) {
	sid := st.Session
	slot, ok := ids.ParseSlot(slotName)
	if !ok {
		// Let "remove cap" work too: match by keyword against equipment.
		inst, found := e.items.FindEquipped(sid, slotName)
		if !found {
			e.push(outbound.Error(sid, "Nothing is equipped there."))
			e.prompt(sid)
			return
		}
		slot = inst.Tmpl.Slot
	}
	inst := e.unequipWithStats(st, slot)
	if inst == nil {
		e.push(outbound.Error(sid, "Nothing is equipped there."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Text(sid, fmt.Sprintf("You remove the %s.", inst.DisplayName())))
	e.prompt(sid)
}

// unequipWithStats removes whatever occupies slot, unwinding its armor
// contribution and refreshing combat defense. Returns nil when empty.
func (e *Engine) unequipWithStats(st *player.State, slot ids.Slot) *item.Instance {
	inst, err := e.items.Unequip(st.Session, slot)
	if err != nil {
		return nil
	}
	if inst.Tmpl.Armor != 0 {
		st.ApplyArmorDelta(-inst.Tmpl.Armor)
	}
	e.fights.RefreshDefense(st.Session, e.defense(st.Session))
	return inst
}

func (e *Engine) cmdUse(st *player.State, kw string) {
	sid := st.Session
	inst, ok := e.items.FindInInventory(sid, kw)
	equipped := false
	if !ok {
		inst, ok = e.items.FindEquipped(sid, kw)
		if !ok {
			e.push(outbound.Error(sid, "You aren't carrying that."))
			e.prompt(sid)
			return
		}
		equipped = true
	}

	if inst.Tmpl.OnUse.HealHp <= 0 {
		e.push(outbound.Text(sid, "Nothing happens."))
		e.prompt(sid)
		return
	}

	healed := inst.Tmpl.OnUse.HealHp
	if st.Hp+healed > st.MaxHp {
		healed = st.MaxHp - st.Hp
	}
	st.Hp += healed
	st.Dirty = true
	if healed > 0 {
		e.push(outbound.Text(sid, fmt.Sprintf("You use the %s and recover %d hp.", inst.DisplayName(), healed)))
	} else {
		e.push(outbound.Text(sid, fmt.Sprintf("You use the %s, but feel no different.", inst.DisplayName())))
	}

	if inst.Tmpl.Consumable {
		if remaining := e.items.ConsumeCharge(inst); remaining <= 0 {
			if equipped {
				e.unequipWithStats(st, inst.Tmpl.Slot)
			}
			if err := e.items.Destroy(inst); err != nil {
				e.log.Error("destroying spent item", zap.String("item", string(inst.ID)), zap.Error(err))
			}
			e.push(outbound.Text(sid, fmt.Sprintf("The %s crumbles to dust.", inst.DisplayName())))
		}
	}
	e.prompt(sid)
}
