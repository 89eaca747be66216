package item

import (
	"fmt"
	"strings"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

// LocationKind discriminates where an instance currently resides.
type LocationKind uint8

// Instance locations.
const (
	LocRoom LocationKind = iota
	LocInventory
	LocEquipment
	LocContainer
)

// Location pins an instance to exactly one holder.
type Location struct {
	Kind      LocationKind
	Room      ids.RoomID
	Session   ids.SessionID
	Slot      ids.Slot
	Container ids.FeatureID
}

// Registry owns every live item instance and its location. It is accessed
// only from the engine goroutine, so it takes no locks.
type Registry struct {
	rooms       map[ids.RoomID][]*Instance
	inventories map[ids.SessionID][]*Instance
	equipment   map[ids.SessionID]map[ids.Slot]*Instance
	containers  map[ids.FeatureID][]*Instance
	where       map[ids.ItemID]Location
}

// NewRegistry creates an empty item Registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:       make(map[ids.RoomID][]*Instance),
		inventories: make(map[ids.SessionID][]*Instance),
		equipment:   make(map[ids.SessionID]map[ids.Slot]*Instance),
		containers:  make(map[ids.FeatureID][]*Instance),
		where:       make(map[ids.ItemID]Location),
	}
}

// MintToRoom creates a fresh instance of tmpl on a room floor.
func (r *Registry) MintToRoom(tmpl *Template, room ids.RoomID) *Instance {
	inst := NewInstance(tmpl)
	r.rooms[room] = append(r.rooms[room], inst)
	r.where[inst.ID] = Location{Kind: LocRoom, Room: room}
	return inst
}

// MintToInventory creates a fresh instance of tmpl in a player's inventory.
func (r *Registry) MintToInventory(tmpl *Template, sid ids.SessionID) *Instance {
	inst := NewInstance(tmpl)
	r.inventories[sid] = append(r.inventories[sid], inst)
	r.where[inst.ID] = Location{Kind: LocInventory, Session: sid}
	return inst
}

// MintToContainer creates a fresh instance of tmpl inside a container.
func (r *Registry) MintToContainer(tmpl *Template, fid ids.FeatureID) *Instance {
	inst := NewInstance(tmpl)
	r.containers[fid] = append(r.containers[fid], inst)
	r.where[inst.ID] = Location{Kind: LocContainer, Container: fid}
	return inst
}

// Adopt places an externally restored instance into a player's inventory,
// preserving its identity. Used when loading a record or receiving a handoff.
//
// Postcondition: Returns an error if the instance ID is already tracked.
func (r *Registry) Adopt(inst *Instance, sid ids.SessionID) error {
	if _, exists := r.where[inst.ID]; exists {
		return fmt.Errorf("item %s is already tracked", inst.ID)
	}
	r.inventories[sid] = append(r.inventories[sid], inst)
	r.where[inst.ID] = Location{Kind: LocInventory, Session: sid}
	return nil
}

// Where reports an instance's current location.
func (r *Registry) Where(id ids.ItemID) (Location, bool) {
	loc, ok := r.where[id]
	return loc, ok
}

// Count returns the number of live instances.
func (r *Registry) Count() int {
	return len(r.where)
}

// RoomItems returns a room's floor items in drop order.
func (r *Registry) RoomItems(room ids.RoomID) []*Instance {
	return r.rooms[room]
}

// Inventory returns a player's carried items in acquisition order.
func (r *Registry) Inventory(sid ids.SessionID) []*Instance {
	return r.inventories[sid]
}

// Equipment returns a player's equipped items keyed by slot.
func (r *Registry) Equipment(sid ids.SessionID) map[ids.Slot]*Instance {
	return r.equipment[sid]
}

// EquippedAt returns the instance in a player's slot, if any.
func (r *Registry) EquippedAt(sid ids.SessionID, slot ids.Slot) (*Instance, bool) {
	inst, ok := r.equipment[sid][slot]
	return inst, ok
}

// ContainerItems returns a container's contents in insertion order.
func (r *Registry) ContainerItems(fid ids.FeatureID) []*Instance {
	return r.containers[fid]
}

// ArmorSum returns the total armor across a player's equipped items.
func (r *Registry) ArmorSum(sid ids.SessionID) int {
	total := 0
	for _, inst := range r.equipment[sid] {
		total += inst.Tmpl.Armor
	}
	return total
}

// WeaponDamage returns the damage bonus of the equipped weapon, if any.
func (r *Registry) WeaponDamage(sid ids.SessionID) int {
	if inst, ok := r.equipment[sid][ids.SlotWeapon]; ok {
		return inst.Tmpl.Damage
	}
	return 0
}

// FindInRoom returns the first floor item whose keyword matches kw,
// case-insensitively, in drop order.
func (r *Registry) FindInRoom(room ids.RoomID, kw string) (*Instance, bool) {
	return firstMatch(r.rooms[room], kw)
}

// FindInInventory returns the first carried item matching kw.
func (r *Registry) FindInInventory(sid ids.SessionID, kw string) (*Instance, bool) {
	return firstMatch(r.inventories[sid], kw)
}

// FindWearable returns the inventory item to equip for kw: matches with a
// non-empty slot win, ties broken by inventory order; with no wearable match
// it falls back to the first match of any kind.
func (r *Registry) FindWearable(sid ids.SessionID, kw string) (*Instance, bool) {
	kw = strings.ToLower(kw)
	var fallback *Instance
	for _, inst := range r.inventories[sid] {
		if inst.Keyword() != kw {
			continue
		}
		if inst.Tmpl.Wearable() {
			return inst, true
		}
		if fallback == nil {
			fallback = inst
		}
	}
	if fallback != nil {
		return fallback, true
	}
	return nil, false
}

// FindInContainer returns the first contained item matching kw.
func (r *Registry) FindInContainer(fid ids.FeatureID, kw string) (*Instance, bool) {
	return firstMatch(r.containers[fid], kw)
}

// FindEquipped returns the equipped item matching kw, if any.
func (r *Registry) FindEquipped(sid ids.SessionID, kw string) (*Instance, bool) {
	kw = strings.ToLower(kw)
	for _, slot := range ids.Slots {
		if inst, ok := r.equipment[sid][slot]; ok && inst.Keyword() == kw {
			return inst, true
		}
	}
	return nil, false
}

func firstMatch(list []*Instance, kw string) (*Instance, bool) {
	kw = strings.ToLower(kw)
	for _, inst := range list {
		if inst.Keyword() == kw {
			return inst, true
		}
	}
	return nil, false
}

// MoveToRoom relocates an instance onto a room floor.
func (r *Registry) MoveToRoom(inst *Instance, room ids.RoomID) error {
	if err := r.detach(inst); err != nil {
		return err
	}
	r.rooms[room] = append(r.rooms[room], inst)
	r.where[inst.ID] = Location{Kind: LocRoom, Room: room}
	return nil
}

// MoveToInventory relocates an instance into a player's inventory.
func (r *Registry) MoveToInventory(inst *Instance, sid ids.SessionID) error {
	if err := r.detach(inst); err != nil {
		return err
	}
	r.inventories[sid] = append(r.inventories[sid], inst)
	r.where[inst.ID] = Location{Kind: LocInventory, Session: sid}
	return nil
}

// MoveToContainer relocates an instance into a container.
func (r *Registry) MoveToContainer(inst *Instance, fid ids.FeatureID) error {
	if err := r.detach(inst); err != nil {
		return err
	}
	r.containers[fid] = append(r.containers[fid], inst)
	r.where[inst.ID] = Location{Kind: LocContainer, Container: fid}
	return nil
}

// Equip moves an inventory instance into its template's slot, returning any
// displaced instance after moving it back to the inventory.
//
// Precondition: inst must currently be in sid's inventory and be wearable.
// Postcondition: inst occupies the slot; a displaced prior occupant, if any,
// is back in the inventory and returned.
func (r *Registry) Equip(sid ids.SessionID, inst *Instance) (*Instance, error) {
	loc, ok := r.where[inst.ID]
	if !ok || loc.Kind != LocInventory || loc.Session != sid {
		return nil, fmt.Errorf("item %s is not in session %d's inventory", inst.ID, sid)
	}
	if !inst.Tmpl.Wearable() {
		return nil, fmt.Errorf("item %q cannot be worn", inst.Keyword())
	}

	slot := inst.Tmpl.Slot
	displaced, hadPrior := r.equipment[sid][slot]
	if hadPrior {
		r.removeFromSlot(sid, slot)
		r.inventories[sid] = append(r.inventories[sid], displaced)
		r.where[displaced.ID] = Location{Kind: LocInventory, Session: sid}
	}

	r.removeFromInventory(sid, inst)
	if r.equipment[sid] == nil {
		r.equipment[sid] = make(map[ids.Slot]*Instance)
	}
	r.equipment[sid][slot] = inst
	r.where[inst.ID] = Location{Kind: LocEquipment, Session: sid, Slot: slot}

	if hadPrior {
		return displaced, nil
	}
	return nil, nil
}

// Unequip moves the instance in a player's slot back to the inventory.
//
// Postcondition: Returns the unequipped instance, or an error if the slot
// is empty.
func (r *Registry) Unequip(sid ids.SessionID, slot ids.Slot) (*Instance, error) {
	inst, ok := r.equipment[sid][slot]
	if !ok {
		return nil, fmt.Errorf("nothing equipped at %q", slot)
	}
	r.removeFromSlot(sid, slot)
	r.inventories[sid] = append(r.inventories[sid], inst)
	r.where[inst.ID] = Location{Kind: LocInventory, Session: sid}
	return inst, nil
}

// Destroy removes an instance from the world entirely.
func (r *Registry) Destroy(inst *Instance) error {
	if err := r.detach(inst); err != nil {
		return err
	}
	delete(r.where, inst.ID)
	return nil
}

// ConsumeCharge decrements an instance's charges.
//
// Postcondition: Returns the remaining charge count; 0 means the caller
// should destroy the instance.
func (r *Registry) ConsumeCharge(inst *Instance) int {
	if inst.Charges > 0 {
		inst.Charges--
	}
	return inst.Charges
}

// RemoveSession withdraws every instance a departing player holds, returning
// inventory and equipment snapshots for persistence. Equipment snapshots
// carry their slot so a later restore can re-equip.
func (r *Registry) RemoveSession(sid ids.SessionID) (inventory, equipped []Snapshot) {
	for _, inst := range r.inventories[sid] {
		inventory = append(inventory, SnapshotOf(inst))
		delete(r.where, inst.ID)
	}
	delete(r.inventories, sid)

	for _, slot := range ids.Slots {
		if inst, ok := r.equipment[sid][slot]; ok {
			snap := SnapshotOf(inst)
			snap.Slot = slot
			equipped = append(equipped, snap)
			delete(r.where, inst.ID)
		}
	}
	delete(r.equipment, sid)
	return inventory, equipped
}

// RekeySession transfers a session's inventory and equipment to a new
// session id. Used when a login takes over a live connection.
func (r *Registry) RekeySession(from, to ids.SessionID) {
	if carried, ok := r.inventories[from]; ok {
		delete(r.inventories, from)
		r.inventories[to] = carried
		for _, inst := range carried {
			r.where[inst.ID] = Location{Kind: LocInventory, Session: to}
		}
	}
	if worn, ok := r.equipment[from]; ok {
		delete(r.equipment, from)
		r.equipment[to] = worn
		for slot, inst := range worn {
			r.where[inst.ID] = Location{Kind: LocEquipment, Session: to, Slot: slot}
		}
	}
}

// detach removes an instance from whichever holder currently has it.
func (r *Registry) detach(inst *Instance) error {
	loc, ok := r.where[inst.ID]
	if !ok {
		return fmt.Errorf("item %s is not tracked", inst.ID)
	}
	switch loc.Kind {
	case LocRoom:
		r.rooms[loc.Room] = removeInstance(r.rooms[loc.Room], inst)
		if len(r.rooms[loc.Room]) == 0 {
			delete(r.rooms, loc.Room)
		}
	case LocInventory:
		r.removeFromInventory(loc.Session, inst)
	case LocEquipment:
		r.removeFromSlot(loc.Session, loc.Slot)
	case LocContainer:
		r.containers[loc.Container] = removeInstance(r.containers[loc.Container], inst)
		if len(r.containers[loc.Container]) == 0 {
			delete(r.containers, loc.Container)
		}
	}
	return nil
}

func (r *Registry) removeFromInventory(sid ids.SessionID, inst *Instance) {
	r.inventories[sid] = removeInstance(r.inventories[sid], inst)
	if len(r.inventories[sid]) == 0 {
		delete(r.inventories, sid)
	}
}

func (r *Registry) removeFromSlot(sid ids.SessionID, slot ids.Slot) {
	delete(r.equipment[sid], slot)
	if len(r.equipment[sid]) == 0 {
		delete(r.equipment, sid)
	}
}

func removeInstance(list []*Instance, inst *Instance) []*Instance {
	for i, candidate := range list {
		if candidate.ID == inst.ID {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
