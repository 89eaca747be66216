// Package item defines item templates, live item instances, and the registry
// that tracks where every instance resides. An instance is always in exactly
// one place: a room floor, a player's inventory, an equipment slot, or a
// world-feature container.
package item

import (
	"github.com/google/uuid"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

// UseEffects describes what happens when an item is used.
type UseEffects struct {
	// HealHp restores this many hit points, capped at the player's max.
	HealHp int
}

// Template is the immutable definition an instance is minted from.
type Template struct {
	// Keyword is the lowercase match key players type (e.g. "sword").
	Keyword string
	// DisplayName is shown in room and inventory listings.
	DisplayName string
	// Slot is the equipment slot, or "" for items that cannot be worn.
	Slot ids.Slot
	// Armor contributes to max HP and defense while equipped.
	Armor int
	// Damage contributes to weapon damage while equipped.
	Damage int
	// Consumable items lose a charge per use and vanish at zero.
	Consumable bool
	// Charges is the initial charge count for consumables.
	Charges int
	// BasePrice is the economy base for buy/sell pricing. 0 = unsellable.
	BasePrice int
	// OnUse lists effects applied by the use command.
	OnUse UseEffects
}

// Wearable reports whether the template occupies an equipment slot.
func (t *Template) Wearable() bool {
	return t.Slot != ""
}

// Instance is one live item. The template is shared and immutable; only the
// remaining charge count mutates over an instance's life.
type Instance struct {
	// ID is the instance identity; it survives persistence and handoff.
	ID ids.ItemID
	// Tmpl is the shared template this instance was minted from.
	Tmpl *Template
	// Charges is the remaining use count for consumables.
	Charges int
}

// NewInstance mints an instance of tmpl with a fresh UUID identity.
//
// Precondition: tmpl must be non-nil.
func NewInstance(tmpl *Template) *Instance {
	return &Instance{
		ID:      ids.ItemID(uuid.NewString()),
		Tmpl:    tmpl,
		Charges: tmpl.Charges,
	}
}

// Keyword returns the template match key.
func (i *Instance) Keyword() string {
	return i.Tmpl.Keyword
}

// DisplayName returns the template display name.
func (i *Instance) DisplayName() string {
	return i.Tmpl.DisplayName
}

// Snapshot is the persistable identity of an instance: enough to rebuild it
// against a template table without losing its ID or charge state.
type Snapshot struct {
	// ID is the instance identity.
	ID ids.ItemID `json:"id"`
	// Keyword names the template used to rebuild the instance.
	Keyword string `json:"keyword"`
	// Charges is the remaining use count at snapshot time.
	Charges int `json:"charges"`
	// Slot is set for equipped instances so restore re-equips them.
	Slot ids.Slot `json:"slot,omitempty"`
}

// SnapshotOf captures an instance for persistence or handoff.
func SnapshotOf(inst *Instance) Snapshot {
	return Snapshot{ID: inst.ID, Keyword: inst.Keyword(), Charges: inst.Charges}
}

// Restore rebuilds an instance from a snapshot and its template, preserving
// the original instance ID.
//
// Precondition: tmpl must be the template named by snap.Keyword.
func Restore(snap Snapshot, tmpl *Template) *Instance {
	return &Instance{ID: snap.ID, Tmpl: tmpl, Charges: snap.Charges}
}
