package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

var (
	swordTmpl = &Template{Keyword: "sword", DisplayName: "a steel sword", Slot: ids.SlotWeapon, Damage: 3, BasePrice: 50}
	capTmpl   = &Template{Keyword: "cap", DisplayName: "a leather cap", Slot: ids.SlotHead, Armor: 1, BasePrice: 10}
	rockTmpl  = &Template{Keyword: "rock", DisplayName: "a dull rock"}
	vialTmpl  = &Template{Keyword: "vial", DisplayName: "a healing vial", Consumable: true, Charges: 2, BasePrice: 20, OnUse: UseEffects{HealHp: 5}}
)

func TestNewInstance_UniqueIDs(t *testing.T) {
	a := NewInstance(swordTmpl)
	b := NewInstance(swordTmpl)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "sword", a.Keyword())
}

func TestRegistry_MintAndFindInRoom(t *testing.T) {
	r := NewRegistry()
	room := ids.RoomID("harbor:docks")

	first := r.MintToRoom(swordTmpl, room)
	r.MintToRoom(swordTmpl, room)

	found, ok := r.FindInRoom(room, "SWORD")
	require.True(t, ok)
	assert.Equal(t, first.ID, found.ID, "first in drop order wins")
	assert.Equal(t, 2, r.Count())
}

func TestRegistry_MoveRoomToInventoryRoundTrip(t *testing.T) {
	r := NewRegistry()
	room := ids.RoomID("harbor:docks")
	sid := ids.SessionID(1)

	inst := r.MintToRoom(rockTmpl, room)
	require.NoError(t, r.MoveToInventory(inst, sid))

	assert.Empty(t, r.RoomItems(room))
	require.Len(t, r.Inventory(sid), 1)
	loc, ok := r.Where(inst.ID)
	require.True(t, ok)
	assert.Equal(t, LocInventory, loc.Kind)

	require.NoError(t, r.MoveToRoom(inst, room))
	got, ok := r.FindInRoom(room, "rock")
	require.True(t, ok)
	assert.Equal(t, inst.ID, got.ID, "identity survives the round trip")
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_EquipMovesOutOfInventory(t *testing.T) {
	r := NewRegistry()
	sid := ids.SessionID(2)

	inst := r.MintToInventory(capTmpl, sid)
	displaced, err := r.Equip(sid, inst)
	require.NoError(t, err)
	assert.Nil(t, displaced)

	assert.Empty(t, r.Inventory(sid))
	got, ok := r.EquippedAt(sid, ids.SlotHead)
	require.True(t, ok)
	assert.Equal(t, inst.ID, got.ID)
	assert.Equal(t, 1, r.ArmorSum(sid))
}

func TestRegistry_EquipDisplacesPriorOccupant(t *testing.T) {
	r := NewRegistry()
	sid := ids.SessionID(3)

	old := r.MintToInventory(capTmpl, sid)
	_, err := r.Equip(sid, old)
	require.NoError(t, err)

	replacement := r.MintToInventory(capTmpl, sid)
	displaced, err := r.Equip(sid, replacement)
	require.NoError(t, err)
	require.NotNil(t, displaced)
	assert.Equal(t, old.ID, displaced.ID)

	// Prior occupant is back in inventory; replacement holds the slot.
	require.Len(t, r.Inventory(sid), 1)
	assert.Equal(t, old.ID, r.Inventory(sid)[0].ID)
	got, _ := r.EquippedAt(sid, ids.SlotHead)
	assert.Equal(t, replacement.ID, got.ID)
	assert.Equal(t, 2, r.Count())
}

func TestRegistry_EquipRejectsUnwearable(t *testing.T) {
	r := NewRegistry()
	sid := ids.SessionID(4)
	inst := r.MintToInventory(rockTmpl, sid)
	_, err := r.Equip(sid, inst)
	assert.Error(t, err)
}

func TestRegistry_EquipRejectsForeignItem(t *testing.T) {
	r := NewRegistry()
	inst := r.MintToInventory(capTmpl, 5)
	_, err := r.Equip(6, inst)
	assert.Error(t, err)
}

func TestRegistry_UnequipRestoresInventory(t *testing.T) {
	r := NewRegistry()
	sid := ids.SessionID(7)

	inst := r.MintToInventory(capTmpl, sid)
	_, err := r.Equip(sid, inst)
	require.NoError(t, err)

	back, err := r.Unequip(sid, ids.SlotHead)
	require.NoError(t, err)
	assert.Equal(t, inst.ID, back.ID)
	assert.Equal(t, 0, r.ArmorSum(sid))
	require.Len(t, r.Inventory(sid), 1)

	_, err = r.Unequip(sid, ids.SlotHead)
	assert.Error(t, err)
}

func TestRegistry_FindWearablePrefersSlotted(t *testing.T) {
	r := NewRegistry()
	sid := ids.SessionID(8)

	// Same keyword, one wearable and one not; the unslotted arrives first.
	plainTmpl := &Template{Keyword: "helm", DisplayName: "a dented helm"}
	wearTmpl := &Template{Keyword: "helm", DisplayName: "a polished helm", Slot: ids.SlotHead, Armor: 2}
	r.MintToInventory(plainTmpl, sid)
	wearable := r.MintToInventory(wearTmpl, sid)

	found, ok := r.FindWearable(sid, "helm")
	require.True(t, ok)
	assert.Equal(t, wearable.ID, found.ID)
}

func TestRegistry_FindWearableFallsBack(t *testing.T) {
	r := NewRegistry()
	sid := ids.SessionID(9)
	inst := r.MintToInventory(rockTmpl, sid)

	found, ok := r.FindWearable(sid, "rock")
	require.True(t, ok)
	assert.Equal(t, inst.ID, found.ID)
}

func TestRegistry_ContainerFlow(t *testing.T) {
	r := NewRegistry()
	fid := ids.MakeFeatureID("harbor:docks", "chest")
	sid := ids.SessionID(10)

	inst := r.MintToContainer(vialTmpl, fid)
	require.Len(t, r.ContainerItems(fid), 1)

	require.NoError(t, r.MoveToInventory(inst, sid))
	assert.Empty(t, r.ContainerItems(fid))

	require.NoError(t, r.MoveToContainer(inst, fid))
	found, ok := r.FindInContainer(fid, "vial")
	require.True(t, ok)
	assert.Equal(t, inst.ID, found.ID)
}

func TestRegistry_ConsumeAndDestroy(t *testing.T) {
	r := NewRegistry()
	sid := ids.SessionID(11)
	inst := r.MintToInventory(vialTmpl, sid)

	assert.Equal(t, 1, r.ConsumeCharge(inst))
	assert.Equal(t, 0, r.ConsumeCharge(inst))

	require.NoError(t, r.Destroy(inst))
	assert.Equal(t, 0, r.Count())
	_, ok := r.Where(inst.ID)
	assert.False(t, ok)
}

func TestRegistry_RemoveSessionSnapshots(t *testing.T) {
	r := NewRegistry()
	sid := ids.SessionID(12)

	carried := r.MintToInventory(rockTmpl, sid)
	worn := r.MintToInventory(capTmpl, sid)
	_, err := r.Equip(sid, worn)
	require.NoError(t, err)

	inv, eq := r.RemoveSession(sid)
	require.Len(t, inv, 1)
	require.Len(t, eq, 1)
	assert.Equal(t, carried.ID, inv[0].ID)
	assert.Equal(t, worn.ID, eq[0].ID)
	assert.Equal(t, ids.SlotHead, eq[0].Slot)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_RekeySession(t *testing.T) {
	r := NewRegistry()
	old := ids.SessionID(20)
	carried := r.MintToInventory(rockTmpl, old)
	worn := r.MintToInventory(capTmpl, old)
	_, err := r.Equip(old, worn)
	require.NoError(t, err)

	r.RekeySession(old, 21)

	assert.Empty(t, r.Inventory(old))
	require.Len(t, r.Inventory(21), 1)
	assert.Equal(t, carried.ID, r.Inventory(21)[0].ID)
	got, ok := r.EquippedAt(21, ids.SlotHead)
	require.True(t, ok)
	assert.Equal(t, worn.ID, got.ID)

	loc, ok := r.Where(carried.ID)
	require.True(t, ok)
	assert.Equal(t, ids.SessionID(21), loc.Session)
}

func TestRestore_PreservesIdentity(t *testing.T) {
	inst := NewInstance(vialTmpl)
	inst.Charges = 1

	snap := SnapshotOf(inst)
	restored := Restore(snap, vialTmpl)
	assert.Equal(t, inst.ID, restored.ID)
	assert.Equal(t, 1, restored.Charges)
}

func TestRegistry_AdoptRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	inst := NewInstance(rockTmpl)
	require.NoError(t, r.Adopt(inst, 13))
	assert.Error(t, r.Adopt(inst, 14))
}

func TestPropertyInstanceConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewRegistry()
		room := ids.RoomID("harbor:docks")
		fid := ids.MakeFeatureID("harbor:docks", "chest")
		sid := ids.SessionID(1)

		n := rapid.IntRange(1, 8).Draw(t, "instances")
		instances := make([]*Instance, 0, n)
		for i := 0; i < n; i++ {
			instances = append(instances, r.MintToRoom(capTmpl, room))
		}

		steps := rapid.IntRange(0, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			inst := instances[rapid.IntRange(0, n-1).Draw(t, "pick")]
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				_ = r.MoveToRoom(inst, room)
			case 1:
				_ = r.MoveToInventory(inst, sid)
			case 2:
				_ = r.MoveToContainer(inst, fid)
			case 3:
				if loc, ok := r.Where(inst.ID); ok && loc.Kind == LocInventory {
					_, _ = r.Equip(sid, inst)
				}
			}
		}

		if r.Count() != n {
			t.Fatalf("instance count changed: got %d want %d", r.Count(), n)
		}
		// Each instance appears exactly once across all holders.
		seen := map[ids.ItemID]int{}
		for _, inst := range r.RoomItems(room) {
			seen[inst.ID]++
		}
		for _, inst := range r.Inventory(sid) {
			seen[inst.ID]++
		}
		for _, inst := range r.Equipment(sid) {
			seen[inst.ID]++
		}
		for _, inst := range r.ContainerItems(fid) {
			seen[inst.ID]++
		}
		for _, inst := range instances {
			if seen[inst.ID] != 1 {
				t.Fatalf("instance %s appears %d times", inst.ID, seen[inst.ID])
			}
		}
	})
}
