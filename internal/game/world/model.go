// Package world provides the immutable game world: zones, rooms, exits,
// fixtures, and the template tables everything else is minted from. A World
// is assembled from zone files at boot and never mutated afterward; all
// runtime state lives in the registries.
package world

import (
	"fmt"
	"sort"

	"github.com/driftwood-mud/engine/internal/game/dialogue"
	"github.com/driftwood-mud/engine/internal/game/feature"
	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/item"
	"github.com/driftwood-mud/engine/internal/game/mob"
	"github.com/driftwood-mud/engine/internal/game/shop"
)

// Spawn defines how many instances of a mob template populate a room.
type Spawn struct {
	// Template is the mob template keyword to spawn.
	Template string
	// Count is the number of live instances kept in the room.
	Count int
}

// Room represents a location in the game world.
type Room struct {
	// ID uniquely identifies this room across all zones.
	ID ids.RoomID
	// Zone identifies the zone this room belongs to.
	Zone string
	// Title is the short display name of the room.
	Title string
	// Description is the multi-line room description shown to players.
	Description string
	// Exits maps directions to destination rooms, possibly in other zones.
	Exits map[ids.Direction]ids.RoomID
	// Features lists the room's interactive fixtures.
	Features []*feature.Definition
	// Items lists item template keywords spawned on the floor at boot.
	Items []string
	// Spawns lists mob templates that populate this room.
	Spawns []Spawn
}

// Exit returns the destination in the given direction, if one exists.
//
// Postcondition: Returns (roomID, true) if found, or ("", false) otherwise.
func (r *Room) Exit(dir ids.Direction) (ids.RoomID, bool) {
	target, ok := r.Exits[dir]
	return target, ok
}

// ExitDirections returns the room's exits in compass display order.
func (r *Room) ExitDirections() []ids.Direction {
	var out []ids.Direction
	for _, dir := range ids.StandardDirections {
		if _, ok := r.Exits[dir]; ok {
			out = append(out, dir)
		}
	}
	return out
}

// Zone groups related rooms into a themed area and carries the templates
// authored alongside them.
type Zone struct {
	// ID uniquely identifies this zone.
	ID string
	// Name is the display name of the zone.
	Name string
	// Description summarizes the zone's theme.
	Description string
	// StartRoom is the zone's default entry room, if it has one.
	StartRoom ids.RoomID
	// Rooms contains all rooms in this zone, keyed by room ID.
	Rooms map[ids.RoomID]*Room
	// ItemTemplates are the item definitions authored in this zone file.
	ItemTemplates map[string]*item.Template
	// MobTemplates are the mob definitions authored in this zone file.
	MobTemplates map[string]*mob.Template
	// Shops are the vendors authored in this zone file.
	Shops []*shop.Definition
	// Dialogues are the conversation trees authored in this zone file.
	Dialogues map[string]*dialogue.Tree
	// ScriptFile is the path to this zone's Lua script. Empty = none.
	ScriptFile string
	// ScriptInstructionLimit overrides the scripting default for this
	// zone's VM. 0 = use the default.
	ScriptInstructionLimit int
}

// Validate checks intra-zone invariants. Cross-zone references are checked
// when zones are assembled into a World.
//
// Postcondition: Returns nil if valid, or an error describing the first
// violation.
func (z *Zone) Validate() error {
	if z.ID == "" {
		return fmt.Errorf("zone ID must not be empty")
	}
	if z.Name == "" {
		return fmt.Errorf("zone %q: name must not be empty", z.ID)
	}
	if len(z.Rooms) == 0 {
		return fmt.Errorf("zone %q: must contain at least one room", z.ID)
	}
	if z.StartRoom != "" {
		if _, ok := z.Rooms[z.StartRoom]; !ok {
			return fmt.Errorf("zone %q: start_room %q not found in rooms", z.ID, z.StartRoom)
		}
	}
	for id, room := range z.Rooms {
		if room.ID != id {
			return fmt.Errorf("zone %q: room key %q does not match room ID %q", z.ID, id, room.ID)
		}
		if room.ID.Zone() != z.ID {
			return fmt.Errorf("zone %q: room %q belongs to zone %q", z.ID, id, room.ID.Zone())
		}
		if room.Title == "" {
			return fmt.Errorf("zone %q: room %q: title must not be empty", z.ID, id)
		}
		if room.Description == "" {
			return fmt.Errorf("zone %q: room %q: description must not be empty", z.ID, id)
		}
		for dir, target := range room.Exits {
			if !dir.IsStandard() {
				return fmt.Errorf("zone %q: room %q: exit direction %q is not standard", z.ID, id, dir)
			}
			if !target.IsValid() {
				return fmt.Errorf("zone %q: room %q: exit %q targets malformed room %q", z.ID, id, dir, target)
			}
		}
		if err := validateFeatures(z.ID, room); err != nil {
			return err
		}
		for _, spawn := range room.Spawns {
			if spawn.Template == "" {
				return fmt.Errorf("zone %q: room %q: spawn with empty template", z.ID, id)
			}
			if spawn.Count < 1 {
				return fmt.Errorf("zone %q: room %q: spawn %q count must be at least 1", z.ID, id, spawn.Template)
			}
		}
	}
	for tid, tree := range z.Dialogues {
		if tree.ID != tid {
			return fmt.Errorf("zone %q: dialogue key %q does not match tree ID %q", z.ID, tid, tree.ID)
		}
		if err := tree.Validate(); err != nil {
			return fmt.Errorf("zone %q: dialogue %q: %w", z.ID, tid, err)
		}
	}
	return nil
}

func validateFeatures(zoneID string, room *Room) error {
	seen := make(map[string]struct{}, len(room.Features))
	for _, def := range room.Features {
		if def.Local == "" {
			return fmt.Errorf("zone %q: room %q: feature with empty local name", zoneID, room.ID)
		}
		if _, dup := seen[def.Local]; dup {
			return fmt.Errorf("zone %q: room %q: duplicate feature %q", zoneID, room.ID, def.Local)
		}
		seen[def.Local] = struct{}{}

		switch def.Kind {
		case feature.KindDoor:
			if !def.Direction.IsStandard() {
				return fmt.Errorf("zone %q: room %q: door %q needs a standard direction", zoneID, room.ID, def.Local)
			}
			if _, ok := room.Exits[def.Direction]; !ok {
				return fmt.Errorf("zone %q: room %q: door %q guards %q but the room has no such exit", zoneID, room.ID, def.Local, def.Direction)
			}
			if def.DoorState == ids.DoorLocked && def.KeyItem == "" {
				return fmt.Errorf("zone %q: room %q: locked door %q has no key item", zoneID, room.ID, def.Local)
			}
		case feature.KindContainer, feature.KindLever:
			// Defaults cover their initial states.
		case feature.KindSign:
			if def.Text == "" {
				return fmt.Errorf("zone %q: room %q: sign %q has no text", zoneID, room.ID, def.Local)
			}
		default:
			return fmt.Errorf("zone %q: room %q: feature %q has unknown kind %q", zoneID, room.ID, def.Local, def.Kind)
		}
	}
	return nil
}

// RoomIDs returns the zone's room IDs in lexical order.
func (z *Zone) RoomIDs() []ids.RoomID {
	out := make([]ids.RoomID, 0, len(z.Rooms))
	for id := range z.Rooms {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
