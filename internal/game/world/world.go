package world

import (
	"fmt"
	"sort"
	"strings"

	"github.com/driftwood-mud/engine/internal/game/dialogue"
	"github.com/driftwood-mud/engine/internal/game/feature"
	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/item"
	"github.com/driftwood-mud/engine/internal/game/mob"
	"github.com/driftwood-mud/engine/internal/game/shop"
)

// World is the assembled, immutable content this engine instance serves.
type World struct {
	// StartRoom is where new players appear.
	StartRoom ids.RoomID

	zones     map[string]*Zone
	rooms     map[ids.RoomID]*Room
	items     map[string]*item.Template
	mobs      map[string]*mob.Template
	dialogues map[string]*dialogue.Tree
	shops     []*shop.Definition
}

// Assemble merges zones into a World and verifies every cross-zone
// reference. startRef selects the world start room as "zone:local"; when
// empty, the first loaded zone's start room is used.
//
// Precondition: Each zone must already pass its own Validate.
// Postcondition: Returns a World whose local references all resolve, or an
// error naming the first violation.
func Assemble(zones []*Zone, startRef string) (*World, error) {
	w := &World{
		zones:     make(map[string]*Zone, len(zones)),
		rooms:     make(map[ids.RoomID]*Room),
		items:     make(map[string]*item.Template),
		mobs:      make(map[string]*mob.Template),
		dialogues: make(map[string]*dialogue.Tree),
	}

	for _, z := range zones {
		if _, dup := w.zones[z.ID]; dup {
			return nil, fmt.Errorf("zone %q loaded twice", z.ID)
		}
		w.zones[z.ID] = z
		for id, room := range z.Rooms {
			w.rooms[id] = room
		}
		for kw, tmpl := range z.ItemTemplates {
			if _, dup := w.items[kw]; dup {
				return nil, fmt.Errorf("item template %q defined in more than one zone", kw)
			}
			w.items[kw] = tmpl
		}
		for kw, tmpl := range z.MobTemplates {
			if _, dup := w.mobs[kw]; dup {
				return nil, fmt.Errorf("mob template %q defined in more than one zone", kw)
			}
			w.mobs[kw] = tmpl
		}
		for tid, tree := range z.Dialogues {
			if _, dup := w.dialogues[tid]; dup {
				return nil, fmt.Errorf("dialogue %q defined in more than one zone", tid)
			}
			w.dialogues[tid] = tree
		}
		w.shops = append(w.shops, z.Shops...)
	}

	if err := w.validateCrossRefs(); err != nil {
		return nil, err
	}

	start, err := w.pickStartRoom(zones, startRef)
	if err != nil {
		return nil, err
	}
	w.StartRoom = start
	return w, nil
}

func (w *World) validateCrossRefs() error {
	for id, room := range w.rooms {
		for dir, target := range room.Exits {
			// Exits into zones this instance does not serve are
			// legitimate handoff targets.
			if _, served := w.zones[target.Zone()]; !served {
				continue
			}
			if _, ok := w.rooms[target]; !ok {
				return fmt.Errorf("room %s: exit %s targets unknown room %s", id, dir, target)
			}
		}
		for _, kw := range room.Items {
			if _, ok := w.items[kw]; !ok {
				return fmt.Errorf("room %s: floor item %q has no template", id, kw)
			}
		}
		for _, spawn := range room.Spawns {
			if _, ok := w.mobs[spawn.Template]; !ok {
				return fmt.Errorf("room %s: spawn %q has no mob template", id, spawn.Template)
			}
		}
		for _, def := range room.Features {
			switch def.Kind {
			case feature.KindContainer:
				for _, kw := range def.Contents {
					if _, ok := w.items[kw]; !ok {
						return fmt.Errorf("room %s: container %q holds %q which has no template", id, def.Local, kw)
					}
				}
			case feature.KindDoor:
				if def.KeyItem != "" {
					if _, ok := w.items[def.KeyItem]; !ok {
						return fmt.Errorf("room %s: door %q keyed by %q which has no template", id, def.Local, def.KeyItem)
					}
				}
			}
		}
	}

	for kw, tmpl := range w.mobs {
		if tmpl.DialogueID != "" {
			if _, ok := w.dialogues[tmpl.DialogueID]; !ok {
				return fmt.Errorf("mob template %q references unknown dialogue %q", kw, tmpl.DialogueID)
			}
		}
		for _, drop := range tmpl.Drops {
			if _, ok := w.items[drop]; !ok {
				return fmt.Errorf("mob template %q drops %q which has no template", kw, drop)
			}
		}
	}

	for _, def := range w.shops {
		if _, ok := w.rooms[def.RoomID]; !ok {
			return fmt.Errorf("shop %q placed in unknown room %s", def.Name, def.RoomID)
		}
		if len(def.Stock) == 0 {
			return fmt.Errorf("shop %q has no stock", def.Name)
		}
		for _, kw := range def.Stock {
			if _, ok := w.items[kw]; !ok {
				return fmt.Errorf("shop %q stocks %q which has no template", def.Name, kw)
			}
		}
	}

	for _, tree := range w.dialogues {
		for _, node := range tree.Nodes {
			for _, choice := range node.Choices {
				for _, action := range choice.Actions {
					if action.Kind == dialogue.ActionGiveItem {
						if _, ok := w.items[action.Item]; !ok {
							return fmt.Errorf("dialogue %q grants %q which has no template", tree.ID, action.Item)
						}
					}
				}
			}
		}
	}
	return nil
}

func (w *World) pickStartRoom(zones []*Zone, startRef string) (ids.RoomID, error) {
	if startRef != "" {
		id, err := ids.ParseRoomID(startRef)
		if err != nil {
			return "", fmt.Errorf("start room: %w", err)
		}
		if _, ok := w.rooms[id]; !ok {
			return "", fmt.Errorf("start room %s is not served by this instance", id)
		}
		return id, nil
	}
	for _, z := range zones {
		if z.StartRoom != "" {
			return z.StartRoom, nil
		}
	}
	return "", fmt.Errorf("no start room configured and no zone declares one")
}

// Room returns a room by ID.
func (w *World) Room(id ids.RoomID) (*Room, bool) {
	room, ok := w.rooms[id]
	return room, ok
}

// HasZone reports whether this instance serves a zone.
func (w *World) HasZone(zone string) bool {
	_, ok := w.zones[zone]
	return ok
}

// Zone returns a served zone by ID.
func (w *World) Zone(zone string) (*Zone, bool) {
	z, ok := w.zones[zone]
	return z, ok
}

// Zones returns the served zones in lexical order.
func (w *World) Zones() []*Zone {
	out := make([]*Zone, 0, len(w.zones))
	for _, z := range w.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ItemTemplate returns an item template by keyword, case-insensitively.
func (w *World) ItemTemplate(kw string) (*item.Template, bool) {
	tmpl, ok := w.items[strings.ToLower(kw)]
	return tmpl, ok
}

// MobTemplate returns a mob template by keyword, case-insensitively.
func (w *World) MobTemplate(kw string) (*mob.Template, bool) {
	tmpl, ok := w.mobs[strings.ToLower(kw)]
	return tmpl, ok
}

// Dialogue returns a conversation tree by ID.
func (w *World) Dialogue(id string) (*dialogue.Tree, bool) {
	tree, ok := w.dialogues[id]
	return tree, ok
}

// Shops returns every vendor definition.
func (w *World) Shops() []*shop.Definition {
	return w.shops
}

// ResolveRef maps a room reference to a concrete room. A zone-only
// reference resolves to the zone's start room, falling back to its
// lexically first room.
func (w *World) ResolveRef(ref ids.RoomRef) (ids.RoomID, bool) {
	if !ref.AnyInZone {
		id := ids.MakeRoomID(ref.Zone, ref.Local)
		_, ok := w.rooms[id]
		return id, ok
	}
	z, ok := w.zones[ref.Zone]
	if !ok {
		return "", false
	}
	if z.StartRoom != "" {
		return z.StartRoom, true
	}
	roomIDs := z.RoomIDs()
	if len(roomIDs) == 0 {
		return "", false
	}
	return roomIDs[0], true
}
