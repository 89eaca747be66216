package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/driftwood-mud/engine/internal/game/dialogue"
	"github.com/driftwood-mud/engine/internal/game/feature"
	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/item"
	"github.com/driftwood-mud/engine/internal/game/mob"
	"github.com/driftwood-mud/engine/internal/game/shop"
)

// yamlZoneFile is the top-level YAML structure for zone files.
type yamlZoneFile struct {
	Zone yamlZone `yaml:"zone"`
}

// yamlZone is the YAML representation of a zone.
type yamlZone struct {
	ID                     string                  `yaml:"id"`
	Name                   string                  `yaml:"name"`
	Description            string                  `yaml:"description"`
	StartRoom              string                  `yaml:"start_room"`
	Script                 string                  `yaml:"script"`
	ScriptInstructionLimit int                     `yaml:"script_instruction_limit"`
	Rooms                  []yamlRoom              `yaml:"rooms"`
	Items                  map[string]yamlItem     `yaml:"items"`
	Mobs                   map[string]yamlMob      `yaml:"mobs"`
	Shops                  []yamlShop              `yaml:"shops"`
	Dialogues              map[string]yamlDialogue `yaml:"dialogues"`
}

// yamlRoom is the YAML representation of a room.
type yamlRoom struct {
	ID          string            `yaml:"id"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Exits       map[string]string `yaml:"exits"`
	Features    []yamlFeature     `yaml:"features"`
	Items       []string          `yaml:"items"`
	Spawns      []yamlSpawn       `yaml:"spawns"`
}

// yamlFeature is the YAML representation of a room fixture.
type yamlFeature struct {
	Local     string   `yaml:"local"`
	Kind      string   `yaml:"kind"`
	Name      string   `yaml:"name"`
	Direction string   `yaml:"direction"`
	Key       string   `yaml:"key"`
	State     string   `yaml:"state"`
	Script    string   `yaml:"script"`
	Contents  []string `yaml:"contents"`
	Text      string   `yaml:"text"`
}

// yamlSpawn is the YAML representation of a room spawn rule.
type yamlSpawn struct {
	Template string `yaml:"template"`
	Count    int    `yaml:"count"`
}

// yamlItem is the YAML representation of an item template.
type yamlItem struct {
	Name       string `yaml:"name"`
	Slot       string `yaml:"slot"`
	Armor      int    `yaml:"armor"`
	Damage     int    `yaml:"damage"`
	Consumable bool   `yaml:"consumable"`
	Charges    int    `yaml:"charges"`
	Price      int    `yaml:"price"`
	Heal       int    `yaml:"heal"`
}

// yamlMob is the YAML representation of a mob template.
type yamlMob struct {
	Name       string   `yaml:"name"`
	Level      int      `yaml:"level"`
	MaxHp      int      `yaml:"max_hp"`
	Damage     int      `yaml:"damage"`
	Armor      int      `yaml:"armor"`
	Xp         int      `yaml:"xp"`
	Gold       int      `yaml:"gold"`
	Aggressive bool     `yaml:"aggressive"`
	WanderMs   int64    `yaml:"wander_ms"`
	RespawnMs  int64    `yaml:"respawn_ms"`
	Dialogue   string   `yaml:"dialogue"`
	Drops      []string `yaml:"drops"`
}

// yamlShop is the YAML representation of a vendor.
type yamlShop struct {
	Room  string   `yaml:"room"`
	Name  string   `yaml:"name"`
	Stock []string `yaml:"stock"`
}

// yamlDialogue is the YAML representation of a conversation tree.
type yamlDialogue struct {
	Start string              `yaml:"start"`
	Nodes map[string]yamlNode `yaml:"nodes"`
}

// yamlNode is the YAML representation of a dialogue node.
type yamlNode struct {
	Prompt  string       `yaml:"prompt"`
	Choices []yamlChoice `yaml:"choices"`
}

// yamlChoice is the YAML representation of a dialogue choice.
type yamlChoice struct {
	Text    string       `yaml:"text"`
	Next    string       `yaml:"next"`
	Actions []yamlAction `yaml:"actions"`
}

// yamlAction is the YAML representation of a dialogue action.
type yamlAction struct {
	Kind   string `yaml:"kind"`
	Item   string `yaml:"item"`
	Xp     int    `yaml:"xp"`
	Room   string `yaml:"room"`
	Script string `yaml:"script"`
}

// LoadZoneFromFile reads and validates a single zone YAML file.
//
// Precondition: path must point to a valid YAML zone file.
// Postcondition: Returns a validated Zone or a non-nil error.
func LoadZoneFromFile(path string) (*Zone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading zone file %s: %w", path, err)
	}
	zone, err := LoadZoneFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading zone from %s: %w", filepath.Base(path), err)
	}
	if zone.ScriptFile != "" {
		zone.ScriptFile = filepath.Join(filepath.Dir(path), zone.ScriptFile)
	}
	return zone, nil
}

// LoadZoneFromBytes parses and validates a zone from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the zone schema.
// Postcondition: Returns a validated Zone or a non-nil error.
func LoadZoneFromBytes(data []byte) (*Zone, error) {
	var file yamlZoneFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing zone YAML: %w", err)
	}

	zone, err := convertYAMLZone(file.Zone)
	if err != nil {
		return nil, err
	}
	if err := zone.Validate(); err != nil {
		return nil, fmt.Errorf("validating zone: %w", err)
	}
	return zone, nil
}

// LoadZonesFromDir loads all YAML files in a directory as zones.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated zones or the first error encountered.
func LoadZonesFromDir(dir string) ([]*Zone, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading zone directory %s: %w", dir, err)
	}

	var zones []*Zone
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		zone, err := LoadZoneFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		zones = append(zones, zone)
	}

	if len(zones) == 0 {
		return nil, fmt.Errorf("no zone files found in %s", dir)
	}
	return zones, nil
}

// convertYAMLZone converts the parsed YAML structures into domain types.
func convertYAMLZone(yz yamlZone) (*Zone, error) {
	zone := &Zone{
		ID:                     yz.ID,
		Name:                   yz.Name,
		Description:            yz.Description,
		ScriptFile:             yz.Script,
		ScriptInstructionLimit: yz.ScriptInstructionLimit,
		Rooms:                  make(map[ids.RoomID]*Room, len(yz.Rooms)),
		ItemTemplates:          make(map[string]*item.Template, len(yz.Items)),
		MobTemplates:           make(map[string]*mob.Template, len(yz.Mobs)),
		Dialogues:              make(map[string]*dialogue.Tree, len(yz.Dialogues)),
	}
	if yz.StartRoom != "" {
		zone.StartRoom = ids.MakeRoomID(yz.ID, yz.StartRoom)
	}

	for _, yr := range yz.Rooms {
		room, err := convertYAMLRoom(yz.ID, yr)
		if err != nil {
			return nil, err
		}
		zone.Rooms[room.ID] = room
	}

	for kw, yi := range yz.Items {
		tmpl, err := convertYAMLItem(kw, yi)
		if err != nil {
			return nil, err
		}
		zone.ItemTemplates[strings.ToLower(kw)] = tmpl
	}

	for kw, ym := range yz.Mobs {
		zone.MobTemplates[strings.ToLower(kw)] = &mob.Template{
			Keyword:     strings.ToLower(kw),
			DisplayName: ym.Name,
			Level:       ym.Level,
			MaxHp:       ym.MaxHp,
			Damage:      ym.Damage,
			Armor:       ym.Armor,
			XpReward:    ym.Xp,
			GoldReward:  ym.Gold,
			Aggressive:  ym.Aggressive,
			WanderMs:    ym.WanderMs,
			RespawnMs:   ym.RespawnMs,
			DialogueID:  ym.Dialogue,
			Drops:       lowerAll(ym.Drops),
		}
	}

	for _, ys := range yz.Shops {
		zone.Shops = append(zone.Shops, &shop.Definition{
			RoomID: ids.MakeRoomID(yz.ID, ys.Room),
			Name:   ys.Name,
			Stock:  lowerAll(ys.Stock),
		})
	}

	for tid, yd := range yz.Dialogues {
		zone.Dialogues[tid] = convertYAMLDialogue(tid, yd)
	}

	return zone, nil
}

func convertYAMLRoom(zoneID string, yr yamlRoom) (*Room, error) {
	room := &Room{
		ID:          ids.MakeRoomID(zoneID, yr.ID),
		Zone:        zoneID,
		Title:       yr.Title,
		Description: strings.TrimSpace(yr.Description),
		Exits:       make(map[ids.Direction]ids.RoomID, len(yr.Exits)),
		Items:       lowerAll(yr.Items),
	}

	for rawDir, rawTarget := range yr.Exits {
		dir, ok := ids.ParseDirection(rawDir)
		if !ok {
			return nil, fmt.Errorf("room %q: unknown exit direction %q", yr.ID, rawDir)
		}
		target, err := exitTarget(zoneID, rawTarget)
		if err != nil {
			return nil, fmt.Errorf("room %q: exit %q: %w", yr.ID, rawDir, err)
		}
		room.Exits[dir] = target
	}

	for _, yf := range yr.Features {
		def, err := convertYAMLFeature(yf)
		if err != nil {
			return nil, fmt.Errorf("room %q: %w", yr.ID, err)
		}
		room.Features = append(room.Features, def)
	}

	for _, ysp := range yr.Spawns {
		count := ysp.Count
		if count == 0 {
			count = 1
		}
		room.Spawns = append(room.Spawns, Spawn{Template: strings.ToLower(ysp.Template), Count: count})
	}

	return room, nil
}

// exitTarget resolves an exit's destination: bare names stay in the zone,
// "zone:local" crosses into another.
func exitTarget(zoneID, raw string) (ids.RoomID, error) {
	if strings.Contains(raw, ":") {
		return ids.ParseRoomID(raw)
	}
	return ids.MakeRoomID(zoneID, raw), nil
}

func convertYAMLFeature(yf yamlFeature) (*feature.Definition, error) {
	def := &feature.Definition{
		Local:       strings.ToLower(yf.Local),
		Kind:        feature.Kind(yf.Kind),
		DisplayName: yf.Name,
		KeyItem:     strings.ToLower(yf.Key),
		Script:      yf.Script,
		Contents:    lowerAll(yf.Contents),
		Text:        strings.TrimSpace(yf.Text),
	}

	switch def.Kind {
	case feature.KindDoor:
		dir, ok := ids.ParseDirection(yf.Direction)
		if !ok {
			return nil, fmt.Errorf("door %q: unknown direction %q", yf.Local, yf.Direction)
		}
		def.Direction = dir
		switch yf.State {
		case "", string(ids.DoorClosed):
			def.DoorState = ids.DoorClosed
		case string(ids.DoorLocked):
			def.DoorState = ids.DoorLocked
		case string(ids.DoorOpen):
			def.DoorState = ids.DoorOpen
		default:
			return nil, fmt.Errorf("door %q: unknown state %q", yf.Local, yf.State)
		}
	case feature.KindContainer:
		switch yf.State {
		case "", string(ids.ContainerClosed):
			def.ContainerState = ids.ContainerClosed
		case string(ids.ContainerOpen):
			def.ContainerState = ids.ContainerOpen
		default:
			return nil, fmt.Errorf("container %q: unknown state %q", yf.Local, yf.State)
		}
	case feature.KindLever:
		switch yf.State {
		case "", string(ids.LeverUp):
			def.LeverState = ids.LeverUp
		case string(ids.LeverDown):
			def.LeverState = ids.LeverDown
		default:
			return nil, fmt.Errorf("lever %q: unknown state %q", yf.Local, yf.State)
		}
	case feature.KindSign:
		// Signs have no state.
	default:
		return nil, fmt.Errorf("feature %q: unknown kind %q", yf.Local, yf.Kind)
	}

	return def, nil
}

func convertYAMLItem(kw string, yi yamlItem) (*item.Template, error) {
	tmpl := &item.Template{
		Keyword:     strings.ToLower(kw),
		DisplayName: yi.Name,
		Armor:       yi.Armor,
		Damage:      yi.Damage,
		Consumable:  yi.Consumable,
		Charges:     yi.Charges,
		BasePrice:   yi.Price,
		OnUse:       item.UseEffects{HealHp: yi.Heal},
	}
	if yi.Slot != "" {
		slot, ok := ids.ParseSlot(yi.Slot)
		if !ok {
			return nil, fmt.Errorf("item %q: unknown slot %q", kw, yi.Slot)
		}
		tmpl.Slot = slot
	}
	if tmpl.Consumable && tmpl.Charges == 0 {
		tmpl.Charges = 1
	}
	return tmpl, nil
}

func convertYAMLDialogue(tid string, yd yamlDialogue) *dialogue.Tree {
	tree := &dialogue.Tree{
		ID:    tid,
		Start: yd.Start,
		Nodes: make(map[string]*dialogue.Node, len(yd.Nodes)),
	}
	for nid, yn := range yd.Nodes {
		node := &dialogue.Node{ID: nid, Prompt: strings.TrimSpace(yn.Prompt)}
		for _, yc := range yn.Choices {
			choice := dialogue.Choice{Text: yc.Text, Next: yc.Next}
			for _, ya := range yc.Actions {
				choice.Actions = append(choice.Actions, dialogue.Action{
					Kind:   dialogue.ActionKind(ya.Kind),
					Item:   strings.ToLower(ya.Item),
					Xp:     ya.Xp,
					Room:   ids.RoomID(ya.Room),
					Script: ya.Script,
				})
			}
			node.Choices = append(node.Choices, choice)
		}
		tree.Nodes[nid] = node
	}
	return tree
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
