// Package mob tracks NPC templates and live spawns with a room index.
package mob

import (
	"github.com/driftwood-mud/engine/internal/game/ids"
)

// Template is the zone-authored definition a spawn is minted from.
type Template struct {
	// Keyword targets the mob in commands, matched case-insensitively.
	Keyword string
	// DisplayName is shown in room descriptions and combat lines.
	DisplayName string
	// Level scales combat difficulty.
	Level int
	// MaxHp is the spawn's full health.
	MaxHp int
	// Damage is the swing damage bonus.
	Damage int
	// Armor reduces incoming swing damage.
	Armor int
	// XpReward is granted to the killer's group on death.
	XpReward int
	// GoldReward is granted to the killer on death.
	GoldReward int
	// Aggressive mobs attack players entering their room.
	Aggressive bool
	// WanderMs is the wander interval; zero keeps the mob in place.
	WanderMs int64
	// RespawnMs is the delay before a killed mob respawns at its home
	// room; zero disables respawn.
	RespawnMs int64
	// DialogueID names the conversation tree offered on talk, or "".
	DialogueID string
	// Drops are item template keywords minted to the floor on death.
	Drops []string
}

// State is one live spawn. The registry exclusively owns State values.
type State struct {
	// ID is unique per engine run.
	ID ids.MobID
	// Tmpl is the definition this spawn was minted from.
	Tmpl *Template
	// RoomID is the spawn's current location.
	RoomID ids.RoomID
	// HomeRoom is where the spawn respawns and anchors its wander.
	HomeRoom ids.RoomID
	// Hp is current health, in [0, Tmpl.MaxHp].
	Hp int
}

// Name returns the display name, falling back to the keyword.
func (s *State) Name() string {
	if s.Tmpl.DisplayName != "" {
		return s.Tmpl.DisplayName
	}
	return s.Tmpl.Keyword
}
