// Package ids defines the strongly typed identifiers and small enumerations
// shared by every game subsystem: session, room, mob, and item identifiers,
// compass directions, equipment slots, guild ranks, and world-feature states.
package ids

import (
	"fmt"
	"strings"
)

// SessionID identifies a connected client for the lifetime of its socket.
// Assigned by the I/O layer; never reused while the session is live.
type SessionID int64

// String returns the session ID in log-friendly form.
func (s SessionID) String() string {
	return fmt.Sprintf("session-%d", int64(s))
}

// MobID identifies a spawned mob instance. IDs are engine-local and
// monotonically assigned; they are never persisted.
type MobID int64

// String returns the mob ID in log-friendly form.
func (m MobID) String() string {
	return fmt.Sprintf("mob-%d", int64(m))
}

// ItemID identifies an item instance. IDs are UUID strings and survive
// persistence and cross-engine handoff.
type ItemID string

// RoomID identifies a room as "<zone>:<local>". Both halves are non-empty
// and consist of [a-zA-Z0-9_] only. Equality is exact and case-sensitive.
type RoomID string

// MakeRoomID joins a zone and a local room name into a RoomID.
//
// Precondition: zone and local must both be valid identifier segments.
func MakeRoomID(zone, local string) RoomID {
	return RoomID(zone + ":" + local)
}

// ParseRoomID validates and returns a RoomID from its string form.
//
// Postcondition: Returns an error unless s is "<zone>:<local>" with both
// halves valid identifier segments.
func ParseRoomID(s string) (RoomID, error) {
	zone, local, ok := strings.Cut(s, ":")
	if !ok {
		return "", fmt.Errorf("room id %q: missing ':' separator", s)
	}
	if !validSegment(zone) {
		return "", fmt.Errorf("room id %q: invalid zone %q", s, zone)
	}
	if !validSegment(local) {
		return "", fmt.Errorf("room id %q: invalid local part %q", s, local)
	}
	return RoomID(s), nil
}

// Zone returns the zone half of the room ID.
func (r RoomID) Zone() string {
	zone, _, _ := strings.Cut(string(r), ":")
	return zone
}

// Local returns the local half of the room ID.
func (r RoomID) Local() string {
	_, local, _ := strings.Cut(string(r), ":")
	return local
}

// IsValid reports whether the room ID is well-formed.
func (r RoomID) IsValid() bool {
	_, err := ParseRoomID(string(r))
	return err == nil
}

func (r RoomID) String() string {
	return string(r)
}

// validSegment reports whether s is a non-empty run of [a-zA-Z0-9_].
func validSegment(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}

// RoomRef is a partially resolved room reference as typed by staff:
// "zone:local", "local" (current zone), or "zone:" (any room in the zone).
type RoomRef struct {
	// Zone is the referenced zone.
	Zone string
	// Local is the referenced room within Zone. Empty when AnyInZone is set.
	Local string
	// AnyInZone indicates a "zone:" reference resolving to any room there.
	AnyInZone bool
}

// ParseRoomRef interprets a staff-entered room reference relative to the
// caller's current zone.
//
// Postcondition: Returns an error for empty or malformed references; the
// returned ref always carries a valid zone segment.
func ParseRoomRef(spec, currentZone string) (RoomRef, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return RoomRef{}, fmt.Errorf("empty room reference")
	}
	zone, local, hasColon := strings.Cut(spec, ":")
	if !hasColon {
		if !validSegment(spec) {
			return RoomRef{}, fmt.Errorf("room reference %q: invalid room name", spec)
		}
		if !validSegment(currentZone) {
			return RoomRef{}, fmt.Errorf("room reference %q: no current zone to resolve against", spec)
		}
		return RoomRef{Zone: currentZone, Local: spec}, nil
	}
	if !validSegment(zone) {
		return RoomRef{}, fmt.Errorf("room reference %q: invalid zone %q", spec, zone)
	}
	if local == "" {
		return RoomRef{Zone: zone, AnyInZone: true}, nil
	}
	if !validSegment(local) {
		return RoomRef{}, fmt.Errorf("room reference %q: invalid room name %q", spec, local)
	}
	return RoomRef{Zone: zone, Local: local}, nil
}

// Direction represents a compass direction or vertical movement.
type Direction string

// Standard compass directions and vertical movements.
const (
	North     Direction = "north"
	South     Direction = "south"
	East      Direction = "east"
	West      Direction = "west"
	Northeast Direction = "northeast"
	Northwest Direction = "northwest"
	Southeast Direction = "southeast"
	Southwest Direction = "southwest"
	Up        Direction = "up"
	Down      Direction = "down"
)

// StandardDirections contains all standard compass and vertical directions.
var StandardDirections = []Direction{
	North, South, East, West,
	Northeast, Northwest, Southeast, Southwest,
	Up, Down,
}

// directionNames maps every accepted spelling to its direction.
var directionNames = map[string]Direction{
	"north": North, "n": North,
	"south": South, "s": South,
	"east": East, "e": East,
	"west": West, "w": West,
	"northeast": Northeast, "ne": Northeast,
	"northwest": Northwest, "nw": Northwest,
	"southeast": Southeast, "se": Southeast,
	"southwest": Southwest, "sw": Southwest,
	"up": Up, "u": Up,
	"down": Down, "d": Down,
}

// ParseDirection resolves a direction name or abbreviation, case-insensitively.
//
// Postcondition: Returns (direction, true) for any accepted spelling, or
// ("", false) otherwise.
func ParseDirection(s string) (Direction, bool) {
	d, ok := directionNames[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}

// IsStandard reports whether d is one of the standard compass or vertical
// directions.
func (d Direction) IsStandard() bool {
	for _, std := range StandardDirections {
		if d == std {
			return true
		}
	}
	return false
}

// Opposite returns the opposite of a standard direction, or "" for others.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case Northeast:
		return Southwest
	case Southwest:
		return Northeast
	case Northwest:
		return Southeast
	case Southeast:
		return Northwest
	case Up:
		return Down
	case Down:
		return Up
	default:
		return ""
	}
}

// Slot identifies an equipment position. A player holds at most one item
// instance per slot.
type Slot string

// Equipment slots.
const (
	SlotHead    Slot = "head"
	SlotChest   Slot = "chest"
	SlotLegs    Slot = "legs"
	SlotFeet    Slot = "feet"
	SlotHands   Slot = "hands"
	SlotWeapon  Slot = "weapon"
	SlotOffhand Slot = "offhand"
	SlotNeck    Slot = "neck"
)

// Slots lists every equipment slot in display order.
var Slots = []Slot{
	SlotHead, SlotNeck, SlotChest, SlotHands,
	SlotLegs, SlotFeet, SlotWeapon, SlotOffhand,
}

// ParseSlot resolves a slot name, case-insensitively.
//
// Postcondition: Returns (slot, true) for a known slot name, or ("", false).
func ParseSlot(s string) (Slot, bool) {
	name := Slot(strings.ToLower(strings.TrimSpace(s)))
	for _, slot := range Slots {
		if slot == name {
			return slot, true
		}
	}
	return "", false
}

// GuildRank is a member's standing within a guild.
type GuildRank string

// Guild ranks, highest first.
const (
	RankLeader  GuildRank = "leader"
	RankOfficer GuildRank = "officer"
	RankMember  GuildRank = "member"
)

// Outranks reports whether r is strictly higher than other.
func (r GuildRank) Outranks(other GuildRank) bool {
	return r.order() > other.order()
}

func (r GuildRank) order() int {
	switch r {
	case RankLeader:
		return 3
	case RankOfficer:
		return 2
	case RankMember:
		return 1
	default:
		return 0
	}
}

// DoorState is the mutable state of a door feature.
type DoorState string

// Door states.
const (
	DoorLocked DoorState = "LOCKED"
	DoorClosed DoorState = "CLOSED"
	DoorOpen   DoorState = "OPEN"
)

// ContainerState is the mutable state of a container feature.
type ContainerState string

// Container states.
const (
	ContainerClosed ContainerState = "CLOSED"
	ContainerOpen   ContainerState = "OPEN"
)

// LeverState is the mutable state of a lever feature.
type LeverState string

// Lever states.
const (
	LeverUp   LeverState = "UP"
	LeverDown LeverState = "DOWN"
)

// Toggled returns the other lever position.
func (l LeverState) Toggled() LeverState {
	if l == LeverUp {
		return LeverDown
	}
	return LeverUp
}

// FeatureID identifies a room feature as "<zone>:<room>/<feature_local>".
type FeatureID string

// MakeFeatureID joins a room ID and a feature-local name.
func MakeFeatureID(room RoomID, local string) FeatureID {
	return FeatureID(string(room) + "/" + local)
}

// Room returns the room half of the feature ID.
func (f FeatureID) Room() RoomID {
	room, _, _ := strings.Cut(string(f), "/")
	return RoomID(room)
}

// Local returns the feature-local half of the feature ID.
func (f FeatureID) Local() string {
	_, local, _ := strings.Cut(string(f), "/")
	return local
}

func (f FeatureID) String() string {
	return string(f)
}
