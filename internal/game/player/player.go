// Package player owns every online player's state: the session map with its
// name and room indices, the login state machine, experience progression,
// and the persistence record contract.
package player

import (
	"context"
	"errors"

	"github.com/driftwood-mud/engine/internal/game/dialogue"
	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/item"
	"github.com/driftwood-mud/engine/internal/game/mail"
)

// ErrNotFound is returned by repositories when no record matches.
var ErrNotFound = errors.New("player record not found")

// ErrDuplicateName is returned by repositories when a save would violate
// case-insensitive name uniqueness.
var ErrDuplicateName = errors.New("player name already taken")

// State is one online player. The registry exclusively owns State values;
// other subsystems hold only the SessionID.
type State struct {
	// Name is the display name, unique case-insensitively.
	Name string
	// Session is the owning connection.
	Session ids.SessionID
	// RoomID is the player's current location.
	RoomID ids.RoomID
	// Hp is current hit points, in [0, MaxHp].
	Hp int
	// MaxHp is BaseMaxHp plus the armor sum of equipped items.
	MaxHp int
	// BaseMaxHp is the level-derived maximum before equipment.
	BaseMaxHp int
	// Level is in [1, maxLevel].
	Level int
	// XpTotal is lifetime experience.
	XpTotal int
	// Gold is carried currency.
	Gold int
	// IsStaff gates admin commands.
	IsStaff bool
	// GuildID is the member's guild slug, or "" when guildless.
	GuildID string
	// GuildRank is meaningful only when GuildID is set.
	GuildRank ids.GuildRank
	// GroupID is the member's group, or 0 when ungrouped.
	GroupID int64
	// RecallRoomID is the recall target, or "" for the world default.
	RecallRoomID ids.RoomID
	// RecallReadyAtMs is when the recall cooldown expires.
	RecallReadyAtMs int64
	// PasswordHash is the bcrypt credential, carried for persistence.
	PasswordHash string
	// Inbox is the player's mail, oldest first.
	Inbox []mail.Message
	// Compose is the in-progress mail buffer, or nil.
	Compose *mail.Compose
	// Dialogue is the active NPC conversation, or nil.
	Dialogue *dialogue.State
	// LoginSeq orders players by login time for stable rosters.
	LoginSeq uint64
	// Dirty marks unsaved changes for the periodic persistence flush.
	Dirty bool
}

// ApplyArmorDelta shifts MaxHp and Hp together when equipment changes.
// Hp is capped at the new maximum and floored at 1 so an unequip never
// kills the player.
func (s *State) ApplyArmorDelta(delta int) {
	s.MaxHp += delta
	s.Hp += delta
	if s.Hp > s.MaxHp {
		s.Hp = s.MaxHp
	}
	if s.Hp < 1 {
		s.Hp = 1
	}
	s.Dirty = true
}

// Record is the persisted form of a player: identity, credentials, progress,
// holdings, and mail. Item holdings are snapshots rebuilt against the world's
// template table at login.
type Record struct {
	Name         string          `json:"name"`
	PasswordHash string          `json:"password_hash"`
	RoomID       ids.RoomID      `json:"room_id"`
	Hp           int             `json:"hp"`
	BaseMaxHp    int             `json:"base_max_hp"`
	Level        int             `json:"level"`
	XpTotal      int             `json:"xp_total"`
	Gold         int             `json:"gold"`
	IsStaff      bool            `json:"is_staff"`
	RecallRoomID ids.RoomID      `json:"recall_room_id,omitempty"`
	GuildID      string          `json:"guild_id,omitempty"`
	GuildRank    ids.GuildRank   `json:"guild_rank,omitempty"`
	Inventory    []item.Snapshot `json:"inventory,omitempty"`
	Equipment    []item.Snapshot `json:"equipment,omitempty"`
	Inbox        []mail.Message  `json:"inbox,omitempty"`
}

// Repository is the persistence boundary for player records.
type Repository interface {
	// FindByName loads a record by case-insensitive name.
	//
	// Postcondition: Returns ErrNotFound (possibly wrapped) when absent.
	FindByName(ctx context.Context, name string) (*Record, error)
	// Save upserts a record keyed by case-insensitive name.
	Save(ctx context.Context, rec *Record) error
	// Delete removes a record by case-insensitive name.
	Delete(ctx context.Context, name string) error
}

// ToRecord snapshots live state into a persistable record. Item holdings are
// supplied by the caller, which owns the item registry.
func (s *State) ToRecord(inventory, equipment []item.Snapshot) *Record {
	inbox := make([]mail.Message, len(s.Inbox))
	copy(inbox, s.Inbox)
	return &Record{
		Name:         s.Name,
		PasswordHash: s.PasswordHash,
		RoomID:       s.RoomID,
		Hp:           s.Hp,
		BaseMaxHp:    s.BaseMaxHp,
		Level:        s.Level,
		XpTotal:      s.XpTotal,
		Gold:         s.Gold,
		IsStaff:      s.IsStaff,
		RecallRoomID: s.RecallRoomID,
		GuildID:      s.GuildID,
		GuildRank:    s.GuildRank,
		Inventory:    inventory,
		Equipment:    equipment,
		Inbox:        inbox,
	}
}
