// Package guild models persistent player organizations: identity and slug
// rules, the rank ladder and who may act on whom, in-memory invitations,
// and the storage contract. Membership itself lives on player records.
package guild

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

// Repository failures.
var (
	// ErrNotFound is returned when no guild matches.
	ErrNotFound = errors.New("guild not found")
	// ErrDuplicate is returned when a slug is already taken.
	ErrDuplicate = errors.New("guild already exists")
)

const (
	minNameLen = 3
	maxNameLen = 32
	maxTagLen  = 4
	maxMotdLen = 240
)

// Guild is one persistent organization.
type Guild struct {
	// Slug is the stable lowercase identity derived from the name.
	Slug string
	// Name is the display name as created.
	Name string
	// Tag is the short bracket label shown beside member names.
	Tag string
	// Motd is the message of the day, shown on login and by guild motd.
	Motd string
	// CreatedAtMs is the creation time in Unix milliseconds.
	CreatedAtMs int64
}

// Member is one roster entry.
type Member struct {
	Name string
	Rank ids.GuildRank
}

// Repository is the persistence boundary for guilds.
type Repository interface {
	// Create stores a new guild.
	//
	// Postcondition: Returns ErrDuplicate (possibly wrapped) when the
	// slug is taken.
	Create(ctx context.Context, g *Guild) error
	// Save updates an existing guild's mutable fields (tag, motd).
	//
	// Postcondition: Returns ErrNotFound (possibly wrapped) when absent.
	Save(ctx context.Context, g *Guild) error
	// FindBySlug loads a guild.
	//
	// Postcondition: Returns ErrNotFound (possibly wrapped) when absent.
	FindBySlug(ctx context.Context, slug string) (*Guild, error)
	// Delete removes a guild.
	Delete(ctx context.Context, slug string) error
	// Roster lists every member with their rank, leader first then by
	// name.
	Roster(ctx context.Context, slug string) ([]Member, error)
}

// Slugify derives the stable identity from a display name: lowercase
// letters and digits, spaces collapsed to single underscores.
func Slugify(name string) (string, error) {
	var b strings.Builder
	pendingGap := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingGap && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingGap = false
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '-':
			pendingGap = true
		default:
			return "", fmt.Errorf("guild name contains %q", r)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("guild name has no usable characters")
	}
	return b.String(), nil
}

// ValidateName enforces guild naming rules and returns the derived slug.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < minNameLen || len(trimmed) > maxNameLen {
		return "", fmt.Errorf("guild name must be %d to %d characters", minNameLen, maxNameLen)
	}
	return Slugify(trimmed)
}

// DeriveTag builds the bracket tag from a display name: the uppercase
// initial of each word, capped at four letters. "Harbor Watch" becomes
// "HW".
func DeriveTag(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r := rune(word[0])
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
		if b.Len() >= maxTagLen {
			break
		}
	}
	return b.String()
}

// ValidateMotd enforces the message-of-the-day length cap.
func ValidateMotd(motd string) error {
	if len(motd) > maxMotdLen {
		return fmt.Errorf("guild motd must be at most %d characters", maxMotdLen)
	}
	return nil
}

// CanInvite reports whether a rank may extend invitations.
func CanInvite(rank ids.GuildRank) bool {
	return rank == ids.RankLeader || rank == ids.RankOfficer
}

// CanKick reports whether actor may remove target. Only strictly higher
// ranks may kick, so leaders are never kickable.
func CanKick(actor, target ids.GuildRank) bool {
	return actor.Outranks(target)
}

// Promote raises a member one rank. The leadership itself never changes
// hands through promotion.
func Promote(rank ids.GuildRank) (ids.GuildRank, error) {
	switch rank {
	case ids.RankMember:
		return ids.RankOfficer, nil
	case ids.RankOfficer:
		return "", fmt.Errorf("officers cannot be promoted further")
	default:
		return "", fmt.Errorf("cannot promote a %s", rank)
	}
}

// Demote lowers an officer one rank.
func Demote(rank ids.GuildRank) (ids.GuildRank, error) {
	if rank != ids.RankOfficer {
		return "", fmt.Errorf("cannot demote a %s", rank)
	}
	return ids.RankMember, nil
}

// Invitation is a pending offer to join.
type Invitation struct {
	Slug    string
	Inviter string
}

// Invites tracks pending invitations by invitee session. It is accessed
// only from the engine goroutine, so it takes no locks.
type Invites struct {
	pending map[ids.SessionID]Invitation
}

// NewInvites creates an empty invitation table.
func NewInvites() *Invites {
	return &Invites{pending: make(map[ids.SessionID]Invitation)}
}

// Offer records an invitation, replacing any earlier one for the invitee.
func (i *Invites) Offer(invitee ids.SessionID, slug, inviter string) {
	i.pending[invitee] = Invitation{Slug: slug, Inviter: inviter}
}

// Take consumes the invitee's pending invitation.
func (i *Invites) Take(invitee ids.SessionID) (Invitation, bool) {
	inv, ok := i.pending[invitee]
	if ok {
		delete(i.pending, invitee)
	}
	return inv, ok
}

// Drop clears the invitee's pending invitation, if any.
func (i *Invites) Drop(invitee ids.SessionID) {
	delete(i.pending, invitee)
}

// Rekey transfers a pending invitation to a new session id.
func (i *Invites) Rekey(from, to ids.SessionID) {
	if inv, ok := i.pending[from]; ok {
		delete(i.pending, from)
		i.pending[to] = inv
	}
}
