// Package group manages ad-hoc adventuring parties: invitations, rosters,
// and the experience split applied when a grouped player makes a kill.
package group

import (
	"errors"
	"fmt"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

// ErrNotGrouped is returned for roster operations on ungrouped players.
var ErrNotGrouped = errors.New("not in a group")

// Group is one party. Members are listed in join order; the first member
// founded the group.
type Group struct {
	ID      int64
	Members []ids.SessionID
}

// Registry owns every party and its pending invitations. It is accessed
// only from the engine goroutine, so it takes no locks.
type Registry struct {
	groups   map[int64]*Group
	memberOf map[ids.SessionID]int64
	invites  map[ids.SessionID]ids.SessionID
	nextID   int64
}

// NewRegistry creates an empty group Registry.
func NewRegistry() *Registry {
	return &Registry{
		groups:   make(map[int64]*Group),
		memberOf: make(map[ids.SessionID]int64),
		invites:  make(map[ids.SessionID]ids.SessionID),
	}
}

// Invite records a pending invitation, replacing any earlier one for the
// same invitee.
func (r *Registry) Invite(inviter, invitee ids.SessionID) error {
	if inviter == invitee {
		return fmt.Errorf("cannot invite yourself")
	}
	if gid, ok := r.memberOf[invitee]; ok && gid == r.memberOf[inviter] {
		return fmt.Errorf("already grouped together")
	}
	r.invites[invitee] = inviter
	return nil
}

// Pending returns the inviter behind the invitee's open invitation.
func (r *Registry) Pending(invitee ids.SessionID) (ids.SessionID, bool) {
	inviter, ok := r.invites[invitee]
	return inviter, ok
}

// Accept consumes the invitee's pending invitation and joins the inviter's
// party, founding one when the inviter is ungrouped.
//
// Postcondition: On success the invitee is a member and the invitation is
// cleared. The invitation is also cleared when acceptance fails because the
// invitee is already grouped.
func (r *Registry) Accept(invitee ids.SessionID) (*Group, error) {
	inviter, ok := r.invites[invitee]
	if !ok {
		return nil, fmt.Errorf("no pending invitation")
	}
	delete(r.invites, invitee)

	if _, grouped := r.memberOf[invitee]; grouped {
		return nil, fmt.Errorf("leave your current group first")
	}

	gid, ok := r.memberOf[inviter]
	if !ok {
		r.nextID++
		g := &Group{ID: r.nextID, Members: []ids.SessionID{inviter}}
		r.groups[g.ID] = g
		r.memberOf[inviter] = g.ID
		gid = g.ID
	}
	g := r.groups[gid]
	g.Members = append(g.Members, invitee)
	r.memberOf[invitee] = gid
	return g, nil
}

// Leave removes a player from their party. A party reduced to one member
// disbands; the last remaining member is returned so the caller can tell
// them.
func (r *Registry) Leave(sid ids.SessionID) (remaining []ids.SessionID, disbanded bool, err error) {
	gid, ok := r.memberOf[sid]
	if !ok {
		return nil, false, ErrNotGrouped
	}
	g := r.groups[gid]
	delete(r.memberOf, sid)
	g.Members = removeMember(g.Members, sid)

	if len(g.Members) <= 1 {
		for _, last := range g.Members {
			delete(r.memberOf, last)
		}
		remaining = g.Members
		delete(r.groups, gid)
		return remaining, true, nil
	}
	return g.Members, false, nil
}

// GroupOf returns the player's party.
func (r *Registry) GroupOf(sid ids.SessionID) (*Group, bool) {
	gid, ok := r.memberOf[sid]
	if !ok {
		return nil, false
	}
	return r.groups[gid], true
}

// Members returns the player's party roster in join order, or just the
// player when ungrouped.
func (r *Registry) Members(sid ids.SessionID) []ids.SessionID {
	g, ok := r.GroupOf(sid)
	if !ok {
		return []ids.SessionID{sid}
	}
	out := make([]ids.SessionID, len(g.Members))
	copy(out, g.Members)
	return out
}

// RemoveSession withdraws a departing player from their party and clears
// any invitations they sent or hold.
func (r *Registry) RemoveSession(sid ids.SessionID) (remaining []ids.SessionID, disbanded bool) {
	delete(r.invites, sid)
	for invitee, inviter := range r.invites {
		if inviter == sid {
			delete(r.invites, invitee)
		}
	}
	remaining, disbanded, err := r.Leave(sid)
	if err != nil {
		return nil, false
	}
	return remaining, disbanded
}

// Rekey transfers a session's membership and invitations to a new session
// id. Used when a login takes over a live connection.
func (r *Registry) Rekey(from, to ids.SessionID) {
	if gid, ok := r.memberOf[from]; ok {
		delete(r.memberOf, from)
		r.memberOf[to] = gid
		g := r.groups[gid]
		for i, member := range g.Members {
			if member == from {
				g.Members[i] = to
			}
		}
	}
	if inviter, ok := r.invites[from]; ok {
		delete(r.invites, from)
		r.invites[to] = inviter
	}
	for invitee, inviter := range r.invites {
		if inviter == from {
			r.invites[invitee] = to
		}
	}
}

// SplitXp divides a kill's experience across n members: everyone receives
// the floor share and the killer also receives the remainder.
func SplitXp(total, n int) (share, remainder int) {
	if n <= 0 {
		return 0, 0
	}
	return total / n, total % n
}

func removeMember(members []ids.SessionID, sid ids.SessionID) []ids.SessionID {
	for i, member := range members {
		if member == sid {
			return append(members[:i], members[i+1:]...)
		}
	}
	return members
}
