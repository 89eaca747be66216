// Package shop binds vendors to rooms and prices their trades. Stock lists
// name item templates; buying mints a fresh instance and selling destroys
// one, so shops are the only mint and sink in the item economy.
package shop

import (
	"fmt"
	"strings"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

// Definition is a zone-authored vendor.
type Definition struct {
	// RoomID is where the vendor trades.
	RoomID ids.RoomID
	// Name is shown in the listing header.
	Name string
	// Stock names the item templates offered for sale, in listing order.
	Stock []string
}

// Sells reports whether the vendor offers an item template,
// case-insensitively.
func (d *Definition) Sells(kw string) bool {
	kw = strings.ToLower(kw)
	for _, stocked := range d.Stock {
		if strings.ToLower(stocked) == kw {
			return true
		}
	}
	return false
}

// Registry maps rooms to their vendor. It is accessed only from the engine
// goroutine, so it takes no locks.
type Registry struct {
	shops map[ids.RoomID]*Definition
}

// NewRegistry creates an empty shop Registry.
func NewRegistry() *Registry {
	return &Registry{shops: make(map[ids.RoomID]*Definition)}
}

// Install places a vendor in its room.
//
// Postcondition: Returns an error if the room already has a vendor.
func (r *Registry) Install(def *Definition) error {
	if _, exists := r.shops[def.RoomID]; exists {
		return fmt.Errorf("room %s already has a shop", def.RoomID)
	}
	r.shops[def.RoomID] = def
	return nil
}

// At returns the vendor trading in a room, if any.
func (r *Registry) At(room ids.RoomID) (*Definition, bool) {
	def, ok := r.shops[room]
	return def, ok
}
