// Package feature models interactive room fixtures: doors that gate exits,
// containers that hold items, and levers that fire zone scripts. Feature
// state survives restarts through the StateStore boundary.
package feature

import (
	"context"
	"errors"
	"fmt"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

// Kind discriminates fixture behavior.
type Kind string

// Fixture kinds.
const (
	KindDoor      Kind = "door"
	KindContainer Kind = "container"
	KindLever     Kind = "lever"
	KindSign      Kind = "sign"
)

// Transition failures surfaced to command handlers.
var (
	ErrLocked        = errors.New("it is locked")
	ErrAlreadyOpen   = errors.New("it is already open")
	ErrAlreadyClosed = errors.New("it is already closed")
	ErrNotLocked     = errors.New("it is not locked")
	ErrWrongKind     = errors.New("feature kind mismatch")
)

// Definition is the zone-authored description of a fixture.
type Definition struct {
	// Local names the fixture within its room.
	Local string
	// Kind selects the behavior.
	Kind Kind
	// DisplayName is shown in room descriptions.
	DisplayName string
	// Direction is the exit a door guards. Doors only.
	Direction ids.Direction
	// KeyItem is the item keyword that unlocks a locked door. Doors only.
	KeyItem string
	// DoorState is the initial door position. Doors only.
	DoorState ids.DoorState
	// ContainerState is the initial container position. Containers only.
	ContainerState ids.ContainerState
	// LeverState is the initial lever position. Levers only.
	LeverState ids.LeverState
	// Script names the zone script hook a lever pull fires. Levers only.
	Script string
	// Contents are item keywords minted into the container at world
	// load. Containers only.
	Contents []string
	// Text is what a reader sees. Signs only.
	Text string
}

// State is one live fixture. The registry exclusively owns State values.
type State struct {
	// ID is the stable identity, "room/local".
	ID ids.FeatureID
	// Def is the definition this fixture was installed from.
	Def *Definition

	door      ids.DoorState
	container ids.ContainerState
	lever     ids.LeverState
}

// newState builds a fixture at its definition's initial position.
func newState(id ids.FeatureID, def *Definition) *State {
	return &State{
		ID:        id,
		Def:       def,
		door:      def.DoorState,
		container: def.ContainerState,
		lever:     def.LeverState,
	}
}

// Door returns the door position.
func (s *State) Door() ids.DoorState { return s.door }

// Container returns the container position.
func (s *State) Container() ids.ContainerState { return s.container }

// Lever returns the lever position.
func (s *State) Lever() ids.LeverState { return s.lever }

// Passable reports whether a door lets traffic through.
func (s *State) Passable() bool {
	return s.Def.Kind != KindDoor || s.door == ids.DoorOpen
}

// Holds reports whether a container can be reached into.
func (s *State) Holds() bool {
	return s.Def.Kind == KindContainer && s.container == ids.ContainerOpen
}

// StateString encodes the live position for persistence.
func (s *State) StateString() string {
	switch s.Def.Kind {
	case KindDoor:
		return string(s.door)
	case KindContainer:
		return string(s.container)
	case KindLever:
		return string(s.lever)
	}
	return ""
}

// setStateString overlays a persisted position, rejecting values that do not
// belong to the fixture's kind.
func (s *State) setStateString(raw string) error {
	switch s.Def.Kind {
	case KindDoor:
		switch st := ids.DoorState(raw); st {
		case ids.DoorLocked, ids.DoorClosed, ids.DoorOpen:
			s.door = st
			return nil
		}
	case KindContainer:
		switch st := ids.ContainerState(raw); st {
		case ids.ContainerClosed, ids.ContainerOpen:
			s.container = st
			return nil
		}
	case KindLever:
		switch st := ids.LeverState(raw); st {
		case ids.LeverUp, ids.LeverDown:
			s.lever = st
			return nil
		}
	}
	return fmt.Errorf("state %q is not valid for %s %s", raw, s.Def.Kind, s.ID)
}

// Persisted is a fixture position bound for storage.
type Persisted struct {
	ID    ids.FeatureID
	State string
}

// StateStore is the persistence boundary for fixture positions.
type StateStore interface {
	// LoadZone returns every persisted position for fixtures in a zone.
	LoadZone(ctx context.Context, zone string) (map[ids.FeatureID]string, error)
	// SaveStates upserts positions.
	SaveStates(ctx context.Context, states []Persisted) error
}
