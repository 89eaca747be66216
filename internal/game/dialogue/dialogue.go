// Package dialogue defines NPC dialogue trees and the per-session state a
// player walks through them with. Trees are static world content; choices
// are picked with bare digit commands 1..9.
package dialogue

import (
	"fmt"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

// MaxChoices is the most choices a node may offer; choices map to the digit
// commands 1..9.
const MaxChoices = 9

// ActionKind discriminates choice side-effects.
type ActionKind string

// Choice actions.
const (
	// ActionGiveItem mints an item of the named template into the player's
	// inventory.
	ActionGiveItem ActionKind = "give_item"
	// ActionGrantXp awards experience.
	ActionGrantXp ActionKind = "grant_xp"
	// ActionSetRecall sets the player's recall point to the current room
	// (or to Room when given).
	ActionSetRecall ActionKind = "set_recall"
	// ActionRunScript invokes a named zone script hook.
	ActionRunScript ActionKind = "run_script"
)

// Action is one side-effect applied when a choice is picked.
type Action struct {
	// Kind discriminates the action.
	Kind ActionKind
	// Item is the template keyword for give_item.
	Item string
	// Xp is the amount for grant_xp.
	Xp int
	// Room overrides the recall target for set_recall. Empty = current room.
	Room ids.RoomID
	// Script is the hook name for run_script.
	Script string
}

// Choice is one numbered option on a node.
type Choice struct {
	// Text is shown after the choice number.
	Text string
	// Next is the node to move to. Empty ends the dialogue after actions.
	Next string
	// Actions run before the transition.
	Actions []Action
}

// Node is one dialogue step: a prompt plus numbered choices.
type Node struct {
	// ID names the node within its tree.
	ID string
	// Prompt is the NPC's line for this step.
	Prompt string
	// Choices are the numbered options, at most MaxChoices.
	Choices []Choice
}

// Tree is a full dialogue for one NPC template.
type Tree struct {
	// ID names the tree; mob templates reference it.
	ID string
	// Start is the entry node.
	Start string
	// Nodes holds all nodes keyed by ID.
	Nodes map[string]*Node
}

// Validate checks tree invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first
// violation.
func (t *Tree) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("dialogue tree ID must not be empty")
	}
	if len(t.Nodes) == 0 {
		return fmt.Errorf("dialogue %q: must contain at least one node", t.ID)
	}
	if _, ok := t.Nodes[t.Start]; !ok {
		return fmt.Errorf("dialogue %q: start node %q not found", t.ID, t.Start)
	}
	for id, node := range t.Nodes {
		if node.ID != id {
			return fmt.Errorf("dialogue %q: node key %q does not match node ID %q", t.ID, id, node.ID)
		}
		if node.Prompt == "" {
			return fmt.Errorf("dialogue %q: node %q: prompt must not be empty", t.ID, id)
		}
		if len(node.Choices) == 0 {
			return fmt.Errorf("dialogue %q: node %q: must offer at least one choice", t.ID, id)
		}
		if len(node.Choices) > MaxChoices {
			return fmt.Errorf("dialogue %q: node %q: %d choices exceeds the maximum of %d", t.ID, id, len(node.Choices), MaxChoices)
		}
		for i, choice := range node.Choices {
			if choice.Text == "" {
				return fmt.Errorf("dialogue %q: node %q: choice %d has empty text", t.ID, id, i+1)
			}
			if choice.Next != "" {
				if _, ok := t.Nodes[choice.Next]; !ok {
					return fmt.Errorf("dialogue %q: node %q: choice %d targets unknown node %q", t.ID, id, i+1, choice.Next)
				}
			}
			for _, action := range choice.Actions {
				switch action.Kind {
				case ActionGiveItem:
					if action.Item == "" {
						return fmt.Errorf("dialogue %q: node %q: give_item action missing item", t.ID, id)
					}
				case ActionGrantXp:
					if action.Xp <= 0 {
						return fmt.Errorf("dialogue %q: node %q: grant_xp action needs a positive amount", t.ID, id)
					}
				case ActionSetRecall:
				case ActionRunScript:
					if action.Script == "" {
						return fmt.Errorf("dialogue %q: node %q: run_script action missing script", t.ID, id)
					}
				default:
					return fmt.Errorf("dialogue %q: node %q: unknown action kind %q", t.ID, id, action.Kind)
				}
			}
		}
	}
	return nil
}

// State tracks one session's position in a dialogue. Cleared on movement,
// combat engagement, or look.
type State struct {
	// NpcMobID is the mob the player is talking to.
	NpcMobID ids.MobID
	// TreeID names the tree being walked.
	TreeID string
	// NodeID is the current node.
	NodeID string
	// Visited records every node seen this conversation.
	Visited map[string]bool
}

// NewState starts a dialogue at the tree's entry node.
func NewState(npc ids.MobID, tree *Tree) *State {
	return &State{
		NpcMobID: npc,
		TreeID:   tree.ID,
		NodeID:   tree.Start,
		Visited:  map[string]bool{tree.Start: true},
	}
}

// Pick resolves digit choice n (1-based) on the current node.
//
// Postcondition: Returns the chosen Choice, or an error when n is out of
// range for the node.
func (s *State) Pick(tree *Tree, n int) (*Choice, error) {
	node, ok := tree.Nodes[s.NodeID]
	if !ok {
		return nil, fmt.Errorf("dialogue %q: current node %q vanished", tree.ID, s.NodeID)
	}
	if n < 1 || n > len(node.Choices) {
		return nil, fmt.Errorf("there is no choice %d", n)
	}
	return &node.Choices[n-1], nil
}

// Advance moves to the chosen node.
//
// Postcondition: Returns false when the choice ends the dialogue.
func (s *State) Advance(choice *Choice) bool {
	if choice.Next == "" {
		return false
	}
	s.NodeID = choice.Next
	s.Visited[choice.Next] = true
	return true
}
