// Package bus carries messages between engine instances. Every message
// travels in a JSON envelope stamped with the sending engine's ID; receivers
// drop their own messages so broadcasts may safely include the sender.
// Delivery is best-effort and at-most-once, with no ordering guarantee
// across engines.
package bus

import (
	"encoding/json"
	"fmt"

	"github.com/driftwood-mud/engine/internal/game/ids"
	"github.com/driftwood-mud/engine/internal/game/player"
)

// BroadcastType discriminates global broadcast fan-outs.
type BroadcastType string

const (
	BroadcastGossip   BroadcastType = "GOSSIP"
	BroadcastOOC      BroadcastType = "OOC"
	BroadcastShutdown BroadcastType = "SHUTDOWN"
)

// GlobalBroadcast fans a line out to every session on every engine.
type GlobalBroadcast struct {
	// Type selects the channel the text belongs to.
	Type BroadcastType `json:"type"`
	// SenderName is the originating player, or empty for server notices.
	SenderName string `json:"sender_name,omitempty"`
	// Text is the body.
	Text string `json:"text"`
}

// TellMessage asks whichever engine hosts the recipient to deliver a tell.
// Engines that do not host the recipient drop it.
type TellMessage struct {
	// FromName is the sender.
	FromName string `json:"from_name"`
	// ToName is the recipient.
	ToName string `json:"to_name"`
	// Text is the body.
	Text string `json:"text"`
}

// KickRequest asks whichever engine hosts the target to close their session.
type KickRequest struct {
	// TargetPlayerName is the player to disconnect.
	TargetPlayerName string `json:"target_player_name"`
}

// TransferRequest asks whichever engine hosts the target to move them.
type TransferRequest struct {
	// StaffName is the staff member who issued the transfer.
	StaffName string `json:"staff_name"`
	// TargetPlayerName is the player to move.
	TargetPlayerName string `json:"target_player_name"`
	// TargetRoomID is the destination.
	TargetRoomID ids.RoomID `json:"target_room_id"`
}

// ZoneHandoff migrates a player to the engine serving the target zone.
type ZoneHandoff struct {
	// PlayerName is the migrating player.
	PlayerName string `json:"player_name"`
	// TargetRoomID is where they materialize.
	TargetRoomID ids.RoomID `json:"target_room_id"`
	// Snapshot is the full transferable player state.
	Snapshot player.Record `json:"snapshot"`
}

// Message is a decoded bus message. Exactly one payload field is non-nil.
type Message struct {
	// SourceEngineID identifies the sending engine.
	SourceEngineID string

	Broadcast *GlobalBroadcast
	Tell      *TellMessage
	Kick      *KickRequest
	Transfer  *TransferRequest
	Handoff   *ZoneHandoff
}

// Bus is the inter-engine messaging contract.
type Bus interface {
	// SendTo delivers to exactly one engine, best-effort.
	SendTo(targetEngineID string, msg Message) error
	// Broadcast delivers to every engine, best-effort. The sender's own
	// copy, if any, is dropped before it reaches Incoming.
	Broadcast(msg Message) error
	// Incoming yields messages addressed to this engine. The channel
	// closes when the bus shuts down.
	Incoming() <-chan Message
	// Close tears the bus down.
	Close() error
}

// Envelope kinds on the wire. The hello kind is transport-internal: a
// client's first frame, registering its engine ID with the relay.
const (
	kindHello           = "hello"
	kindGlobalBroadcast = "global_broadcast"
	kindTell            = "tell"
	kindKick            = "kick"
	kindTransfer        = "transfer"
	kindZoneHandoff     = "zone_handoff"
)

// envelope is the wire format. TargetEngineID empty means broadcast.
type envelope struct {
	Type           string          `json:"type"`
	SourceEngineID string          `json:"source_engine_id"`
	TargetEngineID string          `json:"target_engine_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// encodeMessage wraps msg in an envelope. target empty means broadcast.
func encodeMessage(sourceEngineID, targetEngineID string, msg Message) ([]byte, error) {
	var kind string
	var payload any
	switch {
	case msg.Broadcast != nil:
		kind, payload = kindGlobalBroadcast, msg.Broadcast
	case msg.Tell != nil:
		kind, payload = kindTell, msg.Tell
	case msg.Kick != nil:
		kind, payload = kindKick, msg.Kick
	case msg.Transfer != nil:
		kind, payload = kindTransfer, msg.Transfer
	case msg.Handoff != nil:
		kind, payload = kindZoneHandoff, msg.Handoff
	default:
		return nil, fmt.Errorf("bus message has no payload")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", kind, err)
	}
	return json.Marshal(envelope{
		Type:           kind,
		SourceEngineID: sourceEngineID,
		TargetEngineID: targetEngineID,
		Payload:        raw,
	})
}

// decodeMessage parses an envelope back into a Message.
func decodeMessage(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("parsing bus envelope: %w", err)
	}
	return envelopeToMessage(env)
}

func envelopeToMessage(env envelope) (Message, error) {
	msg := Message{SourceEngineID: env.SourceEngineID}
	var payload any
	switch env.Type {
	case kindGlobalBroadcast:
		msg.Broadcast = &GlobalBroadcast{}
		payload = msg.Broadcast
	case kindTell:
		msg.Tell = &TellMessage{}
		payload = msg.Tell
	case kindKick:
		msg.Kick = &KickRequest{}
		payload = msg.Kick
	case kindTransfer:
		msg.Transfer = &TransferRequest{}
		payload = msg.Transfer
	case kindZoneHandoff:
		msg.Handoff = &ZoneHandoff{}
		payload = msg.Handoff
	default:
		return Message{}, fmt.Errorf("unknown bus message type %q", env.Type)
	}
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return Message{}, fmt.Errorf("parsing %s payload: %w", env.Type, err)
	}
	return msg, nil
}

// helloFrame is a client's first frame to the relay.
func helloFrame(engineID string) ([]byte, error) {
	return json.Marshal(envelope{Type: kindHello, SourceEngineID: engineID})
}

// FrameHeader is the routing-relevant prefix of an envelope. The relay
// parses only this much and forwards frames opaquely.
type FrameHeader struct {
	Type           string `json:"type"`
	SourceEngineID string `json:"source_engine_id"`
	TargetEngineID string `json:"target_engine_id,omitempty"`
}

// IsHello reports whether the frame registers an engine with the relay.
func (h FrameHeader) IsHello() bool {
	return h.Type == kindHello
}

// ParseFrameHeader extracts routing fields from a raw frame.
func ParseFrameHeader(data []byte) (FrameHeader, error) {
	var h FrameHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return FrameHeader{}, fmt.Errorf("parsing bus frame header: %w", err)
	}
	if h.Type == "" {
		return FrameHeader{}, fmt.Errorf("bus frame missing type")
	}
	return h, nil
}
