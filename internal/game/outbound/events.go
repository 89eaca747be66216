// Package outbound carries events from command handlers to each session's
// I/O writer: ordered per-session queues of text, prompt, and close events.
package outbound

import "github.com/driftwood-mud/engine/internal/game/ids"

// Kind discriminates outbound event variants.
type Kind uint8

// Outbound event kinds.
const (
	// KindText is plain game text.
	KindText Kind = iota
	// KindInfo is informational text (system notices, dialogue prompts).
	KindInfo
	// KindError is a command error shown to the player.
	KindError
	// KindPrompt carries the rendered input prompt. The writer emits it
	// without a trailing newline.
	KindPrompt
	// KindEchoOff asks the writer to stop echoing client input. Used for
	// password entry.
	KindEchoOff
	// KindEchoOn restores input echo.
	KindEchoOn
	// KindClose tears the session down after all pending events are written.
	KindClose
)

// String returns the kind name for logs and tests.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInfo:
		return "info"
	case KindError:
		return "error"
	case KindPrompt:
		return "prompt"
	case KindEchoOff:
		return "echo_off"
	case KindEchoOn:
		return "echo_on"
	case KindClose:
		return "close"
	default:
		return "unknown"
	}
}

// Essential reports whether the event kind must survive backpressure
// degradation. Prompts, errors, echo toggles, and closes are never dropped
// by handlers; plain text and info broadcasts may be.
func (k Kind) Essential() bool {
	switch k {
	case KindError, KindPrompt, KindEchoOff, KindEchoOn, KindClose:
		return true
	default:
		return false
	}
}

// Event is a single outbound item for one session.
type Event struct {
	// Session is the recipient.
	Session ids.SessionID
	// Kind discriminates the variant.
	Kind Kind
	// Text is the payload for text, info, and error events.
	Text string
}

// Text builds a plain text event.
func Text(sid ids.SessionID, text string) Event {
	return Event{Session: sid, Kind: KindText, Text: text}
}

// Info builds an informational event.
func Info(sid ids.SessionID, text string) Event {
	return Event{Session: sid, Kind: KindInfo, Text: text}
}

// Error builds a command error event.
func Error(sid ids.SessionID, text string) Event {
	return Event{Session: sid, Kind: KindError, Text: text}
}

// Prompt builds a prompt event carrying the rendered prompt text.
func Prompt(sid ids.SessionID, text string) Event {
	return Event{Session: sid, Kind: KindPrompt, Text: text}
}

// EchoOff builds an echo-suppression event.
func EchoOff(sid ids.SessionID) Event {
	return Event{Session: sid, Kind: KindEchoOff}
}

// EchoOn builds an echo-restore event.
func EchoOn(sid ids.SessionID) Event {
	return Event{Session: sid, Kind: KindEchoOn}
}

// Close builds a session close event.
func Close(sid ids.SessionID) Event {
	return Event{Session: sid, Kind: KindClose}
}
