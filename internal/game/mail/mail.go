// Package mail defines player mail messages, the compose buffer, and the
// inbox operations shared by the live engine and the persistence layer.
//
// Inboxes are stored oldest-first (ascending sent time, stable for ties) and
// displayed newest-first; the 1-based indices players type refer to the
// displayed order.
package mail

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Message is one delivered mail item.
type Message struct {
	// ID is the message identity.
	ID string `json:"id"`
	// FromName is the sender's player name.
	FromName string `json:"from"`
	// Body is the full message text; compose lines joined with newlines.
	Body string `json:"body"`
	// SentAtEpochMs is the delivery timestamp.
	SentAtEpochMs int64 `json:"sent_at_ms"`
	// Read is set once the recipient reads the message.
	Read bool `json:"read"`
}

// NewMessage builds a message with a fresh identity.
func NewMessage(fromName, body string, sentAtMs int64) Message {
	return Message{
		ID:            uuid.NewString(),
		FromName:      fromName,
		Body:          body,
		SentAtEpochMs: sentAtMs,
	}
}

// Compose is the in-progress mail buffer held while a player writes.
// Input lines accumulate until a lone "." ends composition.
type Compose struct {
	// RecipientName is the target player name as typed.
	RecipientName string
	// Lines are the buffered body lines, in input order.
	Lines []string
}

// AddLine appends one body line.
func (c *Compose) AddLine(line string) {
	c.Lines = append(c.Lines, line)
}

// Body joins the buffered lines with newlines.
func (c *Compose) Body() string {
	return strings.Join(c.Lines, "\n")
}

// Empty reports whether nothing has been written yet.
func (c *Compose) Empty() bool {
	return len(c.Lines) == 0
}

// Append adds m to an inbox, keeping ascending sent-time order. Messages
// with equal timestamps keep their arrival order.
func Append(inbox []Message, m Message) []Message {
	i := len(inbox)
	for i > 0 && inbox[i-1].SentAtEpochMs > m.SentAtEpochMs {
		i--
	}
	inbox = append(inbox, Message{})
	copy(inbox[i+1:], inbox[i:])
	inbox[i] = m
	return inbox
}

// At returns the message at display position n (1 = newest).
//
// Postcondition: Returns an error when n is out of range.
func At(inbox []Message, n int) (*Message, error) {
	pos, err := storageIndex(inbox, n)
	if err != nil {
		return nil, err
	}
	return &inbox[pos], nil
}

// Delete removes the message at display position n (1 = newest).
//
// Postcondition: Returns the shortened inbox and the removed message, or an
// error when n is out of range.
func Delete(inbox []Message, n int) ([]Message, Message, error) {
	pos, err := storageIndex(inbox, n)
	if err != nil {
		return inbox, Message{}, err
	}
	removed := inbox[pos]
	return append(inbox[:pos], inbox[pos+1:]...), removed, nil
}

// Unread counts messages not yet read.
func Unread(inbox []Message) int {
	count := 0
	for i := range inbox {
		if !inbox[i].Read {
			count++
		}
	}
	return count
}

// storageIndex maps a 1-based newest-first display position to a storage
// slice index.
func storageIndex(inbox []Message, n int) (int, error) {
	if n < 1 || n > len(inbox) {
		return 0, fmt.Errorf("no mail at position %d", n)
	}
	return len(inbox) - n, nil
}
