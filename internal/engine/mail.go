package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/game/command"
	"github.com/driftwood-mud/engine/internal/game/mail"
	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
)

const mailSummaryWidth = 40

func (e *Engine) cmdMail(st *player.State, cmd command.Command) {
	switch cmd.Sub {
	case "list":
		e.listMail(st)
	case "read":
		e.readMail(st, cmd.N)
	case "delete":
		e.deleteMail(st, cmd.N)
	case "send":
		e.startCompose(st, cmd.Target)
	case "abort":
		e.abortCompose(st)
	}
}

func (e *Engine) listMail(st *player.State) {
	sid := st.Session
	if len(st.Inbox) == 0 {
		e.push(outbound.Text(sid, "You have no mail."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Info(sid, fmt.Sprintf("Your mailbox (%d messages, %d unread):",
		len(st.Inbox), mail.Unread(st.Inbox))))
	for n := 1; n <= len(st.Inbox); n++ {
		m, err := mail.At(st.Inbox, n)
		if err != nil {
			break
		}
		marker := "     "
		if !m.Read {
			marker = "[NEW]"
		}
		e.push(outbound.Text(sid, fmt.Sprintf("  %2d) %s %s: %s", n, marker, m.FromName, mailSummary(m.Body))))
	}
	e.prompt(sid)
}

// mailSummary collapses a body to its first line, truncated for listing.
func mailSummary(body string) string {
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[:i]
	}
	if len(body) > mailSummaryWidth {
		body = body[:mailSummaryWidth-3] + "..."
	}
	return body
}

func (e *Engine) readMail(st *player.State, n int) {
	sid := st.Session
	m, err := mail.At(st.Inbox, n)
	if err != nil {
		e.push(outbound.Error(sid, "There is no such message."))
		e.prompt(sid)
		return
	}
	e.push(outbound.Info(sid, fmt.Sprintf("From %s:", m.FromName)))
	for _, line := range strings.Split(m.Body, "\n") {
		e.push(outbound.Text(sid, "  "+line))
	}
	if !m.Read {
		m.Read = true
		st.Dirty = true
	}
	e.prompt(sid)
}

func (e *Engine) deleteMail(st *player.State, n int) {
	sid := st.Session
	inbox, removed, err := mail.Delete(st.Inbox, n)
	if err != nil {
		e.push(outbound.Error(sid, "There is no such message."))
		e.prompt(sid)
		return
	}
	st.Inbox = inbox
	st.Dirty = true
	e.push(outbound.Text(sid, fmt.Sprintf("Deleted the message from %s.", removed.FromName)))
	e.prompt(sid)
}

// startCompose verifies the recipient exists, then flips the session into
// compose mode. The existence check may hit the repository, so the flip
// happens in the applied closure.
func (e *Engine) startCompose(st *player.State, target string) {
	sid := st.Session
	if st.Compose != nil {
		e.push(outbound.Error(sid, "You are already composing a message."))
		e.prompt(sid)
		return
	}
	if other, ok := e.players.ByName(target); ok {
		e.beginComposeTo(st, other.Name)
		return
	}
	var rec *player.Record
	e.offload(func(ctx context.Context) error {
		var err error
		rec, err = e.repo.FindByName(ctx, target)
		return err
	}, func(err error) {
		cur, ok := e.players.Get(sid)
		if !ok || cur != st {
			return
		}
		switch {
		case errors.Is(err, player.ErrNotFound):
			e.push(outbound.Error(sid, "No such player."))
			e.prompt(sid)
		case err != nil:
			e.log.Error("mail recipient lookup", zap.String("recipient", target), zap.Error(err))
			e.push(outbound.Error(sid, "Internal error."))
			e.prompt(sid)
		default:
			e.beginComposeTo(st, rec.Name)
		}
	})
}

func (e *Engine) beginComposeTo(st *player.State, recipient string) {
	st.Compose = &mail.Compose{RecipientName: recipient}
	e.push(outbound.Info(st.Session, fmt.Sprintf("Composing to %s. End with a single '.' on its own line.", recipient)))
	e.prompt(st.Session)
}

func (e *Engine) abortCompose(st *player.State) {
	sid := st.Session
	if st.Compose == nil {
		e.push(outbound.Error(sid, "You aren't composing a message."))
		e.prompt(sid)
		return
	}
	st.Compose = nil
	e.push(outbound.Text(sid, "Message aborted."))
	e.prompt(sid)
}

// composeLine consumes one input line while the session is in compose mode.
// A lone "." finalizes, "mail abort" cancels, a nested "mail send" errors,
// and anything else buffers verbatim.
func (e *Engine) composeLine(st *player.State, line string) {
	sid := st.Session
	trimmed := strings.TrimSpace(line)
	lower := strings.ToLower(trimmed)
	switch {
	case trimmed == ".":
		if st.Compose.Empty() {
			e.push(outbound.Error(sid, "Message body is empty."))
			e.prompt(sid)
			return
		}
		e.deliverMail(st)
	case lower == "mail abort":
		e.abortCompose(st)
	case strings.HasPrefix(lower, "mail send"):
		e.push(outbound.Error(sid, "You are already composing a message."))
		e.prompt(sid)
	default:
		st.Compose.AddLine(line)
		e.prompt(sid)
	}
}

func (e *Engine) deliverMail(st *player.State) {
	sid := st.Session
	recipient := st.Compose.RecipientName
	msg := mail.NewMessage(st.Name, st.Compose.Body(), e.now())
	st.Compose = nil

	if other, ok := e.players.ByName(recipient); ok {
		other.Inbox = mail.Append(other.Inbox, msg)
		other.Dirty = true
		e.notify(other.Session, outbound.Text(other.Session, fmt.Sprintf("You have new mail from %s.", msg.FromName)))
		e.push(outbound.Text(sid, "Your message has been sent."))
		e.prompt(sid)
		return
	}

	e.offload(func(ctx context.Context) error {
		rec, err := e.repo.FindByName(ctx, recipient)
		if err != nil {
			return err
		}
		rec.Inbox = mail.Append(rec.Inbox, msg)
		return e.repo.Save(ctx, rec)
	}, func(err error) {
		switch {
		case errors.Is(err, player.ErrNotFound):
			e.push(outbound.Error(sid, "No such player."))
		case err != nil:
			e.log.Error("offline mail delivery",
				zap.String("recipient", recipient), zap.Error(err))
			e.push(outbound.Error(sid, "Your message could not be delivered."))
		default:
			e.push(outbound.Text(sid, "Your message has been sent."))
		}
		e.prompt(sid)
	})
}
