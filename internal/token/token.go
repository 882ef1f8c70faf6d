// Package token encodes and decodes the callback payloads carried by the
// inline buttons of request cards.
//
// Two shapes exist, with a fixed space-separated field order:
//
//	<ACTION> message=<messageId> group=<groupId> [refreshShow=<cardMessageId>]
//	confirm message=<messageId> group=<groupId> action=<ACTION>
//
// The first one executes an action; the second is the envelope a card button
// emits, which only asks for confirmation.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shelfmark/shelfmark/internal/models"
)

// Field prefixes of the callback grammar.
const (
	fieldMessage     = "message="
	fieldGroup       = "group="
	fieldAction      = "action="
	fieldRefreshShow = "refreshShow="

	confirmPrefix = "confirm"
)

// ErrMalformed is returned for payloads that do not match the grammar.
var ErrMalformed = errors.New("malformed callback token")

// Token is a decoded callback payload, either an Action or a Confirm envelope.
type Token interface {
	Encode() string
	isToken()
}

// Action orders an action on a request. RefreshShow, when non-zero, is the
// message id of the card to delete and re-render after the action runs.
type Action struct {
	Action      models.Action
	MessageID   int64
	GroupID     int64
	RefreshShow int64
}

func (t Action) isToken() {}

// Encode renders the token in wire form.
func (t Action) Encode() string {
	var b strings.Builder
	b.WriteString(string(t.Action))
	b.WriteString(" " + fieldMessage)
	b.WriteString(strconv.FormatInt(t.MessageID, 10))
	b.WriteString(" " + fieldGroup)
	b.WriteString(strconv.FormatInt(t.GroupID, 10))
	if t.RefreshShow != 0 {
		b.WriteString(" " + fieldRefreshShow)
		b.WriteString(strconv.FormatInt(t.RefreshShow, 10))
	}
	return b.String()
}

// Confirm is the envelope emitted by a card button: it names the action the
// user picked but does not execute it.
type Confirm struct {
	Action    models.Action
	MessageID int64
	GroupID   int64
}

func (t Confirm) isToken() {}

// Encode renders the envelope in wire form.
func (t Confirm) Encode() string {
	return fmt.Sprintf("%s %s%d %s%d %s%s",
		confirmPrefix, fieldMessage, t.MessageID, fieldGroup, t.GroupID, fieldAction, t.Action)
}

// Unwrap converts the envelope into the executable token it stands for.
// refreshShow is the message id of the card the envelope came from.
func (t Confirm) Unwrap(refreshShow int64) Action {
	return Action{
		Action:      t.Action,
		MessageID:   t.MessageID,
		GroupID:     t.GroupID,
		RefreshShow: refreshShow,
	}
}

// Decode parses a callback payload. Malformed input yields ErrMalformed,
// never a panic.
func Decode(payload string) (Token, error) {
	fields := strings.Fields(payload)
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, payload)
	}

	messageID, err := fieldInt(fields[1], fieldMessage)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, payload)
	}
	groupID, err := fieldInt(fields[2], fieldGroup)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, payload)
	}

	if strings.EqualFold(fields[0], confirmPrefix) {
		if len(fields) != 4 || !strings.HasPrefix(fields[3], fieldAction) {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, payload)
		}
		action, err := models.ParseAction(strings.TrimPrefix(fields[3], fieldAction))
		if err != nil || action == models.ActionConfirm {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, payload)
		}
		return Confirm{Action: action, MessageID: messageID, GroupID: groupID}, nil
	}

	action, err := models.ParseAction(fields[0])
	if err != nil || action == models.ActionConfirm {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, payload)
	}
	tok := Action{Action: action, MessageID: messageID, GroupID: groupID}
	switch len(fields) {
	case 3:
	case 4:
		refresh, err := fieldInt(fields[3], fieldRefreshShow)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, payload)
		}
		tok.RefreshShow = refresh
	default:
		return nil, fmt.Errorf("%w: %q", ErrMalformed, payload)
	}
	return tok, nil
}

func fieldInt(field, prefix string) (int64, error) {
	if !strings.HasPrefix(field, prefix) {
		return 0, ErrMalformed
	}
	return strconv.ParseInt(strings.TrimPrefix(field, prefix), 10, 64)
}
