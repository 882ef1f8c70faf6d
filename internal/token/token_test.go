package token

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/models"
)

func TestActionRoundTrip(t *testing.T) {
	t.Parallel()

	tokens := []Action{
		{Action: models.ActionDone, MessageID: 42, GroupID: -1001234},
		{Action: models.ActionRemove, MessageID: 7, GroupID: 99, RefreshShow: 512},
		{Action: models.ActionPending, MessageID: 1, GroupID: 1},
	}
	for _, tok := range tokens {
		decoded, err := Decode(tok.Encode())
		require.NoError(t, err, tok.Encode())
		assert.Equal(t, tok, decoded)
	}
}

func TestConfirmRoundTrip(t *testing.T) {
	t.Parallel()

	tok := Confirm{Action: models.ActionCancel, MessageID: 42, GroupID: -55}
	assert.Equal(t, "confirm message=42 group=-55 action=CANCEL", tok.Encode())

	decoded, err := Decode(tok.Encode())
	require.NoError(t, err)
	assert.Equal(t, tok, decoded)
}

func TestUnwrapMatchesDirectAction(t *testing.T) {
	t.Parallel()

	envelope := Confirm{Action: models.ActionDone, MessageID: 10, GroupID: 20}
	unwrapped := envelope.Unwrap(33)
	assert.Equal(t, Action{Action: models.ActionDone, MessageID: 10, GroupID: 20, RefreshShow: 33}, unwrapped)

	decoded, err := Decode(unwrapped.Encode())
	require.NoError(t, err)
	assert.Equal(t, unwrapped, decoded)
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	payloads := []string{
		"",
		"DONE",
		"DONE message=1",
		"DONE message=x group=2",
		"DONE group=2 message=1",
		"DONE message=1 group=2 refreshShow=abc",
		"DONE message=1 group=2 refreshShow=3 extra=4",
		"CONFIRM message=1 group=2",
		"confirm message=1 group=2",
		"confirm message=1 group=2 action=CONFIRM",
		"confirm message=1 group=2 action=NOPE",
		"SHRED message=1 group=2",
	}
	for _, payload := range payloads {
		_, err := Decode(payload)
		assert.True(t, errors.Is(err, ErrMalformed), "expected ErrMalformed for %q, got %v", payload, err)
	}
}
