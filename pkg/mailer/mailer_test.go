package mailer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestCleanRecipients(t *testing.T) {
	got := CleanRecipients([]string{"a@tell-all.com", "", "  ", "b@tell-all.com", "a@tell-all.com"})

	assert.Equal(t, []string{"a@tell-all.com", "b@tell-all.com"}, got)
}

func TestBuildMessage_OneMessageManyRecipients(t *testing.T) {
	m, err := BuildMessage("no-reply@tell-all.com", Message{
		To:      []string{"a@tell-all.com", "b@tell-all.com", ""},
		Subject: "Published premium posts",
		Body:    "Hello, your pending premium posts have been published",
	})
	require.NoError(t, err)

	rcpts, err := m.GetRecipients()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a@tell-all.com", "b@tell-all.com"}, rcpts)
}

func TestBuildMessage_NoRecipients(t *testing.T) {
	_, err := BuildMessage("no-reply@tell-all.com", Message{To: []string{"", " "}, Subject: "x"})

	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestBuildMessage_InvalidSender(t *testing.T) {
	_, err := BuildMessage("not an address", Message{To: []string{"a@tell-all.com"}, Subject: "x"})

	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestBuildMessage_InvalidRecipient(t *testing.T) {
	_, err := BuildMessage("no-reply@tell-all.com", Message{To: []string{"not an address"}, Subject: "x"})

	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no recipients", ErrNoRecipients, true},
		{"invalid address", fmt.Errorf("%w: recipient", ErrInvalidAddress), true},
		{"unreadable recipients", fmt.Errorf("send failed: %w", &mail.SendError{Reason: mail.ErrGetRcpts}), true},
		{"connection check without server code", &mail.SendError{Reason: mail.ErrConnCheck}, false},
		{"dial failure", errors.New("dial failed: connection refused"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPermanent(tt.err))
		})
	}
}
