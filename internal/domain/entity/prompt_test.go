package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrompt(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	sender := Sender{UserID: 7, ChatID: 70}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"plain", "a red fox", "a red fox", nil},
		{"trimmed", "  a red fox \n", "a red fox", nil},
		{"empty", "", "", ErrEmptyPrompt},
		{"spaces", "   ", "", ErrEmptyPrompt},
		{"tabs and newlines", "\t\n ", "", ErrEmptyPrompt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPrompt(sender, tt.input, "req-1", now)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Text)
			assert.Equal(t, int64(7), p.UserID)
			assert.Equal(t, "req-1", p.RequestID)
			assert.Equal(t, now, p.SubmittedAt)
		})
	}
}

func TestPendingSelectionExpired(t *testing.T) {
	now := time.Now()

	assert.False(t, PendingSelection{}.Expired(now))
	assert.False(t, PendingSelection{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	assert.True(t, PendingSelection{ExpiresAt: now}.Expired(now))
	assert.True(t, PendingSelection{ExpiresAt: now.Add(-time.Second)}.Expired(now))
}
