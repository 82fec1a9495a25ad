package entity

import (
	"strings"
	"time"
)

// Sender identifies who submitted a prompt and where replies go
type Sender struct {
	UserID   int64
	ChatID   int64
	Username string
}

// Prompt is non-empty text a user submitted for generation
type Prompt struct {
	Text        string
	UserID      int64
	RequestID   string
	SubmittedAt time.Time
}

// NewPrompt validates raw text and builds a Prompt.
// Empty or whitespace-only text is rejected with ErrEmptyPrompt.
func NewPrompt(sender Sender, text, requestID string, now time.Time) (Prompt, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Prompt{}, ErrEmptyPrompt
	}
	return Prompt{
		Text:        text,
		UserID:      sender.UserID,
		RequestID:   requestID,
		SubmittedAt: now,
	}, nil
}
