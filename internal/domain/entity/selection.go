package entity

import "time"

// PendingSelection is a prompt parked while its user picks a backend
type PendingSelection struct {
	UserID    int64
	ChatID    int64
	Username  string
	Prompt    Prompt
	CreatedAt time.Time
	// zero ExpiresAt means no expiry
	ExpiresAt time.Time
}

// Expired reports whether the selection is past its expiry at now
func (p PendingSelection) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}
