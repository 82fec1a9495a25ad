package repository

import (
	"context"

	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
)

// SelectionRepository holds prompts waiting for a backend choice
type SelectionRepository interface {
	// Put stores the selection, replacing any earlier one for the same user
	Put(ctx context.Context, selection entity.PendingSelection) error

	// Take atomically removes and returns the user's selection.
	// Missing or expired entries yield entity.ErrSelectionNotFound.
	Take(ctx context.Context, userID int64) (*entity.PendingSelection, error)

	// Close releases the underlying store
	Close() error
}
