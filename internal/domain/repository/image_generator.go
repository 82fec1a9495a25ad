package repository

import (
	"context"

	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
)

// ImageGenerator wraps one generative-image provider
type ImageGenerator interface {
	// ID stable provider identifier used in notices, config and metrics
	ID() string

	// Label human readable name shown on choice buttons and captions
	Label() string

	// Generate issues one logical request. Failures come back inside the
	// result, never as a separate error.
	Generate(ctx context.Context, prompt entity.Prompt) entity.ImageResult
}
