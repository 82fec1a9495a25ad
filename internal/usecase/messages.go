package usecase

import (
	"fmt"
	"strings"

	"github.com/yourusername/telegram-image-bot/internal/domain/repository"
)

const (
	greetingText          = "👋 Send me a prompt and I will generate an image for it!"
	emptyPromptText       = "✏️ The prompt is empty. Please describe the image you want."
	chooseText            = "🎨 Which model should draw this?"
	unknownChoiceText     = "🤔 Unknown choice. Please use one of the buttons."
	selectionNotFoundText = "⌛ There is no prompt waiting for a choice. Please send your prompt again."
	internalErrorText     = "❌ Something went wrong. Please try again."
	deliveryFailedText    = "❌ The image was generated but could not be sent."
)

func progressText(label string) string {
	if label == "" {
		return "✨ Generating images..."
	}
	return fmt.Sprintf("✨ Generating an image with %s...", label)
}

func failureText(gen repository.ImageGenerator) string {
	return fmt.Sprintf("❌ %s [%s] could not generate an image.", gen.Label(), gen.ID())
}

func allFailedText(ids []string) string {
	return fmt.Sprintf("❌ All models failed to generate an image [%s]. Please try again later.", strings.Join(ids, ", "))
}

func fallbackText(failed []string, used string) string {
	return fmt.Sprintf("⚠️ %s was unavailable, this image comes from %s.", strings.Join(failed, ", "), used)
}

func caption(label string, i, n int) string {
	if n <= 1 {
		return "🖼 " + label
	}
	return fmt.Sprintf("🖼 %s (%d/%d)", label, i+1, n)
}
