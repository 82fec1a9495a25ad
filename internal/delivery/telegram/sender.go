package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
	"github.com/yourusername/telegram-image-bot/internal/usecase"
)

// Sender delivers workflow output through the Bot API.
type Sender struct {
	bot *tgbotapi.BotAPI
}

// NewSender wraps bot as a usecase.Notifier
func NewSender(bot *tgbotapi.BotAPI) *Sender {
	return &Sender{bot: bot}
}

var _ usecase.Notifier = (*Sender)(nil)

func (s *Sender) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	return nil
}

// SendImage uploads the image bytes as a photo.
func (s *Sender) SendImage(ctx context.Context, chatID int64, image entity.Image, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  "image" + extension(image.MIMEType),
		Bytes: image.Data,
	})
	photo.Caption = caption

	if _, err := s.bot.Send(photo); err != nil {
		return fmt.Errorf("sendPhoto: %w", err)
	}
	return nil
}

// PresentChoices sends text with one inline button per choice.
func (s *Sender) PresentChoices(ctx context.Context, chatID int64, text string, choices []usecase.Choice) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for _, c := range choices {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Token),
		))
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("sendMessage with keyboard: %w", err)
	}
	return nil
}

func extension(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
