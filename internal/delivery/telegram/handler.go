package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
	"github.com/yourusername/telegram-image-bot/internal/usecase"
	"go.uber.org/zap"
)

// BotHandler routes Telegram updates into the dispatch workflow
type BotHandler struct {
	bot      *tgbotapi.BotAPI
	dispatch usecase.DispatchUseCase
	logger   *zap.Logger

	// in-flight update handlers
	wg sync.WaitGroup
}

// NewBotHandler creates the update router
func NewBotHandler(bot *tgbotapi.BotAPI, dispatch usecase.DispatchUseCase, logger *zap.Logger) *BotHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BotHandler{
		bot:      bot,
		dispatch: dispatch,
		logger:   logger.With(zap.String("component", "telegram")),
	}
}

// Start long-polls for updates until ctx is done. Any registered webhook
// is removed first, Telegram refuses getUpdates while one is set.
func (h *BotHandler) Start(ctx context.Context) error {
	if _, err := h.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	h.logger.Info("bot started (polling)", zap.String("username", h.bot.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)
	defer h.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("bot stopping")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.dispatchAsync(ctx, update)
		}
	}
}

// WebhookHandler accepts updates pushed by Telegram. The update is
// acknowledged at once and handled in the background under ctx.
func (h *BotHandler) WebhookHandler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		update, err := h.bot.HandleUpdate(r)
		if err != nil {
			h.logger.Warn("bad webhook request", zap.String("method", r.Method), zap.Error(err))
			status := http.StatusBadRequest
			if r.Method != http.MethodPost {
				status = http.StatusMethodNotAllowed
			}
			http.Error(w, err.Error(), status)
			return
		}

		h.dispatchAsync(ctx, *update)
		w.WriteHeader(http.StatusOK)
	})
}

// Wait blocks until every in-flight update has been handled
func (h *BotHandler) Wait() {
	h.wg.Wait()
}

func (h *BotHandler) dispatchAsync(ctx context.Context, update tgbotapi.Update) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.HandleUpdate(ctx, update)
	}()
}

// HandleUpdate processes a single update synchronously.
func (h *BotHandler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic while handling update", zap.Int("update_id", update.UpdateID), zap.Any("panic", r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *BotHandler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}
	sender := senderOf(message.From, message.Chat.ID)

	if message.IsCommand() {
		h.handleCommand(ctx, sender, message)
		return
	}

	outcome := h.dispatch.SubmitPrompt(ctx, sender, message.Text)
	h.logOutcome("prompt handled", sender, outcome)
}

func (h *BotHandler) handleCommand(ctx context.Context, sender entity.Sender, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		h.dispatch.Start(ctx, sender)
	case "help":
		h.dispatch.Help(ctx, sender)
	default:
		h.sendMessage(sender.ChatID, "Unknown command. See /help.")
	}
}

func (h *BotHandler) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	// stop the button spinner
	if _, err := h.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		h.logger.Warn("failed to answer callback", zap.Error(err))
	}

	if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
		return
	}

	providerID, ok := usecase.ParseChoiceToken(cq.Data)
	if !ok {
		h.logger.Debug("ignoring callback", zap.String("data", cq.Data))
		return
	}

	sender := senderOf(cq.From, cq.Message.Chat.ID)

	outcome := h.dispatch.Select(ctx, sender, providerID)
	h.logOutcome("selection handled", sender, outcome)

	switch outcome.Class {
	case entity.OutcomeNoSelection, entity.OutcomeRejected:
		return
	}
	if label := buttonLabel(cq.Message.ReplyMarkup, cq.Data); label != "" {
		h.editMessage(sender.ChatID, cq.Message.MessageID, fmt.Sprintf("%s\n\n✅ %s", cq.Message.Text, label))
	}
}

func (h *BotHandler) logOutcome(msg string, sender entity.Sender, outcome entity.Outcome) {
	h.logger.Info(msg,
		zap.Int64("user_id", sender.UserID),
		zap.String("request_id", outcome.RequestID),
		zap.String("outcome", string(outcome.Class)),
		zap.Int("delivered", outcome.Delivered),
		zap.Strings("failed", outcome.Failed),
	)
}

// sendMessage is for transport-level replies that bypass the workflow
func (h *BotHandler) sendMessage(chatID int64, text string) {
	if _, err := h.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// editMessage replaces the text and drops the inline keyboard
func (h *BotHandler) editMessage(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := h.bot.Send(edit); err != nil {
		h.logger.Warn("failed to edit message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func senderOf(user *tgbotapi.User, chatID int64) entity.Sender {
	username := user.UserName
	if username == "" {
		username = user.FirstName
	}
	return entity.Sender{UserID: user.ID, ChatID: chatID, Username: username}
}

func buttonLabel(markup *tgbotapi.InlineKeyboardMarkup, data string) string {
	if markup == nil {
		return ""
	}
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil && *btn.CallbackData == data {
				return btn.Text
			}
		}
	}
	return ""
}
