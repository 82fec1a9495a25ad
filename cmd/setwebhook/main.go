// Command setwebhook registers WEBHOOK_URL with Telegram and prints the
// webhook state the Bot API reports back.
package main

import (
	"flag"
	"fmt"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yourusername/telegram-image-bot/config"
	"github.com/yourusername/telegram-image-bot/internal/infrastructure/logging"
	"go.uber.org/zap"
)

func main() {
	remove := flag.Bool("delete", false, "remove the webhook instead of setting it")
	drop := flag.Bool("drop-pending", false, "drop updates queued while no consumer was running")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *remove, *drop); err != nil {
		logger.Error("webhook update failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger, remove, drop bool) error {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	if remove {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: drop}); err != nil {
			return fmt.Errorf("deleteWebhook: %w", err)
		}
		logger.Info("webhook deleted", zap.String("bot", bot.Self.UserName))
	} else {
		if !cfg.UseWebhook() {
			return fmt.Errorf("WEBHOOK_URL is not set")
		}
		wh, err := tgbotapi.NewWebhook(cfg.WebhookEndpoint())
		if err != nil {
			return fmt.Errorf("invalid webhook url: %w", err)
		}
		wh.DropPendingUpdates = drop
		if _, err := bot.Request(wh); err != nil {
			return fmt.Errorf("setWebhook: %w", err)
		}
		logger.Info("webhook set", zap.String("bot", bot.Self.UserName), zap.String("path", cfg.WebhookPath()))
	}

	info, err := bot.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("getWebhookInfo: %w", err)
	}

	logger.Info("webhook info",
		zap.Bool("set", info.IsSet()),
		zap.Int("pending_updates", info.PendingUpdateCount),
		zap.String("last_error", info.LastErrorMessage),
		zap.Any("last_error_date", info.LastErrorDate),
	)
	return nil
}
