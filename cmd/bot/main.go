package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yourusername/telegram-image-bot/config"
	"github.com/yourusername/telegram-image-bot/internal/delivery/telegram"
	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
	"github.com/yourusername/telegram-image-bot/internal/domain/repository"
	"github.com/yourusername/telegram-image-bot/internal/infrastructure/logging"
	"github.com/yourusername/telegram-image-bot/internal/infrastructure/metrics"
	"github.com/yourusername/telegram-image-bot/internal/infrastructure/storage"
	"github.com/yourusername/telegram-image-bot/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector("imagebot")

	generators, closers, err := buildGenerators(ctx, cfg, collector)
	defer closeAll(logger, closers)
	if err != nil {
		return fmt.Errorf("providers: %w", err)
	}

	selections, err := openSelectionStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("selection store: %w", err)
	}
	if selections != nil {
		defer selections.Close()
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	dispatch, err := usecase.NewDispatchUseCase(generators, selections, telegram.NewSender(bot), usecase.DispatchOptions{
		Policy:         cfg.Policy,
		Timeout:        cfg.GenerationTimeout,
		ProgressNotice: cfg.ProgressNotice,
		SelectionTTL:   cfg.SelectionTTL,
		Observer:       collector,
	}, logger)
	if err != nil {
		return err
	}

	handler := telegram.NewBotHandler(bot, dispatch, logger)
	defer handler.Wait()

	logger.Info("starting",
		zap.String("bot", bot.Self.UserName),
		zap.String("policy", string(cfg.Policy.Kind)),
		zap.Strings("providers", providerIDs(generators)),
		zap.String("selection_store", cfg.SelectionStore),
		zap.Bool("webhook", cfg.UseWebhook()),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.UseWebhook() {
		mux.Handle(cfg.WebhookPath(), handler.WebhookHandler(ctx))
		if err := registerWebhook(bot, cfg.WebhookEndpoint()); err != nil {
			return err
		}
		logger.Info("webhook registered", zap.String("path", cfg.WebhookPath()))
		return serve(ctx, logger, cfg.ListenAddr(), mux)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := serve(ctx, logger, cfg.MetricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openSelectionStore(ctx context.Context, cfg *config.Config) (repository.SelectionRepository, error) {
	if cfg.Policy.Kind != entity.PolicyUserChoice {
		return nil, nil
	}

	switch cfg.SelectionStore {
	case config.StoreSQLite:
		return storage.NewSQLiteSelectionRepository(cfg.SelectionDBPath)
	case config.StoreRedis:
		return storage.NewRedisSelectionRepository(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return storage.NewMemorySelectionRepository(), nil
	}
}

func registerWebhook(bot *tgbotapi.BotAPI, endpoint string) error {
	wh, err := tgbotapi.NewWebhook(endpoint)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := bot.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}

// serve runs an HTTP server until ctx is cancelled.
func serve(ctx context.Context, logger *zap.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func closeAll(logger *zap.Logger, closers []io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}
}

func providerIDs(gens []repository.ImageGenerator) []string {
	ids := make([]string, 0, len(gens))
	for _, g := range gens {
		ids = append(ids, g.ID())
	}
	return ids
}
