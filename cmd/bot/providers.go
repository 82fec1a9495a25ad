package main

import (
	"context"
	"fmt"
	"io"

	"github.com/yourusername/telegram-image-bot/config"
	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
	"github.com/yourusername/telegram-image-bot/internal/domain/repository"
	"github.com/yourusername/telegram-image-bot/internal/infrastructure/gemini"
	"github.com/yourusername/telegram-image-bot/internal/infrastructure/googleai"
	"github.com/yourusername/telegram-image-bot/internal/infrastructure/metrics"
	"github.com/yourusername/telegram-image-bot/internal/infrastructure/openai"
	"github.com/yourusername/telegram-image-bot/internal/infrastructure/throttle"
	genai "google.golang.org/genai"
)

// neededProviders lists the ids the policy can dispatch to, in first-use order
func neededProviders(policy entity.DispatchPolicy) []string {
	var ids []string
	seen := map[string]bool{}
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	switch policy.Kind {
	case entity.PolicySingle:
		add(policy.Primary)
	case entity.PolicyFallback:
		add(policy.Primary)
		add(policy.Secondary)
	default:
		for _, id := range policy.Providers {
			add(id)
		}
	}
	return ids
}

// buildGenerators creates the adapters the policy needs, each wrapped with
// metrics and throttling. The returned closers must be closed on shutdown.
func buildGenerators(ctx context.Context, cfg *config.Config, collector *metrics.Collector) ([]repository.ImageGenerator, []io.Closer, error) {
	var (
		gens       []repository.ImageGenerator
		closers    []io.Closer
		sdk        *genai.Client
		throttling = throttle.Options{
			RequestsPerSecond: cfg.ProviderRPS,
			Burst:             1,
			MaxConcurrent:     cfg.ProviderConcurrency,
		}
	)

	googleClient := func() (*genai.Client, error) {
		if sdk != nil {
			return sdk, nil
		}
		var err error
		sdk, err = googleai.NewClient(ctx, cfg.GeminiAPIKey)
		return sdk, err
	}

	for _, id := range neededProviders(cfg.Policy) {
		var gen repository.ImageGenerator

		switch id {
		case config.ProviderGeminiLegacy:
			client, err := gemini.NewClient(ctx, gemini.Options{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiLegacyModel})
			if err != nil {
				return nil, closers, err
			}
			closers = append(closers, client)
			gen = client

		case config.ProviderGemini:
			client, err := googleClient()
			if err != nil {
				return nil, closers, err
			}
			gen = googleai.NewContentGenerator(client, cfg.GeminiModel, "")

		case config.ProviderImagen:
			client, err := googleClient()
			if err != nil {
				return nil, closers, err
			}
			gen = googleai.NewImagenGenerator(client, cfg.ImagenModel, cfg.ImagenCount, "")

		case config.ProviderDalle:
			client, err := openai.NewClient(openai.Options{
				APIKey:  cfg.OpenAIAPIKey,
				BaseURL: cfg.OpenAIBaseURL,
				Model:   cfg.OpenAIModel,
			})
			if err != nil {
				return nil, closers, err
			}
			gen = client

		default:
			return nil, closers, fmt.Errorf("provider %q: %w", id, entity.ErrUnknownProvider)
		}

		gens = append(gens, throttle.Wrap(metrics.Instrument(gen, collector), throttling))
	}
	return gens, closers, nil
}
