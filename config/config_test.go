package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
)

var envKeys = []string{
	"TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN", "GEMINI_API_KEY", "OPENAI_API_KEY",
	"WEBHOOK_URL", "WEBHOOK_SECRET", "PORT", "METRICS_ADDR",
	"DISPATCH_POLICY", "PRIMARY_PROVIDER", "SECONDARY_PROVIDER", "PROVIDERS",
	"CHOICE_FALLBACK", "ANNOUNCE_FALLBACK", "PROGRESS_NOTICE", "SUPPRESS_PARTIAL_FAILURES", "BROADCAST_SEQUENTIAL",
	"SELECTION_TTL", "SELECTION_STORE", "SELECTION_DB_PATH", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"GENERATION_TIMEOUT", "PROVIDER_RPS", "PROVIDER_CONCURRENCY",
	"GEMINI_MODEL", "GEMINI_LEGACY_MODEL", "IMAGEN_MODEL", "IMAGEN_COUNT", "OPENAI_MODEL", "OPENAI_BASE_URL",
	"LOG_LEVEL", "LOG_FORMAT",
}

func setEnv(t *testing.T, values map[string]string) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	for key, value := range values {
		t.Setenv(key, value)
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, map[string]string{
		"TELEGRAM_TOKEN": "123:abc",
		"GEMINI_API_KEY": "g-key",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, entity.PolicySingle, cfg.Policy.Kind)
	assert.Equal(t, ProviderGemini, cfg.Policy.Primary)
	assert.Equal(t, []string{ProviderGemini, ProviderImagen}, cfg.Policy.Providers)
	assert.True(t, cfg.Policy.AnnounceFallback)
	assert.False(t, cfg.Policy.ChoiceFallback)
	assert.True(t, cfg.ProgressNotice)
	assert.Equal(t, 15*time.Minute, cfg.SelectionTTL)
	assert.Equal(t, 90*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, StoreMemory, cfg.SelectionStore)
	assert.Equal(t, "data/selections.db", cfg.SelectionDBPath)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 1, cfg.ImagenCount)
	assert.False(t, cfg.UseWebhook())
}

func TestLoadLegacyTokenName(t *testing.T) {
	setEnv(t, map[string]string{
		"TELEGRAM_BOT_TOKEN": "123:legacy",
		"OPENAI_API_KEY":     "sk",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "123:legacy", cfg.TelegramToken)
	assert.Equal(t, ProviderDalle, cfg.Policy.Primary)
}

func TestLoadFallbackPolicy(t *testing.T) {
	setEnv(t, map[string]string{
		"TELEGRAM_TOKEN":    "123:abc",
		"GEMINI_API_KEY":    "g-key",
		"OPENAI_API_KEY":    "sk",
		"DISPATCH_POLICY":   "single_with_fallback",
		"ANNOUNCE_FALLBACK": "false",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, entity.PolicyFallback, cfg.Policy.Kind)
	assert.Equal(t, ProviderGemini, cfg.Policy.Primary)
	assert.Equal(t, ProviderDalle, cfg.Policy.Secondary)
	assert.False(t, cfg.Policy.AnnounceFallback)
}

func TestLoadBroadcastPolicy(t *testing.T) {
	setEnv(t, map[string]string{
		"TELEGRAM_TOKEN":            "123:abc",
		"GEMINI_API_KEY":            "g-key",
		"OPENAI_API_KEY":            "sk",
		"DISPATCH_POLICY":           "broadcast",
		"PROVIDERS":                 " imagen, dalle ,",
		"SUPPRESS_PARTIAL_FAILURES": "1",
		"BROADCAST_SEQUENTIAL":      "true",
		"SELECTION_TTL":             "0",
		"GENERATION_TIMEOUT":        "45",
		"PROVIDER_RPS":              "0.5",
		"PROVIDER_CONCURRENCY":      "2",
		"IMAGEN_COUNT":              "4",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{ProviderImagen, ProviderDalle}, cfg.Policy.Providers)
	assert.True(t, cfg.Policy.SuppressPartialFailures)
	assert.True(t, cfg.Policy.Sequential)
	assert.Zero(t, cfg.SelectionTTL)
	assert.Equal(t, 45*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, 0.5, cfg.ProviderRPS)
	assert.Equal(t, 2, cfg.ProviderConcurrency)
	assert.Equal(t, 4, cfg.ImagenCount)
}

func TestLoadErrors(t *testing.T) {
	base := map[string]string{"TELEGRAM_TOKEN": "123:abc", "GEMINI_API_KEY": "g-key"}

	tests := []struct {
		name  string
		extra map[string]string
		want  string
	}{
		{"missing token", map[string]string{"TELEGRAM_TOKEN": ""}, "TELEGRAM_TOKEN"},
		{"missing keys", map[string]string{"GEMINI_API_KEY": ""}, "GEMINI_API_KEY"},
		{"bad policy", map[string]string{"DISPATCH_POLICY": "lottery"}, "lottery"},
		{"provider without key", map[string]string{"PRIMARY_PROVIDER": "dalle"}, "dalle"},
		{"bad bool", map[string]string{"PROGRESS_NOTICE": "maybe"}, "PROGRESS_NOTICE"},
		{"bad duration", map[string]string{"SELECTION_TTL": "soon"}, "SELECTION_TTL"},
		{"bad store", map[string]string{"SELECTION_STORE": "etcd"}, "etcd"},
		{"plain http webhook", map[string]string{"WEBHOOK_URL": "http://example.com"}, "https"},
		{"imagen count", map[string]string{"IMAGEN_COUNT": "9"}, "IMAGEN_COUNT"},
		{"fallback to itself", map[string]string{"DISPATCH_POLICY": "fallback", "SECONDARY_PROVIDER": "gemini"}, "different"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := map[string]string{}
			for k, v := range base {
				env[k] = v
			}
			for k, v := range tt.extra {
				env[k] = v
			}
			setEnv(t, env)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestUnknownProviderIsWrapped(t *testing.T) {
	setEnv(t, map[string]string{
		"TELEGRAM_TOKEN":   "123:abc",
		"GEMINI_API_KEY":   "g-key",
		"PRIMARY_PROVIDER": "midjourney",
	})

	_, err := Load()
	assert.True(t, errors.Is(err, entity.ErrUnknownProvider))
}

func TestWebhookEndpoint(t *testing.T) {
	setEnv(t, map[string]string{
		"TELEGRAM_TOKEN": "123:abc",
		"GEMINI_API_KEY": "g-key",
		"WEBHOOK_URL":    "https://bot.example.com/",
		"WEBHOOK_SECRET": "s3cret",
		"PORT":           "9000",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.UseWebhook())
	assert.Equal(t, "/webhook/s3cret", cfg.WebhookPath())
	assert.Equal(t, "https://bot.example.com/webhook/s3cret", cfg.WebhookEndpoint())
	assert.Equal(t, ":9000", cfg.ListenAddr())
}

func TestAvailableProviders(t *testing.T) {
	cfg := &Config{OpenAIAPIKey: "sk"}
	assert.Equal(t, []string{ProviderDalle}, cfg.AvailableProviders())

	cfg.GeminiAPIKey = "g"
	assert.Equal(t, []string{ProviderGeminiLegacy, ProviderGemini, ProviderImagen, ProviderDalle}, cfg.AvailableProviders())
	assert.False(t, cfg.HasProvider("sdxl"))
}
