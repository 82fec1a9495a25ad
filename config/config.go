package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
)

// Provider ids accepted in PRIMARY_PROVIDER, SECONDARY_PROVIDER and PROVIDERS
const (
	ProviderGeminiLegacy = "gemini-legacy"
	ProviderGemini       = "gemini"
	ProviderImagen       = "imagen"
	ProviderDalle        = "dalle"
)

// Selection store backends
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// defaultProviders is the PROVIDERS fallback, filtered by available keys
var defaultProviders = []string{ProviderGemini, ProviderImagen, ProviderDalle}

// Config is the application configuration
type Config struct {
	TelegramToken string
	GeminiAPIKey  string
	OpenAIAPIKey  string

	// WebhookURL switches the transport from polling to webhook
	WebhookURL    string
	WebhookSecret string
	Port          string
	MetricsAddr   string

	Policy         entity.DispatchPolicy
	ProgressNotice bool

	SelectionTTL    time.Duration
	SelectionStore  string
	SelectionDBPath string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	GenerationTimeout   time.Duration
	ProviderRPS         float64
	ProviderConcurrency int

	GeminiModel       string
	GeminiLegacyModel string
	ImagenModel       string
	ImagenCount       int
	OpenAIModel       string
	OpenAIBaseURL     string

	LogLevel  string
	LogFormat string
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		TelegramToken:     firstEnv("TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		WebhookURL:        strings.TrimSpace(os.Getenv("WEBHOOK_URL")),
		WebhookSecret:     os.Getenv("WEBHOOK_SECRET"),
		Port:              envString("PORT", "8080"),
		MetricsAddr:       os.Getenv("METRICS_ADDR"),
		SelectionStore:    strings.ToLower(envString("SELECTION_STORE", StoreMemory)),
		SelectionDBPath:   envString("SELECTION_DB_PATH", "data/selections.db"),
		RedisAddr:         envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		GeminiModel:       os.Getenv("GEMINI_MODEL"),
		GeminiLegacyModel: os.Getenv("GEMINI_LEGACY_MODEL"),
		ImagenModel:       os.Getenv("IMAGEN_MODEL"),
		OpenAIModel:       os.Getenv("OPENAI_MODEL"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		LogLevel:          envString("LOG_LEVEL", "info"),
		LogFormat:         envString("LOG_FORMAT", "json"),
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	config.ProgressNotice, err = envBool("PROGRESS_NOTICE", true)
	collect(err)
	config.SelectionTTL, err = envDuration("SELECTION_TTL", 15*time.Minute)
	collect(err)
	config.GenerationTimeout, err = envDuration("GENERATION_TIMEOUT", 90*time.Second)
	collect(err)
	config.RedisDB, err = envInt("REDIS_DB", 0)
	collect(err)
	config.ImagenCount, err = envInt("IMAGEN_COUNT", 1)
	collect(err)
	config.ProviderConcurrency, err = envInt("PROVIDER_CONCURRENCY", 0)
	collect(err)
	config.ProviderRPS, err = envFloat("PROVIDER_RPS", 0)
	collect(err)

	policy, err := config.loadPolicy()
	collect(err)
	config.Policy = policy

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) loadPolicy() (entity.DispatchPolicy, error) {
	kind, err := entity.ParsePolicyKind(os.Getenv("DISPATCH_POLICY"))
	if err != nil {
		return entity.DispatchPolicy{}, err
	}

	policy := entity.DispatchPolicy{
		Kind:      kind,
		Primary:   envString("PRIMARY_PROVIDER", c.defaultPrimary()),
		Secondary: os.Getenv("SECONDARY_PROVIDER"),
		Providers: splitList(os.Getenv("PROVIDERS")),
	}
	if policy.Kind == entity.PolicyFallback && policy.Secondary == "" {
		policy.Secondary = c.defaultSecondary(policy.Primary)
	}
	if len(policy.Providers) == 0 {
		for _, id := range defaultProviders {
			if c.HasProvider(id) {
				policy.Providers = append(policy.Providers, id)
			}
		}
	}

	var errs []error
	for _, f := range []struct {
		dst  *bool
		name string
		def  bool
	}{
		{&policy.ChoiceFallback, "CHOICE_FALLBACK", false},
		{&policy.AnnounceFallback, "ANNOUNCE_FALLBACK", true},
		{&policy.SuppressPartialFailures, "SUPPRESS_PARTIAL_FAILURES", false},
		{&policy.Sequential, "BROADCAST_SEQUENTIAL", false},
	} {
		v, err := envBool(f.name, f.def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*f.dst = v
	}
	return policy, errors.Join(errs...)
}

// Validate checks required values and that every provider the policy
// references has its API key.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN environment variable is empty")
	}
	if c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" {
		return errors.New("at least one of GEMINI_API_KEY or OPENAI_API_KEY must be set")
	}
	if c.WebhookURL != "" {
		u, err := url.Parse(c.WebhookURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("WEBHOOK_URL must be an absolute https URL, got %q", c.WebhookURL)
		}
	}
	switch c.SelectionStore {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown SELECTION_STORE %q", c.SelectionStore)
	}
	if c.SelectionTTL < 0 {
		return errors.New("SELECTION_TTL must not be negative")
	}
	if c.GenerationTimeout <= 0 {
		return errors.New("GENERATION_TIMEOUT must be positive")
	}
	if c.ImagenCount < 1 || c.ImagenCount > 4 {
		return fmt.Errorf("IMAGEN_COUNT must be between 1 and 4, got %d", c.ImagenCount)
	}

	if err := c.Policy.Validate(c.HasProvider); err != nil {
		if errors.Is(err, entity.ErrUnknownProvider) {
			return fmt.Errorf("%w (known providers need their API key: %s)", err, strings.Join(c.AvailableProviders(), ", "))
		}
		return err
	}
	return nil
}

// HasProvider reports whether id is known and its API key is set
func (c *Config) HasProvider(id string) bool {
	switch id {
	case ProviderGeminiLegacy, ProviderGemini, ProviderImagen:
		return c.GeminiAPIKey != ""
	case ProviderDalle:
		return c.OpenAIAPIKey != ""
	default:
		return false
	}
}

// AvailableProviders lists every provider that can be built
func (c *Config) AvailableProviders() []string {
	var ids []string
	for _, id := range []string{ProviderGeminiLegacy, ProviderGemini, ProviderImagen, ProviderDalle} {
		if c.HasProvider(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// UseWebhook reports whether updates arrive by webhook instead of polling
func (c *Config) UseWebhook() bool {
	return c.WebhookURL != ""
}

// WebhookPath is the local path Telegram posts updates to
func (c *Config) WebhookPath() string {
	if c.WebhookSecret == "" {
		return "/webhook"
	}
	return "/webhook/" + c.WebhookSecret
}

// WebhookEndpoint is the public URL registered with Telegram
func (c *Config) WebhookEndpoint() string {
	return strings.TrimRight(c.WebhookURL, "/") + c.WebhookPath()
}

// ListenAddr is the address of the webhook server
func (c *Config) ListenAddr() string {
	return ":" + c.Port
}

func (c *Config) defaultPrimary() string {
	if c.GeminiAPIKey != "" {
		return ProviderGemini
	}
	return ProviderDalle
}

func (c *Config) defaultSecondary(primary string) string {
	for _, id := range []string{ProviderDalle, ProviderImagen, ProviderGemini} {
		if id != primary && c.HasProvider(id) {
			return id
		}
	}
	return ""
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("%s is not a boolean: %q", key, raw)
	}
	return v, nil
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s is not an integer: %q", key, raw)
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return def, fmt.Errorf("%s is not a non-negative number: %q", key, raw)
	}
	return v, nil
}

// envDuration accepts Go durations ("90s") or plain seconds ("90")
func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s is not a duration: %q", key, raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
