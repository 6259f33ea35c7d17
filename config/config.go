// Package config reads relaybot settings from the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/requiem-ai/relaybot/llm"
	"github.com/requiem-ai/relaybot/relay"
	"github.com/requiem-ai/relaybot/worker"
)

const (
	EnvTelegramToken   = "TELEGRAM_TOKEN"
	EnvLegacyToken     = "TOKEN"
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvOpenAIModel     = "OPENAI_MODEL"
	EnvOpenAIBaseURL   = "OPENAI_BASE_URL"
	EnvPollTimeout     = "TELEGRAM_POLL_TIMEOUT"
	EnvDropPending     = "TELEGRAM_DROP_PENDING"
	EnvAllowedUserID   = "USER_ID"
	EnvWorkers         = "RELAY_WORKERS"
	EnvQueueDepth      = "RELAY_QUEUE_DEPTH"
	EnvErrorNotice     = "RELAY_ERROR_NOTICE"
	EnvLogLevel        = "LOG_LEVEL"
	defaultPollTimeout = 30 * time.Second
	defaultWorkers     = worker.DefaultLanes
	defaultQueueDepth  = worker.DefaultDepth
)

var ErrMissingSecret = errors.New("required secret is not set")

type Config struct {
	TelegramToken string
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	PollTimeout   time.Duration
	DropPending   bool
	AllowedUserID int64

	Workers     int
	QueueDepth  int
	ErrorNotice string
}

// Load reads the environment. Malformed values are errors; missing secrets are
// not, see Validate.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken: firstEnv(EnvTelegramToken, EnvLegacyToken),
		OpenAIKey:     strings.TrimSpace(os.Getenv(EnvOpenAIKey)),
		OpenAIModel:   envOrDefault(EnvOpenAIModel, llm.DefaultModel),
		OpenAIBaseURL: strings.TrimSpace(os.Getenv(EnvOpenAIBaseURL)),
		ErrorNotice:   relay.DefaultErrorNotice,
	}
	if notice, ok := os.LookupEnv(EnvErrorNotice); ok {
		cfg.ErrorNotice = notice
	}

	var err error
	if cfg.PollTimeout, err = envDuration(EnvPollTimeout, defaultPollTimeout); err != nil {
		return Config{}, err
	}
	if cfg.DropPending, err = envBool(EnvDropPending, true); err != nil {
		return Config{}, err
	}
	if cfg.AllowedUserID, err = envInt64(EnvAllowedUserID, 0); err != nil {
		return Config{}, err
	}

	workers, err := envInt64(EnvWorkers, defaultWorkers)
	if err != nil {
		return Config{}, err
	}
	if workers <= 0 {
		return Config{}, fmt.Errorf("invalid %s %d: must be positive", EnvWorkers, workers)
	}
	cfg.Workers = int(workers)

	depth, err := envInt64(EnvQueueDepth, defaultQueueDepth)
	if err != nil {
		return Config{}, err
	}
	if depth < 0 {
		return Config{}, fmt.Errorf("invalid %s %d: must not be negative", EnvQueueDepth, depth)
	}
	cfg.QueueDepth = int(depth)

	return cfg, nil
}

// LogLevel returns the lowercased LOG_LEVEL value, "" when unset.
func LogLevel() string {
	return strings.ToLower(strings.TrimSpace(os.Getenv(EnvLogLevel)))
}

// Validate reports the first missing secret.
func (cfg Config) Validate() error {
	if cfg.TelegramToken == "" {
		return fmt.Errorf("%s: %w", EnvTelegramToken, ErrMissingSecret)
	}
	if cfg.OpenAIKey == "" {
		return fmt.Errorf("%s: %w", EnvOpenAIKey, ErrMissingSecret)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}

func envBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return value, nil
}
