package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

type Config struct {
	HTTPAddr string
	LogLevel slog.Level
	DataDir  string

	LLMProvider string
	LLMTimeout  time.Duration

	GeminiAPIKey  string
	GeminiBaseURL string
	TextModel     string
	SpeechModel   string
	SpeechVoice   string
	ImageModel    string

	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	LLMModel          string

	RevealDelay       time.Duration
	CardRatePerMinute int
	ReadingIdleTTL    time.Duration
	MaxReadings       int
}

// LoadDotEnv reads variables from the given files into the environment
// without overriding what is already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func Load() (Config, error) {
	c := Config{
		HTTPAddr:          envOr("HTTP_ADDR", ":8080"),
		DataDir:           DataDir(),
		LLMProvider:       strings.ToLower(envOr("LLM_PROVIDER", ProviderGemini)),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:     os.Getenv("GEMINI_BASE_URL"),
		TextModel:         envOr("TEXT_MODEL", "gemini-2.5-flash"),
		SpeechModel:       envOr("SPEECH_MODEL", "gemini-2.5-flash-preview-tts"),
		SpeechVoice:       envOr("SPEECH_VOICE", "Charon"),
		ImageModel:        envOr("IMAGE_MODEL", "gemini-2.5-flash-image"),
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: envOr("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMModel:          envOr("LLM_MODEL", "google/gemini-2.5-flash"),
	}

	var err error
	if c.LLMTimeout, err = durationOr("LLM_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if c.RevealDelay, err = durationOr("REVEAL_DELAY", 600*time.Millisecond); err != nil {
		return Config{}, err
	}
	if c.CardRatePerMinute, err = intOr("CARD_RATE_PER_MINUTE", 6); err != nil {
		return Config{}, err
	}
	if c.ReadingIdleTTL, err = durationOr("READING_IDLE_TTL", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if c.MaxReadings, err = intOr("MAX_READINGS", 1000); err != nil {
		return Config{}, err
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	c.LogLevel = level

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.LLMProvider {
	case ProviderGemini:
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required when LLM_PROVIDER=openrouter")
		}
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q: want %s or %s", c.LLMProvider, ProviderGemini, ProviderOpenRouter)
	}
	// Speech and card artwork always go through Gemini.
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.RevealDelay < 0 {
		return fmt.Errorf("REVEAL_DELAY must not be negative")
	}
	if c.CardRatePerMinute < 0 {
		return fmt.Errorf("CARD_RATE_PER_MINUTE must not be negative")
	}
	if c.ReadingIdleTTL <= 0 {
		return fmt.Errorf("READING_IDLE_TTL must be positive")
	}
	if c.MaxReadings < 1 {
		return fmt.Errorf("MAX_READINGS must be at least 1")
	}
	return nil
}

// DataDir returns the storage directory without validating the rest of the
// configuration, for commands that only touch local data.
func DataDir() string {
	return envOr("DATA_DIR", "./data")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func intOr(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
}
