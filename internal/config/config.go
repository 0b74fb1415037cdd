package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"taskboard/internal/logger"
	"taskboard/internal/util"
)

// Config holds everything constructed once at process start.
type Config struct {
	Addr    string
	DBPath  string
	Session SessionConfig
	Pages   PagesConfig
	Log     logger.Config
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	Secret []byte
	// Generated is set when no secret was configured and a random one was used.
	Generated bool
	TTL       time.Duration
	Secure    bool
}

// PagesConfig selects where HTML pages come from. An empty BaseURL uses the embedded pages.
type PagesConfig struct {
	BaseURL string
	Timeout time.Duration
}

const minSecretLen = 16

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		// A missing .env is normal outside development.
		_ = godotenv.Load(file)
	}

	cfg := Config{
		Addr:   util.EnvOrDefault("TASKBOARD_ADDR", ":8000"),
		DBPath: util.EnvOrDefault("TASKBOARD_DB_PATH", "data/task_manager.db"),
		Session: SessionConfig{
			Secret: []byte(util.EnvOrDefault("TASKBOARD_SESSION_SECRET", "")),
			TTL:    util.EnvDurationOrDefault("TASKBOARD_SESSION_TTL", 24*time.Hour),
			Secure: util.EnvBoolOrDefault("TASKBOARD_COOKIE_SECURE", false),
		},
		Pages: PagesConfig{
			BaseURL: util.EnvOrDefault("TASKBOARD_TEMPLATE_BASE_URL", ""),
			Timeout: util.EnvDurationOrDefault("TASKBOARD_TEMPLATE_TIMEOUT", 5*time.Second),
		},
		Log: logger.Config{
			Level:  util.EnvOrDefault("TASKBOARD_LOG_LEVEL", "info"),
			Format: util.EnvOrDefault("TASKBOARD_LOG_FORMAT", "text"),
			File:   util.EnvOrDefault("TASKBOARD_LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	if len(cfg.Session.Secret) == 0 {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return Config{}, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.Session.Secret = secret
		cfg.Session.Generated = true
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("database path must not be empty")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if n := len(c.Session.Secret); n > 0 && n < minSecretLen {
		return fmt.Errorf("session secret must be at least %d bytes", minSecretLen)
	}
	if c.Pages.Timeout <= 0 {
		return errors.New("template timeout must be positive")
	}
	return nil
}
