package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	APIBase          string        `env:"ONBOARD_API_BASE"`
	RequestTimeout   time.Duration `env:"ONBOARD_REQUEST_TIMEOUT"`
	LookupDebounce   time.Duration `env:"ONBOARD_LOOKUP_DEBOUNCE"`
	MinAccountLength int           `env:"ONBOARD_MIN_ACCOUNT_LENGTH"`
	LogFile          string        `env:"ONBOARD_LOG_FILE"`
	MetricsAddr      string        `env:"ONBOARD_METRICS_ADDR"`
	DevAddr          string        `env:"ONBOARD_DEVD_ADDR"`
	DevDBPath        string        `env:"ONBOARD_DEVD_DB"`
}

func DefaultConfig() Config {
	return Config{
		APIBase:          "http://127.0.0.1:8787",
		RequestTimeout:   60 * time.Second,
		LookupDebounce:   450 * time.Millisecond,
		MinAccountLength: 3,
		DevAddr:          "127.0.0.1:8787",
		DevDBPath:        defaultDBPath(),
	}
}

// Load returns DefaultConfig overlaid by the dotenv files (when present) and
// then by the process environment. Variables already set in the environment
// win over dotenv entries.
func Load(dotenvFiles ...string) (Config, error) {
	for _, path := range dotenvFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.APIBase == "" {
		return errors.New("api base is required")
	}
	if c.RequestTimeout < 0 {
		return errors.New("request timeout must not be negative")
	}
	if c.LookupDebounce < 0 {
		return errors.New("lookup debounce must not be negative")
	}
	if c.MinAccountLength < 1 {
		return errors.New("min account length must be at least 1")
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "onboard-devd.db"
	}
	return filepath.Join(home, ".local", "state", "exile-onboard", "devd.db")
}
