// Package config loads the settings of the zyraxctl and mockapi binaries from the
// environment, an optional .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	goSession "github.com/zyraxfit/goSession"
)

const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config is the binary configuration. Values come from, in increasing priority,
// tag defaults, the YAML file, then the environment (including .env).
type Config struct {
	Actor   string        `yaml:"actor" env:"ZYRAX_ACTOR" env-default:"admin"`
	API     APIConfig     `yaml:"api"`
	Store   StoreConfig   `yaml:"store"`
	Refresh RefreshConfig `yaml:"refresh"`
	Log     LogConfig     `yaml:"log"`
	Console ConsoleConfig `yaml:"console"`
	Audit   AuditConfig   `yaml:"audit"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"ZYRAX_API_BASE_URL" env-default:"https://api.zyrax.fit/"`
	Timeout time.Duration `yaml:"timeout" env:"ZYRAX_API_TIMEOUT" env-default:"30s"`
}

// StoreConfig selects the session store. Path defaults to session.json under the
// user config directory.
type StoreConfig struct {
	Kind        string `yaml:"kind" env:"ZYRAX_STORE" env-default:"file"`
	Path        string `yaml:"path" env:"ZYRAX_STORE_PATH"`
	RedisAddr   string `yaml:"redis_addr" env:"ZYRAX_REDIS_ADDR" env-default:"127.0.0.1:6379"`
	RedisPrefix string `yaml:"redis_prefix" env:"ZYRAX_REDIS_PREFIX" env-default:"zyrax:"`
}

type RefreshConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"ZYRAX_REFRESH_TIMEOUT" env-default:"10s"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"ZYRAX_LOG_LEVEL" env-default:"info"`
}

type ConsoleConfig struct {
	Addr string `yaml:"addr" env:"ZYRAX_CONSOLE_ADDR" env-default:"127.0.0.1:8080"`
}

type AuditConfig struct {
	Enabled bool `yaml:"enabled" env:"ZYRAX_AUDIT" env-default:"false"`
}

// Load reads dotenv when it exists, then path when non-empty, then the environment.
// A missing dotenv file is not an error; a missing path is.
func Load(path, dotenv string) (*Config, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %q: %w", path, err)
		}
		// ReadConfig overlays the environment after the file
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if !goSession.Actor(c.Actor).Valid() {
		return fmt.Errorf("ZYRAX_ACTOR: unknown actor %q", c.Actor)
	}
	switch c.Store.Kind {
	case StoreFile, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("ZYRAX_STORE: unknown store %q", c.Store.Kind)
	}
	if c.Refresh.Timeout <= 0 {
		return errors.New("ZYRAX_REFRESH_TIMEOUT must be > 0")
	}
	if c.API.Timeout <= 0 {
		return errors.New("ZYRAX_API_TIMEOUT must be > 0")
	}
	return nil
}

// StorePath returns Store.Path, or session.json under the user config directory.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "zyrax", "session.json"), nil
}

// Engine returns the engine configuration of the selected actor with the
// binary overrides applied.
func (c *Config) Engine() goSession.Config {
	cfg := goSession.DefaultConfigFor(goSession.Actor(c.Actor))
	cfg.BaseURL = c.API.BaseURL
	cfg.HTTP.Timeout = c.API.Timeout
	cfg.Refresh.Timeout = c.Refresh.Timeout
	cfg.Session.RedisPrefix = c.Store.RedisPrefix
	cfg.Audit.Enabled = c.Audit.Enabled
	return cfg
}
