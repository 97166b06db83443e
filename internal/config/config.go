// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type WebConfig struct {
	Port          int           `yaml:"port"`
	JWTSecret     string        `yaml:"jwt_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	RateLimit     int           `yaml:"rate_limit"`        // submissions per user per window
	RateWindow    time.Duration `yaml:"rate_window"`
	MaxConcurrent int           `yaml:"max_concurrent"` // generation worker pool size
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// PollConfig bounds one modality's polling loop.
type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type ProviderConfig struct {
	Key     string        `yaml:"key"`      // static credential, "Key <key>" header
	BaseURL string        `yaml:"base_url"` // queue root, e.g. https://queue.fal.run
	Timeout time.Duration `yaml:"timeout"`  // per-call HTTP timeout

	ImagePoll PollConfig `yaml:"image_poll"`
	VideoPoll PollConfig `yaml:"video_poll"`
}

type SchedulerConfig struct {
	ReapInterval time.Duration `yaml:"reap_interval"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Web       WebConfig       `yaml:"web"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Provider  ProviderConfig  `yaml:"provider"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Web.SessionTTL <= 0 {
		cfg.Web.SessionTTL = 24 * time.Hour
	}
	if cfg.Web.RateLimit <= 0 {
		cfg.Web.RateLimit = 10
	}
	if cfg.Web.RateWindow <= 0 {
		cfg.Web.RateWindow = time.Minute
	}
	if cfg.Web.MaxConcurrent <= 0 {
		cfg.Web.MaxConcurrent = 16
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://queue.fal.run"
	}
	if cfg.Provider.Timeout <= 0 {
		cfg.Provider.Timeout = 30 * time.Second
	}
	// Image jobs: 60 polls 3s apart (~5 minutes). Video: 120 polls 5s apart (~10 minutes).
	if cfg.Provider.ImagePoll.Interval <= 0 {
		cfg.Provider.ImagePoll.Interval = 3 * time.Second
	}
	if cfg.Provider.ImagePoll.MaxAttempts <= 0 {
		cfg.Provider.ImagePoll.MaxAttempts = 60
	}
	if cfg.Provider.VideoPoll.Interval <= 0 {
		cfg.Provider.VideoPoll.Interval = 5 * time.Second
	}
	if cfg.Provider.VideoPoll.MaxAttempts <= 0 {
		cfg.Provider.VideoPoll.MaxAttempts = 120
	}
	if cfg.Scheduler.ReapInterval <= 0 {
		cfg.Scheduler.ReapInterval = 15 * time.Minute
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Provider.Key == "" && !dev {
		return nil, errors.New("provider.key is required outside dev mode")
	}
	if cfg.Web.JWTSecret == "" && !dev {
		return nil, errors.New("web.jwt_secret is required outside dev mode")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
