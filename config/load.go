// Package config loads and validates the toolkit's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bookviz-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env         string         `yaml:"env"`
	Backend     BackendConfig  `yaml:"backend"`
	Query       QueryConfig    `yaml:"query"`
	Render      RenderConfig   `yaml:"render"`
	Playback    PlaybackConfig `yaml:"playback"`
	Logger      logger.Config  `yaml:"logger"`
	MetricsAddr string         `yaml:"metricsAddr"`
}

type BackendConfig struct {
	BaseURL   string          `yaml:"baseURL"`
	StreamURL string          `yaml:"streamURL"`
	TimeoutMs int             `yaml:"timeoutMs"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

type RateLimitConfig struct {
	Rate  float64 `yaml:"rate"`  // requests per second
	Burst int     `yaml:"burst"` // bucket size
}

// QueryConfig carries the default query window.
type QueryConfig struct {
	Symbol     string `yaml:"symbol"`
	Date       string `yaml:"date"`
	FromTs     string `yaml:"fromTs"`
	ToTs       string `yaml:"toTs"`
	MaxSamples int    `yaml:"maxSamples"` // heatmap time buckets, 200..5000
	PriceRange int    `yaml:"priceRange"` // heatmap ± ticks, 5..50
	PageLimit  int    `yaml:"pageLimit"`  // replay frames per page, 10..200
}

type RenderConfig struct {
	Width        int     `yaml:"width"`  // logical pixels
	Height       int     `yaml:"height"` // logical pixels
	Scale        float64 `yaml:"scale"`  // device pixel ratio
	TickSize     float64 `yaml:"tickSize"`
	LiveCapacity int     `yaml:"liveCapacity"` // live samples kept for binning
}

type PlaybackConfig struct {
	SpeedMs int `yaml:"speedMs"` // tick interval, smaller = faster
}

// Load reads YAML config from path, applies defaults and validates.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides deployment-specific
// fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("BOOKVIZ_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("BOOKVIZ_STREAM_URL"); v != "" {
		cfg.Backend.StreamURL = v
	}
	return cfg, Validate(cfg)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Backend.TimeoutMs == 0 {
		cfg.Backend.TimeoutMs = 30000
	}
	if cfg.Backend.RateLimit.Rate == 0 {
		cfg.Backend.RateLimit.Rate = 5
	}
	if cfg.Backend.RateLimit.Burst == 0 {
		cfg.Backend.RateLimit.Burst = 10
	}
	if cfg.Query.MaxSamples == 0 {
		cfg.Query.MaxSamples = 2000
	}
	if cfg.Query.PriceRange == 0 {
		cfg.Query.PriceRange = 20
	}
	if cfg.Query.PageLimit == 0 {
		cfg.Query.PageLimit = 50
	}
	if cfg.Render.Width == 0 {
		cfg.Render.Width = 1200
	}
	if cfg.Render.Height == 0 {
		cfg.Render.Height = 500
	}
	if cfg.Render.Scale == 0 {
		cfg.Render.Scale = 1
	}
	if cfg.Render.LiveCapacity == 0 {
		cfg.Render.LiveCapacity = 600
	}
	if cfg.Playback.SpeedMs == 0 {
		cfg.Playback.SpeedMs = 200
	}
	if cfg.Logger.Level == "" {
		cfg.Logger = logger.DefaultConfig()
	}
}
