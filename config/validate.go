package config

import (
	"errors"
	"fmt"
)

// Validate ensures required fields are present and ranges hold.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Backend.BaseURL == "" {
		return errors.New("backend.baseURL is required (or BOOKVIZ_BACKEND_URL)")
	}
	if cfg.Backend.TimeoutMs <= 0 {
		return errors.New("backend.timeoutMs must be > 0")
	}
	if cfg.Backend.RateLimit.Rate <= 0 {
		return errors.New("backend.rateLimit.rate must be > 0")
	}
	if cfg.Backend.RateLimit.Burst <= 0 {
		return errors.New("backend.rateLimit.burst must be > 0")
	}
	if cfg.Query.MaxSamples < 200 || cfg.Query.MaxSamples > 5000 {
		return fmt.Errorf("query.maxSamples must be in [200,5000], got %d", cfg.Query.MaxSamples)
	}
	if cfg.Query.PriceRange < 5 || cfg.Query.PriceRange > 50 {
		return fmt.Errorf("query.priceRange must be in [5,50], got %d", cfg.Query.PriceRange)
	}
	if cfg.Query.PageLimit < 10 || cfg.Query.PageLimit > 200 {
		return fmt.Errorf("query.pageLimit must be in [10,200], got %d", cfg.Query.PageLimit)
	}
	if cfg.Render.Width <= 0 || cfg.Render.Height <= 0 {
		return errors.New("render.width/height must be > 0")
	}
	if cfg.Render.Scale < 1 {
		return errors.New("render.scale must be >= 1")
	}
	if cfg.Render.LiveCapacity < 0 {
		return errors.New("render.liveCapacity must be >= 0")
	}
	if cfg.Render.LiveCapacity > 0 && cfg.Render.TickSize <= 0 {
		return errors.New("render.tickSize must be > 0 when live binning is enabled")
	}
	if cfg.Playback.SpeedMs < 20 || cfg.Playback.SpeedMs > 1000 {
		return fmt.Errorf("playback.speedMs must be in [20,1000], got %d", cfg.Playback.SpeedMs)
	}
	return nil
}
