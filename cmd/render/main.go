// Command render performs one heatmap query against the pipeline
// backend and writes the painted grid to a PNG file.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bookviz-go/config"
	"bookviz-go/gateway"
	"bookviz-go/heatmap"
	"bookviz-go/infrastructure/logger"
	"bookviz-go/metrics"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "config file path")
	symbol := flag.String("symbol", "", "symbol (defaults to config query.symbol)")
	date := flag.String("date", "", "session date YYYY-MM-DD")
	fromTs := flag.String("from", "", "window start, RFC3339")
	toTs := flag.String("to", "", "window end, RFC3339")
	samples := flag.Int("samples", 0, "max time buckets")
	priceRange := flag.Int("range", 0, "± price ticks")
	width := flag.Int("w", 0, "surface width in logical pixels")
	height := flag.Int("h", 0, "surface height in logical pixels")
	out := flag.String("out", "heatmap.png", "output PNG path")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Close() }()

	q := gateway.HeatmapQuery{
		Symbol:     cfg.Query.Symbol,
		Date:       cfg.Query.Date,
		FromTs:     cfg.Query.FromTs,
		ToTs:       cfg.Query.ToTs,
		MaxSamples: cfg.Query.MaxSamples,
		PriceRange: cfg.Query.PriceRange,
	}
	if *symbol != "" {
		q.Symbol = *symbol
	}
	if *date != "" {
		q.Date = *date
	}
	if *fromTs != "" {
		q.FromTs = *fromTs
	}
	if *toTs != "" {
		q.ToTs = *toTs
	}
	if *samples > 0 {
		q.MaxSamples = *samples
	}
	if *priceRange > 0 {
		q.PriceRange = *priceRange
	}
	w, h := cfg.Render.Width, cfg.Render.Height
	if *width > 0 {
		w = *width
	}
	if *height > 0 {
		h = *height
	}

	client := &gateway.Client{
		BaseURL:    cfg.Backend.BaseURL,
		HTTPClient: gateway.NewDefaultHTTPClient(),
		Limiter:    gateway.NewTokenBucketLimiter(cfg.Backend.RateLimit.Rate, cfg.Backend.RateLimit.Burst),
		Log:        zl.Logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Backend.TimeoutMs)*time.Millisecond)
	defer cancel()

	resp, err := client.Heatmap(ctx, q)
	if err != nil {
		zl.Fatal("heatmap query failed", zap.Error(err))
	}
	zl.Info("heatmap loaded",
		zap.String("symbol", q.Symbol),
		zap.Int("n_samples", resp.NSamples),
		zap.Int("trades", len(resp.Trades)),
	)

	ic := heatmap.NewImageContext(w, h, cfg.Render.Scale)
	start := time.Now()
	heatmap.NewRenderer(zl.Logger).Render(ic, &resp.Grid, float64(w), float64(h))
	metrics.ObservePaint(time.Since(start).Seconds())

	f, err := os.Create(*out)
	if err != nil {
		zl.Fatal("create output", zap.Error(err))
	}
	defer f.Close()
	if err := ic.EncodePNG(f); err != nil {
		zl.Fatal("encode png", zap.Error(err))
	}
	zl.Info("heatmap written", zap.String("path", *out))
}
