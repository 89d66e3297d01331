// Command live subscribes to the backend's live depth stream and keeps
// a rolling heatmap PNG on disk, re-rendered at a fixed cadence.
// Exposes Prometheus metrics and notifies systemd readiness on startup.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
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
	out := flag.String("out", "live_heatmap.png", "output PNG path")
	interval := flag.Duration("interval", 2*time.Second, "re-render cadence")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Backend.StreamURL == "" {
		log.Fatalf("backend.streamURL is required for live mode")
	}
	sym := cfg.Query.Symbol
	if *symbol != "" {
		sym = *symbol
	}

	zl, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Close() }()

	if cfg.MetricsAddr != "" {
		metrics.StartMetricsServer(cfg.MetricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		w := config.Watcher{Path: *cfgPath}
		_ = w.Start(ctx, func(next config.AppConfig) {
			zl.Info("config reloaded", zap.String("env", next.Env))
		})
	}()

	acc := heatmap.NewAccumulator(cfg.Render.TickSize, cfg.Query.PriceRange, cfg.Render.LiveCapacity)
	stream := &gateway.StreamClient{
		Endpoint: cfg.Backend.StreamURL,
		Symbol:   sym,
		Log:      zl.Logger,
	}
	streamDone := make(chan error, 1)
	go func() { streamDone <- stream.Run(ctx, accHandler{acc}) }()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	zl.Info("live heatmap running",
		zap.String("symbol", sym),
		zap.String("out", *out),
		zap.Duration("interval", *interval),
	)

	renderer := heatmap.NewRenderer(zl.Logger)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zl.Info("shutting down")
			return
		case err := <-streamDone:
			if ctx.Err() != nil {
				return
			}
			zl.Fatal("stream terminated", zap.Error(err))
		case <-ticker.C:
			if acc.Len() == 0 {
				continue
			}
			g := acc.Snapshot()
			ic := heatmap.NewImageContext(cfg.Render.Width, cfg.Render.Height, cfg.Render.Scale)
			start := time.Now()
			renderer.Render(ic, g, float64(cfg.Render.Width), float64(cfg.Render.Height))
			metrics.ObservePaint(time.Since(start).Seconds())
			if err := writeAtomic(*out, ic); err != nil {
				zl.Warn("write png failed", zap.Error(err))
			}
		}
	}
}

type accHandler struct {
	acc *heatmap.Accumulator
}

func (h accHandler) OnSample(s heatmap.LiveSample) { h.acc.Add(s) }

// writeAtomic renders into a temp file and renames over the target so
// readers never see a half-written PNG.
func writeAtomic(path string, ic *heatmap.ImageContext) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := ic.EncodePNG(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
