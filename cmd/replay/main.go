// Command replay steps through a window of book frames from the
// terminal. Default mode plays the window end to end printing one line
// per frame; -step switches to interactive transport control on stdin
// (n next, p previous, space play/pause, q quit).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bookviz-go/config"
	"bookviz-go/gateway"
	"bookviz-go/infrastructure/logger"
	"bookviz-go/replay"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "config file path")
	symbol := flag.String("symbol", "", "symbol (defaults to config query.symbol)")
	date := flag.String("date", "", "session date YYYY-MM-DD")
	fromTs := flag.String("from", "", "window start, RFC3339")
	toTs := flag.String("to", "", "window end, RFC3339")
	limit := flag.Int("limit", 0, "frames per page")
	speedMs := flag.Int("speed", 0, "ms per frame")
	step := flag.Bool("step", false, "interactive stepping instead of auto-play")
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

	q := replay.Query{
		Symbol: cfg.Query.Symbol,
		Date:   cfg.Query.Date,
		FromTs: cfg.Query.FromTs,
		ToTs:   cfg.Query.ToTs,
		Limit:  cfg.Query.PageLimit,
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
	if *limit > 0 {
		q.Limit = *limit
	}
	speed := time.Duration(cfg.Playback.SpeedMs) * time.Millisecond
	if *speedMs > 0 {
		speed = time.Duration(*speedMs) * time.Millisecond
	}

	client := &gateway.Client{
		BaseURL:    cfg.Backend.BaseURL,
		HTTPClient: gateway.NewDefaultHTTPClient(),
		Limiter:    gateway.NewTokenBucketLimiter(cfg.Backend.RateLimit.Rate, cfg.Backend.RateLimit.Burst),
		Log:        zl.Logger,
	}
	player, err := replay.NewPlayer(replay.PlayerConfig{
		Fetcher: client,
		Logger:  zl.Logger,
		Speed:   speed,
	})
	if err != nil {
		zl.Fatal("init player", zap.Error(err))
	}
	defer func() { _ = player.Close() }()

	if err := player.Submit(q); err != nil {
		zl.Fatal("submit query", zap.Error(err))
	}
	if !waitSettled(player) {
		zl.Fatal("initial page load failed")
	}
	if player.State() == replay.StateExhausted {
		fmt.Println("no frames in range")
		return
	}

	if *step {
		runInteractive(player)
		return
	}
	runAuto(player)
}

// waitSettled blocks until the player leaves LOADING.
func waitSettled(p *replay.Player) bool {
	for i := 0; i < 2000; i++ {
		switch p.State() {
		case replay.StateLoading:
			time.Sleep(5 * time.Millisecond)
		case replay.StateIdle:
			return false
		default:
			return true
		}
	}
	return false
}

func printFrame(p *replay.Player) {
	f, ok := p.Current()
	if !ok {
		return
	}
	idx, total := p.Position()
	s := replay.ComputeStats(&f)
	ts := time.UnixMilli(f.Ts).UTC().Format("15:04:05.000")
	fmt.Printf("%6d/%-6d %s  %s/%s d=%d px=%.4f sz=%.0f | mid=%.4f spread=%.4f imb=%+.4f R=%.2f dR=%+.2f\n",
		idx+1, total, ts,
		f.Event.Action, f.Event.Side, f.Event.Depth, f.Event.Price, f.Event.Size,
		s.Mid, s.Spread, s.Imbalance,
		f.StarGraph.RValue, f.StarGraph.DeltaR,
	)
}

func runAuto(p *replay.Player) {
	for {
		printFrame(p)
		if p.AtEnd() {
			return
		}
		if err := p.StepForward(); err != nil {
			return
		}
		if !waitSettled(p) {
			return
		}
	}
}

func runInteractive(p *replay.Player) {
	printFrame(p)
	scanner := bufio.NewScanner(os.Stdin)
	playing := false
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "n", "":
			_ = p.StepForward()
			waitSettled(p)
			playing = false
		case "p":
			_ = p.StepBack()
			playing = false
		case " ", "space":
			if playing {
				_ = p.Pause()
			} else {
				_ = p.Play()
			}
			playing = !playing
		case "q":
			return
		}
		printFrame(p)
	}
}
