package gateway

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bookviz-go/heatmap"
	"bookviz-go/metrics"
)

// SampleHandler receives parsed live depth samples.
type SampleHandler interface {
	OnSample(heatmap.LiveSample)
}

// StreamClient subscribes to the backend's live depth stream over
// websocket and delivers parsed samples to a handler. Reconnects with
// a fixed backoff until the context is cancelled.
type StreamClient struct {
	Endpoint string // e.g. ws://backend:8000/api/stream
	Symbol   string
	Dialer   *websocket.Dialer
	Log      *zap.Logger

	// ReconnectWait between dial attempts; defaults to 3s.
	ReconnectWait time.Duration
}

// Run blocks until ctx is done, dialing and reading in a loop.
func (s *StreamClient) Run(ctx context.Context, h SampleHandler) error {
	if s.Endpoint == "" {
		return fmt.Errorf("stream endpoint required")
	}
	if s.Symbol == "" {
		return fmt.Errorf("symbol required")
	}
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	wait := s.ReconnectWait
	if wait <= 0 {
		wait = 3 * time.Second
	}

	u, err := url.Parse(s.Endpoint)
	if err != nil {
		return fmt.Errorf("parse stream endpoint: %w", err)
	}
	q := u.Query()
	q.Set("symbol", s.Symbol)
	u.RawQuery = q.Encode()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.readLoop(ctx, dialer, u.String(), h, log); err != nil {
			log.Warn("stream disconnected", zap.Error(err))
		}
		metrics.StreamReconnects.Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (s *StreamClient) readLoop(ctx context.Context, dialer *websocket.Dialer, endpoint string, h SampleHandler, log *zap.Logger) error {
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info("stream connected", zap.String("endpoint", endpoint))

	// unblock ReadMessage when the context dies
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		sample, ok, err := ParseDepthSample(message)
		if err != nil {
			log.Warn("bad stream message", zap.Error(err))
			continue
		}
		if ok && h != nil {
			h.OnSample(sample)
		}
	}
}
