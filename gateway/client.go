// Package gateway talks to the market-data pipeline's dashboard API.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"bookviz-go/heatmap"
	"bookviz-go/metrics"
	"bookviz-go/replay"
)

// HeatmapQuery selects a depth-over-time window.
type HeatmapQuery struct {
	Symbol     string
	Date       string
	FromTs     string
	ToTs       string
	MaxSamples int
	PriceRange int
}

// ReplayQuery selects one page of replay frames.
type ReplayQuery struct {
	Symbol string
	Date   string
	FromTs string
	ToTs   string
	Offset int
	Limit  int
}

// Client is a read-only HTTP client for the backend; HTTPClient is
// injectable so tests can point it at httptest.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Limiter    RateLimiter
	Log        *zap.Logger
}

// NewDefaultHTTPClient provides an http.Client with a sane timeout.
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// Heatmap fetches a binned depth grid.
func (c *Client) Heatmap(ctx context.Context, q HeatmapQuery) (*heatmap.Response, error) {
	params := url.Values{}
	params.Set("symbol", q.Symbol)
	params.Set("date", q.Date)
	params.Set("from_ts", q.FromTs)
	params.Set("to_ts", q.ToTs)
	params.Set("max_samples", strconv.Itoa(q.MaxSamples))
	params.Set("price_range", strconv.Itoa(q.PriceRange))

	var resp heatmap.Response
	if err := c.get(ctx, "heatmap", "/api/data/heatmap", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Replay fetches one page of book frames.
func (c *Client) Replay(ctx context.Context, q ReplayQuery) (*replay.Page, error) {
	params := url.Values{}
	params.Set("symbol", q.Symbol)
	params.Set("date", q.Date)
	params.Set("from_ts", q.FromTs)
	params.Set("to_ts", q.ToTs)
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("limit", strconv.Itoa(q.Limit))

	var page replay.Page
	if err := c.get(ctx, "replay", "/api/data/replay", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchPage adapts the client to the player's PageFetcher.
func (p *Client) FetchPage(ctx context.Context, q replay.Query, offset int) (*replay.Page, error) {
	return p.Replay(ctx, ReplayQuery{
		Symbol: q.Symbol,
		Date:   q.Date,
		FromTs: q.FromTs,
		ToTs:   q.ToTs,
		Offset: offset,
		Limit:  q.Limit,
	})
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out interface{}) error {
	if c == nil || c.HTTPClient == nil {
		return fmt.Errorf("http client not set")
	}
	if c.Limiter != nil {
		c.Limiter.Wait()
	}
	start := time.Now()
	err := c.doGet(ctx, path, params, out)
	metrics.ObserveBackendRequest(endpoint, err, time.Since(start).Seconds())
	if err != nil && c.Log != nil {
		c.Log.Warn("backend request failed",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
	}
	return err
}

func (c *Client) doGet(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.BaseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
