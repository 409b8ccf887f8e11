// Package explorer is the client for the historical game database and the
// cloud evaluation service. Failures degrade to empty data at the caller;
// nothing here aborts a session.
package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/shrinivas105/chess-theory-trainer/internal/campaign"
)

// mateEval is the sentinel evaluation for forced-mate lines.
const mateEval = 100.0

type Client struct {
	http     *fasthttp.Client
	base     string // opening explorer base URL
	evalURL  string // cloud-eval endpoint
	timeout  time.Duration
	retryMax int

	mu         sync.RWMutex
	statsCache map[string]PositionStats
	evalCache  map[string]float64
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func NewClient(baseURL, evalURL string, opts ...Option) *Client {
	c := &Client{
		http:       &fasthttp.Client{ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second, MaxConnsPerHost: 16},
		base:       strings.TrimRight(baseURL, "/"),
		evalURL:    strings.TrimRight(evalURL, "?"),
		timeout:    15 * time.Second,
		retryMax:   2,
		statsCache: make(map[string]PositionStats),
		evalCache:  make(map[string]float64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func dbPath(camp campaign.Campaign) string {
	if camp == campaign.Master {
		return "/masters"
	}
	return "/lichess"
}

func ratingsParam(cfg campaign.Config) string {
	if len(cfg.RatingBuckets) == 0 {
		return ""
	}
	parts := make([]string, 0, len(cfg.RatingBuckets))
	for _, r := range cfg.RatingBuckets {
		parts = append(parts, strconv.Itoa(r))
	}
	return strings.Join(parts, ",")
}

// Stats fetches the explorer record for a position: position-level game
// totals plus up to 20 moves, enough for the rank-5..20 tricky window.
// Responses are cached for the process lifetime; positions deep in theory
// are queried twice per ply (classification, then opponent sampling).
func (c *Client) Stats(ctx context.Context, camp campaign.Campaign, fen string) (PositionStats, error) {
	key := string(camp) + "|" + fen
	c.mu.RLock()
	if s, ok := c.statsCache[key]; ok {
		c.mu.RUnlock()
		return s, nil
	}
	c.mu.RUnlock()

	cfg := campaign.For(camp)
	u := fmt.Sprintf("%s%s?variant=standard&fen=%s&topGames=0&moves=20", c.base, dbPath(camp), url.QueryEscape(fen))
	if r := ratingsParam(cfg); r != "" {
		u += "&ratings=" + r
	}

	var stats PositionStats
	if err := c.getJSON(ctx, u, &stats); err != nil {
		return PositionStats{}, err
	}

	c.mu.Lock()
	c.statsCache[key] = stats
	c.mu.Unlock()
	return stats, nil
}

// Moves returns the frequency-descending move list for a position.
func (c *Client) Moves(ctx context.Context, camp campaign.Campaign, fen string) ([]Move, error) {
	stats, err := c.Stats(ctx, camp, fen)
	if err != nil {
		return nil, err
	}
	return stats.Moves, nil
}

// Games fetches the historical games panel for the final position: top games
// for the Master database, recent games for Club.
func (c *Client) Games(ctx context.Context, camp campaign.Campaign, fen string) ([]GameRecord, error) {
	cfg := campaign.For(camp)
	u := fmt.Sprintf("%s%s?variant=standard&fen=%s", c.base, dbPath(camp), url.QueryEscape(fen))
	if camp == campaign.Master {
		u += "&topGames=4"
	} else {
		u += "&recentGames=4"
		if r := ratingsParam(cfg); r != "" {
			u += "&ratings=" + r
		}
	}

	var stats PositionStats
	if err := c.getJSON(ctx, u, &stats); err != nil {
		return nil, err
	}
	if camp == campaign.Master {
		return stats.TopGames, nil
	}
	return stats.RecentGames, nil
}

// Evaluate returns the position evaluation in pawns from White's perspective,
// with mate lines mapped to the ±100 sentinel. Results are memoized by FEN.
func (c *Client) Evaluate(ctx context.Context, fen string) (float64, error) {
	c.mu.RLock()
	if v, ok := c.evalCache[fen]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	u := fmt.Sprintf("%s?fen=%s&multiPv=1", c.evalURL, url.QueryEscape(fen))
	var resp cloudEvalResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return 0, err
	}
	if len(resp.PVs) == 0 {
		return 0, errors.New("cloud eval returned no lines")
	}

	pv := resp.PVs[0]
	var eval float64
	switch {
	case pv.Mate != nil:
		eval = mateEval
		if *pv.Mate < 0 {
			eval = -mateEval
		}
	case pv.CP != nil:
		eval = float64(*pv.CP) / 100
	}

	// Scores come back relative to the side to move.
	if sideToMove(fen) == "b" {
		eval = -eval
	}

	c.mu.Lock()
	c.evalCache[fen] = eval
	c.mu.Unlock()
	return eval, nil
}

func sideToMove(fen string) string {
	parts := strings.Fields(fen)
	if len(parts) >= 2 {
		return parts[1]
	}
	return "w"
}

func (c *Client) getJSON(ctx context.Context, uri string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(uri)
	req.Header.Set("Accept", "application/json")

	attempts := c.retryMax + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("explorer api error: status=%d body=%s", status, truncate(string(resp.Body()), 256))
			if attempt == attempts || !shouldRetryStatus(status) {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 200 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
