// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/tomtom215/trackgraph/internal/config"
	"github.com/tomtom215/trackgraph/internal/logging"
	"github.com/tomtom215/trackgraph/internal/metrics"
	"github.com/tomtom215/trackgraph/internal/models"
)

// Entity kinds, also the JSON keys of the batch responses.
const (
	KindTracks  = "tracks"
	KindArtists = "artists"
)

// MaxBatchSize is the largest id list the catalog accepts per request.
const MaxBatchSize = 50

// maxErrorBodySize limits how much of an error response is read
const maxErrorBodySize = 64 * 1024 // 64KB

// Client talks to the catalog API. Safe for concurrent use.
type Client struct {
	cfg     config.CatalogConfig
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]*models.Entity]

	requests *lru.Cache[string, []models.Entity]
	flights  singleflight.Group

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
	tokenFlight singleflight.Group

	now func() time.Time
}

// New creates a client from cfg. Zero values fall back to sensible defaults.
func New(cfg config.CatalogConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.RequestCacheSize <= 0 {
		cfg.RequestCacheSize = 4000
	}
	if cfg.TokenRefreshSkew <= 0 {
		cfg.TokenRefreshSkew = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := max(cfg.RateBurst, 1)

	// Size is positive, so New cannot fail.
	requests, _ := lru.New[string, []models.Entity](cfg.RequestCacheSize)

	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(limit, burst),
		breaker:  newBreaker("catalog-api", cfg.BreakerTimeout),
		requests: requests,
		now:      time.Now,
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

// FetchTracks resolves track ids. Unknown ids are omitted from the result.
func (c *Client) FetchTracks(ctx context.Context, ids []string) ([]models.Entity, error) {
	return c.fetch(ctx, KindTracks, ids)
}

// FetchArtists resolves artist ids. Unknown ids are omitted from the result.
func (c *Client) FetchArtists(ctx context.Context, ids []string) ([]models.Entity, error) {
	return c.fetch(ctx, KindArtists, ids)
}

func (c *Client) fetch(ctx context.Context, kind string, ids []string) ([]models.Entity, error) {
	if !c.Configured() {
		return nil, models.ErrNotConfigured
	}
	if len(ids) == 0 {
		return nil, nil
	}

	key := kind + "|" + strings.Join(ids, ",")
	if cached, ok := c.requests.Get(key); ok {
		metrics.CatalogRequests.WithLabelValues(kind, "cached").Inc()
		return slices.Clone(cached), nil
	}

	// The shared call runs detached from any one caller so a disconnect does
	// not fail the other waiters; each batch carries its own deadline.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key, func() (any, error) {
		var out []models.Entity
		for batch := range slices.Chunk(ids, c.cfg.BatchSize) {
			entities, err := c.fetchBatch(flightCtx, kind, batch)
			if err != nil {
				return nil, err
			}
			for _, e := range entities {
				if e != nil {
					out = append(out, *e)
				}
			}
		}
		c.requests.Add(key, out)
		return out, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]models.Entity)), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s request abandoned: %v", models.ErrUpstream, kind, ctx.Err())
	}
}

// fetchBatch performs one batch GET through the circuit breaker.
func (c *Client) fetchBatch(ctx context.Context, kind string, ids []string) ([]*models.Entity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	entities, err := c.execute(func() ([]*models.Entity, error) {
		token, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		reqURL := fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.cfg.BaseURL, "/"), kind,
			url.Values{"ids": {strings.Join(ids, ",")}}.Encode())

		resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Accept", "application/json")
			return req, nil
		})
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized {
			c.dropToken()
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, upstreamStatusError(kind, resp)
		}

		var payload map[string][]*models.Entity
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("%w: decode %s response: %v", models.ErrUpstream, kind, err)
		}
		return payload[kind], nil
	})
	if err != nil && !errors.Is(err, models.ErrUpstream) && !errors.Is(err, models.ErrNotConfigured) {
		err = fmt.Errorf("%w: %s batch: %v", models.ErrUpstream, kind, err)
	}
	metrics.RecordCatalogRequest(kind, time.Since(start), err)
	if err != nil {
		logging.Warn().Err(err).Str("kind", kind).Int("ids", len(ids)).Msg("Catalog batch request failed")
	}
	return entities, err
}

// doWithRetry sends the request built by newReq, retrying 429 and 5xx
// responses with exponential backoff. The final response is returned as is.
func (c *Client) doWithRetry(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", models.ErrUpstream, err)
		}
		req, err := newReq()
		if err != nil {
			return nil, fmt.Errorf("create request failed: %w", err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: request failed: %v", models.ErrUpstream, err)
		}
		if !retryable(resp.StatusCode) || attempt >= c.cfg.MaxRetries {
			return resp, nil
		}

		delay, err := c.retryDelay(ctx, attempt, resp.Header.Get("Retry-After"))
		if err != nil {
			status := resp.StatusCode
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%w: status %d: %v", models.ErrUpstream, status, err)
		}
		_ = resp.Body.Close()

		logging.Debug().Int("status", resp.StatusCode).Dur("retry_delay", delay).Int("attempt", attempt+1).
			Msg("Catalog request throttled, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", models.ErrUpstream, ctx.Err())
		}
	}
}

// retryDelay picks the wait before the next attempt: Retry-After when the
// server sends one, exponential backoff otherwise. A wait longer than the
// request timeout, or past ctx's deadline, ends the retries.
func (c *Client) retryDelay(ctx context.Context, attempt int, retryAfter string) (time.Duration, error) {
	delay := c.cfg.RetryBaseDelay * time.Duration(1<<uint(attempt))
	if retryAfter != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs >= 0 {
			delay = time.Duration(secs) * time.Second
		}
	}
	if delay > c.cfg.Timeout {
		return 0, fmt.Errorf("retry delay %s exceeds timeout %s", delay, c.cfg.Timeout)
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
		return 0, fmt.Errorf("retry delay %s exceeds remaining deadline", delay)
	}
	return delay, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// readBodyForError reads the response body for error reporting (max 64KB)
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

func upstreamStatusError(what string, resp *http.Response) error {
	body := strings.TrimSpace(string(readBodyForError(resp.Body)))
	return fmt.Errorf("%w: %s request failed with status %d: %s", models.ErrUpstream, what, resp.StatusCode, body)
}
