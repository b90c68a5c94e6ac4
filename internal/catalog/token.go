// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trackgraph/internal/metrics"
	"github.com/tomtom215/trackgraph/internal/models"
)

const defaultTokenLifetime = time.Hour

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a bearer token, refreshing it when it is about to
// expire. Concurrent refreshes share one request.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if tok, ok := c.cachedToken(); ok {
		return tok, nil
	}
	flightCtx := context.WithoutCancel(ctx)
	ch := c.tokenFlight.DoChan("token", func() (any, error) {
		if tok, ok := c.cachedToken(); ok {
			return tok, nil
		}
		return c.refreshToken(flightCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: token request abandoned: %v", models.ErrUpstream, ctx.Err())
	}
}

func (c *Client) cachedToken() (string, bool) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token == "" || !c.now().Add(c.cfg.TokenRefreshSkew).Before(c.tokenExpiry) {
		return "", false
	}
	return c.token, true
}

func (c *Client) dropToken() {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.token = ""
	c.tokenExpiry = time.Time{}
}

func (c *Client) refreshToken(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	form := url.Values{"grant_type": {"client_credentials"}}.Encode()

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		metrics.CatalogTokenRefreshes.WithLabelValues("error").Inc()
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.CatalogTokenRefreshes.WithLabelValues("error").Inc()
		return "", upstreamStatusError("token", resp)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil || tr.AccessToken == "" {
		metrics.CatalogTokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: token response missing access_token", models.ErrUpstream)
	}

	lifetime := defaultTokenLifetime
	if tr.ExpiresIn > 0 {
		lifetime = time.Duration(tr.ExpiresIn) * time.Second
	}

	c.tokenMu.Lock()
	c.token = tr.AccessToken
	c.tokenExpiry = c.now().Add(lifetime)
	c.tokenMu.Unlock()

	metrics.CatalogTokenRefreshes.WithLabelValues("success").Inc()
	return tr.AccessToken, nil
}
