// Package openocean is the HTTP aggregator backend. Quotes and swap
// calldata come from the OpenOcean REST API; execution still happens
// on-chain through the calldata the API returns.
package openocean

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/gabesan21/trading-web3/internal/dexerr"
)

const SourceName = "openocean"

type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

func newClient(baseURL, apiKey string, requestsPerSecond float64) *client {
	return &client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// getJSON performs one rate-limited GET and decodes the response,
// classifying HTTP failures onto the shared taxonomy. Retrying is the
// caller's job; this layer only classifies.
func (c *client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return dexerr.New(SourceName, dexerr.KindNetwork, err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return dexerr.New(SourceName, dexerr.KindValidation, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return dexerr.New(SourceName, dexerr.KindNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return dexerr.New(SourceName, dexerr.KindNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return dexerr.Newf(SourceName, dexerr.KindRateLimited, "status 429").
			WithHint("use an authenticated API tier")
	case resp.StatusCode >= 500:
		return dexerr.Newf(SourceName, dexerr.KindNetwork, "status %d: %s", resp.StatusCode, truncate(body))
	case resp.StatusCode >= 400:
		// The aggregator answers 4xx for pairs it cannot route.
		return dexerr.Newf(SourceName, dexerr.KindNoLiquidity, "status %d: %s", resp.StatusCode, truncate(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return dexerr.Newf(SourceName, dexerr.KindBackend, "decode response: %v", err)
	}
	return nil
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

func chainPath(chainID int64) string {
	return fmt.Sprintf("/v4/%d", chainID)
}
