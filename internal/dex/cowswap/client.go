package cowswap

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gabesan21/trading-web3/internal/dexerr"
)

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return dexerr.New(SourceName, dexerr.KindValidation, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return dexerr.New(SourceName, dexerr.KindValidation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return dexerr.New(SourceName, dexerr.KindNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return dexerr.New(SourceName, dexerr.KindNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return dexerr.Newf(SourceName, dexerr.KindRateLimited, "status 429").
			WithHint("use an authenticated API tier")
	case resp.StatusCode >= 500:
		return dexerr.Newf(SourceName, dexerr.KindNetwork, "status %d: %s", resp.StatusCode, truncate(raw))
	case resp.StatusCode >= 400:
		return dexerr.Newf(SourceName, dexerr.KindNoLiquidity, "status %d: %s", resp.StatusCode, truncate(raw))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return dexerr.Newf(SourceName, dexerr.KindBackend, "decode response: %v", err)
		}
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
