package smoke

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

// maxBody bounds how much of a response is read.
const maxBody = 8 << 20

// client issues GET requests against the service and counts them.
type client struct {
	base     string
	http     *http.Client
	requests atomic.Int64
}

func newClient(base string, timeout time.Duration) *client {
	return &client{base: base, http: &http.Client{Timeout: timeout}}
}

// get fetches path and returns the status code and body.
func (c *client) get(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("build request %s: %w", path, err)
	}
	c.requests.Add(1)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return resp.StatusCode, body, nil
}

// getJSON fetches path, requires want as the status and decodes into v.
func (c *client) getJSON(ctx context.Context, path string, want int, v any) error {
	status, body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if status != want {
		return fmt.Errorf("GET %s: status %d, want %d: %s", path, status, want, truncate(body))
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}

func escape(s string) string { return url.PathEscape(s) }

func truncate(b []byte) string {
	const n = 200
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
