// Package httpclient holds the HTTP adapters the transaction service uses to reach its peers.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout = 2 * time.Second
	maxBodyBytes   = 1 << 20
)

type Config struct {
	BaseURL string
	// Timeout bounds each call; callers may set a tighter deadline on the context.
	Timeout time.Duration
	// Transport defaults to http.DefaultTransport and is always wrapped for trace propagation.
	Transport http.RoundTripper
}

type client struct {
	base *url.URL
	http *http.Client
}

func newClient(cfg Config) (*client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("httpclient: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("httpclient: parse base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	rt := cfg.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &client{
		base: base,
		http: &http.Client{Timeout: cfg.Timeout, Transport: otelhttp.NewTransport(rt)},
	}, nil
}

type response struct {
	status int
	body   []byte
}

func (r response) decode(dst any) error {
	if err := json.Unmarshal(r.body, dst); err != nil {
		return fmt.Errorf("httpclient: decode %d response: %w", r.status, err)
	}
	return nil
}

func (c *client) do(ctx context.Context, method, path string, query url.Values, body any) (response, error) {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return response{}, fmt.Errorf("httpclient: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return response{}, fmt.Errorf("httpclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("httpclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return response{}, fmt.Errorf("httpclient: read response: %w", err)
	}
	return response{status: resp.StatusCode, body: raw}, nil
}

func unexpected(op string, r response) error {
	return fmt.Errorf("httpclient: %s: unexpected status %d: %s", op, r.status, strings.TrimSpace(string(r.body)))
}
