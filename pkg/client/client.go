package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"arbor/pkg/common"
)

var ErrNotFound = errors.New("category not found")

// Client queries a running arbor server over HTTP.
type Client struct {
	base string
	http *http.Client
}

// New accepts a base URL such as http://127.0.0.1:8000. A bare host:port is
// treated as plain HTTP.
func New(base string) (*Client, error) {
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server address %q", base)
	}
	return &Client{
		base: strings.TrimRight(u.String(), "/"),
		http: &http.Client{Timeout: 5 * time.Second},
	}, nil
}

func (c *Client) Largest(ctx context.Context, category string) (common.Record, error) {
	return c.get(ctx, "largest_tree", category)
}

func (c *Client) Smallest(ctx context.Context, category string) (common.Record, error) {
	return c.get(ctx, "smallest_tree", category)
}

func (c *Client) get(ctx context.Context, endpoint, category string) (common.Record, error) {
	var rec common.Record

	u := c.base + "/" + endpoint + "/" + url.PathEscape(category)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return rec, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return rec, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return rec, fmt.Errorf("%w: %q", ErrNotFound, category)
	default:
		return rec, fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return rec, fmt.Errorf("decode response: %w", err)
	}
	return rec, nil
}
