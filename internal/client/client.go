// Package client fetches the stats document from a running stats server.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/nixlim/tooltop/internal/stats"
)

// FetchError is the single failure kind of a refresh cycle: a transport
// error, a non-2xx status, or an undecodable body.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Doer is the subset of *http.Client used by StatsClient.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type StatsClient struct {
	url  string
	http Doer
}

type Option func(*StatsClient)

// WithHTTPClient replaces the default client. The default has no overall
// timeout; a fetch that never completes simply never renders.
func WithHTTPClient(d Doer) Option {
	return func(c *StatsClient) { c.http = d }
}

func New(url string, opts ...Option) *StatsClient {
	c := &StatsClient{
		url:  url,
		http: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *StatsClient) URL() string { return c.url }

// Fetch performs one GET against the stats endpoint. Every failure is
// returned as *FetchError.
func (c *StatsClient) Fetch(ctx context.Context) (stats.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return stats.Payload{}, &FetchError{URL: c.url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return stats.Payload{}, &FetchError{URL: c.url, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return stats.Payload{}, &FetchError{
			URL:        c.url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	p, err := stats.Decode(resp.Body)
	if err != nil {
		return stats.Payload{}, &FetchError{URL: c.url, StatusCode: resp.StatusCode, Err: err}
	}
	return p, nil
}
