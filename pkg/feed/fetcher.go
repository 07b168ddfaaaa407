package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-pkgz/repeater/v2"

	"github.com/takutils/inrcot/pkg/config"
)

// Fetcher retrieves MapShare feed content over HTTP. Transient failures are
// retried with a fixed delay inside a single Fetch call; the polling loop above
// it never retries except on the next tick.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	attempts   int
	retryDelay time.Duration
}

// NewFetcher creates a feed fetcher with the given per-request timeout
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent:  "inrcot/1.0",
		attempts:   3,
		retryDelay: 500 * time.Millisecond,
	}
}

// Fetch issues a GET against the feed URL, attaching basic auth when configured,
// and returns the response body.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string, auth *config.BasicAuth) ([]byte, error) {
	if feedURL == "" {
		return nil, fmt.Errorf("feed has no url")
	}

	var body []byte
	retrier := repeater.NewFixed(f.attempts, f.retryDelay)
	err := retrier.Do(ctx, func() error {
		var e error
		body, e = f.fetch(ctx, feedURL, auth)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}
	return body, nil
}

// fetch performs a single request attempt
func (f *Fetcher) fetch(ctx context.Context, feedURL string, auth *config.BasicAuth) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	if auth != nil {
		req.SetBasicAuth(auth.Username, auth.Password)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
