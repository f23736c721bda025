package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpFetcher performs the raw page fetch, grounded on the teacher's
// pkg/health.HTTPChecker: a pooled *http.Client, a per-request context
// timeout, and explicit header injection to look like a browser
// rather than a bot.
type httpFetcher struct {
	client  *http.Client
	headers map[string]string
}

func newHTTPFetcher(timeout time.Duration) *httpFetcher {
	return &httpFetcher{
		client: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": "fr-FR,fr;q=0.9,en;q=0.8",
		},
	}
}

func (f *httpFetcher) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("scraper: build request: %w", err)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("scraper: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("scraper: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("scraper: read body: %w", err)
	}
	return string(body), nil
}
