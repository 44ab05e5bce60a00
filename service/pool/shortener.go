package pool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPShortener shortens URLs through a tinyurl-style endpoint that takes
// the long URL as a query parameter and answers with the short URL as plain
// text.
type HTTPShortener struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPShortener creates a shortener client. If httpClient is nil, a
// client with a 10s timeout is used.
func NewHTTPShortener(endpoint string, httpClient *http.Client) *HTTPShortener {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPShortener{endpoint: endpoint, httpClient: httpClient}
}

// Shorten implements Shortener.
func (s *HTTPShortener) Shorten(ctx context.Context, longURL string) (string, error) {
	u := s.endpoint + "?url=" + url.QueryEscape(longURL)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("shorten request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("shorten request failed with status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read shorten response: %w", err)
	}

	short := strings.TrimSpace(string(body))
	if short == "" {
		return "", fmt.Errorf("shortener returned an empty body")
	}
	return short, nil
}
