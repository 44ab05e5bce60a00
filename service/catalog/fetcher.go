package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSource fetches the token catalog from Jupiter-style cache endpoints:
// one URL serving the full token list as a JSON array, another serving the
// featured subset as a JSON array of addresses.
type HTTPSource struct {
	allURL      string
	featuredURL string
	httpClient  *http.Client
}

// NewHTTPSource creates a Source backed by the given catalog endpoints.
// If httpClient is nil, a client with a 30s timeout is used.
func NewHTTPSource(allURL, featuredURL string, httpClient *http.Client) *HTTPSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{
		allURL:      allURL,
		featuredURL: featuredURL,
		httpClient:  httpClient,
	}
}

// FetchAll downloads the full token catalog.
func (s *HTTPSource) FetchAll(ctx context.Context) ([]Record, error) {
	var records []Record
	if err := s.getJSON(ctx, s.allURL, &records); err != nil {
		return nil, fmt.Errorf("fetch token catalog: %w", err)
	}
	return records, nil
}

// FetchFeatured downloads the featured token address list.
func (s *HTTPSource) FetchFeatured(ctx context.Context) ([]string, error) {
	var addrs []string
	if err := s.getJSON(ctx, s.featuredURL, &addrs); err != nil {
		return nil, fmt.Errorf("fetch featured token list: %w", err)
	}
	return addrs, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
