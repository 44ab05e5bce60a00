package pool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPShortener(t *testing.T) {
	var gotURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		w.Write([]byte("https://tinyurl.com/abc123\n"))
	}))
	defer server.Close()

	shortener := NewHTTPShortener(server.URL, nil)
	short, err := shortener.Shorten(context.Background(), "https://host.example/metadata.json?id=1&x=2")
	require.NoError(t, err)

	assert.Equal(t, "https://tinyurl.com/abc123", short, "trailing whitespace must be stripped")
	assert.Equal(t, "https://host.example/metadata.json?id=1&x=2", gotURL)
}

func TestHTTPShortenerNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	shortener := NewHTTPShortener(server.URL, nil)
	_, err := shortener.Shorten(context.Background(), "https://host.example/m.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestHTTPShortenerEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("  \n"))
	}))
	defer server.Close()

	shortener := NewHTTPShortener(server.URL, nil)
	_, err := shortener.Shorten(context.Background(), "https://host.example/m.json")
	require.Error(t, err)
}
