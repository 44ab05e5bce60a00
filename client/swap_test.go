package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/tokens", r.URL.Path)
		assert.Equal(t, "dog", r.URL.Query().Get("search"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "10", r.URL.Query().Get("offset"))
		json.NewEncoder(w).Encode(TokenPage{
			Tokens: []Token{{Address: "addr1", Symbol: "DOG", Decimals: 6}},
			Total:  42,
			Limit:  5,
			Offset: 10,
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	page, err := c.ListTokens(context.Background(), "dog", 5, 10)
	require.NoError(t, err)

	assert.Equal(t, 42, page.Total)
	assert.Equal(t, 5, page.Limit)
	assert.Equal(t, 10, page.Offset)
	require.Len(t, page.Tokens, 1)
	assert.Equal(t, "DOG", page.Tokens[0].Symbol)
}

func TestGetQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/quote", r.URL.Path)
		assert.Equal(t, "mintA", r.URL.Query().Get("inputMint"))
		assert.Equal(t, "1.5", r.URL.Query().Get("amount"))
		json.NewEncoder(w).Encode(Quote{OutputAmount: 2500000, PriceImpactPct: "0.12"})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	q, err := c.GetQuote(context.Background(), "mintA", "mintB", "1.5", 50)
	require.NoError(t, err)
	assert.Equal(t, uint64(2500000), q.OutputAmount)
	assert.Equal(t, "0.12", q.PriceImpactPct)
}

func TestGetPool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/pools/mintX/mintY", r.URL.Path)
		json.NewEncoder(w).Encode(PoolInfo{Exists: true, PoolAddress: "pool1"})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	info, err := c.GetPool(context.Background(), "mintX", "mintY")
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, "pool1", info.PoolAddress)
}

func TestCreatePool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/pools", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req CreatePoolRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "DOG", req.Symbol)
		assert.Equal(t, "image/png", req.Media.ContentType)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(CreatePoolResult{Signature: "sig1", PoolAddress: "pool1"})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	result, err := c.CreatePool(context.Background(), CreatePoolRequest{
		MintX: "mintX", MintY: "mintY", AmountX: 1, AmountY: 2,
		Name: "Dog Pool", Symbol: "DOG",
		Media: CreatePoolMedia{Filename: "dog.png", ContentType: "image/png", Data: "cG5n"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sig1", result.Signature)
}

func TestSwap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/swaps", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mintA", req["input_mint"])
		json.NewEncoder(w).Encode(SwapResult{Signature: "sig2", OutputAmount: 99})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	result, err := c.Swap(context.Background(), "mintA", "mintB", "1", 50)
	require.NoError(t, err)
	assert.Equal(t, "sig2", result.Signature)
	assert.Equal(t, uint64(99), result.OutputAmount)
}

func TestErrorResponseParsing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "pool already exists"})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	_, err := c.GetPool(context.Background(), "mintX", "mintY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "pool already exists")
}
