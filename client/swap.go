package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Token is one asset record served by the directory endpoint.
type Token struct {
	Address      string  `json:"address"`
	Decimals     int     `json:"decimals"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	IconURI      string  `json:"logoURI"`
	OwnerProgram string  `json:"ownerProgram,omitempty"`
	Balance      *uint64 `json:"balance,omitempty"`
}

// TokenPage is one page of directory results.
type TokenPage struct {
	Tokens []Token `json:"tokens"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Quote is a priced conversion estimate returned by the quote endpoint.
type Quote struct {
	OutputAmount   uint64          `json:"outputAmount"`
	PriceImpactPct string          `json:"priceImpactPct"`
	QuoteResponse  json.RawMessage `json:"quoteResponse"`
}

// PoolInfo describes a pair's derived pool addresses and whether the pool
// exists on chain.
type PoolInfo struct {
	Exists      bool   `json:"exists"`
	PoolAddress string `json:"poolAddress"`
	LpMint      string `json:"lpMint"`
	MintA       string `json:"mintA"`
	MintB       string `json:"mintB"`
	VaultA      string `json:"vaultA"`
	VaultB      string `json:"vaultB"`
	Authority   string `json:"authority"`
	Observation string `json:"observation"`
	AmmConfig   string `json:"ammConfig"`
}

// CreatePoolRequest is the payload for bootstrapping a new pool.
type CreatePoolRequest struct {
	MintX       string          `json:"mint_x"`
	MintY       string          `json:"mint_y"`
	AmountX     uint64          `json:"amount_x"`
	AmountY     uint64          `json:"amount_y"`
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Description string          `json:"description"`
	Media       CreatePoolMedia `json:"media"`
}

// CreatePoolMedia carries the pool's descriptive asset, base64 encoded.
type CreatePoolMedia struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// CreatePoolResult reports a successful pool bootstrap.
type CreatePoolResult struct {
	Signature   string `json:"signature"`
	PoolAddress string `json:"poolAddress"`
	LpMint      string `json:"lpMint"`
	MetadataURI string `json:"metadataUri"`
}

// SwapResult reports an executed swap.
type SwapResult struct {
	Signature    string `json:"signature"`
	OutputAmount uint64 `json:"outputAmount"`
}

// Client is the HTTP client for the swap service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new swap service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ListTokens queries one page of the asset directory. An empty search
// returns the featured subset.
func (c *Client) ListTokens(ctx context.Context, search string, limit, offset int) (*TokenPage, error) {
	params := url.Values{}
	if search != "" {
		params.Set("search", search)
	}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var page TokenPage
	if err := c.getJSON(ctx, "/api/v1/tokens?"+params.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetQuote prices a conversion of amount (a decimal string in the input
// asset's units) from inputMint to outputMint.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint, amount string, slippageBps int) (*Quote, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", amount)
	params.Set("slippageBps", strconv.Itoa(slippageBps))

	var q Quote
	if err := c.getJSON(ctx, "/api/v1/quote?"+params.Encode(), &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// GetPool derives the pool addresses for a mint pair and reports existence.
func (c *Client) GetPool(ctx context.Context, mintX, mintY string) (*PoolInfo, error) {
	path := fmt.Sprintf("/api/v1/pools/%s/%s", url.PathEscape(mintX), url.PathEscape(mintY))

	var info PoolInfo
	if err := c.getJSON(ctx, path, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CreatePool bootstraps a new pool for a mint pair.
func (c *Client) CreatePool(ctx context.Context, req CreatePoolRequest) (*CreatePoolResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/pools", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, c.parseErrorResponse(resp)
	}

	var result CreatePoolResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("pool created", "pool", result.PoolAddress, "signature", result.Signature)
	return &result, nil
}

// Swap quotes and executes a swap in one round trip.
func (c *Client) Swap(ctx context.Context, inputMint, outputMint, amount string, slippageBps int) (*SwapResult, error) {
	reqBody := map[string]interface{}{
		"input_mint":   inputMint,
		"output_mint":  outputMint,
		"amount":       amount,
		"slippage_bps": slippageBps,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/swaps", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result SwapResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("swap executed", "signature", result.Signature)
	return &result, nil
}

// getJSON issues a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse extracts the error message from a non-OK response.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, errResp.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
}
