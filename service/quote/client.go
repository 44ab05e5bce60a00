package quote

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

	"github.com/FlipZ3ro/superswapui/service/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Request is one outbound quote request against the pricing service.
type Request struct {
	InputMint       string
	OutputMint      string
	AmountBaseUnits uint64
	SlippageBps     int
}

// Pricer is the interface to the external pricing/swap-execution service.
// This allows us to mock the upstream in tests.
type Pricer interface {
	// GetQuote requests a priced conversion estimate.
	GetQuote(ctx context.Context, req Request) (*Quote, error)

	// BuildSwap posts a previously obtained quote back to the service and
	// returns a base64-encoded signable transaction.
	BuildSwap(ctx context.Context, userPublicKey string, q *Quote) (string, error)
}

// Client talks to a Jupiter-compatible pricing API over HTTP.
// Outbound calls are throttled by a token-bucket limiter so a misbehaving
// caller cannot flood the upstream.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a pricing service client.
// rps/burst bound the outbound request rate. If httpClient is nil, a client
// with a 15s timeout is used.
func NewClient(baseURL string, rps, burst int, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     logger,
		metrics:    m,
	}
}

// quoteResponse is the upstream quote payload. Only the fields this core
// needs are modeled; the full body is retained verbatim in Quote.Raw.
type quoteResponse struct {
	OutAmount      string      `json:"outAmount"`
	PriceImpactPct json.Number `json:"priceImpactPct"`
}

// GetQuote requests a quote for the given amount and pair.
func (c *Client) GetQuote(ctx context.Context, req Request) (*Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("inputMint", req.InputMint)
	params.Set("outputMint", req.OutputMint)
	params.Set("amount", strconv.FormatUint(req.AmountBaseUnits, 10))
	params.Set("slippageBps", strconv.Itoa(req.SlippageBps))

	u := c.baseURL + "/quote?" + params.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start).Seconds()
	if err != nil {
		c.metrics.RecordQuoteRequest("error", duration)
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordQuoteRequest("error", duration)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("quote request failed with status %d: %s", resp.StatusCode, string(body))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordQuoteRequest("error", duration)
		return nil, fmt.Errorf("failed to read quote response: %w", err)
	}

	var qr quoteResponse
	if err := json.Unmarshal(raw, &qr); err != nil {
		c.metrics.RecordQuoteRequest("error", duration)
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}

	outAmount, err := strconv.ParseUint(qr.OutAmount, 10, 64)
	if err != nil {
		c.metrics.RecordQuoteRequest("error", duration)
		return nil, fmt.Errorf("invalid outAmount %q: %w", qr.OutAmount, err)
	}

	impact := decimal.Zero
	if qr.PriceImpactPct != "" {
		impact, err = decimal.NewFromString(qr.PriceImpactPct.String())
		if err != nil {
			c.metrics.RecordQuoteRequest("error", duration)
			return nil, fmt.Errorf("invalid priceImpactPct %q: %w", qr.PriceImpactPct, err)
		}
	}

	c.metrics.RecordQuoteRequest("success", duration)
	c.logger.DebugContext(ctx, "quote received",
		"input_mint", req.InputMint,
		"output_mint", req.OutputMint,
		"amount", req.AmountBaseUnits,
		"out_amount", outAmount,
	)

	return &Quote{
		OutputAmount:   outAmount,
		PriceImpactPct: impact,
		Raw:            raw,
	}, nil
}

// BuildSwap posts the quote back to the pricing service and returns the
// base64-encoded transaction to be signed by the user's wallet.
func (c *Client) BuildSwap(ctx context.Context, userPublicKey string, q *Quote) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	reqBody := map[string]interface{}{
		"userPublicKey": userPublicKey,
		"quoteResponse": json.RawMessage(q.Raw),
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal swap request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("swap request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("swap request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var swapResp struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&swapResp); err != nil {
		return "", fmt.Errorf("failed to decode swap response: %w", err)
	}
	if swapResp.SwapTransaction == "" {
		return "", fmt.Errorf("swap response missing transaction")
	}

	return swapResp.SwapTransaction, nil
}
