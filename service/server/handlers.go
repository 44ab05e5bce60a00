package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/FlipZ3ro/superswapui/service/catalog"
	"github.com/FlipZ3ro/superswapui/service/pool"
	"github.com/FlipZ3ro/superswapui/service/quote"
	"github.com/FlipZ3ro/superswapui/service/swap"
	solanago "github.com/gagliardetto/solana-go"
)

const (
	maxRequestBodySize = 32 << 20 // 32MB - pool creation carries media

	defaultLimit       = 10
	defaultSlippageBps = 50
)

// handleListTokens returns a handler that serves one page of the asset
// directory.
// GET /api/v1/tokens?search={s}&limit={n}&offset={n}
func handleListTokens(cache *catalog.Cache, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		search := r.URL.Query().Get("search")

		limit, err := queryInt(r, "limit", defaultLimit)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		offset, err := queryInt(r, "offset", 0)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if limit < 0 || offset < 0 {
			writeError(w, "limit and offset must be non-negative", http.StatusBadRequest)
			return
		}

		page, total := cache.Query(r.Context(), search, limit, offset)
		writeJSON(w, map[string]any{
			"tokens": page,
			"total":  total,
			"limit":  limit,
			"offset": offset,
		}, http.StatusOK)
	})
}

// handleGetQuote returns a handler that prices a conversion.
// GET /api/v1/quote?inputMint={m}&outputMint={m}&amount={decimal}&slippageBps={n}
func handleGetQuote(cache *catalog.Cache, pricer quote.Pricer, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q, status, err := quoteFromQuery(r, cache, pricer)
		if err != nil {
			if status >= http.StatusInternalServerError {
				logger.Error("quote request failed", "error", err)
				writeError(w, "failed to fetch quote", status)
				return
			}
			writeError(w, err.Error(), status)
			return
		}

		writeJSON(w, map[string]any{
			"outputAmount":   q.OutputAmount,
			"priceImpactPct": q.PriceImpactPct.String(),
			"quoteResponse":  json.RawMessage(q.Raw),
		}, http.StatusOK)
	})
}

// quoteFromQuery resolves both mints against the directory, converts the
// typed amount to base units, and fetches a quote. It returns the HTTP
// status to use on error.
func quoteFromQuery(r *http.Request, cache *catalog.Cache, pricer quote.Pricer) (*quote.Quote, int, error) {
	params := r.URL.Query()
	inputMint := params.Get("inputMint")
	outputMint := params.Get("outputMint")
	amount := params.Get("amount")

	if inputMint == "" || outputMint == "" || amount == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("inputMint, outputMint and amount are required")
	}

	slippageBps, err := queryInt(r, "slippageBps", defaultSlippageBps)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	input, ok := cache.Lookup(r.Context(), inputMint)
	if !ok {
		return nil, http.StatusNotFound, fmt.Errorf("unknown input mint %s", inputMint)
	}
	output, ok := cache.Lookup(r.Context(), outputMint)
	if !ok {
		return nil, http.StatusNotFound, fmt.Errorf("unknown output mint %s", outputMint)
	}

	amountBase, err := quote.BaseUnits(amount, input.Decimals)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	q, err := pricer.GetQuote(r.Context(), quote.Request{
		InputMint:       input.Address,
		OutputMint:      output.Address,
		AmountBaseUnits: amountBase,
		SlippageBps:     slippageBps,
	})
	if err != nil {
		return nil, http.StatusBadGateway, err
	}

	q.Intent = quote.Intent{
		InputAsset:  &input,
		OutputAsset: &output,
		Amount:      amount,
		SlippageBps: slippageBps,
	}
	return q, http.StatusOK, nil
}

// handleGetPool returns a handler that derives a pair's pool addresses and
// reports whether the pool exists.
// GET /api/v1/pools/{mintX}/{mintY}
func handleGetPool(orchestrator *pool.Orchestrator, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mintX, err := solanago.PublicKeyFromBase58(r.PathValue("mintX"))
		if err != nil {
			writeError(w, "invalid mintX", http.StatusBadRequest)
			return
		}
		mintY, err := solanago.PublicKeyFromBase58(r.PathValue("mintY"))
		if err != nil {
			writeError(w, "invalid mintY", http.StatusBadRequest)
			return
		}

		exists, keys, err := orchestrator.PoolExists(r.Context(), mintX, mintY)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, map[string]any{
			"exists":      exists,
			"poolAddress": keys.PoolState.String(),
			"lpMint":      keys.LpMint.String(),
			"mintA":       keys.MintA.String(),
			"mintB":       keys.MintB.String(),
			"vaultA":      keys.VaultA.String(),
			"vaultB":      keys.VaultB.String(),
			"authority":   keys.Authority.String(),
			"observation": keys.ObservationState.String(),
			"ammConfig":   keys.AmmConfig.String(),
		}, http.StatusOK)
	})
}

// createPoolRequest is the JSON body of POST /api/v1/pools.
type createPoolRequest struct {
	MintX       string `json:"mint_x"`
	MintY       string `json:"mint_y"`
	AmountX     uint64 `json:"amount_x"`
	AmountY     uint64 `json:"amount_y"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Media       struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
		Data        string `json:"data"` // base64
	} `json:"media"`
}

// handleCreatePool returns a handler that bootstraps a new pool.
// POST /api/v1/pools
func handleCreatePool(orchestrator *pool.Orchestrator, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req createPoolRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}

		mintX, err := solanago.PublicKeyFromBase58(req.MintX)
		if err != nil {
			writeError(w, "invalid mint_x", http.StatusBadRequest)
			return
		}
		mintY, err := solanago.PublicKeyFromBase58(req.MintY)
		if err != nil {
			writeError(w, "invalid mint_y", http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.Symbol == "" {
			writeError(w, "name and symbol are required", http.StatusBadRequest)
			return
		}
		if req.AmountX == 0 || req.AmountY == 0 {
			writeError(w, "both deposit amounts must be positive", http.StatusBadRequest)
			return
		}

		media, err := base64.StdEncoding.DecodeString(req.Media.Data)
		if err != nil {
			writeError(w, "media data must be base64", http.StatusBadRequest)
			return
		}
		if len(media) == 0 {
			writeError(w, "media is required", http.StatusBadRequest)
			return
		}

		result, err := orchestrator.CreatePool(r.Context(), pool.CreatePoolParams{
			MintX:       mintX,
			MintY:       mintY,
			AmountX:     req.AmountX,
			AmountY:     req.AmountY,
			Name:        req.Name,
			Symbol:      req.Symbol,
			Description: req.Description,
			Media: pool.Media{
				Filename:    req.Media.Filename,
				ContentType: req.Media.ContentType,
				Data:        media,
			},
		})
		if err != nil {
			if errors.Is(err, pool.ErrPoolExists) {
				writeError(w, err.Error(), http.StatusConflict)
				return
			}
			logger.Error("pool creation failed",
				"mint_x", req.MintX,
				"mint_y", req.MintY,
				"error", err,
			)
			writeError(w, "pool creation failed", http.StatusInternalServerError)
			return
		}

		logger.Info("pool created",
			"pool", result.Keys.PoolState.String(),
			"signature", result.Signature.String(),
		)
		writeJSON(w, map[string]any{
			"signature":   result.Signature.String(),
			"poolAddress": result.Keys.PoolState.String(),
			"lpMint":      result.Keys.LpMint.String(),
			"metadataUri": result.MetadataURI,
		}, http.StatusCreated)
	})
}

// executeSwapRequest is the JSON body of POST /api/v1/swaps.
type executeSwapRequest struct {
	InputMint   string `json:"input_mint"`
	OutputMint  string `json:"output_mint"`
	Amount      string `json:"amount"`
	SlippageBps int    `json:"slippage_bps"`
}

// handleExecuteSwap returns a handler that quotes and executes a swap in one
// round trip.
// POST /api/v1/swaps
func handleExecuteSwap(cache *catalog.Cache, pricer quote.Pricer, executor *swap.Executor, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

		var req executeSwapRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.SlippageBps == 0 {
			req.SlippageBps = defaultSlippageBps
		}

		input, ok := cache.Lookup(r.Context(), req.InputMint)
		if !ok {
			writeError(w, fmt.Sprintf("unknown input mint %s", req.InputMint), http.StatusNotFound)
			return
		}
		output, ok := cache.Lookup(r.Context(), req.OutputMint)
		if !ok {
			writeError(w, fmt.Sprintf("unknown output mint %s", req.OutputMint), http.StatusNotFound)
			return
		}

		amountBase, err := quote.BaseUnits(req.Amount, input.Decimals)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		q, err := pricer.GetQuote(r.Context(), quote.Request{
			InputMint:       input.Address,
			OutputMint:      output.Address,
			AmountBaseUnits: amountBase,
			SlippageBps:     req.SlippageBps,
		})
		if err != nil {
			logger.Error("quote request failed", "error", err)
			writeError(w, "failed to fetch quote", http.StatusBadGateway)
			return
		}
		q.Intent = quote.Intent{
			InputAsset:  &input,
			OutputAsset: &output,
			Amount:      req.Amount,
			SlippageBps: req.SlippageBps,
		}

		sig, err := executor.Execute(r.Context(), q)
		if err != nil {
			logger.Error("swap execution failed",
				"input_mint", req.InputMint,
				"output_mint", req.OutputMint,
				"error", err,
			)
			writeError(w, "swap execution failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]any{
			"signature":    sig.String(),
			"outputAmount": q.OutputAmount,
		}, http.StatusOK)
	})
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
