package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FlipZ3ro/superswapui/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)

	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)

	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)

	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// AccountInfo is the subset of account state this service cares about.
type AccountInfo struct {
	Owner    solana.PublicKey
	Lamports uint64
}

// Blockhash anchors a transaction to a recent point in the chain.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

// ErrAccountNotFound is returned by GetAccount when no account exists at the address.
var ErrAccountNotFound = errors.New("account not found")

// Client wraps the RPC client with the domain operations the swap service needs:
// account lookups, blockhash fetching, and transaction submission/confirmation.
type Client struct {
	rpc     RPCClient
	logger  *slog.Logger
	metrics *metrics.Metrics

	// confirmation polling cadence; overridable in tests
	confirmPollInterval time.Duration
}

// NewClient creates a new Solana client.
// If m is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:                 rpcClient,
		logger:              logger,
		metrics:             m,
		confirmPollInterval: 2 * time.Second,
	}
}

// GetAccount fetches the account at the given address.
// Returns ErrAccountNotFound if the account does not exist.
func (c *Client) GetAccount(ctx context.Context, address solana.PublicKey) (*AccountInfo, error) {
	start := time.Now()
	result, err := c.rpc.GetAccountInfo(ctx, address)
	c.record("GetAccountInfo", err, start)

	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account info for %s: %w", address, err)
	}
	if result == nil || result.Value == nil {
		return nil, ErrAccountNotFound
	}

	return &AccountInfo{
		Owner:    result.Value.Owner,
		Lamports: result.Value.Lamports,
	}, nil
}

// AccountExists reports whether an account exists at the given address.
func (c *Client) AccountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	_, err := c.GetAccount(ctx, address)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// LatestBlockhash fetches a fresh blockhash at finalized commitment.
func (c *Client) LatestBlockhash(ctx context.Context) (*Blockhash, error) {
	start := time.Now()
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	c.record("GetLatestBlockhash", err, start)

	if err != nil {
		return nil, fmt.Errorf("get latest blockhash: %w", err)
	}
	if result == nil || result.Value == nil {
		return nil, fmt.Errorf("get latest blockhash: empty result")
	}

	return &Blockhash{
		Hash:                 result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// SendTransaction submits a signed transaction, skipping preflight and
// retransmitting at most maxRetries times, mirroring the submission
// discipline used for third-party swap transactions.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, maxRetries uint) (solana.Signature, error) {
	start := time.Now()
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight: true,
		MaxRetries:    &maxRetries,
	})
	c.record("SendTransaction", err, start)

	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}

	c.logger.DebugContext(ctx, "transaction submitted", "signature", sig.String())
	return sig, nil
}

// WaitForConfirmation polls signature status until the transaction reaches
// confirmed (or finalized) commitment, the transaction fails on-chain, or
// the context is cancelled.
func (c *Client) WaitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(c.confirmPollInterval)
	defer ticker.Stop()

	for {
		start := time.Now()
		result, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		c.record("GetSignatureStatuses", err, start)

		if err != nil {
			c.logger.WarnContext(ctx, "failed to fetch signature status, retrying",
				"signature", sig.String(),
				"error", err,
			)
		} else if result != nil && len(result.Value) > 0 && result.Value[0] != nil {
			status := result.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed on-chain: %v", sig, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				c.logger.DebugContext(ctx, "transaction confirmed",
					"signature", sig.String(),
					"status", status.ConfirmationStatus,
				)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("confirmation wait for %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) record(method string, err error, start time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, time.Since(start).Seconds())
}
