package swap

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/FlipZ3ro/superswapui/service/metrics"
	"github.com/FlipZ3ro/superswapui/service/nats"
	"github.com/FlipZ3ro/superswapui/service/quote"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// sendMaxRetries bounds retransmission of the swap transaction.
const sendMaxRetries = 2

// ChainClient is the subset of the Solana client the executor needs.
type ChainClient interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction, maxRetries uint) (solana.Signature, error)
	WaitForConfirmation(ctx context.Context, sig solana.Signature) error
}

// Wallet signs the swap transaction returned by the pricing service.
type Wallet interface {
	PublicKey() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// Executor turns an accepted quote into an on-chain swap: it asks the
// pricing service for the transaction, signs it, submits it, and waits for
// confirmation.
type Executor struct {
	pricer    quote.Pricer
	chain     ChainClient
	wallet    Wallet
	publisher nats.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewExecutor creates a swap executor. publisher may be nil when no event
// bus is configured.
func NewExecutor(pricer quote.Pricer, chainClient ChainClient, wallet Wallet, publisher nats.Publisher, m *metrics.Metrics, logger *slog.Logger) *Executor {
	return &Executor{
		pricer:    pricer,
		chain:     chainClient,
		wallet:    wallet,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
	}
}

// Execute swaps according to q. The quote must have been produced for the
// caller's current intent; the executor does not re-quote.
func (e *Executor) Execute(ctx context.Context, q *quote.Quote) (solana.Signature, error) {
	start := time.Now()
	sig, err := e.execute(ctx, q)
	if err != nil {
		e.metrics.RecordSwap("error", time.Since(start).Seconds())
		return solana.Signature{}, err
	}
	e.metrics.RecordSwap("success", time.Since(start).Seconds())
	return sig, nil
}

func (e *Executor) execute(ctx context.Context, q *quote.Quote) (solana.Signature, error) {
	encoded, err := e.pricer.BuildSwap(ctx, e.wallet.PublicKey().String(), q)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build swap transaction: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("decode swap transaction: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("deserialize swap transaction: %w", err)
	}

	if err := e.wallet.SignTransaction(ctx, tx); err != nil {
		return solana.Signature{}, fmt.Errorf("sign swap transaction: %w", err)
	}

	sig, err := e.chain.SendTransaction(ctx, tx, sendMaxRetries)
	if err != nil {
		return solana.Signature{}, err
	}

	if err := e.chain.WaitForConfirmation(ctx, sig); err != nil {
		return solana.Signature{}, err
	}

	e.logger.InfoContext(ctx, "swap executed",
		"signature", sig.String(),
		"input_mint", q.Intent.InputAsset.Address,
		"output_mint", q.Intent.OutputAsset.Address,
		"output_amount", q.OutputAmount,
	)

	e.publishSwap(ctx, sig, q)
	return sig, nil
}

func (e *Executor) publishSwap(ctx context.Context, sig solana.Signature, q *quote.Quote) {
	if e.publisher == nil {
		return
	}

	amountBase, err := quote.BaseUnits(q.Intent.Amount, q.Intent.InputAsset.Decimals)
	if err != nil {
		amountBase = 0
	}

	event := &nats.SwapEvent{
		Signature:       sig.String(),
		WalletAddress:   e.wallet.PublicKey().String(),
		InputMint:       q.Intent.InputAsset.Address,
		OutputMint:      q.Intent.OutputAsset.Address,
		AmountBaseUnits: amountBase,
		OutputAmount:    q.OutputAmount,
		PublishedAt:     time.Now().UTC(),
	}
	publishStart := time.Now()
	if err := e.publisher.PublishSwap(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "failed to publish swap event", "error", err)
		e.metrics.RecordNATSPublish("swap", "error", time.Since(publishStart).Seconds())
		return
	}
	e.metrics.RecordNATSPublish("swap", "success", time.Since(publishStart).Seconds())
}
