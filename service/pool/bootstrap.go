package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FlipZ3ro/superswapui/service/metrics"
	"github.com/FlipZ3ro/superswapui/service/nats"
	chain "github.com/FlipZ3ro/superswapui/service/solana"
	"github.com/gagliardetto/solana-go"
)

// ErrPoolExists is returned by CreatePool when a pool for the pair is
// already on chain.
var ErrPoolExists = errors.New("pool already exists")

// ChainClient is the subset of the Solana client the orchestrator needs.
type ChainClient interface {
	GetAccount(ctx context.Context, address solana.PublicKey) (*chain.AccountInfo, error)
	AccountExists(ctx context.Context, address solana.PublicKey) (bool, error)
	LatestBlockhash(ctx context.Context) (*chain.Blockhash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction, maxRetries uint) (solana.Signature, error)
	WaitForConfirmation(ctx context.Context, sig solana.Signature) error
}

// Wallet provides the single external signature over the assembled
// transaction.
type Wallet interface {
	PublicKey() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// CreatePoolParams describes the pool to bootstrap. AmountX/AmountY are the
// initial deposits in base units of MintX/MintY respectively; the
// orchestrator maps them onto the canonical mint order itself.
type CreatePoolParams struct {
	MintX, MintY     solana.PublicKey
	AmountX, AmountY uint64

	Name        string
	Symbol      string
	Description string
	Media       Media
}

// CreatePoolResult reports a successful bootstrap.
type CreatePoolResult struct {
	Signature   solana.Signature
	Keys        Keys
	MetadataURI string
}

// sendMaxRetries bounds retransmission of the pool-creation transaction.
const sendMaxRetries = 2

// Orchestrator bootstraps new pools: it uploads media and metadata, derives
// the pool's addresses, assembles the creation transaction, and submits it
// as one atomic unit. Any step failing aborts the whole operation before
// anything reaches the ledger.
type Orchestrator struct {
	chain     ChainClient
	wallet    Wallet
	uploader  MediaUploader
	frames    FrameExtractor
	shortener Shortener
	memo      *ExistenceMemo
	publisher nats.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics

	cpmmProgram     solana.PublicKey
	metadataProgram solana.PublicKey
	configID        uint64
	priorityFee     uint64

	// now is replaceable in tests
	now func() time.Time
}

// NewOrchestrator creates a pool bootstrap orchestrator. publisher may be
// nil when no event bus is configured.
func NewOrchestrator(
	chainClient ChainClient,
	wallet Wallet,
	uploader MediaUploader,
	frames FrameExtractor,
	shortener Shortener,
	memo *ExistenceMemo,
	publisher nats.Publisher,
	cpmmProgram, metadataProgram solana.PublicKey,
	configID, priorityFeeMicroLamports uint64,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		chain:           chainClient,
		wallet:          wallet,
		uploader:        uploader,
		frames:          frames,
		shortener:       shortener,
		memo:            memo,
		publisher:       publisher,
		logger:          logger,
		metrics:         m,
		cpmmProgram:     cpmmProgram,
		metadataProgram: metadataProgram,
		configID:        configID,
		priorityFee:     priorityFeeMicroLamports,
		now:             time.Now,
	}
}

// Derive computes the pool addresses for a pair using the orchestrator's
// configured programs.
func (o *Orchestrator) Derive(mintX, mintY solana.PublicKey) (Keys, error) {
	return Derive(o.cpmmProgram, o.metadataProgram, o.configID, mintX, mintY)
}

// PoolExists reports whether a pool for the pair is on chain, consulting
// the memo first.
func (o *Orchestrator) PoolExists(ctx context.Context, mintX, mintY solana.PublicKey) (bool, Keys, error) {
	keys, err := o.Derive(mintX, mintY)
	if err != nil {
		return false, Keys{}, err
	}
	return o.memo.EnsureChecked(ctx, keys.PoolState), keys, nil
}

// CreatePool runs the full bootstrap sequence. It returns ErrPoolExists
// when the pair's pool is already on chain.
func (o *Orchestrator) CreatePool(ctx context.Context, params CreatePoolParams) (*CreatePoolResult, error) {
	start := time.Now()
	result, err := o.createPool(ctx, params)
	if err != nil {
		o.metrics.RecordPoolCreation("error", time.Since(start).Seconds())
		return nil, err
	}
	o.metrics.RecordPoolCreation("success", time.Since(start).Seconds())
	return result, nil
}

func (o *Orchestrator) createPool(ctx context.Context, params CreatePoolParams) (*CreatePoolResult, error) {
	exists, keys, err := o.PoolExists(ctx, params.MintX, params.MintY)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w at %s", ErrPoolExists, keys.PoolState)
	}

	// Media and metadata first; nothing reaches the ledger until the full
	// instruction list is assembled.
	doc, err := buildMetadata(ctx, o.uploader, o.frames, o.logger,
		params.Name, params.Symbol, params.Description, params.Media)
	if err != nil {
		return nil, err
	}
	metadataURI, err := o.uploader.Upload(ctx, "metadata.json", "application/json", doc)
	if err != nil {
		return nil, fmt.Errorf("upload metadata: %w", err)
	}
	onChainURI := shortenURI(ctx, o.shortener, o.logger, metadataURI)

	// Each mint's owning token program decides how its holding accounts are
	// derived. Without it pool creation cannot proceed.
	ownerA, err := o.mintOwner(ctx, keys.MintA)
	if err != nil {
		return nil, err
	}
	ownerB, err := o.mintOwner(ctx, keys.MintB)
	if err != nil {
		return nil, err
	}

	amountA, amountB := params.AmountX, params.AmountY
	if keys.Swapped(params.MintX) {
		amountA, amountB = params.AmountY, params.AmountX
	}

	creator := o.wallet.PublicKey()
	instructions, err := o.assembleInstructions(ctx, keys, creator, ownerA, ownerB, amountA, amountB, onChainURI, params)
	if err != nil {
		return nil, err
	}

	blockhash, err := o.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(instructions, blockhash.Hash, solana.TransactionPayer(creator))
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}

	if err := o.wallet.SignTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := o.chain.SendTransaction(ctx, tx, sendMaxRetries)
	if err != nil {
		return nil, err
	}

	if err := o.chain.WaitForConfirmation(ctx, sig); err != nil {
		return nil, err
	}

	// The pool now exists; later existence checks for this pair must not
	// hit the ledger again.
	o.memo.MarkExists(keys.PoolState)

	o.logger.InfoContext(ctx, "pool created",
		"pool", keys.PoolState.String(),
		"mint_a", keys.MintA.String(),
		"mint_b", keys.MintB.String(),
		"signature", sig.String(),
	)

	o.publishPoolCreated(ctx, sig, keys, creator, params, onChainURI)

	return &CreatePoolResult{
		Signature:   sig,
		Keys:        keys,
		MetadataURI: onChainURI,
	}, nil
}

// mintOwner looks up which program owns the mint account. A lookup failure
// is fatal to the operation.
func (o *Orchestrator) mintOwner(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	info, err := o.chain.GetAccount(ctx, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("lookup owner program of mint %s: %w", mint, err)
	}
	return info.Owner, nil
}

// assembleInstructions builds the ordered instruction list: conditional
// holding-account creation for each side, pool initialization, metadata
// attachment, priority fee.
func (o *Orchestrator) assembleInstructions(
	ctx context.Context,
	keys Keys,
	creator, ownerA, ownerB solana.PublicKey,
	amountA, amountB uint64,
	uri string,
	params CreatePoolParams,
) ([]solana.Instruction, error) {
	ataA, err := DeriveAssociatedTokenAddress(creator, ownerA, keys.MintA)
	if err != nil {
		return nil, err
	}
	ataB, err := DeriveAssociatedTokenAddress(creator, ownerB, keys.MintB)
	if err != nil {
		return nil, err
	}
	// The LP holding account is created by the pool program itself.
	lpToken, err := DeriveAssociatedTokenAddress(creator, tokenProgramID, keys.LpMint)
	if err != nil {
		return nil, err
	}

	var instructions []solana.Instruction

	// Holding accounts are created only when missing, checked per side.
	for _, side := range []struct {
		ata          solana.PublicKey
		mint         solana.PublicKey
		tokenProgram solana.PublicKey
	}{
		{ataA, keys.MintA, ownerA},
		{ataB, keys.MintB, ownerB},
	} {
		exists, err := o.chain.AccountExists(ctx, side.ata)
		if err != nil {
			return nil, fmt.Errorf("check holding account %s: %w", side.ata, err)
		}
		if !exists {
			instructions = append(instructions,
				CreateAssociatedTokenAccount(creator, creator, side.mint, side.tokenProgram, side.ata))
		}
	}

	openTime := uint64(o.now().Unix())
	initIx, err := InitializePool(keys, creator, ataA, ataB, lpToken, ownerA, ownerB, amountA, amountB, openTime)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, initIx)

	metaIx, err := AttachMetadata(keys, o.metadataProgram, creator, params.Name, params.Symbol, uri)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, metaIx)

	// Priority fee rides at the end of the list.
	instructions = append(instructions, SetComputeUnitPrice(o.priorityFee))

	return instructions, nil
}

func (o *Orchestrator) publishPoolCreated(ctx context.Context, sig solana.Signature, keys Keys, creator solana.PublicKey, params CreatePoolParams, uri string) {
	if o.publisher == nil {
		return
	}
	event := &nats.PoolCreatedEvent{
		Signature:   sig.String(),
		PoolAddress: keys.PoolState.String(),
		MintA:       keys.MintA.String(),
		MintB:       keys.MintB.String(),
		LpMint:      keys.LpMint.String(),
		Creator:     creator.String(),
		Name:        params.Name,
		Symbol:      params.Symbol,
		MetadataURI: uri,
		PublishedAt: time.Now().UTC(),
	}
	publishStart := time.Now()
	if err := o.publisher.PublishPoolCreated(ctx, event); err != nil {
		o.logger.WarnContext(ctx, "failed to publish pool-created event", "error", err)
		o.metrics.RecordNATSPublish("pool", "error", time.Since(publishStart).Seconds())
		return
	}
	o.metrics.RecordNATSPublish("pool", "success", time.Since(publishStart).Seconds())
}
