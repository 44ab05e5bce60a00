package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FlipZ3ro/superswapui/service/catalog"
	"github.com/FlipZ3ro/superswapui/service/config"
	"github.com/FlipZ3ro/superswapui/service/metrics"
	"github.com/FlipZ3ro/superswapui/service/nats"
	"github.com/FlipZ3ro/superswapui/service/pool"
	"github.com/FlipZ3ro/superswapui/service/quote"
	"github.com/FlipZ3ro/superswapui/service/server"
	chain "github.com/FlipZ3ro/superswapui/service/solana"
	"github.com/FlipZ3ro/superswapui/service/swap"
	solanago "github.com/gagliardetto/solana-go"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
	)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics(nil)

	// Token directory: background refresh keeps a snapshot warm so
	// listing and search never block on the upstream catalog.
	source := catalog.NewHTTPSource(cfg.CatalogAllURL, cfg.CatalogFeaturedURL, nil)
	cache := catalog.NewCache(source, cfg.CatalogRefreshInterval, m, logger)
	go cache.Run(ctx)

	// Pricing client for quotes and swap transaction building
	pricer := quote.NewClient(cfg.PriceAPIURL, cfg.PriceAPIRPS, cfg.PriceAPIBurst, nil, m, logger)

	// Initialize Solana RPC client
	// Note: For premium RPC endpoints, include API key in the URL
	solanaRPC := chain.NewRPCClient(cfg.SolanaRPCURL)
	solanaClient := chain.NewClient(solanaRPC, m, logger)
	logger.Info("initialized solana RPC client", "url", cfg.SolanaRPCURL)

	// Event publishing is optional; without NATS the service still
	// serves quotes and pool creation, it just emits no events.
	var publisher nats.Publisher
	if cfg.NATSURL != "" {
		p, err := nats.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
		logger.Info("connected to NATS", "url", cfg.NATSURL)
	}

	// Pool creation and swap execution need a signing wallet. Without
	// one the server runs in read-only mode (tokens and quotes only).
	var orchestrator *pool.Orchestrator
	var executor *swap.Executor
	if cfg.WalletKeypairPath != "" {
		wallet, err := chain.LoadKeypairWallet(cfg.WalletKeypairPath)
		if err != nil {
			logger.Error("failed to load wallet keypair", "error", err, "path", cfg.WalletKeypairPath)
			os.Exit(1)
		}
		logger.Info("loaded signing wallet", "pubkey", wallet.PublicKey())

		cpmmProgram, err := solanago.PublicKeyFromBase58(cfg.CpmmProgramID)
		if err != nil {
			logger.Error("invalid CPMM program ID", "error", err)
			os.Exit(1)
		}
		metadataProgram, err := solanago.PublicKeyFromBase58(cfg.MetadataProgramID)
		if err != nil {
			logger.Error("invalid metadata program ID", "error", err)
			os.Exit(1)
		}

		memo := pool.NewExistenceMemo(solanaClient, m, logger)
		uploader := pool.NewHTTPUploader(cfg.MediaHostURL, nil)
		shortener := pool.NewHTTPShortener(cfg.ShortenerURL, nil)
		orchestrator = pool.NewOrchestrator(
			solanaClient,
			wallet,
			uploader,
			&pool.FFmpegFrameExtractor{},
			shortener,
			memo,
			publisher,
			cpmmProgram, metadataProgram,
			cfg.AmmConfigID, cfg.PriorityFeeMicroLamports,
			m,
			logger,
		)
		executor = swap.NewExecutor(pricer, solanaClient, wallet, publisher, m, logger)
	} else {
		logger.Warn("no wallet keypair configured, pool creation and swap execution disabled")
	}

	// Initialize HTTP server
	httpServer := server.New(cfg.ServerAddr, cache, pricer, orchestrator, executor, m, logger)

	logger.Info("server initialized, all dependencies ready",
		"solana_rpc", cfg.SolanaRPCURL,
		"price_api", cfg.PriceAPIURL,
		"nats_url", cfg.NATSURL,
	)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
