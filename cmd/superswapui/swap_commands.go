package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/FlipZ3ro/superswapui/client"
	"github.com/urfave/cli/v2"
)

func swapCommand() *cli.Command {
	return &cli.Command{
		Name:      "swap",
		Usage:     "Execute a swap through the server's signing wallet",
		ArgsUsage: "INPUT_MINT OUTPUT_MINT AMOUNT",
		Description: `Quotes and executes a swap in one step. AMOUNT is in display units of the
input token. The server must be running with a signing wallet configured.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "HTTP server URL",
				EnvVars: []string{"SUPERSWAPUI_SERVER_URL"},
			},
			&cli.IntFlag{
				Name:  "slippage-bps",
				Value: 50,
				Usage: "Slippage tolerance in basis points",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Value:   2 * time.Minute,
				Usage:   "How long to wait for the swap to confirm",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output result as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 3 {
				return fmt.Errorf("INPUT_MINT, OUTPUT_MINT, and AMOUNT are required")
			}

			inputMint := c.Args().Get(0)
			outputMint := c.Args().Get(1)
			amount := c.Args().Get(2)
			serverURL := c.String("server")
			slippageBps := c.Int("slippage-bps")
			timeout := c.Duration("timeout")
			jsonOutput := c.Bool("json")

			// Create HTTP client with appropriate timeout
			httpClient := &http.Client{
				Timeout: timeout + 30*time.Second, // Add buffer beyond server timeout
			}

			// Create logger
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError, // Only errors to stderr
			}))

			// Create client
			cl := client.NewClient(serverURL, httpClient, logger)

			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "Swapping %s %s for %s...\n", amount, inputMint, outputMint)
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			result, err := cl.Swap(ctx, inputMint, outputMint, amount, slippageBps)
			if err != nil {
				return fmt.Errorf("failed to execute swap: %w", err)
			}

			if jsonOutput {
				return outputJSON(result)
			}

			fmt.Printf("✓ Swap confirmed\n")
			fmt.Printf("  Signature: %s\n", result.Signature)
			fmt.Printf("  Output amount (base units): %d\n", result.OutputAmount)
			return nil
		},
	}
}
