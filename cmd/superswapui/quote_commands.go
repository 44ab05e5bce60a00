package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/FlipZ3ro/superswapui/client"
	"github.com/FlipZ3ro/superswapui/service/catalog"
	"github.com/FlipZ3ro/superswapui/service/quote"
	"github.com/urfave/cli/v2"
)

func quoteCommands() *cli.Command {
	return &cli.Command{
		Name:  "quote",
		Usage: "Quote commands",
		Subcommands: []*cli.Command{
			quoteGetCommand(),
			quoteWatchCommand(),
		},
	}
}

func quoteGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch a quote for converting between two tokens",
		ArgsUsage: "INPUT_MINT OUTPUT_MINT AMOUNT",
		Description: `Fetches a priced conversion estimate. AMOUNT is in display units of the
input token (e.g. "1.5" for one and a half tokens), not base units.`,
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
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output quote as JSON",
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
			jsonOutput := c.Bool("json")

			// Create logger
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError, // Only errors to stderr
			}))

			// Create client
			cl := client.NewClient(serverURL, nil, logger)

			q, err := cl.GetQuote(context.Background(), inputMint, outputMint, amount, slippageBps)
			if err != nil {
				return fmt.Errorf("failed to fetch quote: %w", err)
			}

			if jsonOutput {
				return outputJSON(q)
			}

			fmt.Printf("✓ Quote for %s %s -> %s\n", amount, inputMint, outputMint)
			fmt.Printf("  Output amount (base units): %d\n", q.OutputAmount)
			fmt.Printf("  Price impact: %s%%\n", q.PriceImpactPct)
			fmt.Printf("  Slippage tolerance: %d bps\n", slippageBps)
			return nil
		},
	}
}

func quoteWatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Interactively re-quote a pair as you edit the amount",
		ArgsUsage: "INPUT_MINT OUTPUT_MINT",
		Description: `Reads amount edits from stdin, one per line, and prints a fresh quote
after each burst of edits settles. Rapid edits are coalesced into a single
request issued once input has been quiet for the configured period. The
line "switch" inverts the trade direction, seeding the amount from the
last quote's output. End input (Ctrl-D) to exit.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "HTTP server URL (used to resolve token decimals)",
				EnvVars: []string{"SUPERSWAPUI_SERVER_URL"},
			},
			&cli.StringFlag{
				Name:    "price-api",
				Value:   "https://superswap.fomo3d.fun",
				Usage:   "Pricing service URL quotes are fetched from",
				EnvVars: []string{"PRICE_API_URL"},
			},
			&cli.DurationFlag{
				Name:    "quiet-period",
				Value:   500 * time.Millisecond,
				Usage:   "How long input must be quiet before a quote request is issued",
				EnvVars: []string{"QUOTE_QUIET_PERIOD"},
			},
			&cli.IntFlag{
				Name:  "slippage-bps",
				Value: 50,
				Usage: "Slippage tolerance in basis points",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Print each installed quote as a JSON line",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("INPUT_MINT and OUTPUT_MINT are required")
			}

			jsonOutput := c.Bool("json")

			// Create logger
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError, // Only errors to stderr
			}))

			// Create client
			cl := client.NewClient(c.String("server"), nil, logger)

			ctx := context.Background()
			input, err := resolveToken(ctx, cl, c.Args().Get(0))
			if err != nil {
				return err
			}
			output, err := resolveToken(ctx, cl, c.Args().Get(1))
			if err != nil {
				return err
			}

			pricer := quote.NewClient(c.String("price-api"), 5, 10, nil, nil, logger)
			co := quote.NewCoalescer(pricer, c.Duration("quiet-period"), nil, logger)
			co.SetInputAsset(input)
			co.SetOutputAsset(output)
			co.SetSlippageBps(c.Int("slippage-bps"))
			co.OnQuote(func(q *quote.Quote) {
				printQuote(os.Stdout, q, jsonOutput)
			})

			fmt.Fprintf(os.Stderr, "Watching %s -> %s, type an amount per line (\"switch\" inverts):\n",
				input.Symbol, output.Symbol)

			return runQuoteSession(co, os.Stdin)
		},
	}
}

// resolveToken looks a mint up in the server's token directory.
func resolveToken(ctx context.Context, cl *client.Client, mint string) (*catalog.Record, error) {
	page, err := cl.ListTokens(ctx, mint, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token %s: %w", mint, err)
	}
	if len(page.Tokens) == 0 {
		return nil, fmt.Errorf("unknown token %s", mint)
	}
	tok := page.Tokens[0]
	return &catalog.Record{
		Address:  tok.Address,
		Decimals: tok.Decimals,
		Symbol:   tok.Symbol,
		Name:     tok.Name,
	}, nil
}

func printQuote(w io.Writer, q *quote.Quote, jsonOutput bool) {
	if jsonOutput {
		json.NewEncoder(w).Encode(map[string]any{
			"amount":         q.Intent.Amount,
			"outputAmount":   q.OutputAmount,
			"priceImpactPct": q.PriceImpactPct.String(),
		})
		return
	}
	fmt.Fprintf(w, "✓ %s %s -> %s %s (impact %s%%)\n",
		q.Intent.Amount, q.Intent.InputAsset.Symbol,
		quote.FromBaseUnits(q.OutputAmount, q.Intent.OutputAsset.Decimals),
		q.Intent.OutputAsset.Symbol,
		q.PriceImpactPct.String())
}

// runQuoteSession drives a coalescer from line-oriented input: each line is
// a new amount, "switch" inverts the trade direction. Returns once input is
// exhausted and the last scheduled request has settled.
func runQuoteSession(co *quote.Coalescer, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "switch":
			co.SwitchAssets()
		default:
			co.SetAmount(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Let the final edit's request settle before exiting.
	for co.State() != quote.StateIdle {
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}
