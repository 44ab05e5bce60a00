package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/FlipZ3ro/superswapui/client"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

func tokenCommands() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Token directory commands",
		Subcommands: []*cli.Command{
			tokenListCommand(),
			tokenSearchCommand(),
		},
	}
}

func tokenListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List featured tokens from the directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "HTTP server URL",
				EnvVars: []string{"SUPERSWAPUI_SERVER_URL"},
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Value:   10,
				Usage:   "Maximum number of tokens to return",
			},
			&cli.IntFlag{
				Name:    "offset",
				Aliases: []string{"o"},
				Value:   0,
				Usage:   "Number of tokens to skip",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq filter expression applied to each token before output",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output tokens as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			return listTokens(c, "")
		},
	}
}

func tokenSearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the token directory by symbol, name, or address",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "HTTP server URL",
				EnvVars: []string{"SUPERSWAPUI_SERVER_URL"},
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Value:   10,
				Usage:   "Maximum number of tokens to return",
			},
			&cli.IntFlag{
				Name:    "offset",
				Aliases: []string{"o"},
				Value:   0,
				Usage:   "Number of tokens to skip",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq filter expression applied to each token before output",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output tokens as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("search query is required")
			}
			return listTokens(c, c.Args().Get(0))
		},
	}
}

func listTokens(c *cli.Context, search string) error {
	serverURL := c.String("server")
	limit := c.Int("limit")
	offset := c.Int("offset")
	jqFilter := c.String("jq")
	jsonOutput := c.Bool("json")

	// Create logger
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only errors to stderr
	}))

	// Create client
	cl := client.NewClient(serverURL, nil, logger)

	page, err := cl.ListTokens(context.Background(), search, limit, offset)
	if err != nil {
		return fmt.Errorf("failed to list tokens: %w", err)
	}

	if jqFilter != "" {
		return outputTokensFiltered(page.Tokens, jqFilter)
	}

	if jsonOutput {
		return outputJSON(page)
	}

	fmt.Printf("Tokens (%d of %d):\n", len(page.Tokens), page.Total)
	for _, tok := range page.Tokens {
		fmt.Printf("  %-12s %-28s %s (decimals: %d)\n", tok.Symbol, tok.Name, tok.Address, tok.Decimals)
	}
	return nil
}

// outputTokensFiltered runs each token through a jq expression and prints
// every resulting value as a JSON line.
func outputTokensFiltered(tokens []client.Token, filter string) error {
	query, err := gojq.Parse(filter)
	if err != nil {
		return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}

	for _, tok := range tokens {
		// Round-trip through JSON so gojq sees plain maps
		raw, err := json.Marshal(tok)
		if err != nil {
			return err
		}
		var doc interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}

		iter := code.Run(doc)
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := v.(error); isErr {
				return fmt.Errorf("jq filter error: %w", err)
			}
			out, err := json.Marshal(v)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		}
	}
	return nil
}
