package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/FlipZ3ro/superswapui/client"
	"github.com/urfave/cli/v2"
)

func poolCommands() *cli.Command {
	return &cli.Command{
		Name:  "pool",
		Usage: "Liquidity pool inspection and bootstrap commands",
		Subcommands: []*cli.Command{
			poolCheckCommand(),
			poolCreateCommand(),
		},
	}
}

func poolCheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Show a pair's derived pool addresses and whether the pool exists",
		ArgsUsage: "MINT_X MINT_Y",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "HTTP server URL",
				EnvVars: []string{"SUPERSWAPUI_SERVER_URL"},
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output pool info as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("MINT_X and MINT_Y are required")
			}

			mintX := c.Args().Get(0)
			mintY := c.Args().Get(1)
			serverURL := c.String("server")
			jsonOutput := c.Bool("json")

			// Create logger
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError, // Only errors to stderr
			}))

			// Create client
			cl := client.NewClient(serverURL, nil, logger)

			info, err := cl.GetPool(context.Background(), mintX, mintY)
			if err != nil {
				return fmt.Errorf("failed to fetch pool info: %w", err)
			}

			if jsonOutput {
				return outputJSON(info)
			}

			if info.Exists {
				fmt.Printf("✓ Pool exists\n")
			} else {
				fmt.Printf("Pool does not exist yet\n")
			}
			fmt.Printf("  Pool:        %s\n", info.PoolAddress)
			fmt.Printf("  LP mint:     %s\n", info.LpMint)
			fmt.Printf("  Mint A:      %s\n", info.MintA)
			fmt.Printf("  Mint B:      %s\n", info.MintB)
			fmt.Printf("  Vault A:     %s\n", info.VaultA)
			fmt.Printf("  Vault B:     %s\n", info.VaultB)
			fmt.Printf("  Authority:   %s\n", info.Authority)
			fmt.Printf("  Observation: %s\n", info.Observation)
			fmt.Printf("  AMM config:  %s\n", info.AmmConfig)
			return nil
		},
	}
}

func poolCreateCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Bootstrap a new liquidity pool for a pair",
		ArgsUsage: "MINT_X MINT_Y",
		Description: `Creates a pool for the pair with the given initial deposits. Deposits are
in base units of each mint. The optional media file becomes the pool's
metadata asset; its content type is inferred from the file extension.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "HTTP server URL",
				EnvVars: []string{"SUPERSWAPUI_SERVER_URL"},
			},
			&cli.Uint64Flag{
				Name:     "amount-x",
				Usage:    "Initial deposit of MINT_X in base units",
				Required: true,
			},
			&cli.Uint64Flag{
				Name:     "amount-y",
				Usage:    "Initial deposit of MINT_Y in base units",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "name",
				Usage:    "Pool display name",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "symbol",
				Usage:    "Pool symbol",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Pool description",
			},
			&cli.StringFlag{
				Name:    "media",
				Aliases: []string{"m"},
				Usage:   "Path to an image, video, or audio file for the pool metadata",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Value:   3 * time.Minute,
				Usage:   "How long to wait for the pool creation to confirm",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output result as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("MINT_X and MINT_Y are required")
			}

			req := client.CreatePoolRequest{
				MintX:       c.Args().Get(0),
				MintY:       c.Args().Get(1),
				AmountX:     c.Uint64("amount-x"),
				AmountY:     c.Uint64("amount-y"),
				Name:        c.String("name"),
				Symbol:      c.String("symbol"),
				Description: c.String("description"),
			}
			serverURL := c.String("server")
			jsonOutput := c.Bool("json")

			if mediaPath := c.String("media"); mediaPath != "" {
				media, err := readMediaFile(mediaPath)
				if err != nil {
					return err
				}
				req.Media = media
			}

			// Create logger
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError, // Only errors to stderr
			}))

			// Create client
			cl := client.NewClient(serverURL, nil, logger)

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			result, err := cl.CreatePool(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to create pool: %w", err)
			}

			if jsonOutput {
				return outputJSON(result)
			}

			fmt.Printf("✓ Pool created\n")
			fmt.Printf("  Signature:    %s\n", result.Signature)
			fmt.Printf("  Pool:         %s\n", result.PoolAddress)
			fmt.Printf("  LP mint:      %s\n", result.LpMint)
			fmt.Printf("  Metadata URI: %s\n", result.MetadataURI)
			return nil
		},
	}
}

// readMediaFile loads a media file and encodes it for the create-pool
// request, inferring the content type from the extension.
func readMediaFile(path string) (client.CreatePoolMedia, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return client.CreatePoolMedia{}, fmt.Errorf("failed to read media file: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return client.CreatePoolMedia{
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Data:        base64.StdEncoding.EncodeToString(data),
	}, nil
}
