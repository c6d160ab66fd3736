package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/muninn/internal"
	pkgconfig "github.com/starford/muninn/pkg/config"
)

func run(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	// Missing config file is only an error when the flag was given
	// explicitly; the defaults run offline without one.
	if _, err := os.Stat(configPath); err == nil {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		opts = append(opts, internal.WithConfigFile(configPath))
	} else if cmd.IsSet("config") {
		return fmt.Errorf("config file not found: %s", configPath)
	}

	if cmd.Bool("offline") {
		cfg.Remote.Offline = true
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "muninn",
		Usage:  "Local replica of a remote note store with boolean search, served over MCP stdio and a read-only HTTP API",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("MUNINN_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:    "offline",
				Usage:   "Run against the in-memory note store instead of the remote service",
				Sources: cli.EnvVars("MUNINN_OFFLINE"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
