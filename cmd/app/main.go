package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/awick/atompress/internal"
	pkgconfig "github.com/awick/atompress/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := internal.NewDefaultConfig()

	// A missing config file is fine unless the user pointed at one
	// explicitly; the defaults plus flags are a complete configuration.
	configPath := cmd.String("config")
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.IsSet("config") {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("data-dir") {
		cfg.Store.DataDir = cmd.String("data-dir")
	}
	if cmd.IsSet("index") {
		cfg.Index.Variant = cmd.String("index")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "atompress",
		Usage:  "Atom publishing server with flat-file storage and a swappable query index",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "config/config.yaml",
				Sources: cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP port (overrides config)",
				Sources: cli.EnvVars("APP_HTTP_PORT"),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Entry storage directory (overrides config)",
				Sources: cli.EnvVars("APP_DATA_DIR"),
			},
			&cli.StringFlag{
				Name:    "index",
				Usage:   "Index variant: linear or sqlite (overrides config)",
				Sources: cli.EnvVars("APP_INDEX_VARIANT"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
