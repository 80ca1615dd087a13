package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shurizzle/aniscrobble/internal/config"
	"github.com/shurizzle/aniscrobble/internal/log"
	"github.com/urfave/cli/v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	runner := NewRunner(cfg, logger)

	app := &cli.Command{
		Name:    "aniscrobble",
		Usage:   "Track episode progress locally and sync it to AniList",
		Version: Version,
		Commands: []*cli.Command{
			loginCommand(runner),
			logoutCommand(runner),
			trackCommand(runner),
			syncCommand(runner),
			statusCommand(runner),
		},
	}

	return app.Run(context.Background(), os.Args)
}
