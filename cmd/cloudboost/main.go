package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudboost/cloudboost-api/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "cloudboost",
		Short:         "CloudBoost AI business automation API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := serveCmd()
	rootCmd.RunE = serve.RunE

	rootCmd.AddCommand(
		serve,
		migrateCmd(),
		seedTemplatesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs the JSON logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}
