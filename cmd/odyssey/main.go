// Command odyssey runs the Odyssey School web server and its maintenance tools.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-school/internal/app"
)

func main() {
	root := &cobra.Command{
		Use:           "odyssey",
		Short:         "Odyssey School administration server",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(
		serveCmd(),
		migrateCmd(),
		permissionsCmd(),
		jobsCmd(),
	)
	if err := root.Execute(); err != nil {
		slog.Default().Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func loadConfig() (*app.Config, *slog.Logger, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
