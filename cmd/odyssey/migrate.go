package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-school/internal/platform/db"
	"github.com/odyssey-erp/odyssey-school/migrations"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			version, err := db.Migrate(cfg.PGDSN, migrations.FS)
			if err != nil {
				return err
			}
			logger.Info("database migrated", slog.Uint64("version", uint64(version)))
			return nil
		},
	}
}
