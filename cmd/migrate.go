package cmd

import (
	"fmt"

	"github.com/wavechat/wavechat/db"
	"github.com/wavechat/wavechat/internal/config"
)

// runMigrate applies pending migrations and exits. The server also
// migrates on startup; this command exists for deploy pipelines that
// migrate before rolling instances.
func runMigrate() error {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("migrations applied", "database", cfg.PostgresDBName)
	return nil
}
