package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunesync/internal/shared"
)

// Setup creates the config file when missing, the data and cache directories and the run ledger.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
	}
	r.config = config
	r.configPath = configPath

	for _, dir := range []string{config.Paths.Root, config.Paths.Data, config.Paths.Cache} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	r.logger.Info("initializing run ledger", "path", config.Database.Path)
	db, err := r.openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	statuses, err := shared.Migrations(db)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	r.writePlain("✓ Setup complete\n")
	r.writePlain("Config:  %s\n", configPath)
	r.writePlain("Library: %s\n", config.Paths.Root)
	r.writePlain("Data:    %s\n", config.Paths.Data)
	r.writePlain("Ledger:  %s (%d migrations)\n", config.Database.Path, len(statuses))
	return nil
}
