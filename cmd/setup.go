package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/songstream/internal/shared"
	"github.com/desertthunder/songstream/internal/ui"
	"github.com/urfave/cli/v3"
)

// Setup writes a config file from the embedded template when none exists, then initializes the
// database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
	}

	config, err := r.configure(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return r.writePlain("%s\n", ui.Styles.OK("✓ Setup complete"))
}
