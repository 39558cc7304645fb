package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/xaenox/fizzy-bot/pkg/config"
	"go.uber.org/zap"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the bot database",
}

var dbSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the tables (skipped when the sqlite file already exists)",
	Args:  cobra.NoArgs,
	RunE:  runDBSetup,
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate every table. All data is lost",
	Args:  cobra.NoArgs,
	RunE:  runDBReset,
}

func runDBSetup(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	force = force || cfg.Database.ForceSetup
	log := logger.With(zap.String("component", "setup-db"))

	if cfg.Database.Driver == config.DriverSQLite && !force {
		if _, err := os.Stat(cfg.Database.Path); err == nil {
			log.Info("Database already exists, skipping setup", zap.String("db_path", cfg.Database.Path))
			return nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	log.Info("Setting up database", zap.String("driver", cfg.Database.Driver))
	store, err := openStorage(cmd.Context(), cfg.Database)
	if err != nil {
		log.Error("Database setup failed", zap.Error(err))
		return err
	}
	defer store.Close()

	log.Info("Database setup complete")
	return nil
}

func runDBReset(cmd *cobra.Command, args []string) error {
	log := logger.With(zap.String("component", "reset-db"))

	store, err := openStorage(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	log.Warn("Dropping all tables", zap.String("driver", cfg.Database.Driver))
	if err := store.Reset(cmd.Context()); err != nil {
		log.Error("Database reset failed", zap.Error(err))
		return err
	}
	log.Info("Database reset complete")
	return nil
}
