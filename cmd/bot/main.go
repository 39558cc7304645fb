package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xaenox/fizzy-bot/internal/logging"
	"github.com/xaenox/fizzy-bot/pkg/config"
	"go.uber.org/zap"
)

var (
	cfgFile string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "bot",
	Short:         "Telegram bot that creates Fizzy cards from chat commands",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file (optional)")

	webhookDeleteCmd.Flags().Bool("drop-pending", false, "drop updates queued on Telegram's side")
	webhookCmd.AddCommand(webhookStatusCmd, webhookSetCmd, webhookDeleteCmd)

	dbSetupCmd.Flags().Bool("force", false, "run setup even if the database file exists")
	dbCmd.AddCommand(dbSetupCmd, dbResetCmd)

	rootCmd.AddCommand(serveCmd, webhookCmd, selftestCmd, dbCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("Command failed", zap.Error(err))
			_ = logger.Sync()
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
