package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ldrbot/feishu-companion-bot/internal/conf"
)

var (
	// Global flags
	debug    bool
	dataPath string

	cfg    *conf.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "Feishu companion bot for long-distance couples",
	Long: `companion is a Feishu chat bot for two partners: canned flirts and pep
talks, photo and video bubbles from your partner, relationship stats, and
reminders for yourself or for your partner.

Run without arguments to start the bot.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		cfg = conf.LoadFromEnv()
		if dataPath != "" {
			cfg.Data.Path = dataPath
		}
		if debug {
			cfg.Debug = true
		}

		config := zap.NewProductionConfig()
		if cfg.Debug {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging (same as DEBUG=true)")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "document store path (overrides BOT_DATA_PATH)")

	rootCmd.AddCommand(serveCmd, sendCmd, remindersCmd, runOnceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
