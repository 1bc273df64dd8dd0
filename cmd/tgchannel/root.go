package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/keepmind9/tgchannel/internal/core"
	"github.com/keepmind9/tgchannel/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.yaml"

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "tgchannel",
	Short: "tgchannel is a Telegram bot channel: long polling, webhooks and file retrieval",
	Long: `tgchannel connects to the Telegram Bot API and turns incoming updates into
canonical messages. Messages arrive either by long polling (listen) or by webhook
push (serve); text is logged, photos and documents are saved to disk.

Settings come from an optional YAML file, a .env file and the environment
(TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID, TELEGRAM_WEBHOOK_SECRET, RENDER_EXTERNAL_URL, ...).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return core.LoadDotEnv(envFile)
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfigFile, "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before the configuration")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(webhookCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

// configPath returns the file to load. The default file is optional so that
// a purely environment-driven deployment needs no YAML at all.
func configPath(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("config") {
		return configFile, nil
	}
	if _, err := os.Stat(configFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return configFile, nil
}

// loadRuntime loads the configuration and initializes the logger
func loadRuntime(cmd *cobra.Command) (*core.Config, error) {
	path, err := configPath(cmd)
	if err != nil {
		return nil, err
	}

	config, err := core.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.InitLogger(config.LoggerConfig()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"config_file": path,
		"log_level":   config.Logging.Level,
		"log_file":    config.Logging.File,
	}).Debug("logger-initialized")

	return config, nil
}
