package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keepmind9/tgchannel/internal/core"
	"github.com/keepmind9/tgchannel/internal/logger"
	"github.com/spf13/cobra"
)

var (
	listenDownloadDir string

	listenCmd = &cobra.Command{
		Use:   "listen [--download-dir <dir>]",
		Short: "Receive messages by long polling",
		Long: `Poll getUpdates until interrupted. Text is logged; the largest photo and
any document are saved under the download directory. Transport failures are
retried with exponential backoff. The webhook must be deleted first: Telegram
refuses getUpdates while a webhook is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			if listenDownloadDir != "" {
				config.Downloads.Dir = listenDownloadDir
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Listening for Telegram updates, saving files to %s\n", config.Downloads.Dir)
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

			if err := core.NewEngine(config).Listen(ctx); err != nil {
				return err
			}
			logger.Info("telegram-listener-stopped")
			return nil
		},
	}
)

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func init() {
	listenCmd.Flags().StringVarP(&listenDownloadDir, "download-dir", "d", "", "Directory for saved photos and documents")
}
