package main

import (
	"fmt"

	"github.com/keepmind9/tgchannel/internal/core"
	"github.com/spf13/cobra"
)

var (
	serveListen      string
	serveDownloadDir string

	serveCmd = &cobra.Command{
		Use:   "serve [--listen <addr>] [--download-dir <dir>]",
		Short: "Receive messages by webhook push",
		Long: `Run the webhook HTTP server. Telegram POSTs each update to the webhook
path (register it with "tgchannel webhook set"). When a secret token is
configured, requests without the matching X-Telegram-Bot-Api-Secret-Token
header are rejected. GET / and GET /health answer deployment health checks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			if serveListen != "" {
				config.Webhook.Listen = serveListen
			}
			if serveDownloadDir != "" {
				config.Downloads.Dir = serveDownloadDir
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Serving webhook on %s%s\n", config.Webhook.Listen, config.Webhook.Path)
			return core.NewEngine(config).Serve(ctx)
		},
	}
)

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().StringVarP(&serveDownloadDir, "download-dir", "d", "", "Directory for saved photos and documents")
}
