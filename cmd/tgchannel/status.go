package main

import (
	"fmt"

	"github.com/keepmind9/tgchannel/internal/core"
	"github.com/keepmind9/tgchannel/internal/telegram"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show bot identity and delivery mode",
	Long:  "Check the token with getMe and show whether a webhook is registered",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadRuntime(cmd)
		if err != nil {
			return err
		}

		bot := core.NewEngine(config).Bot()
		me, err := bot.Me(cmd.Context())
		if err != nil {
			return err
		}
		info, err := bot.WebhookInfo(cmd.Context())
		if err != nil {
			return err
		}

		mode := "long polling"
		if info.URL != "" {
			mode = "webhook"
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "tgchannel status:")
		fmt.Fprintf(out, "  Bot:           @%s (id %d)\n", me.UserName, me.ID)
		fmt.Fprintf(out, "  Token:         %s\n", telegram.MaskSecret(config.Telegram.Token))
		fmt.Fprintf(out, "  Delivery mode: %s\n", mode)
		fmt.Fprintf(out, "  Download dir:  %s\n", config.Downloads.Dir)
		printWebhookInfo(out, info)
		return nil
	},
}
