package main

import (
	"fmt"
	"io"
	"time"

	"github.com/keepmind9/tgchannel/internal/core"
	"github.com/keepmind9/tgchannel/internal/telegram"
	"github.com/spf13/cobra"
)

var (
	webhookPublicBaseURL string
	webhookPath          string
	webhookSecretToken   string
	webhookDropPending   bool

	webhookCmd = &cobra.Command{
		Use:   "webhook",
		Short: "Manage the Telegram webhook registration",
	}

	webhookSetCmd = &cobra.Command{
		Use:   "set [--public-base-url <url>] [--webhook-path <path>] [--secret-token <token>]",
		Short: "Register the webhook URL with Telegram",
		Long: `Register <public-base-url><webhook-path> as the bot's webhook.

The base URL defaults to webhook.public_base_url (RENDER_EXTERNAL_URL), the
path to webhook.path and the secret to webhook.secret_token
(TELEGRAM_WEBHOOK_SECRET).

Examples:
  tgchannel webhook set --public-base-url https://bot.example.com
  tgchannel webhook set --webhook-path /hooks/tg --secret-token s3cret --drop-pending-updates`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadRuntime(cmd)
			if err != nil {
				return err
			}

			url, secret, err := webhookTarget(cmd, config)
			if err != nil {
				return err
			}

			ok, err := core.NewEngine(config).Bot().SetWebhook(cmd.Context(), url, secret, webhookDropPending)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Webhook set: %v\n", ok)
			fmt.Fprintf(out, "  URL:            %s\n", url)
			fmt.Fprintf(out, "  Secret token:   %s\n", secretDisplay(secret))
			fmt.Fprintf(out, "  Drop pending:   %v\n", webhookDropPending)
			return nil
		},
	}

	webhookInfoCmd = &cobra.Command{
		Use:   "info",
		Short: "Show the current webhook registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadRuntime(cmd)
			if err != nil {
				return err
			}

			info, err := core.NewEngine(config).Bot().WebhookInfo(cmd.Context())
			if err != nil {
				return err
			}
			printWebhookInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}

	webhookDeleteCmd = &cobra.Command{
		Use:   "delete [--drop-pending-updates]",
		Short: "Remove the webhook so long polling can be used",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadRuntime(cmd)
			if err != nil {
				return err
			}

			ok, err := core.NewEngine(config).Bot().DeleteWebhook(cmd.Context(), webhookDropPending)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Webhook deleted: %v\n", ok)
			return nil
		},
	}
)

// webhookTarget resolves the URL and secret from flags, falling back to config.
func webhookTarget(cmd *cobra.Command, config *core.Config) (string, string, error) {
	base := config.Webhook.PublicBaseURL
	if cmd.Flags().Changed("public-base-url") {
		base = webhookPublicBaseURL
	}
	path := config.Webhook.Path
	if cmd.Flags().Changed("webhook-path") {
		path = webhookPath
	}
	secret := config.Webhook.SecretToken
	if cmd.Flags().Changed("secret-token") {
		secret = webhookSecretToken
	}

	url, err := core.WebhookURL(base, path)
	if err != nil {
		return "", "", err
	}
	return url, secret, nil
}

// secretDisplay masks a configured secret and says so when there is none.
func secretDisplay(secret string) string {
	if secret == "" {
		return "(none)"
	}
	return telegram.MaskSecret(secret)
}

func printWebhookInfo(out io.Writer, info telegram.WebhookStatus) {
	url := info.URL
	if url == "" {
		url = "(not set)"
	}
	fmt.Fprintln(out, "Webhook info:")
	fmt.Fprintf(out, "  URL:                  %s\n", url)
	fmt.Fprintf(out, "  Pending updates:      %d\n", info.PendingUpdateCount)
	if info.LastErrorMessage != "" {
		fmt.Fprintf(out, "  Last error:           %s\n", info.LastErrorMessage)
	}
	if info.LastErrorDate != 0 {
		fmt.Fprintf(out, "  Last error date:      %s\n", time.Unix(info.LastErrorDate, 0).UTC().Format(time.RFC3339))
	}
	if info.MaxConnections != 0 {
		fmt.Fprintf(out, "  Max connections:      %d\n", info.MaxConnections)
	}
	if info.IPAddress != "" {
		fmt.Fprintf(out, "  IP address:           %s\n", info.IPAddress)
	}
}

func init() {
	webhookSetCmd.Flags().StringVar(&webhookPublicBaseURL, "public-base-url", "", "Public HTTPS base URL (default: RENDER_EXTERNAL_URL)")
	webhookSetCmd.Flags().StringVar(&webhookPath, "webhook-path", "", "Webhook path (default: /telegram/webhook)")
	webhookSetCmd.Flags().StringVar(&webhookSecretToken, "secret-token", "", "Secret echoed by Telegram in X-Telegram-Bot-Api-Secret-Token")
	webhookSetCmd.Flags().BoolVar(&webhookDropPending, "drop-pending-updates", false, "Discard updates queued before registration")
	webhookDeleteCmd.Flags().BoolVar(&webhookDropPending, "drop-pending-updates", false, "Discard updates queued on the server")

	webhookCmd.AddCommand(webhookSetCmd)
	webhookCmd.AddCommand(webhookInfoCmd)
	webhookCmd.AddCommand(webhookDeleteCmd)
}
