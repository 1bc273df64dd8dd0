package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/keepmind9/tgchannel/internal/core"
	"github.com/keepmind9/tgchannel/internal/telegram"
	"github.com/spf13/cobra"
)

var (
	validateShow bool
	validateJSON bool
)

// ValidationResult represents the validation result
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Config      string   `json:"config"`
	Token       string   `json:"token,omitempty"`
	WebhookPath string   `json:"webhook_path,omitempty"`
	DownloadDir string   `json:"download_dir,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate tgchannel configuration",
	Long: `Validate the configuration (YAML file, .env and environment) without
contacting Telegram.

This command checks:
  - YAML syntax and ${VAR} expansion
  - Bot token presence
  - Timeout and backoff ranges
  - Webhook path

Exit codes:
  0 - Configuration is valid
  1 - Configuration has errors`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		source := path
		if source == "" {
			source = "(environment only)"
		}

		cfg, err := core.LoadConfig(path)
		if err != nil {
			result := ValidationResult{Valid: false, Config: source, Errors: []string{err.Error()}}
			outputValidationResult(cmd.OutOrStdout(), result, validateJSON)
			return fmt.Errorf("configuration is invalid")
		}

		result := ValidationResult{
			Valid:       true,
			Config:      source,
			Token:       telegram.MaskSecret(cfg.Telegram.Token),
			WebhookPath: cfg.Webhook.Path,
			DownloadDir: cfg.Downloads.Dir,
			Warnings:    validateConfigDetails(cfg),
		}

		if validateShow && !validateJSON {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Configuration loaded: %s\n\n", source)
			fmt.Fprintf(out, "Telegram:\n")
			fmt.Fprintf(out, "  - Request timeout: %v\n", cfg.Telegram.RequestTimeout)
			fmt.Fprintf(out, "  - Poll timeout:    %v\n", cfg.Telegram.PollTimeout)
			fmt.Fprintf(out, "  - Idle interval:   %v\n", cfg.Telegram.IdleInterval)
			fmt.Fprintf(out, "  - Backoff:         %v .. %v (x%g)\n",
				cfg.Telegram.Backoff.Floor, cfg.Telegram.Backoff.Ceiling, cfg.Telegram.Backoff.Multiplier)
			fmt.Fprintf(out, "Webhook:\n")
			fmt.Fprintf(out, "  - Listen:          %s\n", cfg.Webhook.Listen)
			fmt.Fprintf(out, "  - Public base URL: %s\n", cfg.Webhook.PublicBaseURL)
			fmt.Fprintf(out, "  - Secret token:    %s\n", secretDisplay(cfg.Webhook.SecretToken))
			fmt.Fprintln(out)
		}

		outputValidationResult(cmd.OutOrStdout(), result, validateJSON)
		return nil
	},
}

func outputValidationResult(out io.Writer, result ValidationResult, jsonFormat bool) {
	if jsonFormat {
		output, err := json.Marshal(result)
		if err != nil {
			fmt.Fprintf(out, "{\"error\": \"failed to marshal json: %v\"}\n", err)
			return
		}
		fmt.Fprintln(out, string(output))
		return
	}

	if result.Valid {
		fmt.Fprintln(out, "✓ Configuration is valid")
		fmt.Fprintf(out, "  - Config: %s\n", result.Config)
		fmt.Fprintf(out, "  - Token: %s\n", result.Token)
		fmt.Fprintf(out, "  - Webhook path: %s\n", result.WebhookPath)
		fmt.Fprintf(out, "  - Download dir: %s\n", result.DownloadDir)
		if len(result.Warnings) > 0 {
			fmt.Fprintln(out, "\n⚠️  Warnings:")
			for _, warning := range result.Warnings {
				fmt.Fprintf(out, "  - %s\n", warning)
			}
		}
		return
	}

	fmt.Fprintln(out, "❌ Configuration validation failed:")
	for _, errMsg := range result.Errors {
		fmt.Fprintf(out, "  - %s\n", errMsg)
	}
}

// validateConfigDetails reports settings that load fine but limit what the
// bot can do.
func validateConfigDetails(cfg *core.Config) []string {
	var warnings []string

	if cfg.Webhook.SecretToken == "" {
		warnings = append(warnings, "Webhook secret token is empty - anyone who knows the URL can post updates")
	}
	if cfg.Webhook.PublicBaseURL == "" {
		warnings = append(warnings, "No public base URL - \"webhook set\" needs --public-base-url")
	}
	if cfg.Telegram.DefaultChatID == 0 {
		warnings = append(warnings, "No default chat id - \"send\" needs --chat-id")
	}

	return warnings
}

func init() {
	validateCmd.Flags().BoolVar(&validateShow, "show", false, "Show resolved configuration details")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output in JSON format")
}
