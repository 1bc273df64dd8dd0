// Package core wires the Telegram transport into a runnable service.
//
// It handles:
//
//   - Configuration loading and validation (YAML file, .env, environment)
//   - The message processor that logs text and stores attachments
//   - The webhook HTTP server for push delivery
//   - The engine that runs either the polling loop or the webhook server
//
// # Example Configuration
//
//	telegram:
//	  token: "${TELEGRAM_BOT_TOKEN}"
//	  poll_timeout: 30s
//	  backoff:
//	    floor: 1s
//	    ceiling: 30s
//	webhook:
//	  listen: ":8080"
//	  path: "/telegram/webhook"
//	  secret_token: "${TELEGRAM_WEBHOOK_SECRET}"
//	downloads:
//	  dir: "data/telegram_downloads"
//	logging:
//	  level: info
package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/keepmind9/tgchannel/internal/logger"
	"github.com/keepmind9/tgchannel/internal/telegram"
	"github.com/keepmind9/tgchannel/pkg/constants"
	"gopkg.in/yaml.v3"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none
// are given) into the process environment. Missing files are ignored and
// variables that are already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// LoadConfig builds the configuration from an optional YAML file, then
// environment overrides, then defaults.
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		expandedData, err := expandEnv(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to expand environment variables: %w", err)
		}

		if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// expandEnv replaces ${VAR_NAME} patterns with environment variable values
func expandEnv(input string) (string, error) {
	var missingVars []string

	result := os.Expand(input, func(key string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		missingVars = append(missingVars, key)
		return ""
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing required environment variables: %s",
			strings.Join(missingVars, ", "))
	}

	return result, nil
}

// validateConfig fills defaults and rejects unusable settings
func validateConfig(config *Config) error {
	tg := &config.Telegram
	tg.Token = strings.TrimSpace(tg.Token)
	if tg.Token == "" {
		return fmt.Errorf("missing Telegram bot token: set telegram.token or TELEGRAM_BOT_TOKEN")
	}

	if tg.RequestTimeout == 0 {
		tg.RequestTimeout = constants.DefaultRequestTimeout
	}
	if tg.RequestTimeout < 0 {
		return fmt.Errorf("telegram.request_timeout must be positive (got %v)", tg.RequestTimeout)
	}
	if tg.PollTimeout == 0 {
		tg.PollTimeout = constants.DefaultPollTimeout
	}
	if tg.PollTimeout < time.Second || tg.PollTimeout > 10*time.Minute {
		return fmt.Errorf("telegram.poll_timeout must be between 1s and 10m (got %v)", tg.PollTimeout)
	}
	if tg.IdleInterval == 0 {
		tg.IdleInterval = constants.DefaultIdleInterval
	}
	if tg.IdleInterval < 0 {
		return fmt.Errorf("telegram.idle_interval must be positive (got %v)", tg.IdleInterval)
	}

	if tg.Backoff.Floor == 0 {
		tg.Backoff.Floor = constants.DefaultBackoffFloor
	}
	if tg.Backoff.Ceiling == 0 {
		tg.Backoff.Ceiling = constants.DefaultBackoffCeiling
	}
	if tg.Backoff.Multiplier == 0 {
		tg.Backoff.Multiplier = constants.DefaultBackoffMultiplier
	}
	if tg.Backoff.Floor < 0 || tg.Backoff.Ceiling < tg.Backoff.Floor {
		return fmt.Errorf("telegram.backoff needs 0 < floor <= ceiling (got floor=%v ceiling=%v)",
			tg.Backoff.Floor, tg.Backoff.Ceiling)
	}
	if tg.Backoff.Multiplier < 1 {
		return fmt.Errorf("telegram.backoff.multiplier must be at least 1 (got %v)", tg.Backoff.Multiplier)
	}

	wh := &config.Webhook
	if wh.Listen == "" {
		wh.Listen = constants.DefaultListenAddr
	}
	if strings.TrimSpace(wh.Path) == "" {
		wh.Path = constants.DefaultWebhookPath
	}
	path, err := NormalizeWebhookPath(wh.Path)
	if err != nil {
		return err
	}
	if path == "/" || path == "/health" {
		return fmt.Errorf("webhook.path %q is reserved", path)
	}
	wh.Path = path
	wh.PublicBaseURL = strings.TrimRight(strings.TrimSpace(wh.PublicBaseURL), "/")
	wh.SecretToken = strings.TrimSpace(wh.SecretToken)

	if strings.TrimSpace(config.Downloads.Dir) == "" {
		config.Downloads.Dir = constants.DefaultDownloadDir
	}
	config.Downloads.Dir = expandHome(strings.TrimSpace(config.Downloads.Dir))
	config.Logging.File = expandHome(config.Logging.File)

	if config.Logging.Level == "" {
		config.Logging.Level = constants.DefaultLogLevel
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = constants.DefaultLogMaxSize
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = constants.DefaultLogMaxBackups
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = constants.DefaultLogMaxAge
	}
	if config.Logging.EnableStdout == nil {
		enabled := true
		config.Logging.EnableStdout = &enabled
	}

	return nil
}

// NormalizeWebhookPath trims the path and guarantees a leading slash. The
// result is a literal, clean URL path usable as an HTTP route.
func NormalizeWebhookPath(webhookPath string) (string, error) {
	webhookPath = strings.TrimSpace(webhookPath)
	if webhookPath == "" {
		return "", fmt.Errorf("webhook path cannot be empty")
	}
	if !strings.HasPrefix(webhookPath, "/") {
		webhookPath = "/" + webhookPath
	}

	for _, r := range webhookPath {
		if r <= ' ' || r == 0x7f || strings.ContainsRune(webhookInvalidChars, r) {
			return "", fmt.Errorf("webhook path %q contains invalid character %q", webhookPath, r)
		}
	}

	clean := path.Clean(webhookPath)
	if strings.HasSuffix(webhookPath, "/") && clean != "/" {
		clean += "/"
	}
	if clean != webhookPath {
		return "", fmt.Errorf("webhook path %q is not clean (expected %q)", webhookPath, clean)
	}
	return webhookPath, nil
}

// webhookInvalidChars are route wildcard delimiters and URL syntax that
// cannot appear in a literal path.
const webhookInvalidChars = "{}?#%\\"

// WebhookURL joins a public base URL and the webhook path.
func WebhookURL(publicBaseURL, path string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	if base == "" {
		return "", fmt.Errorf("missing public base URL: use --public-base-url or set RENDER_EXTERNAL_URL")
	}
	normalized, err := NormalizeWebhookPath(path)
	if err != nil {
		return "", err
	}
	return base + normalized, nil
}

// ClientConfig returns the transport settings for telegram.NewClient
func (c *Config) ClientConfig() telegram.ClientConfig {
	return telegram.ClientConfig{
		Token:          c.Telegram.Token,
		APIEndpoint:    c.Telegram.APIEndpoint,
		FileEndpoint:   c.Telegram.FileEndpoint,
		RequestTimeout: c.Telegram.RequestTimeout,
	}
}

// PollerConfig returns the polling loop settings
func (c *Config) PollerConfig() telegram.PollerConfig {
	return telegram.PollerConfig{
		PollTimeout:       c.Telegram.PollTimeout,
		IdleInterval:      c.Telegram.IdleInterval,
		BackoffFloor:      c.Telegram.Backoff.Floor,
		BackoffCeiling:    c.Telegram.Backoff.Ceiling,
		BackoffMultiplier: c.Telegram.Backoff.Multiplier,
	}
}

// LoggerConfig returns the logger settings
func (c *Config) LoggerConfig() logger.Config {
	stdout := c.Logging.EnableStdout == nil || *c.Logging.EnableStdout
	return logger.Config{
		Level:        c.Logging.Level,
		File:         c.Logging.File,
		MaxSize:      c.Logging.MaxSize,
		MaxBackups:   c.Logging.MaxBackups,
		MaxAge:       c.Logging.MaxAge,
		Compress:     c.Logging.Compress,
		EnableStdout: stdout,
	}
}
