package constants

import "time"

// Bot API endpoints. Both are format strings taking the bot token first.
const (
	// DefaultAPIEndpoint formats as token, method
	DefaultAPIEndpoint = "https://api.telegram.org/bot%s/%s"
	// DefaultFileEndpoint formats as token, file path
	DefaultFileEndpoint = "https://api.telegram.org/file/bot%s/%s"
)

// Message length limits
const (
	// MaxTelegramMessageLength is Telegram's message character limit
	MaxTelegramMessageLength = 4096
)

// Timeouts and delays
const (
	// DefaultRequestTimeout bounds every non-polling Bot API call
	DefaultRequestTimeout = 30 * time.Second
	// DefaultPollTimeout is the long-poll duration requested from getUpdates
	DefaultPollTimeout = 30 * time.Second
	// DefaultIdleInterval is the pause after an empty poll
	DefaultIdleInterval = 300 * time.Millisecond
	// DefaultShutdownTimeout bounds graceful shutdown of the webhook server
	DefaultShutdownTimeout = 10 * time.Second
)

// Backoff applied between failed polls
const (
	DefaultBackoffFloor      = 1 * time.Second
	DefaultBackoffCeiling    = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Webhook defaults
const (
	// DefaultWebhookPath is the route Telegram posts updates to
	DefaultWebhookPath = "/telegram/webhook"
	// DefaultListenAddr is the webhook server bind address
	DefaultListenAddr = ":8080"
	// WebhookSecretHeader carries the secret configured with setWebhook
	WebhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"
	// MaxWebhookBodyBytes caps a single webhook delivery
	MaxWebhookBodyBytes = 1 << 20
)

// Downloads
const (
	// DefaultDownloadDir is where photos and documents are saved
	DefaultDownloadDir = "data/telegram_downloads"
)

// Token masking
const (
	// MinSecretLengthForMasking is the minimum secret length to apply partial masking
	MinSecretLengthForMasking = 10
	// SecretMaskPrefixLength is the length of prefix to show before masking
	SecretMaskPrefixLength = 4
	// SecretMaskSuffixLength is the length of suffix to show after masking
	SecretMaskSuffixLength = 4
)

// Logging defaults
const (
	// DefaultLogLevel is used when logging.level is empty
	DefaultLogLevel = "info"
	// DefaultLogMaxSize is the default maximum log file size in MB
	DefaultLogMaxSize = 100
	// DefaultLogMaxBackups is the default number of rotated files kept
	DefaultLogMaxBackups = 5
	// DefaultLogMaxAge is the default maximum number of days to retain old logs
	DefaultLogMaxAge = 30
)
