package core

import "time"

// Config represents the complete tgchannel configuration structure
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Downloads DownloadsConfig `yaml:"downloads"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TelegramConfig represents Bot API access and polling behaviour
type TelegramConfig struct {
	Token          string        `yaml:"token"           env:"TELEGRAM_BOT_TOKEN"`
	DefaultChatID  int64         `yaml:"default_chat_id" env:"TELEGRAM_CHAT_ID"`  // Target of "send" when --chat-id is omitted
	APIEndpoint    string        `yaml:"api_endpoint"    env:"TELEGRAM_API_ENDPOINT"`  // Format string: token, method
	FileEndpoint   string        `yaml:"file_endpoint"   env:"TELEGRAM_FILE_ENDPOINT"` // Format string: token, file path
	RequestTimeout time.Duration `yaml:"request_timeout" env:"TELEGRAM_REQUEST_TIMEOUT"`
	PollTimeout    time.Duration `yaml:"poll_timeout"    env:"TELEGRAM_POLL_TIMEOUT"`
	IdleInterval   time.Duration `yaml:"idle_interval"   env:"TELEGRAM_IDLE_INTERVAL"`
	Backoff        BackoffConfig `yaml:"backoff"`
}

// BackoffConfig represents the retry delay between failed polls
type BackoffConfig struct {
	Floor      time.Duration `yaml:"floor"      env:"TELEGRAM_BACKOFF_FLOOR"`
	Ceiling    time.Duration `yaml:"ceiling"    env:"TELEGRAM_BACKOFF_CEILING"`
	Multiplier float64       `yaml:"multiplier" env:"TELEGRAM_BACKOFF_MULTIPLIER"`
}

// WebhookConfig represents the push-delivery endpoint
type WebhookConfig struct {
	Listen        string `yaml:"listen"          env:"TELEGRAM_WEBHOOK_LISTEN"`
	Path          string `yaml:"path"            env:"TELEGRAM_WEBHOOK_PATH"`
	PublicBaseURL string `yaml:"public_base_url" env:"RENDER_EXTERNAL_URL"`
	SecretToken   string `yaml:"secret_token"    env:"TELEGRAM_WEBHOOK_SECRET"` // Empty disables the header check
}

// DownloadsConfig represents where attachments are stored
type DownloadsConfig struct {
	Dir string `yaml:"dir" env:"TELEGRAM_DOWNLOAD_DIR"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"         env:"TGCHANNEL_LOG_LEVEL"` // debug, info, warn, error
	File         string `yaml:"file"          env:"TGCHANNEL_LOG_FILE"`  // Log file path
	MaxSize      int    `yaml:"max_size"`                                // Single file max size in MB (default: 100)
	MaxBackups   int    `yaml:"max_backups"`                             // Number of backups to keep (default: 5)
	MaxAge       int    `yaml:"max_age"`                                 // Maximum days to retain (default: 30)
	Compress     bool   `yaml:"compress"`                                // Whether to compress old logs
	EnableStdout *bool  `yaml:"enable_stdout"`                           // Also output to stdout (default: true)
}
