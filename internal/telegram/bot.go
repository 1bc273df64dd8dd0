package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/keepmind9/tgchannel/internal/logger"
	"github.com/sirupsen/logrus"
)

// Bot is the facade used by commands and the webhook server: sending,
// receiving, webhook management and file retrieval over one explicitly owned
// Client.
type Bot struct {
	client       *Client
	fetcher      *Fetcher
	pollerConfig PollerConfig
	poller       *Poller
}

// NewBot wraps client. pollerConfig applies to PollOnce and Listen.
func NewBot(client *Client, pollerConfig PollerConfig) *Bot {
	return &Bot{
		client:       client,
		fetcher:      NewFetcher(client),
		pollerConfig: pollerConfig,
	}
}

// Client returns the underlying transport client.
func (b *Bot) Client() *Client {
	return b.client
}

// SendText sends text to chatID.
func (b *Bot) SendText(ctx context.Context, chatID int64, text string) (int64, error) {
	id, err := b.client.SendText(ctx, chatID, text)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"chat_id": chatID,
			"error":   err,
		}).Error("failed-to-send-message-to-telegram")
		return 0, err
	}
	logger.WithFields(logrus.Fields{
		"chat_id":    chatID,
		"message_id": id,
	}).Info("message-sent-to-telegram")
	return id, nil
}

// PollOnce fetches the next batch and returns the parsed messages. It shares
// its cursor with Listen.
func (b *Bot) PollOnce(ctx context.Context) ([]Message, error) {
	var out []Message
	collect := HandlerFunc(func(_ context.Context, msg Message) error {
		out = append(out, msg)
		return nil
	})

	p := b.pollerFor(collect)
	if _, err := p.PollOnce(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// Listen polls until ctx is cancelled, dispatching every message to handler.
func (b *Bot) Listen(ctx context.Context, handler Handler) error {
	return b.pollerFor(handler).Run(ctx)
}

func (b *Bot) pollerFor(handler Handler) *Poller {
	if b.poller == nil {
		b.poller = NewPoller(b.client, handler, b.pollerConfig)
	} else {
		b.poller.handler = handler
	}
	return b.poller
}

// DownloadFile stores the file behind fileID at destination.
func (b *Bot) DownloadFile(ctx context.Context, fileID, destination string) (string, error) {
	return b.fetcher.Fetch(ctx, fileID, destination)
}

// ParseUpdate parses one update body as delivered to a webhook.
func (b *Bot) ParseUpdate(data []byte) (*Message, error) {
	return ParseRawUpdate(data)
}

// SetWebhook registers url for push delivery.
func (b *Bot) SetWebhook(ctx context.Context, url, secret string, dropPending bool) (bool, error) {
	return b.client.SetWebhook(ctx, url, secret, dropPending)
}

// DeleteWebhook removes the push registration.
func (b *Bot) DeleteWebhook(ctx context.Context, dropPending bool) (bool, error) {
	return b.client.DeleteWebhook(ctx, dropPending)
}

// WebhookInfo reports the push registration.
func (b *Bot) WebhookInfo(ctx context.Context) (WebhookStatus, error) {
	return b.client.WebhookInfo(ctx)
}

// Me returns the bot account.
func (b *Bot) Me(ctx context.Context) (tgbotapi.User, error) {
	return b.client.Me(ctx)
}
