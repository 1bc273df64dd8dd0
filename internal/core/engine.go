package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/keepmind9/tgchannel/internal/logger"
	"github.com/keepmind9/tgchannel/internal/telegram"
	"github.com/keepmind9/tgchannel/pkg/constants"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Engine owns the Telegram client and runs one delivery mode: long polling
// (Listen) or webhook push (Serve).
type Engine struct {
	config    *Config
	bot       *telegram.Bot
	processor *Processor
}

// NewEngine builds the client, bot facade and processor from config.
func NewEngine(config *Config) *Engine {
	client := telegram.NewClient(config.ClientConfig())
	bot := telegram.NewBot(client, config.PollerConfig())
	return &Engine{
		config:    config,
		bot:       bot,
		processor: NewProcessor(bot, config.Downloads.Dir),
	}
}

// Bot returns the facade for one-off commands.
func (e *Engine) Bot() *telegram.Bot {
	return e.bot
}

// Processor returns the message processor shared by both delivery modes.
func (e *Engine) Processor() *Processor {
	return e.processor
}

func (e *Engine) prepareDownloadDir() error {
	if err := os.MkdirAll(e.config.Downloads.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create download dir: %w", err)
	}
	return nil
}

// Listen runs the polling loop until ctx is cancelled. Cancellation is a
// clean stop and returns nil.
func (e *Engine) Listen(ctx context.Context) error {
	if err := e.prepareDownloadDir(); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"token":        telegram.MaskSecret(e.config.Telegram.Token),
		"download_dir": e.config.Downloads.Dir,
	}).Info("starting-telegram-bot-with-long-polling")

	err := e.bot.Listen(ctx, e.processor)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Serve runs the webhook server on the configured address until ctx is
// cancelled.
func (e *Engine) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", e.config.Webhook.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", e.config.Webhook.Listen, err)
	}
	return e.ServeListener(ctx, ln)
}

// ServeListener runs the webhook server on ln until ctx is cancelled, then
// shuts it down gracefully.
func (e *Engine) ServeListener(ctx context.Context, ln net.Listener) error {
	if err := e.prepareDownloadDir(); err != nil {
		ln.Close()
		return err
	}

	server := &http.Server{
		Handler:           NewWebhookHandler(e.config.Webhook.Path, e.config.Webhook.SecretToken, e.processor),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.WithFields(logrus.Fields{
		"address":        ln.Addr().String(),
		"path":           e.config.Webhook.Path,
		"secret_enabled": e.config.Webhook.SecretToken != "",
	}).Info("webhook-server-listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// When Shutdown() is called, Serve returns ErrServerClosed
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	logger.Info("webhook-server-stopped")
	return err
}
