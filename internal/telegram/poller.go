package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keepmind9/tgchannel/internal/logger"
	"github.com/keepmind9/tgchannel/pkg/constants"
	"github.com/sirupsen/logrus"
)

// UpdateSource is the part of the transport the poller needs. *Client
// implements it.
type UpdateSource interface {
	FetchUpdates(ctx context.Context, cursor *int64, pollTimeout time.Duration) ([]RawUpdate, error)
}

// PollerConfig tunes the polling loop. Zero values use pkg/constants defaults.
type PollerConfig struct {
	PollTimeout       time.Duration // long-poll duration requested from Telegram
	IdleInterval      time.Duration // pause after an empty batch
	BackoffFloor      time.Duration
	BackoffCeiling    time.Duration
	BackoffMultiplier float64
}

// Poller runs the long-polling loop. It owns the update cursor and the retry
// backoff; neither is shared. A Poller must not be run concurrently with
// itself.
type Poller struct {
	source  UpdateSource
	handler Handler
	config  PollerConfig
	backoff *Backoff

	cursor    int64
	hasCursor bool

	// sleep waits for d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller creates a poller delivering parsed messages to handler.
func NewPoller(source UpdateSource, handler Handler, config PollerConfig) *Poller {
	if config.PollTimeout <= 0 {
		config.PollTimeout = constants.DefaultPollTimeout
	}
	if config.IdleInterval <= 0 {
		config.IdleInterval = constants.DefaultIdleInterval
	}
	return &Poller{
		source:  source,
		handler: handler,
		config:  config,
		backoff: NewBackoff(config.BackoffFloor, config.BackoffCeiling, config.BackoffMultiplier),
		sleep:   sleepContext,
	}
}

// Cursor returns the lowest update id not yet acknowledged, and false while
// no batch has been received.
func (p *Poller) Cursor() (int64, bool) {
	return p.cursor, p.hasCursor
}

// Backoff exposes the retry state for inspection.
func (p *Poller) Backoff() *Backoff {
	return p.backoff
}

// Run polls until ctx is cancelled, then returns ctx.Err(). Transport
// failures are retried with backoff and handler failures are logged; any
// other error from the update source is returned immediately.
func (p *Poller) Run(ctx context.Context) error {
	logger.WithFields(logrus.Fields{
		"poll_timeout":    p.config.PollTimeout,
		"idle_interval":   p.config.IdleInterval,
		"backoff_floor":   p.backoff.Floor,
		"backoff_ceiling": p.backoff.Ceiling,
	}).Info("telegram-polling-started")

	for {
		if err := ctx.Err(); err != nil {
			logger.Info("telegram-polling-stopped")
			return err
		}

		n, err := p.PollOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("telegram-polling-stopped")
				return ctx.Err()
			}

			var transportErr *TransportError
			if !errors.As(err, &transportErr) {
				logger.WithError(err).Error("telegram-polling-aborted")
				return err
			}

			delay := p.backoff.Next()
			logger.WithFields(logrus.Fields{
				"error":      err,
				"delay":      delay,
				"next_delay": p.backoff.Current(),
			}).Warn("telegram-poll-failed-backing-off")
			if err := p.sleep(ctx, delay); err != nil {
				logger.Info("telegram-polling-stopped")
				return err
			}
			continue
		}

		if n == 0 {
			if err := p.sleep(ctx, p.config.IdleInterval); err != nil {
				logger.Info("telegram-polling-stopped")
				return err
			}
		}
	}
}

// PollOnce fetches one batch, dispatches every parsed message to the
// handler in delivery order and advances the cursor past the whole batch.
// It returns the number of raw updates received.
//
// The cursor moves even when updates fail to parse or handlers fail, so a
// poison update cannot block the stream. Only a fetch error leaves the cursor
// where it was.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	var cursor *int64
	if p.hasCursor {
		c := p.cursor
		cursor = &c
	}

	updates, err := p.source.FetchUpdates(ctx, cursor, p.config.PollTimeout)
	if err != nil {
		return 0, err
	}
	p.backoff.Reset()

	if len(updates) == 0 {
		return 0, nil
	}

	logger.WithFields(logrus.Fields{
		"count":  len(updates),
		"cursor": p.cursor,
	}).Debug("telegram-updates-received")

	highest := updates[0].UpdateID
	for _, raw := range updates {
		if raw.UpdateID > highest {
			highest = raw.UpdateID
		}
		p.dispatch(ctx, raw)
	}

	next := highest + 1
	if !p.hasCursor || next > p.cursor {
		p.cursor = next
		p.hasCursor = true
	}
	return len(updates), nil
}

func (p *Poller) dispatch(ctx context.Context, raw RawUpdate) {
	msg, err := ParseUpdate(raw)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"update_id": raw.UpdateID,
			"error":     err,
		}).Warn("telegram-update-rejected")
		return
	}
	if msg == nil {
		logger.WithFields(logrus.Fields{
			"update_id": raw.UpdateID,
			"kind":      raw.Kind,
		}).Debug("telegram-update-skipped-unsupported-kind")
		return
	}

	if err := p.handle(ctx, *msg); err != nil {
		logger.WithFields(logrus.Fields{
			"update_id":  msg.UpdateID,
			"chat_id":    msg.ChatID,
			"message_id": msg.MessageID,
			"error":      err,
		}).Error("telegram-message-handler-failed")
	}
}

// handle runs the handler, turning a panic into an error so one message
// cannot stop the batch or the cursor.
func (p *Poller) handle(ctx context.Context, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return p.handler.HandleMessage(ctx, msg)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
