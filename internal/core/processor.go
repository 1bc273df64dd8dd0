package core

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/keepmind9/tgchannel/internal/logger"
	"github.com/keepmind9/tgchannel/internal/telegram"
	"github.com/sirupsen/logrus"
)

// Downloader stores the file behind a Telegram file id. *telegram.Bot and
// *telegram.Client implement it.
type Downloader interface {
	DownloadFile(ctx context.Context, fileID, destination string) (string, error)
}

// Processor handles incoming messages: text is logged, the best photo and
// any document are saved under dir.
type Processor struct {
	downloader Downloader
	dir        string
}

// NewProcessor creates a processor saving attachments into dir.
func NewProcessor(downloader Downloader, dir string) *Processor {
	return &Processor{downloader: downloader, dir: dir}
}

// HandleMessage implements telegram.Handler for the polling loop.
func (p *Processor) HandleMessage(ctx context.Context, msg telegram.Message) error {
	_, err := p.Process(ctx, msg)
	return err
}

// Process handles msg and returns the paths of the files it saved.
func (p *Processor) Process(ctx context.Context, msg telegram.Message) ([]string, error) {
	fields := logrus.Fields{
		"update_id":  msg.UpdateID,
		"chat_id":    msg.ChatID,
		"message_id": msg.MessageID,
		"utc":        time.Unix(msg.DateUnix, 0).UTC().Format(time.RFC3339),
	}
	if msg.FromUserID != nil {
		fields["from_user_id"] = *msg.FromUserID
	}
	if msg.Text != nil && *msg.Text != "" {
		fields["text"] = *msg.Text
	}
	if msg.Caption != nil && *msg.Caption != "" {
		fields["caption"] = *msg.Caption
	}
	logger.WithFields(fields).Info("telegram-message-received")

	var saved []string

	if best, ok := telegram.BestPhoto(msg.Photos); ok {
		dest := filepath.Join(p.dir, PhotoFileName(msg))
		path, err := p.downloader.DownloadFile(ctx, best.FileID, dest)
		if err != nil {
			return saved, fmt.Errorf("failed to save photo of message %d: %w", msg.MessageID, err)
		}
		saved = append(saved, path)
		logger.WithFields(logrus.Fields{
			"chat_id": msg.ChatID,
			"path":    path,
			"width":   best.Width,
			"height":  best.Height,
		}).Info("telegram-photo-saved")
	}

	if msg.Document != nil {
		dest := filepath.Join(p.dir, DocumentFileName(msg))
		path, err := p.downloader.DownloadFile(ctx, msg.Document.FileID, dest)
		if err != nil {
			return saved, fmt.Errorf("failed to save document of message %d: %w", msg.MessageID, err)
		}
		saved = append(saved, path)
		logger.WithFields(logrus.Fields{
			"chat_id": msg.ChatID,
			"path":    path,
		}).Info("telegram-document-saved")
	}

	return saved, nil
}

// PhotoFileName is the local name of a message's best photo.
func PhotoFileName(msg telegram.Message) string {
	return fmt.Sprintf("photo_%d.jpg", msg.MessageID)
}

// DocumentFileName is the local name of a message's document: the message id
// followed by the sanitised original name.
func DocumentFileName(msg telegram.Message) string {
	name := ""
	if msg.Document != nil && msg.Document.FileName != nil {
		name = telegram.SafeFileName(*msg.Document.FileName)
	}
	if name == "" {
		name = fmt.Sprintf("document_%d.bin", msg.MessageID)
	}
	return fmt.Sprintf("%d_%s", msg.MessageID, name)
}
