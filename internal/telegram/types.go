// Package telegram acquires messages from the Telegram Bot API and normalizes
// them into a single canonical Message model.
//
// Messages arrive either by long polling, driven by a Poller that owns the
// update cursor and retry backoff, or by webhook push, where an HTTP layer
// hands one update body to ParseRawUpdate. Both paths run the same parser, so
// a given update produces the same Message whichever way it was delivered.
//
// # Delivery guarantees
//
// The cursor lives only in memory. After a restart the provider re-delivers
// whatever backlog it still retains, so delivery is at-least-once. Handlers
// that care about duplicates must de-duplicate on UpdateID themselves.
//
// # Usage
//
//	client := telegram.NewClient(telegram.ClientConfig{Token: token})
//	bot := telegram.NewBot(client, telegram.PollerConfig{})
//	err := bot.Listen(ctx, telegram.HandlerFunc(func(ctx context.Context, msg telegram.Message) error {
//	    _, err := bot.SendText(ctx, msg.ChatID, "got it")
//	    return err
//	}))
package telegram

import "context"

// Photo is one rendition of an image attached to a message.
type Photo struct {
	FileID       string
	FileUniqueID string
	Width        int
	Height       int
	FileSize     *int64
}

// Document is a generic file attached to a message.
type Document struct {
	FileID       string
	FileUniqueID string
	FileName     *string
	MimeType     *string
	FileSize     *int64
}

// Message is the canonical form of a message-bearing update.
type Message struct {
	UpdateID   int64
	ChatID     int64
	MessageID  int64
	FromUserID *int64
	Text       *string
	Caption    *string
	Photos     []Photo // delivery order, largest rendition last
	Document   *Document
	DateUnix   int64
}

// BestPhoto returns the highest resolution rendition, which Telegram always
// delivers last.
func BestPhoto(photos []Photo) (Photo, bool) {
	if len(photos) == 0 {
		return Photo{}, false
	}
	return photos[len(photos)-1], true
}

// UpdateKind tags which payload an update carries.
type UpdateKind string

const (
	KindMessage           UpdateKind = "message"
	KindEditedMessage     UpdateKind = "edited_message"
	KindChannelPost       UpdateKind = "channel_post"
	KindEditedChannelPost UpdateKind = "edited_channel_post"
	KindCallbackQuery     UpdateKind = "callback_query"
	KindInlineQuery       UpdateKind = "inline_query"
	KindMyChatMember      UpdateKind = "my_chat_member"
	KindChatMember        UpdateKind = "chat_member"
	KindUnknown           UpdateKind = "unknown"
)

// knownKinds is checked in order; the first key present wins.
var knownKinds = []UpdateKind{
	KindMessage,
	KindEditedMessage,
	KindChannelPost,
	KindEditedChannelPost,
	KindCallbackQuery,
	KindInlineQuery,
	KindMyChatMember,
	KindChatMember,
}

// RawUpdate is one undecoded update as delivered by getUpdates or a webhook.
// Only the update id and the kind tag are validated; the payload stays
// encoded until ParseUpdate.
type RawUpdate struct {
	UpdateID int64
	Kind     UpdateKind
	Payload  []byte
}

// WebhookStatus mirrors getWebhookInfo.
type WebhookStatus struct {
	URL                  string   `json:"url"`
	HasCustomCertificate bool     `json:"has_custom_certificate"`
	PendingUpdateCount   int      `json:"pending_update_count"`
	IPAddress            string   `json:"ip_address,omitempty"`
	LastErrorDate        int64    `json:"last_error_date,omitempty"`
	LastErrorMessage     string   `json:"last_error_message,omitempty"`
	MaxConnections       int      `json:"max_connections,omitempty"`
	AllowedUpdates       []string `json:"allowed_updates,omitempty"`
}

// Handler consumes canonical messages.
type Handler interface {
	HandleMessage(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, msg Message) error

// HandleMessage calls f(ctx, msg).
func (f HandlerFunc) HandleMessage(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
