package core

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/keepmind9/tgchannel/internal/logger"
	"github.com/keepmind9/tgchannel/internal/telegram"
	"github.com/keepmind9/tgchannel/pkg/constants"
	"github.com/sirupsen/logrus"
)

// MessageProcessor handles one parsed message and reports the files it
// saved. *Processor implements it.
type MessageProcessor interface {
	Process(ctx context.Context, msg telegram.Message) ([]string, error)
}

// WebhookHandler receives pushed updates. It keeps no cursor and applies no
// backoff: every delivery is parsed and processed on its own, and any
// rejection is left for Telegram to retry.
type WebhookHandler struct {
	path      string
	secret    string
	processor MessageProcessor
	parse     func(data []byte) (*telegram.Message, error)
}

// NewWebhookHandler builds the HTTP routes for push delivery: POST path for
// updates plus "/" and "/health" for deployment checks.
func NewWebhookHandler(path, secret string, processor MessageProcessor) http.Handler {
	h := &WebhookHandler{
		path:      path,
		secret:    secret,
		processor: processor,
		parse:     telegram.ParseRawUpdate,
	}
	return h.routes()
}

func (h *WebhookHandler) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(h.path, h.handleUpdate)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/", handleRoot)
	return mux
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"service": "tgchannel", "status": "ok"})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// handleUpdate checks the secret, parses one update and processes it.
func (h *WebhookHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	deliveryID := uuid.NewString()
	log := logger.WithFields(logrus.Fields{
		"delivery_id": deliveryID,
		"remote_addr": r.RemoteAddr,
	})

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if h.secret != "" {
		got := r.Header.Get(constants.WebhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			log.Warn("webhook-rejected-invalid-secret")
			writeError(w, http.StatusForbidden, "Invalid Telegram webhook secret token")
			return
		}
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, constants.MaxWebhookBodyBytes))
	defer r.Body.Close()
	if err != nil {
		log.WithError(err).Warn("webhook-body-read-failed")
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON payload: %v", err))
		return
	}
	if !json.Valid(data) {
		log.Warn("webhook-rejected-invalid-json")
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	msg, err := h.parse(data)
	if err != nil {
		var formatErr *telegram.FormatError
		if !errors.As(err, &formatErr) {
			log.WithError(err).Error("webhook-parser-failed")
			writeError(w, http.StatusInternalServerError, "Failed to parse update")
			return
		}
		log.WithError(err).Warn("webhook-rejected-invalid-update")
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid Telegram update payload: %v", err))
		return
	}

	if msg == nil {
		log.Debug("webhook-update-skipped-unsupported-kind")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":        true,
			"processed": false,
			"reason":    "unsupported_update_type",
		})
		return
	}

	log = log.WithFields(logrus.Fields{
		"update_id": msg.UpdateID,
		"chat_id":   msg.ChatID,
	})

	saved, err := h.processor.Process(r.Context(), *msg)
	if err != nil {
		log.WithError(err).Error("webhook-processing-failed")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to process update: %v", err))
		return
	}
	if saved == nil {
		saved = []string{}
	}

	log.WithField("saved_files", len(saved)).Info("webhook-update-processed")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":          true,
		"processed":   true,
		"update_id":   msg.UpdateID,
		"chat_id":     msg.ChatID,
		"saved_files": saved,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Warn("webhook-response-write-failed")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]interface{}{"ok": false, "detail": detail})
}
