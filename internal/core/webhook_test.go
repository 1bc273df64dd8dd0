package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/keepmind9/tgchannel/internal/telegram"
	"github.com/keepmind9/tgchannel/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcessor records processed messages and returns canned results.
type fakeProcessor struct {
	processed []telegram.Message
	saved     []string
	err       error
}

func (f *fakeProcessor) Process(ctx context.Context, msg telegram.Message) ([]string, error) {
	f.processed = append(f.processed, msg)
	return f.saved, f.err
}

const photoUpdate = `{
	"update_id": 501,
	"message": {
		"message_id": 9,
		"date": 1700000000,
		"chat": {"id": 42, "type": "private"},
		"caption": "look",
		"photo": [
			{"file_id": "s", "file_unique_id": "us", "width": 90, "height": 90},
			{"file_id": "l", "file_unique_id": "ul", "width": 1280, "height": 1280}
		]
	}
}`

func postUpdate(t *testing.T, h http.Handler, body, secret string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(constants.WebhookSecretHeader, secret)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestWebhook_WrongSecret_RejectedBeforeParsing(t *testing.T) {
	proc := &fakeProcessor{}
	parseCalls := 0
	h := &WebhookHandler{
		path:      "/telegram/webhook",
		secret:    "abc",
		processor: proc,
		parse: func(data []byte) (*telegram.Message, error) {
			parseCalls++
			return telegram.ParseRawUpdate(data)
		},
	}

	rec, resp := postUpdate(t, h.routes(), photoUpdate, "wrong")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, 0, parseCalls)
	assert.Empty(t, proc.processed)

	rec, _ = postUpdate(t, h.routes(), photoUpdate, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, parseCalls)

	rec, _ = postUpdate(t, h.routes(), photoUpdate, "abc")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, parseCalls)
}

func TestWebhook_Success_ReturnsSavedFiles(t *testing.T) {
	proc := &fakeProcessor{saved: []string{"data/photo_9.jpg"}}
	h := NewWebhookHandler("/telegram/webhook", "abc", proc)

	rec, resp := postUpdate(t, h, photoUpdate, "abc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, true, resp["processed"])
	assert.Equal(t, float64(501), resp["update_id"])
	assert.Equal(t, float64(42), resp["chat_id"])
	assert.Equal(t, []interface{}{"data/photo_9.jpg"}, resp["saved_files"])

	require.Len(t, proc.processed, 1)
	msg := proc.processed[0]
	assert.Equal(t, int64(9), msg.MessageID)
	require.NotNil(t, msg.Caption)
	assert.Equal(t, "look", *msg.Caption)
	require.Len(t, msg.Photos, 2)
}

func TestWebhook_NoSecretConfigured_AcceptsAnyHeader(t *testing.T) {
	h := NewWebhookHandler("/telegram/webhook", "", &fakeProcessor{})

	rec, resp := postUpdate(t, h, photoUpdate, "whatever")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, resp["saved_files"])
}

func TestWebhook_InvalidJSON_Returns400(t *testing.T) {
	proc := &fakeProcessor{}
	h := NewWebhookHandler("/telegram/webhook", "", proc)

	rec, resp := postUpdate(t, h, `{"update_id": `, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON payload", resp["detail"])
	assert.Empty(t, proc.processed)
}

func TestWebhook_MalformedUpdate_Returns400(t *testing.T) {
	proc := &fakeProcessor{}
	h := NewWebhookHandler("/telegram/webhook", "", proc)

	rec, resp := postUpdate(t, h, `{"update_id": 5, "message": {"message_id": 1, "date": 1, "chat": {"type": "private"}}}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp["detail"], "Invalid Telegram update payload")
	assert.Contains(t, resp["detail"], "chat.id")
	assert.Empty(t, proc.processed)
}

func TestWebhook_UnsupportedKind_NotProcessed(t *testing.T) {
	proc := &fakeProcessor{}
	h := NewWebhookHandler("/telegram/webhook", "", proc)

	rec, resp := postUpdate(t, h, `{"update_id": 6, "callback_query": {"id": "q"}}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, false, resp["processed"])
	assert.Equal(t, "unsupported_update_type", resp["reason"])
	assert.Empty(t, proc.processed)
}

func TestWebhook_ProcessorFailure_Returns500(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("disk full")}
	h := NewWebhookHandler("/telegram/webhook", "", proc)

	rec, resp := postUpdate(t, h, photoUpdate, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, resp["detail"], "disk full")
}

func TestWebhook_ParserFailure_Returns500(t *testing.T) {
	h := &WebhookHandler{
		path:      "/telegram/webhook",
		processor: &fakeProcessor{},
		parse: func(data []byte) (*telegram.Message, error) {
			return nil, errors.New("unexpected")
		},
	}

	rec, _ := postUpdate(t, h.routes(), photoUpdate, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhook_MethodNotAllowed(t *testing.T) {
	h := NewWebhookHandler("/telegram/webhook", "", &fakeProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/telegram/webhook", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebhook_HealthAndRoot(t *testing.T) {
	h := NewWebhookHandler("/telegram/webhook", "abc", &fakeProcessor{})

	for _, path := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhook_OversizedBody_Returns400(t *testing.T) {
	h := NewWebhookHandler("/telegram/webhook", "", &fakeProcessor{})
	body := `{"update_id": 1, "pad": "` + strings.Repeat("x", constants.MaxWebhookBodyBytes) + `"}`

	rec, _ := postUpdate(t, h, body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
