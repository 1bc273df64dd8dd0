package telegram

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func int64Ptr(v int64) *int64  { return &v }

func TestParseRawUpdate_TextMessage(t *testing.T) {
	body := `{
		"update_id": 10,
		"message": {
			"message_id": 3,
			"from": {"id": 77, "first_name": "Ann"},
			"chat": {"id": -1001, "type": "group"},
			"date": 1700000000,
			"text": "hi"
		}
	}`

	msg, err := ParseRawUpdate([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Equal(t, Message{
		UpdateID:   10,
		ChatID:     -1001,
		MessageID:  3,
		FromUserID: int64Ptr(77),
		Text:       strPtr("hi"),
		Photos:     []Photo{},
		DateUnix:   1700000000,
	}, *msg)
}

func TestParseRawUpdate_NoMessageIsAbsent(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"only update id", `{"update_id": 1}`},
		{"edited message", `{"update_id": 2, "edited_message": {"message_id": 1, "chat": {"id": 1}, "date": 1}}`},
		{"callback query", `{"update_id": 3, "callback_query": {"id": "abc"}}`},
		{"null message", `{"update_id": 4, "message": null}`},
		{"unknown kind", `{"update_id": 5, "business_message": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseRawUpdate([]byte(tt.body))
			assert.NoError(t, err)
			assert.Nil(t, msg)
		})
	}
}

func TestParseRawUpdate_MissingRequiredField(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{
			name:  "missing chat",
			body:  `{"update_id": 1, "message": {"message_id": 1, "date": 1}}`,
			field: "chat.id",
		},
		{
			name:  "missing chat id",
			body:  `{"update_id": 1, "message": {"message_id": 1, "chat": {"type": "private"}, "date": 1}}`,
			field: "chat.id",
		},
		{
			name:  "missing message id",
			body:  `{"update_id": 1, "message": {"chat": {"id": 5}, "date": 1}}`,
			field: "message_id",
		},
		{
			name:  "missing date",
			body:  `{"update_id": 1, "message": {"message_id": 1, "chat": {"id": 5}}}`,
			field: "date",
		},
		{
			name:  "photo without file id",
			body:  `{"update_id": 1, "message": {"message_id": 1, "chat": {"id": 5}, "date": 1, "photo": [{"file_unique_id": "u", "width": 1, "height": 1}]}}`,
			field: "photo.file_id",
		},
		{
			name:  "document without unique id",
			body:  `{"update_id": 1, "message": {"message_id": 1, "chat": {"id": 5}, "date": 1, "document": {"file_id": "f"}}}`,
			field: "document.file_unique_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseRawUpdate([]byte(tt.body))
			assert.Nil(t, msg)

			var formatErr *FormatError
			require.True(t, errors.As(err, &formatErr), "expected FormatError, got %v", err)
			assert.Equal(t, tt.field, formatErr.Field)
		})
	}
}

func TestParseRawUpdate_KeysAreCaseSensitive(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{
			name:  "upper-case required keys",
			body:  `{"update_id": 1, "message": {"MESSAGE_ID": 5, "Chat": {"ID": 9}, "DATE": 1, "TEXT": "x"}}`,
			field: "chat.id",
		},
		{
			name:  "upper-case chat id",
			body:  `{"update_id": 1, "message": {"message_id": 5, "chat": {"ID": 9}, "date": 1}}`,
			field: "chat.id",
		},
		{
			name:  "capitalised message id",
			body:  `{"update_id": 1, "message": {"Message_Id": 5, "chat": {"id": 9}, "date": 1}}`,
			field: "message_id",
		},
		{
			name:  "upper-case date",
			body:  `{"update_id": 1, "message": {"message_id": 5, "chat": {"id": 9}, "DATE": 1}}`,
			field: "date",
		},
		{
			name:  "upper-case photo file id",
			body:  `{"update_id": 1, "message": {"message_id": 5, "chat": {"id": 9}, "date": 1, "photo": [{"FILE_ID": "f", "file_unique_id": "u", "width": 1, "height": 1}]}}`,
			field: "photo.file_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseRawUpdate([]byte(tt.body))
			assert.Nil(t, msg)

			var formatErr *FormatError
			require.True(t, errors.As(err, &formatErr), "expected FormatError, got %v", err)
			assert.Equal(t, tt.field, formatErr.Field)
		})
	}
}

func TestParseRawUpdate_WrongCaseOptionalKeysAreIgnored(t *testing.T) {
	body := `{"update_id": 2, "message": {"message_id": 5, "chat": {"id": 9}, "date": 1, "TEXT": "x", "Caption": "y", "From": {"id": 3}}}`

	msg, err := ParseRawUpdate([]byte(body))
	require.NoError(t, err)
	assert.Nil(t, msg.Text)
	assert.Nil(t, msg.Caption)
	assert.Nil(t, msg.FromUserID)
}

func TestDecodeRawUpdate_UpdateIDIsCaseSensitive(t *testing.T) {
	_, err := DecodeRawUpdate([]byte(`{"UPDATE_ID": 1, "message": {}}`))
	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr), "expected FormatError, got %v", err)
	assert.Equal(t, "update_id", formatErr.Field)
}

func TestParseRawUpdate_WrongTypes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"string chat id", `{"update_id": 1, "message": {"message_id": 1, "chat": {"id": "5"}, "date": 1}}`},
		{"fractional message id", `{"update_id": 1, "message": {"message_id": 1.5, "chat": {"id": 5}, "date": 1}}`},
		{"numeric text", `{"update_id": 1, "message": {"message_id": 1, "chat": {"id": 5}, "date": 1, "text": 12}}`},
		{"photo not a list", `{"update_id": 1, "message": {"message_id": 1, "chat": {"id": 5}, "date": 1, "photo": {}}}`},
		{"message not an object", `{"update_id": 1, "message": "hello"}`},
		{"boolean update id", `{"update_id": true, "message": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRawUpdate([]byte(tt.body))
			var formatErr *FormatError
			assert.True(t, errors.As(err, &formatErr), "expected FormatError, got %v", err)
		})
	}
}

func TestParseRawUpdate_InvalidEnvelope(t *testing.T) {
	for _, body := range []string{`not json`, `[]`, `null`, `{"message": {}}`} {
		_, err := ParseRawUpdate([]byte(body))
		var formatErr *FormatError
		assert.True(t, errors.As(err, &formatErr), "body %q: expected FormatError, got %v", body, err)
	}
}

func TestParseRawUpdate_NoTextNoCaption(t *testing.T) {
	body := `{"update_id": 8, "message": {"message_id": 2, "chat": {"id": 9}, "date": 100}}`

	msg, err := ParseRawUpdate([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Nil(t, msg.Text)
	assert.Nil(t, msg.Caption)
	assert.Nil(t, msg.FromUserID)
	assert.Nil(t, msg.Document)
	assert.Empty(t, msg.Photos)
}

func TestParseRawUpdate_PhotosKeepDeliveryOrder(t *testing.T) {
	body := `{"update_id": 11, "message": {
		"message_id": 4, "chat": {"id": 9}, "date": 100, "caption": "look",
		"photo": [
			{"file_id": "small", "file_unique_id": "u1", "width": 90, "height": 60, "file_size": 1000},
			{"file_id": "medium", "file_unique_id": "u2", "width": 320, "height": 240},
			{"file_id": "large", "file_unique_id": "u3", "width": 1280, "height": 960, "file_size": 90000}
		]
	}}`

	msg, err := ParseRawUpdate([]byte(body))
	require.NoError(t, err)
	require.Len(t, msg.Photos, 3)

	assert.Equal(t, "small", msg.Photos[0].FileID)
	assert.Equal(t, "medium", msg.Photos[1].FileID)
	assert.Equal(t, "large", msg.Photos[2].FileID)
	assert.Equal(t, int64Ptr(1000), msg.Photos[0].FileSize)
	assert.Nil(t, msg.Photos[1].FileSize)
	assert.Equal(t, strPtr("look"), msg.Caption)

	best, ok := BestPhoto(msg.Photos)
	require.True(t, ok)
	assert.Equal(t, "large", best.FileID)
	assert.Equal(t, 1280, best.Width)
}

func TestParseRawUpdate_Document(t *testing.T) {
	body := `{"update_id": 12, "message": {
		"message_id": 5, "chat": {"id": 9}, "date": 100,
		"document": {"file_id": "f1", "file_unique_id": "u1", "file_name": "report.pdf", "mime_type": "application/pdf"}
	}}`

	msg, err := ParseRawUpdate([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, msg.Document)
	assert.Equal(t, Document{
		FileID:       "f1",
		FileUniqueID: "u1",
		FileName:     strPtr("report.pdf"),
		MimeType:     strPtr("application/pdf"),
	}, *msg.Document)
}

func TestBestPhoto_Empty(t *testing.T) {
	_, ok := BestPhoto(nil)
	assert.False(t, ok)
}

func TestDecodeRawUpdate_DetectsKind(t *testing.T) {
	raw, err := DecodeRawUpdate([]byte(`{"update_id": 3, "channel_post": {"message_id": 1}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), raw.UpdateID)
	assert.Equal(t, KindChannelPost, raw.Kind)

	raw, err = DecodeRawUpdate([]byte(`{"update_id": 4}`))
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, raw.Kind)
	assert.Nil(t, raw.Payload)
}
