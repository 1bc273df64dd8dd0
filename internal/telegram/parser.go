package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// object is one decoded JSON object level. Keys are looked up exactly as
// Telegram sends them; encoding/json's case-insensitive struct matching is
// not used anywhere in the parser.
type object struct {
	path   string // dotted prefix for error fields, "" at message level
	fields map[string]json.RawMessage
}

// decodeObject decodes data as a JSON object. name labels decode failures.
func decodeObject(data []byte, path, name string) (object, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return object{}, decodeErr(name, err)
	}
	if fields == nil {
		return object{}, &FormatError{Field: name, Reason: "expected object"}
	}
	return object{path: path, fields: fields}, nil
}

func (o object) fieldPath(key string) string {
	if o.path == "" {
		return key
	}
	return o.path + "." + key
}

// value returns the encoded value of key. null counts as absent.
func (o object) value(key string) (json.RawMessage, bool) {
	v, ok := o.fields[key]
	if !ok || isNull(v) {
		return nil, false
	}
	return v, true
}

func (o object) intField(key string) (*int64, error) {
	v, ok := o.value(key)
	if !ok {
		return nil, nil
	}
	var n int64
	if err := json.Unmarshal(v, &n); err != nil {
		return nil, &FormatError{Field: o.fieldPath(key), Reason: "expected integer"}
	}
	return &n, nil
}

func (o object) stringField(key string) (*string, error) {
	v, ok := o.value(key)
	if !ok {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, &FormatError{Field: o.fieldPath(key), Reason: "expected string"}
	}
	return &s, nil
}

func (o object) objectField(key string) (*object, error) {
	v, ok := o.value(key)
	if !ok {
		return nil, nil
	}
	path := o.fieldPath(key)
	child, err := decodeObject(v, path, path)
	if err != nil {
		return nil, err
	}
	return &child, nil
}

func (o object) listField(key string) ([]json.RawMessage, error) {
	v, ok := o.value(key)
	if !ok {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return nil, &FormatError{Field: o.fieldPath(key), Reason: "expected list"}
	}
	return items, nil
}

// ParseRawUpdate decodes and parses a single update body, as received by a
// webhook. It returns (nil, nil) for update kinds that carry no message.
func ParseRawUpdate(data []byte) (*Message, error) {
	raw, err := DecodeRawUpdate(data)
	if err != nil {
		return nil, err
	}
	return ParseUpdate(raw)
}

// DecodeRawUpdate validates the update envelope: a JSON object with an
// integer update_id. The payload of the first recognised kind is kept
// encoded for ParseUpdate.
func DecodeRawUpdate(data []byte) (RawUpdate, error) {
	envelope, err := decodeObject(data, "", "update")
	if err != nil {
		return RawUpdate{}, err
	}

	updateID, err := envelope.intField("update_id")
	if err != nil {
		return RawUpdate{}, err
	}
	if updateID == nil {
		return RawUpdate{}, &FormatError{Field: "update_id", Reason: "expected integer"}
	}

	raw := RawUpdate{UpdateID: *updateID, Kind: KindUnknown}
	for _, kind := range knownKinds {
		v, ok := envelope.value(string(kind))
		if !ok {
			continue
		}
		raw.Kind = kind
		raw.Payload = v
		break
	}
	return raw, nil
}

// ParseUpdate converts a raw update into a Message. Updates that are not
// plain messages yield (nil, nil). A message missing its chat id, message id
// or date, or carrying a field of the wrong JSON type, fails with a
// *FormatError.
func ParseUpdate(raw RawUpdate) (*Message, error) {
	if raw.Kind != KindMessage {
		return nil, nil
	}

	m, err := decodeObject(raw.Payload, "", "message")
	if err != nil {
		return nil, err
	}

	chat, err := m.objectField("chat")
	if err != nil {
		return nil, err
	}
	var chatID *int64
	if chat != nil {
		if chatID, err = chat.intField("id"); err != nil {
			return nil, err
		}
	}
	if chatID == nil {
		return nil, &FormatError{Field: "chat.id", Reason: "expected integer"}
	}

	messageID, err := m.intField("message_id")
	if err != nil {
		return nil, err
	}
	if messageID == nil {
		return nil, &FormatError{Field: "message_id", Reason: "expected integer"}
	}

	date, err := m.intField("date")
	if err != nil {
		return nil, err
	}
	if date == nil {
		return nil, &FormatError{Field: "date", Reason: "expected integer"}
	}

	msg := &Message{
		UpdateID:  raw.UpdateID,
		ChatID:    *chatID,
		MessageID: *messageID,
		DateUnix:  *date,
	}

	if msg.Text, err = m.stringField("text"); err != nil {
		return nil, err
	}
	if msg.Caption, err = m.stringField("caption"); err != nil {
		return nil, err
	}

	from, err := m.objectField("from")
	if err != nil {
		return nil, err
	}
	if from != nil {
		if msg.FromUserID, err = from.intField("id"); err != nil {
			return nil, err
		}
	}

	photos, err := m.listField("photo")
	if err != nil {
		return nil, err
	}
	msg.Photos = make([]Photo, 0, len(photos))
	for _, item := range photos {
		p, err := convertPhoto(item)
		if err != nil {
			return nil, err
		}
		msg.Photos = append(msg.Photos, p)
	}

	doc, err := m.objectField("document")
	if err != nil {
		return nil, err
	}
	if doc != nil {
		d, err := convertDocument(*doc)
		if err != nil {
			return nil, err
		}
		msg.Document = &d
	}

	return msg, nil
}

func convertPhoto(data json.RawMessage) (Photo, error) {
	o, err := decodeObject(data, "photo", "photo")
	if err != nil {
		return Photo{}, err
	}

	fileID, err := o.stringField("file_id")
	if err != nil {
		return Photo{}, err
	}
	uniqueID, err := o.stringField("file_unique_id")
	if err != nil {
		return Photo{}, err
	}
	width, err := o.intField("width")
	if err != nil {
		return Photo{}, err
	}
	height, err := o.intField("height")
	if err != nil {
		return Photo{}, err
	}
	size, err := o.intField("file_size")
	if err != nil {
		return Photo{}, err
	}

	switch {
	case fileID == nil:
		return Photo{}, &FormatError{Field: "photo.file_id", Reason: "expected string"}
	case uniqueID == nil:
		return Photo{}, &FormatError{Field: "photo.file_unique_id", Reason: "expected string"}
	case width == nil:
		return Photo{}, &FormatError{Field: "photo.width", Reason: "expected integer"}
	case height == nil:
		return Photo{}, &FormatError{Field: "photo.height", Reason: "expected integer"}
	}
	return Photo{
		FileID:       *fileID,
		FileUniqueID: *uniqueID,
		Width:        int(*width),
		Height:       int(*height),
		FileSize:     size,
	}, nil
}

func convertDocument(o object) (Document, error) {
	fileID, err := o.stringField("file_id")
	if err != nil {
		return Document{}, err
	}
	uniqueID, err := o.stringField("file_unique_id")
	if err != nil {
		return Document{}, err
	}

	switch {
	case fileID == nil:
		return Document{}, &FormatError{Field: "document.file_id", Reason: "expected string"}
	case uniqueID == nil:
		return Document{}, &FormatError{Field: "document.file_unique_id", Reason: "expected string"}
	}

	d := Document{FileID: *fileID, FileUniqueID: *uniqueID}
	if d.FileName, err = o.stringField("file_name"); err != nil {
		return Document{}, err
	}
	if d.MimeType, err = o.stringField("mime_type"); err != nil {
		return Document{}, err
	}
	if d.FileSize, err = o.intField("file_size"); err != nil {
		return Document{}, err
	}
	return d, nil
}

// decodeErr turns an encoding/json failure into a *FormatError naming the
// offending field.
func decodeErr(root string, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := root
		if typeErr.Field != "" {
			field = typeErr.Field
		}
		return &FormatError{Field: field, Reason: "expected " + jsonTypeName(typeErr.Type)}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &FormatError{Reason: fmt.Sprintf("malformed JSON at offset %d: %v", syntaxErr.Offset, err)}
	}
	return &FormatError{Field: root, Reason: err.Error()}
}

func jsonTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.Struct, reflect.Map:
		return "object"
	}
	return t.String()
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
