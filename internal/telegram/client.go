package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/keepmind9/tgchannel/internal/logger"
	"github.com/keepmind9/tgchannel/pkg/constants"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// ClientConfig configures a Client. Zero values fall back to the defaults in
// pkg/constants.
type ClientConfig struct {
	Token          string
	APIEndpoint    string        // format string: token, method
	FileEndpoint   string        // format string: token, file path
	RequestTimeout time.Duration // bound for every call; getUpdates adds the poll duration
	HTTPClient     *http.Client
}

// Client issues authenticated Bot API calls. Each method performs one
// request and reports every failure as a *TransportError.
type Client struct {
	api            *tgbotapi.BotAPI
	http           *http.Client
	token          string
	fileEndpoint   string
	requestTimeout time.Duration
}

// NewClient builds a client without contacting Telegram.
func NewClient(cfg ClientConfig) *Client {
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = constants.DefaultAPIEndpoint
	}
	if cfg.FileEndpoint == "" {
		cfg.FileEndpoint = constants.DefaultFileEndpoint
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = constants.DefaultRequestTimeout
	}
	if cfg.HTTPClient == nil {
		// Deadlines come from per-call contexts so long polls are not cut short.
		cfg.HTTPClient = &http.Client{}
	}

	// tgbotapi.NewBotAPI calls getMe on construction; build the struct
	// directly so construction stays offline.
	api := &tgbotapi.BotAPI{
		Token:  cfg.Token,
		Client: cfg.HTTPClient,
		Buffer: 100,
	}
	api.SetAPIEndpoint(cfg.APIEndpoint)

	return &Client{
		api:            api,
		http:           cfg.HTTPClient,
		token:          cfg.Token,
		fileEndpoint:   cfg.FileEndpoint,
		requestTimeout: cfg.RequestTimeout,
	}
}

// contextClient binds an outgoing request to ctx. tgbotapi builds requests
// without a context, so every call goes through a per-call copy of the
// BotAPI carrying one of these.
type contextClient struct {
	ctx    context.Context
	client *http.Client
}

func (c contextClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req.WithContext(c.ctx))
	if err != nil || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return resp, err
	}

	// tgbotapi decodes any body regardless of status. Let API rejections
	// (ok:false with a description) through so their code and text survive;
	// anything else on a non-2xx status is a transport failure.
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, &statusError{Code: resp.StatusCode}
	}
	if ok := gjson.GetBytes(body, "ok"); ok.Type == gjson.False {
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return resp, nil
	}
	return nil, &statusError{Code: resp.StatusCode}
}

// statusError is a non-2xx HTTP response that carried no API error body.
type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

func (c *Client) bind(ctx context.Context) *tgbotapi.BotAPI {
	api := *c.api
	api.Client = contextClient{ctx: ctx, client: c.http}
	return &api
}

// call runs one Bot API method and returns the raw result.
func (c *Client) call(ctx context.Context, timeout time.Duration, method string, params tgbotapi.Params) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.bind(ctx).MakeRequest(method, params)
	if err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			desc := apiErr.Message
			if desc == "" {
				desc = "Unknown Telegram API error"
			}
			return nil, &TransportError{Op: method, Code: apiErr.Code, Description: desc, Err: err}
		}
		return nil, requestErr(method, err)
	}
	if resp == nil || !resp.Ok {
		return nil, &TransportError{Op: method, Description: "Unknown Telegram API error"}
	}
	return resp.Result, nil
}

func (c *Client) request(ctx context.Context, chattable tgbotapi.Chattable, method string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.bind(ctx).Request(chattable)
	if err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			return nil, &TransportError{Op: method, Code: apiErr.Code, Description: apiErr.Message, Err: err}
		}
		return nil, requestErr(method, err)
	}
	return resp.Result, nil
}

func requestErr(method string, err error) *TransportError {
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return &TransportError{
			Op:          method,
			Description: fmt.Sprintf("Telegram API returned %s", statusErr),
			Err:         err,
		}
	}
	return transportErr(method, err, "HTTP request to Telegram failed")
}

// SendText sends a plain text message and returns the id Telegram assigned.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) (int64, error) {
	if utf8.RuneCountInString(text) > constants.MaxTelegramMessageLength {
		logger.WithFields(logrus.Fields{
			"original_length": utf8.RuneCountInString(text),
			"max_length":      constants.MaxTelegramMessageLength,
		}).Info("truncating-message-for-telegram-limit")
		text = string([]rune(text)[:constants.MaxTelegramMessageLength])
	}

	result, err := c.request(ctx, tgbotapi.NewMessage(chatID, text), "sendMessage")
	if err != nil {
		return 0, err
	}
	return requireInt(result, "sendMessage", "message_id")
}

// FetchUpdates long-polls getUpdates. A nil cursor fetches without a lower
// bound. Each returned update has a validated integer update_id; anything
// else in the batch is a schema violation.
func (c *Client) FetchUpdates(ctx context.Context, cursor *int64, pollTimeout time.Duration) ([]RawUpdate, error) {
	secs := int(pollTimeout / time.Second)
	if secs < 0 {
		secs = 0
	}
	params := tgbotapi.Params{"timeout": strconv.Itoa(secs)}
	if cursor != nil {
		params["offset"] = strconv.FormatInt(*cursor, 10)
	}

	result, err := c.call(ctx, pollTimeout+c.requestTimeout, "getUpdates", params)
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(result)
	if !parsed.IsArray() {
		return nil, schemaErr("getUpdates", "result", "list")
	}

	elems := parsed.Array()
	updates := make([]RawUpdate, 0, len(elems))
	for i, elem := range elems {
		if !elem.IsObject() {
			return nil, schemaErr("getUpdates", fmt.Sprintf("result[%d]", i), "object")
		}
		raw, err := DecodeRawUpdate([]byte(elem.Raw))
		if err != nil {
			return nil, &TransportError{
				Op:          "getUpdates",
				Description: fmt.Sprintf("unexpected response: result[%d]: %v", i, err),
				Err:         err,
			}
		}
		updates = append(updates, raw)
	}
	return updates, nil
}

// ResolveFileLocation returns the server-side path of a file handle.
func (c *Client) ResolveFileLocation(ctx context.Context, fileID string) (string, error) {
	result, err := c.request(ctx, tgbotapi.FileConfig{FileID: fileID}, "getFile")
	if err != nil {
		return "", err
	}
	return requireString(result, "getFile", "file_path")
}

// ReadFile downloads the bytes stored at a location returned by
// ResolveFileLocation.
func (c *Client) ReadFile(ctx context.Context, location string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	url := fmt.Sprintf(c.fileEndpoint, c.token, location)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, transportErr("download", err, "cannot build file request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportErr("download", err, "Failed to download file from Telegram")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			Op:          "download",
			Description: fmt.Sprintf("Failed to download file from Telegram: HTTP %d", resp.StatusCode),
		}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportErr("download", err, "Failed to download file from Telegram")
	}
	return data, nil
}

// DownloadFile resolves fileID and stores its content at destination.
func (c *Client) DownloadFile(ctx context.Context, fileID, destination string) (string, error) {
	return NewFetcher(c).Fetch(ctx, fileID, destination)
}

// SetWebhook registers url as the push endpoint. An empty secret leaves the
// secret token unset.
func (c *Client) SetWebhook(ctx context.Context, url, secret string, dropPending bool) (bool, error) {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	params.AddBool("drop_pending_updates", dropPending)

	result, err := c.call(ctx, c.requestTimeout, "setWebhook", params)
	if err != nil {
		return false, err
	}
	return requireBool(result, "setWebhook")
}

// DeleteWebhook switches the bot back to getUpdates delivery.
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) (bool, error) {
	result, err := c.request(ctx, tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending}, "deleteWebhook")
	if err != nil {
		return false, err
	}
	return requireBool(result, "deleteWebhook")
}

// WebhookInfo reports the current webhook registration.
func (c *Client) WebhookInfo(ctx context.Context) (WebhookStatus, error) {
	result, err := c.call(ctx, c.requestTimeout, "getWebhookInfo", nil)
	if err != nil {
		return WebhookStatus{}, err
	}
	if _, err := requireString(result, "getWebhookInfo", "url"); err != nil {
		return WebhookStatus{}, err
	}
	if _, err := requireInt(result, "getWebhookInfo", "pending_update_count"); err != nil {
		return WebhookStatus{}, err
	}

	var status WebhookStatus
	if err := json.Unmarshal(result, &status); err != nil {
		return WebhookStatus{}, transportErr("getWebhookInfo", err, "unexpected response")
	}
	return status, nil
}

// Me returns the bot's own account, which also verifies the token.
func (c *Client) Me(ctx context.Context) (tgbotapi.User, error) {
	result, err := c.call(ctx, c.requestTimeout, "getMe", nil)
	if err != nil {
		return tgbotapi.User{}, err
	}
	if _, err := requireInt(result, "getMe", "id"); err != nil {
		return tgbotapi.User{}, err
	}

	var user tgbotapi.User
	if err := json.Unmarshal(result, &user); err != nil {
		return tgbotapi.User{}, transportErr("getMe", err, "unexpected response")
	}
	return user, nil
}

func requireInt(result json.RawMessage, op, field string) (int64, error) {
	v := gjson.GetBytes(result, field)
	if v.Type != gjson.Number || float64(v.Int()) != v.Num {
		return 0, schemaErr(op, field, "integer")
	}
	return v.Int(), nil
}

func requireString(result json.RawMessage, op, field string) (string, error) {
	v := gjson.GetBytes(result, field)
	if v.Type != gjson.String {
		return "", schemaErr(op, field, "string")
	}
	return v.Str, nil
}

func requireBool(result json.RawMessage, op string) (bool, error) {
	v := gjson.ParseBytes(result)
	if v.Type != gjson.True && v.Type != gjson.False {
		return false, schemaErr(op, "result", "boolean")
	}
	return v.Bool(), nil
}
