// Package telegram is a thin Bot API client covering the calls this service
// needs. Results are returned as raw JSON so the normalizer sees the full
// payloads; outbound sends share a rate limiter to respect flood limits.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	errs "github.com/kvantor/telegram-sticker-vault/internal/core/errors"
	"github.com/kvantor/telegram-sticker-vault/internal/platform/observability"
)

const stickerSetInvalidMarker = "STICKERSET_INVALID"

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func New(baseURL, token string, timeout time.Duration, sendRPS float64, logger *zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(sendRPS), 1),
		logger:  logger.With().Str("component", "telegram").Logger(),
	}
}

// apiResponse is the Bot API envelope wrapping every method result.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// call issues a GET request and unwraps the response envelope.
// rawQuery is appended verbatim; callers escape their own values.
func (c *Client) call(ctx context.Context, method, rawQuery string) (json.RawMessage, error) {
	u := c.methodURL(method)
	if rawQuery != "" {
		u += "?" + rawQuery
	}

	c.logger.Debug().Str("method", method).Msg("api call")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		observability.APIErrors.Inc()

		return nil, fmt.Errorf("%s: %w", method, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.APIErrors.Inc()

		return nil, fmt.Errorf("%s: read response: %w", method, err)
	}

	return c.decode(method, body)
}

func (c *Client) decode(method string, body []byte) (json.RawMessage, error) {
	var env apiResponse
	if err := json.Unmarshal(body, &env); err != nil {
		observability.APIErrors.Inc()

		return nil, fmt.Errorf("%s: decode response: %w", method, err)
	}

	if !env.OK {
		observability.APIErrors.Inc()

		if env.ErrorCode == http.StatusBadRequest && strings.Contains(env.Description, stickerSetInvalidMarker) {
			return nil, fmt.Errorf("%s: %w", method, errs.ErrStickerSetInvalid)
		}

		return nil, fmt.Errorf("%s: %w: %s (%d)", method, errs.ErrAPIRequestFailed, env.Description, env.ErrorCode)
	}

	return env.Result, nil
}

// GetUpdates long-polls for updates. The offset is omitted until the first
// update id is known.
func (c *Client) GetUpdates(ctx context.Context, offset int64, hasOffset bool) ([]json.RawMessage, error) {
	query := ""
	if hasOffset {
		query = fmt.Sprintf("offset=%d", offset)
	}

	result, err := c.call(ctx, "getUpdates", query)
	if err != nil {
		return nil, err
	}

	var updates []json.RawMessage
	if err = json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("getUpdates: decode result: %w", err)
	}

	return updates, nil
}

// GetFile resolves file metadata, including the transient file_path needed
// for the download step.
func (c *Client) GetFile(ctx context.Context, fileID string) (json.RawMessage, error) {
	return c.call(ctx, "getFile", "file_id="+url.QueryEscape(fileID))
}

// DownloadFile fetches the payload behind a getFile file_path.
func (c *Client) DownloadFile(ctx context.Context, filePath string) ([]byte, error) {
	u := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, filePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		observability.APIErrors.Inc()

		return nil, fmt.Errorf("download file: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		observability.APIErrors.Inc()

		return nil, fmt.Errorf("download file: %w: status %d", errs.ErrAPIRequestFailed, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}

	return payload, nil
}

// GetStickerSet fetches sticker set metadata. A rejected name surfaces as
// ErrStickerSetInvalid.
func (c *Client) GetStickerSet(ctx context.Context, name string) (json.RawMessage, error) {
	return c.call(ctx, "getStickerSet", "name="+url.QueryEscape(name))
}

// SendMessage sends HTML-formatted text to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}

	query := fmt.Sprintf("chat_id=%d&parse_mode=html&text=%s", chatID, EscapeText(text))

	_, err := c.call(ctx, "sendMessage", query)

	return err
}

// SendReply sends HTML-formatted text replying to a specific message.
func (c *Client) SendReply(ctx context.Context, chatID, messageID int64, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}

	query := fmt.Sprintf("chat_id=%d&reply_to_message_id=%d&parse_mode=html&text=%s",
		chatID, messageID, EscapeText(text))

	_, err := c.call(ctx, "sendMessage", query)

	return err
}

// SendDocument uploads a document to a chat via multipart form data.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename string, payload []byte) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sendDocument: %w", err)
	}

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return fmt.Errorf("sendDocument: %w", err)
	}

	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return fmt.Errorf("sendDocument: %w", err)
	}

	if _, err = part.Write(payload); err != nil {
		return fmt.Errorf("sendDocument: %w", err)
	}

	if err = writer.Close(); err != nil {
		return fmt.Errorf("sendDocument: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), &buf)
	if err != nil {
		return fmt.Errorf("sendDocument: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		observability.APIErrors.Inc()

		return fmt.Errorf("sendDocument: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("sendDocument: read response: %w", err)
	}

	_, err = c.decode("sendDocument", body)

	return err
}

// BotCommand is one entry of the command menu registered with the bot.
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// SetMyCommands registers the bot's command menu.
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("setMyCommands: %w", err)
	}

	payload, err := json.Marshal(map[string]any{"commands": commands})
	if err != nil {
		return fmt.Errorf("setMyCommands: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("setMyCommands"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("setMyCommands: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		observability.APIErrors.Inc()

		return fmt.Errorf("setMyCommands: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("setMyCommands: read response: %w", err)
	}

	_, err = c.decode("setMyCommands", body)

	return err
}
