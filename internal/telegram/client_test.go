package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/kvantor/telegram-sticker-vault/internal/core/errors"
)

const testToken = "12345:test"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := zerolog.Nop()

	return New(server.URL, testToken, 5*time.Second, 100, &logger)
}

func TestGetUpdates(t *testing.T) {
	var gotPath, gotQuery string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery

		_, _ = w.Write([]byte(`{"ok": true, "result": [{"update_id": 1}, {"update_id": 2}]}`))
	})

	updates, err := c.GetUpdates(context.Background(), 10, true)
	require.NoError(t, err)

	assert.Equal(t, "/bot"+testToken+"/getUpdates", gotPath)
	assert.Equal(t, "offset=10", gotQuery)
	assert.Len(t, updates, 2)
}

func TestGetUpdatesOmitsOffsetUntilKnown(t *testing.T) {
	var gotQuery string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery

		_, _ = w.Write([]byte(`{"ok": true, "result": []}`))
	})

	_, err := c.GetUpdates(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Empty(t, gotQuery)
}

func TestGetStickerSetInvalid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "error_code": 400, "description": "Bad Request: STICKERSET_INVALID"}`))
	})

	_, err := c.GetStickerSet(context.Background(), "nope")
	assert.True(t, errors.Is(err, errs.ErrStickerSetInvalid))
}

func TestAPIErrorWrapped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "error_code": 403, "description": "Forbidden"}`))
	})

	_, err := c.GetFile(context.Background(), "f1")
	assert.True(t, errors.Is(err, errs.ErrAPIRequestFailed))
	assert.Contains(t, err.Error(), "Forbidden")
}

func TestDownloadFile(t *testing.T) {
	var gotPath string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		_, _ = w.Write([]byte("payload-bytes"))
	})

	payload, err := c.DownloadFile(context.Background(), "stickers/file_0.webp")
	require.NoError(t, err)

	assert.Equal(t, "/file/bot"+testToken+"/stickers/file_0.webp", gotPath)
	assert.Equal(t, []byte("payload-bytes"), payload)
}

func TestDownloadFileBadStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.DownloadFile(context.Background(), "gone")
	assert.True(t, errors.Is(err, errs.ErrAPIRequestFailed))
}

func TestSendMessageQuery(t *testing.T) {
	var gotQuery string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery

		_, _ = w.Write([]byte(`{"ok": true, "result": {}}`))
	})

	err := c.SendMessage(context.Background(), 42, "hello world\n100%")
	require.NoError(t, err)

	assert.Equal(t, "chat_id=42&parse_mode=html&text=hello%20world%0A100%25", gotQuery)
}

func TestSendReplyQuery(t *testing.T) {
	var gotQuery string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery

		_, _ = w.Write([]byte(`{"ok": true, "result": {}}`))
	})

	err := c.SendReply(context.Background(), 42, 7, "ok")
	require.NoError(t, err)

	assert.Equal(t, "chat_id=42&reply_to_message_id=7&parse_mode=html&text=ok", gotQuery)
}

func TestSendDocumentMultipart(t *testing.T) {
	var (
		gotChatID   string
		gotFilename string
		gotPayload  []byte
	)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		gotChatID = r.FormValue("chat_id")

		file, header, err := r.FormFile("document")
		require.NoError(t, err)

		defer func() {
			_ = file.Close()
		}()

		gotFilename = header.Filename
		gotPayload, err = io.ReadAll(file)
		require.NoError(t, err)

		_, _ = w.Write([]byte(`{"ok": true, "result": {}}`))
	})

	err := c.SendDocument(context.Background(), 42, "cats.zip", []byte("zip-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "42", gotChatID)
	assert.Equal(t, "cats.zip", gotFilename)
	assert.Equal(t, []byte("zip-bytes"), gotPayload)
}

func TestSetMyCommands(t *testing.T) {
	var gotBody []byte

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		gotBody, _ = io.ReadAll(r.Body)

		_, _ = w.Write([]byte(`{"ok": true, "result": true}`))
	})

	err := c.SetMyCommands(context.Background(), []BotCommand{
		{Command: "sticker_set", Description: "Download a sticker set"},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"commands": [{"command": "sticker_set", "description": "Download a sticker set"}]}`, string(gotBody))
}
