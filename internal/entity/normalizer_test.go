package entity

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore records saves so tests can assert on write-through behavior.
type memStore struct {
	records map[Kind]map[string]Record
	sets    map[string][]string
	saves   int
}

func newMemStore() *memStore {
	return &memStore{
		records: make(map[Kind]map[string]Record),
		sets:    make(map[string][]string),
	}
}

func (m *memStore) SaveRecord(_ context.Context, kind Kind, id string, rec Record) error {
	if m.records[kind] == nil {
		m.records[kind] = make(map[string]Record)
	}

	m.records[kind][id] = rec.Clone()
	m.saves++

	return nil
}

func (m *memStore) SaveStickerSet(_ context.Context, name string, rec Record, fileIDs []string) error {
	if m.records[KindStickerSet] == nil {
		m.records[KindStickerSet] = make(map[string]Record)
	}

	m.records[KindStickerSet][name] = rec.Clone()
	m.sets[name] = append([]string(nil), fileIDs...)
	m.saves++

	return nil
}

func newTestNormalizer() (*Normalizer, *Cache, *memStore, *Hub) {
	cache := NewCache()
	store := newMemStore()
	hub := NewHub()
	logger := zerolog.Nop()

	return NewNormalizer(cache, store, hub, &logger), cache, store, hub
}

func TestParseMessageBasicFields(t *testing.T) {
	n, cache, _, _ := newTestNormalizer()

	raw := []byte(`{
		"message_id": 42,
		"date": 1700000000,
		"text": "hello",
		"from": {"id": 7, "first_name": "Ann", "is_bot": false},
		"chat": {"id": -100, "type": "group", "title": "Lounge"}
	}`)

	rec, err := n.ParseMessage(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "42", rec["message_id"])
	assert.Equal(t, "hello", rec["text"])
	assert.Equal(t, "7", rec["from_id"])
	assert.Equal(t, "-100", rec["chat_id"])
	assert.Equal(t, "2023-11-14 22:13:20", rec["date_time"])

	user, ok := cache.Get(KindUser, "7")
	require.True(t, ok)
	assert.Equal(t, "Ann", user["first_name"])
	assert.Equal(t, "false", user["is_bot"])

	chat, ok := cache.Get(KindChat, "-100")
	require.True(t, ok)
	assert.Equal(t, "Lounge", chat["title"])

	assert.Equal(t, []int64{-100}, cache.ActiveChats())
}

func TestParseMessageIdempotent(t *testing.T) {
	n, _, _, _ := newTestNormalizer()

	first, err := n.ParseMessage(context.Background(), []byte(`{"message_id": 1, "text": "original"}`))
	require.NoError(t, err)

	second, err := n.ParseMessage(context.Background(), []byte(`{"message_id": 1, "text": "rewritten"}`))
	require.NoError(t, err)

	assert.Equal(t, first["text"], second["text"])
	assert.Equal(t, "original", second["text"])
}

func TestParseMessagePhotoTakesLastSize(t *testing.T) {
	n, _, _, _ := newTestNormalizer()

	raw := []byte(`{
		"message_id": 5,
		"photo": [
			{"file_id": "small", "width": 90},
			{"file_id": "large", "width": 800}
		]
	}`)

	rec, err := n.ParseMessage(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "large", rec["photo_file_id"])
}

func TestParseMessageUnknownFieldIgnored(t *testing.T) {
	n, _, _, _ := newTestNormalizer()

	rec, err := n.ParseMessage(context.Background(), []byte(`{"message_id": 9, "totally_new_field": {"x": 1}, "text": "ok"}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", rec["text"])
	assert.False(t, rec.Has("totally_new_field"))
}

func TestParseMessageMissingIDFails(t *testing.T) {
	n, _, _, _ := newTestNormalizer()

	_, err := n.ParseMessage(context.Background(), []byte(`{"text": "no id"}`))
	require.Error(t, err)
}

func TestParseFileMerge(t *testing.T) {
	n, cache, store, _ := newTestNormalizer()
	ctx := context.Background()

	id, err := n.ParseFile(ctx, []byte(`{"file_id": "f1", "file_size": 100, "emoji": "x"}`))
	require.NoError(t, err)
	require.Equal(t, "f1", id)

	// New attribute is added, the conflicting size keeps its original value.
	_, err = n.ParseFile(ctx, []byte(`{"file_id": "f1", "file_size": 999, "file_path": "stickers/a.webp"}`))
	require.NoError(t, err)

	rec, ok := cache.Get(KindFile, "f1")
	require.True(t, ok)
	assert.Equal(t, "100", rec["file_size"])
	assert.Equal(t, "stickers/a.webp", rec["file_path"])
	assert.Equal(t, "x", rec["emoji"])

	// The merged record was re-persisted.
	assert.Equal(t, "stickers/a.webp", store.records[KindFile]["f1"]["file_path"])
}

func TestParseFileMergeNoChangeNoSave(t *testing.T) {
	n, _, store, _ := newTestNormalizer()
	ctx := context.Background()

	_, err := n.ParseFile(ctx, []byte(`{"file_id": "f2", "file_size": 5}`))
	require.NoError(t, err)

	saves := store.saves

	_, err = n.ParseFile(ctx, []byte(`{"file_id": "f2", "file_size": 5}`))
	require.NoError(t, err)
	assert.Equal(t, saves, store.saves)
}

func TestStripFileAttribute(t *testing.T) {
	n, cache, _, _ := newTestNormalizer()
	ctx := context.Background()

	_, err := n.ParseFile(ctx, []byte(`{"file_id": "f3", "file_path": "p", "file_size": 1}`))
	require.NoError(t, err)

	n.StripFileAttribute(ctx, "f3", "file_path")

	rec, ok := cache.Get(KindFile, "f3")
	require.True(t, ok)
	assert.False(t, rec.Has("file_path"))
	assert.Equal(t, "1", rec["file_size"])
}

func TestParseUpdateMessage(t *testing.T) {
	n, cache, _, _ := newTestNormalizer()

	raw := []byte(`{
		"update_id": 1000,
		"message": {"message_id": 3, "text": "hi", "chat": {"id": 12, "type": "private"}}
	}`)

	rec, err := n.ParseUpdate(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "1000", rec["update_id"])
	assert.Equal(t, "message", rec["type"])
	assert.Equal(t, "3", rec["message_id"])
	assert.Equal(t, "12", rec["chat_id"])

	_, ok := cache.Get(KindMessage, "3")
	assert.True(t, ok)
}

func TestParseUpdateChannelPost(t *testing.T) {
	n, cache, _, _ := newTestNormalizer()

	raw := []byte(`{
		"update_id": 1001,
		"channel_post": {"message_id": 8, "text": "news", "sender_chat": {"id": 77, "type": "channel"}}
	}`)

	rec, err := n.ParseUpdate(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "channel post", rec["type"])
	assert.Equal(t, "8", rec["channel_post_id"])

	_, ok := cache.Get(KindChannelPost, "8")
	assert.True(t, ok)

	// Channel posts never land in the message cache.
	_, ok = cache.Get(KindMessage, "8")
	assert.False(t, ok)
}

func TestParseUpdateMyChatMember(t *testing.T) {
	n, cache, _, _ := newTestNormalizer()

	raw := []byte(`{
		"update_id": 1002,
		"my_chat_member": {
			"date": 1700000100,
			"chat": {"id": 5, "type": "group"},
			"from": {"id": 6, "first_name": "Bo"},
			"old_chat_member": {"user": {"id": 9}, "status": "member"},
			"new_chat_member": {"user": {"id": 9}, "status": "administrator", "can_manage_chat": true}
		}
	}`)

	rec, err := n.ParseUpdate(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "my_chat_member", rec["type"])
	assert.Equal(t, "1700000100", rec["my_chat_member_id"])

	member, ok := cache.Get(KindChatMember, "1700000100")
	require.True(t, ok)
	assert.Equal(t, "member", member["old_chat_member_status"])
	assert.Equal(t, "administrator", member["new_chat_member_status"])
	assert.Equal(t, "true", member["new_chat_member_can_manage_chat"])
	assert.Equal(t, "9", member["new_chat_member_user_id"])
	assert.Equal(t, "5", member["chat_id"])
}

func TestParseUpdateIdempotent(t *testing.T) {
	n, _, store, _ := newTestNormalizer()

	raw := []byte(`{"update_id": 50, "message": {"message_id": 1, "text": "a"}}`)

	_, err := n.ParseUpdate(context.Background(), raw)
	require.NoError(t, err)

	saves := store.saves

	_, err = n.ParseUpdate(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, saves, store.saves)
}

func TestParseUpdateMissingID(t *testing.T) {
	n, _, _, _ := newTestNormalizer()

	_, err := n.ParseUpdate(context.Background(), []byte(`{"message": {"message_id": 2}}`))
	require.Error(t, err)
}

func TestParseStickerSet(t *testing.T) {
	n, cache, store, hub := newTestNormalizer()

	var notified []string

	hub.OnStickerSetInfo(func(_ context.Context, name string) {
		notified = append(notified, name)
	})

	raw := []byte(`{
		"name": "cats",
		"title": "Cats",
		"sticker_type": "regular",
		"is_animated": false,
		"stickers": [
			{"file_id": "s1", "emoji": "a", "is_animated": false},
			{"file_id": "s2", "emoji": "b", "is_animated": false}
		]
	}`)

	name, err := n.ParseStickerSet(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, "cats", name)

	assert.Equal(t, []string{"s1", "s2"}, cache.StickerSetFiles("cats"))
	assert.Equal(t, []string{"s1", "s2"}, store.sets["cats"])

	rec, ok := cache.Get(KindStickerSet, "cats")
	require.True(t, ok)
	assert.Equal(t, "Cats", rec["title"])

	_, ok = cache.Get(KindFile, "s1")
	assert.True(t, ok)

	// A cached re-parse still raises the signal.
	_, err = n.ParseStickerSet(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"cats", "cats"}, notified)
}

func TestParseButtonListFlattensGrid(t *testing.T) {
	n, cache, _, _ := newTestNormalizer()

	raw := []byte(`{
		"message_id": 60,
		"reply_markup": {
			"inline_keyboard": [
				[{"text": "A", "callback_data": "a"}, {"text": "B", "callback_data": "b"}],
				[{"text": "C", "callback_data": "c"}]
			]
		}
	}`)

	rec, err := n.ParseMessage(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, "1", rec["button_list_id"])

	list, ok := cache.Get(KindButtonList, "1")
	require.True(t, ok)
	assert.Equal(t, "2", list["num_rows"])
	assert.Equal(t, "2", list["row_0_num_cols"])
	assert.Equal(t, "1", list["row_1_num_cols"])

	firstButton, ok := cache.Get(KindButton, list["row_0_col_0_button_id"])
	require.True(t, ok)
	assert.Equal(t, "A", firstButton["text"])
	assert.Equal(t, "a", firstButton["callback_data"])
}

func TestUpdateEmitsHubEvent(t *testing.T) {
	n, _, _, hub := newTestNormalizer()

	var got []int64

	hub.OnUpdateParsed(func(_ context.Context, updateID int64) {
		got = append(got, updateID)
	})

	_, err := n.ParseUpdate(context.Background(), []byte(`{"update_id": 99, "message": {"message_id": 1}}`))
	require.NoError(t, err)

	// Cached re-parse stays silent.
	_, err = n.ParseUpdate(context.Background(), []byte(`{"update_id": 99, "message": {"message_id": 1}}`))
	require.NoError(t, err)

	assert.Equal(t, []int64{99}, got)
}

func TestMessageEmitsHubEvent(t *testing.T) {
	n, _, _, hub := newTestNormalizer()

	var gotChat, gotMessage int64

	hub.OnMessage(func(_ context.Context, chatID, messageID int64) {
		gotChat, gotMessage = chatID, messageID
	})

	_, err := n.ParseMessage(context.Background(), []byte(`{"message_id": 70, "chat": {"id": 4, "type": "private"}}`))
	require.NoError(t, err)

	assert.Equal(t, int64(4), gotChat)
	assert.Equal(t, int64(70), gotMessage)
}
