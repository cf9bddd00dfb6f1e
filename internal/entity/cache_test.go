package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetReturnsCopy(t *testing.T) {
	c := NewCache()
	c.Put(KindMessage, "1", Record{"text": "a"})

	rec, ok := c.Get(KindMessage, "1")
	require.True(t, ok)

	rec["text"] = "mutated"

	again, _ := c.Get(KindMessage, "1")
	assert.Equal(t, "a", again["text"])
}

func TestCacheHydrateButtonCounters(t *testing.T) {
	c := NewCache()

	c.Hydrate(KindButton, map[string]Record{
		"3": {"id": "3", "text": "x"},
		"7": {"id": "7", "text": "y"},
	})
	c.Hydrate(KindButtonList, map[string]Record{
		"2": {"id": "2", "num_rows": "1"},
	})

	assert.Equal(t, int64(8), c.nextButton())
	assert.Equal(t, int64(3), c.nextButtonList())
}

func TestCacheHydrateActiveChats(t *testing.T) {
	c := NewCache()

	c.Hydrate(KindMessage, map[string]Record{
		"1": {"message_id": "1", "chat_id": "10"},
		"2": {"message_id": "2", "chat_id": "-5"},
		"3": {"message_id": "3"},
	})

	assert.Equal(t, []int64{-5, 10}, c.ActiveChats())
}

func TestCacheNextOffset(t *testing.T) {
	c := NewCache()

	_, ok := c.NextOffset()
	assert.False(t, ok)

	c.Hydrate(KindUpdate, map[string]Record{
		"100": {"update_id": "100"},
		"205": {"update_id": "205"},
		"180": {"update_id": "180"},
	})

	offset, ok := c.NextOffset()
	require.True(t, ok)
	assert.Equal(t, int64(206), offset)
}

func TestCacheStickerSets(t *testing.T) {
	c := NewCache()

	assert.False(t, c.HasStickerSet("cats"))

	c.PutStickerSet("cats", Record{"name": "cats", "title": "Cats"}, []string{"a", "b"})

	assert.True(t, c.HasStickerSet("cats"))
	assert.Equal(t, []string{"a", "b"}, c.StickerSetFiles("cats"))

	c.DropStickerSet("cats")

	assert.False(t, c.HasStickerSet("cats"))
	assert.Empty(t, c.StickerSetFiles("cats"))
}

func TestCacheHydrateStickerSets(t *testing.T) {
	c := NewCache()

	c.HydrateStickerSets(
		map[string]Record{"dogs": {"name": "dogs"}},
		map[string][]string{"dogs": {"f1", "f2", "f3"}},
	)

	assert.True(t, c.HasStickerSet("dogs"))
	assert.Equal(t, []string{"f1", "f2", "f3"}, c.StickerSetFiles("dogs"))
	assert.Equal(t, 1, c.Len(KindStickerSet))
}
