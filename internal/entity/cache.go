package entity

import (
	"sort"
	"sync"
)

// Cache is the authoritative in-memory view of all normalized records.
// Persistence is write-through and best-effort; on startup the cache is
// hydrated from the store and derived state (poll offset, active chats,
// button id counters) is recomputed.
type Cache struct {
	mu          sync.Mutex
	records     map[Kind]map[string]Record
	setFiles    map[string][]string
	activeChats map[int64]struct{}

	nextButtonID     int64
	nextButtonListID int64
}

func NewCache() *Cache {
	records := make(map[Kind]map[string]Record, len(Kinds)+1)
	for _, k := range Kinds {
		records[k] = make(map[string]Record)
	}

	records[KindStickerSet] = make(map[string]Record)

	return &Cache{
		records:          records,
		setFiles:         make(map[string][]string),
		activeChats:      make(map[int64]struct{}),
		nextButtonID:     1,
		nextButtonListID: 1,
	}
}

// Get returns a copy of the cached record, if present.
func (c *Cache) Get(kind Kind, id string) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[kind][id]
	if !ok {
		return nil, false
	}

	return rec.Clone(), true
}

// Put stores the record under (kind, id), replacing any previous value.
func (c *Cache) Put(kind Kind, id string, rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records[kind][id] = rec.Clone()
}

// PutStickerSet stores sticker set attributes together with the ordered
// member file-id list.
func (c *Cache) PutStickerSet(name string, rec Record, fileIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records[KindStickerSet][name] = rec.Clone()
	c.setFiles[name] = append([]string(nil), fileIDs...)
}

// HasStickerSet reports whether metadata for the set is cached.
func (c *Cache) HasStickerSet(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.records[KindStickerSet][name]

	return ok
}

// StickerSetFiles returns the ordered member file ids of a cached set.
func (c *Cache) StickerSetFiles(name string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.setFiles[name]...)
}

// DropStickerSet removes a cached set and its member list.
func (c *Cache) DropStickerSet(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.records[KindStickerSet], name)
	delete(c.setFiles, name)
}

// Len returns the number of cached records of the kind.
func (c *Cache) Len(kind Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.records[kind])
}

// Hydrate loads persisted records of one kind and recomputes derived state:
// button id counters continue past the highest persisted id, and the active
// chat set is rebuilt from message records.
func (c *Cache) Hydrate(kind Kind, recs map[string]Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, rec := range recs {
		c.records[kind][id] = rec.Clone()

		switch kind {
		case KindButton:
			if n := rec.Int64("id"); n >= c.nextButtonID {
				c.nextButtonID = n + 1
			}
		case KindButtonList:
			if n := rec.Int64("id"); n >= c.nextButtonListID {
				c.nextButtonListID = n + 1
			}
		case KindMessage:
			if chatID := rec.Int64("chat_id"); chatID != 0 {
				c.activeChats[chatID] = struct{}{}
			}
		}
	}
}

// HydrateStickerSets loads persisted sticker sets and their member lists.
func (c *Cache) HydrateStickerSets(recs map[string]Record, files map[string][]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, rec := range recs {
		c.records[KindStickerSet][name] = rec.Clone()
		c.setFiles[name] = append([]string(nil), files[name]...)
	}
}

// NextOffset returns 1 + the highest cached update id. The second return is
// false when no updates are cached and the poll request must omit the offset.
func (c *Cache) NextOffset() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var maxID int64

	found := false

	for _, rec := range c.records[KindUpdate] {
		if id := rec.Int64("update_id"); !found || id > maxID {
			maxID = id
			found = true
		}
	}

	if !found {
		return 0, false
	}

	return maxID + 1, true
}

// ActiveChats returns the sorted ids of every chat a message was seen in.
func (c *Cache) ActiveChats() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]int64, 0, len(c.activeChats))
	for id := range c.activeChats {
		out = append(out, id)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

func (c *Cache) addActiveChat(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.activeChats[id] = struct{}{}
}

func (c *Cache) nextButton() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextButtonID
	c.nextButtonID++

	return id
}

func (c *Cache) nextButtonList() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextButtonListID
	c.nextButtonListID++

	return id
}
