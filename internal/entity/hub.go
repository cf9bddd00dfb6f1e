package entity

import (
	"context"
	"sync"
)

// Hub fans entity lifecycle events out to registered subscribers.
// Delivery is synchronous: an Emit call returns only after every subscriber
// ran, preserving the order in which events occurred.
type Hub struct {
	mu               sync.RWMutex
	update           []func(ctx context.Context, updateID int64)
	message          []func(ctx context.Context, chatID, messageID int64)
	fileDownloaded   []func(ctx context.Context, fileID string)
	stickerSetInfo   []func(ctx context.Context, name string)
	stickerSetFailed []func(ctx context.Context, name string)
}

func NewHub() *Hub {
	return &Hub{}
}

// OnUpdateParsed registers a subscriber for newly parsed updates.
func (h *Hub) OnUpdateParsed(fn func(ctx context.Context, updateID int64)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.update = append(h.update, fn)
}

// OnMessage registers a subscriber for newly parsed messages.
func (h *Hub) OnMessage(fn func(ctx context.Context, chatID, messageID int64)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.message = append(h.message, fn)
}

// OnFileDownloaded registers a subscriber for completed file downloads.
func (h *Hub) OnFileDownloaded(fn func(ctx context.Context, fileID string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fileDownloaded = append(h.fileDownloaded, fn)
}

// OnStickerSetInfo registers a subscriber for parsed sticker set metadata.
func (h *Hub) OnStickerSetInfo(fn func(ctx context.Context, name string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stickerSetInfo = append(h.stickerSetInfo, fn)
}

// OnStickerSetFailed registers a subscriber for rejected sticker set lookups.
func (h *Hub) OnStickerSetFailed(fn func(ctx context.Context, name string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stickerSetFailed = append(h.stickerSetFailed, fn)
}

func (h *Hub) EmitUpdateParsed(ctx context.Context, updateID int64) {
	h.mu.RLock()
	subs := h.update
	h.mu.RUnlock()

	for _, fn := range subs {
		fn(ctx, updateID)
	}
}

func (h *Hub) EmitMessage(ctx context.Context, chatID, messageID int64) {
	h.mu.RLock()
	subs := h.message
	h.mu.RUnlock()

	for _, fn := range subs {
		fn(ctx, chatID, messageID)
	}
}

func (h *Hub) EmitFileDownloaded(ctx context.Context, fileID string) {
	h.mu.RLock()
	subs := h.fileDownloaded
	h.mu.RUnlock()

	for _, fn := range subs {
		fn(ctx, fileID)
	}
}

func (h *Hub) EmitStickerSetInfo(ctx context.Context, name string) {
	h.mu.RLock()
	subs := h.stickerSetInfo
	h.mu.RUnlock()

	for _, fn := range subs {
		fn(ctx, name)
	}
}

func (h *Hub) EmitStickerSetFailed(ctx context.Context, name string) {
	h.mu.RLock()
	subs := h.stickerSetFailed
	h.mu.RUnlock()

	for _, fn := range subs {
		fn(ctx, name)
	}
}
