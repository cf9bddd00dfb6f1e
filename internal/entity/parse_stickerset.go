package entity

import (
	"context"
	"encoding/json"
	"fmt"

	errs "github.com/kvantor/telegram-sticker-vault/internal/core/errors"
	"github.com/kvantor/telegram-sticker-vault/internal/platform/observability"
)

var stickerSetFields = map[string]fieldFn{
	"name":           copyString("name"),
	"title":          copyString("title"),
	"sticker_type":   copyString("sticker_type"),
	"contains_masks": copyString("contains_masks"),
	"is_animated":    copyString("is_animated"),
	"is_video":       copyString("is_video"),
	"thumb":          nil,
	"thumbnail":      nil,
}

// ParseStickerSet normalizes a getStickerSet result. The set is keyed by its
// name; every member sticker is parsed as a file and the ordered member
// file-id list is cached alongside the set attributes. Subscribers are
// notified on every successful parse, cached or fresh.
func (n *Normalizer) ParseStickerSet(ctx context.Context, raw json.RawMessage) (string, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return "", err
	}

	nameRaw, ok := obj["name"]
	if !ok {
		return "", fmt.Errorf("sticker set: %w", errs.ErrMissingID)
	}

	name, err := scalarString(nameRaw)
	if err != nil {
		return "", fmt.Errorf("sticker set name: %w", err)
	}

	if n.cache.HasStickerSet(name) {
		n.hub.EmitStickerSetInfo(ctx, name)

		return name, nil
	}

	rec := Record{}

	var fileIDs []string

	for key, fieldRaw := range obj {
		if key == "stickers" {
			fileIDs, err = n.parseStickers(ctx, fieldRaw)
			if err != nil {
				return "", fmt.Errorf("sticker set %s: %w", name, err)
			}

			continue
		}

		fn, known := stickerSetFields[key]
		if !known {
			n.logger.Warn().Str("kind", string(KindStickerSet)).Str("field", key).Msg("unknown field ignored")
			observability.UnknownFields.Inc()

			continue
		}

		if fn == nil {
			continue
		}

		if err = fn(ctx, n, rec, fieldRaw); err != nil {
			return "", fmt.Errorf("sticker set %s: %w", name, err)
		}
	}

	n.cache.PutStickerSet(name, rec, fileIDs)
	observability.EntitiesParsed.WithLabelValues(string(KindStickerSet)).Inc()

	if err = n.store.SaveStickerSet(ctx, name, rec, fileIDs); err != nil {
		n.logger.Error().Err(err).Str("name", name).Msg("persist failed, cache stays authoritative")
	}

	n.hub.EmitStickerSetInfo(ctx, name)

	return name, nil
}

func (n *Normalizer) parseStickers(ctx context.Context, raw json.RawMessage) ([]string, error) {
	var stickers []json.RawMessage
	if err := json.Unmarshal(raw, &stickers); err != nil {
		return nil, fmt.Errorf("stickers: %w", err)
	}

	fileIDs := make([]string, 0, len(stickers))

	for _, stickerRaw := range stickers {
		fileID, err := n.ParseFile(ctx, stickerRaw)
		if err != nil {
			return nil, err
		}

		fileIDs = append(fileIDs, fileID)
	}

	return fileIDs, nil
}
