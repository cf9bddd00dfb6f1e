package entity

import (
	"context"
	"encoding/json"
	"fmt"

	errs "github.com/kvantor/telegram-sticker-vault/internal/core/errors"
	"github.com/kvantor/telegram-sticker-vault/internal/platform/observability"
)

// fileFields covers every file flavor the Bot API hands out: documents,
// photo sizes, stickers, animations and getFile results.
var fileFields map[string]fieldFn

func init() {
	fileFields = map[string]fieldFn{
		"file_id":           copyString("file_id"),
		"file_unique_id":    copyString("file_unique_id"),
		"file_name":         copyString("file_name"),
		"file_path":         copyString("file_path"),
		"file_size":         copyString("file_size"),
		"width":             copyString("width"),
		"height":            copyString("height"),
		"duration":          copyString("duration"),
		"emoji":             copyString("emoji"),
		"set_name":          copyString("set_name"),
		"is_animated":       copyString("is_animated"),
		"is_video":          copyString("is_video"),
		"mime_type":         copyString("mime_type"),
		"type":              copyString("type"),
		"premium_animation": fileRef("premium_animation_file_id"),
		"thumb":             nil,
		"thumbnail":         nil,
	}
}

// ParseFile normalizes a file object. Unlike the other kinds, re-parsing a
// known file merges: attributes missing from the cached record are added,
// and a conflicting value is logged while the original value wins.
func (n *Normalizer) ParseFile(ctx context.Context, raw json.RawMessage) (string, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return "", err
	}

	idRaw, ok := obj["file_id"]
	if !ok {
		return "", fmt.Errorf("file: %w", errs.ErrMissingID)
	}

	id, err := scalarString(idRaw)
	if err != nil {
		return "", fmt.Errorf("file_id: %w", err)
	}

	fresh := Record{}
	if err = n.applyFields(ctx, KindFile, fileFields, fresh, obj); err != nil {
		return "", err
	}

	existing, cached := n.cache.Get(KindFile, id)
	if !cached {
		n.commit(ctx, KindFile, id, fresh)

		return id, nil
	}

	changed := false

	for key, value := range fresh {
		old, present := existing[key]
		if !present {
			existing[key] = value
			changed = true

			continue
		}

		if old != value {
			n.logger.Warn().
				Str("file_id", id).
				Str("attribute", key).
				Str("kept", old).
				Str("dropped", value).
				Msg("conflicting file attribute")
			observability.FileMergeConflicts.Inc()
		}
	}

	if changed {
		n.commit(ctx, KindFile, id, existing)
	}

	return id, nil
}

// StripFileAttribute removes a transient attribute from a cached file record
// and re-persists it. Used to drop file_path once the payload is on disk.
func (n *Normalizer) StripFileAttribute(ctx context.Context, fileID, attr string) {
	rec, ok := n.cache.Get(KindFile, fileID)
	if !ok || !rec.Has(attr) {
		return
	}

	delete(rec, attr)
	n.commit(ctx, KindFile, fileID, rec)
}
