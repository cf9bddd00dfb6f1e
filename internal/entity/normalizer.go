package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	errs "github.com/kvantor/telegram-sticker-vault/internal/core/errors"
	"github.com/kvantor/telegram-sticker-vault/internal/platform/observability"
)

const timeLayout = "2006-01-02 15:04:05"

// Store persists normalized records write-through.
type Store interface {
	SaveRecord(ctx context.Context, kind Kind, id string, rec Record) error
	SaveStickerSet(ctx context.Context, name string, rec Record, fileIDs []string) error
}

// Normalizer flattens Bot API payload fragments into cached records.
// Parsing is idempotent for every kind except files, which merge.
type Normalizer struct {
	cache  *Cache
	store  Store
	hub    *Hub
	logger zerolog.Logger
}

func NewNormalizer(cache *Cache, store Store, hub *Hub, logger *zerolog.Logger) *Normalizer {
	return &Normalizer{
		cache:  cache,
		store:  store,
		hub:    hub,
		logger: logger.With().Str("component", "normalizer").Logger(),
	}
}

// fieldFn applies one payload field to the record being built.
// A nil table entry marks a field that is known but deliberately ignored.
type fieldFn func(ctx context.Context, n *Normalizer, rec Record, raw json.RawMessage) error

func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnexpectedPayload, err)
	}

	return obj, nil
}

// scalarString renders a JSON scalar as its canonical string form.
func scalarString(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUnexpectedPayload, err)
	}

	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: scalar expected", errs.ErrUnexpectedPayload)
	}
}

func copyString(attr string) fieldFn {
	return func(_ context.Context, _ *Normalizer, rec Record, raw json.RawMessage) error {
		v, err := scalarString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", attr, err)
		}

		rec[attr] = v

		return nil
	}
}

func copyUnixTime(attr string) fieldFn {
	return func(_ context.Context, _ *Normalizer, rec Record, raw json.RawMessage) error {
		var ts int64
		if err := json.Unmarshal(raw, &ts); err != nil {
			return fmt.Errorf("%s: %w", attr, err)
		}

		rec[attr] = time.Unix(ts, 0).UTC().Format(timeLayout)

		return nil
	}
}

func userRef(attr string) fieldFn {
	return func(ctx context.Context, n *Normalizer, rec Record, raw json.RawMessage) error {
		id, err := n.parseUser(ctx, raw)
		if err != nil {
			return fmt.Errorf("%s: %w", attr, err)
		}

		rec[attr] = id

		return nil
	}
}

func chatRef(attr string, markActive bool) fieldFn {
	return func(ctx context.Context, n *Normalizer, rec Record, raw json.RawMessage) error {
		id, err := n.parseChat(ctx, raw)
		if err != nil {
			return fmt.Errorf("%s: %w", attr, err)
		}

		rec[attr] = id

		if markActive {
			if chatID, convErr := strconv.ParseInt(id, 10, 64); convErr == nil {
				n.cache.addActiveChat(chatID)
			}
		}

		return nil
	}
}

func fileRef(attr string) fieldFn {
	return func(ctx context.Context, n *Normalizer, rec Record, raw json.RawMessage) error {
		id, err := n.ParseFile(ctx, raw)
		if err != nil {
			return fmt.Errorf("%s: %w", attr, err)
		}

		rec[attr] = id

		return nil
	}
}

func messageRef(attr string) fieldFn {
	return func(ctx context.Context, n *Normalizer, rec Record, raw json.RawMessage) error {
		msg, err := n.parseMessageLike(ctx, KindMessage, raw)
		if err != nil {
			return fmt.Errorf("%s: %w", attr, err)
		}

		rec[attr] = msg["message_id"]

		return nil
	}
}

// lastPhotoRef parses an array of photo sizes and references the last,
// largest entry.
func lastPhotoRef(attr string) fieldFn {
	return func(ctx context.Context, n *Normalizer, rec Record, raw json.RawMessage) error {
		var sizes []json.RawMessage
		if err := json.Unmarshal(raw, &sizes); err != nil {
			return fmt.Errorf("%s: %w", attr, err)
		}

		if len(sizes) == 0 {
			return nil
		}

		id, err := n.ParseFile(ctx, sizes[len(sizes)-1])
		if err != nil {
			return fmt.Errorf("%s: %w", attr, err)
		}

		rec[attr] = id

		return nil
	}
}

func buttonListRef(attr string) fieldFn {
	return func(ctx context.Context, n *Normalizer, rec Record, raw json.RawMessage) error {
		id, err := n.parseButtonList(ctx, raw)
		if err != nil {
			return fmt.Errorf("%s: %w", attr, err)
		}

		rec[attr] = id

		return nil
	}
}

// applyFields walks the payload object and applies the kind's field table.
// Unknown fields are logged and skipped; a conversion failure aborts the parse.
func (n *Normalizer) applyFields(ctx context.Context, kind Kind, fields map[string]fieldFn, rec Record, obj map[string]json.RawMessage) error {
	for key, raw := range obj {
		fn, known := fields[key]
		if !known {
			n.logger.Warn().Str("kind", string(kind)).Str("field", key).Msg("unknown field ignored")
			observability.UnknownFields.Inc()

			continue
		}

		if fn == nil {
			continue
		}

		if err := fn(ctx, n, rec, raw); err != nil {
			return fmt.Errorf("parse %s: %w", kind, err)
		}
	}

	return nil
}

// commit stores the record in the cache and persists it best-effort.
func (n *Normalizer) commit(ctx context.Context, kind Kind, id string, rec Record) {
	n.cache.Put(kind, id, rec)
	observability.EntitiesParsed.WithLabelValues(string(kind)).Inc()

	if err := n.store.SaveRecord(ctx, kind, id, rec); err != nil {
		n.logger.Error().Err(err).Str("kind", string(kind)).Str("id", id).Msg("persist failed, cache stays authoritative")
	}
}
