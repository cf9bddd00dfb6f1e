package entity

import (
	"context"
	"fmt"

	errs "github.com/kvantor/telegram-sticker-vault/internal/core/errors"
	"github.com/kvantor/telegram-sticker-vault/internal/platform/observability"
)

// ParseUpdate normalizes one element of a getUpdates result array.
// Re-parsing a known update id returns the cached record untouched.
func (n *Normalizer) ParseUpdate(ctx context.Context, raw []byte) (Record, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	idRaw, ok := obj["update_id"]
	if !ok {
		return nil, fmt.Errorf("update: %w", errs.ErrMissingID)
	}

	id, err := scalarString(idRaw)
	if err != nil {
		return nil, fmt.Errorf("update_id: %w", err)
	}

	if rec, cached := n.cache.Get(KindUpdate, id); cached {
		return rec, nil
	}

	rec := Record{"update_id": id}

	for key, fieldRaw := range obj {
		switch key {
		case "update_id":
			// Handled above.
		case "message", "edited_message":
			msg, msgErr := n.parseMessageLike(ctx, KindMessage, fieldRaw)
			if msgErr != nil {
				return nil, fmt.Errorf("update %s: %w", id, msgErr)
			}

			rec["type"] = "message"
			rec["message_id"] = msg["message_id"]
			rec["chat_id"] = msg["chat_id"]
		case "channel_post", "edited_channel_post":
			post, postErr := n.parseMessageLike(ctx, KindChannelPost, fieldRaw)
			if postErr != nil {
				return nil, fmt.Errorf("update %s: %w", id, postErr)
			}

			rec["type"] = "channel post"
			rec["channel_post_id"] = post["message_id"]
			rec["chat_id"] = post["chat_id"]
		case "my_chat_member":
			memberID, memberErr := n.parseChatMember(ctx, fieldRaw)
			if memberErr != nil {
				return nil, fmt.Errorf("update %s: %w", id, memberErr)
			}

			rec["type"] = "my_chat_member"
			rec["my_chat_member_id"] = memberID
		default:
			n.logger.Warn().Str("kind", string(KindUpdate)).Str("field", key).Msg("unknown field ignored")
			observability.UnknownFields.Inc()
		}
	}

	n.commit(ctx, KindUpdate, id, rec)
	n.hub.EmitUpdateParsed(ctx, rec.Int64("update_id"))

	return rec, nil
}
