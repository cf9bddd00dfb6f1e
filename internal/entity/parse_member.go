package entity

import (
	"context"
	"encoding/json"
	"fmt"

	errs "github.com/kvantor/telegram-sticker-vault/internal/core/errors"
	"github.com/kvantor/telegram-sticker-vault/internal/platform/observability"
)

// parseChatMember normalizes a my_chat_member transition. The record id is
// the transition timestamp; old and new member states are flattened into the
// record with "old_chat_member_" and "new_chat_member_" key prefixes.
func (n *Normalizer) parseChatMember(ctx context.Context, raw json.RawMessage) (string, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return "", err
	}

	dateRaw, ok := obj["date"]
	if !ok {
		return "", fmt.Errorf("chat member: %w", errs.ErrMissingID)
	}

	id, err := scalarString(dateRaw)
	if err != nil {
		return "", fmt.Errorf("chat member date: %w", err)
	}

	if _, cached := n.cache.Get(KindChatMember, id); cached {
		return id, nil
	}

	rec := Record{}

	for key, fieldRaw := range obj {
		switch key {
		case "chat":
			if err = chatRef("chat_id", false)(ctx, n, rec, fieldRaw); err != nil {
				return "", err
			}
		case "from":
			if err = userRef("from_id")(ctx, n, rec, fieldRaw); err != nil {
				return "", err
			}
		case "date":
			if err = copyUnixTime("date_time")(ctx, n, rec, fieldRaw); err != nil {
				return "", err
			}
		case "old_chat_member", "new_chat_member":
			if err = n.flattenMemberState(ctx, rec, key+"_", fieldRaw); err != nil {
				return "", err
			}
		default:
			n.logger.Warn().Str("kind", string(KindChatMember)).Str("field", key).Msg("unknown field ignored")
			observability.UnknownFields.Inc()
		}
	}

	n.commit(ctx, KindChatMember, id, rec)

	return id, nil
}

// flattenMemberState copies a ChatMember sub-object into the parent record.
// The member status set is open-ended (status, permission flags, until_date,
// custom titles), so every scalar is copied under the prefix.
func (n *Normalizer) flattenMemberState(ctx context.Context, rec Record, prefix string, raw json.RawMessage) error {
	obj, err := decodeObject(raw)
	if err != nil {
		return err
	}

	for key, fieldRaw := range obj {
		if key == "user" {
			userID, userErr := n.parseUser(ctx, fieldRaw)
			if userErr != nil {
				return fmt.Errorf("%suser: %w", prefix, userErr)
			}

			rec[prefix+"user_id"] = userID

			continue
		}

		v, scalarErr := scalarString(fieldRaw)
		if scalarErr != nil {
			return fmt.Errorf("%s%s: %w", prefix, key, scalarErr)
		}

		rec[prefix+key] = v
	}

	return nil
}
