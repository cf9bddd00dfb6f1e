package entity

import (
	"context"
	"encoding/json"
	"fmt"

	errs "github.com/kvantor/telegram-sticker-vault/internal/core/errors"
)

// messageFields maps wire fields of messages and channel posts.
// Nil entries are known fields that carry no useful state for this service.
var messageFields map[string]fieldFn

func init() {
	messageFields = map[string]fieldFn{
		"animation":               fileRef("animation_file_id"),
		"caption":                 copyString("caption"),
		"chat":                    chatRef("chat_id", true),
		"date":                    copyUnixTime("date_time"),
		"document":                fileRef("document_id"),
		"edit_date":               copyUnixTime("edit_date_time"),
		"from":                    userRef("from_id"),
		"forward_date":            copyUnixTime("forward_date_time"),
		"forward_from":            userRef("forward_from_id"),
		"forward_from_chat":       chatRef("forward_from_chat_id", false),
		"forward_from_message_id": copyString("forward_from_message_id"),
		"forward_sender_name":     copyString("forward_sender_name"),
		// Misspelled on the wire; kept verbatim for compatibility.
		"forward_singature":    copyString("forward_singature"),
		"message_id":           copyString("message_id"),
		"message_thread_id":    copyString("message_thread_id"),
		"new_chat_member":      userRef("new_chat_member_id"),
		"new_chat_photo":       lastPhotoRef("new_chat_photo_id"),
		"new_chat_title":       copyString("new_chat_title"),
		"photo":                lastPhotoRef("photo_file_id"),
		"reply_markup":         buttonListRef("button_list_id"),
		"reply_to_message":     messageRef("reply_to_message_id"),
		"sender_chat":          chatRef("sender_chat_id", false),
		"sticker":              fileRef("sticker_id"),
		"text":                 copyString("text"),
		"entities":             nil,
		"caption_entities":     nil,
		"forward_origin":       nil,
		"link_preview_options": nil,
	}
}

// ParseMessage normalizes a message object and returns its record.
func (n *Normalizer) ParseMessage(ctx context.Context, raw []byte) (Record, error) {
	return n.parseMessageLike(ctx, KindMessage, raw)
}

// parseMessageLike handles messages and channel posts, which share the same
// wire shape but are cached and persisted under different kinds.
func (n *Normalizer) parseMessageLike(ctx context.Context, kind Kind, raw json.RawMessage) (Record, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	idRaw, ok := obj["message_id"]
	if !ok {
		return nil, fmt.Errorf("%s: %w", kind, errs.ErrMissingID)
	}

	id, err := scalarString(idRaw)
	if err != nil {
		return nil, fmt.Errorf("message_id: %w", err)
	}

	if rec, cached := n.cache.Get(kind, id); cached {
		return rec, nil
	}

	rec := Record{}
	if err = n.applyFields(ctx, kind, messageFields, rec, obj); err != nil {
		return nil, err
	}

	n.commit(ctx, kind, id, rec)

	if kind == KindMessage {
		n.hub.EmitMessage(ctx, rec.Int64("chat_id"), rec.Int64("message_id"))
	}

	return rec, nil
}
