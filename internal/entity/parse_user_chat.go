package entity

import (
	"context"
	"encoding/json"
	"fmt"

	errs "github.com/kvantor/telegram-sticker-vault/internal/core/errors"
)

var userFields = map[string]fieldFn{
	"id":                          copyString("id"),
	"first_name":                  copyString("first_name"),
	"last_name":                   copyString("last_name"),
	"username":                    copyString("username"),
	"is_bot":                      copyString("is_bot"),
	"is_premium":                  copyString("is_premium"),
	"language_code":               copyString("language_code"),
	"added_to_attachment_menu":    nil,
	"can_join_groups":             nil,
	"can_read_all_group_messages": nil,
	"supports_inline_queries":     nil,
}

var chatFields = map[string]fieldFn{
	"id":                             copyString("id"),
	"type":                           copyString("type"),
	"title":                          copyString("title"),
	"first_name":                     copyString("first_name"),
	"last_name":                      copyString("last_name"),
	"username":                       copyString("username"),
	"all_members_are_administrators": copyString("all_members_are_administrators"),
	"is_forum":                       nil,
}

func (n *Normalizer) parseUser(ctx context.Context, raw json.RawMessage) (string, error) {
	return n.parseIdentified(ctx, KindUser, userFields, raw)
}

func (n *Normalizer) parseChat(ctx context.Context, raw json.RawMessage) (string, error) {
	return n.parseIdentified(ctx, KindChat, chatFields, raw)
}

// parseIdentified handles objects keyed by a plain "id" field.
func (n *Normalizer) parseIdentified(ctx context.Context, kind Kind, fields map[string]fieldFn, raw json.RawMessage) (string, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return "", err
	}

	idRaw, ok := obj["id"]
	if !ok {
		return "", fmt.Errorf("%s: %w", kind, errs.ErrMissingID)
	}

	id, err := scalarString(idRaw)
	if err != nil {
		return "", fmt.Errorf("%s id: %w", kind, err)
	}

	if _, cached := n.cache.Get(kind, id); cached {
		return id, nil
	}

	rec := Record{}
	if err = n.applyFields(ctx, kind, fields, rec, obj); err != nil {
		return "", err
	}

	n.commit(ctx, kind, id, rec)

	return id, nil
}
