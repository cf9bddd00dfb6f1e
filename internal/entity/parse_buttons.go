package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kvantor/telegram-sticker-vault/internal/platform/observability"
)

var buttonFields = map[string]fieldFn{
	"text":          copyString("text"),
	"callback_data": copyString("callback_data"),
	"url":           copyString("url"),
}

// parseButtonList flattens an inline keyboard into a button list record.
// Button lists carry no wire id; ids are assigned from a counter that is
// restored to max+1 when the cache is hydrated.
func (n *Normalizer) parseButtonList(ctx context.Context, raw json.RawMessage) (string, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return "", err
	}

	var rows [][]json.RawMessage

	for key, fieldRaw := range obj {
		if key == "inline_keyboard" {
			if err = json.Unmarshal(fieldRaw, &rows); err != nil {
				return "", fmt.Errorf("inline_keyboard: %w", err)
			}

			continue
		}

		n.logger.Warn().Str("kind", string(KindButtonList)).Str("field", key).Msg("unknown field ignored")
		observability.UnknownFields.Inc()
	}

	id := strconv.FormatInt(n.cache.nextButtonList(), 10)
	rec := Record{
		"id":       id,
		"num_rows": strconv.Itoa(len(rows)),
	}

	for r, row := range rows {
		rec[fmt.Sprintf("row_%d_num_cols", r)] = strconv.Itoa(len(row))

		for c, buttonRaw := range row {
			buttonID, buttonErr := n.parseButton(ctx, buttonRaw)
			if buttonErr != nil {
				return "", buttonErr
			}

			rec[fmt.Sprintf("row_%d_col_%d_button_id", r, c)] = buttonID
		}
	}

	n.commit(ctx, KindButtonList, id, rec)

	return id, nil
}

func (n *Normalizer) parseButton(ctx context.Context, raw json.RawMessage) (string, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return "", err
	}

	id := strconv.FormatInt(n.cache.nextButton(), 10)
	rec := Record{"id": id}

	if err = n.applyFields(ctx, KindButton, buttonFields, rec, obj); err != nil {
		return "", err
	}

	n.commit(ctx, KindButton, id, rec)

	return id, nil
}
