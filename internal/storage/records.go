package db

import (
	"context"
	"fmt"

	"github.com/kvantor/telegram-sticker-vault/internal/entity"
)

// kindTables maps record kinds to their attribute-triple tables.
var kindTables = map[entity.Kind]string{
	entity.KindUpdate:      "update_info",
	entity.KindMessage:     "message_info",
	entity.KindChannelPost: "channel_post_info",
	entity.KindUser:        "user_info",
	entity.KindChat:        "chat_info",
	entity.KindChatMember:  "chat_member_info",
	entity.KindFile:        "file_info",
	entity.KindButton:      "button_info",
	entity.KindButtonList:  "button_list_info",
}

func tableFor(kind entity.Kind) (string, error) {
	table, ok := kindTables[kind]
	if !ok {
		return "", fmt.Errorf("no table for kind %q", kind)
	}

	return table, nil
}

// SaveRecord replaces the full attribute row set of (kind, id) in one
// transaction.
func (db *DB) SaveRecord(ctx context.Context, kind entity.Kind, id string, rec entity.Record) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err = tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id); err != nil {
		return fmt.Errorf("delete %s rows: %w", table, err)
	}

	for key, value := range rec {
		if _, err = tx.Exec(ctx,
			fmt.Sprintf("INSERT INTO %s (id, key, value) VALUES ($1, $2, $3)", table),
			id, key, value,
		); err != nil {
			return fmt.Errorf("insert %s row: %w", table, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// LoadRecords reads every persisted record of the kind for cache hydration.
func (db *DB) LoadRecords(ctx context.Context, kind entity.Kind) (map[string]entity.Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	rows, err := db.Pool.Query(ctx, fmt.Sprintf("SELECT id, key, value FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]entity.Record)

	for rows.Next() {
		var id, key, value string
		if err = rows.Scan(&id, &key, &value); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}

		rec, ok := out[id]
		if !ok {
			rec = entity.Record{}
			out[id] = rec
		}

		rec[key] = value
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", table, err)
	}

	return out, nil
}

// DeleteRecord removes every attribute row of (kind, id).
func (db *DB) DeleteRecord(ctx context.Context, kind entity.Kind, id string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	if _, err = db.Pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id); err != nil {
		return fmt.Errorf("delete %s rows: %w", table, err)
	}

	return nil
}
