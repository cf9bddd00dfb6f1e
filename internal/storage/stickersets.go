package db

import (
	"context"
	"fmt"

	"github.com/kvantor/telegram-sticker-vault/internal/entity"
)

// Sticker sets live in one table of (id, sequence, key, value) rows.
// Sequence 0 rows hold the set attributes; sequences 1..N hold the ordered
// member list under the sticker_file_id key.
const stickerSetTable = "sticker_set_info"

// SaveStickerSet replaces the persisted attributes and member list of a set.
func (db *DB) SaveStickerSet(ctx context.Context, name string, rec entity.Record, fileIDs []string) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err = tx.Exec(ctx, "DELETE FROM sticker_set_info WHERE id = $1", name); err != nil {
		return fmt.Errorf("delete %s rows: %w", stickerSetTable, err)
	}

	for key, value := range rec {
		if _, err = tx.Exec(ctx,
			"INSERT INTO sticker_set_info (id, sequence, key, value) VALUES ($1, 0, $2, $3)",
			name, key, value,
		); err != nil {
			return fmt.Errorf("insert %s attribute: %w", stickerSetTable, err)
		}
	}

	for i, fileID := range fileIDs {
		if _, err = tx.Exec(ctx,
			"INSERT INTO sticker_set_info (id, sequence, key, value) VALUES ($1, $2, 'sticker_file_id', $3)",
			name, i+1, fileID,
		); err != nil {
			return fmt.Errorf("insert %s member: %w", stickerSetTable, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// LoadStickerSets reads every persisted set with its ordered member list.
func (db *DB) LoadStickerSets(ctx context.Context) (map[string]entity.Record, map[string][]string, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT id, sequence, key, value FROM sticker_set_info ORDER BY id, sequence")
	if err != nil {
		return nil, nil, fmt.Errorf("query %s: %w", stickerSetTable, err)
	}
	defer rows.Close()

	recs := make(map[string]entity.Record)
	files := make(map[string][]string)

	for rows.Next() {
		var (
			id, key, value string
			sequence       int
		)

		if err = rows.Scan(&id, &sequence, &key, &value); err != nil {
			return nil, nil, fmt.Errorf("scan %s row: %w", stickerSetTable, err)
		}

		if sequence > 0 {
			files[id] = append(files[id], value)

			continue
		}

		rec, ok := recs[id]
		if !ok {
			rec = entity.Record{}
			recs[id] = rec
		}

		rec[key] = value
	}

	if err = rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate %s rows: %w", stickerSetTable, err)
	}

	return recs, files, nil
}

// DeleteStickerSet removes a set's attributes and member list.
func (db *DB) DeleteStickerSet(ctx context.Context, name string) error {
	if _, err := db.Pool.Exec(ctx, "DELETE FROM sticker_set_info WHERE id = $1", name); err != nil {
		return fmt.Errorf("delete %s rows: %w", stickerSetTable, err)
	}

	return nil
}
