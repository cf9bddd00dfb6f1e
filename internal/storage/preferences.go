package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SetPreference upserts one per-user preference.
func (db *DB) SetPreference(ctx context.Context, userID int64, key, value string) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO preferences (user_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value`,
		userID, key, value,
	); err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}

	return nil
}

// GetPreference returns the stored value, or "" when the preference is unset.
func (db *DB) GetPreference(ctx context.Context, userID int64, key string) (string, error) {
	var value string

	err := db.Pool.QueryRow(ctx,
		"SELECT value FROM preferences WHERE user_id = $1 AND key = $2",
		userID, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("query preference: %w", err)
	}

	return value, nil
}

// LoadPreferences returns every preference of one user.
func (db *DB) LoadPreferences(ctx context.Context, userID int64) (map[string]string, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT key, value FROM preferences WHERE user_id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)

	for rows.Next() {
		var key, value string
		if err = rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}

		out[key] = value
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preferences: %w", err)
	}

	return out, nil
}
