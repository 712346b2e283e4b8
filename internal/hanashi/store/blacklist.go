package store

import (
	"context"
	"fmt"
)

// IsBlacklisted reports whether messages from userID must be ignored.
func (s *Store) IsBlacklisted(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM blacklist WHERE user_id = ?`, userID,
	).Scan(&one)
	if err != nil {
		return false, fmt.Errorf("store: check blacklist %q: %w", userID, err)
	}
	return one > 0, nil
}

// AddToBlacklist is idempotent: adding an existing entry is a no-op.
func (s *Store) AddToBlacklist(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO blacklist (user_id, added_at) VALUES (?, ?)`,
		userID, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: blacklist add %q: %w", userID, err)
	}
	return nil
}

// RemoveFromBlacklist is idempotent: removing a missing entry is a no-op.
func (s *Store) RemoveFromBlacklist(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blacklist WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("store: blacklist remove %q: %w", userID, err)
	}
	return nil
}

// ListBlacklist returns all blacklisted user IDs in lexical order.
func (s *Store) ListBlacklist(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM blacklist ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("store: list blacklist: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: list blacklist scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list blacklist rows: %w", err)
	}
	return ids, nil
}
