package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Impression is the free-text memory kept about one participant.
type Impression struct {
	UserID     string
	Text       string
	LastUpdate time.Time
}

// GetImpression returns the stored impression for userID. A participant the
// bot knows nothing about yet yields (nil, nil), not an error.
func (s *Store) GetImpression(ctx context.Context, userID string) (*Impression, error) {
	var (
		imp     = Impression{UserID: userID}
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT impression_text, last_update FROM impressions WHERE user_id = ?`, userID,
	).Scan(&imp.Text, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get impression %q: %w", userID, err)
	}
	imp.LastUpdate = time.Unix(updated, 0)
	return &imp, nil
}

// PutImpression overwrites the impression for userID (last writer wins).
func (s *Store) PutImpression(ctx context.Context, userID, text string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO impressions (user_id, impression_text, last_update)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			impression_text = excluded.impression_text,
			last_update     = excluded.last_update
	`, userID, text, s.now().Unix())
	if err != nil {
		return fmt.Errorf("store: put impression %q: %w", userID, err)
	}
	return nil
}

// DeleteImpression forgets userID. Returns ErrNotFound when nothing was
// stored.
func (s *Store) DeleteImpression(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM impressions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("store: delete impression %q: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete impression %q: %w", userID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ImpressionCount returns the number of participants with a stored impression.
func (s *Store) ImpressionCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM impressions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count impressions: %w", err)
	}
	return n, nil
}
