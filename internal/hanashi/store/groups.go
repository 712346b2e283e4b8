package store

import (
	"context"
	"fmt"
	"time"
)

// GroupState is the per-room runtime state.
type GroupState struct {
	GroupID string
	Enabled bool
	// LastReplyTime is the Unix epoch when the bot has never replied.
	LastReplyTime time.Time
}

// HasReplied reports whether the bot has ever replied in the group.
func (g *GroupState) HasReplied() bool {
	return g.LastReplyTime.Unix() > 0
}

// GetGroupState returns the state for groupID, creating it with
// enabled=true and last_reply_time=0 on first access.
func (s *Store) GetGroupState(ctx context.Context, groupID string) (*GroupState, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_settings (group_id) VALUES (?)`, groupID,
	); err != nil {
		return nil, fmt.Errorf("store: init group %q: %w", groupID, err)
	}

	var (
		gs      = GroupState{GroupID: groupID}
		enabled int
		last    int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT enabled, last_reply_time FROM group_settings WHERE group_id = ?`, groupID,
	).Scan(&enabled, &last)
	if err != nil {
		return nil, fmt.Errorf("store: get group %q: %w", groupID, err)
	}
	gs.Enabled = enabled != 0
	gs.LastReplyTime = time.Unix(last, 0)
	return &gs, nil
}

// SetGroupEnabled toggles the group flag, preserving last_reply_time.
func (s *Store) SetGroupEnabled(ctx context.Context, groupID string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_settings (group_id, enabled) VALUES (?, ?)
		ON CONFLICT(group_id) DO UPDATE SET enabled = excluded.enabled
	`, groupID, boolToInt(enabled))
	if err != nil {
		return fmt.Errorf("store: set group %q enabled: %w", groupID, err)
	}
	return nil
}

// TouchGroupReplyTime records that a reply was delivered to groupID at at.
func (s *Store) TouchGroupReplyTime(ctx context.Context, groupID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_settings (group_id, last_reply_time) VALUES (?, ?)
		ON CONFLICT(group_id) DO UPDATE SET last_reply_time = excluded.last_reply_time
	`, groupID, at.Unix())
	if err != nil {
		return fmt.Errorf("store: touch group %q: %w", groupID, err)
	}
	return nil
}

// GroupCount returns the number of groups the bot has seen.
func (s *Store) GroupCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM group_settings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count groups: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
