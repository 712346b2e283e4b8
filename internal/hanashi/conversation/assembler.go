package conversation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultWindowSize is the number of messages a window holds when no size is
// configured.
const DefaultWindowSize = 30

// ErrHistoryUnavailable is returned by Assemble when recent history could not
// be fetched. Callers fall back to a window holding only the trigger.
var ErrHistoryUnavailable = errors.New("conversation: history unavailable")

// HistoryFetcher returns up to max recent messages of a group in any order.
type HistoryFetcher interface {
	FetchRecentHistory(ctx context.Context, groupID string, max int) ([]Message, error)
}

// Assembler builds context windows.
type Assembler struct {
	History HistoryFetcher
	Size    int
}

// NewAssembler returns an Assembler holding at most size messages per window.
func NewAssembler(history HistoryFetcher, size int) *Assembler {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Assembler{History: history, Size: size}
}

// Assemble returns the window for groupID, oldest first, at most Size long.
//
// Records with no sender or blank text are dropped. When fewer than Size
// records remain the trigger is appended, unless a record with the same
// non-empty ID is already part of the window.
func (a *Assembler) Assemble(ctx context.Context, groupID string, trigger Message) ([]Message, error) {
	size := a.Size
	if size <= 0 {
		size = DefaultWindowSize
	}

	batch, err := a.History.FetchRecentHistory(ctx, groupID, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
	}

	window := make([]Message, 0, len(batch)+1)
	for _, m := range batch {
		if m.UserID == "" || strings.TrimSpace(m.Text) == "" {
			continue
		}
		window = append(window, m)
	}
	sort.SliceStable(window, func(i, j int) bool {
		return window[i].Timestamp < window[j].Timestamp
	})
	if len(window) > size {
		window = window[len(window)-size:]
	}

	if len(window) < size && !contains(window, trigger.ID) {
		window = append(window, trigger)
	}
	return window, nil
}

// Fallback is the window used when history is unavailable.
func Fallback(trigger Message) []Message {
	return []Message{trigger}
}

func contains(window []Message, id string) bool {
	if id == "" {
		return false
	}
	for _, m := range window {
		if m.ID == id {
			return true
		}
	}
	return false
}
