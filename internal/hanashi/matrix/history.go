package matrix

import (
	"context"
	"errors"
	"fmt"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/hanashi/common/retry"
	"github.com/bdobrica/hanashi/internal/hanashi/conversation"
)

// FetchRecentHistory reads up to max recent messages of a room, newest page
// first from /messages. Rate-limited requests are retried with back-off.
func (c *Client) FetchRecentHistory(ctx context.Context, roomID string, max int) ([]conversation.Message, error) {
	attempts := c.config.HistoryAttempts
	if attempts <= 0 {
		attempts = 3
	}

	var resp *mautrix.RespMessages
	err := retry.Do(ctx, attempts, retry.Backoff{Min: 500 * time.Millisecond, Max: 5 * time.Second}, isRateLimited,
		func(ctx context.Context) error {
			r, err := c.client.Messages(ctx, id.RoomID(roomID), "", "", mautrix.DirectionBackward, nil, max)
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", roomID, err)
	}
	return messagesFromEvents(resp.Chunk), nil
}

func isRateLimited(err error) bool {
	return errors.Is(err, mautrix.MLimitExceeded)
}

// messagesFromEvents converts a /messages chunk into message records. Order is
// preserved; the assembler sorts by timestamp.
func messagesFromEvents(events []*event.Event) []conversation.Message {
	out := make([]conversation.Message, 0, len(events))
	for _, evt := range events {
		if evt == nil {
			continue
		}
		content := messageContent(evt)
		if content == nil {
			continue
		}
		out = append(out, conversation.Message{
			ID:          evt.ID.String(),
			UserID:      evt.Sender.String(),
			DisplayName: localpart(evt.Sender),
			Text:        stripReplyFallback(content.Body),
			Timestamp:   evt.Timestamp / 1000,
		})
	}
	return out
}
