// Package matrix connects Hanashi to a Matrix homeserver: it runs the sync
// loop, turns room messages into conversation events, delivers replies and
// reads recent room history.
package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/hanashi/common/retry"
	"github.com/bdobrica/hanashi/internal/hanashi/conversation"
)

// Config holds Matrix client configuration
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// Rooms are joined on Start.
	Rooms []string
	// DB persists the sync token across restarts when non-nil. The
	// matrix_sync_state table must exist.
	DB *sql.DB
	// HistoryAttempts bounds /messages retries on rate limiting. Defaults to 3.
	HistoryAttempts int
}

// EventHandler receives every inbound text message. It is called on the sync
// goroutine and should return quickly.
type EventHandler func(ctx context.Context, ev conversation.Event)

// Client wraps the mautrix client
type Client struct {
	client    *mautrix.Client
	config    *Config
	handler   EventHandler
	startedAt time.Time

	mu          sync.RWMutex
	displayName string

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a new Matrix client
func New(config *Config) (*Client, error) {
	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}

	c := &Client{
		client: client,
		config: config,
		stopCh: make(chan struct{}),
	}

	if config.DB != nil {
		client.Store = NewSyncStore(config.DB)
		slog.Info("Matrix sync store: using persistent SQLite store")
	} else {
		slog.Warn("Matrix sync store: no DB configured, using in-memory store (history will replay on restart)")
	}

	return c, nil
}

// Start registers handler, joins the configured rooms and starts syncing in
// the background. Messages sent before Start are ignored.
func (c *Client) Start(ctx context.Context, handler EventHandler) error {
	c.handler = handler
	c.startedAt = time.Now()

	if resp, err := c.client.GetOwnDisplayName(ctx); err != nil {
		slog.Warn("could not fetch own display name", "err", err)
	} else {
		c.mu.Lock()
		c.displayName = resp.DisplayName
		c.mu.Unlock()
	}

	syncer, ok := c.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return errors.New("unexpected Matrix syncer type")
	}
	syncer.OnEventType(event.EventMessage, c.handleMessage)

	for _, roomID := range c.config.Rooms {
		if err := c.joinRoom(ctx, id.RoomID(roomID)); err != nil {
			return fmt.Errorf("failed to join room %s: %w", roomID, err)
		}
	}

	go c.syncLoop(ctx)
	return nil
}

// syncLoop keeps the sync running, reconnecting with exponential back-off.
func (c *Client) syncLoop(ctx context.Context) {
	backoff := retry.Backoff{Min: 2 * time.Second, Max: 5 * time.Minute}
	for {
		began := time.Now()
		err := c.client.SyncWithContext(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}
		if sessionHealthy(time.Since(began)) {
			backoff.Reset()
		}
		select {
		case <-c.stopCh:
			return
		default:
		}
		delay := backoff.Next()
		slog.Error("Matrix sync stopped; reconnecting", "err", err, "backoff", delay)
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// healthySession is how long a sync must run before its failure counts as a
// fresh outage rather than a continuing one.
const healthySession = time.Minute

func sessionHealthy(ran time.Duration) bool {
	return ran >= healthySession
}

// Stop stops the sync loop. Safe to call multiple times.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.client.StopSync()
	})
}

// Deliver sends text to a room as a plain m.text message.
func (c *Client) Deliver(ctx context.Context, roomID, text string) error {
	if _, err := c.client.SendText(ctx, id.RoomID(roomID), text); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendFormatted sends a formatted message (HTML + plain text fallback)
func (c *Client) SendFormatted(ctx context.Context, roomID, html, plaintext string) error {
	content := event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          plaintext,
		Format:        event.FormatHTML,
		FormattedBody: html,
	}
	if _, err := c.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, &content); err != nil {
		return fmt.Errorf("failed to send formatted message: %w", err)
	}
	return nil
}

// UserID returns the bot's own user ID.
func (c *Client) UserID() string {
	return c.config.UserID
}

func (c *Client) names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return botNames(id.UserID(c.config.UserID), c.displayName)
}

func (c *Client) handleMessage(ctx context.Context, evt *event.Event) {
	if evt.Timestamp < c.startedAt.UnixMilli() {
		return
	}
	ev, ok := convertEvent(evt, id.UserID(c.config.UserID), c.names())
	if !ok {
		return
	}
	if c.handler != nil {
		c.handler(ctx, ev)
	}
}

// joinRoom attempts to join a room
func (c *Client) joinRoom(ctx context.Context, roomID id.RoomID) error {
	_, err := c.client.JoinRoomByID(ctx, roomID)
	if err != nil {
		// Homeservers answer M_FORBIDDEN when the bot is already a member.
		if errors.Is(err, mautrix.MForbidden) {
			slog.Warn("joinRoom: already a member or access denied, continuing", "room", roomID)
			return nil
		}
		return err
	}
	return nil
}

// convertEvent turns a Matrix message into a conversation event. It returns
// false for the bot's own messages and for anything that is not readable
// text.
func convertEvent(evt *event.Event, self id.UserID, names []string) (conversation.Event, bool) {
	if evt.Sender == self {
		return conversation.Event{}, false
	}
	content := messageContent(evt)
	if content == nil {
		return conversation.Event{}, false
	}

	body := stripReplyFallback(content.Body)
	addressed := isAddressed(content, body, self, names)
	if addressed {
		body = stripAddress(body, names)
	}

	return conversation.Event{
		ID:         evt.ID.String(),
		GroupID:    evt.RoomID.String(),
		SenderID:   evt.Sender.String(),
		SenderName: localpart(evt.Sender),
		Text:       body,
		Addressed:  addressed,
		Timestamp:  time.UnixMilli(evt.Timestamp),
	}, true
}

// messageContent returns the parsed text content of evt, or nil.
func messageContent(evt *event.Event) *event.MessageEventContent {
	if evt.Type.Type != event.EventMessage.Type {
		return nil
	}
	if evt.Content.Parsed == nil {
		if err := evt.Content.ParseRaw(evt.Type); err != nil {
			return nil
		}
	}
	content := evt.Content.AsMessage()
	if content == nil {
		return nil
	}
	switch content.MsgType {
	case event.MsgText, event.MsgEmote, event.MsgNotice:
		return content
	default:
		return nil
	}
}

func localpart(userID id.UserID) string {
	lp, _, err := userID.Parse()
	if err != nil || lp == "" {
		return userID.String()
	}
	return lp
}
