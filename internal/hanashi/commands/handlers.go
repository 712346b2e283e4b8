package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/hanashi/common/trace"
	"github.com/bdobrica/hanashi/common/version"
	"github.com/bdobrica/hanashi/internal/hanashi/conversation"
	"github.com/bdobrica/hanashi/internal/hanashi/observability"
	"github.com/bdobrica/hanashi/internal/hanashi/store"
)

// AdminStore is the state the admin commands mutate.
type AdminStore interface {
	GetGroupState(ctx context.Context, groupID string) (*store.GroupState, error)
	SetGroupEnabled(ctx context.Context, groupID string, enabled bool) error
	AddToBlacklist(ctx context.Context, userID string) error
	RemoveFromBlacklist(ctx context.Context, userID string) error
	ListBlacklist(ctx context.Context) ([]string, error)
	GetImpression(ctx context.Context, userID string) (*store.Impression, error)
	DeleteImpression(ctx context.Context, userID string) error
}

// Handlers holds all command handlers and their dependencies
type Handlers struct {
	store AdminStore
}

// NewHandlers creates a new Handlers instance
func NewHandlers(s AdminStore) *Handlers {
	return &Handlers{store: s}
}

// Register wires every handler into r.
func (h *Handlers) Register(r *Router) {
	r.Register("help", h.HandleHelp)
	r.Register("version", h.HandleVersion)
	r.Register("group.enable", h.HandleGroupEnable)
	r.Register("group.disable", h.HandleGroupDisable)
	r.Register("group.status", h.HandleGroupStatus)
	r.Register("blacklist.add", h.HandleBlacklistAdd)
	r.Register("blacklist.remove", h.HandleBlacklistRemove)
	r.Register("blacklist.list", h.HandleBlacklistList)
	r.Register("impression.show", h.HandleImpressionShow)
	r.Register("impression.clear", h.HandleImpressionClear)
}

// HandleHelp shows available commands
func (h *Handlers) HandleHelp(ctx context.Context, cmd *Command, ev *conversation.Event) (string, error) {
	return `**Hanashi**

**Group:**
• /hanashi group enable - Enable replies in this room
• /hanashi group disable - Disable replies in this room
• /hanashi group status - Show this room's settings

**Blacklist:**
• /hanashi blacklist add <@user:server> - Never reply to a user
• /hanashi blacklist remove <@user:server> - Lift a blacklist entry
• /hanashi blacklist list - Show blacklisted users

**Impressions:**
• /hanashi impression show <@user:server> - Show the stored impression
• /hanashi impression clear <@user:server> - Forget a user's impression

**General:**
• /hanashi help - Show this help message
• /hanashi version - Show version information

/ai_chat and /aichat are accepted as aliases of /hanashi.`, nil
}

// HandleVersion shows version information
func (h *Handlers) HandleVersion(ctx context.Context, cmd *Command, ev *conversation.Event) (string, error) {
	return fmt.Sprintf("**Hanashi**\nVersion: %s\nCommit: %s\nBuild Time: %s",
		version.Version, version.GitCommit, version.BuildTime), nil
}

func (h *Handlers) HandleGroupEnable(ctx context.Context, cmd *Command, ev *conversation.Event) (string, error) {
	return h.setGroup(ctx, ev, true)
}

func (h *Handlers) HandleGroupDisable(ctx context.Context, cmd *Command, ev *conversation.Event) (string, error) {
	return h.setGroup(ctx, ev, false)
}

func (h *Handlers) setGroup(ctx context.Context, ev *conversation.Event, enabled bool) (string, error) {
	if err := h.store.SetGroupEnabled(ctx, ev.GroupID, enabled); err != nil {
		return "", fmt.Errorf("failed to update group: %w", err)
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	h.audit(ctx, ev, "group."+state, ev.GroupID)
	return fmt.Sprintf("✅ Replies %s in this room.", state), nil
}

// HandleGroupStatus reports the room's flag and last reply time.
func (h *Handlers) HandleGroupStatus(ctx context.Context, cmd *Command, ev *conversation.Event) (string, error) {
	gs, err := h.store.GetGroupState(ctx, ev.GroupID)
	if err != nil {
		return "", fmt.Errorf("failed to load group: %w", err)
	}
	last := "never"
	if gs.HasReplied() {
		last = gs.LastReplyTime.Format(time.RFC3339)
	}
	return fmt.Sprintf("**Room %s**\nEnabled: %t\nLast reply: %s", gs.GroupID, gs.Enabled, last), nil
}

func (h *Handlers) HandleBlacklistAdd(ctx context.Context, cmd *Command, ev *conversation.Event) (string, error) {
	userID, err := userArg(cmd)
	if err != nil {
		return "", err
	}
	if err := h.store.AddToBlacklist(ctx, userID); err != nil {
		return "", fmt.Errorf("failed to add to blacklist: %w", err)
	}
	h.audit(ctx, ev, "blacklist.add", userID)
	return fmt.Sprintf("✅ %s added to the blacklist.", userID), nil
}

func (h *Handlers) HandleBlacklistRemove(ctx context.Context, cmd *Command, ev *conversation.Event) (string, error) {
	userID, err := userArg(cmd)
	if err != nil {
		return "", err
	}
	if err := h.store.RemoveFromBlacklist(ctx, userID); err != nil {
		return "", fmt.Errorf("failed to remove from blacklist: %w", err)
	}
	h.audit(ctx, ev, "blacklist.remove", userID)
	return fmt.Sprintf("✅ %s removed from the blacklist.", userID), nil
}

func (h *Handlers) HandleBlacklistList(ctx context.Context, cmd *Command, ev *conversation.Event) (string, error) {
	users, err := h.store.ListBlacklist(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list blacklist: %w", err)
	}
	if len(users) == 0 {
		return "The blacklist is empty.", nil
	}
	var sb strings.Builder
	sb.WriteString("**Blacklisted users:**\n")
	for _, u := range users {
		sb.WriteString("• " + u + "\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (h *Handlers) HandleImpressionShow(ctx context.Context, cmd *Command, ev *conversation.Event) (string, error) {
	userID, err := userArg(cmd)
	if err != nil {
		return "", err
	}
	imp, err := h.store.GetImpression(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load impression: %w", err)
	}
	if imp == nil {
		return fmt.Sprintf("No impression stored for %s.", userID), nil
	}
	return fmt.Sprintf("**%s** (updated %s)\n%s", userID, imp.LastUpdate.Format(time.RFC3339), imp.Text), nil
}

func (h *Handlers) HandleImpressionClear(ctx context.Context, cmd *Command, ev *conversation.Event) (string, error) {
	userID, err := userArg(cmd)
	if err != nil {
		return "", err
	}
	if err := h.store.DeleteImpression(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Sprintf("No impression stored for %s.", userID), nil
		}
		return "", fmt.Errorf("failed to clear impression: %w", err)
	}
	h.audit(ctx, ev, "impression.clear", userID)
	return fmt.Sprintf("✅ Impression of %s cleared.", userID), nil
}

// userArg returns the first argument as a validated Matrix user ID.
func userArg(cmd *Command) (string, error) {
	raw, ok := cmd.GetArg(0)
	if !ok {
		return "", fmt.Errorf("usage: /hanashi %s <@user:server>", cmd.FullCommand())
	}
	if _, _, err := id.UserID(raw).Parse(); err != nil {
		return "", fmt.Errorf("invalid user ID %q: %w", raw, err)
	}
	return raw, nil
}

// audit logs an admin action. There is no audit table; the structured log is
// the record.
func (h *Handlers) audit(ctx context.Context, ev *conversation.Event, action, target string) {
	observability.WithTrace(trace.Ensure(ctx)).Info("admin command",
		"action", action,
		"actor", ev.SenderID,
		"group_id", ev.GroupID,
		"target", target,
	)
}
