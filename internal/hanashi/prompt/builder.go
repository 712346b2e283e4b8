// Package prompt renders the two prompts Hanashi sends to the completion API:
// the reply prompt for a context window and the impression-refresh prompt for
// a single participant.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bdobrica/hanashi/internal/hanashi/completion"
	"github.com/bdobrica/hanashi/internal/hanashi/config"
	"github.com/bdobrica/hanashi/internal/hanashi/conversation"
	"github.com/bdobrica/hanashi/internal/hanashi/store"
)

// TimeLayout formats the current-time field (yy/mm/dd/HH:MM).
const TimeLayout = "06/01/02/15:04"

// Placeholders recognised in the impression template.
const (
	FieldPreviousImpression = "{previous_impression}"
	FieldUserMessages       = "{user_messages}"
)

// Markers substituted for the previous impression.
const (
	NoImpression    = "none"
	RetrievalFailed = "retrieval failed"
)

var (
	// ErrConfigUnavailable means no configuration was supplied to the builder.
	ErrConfigUnavailable = errors.New("prompt: configuration unavailable")
	// ErrTemplateField means the impression template lacks a required placeholder.
	ErrTemplateField = errors.New("prompt: impression template missing field")
)

// ImpressionReader is the read side of the impression store.
type ImpressionReader interface {
	GetImpression(ctx context.Context, userID string) (*store.Impression, error)
}

// Builder renders prompts. Config may be nil, in which case every build fails
// with ErrConfigUnavailable.
type Builder struct {
	Config      *config.Config
	Impressions ImpressionReader
	Now         func() time.Time
}

// NewBuilder returns a Builder using the wall clock.
func NewBuilder(cfg *config.Config, impressions ImpressionReader) *Builder {
	return &Builder{Config: cfg, Impressions: impressions, Now: time.Now}
}

// Response is the structured reply prompt.
type Response struct {
	// System is the configured instruction, verbatim.
	System string
	// User holds one annotated unit per window message, space separated.
	User string
	// Time is the local time formatted with TimeLayout.
	Time string
	// Units is the number of annotated units in User.
	Units int
}

// Messages renders the role-tagged messages for the completion call.
func (r *Response) Messages() []completion.Message {
	system := r.System
	if r.Time != "" {
		if system != "" {
			system += "\n"
		}
		system += "Current time: " + r.Time
	}
	return []completion.Message{
		{Role: completion.RoleSystem, Content: system},
		{Role: completion.RoleUser, Content: r.User},
	}
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", " ")

// Escape makes s safe to embed between double quotes in an annotated unit.
// Line breaks are flattened so a unit stays on one line.
func Escape(s string) string {
	return quoteEscaper.Replace(s)
}

// Unit renders one annotated message unit.
func Unit(userID, impression, text string) string {
	return fmt.Sprintf(`{"%s":["%s"]} %s`, Escape(userID), Escape(impression), text)
}

// BuildResponse renders the reply prompt for window. Each distinct sender's
// impression is fetched once; a missing impression or a store error renders
// as the empty string.
func (b *Builder) BuildResponse(ctx context.Context, window []conversation.Message) (*Response, error) {
	if b == nil || b.Config == nil {
		return nil, ErrConfigUnavailable
	}

	impressions := make(map[string]string, len(window))
	for _, m := range window {
		if _, seen := impressions[m.UserID]; seen {
			continue
		}
		impressions[m.UserID] = b.currentImpression(ctx, m.UserID)
	}

	units := make([]string, 0, len(window))
	for _, m := range window {
		units = append(units, Unit(m.UserID, impressions[m.UserID], m.Text))
	}

	return &Response{
		System: b.Config.SystemPrompt,
		User:   strings.Join(units, " "),
		Time:   b.now().Local().Format(TimeLayout),
		Units:  len(units),
	}, nil
}

func (b *Builder) currentImpression(ctx context.Context, userID string) string {
	if b.Impressions == nil {
		return ""
	}
	imp, err := b.Impressions.GetImpression(ctx, userID)
	if err != nil {
		slog.Warn("impression lookup failed", "user_id", userID, "err", err)
		return ""
	}
	if imp == nil {
		return ""
	}
	return imp.Text
}

// BuildImpression renders the impression-refresh prompt for userID from their
// recent message texts.
func (b *Builder) BuildImpression(ctx context.Context, userID string, messages []string) (string, error) {
	if b == nil || b.Config == nil {
		return "", ErrConfigUnavailable
	}
	tmpl := b.Config.ImpressionPrompt
	for _, field := range []string{FieldPreviousImpression, FieldUserMessages} {
		if !strings.Contains(tmpl, field) {
			return "", fmt.Errorf("%w: %s", ErrTemplateField, field)
		}
	}

	previous := NoImpression
	if b.Impressions != nil {
		imp, err := b.Impressions.GetImpression(ctx, userID)
		switch {
		case err != nil:
			slog.Warn("impression lookup failed", "user_id", userID, "err", err)
			previous = RetrievalFailed
		case imp != nil && imp.Text != "":
			previous = imp.Text
		}
	}

	r := strings.NewReplacer(
		FieldPreviousImpression, previous,
		FieldUserMessages, BulletList(messages),
	)
	return r.Replace(tmpl), nil
}

var lineFlattener = strings.NewReplacer("\r", "", "\n", " ")

// BulletList renders messages as "- " items, one per line. Line breaks inside
// a message are flattened so each item stays on a single line.
func BulletList(messages []string) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, "- "+lineFlattener.Replace(m))
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}
