package impression

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bdobrica/hanashi/internal/hanashi/completion"
	"github.com/bdobrica/hanashi/internal/hanashi/metrics"
	"github.com/bdobrica/hanashi/internal/hanashi/observability"
	"github.com/bdobrica/hanashi/internal/hanashi/prompt"
)

// Defaults for impression completion calls.
const (
	DefaultMaxTokens   = 150
	DefaultTemperature = 0.6
	DefaultTimeout     = 45 * time.Second
)

// Job is one impression pass, produced after a delivered reply.
type Job struct {
	ID         string
	GroupID    string
	TraceID    string
	Candidates []Candidate
}

// Status is the per-user outcome of an impression pass.
type Status string

const (
	StatusUpdated     Status = "updated"
	StatusSkipped     Status = "skipped"
	StatusFailed      Status = "failed"
	StatusStoreFailed Status = "store_failed"
)

// Result reports what happened for one candidate.
type Result struct {
	UserID string
	Status Status
	Err    error
}

// PromptBuilder renders the impression-refresh prompt.
type PromptBuilder interface {
	BuildImpression(ctx context.Context, userID string, messages []string) (string, error)
}

// Writer persists a refreshed impression.
type Writer interface {
	PutImpression(ctx context.Context, userID, text string) error
}

// Updater refreshes impressions for the candidates of a Job. Each candidate
// is handled independently; one failure never stops the others.
type Updater struct {
	Prompts   PromptBuilder
	Completer completion.Completer
	Store     Writer

	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	// Limiter paces completion calls when non-nil.
	Limiter *rate.Limiter
	Metrics *metrics.Metrics
}

// Update runs the pass for job and returns one Result per candidate.
func (u *Updater) Update(ctx context.Context, job Job) []Result {
	results := make([]Result, 0, len(job.Candidates))
	for _, c := range job.Candidates {
		r := u.updateOne(ctx, c)
		u.Metrics.ImpressionUpdate(string(r.Status))
		results = append(results, r)
	}
	return results
}

func (u *Updater) updateOne(ctx context.Context, c Candidate) (res Result) {
	log := observability.WithTrace(ctx).With("user_id", c.UserID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("impression update panicked", "panic", fmt.Sprint(r))
			res = Result{UserID: c.UserID, Status: StatusFailed, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	text, err := u.Prompts.BuildImpression(ctx, c.UserID, c.Messages)
	if err != nil {
		if errors.Is(err, prompt.ErrTemplateField) {
			log.Warn("impression template unusable, skipping", "err", err)
		} else {
			log.Warn("impression prompt failed", "err", err)
		}
		return Result{UserID: c.UserID, Status: StatusSkipped, Err: err}
	}

	if u.Limiter != nil {
		if err := u.Limiter.Wait(ctx); err != nil {
			return Result{UserID: c.UserID, Status: StatusSkipped, Err: fmt.Errorf("pacing: %w", err)}
		}
	}

	temperature := u.Temperature
	content, err := u.Completer.Complete(ctx, completion.Request{
		Model:       u.Model,
		Messages:    []completion.Message{{Role: completion.RoleUser, Content: text}},
		MaxTokens:   orDefault(u.MaxTokens, DefaultMaxTokens),
		Temperature: &temperature,
		Timeout:     orDefaultDuration(u.Timeout, DefaultTimeout),
	})
	if err != nil {
		kind, _ := completion.KindOf(err)
		u.Metrics.Completion("impression", kind.String())
		log.Info("impression completion failed", "kind", kind.String(), "err", err)
		return Result{UserID: c.UserID, Status: StatusFailed, Err: err}
	}
	u.Metrics.Completion("impression", "ok")

	content = strings.TrimSpace(content)
	if err := u.Store.PutImpression(ctx, c.UserID, content); err != nil {
		log.Error("failed to store impression", "err", err)
		return Result{UserID: c.UserID, Status: StatusStoreFailed, Err: err}
	}
	log.Debug("impression updated", "len", len(content))
	return Result{UserID: c.UserID, Status: StatusUpdated}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orDefaultDuration(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}
