// Package engine runs the per-event conversation flow: policy check, context
// window, prompt, completion, delivery and the hand-off of the impression
// pass to the background worker.
//
// An Engine holds no mutable state of its own and may be called concurrently
// for any number of events.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/bdobrica/hanashi/common/trace"
	"github.com/bdobrica/hanashi/internal/hanashi/completion"
	"github.com/bdobrica/hanashi/internal/hanashi/conversation"
	"github.com/bdobrica/hanashi/internal/hanashi/impression"
	"github.com/bdobrica/hanashi/internal/hanashi/metrics"
	"github.com/bdobrica/hanashi/internal/hanashi/observability"
	"github.com/bdobrica/hanashi/internal/hanashi/prompt"
	"github.com/bdobrica/hanashi/internal/hanashi/store"
	"github.com/bdobrica/hanashi/internal/hanashi/trigger"
)

// Outcome summarises how an event ended.
type Outcome string

const (
	// OutcomeSuppressed: no reply was attempted.
	OutcomeSuppressed Outcome = "suppressed"
	// OutcomeReplied: a reply was delivered.
	OutcomeReplied Outcome = "replied"
	// OutcomeFailed: a reply was attempted but failed; an apology may have
	// been sent.
	OutcomeFailed Outcome = "failed"
)

// Transport delivers messages and reads recent room history.
type Transport interface {
	conversation.HistoryFetcher
	Deliver(ctx context.Context, groupID, text string) error
}

// State is the persistent per-user and per-group state the engine reads.
type State interface {
	IsBlacklisted(ctx context.Context, userID string) (bool, error)
	GetGroupState(ctx context.Context, groupID string) (*store.GroupState, error)
	TouchGroupReplyTime(ctx context.Context, groupID string, at time.Time) error
}

// PromptBuilder renders the reply prompt.
type PromptBuilder interface {
	BuildResponse(ctx context.Context, window []conversation.Message) (*prompt.Response, error)
}

// ImpressionQueue accepts impression jobs without blocking.
type ImpressionQueue interface {
	Submit(job impression.Job) bool
}

// Deps are the engine's collaborators. Impressions and Metrics are optional.
type Deps struct {
	Transport   Transport
	State       State
	Prompts     PromptBuilder
	Completer   completion.Completer
	Policy      *trigger.Policy
	Impressions ImpressionQueue
	Metrics     *metrics.Metrics
}

// Options are the engine's tuning values, usually taken from config.Config.
type Options struct {
	// BotID is excluded from impression candidates.
	BotID                 string
	ChatModel             string
	MaxTokens             int
	ContextLength         int
	ReplyTimeout          time.Duration
	ImpressionMinMessages int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine handles inbound chat events.
type Engine struct {
	deps      Deps
	opts      Options
	assembler *conversation.Assembler
}

// New builds an Engine.
func New(deps Deps, opts Options) *Engine {
	if opts.ContextLength <= 0 {
		opts.ContextLength = conversation.DefaultWindowSize
	}
	if opts.ImpressionMinMessages <= 0 {
		opts.ImpressionMinMessages = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		deps:      deps,
		opts:      opts,
		assembler: conversation.NewAssembler(deps.Transport, opts.ContextLength),
	}
}

// Handle processes one event to completion. It never panics out and never
// returns an error: every failure is logged, counted and turned into an
// Outcome.
func (e *Engine) Handle(ctx context.Context, ev conversation.Event) (outcome Outcome) {
	ctx = trace.Ensure(ctx)
	log := observability.WithTrace(ctx).With("group_id", ev.GroupID, "sender_id", ev.SenderID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling event", "panic", fmt.Sprint(r))
			outcome = OutcomeFailed
		}
	}()

	decision, err := e.decide(ctx, ev)
	if err != nil {
		log.Error("policy check failed", "err", err)
		return OutcomeSuppressed
	}
	e.deps.Metrics.Trigger(string(decision.Reason))
	if !decision.Trigger {
		log.Debug("reply suppressed", "reason", decision.Reason)
		return OutcomeSuppressed
	}
	log.Info("reply triggered", "reason", decision.Reason)

	trigMsg := ev.Message()
	window, err := e.assembler.Assemble(ctx, ev.GroupID, trigMsg)
	if err != nil {
		log.Warn("history unavailable, using trigger message only", "err", err)
		window = conversation.Fallback(trigMsg)
	}

	resp, err := e.deps.Prompts.BuildResponse(ctx, window)
	if err != nil {
		log.Error("failed to build prompt", "err", err)
		e.apologise(ctx, ev.GroupID, err)
		return OutcomeFailed
	}

	reply, err := e.deps.Completer.Complete(ctx, completion.Request{
		Model:     e.opts.ChatModel,
		Messages:  resp.Messages(),
		MaxTokens: e.opts.MaxTokens,
		Timeout:   e.opts.ReplyTimeout,
	})
	if err != nil {
		kind, _ := completion.KindOf(err)
		e.deps.Metrics.Completion("reply", kind.String())
		log.Warn("reply completion failed", "kind", kind.String(), "err", err)
		e.apologise(ctx, ev.GroupID, err)
		return OutcomeFailed
	}
	e.deps.Metrics.Completion("reply", "ok")

	if err := e.deps.Transport.Deliver(ctx, ev.GroupID, reply); err != nil {
		e.deps.Metrics.Reply("reply", false)
		log.Error("failed to deliver reply", "err", err)
		return OutcomeFailed
	}
	e.deps.Metrics.Reply("reply", true)

	if err := e.deps.State.TouchGroupReplyTime(ctx, ev.GroupID, e.opts.Now()); err != nil {
		log.Error("failed to record reply time", "err", err)
	}

	e.scheduleImpressions(ctx, ev.GroupID, window)
	log.Info("reply delivered", "window", len(window), "units", resp.Units)
	return OutcomeReplied
}

func (e *Engine) decide(ctx context.Context, ev conversation.Event) (trigger.Decision, error) {
	blacklisted, err := e.deps.State.IsBlacklisted(ctx, ev.SenderID)
	if err != nil {
		return trigger.Decision{}, err
	}
	if blacklisted {
		return trigger.Decision{Reason: trigger.ReasonBlacklisted}, nil
	}
	gs, err := e.deps.State.GetGroupState(ctx, ev.GroupID)
	if err != nil {
		return trigger.Decision{}, err
	}
	return e.deps.Policy.Decide(trigger.Input{
		Blacklisted:   blacklisted,
		GroupEnabled:  gs.Enabled,
		Addressed:     ev.Addressed,
		Text:          ev.Text,
		LastReplyTime: gs.LastReplyTime,
	}), nil
}

func (e *Engine) apologise(ctx context.Context, groupID string, cause error) {
	msg := Apology(cause)
	if err := e.deps.Transport.Deliver(ctx, groupID, msg); err != nil {
		e.deps.Metrics.Reply("apology", false)
		observability.WithTrace(ctx).Error("failed to deliver apology", "group_id", groupID, "err", err)
		return
	}
	e.deps.Metrics.Reply("apology", true)
}

func (e *Engine) scheduleImpressions(ctx context.Context, groupID string, window []conversation.Message) {
	if e.deps.Impressions == nil {
		return
	}
	candidates := impression.Eligible(window, e.opts.BotID, e.opts.ImpressionMinMessages)
	if len(candidates) == 0 {
		return
	}
	e.deps.Impressions.Submit(impression.Job{
		GroupID:    groupID,
		TraceID:    trace.FromContext(ctx),
		Candidates: candidates,
	})
}
