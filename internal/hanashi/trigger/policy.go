// Package trigger decides whether the bot should attempt a reply to an
// inbound message.
//
// Two tiers apply. A message that addresses the bot directly is always
// answered. Any other message can start an idle reply with a fixed
// probability, but only once the group's minimum reply interval has elapsed
// since the last delivered reply. Blacklisted senders and disabled groups are
// silenced before either tier is consulted.
package trigger

import (
	"math/rand/v2"
	"strings"
	"time"
)

// Reason explains a Decision. It doubles as a metrics label.
type Reason string

const (
	ReasonBlacklisted   Reason = "blacklisted"
	ReasonGroupDisabled Reason = "group_disabled"
	ReasonAddressed     Reason = "addressed"
	ReasonIdleChatter   Reason = "idle_chatter"
	// ReasonRateLimited means the minimum reply interval has not elapsed.
	ReasonRateLimited Reason = "rate_limited"
	// ReasonNotDrawn means the random draw did not select this message.
	ReasonNotDrawn Reason = "not_drawn"
)

// Input is everything the policy looks at for one message.
type Input struct {
	Blacklisted   bool
	GroupEnabled  bool
	Addressed     bool
	Text          string
	LastReplyTime time.Time
}

// Decision is the outcome of Decide.
type Decision struct {
	Trigger bool
	Reason  Reason
}

// Policy holds the idle-reply tuning. The zero value never replies to idle
// chatter. Policy is safe for concurrent use as long as Rand and Now are.
type Policy struct {
	// Probability of an idle reply, in [0,1].
	Probability float64
	// Interval is the minimum time between two idle replies in a group.
	Interval time.Duration

	// Rand returns a uniform draw in [0,1). Defaults to math/rand/v2.
	Rand func() float64
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewPolicy returns a Policy using the global random source and wall clock.
func NewPolicy(probability float64, interval time.Duration) *Policy {
	return &Policy{
		Probability: probability,
		Interval:    interval,
		Rand:        rand.Float64,
		Now:         time.Now,
	}
}

// Decide applies the policy. It has no side effects: the caller records the
// reply time only after a reply is actually delivered.
func (p *Policy) Decide(in Input) Decision {
	if in.Blacklisted {
		return Decision{Reason: ReasonBlacklisted}
	}
	if !in.GroupEnabled {
		return Decision{Reason: ReasonGroupDisabled}
	}
	if in.Addressed && strings.TrimSpace(in.Text) != "" {
		return Decision{Trigger: true, Reason: ReasonAddressed}
	}

	if p.Probability <= 0 {
		return Decision{Reason: ReasonNotDrawn}
	}
	if p.now().Sub(in.LastReplyTime) < p.Interval {
		return Decision{Reason: ReasonRateLimited}
	}
	if p.draw() < p.Probability {
		return Decision{Trigger: true, Reason: ReasonIdleChatter}
	}
	return Decision{Reason: ReasonNotDrawn}
}

func (p *Policy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Policy) draw() float64 {
	if p.Rand != nil {
		return p.Rand()
	}
	return rand.Float64()
}
