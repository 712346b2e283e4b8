// Package retry provides exponential back-off for transport calls that can
// be safely repeated, such as reading room history or reconnecting the sync
// loop. Completion calls are never retried.
package retry

import (
	"context"
	"errors"
	"time"
)

// Backoff produces exponentially growing delays between Min and Max.
// The zero value uses 500ms and 30s.
type Backoff struct {
	Min time.Duration
	Max time.Duration

	next time.Duration
}

// Next returns the delay to wait now and doubles the following one.
func (b *Backoff) Next() time.Duration {
	lo, hi := b.bounds()
	if b.next < lo {
		b.next = lo
	}
	d := b.next
	b.next *= 2
	if b.next > hi {
		b.next = hi
	}
	return d
}

// Reset starts the sequence over from Min.
func (b *Backoff) Reset() {
	b.next = 0
}

func (b *Backoff) bounds() (time.Duration, time.Duration) {
	lo, hi := b.Min, b.Max
	if lo <= 0 {
		lo = 500 * time.Millisecond
	}
	if hi < lo {
		hi = 30 * time.Second
		if hi < lo {
			hi = lo
		}
	}
	return lo, hi
}

// Do calls fn up to attempts times. It retries only while retryable reports
// true for the returned error (nil retryable retries everything) and waits
// b.Next() between attempts. Cancelling ctx stops the loop; the last error
// from fn is joined with the context error in that case.
func Do(ctx context.Context, attempts int, b Backoff, retryable func(error) bool, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(err, ctxErr)
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(b.Next())
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(err, ctx.Err())
		case <-t.C:
		}
	}
	return err
}
