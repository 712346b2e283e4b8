package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bdobrica/hanashi/common/retry"
)

var fast = retry.Backoff{Min: time.Millisecond, Max: 4 * time.Millisecond}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	b := retry.Backoff{Min: time.Second, Max: 4 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("step %d: got %v, want %v", i, got, w)
		}
	}
	b.Reset()
	if got := b.Next(); got != time.Second {
		t.Errorf("after reset: got %v, want 1s", got)
	}
}

func TestDo_SucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), 3, fast, nil, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestDo_GivesUp(t *testing.T) {
	sentinel := errors.New("still failing")
	calls := 0
	err := retry.Do(context.Background(), 2, fast, nil, func(context.Context) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("got %v, want sentinel", err)
	}
	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	permanent := errors.New("forbidden")
	calls := 0
	err := retry.Do(context.Background(), 5, fast, func(err error) bool { return !errors.Is(err, permanent) }, func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Errorf("got %v after %d calls, want permanent after 1", err, calls)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sentinel := errors.New("fail")
	err := retry.Do(ctx, 10, retry.Backoff{Min: time.Hour, Max: time.Hour}, nil, func(context.Context) error {
		cancel()
		return sentinel
	})
	if !errors.Is(err, context.Canceled) || !errors.Is(err, sentinel) {
		t.Errorf("got %v, want both the last error and context.Canceled", err)
	}
}
