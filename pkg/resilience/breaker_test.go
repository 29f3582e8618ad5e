package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }
func succeeding(context.Context) error { return nil }

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(Config{Failures: 3, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Do(ctx, failing); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}
	if err := b.Do(ctx, succeeding); !errors.Is(err, ErrOpen) {
		t.Fatalf("open breaker let a call through: %v", err)
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := NewBreaker(Config{Failures: 2, Cooldown: time.Minute})
	ctx := context.Background()

	b.Do(ctx, failing)
	b.Do(ctx, succeeding)
	b.Do(ctx, failing)
	if b.State() != Closed {
		t.Fatalf("state = %v, want closed after interleaved success", b.State())
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := NewBreaker(Config{Failures: 1, Cooldown: time.Minute})
	now := time.Now()
	b.now = func() time.Time { return now }
	ctx := context.Background()

	b.Do(ctx, failing)
	if b.State() != Open {
		t.Fatal("breaker should be open")
	}

	now = now.Add(2 * time.Minute)
	if b.State() != HalfOpen {
		t.Fatalf("state = %v, want half-open after cooldown", b.State())
	}
	if err := b.Do(ctx, succeeding); err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if b.State() != Closed {
		t.Fatalf("state = %v, want closed after successful probe", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(Config{Failures: 1, Cooldown: time.Minute})
	now := time.Now()
	b.now = func() time.Time { return now }
	ctx := context.Background()

	b.Do(ctx, failing)
	now = now.Add(2 * time.Minute)
	if err := b.Do(ctx, failing); !errors.Is(err, errBoom) {
		t.Fatalf("probe err = %v", err)
	}
	if b.State() != Open {
		t.Fatalf("state = %v, want open after failed probe", b.State())
	}
}
