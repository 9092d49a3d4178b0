package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_ExhaustsBurst(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(Config{PerHour: 10, Burst: 2})
	l.now = func() time.Time { return start }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "u1")
		if err != nil || !ok {
			t.Fatalf("call %d: expected allow, got %v %v", i, ok, err)
		}
	}
	if ok, _ := l.Allow(ctx, "u1"); ok {
		t.Fatal("expected third call to be rejected")
	}

	// 10 per hour refills one token every 6 minutes.
	l.now = func() time.Time { return start.Add(6 * time.Minute) }
	if ok, _ := l.Allow(ctx, "u1"); !ok {
		t.Fatal("expected a refilled token")
	}
}

func TestLimiter_CallersAreIndependent(t *testing.T) {
	t.Parallel()

	l := New(Config{PerHour: 1})
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "a"); !ok {
		t.Fatal("expected first call for a to pass")
	}
	if ok, _ := l.Allow(ctx, "a"); ok {
		t.Fatal("expected second call for a to be rejected")
	}
	if ok, _ := l.Allow(ctx, "b"); !ok {
		t.Fatal("expected b to have its own bucket")
	}
}

func TestLimiter_ZeroIsUnlimited(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	for i := 0; i < 100; i++ {
		if ok, _ := l.Allow(context.Background(), "u"); !ok {
			t.Fatalf("call %d rejected", i)
		}
	}
}
