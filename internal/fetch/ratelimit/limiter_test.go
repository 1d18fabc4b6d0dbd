package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/devilsangel360live/Hearth/internal/metrics"
)

func TestLimiterPacesSameDomain(t *testing.T) {
	metrics.Init()

	// 10 QPS with burst 1: the second request waits ~100ms.
	l := New(Config{QPS: 10, Burst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "https://www.example.com/one"); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	start := time.Now()
	if err := l.Wait(ctx, "https://example.com/two"); err != nil {
		t.Fatalf("second Wait() error = %v", err)
	}
	if waited := time.Since(start); waited < 80*time.Millisecond {
		t.Fatalf("expected second wait ~100ms, waited only %v", waited)
	}
}

func TestLimiterDomainsAreIndependent(t *testing.T) {
	metrics.Init()

	l := New(Config{QPS: 1, Burst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "https://a.com/1"); err != nil {
		t.Fatalf("Wait(a.com) error = %v", err)
	}

	start := time.Now()
	if err := l.Wait(ctx, "https://b.com/1"); err != nil {
		t.Fatalf("Wait(b.com) error = %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Fatal("b.com was blocked by a.com's bucket")
	}
}

func TestLimiterRespectsContext(t *testing.T) {
	metrics.Init()

	l := New(Config{QPS: 0.1, Burst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "https://slow.com/1"); err != nil {
		t.Fatalf("priming Wait() error = %v", err)
	}

	timed, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(timed, "https://slow.com/2"); err == nil {
		t.Fatal("expected context error waiting for a 10s token")
	}
}

func TestLimiterZeroQPSDisablesPacing(t *testing.T) {
	metrics.Init()

	l := New(Config{QPS: 0})
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := l.Wait(ctx, "https://fast.com/r"); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("unlimited limiter introduced delay")
	}
}
