package throttle

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 1 {
		t.Errorf("expected burst 1 for negative input, got %d", l2.defaultBurst)
	}

	l3 := NewLimiter(0, 1)
	if l3.defaultRate != rate.Inf {
		t.Errorf("expected unlimited rate for zero rps, got %v", l3.defaultRate)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://www.openinfo.gov.bc.ca/ibc/search/results.page"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "http://openinfo.gov.bc.ca/"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()
	url := "http://example.com"

	if err := limiter.Wait(ctx, url); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx2, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx2, url); err == nil {
		t.Error("expected second wait to exceed the deadline")
	}
}

func TestLimiter_SetCrawlDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)
	limiter.SetCrawlDelay("example.com", 2*time.Second)

	got := limiter.get("example.com").Limit()
	if got != rate.Every(2*time.Second) {
		t.Errorf("expected crawl delay limit, got %v", got)
	}

	// A looser delay must not relax an existing stricter one
	limiter.SetCrawlDelay("example.com", 10*time.Millisecond)
	if limiter.get("example.com").Limit() != rate.Every(2*time.Second) {
		t.Error("expected stricter crawl delay to be kept")
	}
}

func TestLimiter_InvalidURL(t *testing.T) {
	limiter := NewLimiter(10, 1)
	if err := limiter.Wait(context.Background(), "://bad"); err == nil {
		t.Error("expected error for invalid url")
	}
}
