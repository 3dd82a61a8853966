package redis

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRateLimitRepository_Increment(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, "ratelimit")

	ctx := context.Background()
	window := time.Minute

	for want := int64(1); want <= 3; want++ {
		count, remaining, err := repo.Increment(ctx, "login:1.2.3.4", window)
		if err != nil {
			t.Fatalf("Increment returned error: %v", err)
		}
		if count != want {
			t.Fatalf("expected count %d, got %d", want, count)
		}
		if remaining <= 0 || remaining > window {
			t.Fatalf("expected remaining within (0, %v], got %v", window, remaining)
		}
	}
}

func TestRateLimitRepository_ConcurrentIncrementsStayAtomic(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, "ratelimit")

	ctx := context.Background()
	const attempts = 25

	counts := make(chan int64, attempts)
	var start sync.WaitGroup
	start.Add(1)

	for i := 0; i < attempts; i++ {
		go func() {
			start.Wait()
			count, _, err := repo.Increment(ctx, "login:race", time.Minute)
			if err != nil {
				t.Errorf("Increment returned error: %v", err)
				counts <- 0
				return
			}
			counts <- count
		}()
	}
	start.Done()

	// Test-and-increment is atomic, so the observed counts must be a
	// permutation of 1..attempts with no duplicates past the ceiling.
	seen := make(map[int64]bool, attempts)
	for i := 0; i < attempts; i++ {
		count := <-counts
		if count < 1 || count > attempts {
			t.Fatalf("count %d outside [1, %d]", count, attempts)
		}
		if seen[count] {
			t.Fatalf("count %d observed twice", count)
		}
		seen[count] = true
	}
}

func TestRateLimitRepository_WindowReset(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, "ratelimit")

	ctx := context.Background()

	if _, _, err := repo.Increment(ctx, "register:1.2.3.4", time.Minute); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if _, _, err := repo.Increment(ctx, "register:1.2.3.4", time.Minute); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}

	server.FastForward(2 * time.Minute)

	count, _, err := repo.Increment(ctx, "register:1.2.3.4", time.Minute)
	if err != nil {
		t.Fatalf("Increment after window returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected counter to reset to 1, got %d", count)
	}
}

func TestRateLimitRepository_IndependentKeys(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, "ratelimit")

	ctx := context.Background()

	if _, _, err := repo.Increment(ctx, "login:a", time.Minute); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}

	count, _, err := repo.Increment(ctx, "login:b", time.Minute)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected independent key to start at 1, got %d", count)
	}
}

func TestRateLimitRepository_InvalidInput(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, "ratelimit")

	ctx := context.Background()

	if _, _, err := repo.Increment(ctx, "", time.Minute); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, _, err := repo.Increment(ctx, "key", 0); err == nil {
		t.Fatalf("expected error for non-positive window")
	}
}
