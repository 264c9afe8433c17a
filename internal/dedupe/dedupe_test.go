package dedupe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/pwbot/internal/clock"
)

func TestMemoryGuard_ClaimOnceWithinTTL(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	g := NewMemoryGuard(fc)
	ctx := context.Background()

	ok, err := g.Claim(ctx, "command:1", 10*time.Second)
	if err != nil || !ok {
		t.Fatalf("expected first claim to win: %v %v", ok, err)
	}
	ok, _ = g.Claim(ctx, "command:1", 10*time.Second)
	if ok {
		t.Fatal("expected second claim within ttl to lose")
	}
	ok, _ = g.Claim(ctx, "command:2", 10*time.Second)
	if !ok {
		t.Fatal("expected unrelated key to be claimable")
	}

	fc.Advance(10 * time.Second)
	ok, _ = g.Claim(ctx, "command:1", 10*time.Second)
	if !ok {
		t.Fatal("expected claim after ttl to win")
	}
}

func TestMemoryGuard_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	g := NewMemoryGuard(clock.Real())
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := g.Claim(context.Background(), "reaction:1:2", time.Minute)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestMemoryGuard_CanceledContext(t *testing.T) {
	g := NewMemoryGuard(clock.Real())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Claim(ctx, "k", time.Second); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
