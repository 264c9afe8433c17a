package dedupe

import (
	"context"
	"sync"
	"time"

	"github.com/foxseedlab/pwbot/internal/clock"
)

// Guard remembers keys for a while so duplicated gateway events are handled once.
type Guard interface {
	// Claim reports true for the first caller of key within ttl.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type MemoryGuard struct {
	clock clock.Clock

	mu      sync.Mutex
	expires map[string]time.Time
}

func NewMemoryGuard(c clock.Clock) *MemoryGuard {
	return &MemoryGuard{
		clock:   c,
		expires: make(map[string]time.Time),
	}
}

func (g *MemoryGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	now := g.clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()
	for k, exp := range g.expires {
		if !now.Before(exp) {
			delete(g.expires, k)
		}
	}
	if _, held := g.expires[key]; held {
		return false, nil
	}
	g.expires[key] = now.Add(ttl)
	return true, nil
}
