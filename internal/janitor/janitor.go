// Package janitor periodically clears the looking-for-group channel, keeping
// pinned messages.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/pwbot/internal/clock"
	"github.com/foxseedlab/pwbot/internal/discord"
	"github.com/foxseedlab/pwbot/internal/fault"
)

const runTimeout = 10 * time.Minute

type Janitor struct {
	channelID string
	interval  time.Duration
	discord   discord.Client
	clock     clock.Clock
}

func New(channelID string, interval time.Duration, dc discord.Client, c clock.Clock) *Janitor {
	return &Janitor{channelID: channelID, interval: interval, discord: dc, clock: c}
}

// Run purges once immediately and then every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()
	slog.Info("janitor started", "channel_id", j.channelID, "interval", j.interval.String())

	j.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("janitor stopped", "channel_id", j.channelID)
			return
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

func (j *Janitor) runLogged(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	deleted, err := j.RunOnce(runCtx)
	if err != nil {
		slog.Warn("janitor run failed", "channel_id", j.channelID, "error", err)
		return
	}
	slog.Info("janitor run finished", "channel_id", j.channelID, "deleted", deleted)
}

// RunOnce deletes every unpinned message. An unknown channel is skipped.
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	const op = "janitor.run"
	ch, err := j.discord.ResolveChannel(ctx, j.channelID)
	if err != nil {
		return 0, fault.IO(op, fmt.Errorf("failed to resolve channel: %w", err))
	}
	if ch == nil {
		slog.Debug("janitor channel not found; skipping", "channel_id", j.channelID)
		return 0, nil
	}
	pins, err := j.discord.FetchPinned(ctx, ch.ID)
	if err != nil {
		return 0, fault.IO(op, fmt.Errorf("failed to fetch pins: %w", err))
	}
	pinned := make(map[string]struct{}, len(pins))
	for _, p := range pins {
		pinned[p.ID] = struct{}{}
	}
	deleted, err := j.discord.PurgeMessages(ctx, ch.ID, func(m discord.Message) bool {
		if m.Pinned {
			return true
		}
		_, ok := pinned[m.ID]
		return ok
	})
	if err != nil {
		return deleted, fault.IO(op, fmt.Errorf("failed to purge messages: %w", err))
	}
	return deleted, nil
}
