// Package roles grants and revokes roles from reactions on the configured
// reaction-role message.
package roles

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/foxseedlab/pwbot/internal/discord"
	"github.com/foxseedlab/pwbot/internal/fault"
	"github.com/foxseedlab/pwbot/internal/settings"
)

type Binder struct {
	discord  discord.Client
	settings settings.Store
}

func NewBinder(dc discord.Client, st settings.Store) *Binder {
	return &Binder{discord: dc, settings: st}
}

func (b *Binder) HandleReaction(ctx context.Context, ev discord.ReactionEvent) error {
	s := b.settings.Get()
	if s.ReactionMessage == "" || ev.MessageID != s.ReactionMessage {
		return nil
	}
	roleID, _ := s.RoleFor(ev.Emoji.Key())

	if !ev.Added {
		if roleID == "" {
			return nil
		}
		slog.Info("revoking reaction role", "user_id", ev.UserID, "role_id", roleID)
		return fault.IO("roles.revoke", b.discord.RevokeRole(ctx, ev.GuildID, ev.UserID, roleID))
	}
	if roleID == "" {
		if err := b.discord.RemoveReaction(ctx, ev.ChannelID, ev.MessageID, ev.Emoji, ev.UserID); err != nil {
			return fault.IO("roles.grant", fmt.Errorf("failed to revert reaction: %w", err))
		}
		return nil
	}
	slog.Info("granting reaction role", "user_id", ev.UserID, "role_id", roleID)
	return fault.IO("roles.grant", b.discord.GrantRole(ctx, ev.GuildID, ev.UserID, roleID))
}
