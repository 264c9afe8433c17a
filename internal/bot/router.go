// Package bot routes gateway events to the ticket, lobby and role components
// and keeps one failing handler from affecting the next event.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/foxseedlab/pwbot/internal/config"
	"github.com/foxseedlab/pwbot/internal/dedupe"
	"github.com/foxseedlab/pwbot/internal/discord"
	"github.com/foxseedlab/pwbot/internal/fault"
	"github.com/foxseedlab/pwbot/internal/lobby"
	"github.com/foxseedlab/pwbot/internal/repository"
	"github.com/foxseedlab/pwbot/internal/settings"
	"github.com/google/uuid"
)

const (
	handlerTimeout = 2 * time.Minute
	commandTTL     = 10 * time.Minute
)

type TicketService interface {
	OpenFromCommand(ctx context.Context, ev discord.CommandEvent, ticketType repository.TicketType) (*discord.Channel, error)
	OpenFromReaction(ctx context.Context, ev discord.ReactionEvent) error
	CloseFromCommand(ctx context.Context, channelID, reason string) error
	IsTicketChannel(ctx context.Context, channelID string) (bool, error)
	IsTicketAuthor(ctx context.Context, channelID, userID string) (bool, error)
}

type LobbyService interface {
	Open(ctx context.Context, req lobby.OpenRequest) (lobby.Info, error)
	Disband(ctx context.Context, ownerID, detail string) error
	HandleReaction(ctx context.Context, ev discord.ReactionEvent) error
}

type ReactionHandler interface {
	HandleReaction(ctx context.Context, ev discord.ReactionEvent) error
}

type Router struct {
	cfg      *config.Config
	discord  discord.Client
	tickets  TicketService
	lobbies  LobbyService
	roles    ReactionHandler
	settings settings.Store
	guard    dedupe.Guard
}

func NewRouter(cfg *config.Config, dc discord.Client, tickets TicketService, lobbies LobbyService, roles ReactionHandler, st settings.Store, guard dedupe.Guard) *Router {
	return &Router{
		cfg:      cfg,
		discord:  dc,
		tickets:  tickets,
		lobbies:  lobbies,
		roles:    roles,
		settings: st,
		guard:    guard,
	}
}

func (r *Router) Register() {
	r.discord.RegisterReactionHandler(r.HandleReaction)
	r.discord.RegisterCommandHandler(r.cfg.CommandPrefix, r.HandleCommand)
}

func newEventLogger(kind string, attrs ...any) *slog.Logger {
	return slog.With(append([]any{"event_id", uuid.NewString(), "event", kind}, attrs...)...)
}

func recoverHandler(logger *slog.Logger) {
	if rec := recover(); rec != nil {
		logger.Error("handler panicked", "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
	}
}

func (r *Router) HandleReaction(ev discord.ReactionEvent) {
	logger := newEventLogger("reaction",
		"guild_id", ev.GuildID, "channel_id", ev.ChannelID, "message_id", ev.MessageID,
		"user_id", ev.UserID, "emoji", ev.Emoji.APIName(), "added", ev.Added)
	defer recoverHandler(logger)

	if ev.GuildID != "" && ev.GuildID != r.cfg.DiscordGuildID {
		return
	}
	if botID, err := r.discord.GetBotUserID(); err == nil && ev.UserID == botID {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	handlers := []struct {
		name string
		run  func(context.Context, discord.ReactionEvent) error
	}{
		{"ticket", r.tickets.OpenFromReaction},
		{"roles", r.roles.HandleReaction},
		{"lobby", r.lobbies.HandleReaction},
	}
	for _, h := range handlers {
		if err := r.runReaction(ctx, logger, h.name, h.run, ev); err != nil {
			logHandlerError(logger.With("handler", h.name), err)
		}
	}
}

// runReaction isolates one component so a panic there still lets the others see the event.
func (r *Router) runReaction(ctx context.Context, logger *slog.Logger, name string, run func(context.Context, discord.ReactionEvent) error, ev discord.ReactionEvent) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("reaction handler panicked", "handler", name, "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
			err = nil
		}
	}()
	return run(ctx, ev)
}

func (r *Router) HandleCommand(ev discord.CommandEvent) {
	logger := newEventLogger("command",
		"guild_id", ev.GuildID, "channel_id", ev.ChannelID, "message_id", ev.MessageID,
		"user_id", ev.AuthorID, "command", ev.Name)
	defer recoverHandler(logger)

	if ev.GuildID != r.cfg.DiscordGuildID {
		logger.Debug("ignoring command for different guild", "configured_guild_id", r.cfg.DiscordGuildID)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	claimed, err := r.guard.Claim(ctx, "command:"+ev.MessageID, commandTTL)
	if err != nil {
		logger.Warn("duplicate guard unavailable; handling command anyway", "error", err)
	} else if !claimed {
		logger.Info("ignoring duplicate command delivery")
		return
	}

	var cmdErr error
	switch ev.Name {
	case "ticket":
		cmdErr = r.openTicket(ctx, ev, repository.TicketTypeTicket)
	case "report":
		cmdErr = r.openTicket(ctx, ev, repository.TicketTypeReport)
	case "close":
		cmdErr = r.closeTicket(ctx, ev)
	case "lobby":
		cmdErr = r.lobbyCommand(ctx, ev)
	case "set":
		cmdErr = r.setCommand(ctx, ev)
	default:
		return
	}
	r.reportCommandError(logger, ev, cmdErr)
}

func (r *Router) openTicket(ctx context.Context, ev discord.CommandEvent, ticketType repository.TicketType) error {
	_, err := r.tickets.OpenFromCommand(ctx, ev, ticketType)
	return err
}

func (r *Router) closeTicket(ctx context.Context, ev discord.CommandEvent) error {
	const op = "bot.close"
	isTicket, err := r.tickets.IsTicketChannel(ctx, ev.ChannelID)
	if err != nil {
		return err
	}
	if !isTicket {
		return fault.Denied(op)
	}
	isAuthor, err := r.tickets.IsTicketAuthor(ctx, ev.ChannelID, ev.AuthorID)
	if err != nil {
		return err
	}
	if !isAuthor {
		return fault.Denied(op)
	}
	return r.tickets.CloseFromCommand(ctx, ev.ChannelID, ev.RawArgs())
}

func (r *Router) lobbyCommand(ctx context.Context, ev discord.CommandEvent) error {
	if !r.cfg.IsLobbyChannel(ev.ChannelID) {
		return fault.Denied("bot.lobby")
	}
	if len(ev.Args) > 0 && strings.EqualFold(ev.Args[0], "disband") {
		return r.lobbies.Disband(ctx, ev.AuthorID, strings.Join(ev.Args[1:], " "))
	}
	players, name, err := lobby.ParseOpenArgs(ev.Args, r.cfg.LobbyDefaultPlayers)
	if err != nil {
		return err
	}
	_, err = r.lobbies.Open(ctx, lobby.OpenRequest{
		OwnerID:   ev.AuthorID,
		ChannelID: ev.ChannelID,
		Players:   players,
		Name:      name,
	})
	return err
}

func (r *Router) setCommand(ctx context.Context, ev discord.CommandEvent) error {
	const op = "bot.set"
	ok, err := r.discord.CanManageGuild(ctx, ev.ChannelID, ev.AuthorID)
	if err != nil {
		return fault.IO(op, err)
	}
	if !ok {
		return fault.Denied(op)
	}
	if len(ev.Args) < 2 {
		return reply(ev, messageSetUsage)
	}
	key, value := ev.Args[0], strings.Join(ev.Args[1:], " ")
	if err := r.settings.Update(ctx, key, value); err != nil {
		if fault.Is(err, fault.Validation) {
			return reply(ev, fmt.Sprintf(messageUnknownSetting, key))
		}
		return fault.IO(op, err)
	}
	slog.Info("setting updated", "key", key, "user_id", ev.AuthorID)
	return reply(ev, fmt.Sprintf(messageSettingUpdated, key))
}

func reply(ev discord.CommandEvent, content string) error {
	if ev.Reply == nil {
		return nil
	}
	return fault.IO("bot.reply", ev.Reply(content))
}

func (r *Router) reportCommandError(logger *slog.Logger, ev discord.CommandEvent, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, lobby.ErrLobbyExists) {
		if rerr := reply(ev, lobby.MessageLobbyExists); rerr != nil {
			logger.Warn("failed to reply", "error", rerr)
		}
		return
	}
	logHandlerError(logger, err)
	switch fault.KindOf(err) {
	case fault.TransientIO, fault.Consistency, fault.Unknown:
		if rerr := reply(ev, messageCommandFailed); rerr != nil {
			logger.Warn("failed to reply", "error", rerr)
		}
	}
}

func logHandlerError(logger *slog.Logger, err error) {
	kind := fault.KindOf(err)
	switch kind {
	case fault.Validation, fault.NotFound, fault.PermissionDenied:
		logger.Debug("event rejected", "kind", kind.String(), "error", err)
	case fault.Consistency:
		logger.Error("event left inconsistent state", "kind", kind.String(), "error", err)
	default:
		logger.Error("event handling failed", "kind", kind.String(), "error", err)
	}
}
