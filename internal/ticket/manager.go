package ticket

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/pwbot/internal/clock"
	"github.com/foxseedlab/pwbot/internal/config"
	"github.com/foxseedlab/pwbot/internal/dedupe"
	"github.com/foxseedlab/pwbot/internal/discord"
	"github.com/foxseedlab/pwbot/internal/fault"
	"github.com/foxseedlab/pwbot/internal/repository"
	"github.com/foxseedlab/pwbot/internal/settings"
	"github.com/foxseedlab/pwbot/internal/webhook"
)

const (
	maxIssueLength = 90
	reactionWindow = 10 * time.Second
)

// TypeConfig is what differs between tickets and reports.
type TypeConfig struct {
	CategoryID   string
	LogChannelID string
	CreateLog    bool
}

type Manager struct {
	guildID   string
	types     map[repository.TicketType]TypeConfig
	openEmoji discord.Emoji
	location  *time.Location

	repo     repository.TicketRepository
	discord  discord.Client
	settings settings.Store
	webhook  webhook.Sender
	guard    dedupe.Guard
	clock    clock.Clock
}

func NewManager(cfg *config.Config, repo repository.TicketRepository, dc discord.Client, st settings.Store, wh webhook.Sender, guard dedupe.Guard, c clock.Clock) *Manager {
	return &Manager{
		guildID: cfg.DiscordGuildID,
		types: map[repository.TicketType]TypeConfig{
			repository.TicketTypeTicket: {CategoryID: cfg.TicketCategoryID, LogChannelID: cfg.LogChannelID, CreateLog: cfg.TicketCreateLog},
			repository.TicketTypeReport: {CategoryID: cfg.ReportCategoryID, LogChannelID: cfg.LogChannelID, CreateLog: cfg.ReportCreateLog},
		},
		openEmoji: discord.ParseEmoji(cfg.TicketReactionEmoji),
		location:  cfg.TranscriptLocation(),
		repo:      repo,
		discord:   dc,
		settings:  st,
		webhook:   wh,
		guard:     guard,
		clock:     c,
	}
}

// OpenFromCommand removes the invoking message and opens a ticket for its author.
func (m *Manager) OpenFromCommand(ctx context.Context, ev discord.CommandEvent, ticketType repository.TicketType) (*discord.Channel, error) {
	if err := m.discord.DeleteMessage(ctx, ev.ChannelID, ev.MessageID); err != nil {
		return nil, fault.IO("ticket.open_from_command", fmt.Errorf("failed to delete command message: %w", err))
	}
	guildID := ev.GuildID
	if guildID == "" {
		guildID = m.guildID
	}
	return m.open(ctx, guildID, ev.AuthorID, ev.RawArgs(), ticketType)
}

// OpenFromReaction handles reactions on the ticket and report anchor
// messages. Every reaction there is removed; only the configured emoji
// opens a ticket.
func (m *Manager) OpenFromReaction(ctx context.Context, ev discord.ReactionEvent) error {
	if !ev.Added {
		return nil
	}
	ticketType, ok := m.anchorType(ev.MessageID)
	if !ok {
		return nil
	}
	if err := m.discord.RemoveReaction(ctx, ev.ChannelID, ev.MessageID, ev.Emoji, ev.UserID); err != nil {
		return fault.IO("ticket.open_from_reaction", fmt.Errorf("failed to remove reaction: %w", err))
	}
	if !ev.Emoji.Matches(m.openEmoji) {
		return nil
	}
	claimed, err := m.guard.Claim(ctx, fmt.Sprintf("ticket-reaction:%s:%s", ev.MessageID, ev.UserID), reactionWindow)
	if err != nil {
		slog.Warn("duplicate guard unavailable; opening ticket anyway", "message_id", ev.MessageID, "user_id", ev.UserID, "error", err)
	} else if !claimed {
		slog.Debug("ignoring repeated ticket reaction", "message_id", ev.MessageID, "user_id", ev.UserID)
		return nil
	}
	guildID := ev.GuildID
	if guildID == "" {
		guildID = m.guildID
	}
	_, err = m.open(ctx, guildID, ev.UserID, "", ticketType)
	return err
}

func (m *Manager) anchorType(messageID string) (repository.TicketType, bool) {
	if messageID == "" {
		return 0, false
	}
	s := m.settings.Get()
	switch messageID {
	case s.TicketMessage:
		return repository.TicketTypeTicket, true
	case s.ReportMessage:
		return repository.TicketTypeReport, true
	default:
		return 0, false
	}
}

func (m *Manager) open(ctx context.Context, guildID, authorID, issue string, ticketType repository.TicketType) (*discord.Channel, error) {
	const op = "ticket.open"
	tc := m.types[ticketType]
	issue = truncateIssue(issue)

	id, err := m.repo.NextTicketID(ctx)
	if err != nil {
		return nil, fault.IO(op, fmt.Errorf("failed to allocate ticket id: %w", err))
	}
	ch, err := m.discord.CreateChannel(ctx, discord.ChannelSpec{
		GuildID:           guildID,
		CategoryID:        tc.CategoryID,
		Name:              channelName(id, issue, ticketType),
		ReadAccessUserIDs: []string{authorID},
	})
	if err != nil {
		return nil, fault.IO(op, fmt.Errorf("failed to create channel for ticket %d: %w", id, err))
	}
	if err := m.repo.InsertTicket(ctx, repository.InsertTicketInput{
		ID:        id,
		ChannelID: ch.ID,
		AuthorID:  authorID,
		Type:      ticketType,
		Issue:     issue,
		CreatedAt: m.clock.Now(),
	}); err != nil {
		slog.Error("ticket channel created but record not stored", "ticket_id", id, "channel_id", ch.ID, "author_id", authorID, "error", err)
		return nil, fault.Inconsistent(op, fmt.Errorf("channel %s for ticket %d is orphaned: %w", ch.ID, id, err))
	}
	slog.Info("ticket opened", "ticket_id", id, "channel_id", ch.ID, "author_id", authorID, "type", ticketType.String())

	if _, err := m.discord.SendChannelMessage(ctx, ch.ID, discord.Mention(authorID), &discord.Embed{
		Description: openMessage(ticketType, discord.Mention(authorID)),
		Color:       colorOpen,
	}); err != nil {
		return ch, fault.IO(op, fmt.Errorf("failed to send opening message: %w", err))
	}
	return ch, nil
}

// CloseFromCommand archives and deletes a ticket channel. Channels that are
// not tickets are left alone. The record is kept and marked closed.
func (m *Manager) CloseFromCommand(ctx context.Context, channelID, reason string) error {
	const op = "ticket.close"
	t, err := m.repo.GetTicketByChannel(ctx, channelID)
	if err != nil {
		return fault.IO(op, err)
	}
	if t == nil {
		return nil
	}
	tc := m.types[t.Type]
	if tc.CreateLog {
		if err := m.deliverTranscript(ctx, t, tc.LogChannelID); err != nil {
			return fault.IO(op, err)
		}
	}
	if err := m.discord.DeleteChannel(ctx, channelID, reason); err != nil {
		return fault.IO(op, fmt.Errorf("failed to delete channel: %w", err))
	}
	if err := m.repo.MarkTicketClosed(ctx, t.ID, m.clock.Now()); err != nil {
		slog.Error("failed to mark ticket closed", "ticket_id", t.ID, "channel_id", channelID, "error", err)
	}
	slog.Info("ticket closed", "ticket_id", t.ID, "channel_id", channelID, "reason", reason)
	return nil
}

func (m *Manager) deliverTranscript(ctx context.Context, t *repository.Ticket, logChannelID string) error {
	tr, err := m.collectTranscript(ctx, t.ChannelID)
	if err != nil {
		return err
	}
	archive, err := m.buildArchive(ctx, tr)
	if err != nil {
		return err
	}
	filename := archiveFilename(t)
	// The log message body is the archive name.
	if err := m.discord.SendChannelMessageWithFile(ctx, discord.FileMessage{
		ChannelID: logChannelID,
		Content:   filename,
		Filename:  filename,
		FileBody:  archive,
	}); err != nil {
		return fmt.Errorf("failed to send transcript: %w", err)
	}
	if err := m.webhook.SendTranscript(ctx, filename, archive); err != nil {
		slog.Warn("failed to mirror transcript to webhook", "ticket_id", t.ID, "error", err)
	}
	return nil
}

// IsTicketChannel reports whether a ticket record owns channelID.
func (m *Manager) IsTicketChannel(ctx context.Context, channelID string) (bool, error) {
	ok, err := m.repo.TicketExistsForChannel(ctx, channelID)
	if err != nil {
		return false, fault.IO("ticket.is_ticket_channel", err)
	}
	return ok, nil
}

// IsTicketAuthor reports whether userID opened the ticket in channelID.
func (m *Manager) IsTicketAuthor(ctx context.Context, channelID, userID string) (bool, error) {
	t, err := m.repo.GetTicketByChannel(ctx, channelID)
	if err != nil {
		return false, fault.IO("ticket.is_ticket_author", err)
	}
	return t != nil && t.AuthorID == userID, nil
}

func truncateIssue(issue string) string {
	runes := []rune(issue)
	if len(runes) <= maxIssueLength {
		return issue
	}
	return string(runes[:maxIssueLength])
}

func channelName(id int64, issue string, ticketType repository.TicketType) string {
	if issue == "" {
		return fmt.Sprintf("%d-%s", id, ticketType)
	}
	return fmt.Sprintf("%d-%s", id, issue)
}
