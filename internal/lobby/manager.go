package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/pwbot/internal/clock"
	"github.com/foxseedlab/pwbot/internal/config"
	"github.com/foxseedlab/pwbot/internal/discord"
	"github.com/foxseedlab/pwbot/internal/fault"
)

const expiryIOTimeout = 30 * time.Second

// ErrLobbyExists is returned when the owner already runs a lobby.
var ErrLobbyExists = errors.New("owner already has an active lobby")

type OpenRequest struct {
	OwnerID   string
	ChannelID string
	Players   int
	Name      string
}

// Manager tracks active lobbies by owner and by announcement message.
// Lock order is Session.mu before Manager.mu.
type Manager struct {
	cfg     *config.Config
	discord discord.Client
	clock   clock.Clock
	emoji   discord.Emoji

	mu        sync.Mutex
	byOwner   map[string]*Session
	byMessage map[string]*Session
}

func NewManager(cfg *config.Config, dc discord.Client, c clock.Clock) *Manager {
	return &Manager{
		cfg:       cfg,
		discord:   dc,
		clock:     c,
		emoji:     discord.ParseEmoji(cfg.LobbyEmoji),
		byOwner:   make(map[string]*Session),
		byMessage: make(map[string]*Session),
	}
}

// ParseOpenArgs reads "[players] [name...]". A missing count uses the default.
func ParseOpenArgs(args []string, defaultPlayers int) (int, string, error) {
	if len(args) == 0 {
		return defaultPlayers, "", nil
	}
	players, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, "", fault.Validationf("lobby.parse_args", "player count %q is not a number", args[0])
	}
	return players, strings.Join(args[1:], " "), nil
}

func (m *Manager) Open(ctx context.Context, req OpenRequest) (Info, error) {
	const op = "lobby.open"
	if !m.cfg.IsLobbyChannel(req.ChannelID) {
		return Info{}, fault.Denied(op)
	}
	// An owner with a running lobby hears about it even when the count is invalid.
	if m.sessionByOwner(req.OwnerID) != nil {
		return Info{}, fault.New(fault.Validation, op, ErrLobbyExists)
	}
	if req.Players < config.MinLobbyPlayers || req.Players > config.MaxLobbyPlayers {
		return Info{}, fault.Validationf(op, "player count %d is out of range", req.Players)
	}

	s := newSession(req.OwnerID, req.ChannelID, strings.TrimSpace(req.Name), req.Players)
	s.mu.Lock()
	defer s.mu.Unlock()

	m.mu.Lock()
	if _, exists := m.byOwner[req.OwnerID]; exists {
		m.mu.Unlock()
		return Info{}, fault.New(fault.Validation, op, ErrLobbyExists)
	}
	m.byOwner[req.OwnerID] = s
	m.mu.Unlock()

	embed := announceEmbed(s.name, s.required)
	msg, err := m.discord.SendChannelMessage(ctx, req.ChannelID, "", &embed)
	if err != nil {
		s.closed = true
		m.untrack(s)
		return Info{}, fault.IO(op, fmt.Errorf("failed to send announcement: %w", err))
	}
	s.messageID = msg.ID

	m.mu.Lock()
	m.byMessage[msg.ID] = s
	m.mu.Unlock()

	s.expiresAt = m.clock.Now().Add(m.cfg.LobbyTimeout)
	s.timer = m.clock.AfterFunc(m.cfg.LobbyTimeout, func() { m.expire(s) })

	if err := m.discord.AddReaction(ctx, req.ChannelID, msg.ID, m.emoji); err != nil {
		slog.Warn("failed to add lobby join reaction", "owner_id", req.OwnerID, "message_id", msg.ID, "error", err)
	}
	slog.Info("lobby opened", "owner_id", req.OwnerID, "channel_id", req.ChannelID, "message_id", msg.ID, "required_players", req.Players, "name", s.name)
	return s.infoLocked(), nil
}

// Disband closes the owner's lobby. It is a NotFound fault when there is none.
func (m *Manager) Disband(ctx context.Context, ownerID, detail string) error {
	s := m.sessionByOwner(ownerID)
	if s == nil {
		return fault.NotFoundf("lobby.disband", "owner %s has no lobby", ownerID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.disbandLocked(ctx, s, Reason{Kind: ReasonManual, Detail: strings.TrimSpace(detail)})
}

func (m *Manager) expire(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), expiryIOTimeout)
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := m.disbandLocked(ctx, s, Reason{Kind: ReasonTimeout}); err != nil {
		slog.Error("failed to disband expired lobby", "owner_id", s.ownerID, "message_id", s.messageID, "error", err)
	}
}

// HandleReaction applies a join or leave on a lobby announcement. Events
// outside lobby channels, from the bot, with another emoji or for unknown
// messages are ignored.
func (m *Manager) HandleReaction(ctx context.Context, ev discord.ReactionEvent) error {
	if !m.cfg.IsLobbyChannel(ev.ChannelID) || !ev.Emoji.Matches(m.emoji) {
		return nil
	}
	if botID, err := m.discord.GetBotUserID(); err == nil && ev.UserID == botID {
		return nil
	}
	s := m.sessionByMessage(ev.MessageID)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if ev.Added {
		return m.joinLocked(ctx, s, ev.UserID)
	}
	return m.leaveLocked(ctx, s, ev.UserID)
}

func (m *Manager) joinLocked(ctx context.Context, s *Session, userID string) error {
	const op = "lobby.join"
	if userID == s.ownerID && s.hasPlayer(userID) {
		s.armed = false
		return fault.IO(op, m.discord.RemoveOwnReaction(ctx, s.channelID, s.messageID, m.emoji))
	}
	if s.hasPlayer(userID) {
		return nil
	}
	s.addPlayer(userID)
	slog.Debug("lobby player joined", "owner_id", s.ownerID, "user_id", userID, "players", len(s.players), "required_players", s.required)

	if s.armed {
		s.armed = false
		if err := m.discord.RemoveOwnReaction(ctx, s.channelID, s.messageID, m.emoji); err != nil {
			slog.Warn("failed to remove lobby join reaction", "message_id", s.messageID, "error", err)
		}
	}
	if s.isFull() {
		return m.disbandLocked(ctx, s, Reason{Kind: ReasonFull})
	}
	return nil
}

func (m *Manager) leaveLocked(ctx context.Context, s *Session, userID string) error {
	if !s.hasPlayer(userID) {
		return nil
	}
	// The owner stays while anyone else is waiting with them.
	if userID == s.ownerID && len(s.players) > 1 {
		return nil
	}
	s.removePlayer(userID)
	slog.Debug("lobby player left", "owner_id", s.ownerID, "user_id", userID, "players", len(s.players))
	if len(s.players) > 0 {
		return nil
	}
	s.armed = true
	return fault.IO("lobby.leave", m.discord.AddReaction(ctx, s.channelID, s.messageID, m.emoji))
}

// disbandLocked runs at most once per session; later callers find it closed.
func (m *Manager) disbandLocked(ctx context.Context, s *Session, reason Reason) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if reason.Kind != ReasonTimeout {
		s.timer.Stop()
	}
	if !m.untrack(s) {
		return nil
	}
	slog.Info("lobby closed", "owner_id", s.ownerID, "message_id", s.messageID, "reason", reason.Kind.String(), "players", len(s.players))

	var errs []error
	if err := m.discord.ClearReactions(ctx, s.channelID, s.messageID); err != nil {
		errs = append(errs, fmt.Errorf("failed to clear reactions: %w", err))
	}
	if _, err := m.discord.SendChannelMessage(ctx, s.channelID, closedNotice(s.ownerID, s.players, reason), nil); err != nil {
		errs = append(errs, fmt.Errorf("failed to send notice: %w", err))
	}
	if err := m.discord.EditMessageEmbed(ctx, s.channelID, s.messageID, closedEmbed(s.name, reason)); err != nil {
		errs = append(errs, fmt.Errorf("failed to edit announcement: %w", err))
	}
	return fault.IO("lobby.disband", errors.Join(errs...))
}

// untrack reports whether s was still registered.
func (m *Manager) untrack(s *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byOwner[s.ownerID] != s {
		return false
	}
	delete(m.byOwner, s.ownerID)
	if s.messageID != "" {
		delete(m.byMessage, s.messageID)
	}
	return true
}

func (m *Manager) sessionByOwner(ownerID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byOwner[ownerID]
}

func (m *Manager) sessionByMessage(messageID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byMessage[messageID]
}

// Active lists open lobbies ordered by owner id.
func (m *Manager) Active() []Info {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.byOwner))
	for _, s := range m.byOwner {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	out := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		if !s.closed && s.messageID != "" {
			out = append(out, s.infoLocked())
		}
		s.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.OwnerID, b.OwnerID) })
	return out
}

// Shutdown stops every pending expiry timer without touching the announcements.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.byOwner))
	for _, s := range m.byOwner {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.mu.Lock()
		s.timer.Stop()
		s.mu.Unlock()
	}
}
