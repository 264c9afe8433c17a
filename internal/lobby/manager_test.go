package lobby

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/pwbot/internal/clock"
	"github.com/foxseedlab/pwbot/internal/config"
	"github.com/foxseedlab/pwbot/internal/discord"
	"github.com/foxseedlab/pwbot/internal/discord/discordtest"
	"github.com/foxseedlab/pwbot/internal/fault"
)

var high5 = discord.Emoji{ID: "42", Name: "high5"}

func newTestManager(t *testing.T) (*Manager, *discordtest.Fake, *clock.FakeClock) {
	t.Helper()
	cfg := &config.Config{
		LobbyChannelIDs:     []string{"beta", "tournaments"},
		LobbyEmoji:          "high5:42",
		LobbyDefaultPlayers: 5,
		LobbyTimeout:        6 * time.Hour,
	}
	dc := discordtest.New()
	fc := clock.NewFake(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	return NewManager(cfg, dc, fc), dc, fc
}

func openLobby(t *testing.T, m *Manager, ownerID string, players int) Info {
	t.Helper()
	info, err := m.Open(context.Background(), OpenRequest{OwnerID: ownerID, ChannelID: "beta", Players: players})
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	return info
}

func react(m *Manager, info Info, userID string, added bool) error {
	return m.HandleReaction(context.Background(), discord.ReactionEvent{
		ChannelID: info.ChannelID,
		MessageID: info.MessageID,
		UserID:    userID,
		Emoji:     high5,
		Added:     added,
	})
}

func TestOpen_RegistersByOwnerAndMessage(t *testing.T) {
	for players := config.MinLobbyPlayers; players <= config.MaxLobbyPlayers; players++ {
		m, dc, fc := newTestManager(t)
		info := openLobby(t, m, "owner", players)

		if m.sessionByOwner("owner") == nil || m.sessionByMessage(info.MessageID) == nil {
			t.Fatalf("players=%d: expected session under both keys", players)
		}
		if m.sessionByOwner("owner") != m.sessionByMessage(info.MessageID) {
			t.Fatalf("players=%d: expected one session", players)
		}
		if len(info.Players) != 1 || info.Players[0] != "owner" || info.Required != players {
			t.Fatalf("players=%d: unexpected info %+v", players, info)
		}
		if !info.ExpiresAt.Equal(fc.Now().Add(6 * time.Hour)) {
			t.Fatalf("players=%d: unexpected expiry %s", players, info.ExpiresAt)
		}
		if adds := dc.ReactionCalls("AddReaction"); len(adds) != 1 || !adds[0].Emoji.Matches(high5) {
			t.Fatalf("players=%d: expected join affordance, got %+v", players, adds)
		}
		if fc.Pending() != 1 {
			t.Fatalf("players=%d: expected one pending timer, got %d", players, fc.Pending())
		}
	}
}

func TestOpen_AnnouncementCarriesName(t *testing.T) {
	m, dc, _ := newTestManager(t)
	if _, err := m.Open(context.Background(), OpenRequest{OwnerID: "owner", ChannelID: "beta", Players: 4, Name: "group alpha"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dc.Sent[0].Embed == nil || dc.Sent[0].Embed.Title != "Looking for players: group alpha" {
		t.Fatalf("unexpected announcement: %+v", dc.Sent[0].Embed)
	}
}

func TestOpen_RejectsSecondLobbyForOwner(t *testing.T) {
	m, dc, _ := newTestManager(t)
	openLobby(t, m, "owner", 4)

	_, err := m.Open(context.Background(), OpenRequest{OwnerID: "owner", ChannelID: "beta", Players: 4})
	if !errors.Is(err, ErrLobbyExists) {
		t.Fatalf("expected ErrLobbyExists, got %v", err)
	}
	if dc.SentCount() != 1 {
		t.Fatalf("expected a single announcement, got %d", dc.SentCount())
	}
	if len(m.Active()) != 1 {
		t.Fatal("expected one active lobby")
	}
}

func TestOpen_ExistingLobbyWinsOverBadPlayerCount(t *testing.T) {
	m, dc, _ := newTestManager(t)
	openLobby(t, m, "owner", 4)

	_, err := m.Open(context.Background(), OpenRequest{OwnerID: "owner", ChannelID: "beta", Players: 9})
	if !errors.Is(err, ErrLobbyExists) {
		t.Fatalf("expected ErrLobbyExists, got %v", err)
	}
	if dc.SentCount() != 1 {
		t.Fatalf("expected a single announcement, got %d", dc.SentCount())
	}
}

func TestOpen_ConcurrentOpensCreateOneLobby(t *testing.T) {
	m, dc, _ := newTestManager(t)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Open(context.Background(), OpenRequest{OwnerID: "owner", ChannelID: "beta", Players: 3})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if success != 1 || dc.SentCount() != 1 {
		t.Fatalf("expected exactly one lobby, got %d successes and %d announcements", success, dc.SentCount())
	}
}

func TestOpen_RejectsOutOfRangePlayers(t *testing.T) {
	m, dc, _ := newTestManager(t)
	for _, n := range []int{1, 9, 0, -3} {
		_, err := m.Open(context.Background(), OpenRequest{OwnerID: "owner", ChannelID: "beta", Players: n})
		if !fault.Is(err, fault.Validation) {
			t.Fatalf("players=%d: expected validation error, got %v", n, err)
		}
	}
	if dc.SentCount() != 0 || len(m.Active()) != 0 {
		t.Fatal("expected no lobby")
	}
}

func TestOpen_RejectsNonLobbyChannel(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.Open(context.Background(), OpenRequest{OwnerID: "owner", ChannelID: "general", Players: 4})
	if !fault.Is(err, fault.PermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestOpen_SendFailureReleasesOwner(t *testing.T) {
	m, dc, _ := newTestManager(t)
	dc.Errors["SendChannelMessage"] = errors.New("missing access")
	if _, err := m.Open(context.Background(), OpenRequest{OwnerID: "owner", ChannelID: "beta", Players: 4}); !fault.Is(err, fault.TransientIO) {
		t.Fatalf("expected transient io error, got %v", err)
	}
	delete(dc.Errors, "SendChannelMessage")
	openLobby(t, m, "owner", 4)
}

func TestParseOpenArgs(t *testing.T) {
	players, name, err := ParseOpenArgs(nil, 5)
	if err != nil || players != 5 || name != "" {
		t.Fatalf("unexpected defaults: %d %q %v", players, name, err)
	}
	players, name, err = ParseOpenArgs([]string{"4", "group", "alpha"}, 5)
	if err != nil || players != 4 || name != "group alpha" {
		t.Fatalf("unexpected parse: %d %q %v", players, name, err)
	}
	if _, _, err := ParseOpenArgs([]string{"group"}, 5); !fault.Is(err, fault.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandleReaction_FirstJoinRemovesAffordance(t *testing.T) {
	m, dc, _ := newTestManager(t)
	info := openLobby(t, m, "owner", 4)

	if err := react(m, info, "p1", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := react(m, info, "p2", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(dc.ReactionCalls("RemoveOwnReaction")); got != 1 {
		t.Fatalf("expected bot reaction removed once, got %d", got)
	}
	if got := m.sessionByOwner("owner").Info().Players; len(got) != 3 {
		t.Fatalf("unexpected players: %+v", got)
	}
}

func TestHandleReaction_FillsAndClosesOnce(t *testing.T) {
	m, dc, fc := newTestManager(t)
	info := openLobby(t, m, "owner", 3)

	_ = react(m, info, "p1", true)
	if err := react(m, info, "p2", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.sessionByOwner("owner") != nil || m.sessionByMessage(info.MessageID) != nil {
		t.Fatal("expected lobby untracked")
	}
	var notices []string
	for _, s := range dc.Sent {
		if strings.HasPrefix(s.Content, "You have enough players") {
			notices = append(notices, s.Content)
		}
	}
	if len(notices) != 1 || notices[0] != "You have enough players to start a game! <@owner>, <@p1>, <@p2>" {
		t.Fatalf("unexpected full notice: %+v", notices)
	}
	if len(dc.Edits) != 1 || dc.Edits[0].Embed.Title != "Lobby Full!" {
		t.Fatalf("unexpected embed edit: %+v", dc.Edits)
	}
	if len(dc.ReactionCalls("ClearReactions")) != 1 {
		t.Fatal("expected reactions cleared")
	}
	if fc.Pending() != 0 {
		t.Fatal("expected expiry timer cancelled")
	}

	sent := dc.SentCount()
	_ = react(m, info, "p3", true)
	fc.Advance(7 * time.Hour)
	if dc.SentCount() != sent || len(dc.Edits) != 1 {
		t.Fatal("expected closed lobby to ignore further events")
	}
}

func TestHandleReaction_OwnerReReactRemovesBotReaction(t *testing.T) {
	m, dc, _ := newTestManager(t)
	info := openLobby(t, m, "owner", 4)

	if err := react(m, info, "owner", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dc.ReactionCalls("RemoveOwnReaction")) != 1 {
		t.Fatal("expected bot reaction removed")
	}
	if got := m.sessionByOwner("owner").Info().Players; len(got) != 1 {
		t.Fatalf("expected membership unchanged: %+v", got)
	}
}

func TestHandleReaction_OwnerUnreactKeepsOwnerWhileOthersWait(t *testing.T) {
	m, _, _ := newTestManager(t)
	info := openLobby(t, m, "owner", 4)
	_ = react(m, info, "p1", true)

	_ = react(m, info, "owner", false)
	players := m.sessionByOwner("owner").Info().Players
	if len(players) != 2 || players[0] != "owner" {
		t.Fatalf("expected owner to remain: %+v", players)
	}
}

func TestHandleReaction_EmptyLobbyRearmsAffordance(t *testing.T) {
	m, dc, _ := newTestManager(t)
	info := openLobby(t, m, "owner", 4)
	_ = react(m, info, "p1", true)
	_ = react(m, info, "p1", false)
	_ = react(m, info, "owner", false)

	if got := m.sessionByOwner("owner").Info().Players; len(got) != 0 {
		t.Fatalf("expected empty lobby: %+v", got)
	}
	if adds := dc.ReactionCalls("AddReaction"); len(adds) != 2 {
		t.Fatalf("expected affordance re-added, got %d adds", len(adds))
	}

	_ = react(m, info, "p2", true)
	if got := len(dc.ReactionCalls("RemoveOwnReaction")); got != 2 {
		t.Fatalf("expected re-armed affordance to be removed on next join, got %d", got)
	}
}

func TestHandleReaction_IgnoresForeignEvents(t *testing.T) {
	m, dc, _ := newTestManager(t)
	info := openLobby(t, m, "owner", 2)
	before := len(dc.Reactions)

	_ = m.HandleReaction(context.Background(), discord.ReactionEvent{ChannelID: "beta", MessageID: info.MessageID, UserID: "p1", Emoji: discord.Emoji{Name: "👍"}, Added: true})
	_ = m.HandleReaction(context.Background(), discord.ReactionEvent{ChannelID: "general", MessageID: info.MessageID, UserID: "p1", Emoji: high5, Added: true})
	_ = m.HandleReaction(context.Background(), discord.ReactionEvent{ChannelID: "beta", MessageID: "other", UserID: "p1", Emoji: high5, Added: true})
	_ = m.HandleReaction(context.Background(), discord.ReactionEvent{ChannelID: "beta", MessageID: info.MessageID, UserID: "bot-self", Emoji: high5, Added: true})

	if len(dc.Reactions) != before {
		t.Fatalf("expected no reaction side effects: %+v", dc.Reactions[before:])
	}
	if got := m.sessionByOwner("owner").Info().Players; len(got) != 1 {
		t.Fatalf("expected membership unchanged: %+v", got)
	}
}

func TestDisband_ManualWithReason(t *testing.T) {
	m, dc, fc := newTestManager(t)
	info := openLobby(t, m, "owner", 4)

	if err := m.Disband(context.Background(), "owner", "we agreed it was a bad idea"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.sessionByOwner("owner") != nil || m.sessionByMessage(info.MessageID) != nil {
		t.Fatal("expected lobby untracked")
	}
	if last := dc.Sent[len(dc.Sent)-1]; last.Content != "<@owner> your lobby was disbanded." {
		t.Fatalf("unexpected notice: %q", last.Content)
	}
	if len(dc.Edits) != 1 || dc.Edits[0].Embed.Description != "This lobby was disbanded: we agreed it was a bad idea" {
		t.Fatalf("unexpected embed edit: %+v", dc.Edits)
	}
	if fc.Pending() != 0 {
		t.Fatal("expected expiry timer cancelled")
	}

	fc.Advance(7 * time.Hour)
	if len(dc.Edits) != 1 {
		t.Fatal("expected no second disband after the deadline")
	}
	if err := m.Disband(context.Background(), "owner", ""); !fault.Is(err, fault.NotFound) {
		t.Fatalf("expected not found on second disband, got %v", err)
	}
	openLobby(t, m, "owner", 4)
}

func TestExpiry_DisbandsWithTimeoutReason(t *testing.T) {
	m, dc, fc := newTestManager(t)
	openLobby(t, m, "owner", 4)

	fc.Advance(6*time.Hour - time.Second)
	if m.sessionByOwner("owner") == nil {
		t.Fatal("expected lobby alive before the deadline")
	}
	fc.Advance(time.Second)
	if m.sessionByOwner("owner") != nil {
		t.Fatal("expected lobby expired")
	}
	if len(dc.Edits) != 1 || dc.Edits[0].Embed.Description != "This lobby timed out before enough players joined." {
		t.Fatalf("unexpected embed edit: %+v", dc.Edits)
	}
	if err := m.Disband(context.Background(), "owner", ""); !fault.Is(err, fault.NotFound) {
		t.Fatalf("expected not found after expiry, got %v", err)
	}
}

func TestDisband_IndependentLobbiesInParallel(t *testing.T) {
	m, dc, _ := newTestManager(t)
	owners := []string{"a", "b", "c", "d", "e", "f"}
	for _, o := range owners {
		openLobby(t, m, o, 4)
	}
	var wg sync.WaitGroup
	for _, o := range owners {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = m.Disband(context.Background(), o, "")
		}()
		go func() {
			defer wg.Done()
			_ = m.Disband(context.Background(), o, "")
		}()
	}
	wg.Wait()
	if len(m.Active()) != 0 {
		t.Fatal("expected no active lobbies")
	}
	if len(dc.Edits) != len(owners) {
		t.Fatalf("expected one close per lobby, got %d", len(dc.Edits))
	}
}

func TestActive_ListsSnapshots(t *testing.T) {
	m, _, _ := newTestManager(t)
	openLobby(t, m, "b-owner", 3)
	openLobby(t, m, "a-owner", 5)

	active := m.Active()
	if len(active) != 2 || active[0].OwnerID != "a-owner" || active[1].Required != 3 {
		t.Fatalf("unexpected active list: %+v", active)
	}
	active[0].Players[0] = "mutated"
	if m.sessionByOwner("a-owner").Info().Players[0] != "a-owner" {
		t.Fatal("expected snapshot to be a copy")
	}
}
