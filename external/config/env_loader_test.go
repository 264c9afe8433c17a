package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/pwbot")
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DISCORD_GUILD_ID", "guild-1")
	t.Setenv("TICKET_CATEGORY_ID", "cat-ticket")
	t.Setenv("REPORT_CATEGORY_ID", "cat-report")
	t.Setenv("LOG_CHANNEL_ID", "log-1")
	t.Setenv("LOBBY_CHANNEL_IDS", "beta,tournaments")
	t.Setenv("LOBBY_EMOJI", "high5:42")
}

func TestLoad_AppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CommandPrefix != "?" {
		t.Fatalf("unexpected prefix: %q", cfg.CommandPrefix)
	}
	if cfg.LobbyTimeout != 6*time.Hour {
		t.Fatalf("unexpected lobby timeout: %s", cfg.LobbyTimeout)
	}
	if cfg.JanitorInterval != 24*time.Hour {
		t.Fatalf("unexpected janitor interval: %s", cfg.JanitorInterval)
	}
	if !cfg.TicketCreateLog || !cfg.ReportCreateLog {
		t.Fatal("expected transcript logging to default to enabled")
	}
	if len(cfg.LobbyChannelIDs) != 2 || cfg.LobbyChannelIDs[1] != "tournaments" {
		t.Fatalf("unexpected lobby channels: %+v", cfg.LobbyChannelIDs)
	}
	if cfg.TicketReactionEmoji != "⭐" {
		t.Fatalf("unexpected ticket emoji: %q", cfg.TicketReactionEmoji)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DISCORD_TOKEN", "")
	os.Unsetenv("DISCORD_TOKEN")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error when DISCORD_TOKEN is missing")
	}
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	setRequiredEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing env file to be ignored, got %v", err)
	}
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LFG_CHANNEL_ID", "")
	os.Unsetenv("LFG_CHANNEL_ID")
	path := filepath.Join(t.TempDir(), "bot.env")
	if err := os.WriteFile(path, []byte("LFG_CHANNEL_ID=lfg-1\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("LFG_CHANNEL_ID") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LFGChannelID != "lfg-1" {
		t.Fatalf("expected LFG channel from env file, got %q", cfg.LFGChannelID)
	}
}

func TestLoad_InvalidPlayers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOBBY_DEFAULT_PLAYERS", "12")

	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for default players")
	}
}
