package config

import (
	"fmt"
	"slices"
	"time"
)

type Config struct {
	Env                  string
	DatabaseURL          string
	DiscordToken         string
	DiscordGuildID       string
	CommandPrefix        string
	TicketCategoryID     string
	ReportCategoryID     string
	LogChannelID         string
	TicketCreateLog      bool
	ReportCreateLog      bool
	TicketReactionEmoji  string
	LobbyChannelIDs      []string
	LobbyEmoji           string
	LobbyDefaultPlayers  int
	LobbyTimeout         time.Duration
	LFGChannelID         string
	JanitorInterval      time.Duration
	TranscriptTimezone   string
	TranscriptWebhookURL string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	HealthAddr           string
	SettingsPath         string
}

const (
	MinLobbyPlayers = 2
	MaxLobbyPlayers = 8
)

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if len(c.LobbyChannelIDs) == 0 {
		return fmt.Errorf("LOBBY_CHANNEL_IDS is required")
	}
	if c.LobbyDefaultPlayers < MinLobbyPlayers || c.LobbyDefaultPlayers > MaxLobbyPlayers {
		return fmt.Errorf("LOBBY_DEFAULT_PLAYERS must be between %d and %d, got %d", MinLobbyPlayers, MaxLobbyPlayers, c.LobbyDefaultPlayers)
	}
	if c.LobbyTimeout <= 0 {
		return fmt.Errorf("LOBBY_TIMEOUT must be positive, got %s", c.LobbyTimeout)
	}
	if c.JanitorInterval <= 0 {
		return fmt.Errorf("JANITOR_INTERVAL must be positive, got %s", c.JanitorInterval)
	}
	if c.TranscriptTimezone == "" {
		return fmt.Errorf("TRANSCRIPT_TIMEZONE is required")
	}
	if _, err := time.LoadLocation(c.TranscriptTimezone); err != nil {
		return fmt.Errorf("TRANSCRIPT_TIMEZONE is invalid: %w", err)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "DISCORD_TOKEN", value: c.DiscordToken},
		{name: "DISCORD_GUILD_ID", value: c.DiscordGuildID},
		{name: "COMMAND_PREFIX", value: c.CommandPrefix},
		{name: "TICKET_CATEGORY_ID", value: c.TicketCategoryID},
		{name: "REPORT_CATEGORY_ID", value: c.ReportCategoryID},
		{name: "LOG_CHANNEL_ID", value: c.LogChannelID},
		{name: "TICKET_REACTION_EMOJI", value: c.TicketReactionEmoji},
		{name: "LOBBY_EMOJI", value: c.LobbyEmoji},
		{name: "SETTINGS_PATH", value: c.SettingsPath},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsLobbyChannel(channelID string) bool {
	return slices.Contains(c.LobbyChannelIDs, channelID)
}

func (c *Config) JanitorEnabled() bool {
	return c.LFGChannelID != ""
}

// TranscriptLocation falls back to UTC; Validate has already rejected bad names.
func (c *Config) TranscriptLocation() *time.Location {
	loc, err := time.LoadLocation(c.TranscriptTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
