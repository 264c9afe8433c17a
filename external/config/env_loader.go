package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/pwbot/internal/config"
	"github.com/joho/godotenv"
)

type envConfig struct {
	Env                  string        `env:"ENV" envDefault:"production"`
	DatabaseURL          string        `env:"DATABASE_URL,required"`
	DiscordToken         string        `env:"DISCORD_TOKEN,required"`
	DiscordGuildID       string        `env:"DISCORD_GUILD_ID,required"`
	CommandPrefix        string        `env:"COMMAND_PREFIX" envDefault:"?"`
	TicketCategoryID     string        `env:"TICKET_CATEGORY_ID,required"`
	ReportCategoryID     string        `env:"REPORT_CATEGORY_ID,required"`
	LogChannelID         string        `env:"LOG_CHANNEL_ID,required"`
	TicketCreateLog      bool          `env:"TICKET_CREATE_LOG" envDefault:"true"`
	ReportCreateLog      bool          `env:"REPORT_CREATE_LOG" envDefault:"true"`
	TicketReactionEmoji  string        `env:"TICKET_REACTION_EMOJI" envDefault:"⭐"`
	LobbyChannelIDs      []string      `env:"LOBBY_CHANNEL_IDS,required" envSeparator:","`
	LobbyEmoji           string        `env:"LOBBY_EMOJI,required"`
	LobbyDefaultPlayers  int           `env:"LOBBY_DEFAULT_PLAYERS" envDefault:"5"`
	LobbyTimeout         time.Duration `env:"LOBBY_TIMEOUT" envDefault:"6h"`
	LFGChannelID         string        `env:"LFG_CHANNEL_ID"`
	JanitorInterval      time.Duration `env:"JANITOR_INTERVAL" envDefault:"24h"`
	TranscriptTimezone   string        `env:"TRANSCRIPT_TIMEZONE" envDefault:"UTC"`
	TranscriptWebhookURL string        `env:"TRANSCRIPT_WEBHOOK_URL"`
	RedisAddr            string        `env:"REDIS_ADDR"`
	RedisPassword        string        `env:"REDIS_PASSWORD"`
	RedisDB              int           `env:"REDIS_DB" envDefault:"0"`
	HealthAddr           string        `env:"HEALTH_ADDR"`
	SettingsPath         string        `env:"SETTINGS_PATH" envDefault:"settings.yaml"`
}

// Load reads an optional dotenv file and then the process environment.
// A missing dotenv file is not an error.
func Load(envFile string) (*internalconfig.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                  raw.Env,
		DatabaseURL:          raw.DatabaseURL,
		DiscordToken:         raw.DiscordToken,
		DiscordGuildID:       raw.DiscordGuildID,
		CommandPrefix:        raw.CommandPrefix,
		TicketCategoryID:     raw.TicketCategoryID,
		ReportCategoryID:     raw.ReportCategoryID,
		LogChannelID:         raw.LogChannelID,
		TicketCreateLog:      raw.TicketCreateLog,
		ReportCreateLog:      raw.ReportCreateLog,
		TicketReactionEmoji:  raw.TicketReactionEmoji,
		LobbyChannelIDs:      raw.LobbyChannelIDs,
		LobbyEmoji:           raw.LobbyEmoji,
		LobbyDefaultPlayers:  raw.LobbyDefaultPlayers,
		LobbyTimeout:         raw.LobbyTimeout,
		LFGChannelID:         raw.LFGChannelID,
		JanitorInterval:      raw.JanitorInterval,
		TranscriptTimezone:   raw.TranscriptTimezone,
		TranscriptWebhookURL: raw.TranscriptWebhookURL,
		RedisAddr:            raw.RedisAddr,
		RedisPassword:        raw.RedisPassword,
		RedisDB:              raw.RedisDB,
		HealthAddr:           raw.HealthAddr,
		SettingsPath:         raw.SettingsPath,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
