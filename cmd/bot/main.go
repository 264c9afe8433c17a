package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	configloader "github.com/foxseedlab/pwbot/external/config"
	dedupeimpl "github.com/foxseedlab/pwbot/external/dedupe"
	"github.com/foxseedlab/pwbot/external/discord"
	"github.com/foxseedlab/pwbot/external/health"
	repositoryimpl "github.com/foxseedlab/pwbot/external/repository"
	settingsimpl "github.com/foxseedlab/pwbot/external/settings"
	webhookimpl "github.com/foxseedlab/pwbot/external/webhook"
	"github.com/foxseedlab/pwbot/internal/bot"
	"github.com/foxseedlab/pwbot/internal/clock"
	"github.com/foxseedlab/pwbot/internal/config"
	discordpkg "github.com/foxseedlab/pwbot/internal/discord"
	"github.com/foxseedlab/pwbot/internal/janitor"
	"github.com/foxseedlab/pwbot/internal/lobby"
	"github.com/foxseedlab/pwbot/internal/roles"
	"github.com/foxseedlab/pwbot/internal/ticket"
	"github.com/samber/do/v2"
	"github.com/spf13/pflag"
)

const (
	discordConnectTimeout = 20 * time.Second
	shutdownTimeout       = 10 * time.Second
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	settingsPath := pflag.String("settings", "", "path of the runtime settings file (overrides SETTINGS_PATH)")
	pflag.Parse()

	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig(*envFile, *settingsPath)
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "settings_path", cfg.SettingsPath)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching discord bot")
	runBot(cfg, injector)
}

func mustLoadConfig(envFile, settingsPath string) *config.Config {
	cfg, err := configloader.Load(envFile)
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	if settingsPath != "" {
		cfg.SettingsPath = settingsPath
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, clock.Real())
	repositoryimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	settingsimpl.RegisterDI(injector)
	dedupeimpl.RegisterDI(injector)
	ticket.RegisterDI(injector)
	lobby.RegisterDI(injector)
	roles.RegisterDI(injector)
	janitor.RegisterDI(injector)
	bot.RegisterDI(injector)
	health.RegisterDI(injector)

	return injector
}

func runBot(cfg *config.Config, injector do.Injector) {
	dc := mustInvoke[discordpkg.Client](injector, "discord client")
	router := mustInvoke[*bot.Router](injector, "event router")
	lobbies := mustInvoke[*lobby.Manager](injector, "lobby manager")

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), discordConnectTimeout)
	defer cancelConnect()

	slog.Info("startup: connecting to discord gateway")
	if err := dc.Connect(connectCtx); err != nil {
		slog.Error("discord connect failed", "error", err)
		os.Exit(1)
	}
	slog.Info("startup: discord connected")
	defer func() {
		if err := dc.Close(); err != nil {
			slog.Error("discord close failed", "error", err)
		}
	}()

	router.Register()
	slog.Info("discord handlers registered",
		"guild_id", cfg.DiscordGuildID,
		"prefix", cfg.CommandPrefix,
		"commands", []string{"ticket", "report", "close", "lobby", "set"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.JanitorEnabled() {
		j := mustInvoke[*janitor.Janitor](injector, "janitor")
		go j.Run(ctx)
		slog.Info("startup: janitor scheduled", "channel_id", cfg.LFGChannelID, "interval", cfg.JanitorInterval.String())
	}

	var ops *health.Server
	if cfg.HealthAddr != "" {
		ops = mustInvoke[*health.Server](injector, "health server")
		ops.Start()
	}

	<-ctx.Done()
	slog.Info("shutting down")

	lobbies.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if ops != nil {
		if err := ops.Shutdown(shutdownCtx); err != nil {
			slog.Error("health server shutdown failed", "error", err)
		}
	}
}

func mustInvoke[T any](injector do.Injector, name string) T {
	v, err := do.Invoke[T](injector)
	if err != nil {
		slog.Error("failed to resolve "+name, "error", err)
		os.Exit(1)
	}
	return v
}
