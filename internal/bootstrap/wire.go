package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go-mutekick/internal/bot"
	"go-mutekick/internal/commands"
	"go-mutekick/internal/decision"
	"go-mutekick/internal/metrics"
	"go-mutekick/internal/notifier"
	"go-mutekick/internal/state"
	"go-mutekick/internal/watchdog"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
)

const (
	watchdogInterval = 15 * time.Second

	// discordgo heartbeats roughly every 41s; two missed acks is a dead link.
	gatewaySilenceThreshold = 2 * time.Minute
)

// Wire builds the component graph. Nothing touches the network here.
func Wire(ctx context.Context, b *Bootstrap) error {
	slog.Info("Wiring components...")
	cfg := b.Config
	clock := clockwork.NewRealClock()

	session, err := bot.New(cfg.Bot.Token)
	if err != nil {
		return err
	}

	gateway := bot.NewGateway(session.Discord())
	discord := notifier.NewDiscord(session.Discord())

	cache := state.NewCache(gateway, clock, state.Options{
		GuildID:         cfg.Bot.GuildID,
		RefreshInterval: cfg.CacheRefreshInterval(),
		ExemptKeyword:   cfg.Enforcement.ExemptKeyword,
	})

	batcher := notifier.NewBatcher(discord, cfg.Bot.LogChannelID, clock, cfg.LogBatchDelay())

	engine := decision.NewEngine(decision.Settings{
		GuildID:        cfg.Bot.GuildID,
		LogChannelID:   cfg.Bot.LogChannelID,
		Timeout:        cfg.Timeout(),
		ExemptChannels: cfg.Enforcement.ExemptChannels,
		IgnoredRoles:   cfg.IgnoredRoles(),
	}, clock, cache, gateway, discord, batcher)

	cooldowns := decision.NewCooldownManager(clock)

	dog := watchdog.NewWatchdog(clock, watchdogInterval)
	dog.RegisterComponent("gateway", gatewaySilenceThreshold, session.LastHeartbeatAck)

	handler := commands.NewHandler(commands.Deps{
		Config:    cfg,
		Engine:    engine,
		Cache:     cache,
		Cooldowns: cooldowns,
		Logs:      batcher,
		Health:    dog,
		Clock:     clock,
	})

	router := bot.NewRouter(ctx, cfg.Bot.GuildID, engine, handler)
	router.Register(session)

	var exporter *metrics.Exporter
	if cfg.Metrics.Addr != "" {
		exporter = metrics.NewExporter(cfg.Metrics.Addr)
	}

	c := &Components{
		Session:   session,
		Gateway:   gateway,
		Router:    router,
		Cache:     cache,
		Engine:    engine,
		Cooldowns: cooldowns,
		Batcher:   batcher,
		Notifier:  discord,
		Commands:  handler,
		Metrics:   exporter,
		Watchdog:  dog,
	}
	b.Components = c

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.onReady(r)
	})
	session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		if g.ID != cfg.Bot.GuildID || g.Unavailable {
			return
		}
		b.readyOnce.Do(func() {
			b.ready <- b.prepare(ctx)
		})
	})

	slog.Info("Components wired", "guild", cfg.Bot.GuildID, "timeout", cfg.Timeout(), "exemptChannels", len(cfg.Enforcement.ExemptChannels))
	return nil
}

func (b *Bootstrap) onReady(r *discordgo.Ready) {
	if r.User != nil {
		slog.Info("Bot logged in", "user", r.User.String())
	}
	for _, g := range r.Guilds {
		if g.ID == b.Config.Bot.GuildID {
			return
		}
	}
	b.signalReady(fmt.Errorf("%w: bot is not a member of guild %s", ErrGuildUnavailable, b.Config.Bot.GuildID))
}

// prepare runs once the configured guild is available: validate it, load the
// cache, register commands and open the engine to events.
func (b *Bootstrap) prepare(ctx context.Context) error {
	c := b.Components
	cfg := b.Config

	if err := validateGuild(ctx, c.Gateway, cfg.Bot.GuildID, cfg.Bot.LogChannelID, cfg.IgnoredRoles()); err != nil {
		return err
	}

	if err := c.Session.RequestMembers(cfg.Bot.GuildID); err != nil {
		slog.Warn("Member list request failed, relying on voice state members", "error", err)
	}

	c.Cache.Refresh(ctx)

	if err := c.Session.RegisterCommands(ctx, cfg.Bot.AppID, cfg.Bot.GuildID, commands.Definitions()); err != nil {
		slog.Error("Failed to register commands", "error", err)
	}

	c.Engine.SetReady(true)
	slog.Info("Bot is ready", "guild", c.Cache.GuildName())
	return nil
}
