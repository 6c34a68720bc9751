package commands

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go-mutekick/internal/config"
	"go-mutekick/internal/decision"
	"go-mutekick/internal/metrics"
	"go-mutekick/internal/models"
	"go-mutekick/internal/state"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
)

// Invocation is one slash command call, already decoded from the interaction.
type Invocation struct {
	SubjectID  string
	SubjectTag string
	RoleIDs    []string
	Command    string
	Subcommand string
}

type Reply struct {
	Content   string
	Embed     *discordgo.MessageEmbed
	Ephemeral bool
}

// Responder answers a single interaction: at most one Defer, one Respond
// (which edits the deferred reply if there is one), then any number of FollowUps.
type Responder interface {
	Defer(ctx context.Context, ephemeral bool) error
	Respond(ctx context.Context, reply Reply) error
	FollowUp(ctx context.Context, reply Reply) error
}

// Enforcer is the engine surface the commands read and toggle.
type Enforcer interface {
	SetEnabled(enabled bool)
	Enabled() bool
	Ready() bool
	PendingCount() int
	Timeout() time.Duration
}

// Roster is the cache surface the diagnostics commands use.
type Roster interface {
	TryRefresh(ctx context.Context) error
	Stats() state.Stats
	GuildName() string
	Channel(id string) (models.Channel, bool)
}

// HealthReporter reports watchdog status per component.
type HealthReporter interface {
	GetStatus() map[string]bool
}

// Backlog reports how many log lines are waiting to be flushed.
type Backlog interface {
	Len() int
}

type Deps struct {
	Config    *config.Config
	Engine    Enforcer
	Cache     Roster
	Cooldowns *decision.CooldownManager
	Logs      Backlog
	Health    HealthReporter
	Clock     clockwork.Clock
}

// Handler routes slash command invocations.
type Handler struct {
	Deps
	startedAt time.Time
}

func NewHandler(deps Deps) *Handler {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &Handler{Deps: deps, startedAt: deps.Clock.Now()}
}

// Dispatch runs one invocation. Cooldown rejections answer immediately;
// everything else is deferred first. A cooldown is only recorded for
// invocations that actually executed.
func (h *Handler) Dispatch(ctx context.Context, inv Invocation, r Responder) error {
	log := slog.With("command", inv.Command, "subcommand", inv.Subcommand, "user", inv.SubjectTag)

	if h.Cooldowns.IsActive(inv.SubjectID, inv.Command) {
		wait := int(math.Ceil(h.Cooldowns.Remaining(inv.SubjectID, inv.Command).Seconds()))
		metrics.CommandInvocations.WithLabelValues(inv.Command, "cooldown").Inc()
		return r.Respond(ctx, Reply{
			Content:   fmt.Sprintf("⏱️ Please wait %ds before using this command again.", wait),
			Ephemeral: true,
		})
	}

	if err := r.Defer(ctx, true); err != nil {
		metrics.CommandInvocations.WithLabelValues(inv.Command, "error").Inc()
		return fmt.Errorf("defer reply: %w", err)
	}

	var (
		executed bool
		err      error
	)
	switch inv.Command {
	case CommandMuteKick:
		executed, err = h.handleMuteKick(ctx, inv, r)
	case CommandConfig:
		executed, err = h.handleConfig(ctx, inv, r)
	default:
		err = fmt.Errorf("unknown command: %s", inv.Command)
	}

	if err != nil {
		metrics.CommandInvocations.WithLabelValues(inv.Command, "error").Inc()
		log.Error("Command execution failed", "error", err)
		if ferr := r.FollowUp(ctx, Reply{Content: "❌ An error occurred while processing your command.", Ephemeral: true}); ferr != nil {
			log.Warn("Failed to report command error", "error", ferr)
		}
		return err
	}

	if !executed {
		metrics.CommandInvocations.WithLabelValues(inv.Command, "denied").Inc()
		return nil
	}

	h.Cooldowns.Set(inv.SubjectID, inv.Command, h.Config.Cooldown())
	metrics.CommandInvocations.WithLabelValues(inv.Command, "ok").Inc()
	return nil
}

func (h *Handler) footer(inv Invocation) *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{Text: "Requested by " + inv.SubjectTag}
}

func (h *Handler) timestamp() string {
	return h.Clock.Now().Format(time.RFC3339)
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%gs", d.Seconds())
}

func onOff(v bool, on, off string) string {
	if v {
		return on
	}
	return off
}
