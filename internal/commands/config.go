package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

func (h *Handler) handleConfig(ctx context.Context, inv Invocation, r Responder) (bool, error) {
	if !h.canConfigure(inv) {
		return false, r.Respond(ctx, Reply{Content: denyOwner, Ephemeral: true})
	}

	switch inv.Subcommand {
	case "reload":
		return true, h.handleReload(ctx, inv, r)
	case "stats":
		return true, h.handleStats(ctx, inv, r)
	case "exempt":
		return true, h.handleExempt(ctx, inv, r)
	default:
		return false, fmt.Errorf("unknown config subcommand: %s", inv.Subcommand)
	}
}

// handleReload forces a roster pull. A failed pull is reported to the invoker
// and still counts as an executed command.
func (h *Handler) handleReload(ctx context.Context, inv Invocation, r Responder) error {
	if err := h.Cache.TryRefresh(ctx); err != nil {
		slog.Error("Configuration reload failed", "user", inv.SubjectTag, "error", err)
		return r.Respond(ctx, Reply{
			Content:   "❌ Failed to reload configuration. Check logs for details.",
			Ephemeral: true,
		})
	}

	slog.Info("Configuration reloaded", "user", inv.SubjectTag)

	stats := h.Cache.Stats()
	embed := &discordgo.MessageEmbed{
		Title:       "🔄 Configuration Reloaded",
		Description: "✅ Bot cache and configuration have been reloaded successfully.",
		Color:       colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📊 Cache Stats", Value: cacheSummary(stats.Roles, stats.Channels, stats.Members), Inline: true},
			{Name: "⚡ Active Cooldowns", Value: strconv.Itoa(h.Cooldowns.ActiveCount()), Inline: true},
		},
		Timestamp: h.timestamp(),
	}
	return r.Respond(ctx, Reply{Embed: embed, Ephemeral: true})
}

func (h *Handler) handleExempt(ctx context.Context, inv Invocation, r Responder) error {
	var list strings.Builder
	for _, id := range h.Config.Enforcement.ExemptChannels {
		if ch, ok := h.Cache.Channel(id); ok {
			fmt.Fprintf(&list, "• <#%s> - **%s**\n", id, ch.Name)
		} else {
			fmt.Fprintf(&list, "• `%s` - *Channel not found*\n", id)
		}
	}
	if list.Len() == 0 {
		list.WriteString("*None configured*\n")
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🔇 Exempt Voice Channels",
		Description: "These channels are **exempt** from mute kick enforcement:\n\n" + list.String(),
		Color:       colorOrange,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📊 Total", Value: fmt.Sprintf("%d channels", len(h.Config.Enforcement.ExemptChannels)), Inline: true},
			{Name: "🎯 Enforcement", Value: onOff(h.Engine.Enabled(), "✅ Active", "❌ Disabled"), Inline: true},
		},
		Footer:    h.footer(inv),
		Timestamp: h.timestamp(),
	}
	return r.Respond(ctx, Reply{Embed: embed, Ephemeral: true})
}

func cacheSummary(roles, channels, members int) string {
	return fmt.Sprintf("Roles: %d\nChannels: %d\nMembers: %d", roles, channels, members)
}
