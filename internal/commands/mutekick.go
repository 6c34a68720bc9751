package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	colorGreen  = 0x00FF00
	colorRed    = 0xFF0000
	colorBlue   = 0x0099FF
	colorOrange = 0xFFAA00
)

// handleMuteKick toggles or reports enforcement. The bool result is false when
// the invoker was denied.
func (h *Handler) handleMuteKick(ctx context.Context, inv Invocation, r Responder) (bool, error) {
	if !h.canToggle(inv) {
		return false, r.Respond(ctx, Reply{Content: denyOperator, Ephemeral: true})
	}

	var color int
	switch inv.Subcommand {
	case "on":
		h.Engine.SetEnabled(true)
		color = colorGreen
		slog.Info("Mute kick enforcement enabled", "user", inv.SubjectTag)
	case "off":
		h.Engine.SetEnabled(false)
		color = colorRed
		slog.Info("Mute kick enforcement disabled", "user", inv.SubjectTag)
	case "status":
		color = colorBlue
	default:
		return false, fmt.Errorf("unknown mutekick subcommand: %s", inv.Subcommand)
	}

	var description string
	if inv.Subcommand == "status" {
		description = fmt.Sprintf("🟢 Enforcement is **%s**", onOff(h.Engine.Enabled(), "ENABLED", "DISABLED"))
	} else {
		description = fmt.Sprintf("%s Enforcement is now **%s**", onOff(inv.Subcommand == "on", "🟢", "🔴"), strings.ToUpper(inv.Subcommand))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🎮 Mute Kick Enforcement",
		Description: description,
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📊 Statistics", Value: "Active timers: " + strconv.Itoa(h.Engine.PendingCount()), Inline: true},
			{Name: "⏱️ Timeout", Value: seconds(h.Engine.Timeout()), Inline: true},
			{Name: "🔧 Cooldown", Value: seconds(h.Config.Cooldown()), Inline: true},
		},
		Footer:    h.footer(inv),
		Timestamp: h.timestamp(),
	}

	return true, r.Respond(ctx, Reply{Embed: embed, Ephemeral: true})
}
