package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

// GuildLookup resolves the guild and channels checked at ready time.
type GuildLookup interface {
	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
}

// validateGuild fails when the guild cannot be reached or the log channel cannot
// take messages. Configured roles missing from the guild only produce a warning.
func validateGuild(ctx context.Context, lookup GuildLookup, guildID, logChannelID string, roleIDs []string) error {
	guild, err := lookup.Guild(ctx, guildID)
	if err != nil || guild == nil {
		return fmt.Errorf("%w: %s: %v", ErrGuildUnavailable, guildID, err)
	}

	channel, err := lookup.Channel(ctx, logChannelID)
	if err != nil || channel == nil {
		return fmt.Errorf("%w: %s: %v", ErrLogChannelInvalid, logChannelID, err)
	}
	if !isTextChannel(channel.Type) {
		return fmt.Errorf("%w: %s has type %d", ErrLogChannelInvalid, logChannelID, channel.Type)
	}

	if len(guild.Roles) > 0 {
		known := lo.Map(guild.Roles, func(r *discordgo.Role, _ int) string { return r.ID })
		if missing := lo.Without(lo.Uniq(roleIDs), known...); len(missing) > 0 {
			slog.Warn("Configured roles not found in guild", "guild", guildID, "roles", missing)
		}
	}

	slog.Info("Guild validated", "guild", guild.Name, "logChannel", channel.Name)
	return nil
}

func isTextChannel(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews, discordgo.ChannelTypeGuildVoice:
		return true
	default:
		return false
	}
}
