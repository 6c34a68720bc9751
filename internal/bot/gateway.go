package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-mutekick/internal/decision"
	"go-mutekick/internal/models"

	"github.com/bwmarrin/discordgo"
)

const membersPageSize = 1000

// Gateway reads guild data for the cache and the engine. It prefers the
// gateway-maintained state and falls back to REST.
type Gateway struct {
	session *discordgo.Session
}

func NewGateway(session *discordgo.Session) *Gateway {
	return &Gateway{session: session}
}

// FetchRoster returns roles, channels and members of the guild.
func (g *Gateway) FetchRoster(ctx context.Context, guildID string) (models.Roster, error) {
	if guild, err := g.session.State.Guild(guildID); err == nil {
		g.session.State.RLock()
		defer g.session.State.RUnlock()
		return rosterFromGuild(guild), nil
	}
	return g.fetchRosterREST(ctx, guildID)
}

func (g *Gateway) fetchRosterREST(ctx context.Context, guildID string) (models.Roster, error) {
	guild, err := g.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return models.Roster{}, fmt.Errorf("fetch guild %s: %w", guildID, err)
	}

	channels, err := g.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return models.Roster{}, fmt.Errorf("fetch channels of %s: %w", guildID, err)
	}
	guild.Channels = channels

	after := ""
	for {
		page, err := g.session.GuildMembers(guildID, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return models.Roster{}, fmt.Errorf("fetch members of %s: %w", guildID, err)
		}
		guild.Members = append(guild.Members, page...)
		if len(page) < membersPageSize {
			break
		}
		after = page[len(page)-1].User.ID
	}

	return rosterFromGuild(guild), nil
}

// FetchMember re-reads one member. Voice presence comes from the gateway state,
// which discordgo updates before dispatching events.
func (g *Gateway) FetchMember(ctx context.Context, guildID, memberID string) (models.Member, error) {
	member, err := g.session.GuildMember(guildID, memberID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return models.Member{}, fmt.Errorf("fetch member %s: %w", memberID, decision.ErrMemberNotFound)
		}
		return models.Member{}, fmt.Errorf("fetch member %s: %w", memberID, err)
	}

	vs, err := g.session.State.VoiceState(guildID, memberID)
	if err != nil {
		vs = nil
	}
	return toMember(member, vs), nil
}

// Guild returns the guild from state, or over REST when the state has not seen it.
func (g *Gateway) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if guild, err := g.session.State.Guild(guildID); err == nil {
		return guild, nil
	}
	return g.session.Guild(guildID, discordgo.WithContext(ctx))
}

// Channel looks a channel up in state, then over REST.
func (g *Gateway) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if ch, err := g.session.State.Channel(channelID); err == nil {
		return ch, nil
	}
	return g.session.Channel(channelID, discordgo.WithContext(ctx))
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
