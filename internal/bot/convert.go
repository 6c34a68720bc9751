package bot

import (
	"go-mutekick/internal/models"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

// rosterFromGuild copies a discordgo guild into plain snapshots. Members that
// only appear through a voice state are included.
func rosterFromGuild(guild *discordgo.Guild) models.Roster {
	voice := lo.SliceToMap(guild.VoiceStates, func(vs *discordgo.VoiceState) (string, *discordgo.VoiceState) {
		return vs.UserID, vs
	})

	roster := models.Roster{
		GuildName: guild.Name,
		Roles: lo.Map(guild.Roles, func(r *discordgo.Role, _ int) models.Role {
			return models.Role{ID: r.ID, Name: r.Name}
		}),
		Channels: lo.Map(guild.Channels, func(c *discordgo.Channel, _ int) models.Channel {
			return toChannel(c)
		}),
	}

	seen := make(map[string]struct{}, len(guild.Members))
	for _, m := range guild.Members {
		if m.User == nil {
			continue
		}
		seen[m.User.ID] = struct{}{}
		roster.Members = append(roster.Members, toMember(m, voice[m.User.ID]))
	}
	for userID, vs := range voice {
		if _, ok := seen[userID]; ok || vs.Member == nil || vs.Member.User == nil {
			continue
		}
		roster.Members = append(roster.Members, toMember(vs.Member, vs))
	}

	return roster
}

func toChannel(c *discordgo.Channel) models.Channel {
	return models.Channel{ID: c.ID, Name: c.Name, TextBase: isTextBased(c.Type)}
}

// isTextBased reports whether messages can be posted to the channel type.
func isTextBased(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildVoice,
		discordgo.ChannelTypeGuildStageVoice,
		discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread:
		return true
	default:
		return false
	}
}

func toMember(m *discordgo.Member, vs *discordgo.VoiceState) models.Member {
	member := models.Member{
		RoleIDs: append([]string(nil), m.Roles...),
	}
	if m.User != nil {
		member.ID = m.User.ID
		member.Tag = m.User.String()
		member.Bot = m.User.Bot
	}
	member.DisplayName = displayName(m)
	if vs != nil {
		member.Presence = toPresence(vs)
	}
	return member
}

func displayName(m *discordgo.Member) string {
	switch {
	case m.Nick != "":
		return m.Nick
	case m.User == nil:
		return ""
	case m.User.GlobalName != "":
		return m.User.GlobalName
	default:
		return m.User.Username
	}
}

func toPresence(vs *discordgo.VoiceState) models.Presence {
	if vs == nil {
		return models.Presence{}
	}
	return models.Presence{ChannelID: vs.ChannelID, SelfMute: vs.SelfMute, SelfDeafen: vs.SelfDeaf}
}

// presenceEvent converts a gateway voice update. member is the best known
// member record and may be nil, in which case roles are left unknown.
func presenceEvent(vsu *discordgo.VoiceStateUpdate, member *discordgo.Member) models.PresenceEvent {
	ev := models.PresenceEvent{
		GuildID:  vsu.GuildID,
		MemberID: vsu.UserID,
		Old:      toPresence(vsu.BeforeUpdate),
		New:      toPresence(vsu.VoiceState),
	}
	if member == nil {
		return ev
	}

	ev.RoleIDs = append([]string{}, member.Roles...)
	ev.DisplayName = displayName(member)
	if member.User != nil {
		ev.Tag = member.User.String()
		ev.Bot = member.User.Bot
	}
	return ev
}
