package commands

import "github.com/bwmarrin/discordgo"

const (
	CommandMuteKick = "mutekick"
	CommandConfig   = "config"
)

// Definitions returns the guild application commands registered at ready time.
func Definitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandMuteKick,
			Description: "Control mute kick enforcement",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "on",
					Description: "Enable mute kick enforcement",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
				{
					Name:        "off",
					Description: "Disable mute kick enforcement",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
				{
					Name:        "status",
					Description: "Show enforcement status",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
			},
		},
		{
			Name:        CommandConfig,
			Description: "Bot configuration and diagnostics",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "reload",
					Description: "Reload the guild cache",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
				{
					Name:        "stats",
					Description: "Show bot statistics",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
				{
					Name:        "exempt",
					Description: "List exempt voice channels",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
			},
		},
	}
}
