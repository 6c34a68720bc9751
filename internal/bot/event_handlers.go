package bot

import (
	"context"
	"log/slog"

	"go-mutekick/internal/commands"
	"go-mutekick/internal/models"

	"github.com/bwmarrin/discordgo"
)

// PresenceHandler consumes voice presence changes.
type PresenceHandler interface {
	HandleVoiceStateUpdate(ctx context.Context, ev models.PresenceEvent)
}

// CommandDispatcher executes decoded slash commands.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, inv commands.Invocation, r commands.Responder) error
}

// Router turns gateway events for one guild into engine and command calls.
type Router struct {
	ctx      context.Context
	guildID  string
	presence PresenceHandler
	commands CommandDispatcher
}

func NewRouter(ctx context.Context, guildID string, presence PresenceHandler, dispatcher CommandDispatcher) *Router {
	return &Router{ctx: ctx, guildID: guildID, presence: presence, commands: dispatcher}
}

// Register attaches the router's handlers to the session.
func (r *Router) Register(s *Session) {
	s.AddHandler(r.onVoiceStateUpdate)
	s.AddHandler(r.onInteractionCreate)
}

func (r *Router) onVoiceStateUpdate(s *discordgo.Session, vsu *discordgo.VoiceStateUpdate) {
	if vsu.VoiceState == nil || vsu.GuildID != r.guildID {
		return
	}

	member := vsu.Member
	if member == nil {
		if cached, err := s.State.Member(vsu.GuildID, vsu.UserID); err == nil {
			member = cached
		}
	}
	// Without a member record a bot cannot be told apart, so only leaves get through.
	if member == nil && vsu.ChannelID != "" {
		slog.Debug("Skipping voice update for unknown member", "member", vsu.UserID, "channel", vsu.ChannelID)
		return
	}

	r.presence.HandleVoiceStateUpdate(r.ctx, presenceEvent(vsu, member))
}

func (r *Router) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand || i.GuildID != r.guildID || i.Member == nil {
		return
	}

	inv := invocationFrom(i)
	responder := &interactionResponder{session: s, interaction: i.Interaction}

	if err := r.commands.Dispatch(r.ctx, inv, responder); err != nil {
		slog.Error("Command error", "command", inv.Command, "user", inv.SubjectTag, "error", err)
	}
}

func invocationFrom(i *discordgo.InteractionCreate) commands.Invocation {
	data := i.ApplicationCommandData()

	inv := commands.Invocation{
		RoleIDs: append([]string(nil), i.Member.Roles...),
		Command: data.Name,
	}
	if i.Member.User != nil {
		inv.SubjectID = i.Member.User.ID
		inv.SubjectTag = i.Member.User.String()
	}
	if len(data.Options) > 0 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		inv.Subcommand = data.Options[0].Name
	}
	return inv
}

// interactionResponder answers through the interaction webhook. After Defer,
// Respond edits the deferred message instead of creating a new one.
type interactionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	deferred    bool
}

func (r *interactionResponder) Defer(ctx context.Context, ephemeral bool) error {
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags(ephemeral)},
	}, discordgo.WithContext(ctx))
	if err == nil {
		r.deferred = true
	}
	return err
}

func (r *interactionResponder) Respond(ctx context.Context, reply commands.Reply) error {
	embeds := embedsOf(reply)

	if r.deferred {
		edit := &discordgo.WebhookEdit{Embeds: &embeds}
		if reply.Content != "" {
			edit.Content = &reply.Content
		}
		_, err := r.session.InteractionResponseEdit(r.interaction, edit, discordgo.WithContext(ctx))
		return err
	}

	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply.Content,
			Embeds:  embeds,
			Flags:   flags(reply.Ephemeral),
		},
	}, discordgo.WithContext(ctx))
}

func (r *interactionResponder) FollowUp(ctx context.Context, reply commands.Reply) error {
	_, err := r.session.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{
		Content: reply.Content,
		Embeds:  embedsOf(reply),
		Flags:   flags(reply.Ephemeral),
	}, discordgo.WithContext(ctx))
	return err
}

func embedsOf(reply commands.Reply) []*discordgo.MessageEmbed {
	if reply.Embed == nil {
		return []*discordgo.MessageEmbed{}
	}
	return []*discordgo.MessageEmbed{reply.Embed}
}

func flags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}
