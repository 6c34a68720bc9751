package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Intents the bot needs: guild structure, voice states and the member list.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMembers

type Session struct {
	discord *discordgo.Session
}

// New creates the Discord session without connecting.
func New(token string) (*Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	dg.Identify.Intents = Intents
	dg.StateEnabled = true

	return &Session{discord: dg}, nil
}

// Discord returns the underlying discordgo session
func (s *Session) Discord() *discordgo.Session {
	return s.discord
}

// Connect opens the Discord websocket connection
func (s *Session) Connect() error {
	if err := s.discord.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	slog.Info("Discord bot connected successfully")
	return nil
}

func (s *Session) Close() error {
	if s.discord != nil {
		return s.discord.Close()
	}
	return nil
}

// RegisterCommands replaces the guild's slash commands with the given set.
func (s *Session) RegisterCommands(ctx context.Context, appID, guildID string, commands []*discordgo.ApplicationCommand) error {
	slog.Info("Registering slash commands", "count", len(commands), "guild", guildID)

	registered, err := s.discord.ApplicationCommandBulkOverwrite(appID, guildID, commands, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	for _, cmd := range registered {
		slog.Debug("Registered command", "name", "/"+cmd.Name)
	}
	return nil
}

// RequestMembers asks the gateway to stream the guild member list into the state cache.
func (s *Session) RequestMembers(guildID string) error {
	if err := s.discord.RequestGuildMembers(guildID, "", 0, "", false); err != nil {
		return fmt.Errorf("failed to request guild members: %w", err)
	}
	return nil
}

// LastHeartbeatAck is when the gateway last acknowledged a heartbeat.
func (s *Session) LastHeartbeatAck() time.Time {
	s.discord.RLock()
	defer s.discord.RUnlock()
	return s.discord.LastHeartbeatAck
}

// AddHandler adds an event handler to the Discord session
func (s *Session) AddHandler(handler interface{}) func() {
	return s.discord.AddHandler(handler)
}
