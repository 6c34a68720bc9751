package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// ErrNoticeUndeliverable marks a direct notice the recipient could not receive,
// typically because they block direct messages from server members.
var ErrNoticeUndeliverable = errors.New("direct notice undeliverable")

// Discord performs enforcement side effects through the REST API.
type Discord struct {
	session *discordgo.Session
}

func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

func (d *Discord) SendChannelMessage(ctx context.Context, channelID, text string) error {
	if _, err := d.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send message to channel %s: %w", channelID, err)
	}
	return nil
}

func (d *Discord) SendDirectNotice(ctx context.Context, userID, text string) error {
	channel, err := d.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: open DM channel for %s: %w", ErrNoticeUndeliverable, userID, err)
	}

	if _, err := d.session.ChannelMessageSend(channel.ID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: send DM to %s: %w", ErrNoticeUndeliverable, userID, err)
	}
	return nil
}

// Disconnect moves the member out of voice; the reason shows up in the audit log.
func (d *Discord) Disconnect(ctx context.Context, guildID, userID, reason string) error {
	err := d.session.GuildMemberMove(guildID, userID, nil,
		discordgo.WithAuditLogReason(reason),
		discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("disconnect %s in guild %s: %w", userID, guildID, err)
	}
	return nil
}
