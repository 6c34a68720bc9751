package models

// Presence is a member's voice state. An empty ChannelID means not in voice.
type Presence struct {
	ChannelID  string
	SelfMute   bool
	SelfDeafen bool
}

func (p Presence) InVoice() bool {
	return p.ChannelID != ""
}

// Silenced reports whether the member is self-muted or self-deafened.
func (p Presence) Silenced() bool {
	return p.SelfMute || p.SelfDeafen
}

// PresenceEvent is a voice-state change for one member.
// RoleIDs is nil when the event source did not carry the member's roles.
type PresenceEvent struct {
	GuildID     string
	MemberID    string
	Tag         string
	DisplayName string
	Bot         bool
	RoleIDs     []string
	Old         Presence
	New         Presence
}
