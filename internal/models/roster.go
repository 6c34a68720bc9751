package models

import "strings"

// Member is a point-in-time copy of a guild member and its voice presence.
type Member struct {
	ID          string
	Tag         string
	DisplayName string
	Bot         bool
	RoleIDs     []string
	Presence
}

type Channel struct {
	ID       string
	Name     string
	TextBase bool
}

// NameContains reports whether the channel name contains keyword, ignoring case.
func (c Channel) NameContains(keyword string) bool {
	if keyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(c.Name), strings.ToLower(keyword))
}

type Role struct {
	ID   string
	Name string
}

// Roster is the full pull returned by a roster source for one guild.
type Roster struct {
	GuildName string
	Roles     []Role
	Channels  []Channel
	Members   []Member
}

// Active reports whether a member is worth caching: in voice or holding any explicit role.
func (m Member) Active() bool {
	return m.InVoice() || len(m.RoleIDs) > 0
}
