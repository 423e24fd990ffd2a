package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/mascot/internal/actions"
)

// Members lists guild members with the permission flags the action policy
// needs. The guild owner counts as an administrator.
func (c *Channel) Members(_ context.Context, guildID string) ([]actions.Member, error) {
	guild, err := c.session.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild %s not in state: %w", guildID, err)
	}

	members := guild.Members
	if len(members) == 0 {
		members, err = c.session.GuildMembers(guildID, "", 1000)
		if err != nil {
			return nil, fmt.Errorf("fetch guild members: %w", err)
		}
	}

	out := make([]actions.Member, 0, len(members))
	for _, m := range members {
		if m.User == nil {
			continue
		}
		perms := c.memberPermissions(guildID, m)
		out = append(out, actions.Member{
			ID:            m.User.ID,
			Username:      m.User.Username,
			DisplayName:   memberDisplayName(m),
			Administrator: m.User.ID == guild.OwnerID || perms&discordgo.PermissionAdministrator != 0,
			ManagesGuild:  perms&discordgo.PermissionManageServer != 0,
		})
	}
	return out, nil
}

func (c *Channel) memberPermissions(guildID string, m *discordgo.Member) int64 {
	var perms int64
	for _, roleID := range m.Roles {
		role, err := c.session.State.Role(guildID, roleID)
		if err != nil {
			continue
		}
		perms |= role.Permissions
	}
	return perms
}

func memberDisplayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

// Timeout places a member in timeout until the given time.
func (c *Channel) Timeout(_ context.Context, guildID, userID string, until time.Time, reason string) error {
	opts := auditReason(reason)
	if err := c.session.GuildMemberTimeout(guildID, userID, &until, opts...); err != nil {
		return fmt.Errorf("timeout member: %w", err)
	}
	return nil
}

// Ban bans a member without deleting message history.
func (c *Channel) Ban(_ context.Context, guildID, userID, reason string) error {
	if err := c.session.GuildBanCreateWithReason(guildID, userID, reason, 0); err != nil {
		return fmt.Errorf("ban member: %w", err)
	}
	return nil
}

// SetNickname changes a member's guild nickname.
func (c *Channel) SetNickname(_ context.Context, guildID, userID, nick string) error {
	if err := c.session.GuildMemberNickname(guildID, userID, nick); err != nil {
		return fmt.Errorf("set nickname: %w", err)
	}
	return nil
}

// SendDirectMessage opens (or reuses) the DM channel with a user and sends.
func (c *Channel) SendDirectMessage(_ context.Context, userID, content string) error {
	ch, err := c.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("open DM channel: %w", err)
	}
	if _, err := c.session.ChannelMessageSend(ch.ID, content); err != nil {
		return fmt.Errorf("send DM: %w", err)
	}
	return nil
}

func auditReason(reason string) []discordgo.RequestOption {
	if reason == "" {
		return nil
	}
	return []discordgo.RequestOption{discordgo.WithAuditLogReason(reason)}
}
