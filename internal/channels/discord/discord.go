// Package discord connects the bot to Discord via the gateway API.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/mascot/internal/bus"
	"github.com/nextlevelbuilder/mascot/internal/channels"
	"github.com/nextlevelbuilder/mascot/internal/config"
)

// Channel connects to Discord via the Bot API using gateway events. Besides
// the channels.Channel surface it exposes the moderation and voice operations
// the action pipeline needs.
type Channel struct {
	session   *discordgo.Session
	config    config.DiscordConfig
	bus       *bus.MessageBus
	history   *channels.History
	botUserID string // populated on start
}

// New creates a Discord channel from config.
func New(cfg config.DiscordConfig, msgBus *bus.MessageBus) (*Channel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	// Guild members and voice states are needed for moderation actions and
	// voice sessions, on top of the usual message intents.
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates

	return &Channel{
		session: session,
		config:  cfg,
		bus:     msgBus,
		history: channels.NewHistory(cfg.MessageHistory),
	}, nil
}

var _ channels.Channel = (*Channel)(nil)

// Name returns the channel identifier.
func (c *Channel) Name() string { return "discord" }

// Start opens the Discord gateway connection and begins receiving events.
func (c *Channel) Start(_ context.Context) error {
	slog.Info("starting discord bot")

	c.session.AddHandler(c.handleReady)
	c.session.AddHandler(c.handleMessage)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	user, err := c.session.User("@me")
	if err != nil {
		c.session.Close()
		return fmt.Errorf("fetch discord bot identity: %w", err)
	}
	c.botUserID = user.ID

	slog.Info("discord bot connected", "username", user.Username, "id", user.ID)
	return nil
}

// Stop closes the Discord gateway connection.
func (c *Channel) Stop() error {
	slog.Info("stopping discord bot")
	return c.session.Close()
}

func (c *Channel) handleReady(s *discordgo.Session, _ *discordgo.Ready) {
	if c.config.StatusText == "" {
		return
	}
	var err error
	switch c.config.StatusType {
	case "playing":
		err = s.UpdateGameStatus(0, c.config.StatusText)
	case "listening":
		err = s.UpdateListeningStatus(c.config.StatusText)
	default:
		err = s.UpdateWatchStatus(0, c.config.StatusText)
	}
	if err != nil {
		slog.Warn("failed to set presence", "error", err)
	}
}

// handleMessage publishes incoming messages to the bus. discordgo dispatches
// handlers concurrently; ordering and rate decisions happen in the single
// consumer goroutine, not here.
func (c *Channel) handleMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == c.botUserID || m.Author.Bot {
		return
	}

	senderName := resolveDisplayName(m)
	guildName, channelName := c.resolveNames(m.GuildID, m.ChannelID)

	msg := bus.InboundMessage{
		GuildID:     m.GuildID,
		GuildName:   guildName,
		ChannelID:   m.ChannelID,
		ChannelName: channelName,
		SenderID:    m.Author.ID,
		SenderName:  senderName,
		Content:     m.Content,
		Direct:      m.GuildID == "",
		History:     c.history.Recent(m.ChannelID),
	}
	if !c.bus.PublishInbound(msg) {
		slog.Warn("inbound buffer full, dropping message", "channel_id", m.ChannelID)
	}

	c.history.Record(m.ChannelID, bus.HistoryEntry{
		SenderID:  m.Author.ID,
		Sender:    senderName,
		Body:      m.Content,
		Timestamp: time.Now(),
	})
}

// Send delivers a message, splitting into multiple messages if over the
// Discord limit.
func (c *Channel) Send(channelID, content string) error {
	for len(content) > 0 {
		var chunk string
		chunk, content = splitChunk(content, maxMessageLen)

		if _, err := c.session.ChannelMessageSend(channelID, chunk); err != nil {
			return fmt.Errorf("send discord message: %w", err)
		}
	}
	return nil
}

const maxMessageLen = 2000

// splitChunk cuts content at maxLen bytes, preferring a newline break and
// never splitting a multi-byte rune.
func splitChunk(content string, maxLen int) (chunk, rest string) {
	if len(content) <= maxLen {
		return content, ""
	}
	cutAt := maxLen
	if idx := lastIndexByte(content[:maxLen], '\n'); idx > maxLen/2 {
		cutAt = idx + 1
	} else {
		for cutAt > 0 && !utf8.RuneStart(content[cutAt]) {
			cutAt--
		}
	}
	return content[:cutAt], content[cutAt:]
}

func (c *Channel) resolveNames(guildID, channelID string) (guildName, channelName string) {
	if guildID != "" {
		if guild, err := c.session.State.Guild(guildID); err == nil {
			guildName = guild.Name
		}
	}
	if ch, err := c.session.State.Channel(channelID); err == nil {
		channelName = ch.Name
	}
	return guildName, channelName
}

func resolveDisplayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

// lastIndexByte returns the last index of byte b in s, or -1.
func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}
