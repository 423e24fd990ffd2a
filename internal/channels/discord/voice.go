package discord

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/mascot/internal/voice"
)

// Resolve finds a guild voice channel by name, preferring an exact match over
// a substring match.
func (c *Channel) Resolve(guildID, query string) (string, string, error) {
	guild, err := c.session.State.Guild(guildID)
	if err != nil {
		return "", "", fmt.Errorf("guild %s not in state: %w", guildID, err)
	}

	lower := strings.ToLower(query)
	var partialID, partialName string
	for _, ch := range guild.Channels {
		if ch.Type != discordgo.ChannelTypeGuildVoice {
			continue
		}
		name := strings.ToLower(ch.Name)
		if name == lower {
			return ch.ID, ch.Name, nil
		}
		if partialID == "" && strings.Contains(name, lower) {
			partialID, partialName = ch.ID, ch.Name
		}
	}
	if partialID != "" {
		return partialID, partialName, nil
	}
	return "", "", fmt.Errorf("no voice channel matching %q", query)
}

// Join connects to a voice channel, muted for receive.
func (c *Channel) Join(_ context.Context, guildID, channelID string) (voice.Conn, error) {
	vc, err := c.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("voice join: %w", err)
	}
	return &voiceConn{vc: vc}, nil
}

type voiceConn struct {
	vc *discordgo.VoiceConnection
}

// Play streams a DCA-encoded file's opus frames to the connection. Cancelling
// ctx stops playback mid-track.
func (c *voiceConn) Play(ctx context.Context, track string) error {
	f, err := os.Open(track)
	if err != nil {
		return fmt.Errorf("open track: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	if err := skipDCAHeader(r); err != nil {
		return fmt.Errorf("read track %s: %w", track, err)
	}

	if err := c.vc.Speaking(true); err != nil {
		return fmt.Errorf("set speaking: %w", err)
	}
	defer c.vc.Speaking(false)

	for {
		var frameLen int16
		err := binary.Read(r, binary.LittleEndian, &frameLen)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame length: %w", err)
		}
		if frameLen <= 0 {
			return fmt.Errorf("corrupt frame length %d", frameLen)
		}

		frame := make([]byte, frameLen)
		if _, err := io.ReadFull(r, frame); err != nil {
			if err == io.ErrUnexpectedEOF {
				return nil // truncated final frame, stop quietly
			}
			return fmt.Errorf("read frame: %w", err)
		}

		select {
		case c.vc.OpusSend <- frame:
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return fmt.Errorf("voice send stalled")
		}
	}
}

// Close disconnects from the voice channel.
func (c *voiceConn) Close() error {
	return c.vc.Disconnect()
}

// skipDCAHeader consumes the DCA1 metadata block when present; raw frame
// streams pass through untouched.
func skipDCAHeader(r *bufio.Reader) error {
	magic, err := r.Peek(4)
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	if string(magic[:3]) != "DCA" {
		return nil
	}
	if _, err := r.Discard(4); err != nil {
		return err
	}
	var metaLen int32
	if err := binary.Read(r, binary.LittleEndian, &metaLen); err != nil {
		return err
	}
	if metaLen < 0 {
		return fmt.Errorf("corrupt metadata length %d", metaLen)
	}
	if _, err := r.Discard(int(metaLen)); err != nil {
		return err
	}
	return nil
}
