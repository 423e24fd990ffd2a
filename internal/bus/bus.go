// Package bus carries messages between the Discord channel and the bot runtime.
// Inbound messages flow from the gateway handler to a single consumer goroutine;
// outbound messages flow back to the channel for delivery.
package bus

import (
	"context"
	"time"
)

// InboundMessage is one user message received from the platform.
type InboundMessage struct {
	GuildID     string            `json:"guild_id,omitempty"`
	GuildName   string            `json:"guild_name,omitempty"`
	ChannelID   string            `json:"channel_id"`
	ChannelName string            `json:"channel_name,omitempty"`
	SenderID    string            `json:"sender_id"`
	SenderName  string            `json:"sender_name,omitempty"`
	Content     string            `json:"content"`
	Direct      bool              `json:"direct,omitempty"` // one-to-one DM channel
	History     []HistoryEntry    `json:"history,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// HistoryEntry is one recent message kept for conversational context.
type HistoryEntry struct {
	SenderID  string    `json:"sender_id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// OutboundMessage is a message to be delivered to a platform channel.
type OutboundMessage struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

// MessageBus is the in-process message queue between the channel layer and the
// consumer loop. Publishing never blocks the gateway handler: when the inbound
// buffer is full the message is dropped (the bot simply does not respond).
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage
}

// New creates a message bus with the given per-direction buffer size.
func New(buffer int) *MessageBus {
	if buffer <= 0 {
		buffer = 64
	}
	return &MessageBus{
		inbound:  make(chan InboundMessage, buffer),
		outbound: make(chan OutboundMessage, buffer),
	}
}

// PublishInbound enqueues an inbound message, dropping it if the buffer is full.
// Returns false when the message was dropped.
func (b *MessageBus) PublishInbound(msg InboundMessage) bool {
	select {
	case b.inbound <- msg:
		return true
	default:
		return false
	}
}

// ConsumeInbound blocks until a message is available or ctx is cancelled.
// The second return is false when the consumer should stop.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg := <-b.inbound:
		return msg, true
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

// PublishOutbound enqueues a message for delivery, dropping on a full buffer.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) bool {
	select {
	case b.outbound <- msg:
		return true
	default:
		return false
	}
}

// ConsumeOutbound blocks until an outbound message is available or ctx is cancelled.
func (b *MessageBus) ConsumeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case msg := <-b.outbound:
		return msg, true
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}
