// Package channels defines the chat platform abstraction and the short-term
// message history attached to inbound messages.
package channels

import "context"

// Channel is a chat platform connection. Start connects and begins publishing
// inbound messages; Stop disconnects.
type Channel interface {
	Name() string

	// Start begins listening for messages. Non-blocking after setup.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop() error

	// Send delivers a message to a platform channel.
	Send(channelID, text string) error
}
