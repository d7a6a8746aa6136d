package saga

import "context"

// Handler processes one delivered message. Returning nil tells the transport
// the message is consumed; a non-nil error leaves it for redelivery.
type Handler func(ctx context.Context, msg Message) error

// Channel is the publish/subscribe collaborator the orchestrator runs on.
// Implementations must preserve delivery order within a channel for a given
// saga instance; no ordering across channels is assumed.
type Channel interface {
	// CreateIfAbsent provisions the channel. It must be idempotent.
	CreateIfAbsent(ctx context.Context, channelID string) error

	// Publish returns once the broker acknowledged the message.
	Publish(ctx context.Context, channelID string, msg Message) error

	// Subscribe registers one handler for every listed channel.
	Subscribe(ctx context.Context, handler Handler, channelIDs ...string) error
}
