package provider

import "context"

// Transport is the audio/video substrate the bot participates through. Room
// creation and token minting happen elsewhere; the orchestrator only joins,
// leaves, and exchanges app messages.
type Transport interface {
	// Join places the bot in a room and returns the transport-assigned pid of
	// the bot's own participant.
	Join(ctx context.Context, roomURL, token string) (localPID string, err error)

	// Leave removes the bot from a room.
	Leave(ctx context.Context, roomURL string) error

	// SendAppMessage delivers an opaque payload to the room's data channel.
	// The forwarder uses this for in-process envelope delivery.
	SendAppMessage(ctx context.Context, roomURL string, payload []byte) error
}
