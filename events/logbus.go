package events

import (
	"log/slog"

	"github.com/wispworks/wisp/pkg/slogx"
)

// logBus is the fire-and-forget backend: envelopes are logged and dropped.
// Subscriptions are accepted but never invoked. Useful for one-off scripts
// that want the envelope trail without wiring any consumers.
type logBus struct {
	log *slog.Logger
}

// NewLog returns the logging backend.
func NewLog(logger *slog.Logger) Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &logBus{log: logger}
}

func (b *logBus) Publish(topic string, data map[string]any) Envelope {
	env := NewEnvelope(topic, data)
	b.log.Info("event",
		slog.String("topic", topic),
		slog.String("envelope_id", env.ID),
		slog.Any("data", data),
		slogx.LoggerName("events"),
	)
	return env
}

func (b *logBus) Subscribe(topic string, handler Handler) Unsubscribe {
	return func() {}
}
