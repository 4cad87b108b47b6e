package events

import (
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/wispworks/wisp/pkg/slogx"
)

// natsBus publishes envelopes to NATS subjects and delivers subscriptions
// through NATS. Topic dots map directly onto subject tokens. This backend is
// an independent sink: envelope order holds per subject, not across the
// memory bus and NATS when both are active.
type natsBus struct {
	client *nats.Conn
	prefix string
}

// NewNATS returns the distributed backend. prefix, when non-empty, namespaces
// every subject (multiple operators can share one NATS cluster).
func NewNATS(client *nats.Conn, prefix string) Bus {
	return &natsBus{client: client, prefix: prefix}
}

// NATSClient connects to the server named by NATS_URL, configured the same
// way for every binary in this module.
func NATSClient(url string, opts ...nats.Option) (*nats.Conn, error) {
	if len(opts) == 0 {
		opts = append(opts, nats.Name("wisp"), nats.Compression(true))
	}
	return nats.Connect(url, opts...)
}

func (b *natsBus) subject(topic string) string {
	if b.prefix == "" {
		return topic
	}
	return b.prefix + "." + strings.TrimPrefix(topic, ".")
}

func (b *natsBus) Publish(topic string, data map[string]any) Envelope {
	env := NewEnvelope(topic, data)
	eb, err := env.ToJSON()
	if err != nil {
		slog.Error("failed to marshal envelope", slogx.Error(err), slog.String("topic", topic))
		return env
	}
	if err := b.client.Publish(b.subject(topic), eb); err != nil {
		slog.Error("failed to publish envelope", slogx.Error(err), slog.String("topic", topic))
	}
	return env
}

func (b *natsBus) Subscribe(topic string, handler Handler) Unsubscribe {
	sub, err := b.client.Subscribe(b.subject(topic), func(msg *nats.Msg) {
		env, err := FromJSON(msg.Data)
		if err != nil {
			slog.Error("failed to unmarshal envelope", slogx.Error(err), slog.String("subject", msg.Subject))
			return
		}
		invoke(handler, env)
	})
	if err != nil {
		slog.Error("failed to subscribe", slogx.Error(err), slog.String("topic", topic))
		return func() {}
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe", slogx.Error(err), slog.String("topic", topic))
		}
	}
}
