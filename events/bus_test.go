package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublishDeliversToAllSubscribers(t *testing.T) {
	bus := NewMemory()

	var got []string
	bus.Subscribe(TopicGreeting, func(e Envelope) { got = append(got, "a:"+e.ID) })
	bus.Subscribe(TopicGreeting, func(e Envelope) { got = append(got, "b:"+e.ID) })

	env := bus.Publish(TopicGreeting, map[string]any{"mode": "single"})

	require.Len(t, got, 2)
	// registration order
	assert.Equal(t, "a:"+env.ID, got[0])
	assert.Equal(t, "b:"+env.ID, got[1])
	assert.Equal(t, Version, env.Version)
	assert.NotEmpty(t, env.ID)
}

func TestMemorySubscriberPanicIsIsolated(t *testing.T) {
	bus := NewMemory()

	var delivered int
	bus.Subscribe(TopicSessionEnd, func(Envelope) { panic("boom") })
	bus.Subscribe(TopicSessionEnd, func(Envelope) { delivered++ })

	assert.NotPanics(t, func() {
		bus.Publish(TopicSessionEnd, nil)
	})
	assert.Equal(t, 1, delivered)
}

func TestMemoryUnsubscribeIdempotent(t *testing.T) {
	bus := NewMemory()

	var count int
	unsub := bus.Subscribe(TopicPacingBeat, func(Envelope) { count++ })

	bus.Publish(TopicPacingBeat, nil)
	unsub()
	unsub() // second call is a no-op
	bus.Publish(TopicPacingBeat, nil)

	assert.Equal(t, 1, count)
}

func TestMemoryTopicsAreIndependent(t *testing.T) {
	bus := NewMemory()

	var greetings, wrapups int
	bus.Subscribe(TopicGreeting, func(Envelope) { greetings++ })
	bus.Subscribe(TopicWrapup, func(Envelope) { wrapups++ })

	bus.Publish(TopicGreeting, nil)
	bus.Publish(TopicGreeting, nil)
	bus.Publish(TopicWrapup, nil)

	assert.Equal(t, 2, greetings)
	assert.Equal(t, 1, wrapups)
}

func TestMemoryUniqueEnvelopeIDs(t *testing.T) {
	bus := NewMemory()
	seen := map[string]bool{}
	for range 50 {
		env := bus.Publish(TopicTranscript, nil)
		require.False(t, seen[env.ID], "duplicate envelope id %s", env.ID)
		seen[env.ID] = true
	}
}

func TestLogBusAcceptsSubscriptions(t *testing.T) {
	bus := NewLog(nil)
	unsub := bus.Subscribe(TopicGreeting, func(Envelope) { t.Fatal("log backend must not deliver") })
	env := bus.Publish(TopicGreeting, map[string]any{"mode": "pair"})
	assert.Equal(t, TopicGreeting, env.Type)
	assert.NotPanics(t, func() { unsub() })
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := NewEnvelope(TopicGreeting, map[string]any{
		"mode":         "pair",
		"participants": []any{"p1", "p2"},
	})

	data, err := env.ToJSON()
	require.NoError(t, err)

	back, err := FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, env.ID, back.ID)
	assert.Equal(t, env.TS, back.TS)
	assert.Equal(t, env.Type, back.Type)
	assert.Equal(t, env.Version, back.Version)
	assert.Equal(t, "pair", back.Data["mode"])
}

func TestFromJSONRejectsBadEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"id":`},
		{"missing id", `{"ts":1,"type":"x","version":"1"}`},
		{"missing type", `{"id":"a","ts":1,"version":"1"}`},
		{"wrong version", `{"id":"a","ts":1,"type":"x","version":"2"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}
