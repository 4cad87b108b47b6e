package events

import (
	"log/slog"
	"sync"

	"github.com/alphadose/haxmap"

	"github.com/wispworks/wisp/pkg/slogx"
	"github.com/wispworks/wisp/pkg/uuidx"
)

type memoryBus struct {
	topics *haxmap.Map[string, *memoryTopic]
}

// NewMemory returns the synchronous in-process bus. "inproc" is an alias for
// the same backend.
func NewMemory() Bus {
	return &memoryBus{topics: haxmap.New[string, *memoryTopic]()}
}

func (b *memoryBus) topic(name string) *memoryTopic {
	t, _ := b.topics.GetOrCompute(name, func() *memoryTopic {
		return &memoryTopic{}
	})
	return t
}

func (b *memoryBus) Publish(topic string, data map[string]any) Envelope {
	env := NewEnvelope(topic, data)
	b.topic(topic).deliver(env)
	return env
}

func (b *memoryBus) Subscribe(topic string, handler Handler) Unsubscribe {
	return b.topic(topic).add(handler)
}

// memoryTopic keeps subscribers in a slice, not a map: delivery order must
// match registration order.
type memoryTopic struct {
	mu   sync.RWMutex
	subs []*memorySub
}

type memorySub struct {
	id      string
	handler Handler
}

func (t *memoryTopic) add(handler Handler) Unsubscribe {
	sub := &memorySub{id: uuidx.NewString(), handler: handler}
	t.mu.Lock()
	t.subs = append(t.subs, sub)
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.remove(sub.id) })
	}
}

func (t *memoryTopic) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.subs {
		if s.id == id {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			return
		}
	}
}

func (t *memoryTopic) deliver(env Envelope) {
	t.mu.RLock()
	subs := make([]*memorySub, len(t.subs))
	copy(subs, t.subs)
	t.mu.RUnlock()

	for _, s := range subs {
		invoke(s.handler, env)
	}
}

// invoke isolates a single subscriber: a panic is recovered and logged so the
// remaining subscribers still see the envelope.
func invoke(h Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event subscriber panicked",
				slog.String("topic", env.Type),
				slog.String("envelope_id", env.ID),
				slog.Any("panic", r),
				slogx.LoggerName("events"),
			)
		}
	}()
	h(env)
}
