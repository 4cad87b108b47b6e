package pipeline

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/wispworks/wisp/events"
)

// SpeakingMonitor observes TTS lifecycle frames and publishes the bot's
// speaking state and running transcript. Exactly one started/stopped pair is
// published per utterance regardless of how many TTS frames arrive. The
// speaking flag is read concurrently by the flow manager's speak gate.
type SpeakingMonitor struct {
	Bus     events.Bus
	RoomURL string

	speaking   atomic.Bool
	transcript strings.Builder
}

func (m *SpeakingMonitor) Process(ctx context.Context, f Frame, push func(Frame)) {
	switch f := f.(type) {
	case TTSStartedFrame:
		if m.speaking.CompareAndSwap(false, true) {
			m.transcript.Reset()
			m.Bus.Publish(events.TopicSpeakingStarted, map[string]any{
				"room_url": m.RoomURL,
			})
		}
	case TTSTextFrame:
		if f.Text != "" {
			if m.transcript.Len() > 0 {
				m.transcript.WriteByte(' ')
			}
			m.transcript.WriteString(f.Text)
			m.Bus.Publish(events.TopicTranscript, map[string]any{
				"room_url": m.RoomURL,
				"text":     m.transcript.String(),
				"final":    false,
			})
		}
	case TTSStoppedFrame:
		if m.speaking.CompareAndSwap(true, false) {
			m.Bus.Publish(events.TopicTranscript, map[string]any{
				"room_url": m.RoomURL,
				"text":     m.transcript.String(),
				"final":    true,
			})
			m.Bus.Publish(events.TopicSpeakingStopped, map[string]any{
				"room_url": m.RoomURL,
			})
		}
	}
	push(f)
}

// Speaking reports whether an utterance is currently in flight.
func (m *SpeakingMonitor) Speaking() bool {
	return m.speaking.Load()
}
