package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fogfish/opts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wispworks/wisp/api"
	"github.com/wispworks/wisp/events"
	"github.com/wispworks/wisp/pipeline"
)

type capture struct {
	mu        sync.Mutex
	envelopes []events.Envelope
	frames    []pipeline.Frame
}

func (c *capture) greetings() []events.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Envelope
	for _, e := range c.envelopes {
		if e.Type == events.TopicGreeting {
			out = append(out, e)
		}
	}
	return out
}

func (c *capture) llmRuns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, f := range c.frames {
		if _, ok := f.(pipeline.LLMRunFrame); ok {
			n++
		}
	}
	return n
}

func newFlow(t *testing.T, options ...opts.Option[Manager]) (*Manager, *capture) {
	t.Helper()
	c := &capture{}
	bus := events.NewMemory()
	for _, topic := range events.Topics() {
		bus.Subscribe(topic, func(e events.Envelope) {
			c.mu.Lock()
			c.envelopes = append(c.envelopes, e)
			c.mu.Unlock()
		})
	}
	pipe := pipeline.New(func(f pipeline.Frame) {
		c.mu.Lock()
		c.frames = append(c.frames, f)
		c.mu.Unlock()
	})

	mopts := []opts.Option[Manager]{Grace(50 * time.Millisecond), SpeakGate(10 * time.Millisecond)}
	mopts = append(mopts, options...)
	m := New(bus, pipe, "https://rooms.example/alpha", mopts...)
	return m, c
}

func TestSoloGreet(t *testing.T) {
	m, c := newFlow(t)
	m.Start(context.Background())
	defer m.CancelAll()

	m.ParticipantJoined("p1", "Alice", "")
	time.Sleep(80 * time.Millisecond)

	greets := c.greetings()
	require.Len(t, greets, 1)
	assert.Equal(t, "single", greets[0].Data["mode"])
	assert.Equal(t, 1, c.llmRuns(), "exactly one LLM run queued")

	st := m.State()
	assert.Equal(t, []string{"p1"}, st.Greeting.Participants)
	assert.Equal(t, GreetSingle, st.Greeting.Mode)
	assert.Equal(t, api.StateConversation, st.Node)
}

func TestPairGreet(t *testing.T) {
	m, c := newFlow(t)
	m.Start(context.Background())
	defer m.CancelAll()

	m.ParticipantJoined("p1", "Alice", "")
	time.Sleep(25 * time.Millisecond) // G/2
	m.ParticipantJoined("p2", "Bob", "")
	time.Sleep(60 * time.Millisecond)

	greets := c.greetings()
	require.Len(t, greets, 1)
	assert.Equal(t, "pair", greets[0].Data["mode"])
}

func TestGroupGreetFiresImmediately(t *testing.T) {
	m, c := newFlow(t, Grace(5*time.Second)) // window far in the future
	m.Start(context.Background())
	defer m.CancelAll()

	m.ParticipantJoined("p1", "Alice", "")
	m.ParticipantJoined("p2", "Bob", "")
	m.ParticipantJoined("p3", "Carol", "")

	time.Sleep(50 * time.Millisecond) // well before window expiry

	greets := c.greetings()
	require.Len(t, greets, 1, "group greeting fires before the window expires")
	assert.Equal(t, "group", greets[0].Data["mode"])
}

func TestRegreetAfterFullDeparture(t *testing.T) {
	m, c := newFlow(t)
	m.Start(context.Background())
	defer m.CancelAll()

	m.ParticipantJoined("p1", "Alice", "")
	time.Sleep(80 * time.Millisecond)
	require.Len(t, c.greetings(), 1)

	m.ParticipantLeft("p1")
	m.ParticipantJoined("p1", "Alice", "")
	time.Sleep(80 * time.Millisecond)

	greets := c.greetings()
	require.Len(t, greets, 2, "rejoin after full departure re-greets")
	assert.Equal(t, "single", greets[1].Data["mode"])
}

func TestNoRegreetWhileOthersRemain(t *testing.T) {
	m, c := newFlow(t)
	m.Start(context.Background())
	defer m.CancelAll()

	m.ParticipantJoined("p1", "Alice", "")
	m.ParticipantJoined("p2", "Bob", "")
	time.Sleep(80 * time.Millisecond)
	require.Len(t, c.greetings(), 1)

	m.ParticipantLeft("p1")
	m.ParticipantJoined("p3", "Carol", "")
	time.Sleep(80 * time.Millisecond)

	assert.Len(t, c.greetings(), 1, "no new window while the room stayed occupied")
}

func TestIdentityUpdateDoesNotRefire(t *testing.T) {
	m, c := newFlow(t)
	m.Start(context.Background())
	defer m.CancelAll()

	m.ParticipantJoined("p1", "", "")
	time.Sleep(80 * time.Millisecond)
	require.Len(t, c.greetings(), 1)

	m.IdentityChanged("p1", "Alice")
	time.Sleep(30 * time.Millisecond)

	assert.Len(t, c.greetings(), 1)
	st := m.State()
	assert.Equal(t, "Alice", st.Greeting.GraceParticipants["p1"])
}

func TestSpeakGateDefersGreeting(t *testing.T) {
	speaking := true
	var mu sync.Mutex
	isSpeaking := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return speaking
	}

	m, c := newFlow(t, Speaking(isSpeaking))
	m.Start(context.Background())
	defer m.CancelAll()

	m.ParticipantJoined("p1", "Alice", "")
	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, c.greetings(), "greeting held while the bot speaks")

	mu.Lock()
	speaking = false
	mu.Unlock()
	time.Sleep(50 * time.Millisecond)

	assert.Len(t, c.greetings(), 1, "greeting fires once the gate clears")
}

func TestWrapup(t *testing.T) {
	m, c := newFlow(t, WrapupAfter(60*time.Millisecond), WrapupPrompt("Time to say goodnight."))
	m.Start(context.Background())
	defer m.CancelAll()

	time.Sleep(110 * time.Millisecond)

	var wrapups []events.Envelope
	c.mu.Lock()
	for _, e := range c.envelopes {
		if e.Type == events.TopicWrapup {
			wrapups = append(wrapups, e)
		}
	}
	c.mu.Unlock()

	require.Len(t, wrapups, 1)
	assert.Equal(t, "Time to say goodnight.", wrapups[0].Data["prompt"])

	st := m.State()
	assert.Equal(t, api.StateTerminal, st.Node)
	assert.True(t, st.Pacing.Wrapup.Fired)
	assert.False(t, st.Pacing.Wrapup.Active)
}

func TestWrapupZeroDisables(t *testing.T) {
	m, _ := newFlow(t)
	m.Start(context.Background())
	defer m.CancelAll()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, api.StateBoot, m.Node())
}

func TestBeatsFireWhenIdle(t *testing.T) {
	beats := []api.Beat{
		{Message: "ask about their day", StartTime: 0.05},
		{Message: "suggest a note", StartTime: 0.10},
	}
	m, c := newFlow(t,
		Beats(beats),
		UserIdle(10*time.Millisecond),
		RepeatInterval(0),
	)
	m.Start(context.Background())
	defer m.CancelAll()

	time.Sleep(180 * time.Millisecond)

	var beatEvents []events.Envelope
	c.mu.Lock()
	for _, e := range c.envelopes {
		if e.Type == events.TopicPacingBeat {
			beatEvents = append(beatEvents, e)
		}
	}
	c.mu.Unlock()

	require.Len(t, beatEvents, 2)
	assert.Equal(t, "ask about their day", beatEvents[0].Data["message"])
	assert.Equal(t, "suggest a note", beatEvents[1].Data["message"])

	st := m.State()
	assert.True(t, st.Pacing.Beats[0].Fired)
	assert.True(t, st.Pacing.Beats[1].Fired)
}

func TestBeatsFireWithoutIdleGate(t *testing.T) {
	beats := []api.Beat{{Message: "ask about their day", StartTime: 0.05}}
	m, c := newFlow(t, Beats(beats), RepeatInterval(0))
	m.Start(context.Background())
	defer m.CancelAll()

	// No UserIdle configured: the timeline runs on schedule regardless of
	// user activity.
	m.UserActivity()
	time.Sleep(120 * time.Millisecond)

	var beatEvents []events.Envelope
	c.mu.Lock()
	for _, e := range c.envelopes {
		if e.Type == events.TopicPacingBeat {
			beatEvents = append(beatEvents, e)
		}
	}
	c.mu.Unlock()

	require.Len(t, beatEvents, 1)
	assert.Equal(t, "ask about their day", beatEvents[0].Data["message"])
}

func TestBeatsSkippedWhileUserActive(t *testing.T) {
	beats := []api.Beat{{Message: "nudge", StartTime: 0.04}}
	m, c := newFlow(t, Beats(beats), UserIdle(200*time.Millisecond), RepeatInterval(0))
	m.Start(context.Background())
	defer m.CancelAll()

	m.UserActivity()
	time.Sleep(100 * time.Millisecond)

	c.mu.Lock()
	for _, e := range c.envelopes {
		assert.NotEqual(t, events.TopicPacingBeat, e.Type, "active user suppresses beats")
	}
	c.mu.Unlock()
}

func TestBeatsHardIdleTimeout(t *testing.T) {
	beats := []api.Beat{{Message: "nudge", StartTime: 0.02}}
	m, c := newFlow(t,
		Beats(beats),
		UserIdle(10*time.Millisecond),
		RepeatInterval(30*time.Millisecond),
		IdleTimeout(60*time.Millisecond),
	)
	m.Start(context.Background())
	defer m.CancelAll()

	time.Sleep(200 * time.Millisecond)

	var count int
	c.mu.Lock()
	for _, e := range c.envelopes {
		if e.Type == events.TopicPacingBeat {
			count++
		}
	}
	c.mu.Unlock()
	assert.LessOrEqual(t, count, 3, "loop stops at the hard idle timeout")
}

func TestCancelAllStopsEverything(t *testing.T) {
	beats := []api.Beat{{Message: "nudge", StartTime: 0.02}}
	m, c := newFlow(t,
		Beats(beats),
		UserIdle(time.Millisecond),
		RepeatInterval(20*time.Millisecond),
		WrapupAfter(30*time.Millisecond),
	)
	m.Start(context.Background())
	m.ParticipantJoined("p1", "Alice", "")

	m.CancelAll()

	c.mu.Lock()
	before := len(c.envelopes)
	c.mu.Unlock()

	time.Sleep(100 * time.Millisecond)

	c.mu.Lock()
	after := len(c.envelopes)
	c.mu.Unlock()
	assert.Equal(t, before, after, "nothing fires after CancelAll")

	st := m.State()
	assert.False(t, st.Pacing.Wrapup.Active)
}

func TestSummaryTapVersions(t *testing.T) {
	m, _ := newFlow(t)
	assert.Equal(t, 1, m.TapSummary("first", "**first**"))
	assert.Equal(t, 2, m.TapSummary("second", "**second**"))

	st := m.State()
	require.Len(t, st.SummaryTap.History, 2)
	assert.Equal(t, 2, st.SummaryTap.Version)
	assert.Equal(t, "first", st.SummaryTap.History[0].Text)
}
