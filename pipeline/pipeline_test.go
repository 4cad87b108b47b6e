package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wispworks/wisp/events"
)

type frameSink struct {
	mu     sync.Mutex
	frames []Frame
}

func (s *frameSink) push(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
}

func (s *frameSink) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, f := range s.frames {
		if tf, ok := f.(TextFrame); ok {
			out = append(out, tf.Text)
		}
	}
	return out
}

func (s *frameSink) all() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...)
}

func TestSilenceFilter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"sentinel", "SILENCE", ""},
		{"lowercase", "silence", ""},
		{"padded", "  Silence \n", ""},
		{"regular text", "hello there", "hello there"},
		{"sentinel inside sentence survives", "the silence was deafening", "the silence was deafening"},
		{"empty passes", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &frameSink{}
			p := New(sink.push, SilenceFilter{})
			p.Push(context.Background(), TextFrame{Text: tt.in})
			require.Len(t, sink.all(), 1)
			assert.Equal(t, TextFrame{Text: tt.want}, sink.all()[0])
		})
	}
}

func TestSilenceFilterIdempotent(t *testing.T) {
	for _, in := range []string{"SILENCE", "hello", ""} {
		sink := &frameSink{}
		p := New(sink.push, SilenceFilter{})
		p.Push(context.Background(), TextFrame{Text: in})
		once := sink.all()[0].(TextFrame).Text

		sink2 := &frameSink{}
		p2 := New(sink2.push, SilenceFilter{})
		p2.Push(context.Background(), TextFrame{Text: once})
		assert.Equal(t, once, sink2.all()[0].(TextFrame).Text)
	}
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "this is **important** stuff", "this is important stuff"},
		{"italic", "say it *gently* please", "say it gently please"},
		{"header", "# Title\nbody", "Title\nbody"},
		{"link keeps text", "see [the docs](https://example.com) now", "see the docs now"},
		{"inline code", "run `go test` first", "run go test first"},
		{"em dash", "wait—really", "wait, really"},
		{"ampersand", "notes & sprites", "notes and sprites"},
		{"list markers", "- one\n- two", "one\ntwo"},
		{"plain text untouched", "nothing fancy here.", "nothing fancy here."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkdown(tt.in))
		})
	}
}

func TestStripMarkdownIdempotent(t *testing.T) {
	inputs := []string{
		"# Heading\n**bold** and *italic* with [link](http://x) & `code`",
		"plain text",
		"a – b — c",
		"```go\nfunc main() {}\n```after",
	}
	for _, in := range inputs {
		once := StripMarkdown(in)
		assert.Equal(t, once, StripMarkdown(once), "input %q", in)
	}
}

func TestClauseAggregatorSentences(t *testing.T) {
	sink := &frameSink{}
	p := New(sink.push, &ClauseAggregator{})

	// streamed in fragments, emitted at sentence boundaries
	for _, chunk := range []string{"Hel", "lo there", ". How ", "are you?"} {
		p.Push(context.Background(), TextFrame{Text: chunk})
	}

	assert.Equal(t, []string{"Hello there.", "How are you?"}, sink.texts())
}

func TestClauseAggregatorClauseBreakNeedsMinLength(t *testing.T) {
	sink := &frameSink{}
	p := New(sink.push, &ClauseAggregator{MinClauseLen: 10})

	p.Push(context.Background(), TextFrame{Text: "a, b, c is short, but this clause runs long enough,"})
	got := sink.texts()
	require.NotEmpty(t, got)
	// the early commas did not flush; the late one did
	assert.Contains(t, got[0], "a, b, c")
}

func TestClauseAggregatorInterruptionClears(t *testing.T) {
	sink := &frameSink{}
	p := New(sink.push, &ClauseAggregator{})

	p.Push(context.Background(), TextFrame{Text: "this never finishes"})
	p.Push(context.Background(), InterruptionFrame{})
	p.Push(context.Background(), FlushFrame{})

	assert.Empty(t, sink.texts(), "buffer cleared on interruption")
}

func TestClauseAggregatorFlush(t *testing.T) {
	sink := &frameSink{}
	p := New(sink.push, &ClauseAggregator{})

	p.Push(context.Background(), TextFrame{Text: "tail without punctuation"})
	p.Push(context.Background(), FlushFrame{})

	assert.Equal(t, []string{"tail without punctuation"}, sink.texts())
}

func TestClauseAggregatorCarriesFiller(t *testing.T) {
	sink := &frameSink{}
	p := New(sink.push, &ClauseAggregator{})
	ctx := context.Background()

	p.Push(ctx, TextFrame{Text: "Hmm, let me think.", Filler: true})
	p.Push(ctx, FlushFrame{})
	p.Push(ctx, TextFrame{Text: "Here is the answer."})
	p.Push(ctx, FlushFrame{})

	var fillers []bool
	for _, f := range sink.all() {
		if tf, ok := f.(TextFrame); ok {
			fillers = append(fillers, tf.Filler)
		}
	}
	assert.Equal(t, []bool{true, false}, fillers)
}

func TestClauseAggregatorMixedBufferIsNotFiller(t *testing.T) {
	sink := &frameSink{}
	p := New(sink.push, &ClauseAggregator{})
	ctx := context.Background()

	p.Push(ctx, TextFrame{Text: "One sec", Filler: true})
	p.Push(ctx, TextFrame{Text: ", the note is saved."})

	var fillers []bool
	for _, f := range sink.all() {
		if tf, ok := f.(TextFrame); ok {
			fillers = append(fillers, tf.Filler)
		}
	}
	assert.Equal(t, []bool{false}, fillers, "real text in the buffer clears the filler mark")
}

func TestSpeakingMonitorOnePairPerUtterance(t *testing.T) {
	bus := events.NewMemory()
	var started, stopped int
	var finals []string
	bus.Subscribe(events.TopicSpeakingStarted, func(events.Envelope) { started++ })
	bus.Subscribe(events.TopicSpeakingStopped, func(events.Envelope) { stopped++ })
	bus.Subscribe(events.TopicTranscript, func(e events.Envelope) {
		if e.Data["final"] == true {
			finals = append(finals, e.Data["text"].(string))
		}
	})

	mon := &SpeakingMonitor{Bus: bus, RoomURL: "https://rooms.example/alpha"}
	p := New(nil, mon)
	ctx := context.Background()

	p.Push(ctx, TTSStartedFrame{})
	p.Push(ctx, TTSStartedFrame{}) // duplicate start is folded
	p.Push(ctx, TTSTextFrame{Text: "hello"})
	p.Push(ctx, TTSTextFrame{Text: "there"})
	assert.True(t, mon.Speaking())
	p.Push(ctx, TTSStoppedFrame{})
	p.Push(ctx, TTSStoppedFrame{}) // duplicate stop is folded

	assert.Equal(t, 1, started)
	assert.Equal(t, 1, stopped)
	assert.False(t, mon.Speaking())
	require.Len(t, finals, 1)
	assert.Equal(t, "hello there", finals[0])
}

func TestLullTriggerFiresAfterIdle(t *testing.T) {
	sink := &frameSink{}
	lull := &LullTrigger{Idle: 80 * time.Millisecond}
	_ = New(sink.push, lull)

	lull.Start(context.Background())
	defer lull.Stop()

	time.Sleep(200 * time.Millisecond)

	var runs, notes int
	for _, f := range sink.all() {
		switch f.(type) {
		case LLMRunFrame:
			runs++
		case SystemMessageFrame:
			notes++
		}
	}
	assert.GreaterOrEqual(t, runs, 1, "lull queued an LLM run")
	assert.Equal(t, runs, notes, "each run is paired with a system note")
}

func TestLullTriggerDebounce(t *testing.T) {
	sink := &frameSink{}
	lull := &LullTrigger{Idle: 60 * time.Millisecond}
	p := New(sink.push, lull)

	lull.Start(context.Background())
	time.Sleep(95 * time.Millisecond)
	lull.Stop()

	var runs int
	for _, f := range sink.all() {
		if _, ok := f.(LLMRunFrame); ok {
			runs++
		}
	}
	assert.LessOrEqual(t, runs, 2, "re-fire within idle/2 is suppressed")

	// activity resets the idle clock
	sink2 := &frameSink{}
	lull2 := &LullTrigger{Idle: 120 * time.Millisecond}
	p = New(sink2.push, lull2)
	lull2.Start(context.Background())
	for range 6 {
		p.Push(context.Background(), UserActivityFrame{PID: "p1"})
		time.Sleep(20 * time.Millisecond)
	}
	lull2.Stop()
	for _, f := range sink2.all() {
		_, isRun := f.(LLMRunFrame)
		assert.False(t, isRun, "active user suppresses the lull trigger")
	}
}

func TestToolNarrationLifecycle(t *testing.T) {
	sink := &frameSink{}
	narr := &ToolNarration{
		InitialDelay: 40 * time.Millisecond,
		Repeat:       60 * time.Millisecond,
	}
	p := New(sink.push, narr)
	ctx := context.Background()

	p.Push(ctx, ToolCallStartFrame{CallID: "call-1", Name: "create_note"})
	time.Sleep(170 * time.Millisecond)
	p.Push(ctx, ToolCallEndFrame{CallID: "call-1"})
	endAt := time.Now()

	fillers := sink.texts()
	require.GreaterOrEqual(t, len(fillers), 2, "at least two fillers while the tool ran")
	distinct := map[string]bool{}
	for _, f := range fillers {
		distinct[f] = true
	}
	assert.GreaterOrEqual(t, len(distinct), 2, "fillers are distinct within the dedup window")

	// loop is cancelled promptly: no filler arrives after completion
	time.Sleep(120 * time.Millisecond)
	late := sink.texts()
	assert.Equal(t, len(fillers), len(late), "no filler after the call completed at %v", endAt)
}

func TestToolNarrationQuietWhileLLMStreams(t *testing.T) {
	sink := &frameSink{}
	narr := &ToolNarration{
		InitialDelay: 30 * time.Millisecond,
		Repeat:       30 * time.Millisecond,
	}
	p := New(sink.push, narr)
	ctx := context.Background()

	p.Push(ctx, ToolCallStartFrame{CallID: "call-1", Name: "create_note"})
	stop := time.Now().Add(120 * time.Millisecond)
	var streamed int
	for time.Now().Before(stop) {
		p.Push(ctx, TextFrame{Text: "still talking"})
		streamed++
		time.Sleep(10 * time.Millisecond)
	}
	p.Push(ctx, ToolCallEndFrame{CallID: "call-1"})

	assert.Equal(t, streamed, len(sink.texts()), "no filler interleaved with live text")
}

func TestToolNarrationCancelAll(t *testing.T) {
	narr := &ToolNarration{InitialDelay: 10 * time.Millisecond, Repeat: 10 * time.Millisecond}
	p := New(nil, narr)
	p.Push(context.Background(), ToolCallStartFrame{CallID: "call-1"})
	assert.NotPanics(t, narr.CancelAll)
	assert.NotPanics(t, narr.CancelAll, "idempotent")
}
