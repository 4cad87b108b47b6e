package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/wispworks/wisp/api"
	"github.com/wispworks/wisp/events"
	"github.com/wispworks/wisp/flow"
	"github.com/wispworks/wisp/pipeline"
	"github.com/wispworks/wisp/pkg/slogx"
	"github.com/wispworks/wisp/pkg/uuidx"
	"github.com/wispworks/wisp/provider"
	"github.com/wispworks/wisp/tool"
)

// How many times one conversational turn may loop back into the LLM on
// tool results before we stop and wait for the user.
const maxRerunDepth = 3

const defaultApology = "Sorry, that didn't work. Give me a moment and ask again."

// Session is the runtime for one live bot. It exclusively owns its task,
// pipeline, flow state, and transport binding. All mutation happens on the
// owning task or under mu.
type Session struct {
	mu  sync.Mutex
	rec api.Session

	personality api.Personality
	token       string
	localPID    string

	pipe      *pipeline.Pipeline
	flow      *flow.Manager
	monitor   *pipeline.SpeakingMonitor
	narration *pipeline.ToolNarration
	lull      *pipeline.LullTrigger
	dispatch  *tool.Dispatcher

	messages []provider.Message
	frames   chan pipeline.Frame

	llm   provider.LLMEngine
	voice provider.VoiceEngine
	log   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	unsubs []events.Unsubscribe
	wg     sync.WaitGroup
}

// Record returns a snapshot of the session's canonical record.
func (s *Session) Record() api.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.rec
	rec.State = s.flow.Node()
	return rec
}

func (s *Session) appendMessage(m provider.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
}

func (s *Session) snapshotMessages() []provider.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provider.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// machinery snapshots the swappable pipeline and dispatcher pointers. The
// task must go through it instead of reading the fields: a transition
// reassembles them concurrently under mu.
func (s *Session) machinery() (*pipeline.Pipeline, *tool.Dispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipe, s.dispatch
}

func (s *Session) currentPersonality() api.Personality {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.personality
}

// push routes a frame through whatever pipeline is current.
func (s *Session) push(f pipeline.Frame) {
	pipe, _ := s.machinery()
	pipe.Push(s.ctx, f)
}

// enqueue hands a frame from the pipeline sink to the session task. The
// sink runs inside Pipeline.Push, so it must never block on the task.
func (s *Session) enqueue(f pipeline.Frame) {
	select {
	case s.frames <- f:
	default:
		s.log.Warn("session frame queue full, dropping frame",
			slogx.Session(s.rec.ID))
	}
}

// run is the session task. It drains the frame channel and performs the
// blocking work (speech synthesis, LLM runs) the pipeline stages must not.
func (s *Session) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case f := <-s.frames:
			s.handle(f)
		}
	}
}

func (s *Session) handle(f pipeline.Frame) {
	switch f := f.(type) {
	case pipeline.TextFrame:
		if f.Text == "" {
			return
		}
		s.speak(f.Text)
	case pipeline.LLMRunFrame:
		s.runLLM(0)
	case pipeline.SystemMessageFrame:
		s.appendMessage(provider.Message{Role: "system", Content: f.Text})
	case pipeline.InterruptionFrame:
		if err := s.voice.Interrupt(s.ctx); err != nil {
			s.log.Warn("interrupt failed", slogx.Error(err))
		}
	}
}

// speak synthesizes one utterance, bracketed by TTS lifecycle frames so the
// speaking monitor publishes started/stopped and the transcript.
func (s *Session) speak(text string) {
	pipe, _ := s.machinery()
	pipe.Push(s.ctx, pipeline.TTSStartedFrame{})
	pipe.Push(s.ctx, pipeline.TTSTextFrame{Text: text})
	if err := s.voice.Speak(s.ctx, text); err != nil {
		s.log.Warn("speech synthesis failed", slogx.Error(err))
	}
	pipe.Push(s.ctx, pipeline.TTSStoppedFrame{})
}

// runLLM performs one streamed completion, dispatching tool calls inline
// and feeding text chunks back through the pipeline.
func (s *Session) runLLM(depth int) {
	if depth >= maxRerunDepth {
		s.log.Warn("tool rerun depth exceeded", slogx.Session(s.rec.ID))
		return
	}

	params := provider.CompletionParams{
		RunID:        uuidx.New(),
		Instructions: s.currentPersonality().SystemPrompt,
		Messages:     s.snapshotMessages(),
		Tools:        s.toolDefs(),
		Stream:       true,
	}

	stream, err := s.completionWithRetry(params)
	if err != nil {
		s.log.Error("completion failed", slogx.Error(err), slogx.Session(s.rec.ID))
		return
	}

	rerun := false
	for ev := range stream {
		switch ev := ev.(type) {
		case provider.Chunk:
			s.push(pipeline.TextFrame{Text: ev.Text})
		case provider.ToolCall:
			if s.dispatchToolCall(ev) {
				rerun = true
			}
		case provider.Done:
			if ev.Text != "" {
				s.appendMessage(provider.Message{Role: "assistant", Content: ev.Text})
			}
			s.push(pipeline.FlushFrame{})
		case provider.Error:
			s.log.Error("completion stream error", slogx.Error(ev.Err), slogx.Session(s.rec.ID))
		}
	}

	if rerun {
		s.runLLM(depth + 1)
	}
}

// completionWithRetry retries transient completion failures with a short
// backoff. Context cancellation ends the attempts immediately.
func (s *Session) completionWithRetry(params provider.CompletionParams) (<-chan provider.StreamEvent, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-s.ctx.Done():
				return nil, s.ctx.Err()
			case <-time.After(250 * time.Millisecond):
			}
		}
		stream, err := s.llm.ChatCompletion(s.ctx, params)
		if err == nil {
			return stream, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// dispatchToolCall runs one tool call and reports whether the LLM should be
// re-run on its result.
func (s *Session) dispatchToolCall(call provider.ToolCall) bool {
	pipe, dispatch := s.machinery()
	pipe.Push(s.ctx, pipeline.ToolCallStartFrame{CallID: call.CallID, Name: call.Name})
	res := dispatch.Dispatch(s.ctx, call)

	resJSON, err := json.Marshal(res)
	if err != nil {
		resJSON = []byte(`{"success":false}`)
	}
	pipe.Push(s.ctx, pipeline.ToolCallEndFrame{CallID: call.CallID, Result: resJSON})

	if !res.Success {
		msg := res.UserMessage
		if msg == "" {
			msg = defaultApology
		}
		pipe.Push(s.ctx, pipeline.TextFrame{Text: msg})
	}
	if res.RerunLLM {
		s.appendMessage(provider.Message{
			Role:    "system",
			Content: "Tool " + call.Name + " result: " + string(resJSON),
			Name:    call.Name,
		})
	}
	return res.RerunLLM
}

// toolDefs exports the dispatchable subset of the registry for the LLM.
func (s *Session) toolDefs() []provider.ToolDef {
	_, dispatch := s.machinery()
	descs := dispatch.Registry.Descriptors()
	defs := make([]provider.ToolDef, 0, len(descs))
	for _, d := range descs {
		defs = append(defs, provider.ToolDef{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.ParametersJSON(),
		})
	}
	return defs
}

// stop cancels the session task and every background loop it owns, waits
// for them, and leaves flow state observable as cancelled.
func (s *Session) stop() {
	s.cancel()
	s.mu.Lock()
	unsubs := s.unsubs
	fm, narration, lull := s.flow, s.narration, s.lull
	s.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
	fm.CancelAll()
	narration.CancelAll()
	lull.Stop()
	s.wg.Wait()
}
