// Package pipeline implements the per-session frame pipeline: the ordered
// chain of small processors that sits between the LLM output and the voice
// engine. Frames flow downstream through every processor; processors may
// transform, swallow, or emit additional frames, and a few run background
// loops that inject frames of their own (lull trigger, tool narration).
package pipeline

import json "github.com/goccy/go-json"

// Frame is the closed set of values that traverse the pipeline.
type Frame interface {
	frame()
}

// TextFrame is text on its way to speech synthesis. Filler marks narration
// utterances so they do not count as LLM output for idle tracking.
type TextFrame struct {
	Text   string
	Filler bool
}

func (TextFrame) frame() {}

// LLMRunFrame requests an LLM run. Exactly one is queued per greeting; the
// lull trigger and pacing beats queue their own.
type LLMRunFrame struct{}

func (LLMRunFrame) frame() {}

// SystemMessageFrame appends a system note to the LLM context.
type SystemMessageFrame struct {
	Text string
}

func (SystemMessageFrame) frame() {}

// TTSStartedFrame and TTSStoppedFrame bracket one synthesis utterance.
type TTSStartedFrame struct{}

func (TTSStartedFrame) frame() {}

type TTSStoppedFrame struct{}

func (TTSStoppedFrame) frame() {}

// TTSTextFrame is the text the voice engine actually spoke, as reported by
// the TTS provider.
type TTSTextFrame struct {
	Text string
}

func (TTSTextFrame) frame() {}

// InterruptionFrame signals that a human started talking over the bot.
// Aggregation buffers are cleared; in-flight synthesis is cancelled upstream.
type InterruptionFrame struct{}

func (InterruptionFrame) frame() {}

// FlushFrame forces stateful processors to emit whatever they are holding.
type FlushFrame struct{}

func (FlushFrame) frame() {}

// UserActivityFrame marks any user activity (speech, message) and resets
// idle tracking.
type UserActivityFrame struct {
	PID string
}

func (UserActivityFrame) frame() {}

// ToolCallStartFrame and ToolCallEndFrame bracket one dispatched tool call.
// The narration processor keys its filler loop on them.
type ToolCallStartFrame struct {
	CallID string
	Name   string
}

func (ToolCallStartFrame) frame() {}

type ToolCallEndFrame struct {
	CallID string
	Result json.RawMessage
}

func (ToolCallEndFrame) frame() {}
