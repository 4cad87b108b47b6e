package provider

import (
	"context"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Message is one entry of the prompt context sent to the LLM engine.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// ToolDef is the schema-bearing description of one callable tool, as the LLM
// engine wants it. The schema is pre-serialized; the tool package owns its
// construction.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// CompletionParams carries one LLM run request.
type CompletionParams struct {
	RunID        uuid.UUID
	Model        string
	Instructions string
	Messages     []Message
	Tools        []ToolDef
	Stream       bool
}

// StreamEvent is the closed set of events an LLM engine emits while
// streaming a completion.
type StreamEvent interface {
	streamEvent()
}

// Chunk is an incremental text fragment.
type Chunk struct {
	RunID     uuid.UUID
	Text      string
	Timestamp strfmt.DateTime
}

func (Chunk) streamEvent() {}

// ToolCall is a complete tool invocation request from the model.
type ToolCall struct {
	RunID     uuid.UUID
	CallID    string
	Name      string
	Arguments json.RawMessage
}

func (ToolCall) streamEvent() {}

// Done carries the final assembled text of a completion.
type Done struct {
	RunID     uuid.UUID
	Text      string
	Timestamp strfmt.DateTime
}

func (Done) streamEvent() {}

// Error terminates a stream abnormally.
type Error struct {
	RunID uuid.UUID
	Err   error
}

func (Error) streamEvent() {}

func (e Error) Error() string { return e.Err.Error() }
func (e Error) Unwrap() error { return e.Err }

// LLMEngine produces streamed completions. The returned channel is closed
// when the stream ends; an Error event precedes abnormal closure.
type LLMEngine interface {
	ChatCompletion(ctx context.Context, params CompletionParams) (<-chan StreamEvent, error)
}
