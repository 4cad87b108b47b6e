package tool

import (
	"context"

	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"

	"github.com/wispworks/wisp/pkg/stdx"
)

// Result is what a handler reports through its callback. Error and
// UserMessage are both surfaced: Error goes back to the LLM as structured
// data, UserMessage is what the bot speaks when the call fails.
type Result struct {
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
	UserMessage string         `json:"user_message,omitempty"`
	Data        map[string]any `json:"data,omitempty"`

	// RerunLLM asks the dispatcher to queue another LLM run carrying this
	// result, so the model can react to it.
	RerunLLM bool `json:"-"`
}

// Params is the single argument handed to a tool handler.
type Params struct {
	// Arguments is the parsed LLM-provided argument object.
	Arguments gjson.Result
	// RawArguments is the original argument JSON.
	RawArguments json.RawMessage
	// RoomURL scopes the call to the session's room.
	RoomURL string
	// Context exposes lazy identity accessors and the forwarder.
	Context *HandlerContext
	// Respond reports the handler's result. Must be called exactly once.
	Respond func(Result)
}

// Handler runs a tool call. Handlers never return errors across the
// dispatcher boundary; failures are reported through Respond.
type Handler func(ctx context.Context, p Params)

// Descriptor describes one registered tool. Immutable after registration.
type Descriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
	FeatureFlag string             `json:"feature_flag,omitempty"`
	Passthrough bool               `json:"passthrough"`
	// EventTopic is the bus topic a passthrough call is published under.
	// Empty means the tool name doubles as the topic.
	EventTopic string  `json:"event_topic,omitempty"`
	Handler    Handler `json:"-"`
}

var paramReflector = jsonschema.Reflector{
	AllowAdditionalProperties: true,
	DoNotReference:            true,
}

// SchemaFor reflects a JSON schema from a params struct type. The reflector
// inlines everything so the exported schema has no $ref indirection.
func SchemaFor[T any]() *jsonschema.Schema {
	var t T
	schema := paramReflector.Reflect(&t)
	schema.Version = ""
	return schema
}

// ParametersJSON serializes the descriptor's parameter schema, returning an
// empty object schema when none is declared.
func (d Descriptor) ParametersJSON() json.RawMessage {
	if d.Parameters == nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return stdx.Must1(json.Marshal(d.Parameters))
}
