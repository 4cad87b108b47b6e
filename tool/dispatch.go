package tool

import (
	"context"
	"log/slog"
	"slices"

	"github.com/tidwall/gjson"

	"github.com/wispworks/wisp/pkg/slogx"
	"github.com/wispworks/wisp/provider"
)

// ErrorUnknownOrDisabled is the structured error code for calls that name a
// missing tool or one gated out by the session whitelist.
const ErrorUnknownOrDisabled = "unknown_or_disabled"

// AlwaysAllowed are tool names dispatchable even under a whitelist.
var AlwaysAllowed = []string{"end_conversation", "get_current_time"}

// Dispatcher resolves and runs tool calls for one session. The registry is
// shared and frozen; the whitelist and handler context are per-session.
type Dispatcher struct {
	Registry *Registry

	// Whitelist, when non-nil, restricts dispatch to whitelisted and
	// always-allowed names. A nil whitelist allows everything.
	Whitelist []string

	// RoomURL scopes every call.
	RoomURL string

	// Context is the per-session capability bundle handed to handlers.
	Context *HandlerContext

	// EmitToolEvent delivers passthrough tool events to the UI. Topic is the
	// descriptor's event topic, falling back to the tool name.
	EmitToolEvent func(topic string, data map[string]any)
}

// allowed reports whether a tool name passes the session gate.
func (d *Dispatcher) allowed(name string) bool {
	if d.Whitelist == nil {
		return true
	}
	return slices.Contains(d.Whitelist, name) || slices.Contains(AlwaysAllowed, name)
}

// Dispatch runs one LLM tool call to completion and returns its result.
// Unknown and gated tools produce a structured error, never a Go error;
// handler panics are contained the same way.
func (d *Dispatcher) Dispatch(ctx context.Context, call provider.ToolCall) Result {
	desc, ok := d.Registry.Get(call.Name)
	if !ok || !d.allowed(call.Name) {
		return Result{Success: false, Error: ErrorUnknownOrDisabled}
	}

	if desc.Passthrough {
		data := map[string]any{
			"call_id":  call.CallID,
			"room_url": d.RoomURL,
		}
		if len(call.Arguments) > 0 {
			data["arguments"] = gjson.ParseBytes(call.Arguments).Value()
		}
		if d.EmitToolEvent != nil {
			topic := desc.EventTopic
			if topic == "" {
				topic = call.Name
			}
			d.EmitToolEvent(topic, data)
		}
		return Result{Success: true}
	}

	var result Result
	responded := false
	params := Params{
		Arguments:    gjson.ParseBytes(call.Arguments),
		RawArguments: call.Arguments,
		RoomURL:      d.RoomURL,
		Context:      d.Context,
		Respond: func(r Result) {
			result = r
			responded = true
		},
	}

	if err := d.invoke(ctx, desc, params); err != nil {
		slog.Error("tool handler panicked",
			slog.String("tool", call.Name),
			slog.String("call_id", call.CallID),
			slogx.Error(err),
			slogx.LoggerName("tool"),
		)
		return Result{
			Success:     false,
			Error:       "internal_error",
			UserMessage: "Sorry, something went wrong with that.",
		}
	}
	if !responded {
		return Result{Success: false, Error: "handler_did_not_respond"}
	}
	return result
}

func (d *Dispatcher) invoke(ctx context.Context, desc Descriptor, params Params) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	desc.Handler(ctx, params)
	return nil
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	if err, ok := e.value.(error); ok {
		return "panic: " + err.Error()
	}
	return "panic in tool handler"
}
