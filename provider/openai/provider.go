// Package openai adapts the OpenAI chat completion API to the module's
// LLMEngine interface. It is the default engine wired by the wisp binary;
// deployments with other providers supply their own adapter.
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/wispworks/wisp/provider"
)

type Engine struct {
	client *openai.Client
	model  string
}

var _ provider.LLMEngine = (*Engine)(nil)

// New builds an engine for the given model name. options are passed through
// to the OpenAI client (base URL, API key, middleware).
func New(model string, options ...option.RequestOption) *Engine {
	return &Engine{
		client: openai.NewClient(options...),
		model:  model,
	}
}

func (e *Engine) buildRequest(params *provider.CompletionParams) (openai.ChatCompletionNewParams, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(params.Messages)+1)
	if strings.TrimSpace(params.Instructions) != "" {
		msgs = append(msgs, openai.SystemMessage(params.Instructions))
	}
	for _, m := range params.Messages {
		switch m.Role {
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	tools := make([]openai.ChatCompletionToolParam, len(params.Tools))
	for i, t := range params.Tools {
		var schema map[string]any
		if len(t.Parameters) > 0 {
			if err := json.Unmarshal(t.Parameters, &schema); err != nil {
				return openai.ChatCompletionNewParams{}, fmt.Errorf("tool %s has invalid parameter schema: %w", t.Name, err)
			}
		}
		def := openai.FunctionDefinitionParam{
			Name:       openai.String(t.Name),
			Parameters: openai.F(shared.FunctionParameters(schema)),
		}
		if strings.TrimSpace(t.Description) != "" {
			def.Description = openai.String(t.Description)
		}
		tools[i] = openai.ChatCompletionToolParam{
			Type:     openai.F(openai.ChatCompletionToolTypeFunction),
			Function: openai.F(def),
		}
	}

	model := params.Model
	if model == "" {
		model = e.model
	}
	oaiParams := openai.ChatCompletionNewParams{
		Messages:    openai.F(msgs),
		Model:       openai.F(model),
		N:           openai.Int(1),
		Temperature: openai.Float(0.7),
	}
	if len(tools) > 0 {
		oaiParams.Tools = openai.F(tools)
		oaiParams.ParallelToolCalls = openai.Bool(true)
	}
	return oaiParams, nil
}

func (e *Engine) ChatCompletion(ctx context.Context, params provider.CompletionParams) (<-chan provider.StreamEvent, error) {
	chatParams, err := e.buildRequest(&params)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	events := make(chan provider.StreamEvent, 10)
	go func() {
		defer close(events)
		e.runStream(ctx, chatParams, &params, events)
	}()
	return events, nil
}

func (e *Engine) runStream(ctx context.Context, chatParams openai.ChatCompletionNewParams, params *provider.CompletionParams, events chan<- provider.StreamEvent) {
	strm := e.client.Chat.Completions.NewStreaming(ctx, chatParams)
	defer strm.Close()

	if strm.Err() != nil {
		events <- provider.Error{RunID: params.RunID, Err: strm.Err()}
		return
	}

	var acc openai.ChatCompletionAccumulator
	for strm.Next() {
		if err := ctx.Err(); err != nil {
			events <- provider.Error{RunID: params.RunID, Err: err}
			return
		}

		chunk := strm.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			events <- provider.Chunk{
				RunID:     params.RunID,
				Text:      chunk.Choices[0].Delta.Content,
				Timestamp: strfmt.DateTime(time.Now()),
			}
		}
	}
	if err := strm.Err(); err != nil {
		events <- provider.Error{RunID: params.RunID, Err: err}
		return
	}

	if len(acc.Choices) == 0 {
		events <- provider.Error{RunID: params.RunID, Err: fmt.Errorf("no choices in completion")}
		return
	}

	choice := acc.Choices[0]
	for _, tc := range choice.Message.ToolCalls {
		events <- provider.ToolCall{
			RunID:     params.RunID,
			CallID:    tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		}
	}
	events <- provider.Done{
		RunID:     params.RunID,
		Text:      choice.Message.Content,
		Timestamp: strfmt.DateTime(time.Now()),
	}
}
