package builtin

import (
	"context"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/wispworks/wisp/events"
	"github.com/wispworks/wisp/tool"
)

func registered(t *testing.T) *tool.Registry {
	t.Helper()
	r := tool.NewRegistry()
	Register(r)
	r.Freeze()
	return r
}

func TestRegisterNames(t *testing.T) {
	r := registered(t)
	assert.Equal(t, []string{"end_conversation", "get_current_time", "summon_sprite"}, r.Names())

	d, ok := r.Get("summon_sprite")
	require.True(t, ok)
	assert.True(t, d.Passthrough)
	assert.Equal(t, events.TopicSpriteSummon, d.EventTopic)
}

func runTool(t *testing.T, r *tool.Registry, name, args string) tool.Result {
	t.Helper()
	d, ok := r.Get(name)
	require.True(t, ok)

	var res tool.Result
	d.Handler(context.Background(), tool.Params{
		Arguments:    gjson.Parse(args),
		RawArguments: json.RawMessage(args),
		RoomURL:      "https://rooms.test/a",
		Context:      tool.NewHandlerContext("", "", nil, nil),
		Respond:      func(r tool.Result) { res = r },
	})
	return res
}

func TestCurrentTime(t *testing.T) {
	r := registered(t)

	res := runTool(t, r, "get_current_time", `{}`)
	require.True(t, res.Success)
	assert.True(t, res.RerunLLM)
	assert.NotEmpty(t, res.Data["iso"])
	assert.NotEmpty(t, res.Data["readable"])

	res = runTool(t, r, "get_current_time", `{"timezone":"Not/AZone"}`)
	require.False(t, res.Success)
	assert.Equal(t, "unknown_timezone", res.Error)
	assert.NotEmpty(t, res.UserMessage)
}

func TestEndConversation(t *testing.T) {
	r := registered(t)
	res := runTool(t, r, "end_conversation", `{}`)
	assert.True(t, res.Success)
}
