package tool

import (
	"context"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wispworks/wisp/api"
	"github.com/wispworks/wisp/provider"
)

func noopHandler(ctx context.Context, p Params) {
	p.Respond(Result{Success: true})
}

func TestRegistryUniqueNames(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{Name: "create_note", Handler: noopHandler}))
	err := r.Register(Descriptor{Name: "create_note", Handler: noopHandler})
	assert.ErrorContains(t, err, "duplicate tool name")
}

func TestRegistryValidation(t *testing.T) {
	r := NewRegistry()
	assert.ErrorContains(t, r.Register(Descriptor{Handler: noopHandler}), "needs a name")
	assert.ErrorContains(t, r.Register(Descriptor{Name: "no_handler"}), "no handler")
	assert.NoError(t, r.Register(Descriptor{Name: "show_window", Passthrough: true}))
}

func TestRegistryFreeze(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{Name: "create_note", Handler: noopHandler}))
	r.Freeze()
	assert.ErrorContains(t, r.Register(Descriptor{Name: "late", Handler: noopHandler}), "frozen")

	// reads still work
	_, ok := r.Get("create_note")
	assert.True(t, ok)
}

func TestRegistryDeterministicOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "midway"} {
		require.NoError(t, r.Register(Descriptor{Name: name, Passthrough: true}))
	}
	assert.Equal(t, []string{"alpha", "midway", "zeta"}, r.Names())
}

func TestManifestByteStable(t *testing.T) {
	build := func() []byte {
		r := NewRegistry()
		r.MustRegister(Descriptor{Name: "create_note", Description: "Create a note", FeatureFlag: "notes", Handler: noopHandler})
		r.MustRegister(Descriptor{Name: "show_window", Description: "Open a window", Passthrough: true})
		r.MustRegister(Descriptor{Name: "summon_sprite", Description: "Summon a sprite", FeatureFlag: "sprites", Passthrough: true})
		r.Freeze()
		b, err := r.BuildManifest().MarshalIndent()
		require.NoError(t, err)
		return b
	}
	first := build()
	second := build()
	assert.Equal(t, first, second, "manifest is byte-stable across runs")

	var m Manifest
	require.NoError(t, json.Unmarshal(first, &m))
	assert.Equal(t, []string{"create_note", "show_window", "summon_sprite"}, []string{m.Tools[0].Name, m.Tools[1].Name, m.Tools[2].Name})
	assert.Equal(t, []string{"notes", "sprites"}, m.FeatureFlags)
}

func TestSchemaFor(t *testing.T) {
	type noteParams struct {
		Title string `json:"title" jsonschema:"description=Title of the note"`
		Body  string `json:"body,omitempty"`
	}
	schema := SchemaFor[noteParams]()
	require.NotNil(t, schema)
	b, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"title"`)
	assert.Contains(t, string(b), `"body"`)
}

func newDispatcher(t *testing.T, descs ...Descriptor) (*Dispatcher, *[]string) {
	t.Helper()
	r := NewRegistry()
	for _, d := range descs {
		r.MustRegister(d)
	}
	r.Freeze()

	var emitted []string
	d := &Dispatcher{
		Registry: r,
		RoomURL:  "https://rooms.example/alpha",
		Context:  NewHandlerContext("t-1", "u-1", nil, nil),
		EmitToolEvent: func(topic string, data map[string]any) {
			emitted = append(emitted, topic)
		},
	}
	return d, &emitted
}

func TestDispatchUnknownTool(t *testing.T) {
	d, _ := newDispatcher(t)
	res := d.Dispatch(context.Background(), provider.ToolCall{CallID: "c1", Name: "nope"})
	assert.False(t, res.Success)
	assert.Equal(t, ErrorUnknownOrDisabled, res.Error)
}

func TestDispatchWhitelist(t *testing.T) {
	d, _ := newDispatcher(t,
		Descriptor{Name: "create_note", Handler: noopHandler},
		Descriptor{Name: "summon_sprite", Handler: noopHandler},
		Descriptor{Name: "end_conversation", Handler: noopHandler},
	)
	d.Whitelist = []string{"create_note"}

	assert.True(t, d.Dispatch(context.Background(), provider.ToolCall{Name: "create_note"}).Success)
	assert.Equal(t, ErrorUnknownOrDisabled, d.Dispatch(context.Background(), provider.ToolCall{Name: "summon_sprite"}).Error)
	// always-allowed names bypass the whitelist
	assert.True(t, d.Dispatch(context.Background(), provider.ToolCall{Name: "end_conversation"}).Success)
}

func TestDispatchPassthrough(t *testing.T) {
	d, emitted := newDispatcher(t, Descriptor{Name: "window.show", Passthrough: true})

	res := d.Dispatch(context.Background(), provider.ToolCall{
		CallID:    "c1",
		Name:      "window.show",
		Arguments: json.RawMessage(`{"url":"https://example.com"}`),
	})
	assert.True(t, res.Success)
	require.Equal(t, []string{"window.show"}, *emitted)
}

func TestDispatchPassthroughEventTopic(t *testing.T) {
	d, emitted := newDispatcher(t, Descriptor{
		Name:        "summon_sprite",
		Passthrough: true,
		EventTopic:  "sprite.summon",
	})

	res := d.Dispatch(context.Background(), provider.ToolCall{
		CallID:    "c1",
		Name:      "summon_sprite",
		Arguments: json.RawMessage(`{"sprite":"fern"}`),
	})
	assert.True(t, res.Success)
	require.Equal(t, []string{"sprite.summon"}, *emitted)
}

func TestDispatchHandlerReceivesParams(t *testing.T) {
	var got Params
	d, _ := newDispatcher(t, Descriptor{
		Name: "create_note",
		Handler: func(ctx context.Context, p Params) {
			got = p
			p.Respond(Result{Success: true, Data: map[string]any{"note_id": "n-1"}, RerunLLM: true})
		},
	})

	res := d.Dispatch(context.Background(), provider.ToolCall{
		CallID:    "c1",
		Name:      "create_note",
		Arguments: json.RawMessage(`{"title":"groceries"}`),
	})

	require.True(t, res.Success)
	assert.True(t, res.RerunLLM)
	assert.Equal(t, "n-1", res.Data["note_id"])
	assert.Equal(t, "https://rooms.example/alpha", got.RoomURL)
	assert.Equal(t, "groceries", got.Arguments.Get("title").String())
	assert.Equal(t, "t-1", got.Context.TenantID())
}

func TestDispatchContainsPanics(t *testing.T) {
	d, _ := newDispatcher(t, Descriptor{
		Name:    "explode",
		Handler: func(ctx context.Context, p Params) { panic("kaboom") },
	})
	var res Result
	assert.NotPanics(t, func() {
		res = d.Dispatch(context.Background(), provider.ToolCall{Name: "explode"})
	})
	assert.False(t, res.Success)
	assert.Equal(t, "internal_error", res.Error)
	assert.NotEmpty(t, res.UserMessage)
}

func TestDispatchSilentHandler(t *testing.T) {
	d, _ := newDispatcher(t, Descriptor{
		Name:    "mute",
		Handler: func(ctx context.Context, p Params) {},
	})
	res := d.Dispatch(context.Background(), provider.ToolCall{Name: "mute"})
	assert.False(t, res.Success)
	assert.Equal(t, "handler_did_not_respond", res.Error)
}

func TestResolveUser(t *testing.T) {
	alice := api.Participant{PID: "p1", DisplayName: "Alice"}
	bob := api.Participant{PID: "p2", DisplayName: "Bob"}
	bot := api.Participant{PID: "p9", UserID: "bot:wisp"}

	t.Run("explicit pid wins", func(t *testing.T) {
		p, err := ResolveUser("p2", "[User Alice, pid: p1]", []api.Participant{alice, bob, bot})
		require.NoError(t, err)
		assert.Equal(t, "p2", p.PID)
	})

	t.Run("explicit pid not present", func(t *testing.T) {
		_, err := ResolveUser("ghost", "", []api.Participant{alice})
		assert.ErrorIs(t, err, api.ErrAmbiguousUser)
	})

	t.Run("most recent marker", func(t *testing.T) {
		prompt := "[User Alice, pid: p1] said hi\n[User Bob, pid: p2] asked about notes"
		p, err := ResolveUser("", prompt, []api.Participant{alice, bob, bot})
		require.NoError(t, err)
		assert.Equal(t, "p2", p.PID)
	})

	t.Run("single human fallback", func(t *testing.T) {
		p, err := ResolveUser("", "no markers here", []api.Participant{alice, bot})
		require.NoError(t, err)
		assert.Equal(t, "p1", p.PID)
	})

	t.Run("ambiguous", func(t *testing.T) {
		_, err := ResolveUser("", "", []api.Participant{alice, bob})
		require.ErrorIs(t, err, api.ErrAmbiguousUser)
		assert.Contains(t, err.Error(), "2 people")
	})

	t.Run("empty room", func(t *testing.T) {
		_, err := ResolveUser("", "", []api.Participant{bot})
		assert.ErrorIs(t, err, api.ErrAmbiguousUser)
	})
}
