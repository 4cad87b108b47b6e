// Package builtin registers the tools every session ships with. These are
// the always-allowed names plus the passthrough UI tools; the heavier
// product tools register themselves the same way from their own packages.
package builtin

import (
	"context"
	"time"

	"github.com/wispworks/wisp/events"
	"github.com/wispworks/wisp/tool"
)

type currentTimeParams struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"description=IANA timezone name, defaults to UTC"`
}

type summonSpriteParams struct {
	Sprite string `json:"sprite" jsonschema:"description=Name of the sprite to summon"`
}

// Register installs the builtin descriptors. Call before Freeze.
func Register(r *tool.Registry) {
	r.MustRegister(tool.Descriptor{
		Name:        "get_current_time",
		Description: "Returns the current date and time, optionally in a specific timezone.",
		Parameters:  tool.SchemaFor[currentTimeParams](),
		Handler:     currentTime,
	})
	r.MustRegister(tool.Descriptor{
		Name:        "end_conversation",
		Description: "Ends the conversation politely when the user says goodbye.",
		Handler:     endConversation,
	})
	r.MustRegister(tool.Descriptor{
		Name:        "summon_sprite",
		Description: "Summons a companion sprite into the user's view.",
		Parameters:  tool.SchemaFor[summonSpriteParams](),
		Passthrough: true,
		EventTopic:  events.TopicSpriteSummon,
	})
}

func currentTime(_ context.Context, p tool.Params) {
	loc := time.UTC
	if tz := p.Arguments.Get("timezone").String(); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			p.Respond(tool.Result{
				Success:     false,
				Error:       "unknown_timezone",
				UserMessage: "I don't recognize that timezone.",
			})
			return
		}
		loc = parsed
	}
	now := time.Now().In(loc)
	p.Respond(tool.Result{
		Success: true,
		Data: map[string]any{
			"iso":      now.Format(time.RFC3339),
			"readable": now.Format("Monday, January 2, 3:04 PM"),
		},
		RerunLLM: true,
	})
}

func endConversation(_ context.Context, p tool.Params) {
	p.Context.Forward(events.TopicWrapup, map[string]any{
		"room_url": p.RoomURL,
		"source":   "tool",
	})
	p.Respond(tool.Result{Success: true})
}
