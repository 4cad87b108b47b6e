// Package flow drives a session's conversational arc: the greeting grace
// window, pacing beats from the personality timeline, and the wrap-up that
// closes the conversation. One Manager owns one session's flow; all of its
// background timers are registered with the session and cancelled together
// at teardown.
package flow

import "github.com/wispworks/wisp/api"

// GreetingMode labels how many people the greeting addresses.
type GreetingMode string

const (
	GreetNone   GreetingMode = "none"
	GreetSingle GreetingMode = "single"
	GreetPair   GreetingMode = "pair"
	GreetGroup  GreetingMode = "group"
)

// GreetingState is the observable greeting substate.
type GreetingState struct {
	// Participants are the pids accumulated in the current or most recently
	// fired grace window.
	Participants []string `json:"participants"`
	// GraceParticipants maps window pids to display names.
	GraceParticipants map[string]string `json:"grace_participants"`
	// GreetedUserIDs records which user ids have been greeted this session.
	GreetedUserIDs map[string]struct{} `json:"-"`
	// Mode is the mode of the last fired greeting, or "none".
	Mode GreetingMode `json:"mode"`
}

// BeatState is one pacing beat plus whether it has fired this cycle.
type BeatState struct {
	Message   string  `json:"message"`
	StartTime float64 `json:"start_time"`
	Fired     bool    `json:"fired"`
}

// WrapupState is the observable wrap-up substate.
type WrapupState struct {
	Delay  float64 `json:"delay"`
	Prompt string  `json:"prompt"`
	Active bool    `json:"active"`
	Fired  bool    `json:"fired"`
}

// PacingState is the observable pacing substate.
type PacingState struct {
	Beats  []BeatState `json:"beats"`
	Wrapup WrapupState `json:"wrapup"`
}

// SummaryEntry is one captured conversation summary.
type SummaryEntry struct {
	Version          int    `json:"version"`
	Text             string `json:"text"`
	FormattedMessage string `json:"formatted_message"`
}

// SummaryTap accumulates versioned summaries of the conversation.
type SummaryTap struct {
	History []SummaryEntry `json:"history"`
	Version int            `json:"version"`
}

// State is a point-in-time snapshot of a session's flow. Node transitions
// form a DAG; terminal is absorbing.
type State struct {
	Node       api.SessionState `json:"node"`
	Greeting   GreetingState    `json:"greeting"`
	Pacing     PacingState      `json:"pacing"`
	SummaryTap SummaryTap       `json:"summary_tap"`
}
