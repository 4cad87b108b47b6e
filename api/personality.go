package api

// Beat is one scheduled conversational prompt in a personality timeline.
// StartTime is seconds relative to session start.
type Beat struct {
	Message   string  `json:"message"`
	StartTime float64 `json:"start_time"`
}

// Personality is the configuration bundle shaping a bot's prompts, voice,
// and pacing.
type Personality struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	SystemPrompt   string   `json:"system_prompt"`
	Voice          string   `json:"voice,omitempty"`
	Sprite         string   `json:"sprite,omitempty"`
	Beats          []Beat   `json:"beats,omitempty"`
	RepeatInterval float64  `json:"repeat_interval,omitempty"`
	WrapupPrompt   string   `json:"wrapup_prompt,omitempty"`
	ToolWhitelist  []string `json:"tool_whitelist,omitempty"`
}
