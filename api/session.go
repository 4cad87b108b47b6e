package api

import (
	"time"
)

// SessionState labels where a session is in its lifecycle. States form a DAG
// whose only backward edge is into StateTerminal.
type SessionState string

const (
	StateBoot         SessionState = "boot"
	StateConversation SessionState = "conversation"
	StateBeat         SessionState = "beat"
	StateWrapup       SessionState = "wrapup"
	StateTerminal     SessionState = "terminal"
)

// Terminal reports whether the state is absorbing.
func (s SessionState) Terminal() bool { return s == StateTerminal }

// Session is the canonical record for one live bot instance. It is created
// by the supervisor, mutated only by its owning task, and destroyed on
// leave, transition failure, or error.
type Session struct {
	ID            string       `json:"session_id"`
	RoomURL       string       `json:"room_url"`
	TenantID      string       `json:"tenant_id,omitempty"`
	UserID        string       `json:"user_id,omitempty"`
	PersonalityID string       `json:"personality_id,omitempty"`
	Persona       string       `json:"persona,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	State         SessionState `json:"state"`
}

// Binding maps a (tenant, user) pair to its one live session. At most one
// binding exists per pair; the operator uses it to decide between reusing a
// session, transitioning it, and creating a new one.
type Binding struct {
	TenantID      string `json:"tenant_id"`
	UserID        string `json:"user_id"`
	SessionID     string `json:"session_id"`
	RoomURL       string `json:"room_url"`
	PersonalityID string `json:"personality_id,omitempty"`
	Persona       string `json:"persona,omitempty"`
}

// BindingKey returns the map key for a (tenant, user) pair.
func BindingKey(tenantID, userID string) string {
	return tenantID + ":" + userID
}
