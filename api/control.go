package api

// JoinRequest asks the operator to place a bot in a room. Tenant and user
// fields are optional: without them the session is anonymous and the
// one-bot-per-user rule does not apply.
type JoinRequest struct {
	RoomURL         string `json:"room_url"`
	TenantID        string `json:"tenantId,omitempty"`
	SessionUserID   string `json:"sessionUserId,omitempty"`
	SessionUserName string `json:"sessionUserName,omitempty"`
	PersonalityID   string `json:"personalityId,omitempty"`
	Persona         string `json:"persona,omitempty"`
	Token           string `json:"token,omitempty"`
}

// JoinResponse reports the session serving the request. Status is "created",
// "reused", or "transitioned".
type JoinResponse struct {
	Status        string `json:"status"`
	SessionID     string `json:"session_id"`
	RoomURL       string `json:"room_url"`
	Reused        bool   `json:"reused,omitempty"`
	PersonalityID string `json:"personalityId,omitempty"`
	Persona       string `json:"persona,omitempty"`
}

// LeaveRequest clears pending configuration for a room and marks it
// quiescent.
type LeaveRequest struct {
	RoomURL string `json:"room_url"`
}

// LeaveResponse reports the outcome of a room leave.
type LeaveResponse struct {
	Status      string `json:"status"`
	RoomURL     string `json:"room_url"`
	KeysDeleted int    `json:"keys_deleted"`
	Warning     string `json:"warning,omitempty"`
}

// TransitionRequest moves an existing session into a new room, keeping its
// session id.
type TransitionRequest struct {
	NewRoomURL      string `json:"new_room_url"`
	NewToken        string `json:"new_token,omitempty"`
	PersonalityID   string `json:"personalityId,omitempty"`
	Persona         string `json:"persona,omitempty"`
	SessionUserID   string `json:"sessionUserId,omitempty"`
	SessionUserName string `json:"sessionUserName,omitempty"`
}

// SessionSummary is one row of the /sessions listing.
type SessionSummary struct {
	SessionID   string `json:"session_id"`
	RoomURL     string `json:"room_url"`
	Personality string `json:"personality"`
	Persona     string `json:"persona"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Sessions int `json:"sessions"`
}
