package api

import "time"

// Participant is one member of a room, human or bot, identified by the
// transport-assigned pid. Identity fields arrive incrementally: a join event
// may carry only a pid, with name and user id filled in by later identity
// events. IdentityVersion increments on every identity update so readers can
// detect staleness in snapshots.
type Participant struct {
	PID             string    `json:"pid"`
	DisplayName     string    `json:"display_name,omitempty"`
	UserID          string    `json:"user_id,omitempty"`
	Email           string    `json:"email,omitempty"`
	Stealth         bool      `json:"stealth,omitempty"`
	JoinedAt        time.Time `json:"joined_at"`
	IdentityVersion int       `json:"identity_version"`
}

// Bot reports whether this participant is a bot-controlled identity. The
// transport marks the local bot participant with a reserved user id prefix.
func (p Participant) Bot() bool {
	return len(p.UserID) >= 4 && p.UserID[:4] == "bot:"
}
