package uuidx

import "github.com/google/uuid"

// New generates a new version 7 UUID. V7 IDs sort by creation time, which
// keeps envelope ids and session ids roughly ordered in logs and indexes.
// It panics if the UUID generation fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString generates a new version 7 UUID and returns it as a string.
func NewString() string {
	return New().String()
}
