package api

import "errors"

var (
	// ErrRoomBusy is returned when a session is requested for a room that
	// already has a live session owned by a different (tenant, user) binding.
	ErrRoomBusy = errors.New("room already has a live session")

	// ErrSessionNotFound is returned by lookups and transitions that name a
	// session id with no registry entry.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoBinding is returned when a (tenant, user) pair has no live session
	// binding.
	ErrNoBinding = errors.New("no user-bot binding")

	// ErrPoolEmpty is returned by warm-pool dispatch when every candidate
	// runner has been tried and rejected.
	ErrPoolEmpty = errors.New("warm pool exhausted")

	// ErrAmbiguousUser is returned by tool user resolution when more than one
	// non-bot participant is present and nothing narrows the choice.
	ErrAmbiguousUser = errors.New("could not determine which participant the tool call refers to")
)
