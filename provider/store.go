package provider

import (
	"context"

	"github.com/wispworks/wisp/api"
)

// Profile is the stored identity record for a (tenant, user) pair. Tools
// resolve "the current user" against it lazily.
type Profile struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// ContentStore is the persistence layer for personalities and profiles.
// Notes and shared content live behind the same interface in the full
// system; the orchestrator only needs these reads.
type ContentStore interface {
	Personality(ctx context.Context, id string) (api.Personality, error)

	// PersonalityBySprite is the fallback lookup: when no personality id is
	// configured, resolve by sprite name and backfill the prompt.
	PersonalityBySprite(ctx context.Context, sprite string) (api.Personality, error)

	Profile(ctx context.Context, tenantID, userID string) (Profile, error)
}
