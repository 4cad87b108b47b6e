package supervisor

import (
	"context"
	"fmt"
	"log/slog"

	json "github.com/goccy/go-json"

	"github.com/wispworks/wisp/api"
	"github.com/wispworks/wisp/pkg/slogx"
)

const defaultSprite = "wisp"

// resolvePersonality follows the lookup chain: a config payload pushed for
// the room wins, then the store by id, then the sprite fallback. The sprite
// result gets a prompt backfilled when the store record has none.
func (s *Supervisor) resolvePersonality(ctx context.Context, roomURL, personalityID, persona string) (api.Personality, error) {
	if payload, ok, err := s.deps.Cache.Config(ctx, roomURL); err != nil {
		s.log.Warn("config cache read failed", slogx.Error(err), slogx.Room(roomURL))
	} else if ok {
		var p api.Personality
		if uerr := json.Unmarshal(payload, &p); uerr == nil && p.ID != "" {
			return backfill(p), nil
		}
		s.log.Warn("discarding unparseable pushed config", slogx.Room(roomURL))
	}

	if personalityID != "" {
		p, err := s.deps.Store.Personality(ctx, personalityID)
		if err == nil {
			return backfill(p), nil
		}
		s.log.Warn("personality lookup failed, trying sprite fallback",
			slogx.Error(err), slog.String("personality", personalityID))
	}

	sprite := persona
	if sprite == "" {
		sprite = defaultSprite
	}
	p, err := s.deps.Store.PersonalityBySprite(ctx, sprite)
	if err != nil {
		return api.Personality{}, fmt.Errorf("resolve personality for sprite %q: %w", sprite, err)
	}
	return backfill(p), nil
}

// backfill fills the prompt for personalities stored without one.
func backfill(p api.Personality) api.Personality {
	if p.SystemPrompt == "" {
		name := p.Name
		if name == "" {
			name = p.Sprite
		}
		p.SystemPrompt = fmt.Sprintf(
			"You are %s, a warm voice assistant in a live call. Keep replies short and conversational. Reply with SILENCE when no response is needed.",
			name)
	}
	return p
}
