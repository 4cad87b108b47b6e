// Package local provides development implementations of the transport and
// voice interfaces. They log instead of touching real media infrastructure,
// which is enough to run the operator end to end on a laptop.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wispworks/wisp/api"
	"github.com/wispworks/wisp/pkg/slogx"
	"github.com/wispworks/wisp/pkg/uuidx"
	"github.com/wispworks/wisp/provider"
)

// Transport is an in-process stand-in for the media substrate. Join hands
// out synthetic pids; app messages go to an optional tap for inspection.
type Transport struct {
	log *slog.Logger

	mu     sync.Mutex
	joined map[string]string
	tap    func(roomURL string, payload []byte)
}

var _ provider.Transport = (*Transport)(nil)

// NewTransport builds a loopback transport. tap may be nil.
func NewTransport(logger *slog.Logger, tap func(roomURL string, payload []byte)) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	if tap == nil {
		tap = func(string, []byte) {}
	}
	return &Transport{
		log:    logger.With(slogx.LoggerName("wisp.transport.local")),
		joined: make(map[string]string),
		tap:    tap,
	}
}

func (t *Transport) Join(_ context.Context, roomURL, _ string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pid, ok := t.joined[roomURL]
	if !ok {
		pid = "bot-" + uuidx.NewString()
		t.joined[roomURL] = pid
	}
	t.log.Info("joined room", slogx.Room(roomURL), slog.String("pid", pid))
	return pid, nil
}

func (t *Transport) Leave(_ context.Context, roomURL string) error {
	t.mu.Lock()
	delete(t.joined, roomURL)
	t.mu.Unlock()
	t.log.Info("left room", slogx.Room(roomURL))
	return nil
}

func (t *Transport) SendAppMessage(_ context.Context, roomURL string, payload []byte) error {
	t.tap(roomURL, payload)
	return nil
}

// Voice logs utterances instead of synthesizing them.
type Voice struct {
	log *slog.Logger
}

var _ provider.VoiceEngine = (*Voice)(nil)

func NewVoice(logger *slog.Logger) *Voice {
	if logger == nil {
		logger = slog.Default()
	}
	return &Voice{log: logger.With(slogx.LoggerName("wisp.voice.local"))}
}

func (v *Voice) Speak(_ context.Context, text string) error {
	if text == "" {
		return nil
	}
	v.log.Info("speaking", slog.String("text", text))
	return nil
}

func (v *Voice) Interrupt(context.Context) error {
	v.log.Info("interrupted")
	return nil
}

// Store is an in-memory content store. Personalities are seeded at
// construction; unknown sprites resolve to a generated minimal personality
// so a bare process can always greet.
type Store struct {
	mu            sync.RWMutex
	personalities map[string]api.Personality
	profiles      map[string]provider.Profile
}

var _ provider.ContentStore = (*Store)(nil)

func NewStore(seed ...api.Personality) *Store {
	s := &Store{
		personalities: make(map[string]api.Personality, len(seed)),
		profiles:      make(map[string]provider.Profile),
	}
	for _, p := range seed {
		s.personalities[p.ID] = p
	}
	return s
}

// AddProfile seeds a user profile for tools that resolve identity.
func (s *Store) AddProfile(p provider.Profile) {
	s.mu.Lock()
	s.profiles[p.TenantID+":"+p.UserID] = p
	s.mu.Unlock()
}

func (s *Store) Personality(_ context.Context, id string) (api.Personality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.personalities[id]; ok {
		return p, nil
	}
	return api.Personality{}, fmt.Errorf("personality %q not found", id)
}

func (s *Store) PersonalityBySprite(_ context.Context, sprite string) (api.Personality, error) {
	s.mu.RLock()
	for _, p := range s.personalities {
		if p.Sprite == sprite {
			s.mu.RUnlock()
			return p, nil
		}
	}
	s.mu.RUnlock()
	return api.Personality{ID: "sprite-" + sprite, Name: sprite, Sprite: sprite}, nil
}

func (s *Store) Profile(_ context.Context, tenantID, userID string) (provider.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[tenantID+":"+userID]; ok {
		return p, nil
	}
	return provider.Profile{}, fmt.Errorf("profile %s:%s not found", tenantID, userID)
}
