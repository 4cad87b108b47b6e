package statecache

import (
	"context"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/goccy/go-json"
)

type localEntry struct {
	val []byte
	exp time.Time
}

// Local is the process-local Store used when Redis is disabled. Entries
// expire lazily on read, which is enough for a cache whose authoritative
// copy lives in the session registry anyway.
type Local struct {
	entries *haxmap.Map[string, localEntry]
	now     func() time.Time
}

// NewLocal returns an in-process store with the same key layout and TTL
// behavior as the redis backend.
func NewLocal() *Local {
	return &Local{
		entries: haxmap.New[string, localEntry](),
		now:     time.Now,
	}
}

func (s *Local) get(key string) ([]byte, bool) {
	e, ok := s.entries.Get(key)
	if !ok {
		return nil, false
	}
	if s.now().After(e.exp) {
		s.entries.Del(key)
		return nil, false
	}
	return e.val, true
}

func (s *Local) set(key string, val []byte, ttl time.Duration) {
	s.entries.Set(key, localEntry{val: val, exp: s.now().Add(ttl)})
}

func (s *Local) SetActive(_ context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.set(activeKey(rec.RoomURL), data, ActiveTTL)
	s.set(keepaliveKey(rec.RoomURL), []byte("1"), KeepaliveTTL)
	return nil
}

func (s *Local) Active(_ context.Context, roomURL string) (Record, bool, error) {
	data, ok := s.get(activeKey(roomURL))
	if !ok {
		return Record{}, false, nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *Local) DeleteActive(_ context.Context, roomURL string) (int, error) {
	deleted := 0
	for _, key := range []string{
		activeKey(roomURL),
		keepaliveKey(roomURL),
		configKey(roomURL),
		hashKey(roomURL),
		noteKey(roomURL),
	} {
		if _, ok := s.get(key); ok {
			deleted++
		}
		s.entries.Del(key)
	}
	return deleted, nil
}

func (s *Local) Keepalive(_ context.Context, roomURL string) error {
	s.set(keepaliveKey(roomURL), []byte("1"), KeepaliveTTL)
	return nil
}

func (s *Local) Alive(_ context.Context, roomURL string) (bool, error) {
	_, ok := s.get(keepaliveKey(roomURL))
	return ok, nil
}

func (s *Local) SetBinding(_ context.Context, tenantID, userID, sessionID string) error {
	s.set(bindingKey(tenantID, userID), []byte(sessionID), BindingTTL)
	return nil
}

func (s *Local) Binding(_ context.Context, tenantID, userID string) (string, bool, error) {
	data, ok := s.get(bindingKey(tenantID, userID))
	if !ok {
		return "", false, nil
	}
	return string(data), true, nil
}

func (s *Local) DeleteBinding(_ context.Context, tenantID, userID string) error {
	s.entries.Del(bindingKey(tenantID, userID))
	return nil
}

func (s *Local) SetConfig(_ context.Context, roomURL string, payload []byte) error {
	s.set(configKey(roomURL), payload, ConfigTTL)
	s.set(hashKey(roomURL), []byte(configHash(payload)), ConfigTTL)
	return nil
}

func (s *Local) Config(_ context.Context, roomURL string) ([]byte, bool, error) {
	data, ok := s.get(configKey(roomURL))
	return data, ok, nil
}

func (s *Local) ConfigHash(_ context.Context, roomURL string) (string, bool, error) {
	data, ok := s.get(hashKey(roomURL))
	if !ok {
		return "", false, nil
	}
	return string(data), true, nil
}

func (s *Local) SetNote(_ context.Context, roomURL, noteID string) error {
	s.set(noteKey(roomURL), []byte(noteID), NoteTTL)
	return nil
}

func (s *Local) Note(_ context.Context, roomURL string) (string, bool, error) {
	data, ok := s.get(noteKey(roomURL))
	if !ok {
		return "", false, nil
	}
	return string(data), true, nil
}

func (s *Local) Transition(ctx context.Context, oldRoom string, rec Record) error {
	if _, err := s.DeleteActive(ctx, oldRoom); err != nil {
		return err
	}
	if err := s.SetActive(ctx, rec); err != nil {
		return err
	}
	return s.SetBinding(ctx, rec.TenantID, rec.UserID, rec.SessionID)
}

func (s *Local) Close() error { return nil }
