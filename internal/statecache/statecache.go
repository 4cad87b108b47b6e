// Package statecache persists the small slice of session state that must
// survive an operator restart: which room is active, who it is bound to,
// the latest pushed personality config, and the active note id. Redis is
// a durable cache here, not the source of truth. The in-memory session
// registry remains authoritative, and when Redis is disabled the whole
// package degrades to a process-local store with the same semantics.
package statecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	// KeepaliveTTL bounds how stale a live room marker may get. The
	// supervisor refreshes it on a shorter interval while a session runs.
	KeepaliveTTL = 45 * time.Second

	// ActiveTTL covers a full session lifetime with a wide margin.
	ActiveTTL = 24 * time.Hour

	// BindingTTL keeps the (tenant, user) -> session mapping around long
	// enough for transitions across long-lived assistant sessions.
	BindingTTL = 24 * time.Hour

	// ConfigTTL bounds pending personality config pushes.
	ConfigTTL = 12 * time.Hour

	// NoteTTL bounds the active note marker.
	NoteTTL = 12 * time.Hour
)

// Record is what we keep per active room.
type Record struct {
	SessionID string    `json:"session_id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	RoomURL   string    `json:"room_url"`
	StartedAt time.Time `json:"started_at"`
}

// Store is the durable-cache surface the supervisor and operator use.
type Store interface {
	// SetActive marks rec.RoomURL as owned by rec.SessionID.
	SetActive(ctx context.Context, rec Record) error
	// Active returns the record for a room, if any.
	Active(ctx context.Context, roomURL string) (Record, bool, error)
	// DeleteActive clears a room's record along with its keepalive,
	// config, and note keys. Returns how many keys actually existed.
	DeleteActive(ctx context.Context, roomURL string) (int, error)

	// Keepalive refreshes the liveness marker for a room.
	Keepalive(ctx context.Context, roomURL string) error
	// Alive reports whether the liveness marker is still present.
	Alive(ctx context.Context, roomURL string) (bool, error)

	// SetBinding maps (tenant, user) to a session id.
	SetBinding(ctx context.Context, tenantID, userID, sessionID string) error
	// Binding returns the session id bound to (tenant, user), if any.
	Binding(ctx context.Context, tenantID, userID string) (string, bool, error)
	// DeleteBinding clears the (tenant, user) mapping.
	DeleteBinding(ctx context.Context, tenantID, userID string) error

	// SetConfig stores the latest personality config payload for a room
	// and its content hash.
	SetConfig(ctx context.Context, roomURL string, payload []byte) error
	// Config returns the latest stored config payload, if any.
	Config(ctx context.Context, roomURL string) ([]byte, bool, error)
	// ConfigHash returns the stored content hash, if any.
	ConfigHash(ctx context.Context, roomURL string) (string, bool, error)

	// SetNote stores the active note id for a room.
	SetNote(ctx context.Context, roomURL, noteID string) error
	// Note returns the active note id for a room, if any.
	Note(ctx context.Context, roomURL string) (string, bool, error)

	// Transition moves a session's state from oldRoom to newRoom. The old
	// room's keys are deleted before the new record is written, so a crash
	// in between leaves no room claiming a session it does not own.
	Transition(ctx context.Context, oldRoom string, rec Record) error

	Close() error
}

func activeKey(roomURL string) string    { return "room_active:" + roomURL }
func keepaliveKey(roomURL string) string { return "room_keepalive:" + roomURL }
func configKey(roomURL string) string    { return "bot:config:latest:" + roomURL }
func hashKey(roomURL string) string      { return "bot:config:hash:" + roomURL }
func bindingKey(tenantID, userID string) string {
	return "user_bot:" + tenantID + ":" + userID
}
func noteKey(roomURL string) string { return "active_note:" + roomURL }

func configHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Redis is the durable Store backed by a redis client.
type Redis struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedis verifies the connection and returns a redis backed store.
func NewRedis(ctx context.Context, opt *redis.Options) (*Redis, error) {
	client := redis.NewClient(opt)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("statecache: redis ping: %w", err)
	}

	return &Redis{
		client: client,
		log:    slog.Default().With(slog.String("logger", "statecache")),
	}, nil
}

func (s *Redis) SetActive(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("statecache: marshal record: %w", err)
	}
	if err := s.client.Set(ctx, activeKey(rec.RoomURL), data, ActiveTTL).Err(); err != nil {
		return fmt.Errorf("statecache: set active: %w", err)
	}
	return s.Keepalive(ctx, rec.RoomURL)
}

func (s *Redis) Active(ctx context.Context, roomURL string) (Record, bool, error) {
	val, err := s.client.Get(ctx, activeKey(roomURL)).Result()
	if err == redis.Nil {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("statecache: get active: %w", err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return Record{}, false, fmt.Errorf("statecache: unmarshal record: %w", err)
	}
	return rec, true, nil
}

func (s *Redis) DeleteActive(ctx context.Context, roomURL string) (int, error) {
	keys := []string{
		activeKey(roomURL),
		keepaliveKey(roomURL),
		configKey(roomURL),
		hashKey(roomURL),
		noteKey(roomURL),
	}
	n, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("statecache: delete active: %w", err)
	}
	return int(n), nil
}

func (s *Redis) Keepalive(ctx context.Context, roomURL string) error {
	if err := s.client.Set(ctx, keepaliveKey(roomURL), "1", KeepaliveTTL).Err(); err != nil {
		return fmt.Errorf("statecache: keepalive: %w", err)
	}
	return nil
}

func (s *Redis) Alive(ctx context.Context, roomURL string) (bool, error) {
	n, err := s.client.Exists(ctx, keepaliveKey(roomURL)).Result()
	if err != nil {
		return false, fmt.Errorf("statecache: alive: %w", err)
	}
	return n > 0, nil
}

func (s *Redis) SetBinding(ctx context.Context, tenantID, userID, sessionID string) error {
	if err := s.client.Set(ctx, bindingKey(tenantID, userID), sessionID, BindingTTL).Err(); err != nil {
		return fmt.Errorf("statecache: set binding: %w", err)
	}
	return nil
}

func (s *Redis) Binding(ctx context.Context, tenantID, userID string) (string, bool, error) {
	val, err := s.client.Get(ctx, bindingKey(tenantID, userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("statecache: get binding: %w", err)
	}
	return val, true, nil
}

func (s *Redis) DeleteBinding(ctx context.Context, tenantID, userID string) error {
	if err := s.client.Del(ctx, bindingKey(tenantID, userID)).Err(); err != nil {
		return fmt.Errorf("statecache: delete binding: %w", err)
	}
	return nil
}

func (s *Redis) SetConfig(ctx context.Context, roomURL string, payload []byte) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, configKey(roomURL), payload, ConfigTTL)
	pipe.Set(ctx, hashKey(roomURL), configHash(payload), ConfigTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("statecache: set config: %w", err)
	}
	return nil
}

func (s *Redis) Config(ctx context.Context, roomURL string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, configKey(roomURL)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("statecache: get config: %w", err)
	}
	return val, true, nil
}

func (s *Redis) ConfigHash(ctx context.Context, roomURL string) (string, bool, error) {
	val, err := s.client.Get(ctx, hashKey(roomURL)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("statecache: get config hash: %w", err)
	}
	return val, true, nil
}

func (s *Redis) SetNote(ctx context.Context, roomURL, noteID string) error {
	if err := s.client.Set(ctx, noteKey(roomURL), noteID, NoteTTL).Err(); err != nil {
		return fmt.Errorf("statecache: set note: %w", err)
	}
	return nil
}

func (s *Redis) Note(ctx context.Context, roomURL string) (string, bool, error) {
	val, err := s.client.Get(ctx, noteKey(roomURL)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("statecache: get note: %w", err)
	}
	return val, true, nil
}

func (s *Redis) Transition(ctx context.Context, oldRoom string, rec Record) error {
	// Old room first. A half-done transition must never leave two rooms
	// claiming the same session.
	if _, err := s.DeleteActive(ctx, oldRoom); err != nil {
		return err
	}
	if err := s.SetActive(ctx, rec); err != nil {
		return err
	}
	return s.SetBinding(ctx, rec.TenantID, rec.UserID, rec.SessionID)
}

func (s *Redis) Close() error {
	return s.client.Close()
}
