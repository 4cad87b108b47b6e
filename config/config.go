// Package config reads the operator's environment configuration. Every
// knob has a working default so a bare process comes up in local mode:
// memory bus, no auth, no redis.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Bus backend names accepted by BOT_EVENT_BUS.
const (
	BusMemory = "memory"
	BusInproc = "inproc"
	BusLog    = "log"
	BusNATS   = "nats"
)

type Config struct {
	ListenAddr string `json:"listen_addr"`

	AuthRequired     bool   `json:"auth_required"`
	SharedSecret     string `json:"shared_secret"`
	SharedSecretPrev string `json:"shared_secret_prev"`

	// TestMode relaxes the misconfiguration path: auth required with no
	// secret set logs a warning and allows the request instead of 401.
	TestMode bool `json:"test_mode"`

	GreetingGrace  time.Duration `json:"greeting_grace"`
	WrapupAfter    time.Duration `json:"wrapup_after"`
	SpeakGateDelay time.Duration `json:"speak_gate_delay"`

	BeatRepeatInterval  time.Duration `json:"beat_repeat_interval"`
	BeatUserIdle        time.Duration `json:"beat_user_idle"`
	BeatUserIdleTimeout time.Duration `json:"beat_user_idle_timeout"`

	EventBus string `json:"event_bus"`
	NATSURL  string `json:"nats_url"`

	UseRedis          bool   `json:"use_redis"`
	RedisAuthRequired bool   `json:"redis_auth_required"`
	RedisSharedSecret string `json:"redis_shared_secret"`
	RedisURL          string `json:"redis_url"`

	TTSProvider string `json:"tts_provider"`

	BridgeBaseURL string `json:"bridge_base_url"`

	// PoolRunners are warm runner base URLs that the sweep hands recovery
	// joins to when a room still has humans but no live bot.
	PoolRunners  []string `json:"pool_runners,omitempty"`
	PoolJoinPath string   `json:"pool_join_path"`
}

// Default returns the local-mode configuration.
func Default() Config {
	return Config{
		ListenAddr:     ":8090",
		GreetingGrace:  2 * time.Second,
		SpeakGateDelay: 500 * time.Millisecond,
		EventBus:       BusMemory,
		RedisURL:       "redis://localhost:6379/0",
		PoolJoinPath:   "/join",
	}
}

// FromEnv layers the recognized environment keys over Default.
func FromEnv() Config {
	cfg := Default()

	cfg.ListenAddr = envStrOrDefault("BOT_CONTROL_LISTEN_ADDR", cfg.ListenAddr)

	cfg.AuthRequired = envBool("BOT_CONTROL_AUTH_REQUIRED")
	cfg.TestMode = envBool("BOT_TEST_MODE")
	cfg.SharedSecret = os.Getenv("BOT_CONTROL_SHARED_SECRET")
	cfg.SharedSecretPrev = os.Getenv("BOT_CONTROL_SHARED_SECRET_PREV")

	cfg.GreetingGrace = envSecs("BOT_GREETING_GRACE_SECS", cfg.GreetingGrace)
	cfg.WrapupAfter = envSecs("BOT_WRAPUP_AFTER_SECS", cfg.WrapupAfter)
	cfg.SpeakGateDelay = envSecs("BOT_SPEAK_GATE_DELAY_SECS", cfg.SpeakGateDelay)

	cfg.BeatRepeatInterval = envSecs("BOT_BEAT_REPEAT_INTERVAL_SECS", cfg.BeatRepeatInterval)
	cfg.BeatUserIdle = envSecs("BOT_BEAT_USER_IDLE_SECS", cfg.BeatUserIdle)
	cfg.BeatUserIdleTimeout = envSecs("BOT_BEAT_USER_IDLE_TIMEOUT_SECS", cfg.BeatUserIdleTimeout)

	cfg.EventBus = envStrOrDefault("BOT_EVENT_BUS", cfg.EventBus)
	cfg.NATSURL = envStrOrDefault("NATS_URL", cfg.NATSURL)

	cfg.UseRedis = envBool("USE_REDIS")
	cfg.RedisAuthRequired = envBool("REDIS_AUTH_REQUIRED")
	cfg.RedisSharedSecret = os.Getenv("REDIS_SHARED_SECRET")
	cfg.RedisURL = envStrOrDefault("REDIS_URL", cfg.RedisURL)

	cfg.TTSProvider = os.Getenv("BOT_TTS_PROVIDER")
	cfg.BridgeBaseURL = os.Getenv("BOT_BRIDGE_BASE_URL")

	cfg.PoolRunners = envList("BOT_POOL_RUNNERS")
	cfg.PoolJoinPath = envStrOrDefault("BOT_POOL_JOIN_PATH", cfg.PoolJoinPath)

	return cfg
}

// Validate rejects combinations the operator cannot run with.
func (c Config) Validate() error {
	switch c.EventBus {
	case BusMemory, BusInproc, BusLog, BusNATS:
	default:
		return fmt.Errorf("config: unknown event bus %q", c.EventBus)
	}
	if c.EventBus == BusNATS && c.NATSURL == "" {
		return fmt.Errorf("config: event bus %q needs NATS_URL", BusNATS)
	}
	if c.RedisAuthRequired && c.RedisSharedSecret == "" {
		return fmt.Errorf("config: REDIS_AUTH_REQUIRED is set without REDIS_SHARED_SECRET")
	}
	return nil
}

// Snapshot serializes the configuration. The operator stores it in the
// state cache so a pushed config survives restarts.
func (c Config) Snapshot() ([]byte, error) {
	return json.Marshal(c)
}

// FromSnapshot restores a configuration written by Snapshot.
func FromSnapshot(data []byte) (Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: bad snapshot: %w", err)
	}
	return c, nil
}

func envStrOrDefault(key, def string) string {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	return s
}

// envList splits a comma-separated value, dropping empty entries.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// envBool treats 1, true, yes, and on as true, anything else as false.
func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// envSecs reads a duration expressed in seconds. Fractions are allowed.
func envSecs(key string, def time.Duration) time.Duration {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return def
	}
	return time.Duration(f * float64(time.Second))
}
