// Command wisp runs the bot session operator: the control plane plus the
// session supervisor, wired to the configured bus, cache, and providers.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/phsym/zeroslog"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/wispworks/wisp/config"
	"github.com/wispworks/wisp/control"
	"github.com/wispworks/wisp/events"
	"github.com/wispworks/wisp/forward"
	"github.com/wispworks/wisp/internal/statecache"
	"github.com/wispworks/wisp/internal/supervisor"
	"github.com/wispworks/wisp/pkg/slogx"
	"github.com/wispworks/wisp/provider"
	"github.com/wispworks/wisp/provider/local"
	"github.com/wispworks/wisp/provider/openai"
	"github.com/wispworks/wisp/rooms"
	"github.com/wispworks/wisp/tool"
	"github.com/wispworks/wisp/tool/builtin"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelInfo}),
	))
}

func main() {
	if err := mainE(context.Background()); err != nil {
		slog.Error("operator exited", slogx.Error(err))
		os.Exit(1)
	}
}

func mainE(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}

	bus, err := buildBus(cfg)
	if err != nil {
		return err
	}

	cache, err := buildCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	registry := tool.NewRegistry()
	builtin.Register(registry)
	registry.Freeze()

	transport := local.NewTransport(nil, nil)
	fwd := buildForwarder(cfg, transport)

	var pool supervisor.PoolDispatcher
	if len(cfg.PoolRunners) > 0 {
		pool = control.NewPool(slog.Default(), cfg.PoolRunners...)
	}

	sup := supervisor.New(supervisor.Deps{
		Config:    cfg,
		Bus:       bus,
		Tracker:   rooms.NewTracker(),
		Store:     local.NewStore(),
		Transport: transport,
		LLM:       openai.New(envStrOrDefault("OPENAI_DEFAULT_MODEL", "gpt-4o-mini")),
		Voice:     local.NewVoice(nil),
		Tools:     registry,
		Forwarder: fwd,
		Cache:     cache,
		Pool:      pool,
	})
	defer sup.Shutdown(context.Background())

	go sup.RunSweeper(ctx, 30*time.Second, 2*time.Minute)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           control.NewServer(cfg, sup, bus, nil).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("control plane listening", slog.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func envStrOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func buildBus(cfg config.Config) (events.Bus, error) {
	switch cfg.EventBus {
	case config.BusMemory, config.BusInproc:
		return events.NewMemory(), nil
	case config.BusLog:
		return events.NewLog(slog.Default()), nil
	case config.BusNATS:
		nc, err := events.NATSClient(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		return events.NewNATS(nc, "wisp"), nil
	default:
		return nil, fmt.Errorf("unknown event bus %q", cfg.EventBus)
	}
}

func buildCache(ctx context.Context, cfg config.Config) (statecache.Store, error) {
	if !cfg.UseRedis {
		return statecache.NewLocal(), nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.RedisAuthRequired {
		opt.Password = cfg.RedisSharedSecret
	}
	return statecache.NewRedis(ctx, opt)
}

func buildForwarder(cfg config.Config, transport provider.Transport) *forward.Forwarder {
	var sink forward.Sink
	if cfg.BridgeBaseURL != "" {
		sink = forward.HTTPSink{BaseURL: cfg.BridgeBaseURL}
	} else {
		sink = forward.TransportSink{Transport: transport}
	}
	return forward.New(sink, nil)
}
