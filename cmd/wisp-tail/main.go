// Command wisp-tail follows the operator event stream and pretty-prints
// envelopes to the terminal. It is a debugging aid for watching a live
// session's greeting, pacing, and transcript flow without a browser.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/k0kubun/pp/v3"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"

	"github.com/wispworks/wisp/events"
	"github.com/wispworks/wisp/pkg/slogx"
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
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mainE(ctx); err != nil && ctx.Err() == nil {
		slog.Error("tail failed", slogx.Error(err))
		os.Exit(1)
	}
}

func mainE(ctx context.Context) error {
	base := flag.String("addr", "http://localhost:8090", "operator base URL")
	secret := flag.String("secret", os.Getenv("BOT_CONTROL_SHARED_SECRET"), "shared secret for the operator API")
	room := flag.String("room", "", "only show events for this room URL")
	verbose := flag.Bool("v", false, "dump full payloads instead of one-line summaries")
	flag.Parse()

	for {
		err := follow(ctx, *base, *secret, *room, *verbose)
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("stream dropped, reconnecting", slogx.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func follow(ctx context.Context, base, secret, room string, verbose bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if secret != "" {
		req.Header.Set("X-Bot-Secret", secret)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("operator returned %s", res.Status)
	}
	slog.Info("following event stream", slog.String("addr", base))

	var eventType string
	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			printEnvelope(eventType, strings.TrimPrefix(line, "data: "), room, verbose)
		}
	}
	return scanner.Err()
}

func printEnvelope(eventType, data, room string, verbose bool) {
	var env events.Envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		fmt.Printf("%s %s\n", color.RedString("?%s", eventType), data)
		return
	}
	envRoom, _ := env.Data["room_url"].(string)
	if room != "" && envRoom != room {
		return
	}

	stamp := time.UnixMilli(env.TS).Format("15:04:05.000")
	fmt.Printf("%s %s %s",
		color.HiBlackString(stamp),
		colorFor(env.Type)(env.Type),
		color.CyanString(envRoom),
	)
	if verbose {
		fmt.Println()
		pp.Println(env.Data)
		return
	}
	fmt.Printf(" %s\n", summarize(env))
}

// colorFor keys the event color on lifecycle phase so a scrolling stream
// stays scannable.
func colorFor(topic string) func(format string, a ...interface{}) string {
	switch topic {
	case events.TopicSessionEnd, events.TopicCallState:
		return color.GreenString
	case events.TopicGreeting, events.TopicWrapup:
		return color.MagentaString
	case events.TopicTranscript:
		return color.YellowString
	case events.TopicPacingBeat:
		return color.BlueString
	default:
		return color.WhiteString
	}
}

func summarize(env events.Envelope) string {
	raw, err := json.Marshal(env.Data)
	if err != nil {
		return ""
	}
	s := string(raw)
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}
