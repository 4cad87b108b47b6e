package slogx

import (
	"fmt"
	"log/slog"
)

// Error returns a slog.Attr for the provided error under the key "error".
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// Stringer returns a slog.Attr with the string representation of the given
// fmt.Stringer value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// KeyLoggerName is the attribute key that identifies the originating
// component in log output.
const KeyLoggerName = "logger"

// LoggerName returns an attribute carrying the component name under
// KeyLoggerName.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// Room returns an attribute carrying the room URL a log line pertains to.
// Nearly every interesting log line in this codebase is scoped to a room.
func Room(roomURL string) slog.Attr {
	return slog.String("room", roomURL)
}

// Session returns an attribute carrying a session identifier.
func Session(id string) slog.Attr {
	return slog.String("session_id", id)
}
