package provider

import "context"

// VoiceEngine synthesizes speech for the bot and transcribes the humans.
// Implementations wrap a TTS/STT provider pair chosen by configuration.
type VoiceEngine interface {
	// Speak synthesizes text into the room's audio track. An empty string is
	// a no-op; the silence filter relies on that.
	Speak(ctx context.Context, text string) error

	// Interrupt stops any in-flight synthesis.
	Interrupt(ctx context.Context) error
}

// Transcript is one STT result for a participant.
type Transcript struct {
	PID   string
	Text  string
	Final bool
}
