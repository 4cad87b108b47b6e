package pipeline

import (
	"context"
	"strings"
)

// SilenceToken is the sentinel the LLM emits when it chooses not to speak.
const SilenceToken = "SILENCE"

// SilenceFilter replaces the silence sentinel with an empty string so the
// voice engine stays quiet. The comparison is case-insensitive and ignores
// surrounding whitespace. Idempotent: an empty string passes through
// unchanged.
type SilenceFilter struct{}

func (SilenceFilter) Process(ctx context.Context, f Frame, push func(Frame)) {
	tf, ok := f.(TextFrame)
	if !ok {
		push(f)
		return
	}
	if strings.EqualFold(strings.TrimSpace(tf.Text), SilenceToken) {
		push(TextFrame{})
		return
	}
	push(f)
}
