package pipeline

import (
	"context"
	"strings"
)

// DefaultMinClauseLen is the buffer length at which a clause break is good
// enough to ship. Larger values reduce TTS request count at the cost of
// first-chunk latency.
const DefaultMinClauseLen = 48

const minSentenceLen = 3

// ClauseAggregator accumulates streamed text and yields chunks at natural
// speech boundaries: sentence-ending punctuation once at least three
// characters are buffered, or clause punctuation once the buffer reaches
// MinClauseLen. Interruption clears the buffer; FlushFrame and TTS stop
// force out whatever remains.
type ClauseAggregator struct {
	MinClauseLen int
	buf          strings.Builder
	// filler is true only while everything buffered came in marked filler.
	filler bool
}

func (c *ClauseAggregator) minLen() int {
	if c.MinClauseLen > 0 {
		return c.MinClauseLen
	}
	return DefaultMinClauseLen
}

func (c *ClauseAggregator) Process(ctx context.Context, f Frame, push func(Frame)) {
	switch f := f.(type) {
	case TextFrame:
		c.accumulate(f.Text, f.Filler, push)
	case InterruptionFrame:
		c.buf.Reset()
		c.filler = false
		push(f)
	case FlushFrame:
		c.flush(push)
	case TTSStoppedFrame:
		c.flush(push)
		push(f)
	default:
		push(f)
	}
}

func (c *ClauseAggregator) accumulate(text string, filler bool, push func(Frame)) {
	for _, r := range text {
		if c.buf.Len() == 0 {
			c.filler = filler
		} else {
			c.filler = c.filler && filler
		}
		c.buf.WriteRune(r)
		if isSentenceEnd(r) && c.buf.Len() >= minSentenceLen {
			c.flush(push)
			continue
		}
		if isClauseBreak(r) && c.buf.Len() >= c.minLen() {
			c.flush(push)
		}
	}
}

func (c *ClauseAggregator) flush(push func(Frame)) {
	if c.buf.Len() == 0 {
		return
	}
	chunk := strings.TrimSpace(c.buf.String())
	c.buf.Reset()
	if chunk != "" {
		push(TextFrame{Text: chunk, Filler: c.filler})
	}
	c.filler = false
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isClauseBreak(r rune) bool {
	switch r {
	case ',', ';', ':', '—', '–':
		return true
	}
	return false
}
