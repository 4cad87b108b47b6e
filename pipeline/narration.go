package pipeline

import (
	"context"
	"sync"
	"time"
)

// DefaultNarrationPhrases are the filler utterances spoken while a tool call
// is in flight and the model has gone quiet.
var DefaultNarrationPhrases = []string{
	"One moment.",
	"Still working on that.",
	"Almost there.",
	"Just a second more.",
}

const (
	// DefaultNarrationInitialDelay is how long a tool call may run silently
	// before the first filler.
	DefaultNarrationInitialDelay = 2500 * time.Millisecond
	// DefaultNarrationRepeat is the interval between fillers.
	DefaultNarrationRepeat = 4 * time.Second
	// narrationDedupWindow suppresses a phrase that was already spoken
	// recently.
	narrationDedupWindow = 10 * time.Second
	// narrationTextQuiet is how long the LLM text stream must be silent
	// before filler is allowed.
	narrationTextQuiet = 500 * time.Millisecond
)

// ToolNarration speaks short fillers while tool calls run. The loop starts
// when the first call begins, fires after InitialDelay and then every
// Repeat, and cancels as soon as the last in-flight call completes. Filler
// is suppressed while the LLM is still streaming text and when the chosen
// phrase was spoken within the dedup window.
type ToolNarration struct {
	InitialDelay time.Duration
	Repeat       time.Duration
	Phrases      []string

	pipe *Pipeline

	mu       sync.Mutex
	inflight map[string]struct{}
	lastText time.Time
	spoken   map[string]time.Time
	next     int
	stop     chan struct{}
	done     chan struct{}
}

var _ Source = (*ToolNarration)(nil)

func (n *ToolNarration) Bind(p *Pipeline) { n.pipe = p }

func (n *ToolNarration) initialDelay() time.Duration {
	if n.InitialDelay > 0 {
		return n.InitialDelay
	}
	return DefaultNarrationInitialDelay
}

func (n *ToolNarration) repeat() time.Duration {
	if n.Repeat > 0 {
		return n.Repeat
	}
	return DefaultNarrationRepeat
}

func (n *ToolNarration) phrases() []string {
	if len(n.Phrases) > 0 {
		return n.Phrases
	}
	return DefaultNarrationPhrases
}

func (n *ToolNarration) Process(ctx context.Context, f Frame, push func(Frame)) {
	switch f := f.(type) {
	case ToolCallStartFrame:
		n.callStarted(ctx, f.CallID)
	case ToolCallEndFrame:
		n.callEnded(f.CallID)
	case TextFrame:
		if f.Text != "" && !f.Filler {
			n.mu.Lock()
			n.lastText = time.Now()
			n.mu.Unlock()
		}
	}
	push(f)
}

func (n *ToolNarration) callStarted(ctx context.Context, callID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.inflight == nil {
		n.inflight = make(map[string]struct{})
		n.spoken = make(map[string]time.Time)
	}
	n.inflight[callID] = struct{}{}
	if len(n.inflight) == 1 {
		n.stop = make(chan struct{})
		n.done = make(chan struct{})
		go n.loop(ctx, n.stop, n.done)
	}
}

// callEnded runs under the pipeline lock, so it must not wait for the loop:
// the loop could be blocked on that same lock pushing filler. Closing stop is
// enough; fire re-checks it before pushing.
func (n *ToolNarration) callEnded(callID string) {
	n.mu.Lock()
	delete(n.inflight, callID)
	var stop chan struct{}
	if len(n.inflight) == 0 && n.stop != nil {
		stop = n.stop
		n.stop, n.done = nil, nil
	}
	n.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// CancelAll stops the loop regardless of in-flight bookkeeping. Called at
// session teardown.
func (n *ToolNarration) CancelAll() {
	n.mu.Lock()
	n.inflight = nil
	var stop, done chan struct{}
	if n.stop != nil {
		stop, done = n.stop, n.done
		n.stop, n.done = nil, nil
	}
	n.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
}

func (n *ToolNarration) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(n.initialDelay())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-timer.C:
			n.fire(ctx, stop)
			timer.Reset(n.repeat())
		}
	}
}

func (n *ToolNarration) fire(ctx context.Context, stop chan struct{}) {
	n.mu.Lock()
	if time.Since(n.lastText) < narrationTextQuiet {
		n.mu.Unlock()
		return
	}
	phrases := n.phrases()
	var phrase string
	for range phrases {
		candidate := phrases[n.next%len(phrases)]
		n.next++
		if at, ok := n.spoken[candidate]; !ok || time.Since(at) >= narrationDedupWindow {
			phrase = candidate
			break
		}
	}
	if phrase != "" {
		n.spoken[phrase] = time.Now()
	}
	pipe := n.pipe
	n.mu.Unlock()

	if phrase == "" || pipe == nil {
		return
	}
	select {
	case <-stop:
		// the last call completed while we were choosing a phrase
		return
	default:
	}
	pipe.Push(ctx, TextFrame{Text: phrase, Filler: true})
}
