package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LullTrigger watches for conversational dead air. When no user activity has
// been seen for Idle, it appends a system note to the context and queues an
// LLM run so the bot can pick the thread back up. Re-firing within Idle/2 of
// the previous trigger is suppressed.
type LullTrigger struct {
	Idle time.Duration

	pipe *Pipeline

	mu        sync.Mutex
	lastInput time.Time
	lastFired time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

var _ Source = (*LullTrigger)(nil)

func (l *LullTrigger) Bind(p *Pipeline) { l.pipe = p }

func (l *LullTrigger) Process(ctx context.Context, f Frame, push func(Frame)) {
	switch f.(type) {
	case UserActivityFrame, InterruptionFrame:
		l.mu.Lock()
		l.lastInput = time.Now()
		l.mu.Unlock()
	}
	push(f)
}

// Start launches the watcher. It must be stopped via Stop before session
// teardown completes.
func (l *LullTrigger) Start(ctx context.Context) {
	if l.Idle <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.cancel = cancel
	l.lastInput = time.Now()
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	go func() {
		defer close(done)
		tick := time.NewTicker(l.Idle / 4)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				l.maybeFire(ctx)
			}
		}
	}()
}

// Stop cancels the watcher and waits for the loop to exit.
func (l *LullTrigger) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel = nil
	l.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (l *LullTrigger) maybeFire(ctx context.Context) {
	l.mu.Lock()
	idleFor := time.Since(l.lastInput)
	sinceFired := time.Since(l.lastFired)
	shouldFire := idleFor >= l.Idle && sinceFired >= l.Idle/2
	if shouldFire {
		l.lastFired = time.Now()
	}
	l.mu.Unlock()

	if !shouldFire || l.pipe == nil {
		return
	}
	note := fmt.Sprintf("the user has been silent for %d seconds; gently continue the conversation or offer something new", int(l.Idle.Seconds()))
	l.pipe.Push(ctx, SystemMessageFrame{Text: note})
	l.pipe.Push(ctx, LLMRunFrame{})
}
