package flow

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/fogfish/opts"

	"github.com/wispworks/wisp/api"
	"github.com/wispworks/wisp/events"
	"github.com/wispworks/wisp/pipeline"
)

// Manager owns one session's conversational flow. All mutation happens under
// one mutex; timers re-enter through exported methods that take it again.
type Manager struct {
	bus       events.Bus
	pipe      *pipeline.Pipeline
	roomURL   string
	speaking  func() bool
	grace     time.Duration
	speakGate time.Duration
	wrapup    time.Duration

	beats          []api.Beat
	repeatInterval time.Duration
	userIdle       time.Duration
	idleTimeout    time.Duration
	wrapupPrompt   string

	mu           sync.Mutex
	node         api.SessionState
	window       map[string]string // pid → name, current grace window
	windowActive bool
	mode         GreetingMode
	greetedUsers map[string]struct{}
	active       map[string]string // pid → name, everyone currently present
	beatsState   []BeatState
	wrapupState  WrapupState
	summary      SummaryTap
	lastActivity time.Time
	sessionStart time.Time

	ctx         context.Context
	cancel      context.CancelFunc
	graceTimer  *time.Timer
	wrapupTimer *time.Timer
	wg          sync.WaitGroup
}

// Constructor options.
var (
	Grace          = opts.ForName[Manager, time.Duration]("grace")
	SpeakGate      = opts.ForName[Manager, time.Duration]("speakGate")
	WrapupAfter    = opts.ForName[Manager, time.Duration]("wrapup")
	RepeatInterval = opts.ForName[Manager, time.Duration]("repeatInterval")
	UserIdle       = opts.ForName[Manager, time.Duration]("userIdle")
	IdleTimeout    = opts.ForName[Manager, time.Duration]("idleTimeout")
	WrapupPrompt   = opts.ForName[Manager, string]("wrapupPrompt")
	Speaking       = opts.ForName[Manager, func() bool]("speaking")
)

// Beats declares the personality's pacing timeline.
func Beats(beats []api.Beat) opts.Option[Manager] {
	return opts.Type[Manager](func(m *Manager) error {
		m.beats = beats
		return nil
	})
}

// New builds a flow manager for one session.
func New(bus events.Bus, pipe *pipeline.Pipeline, roomURL string, options ...opts.Option[Manager]) *Manager {
	m := &Manager{
		bus:          bus,
		pipe:         pipe,
		roomURL:      roomURL,
		grace:        2 * time.Second,
		speakGate:    500 * time.Millisecond,
		node:         api.StateBoot,
		mode:         GreetNone,
		window:       make(map[string]string),
		greetedUsers: make(map[string]struct{}),
		active:       make(map[string]string),
	}
	if err := opts.Apply(m, options); err != nil {
		panic(err)
	}
	return m
}

// Start arms the wrap-up timer and the beats scheduler. ctx is the session
// context; everything the manager schedules dies with it.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.sessionStart = time.Now()
	m.lastActivity = m.sessionStart

	m.beatsState = make([]BeatState, len(m.beats))
	for i, b := range m.beats {
		m.beatsState[i] = BeatState{Message: b.Message, StartTime: b.StartTime}
	}
	m.wrapupState = WrapupState{Delay: m.wrapup.Seconds(), Prompt: m.wrapupPrompt}

	if m.wrapup > 0 {
		m.wrapupState.Active = true
		m.wrapupTimer = time.AfterFunc(m.wrapup, m.fireWrapup)
	}
	// A zero userIdle means beats fire unconditionally; the idle check in
	// runBeats passes trivially.
	if len(m.beats) > 0 {
		m.wg.Add(1)
		go m.runBeats(m.ctx)
	}
}

// ParticipantJoined feeds a join event into the greeting machine. The first
// join after boot (or after a full departure) arms the grace window; joins
// during the window merge into it; the third join fires the group greeting
// immediately.
func (m *Manager) ParticipantJoined(pid, name, userID string) {
	m.mu.Lock()

	if m.node.Terminal() {
		m.mu.Unlock()
		return
	}
	m.active[pid] = name
	if userID != "" {
		// remembered for greeting context, not used as a gate
		m.greetedUsers[userID] = struct{}{}
	}

	switch {
	case m.windowActive:
		m.window[pid] = name
		if len(m.window) >= 3 {
			if m.graceTimer != nil {
				m.graceTimer.Stop()
			}
			m.mu.Unlock()
			m.fireGreeting()
			return
		}
	case m.mode == GreetNone:
		m.window = map[string]string{pid: name}
		m.windowActive = true
		m.graceTimer = time.AfterFunc(m.grace, m.fireGreeting)
	}
	m.mu.Unlock()
}

// ParticipantLeft removes a participant. When the room fully empties, the
// greeting machine resets so the next first-join starts a fresh window.
func (m *Manager) ParticipantLeft(pid string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.active, pid)
	delete(m.window, pid)

	if m.windowActive && len(m.window) == 0 {
		// everyone left before the window fired
		if m.graceTimer != nil {
			m.graceTimer.Stop()
		}
		m.windowActive = false
	}
	if len(m.active) == 0 {
		m.mode = GreetNone
		m.window = make(map[string]string)
		m.windowActive = false
	}
}

// IdentityChanged updates display names inside the greeting state without
// re-firing the greeting.
func (m *Manager) IdentityChanged(pid, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[pid]; ok {
		m.active[pid] = name
	}
	if _, ok := m.window[pid]; ok {
		m.window[pid] = name
	}
}

// UserActivity resets the idle clock used by pacing beats.
func (m *Manager) UserActivity() {
	m.mu.Lock()
	m.lastActivity = time.Now()
	m.mu.Unlock()
}

// TapSummary appends a versioned conversation summary.
func (m *Manager) TapSummary(text, formatted string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary.Version++
	m.summary.History = append(m.summary.History, SummaryEntry{
		Version:          m.summary.Version,
		Text:             text,
		FormattedMessage: formatted,
	})
	return m.summary.Version
}

// State returns a deep snapshot of the flow.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	pids := slices.Sorted(maps.Keys(m.window))
	return State{
		Node: m.node,
		Greeting: GreetingState{
			Participants:      pids,
			GraceParticipants: maps.Clone(m.window),
			GreetedUserIDs:    maps.Clone(m.greetedUsers),
			Mode:              m.mode,
		},
		Pacing: PacingState{
			Beats:  slices.Clone(m.beatsState),
			Wrapup: m.wrapupState,
		},
		SummaryTap: SummaryTap{
			History: slices.Clone(m.summary.History),
			Version: m.summary.Version,
		},
	}
}

// CancelAll tears down every scheduled timer and background task. State is
// observable before return: wrapup inactive, window disarmed.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	if m.graceTimer != nil {
		m.graceTimer.Stop()
	}
	if m.wrapupTimer != nil {
		m.wrapupTimer.Stop()
	}
	m.windowActive = false
	m.wrapupState.Active = false
	m.mu.Unlock()
	m.wg.Wait()
}

// fireGreeting resolves the grace window. If the bot is mid-utterance the
// fire is deferred by the speak gate and retried; joins arriving before the
// retry still merge into the window.
func (m *Manager) fireGreeting() {
	m.mu.Lock()
	if !m.windowActive || m.node.Terminal() {
		m.mu.Unlock()
		return
	}
	if m.speaking != nil && m.speaking() {
		gate := m.speakGate
		if gate <= 0 {
			gate = 100 * time.Millisecond
		}
		m.graceTimer = time.AfterFunc(gate, m.fireGreeting)
		m.mu.Unlock()
		return
	}

	pids := slices.Sorted(maps.Keys(m.window))
	names := maps.Clone(m.window)
	switch {
	case len(pids) >= 3:
		m.mode = GreetGroup
	case len(pids) == 2:
		m.mode = GreetPair
	default:
		m.mode = GreetSingle
	}
	mode := m.mode
	m.windowActive = false
	if m.node == api.StateBoot {
		m.node = api.StateConversation
	}
	ctx := m.ctx
	m.mu.Unlock()

	m.bus.Publish(events.TopicGreeting, map[string]any{
		"room_url":     m.roomURL,
		"mode":         string(mode),
		"participants": pids,
		"names":        names,
	})
	if ctx == nil {
		ctx = context.Background()
	}
	m.pipe.Push(ctx, pipeline.LLMRunFrame{})
}

// runBeats walks the personality timeline, then cycles at the repeat
// interval. A beat only fires when the user has been idle long enough; the
// hard idle timeout ends the loop entirely.
func (m *Manager) runBeats(ctx context.Context) {
	defer m.wg.Done()

	m.mu.Lock()
	start := m.sessionStart
	beats := m.beats
	m.mu.Unlock()

	var prev time.Time
	for i := 0; ; i++ {
		var target time.Time
		if i < len(beats) {
			target = start.Add(time.Duration(beats[i].StartTime * float64(time.Second)))
		} else {
			if m.repeatInterval <= 0 {
				return
			}
			target = prev.Add(m.repeatInterval)
		}
		prev = target

		timer := time.NewTimer(time.Until(target))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		m.mu.Lock()
		if m.node.Terminal() {
			m.mu.Unlock()
			return
		}
		idle := time.Since(m.lastActivity)
		if m.idleTimeout > 0 && idle >= m.idleTimeout {
			m.mu.Unlock()
			return
		}
		if idle < m.userIdle {
			m.mu.Unlock()
			continue
		}
		beat := beats[i%len(beats)]
		if i < len(m.beatsState) {
			m.beatsState[i].Fired = true
		}
		if m.node == api.StateConversation {
			m.node = api.StateBeat
		}
		m.mu.Unlock()

		m.bus.Publish(events.TopicPacingBeat, map[string]any{
			"room_url": m.roomURL,
			"message":  beat.Message,
		})
		m.pipe.Push(ctx, pipeline.SystemMessageFrame{Text: beat.Message})
		m.pipe.Push(ctx, pipeline.LLMRunFrame{})
	}
}

// fireWrapup moves the flow into its closing node, speaks the wrap-up
// prompt, and parks the session in terminal.
func (m *Manager) fireWrapup() {
	m.mu.Lock()
	if m.node.Terminal() {
		m.mu.Unlock()
		return
	}
	m.node = api.StateWrapup
	m.wrapupState.Fired = true
	prompt := m.wrapupState.Prompt
	if prompt == "" {
		prompt = "Wrap up the conversation warmly and say goodbye."
	}
	ctx := m.ctx
	m.mu.Unlock()

	m.bus.Publish(events.TopicWrapup, map[string]any{
		"room_url": m.roomURL,
		"prompt":   prompt,
	})
	if ctx == nil {
		ctx = context.Background()
	}
	m.pipe.Push(ctx, pipeline.SystemMessageFrame{Text: prompt})
	m.pipe.Push(ctx, pipeline.LLMRunFrame{})

	m.mu.Lock()
	m.node = api.StateTerminal
	m.wrapupState.Active = false
	m.mu.Unlock()
}

// Node returns the current flow node.
func (m *Manager) Node() api.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.node
}
