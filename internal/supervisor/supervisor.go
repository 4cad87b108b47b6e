// Package supervisor owns the session lifecycle: it resolves personalities,
// builds pipelines, starts and tears down session tasks, and moves a
// session between rooms without changing its identity. It is the single
// writer for the session registry and the (tenant, user) binding index.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/wispworks/wisp/api"
	"github.com/wispworks/wisp/config"
	"github.com/wispworks/wisp/events"
	"github.com/wispworks/wisp/flow"
	"github.com/wispworks/wisp/forward"
	"github.com/wispworks/wisp/internal/registry"
	"github.com/wispworks/wisp/internal/statecache"
	"github.com/wispworks/wisp/pipeline"
	"github.com/wispworks/wisp/pkg/slogx"
	"github.com/wispworks/wisp/pkg/uuidx"
	"github.com/wispworks/wisp/provider"
	"github.com/wispworks/wisp/rooms"
	"github.com/wispworks/wisp/tool"
)

// Deps are the collaborators a Supervisor needs. All fields are required
// except Voice and LLM stand-ins supplied by tests.
type Deps struct {
	Config    config.Config
	Bus       events.Bus
	Tracker   *rooms.Tracker
	Store     provider.ContentStore
	Transport provider.Transport
	LLM       provider.LLMEngine
	Voice     provider.VoiceEngine
	Tools     *tool.Registry
	Forwarder *forward.Forwarder
	Cache     statecache.Store
	Logger    *slog.Logger

	// Pool, when set, receives recovery joins for rooms that still hold
	// humans but lost their bot session.
	Pool PoolDispatcher
}

// PoolDispatcher hands a recovery job to a warm runner. Dispatch reports
// whether any runner accepted it.
type PoolDispatcher interface {
	Dispatch(ctx context.Context, path string, job any) bool
}

// Supervisor supervises every live session in the process.
type Supervisor struct {
	deps Deps
	log  *slog.Logger

	sessions registry.Registry[*Session]
	byRoom   registry.Registry[string]
	bindings registry.Registry[string]

	mu         sync.Mutex
	emptySince map[string]time.Time
}

// New builds a supervisor. The tool registry should already be frozen.
func New(deps Deps) *Supervisor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		deps:       deps,
		log:        logger.With(slogx.LoggerName("wisp.supervisor")),
		sessions:   registry.New[*Session](),
		byRoom:     registry.New[string](),
		bindings:   registry.New[string](),
		emptySince: make(map[string]time.Time),
	}
}

// StartSession serves one join request. The binding decides the path: no
// live binding creates a session, a binding in the same room reuses it, and
// a binding in another room transitions it.
func (s *Supervisor) StartSession(ctx context.Context, req api.JoinRequest) (api.JoinResponse, error) {
	if req.SessionUserID != "" {
		key := api.BindingKey(req.TenantID, req.SessionUserID)
		if sid, ok := s.bindings.Get(key); ok {
			sess, live := s.sessions.Get(sid)
			if !live {
				s.bindings.Del(key)
			} else if sess.Record().RoomURL == req.RoomURL {
				rec := sess.Record()
				return api.JoinResponse{
					Status:        "reused",
					SessionID:     rec.ID,
					RoomURL:       rec.RoomURL,
					Reused:        true,
					PersonalityID: rec.PersonalityID,
					Persona:       rec.Persona,
				}, nil
			} else {
				return s.Transition(ctx, sid, api.TransitionRequest{
					NewRoomURL:    req.RoomURL,
					NewToken:      req.Token,
					PersonalityID: req.PersonalityID,
					Persona:       req.Persona,
				})
			}
		}
	}

	if sid, ok := s.byRoom.Get(req.RoomURL); ok {
		sess, live := s.sessions.Get(sid)
		if live {
			rec := sess.Record()
			if req.SessionUserID == "" || (rec.TenantID == req.TenantID && rec.UserID == req.SessionUserID) {
				return api.JoinResponse{
					Status:        "reused",
					SessionID:     rec.ID,
					RoomURL:       rec.RoomURL,
					Reused:        true,
					PersonalityID: rec.PersonalityID,
					Persona:       rec.Persona,
				}, nil
			}
			return api.JoinResponse{}, api.ErrRoomBusy
		}
		s.byRoom.Del(req.RoomURL)
	}

	personality, err := s.resolvePersonality(ctx, req.RoomURL, req.PersonalityID, req.Persona)
	if err != nil {
		return api.JoinResponse{}, err
	}

	sess, err := s.buildSession(ctx, req, personality)
	if err != nil {
		return api.JoinResponse{}, err
	}

	rec := sess.Record()
	s.sessions.Add(rec.ID, sess)
	s.byRoom.Add(rec.RoomURL, rec.ID)
	if rec.UserID != "" {
		s.bindings.Add(api.BindingKey(rec.TenantID, rec.UserID), rec.ID)
	}

	if err := s.deps.Cache.SetActive(ctx, cacheRecord(rec)); err != nil {
		s.log.Warn("state cache write failed", slogx.Error(err), slogx.Room(rec.RoomURL))
	}
	if rec.UserID != "" {
		if err := s.deps.Cache.SetBinding(ctx, rec.TenantID, rec.UserID, rec.ID); err != nil {
			s.log.Warn("binding cache write failed", slogx.Error(err))
		}
	}

	s.startKeepalive(sess)
	s.log.Info("session started",
		slogx.Session(rec.ID), slogx.Room(rec.RoomURL),
		slog.String("personality", rec.PersonalityID))

	return api.JoinResponse{
		Status:        "created",
		SessionID:     rec.ID,
		RoomURL:       rec.RoomURL,
		PersonalityID: rec.PersonalityID,
		Persona:       rec.Persona,
	}, nil
}

// buildSession assembles pipeline, flow manager, dispatcher, and event
// wiring for a new session, joins the transport, and starts the task.
func (s *Supervisor) buildSession(ctx context.Context, req api.JoinRequest, personality api.Personality) (*Session, error) {
	sess := &Session{
		rec: api.Session{
			ID:            uuidx.NewString(),
			RoomURL:       req.RoomURL,
			TenantID:      req.TenantID,
			UserID:        req.SessionUserID,
			PersonalityID: personality.ID,
			Persona:       personalityPersona(personality, req.Persona),
			CreatedAt:     time.Now().UTC(),
			State:         api.StateBoot,
		},
		personality: personality,
		token:       req.Token,
		llm:         s.deps.LLM,
		voice:       s.deps.Voice,
		log:         s.log,
		frames:      make(chan pipeline.Frame, 256),
	}
	sess.ctx, sess.cancel = context.WithCancel(context.Background())

	s.assemble(sess)

	localPID, err := s.deps.Transport.Join(ctx, req.RoomURL, req.Token)
	if err != nil {
		sess.cancel()
		return nil, err
	}
	sess.localPID = localPID
	s.deps.Tracker.Room(req.RoomURL).SetLocalBot(localPID)
	s.deps.Bus.Publish(events.TopicCallState, map[string]any{
		"room_url": req.RoomURL,
		"state":    "joined",
	})

	s.wire(sess)
	sess.flow.Start(sess.ctx)
	sess.lull.Start(sess.ctx)
	sess.wg.Add(1)
	go sess.run()

	return sess, nil
}

// assemble builds the frame pipeline and flow manager for the session's
// current room. Called at creation and again on transition; the final field
// swap happens under the session lock because the session task reads the
// same fields concurrently.
func (s *Supervisor) assemble(sess *Session) {
	sess.mu.Lock()
	roomURL := sess.rec.RoomURL
	personality := sess.personality
	tenantID, userID := sess.rec.TenantID, sess.rec.UserID
	sess.mu.Unlock()
	cfg := s.deps.Config

	monitor := &pipeline.SpeakingMonitor{Bus: s.deps.Bus, RoomURL: roomURL}
	narration := &pipeline.ToolNarration{}
	lull := &pipeline.LullTrigger{Idle: cfg.BeatUserIdle}

	pipe := pipeline.New(sess.enqueue,
		narration,
		&pipeline.SilenceFilter{},
		&pipeline.MarkdownStrip{},
		&pipeline.ClauseAggregator{},
		monitor,
		lull,
	)

	repeat := cfg.BeatRepeatInterval
	if personality.RepeatInterval > 0 {
		repeat = time.Duration(personality.RepeatInterval * float64(time.Second))
	}
	fm := flow.New(s.deps.Bus, pipe, roomURL,
		flow.Grace(cfg.GreetingGrace),
		flow.SpeakGate(cfg.SpeakGateDelay),
		flow.WrapupAfter(cfg.WrapupAfter),
		flow.RepeatInterval(repeat),
		flow.UserIdle(cfg.BeatUserIdle),
		flow.IdleTimeout(cfg.BeatUserIdleTimeout),
		flow.WrapupPrompt(personality.WrapupPrompt),
		flow.Speaking(monitor.Speaking),
		flow.Beats(personality.Beats),
	)

	emit := func(topic string, data map[string]any) {
		env := s.deps.Bus.Publish(topic, data)
		if err := s.deps.Forwarder.Forward(context.Background(), roomURL, env); err != nil {
			s.log.Warn("tool event forward failed", slogx.Error(err), slogx.Room(roomURL))
		}
	}
	hctx := tool.NewHandlerContext(tenantID, userID, s.deps.Store, emit)
	dispatch := &tool.Dispatcher{
		Registry:      s.deps.Tools,
		Whitelist:     personality.ToolWhitelist,
		RoomURL:       roomURL,
		Context:       hctx,
		EmitToolEvent: emit,
	}

	sess.mu.Lock()
	sess.pipe = pipe
	sess.flow = fm
	sess.monitor = monitor
	sess.narration = narration
	sess.lull = lull
	sess.dispatch = dispatch
	sess.mu.Unlock()
}

// wire subscribes the session to the bus topics that drive it. Handlers
// filter on room_url so sessions in other rooms are unaffected.
func (s *Supervisor) wire(sess *Session) {
	bus := s.deps.Bus

	// Handlers close over the machinery of this wiring generation, not over
	// the session fields: a later transition swaps the fields while old
	// handlers may still be running.
	sess.mu.Lock()
	roomURL := sess.rec.RoomURL
	localPID := sess.localPID
	fm := sess.flow
	pipe := sess.pipe
	sess.mu.Unlock()
	room := s.deps.Tracker.Room(roomURL)

	inRoom := func(env events.Envelope) bool {
		url, _ := env.Data["room_url"].(string)
		return url == roomURL
	}
	asInfo := func(env events.Envelope) map[string]any {
		info, _ := env.Data["info"].(map[string]any)
		return info
	}

	changed := func() {
		bus.Publish(events.TopicParticipantsChange, map[string]any{
			"room_url": roomURL,
			"humans":   room.HumanCount(),
			"total":    room.Count(),
		})
	}

	joined := func(env events.Envelope) {
		if !inRoom(env) {
			return
		}
		pid, _ := env.Data["pid"].(string)
		if pid == "" || pid == localPID {
			return
		}
		stealth, _ := env.Data["stealth"].(bool)
		p, _ := room.Join(pid, asInfo(env), stealth)
		if !p.Bot() && !stealth {
			fm.ParticipantJoined(p.PID, p.DisplayName, p.UserID)
		}
		changed()
	}

	unsubs := []events.Unsubscribe{
		bus.Subscribe(events.TopicParticipantFirst, joined),
		bus.Subscribe(events.TopicParticipantJoin, joined),
		bus.Subscribe(events.TopicParticipantLeave, func(env events.Envelope) {
			if !inRoom(env) {
				return
			}
			pid, _ := env.Data["pid"].(string)
			room.Leave(pid)
			fm.ParticipantLeft(pid)
			changed()
		}),
		bus.Subscribe(events.TopicParticipantIdent, func(env events.Envelope) {
			if !inRoom(env) {
				return
			}
			pid, _ := env.Data["pid"].(string)
			if p, ok := room.Identity(pid, asInfo(env)); ok {
				fm.IdentityChanged(p.PID, p.DisplayName)
			}
		}),
		bus.Subscribe(events.TopicContextMessage, func(env events.Envelope) {
			if !inRoom(env) {
				return
			}
			text, _ := env.Data["text"].(string)
			pid, _ := env.Data["pid"].(string)
			if text != "" {
				sess.appendMessage(provider.Message{Role: "user", Content: text})
			}
			fm.UserActivity()
			pipe.Push(sess.ctx, pipeline.UserActivityFrame{PID: pid})
		}),
		bus.Subscribe(events.TopicAdminPromptMessage, func(env events.Envelope) {
			if !inRoom(env) {
				return
			}
			text, _ := env.Data["message"].(string)
			if text == "" {
				return
			}
			pipe.Push(sess.ctx, pipeline.SystemMessageFrame{Text: text})
			pipe.Push(sess.ctx, pipeline.LLMRunFrame{})
			bus.Publish(events.TopicAdminPromptResponse, map[string]any{
				"room_url": roomURL,
				"status":   "queued",
			})
		}),
	}

	// Conversation topics mirror out to the room's UI. The forwarder is an
	// independent sink; no ordering is promised between it and bus
	// subscribers. Tool-emitted topics (sprite.summon, the tool namespaces)
	// are already forwarded by the dispatcher's emit path and must not be
	// mirrored a second time here.
	for _, topic := range []string{
		events.TopicGreeting,
		events.TopicWrapup,
		events.TopicPacingBeat,
		events.TopicSpeakingStarted,
		events.TopicSpeakingStopped,
		events.TopicTranscript,
	} {
		unsubs = append(unsubs, bus.Subscribe(topic, func(env events.Envelope) {
			if !inRoom(env) {
				return
			}
			if err := s.deps.Forwarder.Forward(context.Background(), roomURL, env); err != nil {
				s.log.Warn("event forward failed", slogx.Error(err), slogx.Room(roomURL))
			}
		}))
	}

	sess.mu.Lock()
	sess.unsubs = unsubs
	sess.mu.Unlock()
}

// Transition moves a session to a new room, keeping its id. The old room's
// cached keys are deleted before the new record is written.
func (s *Supervisor) Transition(ctx context.Context, sessionID string, req api.TransitionRequest) (api.JoinResponse, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return api.JoinResponse{}, api.ErrSessionNotFound
	}

	if occupant, busy := s.byRoom.Get(req.NewRoomURL); busy && occupant != sessionID {
		other, live := s.sessions.Get(occupant)
		if live {
			oRec, nRec := other.Record(), sess.Record()
			if oRec.TenantID != nRec.TenantID || oRec.UserID != nRec.UserID {
				return api.JoinResponse{}, api.ErrRoomBusy
			}
		}
	}

	oldRec := sess.Record()
	oldRoom := oldRec.RoomURL

	// Join the new room before leaving the old one. When the join fails the
	// session must still occupy a room the transport is actually in.
	localPID, err := s.deps.Transport.Join(ctx, req.NewRoomURL, req.NewToken)
	if err != nil {
		return api.JoinResponse{}, err
	}
	if err := s.deps.Transport.Leave(ctx, oldRoom); err != nil {
		s.log.Warn("transport leave failed", slogx.Error(err), slogx.Room(oldRoom))
	}

	// Quiesce the old room's machinery before rebinding.
	sess.mu.Lock()
	unsubs := sess.unsubs
	sess.unsubs = nil
	oldFlow, oldNarration, oldLull := sess.flow, sess.narration, sess.lull
	sess.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
	oldFlow.CancelAll()
	oldNarration.CancelAll()
	oldLull.Stop()

	if req.PersonalityID != "" && req.PersonalityID != oldRec.PersonalityID {
		if p, perr := s.resolvePersonality(ctx, req.NewRoomURL, req.PersonalityID, req.Persona); perr == nil {
			sess.mu.Lock()
			sess.personality = p
			sess.rec.PersonalityID = p.ID
			sess.rec.Persona = personalityPersona(p, req.Persona)
			sess.mu.Unlock()
		}
	}

	sess.mu.Lock()
	sess.rec.RoomURL = req.NewRoomURL
	sess.token = req.NewToken
	sess.localPID = localPID
	sess.mu.Unlock()

	s.assemble(sess)
	s.deps.Tracker.Room(req.NewRoomURL).SetLocalBot(localPID)
	s.deps.Bus.Publish(events.TopicCallState, map[string]any{
		"room_url": req.NewRoomURL,
		"state":    "joined",
	})
	s.wire(sess)
	sess.flow.Start(sess.ctx)
	sess.lull.Start(sess.ctx)

	s.byRoom.Del(oldRoom)
	s.byRoom.Add(req.NewRoomURL, sessionID)
	s.deps.Tracker.Forget(oldRoom)
	s.deps.Forwarder.Reset(oldRoom)

	rec := sess.Record()
	if err := s.deps.Cache.Transition(ctx, oldRoom, cacheRecord(rec)); err != nil {
		s.log.Warn("state cache transition failed", slogx.Error(err), slogx.Room(req.NewRoomURL))
	}

	s.log.Info("session transitioned",
		slogx.Session(sessionID),
		slog.String("from", oldRoom), slog.String("to", req.NewRoomURL))

	return api.JoinResponse{
		Status:        "transitioned",
		SessionID:     sessionID,
		RoomURL:       req.NewRoomURL,
		PersonalityID: rec.PersonalityID,
		Persona:       rec.Persona,
	}, nil
}

// Teardown ends a session. Status is "terminated", or "already-finished"
// when the session had already reached terminal state.
func (s *Supervisor) Teardown(ctx context.Context, sessionID, reason string) (string, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return "", api.ErrSessionNotFound
	}

	rec := sess.Record()
	status := "terminated"
	if rec.State.Terminal() {
		status = "already-finished"
	}

	sess.stop()

	if err := s.deps.Transport.Leave(ctx, rec.RoomURL); err != nil {
		s.log.Warn("transport leave failed", slogx.Error(err), slogx.Room(rec.RoomURL))
	}
	s.deps.Bus.Publish(events.TopicCallState, map[string]any{
		"room_url": rec.RoomURL,
		"state":    "left",
	})

	s.sessions.Del(sessionID)
	s.byRoom.Del(rec.RoomURL)
	if rec.UserID != "" {
		s.bindings.Del(api.BindingKey(rec.TenantID, rec.UserID))
		if err := s.deps.Cache.DeleteBinding(ctx, rec.TenantID, rec.UserID); err != nil {
			s.log.Warn("binding cache delete failed", slogx.Error(err))
		}
	}
	if _, err := s.deps.Cache.DeleteActive(ctx, rec.RoomURL); err != nil {
		s.log.Warn("state cache delete failed", slogx.Error(err), slogx.Room(rec.RoomURL))
	}
	s.deps.Tracker.Forget(rec.RoomURL)
	s.deps.Forwarder.Reset(rec.RoomURL)

	s.mu.Lock()
	delete(s.emptySince, sessionID)
	s.mu.Unlock()

	s.deps.Bus.Publish(events.TopicSessionEnd, map[string]any{
		"room_url":   rec.RoomURL,
		"session_id": sessionID,
		"reason":     reason,
	})
	s.log.Info("session ended", slogx.Session(sessionID), slog.String("reason", reason))

	return status, nil
}

// LeaveRoom tears down whatever session occupies roomURL and clears its
// cached state. It is safe to call for rooms with no session.
func (s *Supervisor) LeaveRoom(ctx context.Context, roomURL string) (api.LeaveResponse, error) {
	resp := api.LeaveResponse{Status: "ok", RoomURL: roomURL}

	// Delete first so the response reports the keys that actually existed;
	// the teardown's own delete then finds nothing left.
	deleted, err := s.deps.Cache.DeleteActive(ctx, roomURL)
	if err != nil {
		s.log.Warn("state cache delete failed", slogx.Error(err), slogx.Room(roomURL))
	}
	resp.KeysDeleted = deleted

	if sid, ok := s.byRoom.Get(roomURL); ok {
		if _, err := s.Teardown(ctx, sid, "leave"); err != nil && !errors.Is(err, api.ErrSessionNotFound) {
			return resp, err
		}
	} else {
		resp.Warning = "no live session for room"
	}
	return resp, nil
}

// Lookup returns a session's record by id.
func (s *Supervisor) Lookup(sessionID string) (api.Session, bool) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return api.Session{}, false
	}
	return sess.Record(), true
}

// LookupByRoom returns the record of the session occupying roomURL.
func (s *Supervisor) LookupByRoom(roomURL string) (api.Session, bool) {
	sid, ok := s.byRoom.Get(roomURL)
	if !ok {
		return api.Session{}, false
	}
	return s.Lookup(sid)
}

// Sessions lists every live session sorted by session id.
func (s *Supervisor) Sessions() []api.SessionSummary {
	out := make([]api.SessionSummary, 0, s.sessions.Len())
	s.sessions.Range(func(_ string, sess *Session) bool {
		rec := sess.Record()
		out = append(out, api.SessionSummary{
			SessionID:   rec.ID,
			RoomURL:     rec.RoomURL,
			Personality: rec.PersonalityID,
			Persona:     rec.Persona,
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// Health reports the live session count.
func (s *Supervisor) Health() api.HealthResponse {
	return api.HealthResponse{Sessions: s.sessions.Len()}
}

// Shutdown tears down every live session.
func (s *Supervisor) Shutdown(ctx context.Context) {
	for _, summary := range s.Sessions() {
		if _, err := s.Teardown(ctx, summary.SessionID, "shutdown"); err != nil {
			s.log.Warn("teardown on shutdown failed",
				slogx.Error(err), slogx.Session(summary.SessionID))
		}
	}
}

// startKeepalive refreshes the room's liveness marker until the session
// context ends.
func (s *Supervisor) startKeepalive(sess *Session) {
	sess.wg.Add(1)
	go func() {
		defer sess.wg.Done()
		ticker := time.NewTicker(statecache.KeepaliveTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-sess.ctx.Done():
				return
			case <-ticker.C:
				roomURL := sess.Record().RoomURL
				if err := s.deps.Cache.Keepalive(sess.ctx, roomURL); err != nil && sess.ctx.Err() == nil {
					s.log.Warn("keepalive failed", slogx.Error(err), slogx.Room(roomURL))
				}
			}
		}
	}()
}

// Sweep tears down zombie sessions: rooms whose human count has been zero
// for longer than grace. The operator calls it on a timer.
func (s *Supervisor) Sweep(ctx context.Context, grace time.Duration) int {
	now := time.Now()
	var zombies []string

	s.sessions.Range(func(sid string, sess *Session) bool {
		roomURL := sess.Record().RoomURL
		humans := s.deps.Tracker.Room(roomURL).HumanCount()

		s.mu.Lock()
		if humans > 0 {
			delete(s.emptySince, sid)
		} else if since, seen := s.emptySince[sid]; !seen {
			s.emptySince[sid] = now
		} else if now.Sub(since) >= grace {
			zombies = append(zombies, sid)
		}
		s.mu.Unlock()
		return true
	})

	for _, sid := range zombies {
		if _, err := s.Teardown(ctx, sid, "zombie"); err != nil {
			s.log.Warn("zombie teardown failed", slogx.Error(err), slogx.Session(sid))
		}
	}

	s.recoverLostRooms(ctx)
	return len(zombies)
}

// recoverLostRooms hands rooms that still hold humans but have no live
// session to a warm pool runner. A room is forgotten once a runner accepts
// it; the accepting runner rebuilds participant state on join.
func (s *Supervisor) recoverLostRooms(ctx context.Context) {
	if s.deps.Pool == nil {
		return
	}
	for _, roomURL := range s.deps.Tracker.Rooms() {
		if _, live := s.byRoom.Get(roomURL); live {
			continue
		}
		if s.deps.Tracker.Room(roomURL).HumanCount() == 0 {
			s.deps.Tracker.Forget(roomURL)
			continue
		}
		if s.deps.Pool.Dispatch(ctx, s.deps.Config.PoolJoinPath, api.JoinRequest{RoomURL: roomURL}) {
			s.log.Info("lost room handed to pool", slogx.Room(roomURL))
			s.deps.Tracker.Forget(roomURL)
		} else {
			s.log.Warn("no pool runner accepted lost room", slogx.Room(roomURL))
		}
	}
}

// RunSweeper runs Sweep on an interval until ctx ends.
func (s *Supervisor) RunSweeper(ctx context.Context, interval, grace time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx, grace)
		}
	}
}

func cacheRecord(rec api.Session) statecache.Record {
	return statecache.Record{
		SessionID: rec.ID,
		TenantID:  rec.TenantID,
		UserID:    rec.UserID,
		RoomURL:   rec.RoomURL,
		StartedAt: rec.CreatedAt,
	}
}

func personalityPersona(p api.Personality, requested string) string {
	if requested != "" {
		return requested
	}
	return p.Sprite
}
