// Package rooms tracks the participants of each room: who is present, who is
// stealthed, and what identity metadata has arrived for them. The tracker is
// the single writer for participant records; everything else reads snapshots.
package rooms

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/alphadose/haxmap"

	"github.com/wispworks/wisp/api"
)

// Tracker holds per-room participant state. The room index is lock-free; the
// per-room record serializes all mutation through one mutex so derivations
// like HumanCount observe a consistent set.
type Tracker struct {
	rooms *haxmap.Map[string, *Room]
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{rooms: haxmap.New[string, *Room]()}
}

// Room returns the state for roomURL, creating it on first use.
func (t *Tracker) Room(roomURL string) *Room {
	r, _ := t.rooms.GetOrCompute(roomURL, func() *Room {
		return &Room{
			url:     roomURL,
			active:  make(map[string]api.Participant),
			stealth: make(map[string]struct{}),
		}
	})
	return r
}

// Rooms lists every tracked room URL, sorted.
func (t *Tracker) Rooms() []string {
	var out []string
	t.rooms.ForEach(func(roomURL string, _ *Room) bool {
		out = append(out, roomURL)
		return true
	})
	slices.Sort(out)
	return out
}

// Forget drops all state for a room. Called on session teardown.
func (t *Tracker) Forget(roomURL string) {
	t.rooms.Del(roomURL)
}

// Room is the participant set of one room.
type Room struct {
	mu       sync.Mutex
	url      string
	active   map[string]api.Participant
	stealth  map[string]struct{}
	localBot string
}

// SetLocalBot records the pid of the bot's own participant so it can be
// excluded from human counts.
func (r *Room) SetLocalBot(pid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.localBot = pid
}

// Join records a participant. info carries the transport's raw metadata; the
// display name is extracted by the fixed precedence in DisplayName. Returns
// true when this is the first active participant in the room.
func (r *Room) Join(pid string, info map[string]any, stealth bool) (api.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	first := len(r.active) == 0
	p := api.Participant{
		PID:         pid,
		DisplayName: DisplayName(info),
		UserID:      stringField(info, "user_id"),
		Email:       stringField(info, "email"),
		Stealth:     stealth,
		JoinedAt:    time.Now(),
	}
	r.active[pid] = p
	if stealth {
		r.stealth[pid] = struct{}{}
	}
	return p, first
}

// Leave removes a participant. Returns the removed record and whether the
// pid was present.
func (r *Room) Leave(pid string) (api.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.active[pid]
	if !ok {
		return api.Participant{}, false
	}
	delete(r.active, pid)
	delete(r.stealth, pid)
	return p, true
}

// Identity applies an identity event to an existing participant. Unknown
// pids are ignored; identity events can race with leaves.
func (r *Room) Identity(pid string, info map[string]any) (api.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.active[pid]
	if !ok {
		return api.Participant{}, false
	}
	if name := DisplayName(info); name != "" {
		p.DisplayName = name
	}
	if uid := stringField(info, "user_id"); uid != "" {
		p.UserID = uid
	}
	if email := stringField(info, "email"); email != "" {
		p.Email = email
	}
	p.IdentityVersion++
	r.active[pid] = p
	return p, true
}

// Lookup returns a read-only snapshot of one participant.
func (r *Room) Lookup(pid string) (api.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.active[pid]
	return p, ok
}

// Snapshot returns a copy of all active participants, ordered by pid.
func (r *Room) Snapshot() []api.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]api.Participant, 0, len(r.active))
	for _, pid := range slices.Sorted(maps.Keys(r.active)) {
		out = append(out, r.active[pid])
	}
	return out
}

// Count is the number of active participants, local bot included.
func (r *Room) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// HumanCount is the number of active participants excluding the local bot.
func (r *Room) HumanCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.active)
	if r.localBot != "" {
		if _, ok := r.active[r.localBot]; ok {
			n--
		}
	}
	return n
}

// StealthCount is the number of stealthed participants.
func (r *Room) StealthCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stealth)
}

func stringField(info map[string]any, key string) string {
	if info == nil {
		return ""
	}
	if v, ok := info[key].(string); ok {
		return v
	}
	return ""
}
