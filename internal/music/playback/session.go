package playback

import (
	"sync"
	"time"
)

// session holds one guild's playback state. Created lazily on first use and
// kept for process lifetime; only the transport handles cycle open/closed.
//
// All fields are guarded by mu. The mutex is held across the check-and-flip
// of playing but never across a transport call.
type session struct {
	mu sync.Mutex

	guildID string
	target  Target

	queue      []item
	playing    bool
	nowPlaying *Track

	// conn and player are either both set or both nil.
	conn   Conn
	player Player

	// streamGen identifies the current stream so a late terminal event for
	// a superseded stream is dropped instead of advancing the queue twice.
	streamGen uint64

	// At most one idle-teardown timer is armed at a time. timerGen
	// invalidates callbacks of timers that were disarmed after firing.
	idleTimer *time.Timer
	timerGen  uint64
}

// disarmIdleLocked cancels a pending idle teardown. Callers hold mu.
func (s *session) disarmIdleLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	// Invalidate a callback that already fired but has not locked mu yet.
	s.timerGen++
}

// registry is the only process-wide mutable structure: guild ID to session.
// Get-or-create is a single operation under the registry lock so two first
// enqueues cannot race into two sessions for the same guild.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*session)}
}

func (r *registry) getOrCreate(guildID string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[guildID]; ok {
		return s
	}
	s := &session{guildID: guildID}
	r.sessions[guildID] = s
	return s
}

func (r *registry) get(guildID string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[guildID]
	return s, ok
}
