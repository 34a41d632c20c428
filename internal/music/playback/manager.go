package playback

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// DefaultIdleTimeout is how long a session stays connected with nothing
// playing and an empty queue before the voice connection is torn down.
const DefaultIdleTimeout = 300 * time.Second

var (
	// ErrNotInSession is returned by Enqueue and Join when the caller has no
	// resolvable voice channel.
	ErrNotInSession = errors.New("not in a voice channel")
)

// EnqueueResult reports what Enqueue did so the caller can render
// "started playback" vs "added to queue" feedback.
type EnqueueResult struct {
	Added         int
	AlreadyActive bool
}

// Manager owns all guild sessions and drives each one through its
// idle -> playing -> idle transitions. One Manager per process.
type Manager struct {
	connector   Connector
	transport   Transport
	idleTimeout time.Duration
	log         zerolog.Logger

	reg *registry
}

type Option func(*Manager)

func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idleTimeout = d }
}

func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

func NewManager(connector Connector, transport Transport, opts ...Option) *Manager {
	m := &Manager{
		connector:   connector,
		transport:   transport,
		idleTimeout: DefaultIdleTimeout,
		log:         zerolog.Nop(),
		reg:         newRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enqueue appends tracks to the guild's queue (or prepends them, preserving
// batch order, when playNext is set) and starts playback if the session was
// idle. The notifier is bound to every track of the batch.
func (m *Manager) Enqueue(guildID string, target Target, notify Notifier, tracks []Track, playNext bool) (EnqueueResult, error) {
	if target.ChannelID == "" {
		return EnqueueResult{}, ErrNotInSession
	}

	s := m.reg.getOrCreate(guildID)

	s.mu.Lock()
	s.target = target
	alreadyActive := s.playing || len(s.queue) > 0

	items := make([]item, len(tracks))
	for i, t := range tracks {
		items[i] = item{track: t, notify: notify}
	}
	if playNext {
		s.queue = append(items, s.queue...)
	} else {
		s.queue = append(s.queue, items...)
	}
	s.mu.Unlock()

	m.log.Debug().
		Str("guild", guildID).
		Int("added", len(tracks)).
		Bool("play_next", playNext).
		Bool("already_active", alreadyActive).
		Msg("tracks enqueued")

	if !alreadyActive {
		m.advance(s)
	}

	return EnqueueResult{Added: len(tracks), AlreadyActive: alreadyActive}, nil
}

// Clear empties the queue without touching the currently playing track and
// without cancelling a pending idle teardown. Returns how many tracks were
// removed.
func (m *Manager) Clear(guildID string) int {
	s, ok := m.reg.get(guildID)
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cleared := len(s.queue)
	s.queue = nil
	return cleared
}

// Skip force-stops the current stream. The stop synthesizes the stream's
// terminal event, which drives the normal playing -> idle -> advance path.
// Returns false when nothing is playing.
func (m *Manager) Skip(guildID string) bool {
	s, ok := m.reg.get(guildID)
	if !ok {
		return false
	}
	s.mu.Lock()
	if !s.playing || s.player == nil {
		s.mu.Unlock()
		return false
	}
	player := s.player
	s.mu.Unlock()

	player.Stop(true)
	return true
}

// Queue returns a snapshot of the guild's pending tracks. The currently
// playing track is not part of the queue.
func (m *Manager) Queue(guildID string) []Track {
	s, ok := m.reg.get(guildID)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Track, len(s.queue))
	for i, it := range s.queue {
		out[i] = it.track
	}
	return out
}

// NowPlaying returns the guild's active track, or nil when idle.
func (m *Manager) NowPlaying(guildID string) *Track {
	s, ok := m.reg.get(guildID)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing || s.nowPlaying == nil {
		return nil
	}
	t := *s.nowPlaying
	return &t
}

// Join opens the voice session for the target without enqueueing anything.
func (m *Manager) Join(ctx context.Context, guildID string, target Target) error {
	if target.ChannelID == "" {
		return ErrNotInSession
	}
	s := m.reg.getOrCreate(guildID)
	s.mu.Lock()
	s.target = target
	s.mu.Unlock()
	_, err := m.ensureTransport(ctx, s, target)
	return err
}

// Leave stops playback, drops the queue and closes the voice session.
// Returns false when there was no open session.
func (m *Manager) Leave(guildID string) bool {
	s, ok := m.reg.get(guildID)
	if !ok {
		return false
	}
	s.mu.Lock()
	s.disarmIdleLocked()
	s.queue = nil
	player := s.player
	conn := s.conn
	playing := s.playing
	s.mu.Unlock()

	if conn == nil {
		return false
	}
	if playing && player != nil {
		player.Stop(true)
	}

	s.mu.Lock()
	// The forced stop's terminal event may have already cleared the flag;
	// clear it here too so a stale event cannot restart anything.
	s.streamGen++
	s.playing = false
	s.nowPlaying = nil
	s.conn = nil
	s.player = nil
	s.mu.Unlock()

	if err := conn.Close(); err != nil {
		m.log.Warn().Err(err).Str("guild", guildID).Msg("voice close failed")
	}
	return true
}

// advance is the state-machine engine. It is called by Enqueue (idle
// session), by the terminal-event watcher and after start failures. The
// loop replaces the original's tail recursion: dequeue, flip to playing,
// start the stream; on start failure notify and try the next item; on empty
// queue arm the idle teardown.
func (m *Manager) advance(s *session) {
	for {
		s.mu.Lock()
		if s.playing {
			// Another entry point already started a stream.
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 {
			m.armIdleLocked(s)
			s.mu.Unlock()
			return
		}

		s.disarmIdleLocked()
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.playing = true
		track := next.track
		s.nowPlaying = &track
		target := s.target
		s.mu.Unlock()

		stream, err := m.startStream(s, target, next.track)
		if err != nil {
			m.log.Warn().
				Err(err).
				Str("guild", s.guildID).
				Str("track", next.track.Title).
				Msg("stream start failed, skipping track")
			if next.notify != nil {
				next.notify.TrackFailed(next.track, err)
			}
			s.mu.Lock()
			s.playing = false
			s.nowPlaying = nil
			s.mu.Unlock()
			continue
		}

		s.mu.Lock()
		s.streamGen++
		gen := s.streamGen
		s.mu.Unlock()

		m.log.Info().
			Str("guild", s.guildID).
			Str("track", next.track.Title).
			Str("provider", next.track.Provider).
			Msg("now playing")
		if next.notify != nil {
			next.notify.NowPlaying(next.track)
		}

		go m.watch(s, gen, next, stream)
		return
	}
}

// watch consumes the stream's single terminal event and re-enters advance.
func (m *Manager) watch(s *session, gen uint64, it item, stream Stream) {
	err := <-stream.Done()

	s.mu.Lock()
	if gen != s.streamGen {
		s.mu.Unlock()
		m.log.Warn().
			Str("guild", s.guildID).
			Str("track", it.track.Title).
			Msg("dropping terminal event for superseded stream")
		return
	}
	s.playing = false
	s.nowPlaying = nil
	s.mu.Unlock()

	if err != nil {
		m.log.Warn().
			Err(err).
			Str("guild", s.guildID).
			Str("track", it.track.Title).
			Msg("playback ended with error")
		if it.notify != nil {
			it.notify.TrackFailed(it.track, err)
		}
	} else {
		m.log.Debug().
			Str("guild", s.guildID).
			Str("track", it.track.Title).
			Msg("playback finished")
	}

	m.advance(s)
}

// startStream makes sure a live connection and player exist for the target,
// reopening them if the previous ones were torn down, then starts the track.
func (m *Manager) startStream(s *session, target Target, track Track) (Stream, error) {
	player, err := m.ensureTransport(context.Background(), s, target)
	if err != nil {
		return nil, err
	}
	return player.Start(context.Background(), track)
}

// ensureTransport is idempotent: it reuses an open connection or opens a new
// one and attaches a fresh player. conn and player are updated atomically.
func (m *Manager) ensureTransport(ctx context.Context, s *session, target Target) (Player, error) {
	s.mu.Lock()
	conn, player := s.conn, s.player
	s.mu.Unlock()

	if conn != nil && conn.IsOpen() && player != nil {
		return player, nil
	}

	newConn, err := m.connector.Open(ctx, target)
	if err != nil {
		return nil, err
	}
	newPlayer, err := m.transport.Attach(newConn)
	if err != nil {
		_ = newConn.Close()
		return nil, err
	}

	s.mu.Lock()
	s.conn = newConn
	s.player = newPlayer
	s.mu.Unlock()

	m.log.Debug().
		Str("guild", target.GuildID).
		Str("channel", target.ChannelID).
		Msg("voice session opened")
	return newPlayer, nil
}

// armIdleLocked schedules the idle teardown unless one is already pending.
// Callers hold s.mu.
func (m *Manager) armIdleLocked(s *session) {
	if s.idleTimer != nil {
		return
	}
	s.timerGen++
	gen := s.timerGen
	s.idleTimer = time.AfterFunc(m.idleTimeout, func() {
		m.idleFire(s, gen)
	})
}

// idleFire closes the voice session after the idle timeout, unless playback
// resumed or the timer was superseded in the meantime. The generation check
// under the lock makes a stale fire a no-op.
func (m *Manager) idleFire(s *session, gen uint64) {
	s.mu.Lock()
	if gen != s.timerGen || s.playing {
		s.mu.Unlock()
		return
	}
	s.idleTimer = nil
	conn := s.conn
	s.conn = nil
	s.player = nil
	s.mu.Unlock()

	if conn == nil || !conn.IsOpen() {
		return
	}
	if err := conn.Close(); err != nil {
		m.log.Warn().Err(err).Str("guild", s.guildID).Msg("idle teardown close failed")
		return
	}
	m.log.Info().Str("guild", s.guildID).Msg("voice session closed after idle timeout")
}
