package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeConn struct {
	mu     sync.Mutex
	open   bool
	closes int
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.closes++
	return nil
}

func (c *fakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

type fakeConnector struct {
	mu    sync.Mutex
	conns []*fakeConn
}

func (f *fakeConnector) Open(_ context.Context, _ Target) (Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeConn{open: true}
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeConnector) last() *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		return nil
	}
	return f.conns[len(f.conns)-1]
}

func (f *fakeConnector) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

type fakeStream struct {
	done chan error
	once sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{done: make(chan error, 1)}
}

func (s *fakeStream) Done() <-chan error { return s.done }

func (s *fakeStream) finish(err error) {
	s.once.Do(func() { s.done <- err })
}

type fakePlayer struct {
	mu        sync.Mutex
	started   []Track
	streams   []*fakeStream
	failWith  map[string]error // track title -> Start error
	active    int
	maxActive int
}

func (p *fakePlayer) Start(_ context.Context, t Track) (Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failWith[t.Title]; err != nil {
		return nil, err
	}
	p.started = append(p.started, t)
	p.active++
	if p.active > p.maxActive {
		p.maxActive = p.active
	}
	s := newFakeStream()
	p.streams = append(p.streams, s)
	return s, nil
}

func (p *fakePlayer) Stop(force bool) {
	p.mu.Lock()
	var cur *fakeStream
	if n := len(p.streams); n > 0 {
		cur = p.streams[n-1]
	}
	p.mu.Unlock()
	if force && cur != nil {
		cur.finish(nil)
	}
}

// finishCurrent completes the most recently started stream.
func (p *fakePlayer) finishCurrent(err error) {
	p.mu.Lock()
	if p.active > 0 {
		p.active--
	}
	var cur *fakeStream
	if n := len(p.streams); n > 0 {
		cur = p.streams[n-1]
	}
	p.mu.Unlock()
	if cur != nil {
		cur.finish(err)
	}
}

func (p *fakePlayer) startedTitles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.started))
	for i, t := range p.started {
		out[i] = t.Title
	}
	return out
}

type fakeTransport struct {
	player *fakePlayer
}

func (f *fakeTransport) Attach(_ Conn) (Player, error) { return f.player, nil }

type recordingNotifier struct {
	mu      sync.Mutex
	playing []Track
	failed  []Track
	reasons []error
}

func (n *recordingNotifier) NowPlaying(t Track) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playing = append(n.playing, t)
}

func (n *recordingNotifier) TrackFailed(t Track, reason error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, t)
	n.reasons = append(n.reasons, reason)
}

func (n *recordingNotifier) failedTitles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.failed))
	for i, t := range n.failed {
		out[i] = t.Title
	}
	return out
}

func (n *recordingNotifier) playingTitles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.playing))
	for i, t := range n.playing {
		out[i] = t.Title
	}
	return out
}

// --- helpers ---

func newTestManager(t *testing.T, opts ...Option) (*Manager, *fakeConnector, *fakePlayer) {
	t.Helper()
	connector := &fakeConnector{}
	player := &fakePlayer{failWith: map[string]error{}}
	m := NewManager(connector, &fakeTransport{player: player}, opts...)
	return m, connector, player
}

func track(title string) Track {
	return Track{Provider: "spotify", Title: title, Artist: "artist", URL: "https://example.com/" + title}
}

var testTarget = Target{GuildID: "g1", ChannelID: "c1"}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

// --- tests ---

func TestEnqueueStartsIdleSession(t *testing.T) {
	m, _, player := newTestManager(t)
	notify := &recordingNotifier{}

	res, err := m.Enqueue("g1", testTarget, notify, []Track{track("a")}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.False(t, res.AlreadyActive)

	assert.Equal(t, []string{"a"}, player.startedTitles())
	assert.Empty(t, m.Queue("g1"))

	np := m.NowPlaying("g1")
	require.NotNil(t, np)
	assert.Equal(t, "a", np.Title)
	assert.Equal(t, []string{"a"}, notify.playingTitles())
}

func TestEnqueueWithoutChannel(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.Enqueue("g1", Target{GuildID: "g1"}, nil, []Track{track("a")}, false)
	assert.ErrorIs(t, err, ErrNotInSession)
	assert.ErrorIs(t, m.Join(context.Background(), "g1", Target{GuildID: "g1"}), ErrNotInSession)
}

func TestEnqueueWhileActiveOnlyQueues(t *testing.T) {
	m, _, player := newTestManager(t)

	_, err := m.Enqueue("g1", testTarget, nil, []Track{track("a")}, false)
	require.NoError(t, err)

	res, err := m.Enqueue("g1", testTarget, nil, []Track{track("b"), track("c")}, false)
	require.NoError(t, err)
	assert.True(t, res.AlreadyActive)
	assert.Equal(t, 2, res.Added)

	// Only the first track is streaming; the rest wait in order.
	assert.Equal(t, []string{"a"}, player.startedTitles())
	queue := m.Queue("g1")
	require.Len(t, queue, 2)
	assert.Equal(t, "b", queue[0].Title)
	assert.Equal(t, "c", queue[1].Title)
}

func TestPlayNextPrependsPreservingBatchOrder(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.Enqueue("g1", testTarget, nil, []Track{track("a"), track("b"), track("c")}, false)
	require.NoError(t, err)

	_, err = m.Enqueue("g1", testTarget, nil, []Track{track("d"), track("e")}, true)
	require.NoError(t, err)

	queue := m.Queue("g1")
	titles := make([]string, len(queue))
	for i, tr := range queue {
		titles[i] = tr.Title
	}
	assert.Equal(t, []string{"d", "e", "b", "c"}, titles)
}

func TestAtMostOneStreamAndFIFOOrder(t *testing.T) {
	m, _, player := newTestManager(t)

	_, err := m.Enqueue("g1", testTarget, nil, []Track{track("a"), track("b"), track("c")}, false)
	require.NoError(t, err)

	waitFor(t, func() bool { return len(player.startedTitles()) == 1 }, "first track should start")
	player.finishCurrent(nil)
	waitFor(t, func() bool { return len(player.startedTitles()) == 2 }, "second track should start")
	player.finishCurrent(nil)
	waitFor(t, func() bool { return len(player.startedTitles()) == 3 }, "third track should start")
	player.finishCurrent(nil)

	waitFor(t, func() bool { return m.NowPlaying("g1") == nil }, "session should go idle")

	assert.Equal(t, []string{"a", "b", "c"}, player.startedTitles())
	player.mu.Lock()
	defer player.mu.Unlock()
	assert.Equal(t, 1, player.maxActive, "streams must never overlap")
}

func TestSkipAdvancesToNextTrack(t *testing.T) {
	m, _, player := newTestManager(t)
	notify := &recordingNotifier{}

	_, err := m.Enqueue("g1", testTarget, notify, []Track{track("a"), track("b")}, false)
	require.NoError(t, err)

	require.True(t, m.Skip("g1"))
	waitFor(t, func() bool { return len(player.startedTitles()) == 2 }, "next track should start after skip")

	np := m.NowPlaying("g1")
	require.NotNil(t, np)
	assert.Equal(t, "b", np.Title)

	// A forced stop is a normal finish, not a failure.
	assert.Empty(t, notify.failedTitles())
}

func TestSkipWhileIdle(t *testing.T) {
	m, _, _ := newTestManager(t)
	assert.False(t, m.Skip("g1"))

	// Session exists but nothing is playing.
	require.NoError(t, m.Join(context.Background(), "g1", testTarget))
	assert.False(t, m.Skip("g1"))
}

func TestClearLeavesCurrentTrack(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.Enqueue("g1", testTarget, nil, []Track{track("a"), track("b"), track("c")}, false)
	require.NoError(t, err)

	assert.Equal(t, 2, m.Clear("g1"))
	assert.Empty(t, m.Queue("g1"))

	np := m.NowPlaying("g1")
	require.NotNil(t, np)
	assert.Equal(t, "a", np.Title)

	assert.Equal(t, 0, m.Clear("nope"))
}

func TestStartFailureSkipsToNext(t *testing.T) {
	m, _, player := newTestManager(t)
	player.failWith["a"] = errors.New("no stream source")
	notify := &recordingNotifier{}

	_, err := m.Enqueue("g1", testTarget, notify, []Track{track("a"), track("b")}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, notify.failedTitles())
	assert.Equal(t, []string{"b"}, player.startedTitles())
	assert.Equal(t, []string{"b"}, notify.playingTitles())
}

func TestStreamErrorNotifiesAndAdvances(t *testing.T) {
	m, _, player := newTestManager(t)
	notify := &recordingNotifier{}

	_, err := m.Enqueue("g1", testTarget, notify, []Track{track("a"), track("b")}, false)
	require.NoError(t, err)

	player.finishCurrent(errors.New("connection reset"))
	waitFor(t, func() bool { return len(player.startedTitles()) == 2 }, "next track should start after failure")

	assert.Equal(t, []string{"a"}, notify.failedTitles())
	notify.mu.Lock()
	require.Len(t, notify.reasons, 1)
	assert.EqualError(t, notify.reasons[0], "connection reset")
	notify.mu.Unlock()
}

func TestIdleTeardownClosesConnection(t *testing.T) {
	m, connector, player := newTestManager(t, WithIdleTimeout(40*time.Millisecond))

	_, err := m.Enqueue("g1", testTarget, nil, []Track{track("a")}, false)
	require.NoError(t, err)
	conn := connector.last()
	require.NotNil(t, conn)

	player.finishCurrent(nil)
	waitFor(t, func() bool { return conn.closeCount() == 1 }, "idle timeout should close the connection")

	// A later fire of anything stale must not close again.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, conn.closeCount())
}

func TestEnqueueCancelsPendingTeardown(t *testing.T) {
	m, connector, player := newTestManager(t, WithIdleTimeout(80*time.Millisecond))

	_, err := m.Enqueue("g1", testTarget, nil, []Track{track("a")}, false)
	require.NoError(t, err)
	conn := connector.last()
	player.finishCurrent(nil)

	waitFor(t, func() bool { return m.NowPlaying("g1") == nil }, "session should go idle")

	// Re-arm the session before the timer fires.
	_, err = m.Enqueue("g1", testTarget, nil, []Track{track("b")}, false)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, conn.closeCount(), "teardown must be cancelled by new playback")
	assert.Equal(t, 1, connector.openCount(), "open connection should be reused")
}

func TestTeardownReopensOnNextPlayback(t *testing.T) {
	m, connector, player := newTestManager(t, WithIdleTimeout(20*time.Millisecond))

	_, err := m.Enqueue("g1", testTarget, nil, []Track{track("a")}, false)
	require.NoError(t, err)
	player.finishCurrent(nil)

	first := connector.last()
	waitFor(t, func() bool { return first.closeCount() == 1 }, "idle teardown")

	_, err = m.Enqueue("g1", testTarget, nil, []Track{track("b")}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, connector.openCount(), "new playback needs a fresh connection")
	assert.True(t, connector.last().IsOpen())
}

func TestLeaveDropsEverything(t *testing.T) {
	m, connector, player := newTestManager(t)

	assert.False(t, m.Leave("g1"), "no session yet")

	_, err := m.Enqueue("g1", testTarget, nil, []Track{track("a"), track("b")}, false)
	require.NoError(t, err)

	require.True(t, m.Leave("g1"))
	assert.Equal(t, 1, connector.last().closeCount())
	assert.Empty(t, m.Queue("g1"))
	assert.Nil(t, m.NowPlaying("g1"))

	// The force-stopped stream's terminal event must not restart playback.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"a"}, player.startedTitles())

	assert.False(t, m.Leave("g1"), "second leave finds no open session")
}

func TestJoinOpensConnectionOnce(t *testing.T) {
	m, connector, _ := newTestManager(t)

	require.NoError(t, m.Join(context.Background(), "g1", testTarget))
	require.NoError(t, m.Join(context.Background(), "g1", testTarget))
	assert.Equal(t, 1, connector.openCount())
}

func TestQueueSnapshotIsACopy(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.Enqueue("g1", testTarget, nil, []Track{track("a"), track("b")}, false)
	require.NoError(t, err)

	snap := m.Queue("g1")
	require.Len(t, snap, 1)
	snap[0].Title = "mutated"

	again := m.Queue("g1")
	assert.Equal(t, "b", again[0].Title)
}
