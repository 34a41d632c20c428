package playback

import "context"

// Target identifies the voice endpoint a session should stream to.
type Target struct {
	GuildID   string
	ChannelID string
}

// Conn is a live voice session handle.
type Conn interface {
	Close() error
	IsOpen() bool
}

// Connector opens voice sessions. Open may block while the gateway handshake
// completes.
type Connector interface {
	Open(ctx context.Context, target Target) (Conn, error)
}

// Stream is one in-flight track. Done yields exactly one terminal event:
// nil when the track finished normally (a force stop counts as finished),
// an error when it failed mid-stream.
type Stream interface {
	Done() <-chan error
}

// Player starts and stops streams on an attached connection.
type Player interface {
	Start(ctx context.Context, track Track) (Stream, error)
	// Stop terminates the current stream, if any. force makes the stream
	// emit its terminal event immediately instead of draining buffers.
	Stop(force bool)
}

// Transport attaches a player to an open connection.
type Transport interface {
	Attach(conn Conn) (Player, error)
}
