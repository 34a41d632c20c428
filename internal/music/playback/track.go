package playback

// Track is an immutable descriptor of one playable item. It is shared by
// reference across queue operations and never mutated after creation.
type Track struct {
	Provider   string
	Title      string
	Artist     string
	Album      string
	DurationMs int

	// URL is a direct stream or watch URL when the provider already knows
	// one. Query is the search fallback the stream layer resolves when URL
	// is empty. At least one of the two is set.
	URL   string
	Query string
}

// Notifier receives human-readable playback status for one enqueued item.
// The playback core only decides when to notify; formatting and delivery
// (which text channel, embeds, emoji) are the caller's concern.
type Notifier interface {
	NowPlaying(t Track)
	TrackFailed(t Track, reason error)
}

// item pairs a track with the notifier of the command that enqueued it.
// Created on enqueue, dropped when the track is handed to the transport.
type item struct {
	track  Track
	notify Notifier
}
