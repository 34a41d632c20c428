// Package format renders track metadata into the Discord message strings
// the music commands post.
package format

import (
	"fmt"
	"strings"

	"github.com/jukebot/jukebot/internal/music/playback"
)

// Duration renders milliseconds as "m:ss". Unknown (zero) durations render
// as "0:00".
func Duration(durationMs int) string {
	if durationMs < 0 {
		durationMs = 0
	}
	totalSec := durationMs / 1000
	return fmt.Sprintf("%d:%02d", totalSec/60, totalSec%60)
}

// TrackLine renders a two-line track summary with title, artist, album and
// duration.
func TrackLine(t playback.Track) string {
	return fmt.Sprintf("**%s** — %s\n💿 %s • ⏱️ %s",
		t.Title, t.Artist, t.Album, Duration(t.DurationMs))
}

// NowPlaying renders the full status message posted when a track starts.
func NowPlaying(t playback.Track) string {
	return "🎵 **Now playing**\n" + TrackLine(t)
}

// TrackFailed renders the one-line skip notification for a failed track.
func TrackFailed(t playback.Track, reason error) string {
	return fmt.Sprintf("❌ Skipping **%s**: %v", t.Title, reason)
}

// QueuePage renders the now-playing block plus one page of the queue.
// Pages are zero-based; pageSize entries per page.
func QueuePage(nowPlaying *playback.Track, queue []playback.Track, page, pageSize int) string {
	var lines []string

	if nowPlaying != nil {
		lines = append(lines, "🎵 **Now playing**", TrackLine(*nowPlaying), "")
	}

	if len(queue) == 0 {
		lines = append(lines, "_The queue is empty._")
		return strings.Join(lines, "\n")
	}

	totalPages := (len(queue) + pageSize - 1) / pageSize
	if page >= totalPages {
		page = totalPages - 1
	}

	lines = append(lines, fmt.Sprintf("📋 **Queue** — Page %d / %d", page+1, totalPages))
	start := page * pageSize
	end := min(start+pageSize, len(queue))
	for i, t := range queue[start:end] {
		lines = append(lines, fmt.Sprintf("`%2d.` **%s** — %s · %s",
			start+i+1, t.Title, t.Artist, Duration(t.DurationMs)))
	}

	if len(queue) > pageSize {
		lines = append(lines, "", fmt.Sprintf("_%d %s total_", len(queue), plural(len(queue), "track")))
	}

	return strings.Join(lines, "\n")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
