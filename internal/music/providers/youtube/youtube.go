// Package youtube resolves YouTube watch, shorts and playlist URLs into
// tracks carrying a direct watch URL, so the stream layer never needs to
// search.
package youtube

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	kkdai "github.com/kkdai/youtube/v2"

	"github.com/jukebot/jukebot/internal/music/playback"
	"github.com/jukebot/jukebot/internal/music/providers"
	"github.com/jukebot/jukebot/internal/music/stream"
)

const Name = "youtube"

var patterns = []*regexp.Regexp{
	regexp.MustCompile(`youtu\.be/`),
	regexp.MustCompile(`youtube\.com/(watch|playlist|shorts)`),
}

var playlistPattern = regexp.MustCompile(`[?&]list=`)

type Provider struct {
	client *kkdai.Client
}

func New() *Provider {
	return &Provider{
		client: &kkdai.Client{
			HTTPClient: &http.Client{Timeout: 15 * time.Second},
		},
	}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Match(input string) bool {
	for _, re := range patterns {
		if re.MatchString(input) {
			return true
		}
	}
	return false
}

func (p *Provider) Resolve(ctx context.Context, input string) ([]playback.Track, providers.Kind, error) {
	if playlistPattern.MatchString(input) {
		return p.resolvePlaylist(ctx, input)
	}
	return p.resolveVideo(ctx, input)
}

func (p *Provider) resolveVideo(ctx context.Context, input string) ([]playback.Track, providers.Kind, error) {
	id, err := stream.ExtractVideoID(input)
	if err != nil {
		return nil, providers.KindTrack, err
	}
	video, err := p.client.GetVideoContext(ctx, id)
	if err != nil {
		return nil, providers.KindTrack, fmt.Errorf("youtube video lookup failed: %w", err)
	}
	return []playback.Track{videoTrack(video.ID, video.Title, video.Author, video.Duration)}, providers.KindTrack, nil
}

func (p *Provider) resolvePlaylist(ctx context.Context, input string) ([]playback.Track, providers.Kind, error) {
	playlist, err := p.client.GetPlaylistContext(ctx, input)
	if err != nil {
		return nil, providers.KindPlaylist, fmt.Errorf("youtube playlist lookup failed: %w", err)
	}
	tracks := make([]playback.Track, 0, len(playlist.Videos))
	for _, entry := range playlist.Videos {
		if entry == nil || entry.ID == "" {
			continue
		}
		tracks = append(tracks, videoTrack(entry.ID, entry.Title, entry.Author, entry.Duration))
	}
	return tracks, providers.KindPlaylist, nil
}

func videoTrack(id, title, author string, duration time.Duration) playback.Track {
	if title == "" {
		title = "Unknown Title"
	}
	if author == "" {
		author = "Unknown Artist"
	}
	return playback.Track{
		Provider:   Name,
		Title:      title,
		Artist:     author,
		Album:      "YouTube",
		DurationMs: int(duration / time.Millisecond),
		URL:        "https://www.youtube.com/watch?v=" + id,
		Query:      title,
	}
}
