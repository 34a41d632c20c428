package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jukebot/jukebot/internal/music/playback"
)

const (
	channels   = 2
	sampleRate = 48000
	frameSize  = 960 // 20ms at 48kHz
)

// Opener resolves a track's locator into a 48kHz stereo s16le PCM stream.
// Each candidate streamer is tried in order until one produces a readable
// stream; the accumulated errors are returned when all of them fail.
type Opener struct {
	yt        *ytClient
	ytdlpPath string
	log       zerolog.Logger
}

type OpenerConfig struct {
	YTDLPPath string // yt-dlp binary, defaults to "yt-dlp" on PATH
	ProxyURL  string // optional http(s)/socks5/socks4 proxy for YouTube
	Logger    zerolog.Logger
}

func NewOpener(cfg OpenerConfig) *Opener {
	path := cfg.YTDLPPath
	if path == "" {
		path = "yt-dlp"
	}
	return &Opener{
		yt:        newYTClient(cfg.ProxyURL, cfg.Logger),
		ytdlpPath: path,
		log:       cfg.Logger,
	}
}

// Open picks streamers for the track and returns the first PCM stream that
// opens, together with a cleanup func that must run when streaming ends.
func (o *Opener) Open(ctx context.Context, track playback.Track) (io.ReadCloser, func(), error) {
	var errs []error

	for _, c := range o.candidates(track) {
		rc, cleanup, err := c.open(ctx)
		if err == nil {
			o.log.Debug().
				Str("streamer", c.name).
				Str("track", track.Title).
				Msg("stream opened")
			return rc, cleanup, nil
		}
		o.log.Warn().
			Err(err).
			Str("streamer", c.name).
			Str("track", track.Title).
			Msg("streamer failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
	}

	return nil, nil, fmt.Errorf("all streamers failed for %q: %w", track.Title, errors.Join(errs...))
}

type candidate struct {
	name string
	open func(ctx context.Context) (io.ReadCloser, func(), error)
}

func (o *Opener) candidates(track playback.Track) []candidate {
	switch {
	case isYouTubeURL(track.URL):
		return []candidate{
			{"kkdai-link", func(ctx context.Context) (io.ReadCloser, func(), error) {
				return o.yt.openLink(ctx, track.URL)
			}},
			{"ytdlp-link", func(ctx context.Context) (io.ReadCloser, func(), error) {
				return o.ytdlpLink(ctx, track.URL)
			}},
		}
	case track.URL != "":
		// Direct media URL: signed soundboard links, radio streams.
		return []candidate{
			{"ffmpeg-link", func(ctx context.Context) (io.ReadCloser, func(), error) {
				return ffmpegLink(ctx, track.URL)
			}},
		}
	default:
		// Metadata-only track: search YouTube through yt-dlp.
		return []candidate{
			{"ytdlp-search", func(ctx context.Context) (io.ReadCloser, func(), error) {
				return o.ytdlpLink(ctx, "ytsearch1:"+track.Query)
			}},
		}
	}
}

func isYouTubeURL(url string) bool {
	return strings.Contains(url, "youtube.com/") || strings.Contains(url, "youtu.be/")
}
