package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "github.com/bdandy/go-socks4" // registers the socks4 scheme with x/net/proxy
	youtube "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/proxy"
)

// ytClient wraps kkdai's YouTube client with optional proxy support.
type ytClient struct {
	client *youtube.Client
	log    zerolog.Logger
}

func newYTClient(proxyStr string, log zerolog.Logger) *ytClient {
	httpClient := &http.Client{Timeout: 15 * time.Second}

	if transport := proxyTransport(proxyStr, log); transport != nil {
		httpClient.Transport = transport
	}

	return &ytClient{
		client: &youtube.Client{HTTPClient: httpClient},
		log:    log,
	}
}

func proxyTransport(proxyStr string, log zerolog.Logger) *http.Transport {
	if proxyStr == "" {
		return nil
	}

	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		log.Warn().Err(err).Msg("invalid proxy URL, going direct")
		return nil
	}

	switch proxyURL.Scheme {
	case "http", "https":
		log.Info().Str("proxy", proxyStr).Msg("using HTTP proxy for youtube")
		return &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	case "socks5":
		auth := &proxy.Auth{}
		if proxyURL.User != nil {
			auth.User = proxyURL.User.Username()
			if pass, ok := proxyURL.User.Password(); ok {
				auth.Password = pass
			}
		}
		dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 10 * time.Second,
		})
		if err != nil {
			log.Warn().Err(err).Msg("socks5 dialer error, going direct")
			return nil
		}
		log.Info().Str("proxy", proxyStr).Msg("using SOCKS5 proxy for youtube")
		return &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}
	case "socks4":
		dialer, err := proxy.FromURL(proxyURL, &net.Dialer{Timeout: 10 * time.Second})
		if err != nil {
			log.Warn().Err(err).Msg("socks4 dialer error, going direct")
			return nil
		}
		log.Info().Str("proxy", proxyStr).Msg("using SOCKS4 proxy for youtube")
		return &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}
	default:
		log.Warn().Str("scheme", proxyURL.Scheme).Msg("unsupported proxy scheme, going direct")
		return nil
	}
}

// openLink resolves the video's bestaudio format URL through the YouTube API
// client and decodes it with ffmpeg.
func (c *ytClient) openLink(ctx context.Context, watchURL string) (io.ReadCloser, func(), error) {
	videoID, err := ExtractVideoID(watchURL)
	if err != nil {
		return nil, nil, err
	}

	video, err := c.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, nil, fmt.Errorf("youtube client error: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, nil, errors.New("no audio formats found for video")
	}

	link, err := c.client.GetStreamURLContext(ctx, video, &formats[0])
	if err != nil {
		return nil, nil, fmt.Errorf("get stream URL error: %w", err)
	}

	return ffmpegLink(ctx, link)
}

// ExtractVideoID pulls the 11-character video ID out of watch, shorts and
// youtu.be URLs, or returns the input unchanged when it already looks like
// an ID.
func ExtractVideoID(input string) (string, error) {
	if !strings.Contains(input, "/") && !strings.Contains(input, ".") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid youtube URL %q: %w", input, err)
	}

	if strings.Contains(u.Host, "youtu.be") {
		return strings.Trim(u.Path, "/"), nil
	}
	if id := u.Query().Get("v"); id != "" {
		return id, nil
	}
	if rest, ok := strings.CutPrefix(u.Path, "/shorts/"); ok {
		id, _, _ := strings.Cut(rest, "/")
		return id, nil
	}

	return "", fmt.Errorf("no video ID in %q", input)
}
