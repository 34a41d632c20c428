// Package spotify resolves Spotify URLs, URIs and search queries into track
// metadata through the Web API with client-credentials auth. Spotify has no
// streamable audio, so tracks come back with a search query locator the
// stream layer resolves against YouTube.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jukebot/jukebot/internal/music/playback"
	"github.com/jukebot/jukebot/internal/music/providers"
)

const Name = "spotify"

const playlistPageLimit = 50

var (
	urlPattern = regexp.MustCompile(`open\.spotify\.com/(track|album|playlist)/([a-zA-Z0-9]+)`)
	uriPattern = regexp.MustCompile(`^spotify:(track|album|playlist):([a-zA-Z0-9]+)$`)
)

type Provider struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client

	// accountsURL and apiURL are overridable in tests.
	accountsURL string
	apiURL      string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func New(clientID, clientSecret string) *Provider {
	return &Provider{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		accountsURL:  "https://accounts.spotify.com",
		apiURL:       "https://api.spotify.com",
	}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Match(input string) bool {
	return urlPattern.MatchString(input) || uriPattern.MatchString(input)
}

func (p *Provider) Resolve(ctx context.Context, input string) ([]playback.Track, providers.Kind, error) {
	if kind, id, ok := parseInput(input); ok {
		switch kind {
		case "track":
			track, err := p.getTrack(ctx, id)
			if err != nil {
				return nil, providers.KindTrack, err
			}
			return []playback.Track{track}, providers.KindTrack, nil
		case "playlist":
			tracks, err := p.getPlaylistTracks(ctx, id)
			return tracks, providers.KindPlaylist, err
		case "album":
			tracks, err := p.getAlbumTracks(ctx, id)
			return tracks, providers.KindAlbum, err
		}
	}

	track, err := p.searchTrack(ctx, input)
	if err != nil {
		return nil, providers.KindSearch, err
	}
	return []playback.Track{track}, providers.KindSearch, nil
}

// parseInput extracts the resource kind and ID from an open.spotify.com URL
// or a spotify: URI.
func parseInput(input string) (kind, id string, ok bool) {
	if m := uriPattern.FindStringSubmatch(input); m != nil {
		return m[1], m[2], true
	}
	if m := urlPattern.FindStringSubmatch(input); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

// --- Web API payloads ---

type apiTrack struct {
	Name       string `json:"name"`
	DurationMs int    `json:"duration_ms"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name string `json:"name"`
	} `json:"album"`
}

func (p *Provider) formatTrack(t apiTrack, albumOverride string) playback.Track {
	artist := "Unknown Artist"
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}
	album := albumOverride
	if album == "" {
		album = t.Album.Name
	}
	if album == "" {
		album = "Unknown Album"
	}
	return playback.Track{
		Provider:   Name,
		Title:      t.Name,
		Artist:     artist,
		Album:      album,
		DurationMs: t.DurationMs,
		Query:      t.Name + " " + artist,
	}
}

func (p *Provider) getTrack(ctx context.Context, id string) (playback.Track, error) {
	var t apiTrack
	if err := p.apiGet(ctx, "/v1/tracks/"+id, &t); err != nil {
		return playback.Track{}, err
	}
	return p.formatTrack(t, ""), nil
}

func (p *Provider) getPlaylistTracks(ctx context.Context, id string) ([]playback.Track, error) {
	var resp struct {
		Items []struct {
			Track *apiTrack `json:"track"`
		} `json:"items"`
	}
	path := fmt.Sprintf("/v1/playlists/%s/tracks?fields=%s&limit=%d",
		id,
		url.QueryEscape("items(track(name,artists,duration_ms,album(name)))"),
		playlistPageLimit,
	)
	if err := p.apiGet(ctx, path, &resp); err != nil {
		return nil, err
	}
	var tracks []playback.Track
	for _, item := range resp.Items {
		if item.Track == nil {
			continue
		}
		tracks = append(tracks, p.formatTrack(*item.Track, ""))
	}
	return tracks, nil
}

func (p *Provider) getAlbumTracks(ctx context.Context, id string) ([]playback.Track, error) {
	var resp struct {
		Name   string `json:"name"`
		Tracks struct {
			Items []apiTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := p.apiGet(ctx, "/v1/albums/"+id, &resp); err != nil {
		return nil, err
	}
	tracks := make([]playback.Track, 0, len(resp.Tracks.Items))
	for _, t := range resp.Tracks.Items {
		tracks = append(tracks, p.formatTrack(t, resp.Name))
	}
	return tracks, nil
}

func (p *Provider) searchTrack(ctx context.Context, query string) (playback.Track, error) {
	var resp struct {
		Tracks struct {
			Items []apiTrack `json:"items"`
		} `json:"tracks"`
	}
	path := "/v1/search?q=" + url.QueryEscape(query) + "&type=track&limit=1"
	if err := p.apiGet(ctx, path, &resp); err != nil {
		return playback.Track{}, err
	}
	if len(resp.Tracks.Items) == 0 {
		return playback.Track{}, providers.ErrNoResults
	}
	return p.formatTrack(resp.Tracks.Items[0], ""), nil
}

func (p *Provider) apiGet(ctx context.Context, path string, out any) error {
	token, err := p.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spotify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("spotify API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// token returns the cached client-credentials token, refreshing it shortly
// before expiry.
func (p *Provider) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && time.Now().Before(p.tokenExpiry) {
		return p.accessToken, nil
	}

	body := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.accountsURL+"/api/token", body)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("spotify token request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse spotify token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("spotify token response missing access_token (status %d)", resp.StatusCode)
	}

	p.accessToken = parsed.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(parsed.ExpiresIn-60) * time.Second)
	return p.accessToken, nil
}
