package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jukebot/jukebot/internal/music/providers"
)

func TestMatch(t *testing.T) {
	p := New("id", "secret")

	assert.True(t, p.Match("https://open.spotify.com/track/3n3Ppam7vgaVa1iaRUc9Lp"))
	assert.True(t, p.Match("https://open.spotify.com/album/1ATL5GLyefJaxhQzSPVrLX?si=xyz"))
	assert.True(t, p.Match("https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"))
	assert.True(t, p.Match("spotify:track:3n3Ppam7vgaVa1iaRUc9Lp"))

	assert.False(t, p.Match("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.False(t, p.Match("plain search text"))
}

func TestParseInput(t *testing.T) {
	kind, id, ok := parseInput("https://open.spotify.com/track/abc123?si=share")
	require.True(t, ok)
	assert.Equal(t, "track", kind)
	assert.Equal(t, "abc123", id)

	kind, id, ok = parseInput("spotify:playlist:xyz789")
	require.True(t, ok)
	assert.Equal(t, "playlist", kind)
	assert.Equal(t, "xyz789", id)

	_, _, ok = parseInput("just a song name")
	assert.False(t, ok)
}

// newTestProvider points a Provider at stub accounts and API servers.
func newTestProvider(t *testing.T, api http.HandlerFunc) *Provider {
	t.Helper()

	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/token", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		fmt.Fprint(w, `{"access_token":"test-token","expires_in":3600}`)
	}))
	t.Cleanup(accounts.Close)

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		api(w, r)
	}))
	t.Cleanup(apiSrv.Close)

	p := New("id", "secret")
	p.accountsURL = accounts.URL
	p.apiURL = apiSrv.URL
	return p
}

func TestResolveTrack(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/tracks/abc123", r.URL.Path)
		fmt.Fprint(w, `{
			"name": "Mr. Brightside",
			"duration_ms": 222200,
			"artists": [{"name": "The Killers"}],
			"album": {"name": "Hot Fuss"}
		}`)
	})

	tracks, kind, err := p.Resolve(context.Background(), "https://open.spotify.com/track/abc123")
	require.NoError(t, err)
	assert.Equal(t, providers.KindTrack, kind)
	require.Len(t, tracks, 1)

	tr := tracks[0]
	assert.Equal(t, Name, tr.Provider)
	assert.Equal(t, "Mr. Brightside", tr.Title)
	assert.Equal(t, "The Killers", tr.Artist)
	assert.Equal(t, "Hot Fuss", tr.Album)
	assert.Equal(t, 222200, tr.DurationMs)
	assert.Equal(t, "Mr. Brightside The Killers", tr.Query)
	assert.Empty(t, tr.URL, "spotify tracks are located by search query")
}

func TestResolvePlaylist(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/playlists/pl1/tracks", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"items": [
			{"track": {"name": "One", "artists": [{"name": "A"}], "album": {"name": "X"}}},
			{"track": null},
			{"track": {"name": "Two", "artists": [{"name": "B"}], "album": {"name": "Y"}}}
		]}`)
	})

	tracks, kind, err := p.Resolve(context.Background(), "spotify:playlist:pl1")
	require.NoError(t, err)
	assert.Equal(t, providers.KindPlaylist, kind)
	require.Len(t, tracks, 2, "unavailable playlist entries are dropped")
	assert.Equal(t, "One", tracks[0].Title)
	assert.Equal(t, "Two", tracks[1].Title)
}

func TestResolveAlbum(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/albums/al1", r.URL.Path)
		fmt.Fprint(w, `{
			"name": "Hot Fuss",
			"tracks": {"items": [
				{"name": "Jenny", "artists": [{"name": "The Killers"}]},
				{"name": "Mr. Brightside", "artists": [{"name": "The Killers"}]}
			]}
		}`)
	})

	tracks, kind, err := p.Resolve(context.Background(), "https://open.spotify.com/album/al1")
	require.NoError(t, err)
	assert.Equal(t, providers.KindAlbum, kind)
	require.Len(t, tracks, 2)
	// Album simplified-track payloads carry no album object of their own.
	assert.Equal(t, "Hot Fuss", tracks[0].Album)
	assert.Equal(t, "Hot Fuss", tracks[1].Album)
}

func TestResolveSearch(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "mr brightside", r.URL.Query().Get("q"))
		assert.Equal(t, "track", r.URL.Query().Get("type"))
		fmt.Fprint(w, `{"tracks": {"items": [
			{"name": "Mr. Brightside", "artists": [{"name": "The Killers"}], "album": {"name": "Hot Fuss"}}
		]}}`)
	})

	tracks, kind, err := p.Resolve(context.Background(), "mr brightside")
	require.NoError(t, err)
	assert.Equal(t, providers.KindSearch, kind)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Mr. Brightside", tracks[0].Title)
}

func TestResolveSearchNoResults(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tracks": {"items": []}}`)
	})

	_, _, err := p.Resolve(context.Background(), "zzzzzz nothing")
	assert.ErrorIs(t, err, providers.ErrNoResults)
}

func TestAPIErrorSurfacesBody(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": {"status": 404, "message": "non existing id"}}`)
	})

	_, _, err := p.Resolve(context.Background(), "spotify:track:missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "non existing id")
}

func TestTokenIsCached(t *testing.T) {
	tokenCalls := 0
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		fmt.Fprint(w, `{"access_token":"tok","expires_in":3600}`)
	}))
	t.Cleanup(accounts.Close)

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name": "T", "artists": [{"name": "A"}], "album": {"name": "X"}}`)
	}))
	t.Cleanup(apiSrv.Close)

	p := New("id", "secret")
	p.accountsURL = accounts.URL
	p.apiURL = apiSrv.URL

	for i := 0; i < 3; i++ {
		_, err := p.getTrack(context.Background(), "abc")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, tokenCalls)
}

func TestUnknownArtistAndAlbumFallbacks(t *testing.T) {
	p := New("id", "secret")
	tr := p.formatTrack(apiTrack{Name: "Untitled"}, "")
	assert.Equal(t, "Unknown Artist", tr.Artist)
	assert.Equal(t, "Unknown Album", tr.Album)
	assert.Equal(t, "Untitled Unknown Artist", tr.Query)
}
