// Package providers resolves user input (URLs, URIs, search text) into
// playable track descriptors through the registered media providers.
package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jukebot/jukebot/internal/music/playback"
)

// Kind classifies what a resolve call produced.
type Kind string

const (
	KindTrack    Kind = "track"
	KindAlbum    Kind = "album"
	KindPlaylist Kind = "playlist"
	KindSearch   Kind = "search"
)

// ErrNoResults is returned when a provider resolved the input but found
// nothing playable.
var ErrNoResults = errors.New("no results found")

// Provider turns one service's URLs and search queries into tracks.
type Provider interface {
	// Name is the unique lower-case provider name, e.g. "spotify".
	Name() string

	// Match reports whether the input URL/URI belongs to this provider.
	Match(input string) bool

	// Resolve turns any accepted input into one or more tracks.
	Resolve(ctx context.Context, input string) ([]playback.Track, Kind, error)
}

// DefaultProvider handles plain-text queries that match no URL pattern.
const DefaultProvider = "spotify"

// Registry holds the known providers and routes input to the right one.
type Registry struct {
	providers map[string]Provider
	order     []string
}

func NewRegistry(list ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range list {
		r.providers[p.Name()] = p
		r.order = append(r.order, p.Name())
	}
	return r
}

// Detect returns the provider name for the input based on URL patterns,
// falling back to the default provider for plain-text queries.
func (r *Registry) Detect(input string) string {
	for _, name := range r.order {
		if r.providers[name].Match(input) {
			return name
		}
	}
	return DefaultProvider
}

// Resolve routes the input to the forced provider, or to the detected one
// when forced is empty.
func (r *Registry) Resolve(ctx context.Context, input, forced string) ([]playback.Track, Kind, string, error) {
	name := forced
	if name == "" {
		name = r.Detect(input)
	}

	p, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, "", "", fmt.Errorf("provider %q is not supported, available: %s",
			name, strings.Join(r.Available(), ", "))
	}

	tracks, kind, err := p.Resolve(ctx, input)
	if err != nil {
		return nil, "", name, err
	}
	if len(tracks) == 0 {
		return nil, kind, name, ErrNoResults
	}
	return tracks, kind, p.Name(), nil
}

// Available lists registered provider names, sorted.
func (r *Registry) Available() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
