package library

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

// Kind names a concrete metadata backend.
type Kind string

const (
	KindLastFM      Kind = "lastfm"
	KindMusicBrainz Kind = "musicbrainz"
)

// Backend is one metadata service. Lookups return [shared.ErrNotFound] when the service answered with nothing,
// [shared.ErrUnsupported] for lookups it cannot perform, and any other error for transport or parse failures.
//
// Every request a backend sends waits on its [Pacer] first.
type Backend interface {
	Kind() Kind
	Pacer() *Pacer
	// Normalize applies the backend's case and spacing rules to a query before it is used as a cache key.
	Normalize(q Query) Query
	LookupSong(ctx context.Context, q Query) (*models.Song, error)
	LookupAlbum(ctx context.Context, q Query) (*models.Album, error)
	LookupArtist(ctx context.Context, q Query) (*models.Artist, error)
}

// CatalogBackend is implemented by backends that can list an artist's albums.
type CatalogBackend interface {
	Backend
	LookupArtistCatalog(ctx context.Context, q Query) ([]*models.Album, error)
}

// FallbackBackend is implemented by backends that retry a not-found query once in a relaxed form.
type FallbackBackend interface {
	Fallback(q Query) (Query, bool)
}

// Options configures a backend constructor.
type Options struct {
	APIKey     string
	UserAgent  string
	BaseURL    string
	HTTPClient *http.Client
	// Interval overrides the backend's default pacing interval when positive.
	Interval time.Duration
}

var (
	_ CatalogBackend  = (*LastFM)(nil)
	_ FallbackBackend = (*MusicBrainz)(nil)
)

type constructor func(Options) (Backend, error)

var constructors = map[Kind]constructor{
	KindLastFM:      func(o Options) (Backend, error) { return NewLastFM(o) },
	KindMusicBrainz: func(o Options) (Backend, error) { return NewMusicBrainz(o) },
}

// Kinds lists the available backend kinds in name order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(constructors))
	for k := range constructors {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ParseKind maps a configured backend name to its [Kind].
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := constructors[k]; !ok {
		return "", fmt.Errorf("%w: unknown library backend %q", shared.ErrInvalidConfig, name)
	}
	return k, nil
}

// New constructs the backend registered for kind.
func New(kind Kind, opts Options) (Backend, error) {
	ctor, ok := constructors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown library backend %q", shared.ErrInvalidConfig, kind)
	}
	return ctor(opts)
}

// FromConfig builds the backend selected by the [library] config section. A nil client uses the default.
func FromConfig(cfg *shared.Config, client *http.Client) (Backend, error) {
	kind, err := ParseKind(cfg.Library.Backend)
	if err != nil {
		return nil, err
	}
	return New(kind, Options{
		APIKey:     cfg.Credentials.LastFM.APIKey,
		UserAgent:  cfg.Library.UserAgent,
		HTTPClient: client,
	})
}
