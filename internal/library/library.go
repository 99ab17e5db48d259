package library

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

// Library resolves partial entities through one backend, answering repeated queries from its cache.
// Construct one per process and pass it to whatever needs resolution.
type Library struct {
	backend Backend
	cache   *Cache
	logger  *log.Logger
}

// NewLibrary wraps backend with cache. A nil cache starts empty and a nil logger discards.
func NewLibrary(backend Backend, cache *Cache, logger *log.Logger) *Library {
	if cache == nil {
		cache = NewCache()
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Library{
		backend: backend,
		cache:   cache,
		logger:  logger.With("backend", backend.Kind()),
	}
}

// Backend returns the wrapped backend.
func (l *Library) Backend() Backend { return l.backend }

// Cache returns the lookup cache.
func (l *Library) Cache() *Cache { return l.cache }

// CacheDir is the directory this library's backend snapshots live in under root.
func (l *Library) CacheDir(root string) string {
	return filepath.Join(root, string(l.backend.Kind()))
}

// Load reads the backend's cache snapshot from under root.
func (l *Library) Load(root string) error {
	return l.cache.Load(l.CacheDir(root))
}

// Flush writes the backend's cache snapshot under root when anything was added.
func (l *Library) Flush(root string) error {
	if !l.cache.Dirty() {
		return nil
	}
	return l.cache.Flush(l.CacheDir(root))
}

// tier adapts one entity kind of the cache to the generic resolve loop.
type tier[T any] struct {
	lookup  func(context.Context, Query) (T, error)
	get     func(id string) (T, bool)
	put     func(id string, v T)
	id      func(v T) string
	partial func(q Query, id string) T
}

// ResolveSong canonicalizes a song from its name and main artist.
func (l *Library) ResolveSong(ctx context.Context, partial *models.Song) (Result[*models.Song], error) {
	q := NewQuery(EntitySong, FieldName, partial.Name, FieldArtist, partial.MainArtist())
	return resolve(ctx, l, q, tier[*models.Song]{
		lookup: l.backend.LookupSong,
		get:    l.cache.song,
		put:    l.cache.storeSong,
		id:     func(s *models.Song) string { return l.entityID(s.IDs) },
		partial: func(q Query, id string) *models.Song {
			s := models.NewSong(q.Get(FieldName), q.Get(FieldArtist))
			s.IDs.Set(l.idKey(), id)
			return s
		},
	})
}

// ResolveAlbum canonicalizes an album from its name and main artist.
func (l *Library) ResolveAlbum(ctx context.Context, partial *models.Album) (Result[*models.Album], error) {
	q := NewQuery(EntityAlbum, FieldName, partial.Name, FieldArtist, partial.MainArtist())
	return resolve(ctx, l, q, tier[*models.Album]{
		lookup: l.backend.LookupAlbum,
		get:    l.cache.album,
		put:    l.cache.storeAlbum,
		id:     func(a *models.Album) string { return l.entityID(a.IDs) },
		partial: func(q Query, id string) *models.Album {
			a := models.NewAlbum(q.Get(FieldName), q.Get(FieldArtist))
			a.IDs.Set(l.idKey(), id)
			return a
		},
	})
}

// ResolveArtist canonicalizes an artist from its name.
func (l *Library) ResolveArtist(ctx context.Context, partial *models.Artist) (Result[*models.Artist], error) {
	q := NewQuery(EntityArtist, FieldName, partial.Name)
	return resolve(ctx, l, q, tier[*models.Artist]{
		lookup: l.backend.LookupArtist,
		get:    l.cache.artist,
		put:    l.cache.storeArtist,
		id:     func(a *models.Artist) string { return l.entityID(a.IDs) },
		partial: func(q Query, id string) *models.Artist {
			a := models.NewArtist(q.Get(FieldName))
			a.IDs.Set(l.idKey(), id)
			return a
		},
	})
}

// ResolveArtistCatalog lists an artist's albums. Backends without catalogs yield [MissUnsupported] without a request.
func (l *Library) ResolveArtistCatalog(ctx context.Context, artist *models.Artist) (Result[[]*models.Album], error) {
	cb, ok := l.backend.(CatalogBackend)
	if !ok {
		return miss[[]*models.Album](MissUnsupported, false), nil
	}

	q := l.backend.Normalize(NewQuery(EntityCatalog, FieldArtist, artist.Name))
	if ids, ok := l.cache.catalog(q); ok {
		if len(ids) == 0 {
			return miss[[]*models.Album](MissNotFound, true), nil
		}
		albums := make([]*models.Album, 0, len(ids))
		for _, id := range ids {
			if a, ok := l.cache.album(id); ok {
				albums = append(albums, a)
			}
		}
		return hit(albums, true), nil
	}

	albums, err := cb.LookupArtistCatalog(ctx, q)
	if err != nil {
		reason, cerr := l.classify(ctx, q, err)
		if reason == MissNotFound {
			l.cache.storeCatalog(q, nil)
		}
		return miss[[]*models.Album](reason, false), cerr
	}

	ids := make([]string, 0, len(albums))
	for _, a := range albums {
		id := l.entityID(a.IDs)
		if id == "" {
			id = NewQuery(EntityAlbum, FieldName, a.Name, FieldArtist, a.MainArtist()).String()
		}
		l.cache.storeAlbum(id, a)
		ids = append(ids, id)
	}
	l.cache.storeCatalog(q, ids)
	return hit(albums, false), nil
}

func resolve[T any](ctx context.Context, l *Library, q Query, t tier[T]) (Result[T], error) {
	q = l.backend.Normalize(q)
	if res, ok := fromCache(l, q, t); ok {
		return res, nil
	}

	v, err := t.lookup(ctx, q)
	if err == nil {
		store(l, q, v, t)
		return hit(v, false), nil
	}

	reason, cerr := l.classify(ctx, q, err)
	if reason != MissNotFound {
		return miss[T](reason, false), cerr
	}

	fb, ok := l.backend.(FallbackBackend)
	if !ok {
		l.cache.storeID(q, "")
		return miss[T](MissNotFound, false), nil
	}
	relaxed, ok := fb.Fallback(q)
	if !ok || relaxed.Equal(q) {
		l.cache.storeID(q, "")
		return miss[T](MissNotFound, false), nil
	}

	relaxed = l.backend.Normalize(relaxed)
	if res, ok := fromCache(l, relaxed, t); ok {
		l.cache.storeID(q, l.idFor(relaxed))
		return res, nil
	}

	l.logger.Debug("retrying with relaxed query", "query", q.String(), "relaxed", relaxed.String())
	v, err = t.lookup(ctx, relaxed)
	if err == nil {
		id := store(l, relaxed, v, t)
		l.cache.storeID(q, id)
		return hit(v, false), nil
	}

	reason, cerr = l.classify(ctx, relaxed, err)
	if reason == MissNotFound {
		l.cache.storeID(relaxed, "")
		l.cache.storeID(q, "")
	}
	return miss[T](reason, false), cerr
}

func fromCache[T any](l *Library, q Query, t tier[T]) (Result[T], bool) {
	id, ok := l.cache.lookupID(q)
	if !ok {
		return Result[T]{}, false
	}
	if id == "" {
		return miss[T](MissNotFound, true), true
	}
	if v, ok := t.get(id); ok {
		return hit(v, true), true
	}
	return hit(t.partial(q, id), true), true
}

// store caches v under its backend id, or under the query itself when the backend gave none.
func store[T any](l *Library, q Query, v T, t tier[T]) string {
	id := t.id(v)
	if id == "" {
		id = q.String()
	}
	t.put(id, v)
	l.cache.storeID(q, id)
	return id
}

func (l *Library) idFor(q Query) string {
	id, _ := l.cache.lookupID(q)
	return id
}

// classify maps a lookup error to a miss reason. Cancellation is returned as an error, never as a miss.
func (l *Library) classify(ctx context.Context, q Query, err error) (MissReason, error) {
	switch {
	case ctx.Err() != nil:
		return MissTransient, fmt.Errorf("%w: %v", shared.ErrCancelled, ctx.Err())
	case errors.Is(err, shared.ErrNotFound):
		return MissNotFound, nil
	case errors.Is(err, shared.ErrUnsupported):
		return MissUnsupported, nil
	default:
		l.logger.Warn("lookup failed", "query", q.String(), "err", err)
		return MissTransient, nil
	}
}

func (l *Library) idKey() string {
	if key, ok := idKeys[l.backend.Kind()]; ok {
		return key
	}
	return models.ProviderMBID
}

// entityID picks the id the cache files an entity under: the backend's own key, then mbid.
func (l *Library) entityID(ids models.ProviderIDs) string {
	if id := ids.Get(l.idKey()); id != "" {
		return id
	}
	return ids.Get(models.ProviderMBID)
}

var idKeys = map[Kind]string{
	KindLastFM:      models.ProviderLastFM,
	KindMusicBrainz: models.ProviderMBID,
}
