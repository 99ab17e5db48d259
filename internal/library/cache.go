package library

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

// Cache file names under a backend's cache directory.
const (
	ArtistsFile = "artists.json"
	AlbumsFile  = "albums.json"
	SongsFile   = "songs.json"
	IDsFile     = "ids.json"
)

// idIndex is the cheap tier: query key to backend entity id. An empty id records a known miss.
type idIndex struct {
	Queries  map[string]string   `json:"queries"`
	Catalogs map[string][]string `json:"catalogs"`
}

// Cache is an append-only, two tier lookup table for one backend. The id tier maps a [Query] to the
// entity id it resolved to; the entity tier maps ids to full entities per kind.
//
// Flush is a whole-file read-modify-write and must not run concurrently with another process's flush
// of the same directory.
type Cache struct {
	mu      sync.RWMutex
	ids     idIndex
	artists map[string]*models.Artist
	albums  map[string]*models.Album
	songs   map[string]*models.Song
	dirty   bool
}

// NewCache creates an empty [Cache].
func NewCache() *Cache {
	return &Cache{
		ids:     idIndex{Queries: map[string]string{}, Catalogs: map[string][]string{}},
		artists: map[string]*models.Artist{},
		albums:  map[string]*models.Album{},
		songs:   map[string]*models.Song{},
	}
}

// lookupID returns the id stored for q and whether q has been answered before.
func (c *Cache) lookupID(q Query) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids.Queries[q.String()]
	return id, ok
}

func (c *Cache) storeID(q Query, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := q.String()
	if _, ok := c.ids.Queries[key]; ok {
		return
	}
	c.ids.Queries[key] = id
	c.dirty = true
}

func (c *Cache) song(id string) (*models.Song, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.songs[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (c *Cache) storeSong(id string, s *models.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.songs[id]; !ok {
		c.songs[id] = s.Clone()
		c.dirty = true
	}
}

func (c *Cache) album(id string) (*models.Album, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.albums[id]
	if !ok {
		return nil, false
	}
	return cloneAlbum(a), true
}

func (c *Cache) storeAlbum(id string, a *models.Album) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.albums[id]; !ok {
		c.albums[id] = cloneAlbum(a)
		c.dirty = true
	}
}

func (c *Cache) artist(id string) (*models.Artist, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.artists[id]
	if !ok {
		return nil, false
	}
	cp := *a
	cp.IDs = a.IDs.Clone()
	return &cp, true
}

func (c *Cache) storeArtist(id string, a *models.Artist) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.artists[id]; !ok {
		cp := *a
		cp.IDs = a.IDs.Clone()
		c.artists[id] = &cp
		c.dirty = true
	}
}

func (c *Cache) catalog(q Query) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids, ok := c.ids.Catalogs[q.String()]
	return ids, ok
}

func (c *Cache) storeCatalog(q Query, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := q.String()
	if _, ok := c.ids.Catalogs[key]; !ok {
		c.ids.Catalogs[key] = append([]string(nil), ids...)
		c.dirty = true
	}
}

// Len returns the number of answered queries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids.Queries) + len(c.ids.Catalogs)
}

// Load merges the snapshot files in dir into memory. Entries already in memory win. Missing files are not an error.
func (c *Cache) Load(dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readInto(dir)
}

// Flush writes every kind's map to dir: each file is re-read, merged with the in-memory additions and rewritten whole.
func (c *Cache) Flush(dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.readInto(dir); err != nil {
		return err
	}

	files := map[string]any{
		ArtistsFile: c.artists,
		AlbumsFile:  c.albums,
		SongsFile:   c.songs,
		IDsFile:     c.ids,
	}
	for name, v := range files {
		if err := shared.WriteJSONFile(filepath.Join(dir, name), v); err != nil {
			return fmt.Errorf("failed to flush cache: %w", err)
		}
	}
	c.dirty = false
	return nil
}

// Dirty reports whether entries were added since the last flush.
func (c *Cache) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

func (c *Cache) readInto(dir string) error {
	var (
		artists map[string]*models.Artist
		albums  map[string]*models.Album
		songs   map[string]*models.Song
		ids     idIndex
	)

	for name, v := range map[string]any{ArtistsFile: &artists, AlbumsFile: &albums, SongsFile: &songs, IDsFile: &ids} {
		if _, err := shared.ReadJSONFile(filepath.Join(dir, name), v); err != nil {
			return fmt.Errorf("failed to load cache: %w", err)
		}
	}

	mergeMissing(c.artists, artists)
	mergeMissing(c.albums, albums)
	mergeMissing(c.songs, songs)
	mergeMissing(c.ids.Queries, ids.Queries)
	mergeMissing(c.ids.Catalogs, ids.Catalogs)
	return nil
}

func mergeMissing[V any](dst, src map[string]V) {
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
}

func cloneAlbum(a *models.Album) *models.Album {
	cp := *a
	cp.IDs = a.IDs.Clone()
	cp.Artists = append([]models.Artist(nil), a.Artists...)
	cp.Songs = make([]*models.Song, len(a.Songs))
	for i, s := range a.Songs {
		cp.Songs[i] = s.Clone()
	}
	cp.Cursors = nil
	return &cp
}
