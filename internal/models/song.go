package models

import (
	"strings"
	"time"

	"github.com/desertthunder/tunesync/internal/shared"
)

// Song is a single track. The first artist is the main artist.
type Song struct {
	Name      string        `json:"name"`
	Artists   []Artist      `json:"artists,omitempty"`
	AlbumName string        `json:"album,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Cover     string        `json:"cover,omitempty"`
	IDs       ProviderIDs   `json:"ids,omitempty"`
}

// NewSong creates a [Song] by name with the given artists in order.
func NewSong(name string, artists ...string) *Song {
	return &Song{Name: name, Artists: artistsFromNames(artists)}
}

// MainArtist returns the first artist's name, or "".
func (s *Song) MainArtist() string {
	if len(s.Artists) == 0 {
		return ""
	}
	return s.Artists[0].Name
}

// ArtistNames returns every artist name in order.
func (s *Song) ArtistNames() []string {
	names := make([]string, len(s.Artists))
	for i, a := range s.Artists {
		names[i] = a.Name
	}
	return names
}

// Credit formats the song as "artist1, artist2 - name".
func (s *Song) Credit() string {
	if len(s.Artists) == 0 {
		return s.Name
	}
	return strings.Join(s.ArtistNames(), ", ") + " - " + s.Name
}

// Key is the name based identity key "name|main artist" in normalized form.
func (s *Song) Key() string {
	return shared.NormalizeTrackKey(s.Name, s.MainArtist())
}

// Equal reports whether s and other are the same song. When both carry an id from the same
// identity provider the ids decide; otherwise the normalized name and main artist do.
func (s *Song) Equal(other *Song) bool {
	if other == nil {
		return false
	}
	if same, decided := s.IDs.Compare(other.IDs); decided {
		return same
	}
	return s.Key() == other.Key()
}

// Merge unions artists and ids and fills every unset field from other.
func (s *Song) Merge(other *Song) {
	if other == nil || other == s {
		return
	}
	if s.Name == "" {
		s.Name = other.Name
	}
	s.Artists = mergeArtists(s.Artists, other.Artists)
	if s.AlbumName == "" {
		s.AlbumName = other.AlbumName
	}
	if s.Duration == 0 {
		s.Duration = other.Duration
	}
	if s.Cover == "" {
		s.Cover = other.Cover
	}
	s.IDs.Union(other.IDs)
}

// Clone returns a deep copy.
func (s *Song) Clone() *Song {
	c := *s
	c.Artists = make([]Artist, len(s.Artists))
	for i, a := range s.Artists {
		a.IDs = a.IDs.Clone()
		c.Artists[i] = a
	}
	c.IDs = s.IDs.Clone()
	return &c
}

// crossRefOrder is the preference order for the id written into file tags.
var crossRefOrder = []string{ProviderSpotify, ProviderYouTube, ProviderMBID, ProviderISRC, ProviderLastFM}

// CrossRef returns "provider:id" for the first identity id the song carries, or "".
func (s *Song) CrossRef() string {
	for _, p := range crossRefOrder {
		if id := s.IDs.Get(p); id != "" {
			return p + ":" + id
		}
	}
	return ""
}

// ParseCrossRef splits a value produced by [Song.CrossRef]. ok is false for unknown providers.
func ParseCrossRef(ref string) (provider, id string, ok bool) {
	provider, id, found := strings.Cut(ref, ":")
	if !found || id == "" || !identityProviders[provider] {
		return "", "", false
	}
	return provider, id, true
}
