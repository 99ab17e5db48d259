package models

import (
	"strings"

	"github.com/desertthunder/tunesync/internal/shared"
)

// Album is an ordered set of songs by a main artist.
type Album struct {
	Name    string      `json:"name"`
	Artists []Artist    `json:"artists,omitempty"`
	Cover   string      `json:"cover,omitempty"`
	IDs     ProviderIDs `json:"ids,omitempty"`
	Tracklist
}

// NewAlbum creates an [Album] by name with the given artists in order.
func NewAlbum(name string, artists ...string) *Album {
	return &Album{Name: name, Artists: artistsFromNames(artists)}
}

// MainArtist returns the first artist's name, or "".
func (a *Album) MainArtist() string {
	if len(a.Artists) == 0 {
		return ""
	}
	return a.Artists[0].Name
}

// Key is the normalized "name|main artist" identity key.
func (a *Album) Key() string {
	return shared.NormalizeTrackKey(a.Name, a.MainArtist())
}

// Equal reports whether a and other share an identity provider id or the identity key.
func (a *Album) Equal(other *Album) bool {
	if other == nil {
		return false
	}
	return a.IDs.Shares(other.IDs) || a.Key() == other.Key()
}

// Title formats the album as "main artist - name", the directory name it materializes under.
func (a *Album) Title() string {
	if a.MainArtist() == "" {
		return a.Name
	}
	return a.MainArtist() + " - " + a.Name
}

// HasName reports whether name matches the album name after normalization.
func (a *Album) HasName(name string) bool {
	return name != "" && shared.Normalize(a.Name) == shared.Normalize(name)
}

// AddSong adds song and fills its album name and cover from the album when unset.
func (a *Album) AddSong(song *Song) *Song {
	stored := a.Tracklist.AddSong(song)
	if stored.AlbumName == "" {
		stored.AlbumName = a.Name
	}
	if stored.Cover == "" {
		stored.Cover = a.Cover
	}
	return stored
}

// Merge unions songs, artists and ids and fills unset fields from other.
func (a *Album) Merge(other *Album) {
	if other == nil || other == a {
		return
	}
	if a.Name == "" {
		a.Name = other.Name
	}
	if a.Cover == "" {
		a.Cover = other.Cover
	}
	a.Artists = mergeArtists(a.Artists, other.Artists)
	a.IDs.Union(other.IDs)
	a.mergeTracklist(&other.Tracklist)
}

// String implements fmt.Stringer.
func (a *Album) String() string {
	return strings.TrimSpace(a.Title())
}
