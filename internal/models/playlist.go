package models

import "github.com/desertthunder/tunesync/internal/shared"

// LikedSongsName names the liked songs container on disk and in listings.
const LikedSongsName = "Liked Songs"

// Playlist is an ordered set of songs that need not share an album.
type Playlist struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Cover       string      `json:"cover,omitempty"`
	IDs         ProviderIDs `json:"ids,omitempty"`
	Tracklist
}

// NewPlaylist creates an empty [Playlist] named name.
func NewPlaylist(name string) *Playlist {
	return &Playlist{Name: name}
}

// Key is the normalized name.
func (p *Playlist) Key() string {
	return shared.Normalize(p.Name)
}

// Equal reports whether p and other share an identity provider id or the normalized name.
func (p *Playlist) Equal(other *Playlist) bool {
	if other == nil {
		return false
	}
	return p.IDs.Shares(other.IDs) || p.Key() == other.Key()
}

// Merge unions songs and ids and fills unset fields from other.
func (p *Playlist) Merge(other *Playlist) {
	if other == nil || other == p {
		return
	}
	if p.Name == "" {
		p.Name = other.Name
	}
	if p.Description == "" {
		p.Description = other.Description
	}
	if p.Cover == "" {
		p.Cover = other.Cover
	}
	p.IDs.Union(other.IDs)
	p.mergeTracklist(&other.Tracklist)
}

// LikedSongs is the single liked songs container of a collection. It has no provider ids.
type LikedSongs struct {
	Tracklist
}

// NewLikedSongs creates an empty [LikedSongs].
func NewLikedSongs() *LikedSongs {
	return &LikedSongs{}
}

// Name returns [LikedSongsName].
func (l *LikedSongs) Name() string {
	return LikedSongsName
}

// Merge unions other's songs into l.
func (l *LikedSongs) Merge(other *LikedSongs) {
	if other == nil || other == l {
		return
	}
	l.mergeTracklist(&other.Tracklist)
}
