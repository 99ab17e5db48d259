package models

import "time"

// Tracklist is the ordered song sequence shared by albums and playlists, with one resume cursor per provider.
// Insertion order is meaningful and is the order songs are materialized in.
type Tracklist struct {
	Songs   []*Song           `json:"songs"`
	Cursors map[string]string `json:"cursors,omitempty"`
}

// AddSong merges song into an equal existing entry, or appends it. It returns the stored instance.
func (t *Tracklist) AddSong(song *Song) *Song {
	if i := t.IndexOf(song); i >= 0 {
		t.Songs[i].Merge(song)
		return t.Songs[i]
	}
	t.Songs = append(t.Songs, song)
	return song
}

// RemoveSong drops the entry equal to song and reports whether one was found.
func (t *Tracklist) RemoveSong(song *Song) bool {
	i := t.IndexOf(song)
	if i < 0 {
		return false
	}
	t.Songs = append(t.Songs[:i], t.Songs[i+1:]...)
	return true
}

// IndexOf returns the position of the entry equal to song, or -1.
func (t *Tracklist) IndexOf(song *Song) int {
	for i, s := range t.Songs {
		if s == song || s.Equal(song) {
			return i
		}
	}
	return -1
}

// Contains reports whether an equal song is present.
func (t *Tracklist) Contains(song *Song) bool {
	return t.IndexOf(song) >= 0
}

// Len returns the number of songs.
func (t *Tracklist) Len() int {
	return len(t.Songs)
}

// Duration sums song durations.
func (t *Tracklist) Duration() time.Duration {
	var d time.Duration
	for _, s := range t.Songs {
		d += s.Duration
	}
	return d
}

// Cursor returns the resume cursor for provider, or "" to start from the beginning.
func (t *Tracklist) Cursor(provider string) string {
	return t.Cursors[provider]
}

// SetCursor records the resume cursor for provider. An empty cursor marks the import complete.
func (t *Tracklist) SetCursor(provider, cursor string) {
	if cursor == "" {
		delete(t.Cursors, provider)
		return
	}
	if t.Cursors == nil {
		t.Cursors = make(map[string]string)
	}
	t.Cursors[provider] = cursor
}

// mergeTracklist unions other's songs into t by song identity, in other's order, and adopts cursors t lacks.
func (t *Tracklist) mergeTracklist(other *Tracklist) {
	for _, s := range other.Songs {
		t.AddSong(s)
	}
	for p, c := range other.Cursors {
		if t.Cursor(p) == "" {
			t.SetCursor(p, c)
		}
	}
}
