package models

import "github.com/desertthunder/tunesync/internal/shared"

// Artist is identified by its normalized name.
type Artist struct {
	Name  string      `json:"name"`
	IDs   ProviderIDs `json:"ids,omitempty"`
	Cover string      `json:"cover,omitempty"`
}

// NewArtist creates an [Artist] named name.
func NewArtist(name string) *Artist {
	return &Artist{Name: name}
}

// Key returns the identity key.
func (a *Artist) Key() string {
	return shared.Normalize(a.Name)
}

// Equal reports whether a and other are the same artist.
func (a *Artist) Equal(other *Artist) bool {
	return other != nil && a.Key() == other.Key()
}

// Merge fills unset fields from other and unions ids.
func (a *Artist) Merge(other *Artist) {
	if other == nil {
		return
	}
	if a.Name == "" {
		a.Name = other.Name
	}
	if a.Cover == "" {
		a.Cover = other.Cover
	}
	a.IDs.Union(other.IDs)
}

// mergeArtists unions other into dst by artist identity, keeping dst's order.
func mergeArtists(dst []Artist, other []Artist) []Artist {
	for i := range other {
		found := false
		for j := range dst {
			if dst[j].Equal(&other[i]) {
				dst[j].Merge(&other[i])
				found = true
				break
			}
		}
		if !found {
			a := other[i]
			a.IDs = a.IDs.Clone()
			dst = append(dst, a)
		}
	}
	return dst
}

// artistsFromNames builds an artist list, skipping blanks.
func artistsFromNames(names []string) []Artist {
	artists := make([]Artist, 0, len(names))
	for _, n := range names {
		if n != "" {
			artists = append(artists, Artist{Name: n})
		}
	}
	return artists
}
