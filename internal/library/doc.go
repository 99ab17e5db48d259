// Package library canonicalizes raw (name, artist) pairs into verified entities through a metadata backend.
//
// A [Library] wraps exactly one [Backend] with a [Pacer] that enforces the backend's minimum interval between
// requests and a [Cache] keyed by the typed [Query] that produced each answer. Lookups never fail the caller:
// misses come back as a [Result] carrying a [MissReason], and the only error a resolve method returns is
// [shared.ErrCancelled] when the caller's context ends.
//
// Backends:
//   - [LastFM] : the Last.fm scrobble database (JSON API, 200ms interval, artist catalogs)
//   - [MusicBrainz] : the MusicBrainz release database (1s interval, bracket-stripping fallback)
//
// Backends are chosen by [Kind] through [New]; there is no other registration mechanism.
package library
