// Package services defines the [Importer] interface for music providers and implements it for Spotify,
// YouTube Music, local audio folders and m3u playlist files.
//
// # Importer Interface
//
// Every provider yields the same three listings (liked songs, albums, playlists) one [Page] at a time.
// Cursors are opaque strings; an empty Next ends the listing. Providers whose album and playlist listings
// omit tracks also implement [TrackLister].
//
// # Import
//
// [Import] walks the listings and merges each page into a collection. The next cursor of every completed
// page is stored on the collection, so a snapshot saved after an interrupted import resumes where it stopped:
//   - liked songs: the liked container under the provider name
//   - album and playlist listings: the liked container under "<provider>:albums" and "<provider>:playlists"
//   - tracks of one album or playlist: that album or playlist under the provider name
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
// Listings use offset cursors over /me/tracks, /me/albums and /me/playlists.
//
// # YouTube Music Implementation
//
// [YouTubeService] communicates with the FastAPI proxy wrapping ytmusicapi through [APIService].
// The auth_file path is sent via X-Auth-File header on each request.
//
// # Local Implementations
//
// [LocalService] reads tags from a directory tree and classifies folders as albums or playlists.
// [PlaylistFileService] reads m3u files. Both double as read-only probes of a materialized library.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrNotAuthenticated] : no token, or the provider rejected it
//   - [shared.ErrUnsupported] : the provider has no such listing
//   - [shared.ErrRateLimited] : the provider asked to slow down
//   - [shared.ErrAPIRequest] : any other failed request
package services
