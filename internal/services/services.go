// package services defines the [Importer] contract and its providers
//
// Spotify, YouTube (via proxy), local tag scanning, playlist files
package services

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

// Kind names a provider importer.
type Kind string

const (
	KindSpotify      Kind = "spotify"
	KindYouTube      Kind = "youtube"
	KindLocal        Kind = "local"
	KindPlaylistFile Kind = "m3u"
)

// Page is one batch of raw entities from a provider listing. An empty Next means the listing is done.
type Page struct {
	Songs     []*models.Song
	Albums    []*models.Album
	Playlists []*models.Playlist
	Next      string
}

// Done reports whether no further page follows.
func (p *Page) Done() bool {
	return p == nil || p.Next == ""
}

// Importer lists a provider's liked songs, albums and playlists page by page.
// Cursors are opaque to callers; "" requests the first page.
// Listings a provider does not have return [shared.ErrUnsupported].
type Importer interface {
	// Name is the provider key used for cursors and provider ids.
	Name() string

	LikedSongs(ctx context.Context, cursor string) (*Page, error)
	Albums(ctx context.Context, cursor string) (*Page, error)
	Playlists(ctx context.Context, cursor string) (*Page, error)
}

// TrackLister is implemented by importers whose album and playlist listings omit tracks.
// Pages returned by it carry only Songs.
type TrackLister interface {
	AlbumSongs(ctx context.Context, album *models.Album, cursor string) (*Page, error)
	PlaylistSongs(ctx context.Context, playlist *models.Playlist, cursor string) (*Page, error)
}

// OAuthService extends Importer for providers that authorize through an OAuth code flow.
type OAuthService interface {
	Importer
	GetAuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// Options carries what any importer constructor may need.
type Options struct {
	Config     *shared.Config
	Root       string // directory for local and playlist file importers
	Token      *oauth2.Token
	HTTPClient *http.Client
	Logger     *log.Logger
}

var constructors = map[Kind]func(Options) (Importer, error){
	KindSpotify: func(o Options) (Importer, error) {
		if o.Config == nil {
			return nil, fmt.Errorf("%w: spotify needs credentials", shared.ErrMissingConfig)
		}
		svc, err := NewSpotifyService(o.Config.Credentials.Spotify)
		if err != nil {
			return nil, err
		}
		if o.Token == nil {
			return nil, fmt.Errorf("%w: run auth spotify first", shared.ErrNotAuthenticated)
		}
		svc.SetToken(context.Background(), o.Token)
		return svc, nil
	},
	KindYouTube: func(o Options) (Importer, error) {
		var yt shared.YouTubeConfig
		if o.Config != nil {
			yt = o.Config.Credentials.YouTube
		}
		svc := NewYouTubeService(NewAPIService(yt.ProxyURL, o.HTTPClient))
		if yt.AuthFile != "" {
			if err := svc.Authenticate(context.Background(), map[string]string{"auth_file": yt.AuthFile}); err != nil {
				return nil, err
			}
		}
		return svc, nil
	},
	KindLocal: func(o Options) (Importer, error) {
		if o.Root == "" {
			return nil, fmt.Errorf("%w: local import needs a directory", shared.ErrMissingArgument)
		}
		return NewLocalService(o.Root, nil, o.Logger), nil
	},
	KindPlaylistFile: func(o Options) (Importer, error) {
		if o.Root == "" {
			return nil, fmt.Errorf("%w: playlist file import needs a directory", shared.ErrMissingArgument)
		}
		return NewPlaylistFileService(o.Root, nil, o.Logger), nil
	},
}

// Kinds lists every registered importer kind in a stable order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(constructors))
	for k := range constructors {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// ParseKind validates a provider name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := constructors[k]; !ok {
		return "", fmt.Errorf("%w: unknown provider %q (want one of %v)", shared.ErrInvalidArgument, s, Kinds())
	}
	return k, nil
}

// New constructs the importer registered for kind.
func New(kind Kind, opts Options) (Importer, error) {
	ctor, ok := constructors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", shared.ErrInvalidArgument, kind)
	}
	return ctor(opts)
}

var (
	_ OAuthService = (*SpotifyService)(nil)
	_ TrackLister  = (*SpotifyService)(nil)
	_ TrackLister  = (*YouTubeService)(nil)
	_ Importer     = (*LocalService)(nil)
	_ Importer     = (*PlaylistFileService)(nil)
)
