package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunesync/internal/collection"
	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

// Listing selects which provider listings [Import] walks.
type Listing int

const (
	ListLiked Listing = 1 << iota
	ListAlbums
	ListPlaylists

	ListAll = ListLiked | ListAlbums | ListPlaylists
)

// ImportOptions configures [Import].
type ImportOptions struct {
	Listings Listing
	// Restart ignores stored resume cursors and starts every listing from its first page.
	Restart bool
}

// ImportReport counts what an import merged into the collection.
type ImportReport struct {
	Provider  string
	Songs     int
	Albums    int
	Playlists int
	Rejected  int
	// Failed lists listings that stopped on an error other than cancellation.
	Failed []string
}

// Cursor keys for the list-level listings. Liked songs use the bare provider name.
func albumsCursorKey(provider string) string    { return provider + ":albums" }
func playlistsCursorKey(provider string) string { return provider + ":playlists" }

// Import walks the selected listings of imp and merges every page into coll.
//
// After each page its next cursor is stored on coll, so an interrupted import resumes from the last completed page.
// Listing-level cursors live on the liked songs container; track cursors live on each album and playlist.
// A failing listing is logged and recorded in the report; cancellation stops the import with [shared.ErrCancelled].
func Import(ctx context.Context, imp Importer, coll *collection.Collection, opts ImportOptions, logger *log.Logger) (*ImportReport, error) {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	if opts.Listings == 0 {
		opts.Listings = ListAll
	}

	in := &importer{
		imp:    imp,
		coll:   coll,
		opts:   opts,
		logger: logger.With("provider", imp.Name()),
		report: &ImportReport{Provider: imp.Name()},
	}
	if lister, ok := imp.(TrackLister); ok {
		in.lister = lister
	}

	steps := []struct {
		listing Listing
		name    string
		run     func(context.Context) error
	}{
		{ListLiked, "liked songs", in.likedSongs},
		{ListAlbums, "albums", in.albums},
		{ListPlaylists, "playlists", in.playlists},
	}

	for _, step := range steps {
		if opts.Listings&step.listing == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return in.report, cancelled(err)
		}

		err := step.run(ctx)
		switch {
		case err == nil:
		case isCancellation(ctx, err):
			return in.report, cancelled(err)
		case errors.Is(err, shared.ErrUnsupported):
			in.logger.Debug("listing not supported", "listing", step.name)
		default:
			in.logger.Error("listing failed", "listing", step.name, "error", err)
			in.report.Failed = append(in.report.Failed, step.name)
		}
	}

	in.logger.Info("import finished",
		"songs", in.report.Songs, "albums", in.report.Albums,
		"playlists", in.report.Playlists, "rejected", in.report.Rejected)
	return in.report, nil
}

type importer struct {
	imp    Importer
	lister TrackLister
	coll   *collection.Collection
	opts   ImportOptions
	logger *log.Logger
	report *ImportReport
}

func (in *importer) cursor(t *models.Tracklist, key string) string {
	if in.opts.Restart {
		return ""
	}
	return t.Cursor(key)
}

// paginate fetches pages starting at cursor until one is done, calling handle on each and then save with its Next.
func paginate(ctx context.Context, cursor string,
	fetch func(context.Context, string) (*Page, error),
	handle func(*Page) error,
	save func(string),
) error {
	seen := map[string]bool{}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			return err
		}
		if err := handle(page); err != nil {
			return err
		}
		save(page.Next)

		if page.Done() {
			return nil
		}
		if seen[page.Next] {
			return fmt.Errorf("%w: cursor %q repeated", shared.ErrFetchFailed, page.Next)
		}
		seen[page.Next] = true
		cursor = page.Next
	}
}

func (in *importer) verify(ctx context.Context, songs []*models.Song) ([]*models.Song, error) {
	kept, err := in.coll.Verify(ctx, songs)
	if err != nil {
		return nil, err
	}
	in.report.Rejected += len(songs) - len(kept)
	return kept, nil
}

func (in *importer) likedSongs(ctx context.Context) error {
	key := in.imp.Name()
	liked := &in.coll.Liked.Tracklist

	return paginate(ctx, in.cursor(liked, key), in.imp.LikedSongs,
		func(page *Page) error {
			songs, err := in.verify(ctx, page.Songs)
			if err != nil {
				return err
			}
			for _, s := range songs {
				in.coll.AddSong(s)
			}
			in.report.Songs += len(songs)
			in.logger.Debug("liked songs page", "count", len(songs), "next", page.Next)
			return nil
		},
		func(next string) { liked.SetCursor(key, next) },
	)
}

func (in *importer) albums(ctx context.Context) error {
	key := albumsCursorKey(in.imp.Name())
	liked := &in.coll.Liked.Tracklist

	return paginate(ctx, in.cursor(liked, key), in.imp.Albums,
		func(page *Page) error {
			for _, album := range page.Albums {
				if err := in.album(ctx, album); err != nil {
					if isCancellation(ctx, err) {
						return err
					}
					in.logger.Warn("album import failed", "album", album.Title(), "error", err)
				}
			}
			return nil
		},
		func(next string) { liked.SetCursor(key, next) },
	)
}

func (in *importer) album(ctx context.Context, album *models.Album) error {
	songs, err := in.verify(ctx, album.Songs)
	if err != nil {
		return err
	}
	album.Songs = nil
	stored := in.coll.AddAlbum(album)
	for _, s := range songs {
		stored.AddSong(s)
	}
	in.report.Albums++
	in.report.Songs += len(songs)

	if in.lister == nil {
		return nil
	}

	provider := in.imp.Name()
	return paginate(ctx, in.cursor(&stored.Tracklist, provider),
		func(ctx context.Context, cursor string) (*Page, error) {
			return in.lister.AlbumSongs(ctx, stored, cursor)
		},
		func(page *Page) error {
			songs, err := in.verify(ctx, page.Songs)
			if err != nil {
				return err
			}
			for _, s := range songs {
				stored.AddSong(s)
			}
			in.report.Songs += len(songs)
			return nil
		},
		func(next string) { stored.SetCursor(provider, next) },
	)
}

func (in *importer) playlists(ctx context.Context) error {
	key := playlistsCursorKey(in.imp.Name())
	liked := &in.coll.Liked.Tracklist

	return paginate(ctx, in.cursor(liked, key), in.imp.Playlists,
		func(page *Page) error {
			for _, playlist := range page.Playlists {
				if err := in.playlist(ctx, playlist); err != nil {
					if isCancellation(ctx, err) {
						return err
					}
					in.logger.Warn("playlist import failed", "playlist", playlist.Name, "error", err)
				}
			}
			return nil
		},
		func(next string) { liked.SetCursor(key, next) },
	)
}

func (in *importer) playlist(ctx context.Context, playlist *models.Playlist) error {
	songs, err := in.verify(ctx, playlist.Songs)
	if err != nil {
		return err
	}
	playlist.Songs = nil
	stored := in.coll.AddPlaylist(playlist)
	for _, s := range songs {
		stored.AddSong(s)
	}
	in.report.Playlists++
	in.report.Songs += len(songs)

	if in.lister == nil {
		return nil
	}

	provider := in.imp.Name()
	return paginate(ctx, in.cursor(&stored.Tracklist, provider),
		func(ctx context.Context, cursor string) (*Page, error) {
			return in.lister.PlaylistSongs(ctx, stored, cursor)
		},
		func(page *Page) error {
			songs, err := in.verify(ctx, page.Songs)
			if err != nil {
				return err
			}
			for _, s := range songs {
				stored.AddSong(s)
			}
			in.report.Songs += len(songs)
			return nil
		},
		func(next string) { stored.SetCursor(provider, next) },
	)
}

func isCancellation(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, shared.ErrCancelled) || ctx.Err() != nil
}

func cancelled(err error) error {
	if errors.Is(err, shared.ErrCancelled) {
		return err
	}
	return fmt.Errorf("%w: %w", shared.ErrCancelled, err)
}
