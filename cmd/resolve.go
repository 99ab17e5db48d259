package main

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunesync/internal/formatter"
	"github.com/desertthunder/tunesync/internal/library"
	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

// withLibrary runs fn against the configured library and flushes its cache afterwards.
func (r *Runner) withLibrary(cmd *cli.Command, fn func(lib *library.Library, name string) error) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: name", shared.ErrMissingArgument)
	}

	lib, err := r.newLibrary()
	if err != nil {
		return err
	}
	defer r.flushLibrary(lib)
	return fn(lib, name)
}

// writeMiss reports a lookup that produced nothing.
func (r *Runner) writeMiss(what string, miss library.MissReason, cached bool) error {
	source := "backend"
	if cached {
		source = "cache"
	}
	return r.writePlain("✗ %s: %s (%s)\n", what, miss, source)
}

// ResolveSong completes a song from its title and optional artist.
func (r *Runner) ResolveSong(ctx context.Context, cmd *cli.Command) error {
	return r.withLibrary(cmd, func(lib *library.Library, name string) error {
		var partial *models.Song
		if artist := cmd.String("artist"); artist != "" {
			partial = models.NewSong(name, artist)
		} else {
			partial = models.NewSong(name)
		}

		res, err := lib.ResolveSong(ctx, partial)
		if err != nil {
			return err
		}
		if !res.Found() {
			return r.writeMiss(partial.Credit(), res.Miss, res.Cached)
		}
		if cmd.Bool("json") {
			return r.writeJSON(res.Value, true)
		}

		song := res.Value
		r.writePlain("✓ %s\n", song.Credit())
		if song.AlbumName != "" {
			r.writePlain("Album:    %s\n", song.AlbumName)
		}
		if song.Duration > 0 {
			r.writePlain("Duration: %s\n", formatter.FormatDuration(song.Duration))
		}
		return r.writeIDs(song.IDs)
	})
}

// ResolveAlbum completes an album and its tracklist.
func (r *Runner) ResolveAlbum(ctx context.Context, cmd *cli.Command) error {
	return r.withLibrary(cmd, func(lib *library.Library, name string) error {
		var partial *models.Album
		if artist := cmd.String("artist"); artist != "" {
			partial = models.NewAlbum(name, artist)
		} else {
			partial = models.NewAlbum(name)
		}

		res, err := lib.ResolveAlbum(ctx, partial)
		if err != nil {
			return err
		}
		if !res.Found() {
			return r.writeMiss(partial.Title(), res.Miss, res.Cached)
		}
		if cmd.Bool("json") {
			return r.writeJSON(res.Value, true)
		}

		album := res.Value
		r.writePlainHeader(album.Title())
		rows := make([][]string, len(album.Songs))
		for i, s := range album.Songs {
			rows[i] = []string{fmt.Sprint(i + 1), s.Name, formatter.FormatDuration(s.Duration)}
		}
		r.writePlain("%s\n", formatter.SummaryTable([]string{"#", "Title", "Duration"}, rows))
		return r.writeIDs(album.IDs)
	})
}

// ResolveArtist completes an artist by name.
func (r *Runner) ResolveArtist(ctx context.Context, cmd *cli.Command) error {
	return r.withLibrary(cmd, func(lib *library.Library, name string) error {
		res, err := lib.ResolveArtist(ctx, models.NewArtist(name))
		if err != nil {
			return err
		}
		if !res.Found() {
			return r.writeMiss(name, res.Miss, res.Cached)
		}
		if cmd.Bool("json") {
			return r.writeJSON(res.Value, true)
		}

		r.writePlain("✓ %s\n", res.Value.Name)
		return r.writeIDs(res.Value.IDs)
	})
}

// ResolveCatalog lists an artist's albums.
func (r *Runner) ResolveCatalog(ctx context.Context, cmd *cli.Command) error {
	return r.withLibrary(cmd, func(lib *library.Library, name string) error {
		res, err := lib.ResolveArtistCatalog(ctx, models.NewArtist(name))
		if err != nil {
			return err
		}
		if !res.Found() {
			return r.writeMiss(name, res.Miss, res.Cached)
		}
		if cmd.Bool("json") {
			return r.writeJSON(res.Value, true)
		}

		rows := make([][]string, len(res.Value))
		for i, a := range res.Value {
			rows[i] = []string{a.Name, fmt.Sprint(a.Len())}
		}
		r.writePlainHeader(name)
		return r.writePlain("%s\n", formatter.SummaryTable([]string{"Album", "Songs"}, rows))
	})
}

func (r *Runner) writeIDs(ids models.ProviderIDs) error {
	for _, provider := range slices.Sorted(maps.Keys(ids)) {
		if err := r.writePlain("%-9s %s\n", provider+":", ids[provider]); err != nil {
			return err
		}
	}
	return nil
}
