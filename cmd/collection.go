package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunesync/internal/collection"
	"github.com/desertthunder/tunesync/internal/formatter"
	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
	"github.com/desertthunder/tunesync/internal/tasks"
)

type targetSummary struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Songs    int    `json:"songs"`
	Duration string `json:"duration"`
}

type collectionSummary struct {
	Stats   collection.Stats `json:"stats"`
	Targets []targetSummary  `json:"targets"`
}

// CollectionShow prints the collection's counts and every target.
func (r *Runner) CollectionShow(ctx context.Context, cmd *cli.Command) error {
	coll, err := r.loadCollection()
	if err != nil {
		return err
	}

	summary := collectionSummary{Stats: coll.Stats()}
	for _, t := range allTargets(coll) {
		songs := t.Songs()
		summary.Targets = append(summary.Targets, targetSummary{
			Kind:     t.Kind.String(),
			Name:     t.Name(),
			Songs:    len(songs),
			Duration: formatter.FormatDuration(songsDuration(songs)),
		})
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, true)
	}

	st := summary.Stats
	r.writePlainHeader("Collection")
	r.writePlain("%s\n", formatter.SummaryTable(
		[]string{"", "Count", "Songs", "Duration"},
		[][]string{
			{"Liked", "1", fmt.Sprintf("%d (%d standalone)", st.LikedSongs, st.StandaloneSongs), formatter.FormatDuration(st.LikedDuration)},
			{"Albums", fmt.Sprint(st.Albums), fmt.Sprint(st.AlbumSongs), formatter.FormatDuration(st.AlbumDuration)},
			{"Playlists", fmt.Sprint(st.Playlists), fmt.Sprint(st.PlaylistSongs), formatter.FormatDuration(st.PlaylistDuration)},
		},
	))

	if len(summary.Targets) == 0 {
		return nil
	}
	rows := make([][]string, len(summary.Targets))
	for i, t := range summary.Targets {
		rows[i] = []string{t.Kind, t.Name, fmt.Sprint(t.Songs), t.Duration}
	}
	return r.writePlain("%s\n", formatter.SummaryTable([]string{"Kind", "Name", "Songs", "Duration"}, rows))
}

// CollectionRemove drops a liked song, album or playlist and saves the collection.
// Local files are left alone until the next reconcile.
func (r *Runner) CollectionRemove(ctx context.Context, cmd *cli.Command) error {
	kind, name := cmd.StringArg("kind"), cmd.StringArg("name")
	if kind == "" || name == "" {
		return fmt.Errorf("%w: want <song|album|playlist> <name>", shared.ErrMissingArgument)
	}

	coll, err := r.loadCollection()
	if err != nil {
		return err
	}

	var removed string
	switch strings.ToLower(kind) {
	case "song":
		song := findLiked(coll, name, cmd.String("artist"))
		if song == nil || !coll.RemoveSong(song) {
			return fmt.Errorf("%w: liked song %q", shared.ErrNotFound, name)
		}
		removed = song.Credit()
	case "album":
		title := name
		if artist := cmd.String("artist"); artist != "" {
			title = artist + " - " + name
		}
		album := coll.AlbumByTitle(title)
		if album == nil || !coll.RemoveAlbum(album) {
			return fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, title)
		}
		removed = album.Title()
	case "playlist":
		playlist := coll.PlaylistByName(name)
		if playlist == nil || !coll.RemovePlaylist(playlist) {
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
		}
		removed = playlist.Name
	default:
		return fmt.Errorf("%w: kind %q, want song, album or playlist", shared.ErrInvalidArgument, kind)
	}

	if err := r.saveCollection(coll); err != nil {
		return err
	}
	r.logger.Info("removed from collection", "kind", kind, "name", removed)
	return r.writePlain("✓ Removed %s %s\n", kind, removed)
}

// findLiked matches a liked song by normalized name and, when given, main artist.
func findLiked(coll *collection.Collection, name, artist string) *models.Song {
	for _, s := range coll.Liked.Songs {
		if shared.Normalize(s.Name) != shared.Normalize(name) {
			continue
		}
		if artist == "" || shared.Normalize(s.MainArtist()) == shared.Normalize(artist) {
			return s
		}
	}
	return nil
}

// CollectionSave writes a copy of the snapshot files to another directory.
func (r *Runner) CollectionSave(ctx context.Context, cmd *cli.Command) error {
	coll, err := r.loadCollection()
	if err != nil {
		return err
	}
	dir := cmd.String("to")
	if err := coll.Save(dir); err != nil {
		return err
	}
	return r.writePlain("✓ Collection saved to %s\n", dir)
}

// CollectionExport renders a target's tracklist as csv, md, txt or json.
func (r *Runner) CollectionExport(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("target")
	if name == "" {
		return fmt.Errorf("%w: target", shared.ErrMissingArgument)
	}

	coll, err := r.loadCollection()
	if err != nil {
		return err
	}
	t, err := tasks.ParseTarget(coll, name)
	if err != nil {
		return err
	}

	path, err := formatter.WriteExport(listingFor(t), formatter.Format(cmd.String("format")), cmd.String("output"))
	if err != nil {
		return err
	}
	r.logger.Info("exported", "target", t.Name(), "path", path)
	return r.writePlain("✓ Exported %d songs to %s\n", len(t.Songs()), path)
}

func listingFor(t tasks.Target) formatter.Listing {
	switch t.Kind {
	case tasks.TargetAlbum:
		return formatter.AlbumListing(t.Album)
	case tasks.TargetPlaylist:
		return formatter.PlaylistListing(t.Playlist)
	default:
		return formatter.Listing{Name: t.Name(), Songs: t.Songs()}
	}
}

// allTargets lists liked songs first, then albums and playlists in collection order.
func allTargets(coll *collection.Collection) []tasks.Target {
	targets := []tasks.Target{tasks.LikedTarget(coll)}
	for _, a := range coll.Albums() {
		targets = append(targets, tasks.AlbumTarget(a))
	}
	for _, p := range coll.Playlists() {
		targets = append(targets, tasks.PlaylistTarget(p))
	}
	return targets
}

func songsDuration(songs []*models.Song) (d time.Duration) {
	for _, s := range songs {
		d += s.Duration
	}
	return d
}
