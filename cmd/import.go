package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/tunesync/internal/formatter"
	"github.com/desertthunder/tunesync/internal/services"
	"github.com/desertthunder/tunesync/internal/shared"
)

// Import merges the selected listings of a provider into the stored collection.
//
// The collection is saved even when the import stops early so resume cursors survive.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("provider")
	if name == "" {
		return fmt.Errorf("%w: provider (one of %v)", shared.ErrMissingArgument, services.Kinds())
	}
	kind, err := services.ParseKind(name)
	if err != nil {
		return err
	}

	imp, err := r.newImporter(kind, cmd.String("dir"))
	if err != nil {
		return err
	}

	coll, err := r.loadCollection()
	if err != nil {
		return err
	}

	if cmd.Bool("verify") {
		lib, err := r.newLibrary()
		if err != nil {
			return err
		}
		defer r.flushLibrary(lib)
		coll.SetVerifier(lib, r.config.Library.RequireVerified)
	}

	opts := services.ImportOptions{Restart: cmd.Bool("restart")}
	if cmd.Bool("liked") {
		opts.Listings |= services.ListLiked
	}
	if cmd.Bool("albums") {
		opts.Listings |= services.ListAlbums
	}
	if cmd.Bool("playlists") {
		opts.Listings |= services.ListPlaylists
	}

	r.logger.Info("importing", "provider", kind, "restart", opts.Restart)
	report, importErr := services.Import(ctx, imp, coll, opts, r.logger)

	if err := r.saveCollection(coll); err != nil {
		return err
	}
	if report != nil {
		r.writeImportReport(report)
	}
	return importErr
}

// newImporter builds the importer for kind. Spotify uses the stored token and persists refreshed ones.
func (r *Runner) newImporter(kind services.Kind, dir string) (services.Importer, error) {
	opts := services.Options{
		Config:     r.config,
		Root:       dir,
		HTTPClient: r.httpClient,
		Logger:     r.logger,
	}

	if kind == services.KindSpotify {
		token, err := r.loadToken()
		if err != nil {
			return nil, err
		}
		opts.Token = token
	}

	imp, err := services.New(kind, opts)
	if err != nil {
		return nil, err
	}

	if svc, ok := imp.(*services.SpotifyService); ok {
		svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
			if err := r.saveToken(token); err != nil {
				r.logger.Warn("failed to persist refreshed token", "error", err)
			}
		})
	}
	return imp, nil
}

func (r *Runner) writeImportReport(report *services.ImportReport) {
	rows := [][]string{
		{"Songs", fmt.Sprint(report.Songs)},
		{"Albums", fmt.Sprint(report.Albums)},
		{"Playlists", fmt.Sprint(report.Playlists)},
		{"Rejected", fmt.Sprint(report.Rejected)},
	}
	r.writePlainHeader("Import from " + report.Provider)
	r.writePlain("%s\n", formatter.SummaryTable([]string{"Merged", "Count"}, rows))
	for _, listing := range report.Failed {
		r.writePlain("✗ %s listing failed, rerun to resume\n", listing)
	}
}
