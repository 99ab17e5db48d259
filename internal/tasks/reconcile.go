package tasks

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/services"
)

// ReconcileResult lists what [Pipeline.Reconcile] deleted.
type ReconcileResult struct {
	Removed        []string // song files
	RemovedTargets []string // whole album or playlist directories and manifests
	Kept           []string // files still wanted by another target
}

// Reconcile deletes local songs that are no longer part of their target, and whole album and playlist
// directories (or flattened manifests) whose target left the collection. It reads the library the same
// way the local importers do.
//
// A file is kept when it sits where Materialize would write a wanted song, or when it identifies as a song
// of the target it was found in: by tags, by file name, or through the resolver for files without a cross
// reference. In the flattened layout a file listed by a manifest but homed at another target is kept.
func (p *Pipeline) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	res := &ReconcileResult{}
	run := models.NewRun(models.RunReconcile, p.layout.Root)
	p.startRun(ctx, run)

	r := &reconciler{
		Pipeline: p,
		res:      res,
		local:    services.NewLocalService(p.layout.Root, p.tagger, p.logger),
		lists:    services.NewPlaylistFileService(p.layout.Root, p.tagger, p.logger),
		homes:    p.homes(),
		removed:  make(map[string]bool),
	}

	var err error
	for _, step := range []func(context.Context) error{r.liked, r.playlists, r.albums} {
		if err = ctx.Err(); err != nil {
			break
		}
		if err = step(ctx); err != nil {
			break
		}
	}
	if err != nil {
		err = cancelled(err)
	}

	p.logger.Info("reconciled", "removed", len(res.Removed), "targets", len(res.RemovedTargets), "kept", len(res.Kept))
	p.finishRun(ctx, run, nil, len(res.Removed)+len(res.RemovedTargets), err)
	return res, err
}

type reconciler struct {
	*Pipeline
	res     *ReconcileResult
	local   *services.LocalService
	lists   *services.PlaylistFileService
	homes   map[string]*models.Song // absolute path -> song Materialize writes there
	removed map[string]bool
}

// homes maps every path Materialize writes a song to onto that song.
func (p *Pipeline) homes() map[string]*models.Song {
	targets := []Target{LikedTarget(p.coll)}
	for _, a := range p.coll.Albums() {
		targets = append(targets, AlbumTarget(a))
	}
	for _, pl := range p.coll.Playlists() {
		targets = append(targets, PlaylistTarget(pl))
	}

	homes := make(map[string]*models.Song)
	for _, t := range targets {
		dir := p.layout.Dir(t)
		for _, s := range p.layout.ownedSongs(p.coll, t) {
			homes[absPath(filepath.Join(dir, p.layout.FileName(s)))] = s
		}
	}
	return homes
}

func (r *reconciler) liked(ctx context.Context) error {
	t := LikedTarget(r.coll)
	sendProgress(r.progress, reconcileUpdate("liked", t.Name()))

	local, err := r.local.ScanDir(ctx, r.layout.LikedDir())
	if err != nil {
		return r.scanFailed(ctx, r.layout.LikedDir(), err)
	}
	return r.prune(ctx, local, r.layout.ownedSongs(r.coll, t))
}

func (r *reconciler) albums(ctx context.Context) error {
	base := filepath.Join(r.layout.Root, AlbumsDir)
	entries, err := readDir(base)
	if err != nil {
		return r.scanFailed(ctx, base, err)
	}

	wanted := make(map[string]*models.Album)
	for _, a := range r.coll.Albums() {
		wanted[filepath.Base(r.layout.AlbumDir(a))] = a
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(base, e.Name())
		sendProgress(r.progress, reconcileUpdate("album", e.Name()))

		a, ok := wanted[e.Name()]
		if !ok {
			r.removeTarget(dir)
			continue
		}
		local, err := r.local.ScanDir(ctx, dir)
		if err != nil {
			if err := r.scanFailed(ctx, dir, err); err != nil {
				return err
			}
			continue
		}
		if err := r.prune(ctx, local, r.layout.ownedSongs(r.coll, AlbumTarget(a))); err != nil {
			return err
		}
	}
	return nil
}

func (r *reconciler) playlists(ctx context.Context) error {
	base := filepath.Join(r.layout.Root, PlaylistsDir)
	entries, err := readDir(base)
	if err != nil {
		return r.scanFailed(ctx, base, err)
	}

	wanted := make(map[string]*models.Playlist)
	for _, pl := range r.coll.Playlists() {
		wanted[filepath.Base(r.layout.PlaylistDir(pl))] = pl
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(base, e.Name())

		switch {
		case e.IsDir():
			sendProgress(r.progress, reconcileUpdate("playlist", e.Name()))
			pl, ok := wanted[e.Name()]
			if !ok {
				r.removeTarget(path)
				continue
			}
			local, err := r.local.ScanDir(ctx, path)
			if err != nil {
				if err := r.scanFailed(ctx, path, err); err != nil {
					return err
				}
				continue
			}
			if err := r.prune(ctx, local, r.layout.ownedSongs(r.coll, PlaylistTarget(pl))); err != nil {
				return err
			}

		case r.layout.Flatten && services.IsPlaylistFile(path):
			stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			sendProgress(r.progress, reconcileUpdate("playlist", stem))
			pl, ok := wanted[stem]
			if !ok {
				r.removeTarget(path)
				r.removeTarget(strings.TrimSuffix(path, filepath.Ext(path)) + ".jpg")
				continue
			}
			listed, err := r.lists.ScanFile(ctx, path)
			if err != nil {
				if err := r.scanFailed(ctx, path, err); err != nil {
					return err
				}
				continue
			}
			if err := r.prune(ctx, listed.Songs, pl.Songs); err != nil {
				return err
			}
		}
	}
	return nil
}

// prune deletes each local song that is neither at a wanted path nor one of desired.
func (r *reconciler) prune(ctx context.Context, local, desired []*models.Song) error {
	for _, s := range local {
		path := s.IDs.Get(models.ProviderPath)
		if path == "" || r.removed[path] {
			continue
		}
		if home, ok := r.homes[path]; ok {
			if !containsSong(desired, home) {
				r.res.Kept = append(r.res.Kept, path)
			}
			continue
		}
		wanted, err := r.identify(ctx, s, desired)
		if err != nil {
			return err
		}
		if wanted {
			continue
		}
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				r.logger.Warn("removing song failed", "path", path, "error", err)
			}
			continue
		}
		r.removed[path] = true
		r.res.Removed = append(r.res.Removed, path)
		r.logger.Info("removed song", "path", path)
		sendProgress(r.progress, removeUpdate(path, false))
	}
	return nil
}

// identify reports whether s is one of desired. A song without a cross reference that misses by name is
// resolved and compared again in canonical form. Only cancellation is returned as an error.
func (r *reconciler) identify(ctx context.Context, s *models.Song, desired []*models.Song) (bool, error) {
	if containsSong(desired, s) {
		return true, nil
	}
	if r.library == nil || s.IDs.HasIdentity() || s.Name == "" {
		return false, nil
	}

	res, err := r.library.ResolveSong(ctx, s)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		r.logger.Debug("resolving local file failed", "path", s.IDs.Get(models.ProviderPath), "error", err)
		return false, nil
	}
	if !res.Found() || res.Value == nil {
		return false, nil
	}
	return containsSong(desired, res.Value), nil
}

func (r *reconciler) removeTarget(path string) {
	if r.removed[path] {
		return
	}
	if _, err := os.Lstat(path); err != nil {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		r.logger.Warn("removing target failed", "path", path, "error", err)
		return
	}
	r.removed[path] = true
	r.res.RemovedTargets = append(r.res.RemovedTargets, path)
	r.logger.Info("removed target", "path", path)
	sendProgress(r.progress, removeUpdate(path, true))
}

// scanFailed logs a local I/O failure and passes cancellation through.
func (r *reconciler) scanFailed(ctx context.Context, path string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	r.logger.Warn("scan failed", "path", path, "error", err)
	return nil
}

func containsSong(songs []*models.Song, s *models.Song) bool {
	for _, d := range songs {
		if d.Equal(s) {
			return true
		}
	}
	return false
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// readDir lists dir; a missing directory is empty.
func readDir(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return entries, err
}
