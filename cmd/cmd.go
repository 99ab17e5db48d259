// submodule cmd contains command definitions
package main

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunesync/internal/services"
)

// setupCommand creates the config file, data directories and run ledger.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, data directories and run ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand authorizes providers that need an OAuth token.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize provider access",
		Commands: []*cli.Command{
			{
				Name:   "spotify",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.SpotifyAuth,
			},
		},
	}
}

// importCommand merges a provider's library into the collection.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     fmt.Sprintf("Import liked songs, albums and playlists from a provider %v", services.Kinds()),
		ArgsUsage: "<provider>",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "provider",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Directory to scan for the local and m3u providers",
			},
			&cli.BoolFlag{
				Name:  "liked",
				Usage: "Import liked songs only (combinable with --albums and --playlists)",
			},
			&cli.BoolFlag{
				Name:  "albums",
				Usage: "Import albums",
			},
			&cli.BoolFlag{
				Name:  "playlists",
				Usage: "Import playlists",
			},
			&cli.BoolFlag{
				Name:  "restart",
				Usage: "Ignore stored resume cursors",
			},
			&cli.BoolFlag{
				Name:  "verify",
				Usage: "Check imported songs against the metadata library",
			},
		},
		Action: r.Import,
	}
}

// collectionCommand inspects and edits the stored collection.
func collectionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "collection",
		Aliases: []string{"coll"},
		Usage:   "Inspect and edit the collection",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Summarize liked songs, albums and playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CollectionShow,
			},
			{
				Name:      "remove",
				Usage:     "Remove a liked song, album or playlist",
				ArgsUsage: "<song|album|playlist> <name>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "kind"},
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Main artist of the song or album",
					},
				},
				Action: r.CollectionRemove,
			},
			{
				Name:  "save",
				Usage: "Write the collection snapshot to another directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Destination directory",
						Required: true,
					},
				},
				Action: r.CollectionSave,
			},
			{
				Name:      "export",
				Usage:     "Export a target's tracklist",
				ArgsUsage: "<liked|album:<title>|playlist:<name>>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "target"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, md, txt, json)",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
						Value:   ".",
					},
				},
				Action: r.CollectionExport,
			},
		},
	}
}

// resolveCommand queries the metadata library.
func resolveCommand(r *Runner) *cli.Command {
	artistFlag := &cli.StringFlag{
		Name:    "artist",
		Aliases: []string{"a"},
		Usage:   "Main artist",
	}
	jsonFlag := &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}

	return &cli.Command{
		Name:  "resolve",
		Usage: "Complete partial metadata through the configured library backend",
		Commands: []*cli.Command{
			{
				Name:      "song",
				Usage:     "Resolve a song",
				ArgsUsage: "<title>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags:     []cli.Flag{artistFlag, jsonFlag},
				Action:    r.ResolveSong,
			},
			{
				Name:      "album",
				Usage:     "Resolve an album and its tracklist",
				ArgsUsage: "<title>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags:     []cli.Flag{artistFlag, jsonFlag},
				Action:    r.ResolveAlbum,
			},
			{
				Name:      "artist",
				Usage:     "Resolve an artist",
				ArgsUsage: "<name>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags:     []cli.Flag{jsonFlag},
				Action:    r.ResolveArtist,
			},
			{
				Name:      "catalog",
				Usage:     "List an artist's albums",
				ArgsUsage: "<artist>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags:     []cli.Flag{jsonFlag},
				Action:    r.ResolveCatalog,
			},
		},
	}
}

// syncCommand materializes every target and then reconciles the library.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Download missing songs for every target, then remove what left the collection",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-reconcile",
				Usage: "Skip the removal pass",
			},
		},
		Action: r.Sync,
	}
}

func materializeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "materialize",
		Usage:     "Download missing songs for one target",
		ArgsUsage: "<liked|album:<title>|playlist:<name>>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "target"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Directory to write into instead of the layout's",
			},
		},
		Action: r.Materialize,
	}
}

func reconcileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "reconcile",
		Usage:  "Remove local songs and targets that left the collection",
		Action: r.Reconcile,
	}
}

// historyCommand reads the run ledger.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent runs from the ledger",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of rows",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Only runs of this kind (materialize, reconcile)",
			},
			&cli.BoolFlag{
				Name:  "failed",
				Usage: "List failed jobs instead of runs",
			},
		},
		Action: r.History,
	}
}

// youtubeCommand handles direct proxy calls
func youtubeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "youtube",
		Aliases: []string{"yt"},
		Usage:   "Direct calls to the YouTube Music proxy",
		Commands: []*cli.Command{
			{
				Name:  "raw",
				Usage: "GET a proxy path and print the response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.YouTubeRaw,
			},
		},
	}
}

// tuiCommand launches the interactive sync screen.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Pick targets to sync interactively",
		Action: r.TUI,
	}
}
