// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func sessionArg() cli.Argument {
	return &cli.StringArg{Name: "session", UsageText: "Session (guild) ID"}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

func contributorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "ID of the contributor recorded on new entries",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Display name of the contributor",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Create the database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recent migration",
				Action: r.Rollback,
			},
		},
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the queue HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

// queueCommand handles offline edits of stored sessions
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "queue",
		Aliases: []string{"q"},
		Usage:   "Inspect and edit stored session queues",
		Commands: []*cli.Command{
			{
				Name:   "sessions",
				Usage:  "List stored sessions",
				Flags:  outputFlags(),
				Action: r.QueueSessions,
			},
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "Show a session's queue",
				Arguments: []cli.Argument{sessionArg()},
				Flags: append(outputFlags(), &cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Usage:   "Output format: text, md or csv",
					Value:   "text",
				}),
				Action: r.QueueList,
			},
			{
				Name:  "add",
				Usage: "Resolve a URL and add it to the queue",
				Arguments: []cli.Argument{
					sessionArg(),
					&cli.StringArg{Name: "url", UsageText: "Track URL"},
				},
				Flags: append(contributorFlags(),
					&cli.BoolFlag{
						Name:  "next",
						Usage: "Play after the current track instead of at the end",
					},
					&cli.StringFlag{
						Name:  "hint",
						Usage: "Service hint for the resolver (youtube, soundcloud)",
					},
				),
				Action: r.QueueAdd,
			},
			{
				Name:  "import",
				Usage: "Add every track of a playlist",
				Arguments: []cli.Argument{
					sessionArg(),
					&cli.StringArg{Name: "source", UsageText: "Playlist URL, or CSV file with --csv"},
				},
				Flags: append(contributorFlags(),
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "Read the source as a CSV export",
					},
					&cli.BoolFlag{
						Name:  "next",
						Usage: "Insert the tracks after the current track",
					},
				),
				Action: r.QueueImport,
			},
			{
				Name:  "move",
				Usage: "Move an entry to another position",
				Arguments: []cli.Argument{
					sessionArg(),
					&cli.StringArg{Name: "from"},
					&cli.StringArg{Name: "to"},
				},
				Action: r.QueueMove,
			},
			{
				Name:      "move-last",
				Aliases:   []string{"mltf"},
				Usage:     "Move the last entry to the front",
				Arguments: []cli.Argument{sessionArg()},
				Action:    r.QueueMoveLast,
			},
			{
				Name:    "remove",
				Aliases: []string{"rm"},
				Usage:   "Remove an entry by position",
				Arguments: []cli.Argument{
					sessionArg(),
					&cli.StringArg{Name: "index"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "user-only",
						Usage: "Remove every entry added by this user ID instead",
					},
				},
				Action: r.QueueRemove,
			},
			{
				Name:      "shuffle",
				Usage:     "Shuffle the queue",
				Arguments: []cli.Argument{sessionArg()},
				Action:    r.QueueShuffle,
			},
			{
				Name:      "clear",
				Usage:     "Remove every entry",
				Arguments: []cli.Argument{sessionArg()},
				Action:    r.QueueClear,
			},
			{
				Name:      "skip",
				Usage:     "Advance past the current track",
				Arguments: []cli.Argument{sessionArg()},
				Action:    r.QueueSkip,
			},
			{
				Name:  "fairness",
				Usage: "Interleave entries by contributor",
				Arguments: []cli.Argument{
					sessionArg(),
					&cli.StringArg{Name: "state", UsageText: "on or off"},
				},
				Action: r.QueueFairness,
			},
			{
				Name:  "loop",
				Usage: "Set the loop mode",
				Arguments: []cli.Argument{
					sessionArg(),
					&cli.StringArg{Name: "mode", UsageText: "off, track, queue or once"},
				},
				Action: r.QueueLoop,
			},
			{
				Name:  "autocontinue",
				Usage: "Append a related track when the queue advances",
				Arguments: []cli.Argument{
					sessionArg(),
					&cli.StringArg{Name: "state", UsageText: "on or off"},
				},
				Action: r.QueueAutoContinue,
			},
			{
				Name:  "search",
				Usage: "Find entries by title or URL",
				Arguments: []cli.Argument{
					sessionArg(),
					&cli.StringArg{Name: "keyword"},
				},
				Flags:  outputFlags(),
				Action: r.QueueSearch,
			},
			{
				Name:      "export",
				Usage:     "Export a session's queue",
				Arguments: []cli.Argument{sessionArg()},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, md or csv",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.QueueExport,
			},
			{
				Name:      "delete",
				Usage:     "Delete a stored session",
				Arguments: []cli.Argument{sessionArg()},
				Action:    r.QueueDelete,
			},
			{
				Name:   "watch",
				Usage:  "Print session IDs as a running server changes them (requires redis)",
				Action: r.QueueWatch,
			},
		},
	}
}

func fetchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Download a track's audio in chunks",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url", UsageText: "Track URL"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (default: stdout)",
			},
			&cli.BoolFlag{
				Name:  "direct",
				Usage: "Treat the URL as the raw stream location",
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "Bytes per range request (overrides stream.chunk_size)",
			},
		},
		Action: r.Fetch,
	}
}

func healthCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check that the metadata proxy is reachable",
		Flags:  outputFlags(),
		Action: r.Health,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Usage:     "Edit a session's queue interactively",
		Arguments: []cli.Argument{sessionArg()},
		Flags:     contributorFlags(),
		Action:    r.TUI,
	}
}
