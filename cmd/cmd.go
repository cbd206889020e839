// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func jsonFlags() []cli.Flag {
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

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create a config file and initialize the database",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port, overrides server.port",
			},
		},
		Action: r.Serve,
	}
}

// resolveCommand runs a single stream resolution without the server
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve a playable stream URL for a track name",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "track"},
		},
		Flags:  append([]cli.Flag{configFlag()}, jsonFlags()...),
		Action: r.Resolve,
	}
}

// cookiesCommand manages the extractor's credential artifact
func cookiesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cookies",
		Usage: "Manage the YouTube cookie file used for extraction",
		Commands: []*cli.Command{
			{
				Name:  "upload",
				Usage: "Replace the stored cookie file with a local .txt export",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.CookiesUpload,
			},
			{
				Name:   "status",
				Usage:  "Show whether a cookie file is stored",
				Flags:  append([]cli.Flag{configFlag()}, jsonFlags()...),
				Action: r.CookiesStatus,
			},
		},
	}
}

func accountsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "accounts",
		Usage: "Inspect authenticated accounts",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List accounts",
				Flags: append([]cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "email",
						Usage: "Only list the account with this email",
					},
				}, jsonFlags()...),
				Action: r.AccountsList,
			},
		},
	}
}
