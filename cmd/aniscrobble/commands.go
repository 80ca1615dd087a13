// Command definitions
package main

import "github.com/urfave/cli/v3"

func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Authenticate with AniList and store the token",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Log in again even if already logged in",
			},
		},
		Action: r.Login,
	}
}

func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Remove the stored AniList token",
		Action: r.Logout,
	}
}

func trackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "track",
		Usage: "Record a watched episode and sync it",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "media-id"},
			&cli.StringArg{Name: "episode"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "background",
				Aliases: []string{"b"},
				Usage:   "Sync in a detached background process",
			},
			&cli.BoolFlag{
				Name:    "local-only",
				Aliases: []string{"l"},
				Usage:   "Record locally without syncing",
			},
		},
		Action: r.Track,
	}
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "sync",
		Usage:  "Reconcile all pending progress with AniList",
		Action: r.Sync,
	}
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show login state and pending entries",
		Action: r.Status,
	}
}
