// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT
package command

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/varctl/varctlgo/internal/config"
	"github.com/varctl/varctlgo/internal/meta"
)

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {

	// Save the CWD at startup and then defer restoring it so we're tidy.
	sd, _ := os.Getwd()
	defer func() {
		if err := os.Chdir(sd); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to restore directory: %v\n", err)
		}
	}()

	// The arg[1] immediately following the binary (arg[0]) is the varctl
	// subcommand and also represents the namespace key to be used when retrieving
	// config values. arg[1] could be -h/--help, so ignore it if it appears to be
	// a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, _ := config.Load(ns)
	meta := meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		StartingDir: sd,
	}

	meta.TagsPath, _ = config.GetString("tags", "tags.hcl")

	// See if the arg immediately following the command might be a tag spec.
	// This is determined by whether or not it begins with - or --.  If it
	// does, it's a flag.  If it's not, a Project/Variable spec scopes meta to
	// that project; a bare Variable leaves the scope open.
	if len(args) > 2 && !strings.HasPrefix(args[2], "-") {
		if project, _, scoped := strings.Cut(args[2], "/"); scoped {
			meta.Project = project
		}
	}

	app := &cli.Command{
		Name:  "varctl",
		Usage: "Plant Variable Control",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "varctl version info",
				HideDefault: true,
			},
		},
	}

	app.Commands = append(app.Commands,
		GetCommandBuilder(app, meta),
		LangsCommandBuilder(app, meta),
		RecordCommandBuilder(app, meta),
		SnapCommandBuilder(app, meta),
		TqCommandBuilder(app, meta),
		WatchCommandBuilder(app, meta),
		CompletionCommandBuilder(app, meta),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app, nil
}
