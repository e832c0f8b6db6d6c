// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/apex/log"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/varctl/varctlgo/internal/display"
	"github.com/varctl/varctlgo/internal/meta"
	"github.com/varctl/varctlgo/internal/source/snap"
)

// WatchCommandAction is the action handler for the "watch" subcommand. It
// runs the live terminal view over the caches until the user quits.
func WatchCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "watch") {
		return nil
	}

	defs, err := LoadDefs(cmd, m)
	if err != nil {
		return err
	}
	defs, err = FilterDefs(defs, cmd.Args().Slice())
	if err != nil {
		return err
	}

	src, mgr, err := OpenSource(ctx, cmd, defs)
	if err != nil {
		return err
	}
	defer src.Close()

	catalog := NewCatalog(cmd)
	caches := BuildCaches(src, catalog, defs)
	defer CloseCaches(caches)

	if mgr != nil {
		if err := mgr.Start(); err != nil {
			return err
		}
		defer mgr.Stop()
	}

	title := cmd.String("project")
	if title == "" {
		title = "varctl"
	}

	model := display.New(title, caches, catalog, mgr)
	defer model.Close()

	// First reads register the tags with the source so events start
	// landing before the program draws its first frame.
	for _, c := range caches {
		c.Value()
	}
	if st, ok := src.(*snap.Store); ok {
		st.Replay()
	}

	_, err = tea.NewProgram(model, tea.WithContext(ctx)).Run()
	return err
}

// WatchCommandBuilder constructs the cli.Command for "watch", wiring
// metadata, flags, and action/validator handlers.
func WatchCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "live variable view",
		UsageText: `varctl watch [Project/Variable ...] [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "passphrase",
				Usage: "sealed snapshot passphrase",
			},
			NewSourceFlag("watch", meta.Config.Source),
			NewTagsFlag("watch", meta.Config.Source),
			NewLangFlag("watch", meta.Config.Source),
			NewCatalogFlag("watch", meta.Config.Source),
			projectFlag,
			tldrFlag,
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := WatchCommandValidator(ctx, c); err != nil {
				return err
			}
			return WatchCommandAction(ctx, c)
		},
	}
}

// WatchCommandValidator performs validation for "watch" and delegates to
// GlobalFlagsValidator.
func WatchCommandValidator(ctx context.Context, cmd *cli.Command) error {
	return GlobalFlagsValidator(ctx, cmd)
}
