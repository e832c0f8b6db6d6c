// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"reflect"
	"time"

	"github.com/apex/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/varctl/varctlgo/internal/meta"
	"github.com/varctl/varctlgo/internal/source/snap"
)

// GetCommandAction is the action handler for the "get" subcommand. It builds
// caches for the requested tags, lets the source populate them, and emits
// one row per tag per common flags.
func GetCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "get") {
		return nil
	}

	// Bail out early if we're just dumping the schema.
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(Row{})) {
		return nil
	}

	attrs := BuildAttrs(cmd, "project", "variable", "label", "value", "unit")
	log.Debugf("attrs: %v", attrs)

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

	caches := BuildCaches(src, NewCatalog(cmd), defs)
	defer CloseCaches(caches)

	if mgr != nil {
		if err := mgr.Start(); err != nil {
			return err
		}
		defer mgr.Stop()
	}

	// A snapshot store has no run loop.  Replaying pushes its readings
	// through the subscriptions the caches just registered.
	if st, ok := src.(*snap.Store); ok {
		st.Replay()
	}

	wait := time.Duration(cmd.Int("wait")) * time.Millisecond
	if !WaitPopulated(ctx, caches, wait) {
		log.Warnf("not all tags reported within %v", wait)
	}

	if err := EmitJSONSlice(CacheRows(caches), attrs, cmd); err != nil {
		return err
	}

	return nil
}

// GetCommandBuilder constructs the cli.Command for "get", wiring metadata,
// flags, and action/validator handlers.
func GetCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "read current variable values",
		UsageText: `varctl get [Project/Variable ...] [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:  "wait",
				Usage: "milliseconds to wait for the source to report",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("get.wait", altsrc.StringSourcer(meta.Config.Source)),
					yaml.YAML("wait", altsrc.StringSourcer(meta.Config.Source)),
				),
				Value: 3000,
			},
			&cli.StringFlag{
				Name:  "passphrase",
				Usage: "sealed snapshot passphrase",
			},
			NewSourceFlag("get", meta.Config.Source),
			NewTagsFlag("get", meta.Config.Source),
			NewLangFlag("get", meta.Config.Source),
			NewCatalogFlag("get", meta.Config.Source),
			projectFlag,
			tldrFlag,
			schemaFlag,
		}, NewGlobalFlags("get")...),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := GetCommandValidator(ctx, c); err != nil {
				return err
			}
			return GetCommandAction(ctx, c)
		},
	}
}

// GetCommandValidator performs validation for "get" and delegates to
// GlobalFlagsValidator.
func GetCommandValidator(ctx context.Context, cmd *cli.Command) error {
	return GlobalFlagsValidator(ctx, cmd)
}
