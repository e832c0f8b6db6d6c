// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/apex/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/varctl/varctlgo/internal/config"
	"github.com/varctl/varctlgo/internal/crypt"
	"github.com/varctl/varctlgo/internal/differ"
	"github.com/varctl/varctlgo/internal/meta"
	"github.com/varctl/varctlgo/internal/output"
	"github.com/varctl/varctlgo/internal/source/snap"
)

// SnapCommandAction is the action handler for the "snap" subcommand. It
// fetches snapshot documents (local path or s3://, sealed or plain),
// supports --tldr short-circuit and --diff mode, and emits readings per
// common flags.
func SnapCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "snap") {
		return nil
	}

	config.Config.Namespace = "snap"

	specs := cmd.Args().Slice()

	// Short circuit --diff mode.
	if cmd.Bool("diff") {
		if len(specs) != 2 {
			return fmt.Errorf("--diff wants exactly 2 snapshot specs, got %d", len(specs))
		}
		var docs [][]byte
		for _, spec := range specs {
			doc, err := snap.Fetch(ctx, spec, passphraseFn(cmd))
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return differ.Diff(ctx, cmd, docs)
	}

	if len(specs) != 1 {
		return fmt.Errorf("snap wants exactly 1 snapshot spec, got %d", len(specs))
	}

	doc, err := snap.Fetch(ctx, specs[0], passphraseFn(cmd))
	if err != nil {
		return err
	}

	// --seal re-encrypts the fetched document to a local file instead of
	// rendering it.
	if out := cmd.String("seal"); out != "" {
		passphrase, err := passphraseFn(cmd)()
		if err != nil {
			return err
		}
		sealed, err := crypt.Seal(doc, passphrase)
		if err != nil {
			return err
		}
		return os.WriteFile(out, sealed, 0o600)
	}

	attrs := BuildAttrs(cmd, "project", "variable", "value", "unit", "taken_at")
	log.Debugf("attrs: %v", attrs)

	var raw bytes.Buffer
	raw.Write(doc)

	output.SliceDiceSpit(raw, attrs, cmd, "", os.Stdout, nil)

	return nil
}

// SnapCommandBuilder constructs the cli.Command for "snap", wiring metadata,
// flags, and action/validator handlers.
func SnapCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "snap",
		Usage:     "snapshot query",
		UsageText: `varctl snap SnapSpec [SnapSpec] [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "diff",
				Usage: "find difference between two snapshots",
				Value: false,
			},
			&cli.StringFlag{
				Name:   "diff_filter",
				Hidden: true,
				Sources: cli.NewValueSourceChain(
					yaml.YAML("snap.diff_filter", altsrc.StringSourcer(meta.Config.Source)),
				),
				Value: "taken_at",
			},
			&cli.StringFlag{
				Name:  "passphrase",
				Usage: "sealed snapshot passphrase",
			},
			&cli.StringFlag{
				Name:  "seal",
				Usage: "write the snapshot back out sealed to this path",
			},
			tldrFlag,
		}, NewGlobalFlags("snap")...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := SnapCommandValidator(ctx, cmd); err != nil {
				return err
			}
			return SnapCommandAction(ctx, cmd)
		},
	}
}

// SnapCommandValidator performs validation for "snap" and delegates to
// GlobalFlagsValidator.
func SnapCommandValidator(ctx context.Context, cmd *cli.Command) error {
	return GlobalFlagsValidator(ctx, cmd)
}
