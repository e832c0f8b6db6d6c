// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/apex/log"
	humanize "github.com/dustin/go-humanize"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/varctl/varctlgo/internal/meta"
	"github.com/varctl/varctlgo/internal/recorder"
	"github.com/varctl/varctlgo/internal/source/snap"
)

// RecordingRow describes one recording file for ls output.
type RecordingRow struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
	Age      string `json:"age"`
}

// RecordRunCommandAction records one variable to a CSV file until the
// duration lapses or the process is interrupted.
func RecordRunCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "record") {
		return nil
	}

	defs, err := LoadDefs(cmd, m)
	if err != nil {
		return err
	}
	specs := cmd.Args().Slice()
	if len(specs) != 1 {
		return fmt.Errorf("record run wants exactly one Project/Variable, got %d", len(specs))
	}
	defs, err = FilterDefs(defs, specs)
	if err != nil {
		return err
	}
	if len(defs) != 1 {
		return fmt.Errorf("%q matches %d tags, narrow it with Project/Variable", specs[0], len(defs))
	}

	src, mgr, err := OpenSource(ctx, cmd, defs)
	if err != nil {
		return err
	}
	defer src.Close()

	caches := BuildCaches(src, NewCatalog(cmd), defs)
	defer CloseCaches(caches)

	rec := recorder.New(caches[0],
		cmd.String("dir"),
		time.Duration(cmd.Int("interval"))*time.Millisecond)
	if err := rec.Start(); err != nil {
		return err
	}
	defer rec.Stop() //nolint:errcheck

	if mgr != nil {
		if err := mgr.Start(); err != nil {
			return err
		}
		defer mgr.Stop()
	}
	if st, ok := src.(*snap.Store); ok {
		st.Replay()
	}

	st := rec.Status()
	fmt.Fprintf(os.Stdout, "recording %s/%s to %s\n",
		caches[0].Project(), caches[0].Variable(), st.File)

	dur := time.Duration(cmd.Int("for")) * time.Millisecond
	if dur <= 0 {
		<-ctx.Done()
	} else {
		select {
		case <-ctx.Done():
		case <-time.After(dur):
		}
	}

	if err := rec.Stop(); err != nil {
		return err
	}
	st = rec.Status()
	fmt.Fprintf(os.Stdout, "wrote %d records\n", st.Records)

	return nil
}

// RecordLsCommandAction lists recording files per common flags.
func RecordLsCommandAction(ctx context.Context, cmd *cli.Command) error {
	runner := &QueryActionRunner[RecordingRow]{
		CommandName:  "record",
		SchemaType:   reflect.TypeOf(RecordingRow{}),
		DefaultAttrs: []string{"name", "size", "age"},
		FetchFn: func(ctx context.Context, cmd *cli.Command) ([]RecordingRow, error) {
			dir := cmd.String("dir")
			names, err := recorder.ListFiles(dir)
			if err != nil {
				return nil, err
			}

			var rows []RecordingRow
			for _, name := range names {
				row := RecordingRow{Name: name}
				if fi, err := os.Stat(filepath.Join(dir, name)); err == nil {
					row.Size = fi.Size()
					row.Modified = fi.ModTime().UTC().Format(time.RFC3339)
					row.Age = humanize.Time(fi.ModTime())
				}
				rows = append(rows, row)
			}
			return rows, nil
		},
	}
	return runner.Run(ctx, cmd)
}

// RecordTailCommandAction prints the trailing lines of the recordings
// matched by the positional specs.
func RecordTailCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "record") {
		return nil
	}

	dir := cmd.String("dir")
	names, err := recorder.Find(dir, cmd.Args().Slice()...)
	if err != nil {
		return err
	}

	for _, name := range names {
		lines, err := recorder.Tail(dir, name, cmd.Int("lines"))
		if err != nil {
			return err
		}
		if len(names) > 1 {
			fmt.Fprintf(os.Stdout, "==> %s <==\n", name)
		}
		for _, line := range lines {
			fmt.Fprintln(os.Stdout, line)
		}
	}

	return nil
}

// RecordCommandBuilder constructs the cli.Command for "record" and its
// run/ls/tail subcommands.
func RecordCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	dirFlag := &cli.StringFlag{
		Name:  "dir",
		Usage: "recordings directory",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("VARCTL_RECORD_DIR"),
			yaml.YAML("record.dir", altsrc.StringSourcer(meta.Config.Source)),
		),
		Value: "recordings",
	}

	return &cli.Command{
		Name:      "record",
		Usage:     "record variable readings to CSV",
		UsageText: `varctl record (run|ls|tail) [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "record one variable",
				UsageText: `varctl record run Project/Variable [options]`,
				Metadata: map[string]any{
					"meta": meta,
				},
				Flags: []cli.Flag{
					dirFlag,
					&cli.IntFlag{
						Name:  "interval",
						Usage: "minimum milliseconds between records",
						Sources: cli.NewValueSourceChain(
							yaml.YAML("record.interval", altsrc.StringSourcer(meta.Config.Source)),
						),
						Value: 0,
					},
					&cli.IntFlag{
						Name:  "for",
						Usage: "milliseconds to record; 0 runs until interrupted",
						Value: 0,
					},
					&cli.StringFlag{
						Name:  "passphrase",
						Usage: "sealed snapshot passphrase",
					},
					NewSourceFlag("record", meta.Config.Source),
					NewTagsFlag("record", meta.Config.Source),
					projectFlag,
					tldrFlag,
				},
				Action: RecordRunCommandAction,
			},
			{
				Name:      "ls",
				Usage:     "list recordings",
				UsageText: `varctl record ls [options]`,
				Metadata: map[string]any{
					"meta": meta,
				},
				Flags: append([]cli.Flag{
					dirFlag,
					tldrFlag,
					schemaFlag,
				}, NewGlobalFlags("record")...),
				Action: RecordLsCommandAction,
			},
			{
				Name:      "tail",
				Usage:     "print trailing records",
				UsageText: `varctl record tail [FileSpec ...] [options]`,
				Metadata: map[string]any{
					"meta": meta,
				},
				Flags: []cli.Flag{
					dirFlag,
					&cli.IntFlag{
						Name:    "lines",
						Aliases: []string{"n"},
						Usage:   "lines to print per recording",
						Value:   0,
					},
					tldrFlag,
				},
				Action: RecordTailCommandAction,
			},
		},
	}
}
