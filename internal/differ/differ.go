// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package differ renders the difference between two snapshot documents.
package differ

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// Diff compares exactly two documents and prints a unified-style diff to
// stdout.  Top-level keys named by the --diff_filter flag are dropped
// before comparing; taken_at always differs between snapshots and would
// otherwise drown the signal.
func Diff(ctx context.Context, cmd *cli.Command, docs [][]byte) error {
	if len(docs) != 2 {
		return fmt.Errorf("diff wants exactly 2 snapshots, got %d", len(docs))
	}

	left, err := parse(docs[0])
	if err != nil {
		return err
	}
	right, err := parse(docs[1])
	if err != nil {
		return err
	}

	for _, key := range strings.Split(cmd.String("diff_filter"), ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		delete(left, key)
		delete(right, key)
	}

	leftDoc, _ := json.Marshal(left)
	rightDoc, _ := json.Marshal(right)

	d, err := gojsondiff.New().Compare(leftDoc, rightDoc)
	if err != nil {
		return fmt.Errorf("failed to compare snapshots: %w", err)
	}
	if !d.Modified() {
		return nil
	}

	f := formatter.NewAsciiFormatter(left, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       cmd.Bool("color"),
	})
	out, err := f.Format(d)
	if err != nil {
		return fmt.Errorf("failed to format diff: %w", err)
	}

	fmt.Fprint(os.Stdout, out)
	return nil
}

func parse(doc []byte) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return m, nil
}
