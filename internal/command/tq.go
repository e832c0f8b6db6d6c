// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/apex/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/varctl/varctlgo/internal/config"
	"github.com/varctl/varctlgo/internal/hungarian"
	"github.com/varctl/varctlgo/internal/meta"
	"github.com/varctl/varctlgo/internal/output"
	"github.com/varctl/varctlgo/internal/tagdef"
)

// TqCommandAction is the action handler for the "tq" subcommand. It lists
// the tag definitions in scope, supports --tldr/--schema short-circuits,
// and emits results per common flags.
func TqCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "tq") {
		return nil
	}

	// Bail out early if we're just dumping the schema.
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(tagdef.Def{})) {
		return nil
	}

	config.Config.Namespace = "tq"

	attrs := BuildAttrs(cmd, "project", "variable", "label", "unit")
	log.Debugf("attrs: %v", attrs)

	defs, err := LoadDefs(cmd, m)
	if err != nil {
		return err
	}
	defs, err = FilterDefs(defs, cmd.Args().Slice())
	if err != nil {
		return err
	}

	var raw bytes.Buffer
	if err := json.NewEncoder(&raw).Encode(defs); err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	postProcess := func(dataset []map[string]interface{}) error {
		markRedundant(dataset)
		if cmd.Bool("chop") {
			chopPrefix(dataset, "label")
		}
		return nil
	}

	output.SliceDiceSpit(raw, attrs, cmd, "", os.Stdout, postProcess)

	return nil
}

// TqCommandBuilder constructs the cli.Command for "tq", wiring metadata,
// flags, and action/validator handlers.
func TqCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "tq",
		Usage:     "tag definition query",
		UsageText: `varctl tq [Project/Variable ...] [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "chop",
				Usage: "chop common label key prefix",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("tq.chop", altsrc.StringSourcer(meta.Config.Source)),
				),
				Value: false,
			},
			NewTagsFlag("tq", meta.Config.Source),
			projectFlag,
			tldrFlag,
			schemaFlag,
		}, NewGlobalFlags("tq")...),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := TqCommandValidator(ctx, c); err != nil {
				return err
			}
			return TqCommandAction(ctx, c)
		},
	}
}

// TqCommandValidator performs validation for "tq" and delegates to
// GlobalFlagsValidator.
func TqCommandValidator(ctx context.Context, cmd *cli.Command) error {
	return GlobalFlagsValidator(ctx, cmd)
}

// markRedundant tags each row whose variable name repeats a token of its
// project.  Not shown by default; ask for it with -a redundant.
func markRedundant(dataset []map[string]interface{}) {
	for _, row := range dataset {
		project, _ := row["project"].(string)
		variable, _ := row["variable"].(string)
		row["redundant"] = hungarian.IsHungarian(project, variable)
	}
}

// chopPrefix finds common leading dot-delimited segments in the
// given attribute of dataset values. If at least 50% of entries share
// at least 2 common leading segments, those segments (and the trailing dot)
// are removed and replaced with ".. ".
func chopPrefix(dataset []map[string]interface{}, attribute string) {
	if len(dataset) == 0 {
		return
	}

	// Collect all attribute values with their indices.
	type attributeEntry struct {
		idx   int
		value string
	}
	var attributeValues []attributeEntry
	for i, entry := range dataset {
		if val, ok := entry[attribute]; ok {
			if str, ok := val.(string); ok {
				attributeValues = append(attributeValues, attributeEntry{idx: i, value: str})
			}
		}
	}

	if len(attributeValues) == 0 {
		return
	}

	// Calculate the 50% threshold.
	threshold := (len(attributeValues) + 1) / 2

	// Split each value by dots and find common leading segments.
	type segmentedValue struct {
		idx      int
		value    string
		segments []string
	}
	var segmented []segmentedValue
	maxSegments := 0
	for _, av := range attributeValues {
		segs := strings.Split(av.value, ".")
		segmented = append(segmented, segmentedValue{idx: av.idx, value: av.value, segments: segs})
		if len(segs) > maxSegments {
			maxSegments = len(segs)
		}
	}

	// Find the longest common prefix of segments that appears in at least 50%.
	var commonSegments []string
	for segIdx := 0; segIdx < maxSegments; segIdx++ {
		// Count how many values have a segment at this position and what it is.
		segmentCounts := make(map[string]int)
		for _, sv := range segmented {
			if segIdx < len(sv.segments) {
				segmentCounts[sv.segments[segIdx]]++
			}
		}

		// Find the most common segment at this position.
		var bestSegment string
		var bestCount int
		for seg, count := range segmentCounts {
			if count > bestCount {
				bestSegment = seg
				bestCount = count
			}
		}

		// If this segment appears in at least 50% of values, add it to common.
		if bestCount >= threshold {
			commonSegments = append(commonSegments, bestSegment)
		} else {
			break // Stop if we can't maintain the 50% threshold.
		}
	}

	// If we have at least 2 common segments, strip them from matching entries.
	if len(commonSegments) >= 2 {
		prefixToRemove := strings.Join(commonSegments, ".") + "."
		for _, sv := range segmented {
			if strings.HasPrefix(sv.value, prefixToRemove) {
				dataset[sv.idx][attribute] = ".." + sv.value[len(prefixToRemove):]
			}
		}
	}
}
