// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"reflect"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/varctl/varctlgo/internal/meta"
)

// LangRow describes one language available in the label catalog.
type LangRow struct {
	Language string `json:"language"`
	Current  bool   `json:"current"`
}

// LabelRow is one label key resolved in one language.
type LabelRow struct {
	Language string `json:"language"`
	Key      string `json:"key"`
	Label    string `json:"label"`
}

// LangsCommandAction is the action handler for the "langs" subcommand.
// Without arguments it lists the catalog's languages; given label keys it
// resolves each key in every language.
func LangsCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "langs") {
		return nil
	}

	keys := cmd.Args().Slice()

	if len(keys) == 0 {
		if DumpSchemaIfRequested(cmd, reflect.TypeOf(LangRow{})) {
			return nil
		}
	} else {
		if DumpSchemaIfRequested(cmd, reflect.TypeOf(LabelRow{})) {
			return nil
		}
	}

	cat := NewCatalog(cmd)
	if cat == nil {
		return fmt.Errorf("no label catalog at %s", cmd.String("catalog"))
	}

	if len(keys) == 0 {
		attrs := BuildAttrs(cmd, "language", "current")
		log.Debugf("attrs: %v", attrs)

		var rows []LangRow
		for _, lang := range cat.Languages() {
			rows = append(rows, LangRow{
				Language: lang,
				Current:  lang == cat.Language(),
			})
		}
		return EmitJSONSlice(rows, attrs, cmd)
	}

	attrs := BuildAttrs(cmd, "language", "key", "label")
	log.Debugf("attrs: %v", attrs)

	var rows []LabelRow
	for _, lang := range cat.Languages() {
		if err := cat.SetLanguage(lang); err != nil {
			return err
		}
		for _, key := range keys {
			rows = append(rows, LabelRow{
				Language: lang,
				Key:      key,
				Label:    cat.Translate(key),
			})
		}
	}
	return EmitJSONSlice(rows, attrs, cmd)
}

// LangsCommandBuilder constructs the cli.Command for "langs", wiring
// metadata, flags, and action/validator handlers.
func LangsCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "langs",
		Usage:     "label catalog query",
		UsageText: `varctl langs [LabelKey ...] [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			NewLangFlag("langs", meta.Config.Source),
			NewCatalogFlag("langs", meta.Config.Source),
			tldrFlag,
			schemaFlag,
		}, NewGlobalFlags("langs")...),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := LangsCommandValidator(ctx, c); err != nil {
				return err
			}
			return LangsCommandAction(ctx, c)
		},
	}
}

// LangsCommandValidator performs validation for "langs" and delegates to
// GlobalFlagsValidator.
func LangsCommandValidator(ctx context.Context, cmd *cli.Command) error {
	return GlobalFlagsValidator(ctx, cmd)
}
