// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"reflect"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/varctl/varctlgo/internal/attrs"
	"github.com/varctl/varctlgo/internal/crypt"
	"github.com/varctl/varctlgo/internal/i18n"
	"github.com/varctl/varctlgo/internal/meta"
	"github.com/varctl/varctlgo/internal/output"
	"github.com/varctl/varctlgo/internal/source"
	"github.com/varctl/varctlgo/internal/source/feed"
	"github.com/varctl/varctlgo/internal/source/sim"
	"github.com/varctl/varctlgo/internal/source/snap"
	"github.com/varctl/varctlgo/internal/tagdef"
	"github.com/varctl/varctlgo/internal/varcache"
)

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr varctl <subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "varctl", subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// DumpSchemaIfRequested prints the JSON schema for the provided type when
// --schema is set, and returns true if it handled the request.
func DumpSchemaIfRequested(cmd *cli.Command, t reflect.Type) bool {
	if cmd.Bool("schema") {
		output.DumpSchema("", t)
		return true
	}
	return false
}

// BuildAttrs constructs an AttrList with defaults and optional extras from
// --attrs, then applies the global transform spec.
func BuildAttrs(cmd *cli.Command, defaults ...string) (al attrs.AttrList) {
	//nolint:errcheck
	{
		for _, d := range defaults {
			al.Set(d)
		}
		if extras := cmd.String("attrs"); extras != "" {
			al.Set(extras)
		}
		al.SetGlobalTransformSpec()
	}
	return
}

// EmitJSONSlice marshals a slice as JSON and passes it to the common
// output routine.
func EmitJSONSlice(results any, al attrs.AttrList, cmd *cli.Command) error {
	var raw bytes.Buffer
	if err := json.NewEncoder(&raw).Encode(results); err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	output.SliceDiceSpit(raw, al, cmd, "", os.Stdout, nil)
	return nil
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// Row is the flat reading shape every query-style command emits.  One row
// per cached variable, label already resolved in the active language.
type Row struct {
	Project   string `json:"project"`
	Variable  string `json:"variable"`
	Label     string `json:"label"`
	Value     any    `json:"value"`
	Formatted string `json:"formatted"`
	Unit      string `json:"unit"`
	Populated bool   `json:"populated"`
}

// CacheRows snapshots the caches into emit-ready rows.  Reading Value/Label
// here is what triggers the lazy source registration on first touch.
func CacheRows(caches []*varcache.Cache) []Row {
	rows := make([]Row, 0, len(caches))
	for _, c := range caches {
		rows = append(rows, Row{
			Project:   c.Project(),
			Variable:  c.Variable(),
			Label:     c.Label(),
			Value:     c.Value().Interface(),
			Formatted: c.FormattedValue(),
			Unit:      c.Unit(),
			Populated: c.Populated(),
		})
	}
	return rows
}

// LoadDefs loads the tag definition file named by --tags and scopes it to
// the project from --project (or the positional spec captured in meta).
func LoadDefs(cmd *cli.Command, m meta.Meta) ([]tagdef.Def, error) {
	path := cmd.String("tags")
	if path == "" {
		path = m.TagsPath
	}

	defs, err := tagdef.Load(path)
	if err != nil {
		return nil, err
	}

	project := cmd.String("project")
	if project == "" {
		project = m.Project
	}
	defs = tagdef.ForProject(defs, project)
	if len(defs) == 0 {
		return nil, fmt.Errorf("no tags defined in %s for project %q", path, project)
	}

	return defs, nil
}

// FilterDefs narrows defs to the positional tag specs.  A spec is either
// "Project/Variable" or a bare "Variable" that matches in any project.  No
// specs means everything.
func FilterDefs(defs []tagdef.Def, specs []string) ([]tagdef.Def, error) {
	if len(specs) == 0 {
		return defs, nil
	}

	var picked []tagdef.Def
	for _, spec := range specs {
		project, variable, scoped := strings.Cut(spec, "/")
		if !scoped {
			project, variable = "", spec
		}

		found := false
		for _, d := range defs {
			if d.Variable != variable {
				continue
			}
			if project != "" && d.Project != project {
				continue
			}
			picked = append(picked, d)
			found = true
		}
		if !found {
			return nil, fmt.Errorf("tag %q is not defined", spec)
		}
	}

	return picked, nil
}

// NewCatalog loads the label catalog per --catalog/--lang.  A missing
// catalog directory is not fatal; labels degrade to their keys.
func NewCatalog(cmd *cli.Command) *i18n.Catalog {
	dir := cmd.String("catalog")
	cat, err := i18n.Load(dir, cmd.String("lang"))
	if err != nil {
		log.Debugf("no label catalog at %s: %v", dir, err)
		return nil
	}
	return cat
}

// OpenSource builds the plant source named by the --source spec.  sim and
// feed sources come wrapped in a Manager that owns their run loop; a snap
// store is inert, so the returned Manager is nil.
func OpenSource(ctx context.Context, cmd *cli.Command, defs []tagdef.Def) (source.Source, *source.Manager, error) {
	spec := cmd.String("source")
	kind, rest, _ := strings.Cut(spec, ":")

	switch kind {
	case "sim":
		var interval time.Duration
		if rest != "" {
			var err error
			if interval, err = time.ParseDuration(rest); err != nil {
				return nil, nil, fmt.Errorf("bad sim interval %q: %w", rest, err)
			}
		}
		points := make([]sim.Point, 0, len(defs))
		for _, d := range defs {
			points = append(points, sim.Point{
				Project:  d.Project,
				Variable: d.Variable,
				Unit:     d.Unit,
				Base:     50,
				Jitter:   5,
			})
		}
		s := sim.New(interval, 0, points...)
		return s, source.NewManager(s, 3*interval), nil

	case "feed":
		project := cmd.String("project")
		if project == "" && len(defs) > 0 {
			project = defs[0].Project
		}
		f, err := feed.New(rest, project)
		if err != nil {
			return nil, nil, err
		}
		return f, source.NewManager(f, 0), nil

	case "snap":
		raw, err := snap.Fetch(ctx, rest, passphraseFn(cmd))
		if err != nil {
			return nil, nil, err
		}
		st, err := snap.New(raw)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	}

	return nil, nil, fmt.Errorf("unknown source spec %q", spec)
}

// passphraseFn resolves the snapshot passphrase: flag first, then env,
// finally an interactive prompt.
func passphraseFn(cmd *cli.Command) func() (string, error) {
	return func() (string, error) {
		if p := cmd.String("passphrase"); p != "" {
			return p, nil
		}
		if p := os.Getenv("VARCTL_PASSPHRASE"); p != "" {
			return p, nil
		}
		return crypt.GetPassphrase()
	}
}

// BuildCaches constructs one cache per tag definition over the shared
// source and resolver.
func BuildCaches(src source.Source, cat *i18n.Catalog, defs []tagdef.Def, opts ...varcache.Option) []*varcache.Cache {
	// A nil *Catalog must become a nil interface or the caches would see a
	// resolver that panics on use.
	var resolver i18n.Resolver
	if cat != nil {
		resolver = cat
	}

	caches := make([]*varcache.Cache, 0, len(defs))
	for _, d := range defs {
		o := make([]varcache.Option, len(opts), len(opts)+2)
		copy(o, opts)
		if d.DisplayFormat != "" {
			o = append(o, varcache.WithDisplayFormat(d.DisplayFormat))
		}
		if d.StringFormat != "" {
			o = append(o, varcache.WithStringFormat(d.StringFormat))
		}
		caches = append(caches, varcache.New(src, resolver, d.Project, d.Variable, d.LabelKey, o...))
	}
	return caches
}

// CloseCaches tears the caches down, detaching their source and resolver
// subscriptions.
func CloseCaches(caches []*varcache.Cache) {
	for _, c := range caches {
		c.Close()
	}
}

// WaitPopulated polls until every cache holds a value or the timeout lapses.
// Reports whether all caches populated in time.
func WaitPopulated(ctx context.Context, caches []*varcache.Cache, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		all := true
		for _, c := range caches {
			// Value() retries the source lookup for tags that failed to
			// register on an earlier pass.
			c.Value()
			if !c.Populated() {
				all = false
			}
		}
		if all {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		time.Sleep(25 * time.Millisecond)
	}
}

// QueryCommandBuilder is a helper that constructs a cli.Command for query
// subcommands (get, tq, langs, snap) using a consistent pattern.
// It accepts the command name, usage text, optional UsageText, custom flags,
// the action handler, and meta. The builder automatically wires metadata,
// adds tldr/schema flags, applies global flags, and sets up validators.
type QueryCommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (qcb *QueryCommandBuilder) Build() *cli.Command {
	return &cli.Command{
		Name:      qcb.Name,
		Usage:     qcb.Usage,
		UsageText: qcb.UsageText,
		Metadata: map[string]any{
			"meta": qcb.Meta,
		},
		Flags: append(qcb.Flags, append([]cli.Flag{
			tldrFlag,
			schemaFlag,
		}, NewGlobalFlags(qcb.Name)...)...),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, c)
		},
		Action: qcb.Action,
	}
}

// QueryActionRunner[T] encapsulates the common query action pattern for
// query subcommands. It handles steps 1-4 and 6 (GetMeta, short-circuit
// checks, BuildAttrs, schema dumping, and output emission), with step 5
// (data fetching) provided by FetchFn.
type QueryActionRunner[T any] struct {
	CommandName  string
	SchemaType   reflect.Type
	DefaultAttrs []string
	FetchFn      func(context.Context, *cli.Command) ([]T, error)
}

// Run executes the query action with the provided context and command.
func (qar *QueryActionRunner[T]) Run(
	ctx context.Context,
	cmd *cli.Command,
) error {
	// Step 1: GetMeta + debug.
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Step 2: Short-circuit checks.
	if ShortCircuitTLDR(ctx, cmd, qar.CommandName) {
		return nil
	}
	if DumpSchemaIfRequested(cmd, qar.SchemaType) {
		return nil
	}

	// Step 3: BuildAttrs + debug.
	attrs := BuildAttrs(cmd, qar.DefaultAttrs...)
	log.Debugf("attrs: %v", attrs)

	// Step 4: Fetch data.
	results, err := qar.FetchFn(ctx, cmd)
	if err != nil {
		return err
	}

	// Step 5: Emit + return.
	if err := EmitJSONSlice(results, attrs, cmd); err != nil {
		return err
	}
	return nil
}
