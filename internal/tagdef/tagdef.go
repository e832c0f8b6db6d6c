// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package tagdef loads tag definition files.  A tags.hcl declares which
// plant variables the operator cares about, grouped by project:
//
//	project "Plant1" {
//	  tag "TankLevel" {
//	    label  = "lbl.tanklevel"
//	    unit   = "L"
//	    format = "%.1f"
//	  }
//	}
//
// Attribute expressions may reference ${project}, eg.
// label = "lbl.${project}.tanklevel".
package tagdef

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Def is one resolved tag definition.
type Def struct {
	Project       string `json:"project"`
	Variable      string `json:"variable"`
	LabelKey      string `json:"label"`
	Unit          string `json:"unit,omitempty"`
	DisplayFormat string `json:"format,omitempty"`
	StringFormat  string `json:"string_format,omitempty"`
}

type rootHCL struct {
	Projects []projectHCL `hcl:"project,block"`
}

type projectHCL struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type tagsHCL struct {
	Tags []tagHCL `hcl:"tag,block"`
}

type tagHCL struct {
	Name         string `hcl:"name,label"`
	Label        string `hcl:"label,optional"`
	Unit         string `hcl:"unit,optional"`
	Format       string `hcl:"format,optional"`
	StringFormat string `hcl:"string_format,optional"`
}

// Load parses path and resolves every tag.  A tag without an explicit
// label falls back to "lbl." + the lowercased variable name.
func Load(path string) ([]Def, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", path, diags)
	}

	var root rootHCL
	if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", path, diags)
	}

	var defs []Def
	for _, p := range root.Projects {
		if p.Name == "" {
			return nil, fmt.Errorf("%s: project block without a name", path)
		}

		// Tag attributes get the enclosing project name as a variable.
		ctx := &hcl.EvalContext{
			Variables: map[string]cty.Value{
				"project": cty.StringVal(p.Name),
			},
		}

		var tags tagsHCL
		if diags := gohcl.DecodeBody(p.Body, ctx, &tags); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode project %q: %w", p.Name, diags)
		}

		for _, t := range tags.Tags {
			label := t.Label
			if label == "" {
				label = "lbl." + strings.ToLower(t.Name)
			}
			defs = append(defs, Def{
				Project:       p.Name,
				Variable:      t.Name,
				LabelKey:      label,
				Unit:          t.Unit,
				DisplayFormat: t.Format,
				StringFormat:  t.StringFormat,
			})
		}
	}

	return defs, nil
}

// Find returns the definition for (project, variable), if declared.
func Find(defs []Def, project, variable string) (Def, bool) {
	for _, d := range defs {
		if d.Project == project && d.Variable == variable {
			return d, true
		}
	}
	return Def{}, false
}

// ForProject filters defs down to one project.  An empty project matches
// everything.
func ForProject(defs []Def, project string) []Def {
	if project == "" {
		return defs
	}
	var out []Def
	for _, d := range defs {
		if d.Project == project {
			out = append(out, d)
		}
	}
	return out
}
