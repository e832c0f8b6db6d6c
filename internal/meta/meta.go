// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package meta

import (
	"context"

	"github.com/varctl/varctlgo/internal/config"
)

// TagSpec carries the tag-definition context shared by most commands: the
// tags.hcl path and the project the invocation is scoped to.  An empty
// Project means all projects.
type TagSpec struct {
	TagsPath string
	Project  string
}

// Meta are the meta-options that are available on all or most commands.
type Meta struct {
	Args    []string
	Config  config.Type
	Context context.Context
	TagSpec
	StartingDir string
}
