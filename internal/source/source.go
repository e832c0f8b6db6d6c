// Copyright (c) 2025 Steve Taranto staranto@gmail.com.
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"

	"github.com/varctl/varctlgo/internal/signal"
	"github.com/varctl/varctlgo/internal/value"
)

// Event is a variable-changed report.  Variable is the bare point name; a
// provider serving many points broadcasts all of them on one stream and
// consumers filter by name.
type Event struct {
	Variable string
	Value    value.Value
	Unit     string
}

// Source is the provider contract consumed by varcache.
//
// TryLookup warms the provider's registration for (project, variable) and
// reports whether the pair resolved.  It does not return a value; readings
// always arrive through the event stream.  Providers must deliver events
// serially.
type Source interface {
	TryLookup(project, variable string) bool

	// Subscribe registers fn on the variable-changed stream.  The caller
	// owns the returned handle and must Close it.
	Subscribe(fn func(Event)) *signal.HubSub[Event]

	Close() error
}

// Runner is a Source with a blocking run loop, driven by Manager.
type Runner interface {
	Source

	// Run blocks until ctx is done or the provider fails.
	Run(ctx context.Context) error
}
