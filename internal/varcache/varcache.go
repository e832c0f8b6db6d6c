// Copyright (c) 2025 Steve Taranto staranto@gmail.com.
// SPDX-License-Identifier: Apache-2.0

package varcache

import (
	"sync"

	"github.com/apex/log"

	"github.com/varctl/varctlgo/internal/i18n"
	"github.com/varctl/varctlgo/internal/signal"
	"github.com/varctl/varctlgo/internal/source"
	"github.com/varctl/varctlgo/internal/value"
)

// Cache is the display-side view of one plant variable.
//
// Identity (project, variable, label key) is fixed at construction.  The
// value is a tagged variant plus an explicit populated flag, so "never
// fetched" is distinguishable from a legitimately absent reading.  Handlers
// are expected to be invoked serially; the internal mutex only protects the
// read-modify steps, signals always fire outside it.
type Cache struct {
	mu sync.Mutex

	project  string
	variable string
	labelKey string

	src        source.Source
	resolver   i18n.Resolver
	ownsSource bool

	val        value.Value
	populated  bool
	registered bool
	unit       string

	displayFormat string
	stringFormat  string

	logctx  *log.Entry
	srcSub  *signal.HubSub[source.Event]
	langSub *signal.Sub
	closed  bool

	valueChanged signal.Signal
	unitChanged  signal.Signal
	labelChanged signal.Signal
}

// Option adjusts cache construction.
type Option func(*Cache)

// OwnSource marks the provider as exclusively owned: Close will close it.
// Without this the provider is merely observed and must be torn down by
// whoever created it.
func OwnSource() Option {
	return func(c *Cache) { c.ownsSource = true }
}

// WithDisplayFormat seeds the display-format hint.
func WithDisplayFormat(f string) Option {
	return func(c *Cache) { c.displayFormat = f }
}

// WithStringFormat seeds the string-format hint.
func WithStringFormat(f string) Option {
	return func(c *Cache) { c.stringFormat = f }
}

// New wires a cache to its collaborators.  It attempts one registration
// lookup immediately; a failed lookup is logged, never returned — the cache
// simply starts unpopulated and retries on the next read.  A nil resolver
// degrades Label to the raw key.
func New(src source.Source, resolver i18n.Resolver, project, variable, labelKey string, opts ...Option) *Cache {
	c := &Cache{
		project:  project,
		variable: variable,
		labelKey: labelKey,
		src:      src,
		resolver: resolver,
		logctx: log.WithFields(log.Fields{
			"project":  project,
			"variable": variable,
		}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.ensureRegistered()

	if src != nil {
		c.srcSub = src.Subscribe(c.onVariableChanged)
	}
	if resolver != nil {
		c.langSub = resolver.Subscribe(c.onLanguageChanged)
	}

	return c
}

// Project returns the owning project name.
func (c *Cache) Project() string { return c.project }

// Variable returns the plant variable name.
func (c *Cache) Variable() string { return c.variable }

// LabelKey returns the translation key.
func (c *Cache) LabelKey() string { return c.labelKey }

// ensureRegistered performs the lazy registration lookup.  Once a lookup
// succeeds the cache stops asking — the actual reading arrives via the
// event stream, the lookup only warms the provider's registration.  A
// failed lookup leaves the cache unregistered so the next read retries.
func (c *Cache) ensureRegistered() {
	c.mu.Lock()
	if c.populated || c.registered || c.closed || c.src == nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// Lookup latency belongs to the provider; don't hold the lock across it.
	if c.src.TryLookup(c.project, c.variable) {
		c.mu.Lock()
		c.registered = true
		c.mu.Unlock()
		c.logctx.Debug("registered with provider")
		return
	}
	c.logctx.Warnf("failed to resolve %s/%s", c.project, c.variable)
}

// Value returns the cached reading, registering lazily when none has
// arrived yet.  The result may still be absent — check Populated or
// Value.IsNone.
func (c *Cache) Value() value.Value {
	c.mu.Lock()
	populated := c.populated
	c.mu.Unlock()

	if !populated {
		c.ensureRegistered()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.val
}

// Populated reports whether any reading has ever been stored.
func (c *Cache) Populated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.populated
}

// SetValue overwrites the reading and always fires ValueChanged, even for
// an identical value: observers treat the signal as "a fresh reading
// arrived", not "the reading differs".
func (c *Cache) SetValue(v value.Value) {
	c.mu.Lock()
	c.val = v
	c.populated = true
	c.mu.Unlock()

	c.valueChanged.Emit()
}

// Unit returns the cached unit string.
func (c *Cache) Unit() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unit
}

// setUnit applies change-only dedup: repeated identical unit reports are
// swallowed, only an actual switch fires UnitChanged.
func (c *Cache) setUnit(u string) {
	c.mu.Lock()
	if c.unit == u {
		c.mu.Unlock()
		return
	}
	c.unit = u
	c.mu.Unlock()

	c.unitChanged.Emit()
}

// Label resolves the localized label on every read so it always reflects
// the active language.  Without a resolver it degrades to the raw key.
func (c *Cache) Label() string {
	if c.resolver == nil {
		return c.labelKey
	}
	return c.resolver.Translate(c.labelKey)
}

// DisplayFormat returns the display-format hint.
func (c *Cache) DisplayFormat() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayFormat
}

// SetDisplayFormat stores a free-form display-format hint.
func (c *Cache) SetDisplayFormat(f string) {
	c.mu.Lock()
	c.displayFormat = f
	c.mu.Unlock()
}

// StringFormat returns the string-format hint.
func (c *Cache) StringFormat() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stringFormat
}

// SetStringFormat stores a free-form string-format hint.
func (c *Cache) SetStringFormat(f string) {
	c.mu.Lock()
	c.stringFormat = f
	c.mu.Unlock()
}

// FormattedValue renders the reading using the display-format hint.
func (c *Cache) FormattedValue() string {
	c.mu.Lock()
	v, hint := c.val, c.displayFormat
	c.mu.Unlock()
	return v.Format(hint)
}

// OnValueChanged subscribes fn to the value-changed signal.
func (c *Cache) OnValueChanged(fn func()) *signal.Sub {
	return c.valueChanged.Subscribe(fn)
}

// OnUnitChanged subscribes fn to the unit-changed signal.
func (c *Cache) OnUnitChanged(fn func()) *signal.Sub {
	return c.unitChanged.Subscribe(fn)
}

// OnLabelChanged subscribes fn to the label-changed signal.
func (c *Cache) OnLabelChanged(fn func()) *signal.Sub {
	return c.labelChanged.Subscribe(fn)
}

// onVariableChanged is the provider event handler.  The provider broadcasts
// every point on one stream, so events for other variables are expected and
// dropped without logging.  On a match the value lands first, then the
// unit, so a value-changed observer always sees a unit no newer than the
// value it reads.
func (c *Cache) onVariableChanged(ev source.Event) {
	if ev.Variable != c.variable {
		return
	}
	c.SetValue(ev.Value)
	c.setUnit(ev.Unit)
}

func (c *Cache) onLanguageChanged() {
	// The label is recomputed by readers, nothing to store here.
	c.labelChanged.Emit()
}

// Close releases both event subscriptions, the provider when owned, and the
// diagnostic context.  Idempotent; teardown errors are best-effort.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	if c.srcSub != nil {
		c.srcSub.Close()
	}
	if c.langSub != nil {
		c.langSub.Close()
	}
	if c.ownsSource && c.src != nil {
		if err := c.src.Close(); err != nil {
			c.logctx.WithError(err).Debug("provider close failed")
		}
	}
	c.logctx.Debug("cache closed")
}
