// Copyright (c) 2025 Steve Taranto staranto@gmail.com.
// SPDX-License-Identifier: Apache-2.0

package varcache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/varctl/varctlgo/internal/i18n"
	"github.com/varctl/varctlgo/internal/signal"
	"github.com/varctl/varctlgo/internal/source"
	"github.com/varctl/varctlgo/internal/value"
)

// fakeSource counts lookups and lets tests fire events by hand.
type fakeSource struct {
	lookups    int
	resolvable bool
	closed     int
	events     signal.Hub[source.Event]
}

func (f *fakeSource) TryLookup(project, variable string) bool {
	f.lookups++
	return f.resolvable
}

func (f *fakeSource) Subscribe(fn func(source.Event)) *signal.HubSub[source.Event] {
	return f.events.Subscribe(fn)
}

func (f *fakeSource) Close() error {
	f.closed++
	return nil
}

func (f *fakeSource) fire(variable string, v value.Value, unit string) {
	f.events.Emit(source.Event{Variable: variable, Value: v, Unit: unit})
}

// fakeResolver is a static table with a hand-fired language signal.
type fakeResolver struct {
	table       map[string]string
	langChanged signal.Signal
}

func (f *fakeResolver) Translate(key string) string {
	if s, ok := f.table[key]; ok {
		return s
	}
	return key
}

func (f *fakeResolver) Subscribe(fn func()) *signal.Sub {
	return f.langChanged.Subscribe(fn)
}

func newTank(src *fakeSource, r *fakeResolver) *Cache {
	// A typed nil *fakeResolver must become a nil interface, or New's
	// resolver != nil check sees it as present.
	var resolver i18n.Resolver
	if r != nil {
		resolver = r
	}
	return New(src, resolver, "Plant1", "TankLevel", "lbl.tanklevel")
}

func TestConstructionAttemptsRegistration(t *testing.T) {
	src := &fakeSource{resolvable: true}
	c := newTank(src, nil)
	defer c.Close()

	assert.Equal(t, 1, src.lookups)
	assert.False(t, c.Populated())
	assert.True(t, c.Value().IsNone(), "registration warms the provider, it does not populate")
}

func TestLazyFetch(t *testing.T) {
	src := &fakeSource{resolvable: false}
	c := newTank(src, nil)
	defer c.Close()

	// Construction tried once and failed.
	assert.Equal(t, 1, src.lookups)

	// Each read while unresolved retries exactly once.
	assert.True(t, c.Value().IsNone())
	assert.Equal(t, 2, src.lookups)

	// Now the provider can resolve the pair.
	src.resolvable = true
	assert.True(t, c.Value().IsNone(), "lookup success alone does not populate")
	assert.Equal(t, 3, src.lookups)

	// Registered: further reads stop invoking the lookup.
	_ = c.Value()
	_ = c.Value()
	assert.Equal(t, 3, src.lookups)

	// The reading arrives through the event path.
	src.fire("TankLevel", value.Number(42.5), "L")
	assert.Equal(t, value.Number(42.5), c.Value())
	assert.True(t, c.Populated())
	assert.Equal(t, 3, src.lookups)
}

func TestUnitDedup(t *testing.T) {
	src := &fakeSource{resolvable: true}
	c := newTank(src, nil)
	defer c.Close()

	unitFired := 0
	sub := c.OnUnitChanged(func() { unitFired++ })
	defer sub.Close()

	src.fire("TankLevel", value.Number(1), "L")
	src.fire("TankLevel", value.Number(2), "L")

	assert.Equal(t, 1, unitFired, "initial default->L only")
	assert.Equal(t, "L", c.Unit())

	src.fire("TankLevel", value.Number(3), "mL")
	assert.Equal(t, 2, unitFired)
	assert.Equal(t, "mL", c.Unit())
}

func TestValueNoDedup(t *testing.T) {
	src := &fakeSource{resolvable: true}
	c := newTank(src, nil)
	defer c.Close()

	valueFired := 0
	sub := c.OnValueChanged(func() { valueFired++ })
	defer sub.Close()

	src.fire("TankLevel", value.Number(42.5), "L")
	src.fire("TankLevel", value.Number(42.5), "L")

	assert.Equal(t, 2, valueFired, "identical readings still signal")
}

func TestEventFilter(t *testing.T) {
	src := &fakeSource{resolvable: true}
	c := newTank(src, nil)
	defer c.Close()

	fired := 0
	vs := c.OnValueChanged(func() { fired++ })
	us := c.OnUnitChanged(func() { fired++ })
	defer vs.Close()
	defer us.Close()

	src.fire("OtherVar", value.Number(1), "X")

	assert.Equal(t, 0, fired)
	assert.True(t, c.Value().IsNone())
	assert.Equal(t, "", c.Unit())
	assert.False(t, c.Populated())
}

func TestLabelFallback(t *testing.T) {
	src := &fakeSource{resolvable: true}

	bare := newTank(src, nil)
	defer bare.Close()
	assert.Equal(t, "lbl.tanklevel", bare.Label())

	r := &fakeResolver{table: map[string]string{"lbl.tanklevel": "Tank Level"}}
	resolved := newTank(src, r)
	defer resolved.Close()
	assert.Equal(t, "Tank Level", resolved.Label())
}

func TestLabelRecomputedPerRead(t *testing.T) {
	src := &fakeSource{resolvable: true}
	r := &fakeResolver{table: map[string]string{"lbl.tanklevel": "Tank Level"}}
	c := newTank(src, r)
	defer c.Close()

	labelFired := 0
	sub := c.OnLabelChanged(func() { labelFired++ })
	defer sub.Close()

	r.table["lbl.tanklevel"] = "Tankfüllstand"
	r.langChanged.Emit()

	assert.Equal(t, 1, labelFired)
	assert.Equal(t, "Tankfüllstand", c.Label(), "label reflects the resolver, not a stored copy")
}

func TestSetValueDirect(t *testing.T) {
	src := &fakeSource{resolvable: true}
	c := newTank(src, nil)
	defer c.Close()

	fired := 0
	sub := c.OnValueChanged(func() { fired++ })
	defer sub.Close()

	c.SetValue(value.String("override"))
	c.SetValue(value.String("override"))

	assert.Equal(t, 2, fired)
	assert.Equal(t, value.String("override"), c.Value())
	assert.True(t, c.Populated())
}

func TestFormattedValue(t *testing.T) {
	src := &fakeSource{resolvable: true}
	c := New(src, nil, "Plant1", "TankLevel", "lbl.tanklevel", WithDisplayFormat("%.1f"))
	defer c.Close()

	assert.Equal(t, "-", c.FormattedValue())
	c.SetValue(value.Number(42.527))
	assert.Equal(t, "42.5", c.FormattedValue())

	c.SetDisplayFormat("%.3f")
	assert.Equal(t, "42.527", c.FormattedValue())
	assert.Equal(t, "%.3f", c.DisplayFormat())
}

func TestClose(t *testing.T) {
	src := &fakeSource{resolvable: true}
	r := &fakeResolver{table: map[string]string{}}
	c := newTank(src, r)

	fired := 0
	sub := c.OnValueChanged(func() { fired++ })
	defer sub.Close()

	c.Close()
	c.Close() // idempotent

	assert.Equal(t, 0, src.closed, "unowned provider stays open")
	assert.Equal(t, 0, src.events.Len(), "event subscription released")
	assert.Equal(t, 0, r.langChanged.Len(), "language subscription released")

	src.fire("TankLevel", value.Number(1), "L")
	assert.Equal(t, 0, fired)
	assert.False(t, c.Populated())
}

func TestCloseOwnedSource(t *testing.T) {
	src := &fakeSource{resolvable: true}
	c := New(src, nil, "Plant1", "TankLevel", "lbl.tanklevel", OwnSource())

	c.Close()
	c.Close()
	assert.Equal(t, 1, src.closed)
}

func TestScenario(t *testing.T) {
	src := &fakeSource{resolvable: true}
	r := &fakeResolver{table: map[string]string{"lbl.tanklevel": "Tank Level"}}
	c := newTank(src, r)
	defer c.Close()

	assert.Equal(t, "Tank Level", c.Label())

	var valueFired, unitFired, labelFired int
	vs := c.OnValueChanged(func() { valueFired++ })
	us := c.OnUnitChanged(func() { unitFired++ })
	ls := c.OnLabelChanged(func() { labelFired++ })
	defer vs.Close()
	defer us.Close()
	defer ls.Close()

	src.fire("TankLevel", value.Number(42.5), "L")
	assert.Equal(t, value.Number(42.5), c.Value())
	assert.Equal(t, "L", c.Unit())
	assert.Equal(t, 1, valueFired)
	assert.Equal(t, 1, unitFired)

	src.fire("OtherVar", value.Number(1), "X")
	assert.Equal(t, value.Number(42.5), c.Value())
	assert.Equal(t, "L", c.Unit())
	assert.Equal(t, 1, valueFired)
	assert.Equal(t, 1, unitFired)

	r.langChanged.Emit()
	assert.Equal(t, 1, labelFired)
	assert.Equal(t, "Tank Level", c.Label())
}
