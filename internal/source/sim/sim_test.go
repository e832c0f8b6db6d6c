// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/varctl/varctlgo/internal/source"
)

func newTestSim() *Sim {
	return New(time.Second, 7,
		Point{Project: "Plant1", Variable: "TankLevel", Unit: "L", Base: 40, Jitter: 2},
		Point{Project: "Plant1", Variable: "PumpSpeed", Unit: "rpm", Base: 1450, Jitter: 25},
	)
}

func TestTryLookup(t *testing.T) {
	s := newTestSim()

	assert.True(t, s.TryLookup("Plant1", "TankLevel"))
	assert.False(t, s.TryLookup("Plant1", "NoSuchVar"))
	assert.False(t, s.TryLookup("Plant2", "TankLevel"), "project scopes the lookup")
}

func TestTickBroadcastsOnlyRegistered(t *testing.T) {
	s := newTestSim()
	s.TryLookup("Plant1", "TankLevel")

	var got []source.Event
	sub := s.Subscribe(func(ev source.Event) { got = append(got, ev) })
	defer sub.Close()

	s.Tick()
	s.Tick()

	assert.Len(t, got, 2)
	for _, ev := range got {
		assert.Equal(t, "TankLevel", ev.Variable)
		assert.Equal(t, "L", ev.Unit)
		f, ok := ev.Value.Number()
		assert.True(t, ok)
		assert.InDelta(t, 40, f, 10)
	}
}

func TestTickNoRegistrations(t *testing.T) {
	s := newTestSim()

	fired := 0
	sub := s.Subscribe(func(source.Event) { fired++ })
	defer sub.Close()

	s.Tick()
	assert.Equal(t, 0, fired)
}

func TestDeterministicWalk(t *testing.T) {
	a := newTestSim()
	b := newTestSim()
	a.TryLookup("Plant1", "TankLevel")
	b.TryLookup("Plant1", "TankLevel")

	var va, vb []source.Event
	subA := a.Subscribe(func(ev source.Event) { va = append(va, ev) })
	subB := b.Subscribe(func(ev source.Event) { vb = append(vb, ev) })
	defer subA.Close()
	defer subB.Close()

	for i := 0; i < 5; i++ {
		a.Tick()
		b.Tick()
	}
	assert.Equal(t, va, vb, "same seed, same walk")
}
