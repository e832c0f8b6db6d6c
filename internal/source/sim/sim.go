// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package sim

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/varctl/varctlgo/internal/signal"
	"github.com/varctl/varctlgo/internal/source"
	"github.com/varctl/varctlgo/internal/value"
)

// Point describes one simulated plant variable.
type Point struct {
	Project  string
	Variable string
	Unit     string
	// Base is the center of the random walk, Jitter the max step per tick.
	Base   float64
	Jitter float64
}

type pointState struct {
	def        Point
	registered bool
	current    float64
}

// Sim is a stand-in plant runtime.  It knows a fixed set of points and
// random-walks the registered ones, broadcasting every step on the shared
// event stream.  Useful for demos and for driving caches in tests without a
// live runtime.
type Sim struct {
	mu sync.Mutex

	points   map[string]*pointState
	interval time.Duration
	rng      *rand.Rand

	events signal.Hub[source.Event]
}

// New builds a Sim over the given points.  interval <= 0 defaults to one
// second.  seed fixes the walk for reproducible runs; pass 0 for a
// time-based seed.
func New(interval time.Duration, seed int64, points ...Point) *Sim {
	if interval <= 0 {
		interval = time.Second
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Sim{
		points:   make(map[string]*pointState, len(points)),
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)), //nolint:gosec
	}
	for _, p := range points {
		s.points[key(p.Project, p.Variable)] = &pointState{def: p, current: p.Base}
	}
	return s
}

func key(project, variable string) string {
	return project + "/" + variable
}

// TryLookup registers (project, variable) for broadcasting.  Unknown points
// fail the lookup.
func (s *Sim) TryLookup(project, variable string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.points[key(project, variable)]
	if !ok {
		return false
	}
	if !ps.registered {
		ps.registered = true
		log.Debugf("sim: registered %s/%s", project, variable)
	}
	return true
}

func (s *Sim) Subscribe(fn func(source.Event)) *signal.HubSub[source.Event] {
	return s.events.Subscribe(fn)
}

// Run ticks until ctx is done.
func (s *Sim) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.Tick()
		}
	}
}

// Tick walks every registered point one step and broadcasts the readings.
// Exposed so callers can drive the sim without a timer.
func (s *Sim) Tick() {
	s.mu.Lock()
	var batch []source.Event
	for _, ps := range s.points {
		if !ps.registered {
			continue
		}
		ps.current += (s.rng.Float64()*2 - 1) * ps.def.Jitter
		batch = append(batch, source.Event{
			Variable: ps.def.Variable,
			Value:    value.Number(ps.current),
			Unit:     ps.def.Unit,
		})
	}
	s.mu.Unlock()

	// Emit outside the lock; handlers may call back into TryLookup.
	for _, ev := range batch {
		s.events.Emit(ev)
	}
}

// Emit injects a single hand-built event.  Test hook.
func (s *Sim) Emit(ev source.Event) {
	s.events.Emit(ev)
}

func (s *Sim) Close() error {
	return nil
}
