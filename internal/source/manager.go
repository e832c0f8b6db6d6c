// Copyright (c) 2025 Steve Taranto staranto@gmail.com.
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/varctl/varctlgo/internal/signal"
)

// Status is a point-in-time view of a managed provider.
type Status struct {
	Running     bool      `json:"running"`
	Connected   bool      `json:"connected"`
	LastEventAt time.Time `json:"last_event_at"`
	LastError   string    `json:"last_error"`
}

// Manager supervises a Runner: it owns the run goroutine, tracks the last
// event for staleness, and derives Connected from recency instead of
// keeping it sticky.
type Manager struct {
	mu sync.RWMutex

	src    Runner
	sub    *signal.HubSub[Event]
	cancel context.CancelFunc
	gen    uint64

	staleAfter time.Duration
	status     Status
}

func NewManager(src Runner, stale time.Duration) *Manager {
	if stale <= 0 {
		stale = 3 * time.Second
	}
	return &Manager{
		src:        src,
		staleAfter: stale,
	}
}

// Start launches the runner.  A running manager is restarted.
func (m *Manager) Start() error {
	m.mu.Lock()

	if m.cancel != nil {
		m.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.gen++
	gen := m.gen
	m.status.Running = true
	m.status.LastError = ""

	if m.sub == nil {
		m.sub = m.src.Subscribe(func(Event) {
			m.setStatus(func(s *Status) {
				s.LastEventAt = time.Now()
				s.LastError = ""
			})
		})
	}
	m.mu.Unlock()

	go func() {
		err := m.src.Run(ctx)
		// A superseded run must not stomp the status of its replacement.
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("provider run loop exited")
			m.setStatusGen(gen, func(s *Status) {
				s.LastError = err.Error()
			})
		}
		m.setStatusGen(gen, func(s *Status) {
			s.Running = false
		})
	}()

	return nil
}

// Stop halts the runner and releases the event subscription.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.sub != nil {
		m.sub.Close()
		m.sub = nil
	}
	m.status.Running = false
}

// Status derives Connected from event recency rather than storing it.
func (m *Manager) Status() Status {
	m.mu.RLock()
	st := m.status
	stale := m.staleAfter
	m.mu.RUnlock()

	st.Connected = st.Running &&
		!st.LastEventAt.IsZero() &&
		time.Since(st.LastEventAt) <= stale &&
		st.LastError == ""
	return st
}

func (m *Manager) setStatus(fn func(*Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.status)
}

// setStatusGen applies fn only while gen is still the current run.
func (m *Manager) setStatusGen(gen uint64, fn func(*Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	fn(&m.status)
}
