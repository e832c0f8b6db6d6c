// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package signal

import "sync"

// Signal is a payload-free notification with deterministic fan-out.
// Observers subscribe with a callback and get back an explicit handle they
// close when done; there is no implicit detach.  Emit runs the callbacks
// synchronously, in subscribe order, on the emitting goroutine.
type Signal struct {
	mu   sync.Mutex
	next int
	subs []*Sub
}

// Sub is a live subscription to a Signal.  Close is idempotent.
type Sub struct {
	id  int
	sig *Signal
	fn  func()
}

// Subscribe registers fn and returns its handle.  A nil fn still returns a
// usable handle so callers don't have to branch.
func (s *Signal) Subscribe(fn func()) *Sub {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &Sub{id: s.next, sig: s, fn: fn}
	s.next++
	s.subs = append(s.subs, sub)
	return sub
}

// Emit notifies every live subscriber.  The subscriber list is snapshotted
// under the lock so a callback may close its own (or another) handle without
// deadlocking.
func (s *Signal) Emit() {
	s.mu.Lock()
	snapshot := make([]*Sub, len(s.subs))
	copy(snapshot, s.subs)
	s.mu.Unlock()

	for _, sub := range snapshot {
		if sub.fn != nil {
			sub.fn()
		}
	}
}

// Len returns the number of live subscriptions.
func (s *Signal) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close tears the subscription down.  Safe to call more than once.
func (sub *Sub) Close() {
	if sub == nil || sub.sig == nil {
		return
	}
	s := sub.sig
	s.mu.Lock()
	for i, cand := range s.subs {
		if cand.id == sub.id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	sub.sig = nil
	sub.fn = nil
}
