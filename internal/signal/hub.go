// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package signal

import "sync"

// Hub is the payload-carrying sibling of Signal.  Same contract: explicit
// handles, synchronous delivery in subscribe order on the emitting
// goroutine.
type Hub[T any] struct {
	mu   sync.Mutex
	next int
	subs []*HubSub[T]
}

// HubSub is a live subscription to a Hub.  Close is idempotent.
type HubSub[T any] struct {
	id  int
	hub *Hub[T]
	fn  func(T)
}

// Subscribe registers fn and returns its handle.
func (h *Hub[T]) Subscribe(fn func(T)) *HubSub[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub := &HubSub[T]{id: h.next, hub: h, fn: fn}
	h.next++
	h.subs = append(h.subs, sub)
	return sub
}

// Emit delivers v to every live subscriber.
func (h *Hub[T]) Emit(v T) {
	h.mu.Lock()
	snapshot := make([]*HubSub[T], len(h.subs))
	copy(snapshot, h.subs)
	h.mu.Unlock()

	for _, sub := range snapshot {
		if sub.fn != nil {
			sub.fn(v)
		}
	}
}

// Len returns the number of live subscriptions.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close tears the subscription down.  Safe to call more than once.
func (sub *HubSub[T]) Close() {
	if sub == nil || sub.hub == nil {
		return
	}
	h := sub.hub
	h.mu.Lock()
	for i, cand := range h.subs {
		if cand.id == sub.id {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			break
		}
	}
	h.mu.Unlock()
	sub.hub = nil
	sub.fn = nil
}
