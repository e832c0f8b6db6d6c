// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package feed tails a JSON-lines reading feed.  Gateways that can't push
// directly often drop readings into a file, one JSON object per line:
//
//	{"project":"Plant1","variable":"TankLevel","value":42.5,"unit":"L"}
//
// The feed scans what's already there, then follows appends with fsnotify.
package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/fsnotify/fsnotify"
	"github.com/tidwall/gjson"

	"github.com/varctl/varctlgo/internal/signal"
	"github.com/varctl/varctlgo/internal/source"
	"github.com/varctl/varctlgo/internal/value"
)

// Feed is a source.Runner over one feed file, scoped to one project.
type Feed struct {
	mu sync.Mutex

	path    string
	project string
	offset  int64

	// last holds the most recent reading per variable, kept so a fresh
	// consumer gets a starting point when the run loop begins.
	last  map[string]source.Event
	order []string

	events signal.Hub[source.Event]
}

// New opens the feed and scans its existing content.  Historical lines are
// remembered (for TryLookup and the initial broadcast) but not emitted yet.
func New(path, project string) (*Feed, error) {
	f := &Feed{
		path:    path,
		project: project,
		last:    map[string]source.Event{},
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open feed: %w", err)
	}
	if err := f.Scan(); err != nil {
		return nil, err
	}
	return f, nil
}

// TryLookup reports whether the pair has appeared in the feed.  A variable
// that hasn't shown up yet fails the lookup; the cache retries on its next
// read, by which time the feed may have seen it.
func (f *Feed) TryLookup(project, variable string) bool {
	if project != f.project {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.last[variable]
	return ok
}

func (f *Feed) Subscribe(fn func(source.Event)) *signal.HubSub[source.Event] {
	return f.events.Subscribe(fn)
}

// Run broadcasts the remembered readings, then follows appends until ctx is
// done.  The watch is on the directory: editors and exporters that rename
// into place would otherwise drop the watch.
func (f *Feed) Run(ctx context.Context) error {
	for _, ev := range f.snapshotLast() {
		f.events.Emit(ev)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("failed to watch feed dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != f.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := f.Scan(); err != nil {
				log.WithError(err).Warn("feed scan failed")
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("feed watcher error")
		}
	}
}

// Scan reads lines appended since the last scan, remembers them, and emits
// one event per complete line for this feed's project.  Truncation rewinds
// to the start.
func (f *Feed) Scan() error {
	fh, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("failed to open feed: %w", err)
	}
	defer fh.Close()

	fi, err := fh.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat feed: %w", err)
	}

	f.mu.Lock()
	if fi.Size() < f.offset {
		// Truncated or rotated; start over.
		f.offset = 0
	}
	offset := f.offset
	f.mu.Unlock()

	if _, err := fh.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek feed: %w", err)
	}

	var batch []source.Event
	consumed := offset
	r := bufio.NewReader(fh)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			// A trailing partial line stays unconsumed until the writer
			// finishes it.
			break
		}
		consumed += int64(len(line))
		if ev, ok := f.parseLine(line); ok {
			batch = append(batch, ev)
		}
	}

	f.mu.Lock()
	f.offset = consumed
	for _, ev := range batch {
		if _, seen := f.last[ev.Variable]; !seen {
			f.order = append(f.order, ev.Variable)
		}
		f.last[ev.Variable] = ev
	}
	f.mu.Unlock()

	for _, ev := range batch {
		f.events.Emit(ev)
	}
	return nil
}

func (f *Feed) parseLine(line string) (source.Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return source.Event{}, false
	}
	if !gjson.Valid(line) {
		log.Debugf("feed: skipping malformed line: %.60s", line)
		return source.Event{}, false
	}

	rec := gjson.Parse(line)
	if p := rec.Get("project").String(); p != "" && p != f.project {
		return source.Event{}, false
	}
	name := rec.Get("variable").String()
	if name == "" {
		return source.Event{}, false
	}

	return source.Event{
		Variable: name,
		Value:    value.FromGJSON(rec.Get("value")),
		Unit:     rec.Get("unit").String(),
	}, true
}

// snapshotLast returns the remembered readings in first-seen order.
func (f *Feed) snapshotLast() []source.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]source.Event, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, f.last[name])
	}
	return out
}

func (f *Feed) Close() error {
	return nil
}
