// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package recorder writes cache readings to timestamped CSV files.
package recorder

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/varctl/varctlgo/internal/signal"
	"github.com/varctl/varctlgo/internal/varcache"
)

// Status describes a recorder to callers and the output pipeline.
type Status struct {
	Active     bool   `json:"active"`
	File       string `json:"file"`
	IntervalMs int    `json:"interval_ms"`
	Records    int    `json:"records"`
}

// Recorder appends one CSV row per value change of a single cache,
// subject to a minimum gap between rows.  Zero interval records every
// change.
type Recorder struct {
	mu sync.Mutex

	cache    *varcache.Cache
	dir      string
	interval time.Duration

	active      bool
	lastWrite   time.Time
	records     int
	file        *os.File
	csv         *csv.Writer
	currentName string
	sub         *signal.Sub
}

func New(cache *varcache.Cache, dir string, interval time.Duration) *Recorder {
	return &Recorder{
		cache:    cache,
		dir:      dir,
		interval: interval,
	}
}

// Start opens a fresh timestamped file and begins listening for value
// changes.  Starting an active recorder is a no-op.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return nil
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", r.dir, err)
	}

	ts := time.Now().Format("2006-01-02_15-04-05")
	name := fmt.Sprintf("%s_%s_%s.csv", r.cache.Project(), r.cache.Variable(), ts)
	full := filepath.Join(r.dir, name)

	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("create %s: %w", full, err)
	}

	w := csv.NewWriter(f)
	header := []string{"ts", "project", "variable", "value", "unit"}
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	w.Flush()

	r.file = f
	r.csv = w
	r.currentName = name
	r.lastWrite = time.Time{}
	r.records = 0
	r.active = true

	r.sub = r.cache.OnValueChanged(r.push)

	log.WithField("file", full).Debug("recorder started")
	return nil
}

// Stop unsubscribes and closes the current file.  Stopping an inactive
// recorder is a no-op.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return nil
	}
	r.active = false

	if r.sub != nil {
		r.sub.Close()
		r.sub = nil
	}
	if r.csv != nil {
		r.csv.Flush()
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			return err
		}
	}

	r.csv = nil
	r.file = nil
	return nil
}

func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Status{
		Active:     r.active,
		File:       r.currentName,
		IntervalMs: int(r.interval / time.Millisecond),
		Records:    r.records,
	}
}

func (r *Recorder) SetInterval(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d < 0 {
		d = 0
	}
	r.interval = d
}

func (r *Recorder) push() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active || r.csv == nil {
		return
	}

	if r.interval > 0 && !r.lastWrite.IsZero() {
		if time.Since(r.lastWrite) < r.interval {
			return
		}
	}

	record := []string{
		time.Now().Format(time.RFC3339),
		r.cache.Project(),
		r.cache.Variable(),
		r.cache.Value().Format(r.cache.StringFormat()),
		r.cache.Unit(),
	}

	if err := r.csv.Write(record); err != nil {
		log.WithError(err).Warn("recorder write failed")
		r.active = false
		return
	}
	r.csv.Flush()
	r.lastWrite = time.Now()
	r.records++
}

// ListFiles returns the recorded file names in the recorder's directory,
// newest last.
func (r *Recorder) ListFiles() ([]string, error) {
	return ListFiles(r.dir)
}

func ListFiles(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

// Tail returns up to maxLines trailing lines of a recorded file.
func Tail(dir, name string, maxLines int) ([]string, error) {
	full := filepath.Join(dir, name)
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if maxLines <= 0 {
		maxLines = 200
	}

	sc := bufio.NewScanner(f)
	buf := make([]string, 0, maxLines)

	for sc.Scan() {
		line := sc.Text()
		if len(buf) < maxLines {
			buf = append(buf, line)
		} else {
			copy(buf, buf[1:])
			buf[maxLines-1] = line
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return buf, nil
}
