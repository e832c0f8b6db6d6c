// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package snap serves variable readings out of a point-in-time snapshot
// document.  Plants export these as JSON, either to disk or to an S3
// bucket; sealed (passphrase-encrypted) exports are opened transparently.
package snap

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/tidwall/gjson"

	"github.com/varctl/varctlgo/internal/aws"
	"github.com/varctl/varctlgo/internal/cacheutil"
	"github.com/varctl/varctlgo/internal/crypt"
	"github.com/varctl/varctlgo/internal/signal"
	"github.com/varctl/varctlgo/internal/source"
	"github.com/varctl/varctlgo/internal/value"
)

// Reading is one variable's entry in a snapshot.
type Reading struct {
	Variable string
	Value    value.Value
	Unit     string
}

// Store implements source.Source over a snapshot document.  Lookups check
// the document; readings are delivered by Replay, which broadcasts the
// registered variables' values on the event stream so caches populate
// through the same path they would with a live provider.
type Store struct {
	mu sync.Mutex

	project    string
	takenAt    time.Time
	raw        []byte
	registered map[string]bool

	events signal.Hub[source.Event]
}

// New validates raw as a snapshot document and wraps it.
func New(raw []byte) (*Store, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("snapshot is not valid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.Get("variables").IsObject() {
		return nil, fmt.Errorf("snapshot has no variables object")
	}

	s := &Store{
		project:    doc.Get("project").String(),
		raw:        raw,
		registered: map[string]bool{},
	}
	if ts := doc.Get("taken_at").String(); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			s.takenAt = t
		}
	}
	return s, nil
}

// Project returns the snapshot's project name.
func (s *Store) Project() string { return s.project }

// TakenAt returns the export timestamp, zero when absent.
func (s *Store) TakenAt() time.Time { return s.takenAt }

// Variables lists every reading in the snapshot, sorted by name.
func (s *Store) Variables() []Reading {
	var out []Reading
	gjson.GetBytes(s.raw, "variables").ForEach(func(k, v gjson.Result) bool {
		out = append(out, Reading{
			Variable: k.String(),
			Value:    value.FromGJSON(v.Get("value")),
			Unit:     v.Get("unit").String(),
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Variable < out[j].Variable })
	return out
}

// entry finds a variable's reading by iterating the variables object.
// Iteration rather than a gjson path keeps names with path metacharacters
// (dots, wildcards) addressable.
func (s *Store) entry(variable string) (gjson.Result, bool) {
	var entry gjson.Result
	found := false
	gjson.GetBytes(s.raw, "variables").ForEach(func(k, v gjson.Result) bool {
		if k.String() == variable {
			entry = v
			found = true
			return false
		}
		return true
	})
	return entry, found
}

// TryLookup registers variable for Replay when the project matches and the
// document carries it.
func (s *Store) TryLookup(project, variable string) bool {
	if s.project != "" && project != s.project {
		return false
	}
	if _, ok := s.entry(variable); !ok {
		return false
	}

	s.mu.Lock()
	s.registered[variable] = true
	s.mu.Unlock()
	return true
}

func (s *Store) Subscribe(fn func(source.Event)) *signal.HubSub[source.Event] {
	return s.events.Subscribe(fn)
}

// Replay broadcasts the registered variables' readings.  Call it after the
// consumers have subscribed; a snapshot has no spontaneous changes, so this
// is the only event delivery it ever does.
func (s *Store) Replay() {
	s.mu.Lock()
	names := make([]string, 0, len(s.registered))
	for name := range s.registered {
		names = append(names, name)
	}
	s.mu.Unlock()
	sort.Strings(names)

	for _, name := range names {
		entry, ok := s.entry(name)
		if !ok {
			continue
		}
		s.events.Emit(source.Event{
			Variable: name,
			Value:    value.FromGJSON(entry.Get("value")),
			Unit:     entry.Get("unit").String(),
		})
	}
}

func (s *Store) Close() error {
	return nil
}

// Fetch resolves a snapshot spec to its raw document.  A spec is either an
// s3://bucket/key URL or a local path.  S3 fetches go through the file
// cache; sealed documents are opened with the passphrase callback.
func Fetch(ctx context.Context, spec string, passphrase func() (string, error)) ([]byte, error) {
	var (
		raw []byte
		err error
	)
	if strings.HasPrefix(spec, "s3://") {
		raw, err = fetchS3(ctx, spec)
	} else {
		raw, err = os.ReadFile(spec)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot %s: %w", spec, err)
	}

	if crypt.IsSealed(raw) {
		if passphrase == nil {
			return nil, fmt.Errorf("snapshot %s is sealed and no passphrase is available", spec)
		}
		pass, err := passphrase()
		if err != nil {
			return nil, err
		}
		raw, err = crypt.Open(raw, pass)
		if err != nil {
			return nil, fmt.Errorf("failed to open sealed snapshot %s: %w", spec, err)
		}
	}

	return raw, nil
}

// awsOptions maps the VARCTL_SNAP_* environment onto the AWS config
// chain.  Unset variables fall through to the SDK defaults.
func awsOptions() []aws.Option {
	attempts, _ := strconv.Atoi(os.Getenv("VARCTL_SNAP_RETRIES"))
	return []aws.Option{
		aws.WithRegion(os.Getenv("VARCTL_SNAP_REGION")),
		aws.WithProfile(os.Getenv("VARCTL_SNAP_PROFILE")),
		aws.WithMaxAttempts(attempts),
	}
}

func fetchS3(ctx context.Context, url string) ([]byte, error) {
	bucket, key, err := splitS3URL(url)
	if err != nil {
		return nil, err
	}

	if entry, ok := cacheutil.Read([]string{"snap", bucket}, url); ok {
		log.Debugf("cache hit: %s", entry.Path)
		return entry.Data, nil
	}

	cfg, err := aws.LoadAWSConfig(ctx, awsOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := aws.NewS3(cfg)

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	if err := cacheutil.Write([]string{"snap", bucket}, url, raw); err != nil {
		log.WithError(err).Warn("failed to write snapshot to cache")
	}

	return raw, nil
}

func splitS3URL(url string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(url, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("bad s3 url %q (want s3://bucket/key)", url)
	}
	return parts[0], parts[1], nil
}
