// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package snap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/varctl/varctlgo/internal/crypt"
	"github.com/varctl/varctlgo/internal/source"
	"github.com/varctl/varctlgo/internal/value"
)

const doc = `{
  "project": "Plant1",
  "taken_at": "2026-08-30T12:00:00Z",
  "variables": {
    "TankLevel": {"value": 42.5, "unit": "L"},
    "PumpOn": {"value": true},
    "Recipe": {"value": "batch-7"}
  }
}`

func TestNew(t *testing.T) {
	s, err := New([]byte(doc))
	assert.NoError(t, err)
	assert.Equal(t, "Plant1", s.Project())
	assert.Equal(t, 2026, s.TakenAt().Year())
}

func TestNew_Invalid(t *testing.T) {
	_, err := New([]byte(`not json`))
	assert.Error(t, err)

	_, err = New([]byte(`{"project": "x"}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "variables")
}

func TestVariables(t *testing.T) {
	s, err := New([]byte(doc))
	assert.NoError(t, err)

	vars := s.Variables()
	assert.Len(t, vars, 3)
	assert.Equal(t, "PumpOn", vars[0].Variable)
	assert.Equal(t, "Recipe", vars[1].Variable)
	assert.Equal(t, "TankLevel", vars[2].Variable)
	assert.Equal(t, value.Number(42.5), vars[2].Value)
	assert.Equal(t, "L", vars[2].Unit)
	assert.Equal(t, value.Bool(true), vars[0].Value)
}

func TestTryLookup(t *testing.T) {
	s, err := New([]byte(doc))
	assert.NoError(t, err)

	assert.True(t, s.TryLookup("Plant1", "TankLevel"))
	assert.False(t, s.TryLookup("Plant1", "Missing"))
	assert.False(t, s.TryLookup("Plant2", "TankLevel"))
}

func TestReplay(t *testing.T) {
	s, err := New([]byte(doc))
	assert.NoError(t, err)

	s.TryLookup("Plant1", "TankLevel")
	s.TryLookup("Plant1", "PumpOn")

	var got []source.Event
	sub := s.Subscribe(func(ev source.Event) { got = append(got, ev) })
	defer sub.Close()

	s.Replay()

	assert.Len(t, got, 2)
	assert.Equal(t, "PumpOn", got[0].Variable)
	assert.Equal(t, "TankLevel", got[1].Variable)
	assert.Equal(t, value.Number(42.5), got[1].Value)
	assert.Equal(t, "L", got[1].Unit)
}

func TestDottedVariableNames(t *testing.T) {
	dotted := `{
	  "project": "Plant1",
	  "variables": {
	    "Line2.Oven.Temp": {"value": 180, "unit": "C"},
	    "Mixer*Speed": {"value": 12}
	  }
	}`
	s, err := New([]byte(dotted))
	assert.NoError(t, err)

	assert.True(t, s.TryLookup("Plant1", "Line2.Oven.Temp"))
	assert.True(t, s.TryLookup("Plant1", "Mixer*Speed"))
	assert.False(t, s.TryLookup("Plant1", "Line2.Oven.Missing"))

	var got []source.Event
	sub := s.Subscribe(func(ev source.Event) { got = append(got, ev) })
	defer sub.Close()

	s.Replay()

	assert.Len(t, got, 2)
	assert.Equal(t, "Line2.Oven.Temp", got[0].Variable)
	assert.Equal(t, value.Number(180), got[0].Value)
	assert.Equal(t, "C", got[0].Unit)
	assert.Equal(t, "Mixer*Speed", got[1].Variable)
}

func TestFetchLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.json")
	assert.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	raw, err := Fetch(context.Background(), path, nil)
	assert.NoError(t, err)
	assert.Equal(t, []byte(doc), raw)
}

func TestFetchSealed(t *testing.T) {
	sealed, err := crypt.Seal([]byte(doc), "pw")
	assert.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "snap.sealed.json")
	assert.NoError(t, os.WriteFile(path, sealed, 0o600))

	raw, err := Fetch(context.Background(), path, func() (string, error) { return "pw", nil })
	assert.NoError(t, err)
	assert.Equal(t, []byte(doc), raw)

	// Sealed document without a passphrase callback is an error.
	_, err = Fetch(context.Background(), path, nil)
	assert.Error(t, err)
}

func TestFetchMissing(t *testing.T) {
	_, err := Fetch(context.Background(), "testdata/nope.json", nil)
	assert.Error(t, err)
}

func TestSplitS3URL(t *testing.T) {
	b, k, err := splitS3URL("s3://bucket/path/to/snap.json")
	assert.NoError(t, err)
	assert.Equal(t, "bucket", b)
	assert.Equal(t, "path/to/snap.json", k)

	_, _, err = splitS3URL("s3://bucket")
	assert.Error(t, err)
}
