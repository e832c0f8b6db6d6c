// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package recorder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/varctl/varctlgo/internal/value"
	"github.com/varctl/varctlgo/internal/varcache"
)

func TestRecorderRecords(t *testing.T) {
	dir := t.TempDir()
	c := varcache.New(nil, nil, "Plant1", "TankLevel", "lbl.tanklevel")
	r := New(c, dir, 0)

	assert.NoError(t, r.Start())
	c.SetValue(value.Number(41.5))
	c.SetValue(value.Number(42.5))

	st := r.Status()
	assert.True(t, st.Active)
	assert.Equal(t, 2, st.Records)
	assert.NoError(t, r.Stop())

	raw, err := os.ReadFile(filepath.Join(dir, st.File))
	assert.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "ts,project,variable,value,unit", lines[0])
	assert.Contains(t, lines[1], "Plant1,TankLevel,41.5,")
	assert.Contains(t, lines[2], "Plant1,TankLevel,42.5,")
}

func TestRecorderIntervalGap(t *testing.T) {
	dir := t.TempDir()
	c := varcache.New(nil, nil, "Plant1", "TankLevel", "lbl.tanklevel")
	r := New(c, dir, time.Hour)

	assert.NoError(t, r.Start())
	c.SetValue(value.Number(1))
	c.SetValue(value.Number(2))
	c.SetValue(value.Number(3))
	assert.NoError(t, r.Stop())

	// Only the first change lands inside a one hour gap.
	assert.Equal(t, 1, r.Status().Records)
}

func TestRecorderStartStopIdempotent(t *testing.T) {
	dir := t.TempDir()
	c := varcache.New(nil, nil, "Plant1", "TankLevel", "lbl.tanklevel")
	r := New(c, dir, 0)

	assert.NoError(t, r.Start())
	first := r.Status().File
	assert.NoError(t, r.Start())
	assert.Equal(t, first, r.Status().File)

	assert.NoError(t, r.Stop())
	assert.NoError(t, r.Stop())
}

func TestRecorderStopDetaches(t *testing.T) {
	dir := t.TempDir()
	c := varcache.New(nil, nil, "Plant1", "TankLevel", "lbl.tanklevel")
	r := New(c, dir, 0)

	assert.NoError(t, r.Start())
	c.SetValue(value.Number(1))
	assert.NoError(t, r.Stop())

	c.SetValue(value.Number(2))
	assert.Equal(t, 1, r.Status().Records)
}

func TestTail(t *testing.T) {
	dir := t.TempDir()
	body := "h\na\nb\nc\n"
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "x.csv"), []byte(body), 0o644))

	lines, err := Tail(dir, "x.csv", 2)
	assert.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, lines)

	_, err = Tail(dir, "nope.csv", 2)
	assert.Error(t, err)
}

func seedFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		assert.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("ts\n"), 0o644))
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	seedFiles(t, dir,
		"Plant1_TankLevel_2025-01-01_08-00-00.csv",
		"Plant1_TankLevel_2025-01-02_08-00-00.csv",
		"Plant1_TankLevel_2025-01-03_08-00-00.csv",
	)

	tests := []struct {
		specs []string
		want  []string
	}{
		{nil, []string{"Plant1_TankLevel_2025-01-03_08-00-00.csv"}},
		{[]string{"CUR~1"}, []string{"Plant1_TankLevel_2025-01-02_08-00-00.csv"}},
		{[]string{"-2"}, []string{"Plant1_TankLevel_2025-01-01_08-00-00.csv"}},
		{[]string{"Plant1_TankLevel_2025-01-01"}, []string{"Plant1_TankLevel_2025-01-01_08-00-00.csv"}},
		{[]string{"CUR~0", "CUR~1"}, []string{
			"Plant1_TankLevel_2025-01-03_08-00-00.csv",
			"Plant1_TankLevel_2025-01-02_08-00-00.csv",
		}},
	}

	for _, tt := range tests {
		got, err := Find(dir, tt.specs...)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestFindErrors(t *testing.T) {
	dir := t.TempDir()
	seedFiles(t, dir, "Plant1_TankLevel_2025-01-01_08-00-00.csv")

	_, err := Find(dir, "CUR~5")
	assert.Error(t, err)

	_, err = Find(dir, "NoSuchPrefix")
	assert.Error(t, err)

	_, err = Find(dir, "3")
	assert.Error(t, err)
}

func TestFindMalformedCurSpec(t *testing.T) {
	dir := t.TempDir()
	seedFiles(t, dir,
		"Plant1_TankLevel_2025-01-01_08-00-00.csv",
		"Plant1_TankLevel_2025-01-01_09-00-00.csv")

	for _, spec := range []string{"CUR~-1", "CUR~x", "CUR~"} {
		_, err := Find(dir, spec)
		assert.ErrorContains(t, err, "bad recording spec")
	}
}

func TestFindExistingPath(t *testing.T) {
	dir := t.TempDir()
	seedFiles(t, dir, "Plant1_TankLevel_2025-01-01_08-00-00.csv")

	other := filepath.Join(t.TempDir(), "import.csv")
	assert.NoError(t, os.WriteFile(other, []byte("ts\n"), 0o644))

	got, err := Find(dir, other)
	assert.NoError(t, err)
	assert.Equal(t, []string{other}, got)
}
