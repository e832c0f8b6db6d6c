// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirPrefersEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VARCTL_CACHE_DIR", dir)

	got, ok := Dir()
	assert.True(t, ok)
	assert.Equal(t, dir, got)
}

func TestEnabled(t *testing.T) {
	t.Setenv("VARCTL_CACHE", "")
	assert.True(t, Enabled())

	t.Setenv("VARCTL_CACHE", "0")
	assert.False(t, Enabled())

	t.Setenv("VARCTL_CACHE", "false")
	assert.False(t, Enabled())

	t.Setenv("VARCTL_CACHE", "1")
	assert.True(t, Enabled())
}

func TestWriteRead(t *testing.T) {
	t.Setenv("VARCTL_CACHE_DIR", t.TempDir())
	t.Setenv("VARCTL_CACHE", "1")

	err := Write([]string{"snap", "acme-snaps"}, "plant1.json", []byte("doc\n"))
	require.NoError(t, err)

	entry, ok := Read([]string{"snap", "acme-snaps"}, "plant1.json")
	require.True(t, ok)
	assert.Equal(t, "plant1.json", entry.Key)
	assert.NotEqual(t, entry.Key, entry.EncodedKey)
	// Read trims trailing whitespace.
	assert.Equal(t, []byte("doc"), entry.Data)
}

func TestReadMiss(t *testing.T) {
	t.Setenv("VARCTL_CACHE_DIR", t.TempDir())
	t.Setenv("VARCTL_CACHE", "1")

	_, ok := Read([]string{"snap"}, "never-written")
	assert.False(t, ok)
}

func TestDisabledWriteIsNoop(t *testing.T) {
	t.Setenv("VARCTL_CACHE_DIR", t.TempDir())
	t.Setenv("VARCTL_CACHE", "0")

	require.NoError(t, Write([]string{"snap"}, "key", []byte("doc")))

	t.Setenv("VARCTL_CACHE", "1")
	_, ok := Read([]string{"snap"}, "key")
	assert.False(t, ok)
}

func TestPurge(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VARCTL_CACHE_DIR", dir)
	t.Setenv("VARCTL_CACHE", "1")

	require.NoError(t, Write([]string{"snap"}, "old", []byte("doc")))

	// Age the file past the cutoff.
	p, ok := EntryPath([]string{"snap"}, "old")
	require.True(t, ok)
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(p, old, old))

	require.NoError(t, Purge(24))

	_, err := os.Stat(p)
	assert.True(t, os.IsNotExist(err))

	// Directory skeleton survives.
	_, err = os.Stat(filepath.Join(dir, "snap"))
	assert.NoError(t, err)
}
