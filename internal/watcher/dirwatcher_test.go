// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/twinsong/internal/events"
	"github.com/wingedpig/twinsong/internal/proto"
)

func TestScanNowClassifiesFilesAndNotebooks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.tsnb"), []byte("[]"), 0o644))
	loadedPath := filepath.Join(dir, "c.tsnb")
	require.NoError(t, os.WriteFile(loadedPath, []byte("[]"), 0o644))

	w, err := NewDirWatcher(dir, nil, 50*time.Millisecond, func() map[string]bool {
		return map[string]bool{loadedPath: true}
	})
	require.NoError(t, err)
	defer w.Close()

	entries := w.ScanNow()
	require.Len(t, entries, 3)

	byPath := map[string]proto.DirEntryType{}
	for _, e := range entries {
		byPath[e.Path] = e.EntryType
	}
	assert.Equal(t, proto.DirEntryFile, byPath[filepath.Join(dir, "a.txt")])
	assert.Equal(t, proto.DirEntryNotebook, byPath[filepath.Join(dir, "b.tsnb")])
	assert.Equal(t, proto.DirEntryLoadedNotebook, byPath[loadedPath])
}

func TestScanNowBroadcastsOnlyWhenListingChanges(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewMemoryBus()
	defer bus.Close()

	var publishCount int
	bus.Subscribe(func(ctx context.Context, e events.Event) { publishCount++ })

	w, err := NewDirWatcher(dir, bus, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Close()

	w.ScanNow() // initial empty -> empty, no change
	assert.Equal(t, 0, publishCount)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.tsnb"), []byte("[]"), 0o644))
	w.ScanNow()
	assert.Equal(t, 1, publishCount)

	w.ScanNow() // unchanged
	assert.Equal(t, 1, publishCount)
}

func TestStartRunsInitialScanSynchronously(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.tsnb"), []byte("[]"), 0o644))

	w, err := NewDirWatcher(dir, nil, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	w.mu.Lock()
	entries := w.lastEntries
	w.mu.Unlock()
	require.Len(t, entries, 1)
}
