// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wingedpig/twinsong/internal/events"
	"github.com/wingedpig/twinsong/internal/proto"
)

const notebookExt = ".tsnb"

// LoadedSetFunc returns the set of notebook paths the run manager
// currently holds open, so a scan can distinguish a Notebook from a
// LoadedNotebook without the watcher reaching into run manager state
// directly.
type LoadedSetFunc func() map[string]bool

// DirWatcher periodically (and on fsnotify activity) scans workDir and
// publishes events.EventDirChanged whenever the classified listing
// differs from the previous scan: fsnotify activity plus a debounce
// timer, generalized from watching one binary path to one directory's
// full listing.
type DirWatcher struct {
	workDir       string
	bus           events.Bus
	loadedSet     LoadedSetFunc
	fsWatcher     *fsnotify.Watcher
	debouncer     *Debouncer
	scanInterval  time.Duration

	mu           sync.Mutex
	lastEntries  []proto.DirEntry

	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewDirWatcher builds a watcher over workDir. loadedSet may be nil, in
// which case every .tsnb file classifies as Notebook, never
// LoadedNotebook.
func NewDirWatcher(workDir string, bus events.Bus, scanInterval time.Duration, loadedSet LoadedSetFunc) (*DirWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(workDir); err != nil {
		fsw.Close()
		return nil, err
	}
	if scanInterval <= 0 {
		scanInterval = 750 * time.Millisecond
	}
	if loadedSet == nil {
		loadedSet = func() map[string]bool { return nil }
	}
	return &DirWatcher{
		workDir:      workDir,
		bus:          bus,
		loadedSet:    loadedSet,
		fsWatcher:    fsw,
		debouncer:    NewDebouncer(100 * time.Millisecond),
		scanInterval: scanInterval,
		closeCh:      make(chan struct{}),
	}, nil
}

// Start runs the ticker and fsnotify loops until ctx is done or Close is
// called. An initial scan runs synchronously before Start returns, so a
// caller querying right after Start sees a populated listing.
func (w *DirWatcher) Start(ctx context.Context) {
	w.ScanNow()

	w.wg.Add(2)
	go w.tickerLoop(ctx)
	go w.fsEventLoop(ctx)
}

func (w *DirWatcher) tickerLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.scanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.closeCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ScanNow()
		}
	}
}

func (w *DirWatcher) fsEventLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case <-ctx.Done():
			return
		case _, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.debouncer.Debounce(func() { w.ScanNow() })
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: fsnotify error: %v", err)
		}
	}
}

// ScanNow performs a synchronous scan-classify-diff-broadcast cycle and
// returns the fresh listing. QueryDir calls this directly so a client's
// request is always answered from a listing no staler than the request
// itself, rather than whatever the last ticker tick happened to produce.
func (w *DirWatcher) ScanNow() []proto.DirEntry {
	entries := w.scan()

	w.mu.Lock()
	changed := !reflect.DeepEqual(entries, w.lastEntries)
	w.lastEntries = entries
	w.mu.Unlock()

	if changed && w.bus != nil {
		w.bus.Publish(context.Background(), events.Event{
			Type:    events.EventDirChanged,
			Entries: toEventEntries(entries),
		})
	}
	return entries
}

func (w *DirWatcher) scan() []proto.DirEntry {
	dirEntries, err := os.ReadDir(w.workDir)
	if err != nil {
		log.Printf("watcher: scan %s: %v", w.workDir, err)
		return nil
	}

	loaded := w.loadedSet()
	var out []proto.DirEntry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		path := filepath.Join(w.workDir, name)
		entryType := proto.DirEntryFile
		if filepath.Ext(name) == notebookExt {
			entryType = proto.DirEntryNotebook
			if loaded[path] {
				entryType = proto.DirEntryLoadedNotebook
			}
		}
		out = append(out, proto.DirEntry{EntryType: entryType, Path: path})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func toEventEntries(entries []proto.DirEntry) []events.DirEntry {
	out := make([]events.DirEntry, len(entries))
	for i, e := range entries {
		out[i] = events.DirEntry{EntryType: string(e.EntryType), Path: e.Path}
	}
	return out
}

// Close stops both loops and releases the fsnotify watch.
func (w *DirWatcher) Close() error {
	select {
	case <-w.closeCh:
		return nil
	default:
		close(w.closeCh)
	}
	w.debouncer.Stop()
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}
