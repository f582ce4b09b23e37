// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package runmanager

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/wingedpig/twinsong/internal/editortree"
	"github.com/wingedpig/twinsong/internal/events"
	"github.com/wingedpig/twinsong/internal/proto"
	"github.com/wingedpig/twinsong/internal/wire"
)

// kernelHandle is everything the manager tracks about one live run's
// kernel subprocess: the framed pipe to talk to it, the last ScopeSnapshot
// it reported (the diff base for the next one), and the output values
// accumulated so far for whichever cell is currently executing.
type kernelHandle struct {
	notebookID editortree.NotebookID
	runID      uuid.UUID
	spawned    SpawnedKernel
	enc        *wire.Encoder

	lastGlobals *editortree.ScopeSnapshot

	curValues []editortree.OutputValue

	// pendingTerminal holds a run's terminal Output frame while the
	// manager waits for the NewGlobals frame that follows it, so the two
	// can be merged into one Output {..., update} push to the client.
	pendingTerminal *pendingOutput

	// snapshotWait, when non-nil, receives the next Snapshot response's
	// blob — set by Fork just before it asks this kernel to pickle its
	// state, read by Fork's own goroutine, not the actor.
	snapshotWait chan []byte
}

// pendingOutput is a terminal Output frame awaiting the NewGlobals that
// completes it with a diff.
type pendingOutput struct {
	cellID uuid.UUID
	flag   editortree.OutputFlag
	value  editortree.OutputValue
}

// Manager is the single actor owning every notebook, run, and kernel
// handle the server knows about. State is mutated from many concurrent
// WebSocket sessions, so every read and write is serialized through one
// goroutine via submit rather than guarded by a lock.
type Manager struct {
	workDir string
	spawner KernelSpawner
	bus     events.Bus

	mailbox chan func()
	closed  chan struct{}
	wg      sync.WaitGroup

	notebooks      map[editortree.NotebookID]*editortree.Notebook
	nextNotebookID editortree.NotebookID
	kernels        map[uuid.UUID]*kernelHandle

	sessMu        sync.Mutex
	sessions      map[uint64]chan<- proto.ServerMessage
	nextSessionID uint64

	dirQuery func() []proto.DirEntry
}

// SetDirQuery wires QueryDir to a directory watcher's ScanNow, set once
// during app startup after both the Manager and the watcher exist (the
// watcher itself depends on Manager.LoadedPaths, so neither can be built
// fully before the other).
func (m *Manager) SetDirQuery(fn func() []proto.DirEntry) {
	m.dirQuery = fn
}

// NewManager constructs a Manager rooted at workDir and starts its actor
// goroutine. Close stops it.
func NewManager(workDir string, spawner KernelSpawner, bus events.Bus) *Manager {
	m := &Manager{
		workDir:   workDir,
		spawner:   spawner,
		bus:       bus,
		mailbox:   make(chan func()),
		closed:    make(chan struct{}),
		notebooks: make(map[editortree.NotebookID]*editortree.Notebook),
		kernels:   make(map[uuid.UUID]*kernelHandle),
		sessions:  make(map[uint64]chan<- proto.ServerMessage),
	}
	if bus != nil {
		bus.Subscribe(func(ctx context.Context, e events.Event) {
			if e.Type != events.EventDirChanged {
				return
			}
			m.broadcast(proto.DirListMessage(toDirEntries(e.Entries)))
		})
	}

	m.wg.Add(1)
	go m.loop()
	return m
}

func toDirEntries(entries []events.DirEntry) []proto.DirEntry {
	out := make([]proto.DirEntry, len(entries))
	for i, e := range entries {
		out[i] = proto.DirEntry{EntryType: proto.DirEntryType(e.EntryType), Path: e.Path}
	}
	return out
}

// loop never closes the mailbox channel: a concurrent send racing a
// close would panic. Shutdown instead closes the separate m.closed
// channel, which both loop and every blocked submit select against.
func (m *Manager) loop() {
	defer m.wg.Done()
	for {
		select {
		case fn := <-m.mailbox:
			fn()
		case <-m.closed:
			return
		}
	}
}

// submit runs fn on the actor goroutine and blocks until it returns. Every
// exported Manager method is built on this: it sends a closure over the
// state-owning goroutine's mailbox instead of taking a lock, so map
// mutation is always single-threaded without a sync.Mutex anywhere on
// Manager's own state.
func (m *Manager) submit(fn func()) {
	done := make(chan struct{})
	select {
	case m.mailbox <- func() { fn(); close(done) }:
		select {
		case <-done:
		case <-m.closed:
		}
	case <-m.closed:
	}
}

// Close stops every live kernel and shuts down the actor goroutine. Safe
// to call once; a second call is a no-op.
func (m *Manager) Close(ctx context.Context) error {
	select {
	case <-m.closed:
		return nil
	default:
	}
	m.submit(func() {
		for runID, kh := range m.kernels {
			if kh.spawned.Stop != nil {
				_ = kh.spawned.Stop(ctx)
			}
			delete(m.kernels, runID)
		}
	})
	close(m.closed)
	m.wg.Wait()
	return nil
}

// RegisterSession adds sendCh to the set of sessions every broadcast
// (Output, NewGlobals, DirList) is pushed to, and returns an id
// UnregisterSession needs to remove it again.
func (m *Manager) RegisterSession(sendCh chan<- proto.ServerMessage) uint64 {
	m.sessMu.Lock()
	defer m.sessMu.Unlock()
	m.nextSessionID++
	id := m.nextSessionID
	m.sessions[id] = sendCh
	return id
}

// UnregisterSession removes a session added by RegisterSession.
func (m *Manager) UnregisterSession(id uint64) {
	m.sessMu.Lock()
	defer m.sessMu.Unlock()
	delete(m.sessions, id)
}

// broadcast pushes msg to every registered session. A session whose
// channel is full is skipped rather than blocking the actor goroutine —
// a slow client shouldn't stall every other session's updates.
func (m *Manager) broadcast(msg proto.ServerMessage) {
	m.sessMu.Lock()
	defer m.sessMu.Unlock()
	for _, ch := range m.sessions {
		select {
		case ch <- msg:
		default:
		}
	}
}

// LoadedPaths implements watcher.LoadedSetFunc: the set of notebook paths
// currently held open in memory, so the directory watcher can classify
// them as LoadedNotebook instead of plain Notebook. Reads m's state
// through the actor so it never races with a concurrent CreateNewNotebook
// or SaveNotebook.
func (m *Manager) LoadedPaths() map[string]bool {
	out := make(map[string]bool)
	m.submit(func() {
		for _, nb := range m.notebooks {
			out[nb.Path] = true
		}
	})
	return out
}

func (m *Manager) notebookByID(id editortree.NotebookID) (*editortree.Notebook, error) {
	nb, ok := m.notebooks[id]
	if !ok {
		return nil, fmt.Errorf("runmanager: unknown notebook %d", id)
	}
	return nb, nil
}
