// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package runmanager

import (
	"fmt"
	"path/filepath"

	"github.com/wingedpig/twinsong/internal/editortree"
	"github.com/wingedpig/twinsong/internal/store"
)

// CreateNewNotebook allocates a monotonic id, synthesizes a notebook_N.tsnb
// path in workDir and an empty Own-group editor_root, and tracks it
// in-memory. Nothing is written to disk until the first SaveNotebook.
func (m *Manager) CreateNewNotebook() *editortree.Notebook {
	var nb *editortree.Notebook
	m.submit(func() {
		m.nextNotebookID++
		id := m.nextNotebookID
		nb = &editortree.Notebook{
			ID:         id,
			Path:       filepath.Join(m.workDir, fmt.Sprintf("notebook_%d.tsnb", id)),
			EditorRoot: editortree.NewEmptyEditorRoot(),
		}
		m.notebooks[id] = nb
	})
	return nb
}

// LoadNotebook reads path from disk unless a notebook with that path is
// already tracked in memory, in which case the in-memory copy is returned
// unchanged: a second LoadNotebook of the same path is idempotent and
// never re-reads the file, so an editor session's unsaved state (runs,
// open nodes) survives a duplicate load.
func (m *Manager) LoadNotebook(path string) (*editortree.Notebook, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("runmanager: %w", err)
	}

	var nb *editortree.Notebook
	var loadErr error
	m.submit(func() {
		for _, existing := range m.notebooks {
			if existing.Path == abs {
				nb = existing
				return
			}
		}

		root, err := store.LoadNotebookFile(abs)
		if err != nil {
			loadErr = err
			return
		}
		m.nextNotebookID++
		id := m.nextNotebookID
		nb = &editortree.Notebook{ID: id, Path: abs, EditorRoot: root}
		m.notebooks[id] = nb
	})
	return nb, loadErr
}

// SaveNotebook overwrites notebookID's tracked editor_root and persists it
// to its .tsnb path. Disk errors are reported through the returned error
// rather than as a transport-level failure — the caller (the WS dispatch
// loop) turns it into a SaveCompleted message with Error set. A store
// failure never tears down the session.
func (m *Manager) SaveNotebook(notebookID editortree.NotebookID, root editortree.EditorNode) error {
	var saveErr error
	m.submit(func() {
		nb, err := m.notebookByID(notebookID)
		if err != nil {
			saveErr = err
			return
		}
		nb.EditorRoot = root
		saveErr = store.SaveNotebookFile(nb.Path, root)
	})
	return saveErr
}
