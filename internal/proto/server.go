// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"github.com/google/uuid"

	"github.com/wingedpig/twinsong/internal/editortree"
)

// ServerType discriminates a ServerMessage.
type ServerType string

const (
	ServerNewNotebook    ServerType = "NewNotebook"
	ServerSaveCompleted  ServerType = "SaveCompleted"
	ServerKernelReady    ServerType = "KernelReady"
	ServerOutput         ServerType = "Output"
	ServerNewGlobals     ServerType = "NewGlobals"
	ServerKernels        ServerType = "Kernels"
	ServerDirList        ServerType = "DirList"
)

// ServerMessage is a single outbound frame pushed to a WebSocket session.
type ServerMessage struct {
	Type ServerType `json:"type"`

	Notebook *editortree.Notebook `json:"notebook,omitempty"` // NewNotebook

	NotebookID editortree.NotebookID `json:"notebook_id,omitempty"` // SaveCompleted, KernelReady, Output, NewGlobals
	Error      *string               `json:"error,omitempty"`       // SaveCompleted

	RunID uuid.UUID `json:"run_id,omitempty"` // KernelReady, Output, NewGlobals
	PID   int       `json:"pid,omitempty"`    // KernelReady

	CellID uuid.UUID                  `json:"cell_id,omitempty"` // Output
	Flag   editortree.OutputFlag      `json:"flag,omitempty"`    // Output
	Value  *editortree.OutputValue    `json:"value,omitempty"`   // Output
	Update *editortree.ScopeSnapshot  `json:"update,omitempty"`  // Output (terminal frame only)

	Globals *editortree.ScopeSnapshot `json:"globals,omitempty"` // NewGlobals

	Kernels []KernelInfo `json:"kernels,omitempty"` // Kernels

	Entries []DirEntry `json:"entries,omitempty"` // DirList
}

// KernelInfo is one row of a Kernels reply.
type KernelInfo struct {
	RunID      uuid.UUID             `json:"run_id"`
	NotebookID editortree.NotebookID `json:"notebook_id"`
	PID        int                   `json:"pid"`
}

// DirEntryType classifies a directory-listing entry.
type DirEntryType string

const (
	DirEntryFile            DirEntryType = "File"
	DirEntryNotebook        DirEntryType = "Notebook"
	DirEntryLoadedNotebook  DirEntryType = "LoadedNotebook"
)

// DirEntry is one row of a DirList push.
type DirEntry struct {
	EntryType DirEntryType `json:"entry_type"`
	Path      string       `json:"path"`
}

// NewNotebookMessage builds a NewNotebook reply.
func NewNotebookMessage(n *editortree.Notebook) ServerMessage {
	return ServerMessage{Type: ServerNewNotebook, Notebook: n}
}

// SaveCompletedMessage builds a SaveCompleted reply. errMsg is nil on success.
func SaveCompletedMessage(notebookID editortree.NotebookID, errMsg *string) ServerMessage {
	return ServerMessage{Type: ServerSaveCompleted, NotebookID: notebookID, Error: errMsg}
}

// KernelReadyMessage builds a KernelReady reply.
func KernelReadyMessage(notebookID editortree.NotebookID, runID uuid.UUID, pid int) ServerMessage {
	return ServerMessage{Type: ServerKernelReady, NotebookID: notebookID, RunID: runID, PID: pid}
}

// OutputMessage builds an Output frame. update is nil for every non-terminal frame.
func OutputMessage(notebookID editortree.NotebookID, runID, cellID uuid.UUID, flag editortree.OutputFlag, value editortree.OutputValue, update *editortree.ScopeSnapshot) ServerMessage {
	return ServerMessage{
		Type:       ServerOutput,
		NotebookID: notebookID,
		RunID:      runID,
		CellID:     cellID,
		Flag:       flag,
		Value:      &value,
		Update:     update,
	}
}

// NewGlobalsMessage builds a NewGlobals push.
func NewGlobalsMessage(notebookID editortree.NotebookID, runID uuid.UUID, globals *editortree.ScopeSnapshot) ServerMessage {
	return ServerMessage{Type: ServerNewGlobals, NotebookID: notebookID, RunID: runID, Globals: globals}
}

// KernelsMessage builds a KernelList reply.
func KernelsMessage(kernels []KernelInfo) ServerMessage {
	return ServerMessage{Type: ServerKernels, Kernels: kernels}
}

// DirListMessage builds an async directory-listing push.
func DirListMessage(entries []DirEntry) ServerMessage {
	return ServerMessage{Type: ServerDirList, Entries: entries}
}
