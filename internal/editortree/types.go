// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package editortree defines the editor-tree data model shared by the
// WebSocket protocol, the run manager, and the kernel: Cells and Groups
// instead of a flat cell list, plus the run/output/scope-snapshot types
// that mirror an editor tree's execution state.
package editortree

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// NodeType discriminates an EditorNode.
type NodeType string

const (
	NodeCell  NodeType = "Cell"
	NodeGroup NodeType = "Group"
)

// Scope selects whether a Group introduces a fresh namespace or reuses
// its parent's.
type Scope string

const (
	ScopeOwn     Scope = "Own"
	ScopeInherit Scope = "Inherit"
)

// EditorNode is the recursive sum type Cell | Group. Cell fields (Code)
// and Group fields (Name, Scope, Children) are mutually exclusive based
// on Type; both are embedded flatly to match the wire JSON shape (a
// single tagged object, not a Go-style enum-with-payload).
type EditorNode struct {
	Type     NodeType     `json:"type"`
	ID       uuid.UUID    `json:"id"`
	Code     string       `json:"code,omitempty"`
	Name     string       `json:"name,omitempty"`
	Scope    Scope        `json:"scope,omitempty"`
	Children []EditorNode `json:"children,omitempty"`
}

// IsCell reports whether n is a Cell node.
func (n EditorNode) IsCell() bool { return n.Type == NodeCell }

// IsGroup reports whether n is a Group node.
func (n EditorNode) IsGroup() bool { return n.Type == NodeGroup }

// NotebookID is a monotonically assigned per-server identifier.
type NotebookID int64

// KernelState is the lifecycle state of a Run's kernel.
type KernelState string

const (
	KernelRunning KernelState = "Running"
	KernelClosed  KernelState = "Closed"
)

// OutputValueType discriminates an OutputValue.
type OutputValueType string

const (
	OutputText    OutputValueType = "Text"
	OutputNone    OutputValueType = "None"
	OutputJObject OutputValueType = "JObject"
	OutputError   OutputValueType = "Error"
)

// OutputValue is a tagged variant: Text/None carry plain strings,
// JObject carries the JSON text of a jobject document, Error carries a
// formatted exception message.
type OutputValue struct {
	Type  OutputValueType `json:"type"`
	Value string          `json:"value,omitempty"`
}

// OutputFlag is the run state of an OutputCell.
type OutputFlag string

const (
	FlagRunning OutputFlag = "Running"
	FlagSuccess OutputFlag = "Success"
	FlagFail    OutputFlag = "Fail"
)

// OutputCell is one executed invocation's accumulated output.
type OutputCell struct {
	ID         uuid.UUID     `json:"id"`
	EditorNode EditorNode    `json:"editor_node"`
	CalledID   uuid.UUID     `json:"called_id"`
	Flag       OutputFlag    `json:"flag"`
	Values     []OutputValue `json:"values"`
}

// ScopeSnapshot mirrors the namespace tree produced by executing an
// editor tree. A nil entry in Variables is an explicit tombstone: the
// name existed in a previous snapshot and is now absent. A missing key
// means the name never existed.
type ScopeSnapshot struct {
	Name      string                    `json:"name"`
	Variables map[string]json.RawMessage `json:"variables"`
	Children  map[uuid.UUID]*ScopeSnapshot `json:"children"`
}

// NewScopeSnapshot returns an empty, initialized snapshot.
func NewScopeSnapshot(name string) *ScopeSnapshot {
	return &ScopeSnapshot{
		Name:      name,
		Variables: make(map[string]json.RawMessage),
		Children:  make(map[uuid.UUID]*ScopeSnapshot),
	}
}

// Run is one invocation-context of a notebook, backed by a single kernel
// subprocess (or, once the kernel has exited, its last recorded state).
type Run struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	KernelState KernelState    `json:"kernel_state"`
	OutputCells []OutputCell   `json:"output_cells"`
	Globals     *ScopeSnapshot `json:"globals"`
}

// Notebook is the persisted, in-memory unit the run manager owns.
type Notebook struct {
	ID              NotebookID     `json:"id"`
	Path            string         `json:"path"`
	EditorRoot      EditorNode     `json:"editor_root"`
	Runs            []Run          `json:"runs"`
	EditorOpenNodes []uuid.UUID    `json:"editor_open_nodes"`
}

// FindRun returns a pointer to the run with the given id, or nil.
func (n *Notebook) FindRun(runID uuid.UUID) *Run {
	for i := range n.Runs {
		if n.Runs[i].ID == runID {
			return &n.Runs[i]
		}
	}
	return nil
}

// NewEmptyEditorRoot synthesizes the editor_root for a brand-new notebook:
// a single Own Group with no children.
func NewEmptyEditorRoot() EditorNode {
	return EditorNode{
		Type:     NodeGroup,
		ID:       uuid.New(),
		Name:     "root",
		Scope:    ScopeOwn,
		Children: nil,
	}
}

// String implements fmt.Stringer for debugging/log lines.
func (n EditorNode) String() string {
	if n.IsCell() {
		return fmt.Sprintf("Cell(%s)", n.ID)
	}
	return fmt.Sprintf("Group(%s, %s, %s, %d children)", n.ID, n.Name, n.Scope, len(n.Children))
}
