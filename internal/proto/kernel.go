// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"github.com/google/uuid"

	"github.com/wingedpig/twinsong/internal/editortree"
)

// KernelRequestType discriminates a request sent down a kernel's stdin pipe.
type KernelRequestType string

const (
	KernelRequestRunCode  KernelRequestType = "RunCode"
	KernelRequestSnapshot KernelRequestType = "Snapshot" // used by Fork to request a pickled handoff
	KernelRequestShutdown KernelRequestType = "Shutdown"
)

// KernelRequest is one frame the server writes to a kernel's stdin.
type KernelRequest struct {
	Type KernelRequestType `json:"type"`

	Code       string                 `json:"code,omitempty"`
	CellID     uuid.UUID              `json:"cell_id,omitempty"`
	EditorNode *editortree.EditorNode `json:"editor_node,omitempty"`
	CalledID   uuid.UUID              `json:"called_id,omitempty"`
}

// KernelResponseType discriminates a frame read from a kernel's stdout.
type KernelResponseType string

const (
	KernelResponseOutput     KernelResponseType = "Output"
	KernelResponseNewGlobals KernelResponseType = "NewGlobals"
	KernelResponseSnapshot   KernelResponseType = "Snapshot"
)

// KernelResponse mirrors the Output/NewGlobals server message shape but
// omits notebook_id/run_id and the scope-snapshot diff: the kernel always
// reports a full ScopeSnapshot on Globals, never a delta, and it's the run
// manager's job (internal/runmanager/diff.go) to diff it against
// last_globals and attach the result to the Output frame it forwards to
// the client.
type KernelResponse struct {
	Type KernelResponseType `json:"type"`

	CellID uuid.UUID               `json:"cell_id,omitempty"`
	Flag   editortree.OutputFlag   `json:"flag,omitempty"`
	Value  *editortree.OutputValue `json:"value,omitempty"`

	Globals *editortree.ScopeSnapshot `json:"globals,omitempty"`

	// SnapshotData is the gob-encoded pickled globals payload produced in
	// response to a Snapshot request, consumed by Fork to seed the heir
	// kernel's -resume file.
	SnapshotData []byte `json:"snapshot_data,omitempty"`
}
