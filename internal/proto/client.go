// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package proto defines the WebSocket message envelope shared by the
// client-facing session loop, and the stripped-down variant of the same
// shapes used on the kernel pipe. Every frame is a single JSON object
// discriminated by its "type" field; this package models that as one
// envelope struct per direction rather than an interface hierarchy, so a
// session loop can decode with a single json.Unmarshal and then switch on
// Type.
package proto

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/wingedpig/twinsong/internal/editortree"
)

// ClientType discriminates a ClientMessage.
type ClientType string

const (
	ClientLogin            ClientType = "login"
	ClientCreateNewNotebook ClientType = "CreateNewNotebook"
	ClientLoadNotebook      ClientType = "LoadNotebook"
	ClientSaveNotebook      ClientType = "SaveNotebook"
	ClientCreateNewKernel   ClientType = "CreateNewKernel"
	ClientFork              ClientType = "Fork"
	ClientCloseRun          ClientType = "CloseRun"
	ClientRunCode           ClientType = "RunCode"
	ClientKernelList        ClientType = "KernelList"
	ClientQueryDir          ClientType = "QueryDir"
)

// ClientMessage is a single inbound frame from a WebSocket session. Fields
// not relevant to Type are left zero; RunManager dispatch reads only the
// fields its handler for Type needs.
type ClientMessage struct {
	Type ClientType `json:"type"`

	Path string `json:"path,omitempty"` // LoadNotebook

	NotebookID editortree.NotebookID `json:"notebook_id,omitempty"` // SaveNotebook, CreateNewKernel, Fork, CloseRun, RunCode
	EditorRoot *editortree.EditorNode `json:"editor_root,omitempty"` // SaveNotebook

	RunID        uuid.UUID `json:"run_id,omitempty"`         // CreateNewKernel, Fork, CloseRun, RunCode
	RunTitle     string    `json:"run_title,omitempty"`      // CreateNewKernel, Fork
	NewRunID     uuid.UUID `json:"new_run_id,omitempty"`      // Fork
	NewRunTitle  string    `json:"new_run_title,omitempty"`   // Fork

	Code       string               `json:"code,omitempty"`        // RunCode
	CellID     uuid.UUID            `json:"cell_id,omitempty"`     // RunCode
	EditorNode *editortree.EditorNode `json:"editor_node,omitempty"` // RunCode
	CalledID   uuid.UUID            `json:"called_id,omitempty"`   // RunCode
}

// ParseClientMessage decodes one frame and validates that it carries the
// fields its Type requires. It does not validate ids against live server
// state — that is the Run manager's job.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var m ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ClientMessage{}, fmt.Errorf("proto: malformed client message: %w", err)
	}
	switch m.Type {
	case ClientLogin, ClientCreateNewNotebook, ClientKernelList, ClientQueryDir:
	case ClientLoadNotebook:
		if m.Path == "" {
			return ClientMessage{}, fmt.Errorf("proto: LoadNotebook requires path")
		}
	case ClientSaveNotebook:
		if m.EditorRoot == nil {
			return ClientMessage{}, fmt.Errorf("proto: SaveNotebook requires editor_root")
		}
	case ClientCreateNewKernel:
	case ClientFork:
		if m.NewRunID == uuid.Nil {
			return ClientMessage{}, fmt.Errorf("proto: Fork requires new_run_id")
		}
	case ClientCloseRun:
	case ClientRunCode:
		if m.EditorNode == nil {
			return ClientMessage{}, fmt.Errorf("proto: RunCode requires editor_node")
		}
	default:
		return ClientMessage{}, fmt.Errorf("proto: unknown client message type %q", m.Type)
	}
	return m, nil
}
