// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/twinsong/internal/editortree"
)

func TestParseClientMessageLogin(t *testing.T) {
	m, err := ParseClientMessage([]byte(`{"type":"login"}`))
	require.NoError(t, err)
	assert.Equal(t, ClientLogin, m.Type)
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"Bogus"}`))
	require.Error(t, err)
}

func TestParseClientMessageRejectsMalformedJSON(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{not json`))
	require.Error(t, err)
}

func TestParseClientMessageLoadNotebookRequiresPath(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"LoadNotebook"}`))
	require.Error(t, err)

	m, err := ParseClientMessage([]byte(`{"type":"LoadNotebook","path":"notebook_1.tsnb"}`))
	require.NoError(t, err)
	assert.Equal(t, "notebook_1.tsnb", m.Path)
}

func TestRunCodeRoundTrip(t *testing.T) {
	cellID := uuid.New()
	calledID := uuid.New()
	node := editortree.EditorNode{Type: editortree.NodeCell, ID: calledID, Code: "1+1"}

	msg := ClientMessage{
		Type:       ClientRunCode,
		NotebookID: 7,
		RunID:      uuid.New(),
		Code:       "1+1",
		CellID:     cellID,
		EditorNode: &node,
		CalledID:   calledID,
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	got, err := ParseClientMessage(data)
	require.NoError(t, err)
	assert.Equal(t, msg.NotebookID, got.NotebookID)
	assert.Equal(t, msg.CellID, got.CellID)
	require.NotNil(t, got.EditorNode)
	assert.Equal(t, calledID, got.EditorNode.ID)
}

func TestOutputMessageEnvelope(t *testing.T) {
	runID, cellID := uuid.New(), uuid.New()
	value := editortree.OutputValue{Type: editortree.OutputText, Value: "3"}
	msg := OutputMessage(1, runID, cellID, editortree.FlagSuccess, value, nil)

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Output", decoded["type"])
	assert.Equal(t, "Success", decoded["flag"])
	assert.NotContains(t, decoded, "update")
}

func TestSaveCompletedOmitsErrorOnSuccess(t *testing.T) {
	msg := SaveCompletedMessage(3, nil)
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "error")
}

func TestSaveCompletedCarriesErrorMessage(t *testing.T) {
	errMsg := "disk full"
	msg := SaveCompletedMessage(3, &errMsg)
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "disk full", decoded["error"])
}
