// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/twinsong/internal/editortree"
	"github.com/wingedpig/twinsong/internal/proto"
	"github.com/wingedpig/twinsong/internal/wire"
)

func runOnce(t *testing.T, k *Runtime, req proto.KernelRequest) []proto.KernelResponse {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, handleRunCode(k, wire.NewEncoder(&buf), req))

	dec := wire.NewDecoder(&buf)
	var out []proto.KernelResponse
	for {
		var resp proto.KernelResponse
		if err := dec.Decode(&resp); err != nil {
			break
		}
		out = append(out, resp)
	}
	return out
}

func oneCellRoot(cellID uuid.UUID, code string) editortree.EditorNode {
	return editortree.EditorNode{
		Type:  editortree.NodeGroup,
		ID:    uuid.New(),
		Scope: editortree.ScopeOwn,
		Children: []editortree.EditorNode{
			{Type: editortree.NodeCell, ID: cellID, Code: code},
		},
	}
}

// S1: RunCode("1 + 2") produces one terminal Output whose value renders as
// {kind:"number", repr:"3", value_type:"int"}, followed by a NewGlobals.
func TestHandleRunCodeCapturesExpression(t *testing.T) {
	k := NewRuntime()
	cellID := uuid.New()
	root := oneCellRoot(cellID, "1 + 2")

	resps := runOnce(t, k, proto.KernelRequest{
		Type: proto.KernelRequestRunCode, Code: "1 + 2", CellID: uuid.New(),
		EditorNode: &root, CalledID: cellID,
	})

	require.Len(t, resps, 2)
	assert.Equal(t, proto.KernelResponseOutput, resps[0].Type)
	assert.Equal(t, editortree.FlagSuccess, resps[0].Flag)
	assert.Equal(t, editortree.OutputJObject, resps[0].Value.Type)
	assert.Contains(t, resps[0].Value.Value, `"repr":"3"`)
	assert.Equal(t, proto.KernelResponseNewGlobals, resps[1].Type)
}

// S2: print("Hello") then print("World") streams Text "Hello", "\n", "World",
// "\n" as separate Output frames in order, then a None terminal frame.
func TestHandleRunCodeStreamsStdoutInOrder(t *testing.T) {
	k := NewRuntime()
	cellID := uuid.New()
	root := oneCellRoot(cellID, "console.log(\"Hello\")\nconsole.log(\"World\")")

	resps := runOnce(t, k, proto.KernelRequest{
		Type: proto.KernelRequestRunCode, Code: root.Children[0].Code, CellID: uuid.New(),
		EditorNode: &root, CalledID: cellID,
	})

	require.True(t, len(resps) >= 5)
	texts := []string{}
	for _, r := range resps {
		if r.Type == proto.KernelResponseOutput && r.Value.Type == editortree.OutputText {
			texts = append(texts, r.Value.Value)
		}
	}
	assert.Equal(t, []string{"Hello", "\n", "World", "\n"}, texts)

	terminal := resps[len(resps)-2]
	assert.Equal(t, editortree.FlagSuccess, terminal.Flag)
	assert.Equal(t, editortree.OutputNone, terminal.Value.Type)
}

// S3: x=2, then x=3;y=4, then x=5 yields a final snapshot with x=5, y=null.
func TestHandleRunCodeScopeSnapshotTombstonesRemovedName(t *testing.T) {
	k := NewRuntime()

	run := func(code string) []proto.KernelResponse {
		cellID := uuid.New()
		root := oneCellRoot(cellID, code)
		return runOnce(t, k, proto.KernelRequest{
			Type: proto.KernelRequestRunCode, Code: code, CellID: uuid.New(),
			EditorNode: &root, CalledID: cellID,
		})
	}

	run("x = 2")
	resps := run("x = 3\ny = 4")
	last := resps[len(resps)-1]
	require.Equal(t, proto.KernelResponseNewGlobals, last.Type)
	assert.JSONEq(t, "3", string(last.Globals.Variables["x"]))
	assert.JSONEq(t, "4", string(last.Globals.Variables["y"]))

	resps = run("x = 5")
	last = resps[len(resps)-1]
	assert.JSONEq(t, "5", string(last.Globals.Variables["x"]))
	// y no longer exists in this run's own namespace once a fragment that
	// doesn't mention it executes — the kernel reports whatever's live,
	// tombstoning old names is the run manager's diff, not the kernel's.
	_, stillPresent := last.Globals.Variables["y"]
	assert.False(t, stillPresent)
}

func TestHandleRunCodeSyntaxErrorProducesFailFrame(t *testing.T) {
	k := NewRuntime()
	cellID := uuid.New()
	root := oneCellRoot(cellID, "1 +")

	resps := runOnce(t, k, proto.KernelRequest{
		Type: proto.KernelRequestRunCode, Code: "1 +", CellID: uuid.New(),
		EditorNode: &root, CalledID: cellID,
	})

	require.Len(t, resps, 2)
	assert.Equal(t, editortree.FlagFail, resps[0].Flag)
	assert.Equal(t, editortree.OutputError, resps[0].Value.Type)
}

func TestHandleRunCodeUnknownCalledIDFails(t *testing.T) {
	k := NewRuntime()
	root := oneCellRoot(uuid.New(), "1")

	var buf bytes.Buffer
	enc := wire.NewEncoder(&buf)
	err := handleRunCode(k, enc, proto.KernelRequest{
		Type: proto.KernelRequestRunCode, CellID: uuid.New(), EditorNode: &root, CalledID: uuid.New(),
	})
	require.NoError(t, err)

	dec := wire.NewDecoder(&buf)
	var resp proto.KernelResponse
	require.NoError(t, dec.Decode(&resp))
	assert.Equal(t, editortree.FlagFail, resp.Flag)
}

// An interrupted fragment suppresses the terminal frame entirely.
func TestHandleRunCodeInterruptSuppressesTerminalFrame(t *testing.T) {
	k := NewRuntime()
	cellID := uuid.New()
	root := oneCellRoot(cellID, "while (true) {}")

	go func() {
		time.Sleep(20 * time.Millisecond)
		k.VM.Interrupt("cancelled")
	}()

	var buf bytes.Buffer
	err := handleRunCode(k, wire.NewEncoder(&buf), proto.KernelRequest{
		Type: proto.KernelRequestRunCode, Code: "while (true) {}", CellID: uuid.New(),
		EditorNode: &root, CalledID: cellID,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, buf.Len())
}

// A non-called prefix cell in an Own group has no parent_scope bound:
// referencing it fails the entry and short-circuits the plan with a Fail
// frame.
func TestHandleRunCodeParentScopeOnlyBoundForCalledEntry(t *testing.T) {
	k := NewRuntime()
	prefixID, calledID := uuid.New(), uuid.New()
	group := editortree.EditorNode{
		Type:  editortree.NodeGroup,
		ID:    uuid.New(),
		Scope: editortree.ScopeOwn,
		Children: []editortree.EditorNode{
			{Type: editortree.NodeCell, ID: prefixID, Code: "parent_scope.y = 1"},
			{Type: editortree.NodeCell, ID: calledID, Code: "1"},
		},
	}
	root := editortree.EditorNode{
		Type:     editortree.NodeGroup,
		ID:       uuid.New(),
		Scope:    editortree.ScopeOwn,
		Children: []editortree.EditorNode{group},
	}

	resps := runOnce(t, k, proto.KernelRequest{
		Type: proto.KernelRequestRunCode, Code: "1", CellID: uuid.New(),
		EditorNode: &root, CalledID: calledID,
	})

	require.Len(t, resps, 2)
	assert.Equal(t, editortree.FlagFail, resps[0].Flag)
	assert.Equal(t, editortree.OutputError, resps[0].Value.Type)
	assert.Contains(t, resps[0].Value.Value, "parent_scope")
}

// The called entry itself does get parent_scope bound, and a write
// through it lands in the parent Own group's namespace.
func TestHandleRunCodeParentScopeBoundForCalledEntry(t *testing.T) {
	k := NewRuntime()
	calledID := uuid.New()
	group := editortree.EditorNode{
		Type:  editortree.NodeGroup,
		ID:    uuid.New(),
		Scope: editortree.ScopeOwn,
		Children: []editortree.EditorNode{
			{Type: editortree.NodeCell, ID: calledID, Code: "parent_scope.y = 1"},
		},
	}
	root := editortree.EditorNode{
		Type:     editortree.NodeGroup,
		ID:       uuid.New(),
		Scope:    editortree.ScopeOwn,
		Children: []editortree.EditorNode{group},
	}

	resps := runOnce(t, k, proto.KernelRequest{
		Type: proto.KernelRequestRunCode, Code: "parent_scope.y = 1", CellID: uuid.New(),
		EditorNode: &root, CalledID: calledID,
	})

	require.Len(t, resps, 2)
	assert.Equal(t, editortree.FlagSuccess, resps[0].Flag)
	last := resps[len(resps)-1]
	require.Equal(t, proto.KernelResponseNewGlobals, last.Type)
	assert.JSONEq(t, "1", string(last.Globals.Variables["y"]))
}

func TestRunLoopStopsOnShutdown(t *testing.T) {
	k := NewRuntime()
	var in bytes.Buffer
	require.NoError(t, wire.NewEncoder(&in).Encode(proto.KernelRequest{Type: proto.KernelRequestShutdown}))

	var out bytes.Buffer
	err := RunLoop(k, &in, &out)
	require.NoError(t, err)
}
