// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/twinsong/internal/editortree"
)

// S5: a run containing G1(Own){Cell "x=3"} forked to a new run; the heir's
// snapshot shows G1.x = 3, and executing "x + 1" under the same G1(Own) in
// the heir returns a captured 4.
func TestForkSnapshotRoundTripsGroupState(t *testing.T) {
	source := NewRuntime()
	g1 := uuid.New()
	cellID := uuid.New()
	root := editortree.EditorNode{
		Type: editortree.NodeGroup, ID: uuid.New(), Scope: editortree.ScopeOwn,
		Children: []editortree.EditorNode{
			{
				Type: editortree.NodeGroup, ID: g1, Scope: editortree.ScopeOwn,
				Children: []editortree.EditorNode{
					{Type: editortree.NodeCell, ID: cellID, Code: "x = 3"},
				},
			},
		},
	}

	plan, err := BuildPlan(source.VM, root, source.RootNS, source.State, cellID)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	require.NoError(t, runPlanEntry(t, source, plan[0]))

	blob, err := source.ForkSnapshot(root)
	require.NoError(t, err)

	heir := NewRuntime()
	require.NoError(t, heir.Resume(root, blob))

	snap := heir.Snapshot(root)
	childSnap := snap.Children[g1]
	require.NotNil(t, childSnap)
	assert.JSONEq(t, "3", string(childSnap.Variables["x"]))

	cell2 := uuid.New()
	root2 := root
	root2.Children = []editortree.EditorNode{
		{
			Type: editortree.NodeGroup, ID: g1, Scope: editortree.ScopeOwn,
			Children: []editortree.EditorNode{
				{Type: editortree.NodeCell, ID: cell2, Code: "x + 1"},
			},
		},
	}
	plan2, err := BuildPlan(heir.VM, root2, heir.RootNS, heir.State, cell2)
	require.NoError(t, err)
	require.Len(t, plan2, 1)

	out, execErr := runPlanEntryCapture(t, heir, plan2[0])
	require.NoError(t, execErr)
	assert.Equal(t, editortree.OutputJObject, out.Type)
	assert.Contains(t, out.Value, `"repr":"4"`)
}

func TestForkSnapshotDropsFunctions(t *testing.T) {
	source := NewRuntime()
	cellID := uuid.New()
	root := editortree.EditorNode{
		Type: editortree.NodeGroup, ID: uuid.New(), Scope: editortree.ScopeOwn,
		Children: []editortree.EditorNode{
			{Type: editortree.NodeCell, ID: cellID, Code: "f = function() { return 1 }"},
		},
	}
	plan, err := BuildPlan(source.VM, root, source.RootNS, source.State, cellID)
	require.NoError(t, err)
	require.NoError(t, runPlanEntry(t, source, plan[0]))

	blob, err := source.ForkSnapshot(root)
	require.NoError(t, err)

	heir := NewRuntime()
	require.NoError(t, heir.Resume(root, blob))
	assert.Nil(t, heir.RootNS.Object.Get("f"))
}
