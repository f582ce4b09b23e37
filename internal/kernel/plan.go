// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"github.com/wingedpig/twinsong/internal/editortree"
)

// PlanEntry is one (namespace, code) step of a RunCode execution plan:
// run Code against Namespace as both the Cell's locals and its identity
// for output attribution.
type PlanEntry struct {
	Namespace *Namespace
	Code      string
	CellID    uuid.UUID
}

// GroupState is the kernel's persistent memory of which namespace backs
// each Own group across RunCode invocations within a single run, plus
// which Scope it was last seen under.
type GroupState struct {
	NS    map[uuid.UUID]*Namespace
	Scope map[uuid.UUID]editortree.Scope
}

// NewGroupState returns an empty GroupState.
func NewGroupState() *GroupState {
	return &GroupState{NS: make(map[uuid.UUID]*Namespace), Scope: make(map[uuid.UUID]editortree.Scope)}
}

// BuildPlan walks root depth-first, left-to-right, pre-order, producing
// the ordered list of (namespace, code) steps up to and including the
// Cell identified by calledID. root's own namespace is rootNS directly —
// globals is also the Own namespace of the root editor group, so root
// never goes through groupNamespace itself; only its descendant groups do.
func BuildPlan(vm *goja.Runtime, root editortree.EditorNode, rootNS *Namespace, state *GroupState, calledID uuid.UUID) ([]PlanEntry, error) {
	var entries []PlanEntry
	var done bool
	var err error

	if root.IsCell() {
		entries = []PlanEntry{{Namespace: rootNS, Code: root.Code, CellID: root.ID}}
		done = root.ID == calledID
	} else {
		entries, done, err = walkChildren(vm, root, rootNS, state, calledID)
	}
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, fmt.Errorf("kernel: called_id %s not found in submitted editor_node", calledID)
	}
	return entries, nil
}

// walkChildren walks a Group's children under ns, resolving each child
// Group's own namespace via groupNamespace before recursing into it.
func walkChildren(vm *goja.Runtime, node editortree.EditorNode, ns *Namespace, state *GroupState, calledID uuid.UUID) (entries []PlanEntry, done bool, err error) {
	for _, child := range node.Children {
		childEntries, childDone, err := walkPlan(vm, child, ns, state, calledID)
		entries = append(entries, childEntries...)
		if err != nil {
			return entries, false, err
		}
		if childDone {
			return entries, true, nil
		}
	}
	return entries, false, nil
}

func walkPlan(vm *goja.Runtime, node editortree.EditorNode, ns *Namespace, state *GroupState, calledID uuid.UUID) (entries []PlanEntry, done bool, err error) {
	if node.IsCell() {
		entries = append(entries, PlanEntry{Namespace: ns, Code: node.Code, CellID: node.ID})
		return entries, node.ID == calledID, nil
	}

	childNS := groupNamespace(vm, node, ns, state)
	return walkChildren(vm, node, childNS, state, calledID)
}

// groupNamespace resolves the namespace a Group's children execute
// against. Own groups get a persistent namespace keyed by Group id; a
// Group id previously seen under a different Scope discards whatever was
// persisted and starts fresh; that's the conservative choice when a
// group's scope changes out from under an existing namespace.
func groupNamespace(vm *goja.Runtime, node editortree.EditorNode, parent *Namespace, state *GroupState) *Namespace {
	prevScope, seen := state.Scope[node.ID]
	if node.Scope == editortree.ScopeInherit {
		if seen && prevScope != editortree.ScopeInherit {
			delete(state.NS, node.ID)
		}
		state.Scope[node.ID] = editortree.ScopeInherit
		return parent
	}

	if seen && prevScope == editortree.ScopeOwn {
		if ns, ok := state.NS[node.ID]; ok {
			return ns
		}
	}
	ns := NewNamespace(vm, parent)
	state.NS[node.ID] = ns
	state.Scope[node.ID] = editortree.ScopeOwn
	return ns
}
