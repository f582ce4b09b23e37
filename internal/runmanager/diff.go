// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package runmanager is the single actor owning every notebook, run, and
// kernel handle the server knows about. It dispatches RunCode into kernel
// processes, diffs the ScopeSnapshot each NewGlobals carries against
// last_globals, and persists notebooks through internal/store.
package runmanager

import "github.com/wingedpig/twinsong/internal/editortree"

// Diff computes the ScopeSnapshot delta the client's NewGlobals/Output
// "update" fields carry: the union of variable keys between old and new,
// a tombstone (json.RawMessage(nil), which marshals to JSON null) for a
// key present in old but absent from new, recursion into children by
// group id, and a zeroed-out skeleton for a child present in old but
// absent from new.
func Diff(old, newSnap *editortree.ScopeSnapshot) *editortree.ScopeSnapshot {
	result := editortree.NewScopeSnapshot(newSnap.Name)

	for k, v := range newSnap.Variables {
		result.Variables[k] = v
	}
	if old != nil {
		for k := range old.Variables {
			if _, ok := newSnap.Variables[k]; !ok {
				result.Variables[k] = nil
			}
		}
	}

	for id, childNew := range newSnap.Children {
		var childOld *editortree.ScopeSnapshot
		if old != nil {
			childOld = old.Children[id]
		}
		result.Children[id] = Diff(childOld, childNew)
	}
	if old != nil {
		for id, childOld := range old.Children {
			if _, ok := newSnap.Children[id]; !ok {
				result.Children[id] = skeleton(childOld)
			}
		}
	}

	return result
}

// skeleton tombstones every variable a removed child last reported,
// recursively, so a client that only ever applies diffs still sees every
// name it once knew about go to null rather than silently vanishing.
func skeleton(s *editortree.ScopeSnapshot) *editortree.ScopeSnapshot {
	out := editortree.NewScopeSnapshot(s.Name)
	for k := range s.Variables {
		out.Variables[k] = nil
	}
	for id, child := range s.Children {
		out.Children[id] = skeleton(child)
	}
	return out
}
