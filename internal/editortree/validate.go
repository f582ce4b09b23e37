// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package editortree

import (
	"fmt"

	"github.com/google/uuid"
)

// Validate enforces the tree's structural invariants: ids unique within
// the tree, the root is a Group, and a Cell has no children. It also rejects
// cyclic trees by construction — EditorNode is acyclic by Go's value
// semantics (Children is a slice of values, not pointers), so the only
// cycle a malicious/buggy client payload could smuggle in is a duplicate
// id pretending to be shared structure; Validate catches that as a
// duplicate-id error rather than walking into an infinite loop.
func Validate(root EditorNode) error {
	seen := make(map[uuid.UUID]bool)
	return validateNode(root, seen, true)
}

func validateNode(n EditorNode, seen map[uuid.UUID]bool, isRoot bool) error {
	if n.ID == uuid.Nil {
		return fmt.Errorf("editortree: node has a nil id")
	}
	if seen[n.ID] {
		return fmt.Errorf("editortree: duplicate node id %s", n.ID)
	}
	seen[n.ID] = true

	switch n.Type {
	case NodeCell:
		if isRoot {
			return fmt.Errorf("editortree: root node must be a Group, got Cell %s", n.ID)
		}
		if len(n.Children) != 0 {
			return fmt.Errorf("editortree: cell %s must not have children", n.ID)
		}
	case NodeGroup:
		if n.Scope != ScopeOwn && n.Scope != ScopeInherit {
			return fmt.Errorf("editortree: group %s has invalid scope %q", n.ID, n.Scope)
		}
		for _, child := range n.Children {
			if err := validateNode(child, seen, false); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("editortree: node %s has unknown type %q", n.ID, n.Type)
	}
	return nil
}

// FindNode returns the descendant (or n itself) with the given id, and
// the chain of ancestor Groups from root to that node (exclusive of the
// node itself). Used to build the RunCode execution plan up to called_id.
func FindNode(root EditorNode, id uuid.UUID) (node EditorNode, ancestors []EditorNode, ok bool) {
	if root.ID == id {
		return root, nil, true
	}
	if root.IsGroup() {
		for _, child := range root.Children {
			if found, chain, ok := FindNode(child, id); ok {
				return found, append([]EditorNode{root}, chain...), true
			}
		}
	}
	return EditorNode{}, nil, false
}
