// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"encoding/json"

	"github.com/dop251/goja"

	"github.com/wingedpig/twinsong/internal/editortree"
	"github.com/wingedpig/twinsong/internal/jobject"
)

// Runtime is the kernel's entire in-process state for one run: the vm, the
// root group's namespace (identically the vm's global object), and the
// persistent per-Own-group namespaces built up across RunCode invocations.
type Runtime struct {
	VM       *goja.Runtime
	RootNS   *Namespace
	State    *GroupState
	builtins map[string]bool
}

// NewRuntime starts a fresh kernel runtime with no forked-in state.
func NewRuntime() *Runtime {
	vm := goja.New()
	names := installBuiltins(vm)
	builtins := make(map[string]bool, len(names))
	for _, n := range names {
		builtins[n] = true
	}
	return &Runtime{
		VM:       vm,
		RootNS:   &Namespace{Object: vm.GlobalObject(), Parent: nil},
		State:    NewGroupState(),
		builtins: builtins,
	}
}

// Snapshot walks root's full shape (not just the portion a RunCode touched)
// and reports every Own group's current namespace contents, recursively.
// Groups not yet encountered by any executed plan get a namespace here too
// — groupNamespace's create-or-reuse logic is idempotent, so calling it
// from a snapshot walk is safe even for a Group a RunCode never visited.
func (k *Runtime) Snapshot(root editortree.EditorNode) *editortree.ScopeSnapshot {
	return k.snapshotGroup(root, k.RootNS)
}

func (k *Runtime) snapshotGroup(node editortree.EditorNode, ns *Namespace) *editortree.ScopeSnapshot {
	name := node.Name
	if name == "" {
		name = "root"
	}
	snap := editortree.NewScopeSnapshot(name)

	for _, key := range ns.Object.Keys() {
		if k.builtins[key] || key == "parent_scope" {
			continue
		}
		val := ns.Object.Get(key)
		if val == nil {
			continue
		}
		doc := jobject.Build(k.VM, val, jobject.DefaultOptions())
		data, err := json.Marshal(doc)
		if err != nil {
			continue
		}
		snap.Variables[key] = data
	}

	for _, child := range node.Children {
		if !child.IsGroup() {
			continue
		}
		childNS := groupNamespace(k.VM, child, ns, k.State)
		snap.Children[child.ID] = k.snapshotGroup(child, childNS)
	}

	return snap
}
