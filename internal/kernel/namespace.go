// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package kernel implements the per-run child process: the scope tree
// walk that turns an editor-tree RunCode request into an execution plan,
// the persistent namespaces that back each Own group, the parent_scope
// proxy, the framed request/response loop, and the Fork pickling
// substitute.
package kernel

import "github.com/dop251/goja"

// Namespace is the locals bag for one editor-tree Group. Own groups get a
// fresh backing object; Inherit groups share their parent's Namespace
// value outright rather than creating a new one, so writes inside an
// Inherit group are visible in the parent without any proxying.
type Namespace struct {
	Object *goja.Object
	Parent *Namespace
}

// NewNamespace allocates a fresh, empty namespace backed by a new goja
// object, parented to parent (nil for the root).
func NewNamespace(vm *goja.Runtime, parent *Namespace) *Namespace {
	return &Namespace{Object: vm.NewObject(), Parent: parent}
}
