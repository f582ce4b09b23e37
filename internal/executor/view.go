// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package executor

import "github.com/dop251/goja"

// namespaceView implements goja.DynamicObject and is the object a
// fragment's `with` wrapper is anchored to. It realizes exec(source,
// globals, locals): an unqualified read checks locals first and falls
// through to globals only when locals doesn't have the name; every write
// — including the first write to a name that already exists in globals —
// lands in locals. This is what makes `x = x - 6` against a pre-existing
// global x shadow rather than mutate it, and what keeps a later bare read
// in the same fragment seeing an earlier write the fragment itself just
// made (e.g. through a parent_scope proxy write into globals).
type namespaceView struct {
	locals  *goja.Object
	globals *goja.Object
}

func newNamespaceView(locals, globals *goja.Object) *namespaceView {
	return &namespaceView{locals: locals, globals: globals}
}

func (v *namespaceView) Get(key string) goja.Value {
	if val := v.locals.Get(key); val != nil {
		return val
	}
	return v.globals.Get(key)
}

func (v *namespaceView) Set(key string, val goja.Value) bool {
	return v.locals.Set(key, val) == nil
}

func (v *namespaceView) Has(key string) bool {
	return v.locals.Get(key) != nil || v.globals.Get(key) != nil
}

func (v *namespaceView) Delete(key string) bool {
	return v.locals.Delete(key)
}

func (v *namespaceView) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, k := range v.locals.Keys() {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, k := range v.globals.Keys() {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}
