// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package kernel

import "github.com/dop251/goja"

// parentScopeProxy implements goja.DynamicObject to realize the
// parent_scope contract: reads resolve against the parent group's
// namespace; writes land in both the parent's namespace and the run's
// globals, which is how `parent_scope.x = 10; x = x - 6` mutates the
// parent while the cell's own local `x` diverges.
type parentScopeProxy struct {
	parent  *goja.Object
	globals *goja.Object
}

func newParentScopeProxy(parent, globals *goja.Object) *parentScopeProxy {
	return &parentScopeProxy{parent: parent, globals: globals}
}

func (p *parentScopeProxy) Get(key string) goja.Value {
	return p.parent.Get(key)
}

func (p *parentScopeProxy) Set(key string, val goja.Value) bool {
	if err := p.parent.Set(key, val); err != nil {
		return false
	}
	if err := p.globals.Set(key, val); err != nil {
		return false
	}
	return true
}

func (p *parentScopeProxy) Has(key string) bool {
	return p.parent.Get(key) != nil
}

func (p *parentScopeProxy) Delete(key string) bool {
	return p.parent.Delete(key)
}

func (p *parentScopeProxy) Keys() []string {
	return p.parent.Keys()
}

// bindParentScope installs a parent_scope proxy in locals immediately
// before running the called plan entry's code. The returned func removes
// it again; call it unconditionally (defer) even on a panicking or
// interrupted execution.
func bindParentScope(vm *goja.Runtime, locals *Namespace, globals *goja.Object) func() {
	if locals.Parent == nil {
		return func() {}
	}
	proxy := newParentScopeProxy(locals.Parent.Object, globals)
	_ = locals.Object.Set("parent_scope", vm.NewDynamicObject(proxy))
	return func() {
		locals.Object.Delete("parent_scope")
	}
}
