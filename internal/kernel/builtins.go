// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"strconv"

	"github.com/dop251/goja"
)

// installBuiltins installs the kernel's notebook-facing constructors onto
// vm's global object and returns their names, so a ScopeSnapshot walk can
// exclude them from the root group's reported variables — they're part of
// the execution environment, not something a notebook assigned.
func installBuiltins(vm *goja.Runtime) []string {
	_ = vm.Set("tuple", tupleBuiltin(vm))
	_ = vm.Set("dataclass", dataclassBuiltin(vm))
	return []string{"tuple", "dataclass"}
}

// tupleBuiltin returns tuple(...items), an array tagged with a
// non-enumerable __tuple__ marker jobject.Build recognizes so the value
// renders with kind "tuple" instead of "list".
func tupleBuiltin(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		arr := vm.NewArray()
		for i, arg := range call.Arguments {
			_ = arr.Set(strconv.Itoa(i), arg)
		}
		_ = arr.DefineDataProperty("__tuple__", vm.ToValue(true), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
		return arr
	}
}

// dataclassBuiltin returns dataclass(name, fields), a plain object copied
// from fields and tagged with __dataclass__ = name so jobject.Build renders
// it with kind "dataclass" and value_type set to name.
func dataclassBuiltin(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		obj := vm.NewObject()
		if len(call.Arguments) < 1 {
			return obj
		}
		name := call.Arguments[0].String()
		if len(call.Arguments) >= 2 {
			if fields, ok := call.Arguments[1].(*goja.Object); ok {
				for _, k := range fields.Keys() {
					_ = obj.Set(k, fields.Get(k))
				}
			}
		}
		_ = obj.Set("__dataclass__", vm.ToValue(name))
		return obj
	}
}
