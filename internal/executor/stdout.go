// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"io"
	"strings"

	"github.com/dop251/goja"
)

// bindStdout installs console.log and a minimal process.stdout.write on
// vm's global object, both writing through w, and returns a restore func
// that removes them. Embedded JS has no ambient "print" the way Python
// code does, so the kernel must supply one; binding it fresh per call
// means each fragment's writes are attributed to that fragment's sink.
func bindStdout(vm *goja.Runtime, w io.Writer) func() {
	prevConsole := vm.Get("console")
	prevProcess := vm.Get("process")

	console := vm.NewObject()
	_ = console.Set("log", func(call goja.FunctionCall) goja.Value {
		writeArgs(w, call.Arguments)
		return goja.Undefined()
	})
	_ = vm.Set("console", console)

	process := vm.NewObject()
	stdout := vm.NewObject()
	_ = stdout.Set("write", func(call goja.FunctionCall) goja.Value {
		for _, a := range call.Arguments {
			_, _ = io.WriteString(w, a.String())
		}
		return goja.Undefined()
	})
	_ = process.Set("stdout", stdout)
	_ = vm.Set("process", process)

	return func() {
		restoreGlobal(vm, "console", prevConsole)
		restoreGlobal(vm, "process", prevProcess)
	}
}

func restoreGlobal(vm *goja.Runtime, name string, prev goja.Value) {
	if prev == nil || goja.IsUndefined(prev) {
		vm.GlobalObject().Delete(name)
		return
	}
	_ = vm.Set(name, prev)
}

// writeArgs mirrors the original print()'s two separate stdout writes —
// the joined text, then the line terminator — as two separate Write calls,
// so a stdout sink that frames each Write into its own Output value (as
// the kernel's does) reports them as distinct Text values rather than one
// value with an embedded newline.
func writeArgs(w io.Writer, args []goja.Value) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	_, _ = io.WriteString(w, strings.Join(parts, " "))
	_, _ = io.WriteString(w, "\n")
}
