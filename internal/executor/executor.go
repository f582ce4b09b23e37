// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package executor runs one editor-tree fragment of notebook source inside
// a goja.Runtime against a (globals, locals) pair of namespaces, mirroring
// the two-namespace exec(source, globals, locals) contract the original
// kernel built on Python's own exec/eval. See view.go for how a single JS
// global object is made to behave like two.
package executor

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/dop251/goja"

	"github.com/wingedpig/twinsong/internal/editortree"
	"github.com/wingedpig/twinsong/internal/jobject"
)

// ErrInterrupted is returned by Execute when the run was cancelled
// mid-fragment via vm.Interrupt (CloseRun on an in-flight RunCode). The
// caller must not synthesize a terminal Output frame in this case —
// whatever was already written to the stdout sink stands as the run's
// last observed state.
var ErrInterrupted = errors.New("executor: interrupted")

// localsBinding is the internal global name the fragment's `with` wrapper
// is anchored to. Unlikely enough not to collide with notebook code; if it
// ever does, the collision is indistinguishable from any other global
// name shadowing, which `with` already handles correctly.
const localsBinding = "__twinsong_locals__"

// Execute runs source against (globals, locals), streaming stdout writes
// to w as they happen. It never returns a Go error for anything the
// fragment itself did wrong — parse failures and runtime exceptions both
// come back as a Fail-flagged OutputValue, per the original contract. A
// non-nil error return means the executor itself malfunctioned (e.g. the
// supplied locals object is unusable).
func Execute(vm *goja.Runtime, source string, globals, locals *goja.Object, captureLast bool, w io.Writer) (editortree.OutputValue, error) {
	restore := bindStdout(vm, w)
	defer restore()

	sp, err := analyze(source)
	if err != nil {
		return failValue(err), nil
	}

	if !captureLast || !sp.capturable {
		if _, err := runFragment(vm, source, globals, locals); err != nil {
			if isInterrupted(err) {
				return editortree.OutputValue{}, ErrInterrupted
			}
			return failValue(err), nil
		}
		return editortree.OutputValue{Type: editortree.OutputNone}, nil
	}

	prefix, exprSrc := source[:sp.cut], source[sp.cut:]
	if prefix != "" {
		if _, err := runFragment(vm, prefix, globals, locals); err != nil {
			if isInterrupted(err) {
				return editortree.OutputValue{}, ErrInterrupted
			}
			return failValue(err), nil
		}
	}

	val, err := runFragment(vm, exprSrc, globals, locals)
	if err != nil {
		if isInterrupted(err) {
			return editortree.OutputValue{}, ErrInterrupted
		}
		return failValue(err), nil
	}
	return captureValue(vm, val), nil
}

func isInterrupted(err error) bool {
	_, ok := err.(*goja.InterruptedError)
	return ok
}

func captureValue(vm *goja.Runtime, val goja.Value) editortree.OutputValue {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return editortree.OutputValue{Type: editortree.OutputNone}
	}
	doc := jobject.Build(vm, val, jobject.DefaultOptions())
	data, err := json.Marshal(doc)
	if err != nil {
		return failValue(err)
	}
	return editortree.OutputValue{Type: editortree.OutputJObject, Value: string(data)}
}

func failValue(err error) editortree.OutputValue {
	return editortree.OutputValue{Type: editortree.OutputError, Value: formatError(err)}
}

// formatError renders a goja runtime exception the way the kernel reports
// it to the client: the engine's own formatted message for an Exception
// (it already reads like a small traceback), or err.Error() for anything
// else (parse errors, interrupts).
func formatError(err error) string {
	if exc, ok := err.(*goja.Exception); ok {
		return exc.String()
	}
	return err.Error()
}

// runFragment executes src with a `with` wrapper bound to a namespaceView
// over (locals, globals), returning src's completion value. Reads that
// locals doesn't own fall through live to globals; every write lands in
// locals regardless of whether the name already exists in globals. See
// view.go.
func runFragment(vm *goja.Runtime, src string, globals, locals *goja.Object) (goja.Value, error) {
	view := vm.NewDynamicObject(newNamespaceView(locals, globals))

	prevBinding := vm.Get(localsBinding)
	_ = vm.Set(localsBinding, view)

	val, err := vm.RunString("with (" + localsBinding + ") {\n" + src + "\n}")

	if prevBinding == nil || goja.IsUndefined(prevBinding) {
		vm.GlobalObject().Delete(localsBinding)
	} else {
		_ = vm.Set(localsBinding, prevBinding)
	}

	return val, err
}
