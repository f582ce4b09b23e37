// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"bytes"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1: RunCode("1 + 2") produces a terminal Output whose value renders as
// {kind:"number", repr:"3", value_type:"int"}.
func TestExecuteCapturesTrailingExpression(t *testing.T) {
	vm := goja.New()
	globals := vm.GlobalObject()
	var buf bytes.Buffer

	out, err := Execute(vm, "1 + 2", globals, globals, true, &buf)
	require.NoError(t, err)
	require.Equal(t, "JObject", string(out.Type))
	assert.Contains(t, out.Value, `"repr":"3"`)
	assert.Contains(t, out.Value, `"value_type":"int"`)
}

func TestExecuteAssignmentIsNotCaptured(t *testing.T) {
	vm := goja.New()
	globals := vm.GlobalObject()
	var buf bytes.Buffer

	out, err := Execute(vm, "x = 5", globals, globals, true, &buf)
	require.NoError(t, err)
	assert.Equal(t, "None", string(out.Type))
	assert.Equal(t, int64(5), vm.Get("x").ToInteger())
}

func TestExecuteCaptureLastFalseAlwaysReturnsNone(t *testing.T) {
	vm := goja.New()
	globals := vm.GlobalObject()
	var buf bytes.Buffer

	out, err := Execute(vm, "1 + 2", globals, globals, false, &buf)
	require.NoError(t, err)
	assert.Equal(t, "None", string(out.Type))
}

func TestExecuteStdoutIsCaptured(t *testing.T) {
	vm := goja.New()
	globals := vm.GlobalObject()
	var buf bytes.Buffer

	_, err := Execute(vm, `console.log("hi")`, globals, globals, false, &buf)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", buf.String())
}

func TestExecuteSyntaxErrorProducesFailValue(t *testing.T) {
	vm := goja.New()
	globals := vm.GlobalObject()
	var buf bytes.Buffer

	out, err := Execute(vm, "1 +", globals, globals, true, &buf)
	require.NoError(t, err)
	assert.Equal(t, "Error", string(out.Type))
	assert.NotEmpty(t, out.Value)
}

func TestExecuteRuntimeExceptionProducesFailValue(t *testing.T) {
	vm := goja.New()
	globals := vm.GlobalObject()
	var buf bytes.Buffer

	out, err := Execute(vm, "undefinedFn()", globals, globals, true, &buf)
	require.NoError(t, err)
	assert.Equal(t, "Error", string(out.Type))
}

// Scope discipline (S4): a distinct locals object shadows reads and
// writes of a name that also exists in globals, without mutating globals.
func TestExecuteLocalsShadowsGlobalsOnWrite(t *testing.T) {
	vm := goja.New()
	globals := vm.GlobalObject()
	_ = globals.Set("x", 100)

	locals := vm.NewObject()
	var buf bytes.Buffer

	_, err := Execute(vm, "x = x - 6", globals, locals, false, &buf)
	require.NoError(t, err)

	assert.Equal(t, int64(94), locals.Get("x").ToInteger())
	assert.Equal(t, int64(100), globals.Get("x").ToInteger())
}

// A read-only reference to a global name must not get promoted into a
// persisted local entry when the fragment never reassigns it.
func TestExecuteReadOnlyGlobalReferenceIsNotPromoted(t *testing.T) {
	vm := goja.New()
	globals := vm.GlobalObject()
	_ = globals.Set("y", 7)

	locals := vm.NewObject()
	var buf bytes.Buffer

	out, err := Execute(vm, "y + 1", globals, locals, true, &buf)
	require.NoError(t, err)
	assert.Equal(t, "JObject", string(out.Type))
	assert.Contains(t, out.Value, `"repr":"8"`)
	assert.Nil(t, locals.Get("y"))
}

func TestExecuteNamespacePersistsAcrossCalls(t *testing.T) {
	vm := goja.New()
	globals := vm.GlobalObject()
	locals := vm.NewObject()
	var buf bytes.Buffer

	_, err := Execute(vm, "count = 1", globals, locals, false, &buf)
	require.NoError(t, err)
	_, err = Execute(vm, "count = count + 1", globals, locals, false, &buf)
	require.NoError(t, err)

	assert.Equal(t, int64(2), locals.Get("count").ToInteger())
}
