// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"bytes"
	"testing"

	"github.com/wingedpig/twinsong/internal/editortree"
	"github.com/wingedpig/twinsong/internal/executor"
)

// runPlanEntry executes one plan entry for its side effects only,
// mirroring a non-terminal RunCode step.
func runPlanEntry(t *testing.T, k *Runtime, entry PlanEntry) error {
	t.Helper()
	unbind := bindParentScope(k.VM, entry.Namespace, k.RootNS.Object)
	defer unbind()
	var buf bytes.Buffer
	_, err := executor.Execute(k.VM, entry.Code, k.RootNS.Object, entry.Namespace.Object, false, &buf)
	return err
}

// runPlanEntryCapture executes one plan entry as a terminal step, capturing
// its trailing-expression value.
func runPlanEntryCapture(t *testing.T, k *Runtime, entry PlanEntry) (editortree.OutputValue, error) {
	t.Helper()
	unbind := bindParentScope(k.VM, entry.Namespace, k.RootNS.Object)
	defer unbind()
	var buf bytes.Buffer
	return executor.Execute(k.VM, entry.Code, k.RootNS.Object, entry.Namespace.Object, true, &buf)
}
