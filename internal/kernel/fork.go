// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"bytes"
	"encoding/gob"
	"errors"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"github.com/wingedpig/twinsong/internal/editortree"
)

// ErrUnforkableValue marks a variable fork's snapshot couldn't carry over
// — goja functions (closures) have no Go-side representation Export() can
// hand to gob, so Fork's state transfer is necessarily incomplete for
// them, unlike an object-graph pickler that can serialize a closure's
// code and captured cells directly. The value is simply dropped from the
// heir's starting state rather than failing the whole fork.
var ErrUnforkableValue = errors.New("kernel: value has no fork-safe representation")

// gob requires every concrete type that will ever occupy an interface{}
// slot to be registered up front; these are the types goja.Value.Export()
// produces for the JSON-shaped values (numbers, strings, bools, arrays,
// plain objects) that can round-trip through Fork.
func init() {
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register("")
	gob.Register(false)
	gob.Register([]interface{}{})
	gob.Register(map[string]interface{}{})
}

// forkGroup is one group's contribution to a ForkSnapshot, gob-encoded.
type forkGroup struct {
	Vars     map[string]interface{}
	Children map[uuid.UUID]*forkGroup
}

// ForkSnapshot serializes every live namespace reachable from root into a
// gob-encoded blob a new kernel process can load via -resume to start as a
// deep copy of this one's state. Functions are silently dropped; every
// other Export()-able value is carried over.
func (k *Runtime) ForkSnapshot(root editortree.EditorNode) ([]byte, error) {
	fg := k.forkGroup(root, k.RootNS)
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(fg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (k *Runtime) forkGroup(node editortree.EditorNode, ns *Namespace) *forkGroup {
	fg := &forkGroup{Vars: make(map[string]interface{}), Children: make(map[uuid.UUID]*forkGroup)}

	for _, key := range ns.Object.Keys() {
		if k.builtins[key] || key == "parent_scope" {
			continue
		}
		val := ns.Object.Get(key)
		if val == nil {
			continue
		}
		if obj, ok := val.(*goja.Object); ok && obj.ClassName() == "Function" {
			continue
		}
		fg.Vars[key] = val.Export()
	}

	for _, child := range node.Children {
		if !child.IsGroup() {
			continue
		}
		childNS := groupNamespace(k.VM, child, ns, k.State)
		fg.Children[child.ID] = k.forkGroup(child, childNS)
	}

	return fg
}

// Resume decodes a ForkSnapshot blob produced by the source kernel and
// seeds this (freshly constructed) Runtime's namespaces from it, building
// each Own group's namespace eagerly so it exists before the first RunCode
// that names it arrives.
func (k *Runtime) Resume(root editortree.EditorNode, blob []byte) error {
	var fg forkGroup
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&fg); err != nil {
		return err
	}
	return k.resumeGroup(root, k.RootNS, &fg)
}

func (k *Runtime) resumeGroup(node editortree.EditorNode, ns *Namespace, fg *forkGroup) error {
	for name, v := range fg.Vars {
		if err := ns.Object.Set(name, k.VM.ToValue(v)); err != nil {
			return err
		}
	}

	for _, child := range node.Children {
		if !child.IsGroup() {
			continue
		}
		childFG, ok := fg.Children[child.ID]
		if !ok {
			continue
		}
		childNS := groupNamespace(k.VM, child, ns, k.State)
		if err := k.resumeGroup(child, childNS, childFG); err != nil {
			return err
		}
	}
	return nil
}
