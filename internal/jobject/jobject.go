// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package jobject converts a runtime value living inside a goja.Runtime
// into a structured, size-bounded, cycle-safe JSON description — the
// "jobject" format that crosses the kernel/server boundary for every
// variable value in a ScopeSnapshot and every captured cell result.
//
// The builder never walks the host language's native values directly;
// it only ever sees goja.Value, so the same code path serializes numbers,
// strings, arrays, plain objects, and the kernel's dataclass/tuple
// builtins uniformly.
package jobject

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/dop251/goja"
	"github.com/google/uuid"
)

// Default inline-vs-summarized thresholds. A list or dict longer than
// these gets summarized rather than inlined in full.
const (
	DefaultListInlineThreshold = 30
	DefaultDictInlineThreshold = 15
)

// Options configures a Builder's thresholds.
type Options struct {
	ListInlineThreshold int
	DictInlineThreshold int
}

// DefaultOptions returns the documented default thresholds.
func DefaultOptions() Options {
	return Options{
		ListInlineThreshold: DefaultListInlineThreshold,
		DictInlineThreshold: DefaultDictInlineThreshold,
	}
}

// ChildRef is one (slot_label, child_id) pair in an Obj's Children list.
type ChildRef struct {
	Slot string
	ID   uuid.UUID
}

// MarshalJSON renders a ChildRef as a 2-element JSON array, matching the
// wire shape `["slot", "<uuid>"]` rather than an object.
func (c ChildRef) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("[%q,%q]", c.Slot, c.ID)), nil
}

// UnmarshalJSON parses the `["slot", "<uuid>"]` wire shape back into a ChildRef.
func (c *ChildRef) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	id, err := uuid.Parse(pair[1])
	if err != nil {
		return err
	}
	c.Slot = pair[0]
	c.ID = id
	return nil
}

// Obj is one node in a Document's flattened object list.
type Obj struct {
	ID        uuid.UUID  `json:"id"`
	Kind      string     `json:"kind,omitempty"`
	Repr      string     `json:"repr"`
	ValueType string     `json:"value_type,omitempty"`
	Children  []ChildRef `json:"children,omitempty"`
}

// Document is the full jobject wire format.
type Document struct {
	Root    uuid.UUID `json:"root"`
	Objects []Obj     `json:"objects"`
}

// Builder walks goja values into a Document, interning by object identity
// so cyclic structures are represented exactly once.
type Builder struct {
	opts    Options
	byIdent map[*goja.Object]uuid.UUID
	objects []Obj
}

// NewBuilder creates a Builder with the given thresholds.
func NewBuilder(opts Options) *Builder {
	return &Builder{
		opts:    opts,
		byIdent: make(map[*goja.Object]uuid.UUID),
	}
}

// Build renders v (and everything it references) into a Document.
func Build(vm *goja.Runtime, v goja.Value, opts Options) Document {
	b := NewBuilder(opts)
	root := b.walk(vm, v)
	return Document{Root: root, Objects: b.objects}
}

func (b *Builder) walk(vm *goja.Runtime, v goja.Value) uuid.UUID {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return b.emit(Obj{ID: uuid.New(), Kind: "null", Repr: "None"})
	}

	if obj, ok := v.(*goja.Object); ok {
		if id, already := b.byIdent[obj]; already {
			return id
		}
		return b.walkObject(vm, obj)
	}

	ex := v.ExportType()
	switch ex.Kind().String() {
	case "int64", "int", "int32":
		return b.emit(Obj{ID: uuid.New(), Kind: "number", Repr: v.String(), ValueType: "int"})
	case "float64":
		f := v.ToFloat()
		return b.emit(Obj{ID: uuid.New(), Kind: "number", Repr: formatFloat(f), ValueType: "float"})
	case "string":
		return b.emit(Obj{ID: uuid.New(), Kind: "string", Repr: quote(v.String()), ValueType: "str"})
	case "bool":
		return b.emit(Obj{ID: uuid.New(), Kind: "number", Repr: v.String(), ValueType: "bool"})
	default:
		return b.emit(Obj{ID: uuid.New(), Repr: v.String(), ValueType: ex.String()})
	}
}

func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if math.IsNaN(f) {
		return "NaN"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	// match the "N.0" style of a trailing-dot-zero float repr for integral floats
	if f == math.Trunc(f) && !hasExponent(s) {
		s = strconv.FormatFloat(f, 'f', 1, 64)
	}
	return s
}

func hasExponent(s string) bool {
	for _, c := range s {
		if c == 'e' || c == 'E' {
			return true
		}
	}
	return false
}

func quote(s string) string {
	return strconv.Quote(s)
}

func (b *Builder) walkObject(vm *goja.Runtime, obj *goja.Object) uuid.UUID {
	id := uuid.New()
	b.byIdent[obj] = id

	switch classifyKind(obj) {
	case kindArray, kindTuple:
		return b.walkIndexed(vm, obj, id, classifyKind(obj) == kindTuple)
	case kindDataclass:
		return b.walkDataclass(vm, obj, id)
	case kindCallable:
		name := obj.Get("name")
		nameStr := "anonymous"
		if name != nil && !goja.IsUndefined(name) {
			nameStr = name.String()
		}
		return b.emit(Obj{ID: id, Kind: "callable", Repr: fmt.Sprintf("<function %s>", nameStr), ValueType: "function"})
	case kindPlainObject:
		return b.walkDict(vm, obj, id)
	default:
		return b.emit(Obj{ID: id, Repr: obj.String(), ValueType: obj.ClassName()})
	}
}

type kind int

const (
	kindPlainObject kind = iota
	kindArray
	kindTuple
	kindDataclass
	kindCallable
	kindOther
)

func classifyKind(obj *goja.Object) kind {
	if obj.ClassName() == "Function" {
		return kindCallable
	}
	if isTuple(obj) {
		return kindTuple
	}
	if obj.ClassName() == "Array" {
		return kindArray
	}
	if tag := obj.Get("__dataclass__"); tag != nil && !goja.IsUndefined(tag) {
		return kindDataclass
	}
	if obj.ClassName() == "Object" {
		return kindPlainObject
	}
	return kindOther
}

// isTuple recognizes the kernel's tuple(...) builtin marker: an array
// tagged with a non-enumerable __tuple__ property.
func isTuple(obj *goja.Object) bool {
	if obj.ClassName() != "Array" {
		return false
	}
	tag := obj.Get("__tuple__")
	return tag != nil && !goja.IsUndefined(tag)
}

func (b *Builder) walkIndexed(vm *goja.Runtime, obj *goja.Object, id uuid.UUID, tuple bool) uuid.UUID {
	length := int(obj.Get("length").ToInteger())

	var children []ChildRef
	var elementTypes = make(map[string]bool)
	var reprParts []string

	threshold := b.opts.ListInlineThreshold
	walkAll := length <= threshold
	selfMarker := "[...]"
	if tuple {
		selfMarker = "(...)"
	}

	for i := 0; i < length; i++ {
		el := obj.Get(strconv.Itoa(i))
		if elObj, ok := el.(*goja.Object); ok && elObj == obj {
			// Direct self-reference: the child IS the list being built, so it
			// has no repr yet. Record the id (it resolves once this object is
			// emitted) and use the standard elided placeholder in the repr.
			children = append(children, ChildRef{Slot: strconv.Itoa(i), ID: id})
			if walkAll {
				reprParts = append(reprParts, selfMarker)
			}
			continue
		}
		childID := b.walk(vm, el)
		children = append(children, ChildRef{Slot: strconv.Itoa(i), ID: childID})
		elementTypes[valueTypeOf(b, childID)] = true
		if walkAll {
			reprParts = append(reprParts, b.reprOf(childID))
		}
	}

	kindName := "list"
	if tuple {
		kindName = "tuple"
	}

	valueType := kindName
	if length > 0 && len(elementTypes) == 1 {
		for t := range elementTypes {
			valueType = fmt.Sprintf("%s[%s]", kindName, t)
		}
	}

	var repr string
	switch {
	case walkAll:
		open, close := "[", "]"
		if tuple {
			open, close = "(", ")"
		}
		repr = open + joinComma(reprParts) + close
	default:
		repr = fmt.Sprintf("%d items", length)
	}

	return b.emit(Obj{ID: id, Kind: kindName, Repr: repr, ValueType: valueType, Children: children})
}

func (b *Builder) walkDict(vm *goja.Runtime, obj *goja.Object, id uuid.UUID) uuid.UUID {
	keys := sortedKeys(obj)

	threshold := b.opts.DictInlineThreshold
	walkAll := len(keys) <= threshold

	var children []ChildRef
	var reprParts []string
	valueTypes := make(map[string]bool)

	for _, k := range keys {
		v := obj.Get(k)
		childID := b.walk(vm, v)
		children = append(children, ChildRef{Slot: k, ID: childID})
		valueTypes[valueTypeOf(b, childID)] = true
		if walkAll {
			reprParts = append(reprParts, fmt.Sprintf("%s: %s", quote(k), b.reprOf(childID)))
		}
	}

	valueType := "dict"
	if len(keys) > 0 && len(valueTypes) == 1 {
		for t := range valueTypes {
			valueType = fmt.Sprintf("dict[str, %s]", t)
		}
	}

	var repr string
	if walkAll {
		repr = "{" + joinComma(reprParts) + "}"
	} else {
		repr = fmt.Sprintf("%d items", len(keys))
	}

	return b.emit(Obj{ID: id, Kind: "dict", Repr: repr, ValueType: valueType, Children: children})
}

func (b *Builder) walkDataclass(vm *goja.Runtime, obj *goja.Object, id uuid.UUID) uuid.UUID {
	keys := sortedKeys(obj)
	var children []ChildRef
	for _, k := range keys {
		if k == "__dataclass__" {
			continue
		}
		children = append(children, ChildRef{Slot: k, ID: b.walk(vm, obj.Get(k))})
	}

	tagName := "dataclass"
	if tag := obj.Get("__dataclass__"); tag != nil && !goja.IsUndefined(tag) {
		tagName = tag.String()
	}

	return b.emit(Obj{ID: id, Kind: "dataclass", Repr: fmt.Sprintf("%d items", len(children)), ValueType: tagName, Children: children})
}

func sortedKeys(obj *goja.Object) []string {
	keys := obj.Keys()
	sort.Strings(keys)
	return keys
}

func valueTypeOf(b *Builder, id uuid.UUID) string {
	for _, o := range b.objects {
		if o.ID == id {
			if o.ValueType != "" {
				return o.ValueType
			}
			return o.Kind
		}
	}
	return ""
}

func (b *Builder) reprOf(id uuid.UUID) string {
	for _, o := range b.objects {
		if o.ID == id {
			return o.Repr
		}
	}
	return ""
}

func (b *Builder) emit(o Obj) uuid.UUID {
	b.objects = append(b.objects, o)
	return o.ID
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
