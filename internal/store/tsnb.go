// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package store reads and writes .tsnb notebook files (TOML, via
// go-toml/v2) and their companion .tsnb.runs/ per-run artifacts, with
// every write going through a temp-file-plus-rename to stay atomic.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/wingedpig/twinsong/internal/editortree"
)

// DocumentVersion is written to every .tsnb file's top-level version key.
const DocumentVersion = "twinsong 0.0.1"

// tsnbDocument is the TOML-shaped mirror of editortree.EditorNode: TOML
// has no native union type, so every field is flattened onto one table
// with omitempty-style zero values distinguishing Cell from Group, the
// same flattening editortree.EditorNode itself already uses for JSON.
type tsnbDocument struct {
	Version    string   `toml:"version"`
	EditorRoot tomlNode `toml:"editor_root"`
}

type tomlNode struct {
	Type     string     `toml:"type"`
	ID       string     `toml:"id"`
	Code     string     `toml:"code,omitempty"`
	Name     string     `toml:"name,omitempty"`
	Scope    string     `toml:"scope,omitempty"`
	Children []tomlNode `toml:"children,omitempty"`
}

func toTOMLNode(n editortree.EditorNode) tomlNode {
	tn := tomlNode{
		Type:  string(n.Type),
		ID:    n.ID.String(),
		Code:  n.Code,
		Name:  n.Name,
		Scope: string(n.Scope),
	}
	for _, child := range n.Children {
		tn.Children = append(tn.Children, toTOMLNode(child))
	}
	return tn
}

func fromTOMLNode(tn tomlNode) (editortree.EditorNode, error) {
	id, err := uuid.Parse(tn.ID)
	if err != nil {
		return editortree.EditorNode{}, fmt.Errorf("store: bad node id %q: %w", tn.ID, err)
	}
	n := editortree.EditorNode{
		Type:  editortree.NodeType(tn.Type),
		ID:    id,
		Code:  tn.Code,
		Name:  tn.Name,
		Scope: editortree.Scope(tn.Scope),
	}
	for _, childTN := range tn.Children {
		child, err := fromTOMLNode(childTN)
		if err != nil {
			return editortree.EditorNode{}, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// SaveNotebookFile atomically writes root as path's .tsnb contents.
func SaveNotebookFile(path string, root editortree.EditorNode) error {
	doc := tsnbDocument{Version: DocumentVersion, EditorRoot: toTOMLNode(root)}
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", path, err)
	}
	return atomicWrite(path, data)
}

// LoadNotebookFile reads and validates path's .tsnb contents.
func LoadNotebookFile(path string) (editortree.EditorNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return editortree.EditorNode{}, fmt.Errorf("store: read %s: %w", path, err)
	}
	var doc tsnbDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return editortree.EditorNode{}, fmt.Errorf("store: unmarshal %s: %w", path, err)
	}
	root, err := fromTOMLNode(doc.EditorRoot)
	if err != nil {
		return editortree.EditorNode{}, fmt.Errorf("store: %s: %w", path, err)
	}
	if err := editortree.Validate(root); err != nil {
		return editortree.EditorNode{}, fmt.Errorf("store: %s: %w", path, err)
	}
	return root, nil
}

// atomicWrite writes data to a sibling temp file and renames it into
// place, so a reader never observes a partially written .tsnb.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename into %s: %w", path, err)
	}
	return nil
}
