// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/wingedpig/twinsong/internal/editortree"
)

// RunsDir returns the <path>.tsnb.runs directory a notebook's per-run
// artifacts live under.
func RunsDir(notebookPath string) string {
	return notebookPath + ".runs"
}

func runDir(notebookPath string, runID uuid.UUID) string {
	return filepath.Join(RunsDir(notebookPath), runID.String())
}

type tomlOutputValue struct {
	Type  string `toml:"type"`
	Value string `toml:"value,omitempty"`
}

type tomlOutputCell struct {
	ID         string            `toml:"id"`
	EditorNode tomlNode          `toml:"editor_node"`
	CalledID   string            `toml:"called_id"`
	Flag       string            `toml:"flag"`
	Values     []tomlOutputValue `toml:"values"`
}

type tomlRunMeta struct {
	Title       string           `toml:"title"`
	KernelState string           `toml:"kernel_state"`
	OutputCells []tomlOutputCell `toml:"output_cells"`
}

func toRunMeta(run editortree.Run) tomlRunMeta {
	meta := tomlRunMeta{Title: run.Title, KernelState: string(run.KernelState)}
	for _, oc := range run.OutputCells {
		tc := tomlOutputCell{
			ID:         oc.ID.String(),
			EditorNode: toTOMLNode(oc.EditorNode),
			CalledID:   oc.CalledID.String(),
			Flag:       string(oc.Flag),
		}
		for _, v := range oc.Values {
			tc.Values = append(tc.Values, tomlOutputValue{Type: string(v.Type), Value: v.Value})
		}
		meta.OutputCells = append(meta.OutputCells, tc)
	}
	return meta
}

func fromRunMeta(meta tomlRunMeta, runID uuid.UUID) (editortree.Run, error) {
	run := editortree.Run{
		ID:          runID,
		Title:       meta.Title,
		KernelState: editortree.KernelState(meta.KernelState),
	}
	for _, tc := range meta.OutputCells {
		id, err := uuid.Parse(tc.ID)
		if err != nil {
			return editortree.Run{}, fmt.Errorf("store: bad output cell id %q: %w", tc.ID, err)
		}
		calledID, err := uuid.Parse(tc.CalledID)
		if err != nil {
			return editortree.Run{}, fmt.Errorf("store: bad called_id %q: %w", tc.CalledID, err)
		}
		node, err := fromTOMLNode(tc.EditorNode)
		if err != nil {
			return editortree.Run{}, err
		}
		oc := editortree.OutputCell{ID: id, EditorNode: node, CalledID: calledID, Flag: editortree.OutputFlag(tc.Flag)}
		for _, v := range tc.Values {
			oc.Values = append(oc.Values, editortree.OutputValue{Type: editortree.OutputValueType(v.Type), Value: v.Value})
		}
		run.OutputCells = append(run.OutputCells, oc)
	}
	return run, nil
}

// SaveRunMeta atomically writes run's title, kernel state, and frozen
// output cells to <path>.tsnb.runs/<run_id>/meta.toml.
func SaveRunMeta(notebookPath string, run editortree.Run) error {
	dir := runDir(notebookPath, run.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create run dir %s: %w", dir, err)
	}
	data, err := toml.Marshal(toRunMeta(run))
	if err != nil {
		return fmt.Errorf("store: marshal run meta %s: %w", run.ID, err)
	}
	return atomicWrite(filepath.Join(dir, "meta.toml"), data)
}

// LoadRunMeta reads a previously saved run's meta.toml back into a Run
// (Globals is left nil — scope state isn't part of the on-disk meta).
func LoadRunMeta(notebookPath string, runID uuid.UUID) (editortree.Run, error) {
	path := filepath.Join(runDir(notebookPath, runID), "meta.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return editortree.Run{}, fmt.Errorf("store: read %s: %w", path, err)
	}
	var meta tomlRunMeta
	if err := toml.Unmarshal(data, &meta); err != nil {
		return editortree.Run{}, fmt.Errorf("store: unmarshal %s: %w", path, err)
	}
	return fromRunMeta(meta, runID)
}

// SaveGlobalsBin atomically writes a Fork's gob-encoded state blob to
// <path>.tsnb.runs/<run_id>/globals.bin.
func SaveGlobalsBin(notebookPath string, runID uuid.UUID, blob []byte) error {
	dir := runDir(notebookPath, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create run dir %s: %w", dir, err)
	}
	return atomicWrite(filepath.Join(dir, "globals.bin"), blob)
}

// LoadGlobalsBin reads back a previously saved fork state blob.
func LoadGlobalsBin(notebookPath string, runID uuid.UUID) ([]byte, error) {
	path := filepath.Join(runDir(notebookPath, runID), "globals.bin")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	return data, nil
}
