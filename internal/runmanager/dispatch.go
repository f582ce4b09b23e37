// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package runmanager

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/wingedpig/twinsong/internal/editortree"
	"github.com/wingedpig/twinsong/internal/proto"
	"github.com/wingedpig/twinsong/internal/wire"
)

// CreateNewKernel spawns a kernel for a brand-new run, records it on
// notebookID with kernel_state=Running and no output cells, and
// broadcasts KernelReady.
func (m *Manager) CreateNewKernel(ctx context.Context, notebookID editortree.NotebookID, runID uuid.UUID, runTitle string) error {
	var editorRoot editortree.EditorNode
	var lookupErr error
	m.submit(func() {
		nb, err := m.notebookByID(notebookID)
		if err != nil {
			lookupErr = err
			return
		}
		editorRoot = nb.EditorRoot
	})
	if lookupErr != nil {
		return lookupErr
	}

	spawned, err := m.spawner.Spawn(ctx, runID, nil, editorRoot)
	if err != nil {
		return fmt.Errorf("runmanager: spawn kernel: %w", err)
	}

	kh := &kernelHandle{notebookID: notebookID, runID: runID, spawned: spawned, enc: wire.NewEncoder(spawned.Stdin)}
	m.submit(func() {
		nb, err := m.notebookByID(notebookID)
		if err != nil {
			lookupErr = err
			return
		}
		nb.Runs = append(nb.Runs, editortree.Run{ID: runID, Title: runTitle, KernelState: editortree.KernelRunning})
		m.kernels[runID] = kh
	})
	if lookupErr != nil {
		_ = spawned.Stop(ctx)
		return lookupErr
	}

	go m.readKernelResponses(runID, wire.NewDecoder(spawned.Stdout))
	m.broadcast(proto.KernelReadyMessage(notebookID, runID, spawned.PID))
	return nil
}

// Fork requests a pickled snapshot from sourceRunID's kernel, spawns a
// heir seeded with it, and broadcasts KernelReady followed by the heir's
// first NewGlobals (pushed unprompted by the kernel at startup once it has
// applied the resume).
func (m *Manager) Fork(ctx context.Context, notebookID editortree.NotebookID, sourceRunID, newRunID uuid.UUID, newRunTitle string) error {
	var src *kernelHandle
	var editorRoot editortree.EditorNode
	var lookupErr error
	waitCh := make(chan []byte, 1)
	m.submit(func() {
		kh, ok := m.kernels[sourceRunID]
		if !ok {
			lookupErr = fmt.Errorf("runmanager: unknown run %s", sourceRunID)
			return
		}
		nb, err := m.notebookByID(notebookID)
		if err != nil {
			lookupErr = err
			return
		}
		kh.snapshotWait = waitCh
		src = kh
		editorRoot = nb.EditorRoot
	})
	if lookupErr != nil {
		return lookupErr
	}

	if err := src.enc.Encode(proto.KernelRequest{Type: proto.KernelRequestSnapshot, EditorNode: &editorRoot}); err != nil {
		return fmt.Errorf("runmanager: request snapshot: %w", err)
	}

	var blob []byte
	select {
	case blob = <-waitCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	spawned, err := m.spawner.Spawn(ctx, newRunID, blob, editorRoot)
	if err != nil {
		return fmt.Errorf("runmanager: spawn forked kernel: %w", err)
	}

	kh := &kernelHandle{notebookID: notebookID, runID: newRunID, spawned: spawned, enc: wire.NewEncoder(spawned.Stdin)}
	m.submit(func() {
		nb, err := m.notebookByID(notebookID)
		if err != nil {
			lookupErr = err
			return
		}
		nb.Runs = append(nb.Runs, editortree.Run{ID: newRunID, Title: newRunTitle, KernelState: editortree.KernelRunning})
		m.kernels[newRunID] = kh
	})
	if lookupErr != nil {
		_ = spawned.Stop(ctx)
		return lookupErr
	}

	m.broadcast(proto.KernelReadyMessage(notebookID, newRunID, spawned.PID))
	go m.readKernelResponses(newRunID, wire.NewDecoder(spawned.Stdout))
	return nil
}

// RunCode appends a Running OutputCell to runID's run and forwards the
// request to its kernel. Responses stream back asynchronously through
// readKernelResponses/handleKernelResponse. An unknown notebook/run id is
// dropped with a log entry rather than an error reply.
func (m *Manager) RunCode(notebookID editortree.NotebookID, runID, cellID uuid.UUID, code string, editorNode editortree.EditorNode, calledID uuid.UUID) {
	var kh *kernelHandle
	m.submit(func() {
		h, ok := m.kernels[runID]
		if !ok {
			log.Printf("runmanager: RunCode for unknown run %s dropped", runID)
			return
		}
		nb, err := m.notebookByID(notebookID)
		if err != nil {
			log.Printf("runmanager: RunCode for unknown notebook %d dropped", notebookID)
			return
		}
		run := nb.FindRun(runID)
		if run == nil {
			return
		}
		run.OutputCells = append(run.OutputCells, editortree.OutputCell{
			ID: cellID, EditorNode: editorNode, CalledID: calledID, Flag: editortree.FlagRunning,
		})
		h.curValues = nil
		kh = h
	})
	if kh == nil {
		return
	}

	req := proto.KernelRequest{
		Type:       proto.KernelRequestRunCode,
		Code:       code,
		CellID:     cellID,
		EditorNode: &editorNode,
		CalledID:   calledID,
	}
	if err := kh.enc.Encode(req); err != nil {
		log.Printf("runmanager: RunCode write to run %s: %v", runID, err)
	}
}

// CloseRun terminates runID's kernel and marks it Closed. Any Output
// frames already in flight are still delivered by readKernelResponses
// before it observes the closed pipe; no terminal frame is synthesized.
func (m *Manager) CloseRun(ctx context.Context, notebookID editortree.NotebookID, runID uuid.UUID) {
	var kh *kernelHandle
	m.submit(func() {
		h, ok := m.kernels[runID]
		if !ok {
			return
		}
		delete(m.kernels, runID)
		if nb, err := m.notebookByID(notebookID); err == nil {
			if run := nb.FindRun(runID); run != nil {
				run.KernelState = editortree.KernelClosed
			}
		}
		kh = h
	})
	if kh != nil && kh.spawned.Stop != nil {
		_ = kh.spawned.Stop(ctx)
	}
}

// KernelList snapshots every live kernel's run/notebook/pid.
func (m *Manager) KernelList() []proto.KernelInfo {
	var out []proto.KernelInfo
	m.submit(func() {
		for runID, kh := range m.kernels {
			out = append(out, proto.KernelInfo{RunID: runID, NotebookID: kh.notebookID, PID: kh.spawned.PID})
		}
	})
	return out
}

// QueryDir forces a synchronous directory rescan and returns the fresh
// listing; a query never serves a stale cached one.
func (m *Manager) QueryDir() []proto.DirEntry {
	if m.dirQuery == nil {
		return nil
	}
	return m.dirQuery()
}

// readKernelResponses is the dedicated reader task for one kernel's
// stdout pipe: it decodes frames and hands each to the actor goroutine in
// arrival order. Returns when the pipe closes (clean exit or crash).
func (m *Manager) readKernelResponses(runID uuid.UUID, dec *wire.Decoder) {
	for {
		var resp proto.KernelResponse
		if err := dec.Decode(&resp); err != nil {
			m.submit(func() { m.handleKernelExit(runID) })
			return
		}
		m.submit(func() { m.handleKernelResponse(runID, resp) })
	}
}

func (m *Manager) handleKernelResponse(runID uuid.UUID, resp proto.KernelResponse) {
	kh, ok := m.kernels[runID]
	if !ok {
		return
	}
	nb := m.notebooks[kh.notebookID]
	var run *editortree.Run
	if nb != nil {
		run = nb.FindRun(runID)
	}

	switch resp.Type {
	case proto.KernelResponseOutput:
		if resp.Value != nil {
			kh.curValues = append(kh.curValues, *resp.Value)
		}
		if resp.Flag == editortree.FlagRunning {
			m.broadcast(proto.OutputMessage(kh.notebookID, runID, resp.CellID, resp.Flag, valueOrEmpty(resp.Value), nil))
			return
		}
		if run != nil {
			updateOutputCell(run, resp.CellID, resp.Flag, kh.curValues)
		}
		kh.pendingTerminal = &pendingOutput{cellID: resp.CellID, flag: resp.Flag, value: valueOrEmpty(resp.Value)}

	case proto.KernelResponseNewGlobals:
		diff := Diff(kh.lastGlobals, resp.Globals)
		kh.lastGlobals = resp.Globals
		if run != nil {
			run.Globals = resp.Globals
		}
		if kh.pendingTerminal != nil {
			p := kh.pendingTerminal
			kh.pendingTerminal = nil
			m.broadcast(proto.OutputMessage(kh.notebookID, runID, p.cellID, p.flag, p.value, diff))
			return
		}
		m.broadcast(proto.NewGlobalsMessage(kh.notebookID, runID, resp.Globals))

	case proto.KernelResponseSnapshot:
		if kh.snapshotWait != nil {
			kh.snapshotWait <- resp.SnapshotData
			kh.snapshotWait = nil
		}
	}
}

// handleKernelExit reacts to a kernel's stdout pipe closing unexpectedly:
// the run transitions to Closed, and if a cell was mid-flight a synthetic
// Fail frame is emitted so the client's spinner doesn't hang forever.
func (m *Manager) handleKernelExit(runID uuid.UUID) {
	kh, ok := m.kernels[runID]
	if !ok {
		return
	}
	delete(m.kernels, runID)

	var inFlight *editortree.OutputCell
	if nb, ok := m.notebooks[kh.notebookID]; ok {
		if run := nb.FindRun(runID); run != nil {
			run.KernelState = editortree.KernelClosed
			for i := len(run.OutputCells) - 1; i >= 0; i-- {
				if run.OutputCells[i].Flag == editortree.FlagRunning {
					inFlight = &run.OutputCells[i]
					break
				}
			}
		}
	}

	if kh.pendingTerminal == nil && kh.snapshotWait == nil && inFlight == nil {
		return
	}
	if kh.snapshotWait != nil {
		close(kh.snapshotWait)
	}
	errValue := editortree.OutputValue{Type: editortree.OutputError, Value: "kernel terminated"}
	cellID := uuid.Nil
	if kh.pendingTerminal != nil {
		cellID = kh.pendingTerminal.cellID
	} else if inFlight != nil {
		cellID = inFlight.ID
		inFlight.Flag = editortree.FlagFail
		inFlight.Values = append(inFlight.Values, errValue)
	}
	m.broadcast(proto.OutputMessage(kh.notebookID, runID, cellID, editortree.FlagFail, errValue, nil))
}

func valueOrEmpty(v *editortree.OutputValue) editortree.OutputValue {
	if v == nil {
		return editortree.OutputValue{Type: editortree.OutputNone}
	}
	return *v
}

func updateOutputCell(run *editortree.Run, cellID uuid.UUID, flag editortree.OutputFlag, values []editortree.OutputValue) {
	for i := range run.OutputCells {
		if run.OutputCells[i].ID == cellID {
			run.OutputCells[i].Flag = flag
			run.OutputCells[i].Values = values
			return
		}
	}
}
