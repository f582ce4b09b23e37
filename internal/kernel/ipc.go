// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/wingedpig/twinsong/internal/editortree"
	"github.com/wingedpig/twinsong/internal/executor"
	"github.com/wingedpig/twinsong/internal/proto"
	"github.com/wingedpig/twinsong/internal/wire"
)

// RunLoop reads one framed KernelRequest at a time from r, dispatches it
// to completion, and writes the resulting KernelResponse frames to w.
// Requests are handled strictly one at a time — the next frame isn't read
// until the current one has finished writing all of its responses — which
// is what gives a run's Output frames their guaranteed ordering. Returns
// nil on a clean EOF or an explicit Shutdown request.
func RunLoop(k *Runtime, r io.Reader, w io.Writer) error {
	dec := wire.NewDecoder(r)
	enc := wire.NewEncoder(w)

	for {
		var req proto.KernelRequest
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch req.Type {
		case proto.KernelRequestRunCode:
			if err := handleRunCode(k, enc, req); err != nil {
				return err
			}
		case proto.KernelRequestSnapshot:
			if err := handleSnapshot(k, enc, req); err != nil {
				return err
			}
		case proto.KernelRequestShutdown:
			return nil
		}
	}
}

// handleRunCode runs a RunCode request in five steps: build the plan,
// stream stdout as Output frames, execute every entry but the last with
// capture_last=false, execute the last (or whichever entry raised, if one
// did) as the terminal frame, then report the kernel's full namespace
// state as a NewGlobals frame.
func handleRunCode(k *Runtime, enc *wire.Encoder, req proto.KernelRequest) error {
	if req.EditorNode == nil {
		return enc.Encode(errorResponse(req.CellID, errors.New("kernel: RunCode missing editor_node")))
	}

	plan, err := BuildPlan(k.VM, *req.EditorNode, k.RootNS, k.State, req.CalledID)
	if err != nil {
		return enc.Encode(errorResponse(req.CellID, err))
	}
	if n := len(plan); n > 0 {
		// req.Code is the called cell's live-edited source, which may be
		// ahead of whatever's stored in the submitted editor_node tree.
		plan[n-1].Code = req.Code
	}

	sink := newOutputSink(enc, req.CellID)
	for i, entry := range plan {
		isLast := i == len(plan)-1

		// parent_scope is only bound for the called entry; a non-called
		// prefix cell that references parent_scope fails the entry instead
		// of reaching out to its enclosing group.
		var unbind func()
		if isLast {
			unbind = bindParentScope(k.VM, entry.Namespace, k.RootNS.Object)
		} else {
			unbind = func() {}
		}
		out, execErr := executor.Execute(k.VM, entry.Code, k.RootNS.Object, entry.Namespace.Object, isLast, sink)
		unbind()

		if execErr != nil {
			if errors.Is(execErr, executor.ErrInterrupted) {
				return nil
			}
			return execErr
		}
		if sink.err != nil {
			return sink.err
		}

		failed := out.Type == editortree.OutputError
		if isLast || failed {
			flag := editortree.FlagSuccess
			if failed {
				flag = editortree.FlagFail
			}
			resp := proto.KernelResponse{Type: proto.KernelResponseOutput, CellID: req.CellID, Flag: flag, Value: &out}
			if err := enc.Encode(resp); err != nil {
				return err
			}
			break
		}
	}

	snapshot := k.Snapshot(*req.EditorNode)
	return enc.Encode(proto.KernelResponse{Type: proto.KernelResponseNewGlobals, Globals: snapshot})
}

// handleSnapshot answers a Fork's request for this kernel's pickled state.
func handleSnapshot(k *Runtime, enc *wire.Encoder, req proto.KernelRequest) error {
	root := editortree.EditorNode{}
	if req.EditorNode != nil {
		root = *req.EditorNode
	}
	blob, err := k.ForkSnapshot(root)
	if err != nil {
		return enc.Encode(errorResponse(req.CellID, err))
	}
	return enc.Encode(proto.KernelResponse{Type: proto.KernelResponseSnapshot, SnapshotData: blob})
}

func errorResponse(cellID uuid.UUID, err error) proto.KernelResponse {
	return proto.KernelResponse{
		Type:   proto.KernelResponseOutput,
		CellID: cellID,
		Flag:   editortree.FlagFail,
		Value:  &editortree.OutputValue{Type: editortree.OutputError, Value: err.Error()},
	}
}
