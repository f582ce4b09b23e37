// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package runmanager

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/wingedpig/twinsong/internal/editortree"
	"github.com/wingedpig/twinsong/internal/kernel"
	"github.com/wingedpig/twinsong/internal/proto"
	"github.com/wingedpig/twinsong/internal/wire"
)

// inProcessSpawner runs a kernel.Runtime's RunLoop in a goroutine wired
// over in-memory pipes instead of forking a subprocess, so the actor's
// dispatch and diffing logic can be exercised without exec.CommandContext
// or a self-reexec binary.
type inProcessSpawner struct{}

func (inProcessSpawner) Spawn(ctx context.Context, runID uuid.UUID, resume []byte, editorRoot editortree.EditorNode) (SpawnedKernel, error) {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	rt := kernel.NewRuntime()
	if len(resume) > 0 {
		if err := rt.Resume(editorRoot, resume); err != nil {
			return SpawnedKernel{}, err
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer respW.Close()
		if len(resume) > 0 {
			enc := wire.NewEncoder(respW)
			snap := rt.Snapshot(editorRoot)
			if err := enc.Encode(proto.KernelResponse{Type: proto.KernelResponseNewGlobals, Globals: snap}); err != nil {
				return
			}
		}
		_ = kernel.RunLoop(rt, reqR, respW)
	}()

	stop := func(context.Context) error {
		_ = reqW.Close()
		_ = reqR.Close()
		_ = respR.Close()
		<-done
		return nil
	}

	return SpawnedKernel{Stdin: reqW, Stdout: respR, PID: -1, Stop: stop}, nil
}
