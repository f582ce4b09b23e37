// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package runmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/wingedpig/twinsong/internal/editortree"
	"github.com/wingedpig/twinsong/internal/kernel"
)

// SpawnedKernel is what a KernelSpawner hands back: the pipes a
// wire.Encoder/Decoder pair wraps, the pid to report in KernelReady/
// KernelList, and a Stop func the manager calls on CloseRun.
type SpawnedKernel struct {
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	PID    int
	Stop   func(context.Context) error
}

// KernelSpawner starts one kernel for a run, optionally seeded with a
// ForkSnapshot blob. editorRoot is the notebook's current tree shape,
// needed before any RunCode arrives only when resume is non-empty
// (Resume has to walk the tree to know which groups get a namespace) but
// passed unconditionally to keep the interface uniform. Abstracted behind
// an interface so the manager can be exercised in tests without forking a
// real subprocess.
type KernelSpawner interface {
	Spawn(ctx context.Context, runID uuid.UUID, resume []byte, editorRoot editortree.EditorNode) (SpawnedKernel, error)
}

// ProcessSpawner spawns a real kernel subprocess: this same binary
// re-invoked with -kernel, one kernel per process. A non-empty resume
// blob and the editor tree both have to cross the process boundary as
// files, not command-line arguments.
type ProcessSpawner struct {
	GraceTimeout time.Duration
}

// Spawn implements KernelSpawner.
func (s *ProcessSpawner) Spawn(ctx context.Context, runID uuid.UUID, resume []byte, editorRoot editortree.EditorNode) (SpawnedKernel, error) {
	proc := kernel.NewProcess(runID, s.GraceTimeout)

	args := []string{"-run-id", runID.String()}
	if len(resume) > 0 {
		resumePath, err := writeTempFile(fmt.Sprintf("twinsong-resume-%s-*.bin", runID), resume)
		if err != nil {
			return SpawnedKernel{}, err
		}
		rootData, err := json.Marshal(editorRoot)
		if err != nil {
			return SpawnedKernel{}, fmt.Errorf("runmanager: marshal editor root: %w", err)
		}
		rootPath, err := writeTempFile(fmt.Sprintf("twinsong-editor-root-%s-*.json", runID), rootData)
		if err != nil {
			return SpawnedKernel{}, err
		}
		args = append(args, "-resume", resumePath, "-editor-root", rootPath)
	}

	stdin, stdout, err := proc.StartKernel(ctx, args...)
	if err != nil {
		return SpawnedKernel{}, err
	}
	return SpawnedKernel{Stdin: stdin, Stdout: stdout, PID: proc.PID(), Stop: proc.Stop}, nil
}

func writeTempFile(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("runmanager: write temp file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("runmanager: write temp file: %w", err)
	}
	return f.Name(), nil
}
