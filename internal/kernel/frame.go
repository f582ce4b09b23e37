// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"github.com/google/uuid"

	"github.com/wingedpig/twinsong/internal/editortree"
	"github.com/wingedpig/twinsong/internal/proto"
	"github.com/wingedpig/twinsong/internal/wire"
)

// outputSink is the io.Writer bindStdout writes through during a plan
// entry's execution. Each Write becomes its own framed Output response, so
// the client sees stdout as it's produced rather than batched at the end
// of the request — the "frames writes into Output frames" step of RunCode
// handling.
type outputSink struct {
	enc    *wire.Encoder
	cellID uuid.UUID
	err    error
}

func newOutputSink(enc *wire.Encoder, cellID uuid.UUID) *outputSink {
	return &outputSink{enc: enc, cellID: cellID}
}

func (s *outputSink) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	resp := proto.KernelResponse{
		Type:   proto.KernelResponseOutput,
		CellID: s.cellID,
		Flag:   editortree.FlagRunning,
		Value:  &editortree.OutputValue{Type: editortree.OutputText, Value: string(p)},
	}
	if err := s.enc.Encode(resp); err != nil {
		s.err = err
		return 0, err
	}
	return len(p), nil
}
