// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the length-prefixed JSON framing used for the
// kernel IPC channel: a 4-byte big-endian length prefix followed by that
// many bytes of a single JSON-encoded message. No shared memory, no
// delimiter scanning — the length prefix makes framing unambiguous even
// if a message happens to contain newlines or embedded NUL bytes.
package wire

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// MaxFrameSize bounds a single frame to guard against a corrupt or hostile
// peer claiming an absurd length prefix.
const MaxFrameSize = 64 * 1024 * 1024

// Encoder writes framed JSON messages to an underlying writer. Safe for
// concurrent use by multiple goroutines; each Encode call holds the lock
// for the duration of a single frame so frames are never interleaved.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder wraps w for framed writes.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode marshals v to JSON and writes it as one length-prefixed frame.
func (e *Encoder) Encode(v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: marshal frame: %w", err)
	}
	if len(body) > MaxFrameSize {
		return fmt.Errorf("wire: frame of %d bytes exceeds max %d", len(body), MaxFrameSize)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := e.w.Write(header[:]); err != nil {
		return fmt.Errorf("wire: write frame header: %w", err)
	}
	if _, err := e.w.Write(body); err != nil {
		return fmt.Errorf("wire: write frame body: %w", err)
	}
	return nil
}

// Decoder reads framed JSON messages from an underlying reader. A Decoder
// is not safe for concurrent use; each side of the kernel pipe has exactly
// one reader goroutine.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r for framed reads.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64*1024)}
}

// Decode reads one frame and unmarshals it into v. Returns io.EOF (possibly
// wrapped) when the peer has closed the stream cleanly between frames.
func (d *Decoder) Decode(v interface{}) error {
	var header [4]byte
	if _, err := io.ReadFull(d.r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return fmt.Errorf("wire: truncated frame header: %w", io.ErrUnexpectedEOF)
		}
		return err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return fmt.Errorf("wire: frame of %d bytes exceeds max %d", size, MaxFrameSize)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return fmt.Errorf("wire: truncated frame body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("wire: unmarshal frame: %w", err)
	}
	return nil
}
