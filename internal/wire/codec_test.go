// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	require.NoError(t, enc.Encode(sample{Type: "a", Value: 1}))
	require.NoError(t, enc.Encode(sample{Type: "b", Value: 2}))

	dec := NewDecoder(&buf)

	var got sample
	require.NoError(t, dec.Decode(&got))
	assert.Equal(t, sample{Type: "a", Value: 1}, got)

	require.NoError(t, dec.Decode(&got))
	assert.Equal(t, sample{Type: "b", Value: 2}, got)

	err := dec.Decode(&got)
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecodeRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	header[0] = 0xFF
	header[1] = 0xFF
	header[2] = 0xFF
	header[3] = 0xFF
	buf.Write(header[:])

	dec := NewDecoder(&buf)
	var got sample
	err := dec.Decode(&got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds max")
}

func TestEncodeDoesNotInterleaveConcurrentFrames(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			require.NoError(t, enc.Encode(sample{Type: "goroutine", Value: i}))
		}
	}()
	for i := 0; i < 50; i++ {
		require.NoError(t, enc.Encode(sample{Type: "main", Value: i}))
	}
	<-done

	dec := NewDecoder(&buf)
	count := 0
	for {
		var got sample
		if err := dec.Decode(&got); err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
		count++
	}
	assert.Equal(t, 100, count)
}
