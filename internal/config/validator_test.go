// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorAcceptsDefaults(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, NewValidator().Validate(cfg))
}

func TestValidatorRejectsOutOfRangePort(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 70000

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 1)
	assert.Equal(t, "server.port", ve.Errors[0].Field)
}

func TestValidatorRejectsUnparseableGraceTimeout(t *testing.T) {
	cfg := Defaults()
	cfg.Kernel.GraceTimeout = "not-a-duration"

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kernel.grace_timeout")
}

func TestValidatorRejectsNonPositiveScanInterval(t *testing.T) {
	cfg := Defaults()
	cfg.Watch.ScanInterval = "0s"

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch.scan_interval")
}

func TestValidatorAccumulatesMultipleErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = -1
	cfg.Kernel.GraceTimeout = "nope"

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}
