// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError aggregates every field failure found in one pass.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is a single field validation failure.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty reports whether no errors were recorded.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add records one field failure.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks cfg for structural validity. It does not apply defaults:
// an empty duration string is accepted as-is, while other fields are
// checked exactly as given.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs.Add("server.port", fmt.Sprintf("must be between 1 and 65535, got %d", cfg.Server.Port))
	}
	if cfg.Kernel.GraceTimeout != "" {
		if d, err := time.ParseDuration(cfg.Kernel.GraceTimeout); err != nil {
			errs.Add("kernel.grace_timeout", fmt.Sprintf("invalid duration %q", cfg.Kernel.GraceTimeout))
		} else if d <= 0 {
			errs.Add("kernel.grace_timeout", "must be positive")
		}
	}
	if cfg.Watch.ScanInterval != "" {
		if d, err := time.ParseDuration(cfg.Watch.ScanInterval); err != nil {
			errs.Add("watch.scan_interval", fmt.Sprintf("invalid duration %q", cfg.Watch.ScanInterval))
		} else if d <= 0 {
			errs.Add("watch.scan_interval", "must be positive")
		}
	}

	if errs.IsEmpty() {
		return nil
	}
	return errs
}
