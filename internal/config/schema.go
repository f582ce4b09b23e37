// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading and validation for
// twinsong.hjson: a two-step load, HJSON decodes to a map first, then the
// map decodes into a typed struct so defaults can be applied in between.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure for Twinsong.
type Config struct {
	Version string       `json:"version"`
	Server  ServerConfig `json:"server"`
	Kernel  KernelConfig `json:"kernel"`
	Watch   WatchConfig  `json:"watch"`
}

// ServerConfig configures the WebSocket/HTTP listener.
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// KernelConfig configures kernel subprocess lifecycle.
type KernelConfig struct {
	GraceTimeout string `json:"grace_timeout"` // duration string, e.g. "3s"
}

// GraceTimeoutDuration parses GraceTimeout, defaulting to 3s on an empty
// or unparseable value.
func (k KernelConfig) GraceTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(k.GraceTimeout)
	if err != nil || d <= 0 {
		return 3 * time.Second
	}
	return d
}

// WatchConfig configures the directory watcher's periodic scan.
type WatchConfig struct {
	ScanInterval string `json:"scan_interval"` // duration string, e.g. "750ms"
}

// ScanIntervalDuration parses ScanInterval, defaulting to 750ms.
func (w WatchConfig) ScanIntervalDuration() time.Duration {
	d, err := time.ParseDuration(w.ScanInterval)
	if err != nil || d <= 0 {
		return 750 * time.Millisecond
	}
	return d
}

// String renders cfg for a startup log line.
func (c Config) String() string {
	return fmt.Sprintf("version=%s server=%s:%d grace_timeout=%s scan_interval=%s",
		c.Version, c.Server.Host, c.Server.Port, c.Kernel.GraceTimeoutDuration(), c.Watch.ScanIntervalDuration())
}
