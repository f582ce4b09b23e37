// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/wingedpig/twinsong/internal/app"
	"github.com/wingedpig/twinsong/internal/config"
	"github.com/wingedpig/twinsong/internal/editortree"
	"github.com/wingedpig/twinsong/internal/kernel"
	"github.com/wingedpig/twinsong/internal/proto"
	"github.com/wingedpig/twinsong/internal/wire"
)

var version = "0.1"

func main() {
	var (
		configPath  string
		host        string
		port        int
		workDir     string
		showVersion bool
		kernelMode  bool
		runID       string
		resumePath  string
		editorRoot  string
	)

	flag.StringVar(&configPath, "config", "", "Path to twinsong.hjson (default: auto-detect)")
	flag.StringVar(&host, "host", "", "WebSocket/HTTP server host (overrides config)")
	flag.IntVar(&port, "port", 0, "WebSocket/HTTP server port (overrides config)")
	flag.StringVar(&workDir, "dir", "", "Directory to serve notebooks from (default: cwd)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&kernelMode, "kernel", false, "Run as a kernel subprocess (internal use)")
	flag.StringVar(&runID, "run-id", "", "Run id this kernel belongs to (-kernel mode)")
	flag.StringVar(&resumePath, "resume", "", "Path to a ForkSnapshot blob to resume from (-kernel mode)")
	flag.StringVar(&editorRoot, "editor-root", "", "Path to the notebook's editor_root JSON (-kernel mode)")
	flag.Parse()

	if showVersion {
		fmt.Printf("twinsong %s\n", version)
		os.Exit(0)
	}

	if kernelMode {
		if err := runKernel(runID, resumePath, editorRoot); err != nil {
			log.Fatalf("kernel: %v", err)
		}
		return
	}

	if configPath == "" {
		if found, err := config.NewLoader().FindConfig(); err == nil {
			configPath = found
		}
	}

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Host:       host,
		Port:       port,
		WorkDir:    workDir,
		Version:    version,
	})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	if err := application.Run(context.Background()); err != nil {
		log.Fatalf("App error: %v", err)
	}
}

// runKernel is the -kernel entry point: one kernel subprocess, talking
// framed JSON over stdin/stdout. If resumePath is set, it applies the
// ForkSnapshot blob against editorRoot and pushes an unprompted
// NewGlobals frame before entering RunLoop, so a forked run's first
// globals are available without a RunCode round-trip.
func runKernel(runIDStr, resumePath, editorRootPath string) error {
	if runIDStr != "" {
		if _, err := uuid.Parse(runIDStr); err != nil {
			return fmt.Errorf("invalid -run-id: %w", err)
		}
	}

	rt := kernel.NewRuntime()
	enc := wire.NewEncoder(os.Stdout)

	if resumePath != "" {
		resumeBlob, err := os.ReadFile(resumePath)
		if err != nil {
			return fmt.Errorf("read resume blob: %w", err)
		}
		root, err := readEditorRoot(editorRootPath)
		if err != nil {
			return err
		}
		if err := rt.Resume(root, resumeBlob); err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		if err := enc.Encode(proto.KernelResponse{Type: proto.KernelResponseNewGlobals, Globals: rt.Snapshot(root)}); err != nil {
			return fmt.Errorf("write initial globals: %w", err)
		}
	}

	return kernel.RunLoop(rt, os.Stdin, os.Stdout)
}

func readEditorRoot(path string) (editortree.EditorNode, error) {
	if path == "" {
		return editortree.EditorNode{}, fmt.Errorf("-editor-root is required with -resume")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return editortree.EditorNode{}, fmt.Errorf("read editor root: %w", err)
	}
	var root editortree.EditorNode
	if err := json.Unmarshal(data, &root); err != nil {
		return editortree.EditorNode{}, fmt.Errorf("parse editor root: %w", err)
	}
	return root, nil
}
