// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires together Twinsong's components for a server-mode
// run: a New/Initialize/Start/Run/Shutdown lifecycle over its three
// components, the run manager, directory watcher, and WebSocket server.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/twinsong/internal/config"
	"github.com/wingedpig/twinsong/internal/events"
	"github.com/wingedpig/twinsong/internal/runmanager"
	"github.com/wingedpig/twinsong/internal/watcher"
	"github.com/wingedpig/twinsong/internal/wsserver"
)

// App is the main application container for server mode.
type App struct {
	mu sync.Mutex

	workDir string
	version string
	config  *config.Config

	bus     events.Bus
	manager *runmanager.Manager
	watch   *watcher.DirWatcher
	server  *wsserver.Server

	done     chan struct{}
	stopOnce sync.Once
}

// Options holds the command-line overrides New accepts.
type Options struct {
	ConfigPath string
	WorkDir    string
	Host       string
	Port       int
	Version    string
}

// New loads configuration and constructs an App, without starting
// anything yet — that's Initialize/Start's job.
func New(opts Options) (*App, error) {
	cfg := config.Defaults()
	if opts.ConfigPath != "" {
		loaded, err := config.NewLoader().LoadWithDefaults(context.Background(), opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("app: load config: %w", err)
		}
		cfg = loaded
	}
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("app: invalid config: %w", err)
	}

	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("app: getwd: %w", err)
		}
		workDir = wd
	}

	return &App{
		workDir: workDir,
		version: opts.Version,
		config:  cfg,
		done:    make(chan struct{}),
	}, nil
}

// Initialize constructs the run manager, directory watcher, and
// WebSocket server and wires them together. SetDirQuery/LoadedPaths
// resolve the circular dependency between the manager (which answers
// QueryDir) and the watcher (whose LoadedSetFunc needs the manager's
// loaded-notebook set): both are built, then cross-wired here.
func (app *App) Initialize(ctx context.Context) error {
	app.bus = events.NewMemoryBus()

	spawner := &runmanager.ProcessSpawner{GraceTimeout: app.config.Kernel.GraceTimeoutDuration()}
	app.manager = runmanager.NewManager(app.workDir, spawner, app.bus)

	dw, err := watcher.NewDirWatcher(app.workDir, app.bus, app.config.Watch.ScanIntervalDuration(), app.manager.LoadedPaths)
	if err != nil {
		return fmt.Errorf("app: create directory watcher: %w", err)
	}
	app.watch = dw
	app.manager.SetDirQuery(dw.ScanNow)

	app.server = wsserver.NewServer(wsserver.Config{
		Host: app.config.Server.Host,
		Port: app.config.Server.Port,
	}, app.manager)

	return nil
}

// Start begins the directory watcher's scan loop and the WebSocket
// listener in the background.
func (app *App) Start(ctx context.Context) error {
	app.watch.Start(ctx)

	go func() {
		if err := app.server.ListenAndServe(); err != nil {
			log.Printf("app: server exited: %v", err)
		}
	}()

	return nil
}

// Run runs Initialize, Start, and then blocks until SIGINT/SIGTERM,
// context cancellation, or Stop, finally shutting everything down.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}

	log.Printf("twinsong %s listening on %s:%d, serving %s", app.version, app.config.Server.Host, app.config.Server.Port, app.workDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("app: received signal %v, shutting down", sig)
	case <-ctx.Done():
		log.Printf("app: context cancelled, shutting down")
	case <-app.done:
		log.Printf("app: shutdown requested")
	}

	return app.Shutdown(context.Background())
}

// Shutdown tears down the server first — stop accepting new sessions
// before stopping what they talk to — then closes the watcher and the run
// manager concurrently.
func (app *App) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if app.server != nil {
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			log.Printf("app: server shutdown: %v", err)
		}
	}

	// The watcher and the run manager don't depend on each other, so close
	// them concurrently once no new session can reach either.
	var g errgroup.Group
	if app.watch != nil {
		g.Go(func() error {
			if err := app.watch.Close(); err != nil {
				log.Printf("app: watcher close: %v", err)
			}
			return nil
		})
	}
	if app.manager != nil {
		g.Go(func() error {
			if err := app.manager.Close(shutdownCtx); err != nil {
				log.Printf("app: manager close: %v", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if app.bus != nil {
		_ = app.bus.Close()
	}

	log.Println("app: shutdown complete")
	return nil
}

// Stop signals Run to shut down. Safe to call more than once.
func (app *App) Stop() {
	app.stopOnce.Do(func() { close(app.done) })
}
