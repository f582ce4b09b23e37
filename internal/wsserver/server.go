// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package wsserver is Twinsong's HTTP/WebSocket front door: a gorilla/mux
// router with one /ws route upgrading to a gorilla/websocket connection
// per session, plus a plain /healthz liveness route.
package wsserver

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wingedpig/twinsong/internal/runmanager"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Config holds the listener's host/port.
type Config struct {
	Host string
	Port int
}

// Server is Twinsong's WebSocket/HTTP server.
type Server struct {
	cfg    Config
	mgr    *runmanager.Manager
	router *mux.Router
	server *http.Server

	mu       sync.Mutex
	sessions map[*session]struct{}
}

// NewServer builds a Server wired to mgr. Call ListenAndServe to start it.
func NewServer(cfg Config, mgr *runmanager.Manager) *Server {
	s := &Server{
		cfg:      cfg,
		mgr:      mgr,
		sessions: make(map[*session]struct{}),
	}
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	r.HandleFunc("/ws", s.handleWebSocket).Methods("GET")
	s.router = r
	return s
}

// Router returns the underlying router, mainly for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// handleWebSocket upgrades the connection and runs the session's
// read/dispatch loop until the client disconnects or the server shuts
// down. The login handshake is enforced inside runSession, not here, so
// the upgrade itself always succeeds for any well-formed request.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("wsserver: upgrade failed: %v", err)
		return
	}

	sess := newSession(conn, s.mgr)
	s.trackSession(sess)
	defer s.untrackSession(sess)

	sess.run(r.Context())
}

func (s *Server) trackSession(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess] = struct{}{}
}

func (s *Server) untrackSession(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess)
}

// ListenAndServe starts the HTTP server and blocks until it exits.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	log.Printf("wsserver: listening on http://%s", addr)
	return s.server.ListenAndServe()
}

// Shutdown closes every tracked session's connection, then gracefully
// shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	conns := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		conns = append(conns, sess)
	}
	s.mu.Unlock()

	for _, sess := range conns {
		sess.closeGoingAway()
	}

	if s.server == nil {
		return nil
	}
	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}
	return s.server.Shutdown(shutdownCtx)
}
