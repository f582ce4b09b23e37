// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package wsserver

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wingedpig/twinsong/internal/proto"
	"github.com/wingedpig/twinsong/internal/runmanager"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
)

// session owns one WebSocket connection: a read/dispatch loop calling
// into the run manager, and a write pump draining sendCh on a dedicated
// writer goroutine rather than a shared write mutex. sendCh is also the
// channel Manager.RegisterSession fans broadcasts into, so a single
// writer avoids interleaving those with direct replies.
type session struct {
	conn *websocket.Conn
	mgr  *runmanager.Manager

	sendCh chan proto.ServerMessage

	loggedIn bool

	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, mgr *runmanager.Manager) *session {
	return &session{
		conn:   conn,
		mgr:    mgr,
		sendCh: make(chan proto.ServerMessage, 64),
	}
}

// run enforces the login handshake, then starts the write pump and reads
// client frames until the connection closes.
func (s *session) run(ctx context.Context) {
	defer s.conn.Close()

	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	if !s.handshake() {
		return
	}

	sessID := s.mgr.RegisterSession(s.sendCh)
	defer s.mgr.UnregisterSession(sessID)

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		s.writePump()
	}()
	defer func() {
		close(s.sendCh)
		<-pumpDone
	}()

	s.readLoop()
}

// handshake requires the first inbound frame to be a login message
// before any other traffic is accepted. Anything else is a protocol
// error and the connection is closed.
func (s *session) handshake() bool {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return false
	}
	msg, err := proto.ParseClientMessage(data)
	if err != nil || msg.Type != proto.ClientLogin {
		log.Printf("wsserver: session did not open with login, closing")
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseProtocolError, "expected login"),
			time.Now().Add(writeWait))
		return false
	}
	s.loggedIn = true
	return true
}

func (s *session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := proto.ParseClientMessage(data)
		if err != nil {
			log.Printf("wsserver: malformed client message: %v", err)
			continue
		}
		s.dispatch(msg)
	}
}

// dispatch runs a parsed ClientMessage against the run manager and
// queues any direct reply onto sendCh. Broadcasts the manager emits as a
// side effect (Output, NewGlobals, KernelReady, DirList) arrive on the
// same channel independently, since RegisterSession fans them into it
// too.
func (s *session) dispatch(msg proto.ClientMessage) {
	switch msg.Type {
	case proto.ClientLogin:
		// Already consumed by handshake; a second login is a no-op.

	case proto.ClientCreateNewNotebook:
		nb := s.mgr.CreateNewNotebook()
		s.reply(proto.NewNotebookMessage(nb))

	case proto.ClientLoadNotebook:
		nb, err := s.mgr.LoadNotebook(msg.Path)
		if err != nil {
			log.Printf("wsserver: LoadNotebook %q: %v", msg.Path, err)
			return
		}
		s.reply(proto.NewNotebookMessage(nb))

	case proto.ClientSaveNotebook:
		err := s.mgr.SaveNotebook(msg.NotebookID, *msg.EditorRoot)
		var errMsg *string
		if err != nil {
			m := err.Error()
			errMsg = &m
		}
		s.reply(proto.SaveCompletedMessage(msg.NotebookID, errMsg))

	case proto.ClientCreateNewKernel:
		if err := s.mgr.CreateNewKernel(context.Background(), msg.NotebookID, msg.RunID, msg.RunTitle); err != nil {
			log.Printf("wsserver: CreateNewKernel: %v", err)
		}

	case proto.ClientFork:
		if err := s.mgr.Fork(context.Background(), msg.NotebookID, msg.RunID, msg.NewRunID, msg.NewRunTitle); err != nil {
			log.Printf("wsserver: Fork: %v", err)
		}

	case proto.ClientCloseRun:
		s.mgr.CloseRun(context.Background(), msg.NotebookID, msg.RunID)

	case proto.ClientRunCode:
		s.mgr.RunCode(msg.NotebookID, msg.RunID, msg.CellID, msg.Code, *msg.EditorNode, msg.CalledID)

	case proto.ClientKernelList:
		s.reply(proto.KernelsMessage(s.mgr.KernelList()))

	case proto.ClientQueryDir:
		s.reply(proto.DirListMessage(s.mgr.QueryDir()))
	}
}

func (s *session) reply(msg proto.ServerMessage) {
	select {
	case s.sendCh <- msg:
	default:
		log.Printf("wsserver: session send buffer full, dropping %s reply", msg.Type)
	}
}

// writePump drains sendCh to the connection and sends periodic pings.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-s.sendCh:
			if !ok {
				_ = s.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("wsserver: marshal %s: %v", msg.Type, err)
				continue
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// closeGoingAway sends a going-away close frame, used by Server.Shutdown
// to notify every live session before the listener stops.
func (s *session) closeGoingAway() {
	s.closeOnce.Do(func() {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = s.conn.Close()
	})
}
