// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gorilla/websocket"

	"github.com/Descantly/tikv/pkg/msg"
)

// Event is one delivered message's summary, broadcast to WebSocket clients.
type Event struct {
	Type     string    `json:"type"`
	Seq      uint64    `json:"seq"`
	Length   int       `json:"length"`
	Received time.Time `json:"received"`
}

// WebSocketAgent broadcasts delivered-message Events to connected WebSocket
// clients. Clients that cannot keep up are disconnected.
type WebSocketAgent struct {
	upgrader websocket.Upgrader
	receiver chan Event

	clientsMutex sync.Mutex
	clients      map[*websocket.Conn]struct{}
	closed       bool
}

// NewWebSocketAgent will be started with its broadcast handler. The ServeHTTP
// function must be bound to the HTTP server.
func NewWebSocketAgent() (wa *WebSocketAgent) {
	wa = &WebSocketAgent{
		upgrader: websocket.Upgrader{},
		receiver: make(chan Event, 32),

		clients: make(map[*websocket.Conn]struct{}),
	}

	go wa.handler()

	return
}

// Submit a delivered message for broadcasting. Never blocks; when the feed is
// congested, the Event is dropped.
func (wa *WebSocketAgent) Submit(m *msg.Message) {
	event := Event{
		Type:     m.Type.String(),
		Seq:      m.Seq,
		Length:   len(m.Body),
		Received: time.Now(),
	}

	// The mutex orders Submit against Close: once the closed flag is set, no
	// send on the receiver channel may happen anymore.
	wa.clientsMutex.Lock()
	defer wa.clientsMutex.Unlock()

	if wa.closed {
		return
	}

	select {
	case wa.receiver <- event:

	default:
		log.WithFields(log.Fields{
			"message": m,
		}).Debug("WebSocketAgent dropped an Event")
	}
}

// handler broadcasts submitted Events to all connected clients.
func (wa *WebSocketAgent) handler() {
	for event := range wa.receiver {
		wa.clientsMutex.Lock()
		for client := range wa.clients {
			if err := client.WriteJSON(event); err != nil {
				log.WithError(err).Debug("WebSocketAgent failed to write, dropping client")

				_ = client.Close()
				delete(wa.clients, client)
			}
		}
		wa.clientsMutex.Unlock()
	}
}

// ServeHTTP must be bound to a HTTP endpoint, e.g., to /ws by a http.ServeMux.
func (wa *WebSocketAgent) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, connErr := wa.upgrader.Upgrade(rw, r, nil)
	if connErr != nil {
		log.WithError(connErr).Warn("Upgrading HTTP request to WebSocket errored")
		return
	}

	wa.clientsMutex.Lock()
	wa.clients[conn] = struct{}{}
	wa.clientsMutex.Unlock()

	// Drain the client to notice its disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wa.clientsMutex.Lock()
				if _, known := wa.clients[conn]; known {
					_ = conn.Close()
					delete(wa.clients, conn)
				}
				wa.clientsMutex.Unlock()

				return
			}
		}
	}()
}

// Close disconnects all clients and stops the broadcast handler. Submit may
// still be called afterwards and becomes a no-op; a late session delivering
// its last message must not crash the shutdown.
func (wa *WebSocketAgent) Close() error {
	wa.clientsMutex.Lock()
	if wa.closed {
		wa.clientsMutex.Unlock()
		return nil
	}
	wa.closed = true

	for client := range wa.clients {
		_ = client.Close()
		delete(wa.clients, client)
	}
	wa.clientsMutex.Unlock()

	close(wa.receiver)
	return nil
}
