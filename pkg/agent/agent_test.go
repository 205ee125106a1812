// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Descantly/tikv/pkg/exchange"
	"github.com/Descantly/tikv/pkg/msg"
	"github.com/Descantly/tikv/pkg/storage"
)

func TestRestAgentStatus(t *testing.T) {
	stats := func() exchange.Stats {
		return exchange.Stats{Requests: 23, Responses: 22, Failures: 1, Sessions: 2}
	}

	peers := func() map[string]string {
		return map[string]string{"node-b": "10.23.42.23:20160"}
	}

	ra := NewRestAgent(mux.NewRouter(), "node-a", stats, peers, nil)
	server := httptest.NewServer(ra)
	defer server.Close()

	resp, err := http.Get(server.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var status RestStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}

	if status.NodeId != "node-a" || status.Stats.Requests != 23 {
		t.Fatalf("status is %v", status)
	}
	if status.Peers["node-b"] != "10.23.42.23:20160" {
		t.Fatalf("peers are %v", status.Peers)
	}

	// Without a journal, /messages must answer 404.
	resp404, err := http.Get(server.URL + "/messages/1")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp404.Body.Close() }()

	if resp404.StatusCode != http.StatusNotFound {
		t.Fatalf("journal-less query answered %d", resp404.StatusCode)
	}
}

func TestRestAgentMessages(t *testing.T) {
	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Push(msg.NewMessage(msg.TypeRaft, 1, []byte("x"))); err != nil {
		t.Fatal(err)
	}

	ra := NewRestAgent(mux.NewRouter(), "node-a",
		func() exchange.Stats { return exchange.Stats{} }, nil, store)
	server := httptest.NewServer(ra)
	defer server.Close()

	resp, err := http.Get(server.URL + "/messages/1")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var items []storage.MessageItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Seq != 1 {
		t.Fatalf("items are %v", items)
	}
}

func TestWebSocketAgentCloseWhileSubmitting(t *testing.T) {
	wa := NewWebSocketAgent()

	// A session may still deliver messages while the node shuts down.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			wa.Submit(msg.NewMessage(msg.TypeStatus, uint64(i), nil))
		}
		close(done)
	}()

	if err := wa.Close(); err != nil {
		t.Fatal(err)
	}
	<-done

	// Submitting to a closed agent is a no-op, as is closing twice.
	wa.Submit(msg.NewMessage(msg.TypeStatus, 1001, nil))
	if err := wa.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestWebSocketAgentFeed(t *testing.T) {
	wa := NewWebSocketAgent()
	defer func() { _ = wa.Close() }()

	server := httptest.NewServer(wa)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	wa.Submit(msg.NewMessage(msg.TypeCommand, 42, []byte("payload")))

	var event Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatal(err)
	}
	if event.Type != "command" || event.Seq != 42 || event.Length != 7 {
		t.Fatalf("event is %v", event)
	}
}
