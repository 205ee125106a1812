// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package agent exposes a node's admin surface: a RESTful status and journal
// API plus a WebSocket feed of delivered messages. Both agents observe the
// exchange from the outside; the transport itself has no dependency on them.
package agent

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gorilla/mux"

	"github.com/Descantly/tikv/pkg/exchange"
	"github.com/Descantly/tikv/pkg/msg"
	"github.com/Descantly/tikv/pkg/storage"
)

// RestAgent is a RESTful admin agent serving the node's status and, if a
// Store is attached, its message journal.
type RestAgent struct {
	router *mux.Router

	nodeId  string
	stats   func() exchange.Stats
	peers   func() map[string]string
	store   *storage.Store
	started time.Time
}

// RestStatusResponse is the /status answer.
type RestStatusResponse struct {
	NodeId string            `json:"node_id"`
	Uptime string            `json:"uptime"`
	Stats  exchange.Stats    `json:"stats"`
	Peers  map[string]string `json:"peers"`
}

// NewRestAgent creates a RESTful admin agent. The peers function supplies the
// discovered peers by node id; it might be nil for nodes without discovery,
// as might be the store for nodes without a journal.
func NewRestAgent(router *mux.Router, nodeId string, stats func() exchange.Stats, peers func() map[string]string, store *storage.Store) (ra *RestAgent) {
	ra = &RestAgent{
		router: router,

		nodeId:  nodeId,
		stats:   stats,
		peers:   peers,
		store:   store,
		started: time.Now(),
	}

	ra.router.HandleFunc("/status", ra.handleStatus).Methods(http.MethodGet)
	ra.router.HandleFunc("/messages/{type}", ra.handleMessages).Methods(http.MethodGet)

	return ra
}

// ServeHTTP is a http.Handler to be bound to a HTTP endpoint, e.g., /rest.
func (ra *RestAgent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ra.router.ServeHTTP(w, r)
}

// handleStatus processes /status GET requests.
func (ra *RestAgent) handleStatus(w http.ResponseWriter, _ *http.Request) {
	response := RestStatusResponse{
		NodeId: ra.nodeId,
		Uptime: time.Since(ra.started).String(),
		Stats:  ra.stats(),
		Peers:  map[string]string{},
	}
	if ra.peers != nil {
		response.Peers = ra.peers()
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.WithError(err).Warn("Failed to write REST status response")
	}
}

// handleMessages processes /messages/{type} GET requests against the journal.
func (ra *RestAgent) handleMessages(w http.ResponseWriter, r *http.Request) {
	if ra.store == nil {
		http.Error(w, "no message journal is attached", http.StatusNotFound)
		return
	}

	typeNo, err := strconv.ParseUint(mux.Vars(r)["type"], 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, err := ra.store.QueryType(msg.Type(typeNo))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []storage.MessageItem{}
	}

	if err := json.NewEncoder(w).Encode(items); err != nil {
		log.WithError(err).Warn("Failed to write REST messages response")
	}
}
