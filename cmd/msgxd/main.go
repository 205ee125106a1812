// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"

	"github.com/Descantly/tikv/pkg/agent"
	"github.com/Descantly/tikv/pkg/discovery"
	"github.com/Descantly/tikv/pkg/exchange"
	"github.com/Descantly/tikv/pkg/storage"
)

// node bundles a running msgxd instance: the message exchange itself plus its
// optional journal, admin agents and peer discovery.
type node struct {
	nodeId string

	server     *exchange.Server
	store      *storage.Store
	wsAgent    *agent.WebSocketAgent
	httpServer *http.Server
	disco      *discovery.Manager
	watcher    *fsnotify.Watcher

	peers sync.Map
}

// Close down this node and all its components.
func (n *node) Close() (err error) {
	if n.watcher != nil {
		if watcherErr := n.watcher.Close(); watcherErr != nil {
			err = multierror.Append(err, watcherErr)
		}
	}

	if n.disco != nil {
		n.disco.Close()
	}

	if n.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if httpErr := n.httpServer.Shutdown(ctx); httpErr != nil {
			err = multierror.Append(err, httpErr)
		}
	}

	if serverErr := n.server.Close(); serverErr != nil {
		err = multierror.Append(err, serverErr)
	}

	if wsErr := n.wsAgent.Close(); wsErr != nil {
		err = multierror.Append(err, wsErr)
	}

	if n.store != nil {
		if storeErr := n.store.Close(); storeErr != nil {
			err = multierror.Append(err, storeErr)
		}
	}

	return
}

// waitSigint blocks the current thread until a SIGINT appears.
func waitSigint() {
	signalSyn := make(chan os.Signal, 1)
	signalAck := make(chan struct{})

	signal.Notify(signalSyn, os.Interrupt)

	go func() {
		<-signalSyn
		close(signalAck)
	}()

	<-signalAck
}

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("Usage: %s configuration.toml", os.Args[0])
	}

	n, err := parseNode(os.Args[1])
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("Failed to parse config")
	}

	log.WithFields(log.Fields{
		"node":     n.nodeId,
		"exchange": n.server,
	}).Info("Node is up")

	waitSigint()
	log.Info("Shutting down..")

	if err := n.Close(); err != nil {
		log.WithError(err).Warn("Shutdown errored")
	}
}
