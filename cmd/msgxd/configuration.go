// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/mux"

	"github.com/Descantly/tikv/pkg/agent"
	"github.com/Descantly/tikv/pkg/discovery"
	"github.com/Descantly/tikv/pkg/exchange"
	"github.com/Descantly/tikv/pkg/msg"
	"github.com/Descantly/tikv/pkg/storage"
)

// tomlConfig describes the TOML-configuration.
type tomlConfig struct {
	Core      coreConf
	Logging   logConf
	Listen    listenConf
	Agent     agentConf
	Discovery discoveryConf
}

// coreConf describes the Core-configuration block.
type coreConf struct {
	Store  string
	NodeId string `toml:"node-id"`
}

// logConf describes the Logging-configuration block.
type logConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// listenConf describes the Listen-configuration block for the exchange.
type listenConf struct {
	Address           string
	CompressThreshold int `toml:"compress-threshold"`
}

// agentConf describes the admin agents' HTTP endpoint.
type agentConf struct {
	Listen string
}

// discoveryConf describes the Discovery-configuration block.
type discoveryConf struct {
	IPv4     bool
	IPv6     bool
	Interval uint
}

// configureLogging applies a logConf to logrus.
func configureLogging(conf logConf) {
	if conf.Level != "" {
		if lvl, err := log.ParseLevel(conf.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    conf.Level,
				"error":    err,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(conf.ReportCaller)

	switch conf.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.Warn("Unknown logging format")
	}
}

func parseListenPort(address string) (port uint, err error) {
	var portStr string
	if _, portStr, err = net.SplitHostPort(address); err != nil {
		return
	}

	portInt, err := strconv.Atoi(portStr)
	port = uint(portInt)
	return
}

// parseNode creates a node based on the given TOML configuration.
func parseNode(filename string) (n *node, err error) {
	var conf tomlConfig
	if _, err = toml.DecodeFile(filename, &conf); err != nil {
		return
	}

	configureLogging(conf.Logging)

	if conf.Core.NodeId == "" {
		err = fmt.Errorf("core.node-id is empty")
		return
	}
	if conf.Listen.Address == "" {
		err = fmt.Errorf("listen.address is empty")
		return
	}

	n = &node{nodeId: conf.Core.NodeId}

	// Journal; a node without core.store keeps no journal.
	if conf.Core.Store != "" {
		if n.store, err = storage.NewStore(conf.Core.Store); err != nil {
			return
		}
	}

	n.wsAgent = agent.NewWebSocketAgent()

	n.server = exchange.NewServer(
		conf.Listen.Address, exchange.HandlerFunc(n.deliver), conf.Listen.CompressThreshold)
	if err = n.server.Start(); err != nil {
		return
	}

	// Admin agents
	if conf.Agent.Listen != "" {
		router := mux.NewRouter()
		agent.NewRestAgent(router, n.nodeId, n.server.Stats, n.peersSnapshot, n.store)
		router.Handle("/ws", n.wsAgent)

		n.httpServer = &http.Server{
			Addr:    conf.Agent.Listen,
			Handler: router,
		}

		go func() {
			if httpErr := n.httpServer.ListenAndServe(); httpErr != nil && httpErr != http.ErrServerClosed {
				log.WithError(httpErr).Error("Agent HTTP server errored")
			}
		}()
	}

	// Discovery
	if conf.Discovery.IPv4 || conf.Discovery.IPv6 {
		if conf.Discovery.Interval == 0 {
			conf.Discovery.Interval = 10
		}

		// The bound address, not the configured one: a listen.address like
		// ":0" must announce the real port.
		var port uint
		if port, err = parseListenPort(n.server.Address()); err != nil {
			return
		}

		announcements := []discovery.Announcement{{NodeId: n.nodeId, Port: port}}

		n.disco, err = discovery.NewManager(
			n.nodeId, n.registerPeer, announcements,
			time.Duration(conf.Discovery.Interval)*time.Second,
			conf.Discovery.IPv4, conf.Discovery.IPv6)
		if err != nil {
			return
		}
	}

	if n.watcher, err = fsnotify.NewWatcher(); err != nil {
		return
	}
	if err = n.watcher.Add(filename); err != nil {
		return
	}

	go n.watchConfiguration(filename)

	return
}

// watchConfiguration reloads the Logging block when the configuration file
// changes, allowing the log level to be adjusted on a running node.
func (n *node) watchConfiguration(filename string) {
	for {
		select {
		case e, ok := <-n.watcher.Events:
			if !ok {
				return
			}

			if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				log.WithField("event", e).Debug("Ignoring fsnotify event")
				continue
			}

			var conf tomlConfig
			if _, err := toml.DecodeFile(filename, &conf); err != nil {
				log.WithError(err).Warn("Failed to re-read configuration")
				continue
			}

			configureLogging(conf.Logging)
			log.WithField("level", log.GetLevel()).Info("Reloaded logging configuration")

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}

			log.WithError(err).Error("fsnotify errored")
		}
	}
}

// deliver is the node's exchange Handler: each received message is journaled
// and announced on the WebSocket feed. Status requests are answered with a
// status report; everything else gets an empty reply.
func (n *node) deliver(request *msg.Message) (*msg.Message, error) {
	if n.store != nil {
		if err := n.store.Push(request); err != nil {
			return nil, err
		}
	}

	n.wsAgent.Submit(request)

	if request.Type == msg.TypeStatus {
		return msg.NewMessage(msg.TypeStatus, request.Seq, []byte(n.nodeId)), nil
	}

	return nil, nil
}

// peersSnapshot returns the discovered peers by node id, served through the
// REST agent's /status response.
func (n *node) peersSnapshot() map[string]string {
	peers := make(map[string]string)
	n.peers.Range(func(nodeId, address interface{}) bool {
		peers[nodeId.(string)] = address.(string)
		return true
	})

	return peers
}

// registerPeer notes a peer found by the discovery Manager. A known peer
// announcing a new address replaces its old one.
func (n *node) registerPeer(nodeId, address string) {
	if old, known := n.peers.Swap(nodeId, address); !known || old.(string) != address {
		log.WithFields(log.Fields{
			"node":    nodeId,
			"address": address,
		}).Info("Discovered peer")
	}
}
