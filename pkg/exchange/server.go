// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package exchange

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hashicorp/go-multierror"

	"github.com/Descantly/tikv/pkg/msg"
	"github.com/Descantly/tikv/pkg/sockio"
)

// Handler processes one decoded request message and returns the reply. The
// reply may be nil for requests without an answer; the peer then receives an
// empty response. Returning an error answers with an internal server error.
//
// A Handler may be called concurrently from multiple sessions.
type Handler interface {
	ServeMsg(request *msg.Message) (*msg.Message, error)
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(request *msg.Message) (*msg.Message, error)

func (f HandlerFunc) ServeMsg(request *msg.Message) (*msg.Message, error) {
	return f(request)
}

// Stats is a snapshot of a Server's counters.
type Stats struct {
	Requests  uint64 `json:"requests"`
	Responses uint64 `json:"responses"`
	Failures  uint64 `json:"failures"`
	Sessions  int    `json:"sessions"`
}

// Server accepts connections and runs a Session per connection, dispatching
// each decoded message to the Handler.
type Server struct {
	listenAddress     string
	handler           Handler
	compressThreshold int

	requests  uint64
	responses uint64
	failures  uint64

	sessions sync.Map // uuid.UUID -> *Session

	localAddr net.Addr

	stopSyn chan struct{}
	stopAck chan struct{}
}

// NewServer creates a Server for the given listen address. Replies of at
// least compressThreshold bytes are xz-compressed; zero disables compression.
func NewServer(listenAddress string, handler Handler, compressThreshold int) *Server {
	return &Server{
		listenAddress:     listenAddress,
		handler:           handler,
		compressThreshold: compressThreshold,

		stopSyn: make(chan struct{}),
		stopAck: make(chan struct{}),
	}
}

// Start binds the listen address and accepts connections in the background.
func (srv *Server) Start() error {
	tcpAddr, err := net.ResolveTCPAddr("tcp", srv.listenAddress)
	if err != nil {
		return err
	}

	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return err
	}

	srv.localAddr = ln.Addr()

	log.WithFields(log.Fields{
		"server": srv,
	}).Info("Server started listening")

	go func(ln *net.TCPListener) {
		for {
			select {
			case <-srv.stopSyn:
				_ = ln.Close()
				close(srv.stopAck)

				return

			default:
				if err := ln.SetDeadline(time.Now().Add(50 * time.Millisecond)); err != nil {
					log.WithFields(log.Fields{
						"server": srv,
						"error":  err,
					}).Warn("Server failed to set deadline on TCP socket")

					_ = srv.Close()
				} else if conn, err := ln.AcceptTCP(); err == nil {
					srv.registerConn(conn)
				}
			}
		}
	}(ln)

	return nil
}

func (srv *Server) registerConn(conn *net.TCPConn) {
	sock, err := sockio.NewConn(conn)
	if err != nil {
		log.WithFields(log.Fields{
			"server": srv,
			"error":  err,
		}).Warn("Server failed to wrap an accepted connection")

		_ = conn.Close()
		return
	}

	session := newSession(srv, sock)
	srv.sessions.Store(session.id, session)

	go session.handle()
}

func (srv *Server) dropSession(s *Session) {
	srv.sessions.Delete(s.id)
}

// Close stops accepting connections and tears down all running Sessions.
func (srv *Server) Close() (err error) {
	close(srv.stopSyn)
	<-srv.stopAck

	srv.sessions.Range(func(_, value interface{}) bool {
		session := value.(*Session)
		if closeErr := session.conn.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
		return true
	})

	return
}

func (srv *Server) countRequest()  { atomic.AddUint64(&srv.requests, 1) }
func (srv *Server) countResponse() { atomic.AddUint64(&srv.responses, 1) }
func (srv *Server) countFailure()  { atomic.AddUint64(&srv.failures, 1) }

// Stats returns a snapshot of the Server's counters.
func (srv *Server) Stats() (st Stats) {
	st.Requests = atomic.LoadUint64(&srv.requests)
	st.Responses = atomic.LoadUint64(&srv.responses)
	st.Failures = atomic.LoadUint64(&srv.failures)

	srv.sessions.Range(func(_, _ interface{}) bool {
		st.Sessions++
		return true
	})

	return
}

// Address returns the listener's bound address once the Server was started,
// otherwise the configured listen address. The distinction matters for
// addresses like ":0", where only the bound address carries the real port.
func (srv *Server) Address() string {
	if srv.localAddr != nil {
		return srv.localAddr.String()
	}

	return srv.listenAddress
}

func (srv *Server) String() string {
	return fmt.Sprintf("msgx://%s", srv.Address())
}
