// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package exchange

import (
	"errors"
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"

	"github.com/google/uuid"

	"github.com/Descantly/tikv/pkg/msg"
	"github.com/Descantly/tikv/pkg/sockio"
	"github.com/Descantly/tikv/pkg/xfer"
)

// statusError rejects a request with a response status before closing the
// connection, e.g., for malformed or misdirected requests.
type statusError struct {
	status int
	reason string
}

func (se *statusError) Error() string {
	return fmt.Sprintf("%d %s: %s", se.status, statusText(se.status), se.reason)
}

// Session owns one accepted connection and exchanges framed messages on it:
// request head, request payload, handler, response. The head reader, transfer
// Reader and transfer Writer are reused over the whole connection lifetime;
// each message just resizes their buffers.
type Session struct {
	id     uuid.UUID
	server *Server
	conn   *sockio.Conn

	head   *headReader
	reader *xfer.Reader
	writer *xfer.Writer
}

func newSession(server *Server, conn *sockio.Conn) *Session {
	return &Session{
		id:     uuid.New(),
		server: server,
		conn:   conn,

		head:   newHeadReader(),
		reader: xfer.NewReader(),
		writer: xfer.NewWriter(),
	}
}

func (s *Session) String() string {
	return fmt.Sprintf("SESSION(%s, %v)", s.id, s.conn.RemoteAddr())
}

// handle exchanges messages until the peer disconnects or a terminal failure
// occurs. To be run as this connection's only goroutine.
func (s *Session) handle() {
	defer s.server.dropSession(s)
	defer func() { _ = s.conn.Close() }()

	log.WithFields(log.Fields{
		"session": s.id,
		"peer":    s.conn.RemoteAddr(),
	}).Debug("Session was established")

	for {
		request, err := s.readRequest()
		if err != nil {
			s.finish(err)
			return
		}

		s.server.countRequest()
		log.WithFields(log.Fields{
			"session": s.id,
			"message": request,
		}).Debug("Session received a message")

		reply, handleErr := s.server.handler.ServeMsg(request)
		if handleErr != nil {
			log.WithFields(log.Fields{
				"session": s.id,
				"message": request,
				"error":   handleErr,
			}).Warn("Session's handler failed")

			s.server.countFailure()
			if err := s.writeResponse(500, nil, headFields{}); err != nil {
				s.finish(err)
				return
			}
			continue
		}

		payload, fields, err := encodePayload(reply, s.server.compressThreshold)
		if err != nil {
			s.finish(fmt.Errorf("encoding reply: %w", err))
			return
		}
		if err := s.writeResponse(200, payload, fields); err != nil {
			s.finish(err)
			return
		}

		s.server.countResponse()
	}
}

// finish logs why this Session ends. A peer closing the connection between
// two messages is a normal end, everything else a failure.
func (s *Session) finish(err error) {
	var se *statusError
	switch {
	case errors.As(err, &se):
		s.server.countFailure()
		if writeErr := s.writeResponse(se.status, nil, headFields{}); writeErr != nil {
			log.WithFields(log.Fields{
				"session": s.id,
				"error":   writeErr,
			}).Warn("Session failed to write rejection")
		}

		log.WithFields(log.Fields{
			"session": s.id,
			"error":   err,
		}).Warn("Session rejected a request")

	case errors.Is(err, xfer.ErrPeerClosed) && s.head.empty():
		log.WithFields(log.Fields{
			"session": s.id,
		}).Debug("Session's peer closed the connection")

	case errors.Is(err, net.ErrClosed):
		log.WithFields(log.Fields{
			"session": s.id,
		}).Debug("Session's connection was closed")

	default:
		s.server.countFailure()
		log.WithFields(log.Fields{
			"session": s.id,
			"error":   err,
		}).Warn("Session failed")
	}
}

// readRequest accumulates and decodes the next inbound message.
func (s *Session) readRequest() (*msg.Message, error) {
	s.head.reset()
	if err := driveHead(s.head, s.conn); err != nil {
		return nil, err
	}

	rh, err := parseRequestHead(s.head.bytes())
	if err != nil {
		return nil, &statusError{status: 400, reason: err.Error()}
	}
	if rh.Method != "POST" {
		return nil, &statusError{status: 405, reason: "method " + rh.Method}
	}
	if rh.Path != MsgPath {
		return nil, &statusError{status: 404, reason: "path " + rh.Path}
	}
	if rh.Fields.ContentLength == 0 {
		return nil, &statusError{status: 411, reason: "request without payload"}
	}

	s.reader.Expect(rh.Fields.ContentLength)
	if err := driveReader(s.reader, s.conn); err != nil {
		return nil, err
	}

	request, err := decodePayload(s.reader.Bytes(), rh.Fields)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &statusError{status: 400, reason: err.Error()}
	}

	return request, nil
}

// writeResponse drains a response head plus payload to the peer.
func (s *Session) writeResponse(status int, payload []byte, f headFields) error {
	wire := append(buildResponseHead(status, f), payload...)

	s.writer.Load(wire)
	return driveWriter(s.writer, s.conn)
}
