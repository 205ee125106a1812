// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package exchange

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/Descantly/tikv/pkg/msg"
	"github.com/Descantly/tikv/pkg/sockio"
	"github.com/Descantly/tikv/pkg/xfer"
)

// Call is the pending result of one posted message. When the exchange
// finished, the Call is delivered on its Done channel with either the decoded
// Reply, which is nil for an empty response, or the Err set.
type Call struct {
	Request *msg.Message
	Reply   *msg.Message
	Err     error

	Done chan *Call

	canceled int32
}

// cancel marks the Call as abandoned. The flag is checked around the dial, so
// a teardown racing a redial still ends the round trip instead of leaving it
// parked on a freshly dialed connection.
func (call *Call) cancel() {
	atomic.StoreInt32(&call.canceled, 1)
}

func (call *Call) isCanceled() bool {
	return atomic.LoadInt32(&call.canceled) != 0
}

func (call *Call) done() {
	select {
	case call.Done <- call:

	default:
		log.WithFields(log.Fields{
			"call": call.Request,
		}).Warn("Call's Done channel lacks capacity, discarding delivery")
	}
}

// Client posts messages to one peer over a single persistent connection. The
// connection is dialed lazily and redialed after failures. Exchanges are
// serialized; the head reader and transfer buffers are reused across them.
type Client struct {
	address           string
	compressThreshold int

	mutex sync.Mutex // serializes exchanges

	connMutex sync.Mutex
	conn      *sockio.Conn

	head   *headReader
	reader *xfer.Reader
	writer *xfer.Writer
}

// NewClient creates a Client for the peer's address. Requests of at least
// compressThreshold bytes are xz-compressed; zero disables compression.
func NewClient(address string, compressThreshold int) *Client {
	return &Client{
		address:           address,
		compressThreshold: compressThreshold,

		head:   newHeadReader(),
		reader: xfer.NewReader(),
		writer: xfer.NewWriter(),
	}
}

func (c *Client) String() string {
	return fmt.Sprintf("msgx://%s", c.address)
}

// Post sends the request in the background and returns the pending Call.
func (c *Client) Post(request *msg.Message) *Call {
	call := &Call{
		Request: request,
		Done:    make(chan *Call, 1),
	}

	go c.exchange(call)
	return call
}

// PostWait sends the request and blocks for the reply. When the context ends
// first, the connection is torn down, which cancels the running exchange, and
// the context's error is returned.
func (c *Client) PostWait(ctx context.Context, request *msg.Message) (*msg.Message, error) {
	call := c.Post(request)

	select {
	case <-ctx.Done():
		call.cancel()
		_ = c.teardown()
		<-call.Done
		return nil, ctx.Err()

	case <-call.Done:
		return call.Reply, call.Err
	}
}

// Close tears down the Client's connection. A Client may be used again
// afterwards; the next Post redials.
func (c *Client) Close() error {
	return c.teardown()
}

func (c *Client) exchange(call *Call) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	call.Reply, call.Err = c.roundTrip(call)
	if call.Err != nil {
		// The connection's framing state is undefined now; start over.
		_ = c.teardown()

		log.WithFields(log.Fields{
			"client": c,
			"error":  call.Err,
		}).Warn("Client's exchange failed")
	}

	call.done()
}

func (c *Client) ensureConn() (*sockio.Conn, error) {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.conn == nil {
		conn, err := sockio.Dial(c.address)
		if err != nil {
			return nil, err
		}
		c.conn = conn

		log.WithFields(log.Fields{
			"client": c,
		}).Debug("Client dialed its peer")
	}

	return c.conn, nil
}

func (c *Client) teardown() (err error) {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}

	return
}

// roundTrip performs one request/response exchange on the connection.
func (c *Client) roundTrip(call *Call) (*msg.Message, error) {
	request := call.Request
	if request == nil {
		return nil, fmt.Errorf("cannot post a nil message")
	}

	conn, err := c.ensureConn()
	if err != nil {
		return nil, err
	}

	// A cancellation that struck before the dial found no connection to tear
	// down; its flag is set first, so this check catches the race.
	if call.isCanceled() {
		return nil, fmt.Errorf("call was canceled")
	}

	payload, fields, err := encodePayload(request, c.compressThreshold)
	if err != nil {
		return nil, err
	}

	wire := append(buildRequestHead(c.address, fields), payload...)
	c.writer.Load(wire)
	if err := driveWriter(c.writer, conn); err != nil {
		return nil, err
	}

	c.head.reset()
	if err := driveHead(c.head, conn); err != nil {
		return nil, err
	}

	rh, err := parseResponseHead(c.head.bytes())
	if err != nil {
		return nil, err
	}

	c.reader.Expect(rh.Fields.ContentLength)
	if err := driveReader(c.reader, conn); err != nil {
		return nil, err
	}

	if rh.StatusCode != 200 {
		return nil, fmt.Errorf("peer answered with status %d", rh.StatusCode)
	}

	return decodePayload(c.reader.Bytes(), rh.Fields)
}
