// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package exchange

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/Descantly/tikv/pkg/xfer"
)

// MsgPath is the request target for message exchange requests.
const MsgPath = "/v1/msg"

const (
	headerContentLength   = "Content-Length"
	headerContentEncoding = "Content-Encoding"
	headerChecksum        = "X-Msg-Crc"

	encodingXz = "xz"

	// maxHeadSize bounds head accumulation against hostile peers.
	maxHeadSize = 8 * 1024
)

var headTerminator = []byte("\r\n\r\n")

// headFields are the head entries interpreted by this transport. Unknown
// header lines are ignored.
type headFields struct {
	ContentLength int
	Encoding      string
	Checksum      uint16
	HasChecksum   bool
}

// requestHead is the parsed request line plus headFields.
type requestHead struct {
	Method string
	Path   string
	Fields headFields
}

// responseHead is the parsed status line plus headFields.
type responseHead struct {
	StatusCode int
	Fields     headFields
}

// buildRequestHead serializes a request head for an outbound message.
func buildRequestHead(host string, f headFields) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "POST %s HTTP/1.1\r\n", MsgPath)
	fmt.Fprintf(&b, "Host: %s\r\n", host)
	b.WriteString("Content-Type: application/octet-stream\r\n")
	writeHeadFields(&b, f)
	b.WriteString("\r\n")

	return []byte(b.String())
}

// buildResponseHead serializes a response head for an outbound reply.
func buildResponseHead(status int, f headFields) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, statusText(status))
	writeHeadFields(&b, f)
	b.WriteString("\r\n")

	return []byte(b.String())
}

func writeHeadFields(b *strings.Builder, f headFields) {
	fmt.Fprintf(b, "%s: %d\r\n", headerContentLength, f.ContentLength)
	if f.Encoding != "" {
		fmt.Fprintf(b, "%s: %s\r\n", headerContentEncoding, f.Encoding)
	}
	if f.HasChecksum {
		fmt.Fprintf(b, "%s: %04x\r\n", headerChecksum, f.Checksum)
	}
}

func statusText(status int) string {
	switch status {
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 411:
		return "Length Required"
	case 500:
		return "Internal Server Error"
	default:
		return "Unknown"
	}
}

// parseHeadLines splits a received head into its lines and populates the
// shared headFields.
func parseHeadLines(head []byte) (startLine string, f headFields, err error) {
	head = bytes.TrimSuffix(head, headTerminator)
	lines := strings.Split(string(head), "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		err = fmt.Errorf("head is empty")
		return
	}

	startLine = lines[0]
	for _, line := range lines[1:] {
		key, value, found := strings.Cut(line, ":")
		if !found {
			err = fmt.Errorf("malformed header line %q", line)
			return
		}
		value = strings.TrimSpace(value)

		switch {
		case strings.EqualFold(key, headerContentLength):
			var length int
			if length, err = strconv.Atoi(value); err != nil {
				err = fmt.Errorf("parsing %s: %w", headerContentLength, err)
				return
			} else if length < 0 {
				err = fmt.Errorf("negative %s %d", headerContentLength, length)
				return
			}
			f.ContentLength = length

		case strings.EqualFold(key, headerContentEncoding):
			f.Encoding = value

		case strings.EqualFold(key, headerChecksum):
			var crc uint64
			if crc, err = strconv.ParseUint(value, 16, 16); err != nil {
				err = fmt.Errorf("parsing %s: %w", headerChecksum, err)
				return
			}
			f.Checksum = uint16(crc)
			f.HasChecksum = true
		}
	}

	return
}

// parseRequestHead parses an accumulated request head.
func parseRequestHead(head []byte) (rh requestHead, err error) {
	startLine, fields, err := parseHeadLines(head)
	if err != nil {
		return
	}

	parts := strings.Split(startLine, " ")
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "HTTP/1.") {
		err = fmt.Errorf("malformed request line %q", startLine)
		return
	}

	rh = requestHead{
		Method: parts[0],
		Path:   parts[1],
		Fields: fields,
	}
	return
}

// parseResponseHead parses an accumulated response head.
func parseResponseHead(head []byte) (rh responseHead, err error) {
	startLine, fields, err := parseHeadLines(head)
	if err != nil {
		return
	}

	parts := strings.SplitN(startLine, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "HTTP/1.") {
		err = fmt.Errorf("malformed status line %q", startLine)
		return
	}

	status, err := strconv.Atoi(parts[1])
	if err != nil {
		err = fmt.Errorf("parsing status code: %w", err)
		return
	}

	rh = responseHead{
		StatusCode: status,
		Fields:     fields,
	}
	return
}

// headReader accumulates a head of unknown length up to its terminating blank
// line. Because the length is unknown, it reads through a one-byte Transfer
// Buffer: each attempt is still a single non-blocking syscall and overshooting
// into the following payload is impossible.
type headReader struct {
	buf  xfer.Buffer
	head []byte
}

func newHeadReader() *headReader {
	hr := &headReader{}
	hr.buf.Reset(1)
	return hr
}

// reset prepares the headReader for the next head.
func (hr *headReader) reset() {
	hr.head = hr.head[:0]
	hr.buf.Reset(1)
}

// bytes returns the accumulated head, only meaningful after Complete.
func (hr *headReader) bytes() []byte {
	return hr.head
}

// empty indicates that not a single byte has arrived yet. A peer closing the
// stream at this point ended the connection between two messages, which is no
// failure.
func (hr *headReader) empty() bool {
	return len(hr.head) == 0
}

// progress drives head accumulation with non-blocking attempts until the
// terminator arrived (Complete), the endpoint would block (Pending) or an
// error occurred.
func (hr *headReader) progress(ep xfer.Endpoint) (xfer.Outcome, error) {
	for {
		outcome, err := hr.buf.ReadFrom(ep)
		if err != nil {
			return outcome, err
		}
		if outcome == xfer.Pending {
			return xfer.Pending, nil
		}

		hr.head = append(hr.head, hr.buf.Bytes()[0])
		if bytes.HasSuffix(hr.head, headTerminator) {
			return xfer.Complete, nil
		}
		if len(hr.head) >= maxHeadSize {
			return outcome, fmt.Errorf("head exceeds %d bytes without terminator", maxHeadSize)
		}

		hr.buf.Reset(1)
	}
}
