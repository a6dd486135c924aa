// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/go-json-experiment/json"

	a2a "github.com/go-a2a/a2a-server"
)

// maxEventSize bounds one Server-Sent Event.
const maxEventSize = 4 << 20

// Stream reads the events of a streaming call. It is not safe for concurrent use.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func newStream(body io.ReadCloser) *Stream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64<<10), maxEventSize)
	return &Stream{body: body, scanner: sc}
}

// Recv returns the next event. It returns io.EOF once the agent ends the stream, and the
// JSON-RPC error if the stream carries one.
func (s *Stream) Recv() (a2a.Event, error) {
	var data []byte
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			if len(data) == 0 {
				continue
			}
			return decodeEvent(data)
		}
		if v, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, bytes.TrimPrefix(v, []byte(" "))...)
		}
		// Comments and other fields are ignored.
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event stream: %w", err)
	}
	if len(data) > 0 {
		return decodeEvent(data)
	}
	return nil, io.EOF
}

// Close releases the connection.
func (s *Stream) Close() error {
	return s.body.Close()
}

func decodeEvent(data []byte) (a2a.Event, error) {
	var resp rpcResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode stream response: %w", err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return a2a.UnmarshalEvent(resp.Result)
}
