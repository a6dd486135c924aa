// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-json-experiment/json"

	a2a "github.com/go-a2a/a2a-server"
	"github.com/go-a2a/a2a-server/internal/jsonrpc2"
	"github.com/go-a2a/a2a-server/internal/pool"
)

// sseWriter frames JSON-RPC responses as Server-Sent Events.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSEWriter writes the event stream headers. It fails if w cannot flush.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming unsupported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // For Nginx proxy
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{w: w, flusher: flusher}, nil
}

// WriteEvent writes resp as one "data:" event and flushes it.
func (s *sseWriter) WriteEvent(resp *a2a.JSONRPCResponse) (int, error) {
	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)

	buf.WriteString("data: ")
	if err := json.MarshalWrite(buf, resp); err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}
	buf.WriteString("\n\n")

	n, err := s.w.Write(buf.Bytes())
	if err != nil {
		return n, err
	}
	s.flusher.Flush()
	return n, nil
}

// serveSSE answers a streaming request. A request rejected before the stream opens is answered
// with a plain JSON error body. It returns the JSON-RPC error code of the call, or 0.
func (s *Server) serveSSE(ctx context.Context, w http.ResponseWriter, req *a2a.JSONRPCRequest, call *jsonrpc2.Call) int {
	stream, errResp := s.rpc.HandleStream(ctx, req)
	if errResp != nil {
		call.Sent(s.writeResponse(ctx, w, errResp))
		return responseCode(errResp)
	}
	defer stream.Close()

	sse, err := newSSEWriter(w)
	if err != nil {
		resp := a2a.NewJSONRPCErrorResponse(req.ID, a2a.NewInternalError(err))
		call.Sent(s.writeResponse(ctx, w, resp))
		return resp.Error.Code
	}

	log := s.logger.With(slog.String("task_id", stream.TaskID()), slog.String("method", req.Method))
	for {
		ev, err := stream.Recv(ctx)
		if errors.Is(err, io.EOF) {
			return 0
		}
		if err != nil {
			if !isClosed(err) {
				log.WarnContext(ctx, "stream ended", slog.Any("error", err))
			}
			return 0
		}

		n, err := sse.WriteEvent(s.rpc.StreamResponse(req, ev))
		call.Sent(n)
		if err != nil {
			log.DebugContext(ctx, "write event", slog.Uint64("seq", ev.GetSequence()), slog.Any("error", err))
			return 0
		}
	}
}
