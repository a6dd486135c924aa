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
	"sync"

	"github.com/coder/websocket"
	"github.com/go-json-experiment/json"

	a2a "github.com/go-a2a/a2a-server"
	"github.com/go-a2a/a2a-server/internal/jsonrpc2"
	"github.com/go-a2a/a2a-server/internal/pool"
)

// handleWebSocket upgrades r and serves JSON-RPC requests read from the connection, one
// request per text message. Responses of concurrent requests interleave; each carries the id
// of its request.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx, _, err := s.callContext(r)
	if err != nil {
		s.logger.DebugContext(r.Context(), "reject websocket", slog.String("remote_addr", r.RemoteAddr), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		s.logger.DebugContext(ctx, "websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(s.maxBodySize)

	sess := &wsSession{s: s, conn: conn}
	defer sess.wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if !isClosed(err) {
					s.logger.DebugContext(ctx, "websocket read", slog.Any("error", err))
				}
			}
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "text messages only")
			return
		}

		sess.wg.Add(1)
		go func() {
			defer sess.wg.Done()
			sess.handleMessage(ctx, data)
		}()
	}
}

// wsSession serves the requests of one WebSocket connection.
type wsSession struct {
	s    *Server
	conn *websocket.Conn
	wg   sync.WaitGroup
}

func (ws *wsSession) handleMessage(ctx context.Context, data []byte) {
	req, errResp := ws.s.rpc.ParseRequest(data)
	if errResp != nil {
		_, _ = ws.write(ctx, errResp)
		return
	}

	streaming := ws.s.rpc.IsStreaming(req)
	call := jsonrpc2.Start(ctx, req.Method, len(data), streaming)

	if !streaming {
		resp := ws.s.rpc.HandleRequest(ctx, req)
		n, _ := ws.write(ctx, resp)
		call.Sent(n)
		call.End(responseCode(resp))
		return
	}

	stream, errResp := ws.s.rpc.HandleStream(ctx, req)
	if errResp != nil {
		n, _ := ws.write(ctx, errResp)
		call.Sent(n)
		call.End(responseCode(errResp))
		return
	}
	defer stream.Close()
	defer call.End(0)

	for {
		ev, err := stream.Recv(ctx)
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			return
		}
		n, err := ws.write(ctx, ws.s.rpc.StreamResponse(req, ev))
		call.Sent(n)
		if err != nil {
			return
		}
	}
}

// write sends resp as one text message. [websocket.Conn.Write] is safe for concurrent use.
func (ws *wsSession) write(ctx context.Context, resp *a2a.JSONRPCResponse) (int, error) {
	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)

	if err := json.MarshalWrite(buf, resp); err != nil {
		return 0, fmt.Errorf("encode response: %w", err)
	}
	if err := ws.conn.Write(ctx, websocket.MessageText, buf.Bytes()); err != nil {
		if !isClosed(err) {
			ws.s.logger.DebugContext(ctx, "websocket write", slog.Any("error", err))
		}
		return 0, err
	}
	return buf.Len(), nil
}
