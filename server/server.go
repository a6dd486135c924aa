// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package server serves the A2A JSON-RPC surface over HTTP.
//
// Unary methods are answered with a JSON body. message/stream and tasks/resubscribe are
// answered with a Server-Sent Events stream, one JSON-RPC response per event. A WebSocket
// opened on the same endpoint carries any method, several requests per connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-json-experiment/json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/go-a2a/a2a-server"
	"github.com/go-a2a/a2a-server/auth"
	"github.com/go-a2a/a2a-server/internal/jsonrpc2"
	"github.com/go-a2a/a2a-server/internal/pool"
	"github.com/go-a2a/a2a-server/server/agent_execution"
	"github.com/go-a2a/a2a-server/server/handler"
)

// DefaultMaxBodySize is the request size limit used when [WithMaxBodySize] is not given.
const DefaultMaxBodySize = 4 << 20

// Server implements the A2A protocol server.
type Server struct {
	rpc                *handler.JSONRPCHandler
	mux                *http.ServeMux
	endpoint           string
	keys               *auth.KeyManager
	callContextBuilder agent_execution.CallContextBuilder
	maxBodySize        int64
	originPatterns     []string
	logger             *slog.Logger
	tracer             trace.Tracer
}

var _ http.Handler = (*Server)(nil)

// NewServer creates a new A2A server answering requests with rpc.
func NewServer(rpc *handler.JSONRPCHandler, opts ...Option) (*Server, error) {
	if rpc == nil {
		return nil, errors.New("json-rpc handler is required")
	}

	s := &Server{
		rpc:         rpc,
		mux:         http.NewServeMux(),
		endpoint:    a2a.DefaultRPCURL,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, o := range opts {
		o(s)
	}

	if !strings.HasPrefix(s.endpoint, "/") {
		return nil, fmt.Errorf("endpoint %q must start with /", s.endpoint)
	}
	if s.callContextBuilder == nil {
		s.callContextBuilder = agent_execution.NewDefaultCallContextBuilder(nil)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.GetTracerProvider().Tracer("github.com/go-a2a/a2a-server/server")
	}

	s.registerHandlers()

	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// registerHandlers sets up all the HTTP routes for the A2A server.
func (s *Server) registerHandlers() {
	s.mux.HandleFunc("GET "+a2a.AgentCardWellKnownPath, s.handleAgentCard)
	if s.keys != nil {
		s.mux.Handle("GET "+a2a.JWKSWellKnownPath, s.keys.JWKSHandler())
	}

	pattern := s.endpoint
	if strings.HasSuffix(pattern, "/") {
		pattern += "{$}"
	}
	s.mux.HandleFunc("POST "+pattern, s.handleRPC)
	s.mux.HandleFunc("GET "+pattern, s.handleWebSocket)
}

// handleAgentCard serves the agent card.
func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	card := s.rpc.GetAgentCard()
	if card == nil {
		http.NotFound(w, r)
		return
	}
	if _, err := writeJSON(w, http.StatusOK, card); err != nil {
		s.logger.WarnContext(r.Context(), "write agent card", slog.Any("error", err))
	}
}

// callContext resolves the caller of r and returns the request context carrying it.
func (s *Server) callContext(r *http.Request) (context.Context, *agent_execution.ServerCallContext, error) {
	scc, err := s.callContextBuilder.Build(r.Context(), r)
	if err != nil {
		return nil, nil, err
	}
	ctx := agent_execution.WithCallContext(r.Context(), scc)
	ctx = auth.WithUser(ctx, scc.User())
	return ctx, scc, nil
}

// handleRPC handles one JSON-RPC request sent as a POST body.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	ctx, scc, err := s.callContext(r)
	if err != nil {
		s.logger.DebugContext(r.Context(), "reject request", slog.String("remote_addr", r.RemoteAddr), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)

	if _, err := buf.ReadFrom(http.MaxBytesReader(w, r.Body, s.maxBodySize)); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		s.writeResponse(ctx, w, a2a.NewJSONRPCErrorResponse(nil, a2a.NewInvalidRequestError("read request body: %v", err)))
		return
	}

	req, errResp := s.rpc.ParseRequest(buf.Bytes())
	if errResp != nil {
		s.writeResponse(ctx, w, errResp)
		return
	}
	scc.SetState(agent_execution.StateKeyMethod, req.Method)

	streaming := s.rpc.IsStreaming(req)
	ctx, span := s.tracer.Start(ctx, "a2a.server.rpc", trace.WithAttributes(
		attribute.String("rpc.method", req.Method),
		attribute.Bool("rpc.streaming", streaming),
	))
	defer span.End()

	call := jsonrpc2.Start(ctx, req.Method, buf.Len(), streaming)
	if streaming {
		code := s.serveSSE(ctx, w, req, call)
		call.End(code)
		if code != 0 {
			span.SetStatus(codes.Error, fmt.Sprintf("json-rpc error %d", code))
		}
		return
	}

	resp := s.rpc.HandleRequest(ctx, req)
	n := s.writeResponse(ctx, w, resp)
	call.Sent(n)
	code := responseCode(resp)
	if code != 0 {
		span.SetStatus(codes.Error, resp.Error.Message)
	}
	call.End(code)
}

// writeResponse writes resp as the JSON body and returns the number of bytes written.
func (s *Server) writeResponse(ctx context.Context, w http.ResponseWriter, resp *a2a.JSONRPCResponse) int {
	n, err := writeJSON(w, http.StatusOK, resp)
	if err != nil {
		s.logger.WarnContext(ctx, "write response", slog.Any("error", err))
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) (int, error) {
	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)

	if err := json.MarshalWrite(buf, v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return 0, fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return w.Write(buf.Bytes())
}

func responseCode(resp *a2a.JSONRPCResponse) int {
	if resp == nil || resp.Error == nil {
		return 0
	}
	return resp.Error.Code
}

// isClosed reports whether err means the peer went away.
func isClosed(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe)
}
