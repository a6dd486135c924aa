// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/go-a2a/a2a-server/auth"
	"github.com/go-a2a/a2a-server/server/agent_execution"
)

// Option represents an option for configuring the [Server].
type Option func(*Server)

// WithEndpoint sets the custom JSON-RPC endpoint for the [Server].
func WithEndpoint(endpoint string) Option {
	return func(s *Server) {
		s.endpoint = endpoint
	}
}

// WithLogger sets the [*slog.Logger] for the [Server].
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTracer sets the [trace.Tracer] for the [Server].
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) {
		s.tracer = tracer
	}
}

// WithAuthenticator sets the [auth.Authenticator] used to identify the caller of every request.
func WithAuthenticator(authn auth.Authenticator) Option {
	return func(s *Server) {
		s.callContextBuilder = agent_execution.NewDefaultCallContextBuilder(authn)
	}
}

// WithCallContextBuilder replaces the builder of the per-request [agent_execution.ServerCallContext].
func WithCallContextBuilder(b agent_execution.CallContextBuilder) Option {
	return func(s *Server) {
		s.callContextBuilder = b
	}
}

// WithKeyManager serves the public keys of km at [a2a.JWKSWellKnownPath].
func WithKeyManager(km *auth.KeyManager) Option {
	return func(s *Server) {
		s.keys = km
	}
}

// WithMaxBodySize limits the size of a request body or WebSocket message.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		s.maxBodySize = n
	}
}

// WithOriginPatterns sets the host patterns allowed to open a WebSocket from a browser.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) {
		s.originPatterns = patterns
	}
}
