// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"log/slog"
	"net/http"
)

// Interceptor edits an outgoing request before it is sent, for example to add credentials.
type Interceptor func(ctx context.Context, req *http.Request) error

// Option represents an option for configuring the [Client].
type Option func(*Client)

// WithHTTPClient sets the [*http.Client] for the [Client].
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.hc = hc
	}
}

// WithInterceptor appends an [Interceptor] run on every request.
func WithInterceptor(i Interceptor) Option {
	return func(c *Client) {
		c.interceptors = append(c.interceptors, i)
	}
}

// WithBearerToken sends token in the Authorization header of every request.
func WithBearerToken(token string) Option {
	return WithInterceptor(func(_ context.Context, req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	})
}

// WithLogger sets the [*slog.Logger] for the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
