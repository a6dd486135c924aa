// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"sync"

	"github.com/go-a2a/a2a-server/auth"
)

// State keys set by [DefaultCallContextBuilder].
const (
	StateKeyHeaders    = "headers"
	StateKeyRemoteAddr = "remote_addr"
	StateKeyMethod     = "rpc_method"
)

// ServerCallContext describes the inbound call that led to an agent execution: the caller
// and any transport state worth handing to the agent. It is safe for concurrent use.
type ServerCallContext struct {
	user  auth.User
	state map[string]any
	mu    sync.RWMutex
}

// NewServerCallContext creates a new ServerCallContext with the provided user.
// If user is nil, an UnauthenticatedUser is used.
func NewServerCallContext(user auth.User) *ServerCallContext {
	return NewServerCallContextWithState(user, nil)
}

// NewServerCallContextWithState creates a new ServerCallContext with the provided
// user and a copy of state.
func NewServerCallContextWithState(user auth.User, state map[string]any) *ServerCallContext {
	if user == nil {
		user = auth.UnauthenticatedUser{}
	}
	scc := &ServerCallContext{
		user:  user,
		state: make(map[string]any, len(state)),
	}
	maps.Copy(scc.state, state)
	return scc
}

// User returns the caller.
func (scc *ServerCallContext) User() auth.User {
	scc.mu.RLock()
	defer scc.mu.RUnlock()
	return scc.user
}

// State returns a copy of the current state map.
func (scc *ServerCallContext) State() map[string]any {
	scc.mu.RLock()
	defer scc.mu.RUnlock()
	return maps.Clone(scc.state)
}

// SetState sets a value in the context state.
func (scc *ServerCallContext) SetState(key string, value any) {
	scc.mu.Lock()
	defer scc.mu.Unlock()
	scc.state[key] = value
}

// GetState retrieves a value from the context state.
func (scc *ServerCallContext) GetState(key string) (any, bool) {
	scc.mu.RLock()
	defer scc.mu.RUnlock()
	value, ok := scc.state[key]
	return value, ok
}

// DeleteState removes a key from the context state.
func (scc *ServerCallContext) DeleteState(key string) {
	scc.mu.Lock()
	defer scc.mu.Unlock()
	delete(scc.state, key)
}

// Validate ensures the ServerCallContext is in a valid state.
func (scc *ServerCallContext) Validate() error {
	scc.mu.RLock()
	defer scc.mu.RUnlock()

	if scc.user == nil {
		return errors.New("server call context user cannot be nil")
	}
	if scc.state == nil {
		return errors.New("server call context state cannot be nil")
	}
	return nil
}

// String returns a string representation of the ServerCallContext for debugging.
func (scc *ServerCallContext) String() string {
	scc.mu.RLock()
	defer scc.mu.RUnlock()

	return fmt.Sprintf("ServerCallContext{user: %s, authenticated: %t, state_keys: %d}",
		scc.user.UserName(),
		scc.user.IsAuthenticated(),
		len(scc.state))
}

type callContextKey struct{}

// WithCallContext returns a copy of ctx carrying scc.
func WithCallContext(ctx context.Context, scc *ServerCallContext) context.Context {
	return context.WithValue(ctx, callContextKey{}, scc)
}

// CallContextFromContext returns the ServerCallContext stored in ctx. Without one, it returns
// a fresh context for the user found in ctx.
func CallContextFromContext(ctx context.Context) *ServerCallContext {
	if scc, ok := ctx.Value(callContextKey{}).(*ServerCallContext); ok && scc != nil {
		return scc
	}
	return NewServerCallContext(auth.UserFromContext(ctx))
}

// CallContextBuilder builds the ServerCallContext of an inbound HTTP request.
type CallContextBuilder interface {
	Build(ctx context.Context, r *http.Request) (*ServerCallContext, error)
}

// DefaultCallContextBuilder resolves the caller with an optional [auth.Authenticator] and
// records the request headers and remote address in the call state.
type DefaultCallContextBuilder struct {
	authenticate auth.Authenticator
}

var _ CallContextBuilder = (*DefaultCallContextBuilder)(nil)

// NewDefaultCallContextBuilder creates a new DefaultCallContextBuilder. A nil authenticate
// treats every caller as unauthenticated.
func NewDefaultCallContextBuilder(authenticate auth.Authenticator) *DefaultCallContextBuilder {
	return &DefaultCallContextBuilder{authenticate: authenticate}
}

// Build implements [CallContextBuilder]. A nil request yields an unauthenticated context.
func (b *DefaultCallContextBuilder) Build(ctx context.Context, r *http.Request) (*ServerCallContext, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}
	if r == nil {
		return NewServerCallContext(auth.UserFromContext(ctx)), nil
	}

	var user auth.User = auth.UnauthenticatedUser{}
	if b.authenticate != nil {
		u, err := b.authenticate(r)
		if err != nil {
			return nil, fmt.Errorf("authenticate request: %w", err)
		}
		if u != nil {
			user = u
		}
	}

	return NewServerCallContextWithState(user, map[string]any{
		StateKeyHeaders:    r.Header.Clone(),
		StateKeyRemoteAddr: r.RemoteAddr,
	}), nil
}
