// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth provides the caller identity attached to inbound requests and the keys used to
// sign outbound push notifications.
package auth

import (
	"context"
	"net/http"
)

// User is the caller of a request as seen by the agent.
type User interface {
	// IsAuthenticated returns true if the user is authenticated, false otherwise.
	IsAuthenticated() bool

	// UserName returns the username of the user. For unauthenticated users,
	// this returns an empty string.
	UserName() string
}

// UnauthenticatedUser is the user of requests that carried no credentials.
type UnauthenticatedUser struct{}

// IsAuthenticated always returns false for unauthenticated users.
func (UnauthenticatedUser) IsAuthenticated() bool { return false }

// UserName always returns an empty string for unauthenticated users.
func (UnauthenticatedUser) UserName() string { return "" }

// AuthenticatedUser is a user whose credentials were accepted by an [Authenticator].
type AuthenticatedUser struct {
	Name string
}

// IsAuthenticated always returns true.
func (AuthenticatedUser) IsAuthenticated() bool { return true }

// UserName returns the name of the user.
func (u AuthenticatedUser) UserName() string { return u.Name }

// Authenticator resolves the caller of an HTTP request. Returning an error rejects the request.
// Requests without credentials should resolve to [UnauthenticatedUser] rather than fail.
type Authenticator func(r *http.Request) (User, error)

type userKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the user stored in ctx, or [UnauthenticatedUser].
func UserFromContext(ctx context.Context) User {
	if u, ok := ctx.Value(userKey{}).(User); ok && u != nil {
		return u
	}
	return UnauthenticatedUser{}
}
