// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"
	"net/http"

	a2a "github.com/go-a2a/a2a-server"
)

// HTTPError is returned when the agent answers with a status other than 200.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("http status %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// IsRPCError reports whether err is a JSON-RPC error response with the given code.
func IsRPCError(err error, code int) bool {
	var rpcErr *a2a.JSONRPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == code
}

// IsTaskNotFoundError checks if an error is due to a task not being found.
func IsTaskNotFoundError(err error) bool {
	return IsRPCError(err, a2a.ErrorCodeTaskNotFound)
}

// IsPushNotificationNotSupportedError checks if an error is due to push notifications not being supported.
func IsPushNotificationNotSupportedError(err error) bool {
	return IsRPCError(err, a2a.ErrorCodePushNotificationNotSupported)
}

// IsUnsupportedOperationError checks if an error is due to an unsupported operation.
func IsUnsupportedOperationError(err error) bool {
	return IsRPCError(err, a2a.ErrorCodeUnsupportedOperation)
}
