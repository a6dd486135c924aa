// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"errors"

	a2a "github.com/go-a2a/a2a-server"
)

// rpcError returns err as it is shown to the caller. Errors the caller can act on keep their
// code; anything else becomes an [a2a.InternalError].
func rpcError(err error) error {
	if err == nil {
		return nil
	}
	var coded a2a.CodedError
	if errors.As(err, &coded) {
		return err
	}
	var rpcErr *a2a.JSONRPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return a2a.NewInternalError(err)
}

// parseError builds the response error of a request body that is not valid JSON.
func parseError(err error) *a2a.JSONRPCError {
	return &a2a.JSONRPCError{
		Code:    a2a.ErrorCodeParseError,
		Message: "parse error: " + err.Error(),
	}
}

// paramsError wraps a failure to decode the params of method.
func paramsError(method string, err error) error {
	return a2a.NewInvalidParamsError("params", "cannot decode %s params: %v", method, err)
}
