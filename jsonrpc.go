// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// JSONRPCVersion is the protocol-version tag carried by every envelope.
const JSONRPCVersion = "2.0"

// A2A RPC method names.
const (
	// MethodSendMessage sends a message and waits for the resulting task.
	MethodSendMessage = "message/send"
	// MethodSendMessageStreaming sends a message and streams the task events.
	MethodSendMessageStreaming = "message/stream"
	// MethodGetTask returns a task snapshot.
	MethodGetTask = "tasks/get"
	// MethodCancelTask requests cancellation of a task.
	MethodCancelTask = "tasks/cancel"
	// MethodSetTaskPushNotificationConfig sets the webhook of a task.
	MethodSetTaskPushNotificationConfig = "tasks/pushNotificationConfig/set"
	// MethodGetTaskPushNotificationConfig returns the webhook of a task.
	MethodGetTaskPushNotificationConfig = "tasks/pushNotificationConfig/get"
	// MethodResubscribe re-attaches a stream to an existing task.
	MethodResubscribe = "tasks/resubscribe"
)

// IsStreamingMethod reports whether method answers with a stream of responses.
func IsStreamingMethod(method string) bool {
	return method == MethodSendMessageStreaming || method == MethodResubscribe
}

// nullID is the correlation id used when the request id could not be read.
var nullID = jsontext.Value("null")

// JSONRPCRequest is a JSON-RPC 2.0 request envelope.
//
// ID is kept as the raw JSON value so it can be echoed back unchanged.
type JSONRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      jsontext.Value `json:"id,omitzero"`
	Method  string         `json:"method"`
	Params  jsontext.Value `json:"params,omitzero"`
}

// NewJSONRPCRequest builds a request with the given id and params.
func NewJSONRPCRequest(id any, method string, params any) (*JSONRPCRequest, error) {
	rawID, err := json.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("marshal id: %w", err)
	}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return &JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      rawID,
		Method:  method,
		Params:  rawParams,
	}, nil
}

// Validate checks the envelope, not the params.
func (r *JSONRPCRequest) Validate() error {
	if r == nil {
		return errors.New("request cannot be nil")
	}
	if r.JSONRPC != JSONRPCVersion {
		return fmt.Errorf("jsonrpc must be %q, got %q", JSONRPCVersion, r.JSONRPC)
	}
	if r.Method == "" {
		return errors.New("method cannot be empty")
	}
	if len(r.ID) > 0 {
		switch r.ID.Kind() {
		case '"', '0', 'n':
		default:
			return fmt.Errorf("id must be a string, number or null")
		}
	}
	return nil
}

// JSONRPCError is the error object of a JSON-RPC 2.0 response.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitzero"`
}

// Error implements the error interface.
func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// JSONRPCResponse is a JSON-RPC 2.0 response envelope.
// Exactly one of Result and Error is set.
type JSONRPCResponse struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      jsontext.Value `json:"id"`
	Result  any            `json:"result,omitzero"`
	Error   *JSONRPCError  `json:"error,omitzero"`
}

// NewJSONRPCResult returns a success response echoing id.
func NewJSONRPCResult(id jsontext.Value, result any) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      responseID(id),
		Result:  result,
	}
}

// NewJSONRPCErrorResponse returns an error response echoing id. The code is taken from err.
func NewJSONRPCErrorResponse(id jsontext.Value, err error) *JSONRPCResponse {
	rpcErr, ok := err.(*JSONRPCError)
	if !ok {
		rpcErr = &JSONRPCError{
			Code:    ErrorCode(err),
			Message: err.Error(),
		}
	}
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      responseID(id),
		Error:   rpcErr,
	}
}

func responseID(id jsontext.Value) jsontext.Value {
	if len(id) == 0 {
		return nullID
	}
	switch id.Kind() {
	case '"', '0', 'n':
		return id
	}
	return nullID
}
