// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	a2a "github.com/go-a2a/a2a-server"
)

// unaryMethod handles a method answered with a single result.
type unaryMethod func(ctx context.Context, params jsontext.Value) (any, error)

// streamMethod handles a method answered with a stream of results.
type streamMethod func(ctx context.Context, params jsontext.Value) (*Stream, error)

// JSONRPCHandler adapts a [RequestHandler] to JSON-RPC 2.0: it routes methods, decodes and
// validates params, gates methods on the agent capabilities, and builds responses that echo
// the request id.
type JSONRPCHandler struct {
	handler   RequestHandler
	agentCard *a2a.AgentCard
	logger    *slog.Logger
	unary     map[string]unaryMethod
	streaming map[string]streamMethod
}

// JSONRPCHandlerOption defines a function type for configuring JSONRPCHandler.
type JSONRPCHandlerOption func(*JSONRPCHandler)

// WithAgentCard sets the agent card for capability validation. Without one every capability
// is assumed.
func WithAgentCard(card *a2a.AgentCard) JSONRPCHandlerOption {
	return func(h *JSONRPCHandler) {
		h.agentCard = card
	}
}

// WithJSONRPCLogger sets the [*slog.Logger] for the handler.
func WithJSONRPCLogger(logger *slog.Logger) JSONRPCHandlerOption {
	return func(h *JSONRPCHandler) {
		h.logger = logger
	}
}

// NewJSONRPCHandler creates a new JSONRPCHandler with the provided request handler.
func NewJSONRPCHandler(handler RequestHandler, opts ...JSONRPCHandlerOption) *JSONRPCHandler {
	if handler == nil {
		panic("request handler cannot be nil")
	}

	h := &JSONRPCHandler{handler: handler}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.registerMethods()
	return h
}

// decode unmarshals params into p and validates it.
func decode[P interface{ Validate() error }](method string, params jsontext.Value, p P) error {
	if len(params) == 0 {
		return a2a.NewInvalidParamsError("params", "are required")
	}
	if err := json.Unmarshal(params, p); err != nil {
		return paramsError(method, err)
	}
	return p.Validate()
}

// registerMethods registers all JSON-RPC method handlers.
func (h *JSONRPCHandler) registerMethods() {
	h.unary = map[string]unaryMethod{
		a2a.MethodSendMessage: func(ctx context.Context, raw jsontext.Value) (any, error) {
			var p a2a.MessageSendParams
			if err := decode(a2a.MethodSendMessage, raw, &p); err != nil {
				return nil, err
			}
			if err := h.checkInlinePushConfig(&p); err != nil {
				return nil, err
			}
			return h.handler.OnMessageSend(ctx, &p)
		},
		a2a.MethodGetTask: func(ctx context.Context, raw jsontext.Value) (any, error) {
			var p a2a.TaskQueryParams
			if err := decode(a2a.MethodGetTask, raw, &p); err != nil {
				return nil, err
			}
			return h.handler.OnGetTask(ctx, &p)
		},
		a2a.MethodCancelTask: func(ctx context.Context, raw jsontext.Value) (any, error) {
			var p a2a.TaskIDParams
			if err := decode(a2a.MethodCancelTask, raw, &p); err != nil {
				return nil, err
			}
			return h.handler.OnCancelTask(ctx, &p)
		},
		a2a.MethodSetTaskPushNotificationConfig: func(ctx context.Context, raw jsontext.Value) (any, error) {
			if err := h.validatePushNotificationCapability(); err != nil {
				return nil, err
			}
			var p a2a.TaskPushNotificationConfig
			if err := decode(a2a.MethodSetTaskPushNotificationConfig, raw, &p); err != nil {
				return nil, err
			}
			return h.handler.OnSetTaskPushNotificationConfig(ctx, &p)
		},
		a2a.MethodGetTaskPushNotificationConfig: func(ctx context.Context, raw jsontext.Value) (any, error) {
			if err := h.validatePushNotificationCapability(); err != nil {
				return nil, err
			}
			var p a2a.TaskIDParams
			if err := decode(a2a.MethodGetTaskPushNotificationConfig, raw, &p); err != nil {
				return nil, err
			}
			return h.handler.OnGetTaskPushNotificationConfig(ctx, &p)
		},
	}

	h.streaming = map[string]streamMethod{
		a2a.MethodSendMessageStreaming: func(ctx context.Context, raw jsontext.Value) (*Stream, error) {
			var p a2a.MessageSendParams
			if err := decode(a2a.MethodSendMessageStreaming, raw, &p); err != nil {
				return nil, err
			}
			if err := h.checkInlinePushConfig(&p); err != nil {
				return nil, err
			}
			return h.handler.OnMessageSendStream(ctx, &p)
		},
		a2a.MethodResubscribe: func(ctx context.Context, raw jsontext.Value) (*Stream, error) {
			var p a2a.TaskQueryParams
			if err := decode(a2a.MethodResubscribe, raw, &p); err != nil {
				return nil, err
			}
			return h.handler.OnResubscribe(ctx, &p)
		},
	}
}

// ParseRequest decodes a request envelope. On failure it returns the error response to send.
func (h *JSONRPCHandler) ParseRequest(data []byte) (*a2a.JSONRPCRequest, *a2a.JSONRPCResponse) {
	var req a2a.JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		var syntaxErr *jsontext.SyntacticError
		if len(data) == 0 || errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, a2a.NewJSONRPCErrorResponse(nil, parseError(err))
		}
		return nil, a2a.NewJSONRPCErrorResponse(nil, a2a.NewInvalidRequestError("%v", err))
	}
	if err := req.Validate(); err != nil {
		return nil, a2a.NewJSONRPCErrorResponse(req.ID, a2a.NewInvalidRequestError("%v", err))
	}
	return &req, nil
}

// IsStreaming reports whether req is answered with a stream.
func (h *JSONRPCHandler) IsStreaming(req *a2a.JSONRPCRequest) bool {
	_, ok := h.streaming[req.Method]
	return ok
}

// HandleRequest processes a unary request and returns its response.
func (h *JSONRPCHandler) HandleRequest(ctx context.Context, req *a2a.JSONRPCRequest) *a2a.JSONRPCResponse {
	if err := req.Validate(); err != nil {
		return a2a.NewJSONRPCErrorResponse(nil, a2a.NewInvalidRequestError("%v", err))
	}

	method, ok := h.unary[req.Method]
	if !ok {
		if _, isStream := h.streaming[req.Method]; isStream {
			return a2a.NewJSONRPCErrorResponse(req.ID, a2a.NewInvalidRequestError("method %s requires a streaming transport", req.Method))
		}
		return a2a.NewJSONRPCErrorResponse(req.ID, a2a.MethodNotFoundError{Method: req.Method})
	}

	result, err := method(ctx, req.Params)
	if err != nil {
		h.logRequestError(ctx, req, err)
		return a2a.NewJSONRPCErrorResponse(req.ID, rpcError(err))
	}
	return a2a.NewJSONRPCResult(req.ID, result)
}

// HandleStream starts a streaming request. On failure it returns the error response to send
// instead of a stream.
func (h *JSONRPCHandler) HandleStream(ctx context.Context, req *a2a.JSONRPCRequest) (*Stream, *a2a.JSONRPCResponse) {
	if err := req.Validate(); err != nil {
		return nil, a2a.NewJSONRPCErrorResponse(nil, a2a.NewInvalidRequestError("%v", err))
	}

	method, ok := h.streaming[req.Method]
	if !ok {
		return nil, a2a.NewJSONRPCErrorResponse(req.ID, a2a.MethodNotFoundError{Method: req.Method})
	}
	if err := h.validateStreamingCapability(); err != nil {
		return nil, a2a.NewJSONRPCErrorResponse(req.ID, err)
	}

	stream, err := method(ctx, req.Params)
	if err != nil {
		h.logRequestError(ctx, req, err)
		return nil, a2a.NewJSONRPCErrorResponse(req.ID, rpcError(err))
	}
	return stream, nil
}

// StreamResponse wraps one event of a stream opened by req.
func (h *JSONRPCHandler) StreamResponse(req *a2a.JSONRPCRequest, ev a2a.Event) *a2a.JSONRPCResponse {
	return a2a.NewJSONRPCResult(req.ID, ev)
}

func (h *JSONRPCHandler) logRequestError(ctx context.Context, req *a2a.JSONRPCRequest, err error) {
	level := slog.LevelDebug
	if a2a.ErrorCode(err) == a2a.ErrorCodeInternalError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "request failed", slog.String("method", req.Method), slog.Any("error", err))
}

// validateStreamingCapability validates that the agent supports streaming.
func (h *JSONRPCHandler) validateStreamingCapability() error {
	if h.agentCard != nil && !h.agentCard.Capabilities.Streaming {
		return a2a.UnsupportedOperationError{Operation: "streaming"}
	}
	return nil
}

// validatePushNotificationCapability validates that the agent supports push notifications.
func (h *JSONRPCHandler) validatePushNotificationCapability() error {
	if h.agentCard != nil && !h.agentCard.Capabilities.PushNotifications {
		return a2a.UnsupportedOperationError{Operation: "pushNotifications"}
	}
	return nil
}

func (h *JSONRPCHandler) checkInlinePushConfig(p *a2a.MessageSendParams) error {
	if p.Configuration == nil || p.Configuration.PushNotificationConfig == nil {
		return nil
	}
	return h.validatePushNotificationCapability()
}

// GetAgentCard returns the current agent card.
func (h *JSONRPCHandler) GetAgentCard() *a2a.AgentCard {
	return h.agentCard
}

// String returns a string representation of the JSONRPCHandler for debugging.
func (h *JSONRPCHandler) String() string {
	return fmt.Sprintf("JSONRPCHandler{has_agent_card: %t, methods: %d}", h.agentCard != nil, len(h.unary)+len(h.streaming))
}
