// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"errors"
	"io"
	"testing"

	"github.com/go-json-experiment/json/jsontext"

	a2a "github.com/go-a2a/a2a-server"
)

func newTestJSONRPCHandler(t *testing.T, card *a2a.AgentCard) *JSONRPCHandler {
	t.Helper()
	h, _ := newTestHandler(t, pingPong)
	opts := []JSONRPCHandlerOption{WithJSONRPCLogger(discard)}
	if card != nil {
		opts = append(opts, WithAgentCard(card))
	}
	return NewJSONRPCHandler(h, opts...)
}

func rpcRequest(id, method, params string) *a2a.JSONRPCRequest {
	req := &a2a.JSONRPCRequest{JSONRPC: a2a.JSONRPCVersion, Method: method}
	if id != "" {
		req.ID = jsontext.Value(id)
	}
	if params != "" {
		req.Params = jsontext.Value(params)
	}
	return req
}

const pingParams = `{"message":{"kind":"message","messageId":"m-1","role":"user","parts":[{"kind":"text","text":"ping"}],"taskId":"task-1"}}`

func TestJSONRPCHandler_ParseRequest(t *testing.T) {
	t.Parallel()

	h := newTestJSONRPCHandler(t, nil)

	tests := map[string]struct {
		body     string
		wantCode int
		wantID   string
	}{
		"valid":          {body: `{"jsonrpc":"2.0","id":7,"method":"tasks/get","params":{"id":"t"}}`},
		"invalid json":   {body: `{"jsonrpc":`, wantCode: a2a.ErrorCodeParseError, wantID: "null"},
		"empty body":     {body: ``, wantCode: a2a.ErrorCodeParseError, wantID: "null"},
		"wrong version":  {body: `{"jsonrpc":"1.0","id":"a","method":"tasks/get"}`, wantCode: a2a.ErrorCodeInvalidRequest, wantID: `"a"`},
		"missing method": {body: `{"jsonrpc":"2.0","id":1}`, wantCode: a2a.ErrorCodeInvalidRequest, wantID: "1"},
		"object id":      {body: `{"jsonrpc":"2.0","id":{},"method":"tasks/get"}`, wantCode: a2a.ErrorCodeInvalidRequest, wantID: "null"},
		"wrong type":     {body: `{"jsonrpc":"2.0","id":1,"method":42}`, wantCode: a2a.ErrorCodeInvalidRequest, wantID: "null"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			req, resp := h.ParseRequest([]byte(tt.body))
			if tt.wantCode == 0 {
				if resp != nil || req == nil {
					t.Fatalf("ParseRequest() = %v, %+v, want a request", req, resp)
				}
				return
			}
			if resp == nil || resp.Error == nil {
				t.Fatalf("ParseRequest() response = %+v, want error %d", resp, tt.wantCode)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("error code = %d, want %d", resp.Error.Code, tt.wantCode)
			}
			if string(resp.ID) != tt.wantID {
				t.Errorf("response id = %s, want %s", resp.ID, tt.wantID)
			}
		})
	}
}

func TestJSONRPCHandler_HandleRequestErrors(t *testing.T) {
	t.Parallel()

	h := newTestJSONRPCHandler(t, nil)

	tests := map[string]struct {
		req      *a2a.JSONRPCRequest
		wantCode int
	}{
		"unknown method":     {req: rpcRequest(`"r-1"`, "tasks/list", `{}`), wantCode: a2a.ErrorCodeMethodNotFound},
		"missing params":     {req: rpcRequest(`"r-1"`, a2a.MethodGetTask, ""), wantCode: a2a.ErrorCodeInvalidParams},
		"ill-typed params":   {req: rpcRequest(`"r-1"`, a2a.MethodGetTask, `{"id":5}`), wantCode: a2a.ErrorCodeInvalidParams},
		"invalid id":         {req: rpcRequest(`"r-1"`, a2a.MethodCancelTask, `{"id":"a b"}`), wantCode: a2a.ErrorCodeInvalidParams},
		"unknown task":       {req: rpcRequest(`"r-1"`, a2a.MethodGetTask, `{"id":"missing"}`), wantCode: a2a.ErrorCodeTaskNotFound},
		"agent role":         {req: rpcRequest(`"r-1"`, a2a.MethodSendMessage, `{"message":{"kind":"message","messageId":"m","role":"agent","parts":[{"kind":"text","text":"x"}]}}`), wantCode: a2a.ErrorCodeInvalidParams},
		"streaming as unary": {req: rpcRequest(`"r-1"`, a2a.MethodSendMessageStreaming, pingParams), wantCode: a2a.ErrorCodeInvalidRequest},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			resp := h.HandleRequest(t.Context(), tt.req)
			if resp.Error == nil {
				t.Fatalf("HandleRequest() = %+v, want error %d", resp, tt.wantCode)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %d", resp.Error, tt.wantCode)
			}
			if string(resp.ID) != `"r-1"` {
				t.Errorf("response id = %s, want \"r-1\"", resp.ID)
			}
			if resp.Result != nil {
				t.Errorf("error response carries a result: %v", resp.Result)
			}
		})
	}
}

func TestJSONRPCHandler_SendMessage(t *testing.T) {
	t.Parallel()

	h := newTestJSONRPCHandler(t, nil)
	resp := h.HandleRequest(t.Context(), rpcRequest("12", a2a.MethodSendMessage, pingParams))
	if resp.Error != nil {
		t.Fatalf("HandleRequest() error = %+v", resp.Error)
	}
	if string(resp.ID) != "12" {
		t.Errorf("response id = %s, want 12", resp.ID)
	}
	got, ok := resp.Result.(*a2a.Task)
	if !ok {
		t.Fatalf("result = %T, want *a2a.Task", resp.Result)
	}
	if got.ID != "task-1" || got.Status.State != a2a.TaskStateCompleted {
		t.Errorf("task = %s %s, want task-1 completed", got.ID, got.Status.State)
	}

	// A request without id is still answered, with a null id.
	resp = h.HandleRequest(t.Context(), rpcRequest("", a2a.MethodGetTask, `{"id":"task-1"}`))
	if resp.Error != nil || string(resp.ID) != "null" {
		t.Errorf("HandleRequest() without id = %+v, want result with null id", resp)
	}
}

func TestJSONRPCHandler_HandleStream(t *testing.T) {
	t.Parallel()

	h := newTestJSONRPCHandler(t, &a2a.AgentCard{Capabilities: a2a.AgentCapabilities{Streaming: true}})
	req := rpcRequest(`"s-1"`, a2a.MethodSendMessageStreaming, pingParams)
	if !h.IsStreaming(req) {
		t.Fatalf("IsStreaming(%s) = false", req.Method)
	}

	stream, resp := h.HandleStream(t.Context(), req)
	if resp != nil {
		t.Fatalf("HandleStream() error response = %+v", resp.Error)
	}
	defer stream.Close()

	var n int
	for {
		ev, err := stream.Recv(t.Context())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		n++
		out := h.StreamResponse(req, ev)
		if string(out.ID) != `"s-1"` || out.Result != ev {
			t.Errorf("stream response = %+v, want the event with id \"s-1\"", out)
		}
	}
	if n != 3 {
		t.Errorf("stream carried %d events, want 3", n)
	}

	_, resp = h.HandleStream(t.Context(), rpcRequest("1", a2a.MethodGetTask, `{"id":"task-1"}`))
	if resp == nil || resp.Error.Code != a2a.ErrorCodeMethodNotFound {
		t.Errorf("HandleStream(unary method) = %+v, want method not found", resp)
	}
}

func TestJSONRPCHandler_CapabilityGating(t *testing.T) {
	t.Parallel()

	h := newTestJSONRPCHandler(t, &a2a.AgentCard{Name: "plain"})
	inlinePush := `{"message":{"kind":"message","messageId":"m","role":"user","parts":[{"kind":"text","text":"x"}]},"configuration":{"pushNotificationConfig":{"url":"https://example.com/hook"}}}`

	tests := map[string]struct {
		req      *a2a.JSONRPCRequest
		wantCode int
	}{
		"set push config": {
			req:      rpcRequest("1", a2a.MethodSetTaskPushNotificationConfig, `{"taskId":"t","pushNotificationConfig":{"url":"https://example.com"}}`),
			wantCode: a2a.ErrorCodePushNotificationNotSupported,
		},
		"get push config": {
			req:      rpcRequest("1", a2a.MethodGetTaskPushNotificationConfig, `{"id":"t"}`),
			wantCode: a2a.ErrorCodePushNotificationNotSupported,
		},
		"inline push config": {
			req:      rpcRequest("1", a2a.MethodSendMessage, inlinePush),
			wantCode: a2a.ErrorCodePushNotificationNotSupported,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			resp := h.HandleRequest(t.Context(), tt.req)
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("HandleRequest() = %+v, want code %d", resp, tt.wantCode)
			}
		})
	}

	for _, method := range []string{a2a.MethodSendMessageStreaming, a2a.MethodResubscribe} {
		_, resp := h.HandleStream(t.Context(), rpcRequest("1", method, `{}`))
		if resp == nil || resp.Error.Code != a2a.ErrorCodeUnsupportedOperation {
			t.Errorf("HandleStream(%s) = %+v, want unsupported operation", method, resp)
		}
	}
}
