// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	a2a "github.com/go-a2a/a2a-server"
	"github.com/go-a2a/a2a-server/auth"
	"github.com/go-a2a/a2a-server/server/agent_execution"
	"github.com/go-a2a/a2a-server/server/handler"
	"github.com/go-a2a/a2a-server/server/task"
)

var discard = slog.New(slog.DiscardHandler)

// rpcResponse keeps the result raw so each test decodes the type it expects.
type rpcResponse struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      jsontext.Value    `json:"id"`
	Result  jsontext.Value    `json:"result,omitzero"`
	Error   *a2a.JSONRPCError `json:"error,omitzero"`
}

// streamedEvent is the subset of an event the tests inspect.
type streamedEvent struct {
	Kind   a2a.EventKind  `json:"kind"`
	TaskID string         `json:"taskId"`
	Final  bool           `json:"final"`
	Status a2a.TaskStatus `json:"status"`
}

// answer works, answers with the caller name and completes.
var answer = agent_execution.AgentExecutorFunc(func(ctx context.Context, rc *agent_execution.RequestContext, u *task.Updater) error {
	if err := u.StartWork(ctx, ""); err != nil {
		return err
	}
	name := rc.CallContext().User().UserName()
	if name == "" {
		name = "anonymous"
	}
	if err := u.AddArtifact(ctx, a2a.NewTextArtifact("answer", "hello "+name), false, true); err != nil {
		return err
	}
	return u.Complete(ctx, "")
})

func testCard(streaming bool) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:               "test agent",
		Description:        "answers with the caller name",
		URL:                "http://localhost/",
		Version:            "1.0.0",
		ProtocolVersion:    a2a.Version,
		Capabilities:       a2a.AgentCapabilities{Streaming: streaming},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills:             []a2a.AgentSkill{{ID: "hello", Name: "Hello"}},
	}
}

func newTestServer(t *testing.T, card *a2a.AgentCard, opts ...Option) *httptest.Server {
	t.Helper()

	m := task.NewManager(task.WithLogger(discard))
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	h := handler.NewDefaultRequestHandler(answer, m, handler.WithLogger(discard))
	rpc := handler.NewJSONRPCHandler(h, handler.WithAgentCard(card), handler.WithJSONRPCLogger(discard))

	s, err := NewServer(rpc, append([]Option{WithLogger(discard)}, opts...)...)
	require.NoError(t, err)

	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return srv
}

func sendRequest(id, method, taskID, text string) string {
	req, err := a2a.NewJSONRPCRequest(id, method, &a2a.MessageSendParams{Message: func() *a2a.Message {
		msg := a2a.NewUserTextMessage(text)
		msg.TaskID = taskID
		return msg
	}()})
	if err != nil {
		panic(err)
	}
	b, err := json.Marshal(req)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func post(t *testing.T, url, body string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeResponse(t *testing.T, r io.Reader) rpcResponse {
	t.Helper()
	var resp rpcResponse
	require.NoError(t, json.UnmarshalRead(r, &resp))
	return resp
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	_, err := NewServer(nil)
	require.Error(t, err)

	rpc := handler.NewJSONRPCHandler(handler.NewDefaultRequestHandler(answer, task.NewManager()))
	_, err = NewServer(rpc, WithEndpoint("rpc"))
	require.Error(t, err)
}

func TestServer_AgentCard(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testCard(true))
	resp, err := http.Get(srv.URL + a2a.AgentCardWellKnownPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var card a2a.AgentCard
	require.NoError(t, json.UnmarshalRead(resp.Body, &card))
	assert.Equal(t, "test agent", card.Name)
	assert.True(t, card.Capabilities.Streaming)
}

func TestServer_AgentCardMissing(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + a2a.AgentCardWellKnownPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_JWKS(t *testing.T) {
	t.Parallel()

	keys := auth.NewKeyManager("test")
	_, err := keys.GenerateKey("key-1")
	require.NoError(t, err)

	srv := newTestServer(t, testCard(true), WithKeyManager(keys))
	resp, err := http.Get(srv.URL + a2a.JWKSWellKnownPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var set struct {
		Keys []struct {
			KeyID string `json:"kid"`
		} `json:"keys"`
	}
	require.NoError(t, json.UnmarshalRead(resp.Body, &set))
	require.Len(t, set.Keys, 1)
	assert.Equal(t, "key-1", set.Keys[0].KeyID)

	// Without a key manager the path is not served.
	plain := newTestServer(t, testCard(true))
	resp2, err := http.Get(plain.URL + a2a.JWKSWellKnownPath)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestServer_Unary(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testCard(true))

	tests := map[string]struct {
		body     string
		wantID   string
		wantCode int
	}{
		"message/send": {
			body:   sendRequest("req-1", a2a.MethodSendMessage, "task-1", "hi"),
			wantID: `"req-1"`,
		},
		"parse error": {
			body:     `{"jsonrpc": "2.0", "id": 1, "method": `,
			wantID:   "null",
			wantCode: a2a.ErrorCodeParseError,
		},
		"method not found": {
			body:     `{"jsonrpc":"2.0","id":9,"method":"tasks/list","params":{}}`,
			wantID:   "9",
			wantCode: a2a.ErrorCodeMethodNotFound,
		},
		"task not found": {
			body:     `{"jsonrpc":"2.0","id":"x","method":"tasks/get","params":{"id":"missing"}}`,
			wantID:   `"x"`,
			wantCode: a2a.ErrorCodeTaskNotFound,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			resp := post(t, srv.URL, tt.body, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			got := decodeResponse(t, resp.Body)
			assert.Equal(t, a2a.JSONRPCVersion, got.JSONRPC)
			assert.Equal(t, tt.wantID, string(got.ID))
			if tt.wantCode != 0 {
				require.NotNil(t, got.Error)
				assert.Equal(t, tt.wantCode, got.Error.Code)
				return
			}
			require.Nil(t, got.Error)

			var tk a2a.Task
			require.NoError(t, json.Unmarshal(got.Result, &tk))
			assert.Equal(t, "task-1", tk.ID)
			assert.Equal(t, a2a.TaskStateCompleted, tk.Status.State)
			require.Len(t, tk.Artifacts, 1)
			assert.Equal(t, "hello anonymous", tk.Artifacts[0].Parts[0].Text)
		})
	}
}

func readSSE(t *testing.T, r io.Reader) []rpcResponse {
	t.Helper()

	var out []rpcResponse
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		out = append(out, decodeResponse(t, strings.NewReader(data)))
	}
	require.NoError(t, sc.Err())
	return out
}

func TestServer_SSE(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testCard(true))
	resp := post(t, srv.URL, sendRequest("s-1", a2a.MethodSendMessageStreaming, "task-1", "hi"), nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	frames := readSSE(t, resp.Body)
	require.Len(t, frames, 3)

	var kinds []a2a.EventKind
	for _, f := range frames {
		assert.Equal(t, `"s-1"`, string(f.ID))
		require.Nil(t, f.Error)
		var ev streamedEvent
		require.NoError(t, json.Unmarshal(f.Result, &ev))
		assert.Equal(t, "task-1", ev.TaskID)
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []a2a.EventKind{a2a.EventKindStatusUpdate, a2a.EventKindArtifactUpdate, a2a.EventKindStatusUpdate}, kinds)

	var last streamedEvent
	require.NoError(t, json.Unmarshal(frames[2].Result, &last))
	assert.True(t, last.Final)
	assert.Equal(t, a2a.TaskStateCompleted, last.Status.State)

	// A finished task resubscribed yields its final status only.
	resub := post(t, srv.URL, `{"jsonrpc":"2.0","id":2,"method":"tasks/resubscribe","params":{"id":"task-1"}}`, nil)
	frames = readSSE(t, resub.Body)
	require.Len(t, frames, 1)
}

func TestServer_SSERejected(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testCard(false))
	resp := post(t, srv.URL, sendRequest("s-1", a2a.MethodSendMessageStreaming, "task-1", "hi"), nil)

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	got := decodeResponse(t, resp.Body)
	require.NotNil(t, got.Error)
	assert.Equal(t, a2a.ErrorCodeUnsupportedOperation, got.Error.Code)
	assert.Equal(t, `"s-1"`, string(got.ID))
}

func TestServer_Authenticator(t *testing.T) {
	t.Parallel()

	authn := func(r *http.Request) (auth.User, error) {
		switch r.Header.Get("Authorization") {
		case "Bearer alice-token":
			return auth.AuthenticatedUser{Name: "alice"}, nil
		case "":
			return auth.UnauthenticatedUser{}, nil
		}
		return nil, errors.New("unknown token")
	}
	srv := newTestServer(t, testCard(true), WithAuthenticator(authn))

	tests := map[string]struct {
		token      string
		wantStatus int
		wantText   string
	}{
		"authenticated": {token: "Bearer alice-token", wantStatus: http.StatusOK, wantText: "hello alice"},
		"anonymous":     {wantStatus: http.StatusOK, wantText: "hello anonymous"},
		"rejected":      {token: "Bearer forged", wantStatus: http.StatusUnauthorized},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			header := http.Header{}
			if tt.token != "" {
				header.Set("Authorization", tt.token)
			}
			resp := post(t, srv.URL, sendRequest("1", a2a.MethodSendMessage, "task-"+name, "hi"), header)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}

			got := decodeResponse(t, resp.Body)
			require.Nil(t, got.Error)
			var tk a2a.Task
			require.NoError(t, json.Unmarshal(got.Result, &tk))
			require.Len(t, tk.Artifacts, 1)
			assert.Equal(t, tt.wantText, tk.Artifacts[0].Parts[0].Text)
		})
	}
}

func TestServer_BodyTooLarge(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testCard(true), WithMaxBodySize(64))
	resp := post(t, srv.URL, sendRequest("1", a2a.MethodSendMessage, "task-1", strings.Repeat("x", 128)), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestServer_CustomEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testCard(true), WithEndpoint("/a2a"))

	resp := post(t, srv.URL+"/a2a", sendRequest("1", a2a.MethodSendMessage, "task-1", "hi"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeResponse(t, resp.Body)
	assert.Nil(t, got.Error)

	other := post(t, srv.URL+"/", sendRequest("1", a2a.MethodSendMessage, "task-2", "hi"), nil)
	assert.Equal(t, http.StatusNotFound, other.StatusCode)
}

func TestServer_WebSocket(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testCard(true))
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	read := func() rpcResponse {
		typ, data, err := conn.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, websocket.MessageText, typ)
		return decodeResponse(t, bytes.NewReader(data))
	}

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(sendRequest("w-1", a2a.MethodSendMessageStreaming, "task-1", "hi"))))
	for i := range 3 {
		got := read()
		require.Nil(t, got.Error)
		assert.Equal(t, `"w-1"`, string(got.ID), "event %d", i)
	}

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"jsonrpc":"2.0","id":"w-2","method":"tasks/get","params":{"id":"task-1"}}`)))
	got := read()
	require.Nil(t, got.Error)
	assert.Equal(t, `"w-2"`, string(got.ID))
	var tk a2a.Task
	require.NoError(t, json.Unmarshal(got.Result, &tk))
	assert.Equal(t, a2a.TaskStateCompleted, tk.Status.State)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`not json`)))
	got = read()
	require.NotNil(t, got.Error)
	assert.Equal(t, a2a.ErrorCodeParseError, got.Error.Code)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}
