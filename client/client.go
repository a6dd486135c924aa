// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package client calls an A2A agent over HTTP JSON-RPC.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	a2a "github.com/go-a2a/a2a-server"
)

// maxErrorBody bounds the part of a non-200 body kept in an [HTTPError].
const maxErrorBody = 512

// Client sends JSON-RPC requests to one agent endpoint. It is safe for concurrent use.
type Client struct {
	hc           *http.Client
	url          string
	interceptors []Interceptor
	logger       *slog.Logger
	nextID       atomic.Int64
}

// NewClient creates a client for the JSON-RPC endpoint at rawURL.
func NewClient(rawURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("endpoint %q must be an absolute URL", rawURL)
	}

	c := &Client{
		hc:  http.DefaultClient,
		url: rawURL,
	}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// NewClientFromCard creates a client for the endpoint advertised by card.
func NewClientFromCard(card *a2a.AgentCard, opts ...Option) (*Client, error) {
	if card == nil {
		return nil, errors.New("agent card cannot be nil")
	}
	return NewClient(card.URL, opts...)
}

// rpcResponse keeps the result raw until the caller picks its type.
type rpcResponse struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      jsontext.Value    `json:"id"`
	Result  jsontext.Value    `json:"result,omitzero"`
	Error   *a2a.JSONRPCError `json:"error,omitzero"`
}

// SendMessage sends a message and returns the resulting task.
func (c *Client) SendMessage(ctx context.Context, params *a2a.MessageSendParams) (*a2a.Task, error) {
	var task a2a.Task
	if err := c.call(ctx, a2a.MethodSendMessage, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask returns the current state of a task.
func (c *Client) GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	var task a2a.Task
	if err := c.call(ctx, a2a.MethodGetTask, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CancelTask requests cancellation of a task and returns it afterwards.
func (c *Client) CancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	var task a2a.Task
	if err := c.call(ctx, a2a.MethodCancelTask, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// SetTaskPushNotificationConfig replaces the webhook of a task.
func (c *Client) SetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	var cfg a2a.TaskPushNotificationConfig
	if err := c.call(ctx, a2a.MethodSetTaskPushNotificationConfig, params, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetTaskPushNotificationConfig returns the webhook of a task.
func (c *Client) GetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskIDParams) (*a2a.TaskPushNotificationConfig, error) {
	var cfg a2a.TaskPushNotificationConfig
	if err := c.call(ctx, a2a.MethodGetTaskPushNotificationConfig, params, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SendMessageStream sends a message and streams the events of its task.
func (c *Client) SendMessageStream(ctx context.Context, params *a2a.MessageSendParams) (*Stream, error) {
	return c.stream(ctx, a2a.MethodSendMessageStreaming, params)
}

// Resubscribe streams the events of an existing task.
func (c *Client) Resubscribe(ctx context.Context, params *a2a.TaskQueryParams) (*Stream, error) {
	return c.stream(ctx, a2a.MethodResubscribe, params)
}

// call performs a unary request and decodes its result into result.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	resp, err := c.do(ctx, method, params, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out rpcResponse
	if err := json.UnmarshalRead(resp.Body, &out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if out.Error != nil {
		return out.Error
	}
	if err := json.Unmarshal(out.Result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

func (c *Client) stream(ctx context.Context, method string, params any) (*Stream, error) {
	resp, err := c.do(ctx, method, params, "text/event-stream")
	if err != nil {
		return nil, err
	}

	// A request rejected before the stream opens is answered with a plain JSON body.
	if ct := resp.Header.Get("Content-Type"); ct == "application/json" {
		defer resp.Body.Close()
		var out rpcResponse
		if err := json.UnmarshalRead(resp.Body, &out); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", method, err)
		}
		if out.Error != nil {
			return nil, out.Error
		}
		return nil, fmt.Errorf("%s answered without a stream", method)
	}
	return newStream(resp.Body), nil
}

// do sends one request envelope and returns the 200 response.
func (c *Client) do(ctx context.Context, method string, params any, accept string) (*http.Response, error) {
	req, err := a2a.NewJSONRPCRequest(c.nextID.Add(1), method, params)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	for _, intercept := range c.interceptors {
		if err := intercept(ctx, httpReq); err != nil {
			return nil, fmt.Errorf("intercept %s request: %w", method, err)
		}
	}

	c.logger.DebugContext(ctx, "send request", slog.String("method", method), slog.String("id", string(req.ID)))
	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send %s request: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}
	return resp, nil
}
