// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package handler dispatches A2A requests: it resolves each method to task lifecycle
// operations, runs the agent executor for work-initiating methods, and adapts the results to
// JSON-RPC responses and event streams.
package handler

import (
	"context"

	a2a "github.com/go-a2a/a2a-server"
)

// RequestHandler handles A2A requests independently of their transport.
//
// Errors returned by a RequestHandler are [a2a.CodedError] values whenever the caller is at
// fault. A failure of the agent itself is not an error: it is recorded in the returned task.
type RequestHandler interface {
	// OnMessageSend sends a message to the agent. Unless the configuration asks for a
	// non-blocking call, it waits until the task finishes or pauses for input, and returns
	// the task at that point.
	OnMessageSend(ctx context.Context, params *a2a.MessageSendParams) (*a2a.Task, error)

	// OnMessageSendStream sends a message to the agent and streams the events of its task.
	OnMessageSendStream(ctx context.Context, params *a2a.MessageSendParams) (*Stream, error)

	// OnGetTask returns the current state of a task.
	OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error)

	// OnCancelTask requests cancellation of a task and returns the task afterwards. Canceling
	// a finished task is not an error.
	OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error)

	// OnSetTaskPushNotificationConfig replaces the webhook of a task.
	OnSetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error)

	// OnGetTaskPushNotificationConfig returns the webhook of a task.
	OnGetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskIDParams) (*a2a.TaskPushNotificationConfig, error)

	// OnResubscribe attaches a new stream to an existing task.
	OnResubscribe(ctx context.Context, params *a2a.TaskQueryParams) (*Stream, error)
}
