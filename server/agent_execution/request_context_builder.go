// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"context"

	a2a "github.com/go-a2a/a2a-server"
)

// RequestContextBuilder builds the RequestContext handed to an [AgentExecutor].
type RequestContextBuilder interface {
	// Build creates a RequestContext for params. taskID and contextID may be empty, in which
	// case they are taken from currentTask or params, or generated. currentTask may be nil.
	Build(ctx context.Context, params *a2a.MessageSendParams, taskID, contextID string, currentTask *a2a.Task, callContext *ServerCallContext) (*RequestContext, error)
}
