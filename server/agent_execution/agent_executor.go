// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent_execution defines the contract between the server and agent business logic,
// and the request context an agent executes with.
package agent_execution

import (
	"context"
	"errors"
	"fmt"

	a2a "github.com/go-a2a/a2a-server"
	"github.com/go-a2a/a2a-server/server/task"
)

// AgentExecutor runs the business logic of an agent.
//
// Execute is called once per inbound message, in its own goroutine. It publishes progress
// through u and should end the task with a terminal status or [task.Updater.RequiresInput].
// Returning an error fails the task. ctx is canceled when the task is canceled; the executor
// should then stop publishing.
type AgentExecutor interface {
	Execute(ctx context.Context, rc *RequestContext, u *task.Updater) error
}

// AgentExecutorFunc adapts a function to [AgentExecutor].
type AgentExecutorFunc func(ctx context.Context, rc *RequestContext, u *task.Updater) error

var _ AgentExecutor = AgentExecutorFunc(nil)

// Execute calls f.
func (f AgentExecutorFunc) Execute(ctx context.Context, rc *RequestContext, u *task.Updater) error {
	return f(ctx, rc, u)
}

// EchoAgentExecutor answers every message with an artifact holding the message text.
type EchoAgentExecutor struct{}

var _ AgentExecutor = (*EchoAgentExecutor)(nil)

// NewEchoAgentExecutor creates a new EchoAgentExecutor instance.
func NewEchoAgentExecutor() *EchoAgentExecutor {
	return &EchoAgentExecutor{}
}

// Execute implements [AgentExecutor].
func (*EchoAgentExecutor) Execute(ctx context.Context, rc *RequestContext, u *task.Updater) error {
	if rc == nil {
		return errors.New("request context cannot be nil")
	}
	if u == nil {
		return errors.New("updater cannot be nil")
	}

	if err := u.StartWork(ctx, ""); err != nil {
		return err
	}
	input := rc.GetUserInput("")
	if input == "" {
		return u.RequiresInput(ctx, "send a text part to echo")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := u.AddArtifact(ctx, a2a.NewTextArtifact("echo", input), false, true); err != nil {
		return fmt.Errorf("add artifact: %w", err)
	}
	return u.Complete(ctx, "")
}
