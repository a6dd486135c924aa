// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"context"
	"errors"
	"fmt"

	a2a "github.com/go-a2a/a2a-server"
	"github.com/go-a2a/a2a-server/server/task"
)

// DefaultMaxRelatedTasks bounds the related tasks attached to one request.
const DefaultMaxRelatedTasks = 32

// SimpleRequestContextBuilder is the default [RequestContextBuilder]. When given a task store
// it attaches the other tasks of the request's context as related tasks.
type SimpleRequestContextBuilder struct {
	store           task.TaskStore
	maxRelatedTasks int
}

var _ RequestContextBuilder = (*SimpleRequestContextBuilder)(nil)

// NewSimpleRequestContextBuilder creates a new SimpleRequestContextBuilder instance.
func NewSimpleRequestContextBuilder() *SimpleRequestContextBuilder {
	return &SimpleRequestContextBuilder{}
}

// NewSimpleRequestContextBuilderWithRelatedTasks creates a SimpleRequestContextBuilder that
// looks up related tasks in store. A non-positive limit selects [DefaultMaxRelatedTasks].
func NewSimpleRequestContextBuilderWithRelatedTasks(store task.TaskStore, limit int) *SimpleRequestContextBuilder {
	if limit <= 0 {
		limit = DefaultMaxRelatedTasks
	}
	return &SimpleRequestContextBuilder{store: store, maxRelatedTasks: limit}
}

// PopulateRelatedTasks reports whether related tasks are attached during building.
func (b *SimpleRequestContextBuilder) PopulateRelatedTasks() bool {
	return b.store != nil
}

// Build implements [RequestContextBuilder].
func (b *SimpleRequestContextBuilder) Build(ctx context.Context, params *a2a.MessageSendParams, taskID, contextID string, currentTask *a2a.Task, callContext *ServerCallContext) (*RequestContext, error) {
	if params == nil {
		return nil, errors.New("message send params cannot be nil")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if callContext == nil {
		callContext = CallContextFromContext(ctx)
	}

	rc := NewRequestContext(params, taskID, contextID, currentTask, callContext)
	rc.checkOrGenerateTaskID()
	rc.checkOrGenerateContextID()

	if b.store != nil {
		if err := b.populateRelatedTasks(ctx, rc); err != nil {
			return nil, fmt.Errorf("failed to populate related tasks: %w", err)
		}
	}

	if err := rc.Validate(); err != nil {
		return nil, fmt.Errorf("built request context is invalid: %w", err)
	}
	return rc, nil
}

// populateRelatedTasks attaches the other tasks sharing the context id of rc.
func (b *SimpleRequestContextBuilder) populateRelatedTasks(ctx context.Context, rc *RequestContext) error {
	// One extra row leaves room for the request's own task.
	tasks, err := b.store.List(ctx, rc.ContextID(), b.maxRelatedTasks+1, 0)
	if err != nil {
		return err
	}

	taskID := rc.TaskID()
	attached := 0
	for _, t := range tasks {
		if t.ID == taskID || attached == b.maxRelatedTasks {
			continue
		}
		if err := rc.AttachRelatedTask(t); err != nil {
			return fmt.Errorf("attach task %s: %w", t.ID, err)
		}
		attached++
	}
	return nil
}

// String returns a string representation of the SimpleRequestContextBuilder for debugging.
func (b *SimpleRequestContextBuilder) String() string {
	return fmt.Sprintf("SimpleRequestContextBuilder{populateRelatedTasks: %t, maxRelatedTasks: %d}",
		b.PopulateRelatedTasks(), b.maxRelatedTasks)
}
