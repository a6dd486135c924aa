// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	a2a "github.com/go-a2a/a2a-server"
)

// RequestContext holds the request an agent is executing: the inbound message, the task and
// context it belongs to, and tasks related to it. It is safe for concurrent use.
type RequestContext struct {
	params       *a2a.MessageSendParams
	taskID       string
	contextID    string
	currentTask  *a2a.Task
	relatedTasks []*a2a.Task
	callContext  *ServerCallContext
	mu           sync.RWMutex
}

// NewRequestContext creates a new RequestContext with the provided parameters.
func NewRequestContext(params *a2a.MessageSendParams, taskID, contextID string, currentTask *a2a.Task, callContext *ServerCallContext) *RequestContext {
	return &RequestContext{
		params:      params,
		taskID:      taskID,
		contextID:   contextID,
		currentTask: currentTask,
		callContext: callContext,
	}
}

// Params returns the incoming message/send payload.
func (rc *RequestContext) Params() *a2a.MessageSendParams {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.params
}

// Message returns the inbound message, or nil.
func (rc *RequestContext) Message() *a2a.Message {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if rc.params == nil {
		return nil
	}
	return rc.params.Message
}

// Configuration returns the send configuration of the request, or nil.
func (rc *RequestContext) Configuration() *a2a.MessageSendConfiguration {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if rc.params == nil {
		return nil
	}
	return rc.params.Configuration
}

// Metadata returns the request metadata.
func (rc *RequestContext) Metadata() map[string]any {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if rc.params == nil {
		return nil
	}
	return rc.params.Metadata
}

// TaskID returns the ID of the task.
func (rc *RequestContext) TaskID() string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.taskID
}

// ContextID returns the ID of the conversation context.
func (rc *RequestContext) ContextID() string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.contextID
}

// CurrentTask returns the task as it was when the request arrived.
func (rc *RequestContext) CurrentTask() *a2a.Task {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.currentTask
}

// RelatedTasks returns a copy of the list of other tasks related to the current request.
func (rc *RequestContext) RelatedTasks() []*a2a.Task {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	tasks := make([]*a2a.Task, len(rc.relatedTasks))
	copy(tasks, rc.relatedTasks)
	return tasks
}

// CallContext returns the server call context associated with this request.
func (rc *RequestContext) CallContext() *ServerCallContext {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.callContext
}

// GetUserInput joins the text parts of the inbound message with delimiter, a newline when empty.
func (rc *RequestContext) GetUserInput(delimiter string) string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	if rc.params == nil || rc.params.Message == nil {
		return ""
	}
	if delimiter == "" {
		delimiter = "\n"
	}

	var texts []string
	for _, p := range rc.params.Message.Parts {
		if p.Kind == a2a.PartKindText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, delimiter)
}

// AttachRelatedTask attaches a related task to the context.
func (rc *RequestContext) AttachRelatedTask(task *a2a.Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.relatedTasks = append(rc.relatedTasks, task)
	return nil
}

// checkOrGenerateTaskID takes the task id from the message, or generates one.
func (rc *RequestContext) checkOrGenerateTaskID() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.taskID != "" {
		return
	}
	if rc.params != nil && rc.params.Message != nil && rc.params.Message.TaskID != "" {
		rc.taskID = rc.params.Message.TaskID
		return
	}
	rc.taskID = uuid.NewString()
}

// checkOrGenerateContextID takes the context id from the current task or the message, or
// generates one.
func (rc *RequestContext) checkOrGenerateContextID() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	switch {
	case rc.contextID != "":
	case rc.currentTask != nil:
		rc.contextID = rc.currentTask.ContextID
	case rc.params != nil && rc.params.Message != nil && rc.params.Message.ContextID != "":
		rc.contextID = rc.params.Message.ContextID
	default:
		rc.contextID = uuid.NewString()
	}
}

// Validate ensures the RequestContext is in a valid state.
func (rc *RequestContext) Validate() error {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	if rc.params == nil {
		return errors.New("request context params cannot be nil")
	}
	if err := rc.params.Validate(); err != nil {
		return fmt.Errorf("request context params are invalid: %w", err)
	}
	if err := a2a.ValidateID("taskId", rc.taskID); err != nil {
		return err
	}
	if err := a2a.ValidateID("contextId", rc.contextID); err != nil {
		return err
	}

	if t := rc.currentTask; t != nil {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("request context current task is invalid: %w", err)
		}
		if t.ID != rc.taskID || t.ContextID != rc.contextID {
			return fmt.Errorf("current task %s/%s does not match request %s/%s", t.ID, t.ContextID, rc.taskID, rc.contextID)
		}
	}

	for i, task := range rc.relatedTasks {
		if task == nil {
			return fmt.Errorf("request context related task at index %d cannot be nil", i)
		}
	}

	if rc.callContext == nil {
		return errors.New("request context call context cannot be nil")
	}
	return rc.callContext.Validate()
}

// String returns a string representation of the RequestContext for debugging.
func (rc *RequestContext) String() string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	return fmt.Sprintf("RequestContext{taskID: %s, contextID: %s, relatedTasks: %d}",
		rc.taskID, rc.contextID, len(rc.relatedTasks))
}
