// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"

	a2a "github.com/go-a2a/a2a-server"
)

// Updater is the publish handle given to an executor. It is bound to one task and routes every
// event through the Manager, which validates, sequences and fans it out.
//
// Methods return a StaleUpdateError once the task has finished, for example after a cancel;
// executors should treat it as a signal to stop, not as a failure.
type Updater struct {
	m         *Manager
	r         *record
	taskID    string
	contextID string
}

// TaskID returns the ID of the task the updater publishes to.
func (u *Updater) TaskID() string { return u.taskID }

// ContextID returns the context ID of the task the updater publishes to.
func (u *Updater) ContextID() string { return u.contextID }

// Publish applies ev to the task. Missing task and context ids are filled in.
func (u *Updater) Publish(ctx context.Context, ev a2a.Event) (a2a.Event, error) {
	switch e := ev.(type) {
	case *a2a.TaskStatusUpdateEvent:
		if e.TaskID == "" {
			e.TaskID = u.taskID
		}
	case *a2a.TaskArtifactUpdateEvent:
		if e.TaskID == "" {
			e.TaskID = u.taskID
		}
	case *a2a.MessageEvent:
		if e.TaskID == "" {
			e.TaskID = u.taskID
		}
	}

	u.r.mu.Lock()
	defer u.r.mu.Unlock()
	return u.m.applyLocked(ctx, u.r, ev)
}

// UpdateStatus moves the task to state. A non-empty message is attached as an agent message
// and recorded in the history.
func (u *Updater) UpdateStatus(ctx context.Context, state a2a.TaskState, message string) error {
	status := a2a.TaskStatus{State: state}
	if message != "" {
		status.Message = a2a.NewAgentTextMessage(u.taskID, u.contextID, message)
	}
	_, err := u.Publish(ctx, a2a.NewTaskStatusUpdateEvent(u.taskID, u.contextID, status, state.IsTerminal()))
	return err
}

// StartWork marks the task as working.
func (u *Updater) StartWork(ctx context.Context, message string) error {
	return u.UpdateStatus(ctx, a2a.TaskStateWorking, message)
}

// Complete marks the task as completed.
func (u *Updater) Complete(ctx context.Context, message string) error {
	return u.UpdateStatus(ctx, a2a.TaskStateCompleted, message)
}

// Failed marks the task as failed.
func (u *Updater) Failed(ctx context.Context, message string) error {
	return u.UpdateStatus(ctx, a2a.TaskStateFailed, message)
}

// Cancel marks the task as canceled.
func (u *Updater) Cancel(ctx context.Context, message string) error {
	return u.UpdateStatus(ctx, a2a.TaskStateCanceled, message)
}

// RequiresInput pauses the task until the caller sends another message. A blocking
// message/send returns at this point.
func (u *Updater) RequiresInput(ctx context.Context, message string) error {
	status := a2a.TaskStatus{State: a2a.TaskStateInputRequired}
	if message != "" {
		status.Message = a2a.NewAgentTextMessage(u.taskID, u.contextID, message)
	}
	_, err := u.Publish(ctx, a2a.NewTaskStatusUpdateEvent(u.taskID, u.contextID, status, true))
	return err
}

// AddArtifact publishes artifact. With appendChunk set its parts extend the artifact of the
// same id; lastChunk marks the final chunk.
func (u *Updater) AddArtifact(ctx context.Context, artifact *a2a.Artifact, appendChunk, lastChunk bool) error {
	ev := a2a.NewTaskArtifactUpdateEvent(u.taskID, u.contextID, artifact, appendChunk)
	ev.LastChunk = lastChunk
	_, err := u.Publish(ctx, ev)
	return err
}

// SendMessage publishes an agent message with a single text part.
func (u *Updater) SendMessage(ctx context.Context, text string) error {
	_, err := u.Publish(ctx, a2a.NewMessageEvent(u.taskID, u.contextID, a2a.NewAgentTextMessage(u.taskID, u.contextID, text)))
	return err
}
