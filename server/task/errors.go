// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"fmt"

	a2a "github.com/go-a2a/a2a-server"
)

// StaleUpdateError is returned to an executor that publishes an event for a task that already
// reached a terminal state. The event is dropped and the task is left unchanged.
type StaleUpdateError struct {
	TaskID string
	State  a2a.TaskState
	Kind   a2a.EventKind
}

// Error returns the error message.
func (e StaleUpdateError) Error() string {
	return fmt.Sprintf("stale %s event for task %s: task is already %s", e.Kind, e.TaskID, e.State)
}

// InvalidTransitionError is returned to an executor that publishes a status the task cannot
// move to from its current state. The event is dropped.
type InvalidTransitionError struct {
	TaskID string
	From   a2a.TaskState
	To     a2a.TaskState
}

// Error returns the error message.
func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("task %s cannot transition from %s to %s", e.TaskID, e.From, e.To)
}

// TaskStoreError represents an error from the task store.
type TaskStoreError struct {
	Operation string
	TaskID    string
	Err       error
}

// Error returns the error message.
func (e TaskStoreError) Error() string {
	return fmt.Sprintf("task store %s operation failed for task %s: %v", e.Operation, e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e TaskStoreError) Unwrap() error {
	return e.Err
}

// NewTaskStoreError creates a new TaskStoreError.
func NewTaskStoreError(operation, taskID string, err error) TaskStoreError {
	return TaskStoreError{
		Operation: operation,
		TaskID:    taskID,
		Err:       err,
	}
}

// TaskValidationError represents an error when task validation fails.
type TaskValidationError struct {
	TaskID string
	Err    error
}

// Error returns the error message.
func (e TaskValidationError) Error() string {
	return fmt.Sprintf("task %s validation failed: %v", e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e TaskValidationError) Unwrap() error {
	return e.Err
}

// NewTaskValidationError creates a new TaskValidationError.
func NewTaskValidationError(taskID string, err error) TaskValidationError {
	return TaskValidationError{
		TaskID: taskID,
		Err:    err,
	}
}
