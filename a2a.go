// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package a2a provides the data model of the Agent-to-Agent (A2A) protocol as seen by the
// server-side task runtime: tasks and their state machine, messages, artifacts, the closed
// set of task events, push notification configuration and the JSON-RPC envelope.
package a2a

import (
	"fmt"
	"time"
)

// Version is the A2A protocol version implemented by this module.
const Version = "0.2.5"

// TaskState represents the state of a Task.
type TaskState string

const (
	// TaskStateSubmitted indicates the task has been received but not started.
	TaskStateSubmitted TaskState = "submitted"

	// TaskStateWorking indicates the task is being worked on.
	TaskStateWorking TaskState = "working"

	// TaskStateInputRequired indicates the agent paused and waits for caller input.
	TaskStateInputRequired TaskState = "input-required"

	// TaskStateCompleted indicates the task has been completed.
	TaskStateCompleted TaskState = "completed"

	// TaskStateFailed indicates the task has failed.
	TaskStateFailed TaskState = "failed"

	// TaskStateCanceled indicates the task has been canceled.
	TaskStateCanceled TaskState = "canceled"
)

// transitions lists the non-terminal successors of each non-terminal state.
// Every non-terminal state may additionally move to any terminal state.
var transitions = map[TaskState][]TaskState{
	TaskStateSubmitted:     {TaskStateSubmitted, TaskStateWorking},
	TaskStateWorking:       {TaskStateWorking, TaskStateInputRequired},
	TaskStateInputRequired: {TaskStateInputRequired, TaskStateWorking},
}

// IsValid reports whether s is a known task state.
func (s TaskState) IsValid() bool {
	switch s {
	case TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired,
		TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s is a terminal state. No transition leaves a terminal state.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed || s == TaskStateCanceled
}

// String implements [fmt.Stringer].
func (s TaskState) String() string {
	return string(s)
}

// CanTransition reports whether a task in state from may move to state to.
func CanTransition(from, to TaskState) bool {
	if from.IsTerminal() || !to.IsValid() {
		return false
	}
	if to.IsTerminal() {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TaskStatus is the current status of a task together with an optional status message.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitzero"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Validate ensures the TaskStatus is valid.
func (s TaskStatus) Validate() error {
	if !s.State.IsValid() {
		return fmt.Errorf("invalid task state: %q", s.State)
	}
	if s.Message != nil {
		if err := s.Message.Validate(); err != nil {
			return fmt.Errorf("status message is invalid: %w", err)
		}
	}
	return nil
}

// Clone returns a deep copy of s.
func (s TaskStatus) Clone() TaskStatus {
	s.Message = s.Message.Clone()
	return s
}
