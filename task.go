// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Task is a unit of agent work tracked from submission to a terminal outcome.
type Task struct {
	Kind      string         `json:"kind"`
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	History   []*Message     `json:"history,omitzero"`
	Artifacts []*Artifact    `json:"artifacts,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// NewTask returns a task in the submitted state. Empty ids are generated.
func NewTask(taskID, contextID string) *Task {
	if taskID == "" {
		taskID = uuid.NewString()
	}
	if contextID == "" {
		contextID = uuid.NewString()
	}
	return &Task{
		Kind:      "task",
		ID:        taskID,
		ContextID: contextID,
		Status: TaskStatus{
			State:     TaskStateSubmitted,
			Timestamp: time.Now().UTC(),
		},
	}
}

// Validate ensures the Task is valid.
func (t *Task) Validate() error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if t.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if t.ContextID == "" {
		return fmt.Errorf("task context ID cannot be empty")
	}
	if err := t.Status.Validate(); err != nil {
		return fmt.Errorf("task status is invalid: %w", err)
	}
	for i, a := range t.Artifacts {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("artifact at index %d is invalid: %w", i, err)
		}
	}
	return nil
}

// IsTerminal reports whether the task is in a terminal state.
func (t *Task) IsTerminal() bool {
	return t.Status.State.IsTerminal()
}

// Clone returns a deep copy of t that shares no mutable state with it.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Status = t.Status.Clone()
	if t.History != nil {
		c.History = make([]*Message, len(t.History))
		for i, m := range t.History {
			c.History[i] = m.Clone()
		}
	}
	if t.Artifacts != nil {
		c.Artifacts = make([]*Artifact, len(t.Artifacts))
		for i, a := range t.Artifacts {
			c.Artifacts[i] = a.Clone()
		}
	}
	c.Metadata = maps.Clone(t.Metadata)
	return &c
}

// WithHistoryLimit trims the history of t in place to its last n messages and returns t.
// A non-positive n leaves the history untouched.
func (t *Task) WithHistoryLimit(n int) *Task {
	if n > 0 && len(t.History) > n {
		t.History = t.History[len(t.History)-n:]
	}
	return t
}
