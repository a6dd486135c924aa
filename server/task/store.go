// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"

	a2a "github.com/go-a2a/a2a-server"
)

// TaskStore persists task snapshots.
//
// Implementations must never hand out references into their own state: Save stores a copy and
// Get returns a copy. Locking is per entry, so that one task's writes do not block another's.
type TaskStore interface {
	// Save persists a task. If the task already exists, it is replaced.
	Save(ctx context.Context, task *a2a.Task) error

	// Get retrieves a task by its ID.
	// Returns a2a.TaskNotFoundError if the task doesn't exist.
	Get(ctx context.Context, taskID string) (*a2a.Task, error)

	// Delete removes a task.
	// Returns a2a.TaskNotFoundError if the task doesn't exist.
	Delete(ctx context.Context, taskID string) error

	// List retrieves tasks ordered by id. An empty contextID lists every task.
	List(ctx context.Context, contextID string, limit, offset int) ([]*a2a.Task, error)

	// Count returns the number of tasks. An empty contextID counts every task.
	Count(ctx context.Context, contextID string) (int64, error)

	// Initialize prepares the storage backend for use.
	Initialize(ctx context.Context) error

	// Close cleanly shuts down the storage backend.
	Close(ctx context.Context) error
}
