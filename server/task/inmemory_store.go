// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	a2a "github.com/go-a2a/a2a-server"
)

// InMemoryTaskStore is an in-memory implementation of TaskStore.
// Task data is lost when the server process stops.
//
// The map lock is held only to find or insert an entry; each entry carries its own lock, so a
// slow copy of one task never blocks access to another.
type InMemoryTaskStore struct {
	mu      sync.RWMutex
	entries map[string]*storeEntry
}

type storeEntry struct {
	mu   sync.RWMutex
	task *a2a.Task
}

var _ TaskStore = (*InMemoryTaskStore)(nil)

// NewInMemoryTaskStore creates a new InMemoryTaskStore.
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		entries: make(map[string]*storeEntry),
	}
}

func (s *InMemoryTaskStore) entry(taskID string, create bool) *storeEntry {
	s.mu.RLock()
	e, ok := s.entries[taskID]
	s.mu.RUnlock()
	if ok || !create {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[taskID]; ok {
		return e
	}
	e = &storeEntry{}
	s.entries[taskID] = e
	return e
}

// Save persists a task to the in-memory storage.
func (s *InMemoryTaskStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := task.Validate(); err != nil {
		return NewTaskValidationError(task.ID, err)
	}

	cp := task.Clone()
	e := s.entry(task.ID, true)
	e.mu.Lock()
	e.task = cp
	e.mu.Unlock()
	return nil
}

// Get retrieves a task by its ID from the in-memory storage.
func (s *InMemoryTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	e := s.entry(taskID, false)
	if e == nil {
		return nil, a2a.TaskNotFoundError{TaskID: taskID}
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.task == nil {
		return nil, a2a.TaskNotFoundError{TaskID: taskID}
	}
	return e.task.Clone(), nil
}

// Delete removes a task from the in-memory storage.
func (s *InMemoryTaskStore) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[taskID]; !ok {
		return a2a.TaskNotFoundError{TaskID: taskID}
	}
	delete(s.entries, taskID)
	return nil
}

// List retrieves tasks ordered by id.
func (s *InMemoryTaskStore) List(ctx context.Context, contextID string, limit, offset int) ([]*a2a.Task, error) {
	var tasks []*a2a.Task
	for _, e := range s.snapshotEntries() {
		e.mu.RLock()
		if e.task != nil && (contextID == "" || e.task.ContextID == contextID) {
			tasks = append(tasks, e.task.Clone())
		}
		e.mu.RUnlock()
	}
	slices.SortFunc(tasks, func(a, b *a2a.Task) int {
		return strings.Compare(a.ID, b.ID)
	})

	if offset > 0 {
		if offset >= len(tasks) {
			return nil, nil
		}
		tasks = tasks[offset:]
	}
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

// Count returns the number of tasks in the in-memory storage.
func (s *InMemoryTaskStore) Count(ctx context.Context, contextID string) (int64, error) {
	var count int64
	for _, e := range s.snapshotEntries() {
		e.mu.RLock()
		if e.task != nil && (contextID == "" || e.task.ContextID == contextID) {
			count++
		}
		e.mu.RUnlock()
	}
	return count, nil
}

func (s *InMemoryTaskStore) snapshotEntries() []*storeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*storeEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	return entries
}

// Initialize prepares the in-memory storage for use.
func (s *InMemoryTaskStore) Initialize(ctx context.Context) error {
	return nil
}

// Close cleanly shuts down the in-memory storage.
func (s *InMemoryTaskStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*storeEntry)
	return nil
}

// Size returns the current number of tasks in the in-memory storage.
func (s *InMemoryTaskStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}
