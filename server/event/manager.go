// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"sync"
)

// QueueManager keeps the event queue of every live task.
type QueueManager interface {
	// CreateOrGet returns the queue of taskID, creating it if needed.
	CreateOrGet(taskID string) (*EventQueue, error)

	// Remove closes the queue of taskID if needed and forgets it.
	Remove(taskID string)

	// CloseAll closes every queue.
	CloseAll()
}

// InMemoryQueueManager is a [QueueManager] backed by a map.
type InMemoryQueueManager struct {
	mu      sync.RWMutex
	queues  map[string]*EventQueue
	maxSize int
}

var _ QueueManager = (*InMemoryQueueManager)(nil)

// NewInMemoryQueueManager creates a new in-memory queue manager whose queues buffer
// maxQueueSize events per subscriber.
func NewInMemoryQueueManager(maxQueueSize int) *InMemoryQueueManager {
	if maxQueueSize <= 0 {
		maxQueueSize = DefaultMaxQueueSize
	}
	return &InMemoryQueueManager{
		queues:  make(map[string]*EventQueue),
		maxSize: maxQueueSize,
	}
}

// CreateOrGet implements [QueueManager].
func (m *InMemoryQueueManager) CreateOrGet(taskID string) (*EventQueue, error) {
	m.mu.RLock()
	queue, ok := m.queues[taskID]
	m.mu.RUnlock()
	if ok {
		return queue, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check in case another goroutine created it.
	if queue, ok = m.queues[taskID]; ok {
		return queue, nil
	}
	queue, err := NewEventQueue(taskID, m.maxSize)
	if err != nil {
		return nil, err
	}
	m.queues[taskID] = queue
	return queue, nil
}

// Remove implements [QueueManager].
func (m *InMemoryQueueManager) Remove(taskID string) {
	m.mu.Lock()
	queue, ok := m.queues[taskID]
	delete(m.queues, taskID)
	m.mu.Unlock()

	if ok {
		_ = queue.Close()
	}
}

// CloseAll implements [QueueManager].
func (m *InMemoryQueueManager) CloseAll() {
	m.mu.RLock()
	queues := make([]*EventQueue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	m.mu.RUnlock()

	for _, q := range queues {
		_ = q.Close()
	}
}
