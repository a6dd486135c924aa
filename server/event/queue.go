// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package event implements the per-task event channel: an ordered, bounded conduit that carries
// the events of one task from its single producer to any number of subscribers.
package event

import (
	"context"
	"maps"
	"slices"
	"sync"

	a2a "github.com/go-a2a/a2a-server"
)

// DefaultMaxQueueSize is the default per-subscriber buffer capacity.
const DefaultMaxQueueSize = 1024

// EventQueue fans the events of one task out to its subscribers.
//
// Every subscriber owns a buffer of the queue capacity. When a buffer is full the publisher
// blocks until the subscriber catches up or unsubscribes; events are never dropped. The queue
// is closed exactly once, after which every subscriber channel is closed.
type EventQueue struct {
	taskID  string
	maxSize int

	// pubMu serializes EnqueueEvent and Close so that subscriber channels are closed only
	// between two fan-outs.
	pubMu sync.Mutex

	mu         sync.Mutex
	subs       map[*Subscription]struct{}
	closed     bool
	lastStatus a2a.Event
}

// NewEventQueue creates a new event queue for taskID. A maxSize of 0 selects
// [DefaultMaxQueueSize].
func NewEventQueue(taskID string, maxSize int) (*EventQueue, error) {
	if maxSize < 0 {
		return nil, ErrInvalidQueueSize
	}
	if maxSize == 0 {
		maxSize = DefaultMaxQueueSize
	}
	return &EventQueue{
		taskID:  taskID,
		maxSize: maxSize,
		subs:    make(map[*Subscription]struct{}),
	}, nil
}

// EnqueueEvent delivers ev to every current subscriber. An event of another task yields
// [ErrTaskMismatch].
//
// It blocks while a subscriber buffer is full. If ctx is done mid fan-out, ev may have reached
// only part of the subscribers; callers that need the ordering guarantee pass a context that
// is never canceled.
func (q *EventQueue) EnqueueEvent(ctx context.Context, ev a2a.Event) error {
	if ev.GetTaskID() != q.taskID {
		return ErrTaskMismatch
	}

	q.pubMu.Lock()
	defer q.pubMu.Unlock()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if _, ok := ev.(*a2a.TaskStatusUpdateEvent); ok {
		q.lastStatus = ev
	}
	subs := slices.Collect(maps.Keys(q.subs))
	q.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- ev:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Tap subscribes to the queue. The subscriber receives every event enqueued after Tap returns.
//
// Tapping a closed queue yields a subscription whose channel holds the last status event, if
// any, and is already closed.
func (q *EventQueue) Tap() *Subscription {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := &Subscription{
		q:    q,
		ch:   make(chan a2a.Event, q.maxSize),
		done: make(chan struct{}),
	}
	if q.closed {
		if q.lastStatus != nil {
			s.ch <- q.lastStatus
		}
		close(s.ch)
		return s
	}
	q.subs[s] = struct{}{}
	return s
}

// Close closes the queue and every subscriber channel. It waits for an in-flight EnqueueEvent
// to finish. Closing a closed queue returns [ErrQueueClosed].
func (q *EventQueue) Close() error {
	q.pubMu.Lock()
	defer q.pubMu.Unlock()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.closed = true
	for s := range q.subs {
		close(s.ch)
	}
	clear(q.subs)
	return nil
}

func (q *EventQueue) unsubscribe(s *Subscription) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.subs, s)
}

// Subscription is one reader of an [EventQueue].
type Subscription struct {
	q    *EventQueue
	ch   chan a2a.Event
	done chan struct{}
	once sync.Once
}

// Events returns the channel of events. It is closed when the queue closes.
func (s *Subscription) Events() <-chan a2a.Event { return s.ch }

// Close unsubscribes. The publisher stops waiting on this subscriber; the events channel is
// left open and must no longer be read.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.q.unsubscribe(s)
	})
}
