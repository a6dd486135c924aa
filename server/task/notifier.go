// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"

	a2a "github.com/go-a2a/a2a-server"
)

// DefaultPushStates are the states whose entry triggers a push notification.
var DefaultPushStates = []a2a.TaskState{
	a2a.TaskStateInputRequired,
	a2a.TaskStateCompleted,
	a2a.TaskStateFailed,
	a2a.TaskStateCanceled,
}

const defaultNotifierShards = 8

// notifier delivers push notifications off the publish path.
//
// Jobs are sharded by task ID and every shard is drained by one goroutine, so the
// notifications of a task are sent in the order they fired. Shard queues are unbounded:
// notify never waits, so a slow webhook delays only the notifications queued behind it.
type notifier struct {
	sender PushNotificationSender
	store  PushNotificationConfigStore
	logger *slog.Logger

	shards []*notifierShard
	wg     sync.WaitGroup
}

// notifierShard is a FIFO of pending notifications.
type notifierShard struct {
	mu      sync.Mutex
	pending []*a2a.Task
	closed  bool
	// wake holds a token while pending may be non-empty or the shard was closed.
	wake chan struct{}
}

func newNotifier(sender PushNotificationSender, store PushNotificationConfigStore, logger *slog.Logger, shards int) *notifier {
	if shards <= 0 {
		shards = defaultNotifierShards
	}
	n := &notifier{
		sender: sender,
		store:  store,
		logger: logger,
		shards: make([]*notifierShard, shards),
	}
	for i := range n.shards {
		sh := &notifierShard{wake: make(chan struct{}, 1)}
		n.shards[i] = sh
		n.wg.Add(1)
		go n.run(sh)
	}
	return n
}

func (n *notifier) shard(taskID string) *notifierShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(taskID))
	return n.shards[h.Sum32()%uint32(len(n.shards))]
}

// notify schedules a notification carrying task. task must not be modified afterwards.
// It never blocks.
func (n *notifier) notify(task *a2a.Task) {
	sh := n.shard(task.ID)
	sh.mu.Lock()
	if sh.closed {
		sh.mu.Unlock()
		return
	}
	sh.pending = append(sh.pending, task)
	sh.mu.Unlock()
	sh.signal()
}

func (sh *notifierShard) signal() {
	select {
	case sh.wake <- struct{}{}:
	default:
	}
}

// take removes the pending notifications. done is set once the shard is closed and drained.
func (sh *notifierShard) take() (batch []*a2a.Task, done bool) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	batch, sh.pending = sh.pending, nil
	return batch, sh.closed && len(batch) == 0
}

func (n *notifier) run(sh *notifierShard) {
	defer n.wg.Done()
	for range sh.wake {
		for {
			batch, done := sh.take()
			if done {
				return
			}
			if len(batch) == 0 {
				break
			}
			for _, task := range batch {
				n.deliver(task)
			}
		}
	}
}

func (n *notifier) deliver(task *a2a.Task) {
	ctx := context.Background()
	config, err := n.store.GetConfig(ctx, task.ID)
	if err != nil {
		if !errors.As(err, new(a2a.PushNotificationConfigNotFoundError)) {
			n.logger.WarnContext(ctx, "failed to load push notification config",
				slog.String("task_id", task.ID), slog.Any("error", err))
		}
		return
	}

	if err := n.sender.SendNotification(ctx, task, config); err != nil {
		n.logger.WarnContext(ctx, "push notification failed",
			slog.String("task_id", task.ID),
			slog.String("state", task.Status.State.String()),
			slog.String("url", config.URL),
			slog.Any("error", err),
		)
		return
	}
	n.logger.DebugContext(ctx, "push notification sent",
		slog.String("task_id", task.ID),
		slog.String("state", task.Status.State.String()),
	)
}

// close stops accepting notifications and waits until the pending ones are delivered or ctx
// is done.
func (n *notifier) close(ctx context.Context) error {
	for _, sh := range n.shards {
		sh.mu.Lock()
		sh.closed = true
		sh.mu.Unlock()
		sh.signal()
	}

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
