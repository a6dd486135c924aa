// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"io"

	a2a "github.com/go-a2a/a2a-server"
	"github.com/go-a2a/a2a-server/server/event"
)

// Stream relays the events of one task to one caller.
//
// The stream ends after a status event marked final: a terminal status, or input-required.
// It also ends when the event queue of the task is closed. Recv then returns io.EOF.
type Stream struct {
	taskID string
	sub    *event.Subscription
	done   bool
}

func newStream(taskID string, sub *event.Subscription) *Stream {
	return &Stream{taskID: taskID, sub: sub}
}

// TaskID returns the id of the streamed task.
func (s *Stream) TaskID() string { return s.taskID }

// Recv blocks until the next event. It is not safe for concurrent use.
func (s *Stream) Recv(ctx context.Context) (a2a.Event, error) {
	if s.done {
		return nil, io.EOF
	}
	select {
	case ev, ok := <-s.sub.Events():
		if !ok {
			s.done = true
			return nil, io.EOF
		}
		if st, isStatus := ev.(*a2a.TaskStatusUpdateEvent); isStatus && st.Final {
			s.done = true
		}
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close detaches the stream from the task. The task itself is not affected.
func (s *Stream) Close() {
	if s != nil {
		s.sub.Close()
	}
}
