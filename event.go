// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"
	"maps"

	"github.com/go-json-experiment/json"
)

// EventKind discriminates the variants of [Event].
type EventKind string

// Event kinds.
const (
	EventKindStatusUpdate   EventKind = "status-update"
	EventKindArtifactUpdate EventKind = "artifact-update"
	EventKindMessage        EventKind = "message"
)

// Event is an incremental update published during task execution.
//
// The set of events is closed: [*TaskStatusUpdateEvent], [*TaskArtifactUpdateEvent] and
// [*MessageEvent]. Consumers dispatch on the concrete type with a type switch.
// The sequence number is assigned by the lifecycle manager at publish time and is the
// ordering authority for consumers; producers leave it zero.
type Event interface {
	EventKind() EventKind
	GetTaskID() string
	GetContextID() string
	GetSequence() uint64
	Validate() error

	isEvent()
}

var (
	_ Event = (*TaskStatusUpdateEvent)(nil)
	_ Event = (*TaskArtifactUpdateEvent)(nil)
	_ Event = (*MessageEvent)(nil)
)

// TaskStatusUpdateEvent reports a change of task status.
type TaskStatusUpdateEvent struct {
	Kind      EventKind      `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	Final     bool           `json:"final"`
	Sequence  uint64         `json:"seq"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// NewTaskStatusUpdateEvent returns a status update event.
func NewTaskStatusUpdateEvent(taskID, contextID string, status TaskStatus, final bool) *TaskStatusUpdateEvent {
	return &TaskStatusUpdateEvent{
		Kind:      EventKindStatusUpdate,
		TaskID:    taskID,
		ContextID: contextID,
		Status:    status,
		Final:     final,
	}
}

func (*TaskStatusUpdateEvent) isEvent() {}

// EventKind implements [Event].
func (*TaskStatusUpdateEvent) EventKind() EventKind { return EventKindStatusUpdate }

// GetTaskID implements [Event].
func (e *TaskStatusUpdateEvent) GetTaskID() string { return e.TaskID }

// GetContextID implements [Event].
func (e *TaskStatusUpdateEvent) GetContextID() string { return e.ContextID }

// GetSequence implements [Event].
func (e *TaskStatusUpdateEvent) GetSequence() uint64 { return e.Sequence }

// Validate implements [Event].
func (e *TaskStatusUpdateEvent) Validate() error {
	if e.TaskID == "" {
		return fmt.Errorf("status update event task ID cannot be empty")
	}
	return e.Status.Validate()
}

// TaskArtifactUpdateEvent carries a produced artifact, or a chunk of one when Append is set.
type TaskArtifactUpdateEvent struct {
	Kind      EventKind      `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Artifact  *Artifact      `json:"artifact"`
	Append    bool           `json:"append,omitzero"`
	LastChunk bool           `json:"lastChunk,omitzero"`
	Sequence  uint64         `json:"seq"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// NewTaskArtifactUpdateEvent returns an artifact update event.
func NewTaskArtifactUpdateEvent(taskID, contextID string, artifact *Artifact, append bool) *TaskArtifactUpdateEvent {
	return &TaskArtifactUpdateEvent{
		Kind:      EventKindArtifactUpdate,
		TaskID:    taskID,
		ContextID: contextID,
		Artifact:  artifact,
		Append:    append,
	}
}

func (*TaskArtifactUpdateEvent) isEvent() {}

// EventKind implements [Event].
func (*TaskArtifactUpdateEvent) EventKind() EventKind { return EventKindArtifactUpdate }

// GetTaskID implements [Event].
func (e *TaskArtifactUpdateEvent) GetTaskID() string { return e.TaskID }

// GetContextID implements [Event].
func (e *TaskArtifactUpdateEvent) GetContextID() string { return e.ContextID }

// GetSequence implements [Event].
func (e *TaskArtifactUpdateEvent) GetSequence() uint64 { return e.Sequence }

// Validate implements [Event].
func (e *TaskArtifactUpdateEvent) Validate() error {
	if e.TaskID == "" {
		return fmt.Errorf("artifact update event task ID cannot be empty")
	}
	return e.Artifact.Validate()
}

// MessageEvent carries a message exchanged within a task.
type MessageEvent struct {
	Kind      EventKind `json:"kind"`
	TaskID    string    `json:"taskId"`
	ContextID string    `json:"contextId"`
	Message   *Message  `json:"message"`
	Sequence  uint64    `json:"seq"`
}

// NewMessageEvent returns a message event.
func NewMessageEvent(taskID, contextID string, msg *Message) *MessageEvent {
	return &MessageEvent{
		Kind:      EventKindMessage,
		TaskID:    taskID,
		ContextID: contextID,
		Message:   msg,
	}
}

func (*MessageEvent) isEvent() {}

// EventKind implements [Event].
func (*MessageEvent) EventKind() EventKind { return EventKindMessage }

// GetTaskID implements [Event].
func (e *MessageEvent) GetTaskID() string { return e.TaskID }

// GetContextID implements [Event].
func (e *MessageEvent) GetContextID() string { return e.ContextID }

// GetSequence implements [Event].
func (e *MessageEvent) GetSequence() uint64 { return e.Sequence }

// Validate implements [Event].
func (e *MessageEvent) Validate() error {
	if e.TaskID == "" {
		return fmt.Errorf("message event task ID cannot be empty")
	}
	return e.Message.Validate()
}

// WithSequence returns a deep copy of ev stamped with seq and its kind discriminator.
// The copy shares no mutable state with ev, so the producer may reuse its value.
func WithSequence(ev Event, seq uint64) Event {
	switch e := ev.(type) {
	case *TaskStatusUpdateEvent:
		c := *e
		c.Kind = EventKindStatusUpdate
		c.Status = e.Status.Clone()
		c.Metadata = maps.Clone(e.Metadata)
		c.Sequence = seq
		return &c
	case *TaskArtifactUpdateEvent:
		c := *e
		c.Kind = EventKindArtifactUpdate
		c.Artifact = e.Artifact.Clone()
		c.Metadata = maps.Clone(e.Metadata)
		c.Sequence = seq
		return &c
	case *MessageEvent:
		c := *e
		c.Kind = EventKindMessage
		c.Message = e.Message.Clone()
		c.Sequence = seq
		return &c
	default:
		panic(fmt.Sprintf("a2a: unknown event type %T", ev))
	}
}

// IsFinalEvent reports whether ev ends the event stream of its task, that is a status update
// carrying a terminal state.
func IsFinalEvent(ev Event) bool {
	e, ok := ev.(*TaskStatusUpdateEvent)
	return ok && e.Status.State.IsTerminal()
}

// UnmarshalEvent decodes an event from its JSON form, choosing the variant by its kind.
func UnmarshalEvent(data []byte) (Event, error) {
	var head struct {
		Kind EventKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode event kind: %w", err)
	}

	var ev Event
	switch head.Kind {
	case EventKindStatusUpdate:
		ev = new(TaskStatusUpdateEvent)
	case EventKindArtifactUpdate:
		ev = new(TaskArtifactUpdateEvent)
	case EventKindMessage:
		ev = new(MessageEvent)
	default:
		return nil, fmt.Errorf("unknown event kind %q", head.Kind)
	}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", head.Kind, err)
	}
	return ev, nil
}
