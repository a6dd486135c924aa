// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	a2a "github.com/go-a2a/a2a-server"
)

func newTestUpdater(t *testing.T, m *Manager, taskID string) *Updater {
	t.Helper()
	task, err := m.CreateOrGetTask(t.Context(), taskID, "ctx-1")
	if err != nil {
		t.Fatal(err)
	}
	return &Updater{m: m, r: m.lookup(taskID), taskID: task.ID, contextID: task.ContextID}
}

func TestUpdater_Status(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	ctx := t.Context()
	u := newTestUpdater(t, m, "task-1")

	if u.TaskID() != "task-1" || u.ContextID() != "ctx-1" {
		t.Fatalf("Updater ids = %s/%s, want task-1/ctx-1", u.TaskID(), u.ContextID())
	}
	if err := u.StartWork(ctx, "thinking"); err != nil {
		t.Fatalf("StartWork() error = %v", err)
	}
	if err := u.SendMessage(ctx, "partial answer"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if err := u.Complete(ctx, "done"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	task, _ := m.GetTask(ctx, "task-1", 0)
	if task.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %s, want completed", task.Status.State)
	}
	var texts []string
	for _, msg := range task.History {
		if msg.Role != a2a.RoleAgent || msg.TaskID != "task-1" || msg.ContextID != "ctx-1" {
			t.Errorf("history message %+v is not an agent message bound to the task", msg)
		}
		texts = append(texts, msg.Parts[0].Text)
	}
	if diff := cmp.Diff([]string{"thinking", "partial answer", "done"}, texts); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	var stale StaleUpdateError
	if err := u.Failed(ctx, "too late"); !errors.As(err, &stale) {
		t.Errorf("Failed() after Complete error = %v, want StaleUpdateError", err)
	}
}

func TestUpdater_Terminal(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		apply func(ctx context.Context, u *Updater) error
		want a2a.TaskState
	}{
		"complete": {
			apply: func(ctx context.Context, u *Updater) error { return u.Complete(ctx, "") },
			want:  a2a.TaskStateCompleted,
		},
		"failed": {
			apply: func(ctx context.Context, u *Updater) error { return u.Failed(ctx, "broken") },
			want:  a2a.TaskStateFailed,
		},
		"cancel": {
			apply: func(ctx context.Context, u *Updater) error { return u.Cancel(ctx, "") },
			want:  a2a.TaskStateCanceled,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m := newTestManager(t)
			u := newTestUpdater(t, m, "task-1")
			sub, _ := m.Subscribe(t.Context(), "task-1")

			if err := tt.apply(t.Context(), u); err != nil {
				t.Fatal(err)
			}
			events := drain(t, sub)
			if len(events) != 1 {
				t.Fatalf("events = %v, want one", events)
			}
			st := events[0].(*a2a.TaskStatusUpdateEvent)
			if st.Status.State != tt.want || !st.Final {
				t.Errorf("event = %+v, want final %s", st, tt.want)
			}
		})
	}
}

func TestUpdater_RequiresInput(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	ctx := t.Context()
	u := newTestUpdater(t, m, "task-1")
	sub, _ := m.Subscribe(ctx, "task-1")
	defer sub.Close()

	if err := u.StartWork(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if err := u.RequiresInput(ctx, "which city?"); err != nil {
		t.Fatalf("RequiresInput() error = %v", err)
	}

	<-sub.Events()
	ev := <-sub.Events()
	st := ev.(*a2a.TaskStatusUpdateEvent)
	if st.Status.State != a2a.TaskStateInputRequired || !st.Final {
		t.Errorf("event = %+v, want final input-required", st)
	}

	// The stream stays open: the task resumes once the caller answers.
	if err := u.StartWork(ctx, ""); err != nil {
		t.Errorf("StartWork() after input-required error = %v", err)
	}
}

func TestUpdater_ArtifactChunks(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	ctx := t.Context()
	u := newTestUpdater(t, m, "task-1")

	first := a2a.NewTextArtifact("story", "once ")
	if err := u.AddArtifact(ctx, first, false, false); err != nil {
		t.Fatal(err)
	}
	chunk := &a2a.Artifact{ArtifactID: first.ArtifactID, Parts: []a2a.Part{a2a.NewTextPart("upon a time")}}
	if err := u.AddArtifact(ctx, chunk, true, true); err != nil {
		t.Fatal(err)
	}
	orphan := &a2a.Artifact{ArtifactID: "unknown", Parts: []a2a.Part{a2a.NewTextPart("lost")}}
	if err := u.AddArtifact(ctx, orphan, true, false); err != nil {
		t.Fatal(err)
	}

	task, _ := m.GetTask(ctx, "task-1", 0)
	if len(task.Artifacts) != 1 {
		t.Fatalf("artifacts = %+v, want one", task.Artifacts)
	}
	var texts []string
	for _, p := range task.Artifacts[0].Parts {
		texts = append(texts, p.Text)
	}
	if diff := cmp.Diff([]string{"once ", "upon a time"}, texts); diff != "" {
		t.Errorf("artifact parts mismatch (-want +got):\n%s", diff)
	}

	// The published artifact is a copy: changing the caller's value has no effect.
	first.Parts[0].Text = "mutated"
	task, _ = m.GetTask(ctx, "task-1", 0)
	if task.Artifacts[0].Parts[0].Text != "once " {
		t.Errorf("task aliases the published artifact")
	}
}

func TestUpdater_PublishFillsTaskID(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	ctx := t.Context()
	u := newTestUpdater(t, m, "task-1")

	out, err := u.Publish(ctx, &a2a.TaskStatusUpdateEvent{Status: a2a.TaskStatus{State: a2a.TaskStateWorking}})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if out.GetTaskID() != "task-1" || out.GetContextID() != "ctx-1" || out.GetSequence() != 1 {
		t.Errorf("Publish() = %+v, want task-1/ctx-1 seq 1", out)
	}

	if _, err := u.Publish(ctx, a2a.NewTaskStatusUpdateEvent("task-2", "", a2a.TaskStatus{State: a2a.TaskStateWorking}, false)); err == nil {
		t.Error("Publish() of another task's event succeeded, want error")
	}
}
