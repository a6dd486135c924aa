// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	a2a "github.com/go-a2a/a2a-server"
)

func sendParams(text string) *a2a.MessageSendParams {
	return &a2a.MessageSendParams{Message: a2a.NewUserTextMessage(text)}
}

func TestRequestContext_Accessors(t *testing.T) {
	t.Parallel()

	params := sendParams("hello")
	params.Message.Parts = append(params.Message.Parts, a2a.NewDataPart(map[string]any{"k": "v"}), a2a.NewTextPart("world"))
	params.Metadata = map[string]any{"trace": "abc"}
	params.Configuration = &a2a.MessageSendConfiguration{HistoryLength: 3}
	current := a2a.NewTask("task-1", "ctx-1")
	scc := NewServerCallContext(mockUser{authenticated: true, username: "alice"})

	rc := NewRequestContext(params, "task-1", "ctx-1", current, scc)

	if rc.TaskID() != "task-1" || rc.ContextID() != "ctx-1" {
		t.Errorf("ids = %s/%s, want task-1/ctx-1", rc.TaskID(), rc.ContextID())
	}
	if rc.Message() != params.Message || rc.Params() != params || rc.CurrentTask() != current || rc.CallContext() != scc {
		t.Error("accessors do not return the values the context was built with")
	}
	if rc.Configuration().HistoryLength != 3 {
		t.Errorf("Configuration().HistoryLength = %d, want 3", rc.Configuration().HistoryLength)
	}
	if diff := cmp.Diff(map[string]any{"trace": "abc"}, rc.Metadata()); diff != "" {
		t.Errorf("Metadata() mismatch (-want +got):\n%s", diff)
	}
	if got := rc.GetUserInput(""); got != "hello\nworld" {
		t.Errorf("GetUserInput(\"\") = %q, want %q", got, "hello\nworld")
	}
	if got := rc.GetUserInput(" "); got != "hello world" {
		t.Errorf("GetUserInput(\" \") = %q, want %q", got, "hello world")
	}

	empty := NewRequestContext(nil, "", "", nil, nil)
	if empty.Message() != nil || empty.Configuration() != nil || empty.Metadata() != nil || empty.GetUserInput("") != "" {
		t.Error("a context without params should expose zero values")
	}
}

func TestRequestContext_GeneratesIDs(t *testing.T) {
	t.Parallel()

	withIDs := sendParams("hi")
	withIDs.Message.TaskID = "task-msg"
	withIDs.Message.ContextID = "ctx-msg"

	tests := map[string]struct {
		params        *a2a.MessageSendParams
		taskID        string
		contextID     string
		current       *a2a.Task
		wantTaskID    string
		wantContextID string
	}{
		"explicit": {
			params:        sendParams("hi"),
			taskID:        "task-1",
			contextID:     "ctx-1",
			wantTaskID:    "task-1",
			wantContextID: "ctx-1",
		},
		"from message": {
			params:        withIDs,
			wantTaskID:    "task-msg",
			wantContextID: "ctx-msg",
		},
		"from current task": {
			params:        sendParams("hi"),
			taskID:        "task-1",
			current:       a2a.NewTask("task-1", "ctx-task"),
			wantTaskID:    "task-1",
			wantContextID: "ctx-task",
		},
		"generated": {
			params: sendParams("hi"),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rc := NewRequestContext(tt.params, tt.taskID, tt.contextID, tt.current, NewServerCallContext(nil))
			rc.checkOrGenerateTaskID()
			rc.checkOrGenerateContextID()

			if tt.wantTaskID != "" && rc.TaskID() != tt.wantTaskID {
				t.Errorf("TaskID() = %q, want %q", rc.TaskID(), tt.wantTaskID)
			}
			if tt.wantContextID != "" && rc.ContextID() != tt.wantContextID {
				t.Errorf("ContextID() = %q, want %q", rc.ContextID(), tt.wantContextID)
			}
			if err := rc.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestRequestContext_Validate(t *testing.T) {
	t.Parallel()

	scc := NewServerCallContext(nil)
	tests := map[string]*RequestContext{
		"nil params":        NewRequestContext(nil, "task-1", "ctx-1", nil, scc),
		"agent message":     NewRequestContext(&a2a.MessageSendParams{Message: a2a.NewAgentTextMessage("", "", "hi")}, "task-1", "ctx-1", nil, scc),
		"malformed task id": NewRequestContext(sendParams("hi"), "task 1", "ctx-1", nil, scc),
		"empty context id":  NewRequestContext(sendParams("hi"), "task-1", "", nil, scc),
		"foreign task":      NewRequestContext(sendParams("hi"), "task-1", "ctx-1", a2a.NewTask("task-2", "ctx-1"), scc),
		"nil call context":  NewRequestContext(sendParams("hi"), "task-1", "ctx-1", nil, nil),
	}

	for name, rc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if err := rc.Validate(); err == nil {
				t.Errorf("Validate() succeeded for %s, want error", rc)
			}
		})
	}
}

func TestRequestContext_AttachRelatedTask(t *testing.T) {
	t.Parallel()

	rc := NewRequestContext(sendParams("hi"), "task-1", "ctx-1", nil, NewServerCallContext(nil))
	if err := rc.AttachRelatedTask(nil); err == nil {
		t.Error("AttachRelatedTask(nil) succeeded, want error")
	}
	if err := rc.AttachRelatedTask(a2a.NewTask("task-0", "ctx-1")); err != nil {
		t.Fatalf("AttachRelatedTask() error = %v", err)
	}

	related := rc.RelatedTasks()
	related[0] = nil
	if rc.RelatedTasks()[0] == nil {
		t.Error("RelatedTasks() returned the internal slice")
	}
}
