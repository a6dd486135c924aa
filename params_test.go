// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		id      string
		wantErr bool
	}{
		"uuid":        {id: "3f1c2b9e-8a51-4f0e-9d55-1f0a7e0c9b11"},
		"ulid-ish":    {id: "01J9Z3K5Q2XW8M7R6T4Y1B0C9D"},
		"dotted":      {id: "task.v1:1"},
		"empty":       {id: "", wantErr: true},
		"whitespace":  {id: "task 1", wantErr: true},
		"leading dot": {id: ".task", wantErr: true},
		"too long":    {id: strings.Repeat("a", MaxIDLength+1), wantErr: true},
		"control":     {id: "task\n1", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := ValidateID("id", tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil {
				var pe *InvalidParamsError
				if !errors.As(err, &pe) || pe.Field != "id" {
					t.Errorf("ValidateID() error = %#v, want *InvalidParamsError for field id", err)
				}
			}
		})
	}
}

func TestMessageSendParamsValidate(t *testing.T) {
	t.Parallel()

	withTask := NewUserTextMessage("hi")
	withTask.TaskID = "bad id"

	tests := map[string]struct {
		params  MessageSendParams
		wantErr bool
	}{
		"valid":           {params: MessageSendParams{Message: NewUserTextMessage("hi")}},
		"missing message": {params: MessageSendParams{}, wantErr: true},
		"agent role":      {params: MessageSendParams{Message: NewAgentTextMessage("", "", "hi")}, wantErr: true},
		"no parts":        {params: MessageSendParams{Message: &Message{MessageID: "m", Role: RoleUser}}, wantErr: true},
		"bad task id":     {params: MessageSendParams{Message: withTask}, wantErr: true},
		"negative history": {
			params:  MessageSendParams{Message: NewUserTextMessage("hi"), Configuration: &MessageSendConfiguration{HistoryLength: -1}},
			wantErr: true,
		},
		"relative push url": {
			params: MessageSendParams{
				Message:       NewUserTextMessage("hi"),
				Configuration: &MessageSendConfiguration{PushNotificationConfig: &PushNotificationConfig{URL: "/hook"}},
			},
			wantErr: true,
		},
		"valid push url": {
			params: MessageSendParams{
				Message:       NewUserTextMessage("hi"),
				Configuration: &MessageSendConfiguration{PushNotificationConfig: &PushNotificationConfig{URL: "https://example.com/hook"}},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && ErrorCode(err) != ErrorCodeInvalidParams {
				t.Errorf("ErrorCode() = %d, want %d", ErrorCode(err), ErrorCodeInvalidParams)
			}
		})
	}
}

func TestMessageSendConfigurationIsBlocking(t *testing.T) {
	t.Parallel()

	no := false
	yes := true
	var nilCfg *MessageSendConfiguration
	if !nilCfg.IsBlocking() {
		t.Error("nil configuration should block")
	}
	if !(&MessageSendConfiguration{}).IsBlocking() {
		t.Error("unset blocking should block")
	}
	if !(&MessageSendConfiguration{Blocking: &yes}).IsBlocking() {
		t.Error("blocking=true should block")
	}
	if (&MessageSendConfiguration{Blocking: &no}).IsBlocking() {
		t.Error("blocking=false should not block")
	}
}

func TestPushNotificationConfigClone(t *testing.T) {
	t.Parallel()

	cfg := &PushNotificationConfig{
		URL:            "https://example.com/hook",
		Token:          "tok",
		Authentication: &AuthenticationInfo{Schemes: []string{"Bearer"}},
	}
	clone := cfg.Clone()
	clone.Authentication.Schemes[0] = "Basic"
	clone.Token = "other"
	if cfg.Authentication.Schemes[0] != "Bearer" || cfg.Token != "tok" {
		t.Errorf("Clone() aliases the original: %+v", cfg)
	}
	if (*PushNotificationConfig)(nil).Clone() != nil {
		t.Error("Clone() of nil should be nil")
	}
}
