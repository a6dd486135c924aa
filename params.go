// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"net/url"
	"regexp"
	"slices"
)

// MaxIDLength is the maximum length of a task or context id.
const MaxIDLength = 256

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:@\-]*$`)

// ValidateID checks that id is a well-formed task or context id. field names the parameter
// in the returned error.
func ValidateID(field, id string) error {
	switch {
	case id == "":
		return NewInvalidParamsError(field, "cannot be empty")
	case len(id) > MaxIDLength:
		return NewInvalidParamsError(field, "longer than %d characters", MaxIDLength)
	case !idPattern.MatchString(id):
		return NewInvalidParamsError(field, "%q is not a well-formed id", id)
	}
	return nil
}

// MessageSendConfiguration tunes a message/send or message/stream call.
type MessageSendConfiguration struct {
	// Blocking makes message/send wait for the task to finish or pause. Defaults to true.
	Blocking *bool `json:"blocking,omitzero"`

	// HistoryLength limits the number of history messages in the returned task.
	HistoryLength int `json:"historyLength,omitzero"`

	// PushNotificationConfig is stored for the task before the executor starts.
	PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig,omitzero"`

	// AcceptedOutputModes lists the media types the caller accepts.
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitzero"`
}

// IsBlocking reports whether the call waits for the task. A nil configuration blocks.
func (c *MessageSendConfiguration) IsBlocking() bool {
	return c == nil || c.Blocking == nil || *c.Blocking
}

// MessageSendParams are the parameters of message/send and message/stream.
type MessageSendParams struct {
	Message       *Message                  `json:"message"`
	Configuration *MessageSendConfiguration `json:"configuration,omitzero"`
	Metadata      map[string]any            `json:"metadata,omitzero"`
}

// Validate ensures the MessageSendParams are valid.
func (p *MessageSendParams) Validate() error {
	if p.Message == nil {
		return NewInvalidParamsError("message", "is required")
	}
	if err := p.Message.Validate(); err != nil {
		return NewInvalidParamsError("message", "%v", err)
	}
	if p.Message.Role != RoleUser {
		return NewInvalidParamsError("message.role", "must be %q", RoleUser)
	}
	if p.Message.TaskID != "" {
		if err := ValidateID("message.taskId", p.Message.TaskID); err != nil {
			return err
		}
	}
	if p.Message.ContextID != "" {
		if err := ValidateID("message.contextId", p.Message.ContextID); err != nil {
			return err
		}
	}
	if c := p.Configuration; c != nil {
		if c.HistoryLength < 0 {
			return NewInvalidParamsError("configuration.historyLength", "cannot be negative")
		}
		if c.PushNotificationConfig != nil {
			if err := c.PushNotificationConfig.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// TaskQueryParams are the parameters of tasks/get and tasks/resubscribe.
type TaskQueryParams struct {
	ID            string         `json:"id"`
	HistoryLength int            `json:"historyLength,omitzero"`
	Metadata      map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the TaskQueryParams are valid.
func (p *TaskQueryParams) Validate() error {
	if err := ValidateID("id", p.ID); err != nil {
		return err
	}
	if p.HistoryLength < 0 {
		return NewInvalidParamsError("historyLength", "cannot be negative")
	}
	return nil
}

// TaskIDParams are the parameters of tasks/cancel and tasks/pushNotificationConfig/get.
type TaskIDParams struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the TaskIDParams are valid.
func (p *TaskIDParams) Validate() error {
	return ValidateID("id", p.ID)
}

// AuthenticationInfo describes how the server authenticates against a webhook.
type AuthenticationInfo struct {
	Schemes     []string `json:"schemes"`
	Credentials string   `json:"credentials,omitzero"`
}

// PushNotificationConfig is the webhook destination of a task.
type PushNotificationConfig struct {
	ID             string              `json:"id,omitzero"`
	URL            string              `json:"url"`
	Token          string              `json:"token,omitzero"`
	Authentication *AuthenticationInfo `json:"authentication,omitzero"`
}

// Validate ensures the PushNotificationConfig is valid.
func (c *PushNotificationConfig) Validate() error {
	if c == nil {
		return NewInvalidParamsError("pushNotificationConfig", "is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || c.URL == "" {
		return NewInvalidParamsError("pushNotificationConfig.url", "must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return NewInvalidParamsError("pushNotificationConfig.url", "must be an absolute http(s) URL")
	}
	if c.Authentication != nil && len(c.Authentication.Schemes) == 0 {
		return NewInvalidParamsError("pushNotificationConfig.authentication.schemes", "cannot be empty")
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *PushNotificationConfig) Clone() *PushNotificationConfig {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Authentication != nil {
		auth := *c.Authentication
		auth.Schemes = slices.Clone(c.Authentication.Schemes)
		cp.Authentication = &auth
	}
	return &cp
}

// TaskPushNotificationConfig binds a push notification config to a task.
type TaskPushNotificationConfig struct {
	TaskID                 string                  `json:"taskId"`
	PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig"`
}

// Validate ensures the TaskPushNotificationConfig is valid.
func (c *TaskPushNotificationConfig) Validate() error {
	if err := ValidateID("taskId", c.TaskID); err != nil {
		return err
	}
	return c.PushNotificationConfig.Validate()
}
