// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"
	"maps"
	"strings"

	"github.com/google/uuid"
)

// Role represents the role of a message sender.
type Role string

// Role constants for message senders.
const (
	RoleAgent Role = "agent"
	RoleUser  Role = "user"
)

// PartKind discriminates the variants of a [Part].
type PartKind string

// Part kinds.
const (
	PartKindText PartKind = "text"
	PartKindData PartKind = "data"
	PartKindFile PartKind = "file"
)

// FileContent is the payload of a file part: either inline base64 bytes or a URI.
type FileContent struct {
	Name     string `json:"name,omitzero"`
	MIMEType string `json:"mimeType,omitzero"`
	Bytes    string `json:"bytes,omitzero"`
	URI      string `json:"uri,omitzero"`
}

// Part is one piece of content of a message or artifact.
// Exactly one of Text, Data or File is meaningful, selected by Kind.
type Part struct {
	Kind     PartKind       `json:"kind"`
	Text     string         `json:"text,omitzero"`
	Data     map[string]any `json:"data,omitzero"`
	File     *FileContent   `json:"file,omitzero"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewTextPart returns a text part.
func NewTextPart(text string) Part {
	return Part{Kind: PartKindText, Text: text}
}

// NewDataPart returns a structured data part.
func NewDataPart(data map[string]any) Part {
	return Part{Kind: PartKindData, Data: data}
}

// Validate ensures the Part is valid.
func (p Part) Validate() error {
	switch p.Kind {
	case PartKindText:
		return nil
	case PartKindData:
		if p.Data == nil {
			return fmt.Errorf("data part data cannot be nil")
		}
		return nil
	case PartKindFile:
		if p.File == nil {
			return fmt.Errorf("file part file cannot be nil")
		}
		if p.File.Bytes == "" && p.File.URI == "" {
			return fmt.Errorf("file part must have either bytes or uri")
		}
		return nil
	default:
		return fmt.Errorf("unknown part kind: %q", p.Kind)
	}
}

// Clone returns a deep copy of p. Data values are copied one level deep.
func (p Part) Clone() Part {
	p.Data = maps.Clone(p.Data)
	p.Metadata = maps.Clone(p.Metadata)
	if p.File != nil {
		f := *p.File
		p.File = &f
	}
	return p
}

func cloneParts(parts []Part) []Part {
	if parts == nil {
		return nil
	}
	out := make([]Part, len(parts))
	for i, p := range parts {
		out[i] = p.Clone()
	}
	return out
}

// Message is a single turn of communication between a caller and an agent.
type Message struct {
	Kind      string         `json:"kind"`
	MessageID string         `json:"messageId"`
	Role      Role           `json:"role"`
	Parts     []Part         `json:"parts"`
	TaskID    string         `json:"taskId,omitzero"`
	ContextID string         `json:"contextId,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// NewMessage returns a message with a freshly generated message id.
func NewMessage(role Role, parts ...Part) *Message {
	return &Message{
		Kind:      "message",
		MessageID: uuid.NewString(),
		Role:      role,
		Parts:     parts,
	}
}

// NewAgentTextMessage returns an agent message with a single text part bound to the given task.
func NewAgentTextMessage(taskID, contextID, text string) *Message {
	m := NewMessage(RoleAgent, NewTextPart(text))
	m.TaskID = taskID
	m.ContextID = contextID
	return m
}

// NewUserTextMessage returns a user message with a single text part.
func NewUserTextMessage(text string) *Message {
	return NewMessage(RoleUser, NewTextPart(text))
}

// Validate ensures the Message is valid.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("message cannot be nil")
	}
	if m.Role != RoleAgent && m.Role != RoleUser {
		return fmt.Errorf("invalid message role: %q", m.Role)
	}
	if m.MessageID == "" {
		return fmt.Errorf("message ID cannot be empty")
	}
	if len(m.Parts) == 0 {
		return fmt.Errorf("message must contain at least one part")
	}
	for i, part := range m.Parts {
		if err := part.Validate(); err != nil {
			return fmt.Errorf("message part at index %d is invalid: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy of m. A nil message clones to nil.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.Parts = cloneParts(m.Parts)
	c.Metadata = maps.Clone(m.Metadata)
	return &c
}

// Text returns the text parts of m joined by newlines.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	var texts []string
	for _, p := range m.Parts {
		if p.Kind == PartKindText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}
