// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"
)

// AgentCapabilities defines optional capabilities supported by an agent.
type AgentCapabilities struct {
	// true if the agent supports message/stream and tasks/resubscribe.
	Streaming bool `json:"streaming,omitzero"`

	// true if the agent can notify updates to client webhooks.
	PushNotifications bool `json:"pushNotifications,omitzero"`

	// true if the agent exposes status change history for tasks.
	StateTransitionHistory bool `json:"stateTransitionHistory,omitzero"`
}

// AgentProvider represents the service provider of an agent.
type AgentProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url"`
}

// AgentSkill represents a unit of capability that an agent can perform.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitzero"`
	Examples    []string `json:"examples,omitzero"`
	InputModes  []string `json:"inputModes,omitzero"`
	OutputModes []string `json:"outputModes,omitzero"`
}

// AgentCard conveys the identity, endpoint and capabilities of an agent.
// It is served at [AgentCardWellKnownPath].
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	URL                string            `json:"url"`
	Version            string            `json:"version"`
	ProtocolVersion    string            `json:"protocolVersion"`
	Provider           *AgentProvider    `json:"provider,omitzero"`
	DocumentationURL   string            `json:"documentationUrl,omitzero"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	DefaultInputModes  []string          `json:"defaultInputModes"`
	DefaultOutputModes []string          `json:"defaultOutputModes"`
	Skills             []AgentSkill      `json:"skills"`
}

// Validate ensures the AgentCard is valid.
func (c *AgentCard) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("agent card name cannot be empty")
	}
	if c.URL == "" {
		return fmt.Errorf("agent card URL cannot be empty")
	}
	if c.Version == "" {
		return fmt.Errorf("agent card version cannot be empty")
	}
	for i, s := range c.Skills {
		if s.ID == "" || s.Name == "" {
			return fmt.Errorf("agent skill at index %d must have an id and a name", i)
		}
	}
	return nil
}
