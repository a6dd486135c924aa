// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

// A2A HTTP paths.
const (
	// AgentCardWellKnownPath is the standard path of an agent's public AgentCard.
	//
	// Example usage: https://agent.example.com/.well-known/agent.json
	AgentCardWellKnownPath = "/.well-known/agent.json"

	// JWKSWellKnownPath serves the public keys that verify push notification signatures.
	JWKSWellKnownPath = "/.well-known/jwks.json"

	// DefaultRPCURL is the default path of the JSON-RPC endpoint. It accepts POST requests,
	// and WebSocket upgrades for streaming methods.
	DefaultRPCURL = "/"
)

// HTTP headers used by push notification delivery.
const (
	// NotificationTokenHeader carries the per-config token set by the client.
	NotificationTokenHeader = "X-A2A-Notification-Token"

	// NotificationIDHeader carries the unique id of one delivery.
	NotificationIDHeader = "X-A2A-Notification-Id"
)
