// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-json-experiment/json"

	a2a "github.com/go-a2a/a2a-server"
)

// CardResolver fetches the agent card published by an agent.
type CardResolver struct {
	hc      *http.Client
	baseURL string
}

// NewCardResolver creates a resolver for the agent at baseURL. A nil hc uses
// [http.DefaultClient].
func NewCardResolver(hc *http.Client, baseURL string) *CardResolver {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &CardResolver{
		hc:      hc,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// GetAgentCard fetches the card at relativeCardPath, or at [a2a.AgentCardWellKnownPath]
// when it is empty, and validates it.
func (r *CardResolver) GetAgentCard(ctx context.Context, relativeCardPath string) (*a2a.AgentCard, error) {
	if relativeCardPath == "" {
		relativeCardPath = a2a.AgentCardWellKnownPath
	}
	targetURL := r.baseURL + "/" + strings.TrimLeft(relativeCardPath, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := r.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch agent card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch agent card from %s: %w", targetURL, &HTTPError{StatusCode: resp.StatusCode})
	}

	var card a2a.AgentCard
	if err := json.UnmarshalRead(resp.Body, &card); err != nil {
		return nil, fmt.Errorf("decode agent card: %w", err)
	}
	if err := card.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent card: %w", err)
	}
	return &card, nil
}
