// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"
)

// Artifact is a named, versioned piece of content produced by a task.
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Name        string         `json:"name,omitzero"`
	Description string         `json:"description,omitzero"`
	Parts       []Part         `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitzero"`
}

// NewTextArtifact returns an artifact with a generated id and a single text part.
func NewTextArtifact(name, text string) *Artifact {
	return &Artifact{
		ArtifactID: uuid.NewString(),
		Name:       name,
		Parts:      []Part{NewTextPart(text)},
	}
}

// NewDataArtifact returns an artifact with a generated id and a single data part.
func NewDataArtifact(name string, data map[string]any) *Artifact {
	return &Artifact{
		ArtifactID: uuid.NewString(),
		Name:       name,
		Parts:      []Part{NewDataPart(data)},
	}
}

// Validate ensures the Artifact is valid.
func (a *Artifact) Validate() error {
	if a == nil {
		return fmt.Errorf("artifact cannot be nil")
	}
	if a.ArtifactID == "" {
		return fmt.Errorf("artifact ID cannot be empty")
	}
	if len(a.Parts) == 0 {
		return fmt.Errorf("artifact must contain at least one part")
	}
	for i, part := range a.Parts {
		if err := part.Validate(); err != nil {
			return fmt.Errorf("artifact part at index %d is invalid: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy of a.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	c := *a
	c.Parts = cloneParts(a.Parts)
	c.Metadata = maps.Clone(a.Metadata)
	return &c
}

// AppendArtifactToTask merges the artifact carried by ev into task.
//
// Without the append flag the artifact is added, or replaces an existing artifact with the same
// id. With the append flag its parts are appended to the existing artifact; a chunk for an
// unknown artifact id is dropped. The artifact is cloned so task never aliases the event.
func AppendArtifactToTask(ctx context.Context, logger *slog.Logger, task *Task, ev *TaskArtifactUpdateEvent) {
	if logger == nil {
		logger = slog.Default()
	}
	incoming := ev.Artifact.Clone()

	idx := -1
	for i, a := range task.Artifacts {
		if a.ArtifactID == incoming.ArtifactID {
			idx = i
			break
		}
	}

	switch {
	case !ev.Append && idx == -1:
		task.Artifacts = append(task.Artifacts, incoming)
	case !ev.Append:
		logger.DebugContext(ctx, "replacing artifact", slog.String("artifact_id", incoming.ArtifactID), slog.String("task_id", task.ID))
		task.Artifacts[idx] = incoming
	case idx != -1:
		existing := task.Artifacts[idx]
		existing.Parts = append(existing.Parts, incoming.Parts...)
		if len(incoming.Metadata) > 0 {
			if existing.Metadata == nil {
				existing.Metadata = make(map[string]any, len(incoming.Metadata))
			}
			maps.Copy(existing.Metadata, incoming.Metadata)
		}
	default:
		logger.WarnContext(ctx, "append chunk for unknown artifact dropped", slog.String("artifact_id", incoming.ArtifactID), slog.String("task_id", task.ID))
	}
}
