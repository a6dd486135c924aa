// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"errors"
)

var (
	// ErrQueueClosed is returned when publishing to, or closing, a closed queue.
	ErrQueueClosed = errors.New("event queue is closed")

	// ErrInvalidQueueSize is returned when creating a queue with a negative capacity.
	ErrInvalidQueueSize = errors.New("max queue size must not be negative")

	// ErrTaskMismatch is returned when publishing an event of another task.
	ErrTaskMismatch = errors.New("event belongs to another task")
)
