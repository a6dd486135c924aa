// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsonrpc2

import (
	"testing"
	"time"
)

func TestCall(t *testing.T) {
	t.Parallel()

	c := Start(t.Context(), "message/stream", 128, true)
	c.Sent(10)
	c.Sent(32)
	if c.sent != 42 {
		t.Errorf("sent = %d, want 42", c.sent)
	}
	if c.start.IsZero() || c.start.After(time.Now()) {
		t.Errorf("start = %v, want the call start time", c.start)
	}
	c.End(0)

	// Instruments are created once and shared by later calls.
	again := Start(t.Context(), "tasks/get", 0, false)
	again.End(-32001)
	if startedCounter == nil || latency == nil {
		t.Error("instruments were not initialized")
	}
}
