// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-a2a/a2a-server/auth"
)

type mockUser struct {
	authenticated bool
	username      string
}

func (m mockUser) IsAuthenticated() bool { return m.authenticated }

func (m mockUser) UserName() string { return m.username }

func TestNewServerCallContext(t *testing.T) {
	user := mockUser{authenticated: true, username: "testuser"}
	scc := NewServerCallContext(user)

	if scc.User() != user {
		t.Errorf("Expected user %v, got %v", user, scc.User())
	}
	if len(scc.State()) != 0 {
		t.Errorf("Expected empty state, got %v", scc.State())
	}

	if NewServerCallContext(nil).User().IsAuthenticated() {
		t.Error("Expected nil user to fall back to an unauthenticated user")
	}
}

func TestNewServerCallContextWithState(t *testing.T) {
	user := mockUser{authenticated: false, username: ""}
	initial := map[string]any{"key1": "value1", "key2": 42}

	scc := NewServerCallContextWithState(user, initial)

	// Changing the caller's map does not leak into the context.
	initial["key3"] = "value3"
	if _, ok := scc.GetState("key3"); ok {
		t.Error("Expected state to be copied from the initial map")
	}
	if v, _ := scc.GetState("key2"); v != 42 {
		t.Errorf("Expected key2 = 42, got %v", v)
	}

	// Changing the returned map does not leak either.
	state := scc.State()
	state["key1"] = "modified"
	if v, _ := scc.GetState("key1"); v != "value1" {
		t.Errorf("Expected key1 = value1, got %v", v)
	}
}

func TestStateOperations(t *testing.T) {
	scc := NewServerCallContext(mockUser{authenticated: true, username: "testuser"})

	scc.SetState("to_delete", "value")
	if _, ok := scc.GetState("to_delete"); !ok {
		t.Fatal("Expected to find key after SetState")
	}
	scc.DeleteState("to_delete")
	if _, ok := scc.GetState("to_delete"); ok {
		t.Error("Expected not to find key after deletion")
	}
}

func TestThreadSafety(t *testing.T) {
	scc := NewServerCallContext(mockUser{authenticated: true, username: "testuser"})

	const numGoroutines = 50
	const numOperations = 50

	var wg sync.WaitGroup
	for i := range numGoroutines {
		wg.Go(func() {
			for j := range numOperations {
				key := fmt.Sprintf("key_%d_%d", i, j)
				scc.SetState(key, j)
				if v, ok := scc.GetState(key); !ok || v != j {
					t.Errorf("Expected %s = %d, got %v", key, j, v)
				}
				_ = scc.State()
			}
		})
	}
	wg.Wait()

	if got := len(scc.State()); got != numGoroutines*numOperations {
		t.Errorf("Expected %d keys, got %d", numGoroutines*numOperations, got)
	}
}

func TestServerCallContext_ValidateAndString(t *testing.T) {
	scc := NewServerCallContext(mockUser{authenticated: true, username: "testuser"})
	scc.SetState("key1", "value1")
	scc.SetState("key2", "value2")

	if err := scc.Validate(); err != nil {
		t.Errorf("Expected validation to pass, got error: %v", err)
	}

	str := scc.String()
	for _, want := range []string{"testuser", "true", "state_keys: 2"} {
		if !strings.Contains(str, want) {
			t.Errorf("Expected %q to contain %q", str, want)
		}
	}

	scc.user = nil
	if err := scc.Validate(); err == nil {
		t.Error("Expected validation to fail with nil user")
	}
}

func TestCallContextFromContext(t *testing.T) {
	scc := NewServerCallContext(mockUser{authenticated: true, username: "alice"})
	ctx := WithCallContext(context.Background(), scc)
	if got := CallContextFromContext(ctx); got != scc {
		t.Errorf("Expected stored call context, got %v", got)
	}

	ctx = auth.WithUser(context.Background(), auth.AuthenticatedUser{Name: "bob"})
	if got := CallContextFromContext(ctx).User().UserName(); got != "bob" {
		t.Errorf("Expected fallback call context for bob, got %q", got)
	}
}

func TestDefaultCallContextBuilder(t *testing.T) {
	errDenied := errors.New("denied")

	tests := map[string]struct {
		authenticate auth.Authenticator
		header       string
		wantUser     string
		wantAuth     bool
		wantErr      error
	}{
		"no authenticator": {
			wantUser: "",
			wantAuth: false,
		},
		"authenticated": {
			authenticate: func(r *http.Request) (auth.User, error) {
				return auth.AuthenticatedUser{Name: r.Header.Get("X-User")}, nil
			},
			header:   "alice",
			wantUser: "alice",
			wantAuth: true,
		},
		"nil user": {
			authenticate: func(*http.Request) (auth.User, error) { return nil, nil },
			wantAuth:     false,
		},
		"rejected": {
			authenticate: func(*http.Request) (auth.User, error) { return nil, errDenied },
			wantErr:      errDenied,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.Header.Set("X-User", tt.header)

			scc, err := NewDefaultCallContextBuilder(tt.authenticate).Build(t.Context(), r)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got := scc.User(); got.UserName() != tt.wantUser || got.IsAuthenticated() != tt.wantAuth {
				t.Errorf("Expected user %q (authenticated %t), got %q (%t)", tt.wantUser, tt.wantAuth, got.UserName(), got.IsAuthenticated())
			}
			headers, ok := scc.GetState(StateKeyHeaders)
			if !ok || headers.(http.Header).Get("X-User") != tt.header {
				t.Errorf("Expected request headers in state, got %v", headers)
			}
			if v, _ := scc.GetState(StateKeyRemoteAddr); v != r.RemoteAddr {
				t.Errorf("Expected remote address %q, got %v", r.RemoteAddr, v)
			}
		})
	}
}

func TestDefaultCallContextBuilder_NilRequest(t *testing.T) {
	var builder CallContextBuilder = NewDefaultCallContextBuilder(nil)

	scc, err := builder.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if scc.User().IsAuthenticated() {
		t.Error("Expected unauthenticated user from default builder")
	}

	//nolint:staticcheck // a nil context is rejected
	if _, err := builder.Build(nil, nil); err == nil {
		t.Error("Expected error when building with nil context")
	}
}
