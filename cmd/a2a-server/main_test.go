// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	a2a "github.com/go-a2a/a2a-server"
	"github.com/go-a2a/a2a-server/internal/config"
	"github.com/go-a2a/a2a-server/server/task"
)

func TestAgentCard(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Agent.Name = "echo"
	card := agentCard(cfg)

	require.NoError(t, card.Validate())
	assert.Equal(t, "echo", card.Name)
	assert.True(t, card.Capabilities.Streaming)
	assert.True(t, card.Capabilities.PushNotifications)
}

func TestNewStores(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		driver    string
		pushStore string
	}{
		"memory": {driver: config.DriverMemory, pushStore: config.DriverMemory},
		"sqlite": {driver: config.DriverSQLite, pushStore: config.DriverSQLite},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			cfg.Store.Driver = tt.driver
			cfg.Store.DSN = "file:cmd_" + name + "?mode=memory&cache=shared"
			cfg.Push.Store = tt.pushStore
			require.NoError(t, cfg.Validate())

			ctx := t.Context()
			db, err := task.OpenSQLite(cfg.Store.DSN)
			require.NoError(t, err)

			store, err := newTaskStore(ctx, cfg, db)
			require.NoError(t, err)
			pushStore, err := newPushStore(ctx, cfg, db)
			require.NoError(t, err)
			t.Cleanup(func() {
				_ = pushStore.Close(ctx)
				_ = store.Close(ctx)
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			})

			tk := a2a.NewTask("task-1", "ctx-1")
			require.NoError(t, store.Save(ctx, tk))
			got, err := store.Get(ctx, "task-1")
			require.NoError(t, err)
			assert.Equal(t, "ctx-1", got.ContextID)

			push := &a2a.PushNotificationConfig{ID: "cfg-1", URL: "https://example.com/hook"}
			require.NoError(t, pushStore.SaveConfig(ctx, "task-1", push))
			saved, err := pushStore.GetConfig(ctx, "task-1")
			require.NoError(t, err)
			assert.Equal(t, push.URL, saved.URL)
		})
	}
}
