// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 1024, cfg.Queue.Capacity)
	assert.Equal(t, 0, cfg.History.Max)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Push.MaxAttempts)
}

func TestParse(t *testing.T) {
	t.Parallel()

	data := `
addr: 127.0.0.1:9000
log:
  level: debug
  format: json
queue:
  capacity: 64
history:
  max: 20
store:
  driver: sqlite
  dsn: file:a2a.db
push:
  store: redis
  redis_addr: localhost:6379
  timeout: 2s
  rate: 5
  burst: 10
  max_attempts: 4
  signing_key_id: key-1
agent:
  name: weather
`
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, 64, cfg.Queue.Capacity)
	assert.Equal(t, 20, cfg.History.Max)
	assert.Equal(t, StoreConfig{Driver: DriverSQLite, DSN: "file:a2a.db"}, cfg.Store)
	assert.Equal(t, PushConfig{
		Store:        DriverRedis,
		RedisAddr:    "localhost:6379",
		Timeout:      2 * time.Second,
		Rate:         5,
		Burst:        10,
		MaxAttempts:  4,
		SigningKeyID: "key-1",
	}, cfg.Push)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, "weather", cfg.Agent.Name)
	assert.Equal(t, Default().Agent.Version, cfg.Agent.Version)
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		data    string
		wantErr string
	}{
		"unknown key":        {data: "listen: :80\n", wantErr: "field listen not found"},
		"bad level":          {data: "log:\n  level: loud\n", wantErr: "log.level"},
		"bad format":         {data: "log:\n  format: xml\n", wantErr: "log.format"},
		"zero capacity":      {data: "queue:\n  capacity: 0\n", wantErr: "queue.capacity"},
		"negative history":   {data: "history:\n  max: -1\n", wantErr: "history.max"},
		"sqlite without dsn": {data: "store:\n  driver: sqlite\n", wantErr: "store.dsn"},
		"unknown driver":     {data: "store:\n  driver: mongo\n", wantErr: "store.driver"},
		"redis without addr": {data: "push:\n  store: redis\n", wantErr: "push.redis_addr"},
		"sqlite push store":  {data: "push:\n  store: sqlite\n", wantErr: "requires store.driver sqlite"},
		"bad timeout":        {data: "push:\n  timeout: soon\n", wantErr: "decode config"},
		"no attempts":        {data: "push:\n  max_attempts: 0\n", wantErr: "push.max_attempts"},
		"relative url":       {data: "agent:\n  url: /agent\n", wantErr: "agent.url"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsEveryError(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Addr = ""
	cfg.Queue.Capacity = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "addr")
	assert.Contains(t, err.Error(), "queue.capacity")
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a2a.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: :9999\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLogConfig_NewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "task_id", "task-1")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.True(t, strings.HasPrefix(out, "{"), "want JSON output, got %q", out)
	assert.Contains(t, out, `"task_id":"task-1"`)
}
