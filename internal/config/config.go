// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration of the a2a-server command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config is the root of the configuration file.
type Config struct {
	Addr    string        `yaml:"addr"`
	Log     LogConfig     `yaml:"log"`
	Queue   QueueConfig   `yaml:"queue"`
	History HistoryConfig `yaml:"history"`
	Store   StoreConfig   `yaml:"store"`
	Push    PushConfig    `yaml:"push"`
	Agent   AgentConfig   `yaml:"agent"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"` // debug, info, warn or error
	Format string `yaml:"format"` // text or json
}

// QueueConfig bounds the event channel of each task.
type QueueConfig struct {
	Capacity int `yaml:"capacity"`
}

// HistoryConfig bounds the stored message history of each task. Zero keeps every message.
type HistoryConfig struct {
	Max int `yaml:"max"`
}

// StoreConfig selects the task store.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// PushConfig configures push notification storage and delivery.
type PushConfig struct {
	Store        string        `yaml:"store"` // memory, sqlite (shares store.dsn) or redis
	RedisAddr    string        `yaml:"redis_addr"`
	Timeout      time.Duration `yaml:"timeout"`
	Rate         float64       `yaml:"rate"` // deliveries per second, 0 is unlimited
	Burst        int           `yaml:"burst"`
	MaxAttempts  int           `yaml:"max_attempts"`
	SigningKeyID string        `yaml:"signing_key_id"` // empty disables JWT signing
}

// AgentConfig fills the served agent card.
type AgentConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
	URL         string `yaml:"url"`
}

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		Addr: ":8080",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Queue: QueueConfig{Capacity: 1024},
		Store: StoreConfig{Driver: DriverMemory},
		Push: PushConfig{
			Store:       DriverMemory,
			Timeout:     10 * time.Second,
			Burst:       1,
			MaxAttempts: 3,
		},
		Agent: AgentConfig{
			Name:        "a2a-server",
			Description: "Echoes the text of every message.",
			Version:     "0.1.0",
			URL:         "http://localhost:8080/",
		},
	}
}

// Load reads the file at path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML data over the defaults and validates the result. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting of c.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr cannot be empty"))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Queue.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("queue.capacity must be positive, got %d", c.Queue.Capacity))
	}
	if c.History.Max < 0 {
		errs = append(errs, fmt.Errorf("history.max cannot be negative, got %d", c.History.Max))
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver must be memory or sqlite, got %q", c.Store.Driver))
	}

	switch c.Push.Store {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.Driver != DriverSQLite {
			errs = append(errs, errors.New("push.store sqlite requires store.driver sqlite"))
		}
	case DriverRedis:
		if c.Push.RedisAddr == "" {
			errs = append(errs, errors.New("push.redis_addr is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("push.store must be memory, sqlite or redis, got %q", c.Push.Store))
	}
	if c.Push.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("push.timeout must be positive, got %s", c.Push.Timeout))
	}
	if c.Push.Rate < 0 {
		errs = append(errs, fmt.Errorf("push.rate cannot be negative, got %g", c.Push.Rate))
	}
	if c.Push.Burst < 1 {
		errs = append(errs, fmt.Errorf("push.burst must be at least 1, got %d", c.Push.Burst))
	}
	if c.Push.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("push.max_attempts must be at least 1, got %d", c.Push.MaxAttempts))
	}

	if c.Agent.Name == "" {
		errs = append(errs, errors.New("agent.name cannot be empty"))
	}
	if c.Agent.Version == "" {
		errs = append(errs, errors.New("agent.version cannot be empty"))
	}
	if u, err := url.Parse(c.Agent.URL); err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Errorf("agent.url must be an absolute URL, got %q", c.Agent.URL))
	}

	return errors.Join(errs...)
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewLogger returns a logger writing to w in the configured format and level.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
