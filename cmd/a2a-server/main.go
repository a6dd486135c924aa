// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command a2a-server runs an A2A agent that echoes the text of every message it receives.
//
// Usage:
//
//	a2a-server [-config a2a.yaml] [-addr :8080]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	a2a "github.com/go-a2a/a2a-server"
	"github.com/go-a2a/a2a-server/auth"
	"github.com/go-a2a/a2a-server/internal/config"
	"github.com/go-a2a/a2a-server/server"
	"github.com/go-a2a/a2a-server/server/agent_execution"
	"github.com/go-a2a/a2a-server/server/event"
	"github.com/go-a2a/a2a-server/server/handler"
	"github.com/go-a2a/a2a-server/server/task"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		configF = flag.String("config", "", "Path of the YAML configuration file")
		addrF   = flag.String("addr", "", "Listen address (overrides addr of the configuration)")
	)
	flag.Parse()

	cfg, err := config.Load(*configF)
	if err != nil {
		fmt.Fprintf(os.Stderr, "a2a-server: %v\n", err)
		os.Exit(2)
	}
	if *addrF != "" {
		cfg.Addr = *addrF
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "a2a-server: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// closer releases a resource opened by run.
type closer func(ctx context.Context) error

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (err error) {
	var closers []closer
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			err = errors.Join(err, closers[i](shutdownCtx))
		}
	}()

	var db *gorm.DB
	if cfg.Store.Driver == config.DriverSQLite {
		db, err = task.OpenSQLite(cfg.Store.DSN)
		if err != nil {
			return err
		}
	}

	store, err := newTaskStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	closers = append(closers, store.Close)

	pushStore, err := newPushStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	closers = append(closers, pushStore.Close)

	senderCfg := task.HTTPPushNotificationSenderConfig{
		Timeout:   cfg.Push.Timeout,
		Retry:     task.DefaultRetryConfig(),
		RateLimit: rate.Limit(cfg.Push.Rate),
		Burst:     cfg.Push.Burst,
		Logger:    logger,
	}
	senderCfg.Retry.MaxAttempts = cfg.Push.MaxAttempts

	var keys *auth.KeyManager
	if cfg.Push.SigningKeyID != "" {
		keys = auth.NewKeyManager(cfg.Agent.URL)
		if _, err := keys.GenerateKey(cfg.Push.SigningKeyID); err != nil {
			return fmt.Errorf("generate signing key: %w", err)
		}
		senderCfg.Signer = keys
	}

	manager := task.NewManager(
		task.WithTaskStore(store),
		task.WithPushNotificationConfigStore(pushStore),
		task.WithPushNotificationSender(task.NewHTTPPushNotificationSender(senderCfg)),
		task.WithQueueManager(event.NewInMemoryQueueManager(cfg.Queue.Capacity)),
		task.WithHistoryMax(cfg.History.Max),
		task.WithLogger(logger),
	)
	closers = append(closers, manager.Close)

	card := agentCard(cfg)
	requestHandler := handler.NewDefaultRequestHandler(
		agent_execution.NewEchoAgentExecutor(),
		manager,
		handler.WithLogger(logger),
		handler.WithRequestContextBuilder(agent_execution.NewSimpleRequestContextBuilderWithRelatedTasks(store, agent_execution.DefaultMaxRelatedTasks)),
	)
	rpc := handler.NewJSONRPCHandler(requestHandler,
		handler.WithAgentCard(card),
		handler.WithJSONRPCLogger(logger),
	)

	opts := []server.Option{server.WithLogger(logger)}
	if keys != nil {
		opts = append(opts, server.WithKeyManager(keys))
	}
	a2aServer, err := server.NewServer(rpc, opts...)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a2aServer,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errc := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "a2a server listening",
			slog.String("addr", cfg.Addr),
			slog.String("agent_card", a2a.AgentCardWellKnownPath),
			slog.String("store", cfg.Store.Driver),
			slog.String("push_store", cfg.Push.Store),
		)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newTaskStore(ctx context.Context, cfg *config.Config, db *gorm.DB) (task.TaskStore, error) {
	var store task.TaskStore = task.NewInMemoryTaskStore()
	if cfg.Store.Driver == config.DriverSQLite {
		dbStore, err := task.NewDatabaseTaskStore(task.DatabaseTaskStoreConfig{DB: db, CreateTable: true})
		if err != nil {
			return nil, err
		}
		store = dbStore
	}
	if err := store.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize task store: %w", err)
	}
	return store, nil
}

func newPushStore(ctx context.Context, cfg *config.Config, db *gorm.DB) (task.PushNotificationConfigStore, error) {
	var store task.PushNotificationConfigStore = task.NewInMemoryPushNotificationConfigStore()
	switch cfg.Push.Store {
	case config.DriverRedis:
		rs, err := task.NewRedisPushNotificationConfigStore(task.RedisPushNotificationConfigStoreConfig{
			Redis: redis.NewClient(&redis.Options{Addr: cfg.Push.RedisAddr}),
		})
		if err != nil {
			return nil, err
		}
		store = rs
	case config.DriverSQLite:
		ds, err := task.NewDatabasePushNotificationConfigStore(db, true)
		if err != nil {
			return nil, err
		}
		store = ds
	}
	if err := store.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize push notification config store: %w", err)
	}
	return store, nil
}

func agentCard(cfg *config.Config) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:            cfg.Agent.Name,
		Description:     cfg.Agent.Description,
		URL:             cfg.Agent.URL,
		Version:         cfg.Agent.Version,
		ProtocolVersion: a2a.Version,
		Capabilities: a2a.AgentCapabilities{
			Streaming:              true,
			PushNotifications:      true,
			StateTransitionHistory: true,
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills: []a2a.AgentSkill{
			{
				ID:          "echo",
				Name:        "Echo",
				Description: "Returns the text of the message as an artifact.",
				Tags:        []string{"echo", "demo"},
				Examples:    []string{"hello"},
			},
		},
	}
}
