// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/go-a2a/a2a-server"
	"github.com/go-a2a/a2a-server/server/agent_execution"
	"github.com/go-a2a/a2a-server/server/task"
)

// DefaultRequestHandler is the [RequestHandler] backed by a [task.Manager] and an
// [agent_execution.AgentExecutor].
type DefaultRequestHandler struct {
	manager        *task.Manager
	executor       agent_execution.AgentExecutor
	contextBuilder agent_execution.RequestContextBuilder
	logger         *slog.Logger
	tracer         trace.Tracer
}

var _ RequestHandler = (*DefaultRequestHandler)(nil)

// DefaultRequestHandlerOption defines a function type for configuring DefaultRequestHandler.
type DefaultRequestHandlerOption func(*DefaultRequestHandler)

// WithRequestContextBuilder sets the builder of the request contexts handed to the executor.
func WithRequestContextBuilder(b agent_execution.RequestContextBuilder) DefaultRequestHandlerOption {
	return func(h *DefaultRequestHandler) {
		h.contextBuilder = b
	}
}

// WithLogger sets the [*slog.Logger] for the handler.
func WithLogger(logger *slog.Logger) DefaultRequestHandlerOption {
	return func(h *DefaultRequestHandler) {
		h.logger = logger
	}
}

// WithTracer sets the [trace.Tracer] for the handler.
func WithTracer(tracer trace.Tracer) DefaultRequestHandlerOption {
	return func(h *DefaultRequestHandler) {
		h.tracer = tracer
	}
}

// NewDefaultRequestHandler creates a new DefaultRequestHandler.
func NewDefaultRequestHandler(executor agent_execution.AgentExecutor, manager *task.Manager, opts ...DefaultRequestHandlerOption) *DefaultRequestHandler {
	if executor == nil {
		panic("agent executor cannot be nil")
	}
	if manager == nil {
		panic("task manager cannot be nil")
	}

	h := &DefaultRequestHandler{
		manager:  manager,
		executor: executor,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.contextBuilder == nil {
		h.contextBuilder = agent_execution.NewSimpleRequestContextBuilder()
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.tracer == nil {
		h.tracer = otel.GetTracerProvider().Tracer("github.com/go-a2a/a2a-server/server/handler")
	}
	return h
}

func historyLength(params *a2a.MessageSendParams) int {
	if params.Configuration == nil {
		return 0
	}
	return params.Configuration.HistoryLength
}

// start creates or resumes the task addressed by params and runs the executor for it. With
// subscribe set, the returned stream is attached before the executor starts.
func (h *DefaultRequestHandler) start(ctx context.Context, params *a2a.MessageSendParams, subscribe bool) (*a2a.Task, *Stream, error) {
	if params == nil {
		return nil, nil, a2a.NewInvalidParamsError("params", "are required")
	}
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}

	msg := params.Message
	current, err := h.manager.CreateOrGetTask(ctx, msg.TaskID, msg.ContextID)
	if err != nil {
		return nil, nil, err
	}
	if current.IsTerminal() {
		return nil, nil, a2a.NewInvalidParamsError("message.taskId", "task %s is already %s", current.ID, current.Status.State)
	}

	rc, err := h.contextBuilder.Build(ctx, params, current.ID, current.ContextID, current, agent_execution.CallContextFromContext(ctx))
	if err != nil {
		return nil, nil, err
	}

	var stream *Stream
	if subscribe {
		sub, err := h.manager.Subscribe(ctx, current.ID)
		if err != nil {
			return nil, nil, err
		}
		stream = newStream(current.ID, sub)
	}

	var runOpts []task.RunOption
	if cfg := params.Configuration; cfg != nil && cfg.PushNotificationConfig != nil {
		runOpts = append(runOpts, task.WithRunPushNotificationConfig(cfg.PushNotificationConfig))
	}
	err = h.manager.Run(ctx, current.ID, msg, func(ctx context.Context, u *task.Updater) error {
		return h.executor.Execute(ctx, rc, u)
	}, runOpts...)
	if err != nil {
		stream.Close()
		return nil, nil, err
	}
	return current, stream, nil
}

// OnMessageSend implements [RequestHandler].
//
// When ctx ends before the task settles, the task keeps running and its current snapshot is
// returned without error: the caller can poll it with tasks/get.
func (h *DefaultRequestHandler) OnMessageSend(ctx context.Context, params *a2a.MessageSendParams) (*a2a.Task, error) {
	ctx, span := h.tracer.Start(ctx, "a2a.request_handler.OnMessageSend")
	defer span.End()

	blocking := params != nil && params.Configuration.IsBlocking()
	current, stream, err := h.start(ctx, params, blocking)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("a2a.task_id", current.ID))
	limit := historyLength(params)
	if !blocking {
		return h.manager.GetTask(ctx, current.ID, limit)
	}
	defer stream.Close()

	var last uint64
	for {
		ev, err := stream.Recv(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.logger.DebugContext(ctx, "caller stopped waiting for task", slog.String("task_id", current.ID), slog.Any("error", err))
			return h.manager.GetTask(context.WithoutCancel(ctx), current.ID, limit)
		}
		last = ev.GetSequence()
	}
	// The last event may be visible before the snapshot it produced.
	return h.manager.WaitTask(context.WithoutCancel(ctx), current.ID, last, limit)
}

// OnMessageSendStream implements [RequestHandler].
func (h *DefaultRequestHandler) OnMessageSendStream(ctx context.Context, params *a2a.MessageSendParams) (*Stream, error) {
	ctx, span := h.tracer.Start(ctx, "a2a.request_handler.OnMessageSendStream")
	defer span.End()

	_, stream, err := h.start(ctx, params, true)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("a2a.task_id", stream.TaskID()))
	return stream, nil
}

// OnGetTask implements [RequestHandler].
func (h *DefaultRequestHandler) OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	if params == nil {
		return nil, a2a.NewInvalidParamsError("params", "are required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return h.manager.GetTask(ctx, params.ID, params.HistoryLength)
}

// OnCancelTask implements [RequestHandler].
func (h *DefaultRequestHandler) OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	if params == nil {
		return nil, a2a.NewInvalidParamsError("params", "are required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	res, err := h.manager.Cancel(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		h.logger.InfoContext(ctx, "task not cancelable", slog.String("task_id", params.ID), slog.Any("reason", err))
	}
	return res.Task, nil
}

// OnSetTaskPushNotificationConfig implements [RequestHandler].
func (h *DefaultRequestHandler) OnSetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	if params == nil {
		return nil, a2a.NewInvalidParamsError("params", "are required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return h.manager.SetPushNotificationConfig(ctx, params.TaskID, params.PushNotificationConfig)
}

// OnGetTaskPushNotificationConfig implements [RequestHandler].
func (h *DefaultRequestHandler) OnGetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskIDParams) (*a2a.TaskPushNotificationConfig, error) {
	if params == nil {
		return nil, a2a.NewInvalidParamsError("params", "are required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return h.manager.GetPushNotificationConfig(ctx, params.ID)
}

// OnResubscribe implements [RequestHandler]. Resubscribing to a finished task yields its final
// status and the end of the stream.
func (h *DefaultRequestHandler) OnResubscribe(ctx context.Context, params *a2a.TaskQueryParams) (*Stream, error) {
	if params == nil {
		return nil, a2a.NewInvalidParamsError("params", "are required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	sub, err := h.manager.Subscribe(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	return newStream(params.ID, sub), nil
}
