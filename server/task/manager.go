// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/go-a2a/a2a-server"
	"github.com/go-a2a/a2a-server/server/event"
)

// ExecuteFunc runs agent logic for a task, publishing through u. Returning an error fails the
// task.
type ExecuteFunc func(ctx context.Context, u *Updater) error

// CancelResult is the outcome of [Manager.Cancel].
type CancelResult struct {
	// Task is the task after the cancel request.
	Task *a2a.Task
	// NotCancelable is set when the task had already finished with another outcome; Task is
	// then unchanged.
	NotCancelable bool
}

// Err returns a TaskNotCancelableError when the task was not cancelable, nil otherwise.
func (r *CancelResult) Err() error {
	if !r.NotCancelable {
		return nil
	}
	return a2a.TaskNotCancelableError{TaskID: r.Task.ID, State: r.Task.Status.State}
}

// Manager owns the state machine of every task.
//
// All writes to a task go through Manager and are serialized per task; tasks never wait on
// each other. Each accepted event gets the next sequence number of its task, is applied to the
// task, published to the task's event queue and saved to the TaskStore, in that order. Readers
// get copies of the last published snapshot and never hold a lock while using it.
type Manager struct {
	store      TaskStore
	pushStore  PushNotificationConfigStore
	queues     event.QueueManager
	sender     PushNotificationSender
	notifier   *notifier
	logger     *slog.Logger
	tracer     trace.Tracer
	historyMax int
	pushStates map[a2a.TaskState]bool

	mu      sync.RWMutex
	records map[string]*record
	closed  bool

	execWG sync.WaitGroup
}

// record is the live state of one task.
type record struct {
	// mu serializes writers. It guards task, seq and the queue publish order.
	mu    sync.Mutex
	task  *a2a.Task
	seq   uint64
	queue *event.EventQueue

	// execMu guards the executor bookkeeping. It may be taken before mu, never after.
	execMu          sync.Mutex
	running         bool
	idle            chan struct{}
	cancel          context.CancelFunc
	cancelRequested bool

	viewMu  sync.RWMutex
	view    *a2a.Task
	viewSeq uint64
	changed chan struct{}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTaskStore sets the task store. Defaults to an InMemoryTaskStore.
func WithTaskStore(store TaskStore) ManagerOption {
	return func(m *Manager) {
		m.store = store
	}
}

// WithPushNotificationConfigStore sets the push notification config store.
func WithPushNotificationConfigStore(store PushNotificationConfigStore) ManagerOption {
	return func(m *Manager) {
		m.pushStore = store
	}
}

// WithPushNotificationSender enables push notifications delivered by sender.
func WithPushNotificationSender(sender PushNotificationSender) ManagerOption {
	return func(m *Manager) {
		m.sender = sender
	}
}

// WithPushStates overrides the states whose entry triggers a push notification.
func WithPushStates(states ...a2a.TaskState) ManagerOption {
	return func(m *Manager) {
		m.pushStates = make(map[a2a.TaskState]bool, len(states))
		for _, s := range states {
			m.pushStates[s] = true
		}
	}
}

// WithQueueManager sets the event queue registry.
func WithQueueManager(queues event.QueueManager) ManagerOption {
	return func(m *Manager) {
		m.queues = queues
	}
}

// WithHistoryMax bounds the history kept per task to the last n messages. Zero keeps all.
func WithHistoryMax(n int) ManagerOption {
	return func(m *Manager) {
		m.historyMax = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer trace.Tracer) ManagerOption {
	return func(m *Manager) {
		m.tracer = tracer
	}
}

// NewManager creates a new Manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		records: make(map[string]*record),
	}
	WithPushStates(DefaultPushStates...)(m)
	for _, opt := range opts {
		opt(m)
	}

	if m.store == nil {
		m.store = NewInMemoryTaskStore()
	}
	if m.pushStore == nil {
		m.pushStore = NewInMemoryPushNotificationConfigStore()
	}
	if m.queues == nil {
		m.queues = event.NewInMemoryQueueManager(event.DefaultMaxQueueSize)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.tracer == nil {
		m.tracer = otel.GetTracerProvider().Tracer("github.com/go-a2a/a2a-server/server/task")
	}
	if m.sender != nil {
		m.notifier = newNotifier(m.sender, m.pushStore, m.logger, 0)
	}
	return m
}

// Store returns the task store of m.
func (m *Manager) Store() TaskStore { return m.store }

func (m *Manager) lookup(taskID string) *record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[taskID]
}

// load returns the record of taskID, hydrating it from the store if needed. When create is set
// an unknown task is created in the submitted state.
func (m *Manager) load(ctx context.Context, taskID, contextID string, create bool) (*record, error) {
	if r := m.lookup(taskID); r != nil {
		return r, nil
	}

	stored, err := m.store.Get(ctx, taskID)
	fresh := false
	switch {
	case err == nil:
	case errors.As(err, new(a2a.TaskNotFoundError)):
		if !create {
			return nil, err
		}
		stored = a2a.NewTask(taskID, contextID)
		fresh = true
	default:
		return nil, err
	}

	r, inserted, err := m.insert(ctx, stored)
	if err != nil {
		return nil, err
	}
	if inserted && fresh {
		r.mu.Lock()
		if err := m.store.Save(context.WithoutCancel(ctx), r.task.Clone()); err != nil {
			m.logger.ErrorContext(ctx, "failed to save task", slog.String("task_id", taskID), slog.Any("error", err))
		}
		r.mu.Unlock()
		m.logger.DebugContext(ctx, "task created", slog.String("task_id", taskID), slog.String("context_id", stored.ContextID))
	}
	return r, nil
}

// insert registers a record for t unless another caller registered one first.
func (m *Manager) insert(ctx context.Context, t *a2a.Task) (*record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, fmt.Errorf("task manager is closed")
	}
	if r, ok := m.records[t.ID]; ok {
		return r, false, nil
	}

	queue, err := m.queues.CreateOrGet(t.ID)
	if err != nil {
		return nil, false, err
	}
	r := &record{
		task:    t,
		queue:   queue,
		view:    t.Clone(),
		changed: make(chan struct{}),
	}
	if t.IsTerminal() {
		// Nobody can be subscribed yet: this only primes the status replayed to late subscribers.
		r.seq++
		ev := a2a.NewTaskStatusUpdateEvent(t.ID, t.ContextID, t.Status.Clone(), true)
		_ = queue.EnqueueEvent(ctx, a2a.WithSequence(ev, r.seq))
		_ = queue.Close()
		r.viewSeq = r.seq
	}
	m.records[t.ID] = r
	return r, true, nil
}

// CreateOrGetTask returns the task taskID, creating it in the submitted state if it does not
// exist. Concurrent calls for the same id yield one task. An empty taskID creates a task with a
// generated id; an empty contextID is generated as well.
func (m *Manager) CreateOrGetTask(ctx context.Context, taskID, contextID string) (*a2a.Task, error) {
	if taskID == "" {
		taskID = uuid.NewString()
	}

	ctx, span := m.tracer.Start(ctx, "a2a.task_manager.CreateOrGetTask",
		trace.WithAttributes(attribute.String("a2a.task_id", taskID)))
	defer span.End()

	r, err := m.load(ctx, taskID, contextID, true)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	snap := r.snapshot(0)
	if contextID != "" && snap.ContextID != contextID {
		return nil, a2a.NewInvalidParamsError("message.contextId", "task %s belongs to context %s, not %s", taskID, snap.ContextID, contextID)
	}
	return snap, nil
}

// ApplyEvent validates ev against the task state and, if accepted, applies and publishes it.
// It returns the published event stamped with its sequence number.
//
// An event for a task in a terminal state yields a StaleUpdateError, and a status the task
// cannot move to yields an InvalidTransitionError. Both leave the task unchanged.
func (m *Manager) ApplyEvent(ctx context.Context, taskID string, ev a2a.Event) (a2a.Event, error) {
	ctx, span := m.tracer.Start(ctx, "a2a.task_manager.ApplyEvent",
		trace.WithAttributes(attribute.String("a2a.task_id", taskID)))
	defer span.End()

	r := m.lookup(taskID)
	if r == nil {
		return nil, a2a.TaskNotFoundError{TaskID: taskID}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out, err := m.applyLocked(ctx, r, ev)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func (m *Manager) applyLocked(ctx context.Context, r *record, ev a2a.Event) (a2a.Event, error) {
	if ev == nil {
		return nil, fmt.Errorf("event cannot be nil")
	}
	t := r.task
	if id := ev.GetTaskID(); id != t.ID {
		return nil, fmt.Errorf("event for task %q published to task %q", id, t.ID)
	}

	from := t.Status.State
	if from.IsTerminal() {
		err := StaleUpdateError{TaskID: t.ID, State: from, Kind: ev.EventKind()}
		m.logger.WarnContext(ctx, "dropping stale event",
			slog.String("task_id", t.ID), slog.String("state", from.String()), slog.String("kind", string(ev.EventKind())))
		return nil, err
	}
	if st, ok := ev.(*a2a.TaskStatusUpdateEvent); ok && !a2a.CanTransition(from, st.Status.State) {
		err := InvalidTransitionError{TaskID: t.ID, From: from, To: st.Status.State}
		m.logger.WarnContext(ctx, "dropping invalid transition",
			slog.String("task_id", t.ID), slog.String("from", from.String()), slog.String("to", st.Status.State.String()))
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, a2a.NewInvalidParamsError("event", "%v", err)
	}

	r.seq++
	out := a2a.WithSequence(ev, r.seq)
	entered := false
	switch e := out.(type) {
	case *a2a.TaskStatusUpdateEvent:
		e.ContextID = t.ContextID
		if e.Status.Timestamp.IsZero() {
			e.Status.Timestamp = time.Now().UTC()
		}
		terminal := e.Status.State.IsTerminal()
		e.Final = terminal || e.Final && e.Status.State == a2a.TaskStateInputRequired
		entered = from != e.Status.State
		t.Status = e.Status.Clone()
		if msg := e.Status.Message; msg != nil {
			m.appendHistory(r, msg.Clone())
		}
	case *a2a.TaskArtifactUpdateEvent:
		e.ContextID = t.ContextID
		a2a.AppendArtifactToTask(ctx, m.logger, t, e)
	case *a2a.MessageEvent:
		e.ContextID = t.ContextID
		if e.Message.TaskID == "" {
			e.Message.TaskID = t.ID
		}
		if e.Message.ContextID == "" {
			e.Message.ContextID = t.ContextID
		}
		m.appendHistory(r, e.Message.Clone())
	}

	if err := r.queue.EnqueueEvent(context.WithoutCancel(ctx), out); err != nil {
		m.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("task_id", t.ID), slog.Uint64("seq", r.seq), slog.Any("error", err))
	}

	snap := t.Clone()
	if err := m.store.Save(context.WithoutCancel(ctx), snap); err != nil {
		m.logger.ErrorContext(ctx, "failed to save task",
			slog.String("task_id", t.ID), slog.Uint64("seq", r.seq), slog.Any("error", err))
	}
	r.publish(snap, r.seq)

	state := t.Status.State
	if a2a.IsFinalEvent(out) {
		if err := r.queue.Close(); err != nil && !errors.Is(err, event.ErrQueueClosed) {
			m.logger.ErrorContext(ctx, "failed to close event queue", slog.String("task_id", t.ID), slog.Any("error", err))
		}
	}
	if entered && m.notifier != nil && m.pushStates[state] {
		m.notifier.notify(snap)
	}

	m.logger.DebugContext(ctx, "applied event",
		slog.String("task_id", t.ID),
		slog.String("context_id", t.ContextID),
		slog.String("kind", string(out.EventKind())),
		slog.String("state", state.String()),
		slog.Uint64("seq", r.seq),
	)
	return out, nil
}

func (m *Manager) appendHistory(r *record, msg *a2a.Message) {
	h := append(r.task.History, msg)
	if m.historyMax > 0 && len(h) > m.historyMax {
		h = slices.Clone(h[len(h)-m.historyMax:])
	}
	r.task.History = h
}

// publish makes snap the snapshot seen by readers and wakes up waiters.
func (r *record) publish(snap *a2a.Task, seq uint64) {
	r.viewMu.Lock()
	defer r.viewMu.Unlock()
	r.view = snap
	r.viewSeq = seq
	close(r.changed)
	r.changed = make(chan struct{})
}

// snapshot returns a copy of the published task trimmed to historyLimit messages.
func (r *record) snapshot(historyLimit int) *a2a.Task {
	r.viewMu.RLock()
	v := r.view
	r.viewMu.RUnlock()
	return v.Clone().WithHistoryLimit(historyLimit)
}

// GetTask returns a copy of the task taskID with at most historyLimit history messages. A
// historyLimit of 0 returns the full history.
func (m *Manager) GetTask(ctx context.Context, taskID string, historyLimit int) (*a2a.Task, error) {
	ctx, span := m.tracer.Start(ctx, "a2a.task_manager.GetTask",
		trace.WithAttributes(attribute.String("a2a.task_id", taskID)))
	defer span.End()

	if r := m.lookup(taskID); r != nil {
		return r.snapshot(historyLimit), nil
	}
	t, err := m.store.Get(ctx, taskID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return t.WithHistoryLimit(historyLimit), nil
}

// WaitTask blocks until the snapshot of taskID reflects the event with sequence number seq, or
// ctx is done, and returns the snapshot. On ctx expiry the current snapshot is returned with
// the context error.
func (m *Manager) WaitTask(ctx context.Context, taskID string, seq uint64, historyLimit int) (*a2a.Task, error) {
	r := m.lookup(taskID)
	if r == nil {
		return m.GetTask(ctx, taskID, historyLimit)
	}
	for {
		r.viewMu.RLock()
		v, vs, changed := r.view, r.viewSeq, r.changed
		r.viewMu.RUnlock()
		if vs >= seq {
			return v.Clone().WithHistoryLimit(historyLimit), nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return v.Clone().WithHistoryLimit(historyLimit), ctx.Err()
		}
	}
}

// Subscribe taps the event queue of taskID. A task that already finished yields a subscription
// holding its final status, already closed.
func (m *Manager) Subscribe(ctx context.Context, taskID string) (*event.Subscription, error) {
	r, err := m.load(ctx, taskID, "", false)
	if err != nil {
		return nil, err
	}
	return r.queue.Tap(), nil
}

// RunOption configures a single [Manager.Run].
type RunOption func(*runOptions)

type runOptions struct {
	pushConfig *a2a.PushNotificationConfig
}

// WithRunPushNotificationConfig stores config as the push notification config of the task
// once Run has accepted the request, before the executor starts.
func WithRunPushNotificationConfig(config *a2a.PushNotificationConfig) RunOption {
	return func(o *runOptions) {
		o.pushConfig = config
	}
}

// Run appends msg to the history of taskID and starts fn in its own goroutine.
//
// The executor context is detached from ctx: the caller going away does not stop the agent,
// only Cancel does. When fn returns without leaving the task terminal or waiting for input,
// the task fails. Run fails with an InvalidParamsError on a terminal task and with an
// InvalidRequestError while a previous run of the task is still going, unless that run paused
// the task for input: Run then waits for it to return. A rejected Run leaves the task and its
// push notification config unchanged.
func (m *Manager) Run(ctx context.Context, taskID string, msg *a2a.Message, fn ExecuteFunc, opts ...RunOption) error {
	ctx, span := m.tracer.Start(ctx, "a2a.task_manager.Run",
		trace.WithAttributes(attribute.String("a2a.task_id", taskID)))
	defer span.End()

	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.pushConfig != nil {
		if err := o.pushConfig.Validate(); err != nil {
			return err
		}
	}

	r := m.lookup(taskID)
	if r == nil {
		return a2a.TaskNotFoundError{TaskID: taskID}
	}

	if err := r.acquireIdle(ctx); err != nil {
		return err
	}
	defer r.execMu.Unlock()

	r.mu.Lock()
	if r.task.IsTerminal() {
		state := r.task.Status.State
		r.mu.Unlock()
		return a2a.NewInvalidParamsError("message.taskId", "task %s is already %s", taskID, state)
	}

	m.mu.RLock()
	closed := m.closed
	if !closed {
		m.execWG.Add(1)
	}
	m.mu.RUnlock()
	if closed {
		r.mu.Unlock()
		return fmt.Errorf("task manager is closed")
	}

	if o.pushConfig != nil {
		if _, err := m.savePushConfig(ctx, taskID, o.pushConfig); err != nil {
			r.mu.Unlock()
			m.execWG.Done()
			return err
		}
	}

	contextID := r.task.ContextID
	if msg != nil {
		in := msg.Clone()
		in.TaskID = taskID
		in.ContextID = contextID
		m.appendHistory(r, in)
		snap := r.task.Clone()
		if err := m.store.Save(context.WithoutCancel(ctx), snap); err != nil {
			m.logger.ErrorContext(ctx, "failed to save task", slog.String("task_id", taskID), slog.Any("error", err))
		}
		r.publish(snap, r.seq)
	}
	r.mu.Unlock()

	execCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.running = true
	r.idle = make(chan struct{})
	r.cancel = cancel
	r.cancelRequested = false

	u := &Updater{m: m, r: r, taskID: taskID, contextID: contextID}
	go func() {
		defer m.execWG.Done()
		defer cancel()
		err := m.execute(execCtx, fn, u)
		m.finish(execCtx, r, err)
	}()

	m.logger.InfoContext(ctx, "task execution started", slog.String("task_id", taskID), slog.String("context_id", contextID))
	return nil
}

func (m *Manager) execute(ctx context.Context, fn ExecuteFunc, u *Updater) (err error) {
	defer func() {
		if p := recover(); p != nil {
			m.logger.ErrorContext(ctx, "executor panicked",
				slog.String("task_id", u.taskID), slog.Any("panic", p), slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("executor panicked: %v", p)
		}
	}()
	return fn(ctx, u)
}

// acquireIdle locks execMu once no executor runs for r. An executor that paused the task for
// input is waited for, since it is about to return; any other running executor is an error.
func (r *record) acquireIdle(ctx context.Context) error {
	r.execMu.Lock()
	for r.running {
		r.mu.Lock()
		paused := r.task.Status.State == a2a.TaskStateInputRequired
		r.mu.Unlock()
		if !paused {
			r.execMu.Unlock()
			return a2a.NewInvalidRequestError("task %s is still running", r.task.ID)
		}
		idle := r.idle
		r.execMu.Unlock()
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
		r.execMu.Lock()
	}
	return nil
}

// finish settles the task once its executor returned.
func (m *Manager) finish(ctx context.Context, r *record, execErr error) {
	r.execMu.Lock()
	defer r.execMu.Unlock()
	r.running = false
	r.cancel = nil
	defer close(r.idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.task
	state := t.Status.State
	var status a2a.TaskStatus
	var metadata map[string]any
	switch {
	case state.IsTerminal():
		return
	case r.cancelRequested:
		status = a2a.TaskStatus{State: a2a.TaskStateCanceled}
	case execErr != nil:
		status = a2a.TaskStatus{
			State:   a2a.TaskStateFailed,
			Message: a2a.NewAgentTextMessage(t.ID, t.ContextID, execErr.Error()),
		}
		metadata = map[string]any{"error": execErr.Error()}
		if t.Metadata == nil {
			t.Metadata = make(map[string]any, 1)
		}
		t.Metadata["error"] = execErr.Error()
		m.logger.WarnContext(ctx, "executor failed", slog.String("task_id", t.ID), slog.Any("error", execErr))
	case state == a2a.TaskStateInputRequired:
		return
	default:
		status = a2a.TaskStatus{
			State:   a2a.TaskStateFailed,
			Message: a2a.NewAgentTextMessage(t.ID, t.ContextID, "agent finished without a final status"),
		}
		m.logger.WarnContext(ctx, "executor returned without a final status", slog.String("task_id", t.ID), slog.String("state", state.String()))
	}

	ev := a2a.NewTaskStatusUpdateEvent(t.ID, t.ContextID, status, true)
	ev.Metadata = metadata
	if _, err := m.applyLocked(context.WithoutCancel(ctx), r, ev); err != nil {
		m.logger.ErrorContext(ctx, "failed to settle task", slog.String("task_id", t.ID), slog.Any("error", err))
	}
}

// Cancel signals the executor of taskID to stop and moves the task to canceled.
//
// Canceling a task that already finished is not an error: the unchanged task is returned with
// NotCancelable set, unless it finished as canceled.
func (m *Manager) Cancel(ctx context.Context, taskID string) (*CancelResult, error) {
	ctx, span := m.tracer.Start(ctx, "a2a.task_manager.Cancel",
		trace.WithAttributes(attribute.String("a2a.task_id", taskID)))
	defer span.End()

	r, err := m.load(ctx, taskID, "", false)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	r.execMu.Lock()
	cancel := r.cancel
	if r.running {
		r.cancelRequested = true
	}
	r.execMu.Unlock()
	if cancel != nil {
		cancel()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if state := r.task.Status.State; state.IsTerminal() {
		m.logger.InfoContext(ctx, "cancel of finished task", slog.String("task_id", taskID), slog.String("state", state.String()))
		return &CancelResult{Task: r.snapshot(0), NotCancelable: state != a2a.TaskStateCanceled}, nil
	}

	status := a2a.TaskStatus{State: a2a.TaskStateCanceled}
	ev := a2a.NewTaskStatusUpdateEvent(taskID, r.task.ContextID, status, true)
	if _, err := m.applyLocked(ctx, r, ev); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	m.logger.InfoContext(ctx, "task canceled", slog.String("task_id", taskID))
	return &CancelResult{Task: r.snapshot(0)}, nil
}

// exists reports whether taskID is known to m or its store.
func (m *Manager) exists(ctx context.Context, taskID string) error {
	if m.lookup(taskID) != nil {
		return nil
	}
	_, err := m.store.Get(ctx, taskID)
	return err
}

// SetPushNotificationConfig replaces the push notification config of taskID. A config without
// an id is given one.
func (m *Manager) SetPushNotificationConfig(ctx context.Context, taskID string, config *a2a.PushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	ctx, span := m.tracer.Start(ctx, "a2a.task_manager.SetPushNotificationConfig",
		trace.WithAttributes(attribute.String("a2a.task_id", taskID)))
	defer span.End()

	if err := m.exists(ctx, taskID); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return m.savePushConfig(ctx, taskID, config)
}

func (m *Manager) savePushConfig(ctx context.Context, taskID string, config *a2a.PushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	cfg := config.Clone()
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if err := m.pushStore.SaveConfig(ctx, taskID, cfg); err != nil {
		return nil, err
	}
	return &a2a.TaskPushNotificationConfig{TaskID: taskID, PushNotificationConfig: cfg.Clone()}, nil
}

// GetPushNotificationConfig returns the push notification config of taskID.
func (m *Manager) GetPushNotificationConfig(ctx context.Context, taskID string) (*a2a.TaskPushNotificationConfig, error) {
	ctx, span := m.tracer.Start(ctx, "a2a.task_manager.GetPushNotificationConfig",
		trace.WithAttributes(attribute.String("a2a.task_id", taskID)))
	defer span.End()

	if err := m.exists(ctx, taskID); err != nil {
		return nil, err
	}
	cfg, err := m.pushStore.GetConfig(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &a2a.TaskPushNotificationConfig{TaskID: taskID, PushNotificationConfig: cfg}, nil
}

// Evict forgets a finished task: its record, event queue, stored snapshot and push config.
// It is the hook for an external retention policy; tasks that have not finished are refused.
func (m *Manager) Evict(ctx context.Context, taskID string) error {
	ctx, span := m.tracer.Start(ctx, "a2a.task_manager.Evict",
		trace.WithAttributes(attribute.String("a2a.task_id", taskID)))
	defer span.End()

	if r := m.lookup(taskID); r != nil {
		r.mu.Lock()
		terminal := r.task.IsTerminal()
		r.mu.Unlock()
		if !terminal {
			return a2a.NewInvalidRequestError("task %s has not finished", taskID)
		}
		m.mu.Lock()
		delete(m.records, taskID)
		m.mu.Unlock()
		m.queues.Remove(taskID)
	} else {
		t, err := m.store.Get(ctx, taskID)
		if err != nil {
			return err
		}
		if !t.IsTerminal() {
			return a2a.NewInvalidRequestError("task %s has not finished", taskID)
		}
	}

	if err := m.store.Delete(ctx, taskID); err != nil && !errors.As(err, new(a2a.TaskNotFoundError)) {
		return err
	}
	if err := m.pushStore.DeleteConfig(ctx, taskID); err != nil {
		return err
	}
	m.logger.DebugContext(ctx, "task evicted", slog.String("task_id", taskID))
	return nil
}

// Close cancels every running executor, waits for them and for pending push notifications,
// and closes every event queue. The stores are left open.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	records := make([]*record, 0, len(m.records))
	for _, r := range m.records {
		records = append(records, r)
	}
	m.mu.Unlock()

	for _, r := range records {
		r.execMu.Lock()
		if r.running {
			r.cancelRequested = true
			r.cancel()
		}
		r.execMu.Unlock()
	}

	done := make(chan struct{})
	go func() {
		m.execWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.queues.CloseAll()
	if m.notifier != nil {
		return m.notifier.close(ctx)
	}
	return nil
}
