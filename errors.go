// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"
)

// JSON-RPC and A2A error codes.
const (
	ErrorCodeParseError     = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeInternalError  = -32603

	ErrorCodeTaskNotFound                 = -32001
	ErrorCodeTaskNotCancelable            = -32002
	ErrorCodePushNotificationNotSupported = -32003
	ErrorCodeUnsupportedOperation         = -32004
)

// CodedError is an error that maps onto a JSON-RPC error object.
type CodedError interface {
	error
	Code() int
}

// TaskNotFoundError is returned when a task id is unknown.
type TaskNotFoundError struct {
	TaskID string
}

// Error implements the error interface.
func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// Code implements [CodedError].
func (TaskNotFoundError) Code() int { return ErrorCodeTaskNotFound }

// PushNotificationConfigNotFoundError is returned when a known task has no push notification
// config.
type PushNotificationConfigNotFoundError struct {
	TaskID string
}

// Error implements the error interface.
func (e PushNotificationConfigNotFoundError) Error() string {
	return fmt.Sprintf("push notification config not found for task: %s", e.TaskID)
}

// Code implements [CodedError].
func (PushNotificationConfigNotFoundError) Code() int { return ErrorCodeTaskNotFound }

// TaskNotCancelableError reports a cancel request against a task that already finished.
// It is informational: the lifecycle manager reports it alongside the unchanged task.
type TaskNotCancelableError struct {
	TaskID string
	State  TaskState
}

// Error implements the error interface.
func (e TaskNotCancelableError) Error() string {
	return fmt.Sprintf("task %s cannot be canceled: already %s", e.TaskID, e.State)
}

// Code implements [CodedError].
func (TaskNotCancelableError) Code() int { return ErrorCodeTaskNotCancelable }

// InvalidRequestError reports a malformed request envelope or a request that cannot be
// accepted in the current state of the task.
type InvalidRequestError struct {
	Details string
}

// NewInvalidRequestError creates a new InvalidRequestError.
func NewInvalidRequestError(format string, args ...any) *InvalidRequestError {
	return &InvalidRequestError{Details: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Details)
}

// Code implements [CodedError].
func (*InvalidRequestError) Code() int { return ErrorCodeInvalidRequest }

// InvalidParamsError reports a missing or ill-typed parameter.
type InvalidParamsError struct {
	Field   string
	Message string
}

// NewInvalidParamsError creates a new InvalidParamsError.
func NewInvalidParamsError(field, format string, args ...any) *InvalidParamsError {
	return &InvalidParamsError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *InvalidParamsError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid params: %s", e.Message)
	}
	return fmt.Sprintf("invalid params: %s: %s", e.Field, e.Message)
}

// Code implements [CodedError].
func (*InvalidParamsError) Code() int { return ErrorCodeInvalidParams }

// MethodNotFoundError reports an unknown RPC method.
type MethodNotFoundError struct {
	Method string
}

// Error implements the error interface.
func (e MethodNotFoundError) Error() string {
	return fmt.Sprintf("method not found: %s", e.Method)
}

// Code implements [CodedError].
func (MethodNotFoundError) Code() int { return ErrorCodeMethodNotFound }

// UnsupportedOperationError reports a method the agent does not offer, such as streaming when
// the agent card does not advertise it.
type UnsupportedOperationError struct {
	Operation string
}

// Error implements the error interface.
func (e UnsupportedOperationError) Error() string {
	return fmt.Sprintf("operation not supported: %s", e.Operation)
}

// Code implements [CodedError].
func (e UnsupportedOperationError) Code() int {
	if e.Operation == "pushNotifications" {
		return ErrorCodePushNotificationNotSupported
	}
	return ErrorCodeUnsupportedOperation
}

// InternalError wraps an unexpected defect.
type InternalError struct {
	Err error
}

// NewInternalError creates a new InternalError.
func NewInternalError(err error) *InternalError {
	return &InternalError{Err: err}
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *InternalError) Unwrap() error {
	return e.Err
}

// Code implements [CodedError].
func (*InternalError) Code() int { return ErrorCodeInternalError }

// ErrorCode returns the JSON-RPC code of err: the code of the first [CodedError] in its chain,
// or [ErrorCodeInternalError].
func ErrorCode(err error) int {
	var ce CodedError
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ErrorCodeInternalError
}
