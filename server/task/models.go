// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"

	a2a "github.com/go-a2a/a2a-server"
)

// JSONColumn stores a value of type T as a JSON text column.
type JSONColumn[T any] struct {
	Val T
}

// Value implements the driver.Valuer interface for database storage.
func (c JSONColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(c.Val)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database retrieval.
func (c *JSONColumn[T]) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		var zero T
		c.Val = zero
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONColumn[%T]", value, c.Val)
	}

	var val T
	if err := json.Unmarshal(b, &val); err != nil {
		return fmt.Errorf("cannot unmarshal JSONColumn[%T]: %w", c.Val, err)
	}
	c.Val = val
	return nil
}

// TaskModel is the database row of a task.
type TaskModel struct {
	ID        string                      `gorm:"primaryKey;size:256"`
	ContextID string                      `gorm:"size:256;index;not null"`
	State     string                      `gorm:"size:32;index;not null"`
	Status    JSONColumn[a2a.TaskStatus]  `gorm:"type:text"`
	History   JSONColumn[[]*a2a.Message]  `gorm:"type:text"`
	Artifacts JSONColumn[[]*a2a.Artifact] `gorm:"type:text"`
	Metadata  JSONColumn[map[string]any]  `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for the TaskModel.
func (TaskModel) TableName() string {
	return "tasks"
}

// NewTaskModelFromTask converts a task into its database row.
func NewTaskModelFromTask(task *a2a.Task) *TaskModel {
	return &TaskModel{
		ID:        task.ID,
		ContextID: task.ContextID,
		State:     string(task.Status.State),
		Status:    JSONColumn[a2a.TaskStatus]{Val: task.Status},
		History:   JSONColumn[[]*a2a.Message]{Val: task.History},
		Artifacts: JSONColumn[[]*a2a.Artifact]{Val: task.Artifacts},
		Metadata:  JSONColumn[map[string]any]{Val: task.Metadata},
	}
}

// ToTask converts the row back into a task.
func (m *TaskModel) ToTask() *a2a.Task {
	return &a2a.Task{
		Kind:      "task",
		ID:        m.ID,
		ContextID: m.ContextID,
		Status:    m.Status.Val,
		History:   m.History.Val,
		Artifacts: m.Artifacts.Val,
		Metadata:  m.Metadata.Val,
	}
}

// PushNotificationConfigModel is the database row of a task's push notification config.
type PushNotificationConfigModel struct {
	TaskID    string                                 `gorm:"primaryKey;size:256"`
	Config    JSONColumn[a2a.PushNotificationConfig] `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName returns the table name for the PushNotificationConfigModel.
func (PushNotificationConfigModel) TableName() string {
	return "push_notification_configs"
}
