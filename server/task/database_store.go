// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite" // registers the pure Go "sqlite" database/sql driver

	a2a "github.com/go-a2a/a2a-server"
)

// OpenSQLite opens a GORM connection to the SQLite database at dsn using the pure Go driver.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.New(sqlite.Config{
		DriverName: "sqlite",
		DSN:        dsn,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}

	// SQLite allows a single writer; serializing connections avoids SQLITE_BUSY under load.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// DatabaseTaskStore is a database implementation of TaskStore using GORM.
type DatabaseTaskStore struct {
	db          *gorm.DB
	tableName   string
	createTable bool
}

var _ TaskStore = (*DatabaseTaskStore)(nil)

// DatabaseTaskStoreConfig holds configuration for DatabaseTaskStore.
type DatabaseTaskStoreConfig struct {
	DB          *gorm.DB
	TableName   string // Optional, defaults to "tasks"
	CreateTable bool   // Whether to create the table if it doesn't exist
}

// NewDatabaseTaskStore creates a new DatabaseTaskStore.
func NewDatabaseTaskStore(config DatabaseTaskStoreConfig) (*DatabaseTaskStore, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}

	tableName := config.TableName
	if tableName == "" {
		tableName = TaskModel{}.TableName()
	}

	return &DatabaseTaskStore{
		db:          config.DB,
		tableName:   tableName,
		createTable: config.CreateTable,
	}, nil
}

func (s *DatabaseTaskStore) table(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.tableName)
}

// Save upserts a task row.
func (s *DatabaseTaskStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := task.Validate(); err != nil {
		return NewTaskValidationError(task.ID, err)
	}

	model := NewTaskModelFromTask(task)
	err := s.table(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"context_id", "state", "status", "history", "artifacts", "metadata", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return NewTaskStoreError("save", task.ID, err)
	}
	return nil
}

// Get retrieves a task by its ID from the database.
func (s *DatabaseTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	var model TaskModel
	if err := s.table(ctx).Where("id = ?", taskID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, a2a.TaskNotFoundError{TaskID: taskID}
		}
		return nil, NewTaskStoreError("get", taskID, err)
	}
	return model.ToTask(), nil
}

// Delete removes a task from the database.
func (s *DatabaseTaskStore) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	result := s.table(ctx).Where("id = ?", taskID).Delete(&TaskModel{})
	if result.Error != nil {
		return NewTaskStoreError("delete", taskID, result.Error)
	}
	if result.RowsAffected == 0 {
		return a2a.TaskNotFoundError{TaskID: taskID}
	}
	return nil
}

// List retrieves tasks ordered by id.
func (s *DatabaseTaskStore) List(ctx context.Context, contextID string, limit, offset int) ([]*a2a.Task, error) {
	db := s.table(ctx)
	if contextID != "" {
		db = db.Where("context_id = ?", contextID)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}

	var models []TaskModel
	if err := db.Order("id").Find(&models).Error; err != nil {
		return nil, NewTaskStoreError("list", "", err)
	}

	tasks := make([]*a2a.Task, len(models))
	for i := range models {
		tasks[i] = models[i].ToTask()
	}
	return tasks, nil
}

// Count returns the total number of tasks in the database.
func (s *DatabaseTaskStore) Count(ctx context.Context, contextID string) (int64, error) {
	query := s.table(ctx)
	if contextID != "" {
		query = query.Where("context_id = ?", contextID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, NewTaskStoreError("count", "", err)
	}
	return count, nil
}

// Initialize creates the table when the store was configured to do so.
func (s *DatabaseTaskStore) Initialize(ctx context.Context) error {
	if !s.createTable {
		return nil
	}
	if err := s.table(ctx).AutoMigrate(&TaskModel{}); err != nil {
		return NewTaskStoreError("initialize", "", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *DatabaseTaskStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
