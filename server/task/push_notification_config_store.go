// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	a2a "github.com/go-a2a/a2a-server"
)

// PushNotificationConfigStore stores at most one push notification config per task.
// Saving a config for a task replaces the previous one.
type PushNotificationConfigStore interface {
	// GetConfig retrieves the config of a task.
	// Returns a2a.PushNotificationConfigNotFoundError if the task has no config.
	GetConfig(ctx context.Context, taskID string) (*a2a.PushNotificationConfig, error)

	// SaveConfig stores config for a task, replacing any previous config.
	SaveConfig(ctx context.Context, taskID string, config *a2a.PushNotificationConfig) error

	// DeleteConfig removes the config of a task. Deleting a missing config is not an error.
	DeleteConfig(ctx context.Context, taskID string) error

	// ListConfigs returns every stored config keyed by task ID.
	ListConfigs(ctx context.Context) (map[string]*a2a.PushNotificationConfig, error)

	// Initialize prepares the storage for use.
	Initialize(ctx context.Context) error

	// Close cleanly shuts down the storage.
	Close(ctx context.Context) error
}

func validatePushConfig(taskID string, config *a2a.PushNotificationConfig) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if config == nil {
		return fmt.Errorf("push notification config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid push notification config: %w", err)
	}
	return nil
}

// InMemoryPushNotificationConfigStore is an in-memory implementation of PushNotificationConfigStore.
type InMemoryPushNotificationConfigStore struct {
	mu      sync.RWMutex
	configs map[string]*a2a.PushNotificationConfig
}

var _ PushNotificationConfigStore = (*InMemoryPushNotificationConfigStore)(nil)

// NewInMemoryPushNotificationConfigStore creates a new in-memory push notification config store.
func NewInMemoryPushNotificationConfigStore() *InMemoryPushNotificationConfigStore {
	return &InMemoryPushNotificationConfigStore{
		configs: make(map[string]*a2a.PushNotificationConfig),
	}
}

// GetConfig retrieves the config of a task.
func (s *InMemoryPushNotificationConfigStore) GetConfig(ctx context.Context, taskID string) (*a2a.PushNotificationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	config, ok := s.configs[taskID]
	if !ok {
		return nil, a2a.PushNotificationConfigNotFoundError{TaskID: taskID}
	}
	return config.Clone(), nil
}

// SaveConfig stores config for a task.
func (s *InMemoryPushNotificationConfigStore) SaveConfig(ctx context.Context, taskID string, config *a2a.PushNotificationConfig) error {
	if err := validatePushConfig(taskID, config); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[taskID] = config.Clone()
	return nil
}

// DeleteConfig removes the config of a task.
func (s *InMemoryPushNotificationConfigStore) DeleteConfig(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, taskID)
	return nil
}

// ListConfigs returns every stored config.
func (s *InMemoryPushNotificationConfigStore) ListConfigs(ctx context.Context) (map[string]*a2a.PushNotificationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*a2a.PushNotificationConfig, len(s.configs))
	for taskID, config := range s.configs {
		result[taskID] = config.Clone()
	}
	return result, nil
}

// Initialize prepares the in-memory storage for use.
func (s *InMemoryPushNotificationConfigStore) Initialize(ctx context.Context) error {
	return nil
}

// Close cleanly shuts down the in-memory storage.
func (s *InMemoryPushNotificationConfigStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.configs)
	return nil
}

// DefaultRedisKeyPrefix prefixes every key written by RedisPushNotificationConfigStore.
const DefaultRedisKeyPrefix = "a2a:push:"

// RedisPushNotificationConfigStore keeps push notification configs in Redis, one string key per
// task. Configs can be shared by several server processes.
type RedisPushNotificationConfigStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

var _ PushNotificationConfigStore = (*RedisPushNotificationConfigStore)(nil)

// RedisPushNotificationConfigStoreConfig holds configuration for RedisPushNotificationConfigStore.
type RedisPushNotificationConfigStoreConfig struct {
	Redis     *redis.Client
	KeyPrefix string        // Optional, defaults to DefaultRedisKeyPrefix
	TTL       time.Duration // Optional expiry of each config; zero keeps configs forever
}

// NewRedisPushNotificationConfigStore creates a new RedisPushNotificationConfigStore.
func NewRedisPushNotificationConfigStore(config RedisPushNotificationConfigStoreConfig) (*RedisPushNotificationConfigStore, error) {
	if config.Redis == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisPushNotificationConfigStore{
		rdb:    config.Redis,
		prefix: prefix,
		ttl:    config.TTL,
	}, nil
}

func (s *RedisPushNotificationConfigStore) key(taskID string) string {
	return s.prefix + taskID
}

// GetConfig retrieves the config of a task.
func (s *RedisPushNotificationConfigStore) GetConfig(ctx context.Context, taskID string) (*a2a.PushNotificationConfig, error) {
	b, err := s.rdb.Get(ctx, s.key(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, a2a.PushNotificationConfigNotFoundError{TaskID: taskID}
	}
	if err != nil {
		return nil, NewTaskStoreError("get push config", taskID, err)
	}

	var config a2a.PushNotificationConfig
	if err := json.Unmarshal(b, &config); err != nil {
		return nil, NewTaskStoreError("decode push config", taskID, err)
	}
	return &config, nil
}

// SaveConfig stores config for a task with a plain SET, so the last write wins.
func (s *RedisPushNotificationConfigStore) SaveConfig(ctx context.Context, taskID string, config *a2a.PushNotificationConfig) error {
	if err := validatePushConfig(taskID, config); err != nil {
		return err
	}
	b, err := json.Marshal(config)
	if err != nil {
		return NewTaskStoreError("encode push config", taskID, err)
	}
	if err := s.rdb.Set(ctx, s.key(taskID), b, s.ttl).Err(); err != nil {
		return NewTaskStoreError("save push config", taskID, err)
	}
	return nil
}

// DeleteConfig removes the config of a task.
func (s *RedisPushNotificationConfigStore) DeleteConfig(ctx context.Context, taskID string) error {
	if err := s.rdb.Del(ctx, s.key(taskID)).Err(); err != nil {
		return NewTaskStoreError("delete push config", taskID, err)
	}
	return nil
}

// ListConfigs scans the key prefix and returns every stored config.
func (s *RedisPushNotificationConfigStore) ListConfigs(ctx context.Context) (map[string]*a2a.PushNotificationConfig, error) {
	result := make(map[string]*a2a.PushNotificationConfig)
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		taskID := iter.Val()[len(s.prefix):]
		config, err := s.GetConfig(ctx, taskID)
		if err != nil {
			// Expired between SCAN and GET.
			if errors.As(err, new(a2a.PushNotificationConfigNotFoundError)) {
				continue
			}
			return nil, err
		}
		result[taskID] = config
	}
	if err := iter.Err(); err != nil {
		return nil, NewTaskStoreError("list push configs", "", err)
	}
	return result, nil
}

// Initialize checks that Redis is reachable.
func (s *RedisPushNotificationConfigStore) Initialize(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return NewTaskStoreError("initialize push config store", "", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisPushNotificationConfigStore) Close(ctx context.Context) error {
	return s.rdb.Close()
}

// DatabasePushNotificationConfigStore keeps push notification configs in a database table next
// to the tasks of a DatabaseTaskStore.
type DatabasePushNotificationConfigStore struct {
	db          *gorm.DB
	createTable bool
}

var _ PushNotificationConfigStore = (*DatabasePushNotificationConfigStore)(nil)

// NewDatabasePushNotificationConfigStore creates a new DatabasePushNotificationConfigStore.
func NewDatabasePushNotificationConfigStore(db *gorm.DB, createTable bool) (*DatabasePushNotificationConfigStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	return &DatabasePushNotificationConfigStore{db: db, createTable: createTable}, nil
}

// GetConfig retrieves the config of a task.
func (s *DatabasePushNotificationConfigStore) GetConfig(ctx context.Context, taskID string) (*a2a.PushNotificationConfig, error) {
	var model PushNotificationConfigModel
	if err := s.db.WithContext(ctx).Where("task_id = ?", taskID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, a2a.PushNotificationConfigNotFoundError{TaskID: taskID}
		}
		return nil, NewTaskStoreError("get push config", taskID, err)
	}
	config := model.Config.Val
	return &config, nil
}

// SaveConfig upserts the config of a task.
func (s *DatabasePushNotificationConfigStore) SaveConfig(ctx context.Context, taskID string, config *a2a.PushNotificationConfig) error {
	if err := validatePushConfig(taskID, config); err != nil {
		return err
	}

	model := &PushNotificationConfigModel{
		TaskID: taskID,
		Config: JSONColumn[a2a.PushNotificationConfig]{Val: *config.Clone()},
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"config", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return NewTaskStoreError("save push config", taskID, err)
	}
	return nil
}

// DeleteConfig removes the config of a task.
func (s *DatabasePushNotificationConfigStore) DeleteConfig(ctx context.Context, taskID string) error {
	if err := s.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&PushNotificationConfigModel{}).Error; err != nil {
		return NewTaskStoreError("delete push config", taskID, err)
	}
	return nil
}

// ListConfigs returns every stored config.
func (s *DatabasePushNotificationConfigStore) ListConfigs(ctx context.Context) (map[string]*a2a.PushNotificationConfig, error) {
	var models []PushNotificationConfigModel
	if err := s.db.WithContext(ctx).Order("task_id").Find(&models).Error; err != nil {
		return nil, NewTaskStoreError("list push configs", "", err)
	}

	result := make(map[string]*a2a.PushNotificationConfig, len(models))
	for _, m := range models {
		config := m.Config.Val
		result[m.TaskID] = &config
	}
	return result, nil
}

// Initialize creates the table when the store was configured to do so.
func (s *DatabasePushNotificationConfigStore) Initialize(ctx context.Context) error {
	if !s.createTable {
		return nil
	}
	if err := s.db.WithContext(ctx).AutoMigrate(&PushNotificationConfigModel{}); err != nil {
		return NewTaskStoreError("initialize push config store", "", err)
	}
	return nil
}

// Close is a no-op: the connection is owned by the DatabaseTaskStore sharing it.
func (s *DatabasePushNotificationConfigStore) Close(ctx context.Context) error {
	return nil
}
