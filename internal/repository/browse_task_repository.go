package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"yeti-ai-go/internal/model"

	"github.com/go-redis/redis/v8"
)

// ErrNotFound 表示记录不存在。
var ErrNotFound = errors.New("record not found")

const (
	browseTaskTTL     = 24 * time.Hour
	browseAttemptsTTL = 24 * time.Hour
)

// BrowseTaskRepository 定义了异步浏览任务状态的存取操作。
type BrowseTaskRepository interface {
	Save(ctx context.Context, status model.BrowseTaskStatus) error
	Get(ctx context.Context, taskID string) (*model.BrowseTaskStatus, error)
	IncrAttempts(ctx context.Context, taskID string) (int64, error)
	ClearAttempts(ctx context.Context, taskID string) error
}

type redisBrowseTaskRepository struct {
	redisClient *redis.Client
}

// NewBrowseTaskRepository 创建一个新的 BrowseTaskRepository 实例。
func NewBrowseTaskRepository(redisClient *redis.Client) BrowseTaskRepository {
	return &redisBrowseTaskRepository{redisClient: redisClient}
}

func browseTaskKey(taskID string) string {
	return "yeti:browse:" + taskID
}

func browseAttemptsKey(taskID string) string {
	return "yeti:browse:attempts:" + taskID
}

// Save 覆盖写入任务状态，并刷新过期时间。
func (r *redisBrowseTaskRepository) Save(ctx context.Context, status model.BrowseTaskStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal browse task status: %w", err)
	}
	if err := r.redisClient.Set(ctx, browseTaskKey(status.TaskID), data, browseTaskTTL).Err(); err != nil {
		return fmt.Errorf("failed to save browse task status: %w", err)
	}
	return nil
}

// Get 读取任务状态，不存在时返回 ErrNotFound。
func (r *redisBrowseTaskRepository) Get(ctx context.Context, taskID string) (*model.BrowseTaskStatus, error) {
	data, err := r.redisClient.Get(ctx, browseTaskKey(taskID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get browse task status: %w", err)
	}
	var status model.BrowseTaskStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal browse task status: %w", err)
	}
	return &status, nil
}

// IncrAttempts 增加任务的失败次数并返回当前值。
func (r *redisBrowseTaskRepository) IncrAttempts(ctx context.Context, taskID string) (int64, error) {
	key := browseAttemptsKey(taskID)
	attempts, err := r.redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment attempts: %w", err)
	}
	_ = r.redisClient.Expire(ctx, key, browseAttemptsTTL).Err()
	return attempts, nil
}

// ClearAttempts 清理失败计数。
func (r *redisBrowseTaskRepository) ClearAttempts(ctx context.Context, taskID string) error {
	return r.redisClient.Del(ctx, browseAttemptsKey(taskID)).Err()
}
