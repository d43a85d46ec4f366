// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"yeti-ai-go/internal/model"
	"yeti-ai-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// MemoryRepository 定义了会话日志的操作接口。每个会话是一个只追加的 Redis list。
type MemoryRepository interface {
	Append(ctx context.Context, sessionID string, turn model.ChatTurn) error
	List(ctx context.Context, sessionID string) ([]model.ChatTurn, error)
	Delete(ctx context.Context, sessionID string) error
}

type redisMemoryRepository struct {
	redisClient *redis.Client
	keyPrefix   string
	retention   time.Duration
}

// defaultRetention 在配置的保留时长非正数时使用，EXPIRE 0 会立即删除会话。
const defaultRetention = 30 * 24 * time.Hour

// NewMemoryRepository 创建一个新的 MemoryRepository 实例。
func NewMemoryRepository(redisClient *redis.Client, keyPrefix string, retention time.Duration) MemoryRepository {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &redisMemoryRepository{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		retention:   retention,
	}
}

func (r *redisMemoryRepository) key(sessionID string) string {
	return r.keyPrefix + sessionID
}

// Append 在一个 MULTI/EXEC 中追加记录并重置过期时间。
func (r *redisMemoryRepository) Append(ctx context.Context, sessionID string, turn model.ChatTurn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal chat turn: %w", err)
	}
	key := r.key(sessionID)
	_, err = r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.Expire(ctx, key, r.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append chat turn: %w", err)
	}
	return nil
}

// List 按插入顺序返回会话的全部记录，会话不存在时返回空切片。
func (r *redisMemoryRepository) List(ctx context.Context, sessionID string) ([]model.ChatTurn, error) {
	items, err := r.redisClient.LRange(ctx, r.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation history: %w", err)
	}
	turns := make([]model.ChatTurn, 0, len(items))
	for i, item := range items {
		var turn model.ChatTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			log.Warnf("跳过无法解析的会话记录, session: %s, index: %d, err: %v", sessionID, i, err)
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Delete 删除整个会话日志。键不存在不视为错误。
func (r *redisMemoryRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.redisClient.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete conversation history: %w", err)
	}
	return nil
}
