package database

import (
	"context"
	"fmt"
	"time"
	"yeti-ai-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// NewRedis 根据 redis:// URL 创建 Redis 客户端。
// 连接失败只记录日志，不阻止启动：记忆功能在 Redis 不可用时降级。
func NewRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Redis 连接失败，记忆功能将降级运行", err)
		return rdb, nil
	}

	log.Info("Redis client connected successfully")
	return rdb, nil
}
