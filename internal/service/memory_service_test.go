package service

import (
	"context"
	"testing"
	"time"
	"yeti-ai-go/internal/model"
	"yeti-ai-go/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryService(t *testing.T) (MemoryService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	repo := repository.NewMemoryRepository(rdb, "yeti:memory:", 30*24*time.Hour)
	return NewMemoryService(repo), mr
}

func TestMemoryService_AppendAndHistory(t *testing.T) {
	svc, _ := newTestMemoryService(t)
	ctx := context.Background()

	svc.Append(ctx, "s1", model.ChatTurn{User: "hi", Yeti: "hello", Timestamp: time.Now().UTC()})
	svc.Append(ctx, "s1", model.ChatTurn{User: "again", Yeti: "yes", Timestamp: time.Now().UTC()})

	turns := svc.History(ctx, "s1")
	require.Len(t, turns, 2)
	assert.Equal(t, "s1", turns[0].SessionID)
	assert.Equal(t, "again", turns[1].User)
}

func TestMemoryService_IgnoresEmptySession(t *testing.T) {
	svc, mr := newTestMemoryService(t)

	svc.Append(context.Background(), "", model.ChatTurn{User: "hi"})
	assert.Empty(t, mr.Keys())
}

func TestMemoryService_Clear(t *testing.T) {
	svc, _ := newTestMemoryService(t)
	ctx := context.Background()

	svc.Append(ctx, "s1", model.ChatTurn{User: "hi"})
	require.NoError(t, svc.Clear(ctx, "s1"))
	assert.Empty(t, svc.History(ctx, "s1"))

	// 清除不存在的会话也算成功
	assert.NoError(t, svc.Clear(ctx, "missing"))
}

func TestMemoryService_StoreDown(t *testing.T) {
	svc, mr := newTestMemoryService(t)
	ctx := context.Background()
	mr.Close()

	svc.Append(ctx, "s1", model.ChatTurn{User: "hi"})
	turns := svc.History(ctx, "s1")
	assert.NotNil(t, turns)
	assert.Empty(t, turns)
	assert.ErrorIs(t, svc.Clear(ctx, "s1"), ErrMemoryUnavailable)
}

func TestMemoryService_NotConfigured(t *testing.T) {
	svc := NewMemoryService(nil)
	ctx := context.Background()

	svc.Append(ctx, "s1", model.ChatTurn{User: "hi"})
	assert.Empty(t, svc.History(ctx, "s1"))
	assert.ErrorIs(t, svc.Clear(ctx, "s1"), ErrMemoryUnavailable)
}
