// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"yeti-ai-go/internal/model"
	"yeti-ai-go/internal/repository"
	"yeti-ai-go/pkg/log"
	"yeti-ai-go/pkg/metrics"
)

// ErrMemoryUnavailable 表示会话存储不可用，与“没有可删除的内容”区分。
var ErrMemoryUnavailable = errors.New("memory service unavailable")

// MemoryService 定义了会话记忆的业务接口。
// 写入与读取都不会把存储故障抛给调用方，只有 Clear 会报告不可用。
type MemoryService interface {
	Append(ctx context.Context, sessionID string, turn model.ChatTurn)
	History(ctx context.Context, sessionID string) []model.ChatTurn
	Clear(ctx context.Context, sessionID string) error
}

type memoryService struct {
	repo repository.MemoryRepository
}

// NewMemoryService 创建一个新的 MemoryService。repo 为 nil 表示存储未配置。
func NewMemoryService(repo repository.MemoryRepository) MemoryService {
	return &memoryService{repo: repo}
}

// Append 追加一轮对话，失败只记录日志。
func (s *memoryService) Append(ctx context.Context, sessionID string, turn model.ChatTurn) {
	if s.repo == nil {
		return
	}
	if sessionID == "" {
		log.Warnf("[MemoryService] 忽略没有 session_id 的会话记录")
		return
	}
	turn.SessionID = sessionID
	if err := s.repo.Append(ctx, sessionID, turn); err != nil {
		metrics.Failure(metrics.CollaboratorMemory)
		log.Errorf("[MemoryService] 保存会话失败, session: %s, err: %v", sessionID, err)
		return
	}
	log.Infof("[MemoryService] 已保存会话, session: %s", sessionID)
}

// History 返回会话的全部记录，存储不可用时返回空切片。
func (s *memoryService) History(ctx context.Context, sessionID string) []model.ChatTurn {
	if s.repo == nil {
		return []model.ChatTurn{}
	}
	turns, err := s.repo.List(ctx, sessionID)
	if err != nil {
		metrics.Failure(metrics.CollaboratorMemory)
		log.Errorf("[MemoryService] 读取会话历史失败, session: %s, err: %v", sessionID, err)
		return []model.ChatTurn{}
	}
	return turns
}

// Clear 删除会话日志。删除不存在的会话成功返回；存储故障返回 ErrMemoryUnavailable。
func (s *memoryService) Clear(ctx context.Context, sessionID string) error {
	if s.repo == nil {
		return ErrMemoryUnavailable
	}
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		metrics.Failure(metrics.CollaboratorMemory)
		log.Errorf("[MemoryService] 清除会话失败, session: %s, err: %v", sessionID, err)
		return ErrMemoryUnavailable
	}
	log.Infof("[MemoryService] 已清除会话, session: %s", sessionID)
	return nil
}
