package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
	"yeti-ai-go/internal/model"
	"yeti-ai-go/internal/repository"
	"yeti-ai-go/pkg/es"
	"yeti-ai-go/pkg/log"
	"yeti-ai-go/pkg/tasks"

	"github.com/google/uuid"
)

var (
	// ErrArchiveUnavailable 表示页面归档所需的基础设施未配置或不可用。
	ErrArchiveUnavailable = errors.New("page archive unavailable")
	// ErrTaskNotFound 表示浏览任务不存在或已过期。
	ErrTaskNotFound = errors.New("browse task not found")
	// ErrInvalidURL 表示待浏览的地址不是合法的 http(s) URL。
	ErrInvalidURL = errors.New("invalid url")
)

// TaskProducer 投递异步浏览任务，由 pkg/kafka 的生产者实现。
type TaskProducer interface {
	ProduceBrowseTask(ctx context.Context, task tasks.BrowseTask) error
}

// ArchiveService 管理异步浏览任务以及归档页面的检索。
type ArchiveService interface {
	Enqueue(ctx context.Context, rawURL, sessionID string, headless bool) (*model.BrowseTaskStatus, error)
	Status(ctx context.Context, taskID string) (*model.BrowseTaskStatus, error)
	SearchPages(ctx context.Context, query string) ([]model.PageSearchHit, error)
}

type archiveService struct {
	producer  TaskProducer
	taskRepo  repository.BrowseTaskRepository
	pageIndex es.PageIndex
	now       func() time.Time
	newID     func() string
}

// NewArchiveService 创建 ArchiveService。任一依赖为 nil 时相应操作返回 ErrArchiveUnavailable。
func NewArchiveService(producer TaskProducer, taskRepo repository.BrowseTaskRepository, pageIndex es.PageIndex) ArchiveService {
	return &archiveService{
		producer:  producer,
		taskRepo:  taskRepo,
		pageIndex: pageIndex,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return nil
}

// Enqueue 登记一个 pending 状态的任务并投递到消息队列。
func (s *archiveService) Enqueue(ctx context.Context, rawURL, sessionID string, headless bool) (*model.BrowseTaskStatus, error) {
	if s.producer == nil || s.taskRepo == nil {
		return nil, ErrArchiveUnavailable
	}
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	now := s.now()
	task := tasks.BrowseTask{
		TaskID:      s.newID(),
		URL:         rawURL,
		SessionID:   sessionID,
		Headless:    headless,
		RequestedAt: now,
	}
	status := model.BrowseTaskStatus{
		TaskID:    task.TaskID,
		URL:       rawURL,
		SessionID: sessionID,
		Status:    model.BrowseTaskPending,
		UpdatedAt: now,
	}
	if err := s.taskRepo.Save(ctx, status); err != nil {
		log.Errorf("[ArchiveService] 保存任务状态失败, task: %s, error: %v", task.TaskID, err)
		return nil, fmt.Errorf("%w: %v", ErrArchiveUnavailable, err)
	}

	if err := s.producer.ProduceBrowseTask(ctx, task); err != nil {
		log.Errorf("[ArchiveService] 投递浏览任务失败, task: %s, error: %v", task.TaskID, err)
		status.Status = model.BrowseTaskFailed
		status.Error = err.Error()
		status.UpdatedAt = s.now()
		if serr := s.taskRepo.Save(ctx, status); serr != nil {
			log.Warnf("[ArchiveService] 更新任务状态失败, task: %s, error: %v", task.TaskID, serr)
		}
		return nil, fmt.Errorf("%w: %v", ErrArchiveUnavailable, err)
	}

	log.Infof("[ArchiveService] 浏览任务已投递, task: %s, url: %s", task.TaskID, rawURL)
	return &status, nil
}

func (s *archiveService) Status(ctx context.Context, taskID string) (*model.BrowseTaskStatus, error) {
	if s.taskRepo == nil {
		return nil, ErrArchiveUnavailable
	}
	status, err := s.taskRepo.Get(ctx, taskID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveUnavailable, err)
	}
	return status, nil
}

// SearchPages 在已归档的页面分块中做全文检索。
func (s *archiveService) SearchPages(ctx context.Context, query string) ([]model.PageSearchHit, error) {
	if s.pageIndex == nil {
		return nil, ErrArchiveUnavailable
	}
	hits, err := s.pageIndex.Search(ctx, query, 10)
	if err != nil {
		log.Errorf("[ArchiveService] 归档检索失败, query: %s, error: %v", query, err)
		return nil, fmt.Errorf("%w: %v", ErrArchiveUnavailable, err)
	}
	return hits, nil
}
