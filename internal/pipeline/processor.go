// Package pipeline 定义了异步浏览任务的归档流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
	"yeti-ai-go/internal/model"
	"yeti-ai-go/internal/repository"
	"yeti-ai-go/pkg/es"
	"yeti-ai-go/pkg/log"
	"yeti-ai-go/pkg/storage"
	"yeti-ai-go/pkg/tasks"
)

const (
	chunkSize    = 1000
	chunkOverlap = 100
)

// Capturer 抓取页面，由 service.BrowseService 实现。
type Capturer interface {
	Capture(ctx context.Context, req model.BrowseRequest) (*model.PageCapture, error)
}

// Processor 封装了浏览任务处理的所有依赖和逻辑。
type Processor struct {
	capturer    Capturer
	screenshots storage.ScreenshotStore
	pageIndex   es.PageIndex
	taskRepo    repository.BrowseTaskRepository
	now         func() time.Time
}

// NewProcessor 创建一个新的 Processor 实例。screenshots 为 nil 时跳过截图上传。
func NewProcessor(
	capturer Capturer,
	screenshots storage.ScreenshotStore,
	pageIndex es.PageIndex,
	taskRepo repository.BrowseTaskRepository,
) *Processor {
	return &Processor{
		capturer:    capturer,
		screenshots: screenshots,
		pageIndex:   pageIndex,
		taskRepo:    taskRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Process 是浏览任务处理的主函数。
func (p *Processor) Process(ctx context.Context, task tasks.BrowseTask) error {
	log.Infof("[Processor] 开始处理浏览任务, TaskID: %s, URL: %s", task.TaskID, task.URL)
	status := model.BrowseTaskStatus{
		TaskID:    task.TaskID,
		URL:       task.URL,
		SessionID: task.SessionID,
		Status:    model.BrowseTaskRunning,
	}
	p.saveStatus(ctx, status)

	if err := p.run(ctx, task, &status); err != nil {
		status.Status = model.BrowseTaskFailed
		status.Error = err.Error()
		p.saveStatus(ctx, status)
		return err
	}

	status.Status = model.BrowseTaskCompleted
	status.Error = ""
	p.saveStatus(ctx, status)
	log.Infof("[Processor] 浏览任务处理成功完成, TaskID: %s, 分块数: %d", task.TaskID, status.IndexedChunks)
	return nil
}

func (p *Processor) run(ctx context.Context, task tasks.BrowseTask, status *model.BrowseTaskStatus) error {
	// 1. 抓取页面
	log.Infof("[Processor] 步骤1: 抓取页面, URL: %s", task.URL)
	page, err := p.capturer.Capture(ctx, model.BrowseRequest{
		URL:       task.URL,
		SessionID: task.SessionID,
		Headless:  task.Headless,
		TaskID:    task.TaskID,
	})
	if err != nil {
		log.Errorf("[Processor] 抓取页面失败, URL: %s, Error: %v", task.URL, err)
		return fmt.Errorf("抓取页面失败: %w", err)
	}
	log.Infof("[Processor] 步骤1: 页面抓取成功, 文本长度: %d 字符", utf8.RuneCountInString(page.Text))

	// 2. 上传截图到 MinIO
	if p.screenshots != nil && len(page.Screenshot) > 0 {
		log.Info("[Processor] 步骤2: 上传截图到MinIO")
		objectName, err := p.screenshots.PutScreenshot(ctx, task.TaskID, page.Screenshot)
		if err != nil {
			log.Errorf("[Processor] 上传截图失败, TaskID: %s, Error: %v", task.TaskID, err)
			return fmt.Errorf("上传截图失败: %w", err)
		}
		status.ScreenshotObject = objectName
	}

	// 3. 文本切块
	log.Infof("[Processor] 步骤3: 进行文本分块, chunkSize: %d, chunkOverlap: %d", chunkSize, chunkOverlap)
	chunks := splitText(page.Text, chunkSize, chunkOverlap)
	log.Infof("[Processor] 步骤3: 文本分块完成, 共生成 %d 个分块", len(chunks))
	if len(chunks) == 0 {
		log.Warnf("[Processor] 页面没有可索引的文本, TaskID: %s", task.TaskID)
		return nil
	}
	if p.pageIndex == nil {
		return errors.New("页面索引未配置")
	}

	// 4. 索引到 Elasticsearch
	for i, text := range chunks {
		chunk := model.PageChunk{
			ChunkKey:    fmt.Sprintf("%s_%d", task.TaskID, i),
			TaskID:      task.TaskID,
			SessionID:   task.SessionID,
			URL:         task.URL,
			ChunkID:     i,
			TextContent: text,
			Screenshot:  status.ScreenshotObject,
			CapturedAt:  page.CapturedAt,
		}
		if err := p.pageIndex.IndexChunk(ctx, chunk); err != nil {
			log.Errorf("[Processor] 索引分块 %d 到Elasticsearch失败, Error: %v", i, err)
			return fmt.Errorf("索引块 %d 到 Elasticsearch 失败: %w", i, err)
		}
		status.IndexedChunks = i + 1
	}
	log.Info("[Processor] 步骤4: 所有分块索引完毕")
	return nil
}

// saveStatus 写入任务状态，失败只记录日志。
func (p *Processor) saveStatus(ctx context.Context, status model.BrowseTaskStatus) {
	status.UpdatedAt = p.now()
	if err := p.taskRepo.Save(ctx, status); err != nil {
		log.Warnf("[Processor] 更新任务状态失败, TaskID: %s, Status: %s, Error: %v", status.TaskID, status.Status, err)
	}
}

// splitText 将长文本按指定大小和重叠进行切分。重叠不小于块大小时按无重叠切分。
func splitText(text string, chunkSize int, chunkOverlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 || chunkSize <= 0 {
		return nil
	}
	step := chunkSize - chunkOverlap
	if step <= 0 || chunkOverlap < 0 {
		step = chunkSize
	}

	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
