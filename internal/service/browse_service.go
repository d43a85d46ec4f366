package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
	"yeti-ai-go/internal/config"
	"yeti-ai-go/internal/model"
	"yeti-ai-go/pkg/browser"
	"yeti-ai-go/pkg/htmltext"
	"yeti-ai-go/pkg/log"
	"yeti-ai-go/pkg/metrics"
	"yeti-ai-go/pkg/storage"

	"github.com/google/uuid"
)

// captchaSelector 用于识别页面中的验证码 iframe。
const captchaSelector = `iframe[src*="captcha"]`

// BrowseService 定义了浏览代理的业务接口。
type BrowseService interface {
	// Browse 打开页面并返回截图、HTML 与截断后的正文。失败时返回错误变体，不返回 error。
	Browse(ctx context.Context, req model.BrowseRequest) model.BrowseResult
	// Capture 返回未截断的抓取结果，供归档流水线使用。
	Capture(ctx context.Context, req model.BrowseRequest) (*model.PageCapture, error)
}

type browseService struct {
	launcher    browser.Launcher
	screenshots storage.ScreenshotStore
	cfg         config.BrowserConfig
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
}

// NewBrowseService 创建一个新的 BrowseService。screenshots 为 nil 时不归档截图。
func NewBrowseService(launcher browser.Launcher, screenshots storage.ScreenshotStore, cfg config.BrowserConfig) BrowseService {
	if cfg.NavigationTimeoutSeconds <= 0 {
		cfg.NavigationTimeoutSeconds = 60
	}
	if cfg.CaptchaWaitSeconds <= 0 {
		cfg.CaptchaWaitSeconds = 5
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = 2000
	}
	return &browseService{
		launcher:    launcher,
		screenshots: screenshots,
		cfg:         cfg,
		sleep:       sleepContext,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *browseService) Browse(ctx context.Context, req model.BrowseRequest) model.BrowseResult {
	ctx = context.WithoutCancel(ctx)
	page, err := s.Capture(ctx, req)
	if err != nil {
		metrics.BrowseResults.WithLabelValues("error").Inc()
		log.Errorf("[BrowseService] 浏览页面失败, url: %s, error: %v", req.URL, err)
		return model.BrowseResult{
			URL:       req.URL,
			Error:     err.Error(),
			Timestamp: s.now(),
		}
	}

	result := model.BrowseResult{
		URL:              page.URL,
		SessionID:        req.SessionID,
		ScreenshotBase64: base64.StdEncoding.EncodeToString(page.Screenshot),
		HTMLContent:      page.HTML,
		TextContent:      htmltext.Truncate(page.Text, s.cfg.MaxTextLength),
		Timestamp:        page.CapturedAt,
	}

	if req.Archive {
		result.ScreenshotObject = s.archive(ctx, req, page.Screenshot)
	}

	metrics.BrowseResults.WithLabelValues("ok").Inc()
	log.Infof("[BrowseService] 页面浏览成功, url: %s, session: %s", req.URL, req.SessionID)
	return result
}

// archive 上传截图，失败不影响浏览结果。
func (s *browseService) archive(ctx context.Context, req model.BrowseRequest, png []byte) string {
	if s.screenshots == nil {
		log.Warnf("[BrowseService] 截图归档未配置, 跳过, url: %s", req.URL)
		return ""
	}
	key := req.TaskID
	if key == "" {
		key = uuid.NewString()
	}
	objectName, err := s.screenshots.PutScreenshot(ctx, key, png)
	if err != nil {
		metrics.Failure(metrics.CollaboratorArchive)
		log.Errorf("[BrowseService] 截图归档失败, url: %s, error: %v", req.URL, err)
		return ""
	}
	return objectName
}

// Capture 与调用方的取消解耦，浏览一旦开始只受导航超时约束。
func (s *browseService) Capture(ctx context.Context, req model.BrowseRequest) (*model.PageCapture, error) {
	ctx = context.WithoutCancel(ctx)
	if req.URL == "" {
		return nil, errors.New("url is required")
	}

	session, err := s.launcher.Open(ctx, req.Headless)
	if err != nil {
		metrics.Failure(metrics.CollaboratorBrowser)
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warnf("[BrowseService] 关闭浏览器会话失败: %v", cerr)
		}
	}()

	log.Infof("[BrowseService] 正在打开页面: %s", req.URL)
	if err := session.Navigate(req.URL, time.Duration(s.cfg.NavigationTimeoutSeconds)*time.Second); err != nil {
		return nil, err
	}

	captchas, err := session.Count(captchaSelector)
	if err != nil {
		return nil, err
	}
	if captchas > 0 {
		log.Warnf("[BrowseService] 页面中检测到验证码, 等待 %d 秒: %s", s.cfg.CaptchaWaitSeconds, req.URL)
		if err := s.sleep(ctx, time.Duration(s.cfg.CaptchaWaitSeconds)*time.Second); err != nil {
			return nil, err
		}
	}

	png, err := session.Screenshot()
	if err != nil {
		return nil, err
	}
	markup, err := session.Markup()
	if err != nil {
		return nil, err
	}
	text, err := htmltext.Extract(markup)
	if err != nil {
		return nil, fmt.Errorf("failed to extract page text: %w", err)
	}

	return &model.PageCapture{
		URL:        req.URL,
		Screenshot: png,
		HTML:       markup,
		Text:       text,
		CapturedAt: s.now(),
	}, nil
}
