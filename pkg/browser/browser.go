// Package browser 封装无头浏览器，为每次浏览提供一个独立的会话。
package browser

import (
	"context"
	"fmt"
	"time"
	"yeti-ai-go/internal/config"
	"yeti-ai-go/pkg/log"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Launcher 负责启动浏览器会话。
type Launcher interface {
	Open(ctx context.Context, headless bool) (Session, error)
}

// Session 是一个独立的浏览器上下文，由单个请求独占，用完必须 Close。
type Session interface {
	Navigate(url string, timeout time.Duration) error
	Count(selector string) (int, error)
	Screenshot() ([]byte, error)
	Markup() (string, error)
	Close() error
}

type chromeLauncher struct {
	execPath string
}

// NewLauncher 创建基于 Chrome DevTools 协议的 Launcher。
func NewLauncher(cfg config.BrowserConfig) Launcher {
	return &chromeLauncher{execPath: cfg.ExecPath}
}

// Open 启动一个新的浏览器进程并打开一个标签页。
func (l *chromeLauncher) Open(ctx context.Context, headless bool) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
	)
	if l.execPath != "" {
		opts = append(opts, chromedp.ExecPath(l.execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// 首次 Run 分配浏览器，此处的 ctx 不能带超时，否则超时后浏览器会被关闭
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	log.Debugf("[Browser] 浏览器会话已启动, headless: %v", headless)
	return &chromeSession{ctx: tabCtx, cancelTab: tabCancel, cancelAlloc: allocCancel}, nil
}

type chromeSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// Navigate 打开页面并等待文档可用，不等待图片等子资源的 load 事件。
func (s *chromeSession) Navigate(url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(ctx, domContentLoaded(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// domContentLoaded 发起导航后只等到 body 就绪。chromedp.Navigate 会等待 load 事件。
func domContentLoaded(url string) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, _, errorText, err := page.Navigate(url).Do(ctx)
			if err != nil {
				return err
			}
			return navigationError(errorText)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
}

// navigationError 把 Page.navigate 返回的 errorText（如 net::ERR_NAME_NOT_RESOLVED）转为 error。
func navigationError(errorText string) error {
	if errorText == "" {
		return nil
	}
	return fmt.Errorf("page load error %s", errorText)
}

func (s *chromeSession) Count(selector string) (int, error) {
	var n int
	expr := fmt.Sprintf("document.querySelectorAll(%q).length", selector)
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(expr, &n)); err != nil {
		return 0, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	return n, nil
}

// Screenshot 截取整页 PNG。
func (s *chromeSession) Screenshot() ([]byte, error) {
	var buf []byte
	if err := chromedp.Run(s.ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Markup 返回当前文档的完整 HTML。
func (s *chromeSession) Markup() (string, error) {
	var markup string
	if err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page markup: %w", err)
	}
	return markup, nil
}

// Close 关闭标签页与浏览器进程，可重复调用。
func (s *chromeSession) Close() error {
	s.cancelTab()
	s.cancelAlloc()
	log.Debugf("[Browser] 浏览器会话已关闭")
	return nil
}
