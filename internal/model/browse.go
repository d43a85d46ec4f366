package model

import "time"

// BrowseRequest 描述一次页面浏览。
type BrowseRequest struct {
	URL       string
	SessionID string
	Headless  bool
	Archive   bool
	TaskID    string
}

// BrowseResult 是浏览代理的输出。失败时只包含 URL、Error 与 Timestamp。
type BrowseResult struct {
	URL              string    `json:"url"`
	SessionID        string    `json:"session_id,omitempty"`
	ScreenshotBase64 string    `json:"screenshot_base64,omitempty"`
	HTMLContent      string    `json:"html_content,omitempty"`
	TextContent      string    `json:"text_content,omitempty"`
	ScreenshotObject string    `json:"screenshot_object,omitempty"`
	Error            string    `json:"error,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Failed 表示该结果是否为错误变体。
func (r BrowseResult) Failed() bool {
	return r.Error != ""
}

// 异步浏览任务的状态。
const (
	BrowseTaskPending   = "pending"
	BrowseTaskRunning   = "running"
	BrowseTaskCompleted = "completed"
	BrowseTaskFailed    = "failed"
)

// BrowseTaskStatus 记录异步浏览任务的进度，保存在 Redis 中。
type BrowseTaskStatus struct {
	TaskID           string    `json:"task_id"`
	URL              string    `json:"url"`
	SessionID        string    `json:"session_id"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
	ScreenshotObject string    `json:"screenshot_object,omitempty"`
	IndexedChunks    int       `json:"indexed_chunks"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PageCapture 是一次页面抓取的原始产物，供浏览接口与归档流水线共用。
type PageCapture struct {
	URL        string
	Screenshot []byte
	HTML       string
	Text       string
	CapturedAt time.Time
}
