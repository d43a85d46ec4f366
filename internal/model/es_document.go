package model

import "time"

// PageChunk 代表存储在 Elasticsearch 中的归档页面文本分块。
type PageChunk struct {
	ChunkKey    string    `json:"chunk_key"` // 唯一标识，taskID + chunkID
	TaskID      string    `json:"task_id"`
	SessionID   string    `json:"session_id"`
	URL         string    `json:"url"`
	ChunkID     int       `json:"chunk_id"`
	TextContent string    `json:"text_content"`
	Screenshot  string    `json:"screenshot_object,omitempty"`
	CapturedAt  time.Time `json:"captured_at"`
}

// PageSearchHit 是归档页面搜索返回给前端的结构。
type PageSearchHit struct {
	TaskID      string  `json:"taskId"`
	URL         string  `json:"url"`
	ChunkID     int     `json:"chunkId"`
	TextContent string  `json:"textContent"`
	Score       float64 `json:"score"`
}
