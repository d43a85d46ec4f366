// Package model 包含了应用的数据模型定义。
package model

import "time"

// ChatTurn 代表存储在 Redis 会话日志中的一轮问答，写入后不再修改。
type ChatTurn struct {
	SessionID string       `json:"session_id"`
	User      string       `json:"user"`
	Yeti      string       `json:"yeti"`
	Timestamp time.Time    `json:"timestamp"`
	Metadata  TurnMetadata `json:"metadata"`
}

// TurnMetadata 记录该轮的路由与检索信息。
type TurnMetadata struct {
	ModelUsed     string                 `json:"model_used"`
	SelectedModel string                 `json:"selected_model"`
	TaskPlan      []string               `json:"task_plan"`
	WebMode       bool                   `json:"web_mode"`
	WebSearchData *WebSearchData         `json:"web_search_data"`
	Context       map[string]interface{} `json:"context,omitempty"`
}

// MemoryResponse 是会话历史查询接口的返回结构。
type MemoryResponse struct {
	SessionID     string     `json:"session_id"`
	Conversations []ChatTurn `json:"conversations"`
	TotalMessages int        `json:"total_messages"`
}
