package model

import "time"

// DefaultAlias 是未指定模型时使用的自适应别名。
const DefaultAlias = "yeti-default"

// ChatRequest 是聊天接口的请求体。
type ChatRequest struct {
	Message   string                 `json:"message" binding:"required"`
	SessionID string                 `json:"session_id"`
	Model     string                 `json:"model"`
	WebMode   bool                   `json:"web_mode"`
	Context   map[string]interface{} `json:"context"`
}

// ChatResponse 是聊天接口的响应信封。失败时同样返回该结构，Reasoning 为错误标记。
type ChatResponse struct {
	Response      string         `json:"response"`
	SessionID     string         `json:"session_id"`
	ModelUsed     string         `json:"model_used"`
	TaskPlan      []string       `json:"task_plan"`
	Reasoning     string         `json:"reasoning"`
	WebSearchData *WebSearchData `json:"web_search_data"`
	Timestamp     time.Time      `json:"timestamp"`
}

// AgentStatus 是代理状态接口的返回结构（静态）。
type AgentStatus struct {
	Status      string    `json:"status"`
	CurrentTask string    `json:"current_task"`
	SessionID   string    `json:"session_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// ModelProfile 描述一个面向用户的模型别名。
type ModelProfile struct {
	Alias         string   `json:"alias"`
	DisplayName   string   `json:"displayName"`
	Description   string   `json:"description"`
	Strengths     []string `json:"strengths"`
	InternalModel string   `json:"internalModel"`
	Provider      string   `json:"provider"`
}
