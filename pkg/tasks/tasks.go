// Package tasks defines the messages that are sent to Kafka.
package tasks

import "time"

// BrowseTask represents an asynchronous page browse-and-archive job.
type BrowseTask struct {
	TaskID      string    `json:"task_id"`
	URL         string    `json:"url"`
	SessionID   string    `json:"session_id"`
	Headless    bool      `json:"headless"`
	RequestedAt time.Time `json:"requested_at"`
}

// TurnCompleted is published after a chat turn has been answered.
type TurnCompleted struct {
	SessionID     string    `json:"session_id"`
	Output        string    `json:"output"`
	ModelUsed     string    `json:"model_used"`
	SelectedModel string    `json:"selected_model"`
	TaskPlan      []string  `json:"task_plan"`
	Timestamp     time.Time `json:"timestamp"`
}
