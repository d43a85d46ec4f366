// Package notify 负责在聊天轮次完成后向外部发送通知。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
	"yeti-ai-go/internal/config"
	"yeti-ai-go/pkg/log"
	"yeti-ai-go/pkg/metrics"
	"yeti-ai-go/pkg/tasks"
)

// Sink 是一个通知出口。
type Sink interface {
	Name() string
	Send(ctx context.Context, event tasks.TurnCompleted) error
}

// Notifier 以“发出即忘”的方式分发通知：不等待、不重试，失败只记录日志。
type Notifier interface {
	Notify(event tasks.TurnCompleted)
	// Wait 等待已发出的通知结束，供优雅退出使用。
	Wait()
}

type notifier struct {
	sinks   []Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewNotifier 创建一个 Notifier，nil 的 sink 会被忽略。
func NewNotifier(timeout time.Duration, sinks ...Sink) Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	n := &notifier{timeout: timeout}
	for _, s := range sinks {
		if s != nil {
			n.sinks = append(n.sinks, s)
		}
	}
	return n
}

func (n *notifier) Notify(event tasks.TurnCompleted) {
	for _, sink := range n.sinks {
		n.wg.Add(1)
		go func(s Sink) {
			defer n.wg.Done()
			// 与请求生命周期解耦
			ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
			defer cancel()
			if err := s.Send(ctx, event); err != nil {
				metrics.Failure(s.Name())
				log.Errorf("[Notifier] 通知发送失败, sink: %s, session: %s, error: %v", s.Name(), event.SessionID, err)
				return
			}
			log.Infof("[Notifier] 通知已发送, sink: %s, session: %s", s.Name(), event.SessionID)
		}(sink)
	}
}

func (n *notifier) Wait() {
	n.wg.Wait()
}

// webhookPayload 是回调请求体。
type webhookPayload struct {
	SessionID string    `json:"session_id"`
	Output    string    `json:"output"`
	Timestamp time.Time `json:"timestamp"`
}

type webhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink 创建回调出口，未配置 URL 时返回 nil。
func NewWebhookSink(cfg config.WebhookConfig) Sink {
	if cfg.URL == "" {
		return nil
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &webhookSink{url: cfg.URL, client: &http.Client{Timeout: timeout}}
}

func (w *webhookSink) Name() string { return metrics.CollaboratorWebhook }

func (w *webhookSink) Send(ctx context.Context, event tasks.TurnCompleted) error {
	body, err := json.Marshal(webhookPayload{
		SessionID: event.SessionID,
		Output:    event.Output,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	// 回调方的响应码只记录，不视为失败
	if resp.StatusCode >= http.StatusBadRequest {
		log.Warnf("[Notifier] 回调返回非成功状态码: %s", resp.Status)
	}
	return nil
}

// TurnPublisher 发布轮次完成事件，由 pkg/kafka 的生产者实现。
type TurnPublisher interface {
	PublishTurn(ctx context.Context, event tasks.TurnCompleted) error
}

type kafkaSink struct {
	publisher TurnPublisher
}

// NewKafkaSink 创建 Kafka 事件出口，publisher 为 nil 时返回 nil。
func NewKafkaSink(publisher TurnPublisher) Sink {
	if publisher == nil {
		return nil
	}
	return &kafkaSink{publisher: publisher}
}

func (k *kafkaSink) Name() string { return metrics.CollaboratorKafka }

func (k *kafkaSink) Send(ctx context.Context, event tasks.TurnCompleted) error {
	return k.publisher.PublishTurn(ctx, event)
}
