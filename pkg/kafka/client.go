// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"yeti-ai-go/internal/config"
	"yeti-ai-go/pkg/log"
	"yeti-ai-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// maxAttempts 是一个浏览任务被放弃前的最大失败次数。
const maxAttempts = 3

// retryBackoff 返回第 attempt 次失败后、下一次重试前的等待时间。
var retryBackoff = func(attempt int64) time.Duration {
	return time.Duration(attempt) * 2 * time.Second
}

// TaskProcessor defines the interface for any service that can process a browse task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.BrowseTask) error
}

// AttemptCounter 记录任务失败次数，由 Redis 仓储实现。
type AttemptCounter interface {
	IncrAttempts(ctx context.Context, taskID string) (int64, error)
	ClearAttempts(ctx context.Context, taskID string) error
}

// messageWriter 是 kafka.Writer 的最小接口，便于测试替换。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer 负责发送轮次事件与浏览任务。
type Producer struct {
	turns  messageWriter
	browse messageWriter
}

func brokerList(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	addr := kafka.TCP(brokerList(cfg.Brokers)...)
	p := &Producer{
		turns: &kafka.Writer{
			Addr:                   addr,
			Topic:                  cfg.TurnTopic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		browse: &kafka.Writer{
			Addr:                   addr,
			Topic:                  cfg.BrowseTopic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
	log.Info("Kafka 生产者初始化成功")
	return p
}

// PublishTurn 发送一个轮次完成事件，以 session_id 作为消息键保证同一会话有序。
func (p *Producer) PublishTurn(ctx context.Context, event tasks.TurnCompleted) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal turn event: %w", err)
	}
	if err := p.turns.WriteMessages(ctx, kafka.Message{Key: []byte(event.SessionID), Value: value}); err != nil {
		return fmt.Errorf("failed to publish turn event: %w", err)
	}
	return nil
}

// ProduceBrowseTask 发送一个浏览任务到 Kafka。
func (p *Producer) ProduceBrowseTask(ctx context.Context, task tasks.BrowseTask) error {
	value, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal browse task: %w", err)
	}
	if err := p.browse.WriteMessages(ctx, kafka.Message{Key: []byte(task.TaskID), Value: value}); err != nil {
		return fmt.Errorf("failed to produce browse task: %w", err)
	}
	return nil
}

// Close 关闭所有 writer。
func (p *Producer) Close() error {
	return errors.Join(p.turns.Close(), p.browse.Close())
}

// messageReader 是 kafka.Reader 的最小接口。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// StartConsumer 启动一个 Kafka 消费者来处理浏览任务，ctx 取消后退出。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor, attempts AttemptCounter) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokerList(cfg.Brokers),
		Topic:    cfg.BrowseTopic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.BrowseTopic)
	consume(ctx, r, processor, attempts)

	if err := r.Close(); err != nil {
		log.Errorf("关闭 Kafka 消费者失败: %v", err)
	}
}

func consume(ctx context.Context, r messageReader, processor TaskProcessor, attempts AttemptCounter) {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Kafka 消费者收到退出信号")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}

		log.Infof("收到 Kafka 消息: offset %d", m.Offset)

		var task tasks.BrowseTask
		if err := json.Unmarshal(m.Value, &task); err != nil || task.TaskID == "" {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			commit(ctx, r, m)
			continue
		}

		handle(ctx, r, m, task, processor, attempts)
	}
}

// handle 同步处理一个任务；失败时原地重试，累计失败达到上限后提交 offset 放弃该任务。
func handle(ctx context.Context, r messageReader, m kafka.Message, task tasks.BrowseTask, processor TaskProcessor, attempts AttemptCounter) {
	for {
		log.Infof("开始处理浏览任务: TaskID=%s, URL=%s", task.TaskID, task.URL)
		err := processor.Process(ctx, task)
		if err == nil {
			log.Infof("浏览任务处理成功: TaskID=%s", task.TaskID)
			_ = attempts.ClearAttempts(ctx, task.TaskID)
			commit(ctx, r, m)
			return
		}

		log.Errorf("处理浏览任务失败: TaskID=%s, Error: %v", task.TaskID, err)
		n, incErr := attempts.IncrAttempts(ctx, task.TaskID)
		if incErr != nil {
			// Redis 异常时保守处理：不提交 offset，留给下一次再平衡重试
			log.Errorf("记录失败次数失败: TaskID=%s, Error: %v", task.TaskID, incErr)
			return
		}
		if n >= maxAttempts {
			log.Errorf("浏览任务多次失败(>=%d)，提交 offset 终止重试: TaskID=%s", maxAttempts, task.TaskID)
			commit(ctx, r, m)
			return
		}
		select {
		case <-time.After(retryBackoff(n)):
		case <-ctx.Done():
			// 停机中断重试，不提交 offset
			return
		}
	}
}

func commit(ctx context.Context, r messageReader, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
