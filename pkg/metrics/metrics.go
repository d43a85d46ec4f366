// Package metrics 定义了服务的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yeti_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yeti_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ChatTurns 按后端模型与结果（ok / fallback / error）统计聊天轮次。
	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yeti_chat_turns_total",
			Help: "Chat turns processed, by routed backend model and outcome",
		},
		[]string{"backend", "outcome"},
	)

	InferenceLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yeti_inference_latency_seconds",
			Help:    "Inference backend latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
	)

	// ExternalFailures 统计被降级处理的外部依赖失败。
	ExternalFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yeti_external_failures_total",
			Help: "Degraded external collaborator failures",
		},
		[]string{"collaborator"},
	)

	BrowseResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yeti_browse_results_total",
			Help: "Browse agent results by outcome",
		},
		[]string{"outcome"},
	)
)

// 外部依赖名称，作为 ExternalFailures 的标签值。
const (
	CollaboratorMemory    = "memory"
	CollaboratorSearch    = "search"
	CollaboratorWebhook   = "webhook"
	CollaboratorKafka     = "kafka"
	CollaboratorInference = "inference"
	CollaboratorBrowser   = "browser"
	CollaboratorArchive   = "archive"
)

// Failure 记录一次外部依赖失败。
func Failure(collaborator string) {
	ExternalFailures.WithLabelValues(collaborator).Inc()
}
