package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"yeti-ai-go/internal/config"
	"yeti-ai-go/internal/model"
	"yeti-ai-go/internal/planner"
	"yeti-ai-go/pkg/llm"
	"yeti-ai-go/pkg/log"
	"yeti-ai-go/pkg/metrics"
	"yeti-ai-go/pkg/notify"
	"yeti-ai-go/pkg/search"
	"yeti-ai-go/pkg/tasks"

	"github.com/google/uuid"
)

const (
	errorReasoning = "Error occurred during processing"
	// 拼入提示词的搜索结果条数与摘要长度
	searchContextResults = 3
	searchSnippetRunes   = 100
	memoryWriteTimeout   = 5 * time.Second
)

// ChatService 定义了聊天编排的接口。
type ChatService interface {
	// Process 处理一轮对话。任何失败都体现在返回的信封中，从不返回 error。
	Process(ctx context.Context, req model.ChatRequest) model.ChatResponse
	// Wait 等待后台的会话写入结束。
	Wait()
}

type chatService struct {
	llmClient    llm.Client
	searchClient search.Client
	memory       MemoryService
	notifier     notify.Notifier
	router       *planner.Router
	generation   *llm.GenerationParams
	identity     config.IdentityConfig

	wg    sync.WaitGroup
	now   func() time.Time
	newID func() string
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(
	llmClient llm.Client,
	searchClient search.Client,
	memory MemoryService,
	notifier notify.Notifier,
	router *planner.Router,
	llmCfg config.LLMConfig,
	identity config.IdentityConfig,
) ChatService {
	return &chatService{
		llmClient:    llmClient,
		searchClient: searchClient,
		memory:       memory,
		notifier:     notifier,
		router:       router,
		generation:   llm.DefaultGeneration(llmCfg.Generation),
		identity:     identity,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
}

// Process 依次完成意图规划、模型路由、可选的网页增强、推理、记忆写入与通知。
// 调用方取消不会中断已开始的检索与推理，只受各外部调用的固定超时约束。
func (s *chatService) Process(ctx context.Context, req model.ChatRequest) model.ChatResponse {
	ctx = context.WithoutCancel(ctx)
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = s.newID()
	}
	alias := req.Model
	if alias == "" {
		alias = model.DefaultAlias
	}

	plan := planner.Classify(req.Message)
	selection := s.router.Select(req.Message, alias)
	log.Infof("[ChatService] 开始处理对话, session: %s, alias: %s, backend: %s, plan: %v", sessionID, alias, selection.Backend, plan)

	prompt := req.Message
	var webData *model.WebSearchData
	if req.WebMode && planner.HasTask(plan, planner.TaskWebBrowse) {
		data := s.searchClient.Search(ctx, req.Message)
		webData = &data
		if data.HasResults() {
			prompt = buildSearchPrompt(req.Message, data.Results)
		}
	}

	answer, outcome, err := s.infer(ctx, selection.Backend, prompt, req.Message)
	metrics.ChatTurns.WithLabelValues(selection.Backend, outcome).Inc()
	if err != nil {
		log.Errorf("[ChatService] 对话处理失败, session: %s, error: %v", sessionID, err)
		return model.ChatResponse{
			Response:  fmt.Sprintf("I encountered an error while processing your request: %s. Please try again.", err.Error()),
			SessionID: sessionID,
			ModelUsed: alias,
			TaskPlan:  plan,
			Reasoning: errorReasoning,
			Timestamp: s.now(),
		}
	}

	now := s.now()
	turn := model.ChatTurn{
		SessionID: sessionID,
		User:      req.Message,
		Yeti:      answer,
		Timestamp: now,
		Metadata: model.TurnMetadata{
			ModelUsed:     selection.Backend,
			SelectedModel: alias,
			TaskPlan:      plan,
			WebMode:       req.WebMode,
			WebSearchData: webData,
		},
	}
	if len(req.Context) > 0 {
		turn.Metadata.Context = req.Context
	}
	s.remember(sessionID, turn)

	s.notifier.Notify(tasks.TurnCompleted{
		SessionID:     sessionID,
		Output:        answer,
		ModelUsed:     selection.Backend,
		SelectedModel: alias,
		TaskPlan:      plan,
		Timestamp:     now,
	})

	return model.ChatResponse{
		Response:      answer,
		SessionID:     sessionID,
		ModelUsed:     alias,
		TaskPlan:      plan,
		Reasoning:     planner.Explain(alias, selection.Backend),
		WebSearchData: webData,
		Timestamp:     now,
	}
}

// infer 调用推理后端。未配置凭据时返回演示回答。
func (s *chatService) infer(ctx context.Context, backend, prompt, original string) (string, string, error) {
	if !s.llmClient.Configured() {
		log.Warnf("[ChatService] 推理网关未配置, 返回演示回答")
		return fmt.Sprintf("I'm %s, and I'd help you with '%s', but the OpenRouter API key is not configured. This is a demo response showing the system architecture.", s.identity.Name, original), "fallback", nil
	}

	messages := []llm.Message{
		{Role: "system", Content: s.systemMessage()},
		{Role: "user", Content: prompt},
	}
	start := time.Now()
	answer, err := s.llmClient.ChatMessages(ctx, backend, messages, s.generation)
	metrics.InferenceLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Failure(metrics.CollaboratorInference)
		return "", "error", err
	}
	return answer, "ok", nil
}

// remember 在后台写入会话记忆，不受请求取消影响。
func (s *chatService) remember(sessionID string, turn model.ChatTurn) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), memoryWriteTimeout)
		defer cancel()
		s.memory.Append(ctx, sessionID, turn)
	}()
}

func (s *chatService) Wait() {
	s.wg.Wait()
}

func (s *chatService) systemMessage() string {
	id := s.identity
	return fmt.Sprintf(`You are %s, an autonomous AI assistant created by %s.

Your capabilities include: %s.

You are currently running version %s and have been designed to be helpful, autonomous, and intelligent.

Always identify yourself as %s and maintain your creator's vision of accessible, powerful AI assistance.`,
		id.Name, id.Creator, strings.Join(id.Capabilities, ", "), id.Version, id.Name)
}

// buildSearchPrompt 把前几条搜索结果作为上下文拼到用户问题之前。
func buildSearchPrompt(question string, results []model.WebSearchResult) string {
	if len(results) > searchContextResults {
		results = results[:searchContextResults]
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		snippet := []rune(r.Snippet)
		if len(snippet) > searchSnippetRunes {
			snippet = snippet[:searchSnippetRunes]
		}
		lines = append(lines, fmt.Sprintf("- %s: %s...", r.Title, string(snippet)))
	}
	return fmt.Sprintf("Based on current web search results:\n%s\n\nUser question: %s", strings.Join(lines, "\n"), question)
}
