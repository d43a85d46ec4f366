package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"yeti-ai-go/internal/config"
	"yeti-ai-go/internal/model"
	"yeti-ai-go/internal/planner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIdentity = config.IdentityConfig{
	Name:         "Yeti AI",
	Creator:      "Yethikrishna R.",
	Version:      "1.0",
	Capabilities: []string{"Autonomous web browsing", "Memory and context retention"},
}

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

type chatFixture struct {
	svc      *chatService
	llm      *fakeLLM
	search   *fakeSearch
	memory   *fakeMemory
	notifier *fakeNotifier
}

func newChatFixture(llmClient *fakeLLM, searchClient *fakeSearch) chatFixture {
	mem := newFakeMemory()
	n := &fakeNotifier{}
	svc := NewChatService(
		llmClient,
		searchClient,
		mem,
		n,
		planner.NewRouter(config.LLMModelsConfig{}),
		config.LLMConfig{Generation: config.LLMGenerationConfig{Temperature: 0.7, MaxTokens: 2000}},
		testIdentity,
	).(*chatService)
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return "generated-session" }
	return chatFixture{svc: svc, llm: llmClient, search: searchClient, memory: mem, notifier: n}
}

func TestProcess_Success(t *testing.T) {
	f := newChatFixture(&fakeLLM{configured: true, answer: "Here is your code."}, &fakeSearch{})

	resp := f.svc.Process(context.Background(), model.ChatRequest{
		Message:   "write python code to sort a list",
		SessionID: "s1",
		Model:     planner.AliasDefault,
	})
	f.svc.Wait()

	assert.Equal(t, "Here is your code.", resp.Response)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, planner.AliasDefault, resp.ModelUsed)
	assert.Equal(t, []string{planner.TaskParse, planner.TaskGenerateCode}, resp.TaskPlan)
	assert.Equal(t, "Selected yeti-default → routed to openai/gpt-4-turbo for optimal performance on this task type.", resp.Reasoning)
	assert.Nil(t, resp.WebSearchData)
	assert.Equal(t, fixedNow, resp.Timestamp)

	assert.Equal(t, "openai/gpt-4-turbo", f.llm.model)
	require.Len(t, f.llm.messages, 2)
	assert.Equal(t, "system", f.llm.messages[0].Role)
	assert.Contains(t, f.llm.messages[0].Content, "You are Yeti AI, an autonomous AI assistant created by Yethikrishna R.")
	assert.Contains(t, f.llm.messages[0].Content, "Autonomous web browsing, Memory and context retention")
	assert.Equal(t, "user", f.llm.messages[1].Role)
	assert.Equal(t, "write python code to sort a list", f.llm.messages[1].Content)

	turns := f.memory.History(context.Background(), "s1")
	require.Len(t, turns, 1)
	assert.Equal(t, "write python code to sort a list", turns[0].User)
	assert.Equal(t, "Here is your code.", turns[0].Yeti)
	assert.Equal(t, "openai/gpt-4-turbo", turns[0].Metadata.ModelUsed)
	assert.Equal(t, planner.AliasDefault, turns[0].Metadata.SelectedModel)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, "s1", f.notifier.events[0].SessionID)
	assert.Equal(t, "Here is your code.", f.notifier.events[0].Output)
}

func TestProcess_MintsSessionAndDefaultsAlias(t *testing.T) {
	f := newChatFixture(&fakeLLM{configured: true, answer: "hi"}, &fakeSearch{})

	resp := f.svc.Process(context.Background(), model.ChatRequest{Message: "hello there"})
	f.svc.Wait()

	assert.Equal(t, "generated-session", resp.SessionID)
	assert.Equal(t, model.DefaultAlias, resp.ModelUsed)
	assert.Equal(t, []string{planner.TaskGeneralResponse}, resp.TaskPlan)
	assert.Equal(t, "google/gemini-pro", f.llm.model)
	assert.Len(t, f.memory.History(context.Background(), "generated-session"), 1)
}

func TestProcess_FallbackWithoutAPIKey(t *testing.T) {
	f := newChatFixture(&fakeLLM{configured: false}, &fakeSearch{})

	resp := f.svc.Process(context.Background(), model.ChatRequest{Message: "hello", SessionID: "s2"})
	f.svc.Wait()

	assert.Equal(t, "I'm Yeti AI, and I'd help you with 'hello', but the OpenRouter API key is not configured. This is a demo response showing the system architecture.", resp.Response)
	assert.Equal(t, 0, f.llm.calls)
	assert.Equal(t, "Selected yeti-default → routed to google/gemini-pro for optimal performance on this task type.", resp.Reasoning)
	// 演示回答同样写入记忆并发送通知
	assert.Len(t, f.memory.History(context.Background(), "s2"), 1)
	assert.Len(t, f.notifier.events, 1)
}

func TestProcess_InferenceFailure(t *testing.T) {
	f := newChatFixture(&fakeLLM{configured: true, err: errors.New("upstream 502")}, &fakeSearch{
		data: model.WebSearchData{Results: []model.WebSearchResult{{Title: "t", Snippet: "s"}}, Sources: []string{"DuckDuckGo"}},
	})

	resp := f.svc.Process(context.Background(), model.ChatRequest{
		Message:   "search latest news",
		SessionID: "s3",
		Model:     planner.AliasWeb,
		WebMode:   true,
	})
	f.svc.Wait()

	assert.Equal(t, "I encountered an error while processing your request: upstream 502. Please try again.", resp.Response)
	assert.Equal(t, "Error occurred during processing", resp.Reasoning)
	assert.Equal(t, "s3", resp.SessionID)
	assert.Equal(t, planner.AliasWeb, resp.ModelUsed)
	assert.Equal(t, []string{planner.TaskWebBrowse, planner.TaskAnalyze, planner.TaskSummarize}, resp.TaskPlan)
	assert.Nil(t, resp.WebSearchData)

	assert.Empty(t, f.memory.History(context.Background(), "s3"))
	assert.Empty(t, f.notifier.events)
}

func TestProcess_WebAugmentation(t *testing.T) {
	results := []model.WebSearchResult{
		{Title: "First", URL: "https://a", Snippet: strings.Repeat("x", 150), Source: "DuckDuckGo"},
		{Title: "Second", URL: "https://b", Snippet: "short", Source: "DuckDuckGo"},
		{Title: "Third", URL: "https://c", Snippet: "third", Source: "DuckDuckGo"},
		{Title: "Fourth", URL: "https://d", Snippet: "ignored", Source: "DuckDuckGo"},
	}
	f := newChatFixture(&fakeLLM{configured: true, answer: "answer"}, &fakeSearch{
		data: model.WebSearchData{Results: results, TotalResults: 4, Sources: []string{"DuckDuckGo"}},
	})

	resp := f.svc.Process(context.Background(), model.ChatRequest{
		Message:   "search for yeti sightings",
		SessionID: "s4",
		WebMode:   true,
	})
	f.svc.Wait()

	require.NotNil(t, resp.WebSearchData)
	assert.Equal(t, 4, resp.WebSearchData.TotalResults)
	assert.Equal(t, "search for yeti sightings", resp.WebSearchData.Query)

	want := "Based on current web search results:\n" +
		"- First: " + strings.Repeat("x", 100) + "...\n" +
		"- Second: short...\n" +
		"- Third: third...\n\n" +
		"User question: search for yeti sightings"
	assert.Equal(t, want, f.llm.messages[1].Content)

	turns := f.memory.History(context.Background(), "s4")
	require.Len(t, turns, 1)
	assert.True(t, turns[0].Metadata.WebMode)
	require.NotNil(t, turns[0].Metadata.WebSearchData)
	// 记忆中保存原始问题而不是增强后的提示词
	assert.Equal(t, "search for yeti sightings", turns[0].User)
}

func TestProcess_WebModeWithoutResultsKeepsPrompt(t *testing.T) {
	f := newChatFixture(&fakeLLM{configured: true, answer: "answer"}, &fakeSearch{
		data: model.WebSearchData{Results: []model.WebSearchResult{}, Sources: []string{}, Error: "timeout"},
	})

	resp := f.svc.Process(context.Background(), model.ChatRequest{Message: "what is a yeti", WebMode: true})
	f.svc.Wait()

	assert.Equal(t, 1, f.search.calls)
	assert.Equal(t, "what is a yeti", f.llm.messages[1].Content)
	require.NotNil(t, resp.WebSearchData)
	assert.Equal(t, "timeout", resp.WebSearchData.Error)
}

func TestProcess_NoSearchWithoutWebModeOrPlan(t *testing.T) {
	f := newChatFixture(&fakeLLM{configured: true, answer: "answer"}, &fakeSearch{})

	f.svc.Process(context.Background(), model.ChatRequest{Message: "search for cats"})
	f.svc.Process(context.Background(), model.ChatRequest{Message: "write a poem", WebMode: true})
	f.svc.Wait()

	assert.Equal(t, 0, f.search.calls)
}

func TestProcess_RecordsContext(t *testing.T) {
	f := newChatFixture(&fakeLLM{configured: true, answer: "ok"}, &fakeSearch{})

	f.svc.Process(context.Background(), model.ChatRequest{
		Message:   "hello",
		SessionID: "s5",
		Context:   map[string]interface{}{"page": "home"},
	})
	f.svc.Wait()

	turns := f.memory.History(context.Background(), "s5")
	require.Len(t, turns, 1)
	assert.Equal(t, "home", turns[0].Metadata.Context["page"])
}

func TestProcess_CancelledRequestStillRemembers(t *testing.T) {
	f := newChatFixture(&fakeLLM{configured: true, answer: "ok"}, &fakeSearch{})
	ctx, cancel := context.WithCancel(context.Background())

	f.svc.Process(ctx, model.ChatRequest{Message: "hello", SessionID: "s6"})
	cancel()
	f.svc.Wait()

	assert.Len(t, f.memory.History(context.Background(), "s6"), 1)
}

func TestProcess_CancelDuringInferenceRunsToCompletion(t *testing.T) {
	fake := &fakeLLM{
		configured: true,
		answer:     "done",
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	f := newChatFixture(fake, &fakeSearch{})
	ctx, cancel := context.WithCancel(context.Background())

	out := make(chan model.ChatResponse, 1)
	go func() {
		out <- f.svc.Process(ctx, model.ChatRequest{Message: "hello", SessionID: "s7"})
	}()

	<-fake.started
	cancel()
	close(fake.release)

	var resp model.ChatResponse
	select {
	case resp = <-out:
	case <-time.After(2 * time.Second):
		t.Fatal("Process did not return")
	}
	f.svc.Wait()

	assert.Equal(t, "done", resp.Response)
	assert.NotEqual(t, errorReasoning, resp.Reasoning)
	assert.Len(t, f.memory.History(context.Background(), "s7"), 1)
	assert.Len(t, f.notifier.events, 1)
}
