package service

import (
	"context"
	"errors"
	"sync"
	"time"
	"yeti-ai-go/internal/model"
	"yeti-ai-go/pkg/browser"
	"yeti-ai-go/pkg/llm"
	"yeti-ai-go/pkg/tasks"
)

type fakeLLM struct {
	configured bool
	answer     string
	err        error

	// started 与 release 非空时，调用在 release 关闭前阻塞，期间遵守 ctx 取消
	started chan struct{}
	release chan struct{}

	mu       sync.Mutex
	model    string
	messages []llm.Message
	calls    int
}

func (f *fakeLLM) Configured() bool { return f.configured }

func (f *fakeLLM) ChatMessages(ctx context.Context, model string, messages []llm.Message, gen *llm.GenerationParams) (string, error) {
	f.mu.Lock()
	f.calls++
	f.model = model
	f.messages = messages
	f.mu.Unlock()

	if f.release != nil {
		close(f.started)
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.answer, f.err
}

type fakeSearch struct {
	data  model.WebSearchData
	calls int
}

func (f *fakeSearch) Search(ctx context.Context, query string) model.WebSearchData {
	f.calls++
	d := f.data
	d.Query = query
	return d
}

type fakeMemory struct {
	mu    sync.Mutex
	turns map[string][]model.ChatTurn
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{turns: map[string][]model.ChatTurn{}}
}

func (f *fakeMemory) Append(ctx context.Context, sessionID string, turn model.ChatTurn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns[sessionID] = append(f.turns[sessionID], turn)
}

func (f *fakeMemory) History(ctx context.Context, sessionID string) []model.ChatTurn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ChatTurn{}, f.turns[sessionID]...)
}

func (f *fakeMemory) Clear(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.turns, sessionID)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []tasks.TurnCompleted
}

func (f *fakeNotifier) Notify(event tasks.TurnCompleted) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeNotifier) Wait() {}

// fakeSession 记录浏览器会话上的调用。
type fakeSession struct {
	navErr   error
	captchas int
	markup   string
	png      []byte
	closed   bool
	navURL   string
	timeout  time.Duration
}

func (s *fakeSession) Navigate(url string, timeout time.Duration) error {
	s.navURL = url
	s.timeout = timeout
	return s.navErr
}

func (s *fakeSession) Count(selector string) (int, error) { return s.captchas, nil }
func (s *fakeSession) Screenshot() ([]byte, error)        { return s.png, nil }
func (s *fakeSession) Markup() (string, error)            { return s.markup, nil }

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeLauncher struct {
	session  *fakeSession
	err      error
	headless bool
	ctxErr   error
}

func (l *fakeLauncher) Open(ctx context.Context, headless bool) (browser.Session, error) {
	l.headless = headless
	l.ctxErr = ctx.Err()
	if l.err != nil {
		return nil, l.err
	}
	return l.session, nil
}

type fakeScreenshots struct {
	objects map[string][]byte
	err     error
}

func (f *fakeScreenshots) PutScreenshot(ctx context.Context, key string, png []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	name := "screenshots/" + key + ".png"
	f.objects[name] = png
	return name, nil
}

func (f *fakeScreenshots) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	return "", errors.New("not supported")
}
