package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"yeti-ai-go/internal/model"
	"yeti-ai-go/internal/repository"
	"yeti-ai-go/pkg/tasks"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCapturer struct {
	page *model.PageCapture
	err  error
}

func (f *fakeCapturer) Capture(ctx context.Context, req model.BrowseRequest) (*model.PageCapture, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.page
	p.URL = req.URL
	return &p, nil
}

type fakeStore struct {
	objects map[string][]byte
}

func (f *fakeStore) PutScreenshot(ctx context.Context, key string, png []byte) (string, error) {
	name := "screenshots/" + key + ".png"
	f.objects[name] = png
	return name, nil
}

func (f *fakeStore) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	return "http://minio/" + objectName, nil
}

type fakeIndex struct {
	chunks []model.PageChunk
	failAt int
}

func (f *fakeIndex) IndexChunk(ctx context.Context, chunk model.PageChunk) error {
	if f.failAt > 0 && chunk.ChunkID == f.failAt {
		return errors.New("es unavailable")
	}
	f.chunks = append(f.chunks, chunk)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, query string, size int) ([]model.PageSearchHit, error) {
	return nil, nil
}

func newRepo(t *testing.T) repository.BrowseTaskRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return repository.NewBrowseTaskRepository(rdb)
}

func TestProcess_ArchivesPage(t *testing.T) {
	repo := newRepo(t)
	store := &fakeStore{objects: map[string][]byte{}}
	index := &fakeIndex{}
	capturer := &fakeCapturer{page: &model.PageCapture{
		Screenshot: []byte("png"),
		Text:       strings.Repeat("y", 2500),
		CapturedAt: time.Now().UTC(),
	}}
	p := NewProcessor(capturer, store, index, repo)

	err := p.Process(context.Background(), tasks.BrowseTask{TaskID: "t1", URL: "https://example.com", SessionID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, []byte("png"), store.objects["screenshots/t1.png"])
	require.Len(t, index.chunks, 3)
	assert.Equal(t, "t1_0", index.chunks[0].ChunkKey)
	assert.Equal(t, "screenshots/t1.png", index.chunks[0].Screenshot)
	assert.Equal(t, "s1", index.chunks[2].SessionID)

	status, err := repo.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.BrowseTaskCompleted, status.Status)
	assert.Equal(t, 3, status.IndexedChunks)
	assert.Equal(t, "screenshots/t1.png", status.ScreenshotObject)
}

func TestProcess_CaptureFailureMarksFailed(t *testing.T) {
	repo := newRepo(t)
	p := NewProcessor(&fakeCapturer{err: errors.New("timeout")}, nil, &fakeIndex{}, repo)

	err := p.Process(context.Background(), tasks.BrowseTask{TaskID: "t2", URL: "https://slow.example"})
	require.Error(t, err)

	status, err := repo.Get(context.Background(), "t2")
	require.NoError(t, err)
	assert.Equal(t, model.BrowseTaskFailed, status.Status)
	assert.Contains(t, status.Error, "timeout")
}

func TestProcess_IndexFailureMarksFailed(t *testing.T) {
	repo := newRepo(t)
	capturer := &fakeCapturer{page: &model.PageCapture{Text: strings.Repeat("z", 2000)}}
	p := NewProcessor(capturer, nil, &fakeIndex{failAt: 1}, repo)

	err := p.Process(context.Background(), tasks.BrowseTask{TaskID: "t3", URL: "https://example.com"})
	require.Error(t, err)

	status, err := repo.Get(context.Background(), "t3")
	require.NoError(t, err)
	assert.Equal(t, model.BrowseTaskFailed, status.Status)
	assert.Equal(t, 1, status.IndexedChunks)
}

func TestProcess_EmptyPageCompletes(t *testing.T) {
	repo := newRepo(t)
	p := NewProcessor(&fakeCapturer{page: &model.PageCapture{}}, nil, nil, repo)

	require.NoError(t, p.Process(context.Background(), tasks.BrowseTask{TaskID: "t4", URL: "https://blank.example"}))
	status, err := repo.Get(context.Background(), "t4")
	require.NoError(t, err)
	assert.Equal(t, model.BrowseTaskCompleted, status.Status)
	assert.Equal(t, 0, status.IndexedChunks)
}

func TestSplitText(t *testing.T) {
	text := strings.Repeat("a", 1000) + strings.Repeat("b", 900) + strings.Repeat("c", 200)
	chunks := splitText(text, 1000, 100)
	require.Len(t, chunks, 3)
	assert.Len(t, []rune(chunks[0]), 1000)
	// 相邻分块重叠 100 个字符
	assert.Equal(t, chunks[0][900:], chunks[1][:100])
	assert.Len(t, []rune(chunks[2]), 300)

	assert.Nil(t, splitText("", 1000, 100))
	assert.Equal(t, []string{"雪人"}, splitText("雪人", 1000, 100))
	assert.Equal(t, []string{"ab", "cd", "e"}, splitText("abcde", 2, 5))
	assert.Nil(t, splitText("abc", 0, 0))
}
