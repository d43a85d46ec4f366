// Package search provides a client for the DuckDuckGo Instant Answer API.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"
	"yeti-ai-go/internal/config"
	"yeti-ai-go/internal/model"
	"yeti-ai-go/pkg/log"
	"yeti-ai-go/pkg/metrics"

	"github.com/microcosm-cc/bluemonday"
)

// SourceName 是搜索结果的来源标识。
const SourceName = "DuckDuckGo"

// Client defines the interface for a web search client.
// Search 从不返回 error，失败信息放在 WebSearchData.Error 中。
type Client interface {
	Search(ctx context.Context, query string) model.WebSearchData
}

type duckDuckGoClient struct {
	cfg    config.SearchConfig
	client *http.Client
	policy *bluemonday.Policy
}

// NewClient creates a new DuckDuckGo search client.
func NewClient(cfg config.SearchConfig) Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.MaxRelated <= 0 {
		cfg.MaxRelated = 5
	}
	return &duckDuckGoClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		policy: bluemonday.StrictPolicy(),
	}
}

type instantAnswer struct {
	Heading       string         `json:"Heading"`
	Abstract      string         `json:"Abstract"`
	AbstractURL   string         `json:"AbstractURL"`
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

// relatedTopic 中分组条目只有 Name/Topics，没有 Text/FirstURL，会被过滤掉。
type relatedTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

// Search 调用 Instant Answer API，并把即时答案与相关主题整理为结果列表。
func (c *duckDuckGoClient) Search(ctx context.Context, query string) model.WebSearchData {
	start := time.Now()
	log.Infof("[SearchClient] 开始网页搜索, query: %s", query)

	answer, err := c.fetch(ctx, query)
	if err != nil {
		metrics.Failure(metrics.CollaboratorSearch)
		log.Errorf("[SearchClient] 网页搜索失败, query: %s, error: %v", query, err)
		return model.WebSearchData{
			Query:        query,
			Results:      []model.WebSearchResult{},
			TotalResults: 0,
			SearchTime:   time.Since(start).Seconds(),
			Sources:      []string{},
			Error:        err.Error(),
		}
	}

	results := c.collect(answer)
	log.Infof("[SearchClient] 网页搜索完成, query: %s, results: %d", query, len(results))
	return model.WebSearchData{
		Query:        query,
		Results:      results,
		TotalResults: len(results),
		SearchTime:   time.Since(start).Seconds(),
		Sources:      []string{SourceName},
	}
}

func (c *duckDuckGoClient) fetch(ctx context.Context, query string) (*instantAnswer, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call search api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search api returned non-200 status: %s", resp.Status)
	}

	var answer instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &answer, nil
}

func (c *duckDuckGoClient) collect(answer *instantAnswer) []model.WebSearchResult {
	results := make([]model.WebSearchResult, 0, c.cfg.MaxRelated+1)

	if abstract := c.plain(answer.Abstract); abstract != "" {
		title := c.plain(answer.Heading)
		if title == "" {
			title = "Instant Answer"
		}
		link := answer.AbstractURL
		if link == "" {
			link = "#"
		}
		results = append(results, model.WebSearchResult{
			Title:   title,
			URL:     link,
			Snippet: abstract,
			Source:  SourceName,
		})
	}

	topics := answer.RelatedTopics
	if len(topics) > c.cfg.MaxRelated {
		topics = topics[:c.cfg.MaxRelated]
	}
	for _, topic := range topics {
		text := c.plain(topic.Text)
		if text == "" || topic.FirstURL == "" {
			continue
		}
		title, _, _ := strings.Cut(text, " - ")
		results = append(results, model.WebSearchResult{
			Title:   title,
			URL:     topic.FirstURL,
			Snippet: text,
			Source:  SourceName,
		})
	}
	return results
}

// plain 去除所有标记，返回纯文本。
func (c *duckDuckGoClient) plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(c.policy.Sanitize(s)))
}
