package planner

import (
	"fmt"
	"strings"
	"yeti-ai-go/internal/config"
)

// 面向用户的模型别名。
const (
	AliasDefault  = "yeti-default"
	AliasWeb      = "yeti-web"
	AliasCode     = "yeti-code"
	AliasCreative = "yeti-creative"
	AliasFast     = "yeti-fast"
)

// Target 是路由的抽象目标，由配置解析为具体的后端模型标识。
type Target string

const (
	TargetWeb      Target = "web"
	TargetCode     Target = "code"
	TargetCreative Target = "creative"
	TargetFast     Target = "fast"
	TargetDefault  Target = "default"
)

// routeRule 在同一条规则内同时检查别名与关键词；alias 为空表示仅关键词规则。
type routeRule struct {
	alias    string
	keywords []string
	target   Target
}

// 别名检查与关键词检查交错排列，顺序改变会悄悄改变路由结果。
var routeRules = []routeRule{
	{alias: AliasWeb, keywords: []string{"search", "current", "latest", "news"}, target: TargetWeb},
	{alias: AliasCode, keywords: []string{"code", "programming", "debug"}, target: TargetCode},
	{alias: AliasCreative, keywords: []string{"poem", "story", "creative"}, target: TargetCreative},
	{alias: AliasFast, keywords: []string{"quick", "fast", "brief"}, target: TargetFast},
	{keywords: []string{"summarize", "tl;dr"}, target: TargetFast},
	{keywords: []string{"translate"}, target: TargetWeb},
}

// Selection 是一次路由的结果：用户别名与解析出的唯一后端模型。
type Selection struct {
	Alias   string
	Target  Target
	Backend string
}

// Router 把 (文本, 别名) 解析为后端模型标识。无状态，可并发使用。
type Router struct {
	models config.LLMModelsConfig
}

// NewRouter 创建一个 Router，models 中为空的项使用内置默认值。
func NewRouter(models config.LLMModelsConfig) *Router {
	if models.Web == "" {
		models.Web = "google/gemini-pro"
	}
	if models.Code == "" {
		models.Code = "openai/gpt-4-turbo"
	}
	if models.Creative == "" {
		models.Creative = "mistralai/mixtral-8x7b-instruct"
	}
	if models.Fast == "" {
		models.Fast = "anthropic/claude-3-haiku"
	}
	if models.Default == "" {
		models.Default = "google/gemini-pro"
	}
	return &Router{models: models}
}

// Route 返回唯一的后端模型标识。
func (r *Router) Route(text, alias string) string {
	return r.Select(text, alias).Backend
}

// Select 按规则表顺序求值，第一条命中的规则决定目标。
func (r *Router) Select(text, alias string) Selection {
	lower := strings.ToLower(text)
	target := TargetDefault
	for _, rule := range routeRules {
		if (rule.alias != "" && alias == rule.alias) || containsAny(lower, rule.keywords) {
			target = rule.target
			break
		}
	}
	return Selection{Alias: alias, Target: target, Backend: r.Backend(target)}
}

// Backend 把路由目标解析为配置中的后端模型标识。
func (r *Router) Backend(target Target) string {
	switch target {
	case TargetWeb:
		return r.models.Web
	case TargetCode:
		return r.models.Code
	case TargetCreative:
		return r.models.Creative
	case TargetFast:
		return r.models.Fast
	default:
		return r.models.Default
	}
}

// Explain 生成一行路由说明。
func Explain(alias, backend string) string {
	return fmt.Sprintf("Selected %s → routed to %s for optimal performance on this task type.", alias, backend)
}
