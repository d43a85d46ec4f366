// Package planner 把用户输入映射为任务计划与后端模型。
// 分类与路由都是有序规则表，自上而下匹配，第一条命中即返回。
package planner

import "strings"

// 任务标签（封闭词表）。
const (
	TaskAnalyze            = "analyze"
	TaskSummarize          = "summarize"
	TaskParse              = "parse"
	TaskGenerateCode       = "generate_code"
	TaskDetectLanguage     = "detect_language"
	TaskTranslate          = "translate"
	TaskWebBrowse          = "web_browse"
	TaskCreativeGeneration = "creative_generation"
	TaskGeneralResponse    = "general_response"
)

type intentRule struct {
	keywords []string
	plan     []string
}

// 顺序即优先级，不要调整。
var intentRules = []intentRule{
	{
		keywords: []string{"summarize", "summary", "tl;dr"},
		plan:     []string{TaskAnalyze, TaskSummarize},
	},
	{
		keywords: []string{"code", "programming", "function", "debug"},
		plan:     []string{TaskParse, TaskGenerateCode},
	},
	{
		keywords: []string{"translate", "translation"},
		plan:     []string{TaskDetectLanguage, TaskTranslate},
	},
	{
		keywords: []string{"search", "look up", "find", "what is", "who is"},
		plan:     []string{TaskWebBrowse, TaskAnalyze, TaskSummarize},
	},
	{
		keywords: []string{"create", "write", "poem", "story"},
		plan:     []string{TaskCreativeGeneration},
	},
}

var fallbackPlan = []string{TaskGeneralResponse}

// Classify 返回输入对应的任务计划，结果永不为空。
// 返回值是新分配的切片，调用方可以自由修改。
func Classify(text string) []string {
	lower := strings.ToLower(text)
	for _, rule := range intentRules {
		if containsAny(lower, rule.keywords) {
			return clonePlan(rule.plan)
		}
	}
	return clonePlan(fallbackPlan)
}

// HasTask 判断任务计划中是否包含指定标签。
func HasTask(plan []string, task string) bool {
	for _, t := range plan {
		if t == task {
			return true
		}
	}
	return false
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func clonePlan(plan []string) []string {
	out := make([]string, len(plan))
	copy(out, plan)
	return out
}
