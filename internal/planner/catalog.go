package planner

import "yeti-ai-go/internal/model"

// Catalog 返回全部可选别名及其展示信息，顺序固定。
func (r *Router) Catalog() []model.ModelProfile {
	return []model.ModelProfile{
		{
			Alias:         AliasDefault,
			DisplayName:   "Yeti AI (Adaptive)",
			Description:   "Automatically selects the best model for each task",
			Strengths:     []string{"Adaptive routing", "Task optimization", "Best performance"},
			InternalModel: "auto-route",
			Provider:      "yeti-core",
		},
		{
			Alias:         AliasWeb,
			DisplayName:   "Yeti AI (Web Focus)",
			Description:   "Optimized for web browsing and real-time information",
			Strengths:     []string{"Web search", "Real-time data", "Current events"},
			InternalModel: r.models.Web,
			Provider:      "openrouter",
		},
		{
			Alias:         AliasCode,
			DisplayName:   "Yeti AI (Code Expert)",
			Description:   "Specialized in programming and technical tasks",
			Strengths:     []string{"Code generation", "Debugging", "Technical analysis"},
			InternalModel: r.models.Code,
			Provider:      "openrouter",
		},
		{
			Alias:         AliasCreative,
			DisplayName:   "Yeti AI (Creative)",
			Description:   "Enhanced for creative and artistic tasks",
			Strengths:     []string{"Creative writing", "Poetry", "Storytelling"},
			InternalModel: r.models.Creative,
			Provider:      "openrouter",
		},
		{
			Alias:         AliasFast,
			DisplayName:   "Yeti AI (Lightning)",
			Description:   "Optimized for speed and efficiency",
			Strengths:     []string{"Fast responses", "Quick analysis", "Efficient processing"},
			InternalModel: r.models.Fast,
			Provider:      "openrouter",
		},
	}
}
