package model

// WebSearchResult 是一条网页搜索结果。
type WebSearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// WebSearchData 是一次搜索的完整载荷，失败时 Results 为空且 Error 非空。
type WebSearchData struct {
	Query        string            `json:"query"`
	Results      []WebSearchResult `json:"results"`
	TotalResults int               `json:"total_results"`
	SearchTime   float64           `json:"search_time"`
	Sources      []string          `json:"sources"`
	Error        string            `json:"error,omitempty"`
}

// HasResults 表示搜索是否返回了可用结果。
func (d *WebSearchData) HasResults() bool {
	return d != nil && len(d.Results) > 0
}
