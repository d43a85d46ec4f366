// Package htmltext 从 HTML 中提取可读文本。
package htmltext

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extract 去除 script 与 style 后，按文本节点提取并归一化空白。
func Extract(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find("script, style").Remove()

	var parts []string
	collect(doc.Selection, &parts)
	return strings.Join(parts, " "), nil
}

func collect(sel *goquery.Selection, parts *[]string) {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			if t := strings.Join(strings.Fields(c.Text()), " "); t != "" {
				*parts = append(*parts, t)
			}
		case "#comment":
		default:
			collect(c, parts)
		}
	})
}

// Truncate 按字符截断，超出 max 时追加 "..."。
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
