package generator

import (
	"errors"
	"strings"
)

// NewDraft 把一次运行的结果整理成可发布的稿件。
// 摘要优先取导读，其次取终稿正文的压缩片段。
func NewDraft(res *Result) (Draft, error) {
	if res == nil || strings.TrimSpace(res.FinalArticle) == "" {
		return Draft{}, errors.New("workflow result has no final article")
	}

	title := strings.TrimSpace(res.Outline.Title)
	if title == "" {
		title = extractTitle(res.FinalArticle)
	}

	digest := strings.TrimSpace(res.Preface)
	if digest == "" {
		digest = defaultDigest(stripTitleLine(res.FinalArticle), 120)
	}

	return Draft{
		Title:    title,
		Digest:   digest,
		Markdown: res.FinalArticle,
	}, nil
}

func extractTitle(md string) string {
	for _, line := range strings.Split(md, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "# ") {
			return strings.TrimSpace(t[2:])
		}
	}
	return ""
}

// 去掉标题行，摘要只从正文取。
func stripTitleLine(md string) string {
	var lines []string
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func defaultDigest(md string, limit int) string {
	compact := strings.Fields(md)
	joined := strings.Join(compact, " ")
	runes := []rune(joined)
	if len(runes) <= limit {
		return joined
	}
	return string(runes[:limit])
}
