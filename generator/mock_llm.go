package generator

import (
	"context"
	"strings"
)

// MockLLM 一个占位实现，便于本地调试和端到端测试，不调用外部模型。
// 通过提示词里的标记识别节点类型，返回结构上合法的固定内容。
type MockLLM struct{}

func (m MockLLM) Generate(_ context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}
	prompt := messages[len(messages)-1].Content

	switch {
	case strings.Contains(prompt, "<json-schema>"):
		return "```json\n" + `{
  "node_id": "root",
  "title": "一篇自动生成的示例文章",
  "children": [
    {"node_id": "n1", "title": "第一个看点", "content": "开头要讲什么"},
    {"node_id": "n2", "title": "第二个看点", "content": "接下来讲什么"}
  ]
}` + "\n```", nil
	case strings.Contains(prompt, "标题编辑"):
		// 改标题节点：原样返回大纲，保住 node_id。
		return extractBetween(prompt, "<outline>", "</outline>"), nil
	case strings.Contains(prompt, "与常识偏离"):
		return "- 模拟亮点一\n- 模拟亮点二\n- 模拟亮点三", nil
	case strings.Contains(prompt, "<metadata>"):
		return "这是一段模拟的导读，概述文章背景与来源。", nil
	case strings.Contains(prompt, "transcript section"):
		return "", nil
	case strings.Contains(prompt, "factually supported"):
		return "95", nil
	case strings.Contains(prompt, "<article>"):
		// 内容审校：不做修改，返回原文。
		return extractBetween(prompt, "<article>", "</article>"), nil
	case strings.Contains(prompt, "EXACTLY 1-3"):
		return "这是一段模拟的公众号正文，围绕要点展开。\n\n第二段继续补充细节。", nil
	default:
		return "模拟输出：" + firstLine(prompt), nil
	}
}

func extractBetween(s, open, close string) string {
	i := strings.Index(s, open)
	if i < 0 {
		return ""
	}
	rest := s[i+len(open):]
	j := strings.Index(rest, close)
	if j < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:j])
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
