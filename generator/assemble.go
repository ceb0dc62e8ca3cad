package generator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"wechat_article_workflow/graph"
)

// finalWriter 是汇合后的组装节点：把扇出产生的段落按大纲顺序排好、
// 用当前大纲标题覆盖段落标题（改标题节点的重写因此生效），再渲染成全文。
// 纯计算节点，不调用模型。
func (w *writers) finalWriter(_ context.Context, s State) (graph.Update, error) {
	log.Printf("[workflow] assembling %q (%d paragraphs)", s.Outline.Title, len(s.Paragraphs))

	ordered, err := orderParagraphs(s.Outline, s.Paragraphs, w.opts.LegacyOrdering)
	if err != nil {
		return nil, err
	}

	return graph.Update{
		"FinalArticle": renderFinalArticle(s.Outline.Title, s.Preface, s.Insights, ordered, s.Transcript, s.Metadata),
	}, nil
}

// orderParagraphs 按大纲顺序重排段落并替换为权威标题。
// 默认严格模式：node_id 集合必须与大纲完全一致，否则返回
// AssemblyConsistencyError；legacy 模式保留旧行为——未匹配的段落稳定地排到最后。
func orderParagraphs(outline Outline, paragraphs []Paragraph, legacy bool) ([]Paragraph, error) {
	orderMap := make(map[string]int, len(outline.Children))
	titleMap := make(map[string]string, len(outline.Children))
	for i, c := range outline.Children {
		orderMap[c.NodeID] = i
		titleMap[c.NodeID] = c.Title
	}

	if !legacy {
		seen := make(map[string]bool, len(paragraphs))
		var unknown []string
		for _, p := range paragraphs {
			if _, ok := orderMap[p.NodeID]; !ok {
				unknown = append(unknown, p.NodeID)
			}
			seen[p.NodeID] = true
		}
		var missing []string
		for _, c := range outline.Children {
			if !seen[c.NodeID] {
				missing = append(missing, c.NodeID)
			}
		}
		if len(missing) > 0 || len(unknown) > 0 {
			return nil, &AssemblyConsistencyError{Missing: missing, Unknown: unknown}
		}
	}

	ordered := append([]Paragraph(nil), paragraphs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		oi, oki := orderMap[ordered[i].NodeID]
		oj, okj := orderMap[ordered[j].NodeID]
		if oki != okj {
			return oki // 未匹配的排最后
		}
		return oi < oj
	})
	for i := range ordered {
		if t, ok := titleMap[ordered[i].NodeID]; ok {
			ordered[i].Title = t
		}
	}
	return ordered, nil
}

// renderFinalArticle 渲染终稿：标题、导读引用、亮点、正文、
// 可选的对话整理和原文链接。空的段落（导读、对话、链接）整段省略。
func renderFinalArticle(title, preface, insights string, paragraphs []Paragraph, transcript string, md *Metadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if strings.TrimSpace(preface) != "" {
		fmt.Fprintf(&b, ">%s\n\n", preface)
	}
	fmt.Fprintf(&b, "## 亮点\n%s\n\n", insights)
	for _, p := range paragraphs {
		fmt.Fprintf(&b, "## %s\n%s\n", p.Title, p.FullText)
	}
	if strings.TrimSpace(transcript) != "" {
		fmt.Fprintf(&b, "\n## 详细对话\n%s\n", transcript)
	}
	if md != nil && md.Link != "" {
		fmt.Fprintf(&b, "\n_原链接：%s_\n", md.Link)
	}
	return b.String()
}
