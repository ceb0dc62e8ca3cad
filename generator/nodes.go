package generator

import (
	"context"
	"fmt"
	"log"

	"wechat_article_workflow/graph"
)

// 节点名，同时用于图拓扑和错误上报。
const (
	NodeOutline      = "outline_node"
	NodeParagraph    = "paragraph_node"
	NodeInsights     = "insights_node"
	NodeTranscript   = "transcript_node"
	NodePreface      = "preface_node"
	NodeImproveTitle = "improve_title_node"
	NodeFinal        = "final_node"
	NodeReview       = "review_node"
	NodeFactCheck    = "fact_check_node"
	NodeSummarize    = "summarize_node"
	NodeEnrich       = "enrich_node"
)

// writers 持有模型能力，把每个节点实现为 (状态视图, 模型) -> 部分更新。
// 节点只写自己声明的字段；每次模型交互都追加进 Messages 审计。
type writers struct {
	llm  LLMClient
	opts Options
}

func (w *writers) outline(ctx context.Context, s State) (graph.Update, error) {
	log.Printf("[workflow] writing outline")

	text, err := w.llm.Generate(ctx, buildOutlinePrompt(s.OriginalArticle))
	if err != nil {
		return nil, err
	}
	o, err := parseOutline(text)
	if err != nil {
		return nil, err
	}
	return graph.Update{
		"Outline":  o,
		"Messages": []Message{{Role: RoleAssistant, Content: text}},
	}, nil
}

// continueToParagraphs 把大纲的每个小节展开成一个独立段落任务。
// 载荷只含只读原文和该小节本身，分支之间没有共享可变状态。
func continueToParagraphs(_ context.Context, s State) ([]graph.Send, error) {
	sends := make([]graph.Send, 0, len(s.Outline.Children))
	for _, sec := range s.Outline.Children {
		sends = append(sends, graph.Send{
			To:      NodeParagraph,
			Payload: ParagraphTask{OriginalArticle: s.OriginalArticle, Section: sec},
		})
	}
	return sends, nil
}

func (w *writers) paragraph(ctx context.Context, payload any) (graph.Update, error) {
	task, ok := payload.(ParagraphTask)
	if !ok {
		return nil, fmt.Errorf("unexpected paragraph payload %T", payload)
	}
	log.Printf("[workflow] writing paragraph %s", task.Section.NodeID)

	text, err := w.llm.Generate(ctx, buildParagraphPrompt(task.OriginalArticle, task.Section))
	if err != nil {
		return nil, err
	}
	return graph.Update{
		"Paragraphs": []Paragraph{{
			NodeID:   task.Section.NodeID,
			Title:    task.Section.Title,
			FullText: text,
		}},
		"Messages": []Message{{Role: RoleAssistant, Content: text}},
	}, nil
}

func (w *writers) insights(ctx context.Context, s State) (graph.Update, error) {
	log.Printf("[workflow] writing top insights")

	text, err := w.llm.Generate(ctx, buildInsightsPrompt(s.OriginalArticle))
	if err != nil {
		return nil, err
	}
	return graph.Update{
		"Insights": text,
		"Messages": []Message{{Role: RoleAssistant, Content: text}},
	}, nil
}

// preface 只读元数据，不读正文；没有元数据时直接留空，不调用模型。
func (w *writers) preface(ctx context.Context, s State) (graph.Update, error) {
	if s.Metadata == nil {
		return graph.Update{}, nil
	}
	log.Printf("[workflow] writing preface")

	text, err := w.llm.Generate(ctx, buildPrefacePrompt(s.Metadata))
	if err != nil {
		return nil, err
	}
	return graph.Update{
		"Preface":  text,
		"Messages": []Message{{Role: RoleAssistant, Content: text}},
	}, nil
}

// transcript 的取舍是内容判断，交给模型：只有原文本身是多人访谈的
// 逐字稿时才输出整理稿，否则模型约定返回空字符串，这里原样透传。
func (w *writers) transcript(ctx context.Context, s State) (graph.Update, error) {
	log.Printf("[workflow] writing transcript")

	text, err := w.llm.Generate(ctx, buildTranscriptPrompt(s.OriginalArticle, s.Outline))
	if err != nil {
		return nil, err
	}
	return graph.Update{
		"Transcript": text,
		"Messages":   []Message{{Role: RoleAssistant, Content: text}},
	}, nil
}

// improveTitle 整体重写大纲标题，解析校验与 outline 节点同一套契约，
// node_id 必须原样保留，否则汇合时会撞上一致性检查。
func (w *writers) improveTitle(ctx context.Context, s State) (graph.Update, error) {
	log.Printf("[workflow] improving titles")

	text, err := w.llm.Generate(ctx, buildImproveTitlePrompt(s.Outline))
	if err != nil {
		return nil, err
	}
	o, err := parseOutline(text)
	if err != nil {
		return nil, err
	}
	return graph.Update{
		"Outline":  o,
		"Messages": []Message{{Role: RoleAssistant, Content: text}},
	}, nil
}

func (w *writers) contentReview(ctx context.Context, s State) (graph.Update, error) {
	log.Printf("[workflow] reviewing content for redundancy")

	text, err := w.llm.Generate(ctx, buildContentReviewPrompt(s.FinalArticle))
	if err != nil {
		return nil, err
	}
	return graph.Update{
		"FinalArticle": text,
		"Messages":     []Message{{Role: RoleAssistant, Content: text}},
	}, nil
}

// factCheck 只产出审计记录，不改动任何业务字段。
func (w *writers) factCheck(ctx context.Context, s State) (graph.Update, error) {
	text, err := w.llm.Generate(ctx, buildFactCheckerPrompt(s.OriginalArticle, s.FinalArticle))
	if err != nil {
		return nil, err
	}
	log.Printf("[workflow] factual score: %s", text)
	return graph.Update{
		"Messages": []Message{{Role: RoleAssistant, Content: text}},
	}, nil
}

func (w *writers) summarize(ctx context.Context, s State) (graph.Update, error) {
	log.Printf("[workflow] summarizing article")

	text, err := w.llm.Generate(ctx, buildSummarizePrompt(s.OriginalArticle))
	if err != nil {
		return nil, err
	}
	return graph.Update{
		"OriginalArticle": text,
		"Messages":        []Message{{Role: RoleAssistant, Content: text}},
	}, nil
}

// enrich 用外部搜索补充背景资料，尽力而为：查不到就保持原文不动。
func (w *writers) enrich(ctx context.Context, s State) (graph.Update, error) {
	if w.opts.Enricher == nil {
		return graph.Update{}, nil
	}
	log.Printf("[workflow] enriching content with web search")

	query := s.OriginalArticle
	if len([]rune(query)) > 200 {
		query = string([]rune(query)[:200])
	}
	extra := w.opts.Enricher.Search(ctx, query)
	if extra == "" {
		return graph.Update{}, nil
	}
	return graph.Update{
		"OriginalArticle": s.OriginalArticle + "\n\n补充背景资料：\n" + extra,
		"Messages":        []Message{{Role: RoleUser, Content: extra}},
	}, nil
}
