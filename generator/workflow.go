package generator

import (
	"context"
	"errors"
	"time"

	"wechat_article_workflow/graph"
)

// Searcher 是可选的外部检索能力：尽力而为，失败或无结果返回空串。
type Searcher interface {
	Search(ctx context.Context, query string) string
}

// Options 控制工作流的可选分支。零值即最小图；DefaultOptions 为生产配置。
type Options struct {
	Transcript     bool     // 对话整理分支，可整体关闭
	ImproveTitles  bool     // 标题重写分支
	FactCheck      bool     // 事实核查（仅审计，不改稿）
	Summarize      bool     // 超长原文的前置压缩
	Enricher       Searcher // 外部搜索补充背景，nil 表示关闭
	LegacyOrdering bool     // node_id 不一致时沿用旧的"未匹配排最后"，默认硬失败
}

func DefaultOptions() Options {
	return Options{Transcript: true, ImproveTitles: true}
}

// stateSchema 声明全部状态字段的合并策略。
// Concat 字段在单写者下等价于赋值；节点被调用两次会累加文本，
// 这是为多轮增强预留的行为，不是缺陷。
func stateSchema() *graph.Schema {
	return graph.NewSchema().
		TakeLatest("OriginalArticle", "Outline", "FinalArticle").
		Concat("Insights", "Transcript", "Preface").
		Append("Paragraphs", "Messages")
}

// Workflow 把一次性的编排图和模型能力装配在一起，可跨运行并发复用。
type Workflow struct {
	app *graph.Runnable[State]
}

func NewWorkflow(llm LLMClient, opts Options) (*Workflow, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	app, err := buildGraph(llm, opts)
	if err != nil {
		return nil, err
	}
	return &Workflow{app: app}, nil
}

// buildGraph 组装生产拓扑：
// START -> [enrich?] -> [summarize?] -> outline
//       -> {preface, improve_title?, insights, transcript?, fan-out(paragraph)}
//       -> join -> final -> review -> [fact_check?] -> END
func buildGraph(llm LLMClient, opts Options) (*graph.Runnable[State], error) {
	w := &writers{llm: llm, opts: opts}
	g := graph.New[State](stateSchema())

	g.AddNode(NodeOutline, w.outline)
	g.AddTaskNode(NodeParagraph, w.paragraph)
	g.AddNode(NodeInsights, w.insights)
	g.AddNode(NodePreface, w.preface)
	g.AddNode(NodeFinal, w.finalWriter)
	g.AddNode(NodeReview, w.contentReview)

	// 入口链：可选的前置节点串在大纲节点之前。
	chain := []string{}
	if opts.Enricher != nil {
		g.AddNode(NodeEnrich, w.enrich)
		chain = append(chain, NodeEnrich)
	}
	if opts.Summarize {
		g.AddNode(NodeSummarize, w.summarize)
		chain = append(chain, NodeSummarize)
	}
	chain = append(chain, NodeOutline)
	g.SetEntryPoint(chain[0])
	for i := 0; i+1 < len(chain); i++ {
		g.AddEdge(chain[i], chain[i+1])
	}

	g.AddFanOut(NodeOutline, NodeParagraph, continueToParagraphs)
	g.AddEdge(NodeOutline, NodeInsights)
	g.AddEdge(NodeOutline, NodePreface)

	joins := []string{NodeParagraph, NodeInsights, NodePreface}
	if opts.ImproveTitles {
		g.AddNode(NodeImproveTitle, w.improveTitle)
		g.AddEdge(NodeOutline, NodeImproveTitle)
		joins = append(joins, NodeImproveTitle)
	}
	if opts.Transcript {
		g.AddNode(NodeTranscript, w.transcript)
		g.AddEdge(NodeOutline, NodeTranscript)
		joins = append(joins, NodeTranscript)
	}
	g.AddJoinEdge(joins, NodeFinal)

	g.AddEdge(NodeFinal, NodeReview)
	if opts.FactCheck {
		g.AddNode(NodeFactCheck, w.factCheck)
		g.AddEdge(NodeReview, NodeFactCheck)
		g.AddEdge(NodeFactCheck, graph.END)
	} else {
		g.AddEdge(NodeReview, graph.END)
	}

	return g.Compile()
}

// Run 执行完整工作流。状态按次创建、用后即弃，运行之间完全隔离。
func (w *Workflow) Run(ctx context.Context, article string, md *Metadata) (*Result, error) {
	if article == "" {
		return nil, errors.New("article text is required")
	}

	start := time.Now()
	initial := State{
		OriginalArticle: article,
		Metadata:        md,
		Paragraphs:      []Paragraph{},
		Messages:        []Message{},
	}

	final, err := w.app.Invoke(ctx, initial)
	if err != nil {
		return nil, err
	}

	return &Result{
		Outline:      final.Outline,
		FinalArticle: final.FinalArticle,
		Paragraphs:   final.Paragraphs,
		Insights:     final.Insights,
		Transcript:   final.Transcript,
		Preface:      final.Preface,
		Elapsed:      time.Since(start),
	}, nil
}

// DOT 输出图拓扑，供诊断端点使用。
func (w *Workflow) DOT() string { return w.app.DOT() }

// RunWorkflow 一步到位地组图并执行，给 CLI 和简单调用方使用。
func RunWorkflow(ctx context.Context, article string, md *Metadata, llm LLMClient, opts Options) (*Result, error) {
	w, err := NewWorkflow(llm, opts)
	if err != nil {
		return nil, err
	}
	return w.Run(ctx, article, md)
}
